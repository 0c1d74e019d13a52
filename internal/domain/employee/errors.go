package employee

import "errors"

var (
	ErrNotFound       = errors.New("employee not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrManagerCycle   = errors.New("manager assignment would create a cycle")
	ErrUnknownManager = errors.New("manager does not exist")
	ErrInvalidRole    = errors.New("invalid role")
)
