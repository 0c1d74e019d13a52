package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

type Employee struct {
	ID            string          `json:"id"`
	Email         string          `json:"email"`
	FirstName     string          `json:"firstName"`
	LastName      string          `json:"lastName"`
	Role          string          `json:"role"`
	ManagerID     string          `json:"managerId,omitempty"`
	AnnualDays    decimal.Decimal `json:"annualDays"`
	SickDays      decimal.Decimal `json:"sickDays"`
	EmergencyDays decimal.Decimal `json:"emergencyDays"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	PasswordHash string `json:"-"`
}
