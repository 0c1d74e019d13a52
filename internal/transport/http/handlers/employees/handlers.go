package employeehandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/employee"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
)

type Handler struct {
	Service *employee.Service
}

func NewHandler(service *employee.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequireRole(auth.RoleHR, auth.RoleAdmin)).Post("/", h.handleCreate)
		r.With(middleware.RequireRole(auth.RoleManager, auth.RoleHR, auth.RoleAdmin)).Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.With(middleware.RequireRole(auth.RoleHR, auth.RoleAdmin)).Put("/{id}/manager", h.handleAssignManager)
		r.With(middleware.RequireRole(auth.RoleHR, auth.RoleAdmin)).Delete("/{id}", h.handleDeactivate)
	})
}

type createRequest struct {
	Email         string          `json:"email"`
	Password      string          `json:"password"`
	FirstName     string          `json:"firstName"`
	LastName      string          `json:"lastName"`
	Role          string          `json:"role"`
	ManagerID     string          `json:"managerId"`
	AnnualDays    decimal.Decimal `json:"annualDays"`
	SickDays      decimal.Decimal `json:"sickDays"`
	EmergencyDays decimal.Decimal `json:"emergencyDays"`
	Year          int             `json:"year"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload createRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if payload.Email == "" || payload.Password == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "email and password are required", reqID)
		return
	}
	if payload.Year == 0 {
		payload.Year = time.Now().Year()
	}

	emp, err := h.Service.Create(r.Context(), employee.CreateInput{
		Employee: employee.Employee{
			Email:         payload.Email,
			FirstName:     payload.FirstName,
			LastName:      payload.LastName,
			Role:          payload.Role,
			ManagerID:     payload.ManagerID,
			AnnualDays:    payload.AnnualDays,
			SickDays:      payload.SickDays,
			EmergencyDays: payload.EmergencyDays,
		},
		Password: payload.Password,
		Year:     payload.Year,
	})
	if err != nil {
		writeEmployeeError(w, err, reqID)
		return
	}

	api.Created(w, emp, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	limit, offset := pagination(r)
	list, err := h.Service.List(r.Context(), limit, offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "list_failed", "failed to list employees", reqID)
		return
	}
	api.Success(w, list, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "id")

	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	if principal.Role == auth.RoleEmployee && principal.ID != id {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot view other employees", reqID)
		return
	}

	emp, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeEmployeeError(w, err, reqID)
		return
	}
	api.Success(w, emp, reqID)
}

type assignManagerRequest struct {
	ManagerID string `json:"managerId"`
}

func (h *Handler) handleAssignManager(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "id")

	var payload assignManagerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	if err := h.Service.AssignManager(r.Context(), id, payload.ManagerID); err != nil {
		writeEmployeeError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"id": id, "managerId": payload.ManagerID}, reqID)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.Service.Deactivate(r.Context(), id); err != nil {
		writeEmployeeError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"id": id, "status": "inactive"}, reqID)
}

func writeEmployeeError(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, employee.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
	case errors.Is(err, employee.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email already registered", reqID)
	case errors.Is(err, employee.ErrUnknownManager):
		api.Fail(w, http.StatusBadRequest, "unknown_manager", "manager does not exist", reqID)
	case errors.Is(err, employee.ErrManagerCycle):
		api.Fail(w, http.StatusConflict, "manager_cycle", "assignment would create a reporting cycle", reqID)
	case errors.Is(err, employee.ErrInvalidRole):
		api.Fail(w, http.StatusBadRequest, "invalid_role", "unknown role", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "internal_error", "operation failed", reqID)
	}
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
