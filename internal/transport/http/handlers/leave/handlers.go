package leavehandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/leave"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

const maxDocumentBytes = 5 << 20

// ManagerDirectory answers whether one employee manages another. Satisfied
// by employee.Store.
type ManagerDirectory interface {
	IsManagerOf(ctx context.Context, managerID, employeeID string) (bool, error)
}

type Handler struct {
	Service   *leave.Service
	Employees ManagerDirectory
}

func NewHandler(service *leave.Service, employees ManagerDirectory) *Handler {
	return &Handler{Service: service, Employees: employees}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.Get("/types", h.handleListTypes)
		r.With(middleware.RequireRole(auth.RoleHR, auth.RoleAdmin)).Post("/types", h.handleCreateType)

		r.Get("/balances", h.handleBalances)

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", h.handleSubmit)
			r.Get("/", h.handleListRequests)
			r.Get("/{id}", h.handleGetRequest)
			r.Post("/{id}/approve", h.handleApprove)
			r.Post("/{id}/reject", h.handleReject)
			r.Post("/{id}/cancel", h.handleCancel)
		})

		r.Post("/documents", h.handleUploadDocument)
		r.Get("/documents/{id}", h.handleDownloadDocument)
	})
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	types, err := h.Service.ListTypes(r.Context())
	if err != nil {
		writeLeaveError(w, err, reqID)
		return
	}
	api.Success(w, types, reqID)
}

type createTypeRequest struct {
	Name             string          `json:"name"`
	MaxDays          decimal.Decimal `json:"maxDays"`
	RequiresDoc      bool            `json:"requiresDoc"`
	RequiresApproval *bool           `json:"requiresApproval"`
}

func (h *Handler) handleCreateType(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload createTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if payload.Name == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "name is required", reqID)
		return
	}

	requiresApproval := true
	if payload.RequiresApproval != nil {
		requiresApproval = *payload.RequiresApproval
	}

	id, err := h.Service.CreateType(r.Context(), leave.LeaveType{
		Name:             payload.Name,
		MaxDays:          payload.MaxDays,
		RequiresDoc:      payload.RequiresDoc,
		RequiresApproval: requiresApproval,
		Active:           true,
	})
	if err != nil {
		writeLeaveError(w, err, reqID)
		return
	}
	api.Created(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleBalances(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	employeeID := r.URL.Query().Get("employeeId")
	if employeeID == "" {
		employeeID = principal.ID
	}
	if employeeID != principal.ID {
		allowed, err := h.canActOn(r, principal, employeeID)
		if err != nil {
			writeLeaveError(w, err, reqID)
			return
		}
		if !allowed {
			api.Fail(w, http.StatusForbidden, "forbidden", "cannot view balances for this employee", reqID)
			return
		}
	}

	year := time.Now().Year()
	if v, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil && v > 0 {
		year = v
	}

	balances, err := h.Service.Ledger().Balances(r.Context(), employeeID, year)
	if err != nil {
		writeLeaveError(w, err, reqID)
		return
	}
	api.Success(w, balances, reqID)
}

type submitRequest struct {
	LeaveTypeID string `json:"leaveTypeId"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Duration    string `json:"duration"`
	Reason      string `json:"reason"`
	DocumentID  string `json:"documentId"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	var payload submitRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	start, err := shared.ParseDate(payload.StartDate)
	if err != nil || start.IsZero() {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid startDate", reqID)
		return
	}
	end, err := shared.ParseDate(payload.EndDate)
	if err != nil || end.IsZero() {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid endDate", reqID)
		return
	}

	duration := payload.Duration
	if duration == "" {
		duration = leave.DurationFullDay
	}

	request, err := h.Service.Submit(r.Context(), leave.SubmitInput{
		EmployeeID:  principal.ID,
		LeaveTypeID: payload.LeaveTypeID,
		StartDate:   start,
		EndDate:     end,
		Duration:    duration,
		Reason:      payload.Reason,
		DocumentID:  payload.DocumentID,
	})
	if err != nil {
		writeLeaveError(w, err, reqID)
		return
	}
	api.Created(w, request, reqID)
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	filter := leave.RequestFilter{
		Status: r.URL.Query().Get("status"),
	}
	filter.Limit, filter.Offset = pagination(r)

	switch principal.Role {
	case auth.RoleHR, auth.RoleAdmin:
		filter.EmployeeID = r.URL.Query().Get("employeeId")
	case auth.RoleManager:
		if want := r.URL.Query().Get("employeeId"); want != "" {
			filter.EmployeeID = want
		} else {
			filter.ManagerID = principal.ID
		}
	default:
		filter.EmployeeID = principal.ID
	}

	requests, err := h.Service.ListRequests(r.Context(), filter)
	if err != nil {
		writeLeaveError(w, err, reqID)
		return
	}
	api.Success(w, requests, reqID)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	request, err := h.Service.Request(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLeaveError(w, err, reqID)
		return
	}
	if request.EmployeeID != principal.ID {
		allowed, err := h.canActOn(r, principal, request.EmployeeID)
		if err != nil {
			writeLeaveError(w, err, reqID)
			return
		}
		if !allowed {
			api.Fail(w, http.StatusForbidden, "forbidden", "cannot view this request", reqID)
			return
		}
	}
	api.Success(w, request, reqID)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, ok := h.requireApprover(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if !h.approverScoped(w, r, principal, id, reqID) {
		return
	}

	request, err := h.Service.Approve(r.Context(), id, principal.ID)
	if err != nil {
		writeLeaveError(w, err, reqID)
		return
	}
	api.Success(w, request, reqID)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, ok := h.requireApprover(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if !h.approverScoped(w, r, principal, id, reqID) {
		return
	}

	var payload rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	request, err := h.Service.Reject(r.Context(), id, principal.ID, payload.Reason)
	if err != nil {
		writeLeaveError(w, err, reqID)
		return
	}
	api.Success(w, request, reqID)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	id := chi.URLParam(r, "id")
	request, err := h.Service.Request(r.Context(), id)
	if err != nil {
		writeLeaveError(w, err, reqID)
		return
	}
	if request.EmployeeID != principal.ID && principal.Role != auth.RoleHR && principal.Role != auth.RoleAdmin {
		api.Fail(w, http.StatusForbidden, "forbidden", "only the requester can cancel", reqID)
		return
	}

	request, err = h.Service.Cancel(r.Context(), id, principal.ID)
	if err != nil {
		writeLeaveError(w, err, reqID)
		return
	}
	api.Success(w, request, reqID)
}

func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	if err := r.ParseMultipartForm(maxDocumentBytes); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "expected multipart form with a file field", reqID)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "missing file field", reqID)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxDocumentBytes+1))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "upload_failed", "failed to read file", reqID)
		return
	}
	if len(data) > maxDocumentBytes {
		api.Fail(w, http.StatusRequestEntityTooLarge, "file_too_large", "document exceeds the size limit", reqID)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id, err := h.Service.UploadDocument(r.Context(), &leave.Document{
		FileName:    header.Filename,
		ContentType: contentType,
		FileSize:    int64(len(data)),
		UploadedBy:  principal.ID,
		Data:        data,
	})
	if err != nil {
		writeLeaveError(w, err, reqID)
		return
	}
	api.Created(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	doc, err := h.Service.Document(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLeaveError(w, err, reqID)
		return
	}
	if doc.UploadedBy != principal.ID {
		allowed, err := h.canActOn(r, principal, doc.UploadedBy)
		if err != nil {
			writeLeaveError(w, err, reqID)
			return
		}
		if !allowed {
			api.Fail(w, http.StatusForbidden, "forbidden", "cannot access this document", reqID)
			return
		}
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Data)
}

func (h *Handler) requireApprover(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	reqID := middleware.GetRequestID(r.Context())
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return auth.Principal{}, false
	}
	if !auth.CanApprove(principal.Role) {
		api.Fail(w, http.StatusForbidden, "forbidden", "role cannot process leave requests", reqID)
		return auth.Principal{}, false
	}
	return principal, true
}

// approverScoped checks that a manager only processes requests from their own
// reports. HR and admin may process any request.
func (h *Handler) approverScoped(w http.ResponseWriter, r *http.Request, principal auth.Principal, requestID, reqID string) bool {
	if principal.Role != auth.RoleManager {
		return true
	}
	request, err := h.Service.Request(r.Context(), requestID)
	if err != nil {
		writeLeaveError(w, err, reqID)
		return false
	}
	managed, err := h.Employees.IsManagerOf(r.Context(), principal.ID, request.EmployeeID)
	if err != nil {
		writeLeaveError(w, err, reqID)
		return false
	}
	if !managed {
		api.Fail(w, http.StatusForbidden, "forbidden", "request is outside your reports", reqID)
		return false
	}
	return true
}

func (h *Handler) canActOn(r *http.Request, principal auth.Principal, employeeID string) (bool, error) {
	switch principal.Role {
	case auth.RoleHR, auth.RoleAdmin:
		return true, nil
	case auth.RoleManager:
		return h.Employees.IsManagerOf(r.Context(), principal.ID, employeeID)
	default:
		return false, nil
	}
}

func writeLeaveError(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, leave.ErrInvalidRange):
		api.Fail(w, http.StatusBadRequest, "invalid_range", "end date must not precede start date", reqID)
	case errors.Is(err, leave.ErrInvalidDuration):
		api.Fail(w, http.StatusBadRequest, "invalid_duration", "unknown duration mode", reqID)
	case errors.Is(err, leave.ErrMissingReason):
		api.Fail(w, http.StatusBadRequest, "missing_reason", "a rejection reason is required", reqID)
	case errors.Is(err, leave.ErrDocumentRequired):
		api.Fail(w, http.StatusBadRequest, "document_required", "this leave type requires a supporting document", reqID)
	case errors.Is(err, leave.ErrInsufficientBalance):
		api.Fail(w, http.StatusConflict, "insufficient_balance", "not enough remaining days", reqID)
	case errors.Is(err, leave.ErrOverlappingRequest):
		api.Fail(w, http.StatusConflict, "overlapping_request", "an active request already covers part of this range", reqID)
	case errors.Is(err, leave.ErrAlreadyProcessed):
		api.Fail(w, http.StatusConflict, "already_processed", "request has already been processed", reqID)
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", reqID)
	case leave.IsStorageError(err):
		api.Fail(w, http.StatusInternalServerError, "storage_failure", "a storage operation failed", reqID)
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
