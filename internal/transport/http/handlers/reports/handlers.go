package reporthandler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/reports"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

type Handler struct {
	Service *reports.Service
}

func NewHandler(service *reports.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleManager, auth.RoleHR, auth.RoleAdmin))
		r.Get("/balances", h.handleBalances)
		r.Get("/usage", h.handleUsage)
		r.Get("/calendar", h.handleCalendar)
		r.Get("/calendar/export", h.handleCalendarExport)
	})
}

func (h *Handler) handleBalances(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	rows, err := h.Service.Balances(r.Context(), yearParam(r))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build balance report", reqID)
		return
	}
	api.Success(w, rows, reqID)
}

func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	rows, err := h.Service.Usage(r.Context(), yearParam(r))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build usage report", reqID)
		return
	}
	api.Success(w, rows, reqID)
}

func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	from, to, ok := rangeParams(w, r, reqID)
	if !ok {
		return
	}

	entries, err := h.Service.Calendar(r.Context(), from, to)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build calendar", reqID)
		return
	}
	api.Success(w, entries, reqID)
}

func (h *Handler) handleCalendarExport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	from, to, ok := rangeParams(w, r, reqID)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "csv":
		data, err := h.Service.CalendarCSV(r.Context(), from, to)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to export calendar", reqID)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="leave-calendar.csv"`)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	case "pdf":
		data, err := h.Service.CalendarPDF(r.Context(), from, to)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to export calendar", reqID)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="leave-calendar.pdf"`)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	default:
		api.Fail(w, http.StatusBadRequest, "invalid_format", "format must be csv or pdf", reqID)
	}
}

func yearParam(r *http.Request) int {
	if v, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil && v > 0 {
		return v
	}
	return time.Now().Year()
}

func rangeParams(w http.ResponseWriter, r *http.Request, reqID string) (time.Time, time.Time, bool) {
	from, err := shared.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid from date", reqID)
		return time.Time{}, time.Time{}, false
	}
	to, err := shared.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid to date", reqID)
		return time.Time{}, time.Time{}, false
	}
	if from.IsZero() {
		from = time.Now().AddDate(0, -1, 0)
	}
	if to.IsZero() {
		to = time.Now().AddDate(0, 1, 0)
	}
	return from, to, true
}
