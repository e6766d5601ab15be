package callouthandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ptotracker/internal/domain/audit"
	"ptotracker/internal/domain/callout"
	"ptotracker/internal/domain/notifications"
	"ptotracker/internal/platform/metrics"
	"ptotracker/internal/transport/http/api"
	leavehandler "ptotracker/internal/transport/http/handlers/leave"
	"ptotracker/internal/transport/http/middleware"
	"ptotracker/internal/transport/http/shared"
)

type Handler struct {
	Service *callout.Service
	Notify  leavehandler.Notifier
	Audit   *audit.Service
	Metrics *metrics.Collector
}

func NewHandler(service *callout.Service, notify leavehandler.Notifier, auditSvc *audit.Service, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Notify: notify, Audit: auditSvc, Metrics: collector}
}

// RegisterRoutes mounts intake behind a limiter keyed on the caller's phone.
func (h *Handler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	if limit != nil {
		r.With(limit).Post("/callouts", h.handleIntake)
		return
	}
	r.Post("/callouts", h.handleIntake)
}

type intakeRequest struct {
	Phone   string `json:"phone" validate:"required"`
	Message string `json:"message" validate:"max=1600"`
	Source  string `json:"source" validate:"omitempty,oneof=sms phone web"`
}

type intakeResponse struct {
	RequestID     string  `json:"requestId"`
	EmployeeName  string  `json:"employeeName"`
	Date          string  `json:"date"`
	SickHoursLeft float64 `json:"sickHoursLeft"`
	Message       string  `json:"message"`
}

func (h *Handler) handleIntake(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload intakeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	payload.Source = strings.ToLower(strings.TrimSpace(payload.Source))
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, requestID) {
		return
	}

	result, err := h.Service.Intake(r.Context(), payload.Phone, payload.Message, payload.Source)
	if err != nil {
		if errors.Is(err, callout.ErrUnknownCaller) {
			api.Fail(w, http.StatusNotFound, "unknown_caller", "Phone number not registered. Please contact your manager directly.", requestID)
			return
		}
		slog.Warn("call-out intake failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "callout_failed", "failed to record call-out", requestID)
		return
	}

	h.Metrics.Event("request.call_out")
	if err := h.Audit.Record(r.Context(), "phone:"+result.Employee.ID, audit.ActionCallOut, "pto_request", result.Request.ID, requestID, shared.ClientIP(r), nil, result.Request); err != nil {
		slog.Warn("audit call-out failed", "err", err)
	}
	if h.Notify != nil {
		h.Notify.Notify(r.Context(), notifications.EventCallOutApproved, result.Request, result.Employee)
	}
	sickLeft := math.Max(0, math.Round((result.Employee.Balance.SickHours-result.Request.DurationHours)*100)/100)
	api.Created(w, intakeResponse{
		RequestID:     result.Request.ID,
		EmployeeName:  result.Employee.Name,
		Date:          result.Request.StartDate,
		SickHoursLeft: sickLeft,
		Message:       result.Message,
	}, requestID)
}
