package registrationhandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ptotracker/internal/domain/audit"
	"ptotracker/internal/domain/auth"
	"ptotracker/internal/domain/leave"
	"ptotracker/internal/domain/notifications"
	"ptotracker/internal/domain/registration"
	"ptotracker/internal/domain/staff"
	"ptotracker/internal/platform/metrics"
	"ptotracker/internal/transport/http/api"
	"ptotracker/internal/transport/http/middleware"
	"ptotracker/internal/transport/http/shared"
)

// Notifier is satisfied by *notifications.Notifier.
type Notifier interface {
	NotifyRegistration(ctx context.Context, event string, reg registration.Registration)
}

type Handler struct {
	Service *registration.Service
	Notify  Notifier
	Audit   *audit.Service
	Metrics *metrics.Collector
}

func NewHandler(service *registration.Service, notify Notifier, auditSvc *audit.Service, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Notify: notify, Audit: auditSvc, Metrics: collector}
}

// RegisterRoutes mounts the public sign-up behind limit and the review
// endpoints behind manager auth.
func (h *Handler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Route("/registrations", func(r chi.Router) {
		if limit != nil {
			r.With(limit).Post("/", h.handleSubmit)
		} else {
			r.Post("/", h.handleSubmit)
		}
		r.With(middleware.RequireManager).Get("/", h.handleList)
		r.With(middleware.RequireManager).Get("/{registrationID}", h.handleGet)
		decide := middleware.RequireRole(staff.RoleSuperadmin, staff.RoleAdmin, staff.RoleClinical)
		r.With(decide).Post("/{registrationID}/approve", h.handleApprove)
		r.With(decide).Post("/{registrationID}/deny", h.handleDeny)
	})
}

type submitRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
	Team     string `json:"team" validate:"required,oneof=admin clinical"`
	Position string `json:"position" validate:"required,max=100"`
	Notes    string `json:"notes" validate:"max=1000"`
}

type denyRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type approveResponse struct {
	Registration registration.Registration `json:"registration"`
	Employee     leave.Employee            `json:"employee"`
}

// teamsFor returns the registration teams a role reviews. Supervisors review
// none; nil means every team.
func teamsFor(role staff.Role) ([]string, bool) {
	switch role {
	case staff.RoleSuperadmin:
		return nil, true
	case staff.RoleAdmin:
		return []string{staff.TeamAdmin}, true
	case staff.RoleClinical:
		return []string{staff.TeamClinical}, true
	default:
		return nil, false
	}
}

func visibleTo(p auth.Principal, reg registration.Registration) bool {
	teams, ok := teamsFor(p.Role)
	if !ok {
		return false
	}
	if teams == nil {
		return true
	}
	for _, team := range teams {
		if team == reg.ManagerTeam() {
			return true
		}
	}
	return false
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload submitRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	payload.Team = strings.ToLower(strings.TrimSpace(payload.Team))
	validator := shared.NewValidator()
	validator.Struct(payload)
	if payload.Phone != "" && len(staff.NormalizePhone(payload.Phone)) < 10 {
		validator.Add("phone", "must contain at least 10 digits")
	}
	if validator.Reject(w, requestID) {
		return
	}

	reg, err := h.Service.Submit(r.Context(), registration.Input{
		Name:     payload.Name,
		Email:    payload.Email,
		Phone:    payload.Phone,
		Team:     payload.Team,
		Position: payload.Position,
		Notes:    payload.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, registration.ErrAlreadyPending):
			api.Fail(w, http.StatusConflict, "registration_pending", "a registration with this email is already pending approval", requestID)
		case errors.Is(err, leave.ErrDuplicateEmployee):
			api.Fail(w, http.StatusConflict, "employee_exists", "an employee with this email already exists", requestID)
		default:
			slog.Warn("submit registration failed", "err", err)
			api.Fail(w, http.StatusInternalServerError, "registration_failed", "failed to submit registration", requestID)
		}
		return
	}
	h.Metrics.Event("registration.submitted")
	h.record(r, "self:"+reg.Email, audit.ActionRegistration, reg.ID, nil, reg)
	if h.Notify != nil {
		h.Notify.NotifyRegistration(r.Context(), notifications.EventRegistrationSubmitted, reg)
	}
	api.Created(w, reg, requestID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, _ := middleware.GetPrincipal(r.Context())
	teams, ok := teamsFor(p.Role)
	if !ok {
		api.Success(w, []registration.Registration{}, requestID)
		return
	}

	filter := registration.Filter{Status: registration.StatusPending, Teams: teams}
	switch status := strings.TrimSpace(r.URL.Query().Get("status")); status {
	case "", string(registration.StatusPending):
	case "all":
		filter.Status = ""
	case string(registration.StatusApproved), string(registration.StatusDenied):
		filter.Status = registration.Status(status)
	default:
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "status", Reason: "must be one of: pending approved denied all"}})
		return
	}

	regs, err := h.Service.List(r.Context(), filter)
	if err != nil {
		slog.Warn("list registrations failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "registration_list_failed", "failed to list registrations", requestID)
		return
	}
	api.Success(w, regs, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	api.Success(w, reg, middleware.GetRequestID(r.Context()))
}

func (h *Handler) loadVisible(w http.ResponseWriter, r *http.Request) (registration.Registration, bool) {
	requestID := middleware.GetRequestID(r.Context())
	p, _ := middleware.GetPrincipal(r.Context())
	reg, err := h.Service.Get(r.Context(), chi.URLParam(r, "registrationID"))
	if err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "registration not found", requestID)
			return registration.Registration{}, false
		}
		slog.Warn("get registration failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "registration_get_failed", "failed to load registration", requestID)
		return registration.Registration{}, false
	}
	if !visibleTo(p, reg) {
		api.Fail(w, http.StatusNotFound, "not_found", "registration not found", requestID)
		return registration.Registration{}, false
	}
	return reg, true
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, _ := middleware.GetPrincipal(r.Context())
	current, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	reg, employee, err := h.Service.Approve(r.Context(), current.ID, p.ManagerID)
	if err != nil {
		h.failDecision(w, err, requestID)
		return
	}
	h.Metrics.Event("registration.approved")
	h.record(r, p.ManagerID, audit.ActionRegistrationOK, reg.ID, current, reg)
	if h.Notify != nil {
		h.Notify.NotifyRegistration(r.Context(), notifications.EventRegistrationApproved, reg)
	}
	api.Success(w, approveResponse{Registration: reg, Employee: employee}, requestID)
}

func (h *Handler) handleDeny(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, _ := middleware.GetPrincipal(r.Context())
	var payload denyRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
			return
		}
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, requestID) {
		return
	}
	current, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	reg, err := h.Service.Deny(r.Context(), current.ID, payload.Reason, p.ManagerID)
	if err != nil {
		h.failDecision(w, err, requestID)
		return
	}
	h.Metrics.Event("registration.denied")
	h.record(r, p.ManagerID, audit.ActionRegistrationDeny, reg.ID, current, reg)
	if h.Notify != nil {
		h.Notify.NotifyRegistration(r.Context(), notifications.EventRegistrationDenied, reg)
	}
	api.Success(w, reg, requestID)
}

func (h *Handler) failDecision(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, registration.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "registration not found", requestID)
	case errors.Is(err, registration.ErrAlreadyDecided):
		api.Fail(w, http.StatusConflict, "already_processed", err.Error(), requestID)
	case errors.Is(err, leave.ErrDuplicateEmployee):
		api.Fail(w, http.StatusConflict, "employee_exists", "an employee with this email already exists", requestID)
	default:
		slog.Warn("registration decision failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "registration_decision_failed", "failed to process registration", requestID)
	}
}

func (h *Handler) record(r *http.Request, actor, action, entityID string, before, after any) {
	if err := h.Audit.Record(r.Context(), actor, action, "registration", entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}
