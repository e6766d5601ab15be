package leavehandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ptotracker/internal/domain/audit"
	"ptotracker/internal/domain/auth"
	"ptotracker/internal/domain/calendar"
	"ptotracker/internal/domain/leave"
	"ptotracker/internal/domain/notifications"
	"ptotracker/internal/domain/staff"
	"ptotracker/internal/platform/metrics"
	"ptotracker/internal/transport/http/api"
	"ptotracker/internal/transport/http/middleware"
	"ptotracker/internal/transport/http/shared"
)

// Notifier is satisfied by *notifications.Notifier.
type Notifier interface {
	Notify(ctx context.Context, event string, req leave.Request, employee leave.Employee)
}

// Sweeper runs the completion sweep as a recorded job.
type Sweeper interface {
	Sweep(ctx context.Context, asOf calendar.Date) (int, error)
}

type Handler struct {
	Service  *leave.Service
	Notify   Notifier
	Jobs     Sweeper
	Audit    *audit.Service
	Metrics  *metrics.Collector
	Location *time.Location
}

func NewHandler(service *leave.Service, notify Notifier, jobs Sweeper, auditSvc *audit.Service, collector *metrics.Collector, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{Service: service, Notify: notify, Jobs: jobs, Audit: auditSvc, Metrics: collector, Location: loc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/requests", func(r chi.Router) {
		r.Post("/", h.handleSubmit)
		r.With(middleware.RequireManager).Get("/", h.handleList)
		r.With(middleware.RequireRole(staff.RoleSuperadmin)).Post("/sweep", h.handleSweep)
		r.With(middleware.RequireManager).Get("/{requestID}", h.handleGet)
		r.With(middleware.RequireManager).Get("/{requestID}/summary.pdf", h.handleSummaryPDF)
		r.With(middleware.RequireManager).Post("/{requestID}/approve", h.handleApprove)
		r.With(middleware.RequireManager).Post("/{requestID}/deny", h.handleDeny)
		r.With(middleware.RequireManager).Post("/{requestID}/checklist", h.handleChecklist)
	})
}

type submitRequest struct {
	EmployeeID    string `json:"employeeId"`
	EmployeeEmail string `json:"employeeEmail"`
	StartDate     string `json:"startDate" validate:"required"`
	EndDate       string `json:"endDate" validate:"required"`
	Type          string `json:"type" validate:"omitempty,oneof=vacation personal sick"`
	PartialDay    bool   `json:"partialDay"`
	StartTime     string `json:"startTime" validate:"omitempty,clock"`
	EndTime       string `json:"endTime" validate:"omitempty,clock"`
	Reason        string `json:"reason" validate:"max=1000"`
}

type denyRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type checklistRequest struct {
	TimekeepingEntered *bool `json:"timekeepingEntered"`
	CoverageArranged   *bool `json:"coverageArranged"`
}

type sweepRequest struct {
	AsOf string `json:"asOf"`
}

type listResponse struct {
	Items  []leave.Request `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type detailResponse struct {
	Request   leave.Request      `json:"request"`
	Breakdown calendar.Breakdown `json:"breakdown"`
	Balance   *leave.Balance     `json:"balance,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload submitRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	validator := shared.NewValidator()
	validator.Struct(payload)
	if strings.TrimSpace(payload.EmployeeID) == "" && strings.TrimSpace(payload.EmployeeEmail) == "" {
		validator.Add("employeeId", "employeeId or employeeEmail is required")
	}
	start, startOK := validator.Date("startDate", payload.StartDate)
	end, endOK := validator.Date("endDate", payload.EndDate)
	if startOK && endOK {
		validator.DateOrder("startDate", start, "endDate", end)
		if _, err := calendar.CheckedSpan(start, end); err != nil {
			validator.Add("endDate", "date range is too long")
		}
	}
	if payload.PartialDay {
		validator.Required("startTime", payload.StartTime, "is required for a partial day")
		validator.Required("endTime", payload.EndTime, "is required for a partial day")
		if payload.StartTime != "" && payload.EndTime != "" {
			if _, err := leave.PartialDayHours(payload.StartTime, payload.EndTime); err != nil {
				validator.Add("endTime", "must be after startTime")
			}
		}
	}
	if validator.Reject(w, requestID) {
		return
	}

	employee, err := h.resolveEmployee(r.Context(), payload.EmployeeID, payload.EmployeeEmail)
	if err != nil {
		if errors.Is(err, leave.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", requestID)
			return
		}
		slog.Warn("resolve employee failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "request_create_failed", "failed to create request", requestID)
		return
	}

	req, err := h.Service.Submit(r.Context(), leave.SubmitInput{
		EmployeeID: employee.ID,
		StartDate:  payload.StartDate,
		EndDate:    payload.EndDate,
		Type:       leave.LeaveType(payload.Type),
		PartialDay: payload.PartialDay,
		StartTime:  payload.StartTime,
		EndTime:    payload.EndTime,
		Reason:     strings.TrimSpace(payload.Reason),
	})
	if err != nil {
		if errors.Is(err, leave.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", requestID)
			return
		}
		if errors.Is(err, leave.ErrInactiveEmployee) {
			api.Fail(w, http.StatusConflict, "employee_inactive", "employee is no longer active", requestID)
			return
		}
		slog.Warn("submit request failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "request_create_failed", "failed to create request", requestID)
		return
	}
	h.Metrics.Event("request.submitted")
	h.notify(r.Context(), notifications.EventSubmitted, req, employee)
	api.Created(w, req, requestID)
}

func (h *Handler) resolveEmployee(ctx context.Context, id, email string) (leave.Employee, error) {
	if id = strings.TrimSpace(id); id != "" {
		return h.Service.GetEmployee(ctx, id)
	}
	return h.Service.FindEmployeeByEmail(ctx, email)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, _ := middleware.GetPrincipal(r.Context())
	filter, ok := parseFilter(w, r, requestID)
	if !ok {
		return
	}
	applyScope(&filter, p)

	result, err := h.Service.List(r.Context(), filter)
	if err != nil {
		slog.Warn("list requests failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "request_list_failed", "failed to list requests", requestID)
		return
	}
	items := result.Requests
	if items == nil {
		items = []leave.Request{}
	}
	api.Success(w, listResponse{Items: items, Total: result.Total, Limit: filter.Limit, Offset: filter.Offset}, requestID)
}

// parseFilter reads status, employeeId, callOut, from, to, limit and offset.
func parseFilter(w http.ResponseWriter, r *http.Request, requestID string) (leave.Filter, bool) {
	q := r.URL.Query()
	page := shared.ParsePagination(r, 50, 200)
	filter := leave.Filter{
		EmployeeID: strings.TrimSpace(q.Get("employeeId")),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}

	validator := shared.NewValidator()
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := leave.ParseStatus(strings.TrimSpace(part))
			if err != nil {
				validator.Add("status", "unknown status "+strings.TrimSpace(part))
				continue
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := strings.TrimSpace(q.Get("callOut")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			validator.Add("callOut", "must be true or false")
		} else {
			filter.CallOut = &v
		}
	}
	var from, to calendar.Date
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		from, _ = validator.Date("from", raw)
		filter.From = raw
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		to, _ = validator.Date("to", raw)
		filter.To = raw
	}
	validator.DateOrder("from", from, "to", to)
	if validator.Reject(w, requestID) {
		return leave.Filter{}, false
	}
	return filter, true
}

func applyScope(filter *leave.Filter, p auth.Principal) {
	scope := staff.ScopeFor(p.Role)
	filter.ManagerTeams = scope.ManagerTeams
	filter.Positions = scope.Positions
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	req, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	resp := detailResponse{Request: req, Breakdown: h.Service.Breakdown(req)}
	if balance, err := h.Service.Balances(r.Context(), req.EmployeeID); err == nil {
		resp.Balance = &balance
	} else {
		slog.Warn("load balance failed", "employeeId", req.EmployeeID, "err", err)
	}
	api.Success(w, resp, requestID)
}

func (h *Handler) handleSummaryPDF(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	req, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	employee, err := h.Service.GetEmployee(r.Context(), req.EmployeeID)
	if err != nil {
		slog.Warn("load employee for summary failed", "employeeId", req.EmployeeID, "err", err)
		employee = leave.Employee{ID: req.EmployeeID, Name: req.EmployeeName, Position: req.Position}
	}
	body, err := h.Service.SummaryPDF(req, employee)
	if err != nil {
		slog.Warn("render summary failed", "requestId", req.ID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "summary_failed", "failed to render summary", requestID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"pto-request-%s.pdf\"", req.ID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Warn("write summary failed", "err", err)
	}
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, _ := middleware.GetPrincipal(r.Context())
	current, ok := h.loadActionable(w, r, p)
	if !ok {
		return
	}

	req, applied, err := h.Service.Approve(r.Context(), current.ID, p.ManagerID)
	if err != nil {
		h.failMutation(w, err, "approve_failed", "failed to approve request", requestID)
		return
	}
	if !applied {
		api.Fail(w, http.StatusConflict, "invalid_transition", fmt.Sprintf("request is %s, not pending", req.Status), requestID)
		return
	}
	h.Metrics.Event("request.approved")
	h.record(r, audit.ActionRequestApproved, req.ID, current.Status.String(), req.Status.String())
	h.notifyByID(r.Context(), notifications.EventApproved, req)
	api.Success(w, req, requestID)
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

	current, ok := h.loadActionable(w, r, p)
	if !ok {
		return
	}
	req, applied, err := h.Service.Deny(r.Context(), current.ID, payload.Reason, p.ManagerID)
	if err != nil {
		h.failMutation(w, err, "deny_failed", "failed to deny request", requestID)
		return
	}
	if !applied {
		api.Fail(w, http.StatusConflict, "invalid_transition", fmt.Sprintf("request is %s, not pending", req.Status), requestID)
		return
	}
	h.Metrics.Event("request.denied")
	h.record(r, audit.ActionRequestDenied, req.ID, current.Status.String(), req.Status.String())
	h.notifyByID(r.Context(), notifications.EventDenied, req)
	api.Success(w, req, requestID)
}

func (h *Handler) handleChecklist(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, _ := middleware.GetPrincipal(r.Context())
	var payload checklistRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	if payload.TimekeepingEntered == nil && payload.CoverageArranged == nil {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "timekeepingEntered", Reason: "at least one checklist item is required"}})
		return
	}

	current, ok := h.loadActionable(w, r, p)
	if !ok {
		return
	}
	req, err := h.Service.MarkChecklist(r.Context(), current.ID, leave.ChecklistUpdate{
		TimekeepingEntered: payload.TimekeepingEntered,
		CoverageArranged:   payload.CoverageArranged,
	})
	if err != nil {
		h.failMutation(w, err, "checklist_failed", "failed to update checklist", requestID)
		return
	}
	h.record(r, audit.ActionRequestChecklist, req.ID, checklistState(current), checklistState(req))
	if current.Status == leave.StatusInProgress && req.Status == leave.StatusApproved {
		h.Metrics.Event("request.checklist_complete")
		h.notifyByID(r.Context(), notifications.EventChecklistComplete, req)
	}
	api.Success(w, req, requestID)
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload sweepRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
			return
		}
	}
	asOf := calendar.DateOf(time.Now().In(h.Location))
	if strings.TrimSpace(payload.AsOf) != "" {
		validator := shared.NewValidator()
		parsed, ok := validator.Date("asOf", payload.AsOf)
		if validator.Reject(w, requestID) || !ok {
			return
		}
		asOf = parsed
	}

	var completed int
	var err error
	if h.Jobs != nil {
		completed, err = h.Jobs.Sweep(r.Context(), asOf)
	} else {
		completed, err = h.Service.SweepCompleted(r.Context(), asOf)
	}
	if err != nil {
		slog.Warn("sweep failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "sweep_failed", "failed to sweep requests", requestID)
		return
	}
	h.record(r, audit.ActionRequestSweep, asOf.String(), nil, map[string]int{"completed": completed})
	api.Success(w, map[string]any{"asOf": asOf, "completed": completed}, requestID)
}

// loadVisible fetches the URL's request and hides it from managers whose
// listing scope would not include it.
func (h *Handler) loadVisible(w http.ResponseWriter, r *http.Request) (leave.Request, bool) {
	requestID := middleware.GetRequestID(r.Context())
	p, _ := middleware.GetPrincipal(r.Context())
	req, err := h.Service.Get(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		if errors.Is(err, leave.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "request not found", requestID)
			return leave.Request{}, false
		}
		slog.Warn("load request failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "request_get_failed", "failed to load request", requestID)
		return leave.Request{}, false
	}
	if !visibleTo(p, req) {
		api.Fail(w, http.StatusNotFound, "not_found", "request not found", requestID)
		return leave.Request{}, false
	}
	return req, true
}

// loadActionable is loadVisible plus the approval check for the principal.
func (h *Handler) loadActionable(w http.ResponseWriter, r *http.Request, p auth.Principal) (leave.Request, bool) {
	req, ok := h.loadVisible(w, r)
	if !ok {
		return leave.Request{}, false
	}
	if !staff.CanApproveRequest(p.Role, req.Position, req.ManagerTeam) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to act on this request", middleware.GetRequestID(r.Context()))
		return leave.Request{}, false
	}
	return req, true
}

func visibleTo(p auth.Principal, req leave.Request) bool {
	scope := staff.ScopeFor(p.Role)
	if len(scope.ManagerTeams) == 0 && len(scope.Positions) == 0 {
		return true
	}
	return slices.Contains(scope.ManagerTeams, req.ManagerTeam) || slices.Contains(scope.Positions, req.Position)
}

func (h *Handler) failMutation(w http.ResponseWriter, err error, code, message, requestID string) {
	switch {
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "request not found", requestID)
	case errors.Is(err, leave.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	default:
		slog.Warn(code, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func checklistState(req leave.Request) map[string]any {
	return map[string]any{
		"status":             req.Status.String(),
		"timekeepingEntered": req.TimekeepingEntered,
		"coverageArranged":   req.CoverageArranged,
	}
}

func (h *Handler) record(r *http.Request, action, entityID string, before, after any) {
	p, _ := middleware.GetPrincipal(r.Context())
	if err := h.Audit.Record(r.Context(), p.ManagerID, action, "pto_request", entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

func (h *Handler) notifyByID(ctx context.Context, event string, req leave.Request) {
	employee, err := h.Service.GetEmployee(ctx, req.EmployeeID)
	if err != nil {
		slog.Warn("load employee for notification failed", "employeeId", req.EmployeeID, "err", err)
		return
	}
	h.notify(ctx, event, req, employee)
}

func (h *Handler) notify(ctx context.Context, event string, req leave.Request, employee leave.Employee) {
	if h.Notify == nil {
		return
	}
	h.Notify.Notify(ctx, event, req, employee)
}
