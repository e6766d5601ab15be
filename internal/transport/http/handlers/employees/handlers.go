package employeehandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ptotracker/internal/domain/audit"
	"ptotracker/internal/domain/auth"
	"ptotracker/internal/domain/calendar"
	"ptotracker/internal/domain/leave"
	"ptotracker/internal/domain/staff"
	"ptotracker/internal/platform/metrics"
	"ptotracker/internal/transport/http/api"
	"ptotracker/internal/transport/http/middleware"
	"ptotracker/internal/transport/http/shared"
)

// Refresher is satisfied by *jobs.Service.
type Refresher interface {
	Refresh(ctx context.Context, asOf calendar.Date) (leave.RefreshSummary, error)
	RefreshPolicy() leave.RefreshPolicy
}

type Handler struct {
	Service  *leave.Service
	Jobs     Refresher
	Audit    *audit.Service
	Metrics  *metrics.Collector
	Location *time.Location
}

func NewHandler(service *leave.Service, jobs Refresher, auditSvc *audit.Service, collector *metrics.Collector, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{Service: service, Jobs: jobs, Audit: auditSvc, Metrics: collector, Location: loc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/positions", h.handlePositions)
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequireManager).Get("/", h.handleList)
		r.With(middleware.RequireRole(staff.RoleSuperadmin, staff.RoleAdmin, staff.RoleClinical)).Post("/", h.handleCreate)
		r.With(middleware.RequireRole(staff.RoleSuperadmin)).Post("/refresh", h.handleRefreshDue)
		r.With(middleware.RequireManager).Get("/{employeeID}", h.handleGet)
		r.With(middleware.RequireManager).Patch("/{employeeID}", h.handleUpdate)
		r.With(middleware.RequireRole(staff.RoleSuperadmin, staff.RoleAdmin, staff.RoleClinical)).Delete("/{employeeID}", h.handleDeactivate)
		r.With(middleware.RequireManager).Get("/{employeeID}/history", h.handleHistory)
		r.With(middleware.RequireRole(staff.RoleSuperadmin)).Post("/{employeeID}/balance/refresh", h.handleRefreshOne)
	})
}

type createRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Email       string   `json:"email" validate:"required,email"`
	Phone       string   `json:"phone"`
	Team        string   `json:"team" validate:"omitempty,oneof=admin clinical"`
	Position    string   `json:"position" validate:"required"`
	PTOHours    *float64 `json:"ptoHours" validate:"omitempty,gte=0"`
	SickHours   *float64 `json:"sickHours" validate:"omitempty,gte=0"`
	RefreshDate string   `json:"refreshDate"`
}

type updateRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Email       *string  `json:"email" validate:"omitempty,email"`
	Phone       *string  `json:"phone"`
	Team        *string  `json:"team" validate:"omitempty,oneof=admin clinical"`
	Position    *string  `json:"position" validate:"omitempty,min=1"`
	PTOHours    *float64 `json:"ptoHours" validate:"omitempty,gte=0"`
	SickHours   *float64 `json:"sickHours" validate:"omitempty,gte=0"`
	RefreshDate *string  `json:"refreshDate"`
}

type refreshRequest struct {
	AsOf      string   `json:"asOf"`
	PTOHours  *float64 `json:"ptoHours" validate:"omitempty,gte=0"`
	SickHours *float64 `json:"sickHours" validate:"omitempty,gte=0"`
}

type employeeResponse struct {
	leave.Employee
	PTODays     float64 `json:"ptoDays"`
	SickDays    float64 `json:"sickDays"`
	ManagerTeam string  `json:"managerTeam"`
}

func toResponse(e leave.Employee) employeeResponse {
	return employeeResponse{
		Employee:    e,
		PTODays:     e.Balance.PTODays(),
		SickDays:    e.Balance.SickDays(),
		ManagerTeam: staff.ManagerTeamFor(e.Position, e.Team),
	}
}

func (h *Handler) handlePositions(w http.ResponseWriter, r *http.Request) {
	api.Success(w, staff.AllPositions(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, _ := middleware.GetPrincipal(r.Context())
	includeInactive := r.URL.Query().Get("includeInactive") == "true"
	employees, err := h.Service.ListEmployees(r.Context(), includeInactive)
	if err != nil {
		slog.Warn("list employees failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", requestID)
		return
	}
	scope := staff.ScopeFor(p.Role)
	out := make([]employeeResponse, 0, len(employees))
	for _, e := range employees {
		resp := toResponse(e)
		if !inScope(scope, resp.ManagerTeam, e.Position) {
			continue
		}
		out = append(out, resp)
	}
	api.Success(w, out, requestID)
}

func inScope(scope staff.Scope, managerTeam, position string) bool {
	if len(scope.ManagerTeams) == 0 && len(scope.Positions) == 0 {
		return true
	}
	for _, team := range scope.ManagerTeams {
		if team == managerTeam {
			return true
		}
	}
	for _, p := range scope.Positions {
		if p == position {
			return true
		}
	}
	return false
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload createRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	var refresh calendar.Date
	if strings.TrimSpace(payload.RefreshDate) != "" {
		refresh, _ = validator.Date("refreshDate", payload.RefreshDate)
	}
	if payload.Phone != "" && len(staff.NormalizePhone(payload.Phone)) < 10 {
		validator.Add("phone", "must contain at least 10 digits")
	}
	if validator.Reject(w, requestID) {
		return
	}

	policy := leave.DefaultRefreshPolicy
	if h.Jobs != nil {
		policy = h.Jobs.RefreshPolicy()
	}
	balance := leave.Balance{PTOHours: policy.PTOHours, SickHours: policy.SickHours}
	if payload.PTOHours != nil {
		balance.PTOHours = *payload.PTOHours
	}
	if payload.SickHours != nil {
		balance.SickHours = *payload.SickHours
	}

	employee, err := h.Service.CreateEmployee(r.Context(), leave.Employee{
		Name:        payload.Name,
		Email:       payload.Email,
		Phone:       payload.Phone,
		Team:        payload.Team,
		Position:    strings.TrimSpace(payload.Position),
		Balance:     balance,
		RefreshDate: refresh,
	})
	if err != nil {
		if errors.Is(err, leave.ErrDuplicateEmployee) {
			api.Fail(w, http.StatusConflict, "employee_exists", "an employee with this email already exists", requestID)
			return
		}
		slog.Warn("create employee failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", requestID)
		return
	}
	h.Metrics.Event("employee.created")
	h.record(r, audit.ActionEmployeeCreate, employee.ID, nil, employee)
	api.Created(w, toResponse(employee), requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	api.Success(w, toResponse(employee), middleware.GetRequestID(r.Context()))
}

// loadVisible answers 404 for employees outside the caller's scope.
func (h *Handler) loadVisible(w http.ResponseWriter, r *http.Request) (leave.Employee, bool) {
	requestID := middleware.GetRequestID(r.Context())
	p, _ := middleware.GetPrincipal(r.Context())
	employee, err := h.Service.GetEmployee(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		if errors.Is(err, leave.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
			return leave.Employee{}, false
		}
		slog.Warn("get employee failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "employee_get_failed", "failed to load employee", requestID)
		return leave.Employee{}, false
	}
	if !inScope(staff.ScopeFor(p.Role), staff.ManagerTeamFor(employee.Position, employee.Team), employee.Position) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
		return leave.Employee{}, false
	}
	return employee, true
}

// canManage mirrors request approval: a manager may edit the people whose
// requests they decide on.
func canManage(p auth.Principal, position, team string) bool {
	return staff.CanApproveRequest(p.Role, position, staff.ManagerTeamFor(position, team))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, _ := middleware.GetPrincipal(r.Context())
	var payload updateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	update := leave.EmployeeUpdate{
		Name:      payload.Name,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Team:      payload.Team,
		Position:  payload.Position,
		PTOHours:  payload.PTOHours,
		SickHours: payload.SickHours,
	}
	if payload.RefreshDate != nil {
		if refresh, ok := validator.Date("refreshDate", *payload.RefreshDate); ok {
			update.RefreshDate = &refresh
		}
	}
	if payload.Phone != nil && *payload.Phone != "" && len(staff.NormalizePhone(*payload.Phone)) < 10 {
		validator.Add("phone", "must contain at least 10 digits")
	}
	if validator.Reject(w, requestID) {
		return
	}

	current, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	position, team := current.Position, current.Team
	if payload.Position != nil {
		position = strings.TrimSpace(*payload.Position)
	}
	if payload.Team != nil {
		team = *payload.Team
	}
	if !canManage(p, current.Position, current.Team) || !canManage(p, position, team) {
		api.Fail(w, http.StatusForbidden, "forbidden", "you cannot edit this employee", requestID)
		return
	}

	before, after, err := h.Service.UpdateEmployee(r.Context(), current.ID, update)
	if err != nil {
		switch {
		case errors.Is(err, leave.ErrNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
		case errors.Is(err, leave.ErrDuplicateEmployee):
			api.Fail(w, http.StatusConflict, "employee_exists", "an employee with this email already exists", requestID)
		default:
			slog.Warn("update employee failed", "err", err)
			api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to update employee", requestID)
		}
		return
	}
	h.Metrics.Event("employee.updated")
	h.record(r, audit.ActionEmployeeUpdate, after.ID, before, after)
	api.Success(w, toResponse(after), requestID)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, _ := middleware.GetPrincipal(r.Context())
	current, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	if !canManage(p, current.Position, current.Team) {
		api.Fail(w, http.StatusForbidden, "forbidden", "you cannot remove this employee", requestID)
		return
	}
	employee, changed, err := h.Service.DeactivateEmployee(r.Context(), current.ID)
	if err != nil {
		if errors.Is(err, leave.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
			return
		}
		slog.Warn("deactivate employee failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "employee_delete_failed", "failed to remove employee", requestID)
		return
	}
	if changed {
		h.Metrics.Event("employee.deactivated")
		h.record(r, audit.ActionEmployeeDelete, employee.ID, current, employee)
	}
	api.Success(w, toResponse(employee), requestID)
}

type historyResponse struct {
	Employee employeeResponse   `json:"employee"`
	Requests []leave.Request    `json:"requests"`
	Stats    leave.HistoryStats `json:"stats"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	current, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	today := calendar.DateOf(time.Now().In(h.Location))
	history, err := h.Service.EmployeeHistory(r.Context(), current.ID, today)
	if err != nil {
		slog.Warn("employee history failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "employee_history_failed", "failed to load history", requestID)
		return
	}
	api.Success(w, historyResponse{
		Employee: toResponse(history.Employee),
		Requests: history.Requests,
		Stats:    history.Stats,
	}, requestID)
}

func (h *Handler) handleRefreshOne(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	payload, asOf, ok := h.decodeRefresh(w, r, requestID)
	if !ok {
		return
	}
	policy := leave.DefaultRefreshPolicy
	if h.Jobs != nil {
		policy = h.Jobs.RefreshPolicy()
	}
	if payload.PTOHours != nil {
		policy.PTOHours = *payload.PTOHours
	}
	if payload.SickHours != nil {
		policy.SickHours = *payload.SickHours
	}

	before, _ := h.Service.Balances(r.Context(), chi.URLParam(r, "employeeID"))
	employee, err := h.Service.RefreshBalance(r.Context(), chi.URLParam(r, "employeeID"), policy, asOf)
	if err != nil {
		if errors.Is(err, leave.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
			return
		}
		slog.Warn("refresh balance failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "refresh_failed", "failed to refresh balance", requestID)
		return
	}
	h.Metrics.Event("balance.refreshed")
	h.record(r, audit.ActionBalanceRefresh, employee.ID, before, employee.Balance)
	api.Success(w, toResponse(employee), requestID)
}

func (h *Handler) handleRefreshDue(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	_, asOf, ok := h.decodeRefresh(w, r, requestID)
	if !ok {
		return
	}
	var (
		summary leave.RefreshSummary
		err     error
	)
	if h.Jobs != nil {
		summary, err = h.Jobs.Refresh(r.Context(), asOf)
	} else {
		summary, err = h.Service.ApplyRefreshes(r.Context(), leave.DefaultRefreshPolicy, asOf)
	}
	if err != nil {
		slog.Warn("refresh due balances failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "refresh_failed", "failed to refresh balances", requestID)
		return
	}
	h.record(r, audit.ActionBalanceRefresh, asOf.String(), nil, summary)
	api.Success(w, summary, requestID)
}

func (h *Handler) decodeRefresh(w http.ResponseWriter, r *http.Request, requestID string) (refreshRequest, calendar.Date, bool) {
	var payload refreshRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
			return refreshRequest{}, calendar.Date{}, false
		}
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	asOf := calendar.DateOf(time.Now().In(h.Location))
	if strings.TrimSpace(payload.AsOf) != "" {
		asOf, _ = validator.Date("asOf", payload.AsOf)
	}
	if validator.Reject(w, requestID) {
		return refreshRequest{}, calendar.Date{}, false
	}
	return payload, asOf, true
}

func (h *Handler) record(r *http.Request, action, entityID string, before, after any) {
	p, _ := middleware.GetPrincipal(r.Context())
	if err := h.Audit.Record(r.Context(), p.ManagerID, action, "employee", entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}
