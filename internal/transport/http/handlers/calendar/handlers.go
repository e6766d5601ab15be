package calendarhandler

import (
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ptotracker/internal/domain/calendar"
	"ptotracker/internal/domain/leave"
	"ptotracker/internal/domain/staff"
	"ptotracker/internal/transport/http/api"
	"ptotracker/internal/transport/http/middleware"
	"ptotracker/internal/transport/http/shared"
)

type Handler struct {
	Calendar *calendar.Calendar
	Requests *leave.Service
	Now      func() time.Time
}

func NewHandler(cal *calendar.Calendar, requests *leave.Service) *Handler {
	if cal == nil {
		cal = calendar.Default
	}
	return &Handler{Calendar: cal, Requests: requests, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/calendar", func(r chi.Router) {
		r.Get("/holidays", h.handleHolidays)
		r.Get("/breakdown", h.handleBreakdown)
		r.Get("/business-days", h.handleBusinessDays)
		r.With(middleware.RequireManager).Get("/events", h.handleEvents)
	})
}

type businessDaysResponse struct {
	Start calendar.Date   `json:"start"`
	End   calendar.Date   `json:"end"`
	Count int             `json:"count"`
	Days  []calendar.Date `json:"days"`
}

// Event is one request rendered for the team calendar.
type Event struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Status      string  `json:"status"`
	Type        string  `json:"type"`
	IsCallOut   bool    `json:"isCallOut"`
	ManagerTeam string  `json:"managerTeam"`
	Hours       float64 `json:"hours"`
}

func (h *Handler) handleHolidays(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	year := h.Now().Year()
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1900 || parsed > 2200 {
			shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "year", Reason: "must be a year between 1900 and 2200"}})
			return
		}
		year = parsed
	}
	api.Success(w, h.Calendar.Holidays(year), requestID)
}

// handleBreakdown mirrors the string helpers: unreadable dates produce an
// empty breakdown instead of an error. Readable ranges are still capped.
func (h *Handler) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	start, end := strings.TrimSpace(q.Get("start")), strings.TrimSpace(q.Get("end"))
	if tooLong(start, end) {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "end", Reason: "date range is too long"}})
		return
	}
	api.Success(w, map[string]any{
		"breakdown": calendar.BreakdownFromStrings(start, end),
		"ptoDays":   calendar.PTODaysFromStrings(start, end),
	}, requestID)
}

func tooLong(start, end string) bool {
	s, err := calendar.ParseDate(start)
	if err != nil {
		return false
	}
	e, err := calendar.ParseDate(end)
	if err != nil {
		return false
	}
	_, err = calendar.CheckedSpan(s, e)
	return errors.Is(err, calendar.ErrRangeTooLong)
}

func (h *Handler) handleBusinessDays(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	validator := shared.NewValidator()
	start, _ := validator.Date("start", q.Get("start"))
	end, _ := validator.Date("end", q.Get("end"))
	if validator.Reject(w, requestID) {
		return
	}
	count, err := h.Calendar.CountBusinessDaysChecked(start, end)
	if err != nil {
		if errors.Is(err, calendar.ErrRangeTooLong) {
			shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "end", Reason: "date range is too long"}})
			return
		}
		api.Fail(w, http.StatusInternalServerError, "business_days_failed", "failed to count business days", requestID)
		return
	}
	api.Success(w, businessDaysResponse{
		Start: start,
		End:   end,
		Count: count,
		Days:  h.Calendar.ListBusinessDays(start, end),
	}, requestID)
}

// handleEvents lists the live requests in the caller's scope, as JSON or
// as CSV with ?format=csv.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, _ := middleware.GetPrincipal(r.Context())
	q := r.URL.Query()

	scope := staff.ScopeFor(p.Role)
	filter := leave.Filter{
		Statuses:     []leave.Status{leave.StatusPending, leave.StatusInProgress, leave.StatusApproved},
		ManagerTeams: scope.ManagerTeams,
		Positions:    scope.Positions,
		Limit:        1000,
	}
	validator := shared.NewValidator()
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		validator.Date("from", raw)
		filter.From = raw
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		validator.Date("to", raw)
		filter.To = raw
	}
	if validator.Reject(w, requestID) {
		return
	}

	result, err := h.Requests.List(r.Context(), filter)
	if err != nil {
		slog.Warn("list calendar events failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "calendar_failed", "failed to load calendar", requestID)
		return
	}
	events := make([]Event, 0, len(result.Requests))
	for _, req := range result.Requests {
		events = append(events, toEvent(req))
	}

	if strings.EqualFold(q.Get("format"), "csv") {
		writeEventsCSV(w, events)
		return
	}
	api.Success(w, events, requestID)
}

func toEvent(req leave.Request) Event {
	title := req.EmployeeName
	if req.IsCallOut {
		title += " (call-out)"
	} else if req.PartialDay {
		title += " (partial)"
	}
	return Event{
		ID:          req.ID,
		Title:       title,
		Start:       req.StartDate,
		End:         req.EndDate,
		Status:      req.Status.String(),
		Type:        string(req.Type),
		IsCallOut:   req.IsCallOut,
		ManagerTeam: req.ManagerTeam,
		Hours:       req.DurationHours,
	}
}

func writeEventsCSV(w http.ResponseWriter, events []Event) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=\"pto-calendar.csv\"")
	w.WriteHeader(http.StatusOK)
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"id", "employee", "start", "end", "status", "type", "call_out", "manager_team", "hours"})
	for _, ev := range events {
		_ = writer.Write([]string{
			ev.ID,
			ev.Title,
			ev.Start,
			ev.End,
			ev.Status,
			ev.Type,
			strconv.FormatBool(ev.IsCallOut),
			ev.ManagerTeam,
			strconv.FormatFloat(ev.Hours, 'f', 2, 64),
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("write calendar csv failed", "err", err)
	}
}
