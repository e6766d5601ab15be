package leave

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ptotracker/internal/domain/calendar"
	"ptotracker/internal/domain/staff"
)

// Service owns status transitions and the balance side effects that go with
// them. It performs no authorization.
type Service struct {
	Store    Store
	Calendar *calendar.Calendar
	Now      func() time.Time
}

func NewService(store Store, cal *calendar.Calendar) *Service {
	if cal == nil {
		cal = calendar.Default
	}
	return &Service{Store: store, Calendar: cal, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

type SubmitInput struct {
	EmployeeID string
	StartDate  string
	EndDate    string
	Type       LeaveType
	PartialDay bool
	StartTime  string
	EndTime    string
	Reason     string
	IsCallOut  bool
}

func (in SubmitInput) durationInput() DurationInput {
	return DurationInput{
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		PartialDay: in.PartialDay,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
	}
}

// Submit creates a request. Call-outs are approved on creation and their
// duration comes straight off the sick ledger.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Request, error) {
	duration := ComputeDuration(s.Calendar, in.durationInput())
	now := s.now()

	req := Request{
		EmployeeID:    in.EmployeeID,
		StartDate:     strings.TrimSpace(in.StartDate),
		EndDate:       strings.TrimSpace(in.EndDate),
		Type:          in.Type,
		PartialDay:    in.PartialDay,
		Reason:        in.Reason,
		Status:        StatusPending,
		IsCallOut:     in.IsCallOut,
		DurationHours: duration.Hours,
		DurationTier:  duration.Tier,
		SubmittedAt:   now,
		UpdatedAt:     now,
	}
	if in.PartialDay {
		req.StartTime = in.StartTime
		req.EndTime = in.EndTime
	}
	if req.Type == "" {
		req.Type = TypeVacation
	}
	if in.IsCallOut {
		req.Type = TypeCallOut
		req.Status = StatusApproved
		req.ApprovedAt = &now
	}

	err := s.Store.WithTx(ctx, func(tx Tx) error {
		employee, err := tx.EmployeeForUpdate(ctx, in.EmployeeID)
		if err != nil {
			return fmt.Errorf("load employee %s: %w", in.EmployeeID, err)
		}
		if !employee.Active() {
			return ErrInactiveEmployee
		}
		req.EmployeeName = employee.Name
		req.Position = employee.Position
		req.ManagerTeam = staff.ManagerTeamFor(employee.Position, employee.Team)

		if in.IsCallOut {
			employee.Deduct(LedgerSick, req.DurationHours)
			if err := tx.UpdateEmployeeBalance(ctx, employee); err != nil {
				return err
			}
		}
		return tx.CreateRequest(ctx, &req)
	})
	if err != nil {
		return Request{}, err
	}
	return req, nil
}

// Approve acts only on pending requests. A regular request moves to
// in_progress and waits on the checklist; a call-out skips the checklist and
// becomes approved. Either way the duration is deducted once, from the sick
// ledger for call-outs and from PTO otherwise. The bool is false, with no
// changes made, when the request was not pending.
func (s *Service) Approve(ctx context.Context, id, approverID string) (Request, bool, error) {
	var out Request
	var applied bool
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		req, err := tx.RequestForUpdate(ctx, id)
		if err != nil {
			return err
		}
		out = req
		if req.Status != StatusPending {
			return nil
		}

		next := StatusInProgress
		if req.IsCallOut {
			next = StatusApproved
		}
		now := s.now()
		if err := transition(&req, next, now); err != nil {
			return err
		}
		req.DecidedBy = approverID

		employee, err := tx.EmployeeForUpdate(ctx, req.EmployeeID)
		if err != nil {
			return fmt.Errorf("load employee %s: %w", req.EmployeeID, err)
		}
		employee.Deduct(LedgerFor(req.IsCallOut), req.DurationHours)
		if err := tx.UpdateEmployeeBalance(ctx, employee); err != nil {
			return err
		}
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		out = req
		applied = true
		return nil
	})
	if err != nil {
		return Request{}, false, err
	}
	return out, applied, nil
}

// Deny acts only on pending requests and never touches balances.
func (s *Service) Deny(ctx context.Context, id, reason, approverID string) (Request, bool, error) {
	var out Request
	var applied bool
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		req, err := tx.RequestForUpdate(ctx, id)
		if err != nil {
			return err
		}
		out = req
		if req.Status != StatusPending {
			return nil
		}
		if err := transition(&req, StatusDenied, s.now()); err != nil {
			return err
		}
		req.DenialReason = strings.TrimSpace(reason)
		req.DecidedBy = approverID
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		out = req
		applied = true
		return nil
	})
	if err != nil {
		return Request{}, false, err
	}
	return out, applied, nil
}

// ChecklistUpdate sets the flags that are non-nil.
type ChecklistUpdate struct {
	TimekeepingEntered *bool
	CoverageArranged   *bool
}

// MarkChecklist records checklist progress. Once both items are done an
// in_progress request becomes approved.
func (s *Service) MarkChecklist(ctx context.Context, id string, update ChecklistUpdate) (Request, error) {
	var out Request
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		req, err := tx.RequestForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Status.Terminal() {
			return fmt.Errorf("checklist on %s request: %w", req.Status, ErrInvalidTransition)
		}
		if update.TimekeepingEntered != nil {
			req.TimekeepingEntered = *update.TimekeepingEntered
		}
		if update.CoverageArranged != nil {
			req.CoverageArranged = *update.CoverageArranged
		}
		now := s.now()
		req.UpdatedAt = now
		if req.Status == StatusInProgress && req.ChecklistComplete() {
			if err := transition(&req, StatusApproved, now); err != nil {
				return err
			}
		}
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return Request{}, err
	}
	return out, nil
}

// SweepCompleted closes approved requests whose end date is before asOf and
// returns how many it closed.
func (s *Service) SweepCompleted(ctx context.Context, asOf calendar.Date) (int, error) {
	completed := 0
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		completed = 0
		requests, err := tx.ApprovedRequestsForUpdate(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		for _, req := range requests {
			end, err := calendar.ParseDate(req.EndDate)
			if err != nil {
				slog.Warn("sweep skipped request with unreadable end date", "requestId", req.ID, "endDate", req.EndDate)
				continue
			}
			if !end.Before(asOf) {
				continue
			}
			if err := transition(&req, StatusCompleted, now); err != nil {
				return err
			}
			if err := tx.UpdateRequest(ctx, req); err != nil {
				return err
			}
			completed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return completed, nil
}

func (s *Service) Get(ctx context.Context, id string) (Request, error) {
	return s.Store.GetRequest(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) (RequestListResult, error) {
	return s.Store.ListRequests(ctx, filter)
}

// Breakdown classifies the days a request spans. Unreadable dates give an
// empty breakdown.
func (s *Service) Breakdown(req Request) calendar.Breakdown {
	start, err := calendar.ParseDate(req.StartDate)
	if err != nil {
		return calendar.BreakdownFromStrings("", "")
	}
	end, err := calendar.ParseDate(req.EndDate)
	if err != nil {
		return calendar.BreakdownFromStrings("", "")
	}
	return s.Calendar.Breakdown(start, end)
}

func transition(req *Request, to Status, now time.Time) error {
	if !req.Status.CanTransition(to) {
		return fmt.Errorf("%s -> %s: %w", req.Status, to, ErrInvalidTransition)
	}
	req.Status = to
	req.UpdatedAt = now
	switch to {
	case StatusApproved:
		req.ApprovedAt = &now
	case StatusCompleted:
		req.CompletedAt = &now
	}
	return nil
}

func (s *Service) GetEmployee(ctx context.Context, id string) (Employee, error) {
	return s.Store.GetEmployee(ctx, id)
}

// ListEmployees returns active employees, or everyone when includeInactive
// is set.
func (s *Service) ListEmployees(ctx context.Context, includeInactive bool) ([]Employee, error) {
	employees, err := s.Store.ListEmployees(ctx)
	if err != nil || includeInactive {
		return employees, err
	}
	active := employees[:0]
	for _, employee := range employees {
		if employee.Active() {
			active = append(active, employee)
		}
	}
	return active, nil
}

// CreateEmployee stores a new team member with the given opening balances.
// A zero refresh date is set to a year after today.
func (s *Service) CreateEmployee(ctx context.Context, employee Employee) (Employee, error) {
	employee.Name = strings.TrimSpace(employee.Name)
	employee.Email = strings.ToLower(strings.TrimSpace(employee.Email))
	employee.Phone = staff.NormalizePhone(employee.Phone)
	employee.Team = strings.ToLower(strings.TrimSpace(employee.Team))
	now := s.now()
	if employee.RefreshDate.IsZero() {
		today := calendar.DateOf(now)
		employee.RefreshDate = calendar.NewDate(today.Year+1, today.Month, clampDay(today.Year+1, today.Month, today.Day))
	}
	employee.CreatedAt = now
	if err := s.Store.CreateEmployee(ctx, &employee); err != nil {
		return Employee{}, err
	}
	return employee, nil
}

// Balances returns the current ledgers of one employee.
func (s *Service) Balances(ctx context.Context, employeeID string) (Balance, error) {
	employee, err := s.Store.GetEmployee(ctx, employeeID)
	if err != nil {
		return Balance{}, err
	}
	return employee.Balance, nil
}
