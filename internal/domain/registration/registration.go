// Package registration queues employees who are not yet in the directory.
// A manager of the matching team approves the entry into a real employee
// record or turns it down.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ptotracker/internal/domain/leave"
	"ptotracker/internal/domain/staff"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

var (
	ErrNotFound       = errors.New("registration not found")
	ErrAlreadyPending = errors.New("a registration with this email is already pending")
	ErrAlreadyDecided = errors.New("registration has already been processed")
)

type Registration struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone,omitempty"`
	Team              string     `json:"team"`
	Position          string     `json:"position"`
	Notes             string     `json:"notes,omitempty"`
	RequestedPTOHours float64    `json:"requestedPtoHours"`
	Status            Status     `json:"status"`
	DenialReason      string     `json:"denialReason,omitempty"`
	DecidedBy         string     `json:"decidedBy,omitempty"`
	EmployeeID        string     `json:"employeeId,omitempty"`
	SubmittedAt       time.Time  `json:"submittedAt"`
	DecidedAt         *time.Time `json:"decidedAt,omitempty"`
}

// ManagerTeam is the team whose managers decide on the registration.
func (r Registration) ManagerTeam() string {
	return staff.ManagerTeamFor(r.Position, r.Team)
}

// Filter narrows a listing. Empty Teams means every team.
type Filter struct {
	Status Status
	Teams  []string
}

type Store interface {
	// Create fails with ErrAlreadyPending when the email already has a
	// pending registration.
	Create(ctx context.Context, reg *Registration) error
	Get(ctx context.Context, id string) (Registration, error)
	List(ctx context.Context, filter Filter) ([]Registration, error)
	// Decide stores a decision only if the registration is still pending,
	// returning ErrAlreadyDecided otherwise.
	Decide(ctx context.Context, reg Registration) error
	// Reopen puts an approved registration back to pending after the
	// employee record could not be created.
	Reopen(ctx context.Context, id string) error
	// LinkEmployee records the employee an approved registration became.
	LinkEmployee(ctx context.Context, id, employeeID string) error
}

// Directory is the slice of the leave service the queue needs.
type Directory interface {
	FindEmployeeByEmail(ctx context.Context, email string) (leave.Employee, error)
	CreateEmployee(ctx context.Context, employee leave.Employee) (leave.Employee, error)
}

type Service struct {
	Store     Store
	Directory Directory
	// Opening balances for approved registrations.
	PTOHours  float64
	SickHours float64
	Now       func() time.Time
}

func NewService(store Store, directory Directory, policy leave.RefreshPolicy) *Service {
	return &Service{
		Store:     store,
		Directory: directory,
		PTOHours:  policy.PTOHours,
		SickHours: policy.SickHours,
		Now:       time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

type Input struct {
	Name     string
	Email    string
	Phone    string
	Team     string
	Position string
	Notes    string
}

// Submit queues a registration. An email that already belongs to an
// employee gives leave.ErrDuplicateEmployee.
func (s *Service) Submit(ctx context.Context, in Input) (Registration, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.Directory.FindEmployeeByEmail(ctx, email); err == nil {
		return Registration{}, leave.ErrDuplicateEmployee
	} else if !errors.Is(err, leave.ErrNotFound) {
		return Registration{}, err
	}

	reg := Registration{
		Name:              strings.TrimSpace(in.Name),
		Email:             email,
		Phone:             staff.NormalizePhone(in.Phone),
		Team:              staff.ManagerTeamFor(strings.TrimSpace(in.Position), in.Team),
		Position:          strings.TrimSpace(in.Position),
		Notes:             strings.TrimSpace(in.Notes),
		RequestedPTOHours: s.PTOHours,
		Status:            StatusPending,
		SubmittedAt:       s.now(),
	}
	if err := s.Store.Create(ctx, &reg); err != nil {
		return Registration{}, err
	}
	slog.Info("employee registration queued", "registrationId", reg.ID, "team", reg.ManagerTeam())
	return reg, nil
}

func (s *Service) Get(ctx context.Context, id string) (Registration, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Registration, error) {
	return s.Store.List(ctx, filter)
}

// Approve claims a pending registration and creates the employee from it.
// If the employee cannot be created the registration goes back to pending.
func (s *Service) Approve(ctx context.Context, id, approverID string) (Registration, leave.Employee, error) {
	reg, err := s.Store.Get(ctx, id)
	if err != nil {
		return Registration{}, leave.Employee{}, err
	}
	if reg.Status != StatusPending {
		return reg, leave.Employee{}, ErrAlreadyDecided
	}

	now := s.now()
	reg.Status = StatusApproved
	reg.DecidedBy = approverID
	reg.DecidedAt = &now
	if err := s.Store.Decide(ctx, reg); err != nil {
		return Registration{}, leave.Employee{}, err
	}

	employee, err := s.Directory.CreateEmployee(ctx, leave.Employee{
		Name:     reg.Name,
		Email:    reg.Email,
		Phone:    reg.Phone,
		Team:     reg.Team,
		Position: reg.Position,
		Balance:  leave.Balance{PTOHours: reg.RequestedPTOHours, SickHours: s.SickHours},
	})
	if err != nil {
		if reopenErr := s.Store.Reopen(ctx, reg.ID); reopenErr != nil {
			slog.Warn("reopen registration failed", "registrationId", reg.ID, "err", reopenErr)
		}
		return Registration{}, leave.Employee{}, fmt.Errorf("create employee from registration %s: %w", reg.ID, err)
	}

	reg.EmployeeID = employee.ID
	if err := s.Store.LinkEmployee(ctx, reg.ID, employee.ID); err != nil {
		slog.Warn("link registration to employee failed", "registrationId", reg.ID, "err", err)
	}
	return reg, employee, nil
}

// Deny turns down a pending registration.
func (s *Service) Deny(ctx context.Context, id, reason, approverID string) (Registration, error) {
	reg, err := s.Store.Get(ctx, id)
	if err != nil {
		return Registration{}, err
	}
	if reg.Status != StatusPending {
		return reg, ErrAlreadyDecided
	}
	now := s.now()
	reg.Status = StatusDenied
	reg.DenialReason = strings.TrimSpace(reason)
	if reg.DenialReason == "" {
		reg.DenialReason = "No reason provided"
	}
	reg.DecidedBy = approverID
	reg.DecidedAt = &now
	if err := s.Store.Decide(ctx, reg); err != nil {
		return Registration{}, err
	}
	return reg, nil
}
