package leave

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"ptotracker/internal/domain/calendar"
)

// HoursPerDay converts whole leave days to ledger hours.
const HoursPerDay = 7.5

type Status int

const (
	StatusPending Status = iota + 1
	StatusInProgress
	StatusApproved
	StatusDenied
	StatusCompleted
)

var statusNames = map[Status]string{
	StatusPending:    "pending",
	StatusInProgress: "in_progress",
	StatusApproved:   "approved",
	StatusDenied:     "denied",
	StatusCompleted:  "completed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func ParseStatus(value string) (Status, error) {
	for status, name := range statusNames {
		if name == value {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", value)
}

func (s Status) Terminal() bool {
	return s == StatusDenied || s == StatusCompleted
}

// CanTransition is the full transition table.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusInProgress || to == StatusApproved || to == StatusDenied
	case StatusInProgress:
		return to == StatusApproved
	case StatusApproved:
		return to == StatusCompleted
	case StatusDenied, StatusCompleted:
		return false
	default:
		return false
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type LeaveType string

const (
	TypeVacation LeaveType = "vacation"
	TypePersonal LeaveType = "personal"
	TypeSick     LeaveType = "sick"
	TypeCallOut  LeaveType = "call_out"
)

var LeaveTypes = []LeaveType{TypeVacation, TypePersonal, TypeSick, TypeCallOut}

func (t LeaveType) Valid() bool {
	switch t {
	case TypeVacation, TypePersonal, TypeSick, TypeCallOut:
		return true
	default:
		return false
	}
}

// Ledger selects one of the two balances an employee carries.
type Ledger int

const (
	LedgerPTO Ledger = iota
	LedgerSick
)

func (l Ledger) String() string {
	if l == LedgerSick {
		return "sick"
	}
	return "pto"
}

// LedgerFor returns the ledger an approval draws from.
func LedgerFor(isCallOut bool) Ledger {
	if isCallOut {
		return LedgerSick
	}
	return LedgerPTO
}

type Balance struct {
	PTOHours  float64 `json:"ptoHours"`
	SickHours float64 `json:"sickHours"`
}

func (b Balance) PTODays() float64 {
	return math.Round(b.PTOHours/HoursPerDay*10) / 10
}

func (b Balance) SickDays() float64 {
	return math.Round(b.SickHours/HoursPerDay*10) / 10
}

type Employee struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Phone       string        `json:"phone,omitempty"`
	Team        string        `json:"team"`
	Position    string        `json:"position"`
	Balance     Balance       `json:"balance"`
	RefreshDate calendar.Date `json:"refreshDate"`
	CreatedAt   time.Time     `json:"createdAt"`
	// DeactivatedAt marks a soft-deleted employee. Their history stays.
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty"`
}

func (e Employee) Active() bool {
	return e.DeactivatedAt == nil
}

// Deduct subtracts hours from one ledger, flooring at zero, and returns the
// new ledger value.
func (e *Employee) Deduct(ledger Ledger, hours float64) float64 {
	target := &e.Balance.PTOHours
	if ledger == LedgerSick {
		target = &e.Balance.SickHours
	}
	if hours > 0 {
		*target = round2(math.Max(0, *target-hours))
	}
	return *target
}

// Request is a leave request. Dates are kept as submitted (YYYY-MM-DD) so that
// malformed historical rows still load.
type Request struct {
	ID                 string       `json:"id"`
	EmployeeID         string       `json:"employeeId"`
	EmployeeName       string       `json:"employeeName,omitempty"`
	Position           string       `json:"position,omitempty"`
	ManagerTeam        string       `json:"managerTeam"`
	StartDate          string       `json:"startDate"`
	EndDate            string       `json:"endDate"`
	Type               LeaveType    `json:"type"`
	PartialDay         bool         `json:"partialDay"`
	StartTime          string       `json:"startTime,omitempty"`
	EndTime            string       `json:"endTime,omitempty"`
	Reason             string       `json:"reason,omitempty"`
	Status             Status       `json:"status"`
	DenialReason       string       `json:"denialReason,omitempty"`
	TimekeepingEntered bool         `json:"timekeepingEntered"`
	CoverageArranged   bool         `json:"coverageArranged"`
	IsCallOut          bool         `json:"isCallOut"`
	DurationHours      float64      `json:"durationHours"`
	DurationTier       DurationTier `json:"durationTier"`
	DecidedBy          string       `json:"decidedBy,omitempty"`
	SubmittedAt        time.Time    `json:"submittedAt"`
	ApprovedAt         *time.Time   `json:"approvedAt,omitempty"`
	CompletedAt        *time.Time   `json:"completedAt,omitempty"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

func (r Request) DurationDays() float64 {
	return round2(r.DurationHours / HoursPerDay)
}

// ChecklistComplete reports whether both manual confirmations are in.
func (r Request) ChecklistComplete() bool {
	return r.TimekeepingEntered && r.CoverageArranged
}

// Filter narrows request listings. Zero values match everything.
type Filter struct {
	Statuses     []Status
	ManagerTeams []string
	Positions    []string
	EmployeeID   string
	CallOut      *bool
	From         string
	To           string
	Limit        int
	Offset       int
}

type RequestListResult struct {
	Requests []Request
	Total    int
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
