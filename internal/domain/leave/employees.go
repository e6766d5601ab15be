package leave

import (
	"context"
	"math"
	"strconv"
	"strings"

	"ptotracker/internal/domain/calendar"
	"ptotracker/internal/domain/staff"
)

// EmployeeUpdate carries a manager's corrections to an employee record. Nil
// fields are left unchanged.
type EmployeeUpdate struct {
	Name        *string
	Email       *string
	Phone       *string
	Team        *string
	Position    *string
	PTOHours    *float64
	SickHours   *float64
	RefreshDate *calendar.Date
}

func (u EmployeeUpdate) apply(employee *Employee) {
	if u.Name != nil {
		employee.Name = strings.TrimSpace(*u.Name)
	}
	if u.Email != nil {
		employee.Email = strings.ToLower(strings.TrimSpace(*u.Email))
	}
	if u.Phone != nil {
		employee.Phone = staff.NormalizePhone(*u.Phone)
	}
	if u.Team != nil {
		employee.Team = strings.ToLower(strings.TrimSpace(*u.Team))
	}
	if u.Position != nil {
		employee.Position = strings.TrimSpace(*u.Position)
	}
	if u.PTOHours != nil {
		employee.Balance.PTOHours = round2(math.Max(0, *u.PTOHours))
	}
	if u.SickHours != nil {
		employee.Balance.SickHours = round2(math.Max(0, *u.SickHours))
	}
	if u.RefreshDate != nil {
		employee.RefreshDate = *u.RefreshDate
	}
}

// FindEmployeeByEmail matches case-insensitively and includes deactivated
// employees.
func (s *Service) FindEmployeeByEmail(ctx context.Context, email string) (Employee, error) {
	return s.Store.FindEmployeeByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// UpdateEmployee applies an edit and returns the record before and after it.
// Requests already submitted keep the position and manager team they were
// routed with.
func (s *Service) UpdateEmployee(ctx context.Context, id string, update EmployeeUpdate) (Employee, Employee, error) {
	var before, after Employee
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		employee, err := tx.EmployeeForUpdate(ctx, id)
		if err != nil {
			return err
		}
		before = employee
		update.apply(&employee)
		if err := tx.UpdateEmployee(ctx, employee); err != nil {
			return err
		}
		after = employee
		return nil
	})
	if err != nil {
		return Employee{}, Employee{}, err
	}
	return before, after, nil
}

// DeactivateEmployee soft-deletes an employee. Their requests stay on file
// and they can no longer submit or call out. The bool is false when the
// employee was already inactive.
func (s *Service) DeactivateEmployee(ctx context.Context, id string) (Employee, bool, error) {
	var (
		out     Employee
		changed bool
	)
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		employee, err := tx.EmployeeForUpdate(ctx, id)
		if err != nil {
			return err
		}
		out = employee
		if !employee.Active() {
			return nil
		}
		now := s.now()
		employee.DeactivatedAt = &now
		if err := tx.UpdateEmployee(ctx, employee); err != nil {
			return err
		}
		out, changed = employee, true
		return nil
	})
	if err != nil {
		return Employee{}, false, err
	}
	return out, changed, nil
}

type HistoryStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Approved   int `json:"approved"`
	Denied     int `json:"denied"`
	Completed  int `json:"completed"`
	CallOuts   int `json:"callOuts"`
	// PTODaysUsed and SickDaysUsed cover requests whose hours were deducted.
	PTODaysUsed      float64 `json:"ptoDaysUsed"`
	SickDaysUsed     float64 `json:"sickDaysUsed"`
	DaysUntilRefresh *int    `json:"daysUntilRefresh"`
	RefreshStatus    string  `json:"refreshStatus"`
}

type History struct {
	Employee Employee     `json:"employee"`
	Requests []Request    `json:"requests"`
	Stats    HistoryStats `json:"stats"`
}

// EmployeeHistory lists an employee's requests, newest first, with totals
// per status and the time left until their next refresh.
func (s *Service) EmployeeHistory(ctx context.Context, id string, today calendar.Date) (History, error) {
	employee, err := s.Store.GetEmployee(ctx, id)
	if err != nil {
		return History{}, err
	}
	result, err := s.Store.ListRequests(ctx, Filter{EmployeeID: id})
	if err != nil {
		return History{}, err
	}
	return History{
		Employee: employee,
		Requests: result.Requests,
		Stats:    historyStats(employee, result.Requests, today),
	}, nil
}

func historyStats(employee Employee, requests []Request, today calendar.Date) HistoryStats {
	stats := HistoryStats{Total: len(requests), RefreshStatus: "not set"}
	var ptoHours, sickHours float64
	for _, req := range requests {
		switch req.Status {
		case StatusPending:
			stats.Pending++
		case StatusInProgress:
			stats.InProgress++
		case StatusApproved:
			stats.Approved++
		case StatusDenied:
			stats.Denied++
		case StatusCompleted:
			stats.Completed++
		}
		if req.IsCallOut {
			stats.CallOuts++
		}
		if !deducted(req.Status) {
			continue
		}
		if req.IsCallOut {
			sickHours += req.DurationHours
		} else {
			ptoHours += req.DurationHours
		}
	}
	stats.PTODaysUsed = math.Round(ptoHours/HoursPerDay*10) / 10
	stats.SickDaysUsed = math.Round(sickHours/HoursPerDay*10) / 10

	if !employee.RefreshDate.IsZero() {
		days := calendar.DaysBetween(today, employee.RefreshDate)
		stats.DaysUntilRefresh = &days
		switch {
		case days > 0:
			stats.RefreshStatus = "due in " + strconv.Itoa(days) + " days"
		case days == 0:
			stats.RefreshStatus = "due today"
		default:
			stats.RefreshStatus = strconv.Itoa(-days) + " days overdue"
		}
	}
	return stats
}

// deducted reports whether a request in status has already been charged to
// a ledger.
func deducted(status Status) bool {
	return status == StatusInProgress || status == StatusApproved || status == StatusCompleted
}
