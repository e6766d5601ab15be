package leave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ptotracker/internal/domain/calendar"
)

// RefreshPolicy holds the balances an employee is reset to each year.
type RefreshPolicy struct {
	PTOHours  float64
	SickHours float64
}

// DefaultRefreshPolicy matches the 60 hour allowance new employees start with.
var DefaultRefreshPolicy = RefreshPolicy{PTOHours: 60, SickHours: 60}

type RefreshSummary struct {
	EmployeesRefreshed int      `json:"employeesRefreshed"`
	EmployeeIDs        []string `json:"employeeIds"`
}

// RefreshBalance resets one employee's ledgers and moves their refresh date a
// year past the later of its current value and asOf.
func (s *Service) RefreshBalance(ctx context.Context, employeeID string, policy RefreshPolicy, asOf calendar.Date) (Employee, error) {
	var out Employee
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		employee, err := tx.EmployeeForUpdate(ctx, employeeID)
		if err != nil {
			return err
		}
		applyRefresh(&employee, policy, asOf)
		if err := tx.UpdateEmployeeBalance(ctx, employee); err != nil {
			return fmt.Errorf("refresh employee %s: %w", employeeID, err)
		}
		out = employee
		return nil
	})
	if err != nil {
		return Employee{}, err
	}
	return out, nil
}

// ApplyRefreshes resets every employee whose refresh date is on or before asOf.
// Running it twice for the same day refreshes nobody the second time.
func (s *Service) ApplyRefreshes(ctx context.Context, policy RefreshPolicy, asOf calendar.Date) (RefreshSummary, error) {
	summary := RefreshSummary{EmployeeIDs: []string{}}
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		summary = RefreshSummary{EmployeeIDs: []string{}}
		due, err := tx.DueForRefreshForUpdate(ctx, asOf.String())
		if err != nil {
			return err
		}
		for _, employee := range due {
			applyRefresh(&employee, policy, asOf)
			if err := tx.UpdateEmployeeBalance(ctx, employee); err != nil {
				return fmt.Errorf("refresh employee %s: %w", employee.ID, err)
			}
			summary.EmployeesRefreshed++
			summary.EmployeeIDs = append(summary.EmployeeIDs, employee.ID)
		}
		return nil
	})
	if err != nil {
		return RefreshSummary{}, err
	}
	if summary.EmployeesRefreshed > 0 {
		slog.Info("balances refreshed", "count", summary.EmployeesRefreshed, "asOf", asOf.String())
	}
	return summary, nil
}

func applyRefresh(employee *Employee, policy RefreshPolicy, asOf calendar.Date) {
	employee.Balance = Balance{PTOHours: round2(policy.PTOHours), SickHours: round2(policy.SickHours)}
	base := employee.RefreshDate
	if base.IsZero() || base.Before(asOf) {
		base = asOf
	}
	employee.RefreshDate = calendar.NewDate(base.Year+1, base.Month, clampDay(base.Year+1, base.Month, base.Day))
}

func clampDay(year int, month time.Month, day int) int {
	last := calendar.NewDate(year, month+1, 1).AddDays(-1).Day
	if day > last {
		return last
	}
	return day
}
