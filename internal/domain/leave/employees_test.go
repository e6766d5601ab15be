package leave

import (
	"context"
	"errors"
	"testing"

	"ptotracker/internal/domain/calendar"
	"ptotracker/internal/domain/staff"
)

func TestUpdateEmployeeCorrectsBalanceAndRefreshDate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	employee := seedEmployee(t, svc, "gale", "Nurse", "clinical")

	pto, sick := 30.555, -4.0
	refresh := calendar.NewDate(2025, 6, 1)
	position := "CT Desk"
	before, after, err := svc.UpdateEmployee(ctx, employee.ID, EmployeeUpdate{
		PTOHours:    &pto,
		SickHours:   &sick,
		RefreshDate: &refresh,
		Position:    &position,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if before.Balance != employee.Balance {
		t.Fatalf("unexpected before balance %+v", before.Balance)
	}
	if after.Balance.PTOHours != 30.56 || after.Balance.SickHours != 0 {
		t.Fatalf("unexpected balances %+v", after.Balance)
	}
	if after.RefreshDate != refresh || after.Position != "CT Desk" || after.Name != employee.Name {
		t.Fatalf("unexpected employee %+v", after)
	}
	stored, _ := svc.GetEmployee(ctx, employee.ID)
	if stored.Balance != after.Balance || stored.RefreshDate != refresh {
		t.Fatalf("update not stored: %+v", stored)
	}
	if staff.ManagerTeamFor(stored.Position, stored.Team) != staff.TeamAdmin {
		t.Fatalf("expected position change to reroute to admin")
	}
}

func TestUpdateEmployeeRejectsEmailClash(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	first := seedEmployee(t, svc, "hal", "Nurse", "clinical")
	second := seedEmployee(t, svc, "ida", "Nurse", "clinical")

	email := "  HAL@example.com "
	_, _, err := svc.UpdateEmployee(ctx, second.ID, EmployeeUpdate{Email: &email})
	if !errors.Is(err, ErrDuplicateEmployee) {
		t.Fatalf("expected ErrDuplicateEmployee, got %v", err)
	}
	stored, _ := svc.GetEmployee(ctx, second.ID)
	if stored.Email != second.Email {
		t.Fatalf("failed update changed email to %q", stored.Email)
	}

	same := first.Email
	if _, _, err := svc.UpdateEmployee(ctx, first.ID, EmployeeUpdate{Email: &same}); err != nil {
		t.Fatalf("keeping own email: %v", err)
	}
	if _, _, err := svc.UpdateEmployee(ctx, "missing", EmployeeUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeactivateEmployee(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	employee := seedEmployee(t, svc, "jo", "Nurse", "clinical")
	kept := seedEmployee(t, svc, "kit", "Nurse", "clinical")
	req, err := svc.Submit(ctx, SubmitInput{EmployeeID: employee.ID, StartDate: "2025-03-10", EndDate: "2025-03-10"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	deactivated, changed, err := svc.DeactivateEmployee(ctx, employee.ID)
	if err != nil || !changed {
		t.Fatalf("deactivate: changed=%v err=%v", changed, err)
	}
	if deactivated.Active() || !deactivated.DeactivatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected deactivation %+v", deactivated.DeactivatedAt)
	}
	if _, changed, _ := svc.DeactivateEmployee(ctx, employee.ID); changed {
		t.Fatal("second deactivate reported a change")
	}

	if _, err := svc.Submit(ctx, SubmitInput{EmployeeID: employee.ID, StartDate: "2025-03-11", EndDate: "2025-03-11"}); !errors.Is(err, ErrInactiveEmployee) {
		t.Fatalf("expected ErrInactiveEmployee, got %v", err)
	}
	if _, err := svc.Get(ctx, req.ID); err != nil {
		t.Fatalf("history lost: %v", err)
	}

	active, _ := svc.ListEmployees(ctx, false)
	if len(active) != 1 || active[0].ID != kept.ID {
		t.Fatalf("unexpected active list %+v", active)
	}
	everyone, _ := svc.ListEmployees(ctx, true)
	if len(everyone) != 2 {
		t.Fatalf("expected both employees, got %d", len(everyone))
	}

	found, err := store.FindEmployeeByPhone(ctx, staff.NormalizePhone(employee.Phone))
	if err != nil || found.ID != kept.ID {
		t.Fatalf("expected phone lookup to skip inactive employee, got %+v %v", found, err)
	}

	summary, err := svc.ApplyRefreshes(ctx, DefaultRefreshPolicy, calendar.NewDate(2030, 1, 1))
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if summary.EmployeesRefreshed != 1 || summary.EmployeeIDs[0] != kept.ID {
		t.Fatalf("expected only the active employee refreshed, got %+v", summary)
	}
}

func TestEmployeeHistoryStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	employee := seedEmployee(t, svc, "lou", "Nurse", "clinical")

	approved, _ := svc.Submit(ctx, SubmitInput{EmployeeID: employee.ID, StartDate: "2025-03-10", EndDate: "2025-03-11"})
	if _, ok, err := svc.Approve(ctx, approved.ID, "mgr"); !ok || err != nil {
		t.Fatalf("approve: ok=%v err=%v", ok, err)
	}
	denied, _ := svc.Submit(ctx, SubmitInput{EmployeeID: employee.ID, StartDate: "2025-04-07", EndDate: "2025-04-08"})
	if _, ok, err := svc.Deny(ctx, denied.ID, "coverage", "mgr"); !ok || err != nil {
		t.Fatalf("deny: ok=%v err=%v", ok, err)
	}
	if _, err := svc.Submit(ctx, SubmitInput{EmployeeID: employee.ID, StartDate: "2025-05-05", EndDate: "2025-05-05"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.Submit(ctx, SubmitInput{EmployeeID: employee.ID, StartDate: "2025-03-04", EndDate: "2025-03-04", IsCallOut: true}); err != nil {
		t.Fatalf("call-out: %v", err)
	}

	history, err := svc.EmployeeHistory(ctx, employee.ID, calendar.NewDate(2025, 3, 3))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	stats := history.Stats
	if stats.Total != 4 || stats.Pending != 1 || stats.InProgress != 1 || stats.Denied != 1 || stats.Approved != 1 || stats.CallOuts != 1 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if stats.PTODaysUsed != 2 || stats.SickDaysUsed != 1 {
		t.Fatalf("unexpected usage %+v", stats)
	}
	if stats.DaysUntilRefresh == nil || *stats.DaysUntilRefresh != 365 || stats.RefreshStatus != "due in 365 days" {
		t.Fatalf("unexpected refresh stats %+v", stats)
	}
	if len(history.Requests) != 4 {
		t.Fatalf("expected 4 requests, got %d", len(history.Requests))
	}

	overdue := historyStats(Employee{RefreshDate: calendar.NewDate(2025, 3, 1)}, nil, calendar.NewDate(2025, 3, 3))
	if overdue.RefreshStatus != "2 days overdue" {
		t.Fatalf("unexpected status %q", overdue.RefreshStatus)
	}
	if unset := historyStats(Employee{}, nil, calendar.NewDate(2025, 3, 3)); unset.DaysUntilRefresh != nil || unset.RefreshStatus != "not set" {
		t.Fatalf("unexpected unset stats %+v", unset)
	}
}
