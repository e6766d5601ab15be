package db

import (
	"context"
	"testing"

	"ptotracker/internal/domain/auth"
	"ptotracker/internal/domain/calendar"
	"ptotracker/internal/domain/leave"
	"ptotracker/internal/platform/config"
)

func TestSeedMemoryStores(t *testing.T) {
	ctx := context.Background()
	managers := auth.NewService(auth.NewMemoryStore(), "secret")
	lifecycle := leave.NewService(leave.NewMemoryStore(), calendar.New())
	cfg := config.Config{SeedAdminEmail: "Boss@Example.com", SeedAdminPassword: "pw", DefaultPTOHours: 60, DefaultSickHours: 60}

	if err := Seed(ctx, cfg, managers, lifecycle); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := Seed(ctx, cfg, managers, lifecycle); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	employees, err := lifecycle.ListEmployees(ctx, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(employees) != len(sampleEmployees) {
		t.Fatalf("expected %d employees, got %d", len(sampleEmployees), len(employees))
	}
	if employees[0].Balance.PTOHours != 60 {
		t.Fatalf("unexpected opening balance %+v", employees[0].Balance)
	}
	if _, err := managers.Login(ctx, "boss@example.com", "pw"); err != nil {
		t.Fatalf("seeded admin cannot log in: %v", err)
	}
}
