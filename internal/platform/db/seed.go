package db

import (
	"context"
	"errors"
	"strings"

	"ptotracker/internal/domain/auth"
	"ptotracker/internal/domain/leave"
	"ptotracker/internal/domain/staff"
	"ptotracker/internal/platform/config"
)

type seedEmployee struct {
	Name     string
	Email    string
	Phone    string
	Team     string
	Position string
}

var sampleEmployees = []seedEmployee{
	{Name: "Jordan Lee", Email: "jordan.lee@example.com", Phone: "555-010-1001", Team: staff.TeamAdmin, Position: "Front Desk/Admin"},
	{Name: "Casey Ortiz", Email: "casey.ortiz@example.com", Phone: "555-010-1002", Team: staff.TeamAdmin, Position: "CT Desk"},
	{Name: "Morgan Diaz", Email: "morgan.diaz@example.com", Phone: "555-010-1003", Team: staff.TeamClinical, Position: "CVI RNs"},
	{Name: "Riley Chen", Email: "riley.chen@example.com", Phone: "555-010-1004", Team: staff.TeamClinical, Position: "CVI MOAs"},
	{Name: "Avery Patel", Email: "avery.patel@example.com", Phone: "555-010-1005", Team: staff.TeamClinical, Position: "CVI Echo Techs"},
}

// Seed makes sure a superadmin can sign in and, on an empty directory, loads
// a handful of sample employees. It works against either store driver.
func Seed(ctx context.Context, cfg config.Config, managers *auth.Service, lifecycle *leave.Service) error {
	if cfg.SeedAdminEmail != "" && cfg.SeedAdminPassword != "" {
		if _, err := managers.EnsureManager(ctx, auth.Manager{
			Name:  "Administrator",
			Email: strings.ToLower(cfg.SeedAdminEmail),
			Role:  staff.RoleSuperadmin,
		}, cfg.SeedAdminPassword); err != nil {
			return err
		}
	}

	existing, err := lifecycle.ListEmployees(ctx, true)
	if err != nil {
		return err
	}
	if len(existing) > 0 || cfg.Environment == "production" {
		return nil
	}
	for _, e := range sampleEmployees {
		_, err := lifecycle.CreateEmployee(ctx, leave.Employee{
			Name:     e.Name,
			Email:    e.Email,
			Phone:    e.Phone,
			Team:     e.Team,
			Position: e.Position,
			Balance:  leave.Balance{PTOHours: cfg.DefaultPTOHours, SickHours: cfg.DefaultSickHours},
		})
		if err != nil && !errors.Is(err, leave.ErrDuplicateEmployee) {
			return err
		}
	}
	return nil
}
