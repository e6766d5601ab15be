package leavehandler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ptotracker/internal/domain/auth"
	"ptotracker/internal/domain/leave"
	"ptotracker/internal/domain/staff"
)

func TestVisibleTo(t *testing.T) {
	clinicalReq := leave.Request{Position: "CVI MOAs", ManagerTeam: staff.TeamClinical}
	adminReq := leave.Request{Position: "CT Desk", ManagerTeam: staff.TeamAdmin}

	cases := []struct {
		role     staff.Role
		req      leave.Request
		expected bool
	}{
		{staff.RoleSuperadmin, adminReq, true},
		{staff.RoleClinical, clinicalReq, true},
		{staff.RoleClinical, adminReq, false},
		{staff.RoleMOASupervisor, clinicalReq, true},
		{staff.RoleEchoSupervisor, clinicalReq, false},
	}
	for _, tc := range cases {
		got := visibleTo(auth.Principal{Role: tc.role}, tc.req)
		assert.Equalf(t, tc.expected, got, "role %s position %s", tc.role, tc.req.Position)
	}
}
