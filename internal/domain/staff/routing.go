// Package staff holds the team/position rules that decide which manager sees
// a request. Authorization lives with the web layer; this package only
// answers questions.
package staff

import (
	"slices"
	"strings"
)

const (
	TeamAdmin    = "admin"
	TeamClinical = "clinical"
)

type Role string

const (
	RoleAdmin          Role = "admin"
	RoleClinical       Role = "clinical"
	RoleSuperadmin     Role = "superadmin"
	RoleMOASupervisor  Role = "moa_supervisor"
	RoleEchoSupervisor Role = "echo_supervisor"
)

var Roles = []Role{RoleAdmin, RoleClinical, RoleSuperadmin, RoleMOASupervisor, RoleEchoSupervisor}

func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

// Positions routed by submission form. Kept separate from the approval lists
// below because the intake form predates the current position catalogue.
var (
	intakeClinicalPositions = []string{"MOA", "Echo Tech", "Vascular Tech", "Nurse", "APP"}
	intakeAdminPositions    = []string{"Front Desk", "4th Floor", "CT Desk"}
)

var (
	AdminPositions = []string{
		"Front Desk/Admin",
		"CT Desk",
		"Echo Desk (4th Floor)",
		"Authorization Team",
	}
	ClinicalPositions = []string{
		"APP",
		"CVI RNs",
		"Cardiac CT RNs",
		"4th Floor Echo RNs",
		"CVI MOAs",
		"CVI Echo Techs",
		"4th Floor Echo Techs",
		"EKG Tech (4th Floor)",
		"Cardiac CT Techs (4th Floor)",
		"Nuclear Tech (CVI)",
		"Vascular Tech (CVI)",
	}
	moaPositions  = []string{"CVI MOAs"}
	echoPositions = []string{"CVI Echo Techs", "4th Floor Echo Techs"}
)

// ManagerTeamFor picks the manager team for a position, falling back to the
// team the employee registered under.
func ManagerTeamFor(position, team string) string {
	switch {
	case slices.Contains(intakeClinicalPositions, position), slices.Contains(ClinicalPositions, position):
		return TeamClinical
	case slices.Contains(intakeAdminPositions, position), slices.Contains(AdminPositions, position):
		return TeamAdmin
	default:
		return strings.ToLower(strings.TrimSpace(team))
	}
}

// CanApprove reports whether a manager with role may act on a request from
// an employee in position.
func CanApprove(role Role, position string) bool {
	switch role {
	case RoleSuperadmin:
		return true
	case RoleAdmin:
		return slices.Contains(AdminPositions, position)
	case RoleClinical:
		return slices.Contains(ClinicalPositions, position)
	case RoleMOASupervisor:
		return slices.Contains(moaPositions, position)
	case RoleEchoSupervisor:
		return slices.Contains(echoPositions, position)
	default:
		return false
	}
}

// CanApproveRequest extends CanApprove so team managers can also act on
// requests routed to their team from positions outside the catalogue.
func CanApproveRequest(role Role, position, managerTeam string) bool {
	if CanApprove(role, position) {
		return true
	}
	switch role {
	case RoleAdmin:
		return managerTeam == TeamAdmin
	case RoleClinical:
		return managerTeam == TeamClinical
	default:
		return false
	}
}

// Scope describes which requests a role can list. An empty Scope means all.
type Scope struct {
	ManagerTeams []string
	Positions    []string
}

func ScopeFor(role Role) Scope {
	switch role {
	case RoleAdmin:
		return Scope{ManagerTeams: []string{TeamAdmin}}
	case RoleClinical:
		return Scope{ManagerTeams: []string{TeamClinical}}
	case RoleMOASupervisor:
		return Scope{Positions: slices.Clone(moaPositions)}
	case RoleEchoSupervisor:
		return Scope{Positions: slices.Clone(echoPositions)}
	default:
		return Scope{}
	}
}

// AllPositions lists every position in the catalogue, admin first.
func AllPositions() []string {
	out := make([]string, 0, len(AdminPositions)+len(ClinicalPositions))
	out = append(out, AdminPositions...)
	out = append(out, ClinicalPositions...)
	return out
}

// NormalizePhone reduces a phone number to the digits used for matching.
func NormalizePhone(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "+1")
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
	return replacer.Replace(value)
}
