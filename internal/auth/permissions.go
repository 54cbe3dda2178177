package auth

import "github.com/spec-kit/equipment-maintenance/internal/domain"

// Capability is a named permission granted to a role.
type Capability string

const (
	CapTransitionToResolved  Capability = "transition_to_resolved"
	CapTransitionToClosed    Capability = "transition_to_closed"
	CapAssignTicket          Capability = "assign_ticket"
	CapCompleteMaintenance   Capability = "complete_maintenance"
	CapCreateMaintenance     Capability = "create_maintenance"
	CapViewAllTickets        Capability = "view_all_tickets"
	CapUpdateEquipmentStatus Capability = "update_equipment_status"
	CapManageEquipment       Capability = "manage_equipment"
)

// rolePolicies is the single role → capability table. There is no
// inheritance: every grant is listed explicitly so the table is enumerable
// in tests.
var rolePolicies = map[domain.Role][]Capability{
	domain.RoleAdmin: {
		CapTransitionToResolved,
		CapTransitionToClosed,
		CapAssignTicket,
		CapCompleteMaintenance,
		CapCreateMaintenance,
		CapViewAllTickets,
		CapUpdateEquipmentStatus,
		CapManageEquipment,
	},
	domain.RoleManager: {
		CapTransitionToResolved,
		CapTransitionToClosed,
		CapAssignTicket,
		CapCompleteMaintenance,
		CapCreateMaintenance,
		CapViewAllTickets,
		CapUpdateEquipmentStatus,
		CapManageEquipment,
	},
	domain.RoleDepartmentHead: {
		CapTransitionToResolved,
		CapAssignTicket,
		CapUpdateEquipmentStatus,
		CapManageEquipment,
	},
	domain.RoleSupport: {},
	domain.RoleLiaison: {},
}

// Capabilities returns the capability set for a role. Unknown roles hold
// nothing.
func Capabilities(role domain.Role) map[Capability]struct{} {
	caps := make(map[Capability]struct{}, len(rolePolicies[role]))
	for _, c := range rolePolicies[role] {
		caps[c] = struct{}{}
	}
	return caps
}

// Has reports whether the role holds the capability.
func Has(role domain.Role, capability Capability) bool {
	for _, c := range rolePolicies[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// ReporterOnly reports whether the role's ticket visibility is limited to
// tickets it reported. Such roles carry a veto: they may never move a
// ticket to resolved or closed even if the capability table were to change.
func ReporterOnly(role domain.Role) bool {
	return role == domain.RoleLiaison
}
