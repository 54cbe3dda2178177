package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
)

var allCapabilities = []Capability{
	CapTransitionToResolved,
	CapTransitionToClosed,
	CapAssignTicket,
	CapCompleteMaintenance,
	CapCreateMaintenance,
	CapViewAllTickets,
	CapUpdateEquipmentStatus,
	CapManageEquipment,
}

func TestCapabilityTable(t *testing.T) {
	expected := map[domain.Role]map[Capability]bool{
		domain.RoleAdmin: {
			CapTransitionToResolved: true, CapTransitionToClosed: true,
			CapAssignTicket: true, CapCompleteMaintenance: true,
			CapCreateMaintenance: true, CapViewAllTickets: true,
			CapUpdateEquipmentStatus: true, CapManageEquipment: true,
		},
		domain.RoleManager: {
			CapTransitionToResolved: true, CapTransitionToClosed: true,
			CapAssignTicket: true, CapCompleteMaintenance: true,
			CapCreateMaintenance: true, CapViewAllTickets: true,
			CapUpdateEquipmentStatus: true, CapManageEquipment: true,
		},
		domain.RoleDepartmentHead: {
			CapTransitionToResolved: true, CapAssignTicket: true,
			CapUpdateEquipmentStatus: true, CapManageEquipment: true,
		},
		domain.RoleSupport: {},
		domain.RoleLiaison: {},
	}

	for _, role := range domain.Roles {
		for _, capability := range allCapabilities {
			got := Has(role, capability)
			want := expected[role][capability]
			assert.Equal(t, want, got, "role %s capability %s", role, capability)
		}
	}
}

func TestCapabilitiesEnumerates(t *testing.T) {
	caps := Capabilities(domain.RoleDepartmentHead)
	assert.Len(t, caps, 4)
	assert.Contains(t, caps, CapTransitionToResolved)
	assert.NotContains(t, caps, CapTransitionToClosed)
}

func TestUnknownRoleHoldsNothing(t *testing.T) {
	for _, capability := range allCapabilities {
		assert.False(t, Has(domain.Role("INTERN"), capability))
	}
}

func TestReporterOnly(t *testing.T) {
	assert.True(t, ReporterOnly(domain.RoleLiaison))
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleManager, domain.RoleDepartmentHead, domain.RoleSupport} {
		assert.False(t, ReporterOnly(role))
	}
}
