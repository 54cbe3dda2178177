package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
	"github.com/spec-kit/equipment-maintenance/internal/events"
)

type equipmentFixture struct {
	equipment   *fakeEquipmentRepo
	logs        *fakeEquipmentLogRepo
	departments *fakeDepartmentRepo
	events      *eventRecorder
	svc         *EquipmentService

	manager domain.User
	liaison domain.User
	dept    domain.Department
}

func newEquipmentFixture(t *testing.T) *equipmentFixture {
	t.Helper()
	f := &equipmentFixture{
		equipment:   newFakeEquipmentRepo(),
		logs:        &fakeEquipmentLogRepo{},
		departments: newFakeDepartmentRepo(),
		events:      &eventRecorder{},
	}

	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventEquipmentStatusChanged, f.events.handle)

	f.dept = f.departments.add(domain.Department{Name: "Radiology"})
	f.manager = domain.User{ID: "u-manager", Role: domain.RoleManager, Active: true}
	f.liaison = domain.User{ID: "u-liaison", Role: domain.RoleLiaison, Active: true}

	f.svc = NewEquipmentService(f.equipment, f.logs, f.departments, NewDowntimeTracker(zap.NewNop()), dispatcher, zap.NewNop())
	return f
}

func TestCreateEquipment(t *testing.T) {
	f := newEquipmentFixture(t)
	ctx := context.Background()

	t.Run("liaison is forbidden", func(t *testing.T) {
		_, err := f.svc.Create(ctx, &f.liaison, CreateEquipmentInput{AssetTag: "MRI-1", DeviceName: "MRI"})
		assertErrorCode(t, err, "FORBIDDEN")
	})

	t.Run("unknown department is rejected", func(t *testing.T) {
		missing := "nope"
		_, err := f.svc.Create(ctx, &f.manager, CreateEquipmentInput{AssetTag: "MRI-1", DeviceName: "MRI", DepartmentID: &missing})
		assertErrorCode(t, err, "NOT_FOUND")
	})

	t.Run("defaults applied", func(t *testing.T) {
		eq, err := f.svc.Create(ctx, &f.manager, CreateEquipmentInput{AssetTag: "MRI-1", DeviceName: "MRI", DepartmentID: &f.dept.ID})
		require.NoError(t, err)
		assert.Equal(t, domain.EquipmentStatusActive, eq.Status)
		assert.Equal(t, domain.CriticalityMedium, eq.Criticality)
	})
}

func TestUpdateStatusTracksDowntime(t *testing.T) {
	f := newEquipmentFixture(t)
	ctx := context.Background()
	device := f.equipment.add(domain.Equipment{AssetTag: "MRI-1", DeviceName: "MRI", Status: domain.EquipmentStatusActive, DepartmentID: &f.dept.ID})

	eq, err := f.svc.UpdateStatus(ctx, &f.manager, device.ID, domain.EquipmentStatusOutOfService, nil)
	require.NoError(t, err)
	assert.True(t, eq.IsCurrentlyDown)
	require.NotNil(t, eq.LastDowntimeStart)

	require.Len(t, f.logs.entries, 1)
	assert.Equal(t, domain.LogTypeIncident, f.logs.entries[0].LogType)
	assert.Len(t, f.events.ofType(events.EventEquipmentStatusChanged), 1)

	// Setting the same status again changes nothing.
	_, err = f.svc.UpdateStatus(ctx, &f.manager, device.ID, domain.EquipmentStatusOutOfService, nil)
	require.NoError(t, err)
	assert.Len(t, f.logs.entries, 1)
	assert.Len(t, f.events.ofType(events.EventEquipmentStatusChanged), 1)

	eq, err = f.svc.UpdateStatus(ctx, &f.manager, device.ID, domain.EquipmentStatusActive, nil)
	require.NoError(t, err)
	assert.False(t, eq.IsCurrentlyDown)
	require.Len(t, f.logs.entries, 2)
	assert.Equal(t, domain.LogTypeService, f.logs.entries[1].LogType)
}

func TestUpdateStatusForbiddenForLiaison(t *testing.T) {
	f := newEquipmentFixture(t)
	device := f.equipment.add(domain.Equipment{AssetTag: "MRI-1", DeviceName: "MRI", Status: domain.EquipmentStatusActive})

	_, err := f.svc.UpdateStatus(context.Background(), &f.liaison, device.ID, domain.EquipmentStatusOutOfService, nil)
	assertErrorCode(t, err, "FORBIDDEN")
}
