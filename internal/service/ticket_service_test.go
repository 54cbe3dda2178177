package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
	"github.com/spec-kit/equipment-maintenance/internal/events"
	"github.com/spec-kit/equipment-maintenance/internal/repository"
	apperrors "github.com/spec-kit/equipment-maintenance/pkg/util"
)

type ticketFixture struct {
	users     *fakeUserRepo
	equipment *fakeEquipmentRepo
	logs      *fakeEquipmentLogRepo
	tickets   *fakeTicketRepo
	events    *eventRecorder
	svc       *TicketService

	deptID  string
	admin   domain.User
	manager domain.User
	head    domain.User
	support domain.User
	liaison domain.User
	device  domain.Equipment
}

type eventRecorder struct {
	recorded []events.Event
}

func (r *eventRecorder) handle(_ context.Context, event events.Event) error {
	r.recorded = append(r.recorded, event)
	return nil
}

func (r *eventRecorder) ofType(eventType events.EventType) []events.Event {
	var result []events.Event
	for _, e := range r.recorded {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	f := &ticketFixture{
		users:     newFakeUserRepo(),
		equipment: newFakeEquipmentRepo(),
		logs:      &fakeEquipmentLogRepo{},
		events:    &eventRecorder{},
	}
	f.tickets = newFakeTicketRepo(f.equipment, f.logs)

	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventEquipmentStatusChanged,
	} {
		dispatcher.Subscribe(eventType, f.events.handle)
	}

	f.deptID = "dept-radiology"
	f.admin = f.users.add(domain.User{Name: "Ada", Role: domain.RoleAdmin, Active: true})
	f.manager = f.users.add(domain.User{Name: "Mia", Role: domain.RoleManager, Active: true})
	f.head = f.users.add(domain.User{Name: "Hana", Role: domain.RoleDepartmentHead, DepartmentID: &f.deptID, Active: true})
	f.support = f.users.add(domain.User{Name: "Sam", Role: domain.RoleSupport, Active: true})
	f.liaison = f.users.add(domain.User{Name: "Lia", Role: domain.RoleLiaison, DepartmentID: &f.deptID, Active: true})

	f.device = f.equipment.add(domain.Equipment{
		AssetTag:     "CT-001",
		DeviceName:   "CT Scanner",
		Status:       domain.EquipmentStatusActive,
		DepartmentID: &f.deptID,
		Criticality:  domain.CriticalityHigh,
	})

	f.svc = NewTicketService(f.tickets, f.equipment, f.users, NewDowntimeTracker(zap.NewNop()), dispatcher, zap.NewNop())
	return f
}

func (f *ticketFixture) newTicket(status domain.TicketStatus, assignee *string) domain.Ticket {
	return f.tickets.add(domain.Ticket{
		TicketCode:       "TCK-TEST01",
		EquipmentID:      f.device.ID,
		DepartmentID:     f.deptID,
		Title:            "Scanner fault",
		Status:           status,
		Priority:         domain.TicketPriorityHigh,
		ReportedByUserID: f.liaison.ID,
		AssignedToUserID: assignee,
	})
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func TestCreateTicketInheritsDepartment(t *testing.T) {
	f := newTicketFixture(t)

	ticket, err := f.svc.Create(context.Background(), &f.liaison, CreateTicketInput{
		EquipmentID: f.device.ID,
		Title:       "Display flickers",
		Description: "Intermittent flicker during scans",
	})
	require.NoError(t, err)

	assert.Equal(t, f.deptID, ticket.DepartmentID)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.True(t, strings.HasPrefix(ticket.TicketCode, "TCK-"))
	assert.Len(t, f.events.ofType(events.EventTicketCreated), 1)
}

func TestCreateTicketRequiresDepartmentOnEquipment(t *testing.T) {
	f := newTicketFixture(t)
	orphan := f.equipment.add(domain.Equipment{AssetTag: "X-9", DeviceName: "Orphan", Status: domain.EquipmentStatusActive})

	_, err := f.svc.Create(context.Background(), &f.manager, CreateTicketInput{EquipmentID: orphan.ID, Title: "Broken"})
	assertErrorCode(t, err, "VALIDATION_FAILED")
}

func TestTransitionGraph(t *testing.T) {
	cases := []struct {
		from    domain.TicketStatus
		to      domain.TicketStatus
		allowed bool
	}{
		{domain.TicketStatusOpen, domain.TicketStatusInProgress, true},
		{domain.TicketStatusOpen, domain.TicketStatusResolved, false},
		{domain.TicketStatusOpen, domain.TicketStatusClosed, false},
		{domain.TicketStatusInProgress, domain.TicketStatusResolved, true},
		{domain.TicketStatusInProgress, domain.TicketStatusOpen, true},
		{domain.TicketStatusInProgress, domain.TicketStatusClosed, false},
		{domain.TicketStatusResolved, domain.TicketStatusClosed, true},
		{domain.TicketStatusResolved, domain.TicketStatusInProgress, true},
		{domain.TicketStatusResolved, domain.TicketStatusOpen, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			f := newTicketFixture(t)
			ticket := f.newTicket(tc.from, nil)

			_, err := f.svc.Transition(context.Background(), &f.admin, ticket.ID, tc.to)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assertErrorCode(t, err, "INVALID_TRANSITION")
			}
		})
	}
}

func TestClosedTicketIsTerminal(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.newTicket(domain.TicketStatusClosed, nil)

	for _, to := range []domain.TicketStatus{
		domain.TicketStatusOpen,
		domain.TicketStatusInProgress,
		domain.TicketStatusResolved,
	} {
		_, err := f.svc.Transition(context.Background(), &f.admin, ticket.ID, to)
		assertErrorCode(t, err, "INVALID_TRANSITION")
	}
}

func TestResolveAuthorization(t *testing.T) {
	t.Run("unassigned support is rejected", func(t *testing.T) {
		f := newTicketFixture(t)
		ticket := f.newTicket(domain.TicketStatusInProgress, nil)
		f.tickets.tickets[ticket.ID] = func() domain.Ticket { tk := ticket; tk.ReportedByUserID = f.support.ID; return tk }()

		_, err := f.svc.Transition(context.Background(), &f.support, ticket.ID, domain.TicketStatusResolved)
		assertErrorCode(t, err, "FORBIDDEN")
	})

	t.Run("assigned support may resolve", func(t *testing.T) {
		f := newTicketFixture(t)
		ticket := f.newTicket(domain.TicketStatusInProgress, &f.support.ID)

		updated, err := f.svc.Transition(context.Background(), &f.support, ticket.ID, domain.TicketStatusResolved)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusResolved, updated.Status)
		require.NotNil(t, updated.CompletedOn)
	})

	t.Run("liaison may never resolve", func(t *testing.T) {
		f := newTicketFixture(t)
		ticket := f.newTicket(domain.TicketStatusInProgress, &f.liaison.ID)

		_, err := f.svc.Transition(context.Background(), &f.liaison, ticket.ID, domain.TicketStatusResolved)
		assertErrorCode(t, err, "FORBIDDEN")
	})

	t.Run("department head may resolve", func(t *testing.T) {
		f := newTicketFixture(t)
		ticket := f.newTicket(domain.TicketStatusInProgress, nil)

		_, err := f.svc.Transition(context.Background(), &f.head, ticket.ID, domain.TicketStatusResolved)
		assert.NoError(t, err)
	})
}

func TestCloseAuthorization(t *testing.T) {
	t.Run("support cannot close even as assignee", func(t *testing.T) {
		f := newTicketFixture(t)
		ticket := f.newTicket(domain.TicketStatusResolved, &f.support.ID)

		_, err := f.svc.Transition(context.Background(), &f.support, ticket.ID, domain.TicketStatusClosed)
		assertErrorCode(t, err, "FORBIDDEN")
	})

	t.Run("manager closes", func(t *testing.T) {
		f := newTicketFixture(t)
		ticket := f.newTicket(domain.TicketStatusResolved, &f.support.ID)

		updated, err := f.svc.Transition(context.Background(), &f.manager, ticket.ID, domain.TicketStatusClosed)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusClosed, updated.Status)
	})
}

func TestRepairCountIncrementsOnEveryResolvedEntry(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.newTicket(domain.TicketStatusInProgress, nil)
	ctx := context.Background()

	resolved, err := f.svc.Transition(ctx, &f.manager, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	require.NotNil(t, resolved.CompletedOn)
	firstCompletedOn := *resolved.CompletedOn

	_, err = f.svc.Transition(ctx, &f.manager, ticket.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	resolvedAgain, err := f.svc.Transition(ctx, &f.manager, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)

	eq, err := f.equipment.GetByID(ctx, f.device.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, eq.RepairCount)

	require.NotNil(t, resolvedAgain.CompletedOn)
	assert.Equal(t, firstCompletedOn, *resolvedAgain.CompletedOn, "completed_on is set only on the first resolution")
}

func TestResolveRestoresDownEquipment(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	downSince := time.Now().UTC().Add(-90 * time.Minute)
	device := f.device
	device.Status = domain.EquipmentStatusOutOfService
	device.IsCurrentlyDown = true
	device.LastDowntimeStart = &downSince
	f.equipment.equipment[device.ID] = device

	ticket := f.newTicket(domain.TicketStatusInProgress, &f.support.ID)
	_, err := f.svc.Transition(ctx, &f.support, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)

	eq, err := f.equipment.GetByID(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EquipmentStatusActive, eq.Status)
	assert.False(t, eq.IsCurrentlyDown)
	assert.Nil(t, eq.LastDowntimeStart)
	assert.InDelta(t, 90, eq.TotalDowntimeMinutes, 1)
	assert.Equal(t, 1, eq.RepairCount)

	require.Len(t, f.logs.entries, 1)
	assert.Equal(t, domain.LogTypeService, f.logs.entries[0].LogType)

	assert.Len(t, f.events.ofType(events.EventTicketStatusChanged), 1)
	assert.Len(t, f.events.ofType(events.EventEquipmentStatusChanged), 1)
}

func TestStaleWriteSurfacesAsConflict(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.newTicket(domain.TicketStatusOpen, nil)

	// A concurrent writer bumps the row version between our read and write.
	stale := f.tickets.tickets[ticket.ID]
	stored := stale
	stored.Version++
	f.tickets.tickets[ticket.ID] = stored

	err := f.tickets.Update(context.Background(), &stale)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
}

func TestAssignRules(t *testing.T) {
	t.Run("manager assigns support", func(t *testing.T) {
		f := newTicketFixture(t)
		ticket := f.newTicket(domain.TicketStatusOpen, nil)

		updated, err := f.svc.Assign(context.Background(), &f.manager, ticket.ID, f.support.ID)
		require.NoError(t, err)
		require.NotNil(t, updated.AssignedToUserID)
		assert.Equal(t, f.support.ID, *updated.AssignedToUserID)
		assert.Len(t, f.events.ofType(events.EventTicketAssigned), 1)
	})

	t.Run("support may self-assign", func(t *testing.T) {
		f := newTicketFixture(t)
		ticket := f.newTicket(domain.TicketStatusOpen, nil)
		f.tickets.tickets[ticket.ID] = func() domain.Ticket { tk := ticket; tk.ReportedByUserID = f.support.ID; return tk }()

		_, err := f.svc.Assign(context.Background(), &f.support, ticket.ID, f.support.ID)
		assert.NoError(t, err)
	})

	t.Run("support cannot assign others", func(t *testing.T) {
		f := newTicketFixture(t)
		other := f.users.add(domain.User{Name: "Ola", Role: domain.RoleSupport, Active: true})
		ticket := f.newTicket(domain.TicketStatusOpen, &f.support.ID)

		_, err := f.svc.Assign(context.Background(), &f.support, ticket.ID, other.ID)
		assertErrorCode(t, err, "FORBIDDEN")
	})

	t.Run("liaison cannot be assignee", func(t *testing.T) {
		f := newTicketFixture(t)
		ticket := f.newTicket(domain.TicketStatusOpen, nil)

		_, err := f.svc.Assign(context.Background(), &f.manager, ticket.ID, f.liaison.ID)
		assertErrorCode(t, err, "VALIDATION_FAILED")
	})
}

func TestListScoping(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	otherDept := "dept-cardiology"

	f.tickets.add(domain.Ticket{EquipmentID: f.device.ID, DepartmentID: f.deptID, Title: "A",
		Status: domain.TicketStatusOpen, ReportedByUserID: f.liaison.ID})
	f.tickets.add(domain.Ticket{EquipmentID: f.device.ID, DepartmentID: f.deptID, Title: "B",
		Status: domain.TicketStatusOpen, ReportedByUserID: f.head.ID, AssignedToUserID: &f.support.ID})
	f.tickets.add(domain.Ticket{EquipmentID: f.device.ID, DepartmentID: otherDept, Title: "C",
		Status: domain.TicketStatusOpen, ReportedByUserID: f.manager.ID})

	adminView, err := f.svc.List(ctx, &f.admin, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, adminView, 3)

	headView, err := f.svc.List(ctx, &f.head, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, headView, 2)

	supportView, err := f.svc.List(ctx, &f.support, repository.TicketFilter{})
	require.NoError(t, err)
	require.Len(t, supportView, 1)
	assert.Equal(t, "B", supportView[0].Title)

	liaisonView, err := f.svc.List(ctx, &f.liaison, repository.TicketFilter{})
	require.NoError(t, err)
	require.Len(t, liaisonView, 1)
	assert.Equal(t, "A", liaisonView[0].Title)
}

func TestLiaisonCannotSeeForeignTicket(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.tickets.add(domain.Ticket{EquipmentID: f.device.ID, DepartmentID: f.deptID,
		Title: "Other", Status: domain.TicketStatusOpen, ReportedByUserID: f.head.ID})

	_, err := f.svc.Get(context.Background(), &f.liaison, ticket.ID)
	assertErrorCode(t, err, "FORBIDDEN")
}
