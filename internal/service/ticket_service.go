package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/equipment-maintenance/internal/auth"
	"github.com/spec-kit/equipment-maintenance/internal/domain"
	"github.com/spec-kit/equipment-maintenance/internal/events"
	"github.com/spec-kit/equipment-maintenance/internal/repository"
	apperrors "github.com/spec-kit/equipment-maintenance/pkg/util"
)

// allowedTransitions is the ticket status graph. CLOSED has no outgoing
// edges; every other change not listed here is rejected before any
// capability check runs.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved, domain.TicketStatusOpen},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusInProgress},
}

func transitionAllowed(from, to domain.TicketStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CreateTicketInput carries caller-supplied ticket fields.
type CreateTicketInput struct {
	EquipmentID string
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketService owns the ticket lifecycle, including the equipment side
// effects of resolving a ticket.
type TicketService struct {
	tickets    repository.TicketRepository
	equipment  repository.EquipmentRepository
	users      repository.UserRepository
	downtime   *DowntimeTracker
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewTicketService wires the service.
func NewTicketService(
	tickets repository.TicketRepository,
	equipment repository.EquipmentRepository,
	users repository.UserRepository,
	downtime *DowntimeTracker,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *TicketService {
	return &TicketService{
		tickets:    tickets,
		equipment:  equipment,
		users:      users,
		downtime:   downtime,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func generateTicketCode() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// Create opens a new ticket against a piece of equipment. The ticket's
// department is inherited from the equipment.
func (s *TicketService) Create(ctx context.Context, actor *domain.User, input CreateTicketInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !validPriority(priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	eq, err := s.equipment.GetByID(ctx, input.EquipmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("equipment", map[string]any{"id": input.EquipmentID})
		}
		return nil, apperrors.MapError(err)
	}
	if eq.DepartmentID == nil {
		return nil, apperrors.NewValidationError("equipment is not assigned to a department", map[string]any{"equipment_id": eq.ID})
	}

	ticket := &domain.Ticket{
		TicketCode:       generateTicketCode(),
		EquipmentID:      eq.ID,
		DepartmentID:     *eq.DepartmentID,
		Title:            strings.TrimSpace(input.Title),
		Description:      input.Description,
		Status:           domain.TicketStatusOpen,
		Priority:         priority,
		ReportedByUserID: actor.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, actor.ID, events.EventTicketCreated, events.TicketCreatedPayload{
		TicketID:     ticket.ID,
		TicketCode:   ticket.TicketCode,
		Title:        ticket.Title,
		DepartmentID: ticket.DepartmentID,
		Priority:     ticket.Priority,
		ReporterID:   ticket.ReportedByUserID,
	})
	return ticket, nil
}

// Get returns a ticket the actor is allowed to see.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if !canViewTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("ticket not visible to this role")
	}
	return ticket, nil
}

// List returns tickets scoped to the actor's visibility.
func (s *TicketService) List(ctx context.Context, actor *domain.User, filter repository.TicketFilter) ([]domain.Ticket, error) {
	scoped := scopeTicketFilter(actor, filter)
	tickets, err := s.tickets.ListWithFilter(ctx, scoped)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// canViewTicket implements role-based visibility: view-all roles see every
// ticket, department heads see their department, support sees tickets it
// reported or works, liaisons see only what they reported.
func canViewTicket(actor *domain.User, ticket *domain.Ticket) bool {
	if auth.Has(actor.Role, auth.CapViewAllTickets) {
		return true
	}
	switch actor.Role {
	case domain.RoleDepartmentHead:
		return actor.DepartmentID != nil && *actor.DepartmentID == ticket.DepartmentID
	case domain.RoleSupport:
		if ticket.ReportedByUserID == actor.ID {
			return true
		}
		return ticket.AssignedToUserID != nil && *ticket.AssignedToUserID == actor.ID
	case domain.RoleLiaison:
		return ticket.ReportedByUserID == actor.ID
	}
	return false
}

func scopeTicketFilter(actor *domain.User, filter repository.TicketFilter) repository.TicketFilter {
	if auth.Has(actor.Role, auth.CapViewAllTickets) {
		return filter
	}
	switch actor.Role {
	case domain.RoleDepartmentHead:
		filter.DepartmentID = actor.DepartmentID
	case domain.RoleSupport:
		id := actor.ID
		filter.AssigneeID = &id
	default:
		id := actor.ID
		filter.ReporterID = &id
	}
	return filter
}

// Transition moves a ticket along the status graph and applies equipment
// side effects atomically with the status change.
//
// Entering RESOLVED increments the equipment repair count every time, sets
// CompletedOn on the first entry only, and restores currently-down equipment
// to service within the same transaction. A lost optimistic-locking race
// surfaces as CONFLICT so the caller can re-read and retry.
func (s *TicketService) Transition(ctx context.Context, actor *domain.User, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !validStatus(newStatus) {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}

	ticket, err := s.Get(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewInvalidTransition("ticket is closed", map[string]any{"ticket_id": ticket.ID})
	}
	if !transitionAllowed(ticket.Status, newStatus) {
		return nil, apperrors.NewInvalidTransition(
			fmt.Sprintf("cannot move ticket from %s to %s", ticket.Status, newStatus),
			map[string]any{"from": ticket.Status, "to": newStatus})
	}
	if err := s.authorizeTransition(actor, ticket, newStatus); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	oldStatus := ticket.Status
	ticket.Status = newStatus

	var (
		eq                 *domain.Equipment
		logEntry           *domain.EquipmentLog
		equipmentRestored  bool
		restoredFromStatus domain.EquipmentStatus
	)
	if newStatus == domain.TicketStatusResolved {
		eq, err = s.equipment.GetByID(ctx, ticket.EquipmentID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		eq.RepairCount++
		if ticket.CompletedOn == nil {
			completed := now
			ticket.CompletedOn = &completed
		}
		if eq.IsCurrentlyDown {
			restoredFromStatus = eq.Status
			minutes := s.downtime.ApplyStatusChange(eq, domain.EquipmentStatusActive, now)
			equipmentRestored = true
			actorID := actor.ID
			logEntry = &domain.EquipmentLog{
				EquipmentID:     eq.ID,
				CreatedByUserID: &actorID,
				LogType:         domain.LogTypeService,
				Title:           fmt.Sprintf("Restored to service by %s", ticket.TicketCode),
				DowntimeMinutes: minutes,
			}
		}
	}

	if eq != nil {
		err = s.tickets.UpdateWithEquipment(ctx, ticket, eq, logEntry)
	} else {
		err = s.tickets.Update(ctx, ticket)
	}
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticket.ID})
		}
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, actor.ID, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
		TicketID:   ticket.ID,
		TicketCode: ticket.TicketCode,
		Title:      ticket.Title,
		ReporterID: ticket.ReportedByUserID,
		AssigneeID: ticket.AssignedToUserID,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
	})
	if equipmentRestored {
		s.publishEvent(ctx, actor.ID, events.EventEquipmentStatusChanged, events.EquipmentStatusChangedPayload{
			EquipmentID:  eq.ID,
			AssetTag:     eq.AssetTag,
			DeviceName:   eq.DeviceName,
			DepartmentID: eq.DepartmentID,
			OldStatus:    restoredFromStatus,
			NewStatus:    eq.Status,
		})
	}
	return ticket, nil
}

// authorizeTransition applies the capability gates on top of the graph.
// Reporter-only roles can never move a ticket into RESOLVED or CLOSED;
// assignees may resolve their own tickets without the capability.
func (s *TicketService) authorizeTransition(actor *domain.User, ticket *domain.Ticket, newStatus domain.TicketStatus) error {
	switch newStatus {
	case domain.TicketStatusResolved:
		if auth.ReporterOnly(actor.Role) {
			return apperrors.NewForbidden("role cannot resolve tickets")
		}
		if auth.Has(actor.Role, auth.CapTransitionToResolved) {
			return nil
		}
		if ticket.AssignedToUserID != nil && *ticket.AssignedToUserID == actor.ID {
			return nil
		}
		return apperrors.NewForbidden("only the assignee or an authorized role may resolve this ticket")
	case domain.TicketStatusClosed:
		if auth.ReporterOnly(actor.Role) {
			return apperrors.NewForbidden("role cannot close tickets")
		}
		if !auth.Has(actor.Role, auth.CapTransitionToClosed) {
			return apperrors.NewForbidden("role cannot close tickets")
		}
	}
	return nil
}

// Assign sets the ticket assignee. Callers without the assign capability may
// only pick the ticket up for themselves.
func (s *TicketService) Assign(ctx context.Context, actor *domain.User, ticketID, assigneeID string) (*domain.Ticket, error) {
	ticket, err := s.Get(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewInvalidTransition("ticket is closed", map[string]any{"ticket_id": ticket.ID})
	}

	selfAssign := assigneeID == actor.ID
	if !auth.Has(actor.Role, auth.CapAssignTicket) {
		if !selfAssign || actor.Role != domain.RoleSupport {
			return nil, apperrors.NewForbidden("role cannot assign tickets")
		}
	}

	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.Active {
		return nil, apperrors.NewValidationError("assignee account is disabled", map[string]any{"user_id": assigneeID})
	}
	if assignee.Role == domain.RoleLiaison {
		return nil, apperrors.NewValidationError("liaisons cannot work tickets", map[string]any{"user_id": assigneeID})
	}

	ticket.AssignedToUserID = &assignee.ID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticket.ID})
		}
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, actor.ID, events.EventTicketAssigned, events.TicketAssignedPayload{
		TicketID:   ticket.ID,
		TicketCode: ticket.TicketCode,
		Title:      ticket.Title,
		AssigneeID: assignee.ID,
	})
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, actorID string, eventType events.EventType, payload interface{}) {
	publish(ctx, s.dispatcher, s.logger, actorID, eventType, payload)
}

func validStatus(status domain.TicketStatus) bool {
	switch status {
	case domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed:
		return true
	}
	return false
}

func validPriority(priority domain.TicketPriority) bool {
	switch priority {
	case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh, domain.TicketPriorityUrgent:
		return true
	}
	return false
}
