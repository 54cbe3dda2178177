package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
	"github.com/spec-kit/equipment-maintenance/internal/events"
	"github.com/spec-kit/equipment-maintenance/internal/repository"
	apperrors "github.com/spec-kit/equipment-maintenance/pkg/util"
)

// UnreadCache caches per-user unread counts. A nil implementation behaves as
// a permanent miss.
type UnreadCache interface {
	Get(ctx context.Context, userID string) (int, bool)
	Set(ctx context.Context, userID string, count int)
	Invalidate(ctx context.Context, userID string)
}

// NotificationService turns domain events into per-recipient notification
// rows and serves the recipient-facing queries. Actors are never notified
// about their own actions.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	cache         UnreadCache
	logger        *zap.Logger
}

// NewNotificationService wires the service.
func NewNotificationService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	cache UnreadCache,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		cache:         cache,
		logger:        logger,
	}
}

// RegisterHandlers subscribes the fan-out handlers.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, s.onTicketCreated)
	dispatcher.Subscribe(events.EventTicketAssigned, s.onTicketAssigned)
	dispatcher.Subscribe(events.EventTicketStatusChanged, s.onTicketStatusChanged)
	dispatcher.Subscribe(events.EventEquipmentStatusChanged, s.onEquipmentStatusChanged)
	dispatcher.Subscribe(events.EventMaintenanceCompleted, s.onMaintenanceCompleted)
	dispatcher.Subscribe(events.EventMaintenanceOverdue, s.onMaintenanceOverdue)
}

func (s *NotificationService) onTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}

	staff, err := s.users.ListActive(ctx, repository.UserFilter{
		Roles: []domain.Role{domain.RoleManager, domain.RoleSupport},
	})
	if err != nil {
		return err
	}
	dept := payload.DepartmentID
	heads, err := s.users.ListActive(ctx, repository.UserFilter{
		Roles:        []domain.Role{domain.RoleDepartmentHead},
		DepartmentID: &dept,
	})
	if err != nil {
		return err
	}

	recipients := userIDs(append(staff, heads...))
	return s.notify(ctx, recipients, event.ActorUserID,
		fmt.Sprintf("New ticket %s", payload.TicketCode),
		fmt.Sprintf("%s (%s priority)", payload.Title, payload.Priority),
		domain.NotificationTicketCreated,
		&domain.RelatedEntity{Type: "ticket", ID: payload.TicketID})
}

func (s *NotificationService) onTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	return s.notify(ctx, []string{payload.AssigneeID}, event.ActorUserID,
		fmt.Sprintf("Ticket %s assigned to you", payload.TicketCode),
		payload.Title,
		domain.NotificationTicketAssigned,
		&domain.RelatedEntity{Type: "ticket", ID: payload.TicketID})
}

func (s *NotificationService) onTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}

	recipients := []string{payload.ReporterID}
	if payload.NewStatus == domain.TicketStatusResolved || payload.NewStatus == domain.TicketStatusClosed {
		if payload.AssigneeID != nil {
			recipients = append(recipients, *payload.AssigneeID)
		}
	}
	return s.notify(ctx, recipients, event.ActorUserID,
		fmt.Sprintf("Ticket %s is now %s", payload.TicketCode, payload.NewStatus),
		payload.Title,
		domain.NotificationTicketStatusChanged,
		&domain.RelatedEntity{Type: "ticket", ID: payload.TicketID})
}

func (s *NotificationService) onEquipmentStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.EquipmentStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}

	audience, err := s.departmentAudience(ctx, payload.DepartmentID)
	if err != nil {
		return err
	}
	return s.notify(ctx, userIDs(audience), event.ActorUserID,
		fmt.Sprintf("%s is now %s", payload.DeviceName, payload.NewStatus),
		fmt.Sprintf("Equipment %s changed from %s to %s", payload.AssetTag, payload.OldStatus, payload.NewStatus),
		domain.NotificationEquipmentStatusChanged,
		&domain.RelatedEntity{Type: "equipment", ID: payload.EquipmentID})
}

func (s *NotificationService) onMaintenanceCompleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MaintenanceCompletedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}

	recipients, err := s.scheduleAudience(ctx, payload.AssigneeID, payload.DepartmentID)
	if err != nil {
		return err
	}
	return s.notify(ctx, recipients, event.ActorUserID,
		fmt.Sprintf("Maintenance completed on %s", payload.DeviceName),
		fmt.Sprintf("%s maintenance was completed", payload.MaintenanceType),
		domain.NotificationMaintenanceCompleted,
		&domain.RelatedEntity{Type: "maintenance_schedule", ID: payload.ScheduleID})
}

func (s *NotificationService) onMaintenanceOverdue(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MaintenanceOverduePayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}

	recipients, err := s.scheduleAudience(ctx, payload.AssigneeID, payload.DepartmentID)
	if err != nil {
		return err
	}
	return s.notify(ctx, recipients, event.ActorUserID,
		fmt.Sprintf("Maintenance overdue on %s", payload.DeviceName),
		fmt.Sprintf("%s maintenance was due %s (%d days ago)",
			payload.MaintenanceType, payload.DueDate.Format("2006-01-02"), payload.OverdueDays),
		domain.NotificationMaintenanceOverdue,
		&domain.RelatedEntity{Type: "maintenance_schedule", ID: payload.ScheduleID})
}

// scheduleAudience resolves maintenance recipients: the assignee when the
// schedule has one, otherwise the department's managers and head.
func (s *NotificationService) scheduleAudience(ctx context.Context, assigneeID, departmentID *string) ([]string, error) {
	if assigneeID != nil {
		return []string{*assigneeID}, nil
	}
	audience, err := s.departmentAudience(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	return userIDs(audience), nil
}

// departmentAudience returns managers and department heads for a department,
// or all managers when the equipment has none.
func (s *NotificationService) departmentAudience(ctx context.Context, departmentID *string) ([]domain.User, error) {
	if departmentID == nil {
		return s.users.ListActive(ctx, repository.UserFilter{Roles: []domain.Role{domain.RoleManager}})
	}
	return s.users.ListActive(ctx, repository.UserFilter{
		Roles:        []domain.Role{domain.RoleManager, domain.RoleDepartmentHead},
		DepartmentID: departmentID,
	})
}

// notify creates one row per distinct recipient, skipping the actor, and
// synchronously invalidates each recipient's unread-count cache entry.
func (s *NotificationService) notify(ctx context.Context, recipients []string, actorID, title, message string, notificationType domain.NotificationType, related *domain.RelatedEntity) error {
	seen := make(map[string]struct{}, len(recipients))
	var firstErr error
	for _, userID := range recipients {
		if userID == "" || userID == actorID {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		n := &domain.Notification{
			UserID:  userID,
			Title:   title,
			Message: message,
			Type:    notificationType,
			Related: related,
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			s.logger.Error("notification create failed",
				zap.String("user_id", userID),
				zap.String("type", string(notificationType)),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if s.cache != nil {
			s.cache.Invalidate(ctx, userID)
		}
	}
	return firstErr
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, int, error) {
	notifications, total, err := s.notifications.ListByUser(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return notifications, total, nil
}

// UnreadCount serves the badge counter, consulting the cache first.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	if s.cache != nil {
		if count, hit := s.cache.Get(ctx, userID); hit {
			return count, nil
		}
	}
	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, userID, count)
	}
	return count, nil
}

// MarkRead marks one of the caller's notifications read. Already-read rows
// keep their original ReadAt.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (*domain.Notification, error) {
	n, err := s.notifications.MarkRead(ctx, id, userID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("notification", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
	return n, nil
}

// MarkAllRead marks every unread notification of the caller read and returns
// how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	count, err := s.notifications.MarkAllRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
	return count, nil
}

// Delete removes one of the caller's notifications.
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	if err := s.notifications.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
	return nil
}

func userIDs(users []domain.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}
