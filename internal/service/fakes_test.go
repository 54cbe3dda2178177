package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
	"github.com/spec-kit/equipment-maintenance/internal/repository"
)

// In-memory repository fakes. Missing rows surface as pgx.ErrNoRows to match
// the real implementations.

type fakeUserRepo struct {
	users map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]domain.User)}
}

func (r *fakeUserRepo) add(u domain.User) domain.User {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	r.users[u.ID] = u
	return u
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (r *fakeUserRepo) ListActive(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	var result []domain.User
	for _, u := range r.users {
		if !u.Active {
			continue
		}
		if len(filter.Roles) > 0 && !roleIn(u.Role, filter.Roles) {
			continue
		}
		if filter.DepartmentID != nil {
			if u.DepartmentID == nil || *u.DepartmentID != *filter.DepartmentID {
				continue
			}
		}
		result = append(result, u)
	}
	return result, nil
}

func roleIn(role domain.Role, roles []domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

type fakeDepartmentRepo struct {
	departments map[string]domain.Department
}

func newFakeDepartmentRepo() *fakeDepartmentRepo {
	return &fakeDepartmentRepo{departments: make(map[string]domain.Department)}
}

func (r *fakeDepartmentRepo) add(d domain.Department) domain.Department {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	r.departments[d.ID] = d
	return d
}

func (r *fakeDepartmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	d, ok := r.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &d, nil
}

func (r *fakeDepartmentRepo) List(_ context.Context) ([]domain.Department, error) {
	var result []domain.Department
	for _, d := range r.departments {
		result = append(result, d)
	}
	return result, nil
}

type fakeEquipmentRepo struct {
	equipment map[string]domain.Equipment
}

func newFakeEquipmentRepo() *fakeEquipmentRepo {
	return &fakeEquipmentRepo{equipment: make(map[string]domain.Equipment)}
}

func (r *fakeEquipmentRepo) add(eq domain.Equipment) domain.Equipment {
	if eq.ID == "" {
		eq.ID = uuid.NewString()
	}
	r.equipment[eq.ID] = eq
	return eq
}

func (r *fakeEquipmentRepo) Create(_ context.Context, eq *domain.Equipment) error {
	eq.ID = uuid.NewString()
	eq.CreatedAt = time.Now().UTC()
	eq.UpdatedAt = eq.CreatedAt
	r.equipment[eq.ID] = *eq
	return nil
}

func (r *fakeEquipmentRepo) Update(_ context.Context, eq *domain.Equipment) error {
	if _, ok := r.equipment[eq.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.equipment[eq.ID] = *eq
	return nil
}

func (r *fakeEquipmentRepo) GetByID(_ context.Context, id string) (*domain.Equipment, error) {
	eq, ok := r.equipment[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &eq, nil
}

func (r *fakeEquipmentRepo) ListWithFilter(_ context.Context, filter repository.EquipmentFilter) ([]domain.Equipment, error) {
	var result []domain.Equipment
	for _, eq := range r.equipment {
		if filter.DepartmentID != nil {
			if eq.DepartmentID == nil || *eq.DepartmentID != *filter.DepartmentID {
				continue
			}
		}
		result = append(result, eq)
	}
	return result, nil
}

type fakeEquipmentLogRepo struct {
	entries []domain.EquipmentLog
}

func (r *fakeEquipmentLogRepo) Create(_ context.Context, entry *domain.EquipmentLog) error {
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeEquipmentLogRepo) ListByEquipment(_ context.Context, equipmentID string, _, _ int) ([]domain.EquipmentLog, error) {
	var result []domain.EquipmentLog
	for _, entry := range r.entries {
		if entry.EquipmentID == equipmentID {
			result = append(result, entry)
		}
	}
	return result, nil
}

// fakeTicketRepo mirrors the version-guarded update semantics of the real
// repository, including the transactional equipment write.
type fakeTicketRepo struct {
	tickets   map[string]domain.Ticket
	equipment *fakeEquipmentRepo
	logs      *fakeEquipmentLogRepo
}

func newFakeTicketRepo(equipment *fakeEquipmentRepo, logs *fakeEquipmentLogRepo) *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]domain.Ticket), equipment: equipment, logs: logs}
}

func (r *fakeTicketRepo) add(t domain.Ticket) domain.Ticket {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Version == 0 {
		t.Version = 1
	}
	r.tickets[t.ID] = t
	return t
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = uuid.NewString()
	ticket.Version = 1
	ticket.CreatedAt = time.Now().UTC()
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, t := range r.tickets {
		if filter.ReporterID != nil && t.ReportedByUserID != *filter.ReporterID {
			continue
		}
		if filter.AssigneeID != nil {
			if t.AssignedToUserID == nil || *t.AssignedToUserID != *filter.AssigneeID {
				continue
			}
		}
		if filter.DepartmentID != nil && t.DepartmentID != *filter.DepartmentID {
			continue
		}
		if len(filter.Statuses) > 0 && !statusIn(t.Status, filter.Statuses) {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

func statusIn(status domain.TicketStatus, statuses []domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (r *fakeTicketRepo) guardedWrite(ticket *domain.Ticket) error {
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	ticket.Version++
	ticket.UpdatedAt = time.Now().UTC()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.guardedWrite(ticket)
}

func (r *fakeTicketRepo) UpdateWithEquipment(ctx context.Context, ticket *domain.Ticket, eq *domain.Equipment, entry *domain.EquipmentLog) error {
	if err := r.guardedWrite(ticket); err != nil {
		return err
	}
	if eq != nil {
		if err := r.equipment.Update(ctx, eq); err != nil {
			return err
		}
	}
	if entry != nil {
		return r.logs.Create(ctx, entry)
	}
	return nil
}

type fakeMaintenanceRepo struct {
	schedules map[string]domain.MaintenanceSchedule
}

func newFakeMaintenanceRepo() *fakeMaintenanceRepo {
	return &fakeMaintenanceRepo{schedules: make(map[string]domain.MaintenanceSchedule)}
}

func (r *fakeMaintenanceRepo) add(s domain.MaintenanceSchedule) domain.MaintenanceSchedule {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	r.schedules[s.ID] = s
	return s
}

func (r *fakeMaintenanceRepo) Create(_ context.Context, schedule *domain.MaintenanceSchedule) error {
	schedule.ID = uuid.NewString()
	schedule.CreatedAt = time.Now().UTC()
	schedule.UpdatedAt = schedule.CreatedAt
	r.schedules[schedule.ID] = *schedule
	return nil
}

func (r *fakeMaintenanceRepo) GetByID(_ context.Context, id string) (*domain.MaintenanceSchedule, error) {
	s, ok := r.schedules[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &s, nil
}

func (r *fakeMaintenanceRepo) Update(_ context.Context, schedule *domain.MaintenanceSchedule) error {
	if _, ok := r.schedules[schedule.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.schedules[schedule.ID] = *schedule
	return nil
}

func (r *fakeMaintenanceRepo) ListWithFilter(_ context.Context, filter repository.MaintenanceFilter) ([]domain.MaintenanceSchedule, int, error) {
	var result []domain.MaintenanceSchedule
	for _, s := range r.schedules {
		if filter.EquipmentID != nil && s.EquipmentID != *filter.EquipmentID {
			continue
		}
		if filter.Active != nil && s.Active != *filter.Active {
			continue
		}
		result = append(result, s)
	}
	return result, len(result), nil
}

func (r *fakeMaintenanceRepo) Stats(_ context.Context, now time.Time, weekDays, monthDays int) (*domain.MaintenanceStats, error) {
	stats := &domain.MaintenanceStats{}
	week := now.AddDate(0, 0, weekDays)
	month := now.AddDate(0, 0, monthDays)
	for _, s := range r.schedules {
		if !s.Active {
			continue
		}
		stats.TotalActive++
		switch {
		case s.NextMaintenanceDate.Before(now):
			stats.Overdue++
		default:
			if !s.NextMaintenanceDate.After(week) {
				stats.UpcomingWeek++
			}
			if !s.NextMaintenanceDate.After(month) {
				stats.UpcomingMonth++
			}
		}
	}
	return stats, nil
}

func (r *fakeMaintenanceRepo) ClaimOverdue(_ context.Context, now time.Time) ([]domain.MaintenanceSchedule, error) {
	var claimed []domain.MaintenanceSchedule
	for id, s := range r.schedules {
		if !s.Active || !s.NextMaintenanceDate.Before(now) {
			continue
		}
		if s.OverdueNotifiedFor != nil && s.OverdueNotifiedFor.Equal(s.NextMaintenanceDate) {
			continue
		}
		watermark := s.NextMaintenanceDate
		s.OverdueNotifiedFor = &watermark
		r.schedules[id] = s
		claimed = append(claimed, s)
	}
	return claimed, nil
}

type fakeNotificationRepo struct {
	notifications []domain.Notification
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, _, _ int) ([]domain.Notification, int, error) {
	var result []domain.Notification
	for _, n := range r.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		result = append(result, n)
	}
	return result, len(result), nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, userID string) (int, error) {
	count := 0
	for _, n := range r.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id, userID string, now time.Time) (*domain.Notification, error) {
	for i := range r.notifications {
		n := &r.notifications[i]
		if n.ID != id || n.UserID != userID {
			continue
		}
		n.IsRead = true
		if n.ReadAt == nil {
			readAt := now
			n.ReadAt = &readAt
		}
		result := *n
		return &result, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, userID string, now time.Time) (int, error) {
	count := 0
	for i := range r.notifications {
		n := &r.notifications[i]
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			readAt := now
			n.ReadAt = &readAt
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) Delete(_ context.Context, id, userID string) error {
	for i, n := range r.notifications {
		if n.ID == id && n.UserID == userID {
			r.notifications = append(r.notifications[:i], r.notifications[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeNotificationRepo) byUser(userID string) []domain.Notification {
	var result []domain.Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	return result
}

// fakeUnreadCache records cache traffic for assertions.
type fakeUnreadCache struct {
	counts       map[string]int
	invalidated  []string
	setCallCount int
}

func newFakeUnreadCache() *fakeUnreadCache {
	return &fakeUnreadCache{counts: make(map[string]int)}
}

func (c *fakeUnreadCache) Get(_ context.Context, userID string) (int, bool) {
	count, ok := c.counts[userID]
	return count, ok
}

func (c *fakeUnreadCache) Set(_ context.Context, userID string, count int) {
	c.counts[userID] = count
	c.setCallCount++
}

func (c *fakeUnreadCache) Invalidate(_ context.Context, userID string) {
	delete(c.counts, userID)
	c.invalidated = append(c.invalidated, userID)
}
