package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/equipment-maintenance/internal/auth"
	"github.com/spec-kit/equipment-maintenance/internal/config"
	"github.com/spec-kit/equipment-maintenance/internal/domain"
	"github.com/spec-kit/equipment-maintenance/internal/events"
	"github.com/spec-kit/equipment-maintenance/internal/observability"
	"github.com/spec-kit/equipment-maintenance/internal/repository"
	apperrors "github.com/spec-kit/equipment-maintenance/pkg/util"
)

// CreateMaintenanceInput carries caller-supplied schedule fields.
type CreateMaintenanceInput struct {
	EquipmentID         string
	MaintenanceType     string
	FrequencyDays       int
	NextMaintenanceDate *time.Time
	AssignedToUserID    *string
	Notes               *string
}

// UpdateMaintenanceInput carries the mutable schedule fields. Nil pointers
// leave the current value untouched.
type UpdateMaintenanceInput struct {
	MaintenanceType     *string
	FrequencyDays       *int
	NextMaintenanceDate *time.Time
	AssignedToUserID    *string
	Notes               *string
	Active              *bool
}

// MaintenanceService owns preventive maintenance schedules, their dashboard
// classification and the overdue sweep.
type MaintenanceService struct {
	schedules  repository.MaintenanceRepository
	equipment  repository.EquipmentRepository
	logs       repository.EquipmentLogRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	cfg        config.SchedulerConfig
	logger     *zap.Logger
}

// NewMaintenanceService wires the service.
func NewMaintenanceService(
	schedules repository.MaintenanceRepository,
	equipment repository.EquipmentRepository,
	logs repository.EquipmentLogRepository,
	dispatcher events.Dispatcher,
	metrics *observability.Metrics,
	cfg config.SchedulerConfig,
	logger *zap.Logger,
) *MaintenanceService {
	return &MaintenanceService{
		schedules:  schedules,
		equipment:  equipment,
		logs:       logs,
		dispatcher: dispatcher,
		metrics:    metrics,
		cfg:        cfg,
		logger:     logger,
	}
}

// Create registers a recurring schedule. The equipment must exist and belong
// to a department so overdue notifications always have a fallback audience.
func (s *MaintenanceService) Create(ctx context.Context, actor *domain.User, input CreateMaintenanceInput) (*domain.MaintenanceSchedule, error) {
	if !auth.Has(actor.Role, auth.CapCreateMaintenance) {
		return nil, apperrors.NewForbidden("role cannot create maintenance schedules")
	}
	if strings.TrimSpace(input.MaintenanceType) == "" {
		return nil, apperrors.NewValidationError("maintenance_type is required", nil)
	}
	if input.FrequencyDays <= 0 {
		return nil, apperrors.NewValidationError("frequency_days must be positive", map[string]any{"frequency_days": input.FrequencyDays})
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

	next := time.Now().UTC().AddDate(0, 0, input.FrequencyDays)
	if input.NextMaintenanceDate != nil {
		next = *input.NextMaintenanceDate
	}

	schedule := &domain.MaintenanceSchedule{
		EquipmentID:         eq.ID,
		MaintenanceType:     strings.TrimSpace(input.MaintenanceType),
		FrequencyDays:       input.FrequencyDays,
		NextMaintenanceDate: next,
		AssignedToUserID:    input.AssignedToUserID,
		Notes:               input.Notes,
		Active:              true,
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return schedule, nil
}

// Get fetches a schedule.
func (s *MaintenanceService) Get(ctx context.Context, id string) (*domain.MaintenanceSchedule, error) {
	schedule, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("maintenance schedule", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return schedule, nil
}

// Update edits schedule fields. Changing frequency_days does not move the
// current due date; the new cadence takes effect at the next completion.
func (s *MaintenanceService) Update(ctx context.Context, actor *domain.User, id string, input UpdateMaintenanceInput) (*domain.MaintenanceSchedule, error) {
	if !auth.Has(actor.Role, auth.CapCreateMaintenance) {
		return nil, apperrors.NewForbidden("role cannot manage maintenance schedules")
	}
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.MaintenanceType != nil {
		if strings.TrimSpace(*input.MaintenanceType) == "" {
			return nil, apperrors.NewValidationError("maintenance_type cannot be empty", nil)
		}
		schedule.MaintenanceType = strings.TrimSpace(*input.MaintenanceType)
	}
	if input.FrequencyDays != nil {
		if *input.FrequencyDays <= 0 {
			return nil, apperrors.NewValidationError("frequency_days must be positive", map[string]any{"frequency_days": *input.FrequencyDays})
		}
		schedule.FrequencyDays = *input.FrequencyDays
	}
	if input.NextMaintenanceDate != nil {
		schedule.NextMaintenanceDate = *input.NextMaintenanceDate
	}
	if input.AssignedToUserID != nil {
		schedule.AssignedToUserID = input.AssignedToUserID
	}
	if input.Notes != nil {
		schedule.Notes = input.Notes
	}
	if input.Active != nil {
		schedule.Active = *input.Active
	}

	if err := s.schedules.Update(ctx, schedule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return schedule, nil
}

// List returns schedules, with department-bound roles scoped to their own
// department.
func (s *MaintenanceService) List(ctx context.Context, actor *domain.User, filter repository.MaintenanceFilter) ([]domain.MaintenanceSchedule, int, error) {
	if !auth.Has(actor.Role, auth.CapViewAllTickets) && actor.DepartmentID != nil {
		filter.DepartmentID = actor.DepartmentID
	}
	schedules, total, err := s.schedules.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return schedules, total, nil
}

// Complete records a maintenance run: last moves to now, next moves to
// now plus the frequency, and the device history gains an entry. Advancing
// the due date also re-arms the overdue sweep for the new date.
func (s *MaintenanceService) Complete(ctx context.Context, actor *domain.User, id string, now time.Time) (*domain.MaintenanceSchedule, error) {
	if !auth.Has(actor.Role, auth.CapCompleteMaintenance) {
		return nil, apperrors.NewForbidden("role cannot complete maintenance")
	}
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !schedule.Active {
		return nil, apperrors.NewValidationError("schedule is inactive", map[string]any{"id": schedule.ID})
	}

	completed := now
	schedule.LastMaintenanceDate = &completed
	schedule.NextMaintenanceDate = now.AddDate(0, 0, schedule.FrequencyDays)

	if err := s.schedules.Update(ctx, schedule); err != nil {
		return nil, apperrors.MapError(err)
	}

	eq, err := s.equipment.GetByID(ctx, schedule.EquipmentID)
	if err != nil {
		s.logger.Warn("equipment lookup failed after maintenance completion",
			zap.String("schedule_id", schedule.ID),
			zap.Error(err))
		return schedule, nil
	}

	actorID := actor.ID
	entry := &domain.EquipmentLog{
		EquipmentID:     eq.ID,
		CreatedByUserID: &actorID,
		LogType:         domain.LogTypePreventiveMaintenance,
		Title:           fmt.Sprintf("%s maintenance completed", schedule.MaintenanceType),
		Description:     schedule.Notes,
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		s.logger.Warn("equipment log append failed",
			zap.String("equipment_id", eq.ID),
			zap.Error(err))
	}

	publish(ctx, s.dispatcher, s.logger, actor.ID, events.EventMaintenanceCompleted, events.MaintenanceCompletedPayload{
		ScheduleID:      schedule.ID,
		EquipmentID:     eq.ID,
		DeviceName:      eq.DeviceName,
		DepartmentID:    eq.DepartmentID,
		MaintenanceType: schedule.MaintenanceType,
		AssigneeID:      schedule.AssignedToUserID,
	})
	return schedule, nil
}

// Classify buckets a schedule for dashboards. Inactive wins over every date
// comparison.
func (s *MaintenanceService) Classify(schedule *domain.MaintenanceSchedule, now time.Time) domain.MaintenanceClassification {
	if !schedule.Active {
		return domain.MaintenanceInactive
	}
	if schedule.NextMaintenanceDate.Before(now) {
		return domain.MaintenanceOverdue
	}
	dueSoon := now.AddDate(0, 0, s.cfg.DueSoonDays)
	if !schedule.NextMaintenanceDate.After(dueSoon) {
		return domain.MaintenanceDueSoon
	}
	return domain.MaintenanceScheduled
}

// Stats aggregates dashboard counts over active schedules.
func (s *MaintenanceService) Stats(ctx context.Context, now time.Time) (*domain.MaintenanceStats, error) {
	stats, err := s.schedules.Stats(ctx, now, s.cfg.DueSoonDays, s.cfg.UpcomingDays)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}

// RunOverdueSweep claims every overdue schedule not yet notified for its
// current due date and emits one maintenance_overdue event per claim. The
// claim is a single guarded update, so concurrent sweeps and repeated runs
// cannot double-notify; a failure on one schedule does not stop the rest.
func (s *MaintenanceService) RunOverdueSweep(ctx context.Context, now time.Time) (int, error) {
	claimed, err := s.schedules.ClaimOverdue(ctx, now)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	s.metrics.RecordSweep(len(claimed))

	for i := range claimed {
		schedule := &claimed[i]
		eq, err := s.equipment.GetByID(ctx, schedule.EquipmentID)
		if err != nil {
			s.logger.Error("overdue sweep: equipment lookup failed",
				zap.String("schedule_id", schedule.ID),
				zap.String("equipment_id", schedule.EquipmentID),
				zap.Error(err))
			continue
		}
		overdueDays := int(now.Sub(schedule.NextMaintenanceDate).Hours() / 24)
		publish(ctx, s.dispatcher, s.logger, "", events.EventMaintenanceOverdue, events.MaintenanceOverduePayload{
			ScheduleID:      schedule.ID,
			EquipmentID:     eq.ID,
			DeviceName:      eq.DeviceName,
			DepartmentID:    eq.DepartmentID,
			MaintenanceType: schedule.MaintenanceType,
			AssigneeID:      schedule.AssignedToUserID,
			DueDate:         schedule.NextMaintenanceDate,
			OverdueDays:     overdueDays,
		})
	}
	return len(claimed), nil
}
