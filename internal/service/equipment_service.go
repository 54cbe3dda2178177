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
	"github.com/spec-kit/equipment-maintenance/internal/domain"
	"github.com/spec-kit/equipment-maintenance/internal/events"
	"github.com/spec-kit/equipment-maintenance/internal/repository"
	apperrors "github.com/spec-kit/equipment-maintenance/pkg/util"
)

// CreateEquipmentInput carries caller-supplied equipment fields.
type CreateEquipmentInput struct {
	AssetTag     string
	DeviceName   string
	SerialNumber *string
	DepartmentID *string
	Criticality  domain.Criticality
}

// EquipmentService owns the equipment registry and its downtime bookkeeping.
type EquipmentService struct {
	equipment   repository.EquipmentRepository
	logs        repository.EquipmentLogRepository
	departments repository.DepartmentRepository
	downtime    *DowntimeTracker
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// NewEquipmentService wires the service.
func NewEquipmentService(
	equipment repository.EquipmentRepository,
	logs repository.EquipmentLogRepository,
	departments repository.DepartmentRepository,
	downtime *DowntimeTracker,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *EquipmentService {
	return &EquipmentService{
		equipment:   equipment,
		logs:        logs,
		departments: departments,
		downtime:    downtime,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// Create registers a device.
func (s *EquipmentService) Create(ctx context.Context, actor *domain.User, input CreateEquipmentInput) (*domain.Equipment, error) {
	if !auth.Has(actor.Role, auth.CapManageEquipment) {
		return nil, apperrors.NewForbidden("role cannot manage equipment")
	}
	if strings.TrimSpace(input.AssetTag) == "" {
		return nil, apperrors.NewValidationError("asset_tag is required", nil)
	}
	if strings.TrimSpace(input.DeviceName) == "" {
		return nil, apperrors.NewValidationError("device_name is required", nil)
	}
	criticality := input.Criticality
	if criticality == "" {
		criticality = domain.CriticalityMedium
	}
	if !validCriticality(criticality) {
		return nil, apperrors.NewValidationError("invalid criticality", map[string]any{"criticality": criticality})
	}
	if input.DepartmentID != nil {
		if _, err := s.departments.GetByID(ctx, *input.DepartmentID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("department", map[string]any{"id": *input.DepartmentID})
			}
			return nil, apperrors.MapError(err)
		}
	}

	eq := &domain.Equipment{
		AssetTag:     strings.TrimSpace(input.AssetTag),
		DeviceName:   strings.TrimSpace(input.DeviceName),
		SerialNumber: input.SerialNumber,
		Status:       domain.EquipmentStatusActive,
		DepartmentID: input.DepartmentID,
		Criticality:  criticality,
	}
	if err := s.equipment.Create(ctx, eq); err != nil {
		return nil, apperrors.MapError(err)
	}
	return eq, nil
}

// Get fetches a device.
func (s *EquipmentService) Get(ctx context.Context, id string) (*domain.Equipment, error) {
	eq, err := s.equipment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("equipment", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return eq, nil
}

// List returns devices matching the filter.
func (s *EquipmentService) List(ctx context.Context, filter repository.EquipmentFilter) ([]domain.Equipment, error) {
	result, err := s.equipment.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// UpdateStatus moves a device between operational states, maintaining the
// downtime episode bookkeeping and appending a history entry.
//
// Entering OUT_OF_SERVICE opens a downtime episode; leaving it closes the
// episode and adds its minutes to the running total. Setting the current
// status again is a no-op.
func (s *EquipmentService) UpdateStatus(ctx context.Context, actor *domain.User, id string, newStatus domain.EquipmentStatus, note *string) (*domain.Equipment, error) {
	if !auth.Has(actor.Role, auth.CapUpdateEquipmentStatus) {
		return nil, apperrors.NewForbidden("role cannot update equipment status")
	}
	if !validEquipmentStatus(newStatus) {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}

	eq, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if eq.Status == newStatus {
		return eq, nil
	}

	now := time.Now().UTC()
	oldStatus := eq.Status
	minutes := s.downtime.ApplyStatusChange(eq, newStatus, now)

	if err := s.equipment.Update(ctx, eq); err != nil {
		return nil, apperrors.MapError(err)
	}

	logType := domain.LogTypeService
	if newStatus == domain.EquipmentStatusOutOfService {
		logType = domain.LogTypeIncident
	}
	actorID := actor.ID
	entry := &domain.EquipmentLog{
		EquipmentID:     eq.ID,
		CreatedByUserID: &actorID,
		LogType:         logType,
		Title:           fmt.Sprintf("Status changed from %s to %s", oldStatus, newStatus),
		Description:     note,
		DowntimeMinutes: minutes,
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		s.logger.Warn("equipment log append failed",
			zap.String("equipment_id", eq.ID),
			zap.Error(err))
	}

	publish(ctx, s.dispatcher, s.logger, actor.ID, events.EventEquipmentStatusChanged, events.EquipmentStatusChangedPayload{
		EquipmentID:  eq.ID,
		AssetTag:     eq.AssetTag,
		DeviceName:   eq.DeviceName,
		DepartmentID: eq.DepartmentID,
		OldStatus:    oldStatus,
		NewStatus:    newStatus,
	})
	return eq, nil
}

// ListLogs returns the device history, newest first.
func (s *EquipmentService) ListLogs(ctx context.Context, id string, limit, offset int) ([]domain.EquipmentLog, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.logs.ListByEquipment(ctx, id, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func validEquipmentStatus(status domain.EquipmentStatus) bool {
	switch status {
	case domain.EquipmentStatusActive, domain.EquipmentStatusOutOfService, domain.EquipmentStatusRetired:
		return true
	}
	return false
}

func validCriticality(criticality domain.Criticality) bool {
	switch criticality {
	case domain.CriticalityLow, domain.CriticalityMedium, domain.CriticalityHigh, domain.CriticalityCritical:
		return true
	}
	return false
}
