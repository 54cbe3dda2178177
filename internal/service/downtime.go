package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
)

// DowntimeTracker maintains derived downtime state on equipment records as
// their status changes.
type DowntimeTracker struct {
	logger *zap.Logger
}

// NewDowntimeTracker constructs the tracker.
func NewDowntimeTracker(logger *zap.Logger) *DowntimeTracker {
	return &DowntimeTracker{logger: logger}
}

// ApplyStatusChange mutates eq for the transition to newStatus at time now
// and returns the minutes accumulated by a closing downtime episode (zero
// when no episode ended).
//
// Entering OUT_OF_SERVICE starts an episode; it is a no-op if one is
// already open. Leaving OUT_OF_SERVICE closes the episode and adds the
// elapsed whole minutes to TotalDowntimeMinutes. Negative durations from
// clock skew are clamped to zero and logged rather than rejected.
func (t *DowntimeTracker) ApplyStatusChange(eq *domain.Equipment, newStatus domain.EquipmentStatus, now time.Time) int64 {
	oldStatus := eq.Status
	eq.Status = newStatus

	entering := newStatus == domain.EquipmentStatusOutOfService && oldStatus != domain.EquipmentStatusOutOfService
	leaving := oldStatus == domain.EquipmentStatusOutOfService && newStatus != domain.EquipmentStatusOutOfService

	switch {
	case entering:
		if eq.IsCurrentlyDown {
			return 0
		}
		start := now
		eq.IsCurrentlyDown = true
		eq.LastDowntimeStart = &start
	case leaving:
		if !eq.IsCurrentlyDown || eq.LastDowntimeStart == nil {
			eq.IsCurrentlyDown = false
			eq.LastDowntimeStart = nil
			return 0
		}
		minutes := int64(now.Sub(*eq.LastDowntimeStart).Minutes())
		if minutes < 0 {
			t.logger.Warn("negative downtime duration clamped to zero",
				zap.String("equipment_id", eq.ID),
				zap.Time("downtime_start", *eq.LastDowntimeStart),
				zap.Time("now", now))
			minutes = 0
		}
		eq.TotalDowntimeMinutes += minutes
		eq.IsCurrentlyDown = false
		eq.LastDowntimeStart = nil
		return minutes
	}
	return 0
}
