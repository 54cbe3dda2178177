package domain

import "time"

// MaintenanceClassification buckets a schedule relative to the current time.
type MaintenanceClassification string

const (
	MaintenanceInactive  MaintenanceClassification = "INACTIVE"
	MaintenanceOverdue   MaintenanceClassification = "OVERDUE"
	MaintenanceDueSoon   MaintenanceClassification = "DUE_SOON"
	MaintenanceScheduled MaintenanceClassification = "SCHEDULED"
)

// MaintenanceSchedule describes recurring preventive maintenance for a piece
// of equipment. The referenced equipment must belong to a department at
// creation time.
//
// OverdueNotifiedFor is the dedup watermark: it records the
// NextMaintenanceDate for which an overdue notification has already been
// emitted, so repeated sweep runs stay silent until the next completion
// advances the due date.
type MaintenanceSchedule struct {
	ID                  string
	EquipmentID         string
	MaintenanceType     string
	FrequencyDays       int
	LastMaintenanceDate *time.Time
	NextMaintenanceDate time.Time
	AssignedToUserID    *string
	Notes               *string
	Active              bool
	OverdueNotifiedFor  *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// MaintenanceStats aggregates dashboard counts over active schedules.
type MaintenanceStats struct {
	TotalActive   int
	Overdue       int
	UpcomingWeek  int
	UpcomingMonth int
}
