package dto

import (
	"time"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
)

// CreateMaintenanceRequest payload.
type CreateMaintenanceRequest struct {
	EquipmentID         string     `json:"equipment_id"`
	MaintenanceType     string     `json:"maintenance_type"`
	FrequencyDays       int        `json:"frequency_days"`
	NextMaintenanceDate *time.Time `json:"next_maintenance_date"`
	AssignedToUserID    *string    `json:"assigned_to_user_id"`
	Notes               *string    `json:"notes"`
}

// UpdateMaintenanceRequest payload. Omitted fields keep their value.
type UpdateMaintenanceRequest struct {
	MaintenanceType     *string    `json:"maintenance_type"`
	FrequencyDays       *int       `json:"frequency_days"`
	NextMaintenanceDate *time.Time `json:"next_maintenance_date"`
	AssignedToUserID    *string    `json:"assigned_to_user_id"`
	Notes               *string    `json:"notes"`
	Active              *bool      `json:"is_active"`
}

// MaintenanceResponse is the full schedule representation, including the
// dashboard classification computed at response time.
type MaintenanceResponse struct {
	ID                  string                           `json:"id"`
	EquipmentID         string                           `json:"equipment_id"`
	MaintenanceType     string                           `json:"maintenance_type"`
	FrequencyDays       int                              `json:"frequency_days"`
	LastMaintenanceDate *time.Time                       `json:"last_maintenance_date"`
	NextMaintenanceDate time.Time                        `json:"next_maintenance_date"`
	AssignedToUserID    *string                          `json:"assigned_to_user_id"`
	Notes               *string                          `json:"notes"`
	Active              bool                             `json:"is_active"`
	Classification      domain.MaintenanceClassification `json:"classification"`
	CreatedAt           time.Time                        `json:"created_at"`
	UpdatedAt           time.Time                        `json:"updated_at"`
}

// MaintenanceStatsResponse aggregates dashboard counters.
type MaintenanceStatsResponse struct {
	TotalActive   int `json:"total_active"`
	Overdue       int `json:"overdue"`
	UpcomingWeek  int `json:"upcoming_week"`
	UpcomingMonth int `json:"upcoming_month"`
}
