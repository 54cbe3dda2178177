package dto

import (
	"time"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
)

// CreateEquipmentRequest payload.
type CreateEquipmentRequest struct {
	AssetTag     string             `json:"asset_tag"`
	DeviceName   string             `json:"device_name"`
	SerialNumber *string            `json:"serial_number"`
	DepartmentID *string            `json:"department_id"`
	Criticality  domain.Criticality `json:"criticality"`
}

// UpdateEquipmentStatusRequest payload.
type UpdateEquipmentStatusRequest struct {
	Status domain.EquipmentStatus `json:"status"`
	Note   *string                `json:"note"`
}

// EquipmentResponse is the full equipment representation.
type EquipmentResponse struct {
	ID                   string                 `json:"id"`
	AssetTag             string                 `json:"asset_tag"`
	DeviceName           string                 `json:"device_name"`
	SerialNumber         *string                `json:"serial_number"`
	Status               domain.EquipmentStatus `json:"status"`
	DepartmentID         *string                `json:"department_id"`
	Criticality          domain.Criticality     `json:"criticality"`
	RepairCount          int                    `json:"repair_count"`
	TotalDowntimeMinutes int64                  `json:"total_downtime_minutes"`
	IsCurrentlyDown      bool                   `json:"is_currently_down"`
	LastDowntimeStart    *time.Time             `json:"last_downtime_start"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// EquipmentLogResponse is one history entry.
type EquipmentLogResponse struct {
	ID              string                  `json:"id"`
	EquipmentID     string                  `json:"equipment_id"`
	CreatedByUserID *string                 `json:"created_by_user_id"`
	LogType         domain.EquipmentLogType `json:"log_type"`
	Title           string                  `json:"title"`
	Description     *string                 `json:"description"`
	DowntimeMinutes int64                   `json:"downtime_minutes"`
	CreatedAt       time.Time               `json:"created_at"`
}
