package domain

import "time"

// EquipmentStatus enumerates operational states for a device.
type EquipmentStatus string

const (
	EquipmentStatusActive       EquipmentStatus = "ACTIVE"
	EquipmentStatusOutOfService EquipmentStatus = "OUT_OF_SERVICE"
	EquipmentStatusRetired      EquipmentStatus = "RETIRED"
)

// Criticality ranks how essential a device is to operations.
type Criticality string

const (
	CriticalityLow      Criticality = "LOW"
	CriticalityMedium   Criticality = "MEDIUM"
	CriticalityHigh     Criticality = "HIGH"
	CriticalityCritical Criticality = "CRITICAL"
)

// Equipment is a tracked device.
//
// RepairCount counts every distinct entry of a related ticket into RESOLVED.
// TotalDowntimeMinutes accumulates closed downtime episodes; an open episode
// is represented by IsCurrentlyDown with LastDowntimeStart set and is not
// part of the total until it closes.
type Equipment struct {
	ID                   string
	AssetTag             string
	DeviceName           string
	SerialNumber         *string
	Status               EquipmentStatus
	DepartmentID         *string
	Criticality          Criticality
	RepairCount          int
	TotalDowntimeMinutes int64
	IsCurrentlyDown      bool
	LastDowntimeStart    *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// EquipmentLogType tags equipment history entries.
type EquipmentLogType string

const (
	LogTypeService               EquipmentLogType = "SERVICE"
	LogTypeIncident              EquipmentLogType = "INCIDENT"
	LogTypePreventiveMaintenance EquipmentLogType = "PREVENTIVE_MAINTENANCE"
	LogTypeNote                  EquipmentLogType = "NOTE"
)

// EquipmentLog is an append-only history entry for a device.
type EquipmentLog struct {
	ID              string
	EquipmentID     string
	CreatedByUserID *string
	LogType         EquipmentLogType
	Title           string
	Description     *string
	DowntimeMinutes int64
	CreatedAt       time.Time
}
