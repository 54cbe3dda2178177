package events

import (
	"time"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketAssigned         EventType = "ticket_assigned"
	EventEquipmentStatusChanged EventType = "equipment_status_changed"
	EventMaintenanceCompleted   EventType = "maintenance_completed"
	EventMaintenanceOverdue     EventType = "maintenance_overdue"
)

// Event represents a domain event emitted by services. ActorUserID is empty
// for events raised by the background sweep.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	ActorUserID string      `json:"actor_user_id,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketID     string                `json:"ticket_id"`
	TicketCode   string                `json:"ticket_code"`
	Title        string                `json:"title"`
	DepartmentID string                `json:"department_id"`
	Priority     domain.TicketPriority `json:"priority"`
	ReporterID   string                `json:"reporter_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	TicketID   string              `json:"ticket_id"`
	TicketCode string              `json:"ticket_code"`
	Title      string              `json:"title"`
	ReporterID string              `json:"reporter_id"`
	AssigneeID *string             `json:"assignee_id,omitempty"`
	OldStatus  domain.TicketStatus `json:"old_status"`
	NewStatus  domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	TicketID   string `json:"ticket_id"`
	TicketCode string `json:"ticket_code"`
	Title      string `json:"title"`
	AssigneeID string `json:"assignee_id"`
}

// EquipmentStatusChangedPayload payload.
type EquipmentStatusChangedPayload struct {
	EquipmentID  string                 `json:"equipment_id"`
	AssetTag     string                 `json:"asset_tag"`
	DeviceName   string                 `json:"device_name"`
	DepartmentID *string                `json:"department_id,omitempty"`
	OldStatus    domain.EquipmentStatus `json:"old_status"`
	NewStatus    domain.EquipmentStatus `json:"new_status"`
}

// MaintenanceCompletedPayload payload.
type MaintenanceCompletedPayload struct {
	ScheduleID      string  `json:"schedule_id"`
	EquipmentID     string  `json:"equipment_id"`
	DeviceName      string  `json:"device_name"`
	DepartmentID    *string `json:"department_id,omitempty"`
	MaintenanceType string  `json:"maintenance_type"`
	AssigneeID      *string `json:"assignee_id,omitempty"`
}

// MaintenanceOverduePayload payload. DueDate is the next_maintenance_date
// the sweep recorded as the dedup watermark.
type MaintenanceOverduePayload struct {
	ScheduleID      string    `json:"schedule_id"`
	EquipmentID     string    `json:"equipment_id"`
	DeviceName      string    `json:"device_name"`
	DepartmentID    *string   `json:"department_id,omitempty"`
	MaintenanceType string    `json:"maintenance_type"`
	AssigneeID      *string   `json:"assignee_id,omitempty"`
	DueDate         time.Time `json:"due_date"`
	OverdueDays     int       `json:"overdue_days"`
}
