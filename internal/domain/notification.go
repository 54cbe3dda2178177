package domain

import "time"

// NotificationType tags the event a notification originated from.
type NotificationType string

const (
	NotificationTicketCreated          NotificationType = "ticket_created"
	NotificationTicketAssigned         NotificationType = "ticket_assigned"
	NotificationTicketStatusChanged    NotificationType = "ticket_status_changed"
	NotificationEquipmentStatusChanged NotificationType = "equipment_status_changed"
	NotificationMaintenanceCompleted   NotificationType = "maintenance_completed"
	NotificationMaintenanceOverdue     NotificationType = "maintenance_overdue"
)

// RelatedEntity points a notification at the record that produced it.
type RelatedEntity struct {
	Type string
	ID   string
}

// Notification is a per-recipient message row. After creation it is only
// mutated through mark-read or deleted by its recipient; recipients never
// share rows. ReadAt is present iff IsRead.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Type      NotificationType
	Related   *RelatedEntity
	IsRead    bool
	CreatedAt time.Time
	ReadAt    *time.Time
}
