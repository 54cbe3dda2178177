package domain

import "time"

// TicketStatus enumerates lifecycle states for service tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Ticket is the aggregate for equipment service requests.
//
// CompletedOn is set exactly once, on the first transition into RESOLVED,
// and never changes afterwards. Version backs optimistic locking: two
// concurrent transitions on the same ticket cannot both succeed.
type Ticket struct {
	ID               string
	TicketCode       string
	EquipmentID      string
	DepartmentID     string
	Title            string
	Description      string
	Status           TicketStatus
	Priority         TicketPriority
	ReportedByUserID string
	AssignedToUserID *string
	CompletedOn      *time.Time
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
