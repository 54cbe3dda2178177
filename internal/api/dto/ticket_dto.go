package dto

import (
	"time"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	EquipmentID string                `json:"equipment_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// TransitionTicketRequest payload.
type TransitionTicketRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID               string                `json:"id"`
	TicketCode       string                `json:"ticket_code"`
	EquipmentID      string                `json:"equipment_id"`
	DepartmentID     string                `json:"department_id"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Status           domain.TicketStatus   `json:"status"`
	Priority         domain.TicketPriority `json:"priority"`
	ReportedByUserID string                `json:"reported_by_user_id"`
	AssignedToUserID *string               `json:"assigned_to_user_id"`
	CompletedOn      *time.Time            `json:"completed_on"`
	Version          int                   `json:"version"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}
