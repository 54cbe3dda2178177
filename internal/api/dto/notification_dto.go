package dto

import (
	"time"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
)

// NotificationResponse is one inbox entry.
type NotificationResponse struct {
	ID                string                  `json:"id"`
	Title             string                  `json:"title"`
	Message           string                  `json:"message"`
	Type              domain.NotificationType `json:"type"`
	RelatedEntityType *string                 `json:"related_entity_type"`
	RelatedEntityID   *string                 `json:"related_entity_id"`
	IsRead            bool                    `json:"is_read"`
	CreatedAt         time.Time               `json:"created_at"`
	ReadAt            *time.Time              `json:"read_at"`
}

// UnreadCountResponse is the badge counter.
type UnreadCountResponse struct {
	Count int `json:"count"`
}
