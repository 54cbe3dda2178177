package domain

import "time"

// Department groups users and equipment.
type Department struct {
	ID          string
	Name        string
	Code        *string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
