package domain

import "time"

// Department represents a high-level organizational unit. HeadUserID,
// when set, receives notifications for tickets created in the department.
type Department struct {
	ID          string
	Name        string
	Description string
	HeadUserID  *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
