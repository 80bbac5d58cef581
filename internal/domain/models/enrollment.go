package models

import (
	"time"
)

// Enrollment represents a local record of a course enrollment. The OpenEdX
// enrollment API is the source of truth; rows here are written after a remote
// enroll succeeds and can be refreshed from the remote list.
type Enrollment struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	CourseID     string     `json:"course_id"`
	Mode         string     `json:"mode"`
	Status       string     `json:"status"`
	IsActive     bool       `json:"is_active"`
	EnrolledAt   time.Time  `json:"enrolled_at"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
