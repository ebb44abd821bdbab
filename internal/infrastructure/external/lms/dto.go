// Package lms implements the ClassPulse LMS API client.
// This package handles all communication with the LMS platform, including
// fetching student profiles and assignment attempt history.
package lms

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// API RESPONSE WRAPPERS
// ══════════════════════════════════════════════════════════════════════════════

// APIResponse represents a generic API response wrapper.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Meta contains pagination and additional metadata.
type Meta struct {
	Total      int    `json:"total,omitempty"`
	Page       int    `json:"page,omitempty"`
	PerPage    int    `json:"per_page,omitempty"`
	TotalPages int    `json:"total_pages,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// APIErrorDTO represents a structured error response from the LMS API.
type APIErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT DTOs
// ══════════════════════════════════════════════════════════════════════════════

// StudentProfileDTO represents a student as returned by the LMS API.
// This is the external representation that needs to be mapped to our domain model.
type StudentProfileDTO struct {
	// ID is the unique identifier in the LMS platform
	ID string `json:"id"`

	// FirstName is the student's first name
	FirstName string `json:"first_name,omitempty"`

	// LastName is the student's last name
	LastName string `json:"last_name,omitempty"`

	// DisplayName is the name shown to teachers (falls back to first+last)
	DisplayName string `json:"display_name,omitempty"`

	// ClassName is the class the student belongs to (e.g., "5A")
	ClassName string `json:"class_name,omitempty"`

	// IsActive indicates if the student is currently enrolled
	IsActive bool `json:"is_active"`

	// CreatedAt is when the student account was created
	CreatedAt time.Time `json:"created_at"`
}

// FullName returns the student's display name.
func (s *StudentProfileDTO) FullName() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	if s.LastName == "" {
		return s.FirstName
	}
	if s.FirstName == "" {
		return s.LastName
	}
	return s.FirstName + " " + s.LastName
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTEMPT DTOs
// ══════════════════════════════════════════════════════════════════════════════

// AttemptDTO represents a completed assignment attempt as returned by the LMS.
type AttemptDTO struct {
	// ID is the unique attempt identifier
	ID string `json:"id"`

	// StudentID is the student who made the attempt
	StudentID string `json:"student_id"`

	// AssignmentID is the assignment identifier (e.g., "math-fractions-02")
	AssignmentID string `json:"assignment_id"`

	// AssignmentTitle is the human-readable assignment name
	AssignmentTitle string `json:"assignment_title,omitempty"`

	// Subject is the subject the assignment belongs to
	Subject string `json:"subject"`

	// Score is the attempt score on the 0-100 scale
	Score float64 `json:"score"`

	// HintsUsed is the number of hints the student requested
	HintsUsed int `json:"hints_used"`

	// QuestionCount is the number of questions in the assignment
	QuestionCount int `json:"question_count"`

	// TimeSpentSeconds is the active working time. Not every LMS deployment
	// collects timing telemetry, so the field is optional.
	TimeSpentSeconds *int `json:"time_spent_seconds,omitempty"`

	// CompletedAt is when the attempt was submitted
	CompletedAt time.Time `json:"completed_at"`
}

// HintRate returns the hints-per-question rate for the attempt.
// Returns 0 when the assignment has no questions.
func (a *AttemptDTO) HintRate() float64 {
	if a.QuestionCount <= 0 {
		return 0
	}
	rate := float64(a.HintsUsed) / float64(a.QuestionCount)
	if rate > 1.0 {
		return 1.0
	}
	return rate
}

// TimeSpentMinutes returns the time spent in minutes, or nil when the LMS
// did not report timing telemetry.
func (a *AttemptDTO) TimeSpentMinutes() *float64 {
	if a.TimeSpentSeconds == nil {
		return nil
	}
	minutes := float64(*a.TimeSpentSeconds) / 60.0
	return &minutes
}

// AttemptHistoryRequestDTO contains filters for fetching attempt history.
type AttemptHistoryRequestDTO struct {
	StudentID    string
	AssignmentID string
	Subject      string
	Since        *time.Time
	Page         int
	PerPage      int
}
