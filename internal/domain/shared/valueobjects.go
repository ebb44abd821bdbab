// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// StudentID represents a unique student identifier (UUID format).
type StudentID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the student ID is a valid UUID.
func (s StudentID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s StudentID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s StudentID) IsEmpty() bool {
	return s == ""
}

// NewStudentID creates a new StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	sid := StudentID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewStudentID", ErrInvalidID, "invalid student ID format")
	}
	return sid, nil
}

// AssignmentID represents a unique assignment identifier.
type AssignmentID string

/// Assignment ID format: subject-topic-number (e.g., "math-fractions-02").
var assignmentIDRegex = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// IsValid checks if the assignment ID format is valid.
func (a AssignmentID) IsValid() bool {
	s := string(a)
	return len(s) >= 3 && len(s) <= 60 && assignmentIDRegex.MatchString(s)
}

// String returns the string representation.
func (a AssignmentID) String() string {
	return string(a)
}

// IsEmpty checks if the ID is empty.
func (a AssignmentID) IsEmpty() bool {
	return a == ""
}

// NewAssignmentID creates a new AssignmentID with validation.
func NewAssignmentID(id string) (AssignmentID, error) {
	aid := AssignmentID(strings.ToLower(strings.TrimSpace(id)))
	if !aid.IsValid() {
		return "", NewDomainError("shared", "NewAssignmentID", ErrInvalidID, "invalid assignment ID format")
	}
	return aid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Subject Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Subject represents a school subject (e.g., "math", "reading", "science").
type Subject string

// IsValid checks that the subject is not blank.
func (s Subject) IsValid() bool {
	return strings.TrimSpace(string(s)) != ""
}

// String returns the string representation.
func (s Subject) String() string {
	return string(s)
}

// Normalize returns a normalized (lowercase, trimmed) version of the subject.
func (s Subject) Normalize() Subject {
	return Subject(strings.ToLower(strings.TrimSpace(string(s))))
}

// ═══════════════════════════════════════════════════════════════════════════
// Score Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Score represents an assignment score on a 0-100 scale.
type Score float64

const (
	MinScore Score = 0
	MaxScore Score = 100
)

// IsValid checks if the score is within the valid range.
func (s Score) IsValid() bool {
	return s >= MinScore && s <= MaxScore
}

// Float64 returns the underlying float64 value.
func (s Score) Float64() float64 {
	return float64(s)
}

// Clamp returns the score forced into the 0-100 range.
// Out-of-range inputs are a caller bug; the engine stays total by clamping.
func (s Score) Clamp() Score {
	if s < MinScore {
		return MinScore
	}
	if s > MaxScore {
		return MaxScore
	}
	return s
}

// NewScore creates a new Score, clamping out-of-range values.
func NewScore(value float64) Score {
	return Score(value).Clamp()
}

// AverageScore calculates the mean of a slice of scores.
func AverageScore(scores []Score) Score {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range scores {
		sum += float64(s)
	}
	return Score(sum / float64(len(scores)))
}

// ═══════════════════════════════════════════════════════════════════════════
// HintRate Value Object
// ═══════════════════════════════════════════════════════════════════════════

// HintRate represents the fraction of questions on which the student used
// coaching hints, on a 0-1 scale.
type HintRate float64

const (
	MinHintRate HintRate = 0
	MaxHintRate HintRate = 1
)

// IsValid checks if the rate is within the valid range.
func (h HintRate) IsValid() bool {
	return h >= MinHintRate && h <= MaxHintRate
}

// Float64 returns the underlying float64 value.
func (h HintRate) Float64() float64 {
	return float64(h)
}

// Clamp returns the rate forced into the 0-1 range.
func (h HintRate) Clamp() HintRate {
	if h < MinHintRate {
		return MinHintRate
	}
	if h > MaxHintRate {
		return MaxHintRate
	}
	return h
}

// Percent returns the rate as a 0-100 percentage.
func (h HintRate) Percent() float64 {
	return float64(h) * 100
}

// NewHintRate creates a new HintRate, clamping out-of-range values.
func NewHintRate(value float64) HintRate {
	return HintRate(value).Clamp()
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents a time period.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks if the time range is valid.
func (t TimeRange) IsValid() bool {
	return !t.From.IsZero() && !t.To.IsZero() && !t.From.After(t.To)
}

// Duration returns the duration of the time range.
func (t TimeRange) Duration() time.Duration {
	return t.To.Sub(t.From)
}

// Contains checks if a time is within the range.
func (t TimeRange) Contains(tm time.Time) bool {
	return (tm.Equal(t.From) || tm.After(t.From)) && (tm.Equal(t.To) || tm.Before(t.To))
}

// NewTimeRange creates a new TimeRange with validation.
func NewTimeRange(from, to time.Time) (TimeRange, error) {
	tr := TimeRange{From: from, To: to}
	if !tr.IsValid() {
		return TimeRange{}, NewDomainError("shared", "NewTimeRange", ErrInvalidInput, "'from' must be before 'to'")
	}
	return tr, nil
}

// LastNDays returns a TimeRange for the last N days.
func LastNDays(n int) TimeRange {
	now := time.Now()
	return TimeRange{
		From: now.AddDate(0, 0, -n),
		To:   now,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// String is a debug helper.
func (p Pagination) String() string {
	return fmt.Sprintf("Pagination{page=%d, size=%d}", p.Page, p.PageSize)
}
