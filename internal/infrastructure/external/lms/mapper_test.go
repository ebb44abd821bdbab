package lms

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/classpulse/insight-hub/internal/domain/shared"
)

func TestAttemptDTO_Parsing(t *testing.T) {
	jsonData := `{
    "id": "att-301",
    "student_id": "9ca4322d-ebd5-4ffa-a340-56fe811bbab1",
    "assignment_id": "math-fractions-02",
    "assignment_title": "Fractions II",
    "subject": "Math",
    "score": 82,
    "hints_used": 2,
    "question_count": 10,
    "time_spent_seconds": 1140,
    "completed_at": "2026-03-12T10:30:00Z"
}`

	var attempt AttemptDTO
	err := json.Unmarshal([]byte(jsonData), &attempt)
	assert.NoError(t, err)

	assert.Equal(t, "math-fractions-02", attempt.AssignmentID)
	assert.Equal(t, 82.0, attempt.Score)
	assert.Equal(t, 0.2, attempt.HintRate())

	minutes := attempt.TimeSpentMinutes()
	assert.NotNil(t, minutes)
	assert.Equal(t, 19.0, *minutes)
}

func TestAttemptDTO_MissingTelemetry(t *testing.T) {
	jsonData := `{
    "id": "att-302",
    "student_id": "9ca4322d-ebd5-4ffa-a340-56fe811bbab1",
    "assignment_id": "sci-cells-01",
    "subject": "science",
    "score": 55,
    "hints_used": 7,
    "question_count": 10,
    "completed_at": "2026-03-12T10:30:00Z"
}`

	var attempt AttemptDTO
	err := json.Unmarshal([]byte(jsonData), &attempt)
	assert.NoError(t, err)

	assert.Nil(t, attempt.TimeSpentSeconds)
	assert.Nil(t, attempt.TimeSpentMinutes())
	assert.Equal(t, 0.7, attempt.HintRate())
}

func TestAttemptDTO_HintRateWithoutQuestions(t *testing.T) {
	attempt := AttemptDTO{HintsUsed: 3, QuestionCount: 0}
	assert.Equal(t, 0.0, attempt.HintRate())
}

func TestMapper_BuildBadgeContext(t *testing.T) {
	day := func(d int, hour int) time.Time {
		return time.Date(2026, 3, d, hour, 0, 0, 0, time.UTC)
	}

	profile := &StudentProfileDTO{
		ID:        "9ca4322d-ebd5-4ffa-a340-56fe811bbab1",
		FirstName: "Maya",
		LastName:  "Chen",
		ClassName: "5A",
		IsActive:  true,
	}

	attempts := []AttemptDTO{
		{AssignmentID: "math-fractions-02", AssignmentTitle: "Fractions II", Subject: "Math", Score: 82, HintsUsed: 1, QuestionCount: 10, CompletedAt: day(12, 10)},
		{AssignmentID: "math-fractions-02", AssignmentTitle: "Fractions II", Subject: "Math", Score: 45, HintsUsed: 4, QuestionCount: 10, CompletedAt: day(2, 9)},
		{AssignmentID: "math-decimals-01", Subject: "math", Score: 88, HintsUsed: 0, QuestionCount: 8, CompletedAt: day(5, 14)},
		{AssignmentID: "sci-cells-01", Subject: "Science", Score: 70, HintsUsed: 2, QuestionCount: 10, CompletedAt: day(6, 11)},
	}

	mapper := NewMapper()
	sctx := mapper.BuildBadgeContext(profile, attempts, nil)

	assert.Equal(t, shared.StudentID("9ca4322d-ebd5-4ffa-a340-56fe811bbab1"), sctx.StudentID)
	assert.Equal(t, "Maya Chen", sctx.StudentName)

	// Latest attempt becomes the current one.
	assert.NotNil(t, sctx.CurrentAttempt)
	assert.Equal(t, shared.AssignmentID("math-fractions-02"), sctx.CurrentAttempt.AssignmentID)
	assert.Equal(t, shared.Score(82), sctx.CurrentAttempt.Score)
	assert.Equal(t, shared.Subject("math"), sctx.CurrentAttempt.Subject)

	// Only earlier attempts of the same assignment become priors.
	assert.Len(t, sctx.PreviousAttempts, 1)
	assert.Equal(t, shared.Score(45), sctx.PreviousAttempts[0].Score)

	// Subject history groups by normalized subject, one entry per assignment.
	assert.Len(t, sctx.SubjectHistory, 2)
	math := sctx.SubjectHistory[0]
	assert.Equal(t, shared.Subject("math"), math.Subject)
	assert.Len(t, math.Assignments, 2)

	science := sctx.SubjectHistory[1]
	assert.Equal(t, shared.Subject("science"), science.Subject)
	assert.Len(t, science.Assignments, 1)
}

func TestMapper_LatestAttemptReplacesEarlierForAssignment(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 3, d, 10, 0, 0, 0, time.UTC)
	}

	profile := &StudentProfileDTO{ID: "9ca4322d-ebd5-4ffa-a340-56fe811bbab1"}
	attempts := []AttemptDTO{
		{AssignmentID: "math-fractions-02", Subject: "math", Score: 45, HintsUsed: 4, QuestionCount: 10, CompletedAt: day(2)},
		{AssignmentID: "math-fractions-02", Subject: "math", Score: 82, HintsUsed: 1, QuestionCount: 10, CompletedAt: day(12)},
		{AssignmentID: "math-geometry-05", Subject: "math", Score: 91, HintsUsed: 0, QuestionCount: 12, CompletedAt: day(14)},
	}

	sctx := NewMapper().BuildBadgeContext(profile, attempts, nil)

	assert.Len(t, sctx.SubjectHistory, 1)
	assignments := sctx.SubjectHistory[0].Assignments
	assert.Len(t, assignments, 2)

	// math-fractions-02 keeps its latest score, not the first one.
	assert.Equal(t, shared.AssignmentID("math-fractions-02"), assignments[0].AssignmentID)
	assert.Equal(t, shared.Score(82), assignments[0].Score)
	assert.Equal(t, shared.AssignmentID("math-geometry-05"), assignments[1].AssignmentID)
}

func TestMapper_EmptyHistory(t *testing.T) {
	profile := &StudentProfileDTO{ID: "9ca4322d-ebd5-4ffa-a340-56fe811bbab1", DisplayName: "Maya C."}

	sctx := NewMapper().BuildBadgeContext(profile, nil, nil)

	assert.Equal(t, "Maya C.", sctx.StudentName)
	assert.Nil(t, sctx.CurrentAttempt)
	assert.Empty(t, sctx.PreviousAttempts)
	assert.Empty(t, sctx.SubjectHistory)
}
