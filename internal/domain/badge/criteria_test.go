package badge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/classpulse/insight-hub/internal/domain/shared"
)

var testStudentID = shared.StudentID("11111111-1111-1111-1111-111111111111")

func floatPtr(v float64) *float64 { return &v }

func progressContext(currentScore, earliestScore float64, daysAgo int, now time.Time) StudentBadgeContext {
	return StudentBadgeContext{
		StudentID:   testStudentID,
		StudentName: "Aigerim",
		CurrentAttempt: &Attempt{
			AssignmentID:    "math-fractions-02",
			AssignmentTitle: "Fractions II",
			Subject:         "math",
			Score:           shared.NewScore(currentScore),
			HintRate:        shared.NewHintRate(0.1),
			CompletedAt:     now,
		},
		PreviousAttempts: []PriorAttempt{
			{Score: shared.NewScore(earliestScore), CompletedAt: now.AddDate(0, 0, -daysAgo)},
		},
	}
}

func TestProgressRule_SuggestsHighPriorityOnBigImprovement(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	// 45% -> 82% in 10 days, no prior Progress badge
	sctx := progressContext(82, 45, 10, now)
	suggestions := eval.Evaluate(sctx, now)

	assert.Len(t, suggestions, 1)
	s := suggestions[0]
	assert.Equal(t, BadgeTypeProgressStar, s.BadgeType)
	assert.Equal(t, PriorityHigh, s.Priority)
	assert.Equal(t, "Improved from 45% to 82% on Fractions II", s.Reason)
	assert.Equal(t, floatPtr(37.0), s.Evidence.Improvement)
	assert.Equal(t, floatPtr(45.0), s.Evidence.PreviousScore)
	assert.Equal(t, floatPtr(82.0), s.Evidence.CurrentScore)
}

func TestProgressRule_MediumPriorityOnModerateImprovement(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	// Improvement of 22 is above the minimum but below the high threshold
	sctx := progressContext(72, 50, 5, now)
	suggestions := eval.Evaluate(sctx, now)

	assert.Len(t, suggestions, 1)
	assert.Equal(t, PriorityMedium, suggestions[0].Priority)
}

func TestProgressRule_RequiresPriorAttempt(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	sctx := progressContext(95, 40, 10, now)
	sctx.PreviousAttempts = nil

	assert.Empty(t, eval.Evaluate(sctx, now))
}

func TestProgressRule_ComparesAgainstEarliestAttempt(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	// Earliest attempt was 40%, a recent retry scored 75%. Improvement is
	// measured from the earliest (42), not the latest (7).
	sctx := progressContext(82, 75, 2, now)
	sctx.PreviousAttempts = append(sctx.PreviousAttempts,
		PriorAttempt{Score: shared.NewScore(40), CompletedAt: now.AddDate(0, 0, -12)})

	suggestions := eval.Evaluate(sctx, now)
	assert.Len(t, suggestions, 1)
	assert.Equal(t, floatPtr(42.0), suggestions[0].Evidence.Improvement)
	assert.Equal(t, PriorityHigh, suggestions[0].Priority)
}

func TestProgressRule_DeclinesBelowMinimums(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	// Improvement too small
	assert.Empty(t, eval.Evaluate(progressContext(70, 55, 5, now), now))

	// Current score below the floor even with a big improvement
	assert.Empty(t, eval.Evaluate(progressContext(55, 20, 5, now), now))

	// Earliest attempt too long ago
	assert.Empty(t, eval.Evaluate(progressContext(82, 45, 40, now), now))
}

func TestProgressRule_SuppressedByAssignmentCooldown(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	// A Progress badge on the same assignment, however old, suppresses forever
	sctx := progressContext(82, 45, 10, now)
	sctx.AwardedBadges = []AwardedBadge{
		{
			BadgeType:    BadgeTypeProgressStar,
			Subject:      "math",
			AssignmentID: "math-fractions-02",
			AwardedAt:    now.AddDate(-2, 0, 0),
		},
	}

	assert.Empty(t, eval.Evaluate(sctx, now))
}

func TestProgressRule_SuppressedBySubjectCooldown(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	// A recent Progress badge on another math assignment blocks the subject
	sctx := progressContext(82, 45, 10, now)
	sctx.AwardedBadges = []AwardedBadge{
		{
			BadgeType:    BadgeTypeProgressStar,
			Subject:      "math",
			AssignmentID: "math-decimals-01",
			AwardedAt:    now.AddDate(0, 0, -5),
		},
	}
	assert.Empty(t, eval.Evaluate(sctx, now))

	// The same badge after the 14-day window does not
	sctx.AwardedBadges[0].AwardedAt = now.AddDate(0, 0, -20)
	assert.Len(t, eval.Evaluate(sctx, now), 1)
}

func masteryHistory(subject string, scores []float64, hintRate float64, days []int, now time.Time) SubjectHistory {
	hist := SubjectHistory{Subject: shared.Subject(subject)}
	for i, score := range scores {
		hist.Assignments = append(hist.Assignments, SubjectAssignment{
			AssignmentID: shared.AssignmentID("asgn-" + subject),
			Score:        shared.NewScore(score),
			HintRate:     shared.NewHintRate(hintRate),
			CompletedAt:  now.AddDate(0, 0, -days[i%len(days)]),
		})
	}
	return hist
}

func TestMasteryRule_SuggestsHighPriorityForStrongSubject(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	// Three assignments averaging 90% with 10% hint usage over two days
	sctx := StudentBadgeContext{
		StudentID: testStudentID,
		SubjectHistory: []SubjectHistory{
			masteryHistory("math", []float64{88, 90, 92}, 0.10, []int{1, 1, 2}, now),
		},
	}

	suggestions := eval.Evaluate(sctx, now)
	assert.Len(t, suggestions, 1)
	s := suggestions[0]
	assert.Equal(t, BadgeTypeMastery, s.BadgeType)
	assert.Equal(t, shared.Subject("math"), s.Subject)
	assert.Equal(t, PriorityHigh, s.Priority)
	assert.Equal(t, floatPtr(90.0), s.Evidence.SubjectAverage)
	assert.Equal(t, 3, *s.Evidence.AssignmentCount)
	assert.Equal(t, 2, *s.Evidence.DistinctDays)
}

func TestMasteryRule_DeclinesBelowMinimums(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	// Only two assignments
	sctx := StudentBadgeContext{
		StudentID: testStudentID,
		SubjectHistory: []SubjectHistory{
			masteryHistory("math", []float64{95, 95}, 0.05, []int{1, 2}, now),
		},
	}
	assert.Empty(t, eval.Evaluate(sctx, now))

	// Average below 85
	sctx.SubjectHistory = []SubjectHistory{
		masteryHistory("math", []float64{80, 84, 82}, 0.05, []int{1, 2, 3}, now),
	}
	assert.Empty(t, eval.Evaluate(sctx, now))

	// Too much hint reliance
	sctx.SubjectHistory = []SubjectHistory{
		masteryHistory("math", []float64{90, 92, 95}, 0.40, []int{1, 2, 3}, now),
	}
	assert.Empty(t, eval.Evaluate(sctx, now))

	// All work crammed into a single calendar day
	sctx.SubjectHistory = []SubjectHistory{
		masteryHistory("math", []float64{90, 92, 95}, 0.05, []int{1, 1, 1}, now),
	}
	assert.Empty(t, eval.Evaluate(sctx, now))
}

func TestMasteryRule_PicksHighPriorityCandidateFirst(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	// "reading" qualifies at medium (avg 86), "science" at high (avg 92);
	// science wins despite appearing later in the input.
	sctx := StudentBadgeContext{
		StudentID: testStudentID,
		SubjectHistory: []SubjectHistory{
			masteryHistory("reading", []float64{85, 86, 87}, 0.10, []int{1, 2, 3}, now),
			masteryHistory("science", []float64{90, 92, 94}, 0.10, []int{1, 2, 3}, now),
		},
	}

	suggestions := eval.Evaluate(sctx, now)
	assert.Len(t, suggestions, 1)
	assert.Equal(t, shared.Subject("science"), suggestions[0].Subject)
	assert.Equal(t, PriorityHigh, suggestions[0].Priority)
}

func TestMasteryRule_TieKeepsInputOrder(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	// Both subjects qualify at medium priority: the first in the input wins
	sctx := StudentBadgeContext{
		StudentID: testStudentID,
		SubjectHistory: []SubjectHistory{
			masteryHistory("reading", []float64{85, 86, 87}, 0.10, []int{1, 2, 3}, now),
			masteryHistory("math", []float64{86, 87, 88}, 0.10, []int{1, 2, 3}, now),
		},
	}

	suggestions := eval.Evaluate(sctx, now)
	assert.Len(t, suggestions, 1)
	assert.Equal(t, shared.Subject("reading"), suggestions[0].Subject)
}

func TestMasteryRule_SubjectCooldownSkipsToNextCandidate(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	sctx := StudentBadgeContext{
		StudentID: testStudentID,
		SubjectHistory: []SubjectHistory{
			masteryHistory("math", []float64{90, 92, 94}, 0.10, []int{1, 2, 3}, now),
			masteryHistory("reading", []float64{85, 86, 87}, 0.10, []int{1, 2, 3}, now),
		},
		AwardedBadges: []AwardedBadge{
			{BadgeType: BadgeTypeMastery, Subject: "math", AwardedAt: now.AddDate(0, 0, -10)},
		},
	}

	suggestions := eval.Evaluate(sctx, now)
	assert.Len(t, suggestions, 1)
	assert.Equal(t, shared.Subject("reading"), suggestions[0].Subject)
}

func persistenceContext(score, hintRate float64, timeSpent *float64, now time.Time) StudentBadgeContext {
	return StudentBadgeContext{
		StudentID: testStudentID,
		CurrentAttempt: &Attempt{
			AssignmentID:    "reading-poetry-04",
			AssignmentTitle: "Poetry Analysis",
			Subject:         "reading",
			Score:           shared.NewScore(score),
			HintRate:        shared.NewHintRate(hintRate),
			TimeSpentMin:    timeSpent,
			CompletedAt:     now,
		},
	}
}

func TestPersistenceRule_SuggestsOnHeavyHintUseWithCompletion(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	suggestions := eval.Evaluate(persistenceContext(55, 0.75, floatPtr(25), now), now)
	assert.Len(t, suggestions, 1)
	s := suggestions[0]
	assert.Equal(t, BadgeTypePersistence, s.BadgeType)
	assert.Equal(t, PriorityMedium, s.Priority)
	assert.Equal(t, floatPtr(0.75), s.Evidence.HintRate)
	assert.Equal(t, floatPtr(25.0), s.Evidence.TimeSpentMin)
}

func TestPersistenceRule_HighPriorityOnStrongScore(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	suggestions := eval.Evaluate(persistenceContext(74, 0.65, floatPtr(15), now), now)
	assert.Len(t, suggestions, 1)
	assert.Equal(t, PriorityHigh, suggestions[0].Priority)
}

func TestPersistenceRule_MissingTimeTelemetryIsNotPenalized(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	// No time data: the time check is skipped entirely
	suggestions := eval.Evaluate(persistenceContext(60, 0.70, nil, now), now)
	assert.Len(t, suggestions, 1)

	// Present but too short: declined
	assert.Empty(t, eval.Evaluate(persistenceContext(60, 0.70, floatPtr(5), now), now))
}

func TestPersistenceRule_DeclinesBelowMinimums(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	// Hint rate too low: this is ordinary completion, not persistence
	assert.Empty(t, eval.Evaluate(persistenceContext(80, 0.30, floatPtr(20), now), now))

	// Score too low: completion did not succeed
	assert.Empty(t, eval.Evaluate(persistenceContext(40, 0.80, floatPtr(20), now), now))
}

func TestPersistenceRule_StudentCooldown(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	sctx := persistenceContext(60, 0.70, floatPtr(20), now)
	sctx.AwardedBadges = []AwardedBadge{
		{BadgeType: BadgeTypePersistence, Subject: "math", AwardedAt: now.AddDate(0, 0, -3)},
	}
	assert.Empty(t, eval.Evaluate(sctx, now))
}

func TestEvaluate_EmptyContextProducesNothing(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	assert.Empty(t, eval.Evaluate(StudentBadgeContext{StudentID: testStudentID}, now))
}

func TestEvaluate_MultipleRulesCanFireTogether(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	eval := NewDefaultEvaluator()

	// An attempt that qualifies for Persistence while the subject history
	// qualifies for Mastery produces two independent suggestions.
	sctx := persistenceContext(72, 0.70, floatPtr(20), now)
	sctx.SubjectHistory = []SubjectHistory{
		masteryHistory("science", []float64{90, 92, 94}, 0.10, []int{1, 2, 3}, now),
	}

	suggestions := eval.Evaluate(sctx, now)
	assert.Len(t, suggestions, 2)
	assert.Equal(t, BadgeTypeMastery, suggestions[0].BadgeType)
	assert.Equal(t, BadgeTypePersistence, suggestions[1].BadgeType)
}
