package insight

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classpulse/insight-hub/internal/domain/shared"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func rec(rule RuleName, status Status, insightType InsightType) *Recommendation {
	return &Recommendation{
		ID:          "rec-1",
		Status:      status,
		InsightType: insightType,
		TriggerData: TriggerData{RuleName: rule},
		StudentIDs:  []shared.StudentID{"s1"},
		Priority:    5,
	}
}

func TestIsAttentionNow_NeedsSupportActiveCheckIn(t *testing.T) {
	c := NewDefaultClassifier()

	r := rec(RuleNeedsSupport, StatusActive, InsightCheckIn)
	r.TriggerData.Signals = Signals{
		Score:           floatPtr(28),
		HintUsageRate:   floatPtr(0.8),
		AssignmentTitle: "Poetry Analysis",
	}

	assert.True(t, c.IsAttentionNow(r))
	assert.Equal(t, "Needs support on Poetry Analysis (28%)", c.AttentionReason(r))
}

func TestIsAttentionNow_NonActiveStatusesAreNever(t *testing.T) {
	c := NewDefaultClassifier()

	for _, status := range []Status{StatusPending, StatusResolved, StatusDismissed, StatusReviewed} {
		r := rec(RuleNeedsSupport, status, InsightCheckIn)
		assert.False(t, c.IsAttentionNow(r), "status %s", status)
	}
}

func TestIsAttentionNow_InsightTypeExclusionBeatsRuleName(t *testing.T) {
	c := NewDefaultClassifier()

	// Malformed data: an attention rule name on a celebratory record.
	// The insight-type exclusion still wins.
	for _, it := range []InsightType{InsightCelebrateProgress, InsightChallengeOpportunity, InsightMonitor} {
		r := rec(RuleNeedsSupport, StatusActive, it)
		assert.False(t, c.IsAttentionNow(r), "insight type %s", it)
	}
}

func TestIsAttentionNow_NonAttentionRules(t *testing.T) {
	c := NewDefaultClassifier()

	for _, rule := range []RuleName{RuleNotableImprovement, RuleReadyForChallenge, RuleWatchProgress} {
		r := rec(rule, StatusActive, InsightCheckIn)
		assert.False(t, c.IsAttentionNow(r), "rule %s", rule)
	}
}

func TestIsAttentionNow_DirectAttentionRules(t *testing.T) {
	c := NewDefaultClassifier()

	for _, rule := range []RuleName{RuleNeedsSupport, RuleCheckInSuggested, RuleGroupSupport} {
		r := rec(rule, StatusActive, InsightCheckIn)
		assert.True(t, c.IsAttentionNow(r), "rule %s", rule)
	}
}

func TestIsAttentionNow_DevelopingElevationBoundary(t *testing.T) {
	c := NewDefaultClassifier()

	// Two help requests stay below the escalation threshold
	r := rec(RuleDeveloping, StatusActive, InsightCheckIn)
	r.TriggerData.Signals = Signals{HelpRequestCount: intPtr(2)}
	assert.False(t, c.IsAttentionNow(r))

	// Three help requests escalate
	r.TriggerData.Signals = Signals{HelpRequestCount: intPtr(3)}
	assert.True(t, c.IsAttentionNow(r))
}

func TestIsAttentionNow_DevelopingEscalationSignals(t *testing.T) {
	c := NewDefaultClassifier()

	// Explicit elevation flag
	r := rec(RuleDeveloping, StatusActive, InsightCheckIn)
	r.TriggerData.Signals = Signals{IsElevated: boolPtr(true)}
	assert.True(t, c.IsAttentionNow(r))

	// Explicit escalated-from-developing flag
	r.TriggerData.Signals = Signals{EscalatedFromDeveloping: boolPtr(true)}
	assert.True(t, c.IsAttentionNow(r))

	// Hint usage above the needs-support threshold
	r.TriggerData.Signals = Signals{HintUsageRate: floatPtr(0.7)}
	assert.True(t, c.IsAttentionNow(r))

	// Hint usage at the threshold does not escalate (strictly greater)
	r.TriggerData.Signals = Signals{HintUsageRate: floatPtr(0.6)}
	assert.False(t, c.IsAttentionNow(r))

	// No escalation signals at all: developing does not fall through to
	// the check_in fallback
	r.TriggerData.Signals = Signals{}
	assert.False(t, c.IsAttentionNow(r))
}

func TestIsAttentionNow_CheckInFallbackForUnknownRule(t *testing.T) {
	c := NewDefaultClassifier()

	r := rec(RuleName("some-new-rule"), StatusActive, InsightCheckIn)
	assert.True(t, c.IsAttentionNow(r))

	// An unknown rule outside check_in does not match the fallback
	r = rec(RuleName("some-new-rule"), StatusActive, InsightMonitor)
	assert.False(t, c.IsAttentionNow(r))
}

func TestIsAttentionNow_NilRecommendation(t *testing.T) {
	c := NewDefaultClassifier()
	assert.False(t, c.IsAttentionNow(nil))
}

func TestAttentionReason_GroupSupport(t *testing.T) {
	c := NewDefaultClassifier()

	r := rec(RuleGroupSupport, StatusActive, InsightCheckIn)
	r.StudentIDs = []shared.StudentID{"s1", "s2", "s3"}
	r.TriggerData.Signals = Signals{StudentCount: intPtr(3)}
	assert.Equal(t, "Group needs support (3 students)", c.AttentionReason(r))

	// Without an explicit count the student list length is used
	r.TriggerData.Signals = Signals{}
	assert.Equal(t, "Group needs support (3 students)", c.AttentionReason(r))
}

func TestAttentionReason_CheckInSuggested(t *testing.T) {
	c := NewDefaultClassifier()

	r := rec(RuleCheckInSuggested, StatusActive, InsightCheckIn)
	assert.Equal(t, "Check-in suggested: seeking help in coach", c.AttentionReason(r))
}

func TestAttentionReason_NeedsSupportWithoutScore(t *testing.T) {
	c := NewDefaultClassifier()

	r := rec(RuleNeedsSupport, StatusActive, InsightCheckIn)
	r.TriggerData.Signals = Signals{AssignmentTitle: "Fractions II"}
	assert.Equal(t, "Needs support on Fractions II", c.AttentionReason(r))

	// No title either: neutral label
	r.TriggerData.Signals = Signals{Score: floatPtr(40)}
	assert.Equal(t, "Needs support on this assignment (40%)", c.AttentionReason(r))
}

func TestAttentionReason_UnknownRuleFallsBackToSummary(t *testing.T) {
	c := NewDefaultClassifier()

	r := rec(RuleName("mystery-rule"), StatusActive, InsightCheckIn)
	r.Summary = "Something unusual is going on"
	assert.Equal(t, "Something unusual is going on", c.AttentionReason(r))
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusActive.CanTransitionTo(StatusPending))
	assert.True(t, StatusActive.CanTransitionTo(StatusResolved))
	assert.True(t, StatusPending.CanTransitionTo(StatusResolved))
	assert.False(t, StatusPending.CanTransitionTo(StatusActive))
	assert.False(t, StatusResolved.CanTransitionTo(StatusActive))
	assert.False(t, StatusDismissed.CanTransitionTo(StatusPending))
	assert.False(t, StatusActive.CanTransitionTo(Status("bogus")))
}
