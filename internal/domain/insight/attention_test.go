package insight

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classpulse/insight-hub/internal/domain/shared"
)

func attentionRec(id string, student shared.StudentID, status Status, priority int) *Recommendation {
	return &Recommendation{
		ID:          id,
		Status:      status,
		InsightType: InsightCheckIn,
		TriggerData: TriggerData{
			RuleName: RuleNeedsSupport,
			Signals:  Signals{AssignmentTitle: "Fractions II", Score: floatPtr(30)},
		},
		StudentIDs:   []shared.StudentID{student},
		AssignmentID: "math-fractions-02",
		Priority:     priority,
	}
}

func TestStudentAttentionStatus_PartitionsByStatus(t *testing.T) {
	c := NewDefaultClassifier()

	recs := []*Recommendation{
		attentionRec("r1", "s1", StatusActive, 5),
		attentionRec("r2", "s1", StatusPending, 5),
		attentionRec("r3", "s1", StatusResolved, 5),
		attentionRec("r4", "s1", StatusDismissed, 5),
		attentionRec("r5", "s2", StatusActive, 5),
	}

	status := c.StudentAttentionStatus(recs, "s1", "")
	assert.True(t, status.NeedsAttention)
	assert.Equal(t, []string{"r1"}, status.ActiveIDs)
	assert.Equal(t, []string{"r2"}, status.PendingIDs)
	assert.Equal(t, []string{"r3", "r4"}, status.ResolvedIDs)
	assert.Equal(t, "Needs support on Fractions II (30%)", status.AttentionReason)
}

func TestStudentAttentionStatus_CelebratoryRecordsNeverSetAttention(t *testing.T) {
	c := NewDefaultClassifier()

	r := attentionRec("r1", "s1", StatusActive, 5)
	r.InsightType = InsightCelebrateProgress

	status := c.StudentAttentionStatus([]*Recommendation{r}, "s1", "")
	assert.False(t, status.NeedsAttention)
	assert.Empty(t, status.AttentionReason)
	// The record still shows up in the active partition
	assert.Equal(t, []string{"r1"}, status.ActiveIDs)
}

func TestStudentAttentionStatus_ReasonFromHighestPriority(t *testing.T) {
	c := NewDefaultClassifier()

	low := attentionRec("r1", "s1", StatusActive, 2)
	high := attentionRec("r2", "s1", StatusActive, 9)
	high.TriggerData.RuleName = RuleCheckInSuggested

	status := c.StudentAttentionStatus([]*Recommendation{low, high}, "s1", "")
	assert.True(t, status.NeedsAttention)
	assert.Equal(t, "Check-in suggested: seeking help in coach", status.AttentionReason)

	// Order of the input does not change the selection
	status = c.StudentAttentionStatus([]*Recommendation{high, low}, "s1", "")
	assert.Equal(t, "Check-in suggested: seeking help in coach", status.AttentionReason)
}

func TestStudentAttentionStatus_AssignmentFilter(t *testing.T) {
	c := NewDefaultClassifier()

	inScope := attentionRec("r1", "s1", StatusActive, 5)
	outOfScope := attentionRec("r2", "s1", StatusActive, 5)
	outOfScope.AssignmentID = "reading-poetry-04"

	status := c.StudentAttentionStatus([]*Recommendation{inScope, outOfScope}, "s1", "math-fractions-02")
	assert.Equal(t, []string{"r1"}, status.ActiveIDs)

	// Cross-assignment view sees both
	status = c.StudentAttentionStatus([]*Recommendation{inScope, outOfScope}, "s1", "")
	assert.Len(t, status.ActiveIDs, 2)
}

func TestStudentsNeedingAttention_MostFlaggedFirst(t *testing.T) {
	c := NewDefaultClassifier()

	recs := []*Recommendation{
		attentionRec("r1", "s1", StatusActive, 5),
		attentionRec("r2", "s2", StatusActive, 5),
		attentionRec("r3", "s2", StatusActive, 5),
		attentionRec("r4", "s3", StatusResolved, 5),
	}
	names := map[shared.StudentID]string{"s1": "Aigerim", "s2": "Dias", "s3": "Marat"}

	entries := c.StudentsNeedingAttention(recs, names, AttentionOptions{})
	assert.Len(t, entries, 2)
	assert.Equal(t, shared.StudentID("s2"), entries[0].StudentID)
	assert.Equal(t, "Dias", entries[0].StudentName)
	assert.Equal(t, shared.StudentID("s1"), entries[1].StudentID)

	// s3 has only a resolved record and must not appear
	for _, e := range entries {
		assert.NotEqual(t, shared.StudentID("s3"), e.StudentID)
	}
}

func TestStudentsNeedingAttention_TiePreservesInputOrder(t *testing.T) {
	c := NewDefaultClassifier()

	recs := []*Recommendation{
		attentionRec("r1", "s1", StatusActive, 5),
		attentionRec("r2", "s2", StatusActive, 5),
	}

	entries := c.StudentsNeedingAttention(recs, nil, AttentionOptions{})
	assert.Len(t, entries, 2)
	assert.Equal(t, shared.StudentID("s1"), entries[0].StudentID)
	assert.Equal(t, shared.StudentID("s2"), entries[1].StudentID)
}

func TestStudentsNeedingAttention_GroupRecommendationFlagsAllMembers(t *testing.T) {
	c := NewDefaultClassifier()

	group := &Recommendation{
		ID:          "g1",
		Status:      StatusActive,
		InsightType: InsightCheckIn,
		TriggerData: TriggerData{
			RuleName: RuleGroupSupport,
			Signals:  Signals{StudentCount: intPtr(2)},
		},
		StudentIDs:   []shared.StudentID{"s1", "s2"},
		AssignmentID: "math-fractions-02",
		Priority:     5,
	}

	entries := c.StudentsNeedingAttention([]*Recommendation{group}, nil, AttentionOptions{})
	assert.Len(t, entries, 2)
	assert.Equal(t, "Group needs support (2 students)", entries[0].Status.AttentionReason)
}

func TestStudentsNeedingAttention_ClassFilter(t *testing.T) {
	c := NewDefaultClassifier()

	inClass := attentionRec("r1", "s1", StatusActive, 5)
	inClass.TriggerData.Signals.ClassName = "5A"
	otherClass := attentionRec("r2", "s2", StatusActive, 5)
	otherClass.TriggerData.Signals.ClassName = "5B"

	entries := c.StudentsNeedingAttention([]*Recommendation{inClass, otherClass}, nil, AttentionOptions{ClassName: "5A"})
	assert.Len(t, entries, 1)
	assert.Equal(t, shared.StudentID("s1"), entries[0].StudentID)
}

func TestAssignmentAttentionSummary_Buckets(t *testing.T) {
	c := NewDefaultClassifier()

	recs := []*Recommendation{
		attentionRec("r1", "s1", StatusActive, 5),   // needs attention
		attentionRec("r2", "s2", StatusPending, 5),  // pending
		attentionRec("r3", "s3", StatusResolved, 5), // resolved
	}
	other := attentionRec("r4", "s4", StatusActive, 5)
	other.AssignmentID = "reading-poetry-04"
	recs = append(recs, other)

	summary := c.AssignmentAttentionSummary(recs, nil, "math-fractions-02")
	assert.Equal(t, 3, summary.TotalRecommendations)
	assert.Len(t, summary.NeedingAttention, 1)
	assert.Equal(t, shared.StudentID("s1"), summary.NeedingAttention[0].StudentID)
	assert.Equal(t, []shared.StudentID{"s2"}, summary.PendingStudents)
	assert.Equal(t, []shared.StudentID{"s3"}, summary.ResolvedStudents)
}

func TestDashboardAttentionState(t *testing.T) {
	c := NewDefaultClassifier()

	recs := []*Recommendation{
		attentionRec("r1", "s1", StatusActive, 5),
		attentionRec("r2", "s2", StatusActive, 5),
		attentionRec("r3", "s3", StatusResolved, 5),
	}
	other := attentionRec("r4", "s4", StatusActive, 5)
	other.AssignmentID = "reading-poetry-04"
	recs = append(recs, other)

	state := c.DashboardAttentionState(recs, nil,
		[]shared.AssignmentID{"math-fractions-02", "reading-poetry-04"})

	assert.Equal(t, 3, state.TotalActive)
	assert.Len(t, state.StudentsNeedingAttention, 3)
	assert.Len(t, state.Assignments, 2)
	assert.Len(t, state.Assignments[0].NeedingAttention, 2)
	assert.Len(t, state.Assignments[1].NeedingAttention, 1)
}

func TestStudentsToRemoveFromAttention(t *testing.T) {
	acted := &Recommendation{
		ID:          "g1",
		Status:      StatusResolved,
		InsightType: InsightCheckIn,
		TriggerData: TriggerData{RuleName: RuleGroupSupport},
		StudentIDs:  []shared.StudentID{"s1", "s2"},
	}

	// s1 still has another active recommendation, s2 does not
	all := []*Recommendation{
		acted,
		attentionRec("r1", "s1", StatusActive, 5),
		attentionRec("r2", "s2", StatusResolved, 5),
	}

	removed := StudentsToRemoveFromAttention(all, acted)
	assert.Equal(t, []shared.StudentID{"s2"}, removed)
}

func TestStudentsToRemoveFromAttention_NilActed(t *testing.T) {
	assert.Nil(t, StudentsToRemoveFromAttention(nil, nil))
}

func TestRecommendation_UpdateStatus(t *testing.T) {
	r := attentionRec("r1", "s1", StatusActive, 5)

	err := r.UpdateStatus(StatusResolved, r.CreatedAt)
	assert.NoError(t, err)
	assert.Equal(t, StatusResolved, r.Status)

	// Closed statuses are final
	err = r.UpdateStatus(StatusActive, r.CreatedAt)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
}
