package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/classpulse/insight-hub/internal/domain/insight"
	"github.com/classpulse/insight-hub/internal/domain/shared"
)

const (
	testStudentA = shared.StudentID("9ca4322d-ebd5-4ffa-a340-56fe811bbab1")
	testStudentB = shared.StudentID("b2e6f8d0-1234-4f5a-9c3d-0a1b2c3d4e5f")
)

func activeRec(id string, student shared.StudentID, rule insight.RuleName) *insight.Recommendation {
	return &insight.Recommendation{
		ID:           id,
		Status:       insight.StatusActive,
		InsightType:  insight.InsightCheckIn,
		TriggerData:  insight.TriggerData{RuleName: rule},
		StudentIDs:   []shared.StudentID{student},
		AssignmentID: "math-fractions-02",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func TestResolveRecommendation_ClearsLastActiveStudent(t *testing.T) {
	repo := newFakeRecRepo(activeRec("rec-1", testStudentA, insight.RuleNeedsSupport))
	cache := &fakeAttentionCache{}
	bus := &fakeEventBus{}
	handler := NewResolveRecommendationHandler(repo, cache, bus, nil)

	result, err := handler.Handle(context.Background(), ResolveRecommendationCommand{
		RecommendationID: "rec-1",
		TargetStatus:     "resolved",
		ActedBy:          "teacher-7",
	})

	assert.NoError(t, err)
	assert.Equal(t, "active", result.PreviousStatus)
	assert.Equal(t, "resolved", result.NewStatus)
	assert.Equal(t, []string{testStudentA.String()}, result.ClearedStudents)

	// Кеши сброшены, события опубликованы.
	assert.Contains(t, cache.invalidatedStudents, testStudentA)
	assert.Equal(t, 1, cache.dashboardInvalidated)
	assert.Len(t, bus.eventsOfType(shared.EventRecommendationResolved), 1)
	assert.Len(t, bus.eventsOfType(shared.EventAttentionCleared), 1)

	stored, err := repo.GetByID(context.Background(), "rec-1")
	assert.NoError(t, err)
	assert.Equal(t, insight.StatusResolved, stored.Status)
}

func TestResolveRecommendation_StudentKeepsAttentionWithOtherActive(t *testing.T) {
	repo := newFakeRecRepo(
		activeRec("rec-1", testStudentA, insight.RuleNeedsSupport),
		activeRec("rec-2", testStudentA, insight.RuleCheckInSuggested),
	)
	bus := &fakeEventBus{}
	handler := NewResolveRecommendationHandler(repo, &fakeAttentionCache{}, bus, nil)

	result, err := handler.Handle(context.Background(), ResolveRecommendationCommand{
		RecommendationID: "rec-1",
		TargetStatus:     "resolved",
	})

	assert.NoError(t, err)
	assert.Empty(t, result.ClearedStudents)
	assert.Empty(t, bus.eventsOfType(shared.EventAttentionCleared))
}

func TestResolveRecommendation_PendingTransitionPublishesNothing(t *testing.T) {
	repo := newFakeRecRepo(activeRec("rec-1", testStudentA, insight.RuleNeedsSupport))
	cache := &fakeAttentionCache{}
	bus := &fakeEventBus{}
	handler := NewResolveRecommendationHandler(repo, cache, bus, nil)

	result, err := handler.Handle(context.Background(), ResolveRecommendationCommand{
		RecommendationID: "rec-1",
		TargetStatus:     "pending",
	})

	assert.NoError(t, err)
	assert.Equal(t, "pending", result.NewStatus)
	assert.Empty(t, result.ClearedStudents)
	assert.Empty(t, bus.published)

	// Кеш всё равно инвалидирован: разбиение active/pending изменилось.
	assert.Contains(t, cache.invalidatedStudents, testStudentA)
}

func TestResolveRecommendation_ClosedStatusIsFinal(t *testing.T) {
	rec := activeRec("rec-1", testStudentA, insight.RuleNeedsSupport)
	rec.Status = insight.StatusResolved
	handler := NewResolveRecommendationHandler(newFakeRecRepo(rec), &fakeAttentionCache{}, &fakeEventBus{}, nil)

	_, err := handler.Handle(context.Background(), ResolveRecommendationCommand{
		RecommendationID: "rec-1",
		TargetStatus:     "dismissed",
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestResolveRecommendation_GroupClearsOnlyStudentsWithoutOtherActive(t *testing.T) {
	group := activeRec("rec-group", testStudentA, insight.RuleGroupSupport)
	group.StudentIDs = []shared.StudentID{testStudentA, testStudentB}
	repo := newFakeRecRepo(
		group,
		activeRec("rec-solo", testStudentB, insight.RuleNeedsSupport),
	)
	handler := NewResolveRecommendationHandler(repo, &fakeAttentionCache{}, &fakeEventBus{}, nil)

	result, err := handler.Handle(context.Background(), ResolveRecommendationCommand{
		RecommendationID: "rec-group",
		TargetStatus:     "resolved",
	})

	assert.NoError(t, err)
	// У второго ученика осталась собственная активная рекомендация.
	assert.Equal(t, []string{testStudentA.String()}, result.ClearedStudents)
}

func TestResolveRecommendation_Validation(t *testing.T) {
	handler := NewResolveRecommendationHandler(newFakeRecRepo(), nil, nil, nil)

	_, err := handler.Handle(context.Background(), ResolveRecommendationCommand{
		RecommendationID: "rec-1",
		TargetStatus:     "active",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = handler.Handle(context.Background(), ResolveRecommendationCommand{
		TargetStatus: "resolved",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestResolveRecommendation_NotFound(t *testing.T) {
	handler := NewResolveRecommendationHandler(newFakeRecRepo(), nil, nil, nil)

	_, err := handler.Handle(context.Background(), ResolveRecommendationCommand{
		RecommendationID: "missing",
		TargetStatus:     "resolved",
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
