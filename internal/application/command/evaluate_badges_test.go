package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/classpulse/insight-hub/internal/domain/badge"
	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// persistenceContext возвращает снимок, выполняющий условия правила Persistence:
// высокая доля подсказок, достаточный результат.
func persistenceContext(student shared.StudentID) *badge.StudentBadgeContext {
	minutes := 25.0
	return &badge.StudentBadgeContext{
		StudentID:   student,
		StudentName: "Maya Chen",
		CurrentAttempt: &badge.Attempt{
			AssignmentID:    "math-fractions-02",
			AssignmentTitle: "Fractions II",
			Subject:         "math",
			Score:           75,
			HintRate:        0.7,
			TimeSpentMin:    &minutes,
			QuestionCount:   10,
			CompletedAt:     time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC),
		},
	}
}

func TestEvaluateBadges_StoresSuggestionAndPublishes(t *testing.T) {
	repo := newFakeBadgeRepo()
	bus := &fakeEventBus{}
	provider := &fakeContextProvider{sctx: persistenceContext(testStudentA)}
	handler := NewEvaluateBadgesHandler(provider, repo, badge.NewDefaultEvaluator(), bus, nil)

	result, err := handler.Handle(context.Background(), EvaluateBadgesCommand{
		StudentID: testStudentA.String(),
	})

	assert.NoError(t, err)
	assert.Len(t, result.Suggested, 1)
	assert.Equal(t, "persistence", result.Suggested[0].BadgeType)
	assert.Equal(t, "high", result.Suggested[0].Priority)
	assert.NotEmpty(t, result.Suggested[0].SuggestionID)
	assert.Zero(t, result.DuplicatesSkipped)

	assert.Len(t, bus.eventsOfType(shared.EventBadgeSuggested), 1)

	stored, err := repo.ListSuggestionsByStudent(context.Background(), testStudentA)
	assert.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestEvaluateBadges_SkipsDuplicateSuggestion(t *testing.T) {
	repo := newFakeBadgeRepo()
	provider := &fakeContextProvider{sctx: persistenceContext(testStudentA)}
	handler := NewEvaluateBadgesHandler(provider, repo, badge.NewDefaultEvaluator(), nil, nil)

	first, err := handler.Handle(context.Background(), EvaluateBadgesCommand{StudentID: testStudentA.String()})
	assert.NoError(t, err)
	assert.Len(t, first.Suggested, 1)

	// Повторная оценка того же снимка: предложение уже записано.
	second, err := handler.Handle(context.Background(), EvaluateBadgesCommand{StudentID: testStudentA.String()})
	assert.NoError(t, err)
	assert.Empty(t, second.Suggested)
	assert.Equal(t, 1, second.DuplicatesSkipped)
}

func TestEvaluateBadges_CooldownSuppressesAfterAward(t *testing.T) {
	repo := newFakeBadgeRepo()
	sctx := persistenceContext(testStudentA)
	// Persistence выдан неделю назад: 14-дневный кулдаун ещё действует.
	sctx.AwardedBadges = []badge.AwardedBadge{{
		StudentID: testStudentA,
		BadgeType: badge.BadgeTypePersistence,
		AwardedAt: time.Now().UTC().AddDate(0, 0, -7),
	}}
	provider := &fakeContextProvider{sctx: sctx}
	handler := NewEvaluateBadgesHandler(provider, repo, badge.NewDefaultEvaluator(), nil, nil)

	result, err := handler.Handle(context.Background(), EvaluateBadgesCommand{StudentID: testStudentA.String()})

	assert.NoError(t, err)
	assert.Empty(t, result.Suggested)
	assert.Zero(t, result.DuplicatesSkipped)
}

func TestEvaluateBadges_ContextProviderFailure(t *testing.T) {
	provider := &fakeContextProvider{err: shared.ErrLMSStudentNotFound}
	handler := NewEvaluateBadgesHandler(provider, newFakeBadgeRepo(), badge.NewDefaultEvaluator(), nil, nil)

	_, err := handler.Handle(context.Background(), EvaluateBadgesCommand{StudentID: testStudentA.String()})

	assert.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestEvaluateBadges_Validation(t *testing.T) {
	handler := NewEvaluateBadgesHandler(&fakeContextProvider{}, newFakeBadgeRepo(), badge.NewDefaultEvaluator(), nil, nil)

	_, err := handler.Handle(context.Background(), EvaluateBadgesCommand{StudentID: "not-a-uuid"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestAwardBadge_RecordsAwardFromSuggestion(t *testing.T) {
	repo := newFakeBadgeRepo()
	provider := &fakeContextProvider{sctx: persistenceContext(testStudentA)}
	evaluate := NewEvaluateBadgesHandler(provider, repo, badge.NewDefaultEvaluator(), nil, nil)

	evalResult, err := evaluate.Handle(context.Background(), EvaluateBadgesCommand{StudentID: testStudentA.String()})
	assert.NoError(t, err)
	assert.Len(t, evalResult.Suggested, 1)

	bus := &fakeEventBus{}
	award := NewAwardBadgeHandler(repo, bus, nil)

	result, err := award.Handle(context.Background(), AwardBadgeCommand{
		SuggestionID: evalResult.Suggested[0].SuggestionID,
	})

	assert.NoError(t, err)
	assert.Equal(t, testStudentA.String(), result.StudentID)
	assert.Equal(t, "persistence", result.BadgeType)
	assert.Equal(t, "Persistence", result.BadgeName)
	assert.Len(t, bus.eventsOfType(shared.EventBadgeAwarded), 1)

	awarded, err := repo.ListAwardedByStudent(context.Background(), testStudentA)
	assert.NoError(t, err)
	assert.Len(t, awarded, 1)
	assert.Equal(t, badge.BadgeTypePersistence, awarded[0].BadgeType)
}

func TestAwardBadge_SuggestionNotFound(t *testing.T) {
	handler := NewAwardBadgeHandler(newFakeBadgeRepo(), nil, nil)

	_, err := handler.Handle(context.Background(), AwardBadgeCommand{SuggestionID: "missing"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
