package command

import (
	"context"
	"fmt"
	"time"

	"github.com/classpulse/insight-hub/internal/domain/badge"
	"github.com/classpulse/insight-hub/internal/domain/insight"
	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory фейки для тестов командного слоя
// ─────────────────────────────────────────────────────────────────────────────

type fakeRecRepo struct {
	recs map[string]*insight.Recommendation
}

func newFakeRecRepo(recs ...*insight.Recommendation) *fakeRecRepo {
	repo := &fakeRecRepo{recs: make(map[string]*insight.Recommendation)}
	for _, r := range recs {
		clone := *r
		repo.recs[r.ID] = &clone
	}
	return repo
}

func (f *fakeRecRepo) Create(_ context.Context, rec *insight.Recommendation) error {
	if _, ok := f.recs[rec.ID]; ok {
		return shared.ErrAlreadyExists
	}
	clone := *rec
	f.recs[rec.ID] = &clone
	return nil
}

func (f *fakeRecRepo) GetByID(_ context.Context, id string) (*insight.Recommendation, error) {
	rec, ok := f.recs[id]
	if !ok {
		return nil, shared.ErrRecommendationNotFound
	}
	clone := *rec
	return &clone, nil
}

func (f *fakeRecRepo) Update(_ context.Context, rec *insight.Recommendation) error {
	if _, ok := f.recs[rec.ID]; !ok {
		return shared.ErrRecommendationNotFound
	}
	clone := *rec
	f.recs[rec.ID] = &clone
	return nil
}

func (f *fakeRecRepo) ListByStudent(_ context.Context, studentID shared.StudentID) ([]*insight.Recommendation, error) {
	var out []*insight.Recommendation
	for _, rec := range f.recs {
		if rec.HasStudent(studentID) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecRepo) ListByAssignment(_ context.Context, assignmentID shared.AssignmentID) ([]*insight.Recommendation, error) {
	var out []*insight.Recommendation
	for _, rec := range f.recs {
		if rec.AssignmentID == assignmentID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecRepo) ListByStatus(_ context.Context, status insight.Status, _ shared.Pagination) ([]*insight.Recommendation, error) {
	var out []*insight.Recommendation
	for _, rec := range f.recs {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecRepo) ListAll(_ context.Context) ([]*insight.Recommendation, error) {
	out := make([]*insight.Recommendation, 0, len(f.recs))
	for _, rec := range f.recs {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeRecRepo) CountByStatus(_ context.Context, status insight.Status) (int, error) {
	count := 0
	for _, rec := range f.recs {
		if rec.Status == status {
			count++
		}
	}
	return count, nil
}

type fakeAttentionCache struct {
	invalidatedStudents  []shared.StudentID
	dashboardInvalidated int
}

func (f *fakeAttentionCache) GetStudentStatus(_ context.Context, _ shared.StudentID, _ shared.AssignmentID) (*insight.StudentAttentionStatus, error) {
	return nil, shared.ErrNotFound
}

func (f *fakeAttentionCache) SetStudentStatus(_ context.Context, _ *insight.StudentAttentionStatus) error {
	return nil
}

func (f *fakeAttentionCache) GetDashboard(_ context.Context) (*insight.DashboardAttentionState, error) {
	return nil, shared.ErrNotFound
}

func (f *fakeAttentionCache) SetDashboard(_ context.Context, _ *insight.DashboardAttentionState) error {
	return nil
}

func (f *fakeAttentionCache) InvalidateStudent(_ context.Context, studentID shared.StudentID) error {
	f.invalidatedStudents = append(f.invalidatedStudents, studentID)
	return nil
}

func (f *fakeAttentionCache) InvalidateDashboard(_ context.Context) error {
	f.dashboardInvalidated++
	return nil
}

type fakeEventBus struct {
	published []shared.Event
}

func (f *fakeEventBus) Subscribe(_ shared.EventType, _ shared.EventHandler) error { return nil }
func (f *fakeEventBus) SubscribeAll(_ shared.EventHandler) error                  { return nil }
func (f *fakeEventBus) Close() error                                              { return nil }

func (f *fakeEventBus) Publish(event shared.Event) error {
	f.published = append(f.published, event)
	return nil
}

func (f *fakeEventBus) eventsOfType(t shared.EventType) []shared.Event {
	var out []shared.Event
	for _, e := range f.published {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeBadgeRepo struct {
	suggestions map[string]*badge.BadgeSuggestion
	awarded     []badge.AwardedBadge
	nextID      int
}

func newFakeBadgeRepo() *fakeBadgeRepo {
	return &fakeBadgeRepo{suggestions: make(map[string]*badge.BadgeSuggestion)}
}

func (f *fakeBadgeRepo) suggestionKey(s *badge.BadgeSuggestion) string {
	return fmt.Sprintf("%s|%s|%s|%s", s.StudentID, s.BadgeType, s.Subject, s.AssignmentID)
}

func (f *fakeBadgeRepo) SaveSuggestion(_ context.Context, s *badge.BadgeSuggestion) error {
	for _, existing := range f.suggestions {
		if f.suggestionKey(existing) == f.suggestionKey(s) {
			return shared.ErrSuggestionExists
		}
	}
	f.nextID++
	s.ID = fmt.Sprintf("sugg-%d", f.nextID)
	clone := *s
	f.suggestions[s.ID] = &clone
	return nil
}

func (f *fakeBadgeRepo) GetSuggestion(_ context.Context, id string) (*badge.BadgeSuggestion, error) {
	s, ok := f.suggestions[id]
	if !ok {
		return nil, shared.ErrSuggestionNotFound
	}
	clone := *s
	return &clone, nil
}

func (f *fakeBadgeRepo) ListSuggestionsByStudent(_ context.Context, studentID shared.StudentID) ([]*badge.BadgeSuggestion, error) {
	var out []*badge.BadgeSuggestion
	for _, s := range f.suggestions {
		if s.StudentID == studentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeBadgeRepo) SaveAwarded(_ context.Context, awarded *badge.AwardedBadge) error {
	f.awarded = append(f.awarded, *awarded)
	return nil
}

func (f *fakeBadgeRepo) ListAwardedByStudent(_ context.Context, studentID shared.StudentID) ([]badge.AwardedBadge, error) {
	var out []badge.AwardedBadge
	for _, a := range f.awarded {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeBadgeRepo) CountAwardedSince(_ context.Context, since time.Time) (int, error) {
	count := 0
	for _, a := range f.awarded {
		if !a.AwardedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type fakeContextProvider struct {
	sctx *badge.StudentBadgeContext
	err  error
}

func (f *fakeContextProvider) FetchBadgeContext(_ context.Context, _ shared.StudentID) (*badge.StudentBadgeContext, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sctx, nil
}
