package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/classpulse/insight-hub/internal/domain/insight"
	"github.com/classpulse/insight-hub/internal/domain/shared"
)

const testStudent = shared.StudentID("9ca4322d-ebd5-4ffa-a340-56fe811bbab1")

// ─────────────────────────────────────────────────────────────────────────────
// In-memory фейки для тестов запросов
// ─────────────────────────────────────────────────────────────────────────────

type stubRecRepo struct {
	recs []*insight.Recommendation
}

func (s *stubRecRepo) Create(context.Context, *insight.Recommendation) error { return nil }
func (s *stubRecRepo) Update(context.Context, *insight.Recommendation) error { return nil }

func (s *stubRecRepo) GetByID(_ context.Context, id string) (*insight.Recommendation, error) {
	for _, rec := range s.recs {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, shared.ErrRecommendationNotFound
}

func (s *stubRecRepo) ListByStudent(_ context.Context, studentID shared.StudentID) ([]*insight.Recommendation, error) {
	var out []*insight.Recommendation
	for _, rec := range s.recs {
		if rec.HasStudent(studentID) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubRecRepo) ListByAssignment(_ context.Context, assignmentID shared.AssignmentID) ([]*insight.Recommendation, error) {
	var out []*insight.Recommendation
	for _, rec := range s.recs {
		if rec.AssignmentID == assignmentID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubRecRepo) ListByStatus(_ context.Context, status insight.Status, _ shared.Pagination) ([]*insight.Recommendation, error) {
	var out []*insight.Recommendation
	for _, rec := range s.recs {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubRecRepo) ListAll(_ context.Context) ([]*insight.Recommendation, error) {
	return s.recs, nil
}

func (s *stubRecRepo) CountByStatus(_ context.Context, status insight.Status) (int, error) {
	count := 0
	for _, rec := range s.recs {
		if rec.Status == status {
			count++
		}
	}
	return count, nil
}

type stubAttentionCache struct {
	studentStatus *insight.StudentAttentionStatus
	dashboard     *insight.DashboardAttentionState
	setCalls      int
}

func (s *stubAttentionCache) GetStudentStatus(_ context.Context, _ shared.StudentID, _ shared.AssignmentID) (*insight.StudentAttentionStatus, error) {
	if s.studentStatus == nil {
		return nil, shared.ErrNotFound
	}
	return s.studentStatus, nil
}

func (s *stubAttentionCache) SetStudentStatus(_ context.Context, status *insight.StudentAttentionStatus) error {
	s.studentStatus = status
	s.setCalls++
	return nil
}

func (s *stubAttentionCache) GetDashboard(_ context.Context) (*insight.DashboardAttentionState, error) {
	if s.dashboard == nil {
		return nil, shared.ErrNotFound
	}
	return s.dashboard, nil
}

func (s *stubAttentionCache) SetDashboard(_ context.Context, state *insight.DashboardAttentionState) error {
	s.dashboard = state
	s.setCalls++
	return nil
}

func (s *stubAttentionCache) InvalidateStudent(_ context.Context, _ shared.StudentID) error {
	s.studentStatus = nil
	return nil
}

func (s *stubAttentionCache) InvalidateDashboard(_ context.Context) error {
	s.dashboard = nil
	return nil
}

func rec(id string, student shared.StudentID, status insight.Status, rule insight.RuleName, insightType insight.InsightType) *insight.Recommendation {
	return &insight.Recommendation{
		ID:           id,
		Status:       status,
		InsightType:  insightType,
		TriggerData:  insight.TriggerData{RuleName: rule},
		StudentIDs:   []shared.StudentID{student},
		AssignmentID: "math-fractions-02",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetStudentAttention
// ─────────────────────────────────────────────────────────────────────────────

func TestGetStudentAttention_ComputesOnCacheMiss(t *testing.T) {
	repo := &stubRecRepo{recs: []*insight.Recommendation{
		rec("rec-1", testStudent, insight.StatusActive, insight.RuleNeedsSupport, insight.InsightCheckIn),
		rec("rec-2", testStudent, insight.StatusResolved, insight.RuleNeedsSupport, insight.InsightCheckIn),
	}}
	cache := &stubAttentionCache{}
	handler := NewGetStudentAttentionHandler(repo, insight.NewDefaultClassifier(), cache, nil)

	result, err := handler.Handle(context.Background(), GetStudentAttentionQuery{
		StudentID: testStudent.String(),
	})

	assert.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.True(t, result.Student.NeedsAttention)
	assert.Equal(t, 1, result.Student.ActiveCount)
	assert.Equal(t, 1, result.Student.ResolvedCount)

	// Результат записан в кеш.
	assert.Equal(t, 1, cache.setCalls)
	assert.NotNil(t, cache.studentStatus)
}

func TestGetStudentAttention_ServesFromCache(t *testing.T) {
	cache := &stubAttentionCache{
		studentStatus: &insight.StudentAttentionStatus{
			StudentID:       testStudent,
			NeedsAttention:  true,
			AttentionReason: "Needs support on Fractions II",
			ActiveIDs:       []string{"rec-1"},
		},
	}
	// Репозиторий пуст: попадание в кеш не должно его трогать.
	handler := NewGetStudentAttentionHandler(&stubRecRepo{}, insight.NewDefaultClassifier(), cache, nil)

	result, err := handler.Handle(context.Background(), GetStudentAttentionQuery{
		StudentID: testStudent.String(),
	})

	assert.NoError(t, err)
	assert.True(t, result.FromCache)
	assert.True(t, result.Student.NeedsAttention)
	assert.Equal(t, "Needs support on Fractions II", result.Student.AttentionReason)
}

func TestGetStudentAttention_SkipCacheRecomputes(t *testing.T) {
	cache := &stubAttentionCache{
		studentStatus: &insight.StudentAttentionStatus{
			StudentID:      testStudent,
			NeedsAttention: true,
		},
	}
	handler := NewGetStudentAttentionHandler(&stubRecRepo{}, insight.NewDefaultClassifier(), cache, nil)

	result, err := handler.Handle(context.Background(), GetStudentAttentionQuery{
		StudentID: testStudent.String(),
		SkipCache: true,
	})

	assert.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.False(t, result.Student.NeedsAttention)
}

func TestGetStudentAttention_CelebrationNeverNeedsAttention(t *testing.T) {
	repo := &stubRecRepo{recs: []*insight.Recommendation{
		rec("rec-1", testStudent, insight.StatusActive, insight.RuleNotableImprovement, insight.InsightCelebrateProgress),
	}}
	handler := NewGetStudentAttentionHandler(repo, insight.NewDefaultClassifier(), nil, nil)

	result, err := handler.Handle(context.Background(), GetStudentAttentionQuery{
		StudentID: testStudent.String(),
	})

	assert.NoError(t, err)
	assert.False(t, result.Student.NeedsAttention)
	assert.Equal(t, 1, result.Student.ActiveCount)
}

func TestGetStudentAttention_Validation(t *testing.T) {
	handler := NewGetStudentAttentionHandler(&stubRecRepo{}, insight.NewDefaultClassifier(), nil, nil)

	_, err := handler.Handle(context.Background(), GetStudentAttentionQuery{StudentID: "not-a-uuid"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = handler.Handle(context.Background(), GetStudentAttentionQuery{})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

// ─────────────────────────────────────────────────────────────────────────────
// GetAttentionDashboard
// ─────────────────────────────────────────────────────────────────────────────

func TestGetAttentionDashboard_BuildsSummaryAndCaches(t *testing.T) {
	repo := &stubRecRepo{recs: []*insight.Recommendation{
		rec("rec-1", testStudent, insight.StatusActive, insight.RuleNeedsSupport, insight.InsightCheckIn),
		rec("rec-2", testStudent, insight.StatusActive, insight.RuleWatchProgress, insight.InsightMonitor),
	}}
	cache := &stubAttentionCache{}
	handler := NewGetAttentionDashboardHandler(repo, nil, insight.NewDefaultClassifier(), cache, nil)

	result, err := handler.Handle(context.Background(), GetAttentionDashboardQuery{})

	assert.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, 2, result.TotalActive)
	assert.Len(t, result.StudentsNeedingAttention, 1)
	assert.Len(t, result.Assignments, 1)
	assert.Equal(t, "math-fractions-02", result.Assignments[0].AssignmentID)

	// Повторный запрос обслуживается из кеша.
	cached, err := handler.Handle(context.Background(), GetAttentionDashboardQuery{})
	assert.NoError(t, err)
	assert.True(t, cached.FromCache)
	assert.Equal(t, 2, cached.TotalActive)
}

func TestGetAssignmentAttention_PartitionsStudents(t *testing.T) {
	other := shared.StudentID("b2e6f8d0-1234-4f5a-9c3d-0a1b2c3d4e5f")
	needing := rec("rec-1", testStudent, insight.StatusActive, insight.RuleNeedsSupport, insight.InsightCheckIn)
	needing.TriggerData.Signals.StudentName = "Maya Chen"
	repo := &stubRecRepo{recs: []*insight.Recommendation{
		needing,
		rec("rec-2", other, insight.StatusPending, insight.RuleNeedsSupport, insight.InsightCheckIn),
	}}
	handler := NewGetAssignmentAttentionHandler(repo, insight.NewDefaultClassifier())

	result, err := handler.Handle(context.Background(), GetAssignmentAttentionQuery{
		AssignmentID: "math-fractions-02",
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, result.TotalRecommendations)
	assert.Len(t, result.NeedingAttention, 1)
	assert.Equal(t, "Maya Chen", result.NeedingAttention[0].StudentName)
	assert.Equal(t, []string{other.String()}, result.PendingStudents)
	assert.Empty(t, result.ResolvedStudents)
}
