package insight

import (
	"context"

	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции хранения рекомендаций.
type Repository interface {
	// Create сохраняет новую рекомендацию.
	// Возвращает ErrAlreadyExists при дубликате ID.
	Create(ctx context.Context, rec *Recommendation) error

	// GetByID возвращает рекомендацию по ID.
	// Возвращает ErrRecommendationNotFound, если рекомендация не найдена.
	GetByID(ctx context.Context, id string) (*Recommendation, error)

	// Update сохраняет изменённую рекомендацию (прежде всего статус).
	// Возвращает ErrRecommendationNotFound, если рекомендация не найдена.
	Update(ctx context.Context, rec *Recommendation) error

	// ListByStudent возвращает рекомендации, упоминающие ученика.
	ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*Recommendation, error)

	// ListByAssignment возвращает рекомендации задания.
	ListByAssignment(ctx context.Context, assignmentID shared.AssignmentID) ([]*Recommendation, error)

	// ListByStatus возвращает рекомендации с указанным статусом.
	ListByStatus(ctx context.Context, status Status, opts shared.Pagination) ([]*Recommendation, error)

	// ListAll возвращает все рекомендации для построения дашборда.
	ListAll(ctx context.Context) ([]*Recommendation, error)

	// CountByStatus возвращает количество рекомендаций по статусу.
	CountByStatus(ctx context.Context, status Status) (int, error)
}

// AttentionCache кеширует снимки внимания (обычно реализуется через Redis).
// Кеш инвалидируется при любом изменении статуса рекомендации.
type AttentionCache interface {
	// GetStudentStatus возвращает закешированный статус ученика.
	// Возвращает ErrNotFound при промахе кеша.
	GetStudentStatus(ctx context.Context, studentID shared.StudentID, assignmentID shared.AssignmentID) (*StudentAttentionStatus, error)

	// SetStudentStatus сохраняет статус ученика в кеш.
	SetStudentStatus(ctx context.Context, status *StudentAttentionStatus) error

	// GetDashboard возвращает закешированную сводку дашборда.
	// Возвращает ErrNotFound при промахе кеша.
	GetDashboard(ctx context.Context) (*DashboardAttentionState, error)

	// SetDashboard сохраняет сводку дашборда в кеш.
	SetDashboard(ctx context.Context, state *DashboardAttentionState) error

	// InvalidateStudent удаляет все записи ученика из кеша.
	InvalidateStudent(ctx context.Context, studentID shared.StudentID) error

	// InvalidateDashboard удаляет сводку дашборда из кеша.
	InvalidateDashboard(ctx context.Context) error
}
