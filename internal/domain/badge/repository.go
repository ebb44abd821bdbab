package badge

import (
	"context"
	"time"

	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции хранения предложений и выданных бейджей.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// Suggestions
	// ─────────────────────────────────────────────────────────────────────────

	// SaveSuggestion сохраняет новое предложение бейджа.
	// Возвращает ErrSuggestionExists при дубликате.
	SaveSuggestion(ctx context.Context, suggestion *BadgeSuggestion) error

	// GetSuggestion возвращает предложение по ID.
	// Возвращает ErrSuggestionNotFound, если предложение не найдено.
	GetSuggestion(ctx context.Context, id string) (*BadgeSuggestion, error)

	// ListSuggestionsByStudent возвращает предложения ученика, новые первыми.
	ListSuggestionsByStudent(ctx context.Context, studentID shared.StudentID) ([]*BadgeSuggestion, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Awarded badges
	// ─────────────────────────────────────────────────────────────────────────

	// SaveAwarded сохраняет присуждённый бейдж.
	SaveAwarded(ctx context.Context, awarded *AwardedBadge) error

	// ListAwardedByStudent возвращает все бейджи ученика для реестра кулдаунов.
	ListAwardedByStudent(ctx context.Context, studentID shared.StudentID) ([]AwardedBadge, error)

	// CountAwardedSince возвращает количество бейджей, выданных с указанного
	// момента (для сводок дашборда).
	CountAwardedSince(ctx context.Context, since time.Time) (int, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT PROVIDER
// Снимок StudentBadgeContext собирает внешний слой (LMS-клиент или хранилище),
// движок получает его готовым.
// ══════════════════════════════════════════════════════════════════════════════

// ContextProvider собирает снимок истории ученика для оценки критериев.
type ContextProvider interface {
	// FetchBadgeContext возвращает полный снимок истории ученика.
	// Возвращает ErrLMSStudentNotFound, если ученик неизвестен источнику.
	FetchBadgeContext(ctx context.Context, studentID shared.StudentID) (*StudentBadgeContext, error)
}
