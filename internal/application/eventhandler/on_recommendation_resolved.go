package eventhandler

import (
	"context"
	"log/slog"

	"github.com/classpulse/insight-hub/internal/domain/insight"
	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON RECOMMENDATION RESOLVED HANDLER
// Обрабатывает событие закрытия рекомендации от любого производителя:
// команды учителя, пакетные операции, административные инструменты.
//
// Ключевая функция одна: сброс кешей внимания затронутого ученика и
// дашборда, чтобы панель учителя увидела изменение немедленно.
// ═══════════════════════════════════════════════════════════════════════════

// OnRecommendationResolvedHandler обрабатывает закрытие рекомендаций.
type OnRecommendationResolvedHandler struct {
	cache  insight.AttentionCache
	logger *slog.Logger
}

// NewOnRecommendationResolvedHandler создаёт новый обработчик.
func NewOnRecommendationResolvedHandler(cache insight.AttentionCache, logger *slog.Logger) *OnRecommendationResolvedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnRecommendationResolvedHandler{
		cache:  cache,
		logger: logger.With("handler", "on_recommendation_resolved"),
	}
}

// Handle обрабатывает событие закрытия рекомендации.
// Реализует интерфейс shared.EventHandler.
func (h *OnRecommendationResolvedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	var studentID string
	switch e := event.(type) {
	case shared.RecommendationResolvedEvent:
		studentID = e.StudentID
	case shared.AttentionClearedEvent:
		studentID = e.StudentID
	default:
		h.logger.Warn("received unexpected event",
			"event_type", event.EventType(),
		)
		return nil
	}

	if h.cache == nil || studentID == "" {
		return nil
	}

	if err := h.cache.InvalidateStudent(ctx, shared.StudentID(studentID)); err != nil {
		h.logger.Warn("failed to invalidate student attention cache",
			"student_id", studentID,
			"error", err,
		)
	}
	if err := h.cache.InvalidateDashboard(ctx); err != nil {
		h.logger.Warn("failed to invalidate dashboard cache", "error", err)
	}

	h.logger.Debug("attention caches invalidated",
		"student_id", studentID,
		"event_type", event.EventType(),
	)

	return nil
}

// EventType возвращает основной тип события обработчика.
func (h *OnRecommendationResolvedHandler) EventType() shared.EventType {
	return shared.EventRecommendationResolved
}

// Register подписывает обработчик на все интересующие его события.
func (h *OnRecommendationResolvedHandler) Register(bus shared.EventBus) error {
	if err := bus.Subscribe(shared.EventRecommendationResolved, h.Handle); err != nil {
		return err
	}
	return bus.Subscribe(shared.EventAttentionCleared, h.Handle)
}
