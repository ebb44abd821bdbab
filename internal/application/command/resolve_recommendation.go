package command

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/classpulse/insight-hub/internal/domain/insight"
	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESOLVE RECOMMENDATION COMMAND
// Учитель отреагировал на рекомендацию: перевод статуса, инвалидация кешей
// внимания и вычисление учеников, которых нужно убрать с индикаторов
// "needs attention".
// ══════════════════════════════════════════════════════════════════════════════

// ResolveRecommendationCommand содержит данные действия учителя.
type ResolveRecommendationCommand struct {
	// RecommendationID - идентификатор рекомендации.
	RecommendationID string

	// TargetStatus - целевой статус: pending, resolved, dismissed, reviewed.
	TargetStatus string

	// ActedBy - идентификатор учителя для аудита (опционально).
	ActedBy string
}

// Validate проверяет корректность команды.
func (c *ResolveRecommendationCommand) Validate() error {
	if c.RecommendationID == "" {
		return errors.New("recommendation_id is required")
	}
	target := insight.Status(c.TargetStatus)
	if !target.IsValid() {
		return errors.New("target_status is invalid")
	}
	if target == insight.StatusActive {
		return errors.New("target_status cannot be active")
	}
	return nil
}

// ResolveRecommendationResult содержит результат действия учителя.
type ResolveRecommendationResult struct {
	// RecommendationID - идентификатор рекомендации.
	RecommendationID string `json:"recommendation_id"`

	// PreviousStatus - статус до перехода.
	PreviousStatus string `json:"previous_status"`

	// NewStatus - статус после перехода.
	NewStatus string `json:"new_status"`

	// ClearedStudents - ученики, убранные с индикаторов внимания:
	// у них не осталось других активных рекомендаций.
	ClearedStudents []string `json:"cleared_students,omitempty"`

	// UpdatedAt - когда переход выполнен.
	UpdatedAt time.Time `json:"updated_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ResolveRecommendationHandler обрабатывает действия учителя над рекомендациями.
type ResolveRecommendationHandler struct {
	recRepo  insight.Repository
	cache    insight.AttentionCache
	eventBus shared.EventBus
	logger   *slog.Logger
}

// NewResolveRecommendationHandler создаёт новый обработчик.
// cache и eventBus опциональны.
func NewResolveRecommendationHandler(
	recRepo insight.Repository,
	cache insight.AttentionCache,
	eventBus shared.EventBus,
	logger *slog.Logger,
) *ResolveRecommendationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolveRecommendationHandler{
		recRepo:  recRepo,
		cache:    cache,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Handle выполняет переход статуса рекомендации.
func (h *ResolveRecommendationHandler) Handle(ctx context.Context, cmd ResolveRecommendationCommand) (*ResolveRecommendationResult, error) {
	// Валидация
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "ResolveRecommendation", shared.ErrValidation, err.Error(), err)
	}

	rec, err := h.recRepo.GetByID(ctx, cmd.RecommendationID)
	if err != nil {
		return nil, shared.WrapError("command", "ResolveRecommendation", shared.ErrNotFound, "recommendation not found", err)
	}

	now := time.Now().UTC()
	previous := rec.Status
	target := insight.Status(cmd.TargetStatus)

	if err := rec.UpdateStatus(target, now); err != nil {
		return nil, shared.WrapError("command", "ResolveRecommendation", shared.ErrStateTransition, "status transition rejected", err)
	}

	if err := h.recRepo.Update(ctx, rec); err != nil {
		return nil, shared.WrapError("command", "ResolveRecommendation", shared.ErrNotFound, "failed to store status change", err)
	}

	// Определяем, кто выпадает из индикаторов внимания. Снимок читается
	// после сохранения, чтобы закрытая рекомендация уже не была активной.
	var cleared []shared.StudentID
	if target.IsClosed() {
		allRecs, err := h.recRepo.ListAll(ctx)
		if err != nil {
			h.logger.Warn("failed to compute attention clearance",
				"recommendation_id", rec.ID,
				"error", err,
			)
		} else {
			cleared = insight.StudentsToRemoveFromAttention(allRecs, rec)
		}
	}

	h.invalidateAttention(ctx, rec)
	h.publishEvents(rec, target, cmd.ActedBy, cleared)

	h.logger.Info("recommendation status changed",
		"recommendation_id", rec.ID,
		"from", string(previous),
		"to", string(target),
		"cleared_students", len(cleared),
	)

	result := &ResolveRecommendationResult{
		RecommendationID: rec.ID,
		PreviousStatus:   string(previous),
		NewStatus:        string(target),
		UpdatedAt:        now,
	}
	for _, id := range cleared {
		result.ClearedStudents = append(result.ClearedStudents, id.String())
	}
	return result, nil
}

// invalidateAttention сбрасывает кеши внимания затронутых учеников и дашборда.
// Любое изменение статуса меняет разбиение active/pending/resolved.
func (h *ResolveRecommendationHandler) invalidateAttention(ctx context.Context, rec *insight.Recommendation) {
	if h.cache == nil {
		return
	}
	for _, id := range rec.StudentIDs {
		if err := h.cache.InvalidateStudent(ctx, id); err != nil {
			h.logger.Warn("failed to invalidate student attention cache",
				"student_id", id.String(),
				"error", err,
			)
		}
	}
	if err := h.cache.InvalidateDashboard(ctx); err != nil {
		h.logger.Warn("failed to invalidate dashboard cache", "error", err)
	}
}

// publishEvents публикует события о переходе и об очистке внимания.
func (h *ResolveRecommendationHandler) publishEvents(rec *insight.Recommendation, target insight.Status, actedBy string, cleared []shared.StudentID) {
	if h.eventBus == nil {
		return
	}

	if target.IsClosed() {
		for _, id := range rec.StudentIDs {
			event := shared.NewRecommendationResolvedEvent(rec.ID, id.String(), actedBy)
			if err := h.eventBus.Publish(event); err != nil {
				h.logger.Warn("failed to publish recommendation.resolved",
					"recommendation_id", rec.ID,
					"error", err,
				)
			}
		}
	}

	for _, id := range cleared {
		event := shared.NewAttentionClearedEvent(id.String())
		if err := h.eventBus.Publish(event); err != nil {
			h.logger.Warn("failed to publish attention.cleared",
				"student_id", id.String(),
				"error", err,
			)
		}
	}
}
