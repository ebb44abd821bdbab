// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/classpulse/insight-hub/internal/domain/insight"
	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE RECOMMENDATION COMMAND
// Принимает рекомендацию из правил инсайтов и сохраняет её как активную.
// Кеши внимания инвалидируются: новая рекомендация может изменить статус
// ученика на панели учителя немедленно.
// ══════════════════════════════════════════════════════════════════════════════

// CreateRecommendationCommand содержит данные новой рекомендации.
type CreateRecommendationCommand struct {
	// ID - идентификатор рекомендации (опционально; генерируется, если пуст).
	ID string

	// InsightType - категория инсайта.
	InsightType string

	// RuleName - правило, породившее рекомендацию.
	RuleName string

	// Signals - структурированные сигналы правила.
	Signals insight.Signals

	// StudentIDs - один ученик или группа.
	StudentIDs []string

	// AssignmentID - задание (пустое для рекомендаций вне задания).
	AssignmentID string

	// Priority - числовой приоритет; больше = важнее.
	Priority int

	// Summary - свободный текст, запасная причина для неизвестных правил.
	Summary string
}

// Validate проверяет корректность команды.
func (c *CreateRecommendationCommand) Validate() error {
	if !insight.InsightType(c.InsightType).IsValid() {
		return errors.New("insight_type is invalid")
	}
	if c.RuleName == "" {
		return errors.New("rule_name is required")
	}
	if len(c.StudentIDs) == 0 {
		return errors.New("at least one student_id is required")
	}
	for _, id := range c.StudentIDs {
		if !shared.StudentID(id).IsValid() {
			return errors.New("student_id must be a UUID: " + id)
		}
	}
	if c.AssignmentID != "" && !shared.AssignmentID(c.AssignmentID).IsValid() {
		return errors.New("assignment_id has invalid format")
	}
	return nil
}

// CreateRecommendationResult содержит результат создания рекомендации.
type CreateRecommendationResult struct {
	// RecommendationID - идентификатор сохранённой рекомендации.
	RecommendationID string `json:"recommendation_id"`

	// Status - статус рекомендации (всегда active при создании).
	Status string `json:"status"`

	// CreatedAt - когда рекомендация сохранена.
	CreatedAt time.Time `json:"created_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CreateRecommendationHandler обрабатывает команду создания рекомендации.
type CreateRecommendationHandler struct {
	recRepo  insight.Repository
	cache    insight.AttentionCache
	eventBus shared.EventBus
	logger   *slog.Logger
}

// NewCreateRecommendationHandler создаёт новый обработчик.
// cache и eventBus опциональны.
func NewCreateRecommendationHandler(
	recRepo insight.Repository,
	cache insight.AttentionCache,
	eventBus shared.EventBus,
	logger *slog.Logger,
) *CreateRecommendationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateRecommendationHandler{
		recRepo:  recRepo,
		cache:    cache,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Handle выполняет команду создания рекомендации.
func (h *CreateRecommendationHandler) Handle(ctx context.Context, cmd CreateRecommendationCommand) (*CreateRecommendationResult, error) {
	// Валидация
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "CreateRecommendation", shared.ErrValidation, err.Error(), err)
	}

	now := time.Now().UTC()

	id := cmd.ID
	if id == "" {
		id = uuid.NewString()
	}

	studentIDs := make([]shared.StudentID, 0, len(cmd.StudentIDs))
	for _, s := range cmd.StudentIDs {
		studentIDs = append(studentIDs, shared.StudentID(s))
	}

	rec := &insight.Recommendation{
		ID:          id,
		Status:      insight.StatusActive,
		InsightType: insight.InsightType(cmd.InsightType),
		TriggerData: insight.TriggerData{
			RuleName: insight.RuleName(cmd.RuleName),
			Signals:  cmd.Signals,
		},
		StudentIDs:   studentIDs,
		AssignmentID: shared.AssignmentID(cmd.AssignmentID),
		Priority:     cmd.Priority,
		Summary:      cmd.Summary,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := rec.Validate(); err != nil {
		return nil, shared.WrapError("command", "CreateRecommendation", shared.ErrValidation, "invalid recommendation", err)
	}

	if err := h.recRepo.Create(ctx, rec); err != nil {
		return nil, shared.WrapError("command", "CreateRecommendation", shared.ErrAlreadyExists, "failed to store recommendation", err)
	}

	h.invalidateAttention(ctx, rec)
	h.publishCreated(rec)

	h.logger.Info("recommendation created",
		"recommendation_id", rec.ID,
		"rule", cmd.RuleName,
		"students", len(rec.StudentIDs),
	)

	return &CreateRecommendationResult{
		RecommendationID: rec.ID,
		Status:           string(rec.Status),
		CreatedAt:        now,
	}, nil
}

// invalidateAttention сбрасывает кеши внимания затронутых учеников и дашборда.
func (h *CreateRecommendationHandler) invalidateAttention(ctx context.Context, rec *insight.Recommendation) {
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

// publishCreated публикует событие о создании рекомендации.
func (h *CreateRecommendationHandler) publishCreated(rec *insight.Recommendation) {
	if h.eventBus == nil {
		return
	}
	for _, id := range rec.StudentIDs {
		event := shared.NewRecommendationCreatedEvent(
			rec.ID,
			id.String(),
			rec.AssignmentID.String(),
			string(rec.InsightType),
			rec.RuleName().String(),
		)
		if err := h.eventBus.Publish(event); err != nil {
			h.logger.Warn("failed to publish recommendation.created",
				"recommendation_id", rec.ID,
				"error", err,
			)
		}
	}
}
