package command

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/classpulse/insight-hub/internal/domain/badge"
	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATE BADGES COMMAND
// Запускает оценку критериев бейджей для одного ученика: снимок истории
// из LMS, три правила, сохранение предложений для рассмотрения учителем.
// Дубликаты предложений пропускаются молча.
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateBadgesCommand содержит параметры запуска оценки.
type EvaluateBadgesCommand struct {
	// StudentID - идентификатор ученика (UUID).
	StudentID string

	// EvaluatedAt - момент оценки (по умолчанию текущее время).
	// Кулдауны считаются относительно этого момента.
	EvaluatedAt time.Time
}

// Validate проверяет корректность команды.
func (c *EvaluateBadgesCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("student_id is required")
	}
	if !shared.StudentID(c.StudentID).IsValid() {
		return errors.New("student_id must be a UUID")
	}
	return nil
}

// SuggestedBadgeDTO - краткое описание сохранённого предложения.
type SuggestedBadgeDTO struct {
	// SuggestionID - идентификатор предложения.
	SuggestionID string `json:"suggestion_id"`

	// BadgeType - тип бейджа.
	BadgeType string `json:"badge_type"`

	// Subject - предмет предложения.
	Subject string `json:"subject,omitempty"`

	// Priority - приоритет предложения.
	Priority string `json:"priority"`

	// Reason - причина предложения.
	Reason string `json:"reason"`
}

// EvaluateBadgesResult содержит результат оценки.
type EvaluateBadgesResult struct {
	// StudentID - идентификатор ученика.
	StudentID string `json:"student_id"`

	// Suggested - новые сохранённые предложения.
	Suggested []SuggestedBadgeDTO `json:"suggested"`

	// DuplicatesSkipped - предложения, уже существовавшие в хранилище.
	DuplicatesSkipped int `json:"duplicates_skipped"`

	// EvaluatedAt - момент оценки.
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateBadgesHandler обрабатывает команду оценки бейджей.
type EvaluateBadgesHandler struct {
	contextProvider badge.ContextProvider
	badgeRepo       badge.Repository
	evaluator       *badge.Evaluator
	eventBus        shared.EventBus
	logger          *slog.Logger
}

// NewEvaluateBadgesHandler создаёт новый обработчик.
// eventBus опционален.
func NewEvaluateBadgesHandler(
	contextProvider badge.ContextProvider,
	badgeRepo badge.Repository,
	evaluator *badge.Evaluator,
	eventBus shared.EventBus,
	logger *slog.Logger,
) *EvaluateBadgesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvaluateBadgesHandler{
		contextProvider: contextProvider,
		badgeRepo:       badgeRepo,
		evaluator:       evaluator,
		eventBus:        eventBus,
		logger:          logger,
	}
}

// Handle выполняет оценку критериев для ученика.
func (h *EvaluateBadgesHandler) Handle(ctx context.Context, cmd EvaluateBadgesCommand) (*EvaluateBadgesResult, error) {
	// Валидация
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "EvaluateBadges", shared.ErrValidation, err.Error(), err)
	}

	now := cmd.EvaluatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	studentID := shared.StudentID(cmd.StudentID)

	sctx, err := h.contextProvider.FetchBadgeContext(ctx, studentID)
	if err != nil {
		return nil, shared.WrapError("command", "EvaluateBadges", shared.ErrExternalService, "failed to fetch student context", err)
	}

	suggestions := h.evaluator.Evaluate(*sctx, now)

	result := &EvaluateBadgesResult{
		StudentID:   cmd.StudentID,
		Suggested:   make([]SuggestedBadgeDTO, 0, len(suggestions)),
		EvaluatedAt: now,
	}

	for i := range suggestions {
		s := &suggestions[i]
		if err := s.Validate(); err != nil {
			h.logger.Error("evaluator produced invalid suggestion",
				"student_id", cmd.StudentID,
				"badge_type", s.BadgeType.String(),
				"error", err,
			)
			continue
		}

		if err := h.badgeRepo.SaveSuggestion(ctx, s); err != nil {
			if shared.IsAlreadyExists(err) {
				result.DuplicatesSkipped++
				continue
			}
			return nil, shared.WrapError("command", "EvaluateBadges", shared.ErrExternalService, "failed to store suggestion", err)
		}

		result.Suggested = append(result.Suggested, SuggestedBadgeDTO{
			SuggestionID: s.ID,
			BadgeType:    s.BadgeType.String(),
			Subject:      s.Subject.String(),
			Priority:     string(s.Priority),
			Reason:       s.Reason,
		})

		h.publishSuggested(s)
	}

	h.logger.Info("badge evaluation completed",
		"student_id", cmd.StudentID,
		"suggested", len(result.Suggested),
		"duplicates_skipped", result.DuplicatesSkipped,
	)

	return result, nil
}

// publishSuggested публикует событие о новом предложении бейджа.
func (h *EvaluateBadgesHandler) publishSuggested(s *badge.BadgeSuggestion) {
	if h.eventBus == nil {
		return
	}
	event := shared.NewBadgeSuggestedEvent(
		s.ID,
		s.StudentID.String(),
		s.BadgeType.String(),
		s.Subject.String(),
		s.AssignmentID.String(),
		string(s.Priority),
		s.Reason,
	)
	if err := h.eventBus.Publish(event); err != nil {
		h.logger.Warn("failed to publish badge.suggested",
			"suggestion_id", s.ID,
			"error", err,
		)
	}
}
