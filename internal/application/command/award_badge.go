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
// AWARD BADGE COMMAND
// Учитель принял предложение: бейдж записывается в реестр выданных.
// С этого момента реестр кулдаунов подавляет повторные предложения
// того же типа.
// ══════════════════════════════════════════════════════════════════════════════

// AwardBadgeCommand содержит данные присуждения бейджа.
type AwardBadgeCommand struct {
	// SuggestionID - идентификатор принятого предложения.
	SuggestionID string

	// AwardedAt - момент присуждения (по умолчанию текущее время).
	AwardedAt time.Time
}

// Validate проверяет корректность команды.
func (c *AwardBadgeCommand) Validate() error {
	if c.SuggestionID == "" {
		return errors.New("suggestion_id is required")
	}
	return nil
}

// AwardBadgeResult содержит результат присуждения.
type AwardBadgeResult struct {
	// StudentID - идентификатор ученика.
	StudentID string `json:"student_id"`

	// BadgeType - тип присуждённого бейджа.
	BadgeType string `json:"badge_type"`

	// BadgeName - название бейджа для отображения.
	BadgeName string `json:"badge_name"`

	// Subject - предмет бейджа.
	Subject string `json:"subject,omitempty"`

	// AwardedAt - момент присуждения.
	AwardedAt time.Time `json:"awarded_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AwardBadgeHandler обрабатывает принятие предложений бейджей.
type AwardBadgeHandler struct {
	badgeRepo badge.Repository
	eventBus  shared.EventBus
	logger    *slog.Logger
}

// NewAwardBadgeHandler создаёт новый обработчик.
// eventBus опционален.
func NewAwardBadgeHandler(badgeRepo badge.Repository, eventBus shared.EventBus, logger *slog.Logger) *AwardBadgeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AwardBadgeHandler{
		badgeRepo: badgeRepo,
		eventBus:  eventBus,
		logger:    logger,
	}
}

// Handle выполняет присуждение бейджа по принятому предложению.
func (h *AwardBadgeHandler) Handle(ctx context.Context, cmd AwardBadgeCommand) (*AwardBadgeResult, error) {
	// Валидация
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "AwardBadge", shared.ErrValidation, err.Error(), err)
	}

	suggestion, err := h.badgeRepo.GetSuggestion(ctx, cmd.SuggestionID)
	if err != nil {
		return nil, shared.WrapError("command", "AwardBadge", shared.ErrNotFound, "suggestion not found", err)
	}

	awardedAt := cmd.AwardedAt
	if awardedAt.IsZero() {
		awardedAt = time.Now().UTC()
	}

	awarded := &badge.AwardedBadge{
		StudentID:    suggestion.StudentID,
		BadgeType:    suggestion.BadgeType,
		Subject:      suggestion.Subject,
		AssignmentID: suggestion.AssignmentID,
		AwardedAt:    awardedAt,
	}

	if err := h.badgeRepo.SaveAwarded(ctx, awarded); err != nil {
		return nil, shared.WrapError("command", "AwardBadge", shared.ErrExternalService, "failed to record awarded badge", err)
	}

	h.publishAwarded(awarded)

	h.logger.Info("badge awarded",
		"student_id", suggestion.StudentID.String(),
		"badge_type", suggestion.BadgeType.String(),
		"subject", suggestion.Subject.String(),
	)

	return &AwardBadgeResult{
		StudentID: suggestion.StudentID.String(),
		BadgeType: suggestion.BadgeType.String(),
		BadgeName: suggestion.BadgeType.DisplayName(),
		Subject:   suggestion.Subject.String(),
		AwardedAt: awardedAt,
	}, nil
}

// publishAwarded публикует событие о присуждении бейджа.
func (h *AwardBadgeHandler) publishAwarded(awarded *badge.AwardedBadge) {
	if h.eventBus == nil {
		return
	}
	event := shared.NewBadgeAwardedEvent(
		awarded.StudentID.String(),
		awarded.BadgeType.String(),
		awarded.Subject.String(),
		awarded.AssignmentID.String(),
	)
	if err := h.eventBus.Publish(event); err != nil {
		h.logger.Warn("failed to publish badge.awarded",
			"student_id", awarded.StudentID.String(),
			"error", err,
		)
	}
}
