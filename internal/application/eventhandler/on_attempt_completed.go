// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/classpulse/insight-hub/internal/application/command"
	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ATTEMPT COMPLETED HANDLER
// Обрабатывает событие завершения попытки задания учеником.
//
// Ключевые функции:
// 1. Сброс кешированного снимка истории ученика — следующая оценка
//    критериев должна видеть новую попытку
// 2. Запуск оценки критериев бейджей — свежая попытка могла выполнить
//    условия Progress, Mastery или Persistence
// ═══════════════════════════════════════════════════════════════════════════

// SnapshotInvalidator сбрасывает кешированный снимок истории ученика.
// Реализуется LMS-провайдером контекста.
type SnapshotInvalidator interface {
	InvalidateStudent(ctx context.Context, studentID shared.StudentID) error
}

// OnAttemptCompletedHandler обрабатывает событие завершения попытки.
type OnAttemptCompletedHandler struct {
	invalidator SnapshotInvalidator
	evaluate    *command.EvaluateBadgesHandler
	logger      *slog.Logger
}

// NewOnAttemptCompletedHandler создаёт новый обработчик события попытки.
// invalidator опционален.
func NewOnAttemptCompletedHandler(
	invalidator SnapshotInvalidator,
	evaluate *command.EvaluateBadgesHandler,
	logger *slog.Logger,
) *OnAttemptCompletedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnAttemptCompletedHandler{
		invalidator: invalidator,
		evaluate:    evaluate,
		logger:      logger.With("handler", "on_attempt_completed"),
	}
}

// Handle обрабатывает событие завершения попытки.
// Реализует интерфейс shared.EventHandler.
func (h *OnAttemptCompletedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	attemptEvent, ok := event.(shared.AttemptCompletedEvent)
	if !ok {
		h.logger.Warn("received non-AttemptCompletedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing attempt completed event",
		"student_id", attemptEvent.StudentID,
		"assignment_id", attemptEvent.AssignmentID,
		"score", attemptEvent.Score,
	)

	studentID := shared.StudentID(attemptEvent.StudentID)

	// 1. Сбрасываем снимок истории — он больше не содержит новую попытку
	if h.invalidator != nil {
		if err := h.invalidator.InvalidateStudent(ctx, studentID); err != nil {
			h.logger.Warn("failed to invalidate student snapshot",
				"student_id", attemptEvent.StudentID,
				"error", err,
			)
			// Продолжаем: снимок истечёт по TTL
		}
	}

	// 2. Запускаем оценку критериев бейджей
	result, err := h.evaluate.Handle(ctx, command.EvaluateBadgesCommand{
		StudentID: attemptEvent.StudentID,
	})
	if err != nil {
		h.logger.Error("badge evaluation failed",
			"student_id", attemptEvent.StudentID,
			"error", err,
		)
		return fmt.Errorf("evaluate badges: %w", err)
	}

	h.logger.Info("attempt completed event processed",
		"student_id", attemptEvent.StudentID,
		"suggested", len(result.Suggested),
	)

	return nil
}

// EventType возвращает тип события, который обрабатывает этот handler.
func (h *OnAttemptCompletedHandler) EventType() shared.EventType {
	return shared.EventAttemptCompleted
}
