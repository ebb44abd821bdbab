// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/classpulse/insight-hub/internal/domain/insight"
	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT ATTENTION QUERY
// Отвечает на вопрос "требует ли этот ученик внимания прямо сейчас".
// Это ключевой запрос панели учителя: индикатор рядом с именем ученика.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentAttentionQuery содержит параметры запроса статуса внимания ученика.
type GetStudentAttentionQuery struct {
	// StudentID - идентификатор ученика (UUID).
	StudentID string

	// AssignmentID - ограничить статус одним заданием (пустой = все задания).
	AssignmentID string

	// SkipCache - игнорировать кеш и пересчитать статус из хранилища.
	SkipCache bool
}

// Validate проверяет корректность параметров запроса.
func (q *GetStudentAttentionQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id is required")
	}
	if !shared.StudentID(q.StudentID).IsValid() {
		return errors.New("student_id must be a UUID")
	}
	if q.AssignmentID != "" && !shared.AssignmentID(q.AssignmentID).IsValid() {
		return errors.New("assignment_id has invalid format")
	}
	return nil
}

// StudentAttentionDTO - статус внимания ученика для панели учителя.
type StudentAttentionDTO struct {
	// ─────────────────────────────────────────────────────────────────────────
	// Идентификация
	// ─────────────────────────────────────────────────────────────────────────

	// StudentID - идентификатор ученика.
	StudentID string `json:"student_id"`

	// AssignmentID - задание, по которому считался статус (пустое = все).
	AssignmentID string `json:"assignment_id,omitempty"`

	// ─────────────────────────────────────────────────────────────────────────
	// Статус внимания
	// ─────────────────────────────────────────────────────────────────────────

	// NeedsAttention - требуется ли вмешательство учителя.
	NeedsAttention bool `json:"needs_attention"`

	// AttentionReason - причина из самой приоритетной рекомендации.
	AttentionReason string `json:"attention_reason,omitempty"`

	// ─────────────────────────────────────────────────────────────────────────
	// Разбиение рекомендаций по статусам
	// ─────────────────────────────────────────────────────────────────────────

	// ActiveCount - количество активных рекомендаций.
	ActiveCount int `json:"active_count"`

	// PendingCount - количество ожидающих рекомендаций.
	PendingCount int `json:"pending_count"`

	// ResolvedCount - количество закрытых рекомендаций.
	ResolvedCount int `json:"resolved_count"`

	// ActiveIDs - идентификаторы активных рекомендаций.
	ActiveIDs []string `json:"active_ids,omitempty"`
}

// GetStudentAttentionResult содержит результат запроса статуса внимания.
type GetStudentAttentionResult struct {
	// Student - статус внимания ученика.
	Student StudentAttentionDTO `json:"student"`

	// FromCache - результат взят из кеша, а не пересчитан.
	FromCache bool `json:"from_cache"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetStudentAttentionHandler обрабатывает запросы статуса внимания ученика.
type GetStudentAttentionHandler struct {
	recRepo    insight.Repository
	classifier *insight.Classifier
	cache      insight.AttentionCache
	logger     *slog.Logger
}

// NewGetStudentAttentionHandler создаёт новый обработчик.
// Кеш опционален: nil означает пересчёт на каждый запрос.
func NewGetStudentAttentionHandler(
	recRepo insight.Repository,
	classifier *insight.Classifier,
	cache insight.AttentionCache,
	logger *slog.Logger,
) *GetStudentAttentionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetStudentAttentionHandler{
		recRepo:    recRepo,
		classifier: classifier,
		cache:      cache,
		logger:     logger,
	}
}

// Handle выполняет запрос статуса внимания ученика.
func (h *GetStudentAttentionHandler) Handle(ctx context.Context, query GetStudentAttentionQuery) (*GetStudentAttentionResult, error) {
	// Валидация
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetStudentAttention", shared.ErrValidation, err.Error(), err)
	}

	studentID := shared.StudentID(query.StudentID)
	assignmentID := shared.AssignmentID(query.AssignmentID)

	// Сначала пробуем кеш
	if h.cache != nil && !query.SkipCache {
		status, err := h.cache.GetStudentStatus(ctx, studentID, assignmentID)
		if err == nil {
			return &GetStudentAttentionResult{
				Student:     buildStudentAttentionDTO(*status),
				FromCache:   true,
				GeneratedAt: time.Now().UTC(),
			}, nil
		}
		if !shared.IsNotFound(err) {
			h.logger.Warn("attention cache read failed",
				"student_id", query.StudentID,
				"error", err,
			)
		}
	}

	// Промах кеша: пересчитываем по снимку рекомендаций ученика
	recs, err := h.recRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, shared.WrapError("query", "GetStudentAttention", shared.ErrNotFound, "failed to load recommendations", err)
	}

	status := h.classifier.StudentAttentionStatus(recs, studentID, assignmentID)

	// Записываем в кеш лучшим усилием: промах записи не ломает запрос
	if h.cache != nil {
		if err := h.cache.SetStudentStatus(ctx, &status); err != nil {
			h.logger.Warn("attention cache write failed",
				"student_id", query.StudentID,
				"error", err,
			)
		}
	}

	return &GetStudentAttentionResult{
		Student:     buildStudentAttentionDTO(status),
		FromCache:   false,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// buildStudentAttentionDTO формирует DTO из доменного статуса.
func buildStudentAttentionDTO(status insight.StudentAttentionStatus) StudentAttentionDTO {
	return StudentAttentionDTO{
		StudentID:       status.StudentID.String(),
		AssignmentID:    status.AssignmentID.String(),
		NeedsAttention:  status.NeedsAttention,
		AttentionReason: status.AttentionReason,
		ActiveCount:     len(status.ActiveIDs),
		PendingCount:    len(status.PendingIDs),
		ResolvedCount:   len(status.ResolvedIDs),
		ActiveIDs:       status.ActiveIDs,
	}
}
