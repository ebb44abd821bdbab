package query

import (
	"context"
	"errors"
	"time"

	"github.com/classpulse/insight-hub/internal/domain/insight"
	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ASSIGNMENT ATTENTION QUERY
// Сводка внимания по одному заданию: кто требует вмешательства, кто ждёт,
// у кого всё закрыто. Это основа экрана "задание" в панели учителя.
// ══════════════════════════════════════════════════════════════════════════════

// GetAssignmentAttentionQuery содержит параметры запроса сводки по заданию.
type GetAssignmentAttentionQuery struct {
	// AssignmentID - идентификатор задания.
	AssignmentID string

	// ClassName - ограничить сводку одним классом (опционально).
	ClassName string
}

// Validate проверяет корректность параметров запроса.
func (q *GetAssignmentAttentionQuery) Validate() error {
	if q.AssignmentID == "" {
		return errors.New("assignment_id is required")
	}
	if !shared.AssignmentID(q.AssignmentID).IsValid() {
		return errors.New("assignment_id has invalid format")
	}
	return nil
}

// AttentionEntryDTO - ученик, требующий внимания, с причиной.
type AttentionEntryDTO struct {
	// StudentID - идентификатор ученика.
	StudentID string `json:"student_id"`

	// StudentName - имя ученика, если известно из сигналов.
	StudentName string `json:"student_name,omitempty"`

	// AttentionReason - причина из самой приоритетной рекомендации.
	AttentionReason string `json:"attention_reason"`

	// ActiveCount - количество активных рекомендаций ученика.
	ActiveCount int `json:"active_count"`
}

// GetAssignmentAttentionResult содержит сводку внимания по заданию.
type GetAssignmentAttentionResult struct {
	// AssignmentID - идентификатор задания.
	AssignmentID string `json:"assignment_id"`

	// TotalRecommendations - всего рекомендаций по заданию.
	TotalRecommendations int `json:"total_recommendations"`

	// NeedingAttention - ученики, требующие внимания, самые отмеченные первыми.
	NeedingAttention []AttentionEntryDTO `json:"needing_attention"`

	// PendingStudents - ученики с ожидающими рекомендациями.
	PendingStudents []string `json:"pending_students,omitempty"`

	// ResolvedStudents - ученики, у которых всё закрыто.
	ResolvedStudents []string `json:"resolved_students,omitempty"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetAssignmentAttentionHandler обрабатывает запросы сводки по заданию.
type GetAssignmentAttentionHandler struct {
	recRepo    insight.Repository
	classifier *insight.Classifier
}

// NewGetAssignmentAttentionHandler создаёт новый обработчик.
func NewGetAssignmentAttentionHandler(recRepo insight.Repository, classifier *insight.Classifier) *GetAssignmentAttentionHandler {
	return &GetAssignmentAttentionHandler{
		recRepo:    recRepo,
		classifier: classifier,
	}
}

// Handle выполняет запрос сводки внимания по заданию.
func (h *GetAssignmentAttentionHandler) Handle(ctx context.Context, query GetAssignmentAttentionQuery) (*GetAssignmentAttentionResult, error) {
	// Валидация
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetAssignmentAttention", shared.ErrValidation, err.Error(), err)
	}

	assignmentID := shared.AssignmentID(query.AssignmentID)

	recs, err := h.recRepo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, shared.WrapError("query", "GetAssignmentAttention", shared.ErrNotFound, "failed to load recommendations", err)
	}

	if query.ClassName != "" {
		recs = filterByClass(recs, query.ClassName)
	}

	summary := h.classifier.AssignmentAttentionSummary(recs, studentNameIndex(recs), assignmentID)

	result := &GetAssignmentAttentionResult{
		AssignmentID:         summary.AssignmentID.String(),
		TotalRecommendations: summary.TotalRecommendations,
		NeedingAttention:     buildAttentionEntryDTOs(summary.NeedingAttention),
		PendingStudents:      studentIDStrings(summary.PendingStudents),
		ResolvedStudents:     studentIDStrings(summary.ResolvedStudents),
		GeneratedAt:          time.Now().UTC(),
	}
	return result, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers, общие для запросов внимания
// ─────────────────────────────────────────────────────────────────────────────

// studentNameIndex собирает имена учеников из сигналов индивидуальных
// рекомендаций. Групповые рекомендации имён не несут.
func studentNameIndex(recs []*insight.Recommendation) map[shared.StudentID]string {
	names := make(map[shared.StudentID]string)
	for _, rec := range recs {
		if rec == nil || len(rec.StudentIDs) != 1 {
			continue
		}
		if name := rec.Signals().StudentName; name != "" {
			names[rec.StudentIDs[0]] = name
		}
	}
	return names
}

// filterByClass оставляет рекомендации с указанным классом в сигналах.
func filterByClass(recs []*insight.Recommendation, className string) []*insight.Recommendation {
	filtered := make([]*insight.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if rec != nil && rec.Signals().ClassName == className {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// buildAttentionEntryDTOs формирует DTO из доменных записей внимания.
func buildAttentionEntryDTOs(entries []insight.StudentAttentionEntry) []AttentionEntryDTO {
	dtos := make([]AttentionEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, AttentionEntryDTO{
			StudentID:       e.StudentID.String(),
			StudentName:     e.StudentName,
			AttentionReason: e.Status.AttentionReason,
			ActiveCount:     len(e.Status.ActiveIDs),
		})
	}
	return dtos
}

// studentIDStrings преобразует идентификаторы учеников в строки.
func studentIDStrings(ids []shared.StudentID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
