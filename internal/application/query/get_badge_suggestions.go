package query

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/classpulse/insight-hub/internal/domain/badge"
	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET BADGE SUGGESTIONS QUERY
// Очередь предложений бейджей ученика для рассмотрения учителем.
// ══════════════════════════════════════════════════════════════════════════════

// GetBadgeSuggestionsQuery содержит параметры запроса предложений бейджей.
type GetBadgeSuggestionsQuery struct {
	// StudentID - идентификатор ученика (UUID).
	StudentID string

	// SortByPriority - показывать high-предложения первыми.
	SortByPriority bool
}

// Validate проверяет корректность параметров запроса.
func (q *GetBadgeSuggestionsQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id is required")
	}
	if !shared.StudentID(q.StudentID).IsValid() {
		return errors.New("student_id must be a UUID")
	}
	return nil
}

// BadgeSuggestionDTO - предложение бейджа для интерфейса учителя.
type BadgeSuggestionDTO struct {
	// ID - идентификатор предложения.
	ID string `json:"id"`

	// StudentID - идентификатор ученика.
	StudentID string `json:"student_id"`

	// BadgeType - тип бейджа.
	BadgeType string `json:"badge_type"`

	// BadgeName - название бейджа для отображения.
	BadgeName string `json:"badge_name"`

	// Subject - предмет (пустой для бейджей без привязки к предмету).
	Subject string `json:"subject,omitempty"`

	// AssignmentID - задание (пустое для бейджей без привязки к заданию).
	AssignmentID string `json:"assignment_id,omitempty"`

	// AssignmentTitle - название задания.
	AssignmentTitle string `json:"assignment_title,omitempty"`

	// Reason - человекочитаемая причина предложения.
	Reason string `json:"reason"`

	// Evidence - числовые доказательства предложения.
	Evidence badge.Evidence `json:"evidence"`

	// Priority - приоритет предложения.
	Priority string `json:"priority"`

	// CreatedAt - когда предложение сформировано.
	CreatedAt time.Time `json:"created_at"`
}

// GetBadgeSuggestionsResult содержит предложения бейджей ученика.
type GetBadgeSuggestionsResult struct {
	// StudentID - идентификатор ученика.
	StudentID string `json:"student_id"`

	// Suggestions - предложения, новые первыми (или по приоритету).
	Suggestions []BadgeSuggestionDTO `json:"suggestions"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetBadgeSuggestionsHandler обрабатывает запросы предложений бейджей.
type GetBadgeSuggestionsHandler struct {
	badgeRepo badge.Repository
}

// NewGetBadgeSuggestionsHandler создаёт новый обработчик.
func NewGetBadgeSuggestionsHandler(badgeRepo badge.Repository) *GetBadgeSuggestionsHandler {
	return &GetBadgeSuggestionsHandler{badgeRepo: badgeRepo}
}

// Handle выполняет запрос предложений бейджей ученика.
func (h *GetBadgeSuggestionsHandler) Handle(ctx context.Context, query GetBadgeSuggestionsQuery) (*GetBadgeSuggestionsResult, error) {
	// Валидация
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetBadgeSuggestions", shared.ErrValidation, err.Error(), err)
	}

	suggestions, err := h.badgeRepo.ListSuggestionsByStudent(ctx, shared.StudentID(query.StudentID))
	if err != nil {
		return nil, shared.WrapError("query", "GetBadgeSuggestions", shared.ErrNotFound, "failed to load suggestions", err)
	}

	dtos := make([]BadgeSuggestionDTO, 0, len(suggestions))
	for _, s := range suggestions {
		dtos = append(dtos, buildBadgeSuggestionDTO(s))
	}

	if query.SortByPriority {
		sort.SliceStable(dtos, func(i, j int) bool {
			return badge.SuggestionPriority(dtos[i].Priority).Weight() > badge.SuggestionPriority(dtos[j].Priority).Weight()
		})
	}

	return &GetBadgeSuggestionsResult{
		StudentID:   query.StudentID,
		Suggestions: dtos,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// buildBadgeSuggestionDTO формирует DTO из доменного предложения.
func buildBadgeSuggestionDTO(s *badge.BadgeSuggestion) BadgeSuggestionDTO {
	return BadgeSuggestionDTO{
		ID:              s.ID,
		StudentID:       s.StudentID.String(),
		BadgeType:       s.BadgeType.String(),
		BadgeName:       s.BadgeType.DisplayName(),
		Subject:         s.Subject.String(),
		AssignmentID:    s.AssignmentID.String(),
		AssignmentTitle: s.AssignmentTitle,
		Reason:          s.Reason,
		Evidence:        s.Evidence,
		Priority:        string(s.Priority),
		CreatedAt:       s.CreatedAt,
	}
}
