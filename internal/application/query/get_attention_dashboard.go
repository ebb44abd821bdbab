package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/classpulse/insight-hub/internal/domain/badge"
	"github.com/classpulse/insight-hub/internal/domain/insight"
	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ATTENTION DASHBOARD QUERY
// Сводка по всему набору рекомендаций: ученики, требующие внимания, плюс
// разбивка по заданиям. Это стартовый экран панели учителя, поэтому
// результат кешируется.
// ══════════════════════════════════════════════════════════════════════════════

// GetAttentionDashboardQuery содержит параметры запроса сводки дашборда.
type GetAttentionDashboardQuery struct {
	// AssignmentIDs - задания для разбивки. Пустой список = все задания,
	// встречающиеся в рекомендациях, в порядке первого появления.
	AssignmentIDs []string

	// SkipCache - игнорировать кеш и пересчитать сводку из хранилища.
	SkipCache bool
}

// Validate проверяет корректность параметров запроса.
func (q *GetAttentionDashboardQuery) Validate() error {
	for _, id := range q.AssignmentIDs {
		if !shared.AssignmentID(id).IsValid() {
			return shared.NewDomainError("query", "GetAttentionDashboard", shared.ErrInvalidID, "assignment_id has invalid format: "+id)
		}
	}
	return nil
}

// AssignmentSummaryDTO - сводка внимания по одному заданию.
type AssignmentSummaryDTO struct {
	// AssignmentID - идентификатор задания.
	AssignmentID string `json:"assignment_id"`

	// TotalRecommendations - всего рекомендаций по заданию.
	TotalRecommendations int `json:"total_recommendations"`

	// NeedingAttention - ученики, требующие внимания.
	NeedingAttention []AttentionEntryDTO `json:"needing_attention"`

	// PendingCount - ученики с ожидающими рекомендациями.
	PendingCount int `json:"pending_count"`

	// ResolvedCount - ученики, у которых всё закрыто.
	ResolvedCount int `json:"resolved_count"`
}

// GetAttentionDashboardResult содержит сводку дашборда.
type GetAttentionDashboardResult struct {
	// ─────────────────────────────────────────────────────────────────────────
	// Общий срез
	// ─────────────────────────────────────────────────────────────────────────

	// TotalActive - количество активных рекомендаций во всём наборе.
	TotalActive int `json:"total_active"`

	// StudentsNeedingAttention - ученики, требующие внимания, поверх всех
	// заданий, самые отмеченные первыми.
	StudentsNeedingAttention []AttentionEntryDTO `json:"students_needing_attention"`

	// ─────────────────────────────────────────────────────────────────────────
	// Разбивка по заданиям
	// ─────────────────────────────────────────────────────────────────────────

	// Assignments - сводки по заданиям.
	Assignments []AssignmentSummaryDTO `json:"assignments"`

	// ─────────────────────────────────────────────────────────────────────────
	// Контекст бейджей
	// ─────────────────────────────────────────────────────────────────────────

	// BadgesAwardedLast7Days - бейджи, выданные за последнюю неделю.
	BadgesAwardedLast7Days int `json:"badges_awarded_last_7_days"`

	// FromCache - сводка взята из кеша.
	FromCache bool `json:"from_cache"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetAttentionDashboardHandler обрабатывает запросы сводки дашборда.
type GetAttentionDashboardHandler struct {
	recRepo    insight.Repository
	badgeRepo  badge.Repository
	classifier *insight.Classifier
	cache      insight.AttentionCache
	logger     *slog.Logger
}

// NewGetAttentionDashboardHandler создаёт новый обработчик.
// badgeRepo и cache опциональны.
func NewGetAttentionDashboardHandler(
	recRepo insight.Repository,
	badgeRepo badge.Repository,
	classifier *insight.Classifier,
	cache insight.AttentionCache,
	logger *slog.Logger,
) *GetAttentionDashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetAttentionDashboardHandler{
		recRepo:    recRepo,
		badgeRepo:  badgeRepo,
		classifier: classifier,
		cache:      cache,
		logger:     logger,
	}
}

// Handle выполняет запрос сводки дашборда.
func (h *GetAttentionDashboardHandler) Handle(ctx context.Context, query GetAttentionDashboardQuery) (*GetAttentionDashboardResult, error) {
	// Валидация
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetAttentionDashboard", shared.ErrValidation, err.Error(), err)
	}

	// Кеш хранит сводку без фильтра по заданиям; запрос с явным списком
	// заданий всегда пересчитывается.
	useCache := h.cache != nil && !query.SkipCache && len(query.AssignmentIDs) == 0

	if useCache {
		state, err := h.cache.GetDashboard(ctx)
		if err == nil {
			return h.buildResult(ctx, *state, true), nil
		}
		if !shared.IsNotFound(err) {
			h.logger.Warn("dashboard cache read failed", "error", err)
		}
	}

	recs, err := h.recRepo.ListAll(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "GetAttentionDashboard", shared.ErrNotFound, "failed to load recommendations", err)
	}

	assignmentIDs := resolveAssignmentIDs(recs, query.AssignmentIDs)
	state := h.classifier.DashboardAttentionState(recs, studentNameIndex(recs), assignmentIDs)

	if useCache {
		if err := h.cache.SetDashboard(ctx, &state); err != nil {
			h.logger.Warn("dashboard cache write failed", "error", err)
		}
	}

	return h.buildResult(ctx, state, false), nil
}

// buildResult формирует DTO из доменного состояния и добавляет счётчик
// недавно выданных бейджей.
func (h *GetAttentionDashboardHandler) buildResult(ctx context.Context, state insight.DashboardAttentionState, fromCache bool) *GetAttentionDashboardResult {
	result := &GetAttentionDashboardResult{
		TotalActive:              state.TotalActive,
		StudentsNeedingAttention: buildAttentionEntryDTOs(state.StudentsNeedingAttention),
		Assignments:              make([]AssignmentSummaryDTO, 0, len(state.Assignments)),
		FromCache:                fromCache,
		GeneratedAt:              time.Now().UTC(),
	}

	for _, summary := range state.Assignments {
		result.Assignments = append(result.Assignments, AssignmentSummaryDTO{
			AssignmentID:         summary.AssignmentID.String(),
			TotalRecommendations: summary.TotalRecommendations,
			NeedingAttention:     buildAttentionEntryDTOs(summary.NeedingAttention),
			PendingCount:         len(summary.PendingStudents),
			ResolvedCount:        len(summary.ResolvedStudents),
		})
	}

	if h.badgeRepo != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		count, err := h.badgeRepo.CountAwardedSince(ctx, since)
		if err != nil {
			h.logger.Warn("failed to count recent badges", "error", err)
		} else {
			result.BadgesAwardedLast7Days = count
		}
	}

	return result
}

// resolveAssignmentIDs возвращает явный список заданий либо задания из
// рекомендаций в порядке первого появления.
func resolveAssignmentIDs(recs []*insight.Recommendation, explicit []string) []shared.AssignmentID {
	if len(explicit) > 0 {
		ids := make([]shared.AssignmentID, 0, len(explicit))
		for _, id := range explicit {
			ids = append(ids, shared.AssignmentID(id))
		}
		return ids
	}

	seen := make(map[shared.AssignmentID]struct{})
	var ids []shared.AssignmentID
	for _, rec := range recs {
		if rec == nil || rec.AssignmentID.IsEmpty() {
			continue
		}
		if _, ok := seen[rec.AssignmentID]; ok {
			continue
		}
		seen[rec.AssignmentID] = struct{}{}
		ids = append(ids, rec.AssignmentID)
	}
	return ids
}
