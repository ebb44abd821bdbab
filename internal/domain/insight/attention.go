package insight

import (
	"sort"

	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENTION AGGREGATES
// Агрегаты по ученику, заданию и дашборду целиком. Все функции чистые:
// принимают снимок рекомендаций и ничего не мутируют.
// ══════════════════════════════════════════════════════════════════════════════

// StudentAttentionStatus - статус внимания одного ученика.
type StudentAttentionStatus struct {
	StudentID shared.StudentID

	// AssignmentID пусто для статуса поверх всех заданий.
	AssignmentID shared.AssignmentID

	// NeedsAttention истинно, если хотя бы одна рекомендация ученика
	// проходит предикат IsAttentionNow.
	NeedsAttention bool

	// AttentionReason - причина из рекомендации с наибольшим числовым
	// приоритетом среди требующих внимания.
	AttentionReason string

	// Разбиение идентификаторов рекомендаций по статусам.
	ActiveIDs   []string
	PendingIDs  []string
	ResolvedIDs []string
}

// AttentionOptions - фильтры для выборки учеников, требующих внимания.
type AttentionOptions struct {
	// AssignmentID ограничивает выборку одним заданием.
	AssignmentID shared.AssignmentID

	// ClassName ограничивает выборку одним классом (по сигналу class_name).
	ClassName string
}

// StudentAttentionEntry - ученик вместе с его статусом внимания.
type StudentAttentionEntry struct {
	StudentID   shared.StudentID
	StudentName string
	Status      StudentAttentionStatus
}

// AssignmentAttentionSummary - сводка внимания по одному заданию.
type AssignmentAttentionSummary struct {
	AssignmentID         shared.AssignmentID
	TotalRecommendations int

	// NeedingAttention - ученики, требующие внимания, самые отмеченные первыми.
	NeedingAttention []StudentAttentionEntry

	// PendingStudents - ученики с ожидающими рекомендациями без нужды во внимании.
	PendingStudents []shared.StudentID

	// ResolvedStudents - ученики, у которых всё закрыто.
	ResolvedStudents []shared.StudentID
}

// DashboardAttentionState - сводка внимания по списку заданий.
type DashboardAttentionState struct {
	Assignments []AssignmentAttentionSummary

	// TotalActive - количество активных рекомендаций во всём наборе.
	TotalActive int

	// StudentsNeedingAttention - ученики, требующие внимания, поверх всех
	// заданий, самые отмеченные первыми.
	StudentsNeedingAttention []StudentAttentionEntry
}

// StudentAttentionStatus вычисляет статус внимания ученика по снимку
// рекомендаций. Пустой assignmentID означает "по всем заданиям".
func (c *Classifier) StudentAttentionStatus(recs []*Recommendation, studentID shared.StudentID, assignmentID shared.AssignmentID) StudentAttentionStatus {
	status := StudentAttentionStatus{
		StudentID:    studentID,
		AssignmentID: assignmentID,
	}

	bestPriority := 0
	for _, rec := range recs {
		if rec == nil || !rec.HasStudent(studentID) {
			continue
		}
		if !assignmentID.IsEmpty() && rec.AssignmentID != assignmentID {
			continue
		}

		switch rec.Status {
		case StatusActive:
			status.ActiveIDs = append(status.ActiveIDs, rec.ID)
		case StatusPending:
			status.PendingIDs = append(status.PendingIDs, rec.ID)
		default:
			status.ResolvedIDs = append(status.ResolvedIDs, rec.ID)
		}

		if c.IsAttentionNow(rec) {
			if !status.NeedsAttention || rec.Priority > bestPriority {
				status.AttentionReason = c.AttentionReason(rec)
				bestPriority = rec.Priority
			}
			status.NeedsAttention = true
		}
	}

	return status
}

// StudentsNeedingAttention возвращает учеников, требующих внимания,
// отсортированных по убыванию количества активных рекомендаций
// (самые отмеченные первыми). Сортировка стабильна: при равенстве
// сохраняется порядок первого появления во входных данных.
func (c *Classifier) StudentsNeedingAttention(recs []*Recommendation, names map[shared.StudentID]string, opts AttentionOptions) []StudentAttentionEntry {
	filtered := filterRecommendations(recs, opts)

	// Объединение идентификаторов учеников в порядке первого появления.
	seen := make(map[shared.StudentID]struct{})
	var order []shared.StudentID
	for _, rec := range filtered {
		for _, id := range rec.StudentIDs {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				order = append(order, id)
			}
		}
	}

	var entries []StudentAttentionEntry
	for _, id := range order {
		status := c.StudentAttentionStatus(filtered, id, opts.AssignmentID)
		if !status.NeedsAttention {
			continue
		}
		entries = append(entries, StudentAttentionEntry{
			StudentID:   id,
			StudentName: names[id],
			Status:      status,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].Status.ActiveIDs) > len(entries[j].Status.ActiveIDs)
	})
	return entries
}

// AssignmentAttentionSummary строит сводку внимания по одному заданию.
func (c *Classifier) AssignmentAttentionSummary(recs []*Recommendation, names map[shared.StudentID]string, assignmentID shared.AssignmentID) AssignmentAttentionSummary {
	opts := AttentionOptions{AssignmentID: assignmentID}
	filtered := filterRecommendations(recs, opts)

	summary := AssignmentAttentionSummary{
		AssignmentID:         assignmentID,
		TotalRecommendations: len(filtered),
		NeedingAttention:     c.StudentsNeedingAttention(filtered, names, opts),
	}

	needing := make(map[shared.StudentID]struct{}, len(summary.NeedingAttention))
	for _, e := range summary.NeedingAttention {
		needing[e.StudentID] = struct{}{}
	}

	// Остальные ученики распределяются в pending либо resolved.
	seen := make(map[shared.StudentID]struct{})
	for _, rec := range filtered {
		for _, id := range rec.StudentIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			if _, ok := needing[id]; ok {
				continue
			}
			status := c.StudentAttentionStatus(filtered, id, assignmentID)
			switch {
			case len(status.PendingIDs) > 0:
				summary.PendingStudents = append(summary.PendingStudents, id)
			case len(status.ResolvedIDs) > 0:
				summary.ResolvedStudents = append(summary.ResolvedStudents, id)
			}
		}
	}

	return summary
}

// DashboardAttentionState собирает сводку по списку заданий плюс общий
// срез учеников, требующих внимания, поверх всех рекомендаций.
func (c *Classifier) DashboardAttentionState(recs []*Recommendation, names map[shared.StudentID]string, assignmentIDs []shared.AssignmentID) DashboardAttentionState {
	state := DashboardAttentionState{
		StudentsNeedingAttention: c.StudentsNeedingAttention(recs, names, AttentionOptions{}),
	}

	for _, rec := range recs {
		if rec != nil && rec.Status == StatusActive {
			state.TotalActive++
		}
	}

	for _, id := range assignmentIDs {
		state.Assignments = append(state.Assignments, c.AssignmentAttentionSummary(recs, names, id))
	}

	return state
}

// StudentsToRemoveFromAttention возвращает учеников только что закрытой
// рекомендации, у которых не осталось других активных рекомендаций.
// Именно их вызывающий слой должен убрать из индикаторов "needs attention".
// Функция ничего не мутирует.
func StudentsToRemoveFromAttention(allRecs []*Recommendation, acted *Recommendation) []shared.StudentID {
	if acted == nil {
		return nil
	}

	var toRemove []shared.StudentID
	for _, studentID := range acted.StudentIDs {
		hasOtherActive := false
		for _, rec := range allRecs {
			if rec == nil || rec.ID == acted.ID {
				continue
			}
			if rec.Status == StatusActive && rec.HasStudent(studentID) {
				hasOtherActive = true
				break
			}
		}
		if !hasOtherActive {
			toRemove = append(toRemove, studentID)
		}
	}
	return toRemove
}

// filterRecommendations применяет фильтры по заданию и классу.
func filterRecommendations(recs []*Recommendation, opts AttentionOptions) []*Recommendation {
	filtered := make([]*Recommendation, 0, len(recs))
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		if !opts.AssignmentID.IsEmpty() && rec.AssignmentID != opts.AssignmentID {
			continue
		}
		if opts.ClassName != "" && rec.Signals().ClassName != opts.ClassName {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered
}
