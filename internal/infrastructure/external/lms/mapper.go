// Package lms implements the ClassPulse LMS API client.
package lms

import (
	"sort"

	"github.com/classpulse/insight-hub/internal/domain/badge"
	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER - DTO to domain model conversion
// ══════════════════════════════════════════════════════════════════════════════

// Mapper converts LMS DTOs to domain models.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// AttemptFromDTO converts an attempt DTO to a domain attempt.
func (m *Mapper) AttemptFromDTO(dto AttemptDTO) badge.Attempt {
	return badge.Attempt{
		AssignmentID:    shared.AssignmentID(dto.AssignmentID),
		AssignmentTitle: dto.AssignmentTitle,
		Subject:         shared.Subject(dto.Subject).Normalize(),
		Score:           shared.Score(dto.Score).Clamp(),
		HintRate:        shared.HintRate(dto.HintRate()).Clamp(),
		TimeSpentMin:    dto.TimeSpentMinutes(),
		QuestionCount:   dto.QuestionCount,
		CompletedAt:     dto.CompletedAt.UTC(),
	}
}

// BuildBadgeContext assembles a badge evaluation snapshot from the student's
// profile, full attempt history and previously awarded badges.
//
// The most recent attempt becomes the current attempt; earlier attempts of the
// same assignment become the prior-attempt list for the improvement rule, and
// the whole history is grouped per subject for the mastery rule.
func (m *Mapper) BuildBadgeContext(profile *StudentProfileDTO, attempts []AttemptDTO, awarded []badge.AwardedBadge) *badge.StudentBadgeContext {
	sctx := &badge.StudentBadgeContext{
		StudentID:     shared.StudentID(profile.ID),
		StudentName:   profile.FullName(),
		AwardedBadges: awarded,
	}

	if len(attempts) == 0 {
		return sctx
	}

	// Chronological order; the last attempt is the current one.
	sorted := make([]AttemptDTO, len(attempts))
	copy(sorted, attempts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompletedAt.Before(sorted[j].CompletedAt)
	})

	currentDTO := sorted[len(sorted)-1]
	current := m.AttemptFromDTO(currentDTO)
	sctx.CurrentAttempt = &current

	// Prior attempts of the same assignment, oldest first.
	for _, dto := range sorted[:len(sorted)-1] {
		if dto.AssignmentID != currentDTO.AssignmentID {
			continue
		}
		sctx.PreviousAttempts = append(sctx.PreviousAttempts, badge.PriorAttempt{
			Score:       shared.Score(dto.Score).Clamp(),
			CompletedAt: dto.CompletedAt.UTC(),
		})
	}

	sctx.SubjectHistory = m.buildSubjectHistory(sorted)

	return sctx
}

// buildSubjectHistory groups attempts per subject, keeping the latest attempt
// for every assignment. Subjects and assignments stay in first-seen order.
func (m *Mapper) buildSubjectHistory(sorted []AttemptDTO) []badge.SubjectHistory {
	type assignmentSlot struct {
		subjectIdx int
		slotIdx    int
	}

	histories := make([]badge.SubjectHistory, 0)
	subjectIdx := make(map[shared.Subject]int)
	slots := make(map[shared.AssignmentID]assignmentSlot)

	for _, dto := range sorted {
		subject := shared.Subject(dto.Subject).Normalize()
		assignmentID := shared.AssignmentID(dto.AssignmentID)

		entry := badge.SubjectAssignment{
			AssignmentID: assignmentID,
			Score:        shared.Score(dto.Score).Clamp(),
			HintRate:     shared.HintRate(dto.HintRate()).Clamp(),
			CompletedAt:  dto.CompletedAt.UTC(),
		}

		// Later attempt of a known assignment replaces the earlier one.
		if slot, ok := slots[assignmentID]; ok {
			histories[slot.subjectIdx].Assignments[slot.slotIdx] = entry
			continue
		}

		idx, ok := subjectIdx[subject]
		if !ok {
			idx = len(histories)
			subjectIdx[subject] = idx
			histories = append(histories, badge.SubjectHistory{Subject: subject})
		}

		histories[idx].Assignments = append(histories[idx].Assignments, entry)
		slots[assignmentID] = assignmentSlot{subjectIdx: idx, slotIdx: len(histories[idx].Assignments) - 1}
	}

	return histories
}
