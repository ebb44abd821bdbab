// Package postgres implements PostgreSQL persistence for ClassPulse Insight Hub.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/classpulse/insight-hub/internal/domain/badge"
	"github.com/classpulse/insight-hub/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// BadgeRepository implements badge.Repository for PostgreSQL.
type BadgeRepository struct {
	conn *Connection
}

// NewBadgeRepository creates a new BadgeRepository.
func NewBadgeRepository(conn *Connection) *BadgeRepository {
	return &BadgeRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Suggestions
// ─────────────────────────────────────────────────────────────────────────────

// SaveSuggestion stores a new badge suggestion. The repository assigns the ID
// when the evaluator left it empty.
func (r *BadgeRepository) SaveSuggestion(ctx context.Context, s *badge.BadgeSuggestion) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	query := `
		INSERT INTO badge_suggestions (
			id, student_id, badge_type, subject, assignment_id,
			assignment_title, reason, evidence, priority, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	evidenceJSON, err := json.Marshal(s.Evidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		s.ID,
		s.StudentID.String(),
		string(s.BadgeType),
		s.Subject.String(),
		s.AssignmentID.String(),
		s.AssignmentTitle,
		s.Reason,
		evidenceJSON,
		string(s.Priority),
		s.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrSuggestionExists
		}
		return fmt.Errorf("failed to save badge suggestion: %w", err)
	}

	return nil
}

// GetSuggestion returns a suggestion by ID.
func (r *BadgeRepository) GetSuggestion(ctx context.Context, id string) (*badge.BadgeSuggestion, error) {
	query := `
		SELECT id, student_id, badge_type, subject, assignment_id,
			   assignment_title, reason, evidence, priority, created_at
		FROM badge_suggestions
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanSuggestion(row)
}

// ListSuggestionsByStudent returns a student's suggestions, newest first.
func (r *BadgeRepository) ListSuggestionsByStudent(ctx context.Context, studentID shared.StudentID) ([]*badge.BadgeSuggestion, error) {
	query := `
		SELECT id, student_id, badge_type, subject, assignment_id,
			   assignment_title, reason, evidence, priority, created_at
		FROM badge_suggestions
		WHERE student_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.conn.Query(ctx, query, studentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions by student: %w", err)
	}
	defer rows.Close()

	suggestions := make([]*badge.BadgeSuggestion, 0)
	for rows.Next() {
		s, err := r.scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, s)
	}

	return suggestions, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Awarded Badges
// ─────────────────────────────────────────────────────────────────────────────

// SaveAwarded records an awarded badge in the cooldown ledger.
func (r *BadgeRepository) SaveAwarded(ctx context.Context, awarded *badge.AwardedBadge) error {
	query := `
		INSERT INTO awarded_badges (student_id, badge_type, subject, assignment_id, awarded_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.Exec(ctx, query,
		awarded.StudentID.String(),
		string(awarded.BadgeType),
		awarded.Subject.String(),
		awarded.AssignmentID.String(),
		awarded.AwardedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save awarded badge: %w", err)
	}

	return nil
}

// ListAwardedByStudent returns a student's awarded badges for the cooldown ledger.
func (r *BadgeRepository) ListAwardedByStudent(ctx context.Context, studentID shared.StudentID) ([]badge.AwardedBadge, error) {
	query := `
		SELECT student_id, badge_type, subject, assignment_id, awarded_at
		FROM awarded_badges
		WHERE student_id = $1
		ORDER BY awarded_at DESC
	`

	rows, err := r.conn.Query(ctx, query, studentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query awarded badges: %w", err)
	}
	defer rows.Close()

	badges := make([]badge.AwardedBadge, 0)
	for rows.Next() {
		var (
			ab           badge.AwardedBadge
			studentID    string
			badgeType    string
			subject      string
			assignmentID string
		)

		if err := rows.Scan(&studentID, &badgeType, &subject, &assignmentID, &ab.AwardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan awarded badge: %w", err)
		}

		ab.StudentID = shared.StudentID(studentID)
		ab.BadgeType = badge.BadgeType(badgeType)
		ab.Subject = shared.Subject(subject)
		ab.AssignmentID = shared.AssignmentID(assignmentID)

		badges = append(badges, ab)
	}

	return badges, rows.Err()
}

// CountAwardedSince returns the number of badges awarded since the given time.
func (r *BadgeRepository) CountAwardedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM awarded_badges WHERE awarded_at >= $1",
		since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count awarded badges: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan Helpers
// ─────────────────────────────────────────────────────────────────────────────

// scanSuggestion scans a single badge suggestion from a row.
func (r *BadgeRepository) scanSuggestion(row pgx.Row) (*badge.BadgeSuggestion, error) {
	var (
		s            badge.BadgeSuggestion
		studentID    string
		badgeType    string
		subject      string
		assignmentID string
		evidenceJSON []byte
		priority     string
	)

	err := row.Scan(
		&s.ID,
		&studentID,
		&badgeType,
		&subject,
		&assignmentID,
		&s.AssignmentTitle,
		&s.Reason,
		&evidenceJSON,
		&priority,
		&s.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSuggestionNotFound
		}
		return nil, fmt.Errorf("failed to scan badge suggestion: %w", err)
	}

	s.StudentID = shared.StudentID(studentID)
	s.BadgeType = badge.BadgeType(badgeType)
	s.Subject = shared.Subject(subject)
	s.AssignmentID = shared.AssignmentID(assignmentID)
	s.Priority = badge.SuggestionPriority(priority)

	if len(evidenceJSON) > 0 {
		if err := json.Unmarshal(evidenceJSON, &s.Evidence); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evidence: %w", err)
		}
	}

	return &s, nil
}
