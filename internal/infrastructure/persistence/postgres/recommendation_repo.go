// Package postgres implements PostgreSQL persistence for ClassPulse Insight Hub.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/classpulse/insight-hub/internal/domain/insight"
	"github.com/classpulse/insight-hub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOMMENDATION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RecommendationRepository implements insight.Repository for PostgreSQL.
type RecommendationRepository struct {
	conn *Connection
}

// NewRecommendationRepository creates a new RecommendationRepository.
func NewRecommendationRepository(conn *Connection) *RecommendationRepository {
	return &RecommendationRepository{conn: conn}
}

const recommendationColumns = `id, status, insight_type, rule_name, signals,
	   student_ids, assignment_id, priority, summary, created_at, updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create stores a new recommendation.
func (r *RecommendationRepository) Create(ctx context.Context, rec *insight.Recommendation) error {
	query := `
		INSERT INTO recommendations (
			id, status, insight_type, rule_name, signals,
			student_ids, assignment_id, priority, summary, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	signalsJSON, err := json.Marshal(rec.TriggerData.Signals)
	if err != nil {
		return fmt.Errorf("failed to marshal signals: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		rec.ID,
		string(rec.Status),
		string(rec.InsightType),
		string(rec.TriggerData.RuleName),
		signalsJSON,
		studentIDsToStrings(rec.StudentIDs),
		string(rec.AssignmentID),
		rec.Priority,
		rec.Summary,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create recommendation: %w", err)
	}

	return nil
}

// GetByID returns a recommendation by ID.
func (r *RecommendationRepository) GetByID(ctx context.Context, id string) (*insight.Recommendation, error) {
	query := `
		SELECT ` + recommendationColumns + `
		FROM recommendations
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanRecommendation(row)
}

// Update persists a modified recommendation (primarily status changes).
func (r *RecommendationRepository) Update(ctx context.Context, rec *insight.Recommendation) error {
	query := `
		UPDATE recommendations SET
			status = $1,
			insight_type = $2,
			rule_name = $3,
			signals = $4,
			student_ids = $5,
			assignment_id = $6,
			priority = $7,
			summary = $8,
			updated_at = $9
		WHERE id = $10
	`

	signalsJSON, err := json.Marshal(rec.TriggerData.Signals)
	if err != nil {
		return fmt.Errorf("failed to marshal signals: %w", err)
	}

	result, err := r.conn.Exec(ctx, query,
		string(rec.Status),
		string(rec.InsightType),
		string(rec.TriggerData.RuleName),
		signalsJSON,
		studentIDsToStrings(rec.StudentIDs),
		string(rec.AssignmentID),
		rec.Priority,
		rec.Summary,
		rec.UpdatedAt,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recommendation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrRecommendationNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// List Operations
// ─────────────────────────────────────────────────────────────────────────────

// ListByStudent returns recommendations that mention the student, newest first.
func (r *RecommendationRepository) ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*insight.Recommendation, error) {
	query := `
		SELECT ` + recommendationColumns + `
		FROM recommendations
		WHERE $1 = ANY(student_ids)
		ORDER BY created_at DESC
	`

	rows, err := r.conn.Query(ctx, query, studentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations by student: %w", err)
	}
	defer rows.Close()

	return r.scanRecommendations(rows)
}

// ListByAssignment returns recommendations for an assignment, newest first.
func (r *RecommendationRepository) ListByAssignment(ctx context.Context, assignmentID shared.AssignmentID) ([]*insight.Recommendation, error) {
	query := `
		SELECT ` + recommendationColumns + `
		FROM recommendations
		WHERE assignment_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.conn.Query(ctx, query, assignmentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations by assignment: %w", err)
	}
	defer rows.Close()

	return r.scanRecommendations(rows)
}

// ListByStatus returns recommendations with the given status, newest first.
func (r *RecommendationRepository) ListByStatus(ctx context.Context, status insight.Status, opts shared.Pagination) ([]*insight.Recommendation, error) {
	query := `
		SELECT ` + recommendationColumns + `
		FROM recommendations
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.Query(ctx, query, string(status), opts.Limit(), opts.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations by status: %w", err)
	}
	defer rows.Close()

	return r.scanRecommendations(rows)
}

// ListAll returns all recommendations in creation order.
// The dashboard builder partitions them in memory.
func (r *RecommendationRepository) ListAll(ctx context.Context) ([]*insight.Recommendation, error) {
	query := `
		SELECT ` + recommendationColumns + `
		FROM recommendations
		ORDER BY created_at ASC
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query all recommendations: %w", err)
	}
	defer rows.Close()

	return r.scanRecommendations(rows)
}

// CountByStatus returns the number of recommendations with the given status.
func (r *RecommendationRepository) CountByStatus(ctx context.Context, status insight.Status) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM recommendations WHERE status = $1",
		string(status),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recommendations by status: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan Helpers
// ─────────────────────────────────────────────────────────────────────────────

// scanRecommendation scans a single recommendation from a row.
func (r *RecommendationRepository) scanRecommendation(row pgx.Row) (*insight.Recommendation, error) {
	var (
		rec          insight.Recommendation
		status       string
		insightType  string
		ruleName     string
		signalsJSON  []byte
		studentIDs   []string
		assignmentID string
	)

	err := row.Scan(
		&rec.ID,
		&status,
		&insightType,
		&ruleName,
		&signalsJSON,
		&studentIDs,
		&assignmentID,
		&rec.Priority,
		&rec.Summary,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrRecommendationNotFound
		}
		return nil, fmt.Errorf("failed to scan recommendation: %w", err)
	}

	rec.Status = insight.Status(status)
	rec.InsightType = insight.InsightType(insightType)
	rec.TriggerData.RuleName = insight.RuleName(ruleName)
	rec.StudentIDs = stringsToStudentIDs(studentIDs)
	rec.AssignmentID = shared.AssignmentID(assignmentID)

	if len(signalsJSON) > 0 {
		if err := json.Unmarshal(signalsJSON, &rec.TriggerData.Signals); err != nil {
			return nil, fmt.Errorf("failed to unmarshal signals: %w", err)
		}
	}

	return &rec, nil
}

// scanRecommendations scans multiple recommendations from rows.
func (r *RecommendationRepository) scanRecommendations(rows pgx.Rows) ([]*insight.Recommendation, error) {
	recs := make([]*insight.Recommendation, 0)

	for rows.Next() {
		rec, err := r.scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

func studentIDsToStrings(ids []shared.StudentID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func stringsToStudentIDs(ids []string) []shared.StudentID {
	out := make([]shared.StudentID, len(ids))
	for i, id := range ids {
		out[i] = shared.StudentID(id)
	}
	return out
}
