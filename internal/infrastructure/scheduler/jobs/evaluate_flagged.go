package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/classpulse/insight-hub/internal/application/command"
	"github.com/classpulse/insight-hub/internal/domain/insight"
	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATE FLAGGED STUDENTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateFlaggedStudentsJob re-runs badge evaluation for every student with an
// active recommendation. Students a teacher is worried about are exactly the
// ones whose earned badges should surface quickly; the event-driven path covers
// new attempts, this sweep covers time-based transitions (cooldown expiry,
// the progress window).
type EvaluateFlaggedStudentsJob struct {
	recRepo  insight.Repository
	evaluate *command.EvaluateBadgesHandler
	logger   *slog.Logger

	config EvaluateFlaggedConfig

	lastStats atomic.Value // *EvaluateFlaggedStats
}

// EvaluateFlaggedConfig contains configuration for the evaluation sweep.
type EvaluateFlaggedConfig struct {
	// MaxStudents caps how many students one sweep evaluates.
	MaxStudents int

	// Timeout is the maximum duration for one sweep.
	Timeout time.Duration
}

// DefaultEvaluateFlaggedConfig returns sensible defaults.
func DefaultEvaluateFlaggedConfig() EvaluateFlaggedConfig {
	return EvaluateFlaggedConfig{
		MaxStudents: 200,
		Timeout:     5 * time.Minute,
	}
}

// EvaluateFlaggedStats contains statistics from a sweep run.
type EvaluateFlaggedStats struct {
	StartedAt         time.Time
	CompletedAt       time.Time
	Duration          time.Duration
	StudentsEvaluated int
	SuggestionsAdded  int
	DuplicatesSkipped int
	Errors            int
}

// NewEvaluateFlaggedStudentsJob creates a new badge evaluation sweep job.
func NewEvaluateFlaggedStudentsJob(
	recRepo insight.Repository,
	evaluate *command.EvaluateBadgesHandler,
	logger *slog.Logger,
	config EvaluateFlaggedConfig,
) *EvaluateFlaggedStudentsJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &EvaluateFlaggedStudentsJob{
		recRepo:  recRepo,
		evaluate: evaluate,
		logger:   logger,
		config:   config,
	}
}

// Name returns the job name.
func (j *EvaluateFlaggedStudentsJob) Name() string {
	return "evaluate_flagged_students"
}

// Description returns a human-readable description.
func (j *EvaluateFlaggedStudentsJob) Description() string {
	return "Re-evaluates badge eligibility for students with active recommendations"
}

// Run executes the sweep.
func (j *EvaluateFlaggedStudentsJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &EvaluateFlaggedStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	students, err := j.flaggedStudents(ctx)
	if err != nil {
		return fmt.Errorf("list flagged students: %w", err)
	}

	for _, studentID := range students {
		if ctx.Err() != nil {
			break
		}

		result, err := j.evaluate.Handle(ctx, command.EvaluateBadgesCommand{
			StudentID: studentID.String(),
		})
		if err != nil {
			stats.Errors++
			j.logger.Warn("badge evaluation failed",
				"student_id", studentID.String(),
				"error", err,
			)
			continue
		}

		stats.StudentsEvaluated++
		stats.SuggestionsAdded += len(result.Suggested)
		stats.DuplicatesSkipped += result.DuplicatesSkipped
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastStats.Store(stats)

	j.logger.Info("evaluate_flagged_students job completed",
		"duration", stats.Duration.String(),
		"students", stats.StudentsEvaluated,
		"suggestions", stats.SuggestionsAdded,
		"errors", stats.Errors,
	)

	if stats.Errors > 0 {
		return fmt.Errorf("sweep completed with %d errors", stats.Errors)
	}

	return nil
}

// flaggedStudents returns the unique students across active recommendations,
// in first-seen order, capped at MaxStudents.
func (j *EvaluateFlaggedStudentsJob) flaggedStudents(ctx context.Context) ([]shared.StudentID, error) {
	recs, err := j.recRepo.ListByStatus(ctx, insight.StatusActive, shared.Pagination{
		Page:     1,
		PageSize: shared.MaxPageSize,
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[shared.StudentID]struct{})
	var students []shared.StudentID
	for _, rec := range recs {
		for _, id := range rec.StudentIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			students = append(students, id)

			if j.config.MaxStudents > 0 && len(students) >= j.config.MaxStudents {
				return students, nil
			}
		}
	}
	return students, nil
}

// LastStats returns statistics from the last sweep.
func (j *EvaluateFlaggedStudentsJob) LastStats() *EvaluateFlaggedStats {
	stats := j.lastStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*EvaluateFlaggedStats)
}
