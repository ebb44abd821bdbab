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
// REVIEW STALE RECOMMENDATIONS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ReviewStaleRecommendationsJob closes active recommendations that no teacher
// has acted on within the retention window. An attention flag from three weeks
// ago describes a situation that no longer exists; leaving it active buries
// the current ones.
type ReviewStaleRecommendationsJob struct {
	recRepo insight.Repository
	resolve *command.ResolveRecommendationHandler
	logger  *slog.Logger

	config ReviewStaleConfig

	lastStats atomic.Value // *ReviewStaleStats
}

// ReviewStaleConfig contains configuration for the stale review job.
type ReviewStaleConfig struct {
	// MaxAge is how long an active recommendation may go untouched.
	MaxAge time.Duration

	// Timeout is the maximum duration for one run.
	Timeout time.Duration
}

// DefaultReviewStaleConfig returns sensible defaults.
func DefaultReviewStaleConfig() ReviewStaleConfig {
	return ReviewStaleConfig{
		MaxAge:  21 * 24 * time.Hour,
		Timeout: 2 * time.Minute,
	}
}

// ReviewStaleStats contains statistics from a review run.
type ReviewStaleStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Examined    int
	Closed      int
	Errors      int
}

// NewReviewStaleRecommendationsJob creates a new stale review job.
func NewReviewStaleRecommendationsJob(
	recRepo insight.Repository,
	resolve *command.ResolveRecommendationHandler,
	logger *slog.Logger,
	config ReviewStaleConfig,
) *ReviewStaleRecommendationsJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &ReviewStaleRecommendationsJob{
		recRepo: recRepo,
		resolve: resolve,
		logger:  logger,
		config:  config,
	}
}

// Name returns the job name.
func (j *ReviewStaleRecommendationsJob) Name() string {
	return "review_stale_recommendations"
}

// Description returns a human-readable description.
func (j *ReviewStaleRecommendationsJob) Description() string {
	return "Closes active recommendations untouched for longer than the retention window"
}

// Run executes the review job.
func (j *ReviewStaleRecommendationsJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &ReviewStaleStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	cutoff := time.Now().UTC().Add(-j.config.MaxAge)

	recs, err := j.recRepo.ListByStatus(ctx, insight.StatusActive, shared.Pagination{
		Page:     1,
		PageSize: shared.MaxPageSize,
	})
	if err != nil {
		return fmt.Errorf("list active recommendations: %w", err)
	}

	for _, rec := range recs {
		if ctx.Err() != nil {
			break
		}
		stats.Examined++

		if rec.UpdatedAt.After(cutoff) {
			continue
		}

		// Going through the resolve command keeps attention caches and event
		// consumers consistent with teacher-initiated transitions.
		_, err := j.resolve.Handle(ctx, command.ResolveRecommendationCommand{
			RecommendationID: rec.ID,
			TargetStatus:     string(insight.StatusReviewed),
			ActedBy:          "auto-review",
		})
		if err != nil {
			stats.Errors++
			j.logger.Warn("failed to close stale recommendation",
				"recommendation_id", rec.ID,
				"error", err,
			)
			continue
		}

		stats.Closed++
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastStats.Store(stats)

	j.logger.Info("review_stale_recommendations job completed",
		"duration", stats.Duration.String(),
		"examined", stats.Examined,
		"closed", stats.Closed,
		"errors", stats.Errors,
	)

	if stats.Errors > 0 {
		return fmt.Errorf("review completed with %d errors", stats.Errors)
	}

	return nil
}

// LastStats returns statistics from the last run.
func (j *ReviewStaleRecommendationsJob) LastStats() *ReviewStaleStats {
	stats := j.lastStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*ReviewStaleStats)
}
