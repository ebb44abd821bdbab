// Package jobs contains implementations of scheduled jobs for ClassPulse Insight Hub.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/classpulse/insight-hub/internal/application/query"
	"github.com/classpulse/insight-hub/internal/domain/insight"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH DASHBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// RefreshDashboardJob recomputes the attention dashboard and warms its cache.
// Teachers open the dashboard first thing in a lesson; a warm cache keeps that
// first load off the database.
type RefreshDashboardJob struct {
	dashboard *query.GetAttentionDashboardHandler
	cache     insight.AttentionCache
	logger    *slog.Logger

	config RefreshDashboardConfig

	lastStats atomic.Value // *RefreshDashboardStats
}

// RefreshDashboardConfig contains configuration for the refresh job.
type RefreshDashboardConfig struct {
	// Timeout is the maximum duration for one refresh.
	Timeout time.Duration
}

// DefaultRefreshDashboardConfig returns sensible defaults.
func DefaultRefreshDashboardConfig() RefreshDashboardConfig {
	return RefreshDashboardConfig{
		Timeout: 1 * time.Minute,
	}
}

// RefreshDashboardStats contains statistics from a refresh run.
type RefreshDashboardStats struct {
	StartedAt        time.Time
	CompletedAt      time.Time
	Duration         time.Duration
	TotalActive      int
	StudentsNeeding  int
	AssignmentsCount int
}

// NewRefreshDashboardJob creates a new dashboard refresh job.
func NewRefreshDashboardJob(
	dashboard *query.GetAttentionDashboardHandler,
	cache insight.AttentionCache,
	logger *slog.Logger,
	config RefreshDashboardConfig,
) *RefreshDashboardJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &RefreshDashboardJob{
		dashboard: dashboard,
		cache:     cache,
		logger:    logger,
		config:    config,
	}
}

// Name returns the job name.
func (j *RefreshDashboardJob) Name() string {
	return "refresh_dashboard"
}

// Description returns a human-readable description.
func (j *RefreshDashboardJob) Description() string {
	return "Recomputes the attention dashboard summary and warms its cache"
}

// Run executes the refresh job.
func (j *RefreshDashboardJob) Run(ctx context.Context) error {
	startedAt := time.Now()

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	// Drop the cached summary first: the subsequent read misses, recomputes
	// from the store and writes the fresh summary back.
	if j.cache != nil {
		if err := j.cache.InvalidateDashboard(ctx); err != nil {
			j.logger.Warn("failed to invalidate dashboard cache", "error", err)
		}
	}

	result, err := j.dashboard.Handle(ctx, query.GetAttentionDashboardQuery{})
	if err != nil {
		return fmt.Errorf("refresh dashboard: %w", err)
	}

	stats := &RefreshDashboardStats{
		StartedAt:        startedAt,
		CompletedAt:      time.Now(),
		TotalActive:      result.TotalActive,
		StudentsNeeding:  len(result.StudentsNeedingAttention),
		AssignmentsCount: len(result.Assignments),
	}
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastStats.Store(stats)

	j.logger.Info("refresh_dashboard job completed",
		"duration", stats.Duration.String(),
		"total_active", stats.TotalActive,
		"students_needing_attention", stats.StudentsNeeding,
	)

	return nil
}

// LastStats returns statistics from the last refresh.
func (j *RefreshDashboardJob) LastStats() *RefreshDashboardStats {
	stats := j.lastStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RefreshDashboardStats)
}
