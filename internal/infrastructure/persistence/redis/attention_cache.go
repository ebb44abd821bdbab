// Package redis implements Redis caching for ClassPulse Insight Hub.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/classpulse/insight-hub/internal/domain/insight"
	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENTION CACHE
// ══════════════════════════════════════════════════════════════════════════════

// AttentionCache implements insight.AttentionCache backed by Redis.
// Misses are reported as shared.ErrNotFound so callers fall back to a rebuild
// without knowing about the cache layer.
type AttentionCache struct {
	cache        *Cache
	statusTTL    time.Duration
	dashboardTTL time.Duration
}

// NewAttentionCache creates a new AttentionCache with default TTLs.
func NewAttentionCache(cache *Cache) *AttentionCache {
	return NewAttentionCacheWithTTL(cache, TTLAttentionStatus, TTLDashboard)
}

// NewAttentionCacheWithTTL creates a new AttentionCache with explicit TTLs.
// Non-positive values fall back to the package defaults.
func NewAttentionCacheWithTTL(cache *Cache, statusTTL, dashboardTTL time.Duration) *AttentionCache {
	if statusTTL <= 0 {
		statusTTL = TTLAttentionStatus
	}
	if dashboardTTL <= 0 {
		dashboardTTL = TTLDashboard
	}
	return &AttentionCache{
		cache:        cache,
		statusTTL:    statusTTL,
		dashboardTTL: dashboardTTL,
	}
}

// GetStudentStatus returns a cached attention status for a student.
func (c *AttentionCache) GetStudentStatus(ctx context.Context, studentID shared.StudentID, assignmentID shared.AssignmentID) (*insight.StudentAttentionStatus, error) {
	var status insight.StudentAttentionStatus

	key := AttentionKey(studentID.String(), assignmentID.String())
	if err := c.cache.Get(ctx, key, &status); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	return &status, nil
}

// SetStudentStatus stores an attention status in the cache.
func (c *AttentionCache) SetStudentStatus(ctx context.Context, status *insight.StudentAttentionStatus) error {
	if status == nil {
		return ErrCacheNilValue
	}

	key := AttentionKey(status.StudentID.String(), status.AssignmentID.String())
	return c.cache.Set(ctx, key, status, c.statusTTL)
}

// GetDashboard returns the cached dashboard snapshot.
func (c *AttentionCache) GetDashboard(ctx context.Context) (*insight.DashboardAttentionState, error) {
	var state insight.DashboardAttentionState

	if err := c.cache.Get(ctx, DashboardKey(), &state); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	return &state, nil
}

// SetDashboard stores a dashboard snapshot in the cache.
func (c *AttentionCache) SetDashboard(ctx context.Context, state *insight.DashboardAttentionState) error {
	if state == nil {
		return ErrCacheNilValue
	}

	return c.cache.Set(ctx, DashboardKey(), state, c.dashboardTTL)
}

// InvalidateStudent removes all cached attention entries for a student.
func (c *AttentionCache) InvalidateStudent(ctx context.Context, studentID shared.StudentID) error {
	return c.cache.DeleteByPattern(ctx, AttentionPattern(studentID.String()))
}

// InvalidateDashboard removes the cached dashboard snapshot.
func (c *AttentionCache) InvalidateDashboard(ctx context.Context) error {
	return c.cache.Delete(ctx, DashboardKey())
}
