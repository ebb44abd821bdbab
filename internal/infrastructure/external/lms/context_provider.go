// Package lms implements the ClassPulse LMS API client.
package lms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/classpulse/insight-hub/internal/domain/badge"
	"github.com/classpulse/insight-hub/internal/domain/shared"
	infraredis "github.com/classpulse/insight-hub/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE CONTEXT PROVIDER
// ══════════════════════════════════════════════════════════════════════════════

// lmsSnapshot is the cached LMS portion of a badge context. Awarded badges are
// deliberately excluded: they must always be read fresh so a badge awarded a
// minute ago suppresses the next suggestion.
type lmsSnapshot struct {
	Profile  StudentProfileDTO `json:"profile"`
	Attempts []AttemptDTO      `json:"attempts"`
}

// ContextProvider implements badge.ContextProvider by combining the LMS API
// (profile and attempt history) with the local awarded-badge ledger.
type ContextProvider struct {
	client   *Client
	badges   badge.Repository
	cache    *infraredis.Cache
	cacheTTL time.Duration
	mapper   *Mapper
	logger   *slog.Logger
}

// NewContextProvider creates a new ContextProvider.
// The cache is optional; pass nil to always hit the LMS API.
func NewContextProvider(client *Client, badges badge.Repository, cache *infraredis.Cache, logger *slog.Logger) *ContextProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextProvider{
		client:   client,
		badges:   badges,
		cache:    cache,
		cacheTTL: infraredis.TTLBadgeContext,
		mapper:   NewMapper(),
		logger:   logger,
	}
}

// SetSnapshotTTL overrides how long LMS snapshots stay cached.
// Non-positive values are ignored.
func (p *ContextProvider) SetSnapshotTTL(ttl time.Duration) {
	if ttl > 0 {
		p.cacheTTL = ttl
	}
}

// FetchBadgeContext returns the full evaluation snapshot for a student.
func (p *ContextProvider) FetchBadgeContext(ctx context.Context, studentID shared.StudentID) (*badge.StudentBadgeContext, error) {
	snapshot, err := p.fetchSnapshot(ctx, studentID)
	if err != nil {
		return nil, err
	}

	awarded, err := p.badges.ListAwardedByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list awarded badges: %w", err)
	}

	return p.mapper.BuildBadgeContext(&snapshot.Profile, snapshot.Attempts, awarded), nil
}

// fetchSnapshot returns the LMS portion of the context, from cache when possible.
func (p *ContextProvider) fetchSnapshot(ctx context.Context, studentID shared.StudentID) (*lmsSnapshot, error) {
	key := infraredis.BadgeContextKey(studentID.String())

	if p.cache != nil {
		var cached lmsSnapshot
		err := p.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, infraredis.ErrCacheMiss) {
			p.logger.Warn("badge context cache read failed", "student_id", studentID.String(), "error", err)
		}
	}

	profile, err := p.client.GetStudentProfile(ctx, studentID.String())
	if err != nil {
		return nil, err
	}

	attempts, err := p.client.GetAllAttempts(ctx, studentID.String())
	if err != nil {
		return nil, err
	}

	snapshot := &lmsSnapshot{
		Profile:  *profile,
		Attempts: attempts,
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, snapshot, p.cacheTTL); err != nil {
			p.logger.Warn("badge context cache write failed", "student_id", studentID.String(), "error", err)
		}
	}

	return snapshot, nil
}

// InvalidateStudent drops the cached LMS snapshot for a student.
// Called when a new attempt arrives so the next evaluation sees it.
func (p *ContextProvider) InvalidateStudent(ctx context.Context, studentID shared.StudentID) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Delete(ctx, infraredis.BadgeContextKey(studentID.String()))
}
