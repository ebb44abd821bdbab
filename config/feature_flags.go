package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles and gradual rollouts.
// Rollouts are bucketed per teacher so a classroom sees a consistent UI
// throughout a pilot.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	teacherOverrides map[string]map[string]bool // teacherID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Teachers are assigned based on hash of their ID
	RolloutPercent int

	// School targeting. Empty means all schools.
	TargetSchools []string

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	TeacherID string // Teacher account ID
	SchoolID  string // School the teacher belongs to
	IsAdmin   bool   // Is admin user
}

// Predefined feature flag names.
const (
	// === Attention Features ===
	FeatureAttentionDashboard   = "attention.dashboard"    // Attention dashboard summary
	FeatureAttentionCaching     = "attention.caching"      // Redis cache for attention reads
	FeatureAttentionClassFilter = "attention.class_filter" // Per-class assignment filtering

	// === Badge Features ===
	FeatureBadgeSuggestions  = "badges.suggestions"   // Badge suggestion queue
	FeatureBadgeAutoEvaluate = "badges.auto_evaluate" // Re-evaluate on attempt completion
	FeatureBadgeRuleProgress = "badges.rule_progress" // Progress badge rule
	FeatureBadgeRuleMastery  = "badges.rule_mastery"  // Mastery badge rule
	FeatureBadgeRulePersist  = "badges.rule_persist"  // Persistence badge rule

	// === Recommendation Features ===
	FeatureRecsGroupInsights = "recs.group_insights" // Multi-student recommendations
	FeatureRecsEventFanout   = "recs.event_fanout"   // Publish lifecycle events to the bus

	// === Experimental Features ===
	FeatureExperimentalWeeklyReport = "experimental.weekly_report" // Weekly badge/attention digest
	FeatureExperimentalAnalytics    = "experimental.analytics"     // Advanced analytics
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:         make(map[string]*Feature),
		teacherOverrides: make(map[string]map[string]bool),
	}

	// Initialize all features with defaults
	ff.initializeDefaults()

	// Load overrides from environment
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	// Attention features - the product core, enabled by default
	ff.features[FeatureAttentionDashboard] = &Feature{
		Name:           FeatureAttentionDashboard,
		Description:    "Attention dashboard summary endpoint",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureAttentionCaching] = &Feature{
		Name:           FeatureAttentionCaching,
		Description:    "Cache attention reads in Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureAttentionClassFilter] = &Feature{
		Name:           FeatureAttentionClassFilter,
		Description:    "Filter assignment summaries by class",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Badge features
	ff.features[FeatureBadgeSuggestions] = &Feature{
		Name:           FeatureBadgeSuggestions,
		Description:    "Badge suggestion queue for teacher review",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureBadgeAutoEvaluate] = &Feature{
		Name:           FeatureBadgeAutoEvaluate,
		Description:    "Re-evaluate badges when an attempt completes",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureBadgeRuleProgress] = &Feature{
		Name:           FeatureBadgeRuleProgress,
		Description:    "Progress badge rule",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureBadgeRuleMastery] = &Feature{
		Name:           FeatureBadgeRuleMastery,
		Description:    "Mastery badge rule",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureBadgeRulePersist] = &Feature{
		Name:           FeatureBadgeRulePersist,
		Description:    "Persistence badge rule",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Recommendation features
	ff.features[FeatureRecsGroupInsights] = &Feature{
		Name:           FeatureRecsGroupInsights,
		Description:    "Recommendations spanning multiple students",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureRecsEventFanout] = &Feature{
		Name:           FeatureRecsEventFanout,
		Description:    "Publish recommendation lifecycle events",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Experimental features - disabled by default
	ff.features[FeatureExperimentalWeeklyReport] = &Feature{
		Name:           FeatureExperimentalWeeklyReport,
		Description:    "Weekly badge and attention digest",
		Enabled:        false,
		RolloutPercent: 0,
	}

	ff.features[FeatureExperimentalAnalytics] = &Feature{
		Name:           FeatureExperimentalAnalytics,
		Description:    "Advanced analytics dashboard",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_BADGES_SUGGESTIONS=true
// Example: FEATURE_EXPERIMENTAL_WEEKLY_REPORT=25 (25% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "badges.suggestions" -> "FEATURE_BADGES_SUGGESTIONS"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check teacher overrides first
	if ctx != nil && ctx.TeacherID != "" {
		if overrides, ok := ff.teacherOverrides[ctx.TeacherID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin users get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	// Check if feature is enabled at all
	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check school targeting
	if len(feature.TargetSchools) > 0 && ctx != nil && ctx.SchoolID != "" {
		schoolMatch := false
		for _, s := range feature.TargetSchools {
			if s == ctx.SchoolID {
				schoolMatch = true
				break
			}
		}
		if !schoolMatch {
			return false
		}
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.TeacherID != "" {
		return ff.isInRollout(ctx.TeacherID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a teacher is in the rollout percentage.
// Uses consistent hashing so teachers stay in their bucket.
func (ff *FeatureFlags) isInRollout(teacherID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(teacherID))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// SetTeacherOverride sets a feature override for a specific teacher.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetTeacherOverride(teacherID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.teacherOverrides[teacherID]; !ok {
		ff.teacherOverrides[teacherID] = make(map[string]bool)
	}
	ff.teacherOverrides[teacherID][featureName] = enabled
}

// ClearTeacherOverrides removes all overrides for a teacher.
func (ff *FeatureFlags) ClearTeacherOverrides(teacherID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.teacherOverrides, teacherID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Convenience methods for common checks ---

// BadgeRulesEnabled checks if any badge rule is enabled.
func (ff *FeatureFlags) BadgeRulesEnabled(ctx *FeatureContext) bool {
	return ff.IsEnabled(FeatureBadgeRuleProgress, ctx) ||
		ff.IsEnabled(FeatureBadgeRuleMastery, ctx) ||
		ff.IsEnabled(FeatureBadgeRulePersist, ctx)
}

// AttentionCachingEnabled checks if attention reads should use Redis.
func (ff *FeatureFlags) AttentionCachingEnabled(ctx *FeatureContext) bool {
	return ff.IsEnabled(FeatureAttentionCaching, ctx)
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
