package badge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/classpulse/insight-hub/internal/domain/shared"
)

func TestIsWithinCooldown(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	// Inside the window
	issued := now.AddDate(0, 0, -10)
	assert.True(t, IsWithinCooldown(issued, 14, now))

	// Outside the window
	issued = now.AddDate(0, 0, -15)
	assert.False(t, IsWithinCooldown(issued, 14, now))

	// Exactly at the boundary: 14 full days is no longer inside a 14-day window
	issued = now.AddDate(0, 0, -14)
	assert.False(t, IsWithinCooldown(issued, 14, now))

	// Forever suppresses regardless of age
	issued = now.AddDate(-10, 0, 0)
	assert.True(t, IsWithinCooldown(issued, CooldownForever, now))
}

func TestLedger_EmptyHistorySuppressesNothing(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	ledger := NewLedger(DefaultCooldownPolicy(), nil)
	assert.False(t, ledger.ProgressSuppressed("math-fractions-01", "math", now))
	assert.False(t, ledger.MasterySuppressed("math", now))
	assert.False(t, ledger.PersistenceSuppressed(now))
}

func TestLedger_ProgressSuppressedForeverPerAssignment(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	// Awarded years ago, still suppressed for the same assignment
	ledger := NewLedger(DefaultCooldownPolicy(), []AwardedBadge{
		{
			StudentID:    shared.StudentID("11111111-1111-1111-1111-111111111111"),
			BadgeType:    BadgeTypeProgressStar,
			Subject:      "math",
			AssignmentID: "math-fractions-01",
			AwardedAt:    now.AddDate(-3, 0, 0),
		},
	})

	assert.True(t, ledger.ProgressSuppressed("math-fractions-01", "", now))

	// A different assignment in a different subject is not affected
	assert.False(t, ledger.ProgressSuppressed("reading-poetry-01", "reading", now))
}

func TestLedger_ProgressSubjectWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	mkLedger := func(awardedAt time.Time) *Ledger {
		return NewLedger(DefaultCooldownPolicy(), []AwardedBadge{
			{
				BadgeType:    BadgeTypeProgressStar,
				Subject:      "math",
				AssignmentID: "math-fractions-01",
				AwardedAt:    awardedAt,
			},
		})
	}

	// Another math assignment within 14 days is suppressed at subject level
	ledger := mkLedger(now.AddDate(0, 0, -10))
	assert.True(t, ledger.ProgressSuppressed("math-decimals-03", "math", now))

	// After the window it is eligible again
	ledger = mkLedger(now.AddDate(0, 0, -20))
	assert.False(t, ledger.ProgressSuppressed("math-decimals-03", "math", now))
}

func TestLedger_MasterySubjectWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	mkLedger := func(awardedAt time.Time) *Ledger {
		return NewLedger(DefaultCooldownPolicy(), []AwardedBadge{
			{BadgeType: BadgeTypeMastery, Subject: "science", AwardedAt: awardedAt},
		})
	}

	// Re-met criteria the next day are still suppressed
	ledger := mkLedger(now.AddDate(0, 0, -1))
	assert.True(t, ledger.MasterySuppressed("science", now))

	ledger = mkLedger(now.AddDate(0, 0, -29))
	assert.True(t, ledger.MasterySuppressed("science", now))

	ledger = mkLedger(now.AddDate(0, 0, -31))
	assert.False(t, ledger.MasterySuppressed("science", now))

	// A Mastery badge in one subject does not suppress another subject
	ledger = mkLedger(now.AddDate(0, 0, -1))
	assert.False(t, ledger.MasterySuppressed("math", now))
}

func TestLedger_PersistenceStudentWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	// Persistence is global per student: the subject on the record is irrelevant
	ledger := NewLedger(DefaultCooldownPolicy(), []AwardedBadge{
		{BadgeType: BadgeTypePersistence, Subject: "reading", AwardedAt: now.AddDate(0, 0, -7)},
	})
	assert.True(t, ledger.PersistenceSuppressed(now))

	ledger = NewLedger(DefaultCooldownPolicy(), []AwardedBadge{
		{BadgeType: BadgeTypePersistence, Subject: "reading", AwardedAt: now.AddDate(0, 0, -15)},
	})
	assert.False(t, ledger.PersistenceSuppressed(now))
}

func TestLedger_OtherBadgeTypesIgnored(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	// A recent Mastery badge does not suppress Progress or Persistence
	ledger := NewLedger(DefaultCooldownPolicy(), []AwardedBadge{
		{BadgeType: BadgeTypeMastery, Subject: "math", AwardedAt: now.AddDate(0, 0, -1)},
	})
	assert.False(t, ledger.ProgressSuppressed("math-fractions-01", "math", now))
	assert.False(t, ledger.PersistenceSuppressed(now))
}
