// Package postgres implements PostgreSQL persistence for ClassPulse Insight Hub.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE RECOMMENDATIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create recommendations table
-- Version: 001

-- Insight recommendations produced by the rules pipeline.
-- A recommendation may reference several students (group rules).
CREATE TABLE IF NOT EXISTS recommendations (
    id UUID PRIMARY KEY,
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    insight_type VARCHAR(30) NOT NULL,
    rule_name VARCHAR(60) NOT NULL,
    signals JSONB NOT NULL DEFAULT '{}'::jsonb,
    student_ids TEXT[] NOT NULL DEFAULT '{}',
    assignment_id VARCHAR(60) NOT NULL DEFAULT '',
    priority INTEGER NOT NULL DEFAULT 0,
    summary TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- Constraints for data integrity
    CONSTRAINT valid_rec_status CHECK (status IN ('active', 'pending', 'resolved', 'dismissed', 'reviewed')),
    CONSTRAINT valid_insight_type CHECK (insight_type IN ('celebrate_progress', 'challenge_opportunity', 'check_in', 'monitor')),
    CONSTRAINT has_students CHECK (array_length(student_ids, 1) >= 1)
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_recommendations_status ON recommendations(status);
CREATE INDEX IF NOT EXISTS idx_recommendations_assignment ON recommendations(assignment_id) WHERE assignment_id != '';
CREATE INDEX IF NOT EXISTS idx_recommendations_created_at ON recommendations(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_recommendations_students ON recommendations USING GIN (student_ids);

-- Partial index for the attention dashboard (active items dominate reads)
CREATE INDEX IF NOT EXISTS idx_recommendations_active ON recommendations(created_at) WHERE status = 'active';

-- Updated_at trigger function for automatic timestamp updates
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_recommendations_updated_at ON recommendations;
CREATE TRIGGER update_recommendations_updated_at
    BEFORE UPDATE ON recommendations
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration001Down = `
DROP TRIGGER IF EXISTS update_recommendations_updated_at ON recommendations;
DROP FUNCTION IF EXISTS update_updated_at_column();
DROP TABLE IF EXISTS recommendations;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE BADGES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create badge tables
-- Version: 002
-- Purpose: Suggestions awaiting teacher review plus the awarded-badge ledger
-- that drives cooldown suppression.

CREATE TABLE IF NOT EXISTS badge_suggestions (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL,
    badge_type VARCHAR(30) NOT NULL,
    subject VARCHAR(60) NOT NULL DEFAULT '',
    assignment_id VARCHAR(60) NOT NULL DEFAULT '',
    assignment_title VARCHAR(255) NOT NULL DEFAULT '',
    reason TEXT NOT NULL,
    evidence JSONB NOT NULL DEFAULT '{}'::jsonb,
    priority VARCHAR(10) NOT NULL DEFAULT 'medium',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_badge_type CHECK (badge_type IN ('progress_star', 'mastery_badge', 'persistence')),
    CONSTRAINT valid_suggestion_priority CHECK (priority IN ('high', 'medium', 'low')),

    -- One open suggestion per student, badge type and scope
    UNIQUE(student_id, badge_type, subject, assignment_id)
);

CREATE INDEX IF NOT EXISTS idx_badge_suggestions_student ON badge_suggestions(student_id);
CREATE INDEX IF NOT EXISTS idx_badge_suggestions_created ON badge_suggestions(created_at DESC);

-- Awarded badges: the cooldown ledger reads from here.
CREATE TABLE IF NOT EXISTS awarded_badges (
    id SERIAL PRIMARY KEY,
    student_id UUID NOT NULL,
    badge_type VARCHAR(30) NOT NULL,
    subject VARCHAR(60) NOT NULL DEFAULT '',
    assignment_id VARCHAR(60) NOT NULL DEFAULT '',
    awarded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_awarded_type CHECK (badge_type IN ('progress_star', 'mastery_badge', 'persistence'))
);

CREATE INDEX IF NOT EXISTS idx_awarded_badges_student ON awarded_badges(student_id);
CREATE INDEX IF NOT EXISTS idx_awarded_badges_awarded_at ON awarded_badges(awarded_at DESC);
CREATE INDEX IF NOT EXISTS idx_awarded_badges_student_type ON awarded_badges(student_id, badge_type);
`

const migration002Down = `
DROP TABLE IF EXISTS awarded_badges;
DROP TABLE IF EXISTS badge_suggestions;
`
