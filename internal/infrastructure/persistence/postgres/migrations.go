// Package postgres implements the PostgreSQL persistence layer for the
// progress engine.
package postgres

// GetMigrations returns all embedded migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_progress_ledger",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_streaks",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_achievements",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "create_certificates",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: XP LEDGER
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create the XP ledger
-- Version: 001

-- Aggregated progress, one row per user. current_xp is the running sum of
-- the user's grants and level is derived from it; both are updated in the
-- same transaction that appends a grant.
CREATE TABLE IF NOT EXISTS user_progress (
    user_id UUID PRIMARY KEY,
    current_xp INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_xp CHECK (current_xp >= 0),
    CONSTRAINT valid_level CHECK (level >= 1)
);

-- Append-only grant log. Rows are never updated or deleted.
CREATE TABLE IF NOT EXISTS xp_grants (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    amount INTEGER NOT NULL,
    source VARCHAR(30) NOT NULL,
    source_id VARCHAR(100),
    reason TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_amount CHECK (amount >= 0),
    CONSTRAINT valid_source CHECK (source IN (
        'lesson', 'quiz', 'exercise', 'case_study', 'interactive_feature',
        'achievement', 'course', 'referral', 'daily_login'
    ))
);

CREATE INDEX IF NOT EXISTS idx_xp_grants_user_created
    ON xp_grants(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_xp_grants_user_source
    ON xp_grants(user_id, source);
CREATE INDEX IF NOT EXISTS idx_user_progress_xp
    ON user_progress(current_xp DESC);

-- One daily login bonus per user per IST calendar day.
CREATE TABLE IF NOT EXISTS daily_bonuses (
    user_id UUID NOT NULL,
    bonus_date DATE NOT NULL,
    claimed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, bonus_date)
);
`

const migration001Down = `
DROP TABLE IF EXISTS daily_bonuses;
DROP TABLE IF EXISTS xp_grants;
DROP TABLE IF EXISTS user_progress;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: STREAKS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create streak state
-- Version: 002

CREATE TABLE IF NOT EXISTS streak_states (
    user_id UUID PRIMARY KEY,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_active_date DATE NOT NULL,
    streak_broken_at DATE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_current CHECK (current_streak >= 0),
    CONSTRAINT valid_longest CHECK (longest_streak >= current_streak)
);

CREATE INDEX IF NOT EXISTS idx_streak_states_current
    ON streak_states(current_streak DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS streak_states;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create achievement catalog and unlocks
-- Version: 003

CREATE TABLE IF NOT EXISTS achievements (
    id VARCHAR(50) PRIMARY KEY,
    title VARCHAR(100) NOT NULL,
    description TEXT NOT NULL,
    category VARCHAR(30) NOT NULL,
    xp_reward INTEGER NOT NULL DEFAULT 0,
    icon VARCHAR(50) NOT NULL DEFAULT '',
    display_order INTEGER NOT NULL DEFAULT 0,

    CONSTRAINT valid_reward CHECK (xp_reward >= 0)
);

-- The (user_id, achievement_id) uniqueness is what makes concurrent unlock
-- attempts safe; inserts use ON CONFLICT DO NOTHING.
CREATE TABLE IF NOT EXISTS user_achievements (
    user_id UUID NOT NULL,
    achievement_id VARCHAR(50) NOT NULL REFERENCES achievements(id),
    unlocked_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    is_notified BOOLEAN NOT NULL DEFAULT FALSE,

    PRIMARY KEY (user_id, achievement_id)
);

CREATE INDEX IF NOT EXISTS idx_user_achievements_user_unlocked
    ON user_achievements(user_id, unlocked_at DESC);
CREATE INDEX IF NOT EXISTS idx_user_achievements_unnotified
    ON user_achievements(user_id) WHERE is_notified = FALSE;
`

const migration003Down = `
DROP TABLE IF EXISTS user_achievements;
DROP TABLE IF EXISTS achievements;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CERTIFICATES
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create certificates
-- Version: 004

CREATE TABLE IF NOT EXISTS certificates (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    course_id VARCHAR(100) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'queued',
    percentage DECIMAL(5,2) NOT NULL,
    serial_number VARCHAR(50),
    queued_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    issued_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT valid_status CHECK (status IN ('queued', 'issued')),
    CONSTRAINT valid_percentage CHECK (percentage >= 0 AND percentage <= 100),
    CONSTRAINT one_per_course UNIQUE (user_id, course_id)
);

CREATE INDEX IF NOT EXISTS idx_certificates_queued
    ON certificates(queued_at) WHERE status = 'queued';
CREATE INDEX IF NOT EXISTS idx_certificates_user
    ON certificates(user_id, queued_at DESC);
`

const migration004Down = `
DROP TABLE IF EXISTS certificates;
`
