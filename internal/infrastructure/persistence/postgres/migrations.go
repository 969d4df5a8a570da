package postgres

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_user_stats",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_category_progress",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_puzzles",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS user_stats (
    user_id         UUID PRIMARY KEY,
    total_xp        INTEGER NOT NULL DEFAULT 0 CHECK (total_xp >= 0),
    level           INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1),
    streak          INTEGER NOT NULL DEFAULT 0 CHECK (streak >= 0),
    puzzles_solved  INTEGER NOT NULL DEFAULT 0 CHECK (puzzles_solved >= 0),
    average_score   INTEGER NOT NULL DEFAULT 0 CHECK (average_score BETWEEN 0 AND 100),
    time_spent_sec  INTEGER NOT NULL DEFAULT 0 CHECK (time_spent_sec >= 0),
    achievements    INTEGER NOT NULL DEFAULT 0 CHECK (achievements >= 0),
    weekly_progress INTEGER NOT NULL DEFAULT 0 CHECK (weekly_progress >= 0),
    last_play_date  TEXT NOT NULL DEFAULT '',
    updated_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration001Down = `
DROP TABLE IF EXISTS user_stats;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS category_progress (
    user_id           UUID NOT NULL,
    category_id       TEXT NOT NULL,
    level             INTEGER NOT NULL DEFAULT 1 CHECK (level BETWEEN 1 AND 3),
    progress          INTEGER NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
    puzzles_completed INTEGER NOT NULL DEFAULT 0 CHECK (puzzles_completed >= 0),
    is_locked         BOOLEAN NOT NULL DEFAULT TRUE,
    best_score        INTEGER NOT NULL DEFAULT 0 CHECK (best_score BETWEEN 0 AND 100),
    total_time_sec    INTEGER NOT NULL DEFAULT 0 CHECK (total_time_sec >= 0),
    last_played       TEXT NOT NULL DEFAULT '',
    updated_at        TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, category_id)
);

CREATE INDEX IF NOT EXISTS idx_category_progress_user
    ON category_progress (user_id);
`

const migration002Down = `
DROP TABLE IF EXISTS category_progress;
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS puzzles (
    id              TEXT PRIMARY KEY,
    category_id     TEXT NOT NULL,
    kind            TEXT NOT NULL,
    title           TEXT NOT NULL DEFAULT '',
    level           INTEGER NOT NULL CHECK (level BETWEEN 1 AND 3),
    difficulty      INTEGER NOT NULL CHECK (difficulty BETWEEN 1 AND 10),
    time_limit_sec  INTEGER NOT NULL CHECK (time_limit_sec > 0),
    content         JSONB NOT NULL DEFAULT '{}'::jsonb,
    solution        JSONB NOT NULL,
    explanation     TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_puzzles_category_level
    ON puzzles (category_id, level);
`

const migration003Down = `
DROP TABLE IF EXISTS puzzles;
`
