package postgres

// Migrations returns the embedded schema migrations in version order.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_reference_data", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_schedule_entries", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_match_scores", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_recompute_queue", UpSQL: migration004Up, DownSQL: migration004Down},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL DEFAULT '',
    skills TEXT[] NOT NULL DEFAULT '{}',
    preferred_categories TEXT[] NOT NULL DEFAULT '{}',
    min_hourly_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
    max_duration_weeks INTEGER NOT NULL DEFAULT 0,
    reputation DOUBLE PRECISION NOT NULL DEFAULT 0,
    review_count INTEGER NOT NULL DEFAULT 0,

    CONSTRAINT valid_student_reputation CHECK (reputation >= 0 AND reputation <= 5)
);

CREATE TABLE IF NOT EXISTS listings (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL DEFAULT '',
    partner_id TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    required_skills TEXT[] NOT NULL DEFAULT '{}',
    hours_per_week DOUBLE PRECISION NOT NULL DEFAULT 0,
    duration_weeks INTEGER NOT NULL DEFAULT 0,
    start_date DATE,
    end_date DATE,
    compensation TEXT NOT NULL DEFAULT 'unpaid',
    hourly_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
    partner_reputation DOUBLE PRECISION NOT NULL DEFAULT 0,
    partner_review_count INTEGER NOT NULL DEFAULT 0,

    CONSTRAINT valid_compensation CHECK (compensation IN ('paid', 'stipend', 'unpaid'))
);

CREATE TABLE IF NOT EXISTS sport_seasons (
    id TEXT PRIMARY KEY,
    sport TEXT NOT NULL,
    season_type TEXT NOT NULL,
    start_month SMALLINT NOT NULL,
    end_month SMALLINT NOT NULL,
    practice_hours_per_week DOUBLE PRECISION NOT NULL DEFAULT 0,
    competition_hours_per_week DOUBLE PRECISION NOT NULL DEFAULT 0,
    travel_days_per_month DOUBLE PRECISION NOT NULL DEFAULT 0,
    intensity SMALLINT NOT NULL DEFAULT 1,

    CONSTRAINT valid_season_type CHECK (season_type IN ('in-season', 'off-season')),
    CONSTRAINT valid_months CHECK (start_month BETWEEN 1 AND 12 AND end_month BETWEEN 1 AND 12),
    CONSTRAINT valid_intensity CHECK (intensity BETWEEN 1 AND 5)
);

CREATE TABLE IF NOT EXISTS academic_calendars (
    id TEXT PRIMARY KEY,
    term_name TEXT NOT NULL,
    term_type TEXT NOT NULL,
    start_date DATE NOT NULL,
    end_date DATE NOT NULL,

    CONSTRAINT valid_term_range CHECK (end_date >= start_date)
);
`

const migration001Down = `
DROP TABLE IF EXISTS academic_calendars;
DROP TABLE IF EXISTS sport_seasons;
DROP TABLE IF EXISTS listings;
DROP TABLE IF EXISTS students;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS schedule_entries (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL DEFAULT '',
    kind TEXT NOT NULL,
    sport_season_id TEXT REFERENCES sport_seasons(id),
    academic_calendar_id TEXT REFERENCES academic_calendars(id),
    blocks JSONB NOT NULL DEFAULT '[]'::jsonb,
    travel JSONB NOT NULL DEFAULT '[]'::jsonb,
    available_hours_per_week DOUBLE PRECISION,
    effective_from DATE,
    effective_to DATE,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_kind CHECK (kind IN ('sport', 'academic', 'custom', 'work')),
    CONSTRAINT valid_override CHECK (available_hours_per_week IS NULL OR available_hours_per_week >= 0)
);

CREATE INDEX IF NOT EXISTS idx_schedule_entries_student ON schedule_entries(student_id, created_at);
`

const migration002Down = `
DROP TABLE IF EXISTS schedule_entries;
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS match_scores (
    student_id TEXT NOT NULL,
    listing_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL DEFAULT '',
    score DOUBLE PRECISION NOT NULL,
    breakdown JSONB NOT NULL DEFAULT '{}'::jsonb,
    computed_at TIMESTAMP WITH TIME ZONE NOT NULL,
    is_stale BOOLEAN NOT NULL DEFAULT FALSE,

    PRIMARY KEY (student_id, listing_id),
    CONSTRAINT valid_score CHECK (score >= 0 AND score <= 100)
);

CREATE INDEX IF NOT EXISTS idx_match_scores_stale ON match_scores(student_id, computed_at) WHERE is_stale;
CREATE INDEX IF NOT EXISTS idx_match_scores_listing ON match_scores(listing_id);
`

const migration003Down = `
DROP TABLE IF EXISTS match_scores;
`

const migration004Up = `
CREATE TABLE IF NOT EXISTS recompute_queue (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL,
    listing_id TEXT,
    reason TEXT NOT NULL DEFAULT '',
    priority INTEGER NOT NULL DEFAULT 0,
    queued_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    processed_at TIMESTAMP WITH TIME ZONE,
    attempts INTEGER NOT NULL DEFAULT 0,
    last_error TEXT,
    status TEXT NOT NULL DEFAULT 'pending',

    CONSTRAINT valid_queue_status CHECK (status IN ('pending', 'processed', 'dead'))
);

CREATE INDEX IF NOT EXISTS idx_recompute_queue_claim ON recompute_queue(priority DESC, queued_at ASC) WHERE status = 'pending';
`

const migration004Down = `
DROP TABLE IF EXISTS recompute_queue;
`
