package database

import (
	"context"
	"fmt"
	"log"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id              TEXT PRIMARY KEY,
    username        TEXT NOT NULL UNIQUE,
    email           TEXT NOT NULL UNIQUE,
    hashed_password TEXT NOT NULL,
    role            TEXT NOT NULL DEFAULT 'user',
    category        INTEGER NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS problems (
    id              INTEGER PRIMARY KEY,
    name            TEXT NOT NULL,
    slug            TEXT NOT NULL,
    revision        TEXT NOT NULL,
    base_score      INTEGER NOT NULL DEFAULT 500,
    time_limit_ms   INTEGER NOT NULL DEFAULT 1000,
    memory_limit_kb INTEGER NOT NULL DEFAULT 65536,
    tests           JSONB NOT NULL DEFAULT '[]',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS prosets (
    id         SERIAL PRIMARY KEY,
    name       TEXT NOT NULL,
    category   INTEGER NOT NULL DEFAULT 0,
    hidden     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS proitems (
    id         SERIAL PRIMARY KEY,
    proset_id  INTEGER NOT NULL REFERENCES prosets(id) ON UPDATE CASCADE ON DELETE CASCADE,
    problem_id INTEGER NOT NULL REFERENCES problems(id) ON UPDATE CASCADE ON DELETE CASCADE,
    hidden     BOOLEAN NOT NULL DEFAULT FALSE,
    deadline   TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_proitems_problem ON proitems(problem_id);

CREATE TABLE IF NOT EXISTS challenges (
    id           TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL REFERENCES users(id) ON UPDATE CASCADE ON DELETE CASCADE,
    problem_id   INTEGER NOT NULL REFERENCES problems(id) ON UPDATE CASCADE ON DELETE CASCADE,
    revision     TEXT NOT NULL,
    code         TEXT NOT NULL,
    state        INTEGER NOT NULL DEFAULT 0,
    result       INTEGER NOT NULL DEFAULT 0,
    runtime_ms   INTEGER NOT NULL DEFAULT 0,
    memory_kb    INTEGER NOT NULL DEFAULT 0,
    verdict      TEXT NOT NULL DEFAULT '',
    submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_challenges_user ON challenges(user_id);
CREATE INDEX IF NOT EXISTS idx_challenges_problem ON challenges(problem_id);
CREATE INDEX IF NOT EXISTS idx_challenges_submitted ON challenges(submitted_at);

CREATE TABLE IF NOT EXISTS subtasks (
    challenge_id TEXT NOT NULL REFERENCES challenges(id) ON UPDATE CASCADE ON DELETE CASCADE,
    index        INTEGER NOT NULL,
    state        INTEGER NOT NULL DEFAULT 0,
    result       INTEGER NOT NULL DEFAULT 0,
    runtime_ms   INTEGER NOT NULL DEFAULT 0,
    memory_kb    INTEGER NOT NULL DEFAULT 0,
    verdict      TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (challenge_id, index)
);

CREATE TABLE IF NOT EXISTS test_weights (
    problem_id INTEGER NOT NULL REFERENCES problems(id) ON UPDATE CASCADE ON DELETE CASCADE,
    index      INTEGER NOT NULL,
    weight     INTEGER NOT NULL,
    score      INTEGER NOT NULL,
    PRIMARY KEY (problem_id, index)
);

CREATE TABLE IF NOT EXISTS rate_counts (
    category   INTEGER NOT NULL,
    problem_id INTEGER NOT NULL REFERENCES problems(id) ON UPDATE CASCADE ON DELETE CASCADE,
    index      INTEGER NOT NULL,
    count      INTEGER NOT NULL,
    score      INTEGER NOT NULL,
    PRIMARY KEY (category, problem_id, index)
);

CREATE TABLE IF NOT EXISTS rate_scores (
    category   INTEGER NOT NULL,
    user_id    TEXT NOT NULL REFERENCES users(id) ON UPDATE CASCADE ON DELETE CASCADE,
    problem_id INTEGER NOT NULL REFERENCES problems(id) ON UPDATE CASCADE ON DELETE CASCADE,
    index      INTEGER NOT NULL,
    score      INTEGER NOT NULL,
    PRIMARY KEY (category, user_id, problem_id, index)
);
CREATE INDEX IF NOT EXISTS idx_rate_scores_user ON rate_scores(category, user_id);
`

// Migrate creates the database schema if it does not exist yet.
func Migrate(ctx context.Context) error {
	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}

	log.Println("Database schema is up to date.")
	return nil
}
