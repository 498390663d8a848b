// Package postgres persists finished runs and their ideas.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/forPelevin/gistcut/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS gistcut_runs (
	run_id         TEXT PRIMARY KEY,
	input          TEXT NOT NULL,
	strategy       TEXT NOT NULL,
	provider       TEXT NOT NULL,
	model          TEXT NOT NULL,
	video_duration DOUBLE PRECISION NOT NULL,
	report         JSONB NOT NULL,
	manifest       JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS gistcut_ideas (
	run_id         TEXT NOT NULL REFERENCES gistcut_runs(run_id) ON DELETE CASCADE,
	idea_id        TEXT NOT NULL,
	title          TEXT NOT NULL,
	salience       INTEGER NOT NULL DEFAULT 0,
	total_duration DOUBLE PRECISION NOT NULL,
	plan_duration  DOUBLE PRECISION NOT NULL,
	segments       JSONB NOT NULL,
	cuts           JSONB NOT NULL,
	file           TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, idea_id)
);
CREATE INDEX IF NOT EXISTS idx_gistcut_runs_input ON gistcut_runs(input);`

const (
	insertRun = `INSERT INTO gistcut_runs (run_id, input, strategy, provider, model, video_duration, report, manifest)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (run_id) DO UPDATE SET report = EXCLUDED.report, manifest = EXCLUDED.manifest`
	deleteIdeas = `DELETE FROM gistcut_ideas WHERE run_id = $1`
	insertIdea  = `INSERT INTO gistcut_ideas (run_id, idea_id, title, salience, total_duration, plan_duration, segments, cuts, file)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
)

// Store writes runs through a single connection. It is not safe for
// concurrent use.
type Store struct {
	conn *pgx.Conn
	tx   func(ctx context.Context) (pgx.Tx, error)
}

// Open connects, pings and creates the tables when missing.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	c, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := c.Ping(ctx); err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := c.Exec(ctx, schema); err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &Store{conn: c, tx: c.Begin}, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close(ctx)
}

// SaveRun stores the run and replaces its ideas in one transaction.
func (s *Store) SaveRun(ctx context.Context, m types.Manifest) error {
	report, err := json.Marshal(m.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	manifest, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tx, err := s.tx(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, insertRun,
		m.RunID, m.Input, m.Strategy, m.Provider, m.Model, m.VideoDuration, report, manifest,
	); err != nil {
		return fmt.Errorf("insert run %s: %w", m.RunID, err)
	}
	if _, err := tx.Exec(ctx, deleteIdeas, m.RunID); err != nil {
		return fmt.Errorf("clear ideas %s: %w", m.RunID, err)
	}
	for _, idea := range m.Ideas {
		segs, err := json.Marshal(idea.Segments)
		if err != nil {
			return fmt.Errorf("marshal segments: %w", err)
		}
		cuts, err := json.Marshal(idea.Cuts)
		if err != nil {
			return fmt.Errorf("marshal cuts: %w", err)
		}
		if _, err := tx.Exec(ctx, insertIdea,
			m.RunID, idea.ID, idea.Title, idea.Salience, idea.TotalDurationSec, idea.PlanDurationSec, segs, cuts, idea.File,
		); err != nil {
			return fmt.Errorf("insert idea %s/%s: %w", m.RunID, idea.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
