// Package runlog persists finished runs to SQLite so refusal rates and
// tier escalations can be inspected after the fact.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id             TEXT PRIMARY KEY,
	question           TEXT NOT NULL,
	answer             TEXT NOT NULL,
	final_decision     TEXT NOT NULL,
	tier               TEXT,
	retrieval_support  REAL NOT NULL DEFAULT 0,
	answer_coverage    REAL NOT NULL DEFAULT 0,
	steps              INTEGER NOT NULL DEFAULT 0,
	attempts           INTEGER NOT NULL DEFAULT 0,
	created_at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

CREATE TABLE IF NOT EXISTS run_attempts (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id             TEXT NOT NULL,
	seq                INTEGER NOT NULL,
	tier               TEXT NOT NULL,
	model              TEXT,
	temperature        REAL NOT NULL DEFAULT 0,
	retrieval_support  REAL NOT NULL DEFAULT 0,
	answer_coverage    REAL NOT NULL DEFAULT 0,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// #endregion schema

// #region entry

// Entry is one persisted run.
type Entry struct {
	RunID            string
	Question         string
	Answer           string
	FinalDecision    string
	Tier             string
	RetrievalSupport float64
	AnswerCoverage   float64
	Steps            int
	Attempts         int
	CreatedAt        time.Time

	// TierAttempts is the per-tier trail, written alongside the run.
	TierAttempts []AttemptEntry
}

// AttemptEntry is one generation tier of a run, in execution order.
type AttemptEntry struct {
	Seq              int
	Tier             string
	Model            string
	Temperature      float64
	RetrievalSupport float64
	AnswerCoverage   float64
}

// #endregion entry

// #region store

// Store writes and reads the run log.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one finished run together with its tier trail, in a
// single transaction. The run id is the primary key, so re-recording
// the same run is rejected.
func (s *Store) Record(ctx context.Context, e Entry) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, question, answer, final_decision, tier,
		                   retrieval_support, answer_coverage, steps, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Question, e.Answer, e.FinalDecision, e.Tier,
		e.RetrievalSupport, e.AnswerCoverage, e.Steps, e.Attempts,
		created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	for _, a := range e.TierAttempts {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_attempts (run_id, seq, tier, model, temperature,
			                           retrieval_support, answer_coverage)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.RunID, a.Seq, a.Tier, a.Model, a.Temperature,
			a.RetrievalSupport, a.AnswerCoverage,
		)
		if err != nil {
			return fmt.Errorf("record attempt %d: %w", a.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// AttemptsFor returns the tier trail of one run in execution order.
func (s *Store) AttemptsFor(ctx context.Context, runID string) ([]AttemptEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, tier, model, temperature, retrieval_support, answer_coverage
		 FROM run_attempts WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptEntry
	for rows.Next() {
		var a AttemptEntry
		var mdl sql.NullString
		if err := rows.Scan(&a.Seq, &a.Tier, &mdl, &a.Temperature,
			&a.RetrievalSupport, &a.AnswerCoverage); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Model = mdl.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// Recent returns the newest n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, question, answer, final_decision, tier,
		        retrieval_support, answer_coverage, steps, attempts, created_at
		 FROM runs ORDER BY created_at DESC, run_id LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.RunID, &e.Question, &e.Answer, &e.FinalDecision, &e.Tier,
			&e.RetrievalSupport, &e.AnswerCoverage, &e.Steps, &e.Attempts, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion store
