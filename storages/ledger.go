package storages

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one Session as recorded in the ledger.
type Run struct {
	ID               string
	Task             string
	Outcome          string
	Iterations       int
	PromptTokens     int
	CompletionTokens int
	Started          time.Time
	Finished         time.Time
	Summary          string
	OutputDir        string
}

// Ledger is a sqlite file with one row per finished Session.
type Ledger struct {
	db   *sql.DB
	path string
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	task TEXT NOT NULL,
	outcome TEXT NOT NULL,
	iterations INTEGER NOT NULL,
	prompt_tokens INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	started TEXT NOT NULL,
	finished TEXT NOT NULL,
	summary TEXT NOT NULL,
	output_dir TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
`

func OpenLedger(ctx context.Context, path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// batch Sessions finish concurrently
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init ledger: %w", err)
	}
	return &Ledger{
		db:   db,
		path: path,
	}, nil
}

func (l *Ledger) Path() string {
	return l.path
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record inserts run, or replaces the row with the same id.
func (l *Ledger) Record(ctx context.Context, run Run) error {
	return WithTx(ctx, l.db, func(tx Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT OR REPLACE INTO runs
			(id, task, outcome, iterations, prompt_tokens, completion_tokens, started, finished, summary, output_dir)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
			run.ID, run.Task, run.Outcome, run.Iterations,
			run.PromptTokens, run.CompletionTokens,
			run.Started.UTC().Format(time.RFC3339Nano),
			run.Finished.UTC().Format(time.RFC3339Nano),
			run.Summary, run.OutputDir,
		)
		return err
	})
}

// Recent returns up to limit runs, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) (ret []Run, err error) {
	err = WithTx(ctx, l.db, func(tx Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, task, outcome, iterations, prompt_tokens, completion_tokens, started, finished, summary, output_dir
			FROM runs
			ORDER BY started DESC
			LIMIT ?
			`,
			limit,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var run Run
			var started, finished string
			if err := rows.Scan(
				&run.ID, &run.Task, &run.Outcome, &run.Iterations,
				&run.PromptTokens, &run.CompletionTokens,
				&started, &finished,
				&run.Summary, &run.OutputDir,
			); err != nil {
				return err
			}
			if run.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
				return err
			}
			if run.Finished, err = time.Parse(time.RFC3339Nano, finished); err != nil {
				return err
			}
			ret = append(ret, run)
		}
		return rows.Err()
	})
	return
}

// Count returns the number of runs with the given outcome, or all runs when outcome is empty.
func (l *Ledger) Count(ctx context.Context, outcome string) (n int, err error) {
	err = WithTx(ctx, l.db, func(tx Tx) error {
		var row *sql.Row
		if outcome == "" {
			row, err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM runs`)
		} else {
			row, err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM runs WHERE outcome = ?`, outcome)
		}
		if err != nil {
			return err
		}
		return row.Scan(&n)
	})
	return
}
