// Package archive keeps a record of solve runs in a SQLite database.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Run is the summary of one solve.
type Run struct {
	ID         string
	Problem    string
	Status     string
	Objective  float64
	LowerBound float64
	// Solution is nil if the run found no solution.
	Solution []float64
	Nodes    int64
	LPs      int64
	Started  time.Time
	Duration time.Duration
}

// HasSolution reports whether the run found a solution.
func (r Run) HasSolution() bool { return r.Solution != nil }

// Archive stores runs in a single table.
type Archive struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the archive at path.
func Open(path string) (*Archive, error) {
	if path == "" {
		path = "bnb.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		problem TEXT NOT NULL,
		status TEXT NOT NULL,
		objective TEXT NOT NULL,
		lower_bound TEXT NOT NULL,
		solution BLOB,
		nodes INTEGER NOT NULL,
		lps INTEGER NOT NULL,
		started INTEGER NOT NULL,
		duration INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// bounds may be infinite, which neither REAL columns nor JSON keep
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Record stores a run, replacing a run with the same ID.
func (a *Archive) Record(ctx context.Context, r Run) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var sol any
	if r.Solution != nil {
		b, err := json.Marshal(r.Solution)
		if err != nil {
			return fmt.Errorf("encode solution: %w", err)
		}
		sol = b
	}
	_, err := a.db.ExecContext(ctx, `INSERT OR REPLACE INTO runs
		(id, problem, status, objective, lower_bound, solution, nodes, lps, started, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Problem, r.Status, formatFloat(r.Objective), formatFloat(r.LowerBound), sol,
		r.Nodes, r.LPs, r.Started.UnixNano(), int64(r.Duration))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// Runs returns the runs on the named problem, oldest first.
func (a *Archive) Runs(ctx context.Context, problem string) ([]Run, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT id, problem, status, objective, lower_bound, solution, nodes, lps, started, duration
		FROM runs WHERE problem = ? ORDER BY started, id`, problem)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r                Run
			obj, lower       string
			sol              []byte
			started, elapsed int64
		)
		if err := rows.Scan(&r.ID, &r.Problem, &r.Status, &obj, &lower, &sol, &r.Nodes, &r.LPs, &started, &elapsed); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if r.Objective, err = strconv.ParseFloat(obj, 64); err != nil {
			return nil, fmt.Errorf("decode objective of run %s: %w", r.ID, err)
		}
		if r.LowerBound, err = strconv.ParseFloat(lower, 64); err != nil {
			return nil, fmt.Errorf("decode lower bound of run %s: %w", r.ID, err)
		}
		if len(sol) > 0 {
			if err := json.Unmarshal(sol, &r.Solution); err != nil {
				return nil, fmt.Errorf("decode solution of run %s: %w", r.ID, err)
			}
		}
		r.Started = time.Unix(0, started)
		r.Duration = time.Duration(elapsed)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Best returns the run with the smallest objective among the runs on the
// named problem that found a solution.
func (a *Archive) Best(ctx context.Context, problem string) (Run, bool, error) {
	runs, err := a.Runs(ctx, problem)
	if err != nil {
		return Run{}, false, err
	}
	var best Run
	found := false
	for _, r := range runs {
		if r.HasSolution() && (!found || r.Objective < best.Objective) {
			best, found = r, true
		}
	}
	return best, found, nil
}
