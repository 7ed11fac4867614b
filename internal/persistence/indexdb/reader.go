package indexdb

import (
	"context"
	"database/sql"
	"fmt"
)

// Reader queries an index written by SQLiteIndex. It opens its own
// connection so it can be used from another process.
type Reader struct {
	db *sql.DB
}

type RunRow struct {
	RunID        string `json:"run_id"`
	Name         string `json:"name"`
	Seed         int64  `json:"seed"`
	Workers      int    `json:"workers"`
	Months       int    `json:"months"`
	MonthsDone   int    `json:"months_done"`
	Status       string `json:"status"`
	SnapshotPath string `json:"snapshot_path,omitempty"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at,omitempty"`
}

type MonthRow struct {
	Month            int     `json:"month"`
	Digest           string  `json:"digest"`
	UnemploymentRate float64 `json:"unemployment_rate"`
	MedianWage       float64 `json:"median_wage"`
	WageGini         float64 `json:"wage_gini"`
	AdoptingShare    float64 `json:"adopting_share"`
	FrontierLevel    float64 `json:"frontier_level"`
	Hires            int     `json:"hires"`
	Layoffs          int     `json:"layoffs"`
}

type PatternRow struct {
	Month       int     `json:"month"`
	Kind        string  `json:"kind"`
	Delta       float64 `json:"delta"`
	Description string  `json:"description"`
}

func OpenReader(path string) (*Reader, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

// Runs lists runs, newest first.
func (r *Reader) Runs(ctx context.Context) ([]RunRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT run_id,name,seed,workers,months,months_done,status,
		COALESCE(snapshot_path,''),started_at,COALESCE(finished_at,'') FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunRow
	for rows.Next() {
		var x RunRow
		if err := rows.Scan(&x.RunID, &x.Name, &x.Seed, &x.Workers, &x.Months, &x.MonthsDone, &x.Status,
			&x.SnapshotPath, &x.StartedAt, &x.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}

func (r *Reader) Months(ctx context.Context, runID string) ([]MonthRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT month,digest,unemployment_rate,median_wage,wage_gini,adopting_share,frontier_level,hires,layoffs
		FROM months WHERE run_id=? ORDER BY month`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MonthRow
	for rows.Next() {
		var x MonthRow
		if err := rows.Scan(&x.Month, &x.Digest, &x.UnemploymentRate, &x.MedianWage, &x.WageGini,
			&x.AdoptingShare, &x.FrontierLevel, &x.Hires, &x.Layoffs); err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}

func (r *Reader) Patterns(ctx context.Context, runID string) ([]PatternRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT month,kind,delta,description FROM patterns WHERE run_id=? ORDER BY month, kind`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PatternRow
	for rows.Next() {
		var x PatternRow
		if err := rows.Scan(&x.Month, &x.Kind, &x.Delta, &x.Description); err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}

// RegionSnapshotCount is mostly useful for checks.
func (r *Reader) RegionSnapshotCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM region_snapshots WHERE run_id=?`, runID).Scan(&n)
	return n, err
}
