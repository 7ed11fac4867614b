// Package indexdb keeps a queryable read-model of runs next to the JSONL
// month logs. Writes go through a buffered queue and a single writer
// goroutine so a slow disk never stalls the simulation.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"laborsim.ai/internal/sim/engine"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropMonthTotal atomic.Uint64
	writeErrTotal  atomic.Uint64
}

type reqKind int

const (
	reqRunStart reqKind = iota + 1
	reqMonth
	reqRunFinish
)

type req struct {
	kind reqKind

	run   RunRecord
	month engine.MonthLogEntry
}

// RunRecord describes one run. Start fields are written when the run is
// registered; the rest when it finishes.
type RunRecord struct {
	RunID     string
	Name      string
	Seed      int64
	Workers   int
	Firms     int
	Regions   int
	Months    int
	Scenario  any
	StartedAt time.Time

	Status       string
	MonthsDone   int
	Summary      any
	SnapshotPath string
	FinishedAt   time.Time
}

type Stats struct {
	QueueDepth     int    `json:"queue_depth"`
	QueueCapacity  int    `json:"queue_capacity"`
	DropMonthTotal uint64 `json:"drop_month_total"`
	WriteErrTotal  uint64 `json:"write_err_total"`
}

const queueCapacity = 4096

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queueCapacity),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			seed INTEGER NOT NULL,
			workers INTEGER NOT NULL,
			firms INTEGER NOT NULL,
			regions INTEGER NOT NULL,
			months INTEGER NOT NULL,
			status TEXT NOT NULL,
			months_done INTEGER NOT NULL DEFAULT 0,
			scenario_json TEXT NOT NULL,
			summary_json TEXT,
			snapshot_path TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS months (
			run_id TEXT NOT NULL,
			month INTEGER NOT NULL,
			digest TEXT NOT NULL,
			unemployment_rate REAL NOT NULL,
			median_wage REAL NOT NULL,
			wage_gini REAL NOT NULL,
			adopting_share REAL NOT NULL,
			frontier_level REAL NOT NULL,
			hires INTEGER NOT NULL,
			layoffs INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, month)
		);`,
		`CREATE TABLE IF NOT EXISTS patterns (
			run_id TEXT NOT NULL,
			month INTEGER NOT NULL,
			kind TEXT NOT NULL,
			delta REAL NOT NULL,
			description TEXT NOT NULL,
			PRIMARY KEY (run_id, month, kind)
		);`,
		`CREATE TABLE IF NOT EXISTS region_snapshots (
			run_id TEXT NOT NULL,
			month INTEGER NOT NULL,
			region_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			unemployment_rate REAL NOT NULL,
			average_wage REAL NOT NULL,
			ai_adoption_rate REAL NOT NULL,
			migration_pressure REAL NOT NULL,
			PRIMARY KEY (run_id, month, region_id)
		);`,
		`CREATE TABLE IF NOT EXISTS media_events (
			run_id TEXT NOT NULL,
			month INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			region INTEGER NOT NULL,
			magnitude REAL NOT NULL,
			reached INTEGER NOT NULL,
			policy TEXT,
			PRIMARY KEY (run_id, month, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_media_events_kind ON media_events(kind, run_id);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropMonthTotal: s.dropMonthTotal.Load(),
		WriteErrTotal:  s.writeErrTotal.Load(),
	}
}

// StartRun registers a run. Run records are never dropped; the call blocks
// while the queue is full.
func (s *SQLiteIndex) StartRun(r RunRecord) {
	if s == nil || s.closed.Load() {
		return
	}
	s.ch <- req{kind: reqRunStart, run: r}
}

func (s *SQLiteIndex) FinishRun(r RunRecord) {
	if s == nil || s.closed.Load() {
		return
	}
	s.ch <- req{kind: reqRunFinish, run: r}
}

// WriteMonth implements engine.MonthSink. Months are dropped when the
// writer falls behind; the JSONL log remains the source of truth.
func (s *SQLiteIndex) WriteMonth(entry engine.MonthLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqMonth, month: entry}:
	default:
		s.dropMonthTotal.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.writeErrTotal.Add(1)
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrTotal.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()

	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			begin()
			if tx == nil {
				continue
			}
			n, err := s.apply(tx, r)
			if err != nil {
				s.writeErrTotal.Add(1)
				rollback()
				continue
			}
			opCount += n
			// Run records are committed straight away so readers see them.
			if r.kind != reqMonth || opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		case <-ticker.C:
			commit()
		}
	}
}

func (s *SQLiteIndex) apply(tx *sql.Tx, r req) (int, error) {
	switch r.kind {
	case reqRunStart:
		return 1, insertRun(tx, r.run)
	case reqRunFinish:
		return 1, finishRun(tx, r.run)
	case reqMonth:
		return insertMonth(tx, r.month)
	}
	return 0, nil
}

func insertRun(tx *sql.Tx, r RunRecord) error {
	sc, _ := json.Marshal(r.Scenario)
	started := r.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	status := r.Status
	if status == "" {
		status = engine.StatusRunning
	}
	_, err := tx.Exec(`INSERT OR REPLACE INTO runs(run_id,name,seed,workers,firms,regions,months,status,scenario_json,started_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		r.RunID, r.Name, r.Seed, r.Workers, r.Firms, r.Regions, r.Months, status, string(sc),
		started.UTC().Format(time.RFC3339Nano))
	return err
}

func finishRun(tx *sql.Tx, r RunRecord) error {
	var summary any
	if r.Summary != nil {
		b, _ := json.Marshal(r.Summary)
		summary = string(b)
	}
	finished := r.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	_, err := tx.Exec(`UPDATE runs SET status=?, months_done=?, summary_json=?, snapshot_path=?, finished_at=? WHERE run_id=?`,
		r.Status, r.MonthsDone, summary, r.SnapshotPath, finished.UTC().Format(time.RFC3339Nano), r.RunID)
	return err
}

func insertMonth(tx *sql.Tx, e engine.MonthLogEntry) (int, error) {
	raw, err := json.Marshal(e.Stats)
	if err != nil {
		return 0, err
	}
	st := e.Stats
	if _, err := tx.Exec(`INSERT OR REPLACE INTO months(run_id,month,digest,unemployment_rate,median_wage,wage_gini,adopting_share,frontier_level,hires,layoffs,raw_json)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		e.RunID, e.Month, e.Digest, st.UnemploymentRate, st.MedianWage, st.WageGini, st.AdoptingFirmShare,
		st.FrontierLevel, st.Hires, st.Layoffs, string(raw)); err != nil {
		return 0, err
	}
	n := 1
	for _, p := range e.Patterns {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO patterns(run_id,month,kind,delta,description) VALUES(?,?,?,?,?)`,
			e.RunID, p.Month, p.Kind, p.Delta, p.Description); err != nil {
			return n, err
		}
		n++
	}
	for _, rs := range st.Regions {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO region_snapshots(run_id,month,region_id,name,unemployment_rate,average_wage,ai_adoption_rate,migration_pressure)
			VALUES(?,?,?,?,?,?,?,?)`,
			e.RunID, e.Month, rs.ID, rs.Name, rs.UnemploymentRate, rs.AverageWage, rs.AIAdoptionRate, rs.MigrationPressure); err != nil {
			return n, err
		}
		n++
	}
	for i, ev := range e.Events {
		var policy any
		if ev.Policy != "" {
			policy = ev.Policy
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO media_events(run_id,month,seq,kind,region,magnitude,reached,policy) VALUES(?,?,?,?,?,?,?,?)`,
			e.RunID, e.Month, i, ev.Kind, ev.Region, ev.Magnitude, ev.Reached, policy); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
