package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"laborsim.ai/internal/persistence/archive"
	"laborsim.ai/internal/persistence/indexdb"
	persistlog "laborsim.ai/internal/persistence/log"
	"laborsim.ai/internal/persistence/snapshot"
	"laborsim.ai/internal/sim/engine"
	"laborsim.ai/internal/sim/scenario"
)

type storageConfig struct {
	DataDir       string
	DisableDB     bool
	IndexEndpoint string
	IndexToken    string
}

// storage owns everything a run writes under the data directory: the month
// log, the SQLite index, the optional remote index, the snapshot and the
// archive copy.
type storage struct {
	cfg    storageConfig
	runID  string
	runDir string
	logger *log.Logger

	months *persistlog.MonthLogger
	index  *indexdb.SQLiteIndex
	remote *indexdb.RemoteIndex

	closeOnce sync.Once
	closeErr  error
}

type finishedRun struct {
	RunID        string `json:"run_id"`
	Status       string `json:"status"`
	SnapshotPath string `json:"snapshot"`
	ArchivePath  string `json:"archive,omitempty"`
}

func openStorage(cfg storageConfig, runID string, logger *log.Logger) (*storage, error) {
	st := &storage{
		cfg:    cfg,
		runID:  runID,
		runDir: filepath.Join(cfg.DataDir, "runs", runID),
		logger: logger,
	}
	if err := os.MkdirAll(st.runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	st.months = persistlog.NewMonthLogger(st.runDir)

	if !cfg.DisableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(cfg.DataDir, "index.db"))
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("open index: %w", err)
		}
		st.index = idx
	}
	if endpoint := strings.TrimSpace(cfg.IndexEndpoint); endpoint != "" {
		token := cfg.IndexToken
		if token == "" {
			token = os.Getenv("LABSIM_INDEX_TOKEN")
		}
		remote, err := indexdb.OpenRemote(indexdb.RemoteConfig{
			Endpoint: endpoint,
			Token:    token,
			Logger:   logger,
		})
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("open remote index: %w", err)
		}
		st.remote = remote
	}
	return st, nil
}

func (st *storage) Sinks() []engine.MonthSink {
	sinks := []engine.MonthSink{st.months}
	if st.index != nil {
		sinks = append(sinks, st.index)
	}
	if st.remote != nil {
		sinks = append(sinks, st.remote)
	}
	return sinks
}

func (st *storage) Start(sc scenario.Scenario) {
	rec := indexdb.RunRecord{
		RunID:     st.runID,
		Name:      sc.Name,
		Seed:      sc.Seed,
		Workers:   sc.NumWorkers,
		Firms:     sc.NumFirms,
		Regions:   sc.NumRegions,
		Months:    sc.DurationMonths,
		Scenario:  sc,
		StartedAt: time.Now().UTC(),
	}
	if st.index != nil {
		st.index.StartRun(rec)
	}
	if st.remote != nil {
		st.remote.StartRun(rec)
	}
}

// Finish saves the result as a snapshot, archives it when the run completed
// and records the outcome in the indexes.
func (st *storage) Finish(res engine.Result, status string) (finishedRun, error) {
	out := finishedRun{RunID: st.runID, Status: status}

	run, err := snapshot.FromResult(res, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return out, err
	}
	snapPath := filepath.Join(st.runDir, snapshot.FileName(st.runID))
	if err := snapshot.WriteRun(snapPath, run); err != nil {
		return out, fmt.Errorf("write snapshot: %w", err)
	}
	out.SnapshotPath = snapPath
	st.logger.Printf("snapshot written: %s", snapPath)

	if path, ok, err := archive.ArchiveRun(st.cfg.DataDir, snapPath, run); err != nil {
		st.logger.Printf("archive run: %v", err)
	} else if ok {
		out.ArchivePath = path
		st.logger.Printf("run archived: %s", path)
	}

	rec := indexdb.RunRecord{
		RunID:        st.runID,
		Status:       status,
		MonthsDone:   len(res.Months),
		Summary:      res.Summary,
		SnapshotPath: snapPath,
		FinishedAt:   time.Now().UTC(),
	}
	if st.index != nil {
		st.index.FinishRun(rec)
	}
	if st.remote != nil {
		st.remote.FinishRun(rec)
	}
	return out, nil
}

// Close flushes and closes every writer. It is safe to call more than once.
func (st *storage) Close() error {
	st.closeOnce.Do(func() { st.closeErr = st.close() })
	return st.closeErr
}

func (st *storage) close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if st.months != nil {
		keep(st.months.Close())
	}
	if st.index != nil {
		keep(st.index.Close())
		if s := st.index.Stats(); s.DropMonthTotal > 0 || s.WriteErrTotal > 0 {
			st.logger.Printf("index: dropped %d months, %d write errors", s.DropMonthTotal, s.WriteErrTotal)
		}
	}
	if st.remote != nil {
		keep(st.remote.Close())
		if s := st.remote.Stats(); s.QueueDroppedTotal > 0 || s.FlushFailTotal > 0 {
			st.logger.Printf("remote index: dropped %d events, %d failed flushes", s.QueueDroppedTotal, s.FlushFailTotal)
		}
	}
	return first
}
