package indexdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"laborsim.ai/internal/sim/engine"
)

// RemoteConfig points a RemoteIndex at an HTTP ingest endpoint that accepts
// {"events":[...]} batches.
type RemoteConfig struct {
	Endpoint      string
	Token         string
	BatchSize     int
	FlushInterval time.Duration
	HTTPTimeout   time.Duration
	Logger        *log.Logger
}

// RemoteIndex mirrors the SQLite index to a remote collector. A batch that
// fails to send is kept and retried on the next flush.
type RemoteIndex struct {
	cfg        RemoteConfig
	httpClient *http.Client

	ch   chan remoteEvent
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	queueDroppedTotal atomic.Uint64
	flushFailTotal    atomic.Uint64
	sentTotal         atomic.Uint64
}

type RemoteStats struct {
	QueueDroppedTotal uint64 `json:"queue_dropped_total"`
	FlushFailTotal    uint64 `json:"flush_fail_total"`
	SentTotal         uint64 `json:"sent_total"`
}

type remoteEvent struct {
	Kind    string `json:"kind"`
	RunID   string `json:"run_id"`
	Payload any    `json:"payload"`
}

type remoteRunPayload struct {
	Name         string `json:"name,omitempty"`
	Seed         int64  `json:"seed"`
	Workers      int    `json:"workers,omitempty"`
	Firms        int    `json:"firms,omitempty"`
	Regions      int    `json:"regions,omitempty"`
	Months       int    `json:"months,omitempty"`
	Status       string `json:"status"`
	MonthsDone   int    `json:"months_done,omitempty"`
	Summary      any    `json:"summary,omitempty"`
	SnapshotPath string `json:"snapshot_path,omitempty"`
	At           string `json:"at"`
}

type remoteMonthPayload struct {
	Month            int     `json:"month"`
	Digest           string  `json:"digest"`
	UnemploymentRate float64 `json:"unemployment_rate"`
	MedianWage       float64 `json:"median_wage"`
	WageGini         float64 `json:"wage_gini"`
	AdoptingShare    float64 `json:"adopting_share"`
	Hires            int     `json:"hires"`
	Layoffs          int     `json:"layoffs"`
	Patterns         int     `json:"patterns"`
	Events           int     `json:"events"`
}

const maxRetainedBatches = 64

func OpenRemote(cfg RemoteConfig) (*RemoteIndex, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty index endpoint")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}

	d := &RemoteIndex{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		ch:         make(chan remoteEvent, 8192),
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()
	return d, nil
}

func (d *RemoteIndex) Close() error {
	if d == nil {
		return nil
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
		d.wg.Wait()
	})
	return nil
}

func (d *RemoteIndex) Stats() RemoteStats {
	if d == nil {
		return RemoteStats{}
	}
	return RemoteStats{
		QueueDroppedTotal: d.queueDroppedTotal.Load(),
		FlushFailTotal:    d.flushFailTotal.Load(),
		SentTotal:         d.sentTotal.Load(),
	}
}

func (d *RemoteIndex) StartRun(r RunRecord) {
	d.enqueue(remoteEvent{Kind: "run_start", RunID: r.RunID, Payload: remoteRunPayload{
		Name:    r.Name,
		Seed:    r.Seed,
		Workers: r.Workers,
		Firms:   r.Firms,
		Regions: r.Regions,
		Months:  r.Months,
		Status:  engine.StatusRunning,
		At:      stamp(r.StartedAt),
	}})
}

func (d *RemoteIndex) FinishRun(r RunRecord) {
	d.enqueue(remoteEvent{Kind: "run_finish", RunID: r.RunID, Payload: remoteRunPayload{
		Seed:         r.Seed,
		Status:       r.Status,
		MonthsDone:   r.MonthsDone,
		Summary:      r.Summary,
		SnapshotPath: r.SnapshotPath,
		At:           stamp(r.FinishedAt),
	}})
}

func (d *RemoteIndex) WriteMonth(e engine.MonthLogEntry) error {
	d.enqueue(remoteEvent{Kind: "month", RunID: e.RunID, Payload: remoteMonthPayload{
		Month:            e.Month,
		Digest:           e.Digest,
		UnemploymentRate: e.Stats.UnemploymentRate,
		MedianWage:       e.Stats.MedianWage,
		WageGini:         e.Stats.WageGini,
		AdoptingShare:    e.Stats.AdoptingFirmShare,
		Hires:            e.Stats.Hires,
		Layoffs:          e.Stats.Layoffs,
		Patterns:         len(e.Patterns),
		Events:           len(e.Events),
	}})
	return nil
}

func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func (d *RemoteIndex) enqueue(ev remoteEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	select {
	case d.ch <- ev:
	default:
		d.queueDroppedTotal.Add(1)
		d.printf("remote index queue full; drop kind=%s run=%s", ev.Kind, ev.RunID)
	}
}

func (d *RemoteIndex) loop() {
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	var retained [][]remoteEvent
	batch := make([]remoteEvent, 0, d.cfg.BatchSize)
	flush := func() {
		if len(batch) > 0 {
			retained = append(retained, batch)
			batch = make([]remoteEvent, 0, d.cfg.BatchSize)
		}
		for len(retained) > 0 {
			if err := d.sendBatch(retained[0]); err != nil {
				d.flushFailTotal.Add(1)
				d.printf("remote index flush failed batch=%d err=%v", len(retained[0]), err)
				break
			}
			d.sentTotal.Add(uint64(len(retained[0])))
			retained = retained[1:]
		}
		if n := len(retained) - maxRetainedBatches; n > 0 {
			for _, b := range retained[:n] {
				d.queueDroppedTotal.Add(uint64(len(b)))
			}
			retained = retained[n:]
		}
	}

	for {
		select {
		case ev, ok := <-d.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= d.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (d *RemoteIndex) sendBatch(events []remoteEvent) error {
	body := struct {
		Events []remoteEvent `json:"events"`
	}{Events: events}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, d.cfg.Endpoint, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")
	if d.cfg.Token != "" {
		req.Header.Set("x-labsim-index-token", d.cfg.Token)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	_ = resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
}

func (d *RemoteIndex) printf(format string, args ...any) {
	if d != nil && d.cfg.Logger != nil {
		d.cfg.Logger.Printf(format, args...)
	}
}
