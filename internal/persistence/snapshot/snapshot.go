// Package snapshot stores a finished (or stopped) run as a single
// zstd-compressed file: one JSON header line followed by a gob body.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"laborsim.ai/internal/sim/diffusion"
	"laborsim.ai/internal/sim/engine"
	"laborsim.ai/internal/sim/environment"
	"laborsim.ai/internal/sim/scenario"
	"laborsim.ai/internal/sim/stats"
)

const Version = 1

type Header struct {
	Version   int    `json:"version"`
	RunID     string `json:"run_id"`
	Month     int    `json:"month"`
	Months    int    `json:"months"`
	Seed      int64  `json:"seed"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"created_at,omitempty"`
}

// RunV1 is the on-disk form of engine.Result. The scenario travels as JSON
// because intervention parameters are untyped.
type RunV1 struct {
	Header Header `json:"header"`

	ScenarioJSON  []byte `json:"scenario"`
	CatalogDigest string `json:"catalog_digest"`

	Baseline      stats.MonthStats           `json:"baseline"`
	Months        []stats.MonthStats         `json:"months"`
	Summary       stats.Summary              `json:"summary"`
	Events        []diffusion.MediaEvent     `json:"events"`
	Breakthroughs []environment.Breakthrough `json:"breakthroughs"`
}

func FromResult(res engine.Result, createdAt string) (RunV1, error) {
	sc, err := json.Marshal(res.Scenario)
	if err != nil {
		return RunV1{}, fmt.Errorf("encode scenario: %w", err)
	}
	return RunV1{
		Header: Header{
			Version:   Version,
			RunID:     res.RunID,
			Month:     len(res.Months),
			Months:    res.Scenario.DurationMonths,
			Seed:      res.Scenario.Seed,
			Completed: res.Completed,
			CreatedAt: createdAt,
		},
		ScenarioJSON:  sc,
		CatalogDigest: res.CatalogDigest,
		Baseline:      res.Baseline,
		Months:        res.Months,
		Summary:       res.Summary,
		Events:        res.Events,
		Breakthroughs: res.Breakthroughs,
	}, nil
}

// Result rebuilds the engine result. The scenario is re-normalized so files
// written before a default changed still load with every field set.
func (r RunV1) Result() (engine.Result, error) {
	var sc scenario.Scenario
	if err := json.Unmarshal(r.ScenarioJSON, &sc); err != nil {
		return engine.Result{}, fmt.Errorf("decode scenario: %w", err)
	}
	sc.Normalize()
	return engine.Result{
		RunID:         r.Header.RunID,
		Scenario:      sc,
		CatalogDigest: r.CatalogDigest,
		Baseline:      r.Baseline,
		Months:        r.Months,
		Summary:       r.Summary,
		Events:        r.Events,
		Breakthroughs: r.Breakthroughs,
		Completed:     r.Header.Completed,
	}, nil
}

func FileName(runID string) string { return runID + ".snap.zst" }

func WriteRun(path string, run RunV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := encode(f, run); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func encode(f *os.File, run RunV1) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(run.Header)
	if err != nil {
		_ = enc.Close()
		return err
	}
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&run); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func ReadRun(path string) (RunV1, error) {
	var run RunV1
	f, err := os.Open(path)
	if err != nil {
		return run, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return run, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return run, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&run); err != nil {
		return run, fmt.Errorf("gob decode: %w", err)
	}
	if run.Header.Version != Version {
		return run, fmt.Errorf("unsupported snapshot version %d", run.Header.Version)
	}
	return run, nil
}

// ReadHeader decodes only the leading JSON line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
