package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/klauspost/compress/zstd"

	"laborsim.ai/internal/sim/engine"
)

// JSONLZstdWriter appends JSON lines to zstd files, one file per segment
// key. A new key closes the current file and opens the next.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu     sync.Mutex
	curKey string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(key string, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if key != w.curKey || w.w == nil {
		if err := w.rotateLocked(key); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(key string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathFor(key), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curKey = key
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathFor(key string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, key))
}

// MonthLogger writes one JSONL entry per simulated month, one file per
// simulated year.
type MonthLogger struct{ w *JSONLZstdWriter }

func NewMonthLogger(runDir string) *MonthLogger {
	return &MonthLogger{w: NewJSONLZstdWriter(filepath.Join(runDir, "months"), "months")}
}

func (l *MonthLogger) WriteMonth(e engine.MonthLogEntry) error {
	return l.w.Write(yearKey(e.Month), e)
}

func (l *MonthLogger) Close() error { return l.w.Close() }

func yearKey(month int) string {
	if month < 1 {
		month = 1
	}
	return fmt.Sprintf("y%03d", (month-1)/12+1)
}

// ReadMonths decodes every month log under runDir in month order.
func ReadMonths(runDir string) ([]engine.MonthLogEntry, error) {
	paths, err := filepath.Glob(filepath.Join(runDir, "months", "months-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	var out []engine.MonthLogEntry
	for _, p := range paths {
		entries, err := readFile(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, entries...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func readFile(path string) ([]engine.MonthLogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []engine.MonthLogEntry
	jd := json.NewDecoder(dec)
	for {
		var e engine.MonthLogEntry
		if err := jd.Decode(&e); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, err
		}
		out = append(out, e)
	}
}
