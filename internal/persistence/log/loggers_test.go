package log

import (
	"context"
	"testing"

	"laborsim.ai/internal/sim/engine"
	"laborsim.ai/internal/sim/scenario"
)

func TestMonthLogger_WritesOneLinePerMonth(t *testing.T) {
	dir := t.TempDir()
	l := NewMonthLogger(dir)

	sc := scenario.Defaults()
	sc.NumWorkers = 80
	sc.NumFirms = 6
	sc.NumRegions = 2
	sc.NumTrainingPrograms = 2
	sc.DurationMonths = 14
	sim, err := engine.New(sc, engine.Options{RunID: "log-test", Sinks: []engine.MonthSink{l}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := sim.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := ReadMonths(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 14 {
		t.Fatalf("entries=%d want 14", len(got))
	}
	for i, e := range got {
		if e.Month != i+1 || e.RunID != "log-test" {
			t.Fatalf("entry %d: month=%d run=%q", i, e.Month, e.RunID)
		}
		if e.Digest != res.Months[i].Digest {
			t.Fatalf("month %d digest=%s want %s", e.Month, e.Digest, res.Months[i].Digest)
		}
	}
}

func TestYearKey(t *testing.T) {
	cases := map[int]string{0: "y001", 1: "y001", 12: "y001", 13: "y002", 60: "y005"}
	for month, want := range cases {
		if got := yearKey(month); got != want {
			t.Fatalf("yearKey(%d)=%s want %s", month, got, want)
		}
	}
}
