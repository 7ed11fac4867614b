package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"laborsim.ai/internal/sim/engine"
	"laborsim.ai/internal/sim/scenario"
)

func smallRun(t *testing.T) engine.Result {
	t.Helper()
	sc := scenario.Defaults()
	sc.NumWorkers = 120
	sc.NumFirms = 8
	sc.NumRegions = 2
	sc.NumTrainingPrograms = 2
	sc.DurationMonths = 3
	sc.Interventions = []scenario.Intervention{{
		Type:   scenario.InterventionUBI,
		Active: true,
		Params: map[string]any{"amount": 500, "universal": false},
	}}
	sim, err := engine.New(sc, engine.Options{RunID: "snap-test"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := sim.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return res
}

func TestWriteReadRun_RoundTrip(t *testing.T) {
	res := smallRun(t)
	run, err := FromResult(res, "2026-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("from result: %v", err)
	}
	path := filepath.Join(t.TempDir(), "runs", FileName(res.RunID))
	if err := WriteRun(path, run); err != nil {
		t.Fatalf("write: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if h.RunID != "snap-test" || h.Month != 3 || !h.Completed || h.Version != Version {
		t.Fatalf("header=%+v", h)
	}

	got, err := ReadRun(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	back, err := got.Result()
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if back.RunID != res.RunID || len(back.Months) != len(res.Months) {
		t.Fatalf("run id %q months %d", back.RunID, len(back.Months))
	}
	for i, d := range res.Digests() {
		if back.Months[i].Digest != d {
			t.Fatalf("month %d digest=%s want %s", i+1, back.Months[i].Digest, d)
		}
	}
	if back.Summary.FinalUnemployment != res.Summary.FinalUnemployment {
		t.Fatalf("summary changed: %v vs %v", back.Summary.FinalUnemployment, res.Summary.FinalUnemployment)
	}
	if len(back.Scenario.Interventions) != 1 || back.Scenario.Interventions[0].Bool("universal", true) {
		t.Fatalf("scenario interventions did not survive: %+v", back.Scenario.Interventions)
	}
	if back.Scenario.Interventions[0].Float("amount", 0) != 500 {
		t.Fatalf("ubi amount=%v", back.Scenario.Interventions[0].Float("amount", 0))
	}
}

func TestReadRun_MissingFile(t *testing.T) {
	if _, err := ReadRun(filepath.Join(t.TempDir(), "nope.snap.zst")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
