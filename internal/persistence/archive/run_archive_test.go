package archive

import (
	"os"
	"path/filepath"
	"testing"

	"laborsim.ai/internal/persistence/snapshot"
	"laborsim.ai/internal/sim/stats"
)

func TestArchiveRun_CopiesCompletedRun(t *testing.T) {
	dir := t.TempDir()

	src := filepath.Join(dir, "runs", "r1.snap.zst")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir runs: %v", err)
	}
	want := []byte("dummy")
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	run := snapshot.RunV1{
		Header:       snapshot.Header{Version: snapshot.Version, RunID: "r1", Month: 2, Months: 2, Seed: 42, Completed: true},
		ScenarioJSON: []byte(`{"name":"baseline"}`),
		Months:       []stats.MonthStats{{Month: 1, Digest: "a"}, {Month: 2, Digest: "b"}},
		Summary:      stats.Summary{FinalUnemployment: 0.06},
	}

	archivedPath, ok, err := ArchiveRun(dir, src, run)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !ok {
		t.Fatalf("expected archived=true")
	}

	got, err := os.ReadFile(archivedPath)
	if err != nil {
		t.Fatalf("read archived: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("archived content mismatch: got=%q want=%q", string(got), string(want))
	}

	meta, err := ReadMeta(dir, "r1")
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	if meta.Name != "baseline" || meta.Seed != 42 || meta.Months != 2 || meta.FinalDigest != "b" || meta.FinalU != 0.06 {
		t.Fatalf("meta=%+v", meta)
	}
}

func TestArchiveRun_SkipsIncompleteRun(t *testing.T) {
	dir := t.TempDir()
	run := snapshot.RunV1{Header: snapshot.Header{RunID: "r2", Month: 1, Months: 12}}
	_, ok, err := ArchiveRun(dir, filepath.Join(dir, "missing"), run)
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v, want skipped", ok, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "archives")); !os.IsNotExist(err) {
		t.Fatalf("archive dir created for incomplete run")
	}
}
