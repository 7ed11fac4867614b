package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"laborsim.ai/internal/persistence/archive"
	"laborsim.ai/internal/persistence/indexdb"
	"laborsim.ai/internal/persistence/snapshot"
	"laborsim.ai/internal/sim/stats"
)

const testScenario = `name: cli-test
seed: 11
durationMonths: 4
numWorkers: 200
numFirms: 10
numRegions: 2
numTrainingPrograms: 2
interventions:
  - type: retraining
    active: true
    params:
      capacity: 10
      duration: 2
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeScenario(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(testScenario), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

type runOutput struct {
	RunID        string        `json:"run_id"`
	Status       string        `json:"status"`
	SnapshotPath string        `json:"snapshot"`
	ArchivePath  string        `json:"archive"`
	Summary      stats.Summary `json:"summary"`
}

func TestRunInspectVerify(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	sc := writeScenario(t, dir)

	out, err := execute(t, "run", "-s", sc, "--data", dataDir, "--json", "--quiet")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var got runOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode run output: %v\n%s", err, out)
	}
	if got.Status != "done" || got.Summary.Months != 4 {
		t.Fatalf("status=%q months=%d", got.Status, got.Summary.Months)
	}
	if got.ArchivePath == "" {
		t.Fatalf("completed run was not archived")
	}
	meta, err := archive.ReadMeta(dataDir, got.RunID)
	if err != nil {
		t.Fatalf("archive meta: %v", err)
	}
	if meta.Name != "cli-test" || meta.Months != 4 {
		t.Fatalf("meta=%+v", meta)
	}

	r, err := indexdb.OpenReader(filepath.Join(dataDir, "index.db"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer r.Close()
	runs, err := r.Runs(context.Background())
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != got.RunID || runs[0].Status != "done" {
		t.Fatalf("indexed runs=%+v", runs)
	}

	out, err = execute(t, "inspect", got.SnapshotPath, "--json", "--months")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var ins struct {
		Header snapshot.Header    `json:"header"`
		Months []stats.MonthStats `json:"months"`
	}
	if err := json.Unmarshal([]byte(out), &ins); err != nil {
		t.Fatalf("decode inspect output: %v", err)
	}
	if ins.Header.RunID != got.RunID || ins.Header.Month != 4 || len(ins.Months) != 4 {
		t.Fatalf("inspect header=%+v months=%d", ins.Header, len(ins.Months))
	}

	out, err = execute(t, "verify", got.SnapshotPath, "--log", filepath.Dir(got.SnapshotPath), "--json")
	if err != nil {
		t.Fatalf("verify: %v\n%s", err, out)
	}
	var rep verifyReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode verify output: %v", err)
	}
	if !rep.OK || rep.Months != 4 || rep.LogMonths != 4 {
		t.Fatalf("report=%+v", rep)
	}
	if rep.FinalDigest != ins.Months[3].Digest {
		t.Fatalf("final digest=%s want %s", rep.FinalDigest, ins.Months[3].Digest)
	}
}

func TestRun_TextSummaryWithoutDB(t *testing.T) {
	dir := t.TempDir()
	sc := writeScenario(t, dir)
	out, err := execute(t, "run", "-s", sc, "--data", filepath.Join(dir, "data"), "--no-db", "--quiet", "--seed", "3")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("cli-test")) {
		t.Fatalf("summary does not name the scenario:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "index.db")); !os.IsNotExist(err) {
		t.Fatalf("--no-db still created index.db (err=%v)", err)
	}
}

func TestVerify_DetectsTamperedDigest(t *testing.T) {
	dir := t.TempDir()
	sc := writeScenario(t, dir)
	out, err := execute(t, "run", "-s", sc, "--data", filepath.Join(dir, "data"), "--no-db", "--json", "--quiet")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var got runOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode run output: %v", err)
	}
	run, err := snapshot.ReadRun(got.SnapshotPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	run.Months[2].Digest = "00"

	rep, err := verifyRun(run, "")
	if !errors.Is(err, errMismatch) {
		t.Fatalf("err=%v want digest mismatch", err)
	}
	if rep.OK || rep.Months != 2 {
		t.Fatalf("report=%+v", rep)
	}
}

func TestRun_RequiresScenario(t *testing.T) {
	if _, err := execute(t, "run", "--data", t.TempDir()); err == nil {
		t.Fatalf("expected missing --scenario error")
	}
}

func TestRun_RejectsInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("numWorkers: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "run", "-s", path, "--data", dir, "--quiet"); err == nil {
		t.Fatalf("expected scenario validation error")
	}
}
