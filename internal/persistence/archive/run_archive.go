package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"laborsim.ai/internal/persistence/snapshot"
)

type RunArchiveMeta struct {
	RunID       string  `json:"run_id"`
	Name        string  `json:"name"`
	Seed        int64   `json:"seed"`
	Months      int     `json:"months"`
	Snapshot    string  `json:"snapshot"`
	CreatedAt   string  `json:"created_at"`
	FinalU      float64 `json:"final_unemployment"`
	FinalGini   float64 `json:"final_gini"`
	Patterns    int     `json:"patterns"`
	FinalDigest string  `json:"final_digest"`
}

// ArchiveRun copies a completed run's snapshot into
// `dataDir/archives/<run id>/` next to a meta.json. Stopped or failed runs
// are not archived.
func ArchiveRun(dataDir, snapshotPath string, run snapshot.RunV1) (archivedPath string, archived bool, err error) {
	if !run.Header.Completed || run.Header.RunID == "" {
		return "", false, nil
	}
	var name string
	var sc struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(run.ScenarioJSON, &sc); err == nil {
		name = sc.Name
	}

	archiveDir := filepath.Join(dataDir, "archives", run.Header.RunID)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, fmt.Errorf("copy snapshot: %w", err)
	}

	meta := RunArchiveMeta{
		RunID:     run.Header.RunID,
		Name:      name,
		Seed:      run.Header.Seed,
		Months:    run.Header.Month,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		FinalU:    run.Summary.FinalUnemployment,
		FinalGini: run.Summary.FinalGini,
		Patterns:  len(run.Summary.Patterns),
	}
	if n := len(run.Months); n > 0 {
		meta.FinalDigest = run.Months[n-1].Digest
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", false, err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return "", false, err
	}
	return dst, true, nil
}

// ReadMeta loads the meta.json of an archived run.
func ReadMeta(dataDir, runID string) (RunArchiveMeta, error) {
	var m RunArchiveMeta
	b, err := os.ReadFile(filepath.Join(dataDir, "archives", runID, "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
