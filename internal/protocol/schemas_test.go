package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"laborsim.ai/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// asDoc round-trips a Go message through JSON so the schema sees exactly
// what goes on the wire.
func asDoc(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return doc
}

func TestSchemas_ValidateMessages(t *testing.T) {
	cases := []struct {
		schema string
		msg    any
	}{
		{"welcome.schema.json", protocol.WelcomeMsg{
			Type: protocol.TypeWelcome, ProtocolVersion: protocol.Version,
			RunID: "r1", Scenario: "baseline", Seed: 42, Status: "running", Month: 3, TotalMonths: 60,
			Workers: 10000, Firms: 500, Regions: 20,
		}},
		{"progress.schema.json", protocol.ProgressMsg{
			Type: protocol.TypeProgress, ProtocolVersion: protocol.Version,
			RunID: "r1", Month: 6, TotalMonths: 60, Progress: 0.1, EventCursor: 4,
			Stats: protocol.MonthSummary{
				UnemploymentRate: 0.061, Employed: 9300, Unemployed: 604, Hires: 210, Layoffs: 180,
				MedianWage: 51000, WageGini: 0.31, AdoptingFirmShare: 0.42, FrontierLevel: 0.35,
				PolicySupport: map[string]float64{"ubi": 0.52},
			},
			Patterns: []protocol.PatternRef{{Kind: "tipping_point", Month: 6, Delta: 0.025, Description: "unemployment rose"}},
		}},
		{"status.schema.json", protocol.StatusMsg{
			Type: protocol.TypeStatus, ProtocolVersion: protocol.Version, RunID: "r1", Status: "paused", Month: 7,
		}},
		{"control.schema.json", protocol.ControlMsg{
			Type: protocol.TypeControl, ProtocolVersion: protocol.Version, ReqID: "c1", Action: protocol.ActionPause,
		}},
		{"ack.schema.json", protocol.AckMsg{
			Type: protocol.TypeAck, ProtocolVersion: protocol.Version, AckFor: "c1",
			Accepted: false, Code: protocol.ErrRunFinished, Message: "run finished", Status: "done", Month: 60,
		}},
		{"event_batch.schema.json", protocol.EventBatchMsg{
			Type: protocol.TypeEventBatch, ProtocolVersion: protocol.Version, ReqID: "e1", NextCursor: 2,
			Events: []protocol.EventBatchItem{
				{Cursor: 1, Event: protocol.MediaEvent{Month: 1, Kind: "ai_breakthrough", Magnitude: 0.6, Region: -1, Reached: 120}},
				{Cursor: 2, Event: protocol.MediaEvent{Month: 2, Kind: "policy_announcement", Magnitude: 0.8, Region: -1, Policy: "ubi", Reached: 90}},
			},
		}},
	}
	for _, c := range cases {
		s := compile(t, c.schema)
		if err := s.Validate(asDoc(t, c.msg)); err != nil {
			t.Fatalf("%s: validate: %v", c.schema, err)
		}
	}
}

func TestSchemas_RejectBadControl(t *testing.T) {
	s := compile(t, "control.schema.json")
	var doc any
	_ = json.Unmarshal([]byte(`{"type":"CONTROL","action":"rewind"}`), &doc)
	if err := s.Validate(doc); err == nil {
		t.Fatalf("expected unknown action to fail validation")
	}
}
