package progress

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"laborsim.ai/internal/protocol"
	"laborsim.ai/internal/sim/diffusion"
	"laborsim.ai/internal/sim/engine"
	"laborsim.ai/internal/sim/scenario"
)

type fakeRunner struct {
	mu      sync.Mutex
	state   engine.State
	actions []string
}

func (f *fakeRunner) RunID() string { return "fake" }
func (f *fakeRunner) Scenario() scenario.Scenario {
	sc := scenario.Defaults()
	sc.DurationMonths = 12
	return sc
}
func (f *fakeRunner) CurrentState() engine.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}
func (f *fakeRunner) record(a string) {
	f.mu.Lock()
	f.actions = append(f.actions, a)
	f.mu.Unlock()
}
func (f *fakeRunner) Pause()  { f.record("pause") }
func (f *fakeRunner) Resume() { f.record("resume") }
func (f *fakeRunner) Stop()   { f.record("stop") }

func newTestSim(t *testing.T, months int) (*engine.Simulation, *Hub) {
	t.Helper()
	sc := scenario.Defaults()
	sc.NumWorkers = 120
	sc.NumFirms = 8
	sc.NumRegions = 2
	sc.NumTrainingPrograms = 2
	sc.DurationMonths = months
	hub := NewHub("ws-test", months)
	sim, err := engine.New(sc, engine.Options{RunID: "ws-test", Sinks: []engine.MonthSink{hub}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return sim, hub
}

func postControl(t *testing.T, url, body string) (int, protocol.AckMsg, protocol.ErrorBody) {
	t.Helper()
	resp, err := http.Post(url+"/v1/control", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var ack protocol.AckMsg
	var eb protocol.ErrorBody
	_ = json.Unmarshal(raw, &ack)
	_ = json.Unmarshal(raw, &eb)
	return resp.StatusCode, ack, eb
}

func TestControl_HTTP(t *testing.T) {
	run := &fakeRunner{state: engine.State{RunID: "fake", Status: engine.StatusRunning, Month: 3}}
	srv := httptest.NewServer(NewServer(run, NewHub("fake", 12), nil).Handler())
	defer srv.Close()

	code, ack, _ := postControl(t, srv.URL, `{"action":"pause","req_id":"c1"}`)
	if code != http.StatusOK || !ack.Accepted || ack.Status != engine.StatusPaused || ack.AckFor != "c1" || ack.Month != 3 {
		t.Fatalf("pause: code=%d ack=%+v", code, ack)
	}

	code, ack, _ = postControl(t, srv.URL, `{"action":"rewind"}`)
	if code != http.StatusBadRequest || ack.Accepted || ack.Code != protocol.ErrUnknownAction {
		t.Fatalf("unknown action: code=%d ack=%+v", code, ack)
	}

	code, _, eb := postControl(t, srv.URL, `{"action":`)
	if code != http.StatusBadRequest || eb.Code != protocol.ErrBadRequest {
		t.Fatalf("bad body: code=%d body=%+v", code, eb)
	}

	run.mu.Lock()
	run.state.Status = engine.StatusDone
	run.mu.Unlock()
	code, ack, _ = postControl(t, srv.URL, `{"action":"stop"}`)
	if code != http.StatusConflict || ack.Accepted || ack.Code != protocol.ErrRunFinished {
		t.Fatalf("stop after done: code=%d ack=%+v", code, ack)
	}

	run.mu.Lock()
	defer run.mu.Unlock()
	if len(run.actions) != 1 || run.actions[0] != "pause" {
		t.Fatalf("actions=%v want [pause]", run.actions)
	}
}

func TestQueries_HTTP(t *testing.T) {
	sim, hub := newTestSim(t, 3)
	srv := httptest.NewServer(NewServer(sim, hub, nil).Handler())
	defer srv.Close()

	for m := 1; m <= 2; m++ {
		if _, _, err := sim.StepOnce(); err != nil {
			t.Fatalf("step %d: %v", m, err)
		}
	}

	var st engine.State
	getJSON(t, srv.URL+"/v1/state", &st)
	if st.RunID != "ws-test" || st.Month != 2 || st.TotalMonths != 3 {
		t.Fatalf("state: run=%q month=%d total=%d", st.RunID, st.Month, st.TotalMonths)
	}

	var regions []json.RawMessage
	getJSON(t, srv.URL+"/v1/regions", &regions)
	if len(regions) != 2 {
		t.Fatalf("regions=%d want 2", len(regions))
	}
	var programs []json.RawMessage
	getJSON(t, srv.URL+"/v1/programs", &programs)
	if len(programs) != 2 {
		t.Fatalf("programs=%d want 2", len(programs))
	}

	var diff diffusion.Summary
	getJSON(t, srv.URL+"/v1/diffusion", &diff)
	if len(diff.History) != 2 || diff.History[1].Month != 2 {
		t.Fatalf("diffusion history=%+v", diff.History)
	}
	if diff.EchoChamberShare < 0 || diff.EchoChamberShare > 1 {
		t.Fatalf("echo chamber share=%v", diff.EchoChamberShare)
	}

	var batch protocol.EventBatchMsg
	getJSON(t, srv.URL+"/v1/events?since=0&limit=500", &batch)
	want := len(sim.Result().Events)
	if len(batch.Events) != want || batch.NextCursor != uint64(want) {
		t.Fatalf("events=%d next=%d want %d", len(batch.Events), batch.NextCursor, want)
	}

	resp, err := http.Get(srv.URL + "/v1/events?since=abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad cursor status=%d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !bytes.Contains(body, []byte(`labsim_month{run="ws-test"} 2`)) {
		t.Fatalf("metrics missing month gauge:\n%s", body)
	}
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, typ string) []byte {
	t.Helper()
	for i := 0; i < 50; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read waiting for %s: %v", typ, err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if base.Type == typ {
			return msg
		}
	}
	t.Fatalf("no %s message", typ)
	return nil
}

func TestProgressWS_StreamsMonths(t *testing.T) {
	sim, hub := newTestSim(t, 3)
	srv := httptest.NewServer(NewServer(sim, hub, nil).Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/progress"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeWelcome), &welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if welcome.RunID != "ws-test" || welcome.TotalMonths != 3 || welcome.Workers != 120 {
		t.Fatalf("welcome=%+v", welcome)
	}

	if _, _, err := sim.StepOnce(); err != nil {
		t.Fatalf("step: %v", err)
	}
	var p protocol.ProgressMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeProgress), &p); err != nil {
		t.Fatalf("progress: %v", err)
	}
	res := sim.Result()
	if p.Month != 1 || p.Stats.Digest != res.Months[0].Digest {
		t.Fatalf("progress month=%d digest=%s", p.Month, p.Stats.Digest)
	}
	if p.Progress <= 0.33 || p.Progress >= 0.34 {
		t.Fatalf("progress=%v want 1/3", p.Progress)
	}

	req, _ := json.Marshal(protocol.EventBatchReqMsg{
		Type: protocol.TypeEventBatchReq, ProtocolVersion: protocol.Version, ReqID: "e1", Limit: 10,
	})
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		t.Fatalf("write: %v", err)
	}
	var batch protocol.EventBatchMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeEventBatch), &batch); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if batch.ReqID != "e1" || batch.NextCursor != p.EventCursor {
		t.Fatalf("batch req=%q next=%d want cursor %d", batch.ReqID, batch.NextCursor, p.EventCursor)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"HELLO"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var ack protocol.AckMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeAck), &ack); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if ack.Accepted || ack.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("ack=%+v", ack)
	}
}

func TestProgressWS_ControlBroadcastsStatus(t *testing.T) {
	run := &fakeRunner{state: engine.State{RunID: "fake", Status: engine.StatusRunning, Month: 5}}
	srv := httptest.NewServer(NewServer(run, NewHub("fake", 12), nil).Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/progress"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readUntil(t, conn, protocol.TypeWelcome)

	msg, _ := json.Marshal(protocol.ControlMsg{Type: protocol.TypeControl, ProtocolVersion: protocol.Version, ReqID: "c9", Action: protocol.ActionStop})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	// STATUS and ACK travel on different queues, so either may come first.
	var status protocol.StatusMsg
	var ack protocol.AckMsg
	for got := 0; got < 2; {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		base, _ := protocol.DecodeBase(raw)
		switch base.Type {
		case protocol.TypeStatus:
			_ = json.Unmarshal(raw, &status)
			got++
		case protocol.TypeAck:
			_ = json.Unmarshal(raw, &ack)
			got++
		}
	}
	if status.Status != engine.StatusStopped || status.Month != 5 {
		t.Fatalf("status=%+v", status)
	}
	if !ack.Accepted || ack.AckFor != "c9" {
		t.Fatalf("ack=%+v", ack)
	}
}

func TestHub_EventsSince(t *testing.T) {
	h := NewHub("r", 12)
	_ = h.WriteMonth(engine.MonthLogEntry{Month: 1})
	h.mu.Lock()
	for i := 0; i < 5; i++ {
		h.events = append(h.events, protocol.MediaEvent{Month: 1, Kind: "mass_layoff"})
	}
	h.mu.Unlock()

	items, next := h.EventsSince(0, 2)
	if len(items) != 2 || items[0].Cursor != 1 || next != 2 {
		t.Fatalf("first page: %d items next=%d", len(items), next)
	}
	items, next = h.EventsSince(next, 10)
	if len(items) != 3 || items[2].Cursor != 5 || next != 5 {
		t.Fatalf("second page: %d items next=%d", len(items), next)
	}
	items, next = h.EventsSince(9, 10)
	if len(items) != 0 || next != 9 {
		t.Fatalf("past end: %d items next=%d", len(items), next)
	}
}
