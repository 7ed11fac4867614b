package indexdb

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"laborsim.ai/internal/sim/engine"
)

func TestRemoteIndex_RetainsBatchOnFlushFailure(t *testing.T) {
	var mu sync.Mutex
	reqCount := 0
	var kinds []string
	token := ""

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		reqCount++
		thisReq := reqCount
		token = r.Header.Get("x-labsim-index-token")
		mu.Unlock()

		if thisReq <= 3 {
			http.Error(w, "temporary failure", http.StatusInternalServerError)
			return
		}

		var body struct {
			Events []remoteEvent `json:"events"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		mu.Lock()
		for _, ev := range body.Events {
			kinds = append(kinds, ev.Kind)
		}
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	idx, err := OpenRemote(RemoteConfig{
		Endpoint:      srv.URL,
		Token:         "secret",
		BatchSize:     1,
		FlushInterval: 20 * time.Millisecond,
		HTTPTimeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("OpenRemote: %v", err)
	}
	defer func() { _ = idx.Close() }()

	idx.StartRun(RunRecord{RunID: "r1", Seed: 42, Months: 12})
	if err := idx.WriteMonth(engine.MonthLogEntry{RunID: "r1", Month: 1, Digest: "abc"}); err != nil {
		t.Fatalf("WriteMonth: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := len(kinds) >= 2
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(kinds) < 2 || kinds[0] != "run_start" || kinds[1] != "month" {
		t.Fatalf("expected retained batches to be delivered in order; kinds=%v requests=%d", kinds, reqCount)
	}
	if token != "secret" {
		t.Fatalf("token header=%q", token)
	}
	st := idx.Stats()
	if st.FlushFailTotal == 0 {
		t.Fatalf("expected flush failures to be recorded, got 0")
	}
	if st.QueueDroppedTotal != 0 {
		t.Fatalf("unexpected queue drops: %d", st.QueueDroppedTotal)
	}
}

func TestOpenRemote_RequiresEndpoint(t *testing.T) {
	if _, err := OpenRemote(RemoteConfig{Endpoint: "  "}); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
}
