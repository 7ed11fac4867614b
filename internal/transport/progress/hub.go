// Package progress serves a running simulation over HTTP: JSON query
// endpoints, a control endpoint and a websocket stream of monthly progress.
package progress

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"laborsim.ai/internal/protocol"
	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/engine"
)

// Hub fans month entries out to websocket clients and keeps the delivered
// media events for cursor-based replay. It is an engine.MonthSink.
type Hub struct {
	runID       string
	totalMonths int

	mu      sync.Mutex
	clients map[uint64]chan []byte
	events  []protocol.MediaEvent
	last    []byte // last PROGRESS message, replayed to late joiners

	nextID  atomic.Uint64
	dropped atomic.Uint64
}

func NewHub(runID string, totalMonths int) *Hub {
	return &Hub{
		runID:       runID,
		totalMonths: totalMonths,
		clients:     map[uint64]chan []byte{},
	}
}

// Subscribe registers a client queue. The returned cancel func must be
// called when the client goes away.
func (h *Hub) Subscribe(queue int) (<-chan []byte, func()) {
	if queue <= 0 {
		queue = 16
	}
	id := h.nextID.Add(1)
	ch := make(chan []byte, queue)
	h.mu.Lock()
	h.clients[id] = ch
	if h.last != nil {
		ch <- h.last
	}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		if c, ok := h.clients[id]; ok {
			delete(h.clients, id)
			close(c)
		}
		h.mu.Unlock()
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped counts messages not delivered to slow clients.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) WriteMonth(e engine.MonthLogEntry) error {
	h.mu.Lock()
	for _, ev := range e.Events {
		h.events = append(h.events, protocol.MediaEvent{
			Month:     ev.Month,
			Kind:      ev.Kind,
			Magnitude: ev.Magnitude,
			Region:    ev.Region,
			Policy:    ev.Policy,
			Reached:   ev.Reached,
		})
	}
	cursor := uint64(len(h.events))
	h.mu.Unlock()

	msg := protocol.ProgressMsg{
		Type:            protocol.TypeProgress,
		ProtocolVersion: protocol.Version,
		RunID:           h.runID,
		Month:           e.Month,
		TotalMonths:     h.totalMonths,
		Stats:           summarize(e),
		EventCursor:     cursor,
	}
	if h.totalMonths > 0 {
		msg.Progress = float64(e.Month) / float64(h.totalMonths)
	}
	for _, p := range e.Patterns {
		msg.Patterns = append(msg.Patterns, protocol.PatternRef{Kind: p.Kind, Month: p.Month, Delta: p.Delta, Description: p.Description})
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.last = b
	h.mu.Unlock()
	h.Broadcast(b)
	return nil
}

func summarize(e engine.MonthLogEntry) protocol.MonthSummary {
	st := e.Stats
	out := protocol.MonthSummary{
		UnemploymentRate:  st.UnemploymentRate,
		Employed:          st.Employed,
		Unemployed:        st.Unemployed,
		Retraining:        st.Retraining,
		OutOfLaborForce:   st.OutOfLaborForce,
		Hires:             st.Hires,
		Layoffs:           st.Layoffs,
		MedianWage:        st.MedianWage,
		WageGini:          st.WageGini,
		AdoptingFirmShare: st.AdoptingFirmShare,
		FrontierLevel:     st.FrontierLevel,
		MeanAnxiety:       st.MeanAnxiety,
		Digest:            e.Digest,
	}
	if len(st.PolicySupportMean) > 0 {
		out.PolicySupport = make(map[string]float64, catalogs.NumPolicies)
		for k, v := range st.PolicySupportMean {
			out.PolicySupport[k] = v
		}
	}
	return out
}

// BroadcastStatus tells every client the run changed state.
func (h *Hub) BroadcastStatus(st engine.State) {
	b, err := json.Marshal(protocol.StatusMsg{
		Type:            protocol.TypeStatus,
		ProtocolVersion: protocol.Version,
		RunID:           h.runID,
		Status:          st.Status,
		Month:           st.Month,
		Error:           st.Error,
	})
	if err != nil {
		return
	}
	h.Broadcast(b)
}

// Broadcast never blocks; a full client queue loses the message.
func (h *Hub) Broadcast(b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- b:
		default:
			h.dropped.Add(1)
		}
	}
}

// EventsSince returns up to limit events after cursor and the cursor of the
// last one returned.
func (h *Hub) EventsSince(cursor uint64, limit int) ([]protocol.EventBatchItem, uint64) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if cursor >= uint64(len(h.events)) {
		return nil, cursor
	}
	out := make([]protocol.EventBatchItem, 0, limit)
	next := cursor
	for i := cursor; i < uint64(len(h.events)) && len(out) < limit; i++ {
		next = i + 1
		out = append(out, protocol.EventBatchItem{Cursor: next, Event: h.events[i]})
	}
	return out, next
}
