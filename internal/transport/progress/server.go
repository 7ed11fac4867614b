package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"laborsim.ai/internal/protocol"
	"laborsim.ai/internal/sim/engine"
	"laborsim.ai/internal/sim/scenario"
)

// Runner is the part of *engine.Simulation the server needs.
type Runner interface {
	RunID() string
	Scenario() scenario.Scenario
	CurrentState() engine.State
	Pause()
	Resume()
	Stop()
}

type Server struct {
	run Runner
	hub *Hub
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(run Runner, hub *Hub, logger *log.Logger) *Server {
	return &Server{
		run: run,
		hub: hub,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Routes registers every endpoint on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/v1/state", s.get(func() any { return s.run.CurrentState() }))
	mux.HandleFunc("/v1/regions", s.get(func() any { return s.run.CurrentState().Regions }))
	mux.HandleFunc("/v1/programs", s.get(func() any { return s.run.CurrentState().Programs }))
	mux.HandleFunc("/v1/wages", s.get(func() any { return s.run.CurrentState().Wages }))
	mux.HandleFunc("/v1/diffusion", s.get(func() any { return s.run.CurrentState().Diffusion }))
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/control", s.handleControl)
	mux.HandleFunc("/v1/progress", s.handleProgressWS)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Routes(mux)
	return mux
}

func (s *Server) get(view func() any) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(rw, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "GET only")
			return
		}
		writeJSON(rw, http.StatusOK, view())
	}
}

func (s *Server) handleEvents(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(rw, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "GET only")
		return
	}
	q := r.URL.Query()
	var since uint64
	if v := q.Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "bad since cursor")
			return
		}
		since = n
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "bad limit")
			return
		}
		limit = n
	}
	writeJSON(rw, http.StatusOK, s.eventBatch(protocol.EventBatchReqMsg{SinceCursor: since, Limit: limit}))
}

func (s *Server) eventBatch(req protocol.EventBatchReqMsg) protocol.EventBatchMsg {
	items, next := s.hub.EventsSince(req.SinceCursor, req.Limit)
	if items == nil {
		items = []protocol.EventBatchItem{}
	}
	return protocol.EventBatchMsg{
		Type:            protocol.TypeEventBatch,
		ProtocolVersion: protocol.Version,
		ReqID:           req.ReqID,
		Events:          items,
		NextCursor:      next,
	}
}

func (s *Server) handleControl(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(rw, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "POST only")
		return
	}
	var msg protocol.ControlMsg
	if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 16*1024)).Decode(&msg); err != nil {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "bad control body")
		return
	}
	ack := s.control(msg)
	status := http.StatusOK
	switch ack.Code {
	case "":
	case protocol.ErrUnknownAction:
		status = http.StatusBadRequest
	default:
		status = http.StatusConflict
	}
	writeJSON(rw, status, ack)
}

// control applies a CONTROL action. Pause and resume are idempotent; any
// action on a finished run is refused.
func (s *Server) control(msg protocol.ControlMsg) protocol.AckMsg {
	st := s.run.CurrentState()
	ack := protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          msg.ReqID,
		Status:          st.Status,
		Month:           st.Month,
	}
	switch msg.Action {
	case protocol.ActionPause, protocol.ActionResume, protocol.ActionStop:
	default:
		ack.Code = protocol.ErrUnknownAction
		ack.Message = fmt.Sprintf("unknown action %q", msg.Action)
		return ack
	}
	switch st.Status {
	case engine.StatusDone, engine.StatusStopped, engine.StatusFailed:
		ack.Code = protocol.ErrRunFinished
		ack.Message = "run already " + st.Status
		return ack
	}

	next := st.Status
	switch msg.Action {
	case protocol.ActionPause:
		s.run.Pause()
		next = engine.StatusPaused
	case protocol.ActionResume:
		s.run.Resume()
		next = engine.StatusRunning
	case protocol.ActionStop:
		s.run.Stop()
		next = engine.StatusStopped
	}
	if s.log != nil {
		s.log.Printf("run %s: %s requested at month %d", s.run.RunID(), msg.Action, st.Month)
	}
	ack.Accepted = true
	ack.Status = next
	st.Status = next
	s.hub.BroadcastStatus(st)
	return ack
}

func (s *Server) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	st := s.run.CurrentState()
	id := s.run.RunID()

	fmt.Fprintf(rw, "# HELP labsim_month Last completed simulated month.\n")
	fmt.Fprintf(rw, "# TYPE labsim_month gauge\n")
	fmt.Fprintf(rw, "labsim_month{run=%q} %d\n", id, st.Month)

	fmt.Fprintf(rw, "# HELP labsim_unemployment_rate Unemployment rate after the last month.\n")
	fmt.Fprintf(rw, "# TYPE labsim_unemployment_rate gauge\n")
	fmt.Fprintf(rw, "labsim_unemployment_rate{run=%q} %.6f\n", id, st.Current.UnemploymentRate)

	fmt.Fprintf(rw, "# HELP labsim_adopting_firm_share Share of firms piloting or beyond.\n")
	fmt.Fprintf(rw, "# TYPE labsim_adopting_firm_share gauge\n")
	fmt.Fprintf(rw, "labsim_adopting_firm_share{run=%q} %.6f\n", id, st.Current.AdoptingFirmShare)

	fmt.Fprintf(rw, "# HELP labsim_progress_clients Connected progress stream clients.\n")
	fmt.Fprintf(rw, "# TYPE labsim_progress_clients gauge\n")
	fmt.Fprintf(rw, "labsim_progress_clients{run=%q} %d\n", id, s.hub.Clients())

	fmt.Fprintf(rw, "# HELP labsim_progress_dropped_total Messages dropped for slow clients.\n")
	fmt.Fprintf(rw, "# TYPE labsim_progress_dropped_total counter\n")
	fmt.Fprintf(rw, "labsim_progress_dropped_total{run=%q} %d\n", id, s.hub.Dropped())
}

func (s *Server) handleProgressWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sc := s.run.Scenario()
	st := s.run.CurrentState()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		RunID:           s.run.RunID(),
		Scenario:        sc.Name,
		Seed:            sc.Seed,
		Status:          st.Status,
		Month:           st.Month,
		TotalMonths:     sc.DurationMonths,
		Workers:         sc.NumWorkers,
		Firms:           sc.NumFirms,
		Regions:         sc.NumRegions,
	}
	if err := writeWS(conn, welcome); err != nil {
		return
	}

	out, unsubscribe := s.hub.Subscribe(64)
	defer unsubscribe()
	replies := make(chan any, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Writer goroutine.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-out:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			case v := <-replies:
				if err := writeWS(conn, v); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// Reader loop: CONTROL and EVENT_BATCH_REQ.
	for {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		reply := s.handleWSMessage(msg)
		select {
		case replies <- reply:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	cancel()
}

func (s *Server) handleWSMessage(msg []byte) any {
	bad := func(text string) protocol.AckMsg {
		st := s.run.CurrentState()
		return protocol.AckMsg{
			Type:            protocol.TypeAck,
			ProtocolVersion: protocol.Version,
			Code:            protocol.ErrProtoBadRequest,
			Message:         text,
			Status:          st.Status,
			Month:           st.Month,
		}
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return bad("malformed json")
	}
	if base.ProtocolVersion != "" && base.ProtocolVersion != protocol.Version {
		return bad("bad protocol_version")
	}
	switch base.Type {
	case protocol.TypeControl:
		var c protocol.ControlMsg
		if err := json.Unmarshal(msg, &c); err != nil {
			return bad("malformed CONTROL")
		}
		return s.control(c)
	case protocol.TypeEventBatchReq:
		var req protocol.EventBatchReqMsg
		if err := json.Unmarshal(msg, &req); err != nil {
			return bad("malformed EVENT_BATCH_REQ")
		}
		return s.eventBatch(req)
	}
	return bad(fmt.Sprintf("unexpected message type %q", base.Type))
}

func writeWS(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, code, msg string) {
	writeJSON(rw, status, protocol.ErrorBody{Code: code, Message: msg})
}
