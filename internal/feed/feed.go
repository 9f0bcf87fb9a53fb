// Package feed serves the live visualization stream over WebSocket. Every
// frame interval it pushes the latest session snapshot, projected into
// screen-space, to all connected clients; inbound command envelopes are routed
// through the dispatcher and answered with result envelopes.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hmdlab/headtrack/internal/calibration"
	"github.com/hmdlab/headtrack/internal/config"
	"github.com/hmdlab/headtrack/internal/dispatcher"
	"github.com/hmdlab/headtrack/internal/projection"
	"github.com/hmdlab/headtrack/internal/session"
	"github.com/hmdlab/headtrack/pkg/core"
	"github.com/hmdlab/headtrack/pkg/streaming"
)

const (
	sendChSize = 256
	writeWait  = 10 * time.Second
)

// FramePayload is the per-tick message pushed to every client: the raw
// snapshot plus its screen-space rendering.
type FramePayload struct {
	Snapshot *core.SessionSnapshot `json:"snapshot"`
	Screen   projection.Point      `json:"screen"`
	Trail    []projection.Point    `json:"trail"`
}

// BoundsPayload carries the active tracking volume and its screen rectangle.
// It is sent on connect and whenever the bounds change.
type BoundsPayload struct {
	Bounds core.TrackingBounds `json:"bounds"`
	Rect   projection.Rect     `json:"rect"`
}

// Server accepts WebSocket clients and runs the broadcast loop.
type Server struct {
	cfg  config.FeedConfig
	log  zerolog.Logger
	ctrl *session.Controller
	disp *dispatcher.Dispatcher
	proj projection.Params

	upgrader ws.Upgrader
	httpSrv  *http.Server

	mu      sync.Mutex
	clients map[*client]struct{}
	stopped bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

type client struct {
	conn *ws.Conn
	send chan []byte
}

// New creates a feed server for the given session controller.
func New(cfg config.FeedConfig, log zerolog.Logger, ctrl *session.Controller,
	disp *dispatcher.Dispatcher, proj projection.Params) *Server {

	if cfg.Interval <= 0 {
		cfg.Interval = 16 * time.Millisecond
	}
	return &Server{
		cfg:  cfg,
		log:  log,
		ctrl: ctrl,
		disp: disp,
		proj: proj,
		upgrader: ws.Upgrader{
			// The visualization page is served from anywhere during development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:  make(map[*client]struct{}),
		stopChan: make(chan struct{}),
	}
}

// Start begins listening and broadcasting. Non-blocking.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", s.handleFeed)

	s.httpSrv = &http.Server{Addr: s.cfg.ListenAddr, Handler: mux}

	ln := make(chan error, 1)
	go func() {
		err := s.httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			ln <- err
		}
	}()

	// Give the listener a moment to fail on a bad address.
	select {
	case err := <-ln:
		return fmt.Errorf("feed listen on %s: %w", s.cfg.ListenAddr, err)
	case <-time.After(100 * time.Millisecond):
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.log.Info().Str("addr", s.cfg.ListenAddr).Dur("interval", s.cfg.Interval).
		Msg("Feed server listening")
	return nil
}

// Stop shuts down the broadcast loop, all clients and the listener. Stopping
// a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()

	s.mu.Lock()
	for c := range s.clients {
		close(c.send)
		delete(s.clients, c)
	}
	s.mu.Unlock()

	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("Feed upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendChSize)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	count := len(s.clients)
	s.mu.Unlock()

	s.log.Info().Str("remote", conn.RemoteAddr().String()).Int("clients", count).
		Msg("Feed client connected")

	// New clients get the bounds overlay immediately.
	if data, err := marshalEnvelope(streaming.TypeBounds, s.boundsPayload()); err == nil {
		c.send <- data
	}

	go s.writePump(c)
	go s.readPump(c)
}

func (s *Server) dropClient(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
	c.conn.Close()
}

// writePump drains the client's send channel onto its connection.
func (s *Server) writePump(c *client) {
	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			s.dropClient(c)
			return
		}
		if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
			s.dropClient(c)
			return
		}
	}
	c.conn.Close()
}

// readPump parses inbound command envelopes and routes them through the
// dispatcher. Every command gets a result envelope, success or not.
func (s *Server) readPump(c *client) {
	defer s.dropClient(c)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env streaming.Envelope
		if err := json.Unmarshal(message, &env); err != nil || env.Type != streaming.TypeCommand {
			s.log.Debug().Str("raw", string(message)).Msg("Ignoring non-command message")
			continue
		}

		var cmd streaming.Command
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			s.reply(c, streaming.Result{For: "?", Error: "malformed command payload"})
			continue
		}

		result, err := s.disp.Dispatch(dispatcher.Event{
			Name:     cmd.Name,
			Args:     cmd.Args,
			Received: time.Now(),
		})

		res := streaming.Result{For: cmd.Name, OK: err == nil}
		if err != nil {
			res.Error = err.Error()
		} else if result != nil {
			if data, merr := json.Marshal(result); merr == nil {
				res.Data = data
			}
		}
		s.reply(c, res)
	}
}

// reply queues a result envelope for one client. The membership check under
// the lock keeps it off a send channel that dropClient has already closed.
func (s *Server) reply(c *client, res streaming.Result) {
	data, err := marshalEnvelope(streaming.TypeResult, res)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		s.log.Warn().Str("for", res.For).Msg("Client send channel full, dropping result")
	}
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.broadcastFrame()
		}
	}
}

// broadcastFrame pushes the latest snapshot to every client, plus calibration
// progress while a run is active.
func (s *Server) broadcastFrame() {
	snap := s.ctrl.Snapshot()
	if snap == nil {
		return
	}

	payload := FramePayload{
		Snapshot: snap,
		Screen:   s.proj.Project(snap.Position),
		Trail:    s.proj.Trail(s.ctrl.Trail()),
	}
	data, err := marshalEnvelope(streaming.TypeSnapshot, payload)
	if err != nil {
		s.log.Error().Err(err).Msg("Error encoding snapshot frame")
		return
	}
	s.broadcast(data)

	if s.ctrl.Calibration().State() != calibration.Idle {
		progress := s.ctrl.Calibration().Progress()
		if data, err := marshalEnvelope(streaming.TypeCalibrationProgress, progress); err == nil {
			s.broadcast(data)
		}
	}
}

// BroadcastBounds pushes the current bounds overlay to every client. Called
// after a bounds change or calibration load.
func (s *Server) BroadcastBounds() {
	if data, err := marshalEnvelope(streaming.TypeBounds, s.boundsPayload()); err == nil {
		s.broadcast(data)
	}
}

func (s *Server) broadcast(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			// Slow consumer; skip this frame for it rather than stall the loop.
		}
	}
}

func (s *Server) boundsPayload() BoundsPayload {
	b := s.ctrl.Bounds()
	return BoundsPayload{
		Bounds: b,
		Rect:   s.proj.BoundsRect(b),
	}
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}
