// Package session implements a single live transcription session against a
// WhisperLive backend: connection lifecycle, audio forwarding, and
// reconciliation of the backend's replayed segment history into a clean
// event stream.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rtranscribe/livestt/internal/audio"
	"github.com/rtranscribe/livestt/internal/backend"
	"github.com/rtranscribe/livestt/internal/metrics"
	"github.com/rtranscribe/livestt/internal/protocol"
)

// DefaultInitTimeout bounds how long Initialize waits for the backend's
// readiness signal after connecting starts.
const DefaultInitTimeout = 10 * time.Second

const defaultLanguage = "en"

// ErrAlreadyStarted is returned when Initialize is called on a session that
// already left the unconnected state. Sessions are single-use.
var ErrAlreadyStarted = errors.New("session already initialized")

// State is the connection lifecycle state. Closed is terminal and reachable
// from every other state.
type State int32

const (
	StateUnconnected State = iota
	StateConnecting
	StateAwaitingReady
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingReady:
		return "awaiting-ready"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Config carries the caller-tunable session parameters.
type Config struct {
	// Model is the caller-facing model identifier. Unknown values map to
	// the backend default.
	Model    string
	Language string // empty means "en"
	UseVAD   bool
	// SourceRate is the sample rate of the PCM handed to SendAudio.
	// Zero means audio.SourceRate.
	SourceRate int
	// Host overrides the backend host, for backends not on localhost.
	Host string
	// InitTimeout overrides DefaultInitTimeout when positive.
	InitTimeout time.Duration
}

// Session is a single-use live transcription session. Construct with New,
// drive with Initialize, feed with SendAudio, and tear down with Close.
// Once closed it cannot be reopened.
type Session struct {
	id      string
	cfg     Config
	svc     backend.Service
	srcRate int
	stats   *metrics.SessionMetrics
	dial    func(ctx context.Context, url string) (transport, error)

	mu       sync.Mutex
	state    State
	conn     transport
	listener Listener
	closeErr error

	ready     atomic.Bool
	readyOnce sync.Once
	readyCh   chan struct{}
	closeOnce sync.Once
	done      chan struct{}

	// rec is only touched from the read loop, which processes inbound
	// messages strictly in arrival order.
	rec reconciler
}

// New creates an unconnected session. The listener is injected here and
// receives all events; pass NopListener for headless use.
func New(cfg Config, svc backend.Service, l Listener) *Session {
	if l == nil {
		l = NopListener{}
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	srcRate := cfg.SourceRate
	if srcRate <= 0 {
		srcRate = audio.SourceRate
	}
	id := uuid.NewString()
	return &Session{
		id:       id,
		cfg:      cfg,
		svc:      svc,
		srcRate:  srcRate,
		stats:    metrics.NewSessionMetrics(id, protocol.MapModel(cfg.Model)),
		dial:     dialBackend,
		listener: l,
		readyCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Metrics exposes the session's counters.
func (s *Session) Metrics() *metrics.SessionMetrics { return s.stats }

// Initialize connects to the backend, performs the configuration handshake,
// and blocks until the backend signals readiness, the timeout elapses, or
// the connection fails. A failed session is unusable; construct a new one.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateUnconnected {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateConnecting
	s.mu.Unlock()

	timeout := s.cfg.InitTimeout
	if timeout <= 0 {
		timeout = DefaultInitTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if !s.svc.IsRunning() {
		log.Printf("Session %s: backend not running, starting it", s.id)
		if err := s.svc.Start(ctx); err != nil {
			return s.failInit(fmt.Errorf("backend unavailable: %w", err))
		}
	}

	host := s.cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	url := fmt.Sprintf("ws://%s:%d", host, s.svc.Port())

	conn, err := s.dial(ctx, url)
	if err != nil {
		return s.failInit(fmt.Errorf("connect to %s: %w", url, err))
	}

	s.mu.Lock()
	s.conn = conn
	s.state = StateAwaitingReady
	s.mu.Unlock()

	hello := protocol.ClientConfig{
		UID:      s.id,
		Language: s.cfg.Language,
		Task:     protocol.TaskTranscribe,
		Model:    protocol.MapModel(s.cfg.Model),
		UseVAD:   s.cfg.UseVAD,
	}
	data, err := json.Marshal(hello)
	if err != nil {
		return s.failInit(fmt.Errorf("encode handshake: %w", err))
	}
	if err := conn.WriteText(data); err != nil {
		return s.failInit(fmt.Errorf("send handshake: %w", err))
	}

	go s.readLoop(conn)

	select {
	case <-s.readyCh:
		log.Printf("Session %s: ready (model %s)", s.id, hello.Model)
		return nil
	case <-s.done:
		s.mu.Lock()
		cause := s.closeErr
		s.mu.Unlock()
		if cause == nil {
			cause = errors.New("connection closed before backend was ready")
		}
		return fmt.Errorf("session %s: %w", s.id, cause)
	case <-ctx.Done():
		err := fmt.Errorf("backend not ready within %s", timeout)
		s.finish(err, CloseEvent{Code: websocket.CloseGoingAway, Reason: "initialization timeout"})
		return fmt.Errorf("session %s: %w", s.id, err)
	}
}

// failInit closes the session due to a pre-readiness failure and surfaces
// the cause both as the return value and through the error event.
func (s *Session) failInit(cause error) error {
	s.finish(cause, CloseEvent{Code: websocket.CloseAbnormalClosure, Reason: cause.Error()})
	return fmt.Errorf("session %s: %w", s.id, cause)
}

// SendAudio feeds one audio payload into the session. Frames arriving
// before readiness are dropped rather than buffered, undecodable payloads
// are logged and dropped, and nothing is reported back to the caller.
func (s *Session) SendAudio(in audio.Input) {
	pcm, err := in.PCM()
	if err != nil {
		log.Printf("Session %s: dropping undecodable audio frame: %v", s.id, err)
		return
	}
	if len(pcm) == 0 || !s.ready.Load() {
		return
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	samples := audio.Resample(pcm, s.srcRate, audio.TargetRate)
	if len(samples) == 0 {
		return
	}
	frame := audio.Float32Bytes(samples)
	if err := conn.WriteBinary(frame); err != nil {
		log.Printf("Session %s: audio write failed: %v", s.id, err)
		return
	}
	s.stats.AddAudio(len(pcm), len(frame))
}

// Close shuts the session down. It is idempotent and safe in any lifecycle
// state: if the transport ever opened, a best-effort end-of-audio marker is
// sent first; all shutdown errors are swallowed. The listener is detached
// as the final step. Close never returns a non-nil error.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	alreadyClosed := s.state == StateClosed
	s.mu.Unlock()

	if conn != nil && !alreadyClosed {
		if err := conn.WriteBinary(protocol.EndOfAudio); err != nil {
			log.Printf("Session %s: end-of-audio marker: %v", s.id, err)
		}
	}
	s.finish(nil, CloseEvent{Code: websocket.CloseNormalClosure, Reason: "client closed"})
	return nil
}

// Done is closed once the session reaches the terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

// finish moves the session to Closed exactly once: records the cause,
// emits the error (if any) and the close event, tears the transport down,
// and detaches the listener.
func (s *Session) finish(cause error, ev CloseEvent) {
	s.closeOnce.Do(func() {
		s.ready.Store(false)

		s.mu.Lock()
		s.state = StateClosed
		s.closeErr = cause
		conn := s.conn
		l := s.listener
		s.listener = NopListener{}
		s.mu.Unlock()

		s.stats.Finalize()
		if conn != nil {
			_ = conn.Close()
		}
		if cause != nil {
			l.OnError(cause)
		}
		l.OnClose(ev)
		close(s.done)
	})
}

// readLoop consumes inbound frames until the connection dies. All mutable
// reconciliation state is confined to this goroutine.
func (s *Session) readLoop(conn transport) {
	for {
		data, err := conn.Read()
		if err != nil {
			s.handleReadError(err)
			return
		}
		s.handleMessage(data)
	}
}

func (s *Session) handleReadError(err error) {
	s.mu.Lock()
	alreadyClosed := s.state == StateClosed
	s.mu.Unlock()
	if alreadyClosed {
		// Local close tore the connection down under us.
		return
	}

	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		log.Printf("Session %s: backend closed connection (%d %s)", s.id, ce.Code, ce.Text)
		s.finish(nil, CloseEvent{Code: ce.Code, Reason: ce.Text})
		return
	}
	s.finish(fmt.Errorf("transport: %w", err),
		CloseEvent{Code: websocket.CloseAbnormalClosure, Reason: err.Error()})
}

func (s *Session) handleMessage(data []byte) {
	msg, err := protocol.Parse(data)
	if err != nil {
		log.Printf("Session %s: dropping malformed message: %v", s.id, err)
		return
	}

	switch msg.Kind() {
	case protocol.KindReady:
		log.Printf("Session %s: backend ready (%s)", s.id, msg.Backend)
		s.mu.Lock()
		if s.state == StateAwaitingReady {
			s.state = StateReady
		}
		s.mu.Unlock()
		s.ready.Store(true)
		s.readyOnce.Do(func() { close(s.readyCh) })

	case protocol.KindWait:
		log.Printf("Session %s: server busy, estimated wait %.0f minute(s)", s.id, msg.WaitMinutes())
		s.stats.AddWaitNotice()

	case protocol.KindDisconnect:
		log.Printf("Session %s: backend requested disconnect", s.id)
		s.finish(nil, CloseEvent{Code: websocket.CloseGoingAway, Reason: "backend disconnect"})

	case protocol.KindSegments:
		s.emitSegments(msg)
	}
}

func (s *Session) emitSegments(msg protocol.ServerMessage) {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()

	now := time.Now()
	for _, seg := range s.rec.advance(msg.Segments) {
		s.stats.AddSegment(len(seg.Text))
		l.OnTranscription(Transcription{
			Text:       seg.Text,
			Timestamp:  now,
			Confidence: 1.0,
			SessionID:  s.id,
			Start:      float64(seg.Start),
			End:        float64(seg.End),
		})
	}
}
