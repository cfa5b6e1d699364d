// Package bridge accepts Asterisk AudioSocket connections and feeds each
// call's audio into its own live transcription session.
package bridge

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"sync"

	"github.com/CyCoreSystems/audiosocket"

	"github.com/rtranscribe/livestt/internal/audio"
	"github.com/rtranscribe/livestt/internal/backend"
	"github.com/rtranscribe/livestt/internal/session"
)

// telephonyRate is the sample rate of AudioSocket slin payloads.
const telephonyRate = 8000

type Config struct {
	Host string
	Port int
	// Session is the template for per-call sessions; the source rate is
	// forced to the telephony rate.
	Session session.Config
}

type Server struct {
	config   Config
	svc      backend.Service
	listener net.Listener
	wg       sync.WaitGroup
	shutdown chan struct{}
}

func New(config Config, svc backend.Service) *Server {
	return &Server{
		config:   config,
		svc:      svc,
		shutdown: make(chan struct{}),
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	log.Printf("AudioSocket bridge listening on %s", addr)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return nil
			default:
				log.Printf("Accept error: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) Stop() {
	close(s.shutdown)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	id, err := audiosocket.GetID(conn)
	if err != nil {
		log.Printf("Failed to get call ID: %v", err)
		return
	}
	log.Printf("Call %s: connected from %s", id, conn.RemoteAddr())

	sessCfg := s.config.Session
	sessCfg.SourceRate = telephonyRate
	sess := session.New(sessCfg, s.svc, &callLogger{call: id.String()})

	if err := sess.Initialize(context.Background()); err != nil {
		log.Printf("Call %s: transcription unavailable: %v", id, err)
		return
	}
	defer sess.Close()

	for {
		msg, err := audiosocket.NextMessage(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("Call %s: failed to read message: %v", id, err)
			}
			return
		}

		switch msg.Kind() {
		case audiosocket.KindSlin:
			if payload := msg.Payload(); len(payload) > 0 {
				sess.SendAudio(audio.RawBytes(payload))
			}

		case audiosocket.KindHangup:
			log.Printf("Call %s: hangup", id)
			return

		case audiosocket.KindError:
			log.Printf("Call %s: error code %d", id, msg.ErrorCode())
		}
	}
}

// callLogger surfaces one call's session events on the server log.
type callLogger struct {
	call string
}

func (c *callLogger) OnTranscription(t session.Transcription) {
	log.Printf("Call %s: [%.1fs-%.1fs] %s", c.call, t.Start, t.End, t.Text)
}

func (c *callLogger) OnError(err error) {
	log.Printf("Call %s: session error: %v", c.call, err)
}

func (c *callLogger) OnClose(ev session.CloseEvent) {
	log.Printf("Call %s: session closed (%d %s)", c.call, ev.Code, ev.Reason)
}
