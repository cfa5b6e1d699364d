package session

import "time"

// Transcription is one finalized transcript span surfaced to the caller.
type Transcription struct {
	Text       string
	Timestamp  time.Time
	Confidence float64
	SessionID  string
	Start      float64
	End        float64
}

// CloseEvent carries the transport closure code and reason.
type CloseEvent struct {
	Code   int
	Reason string
}

// Listener receives session events. Callbacks are invoked from the
// session's read loop in message order and should not block.
type Listener interface {
	OnTranscription(Transcription)
	OnError(err error)
	OnClose(CloseEvent)
}

// NopListener discards all events. Headless callers inject it instead of
// the session branching on an ambient runtime flag.
type NopListener struct{}

func (NopListener) OnTranscription(Transcription) {}
func (NopListener) OnError(error)                 {}
func (NopListener) OnClose(CloseEvent)            {}

var _ Listener = NopListener{}
