// Package protocol defines the wire messages exchanged with a WhisperLive
// transcription backend over its WebSocket endpoint.
package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"
)

const (
	// ServerReady is sent once the backend has finished setup and will
	// accept audio.
	ServerReady = "SERVER_READY"
	// Disconnect asks the client to tear the session down.
	Disconnect = "DISCONNECT"
	// StatusWait marks a "server busy" notice; the message field carries
	// the estimated wait in minutes.
	StatusWait = "WAIT"

	// TaskTranscribe is the only task the client requests.
	TaskTranscribe = "transcribe"
)

// EndOfAudio is the binary sentinel that marks the end of the audio stream.
var EndOfAudio = []byte("END_OF_AUDIO")

// ClientConfig is the handshake frame sent right after the socket opens.
type ClientConfig struct {
	UID      string `json:"uid"`
	Language string `json:"language"`
	Task     string `json:"task"`
	Model    string `json:"model"`
	UseVAD   bool   `json:"use_vad"`
}

// Segment is one backend-reported span of transcribed speech. The backend
// may rewrite a span on later updates until Completed is set.
type Segment struct {
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	Start     FlexFloat `json:"start"`
	End       FlexFloat `json:"end"`
}

// ServerMessage is the union of all inbound frames. Which fields are set
// determines the message kind.
type ServerMessage struct {
	UID          string     `json:"uid"`
	Status       string     `json:"status"`
	Message      FlexString `json:"message"`
	Backend      string     `json:"backend"`
	Segments     []Segment  `json:"segments"`
	Language     string     `json:"language"`
	LanguageProb float64    `json:"language_prob"`
}

// Kind classifies a ServerMessage.
type Kind int

const (
	KindUnknown Kind = iota
	KindReady
	KindWait
	KindDisconnect
	KindSegments
)

// Kind reports what the message is. Messages matching none of the known
// shapes classify as KindUnknown and are ignored by callers.
func (m ServerMessage) Kind() Kind {
	switch {
	case m.Status == StatusWait:
		return KindWait
	case string(m.Message) == ServerReady:
		return KindReady
	case string(m.Message) == Disconnect:
		return KindDisconnect
	case m.Segments != nil:
		return KindSegments
	}
	return KindUnknown
}

// WaitMinutes returns the estimated wait carried by a WAIT notice, or 0 if
// the field does not parse.
func (m ServerMessage) WaitMinutes() float64 {
	v, _ := strconv.ParseFloat(string(m.Message), 64)
	return v
}

// Parse decodes one inbound text frame.
func Parse(data []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerMessage{}, err
	}
	return msg, nil
}

// FlexString decodes a JSON string, or any other scalar as its literal
// text. The backend reuses the message field for both status strings and
// the numeric WAIT estimate.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	*s = FlexString(data)
	return nil
}

// FlexFloat decodes a JSON number or a numeric string. Segment timestamps
// arrive in both forms depending on the backend version.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if str == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return err
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}
