package metrics

import (
	"fmt"
	"sync"
	"time"
)

// SessionMetrics aggregates per-session transcription counters. All methods
// are safe for concurrent use.
type SessionMetrics struct {
	SessionID        string
	Model            string
	StartTime        time.Time
	EndTime          time.Time
	AudioBytesIn     int
	AudioBytesOut    int
	SegmentCount     int
	TranscriptLength int
	WaitNotices      int
	FirstSegmentTime *time.Time
	mu               sync.Mutex
}

func NewSessionMetrics(sessionID, model string) *SessionMetrics {
	return &SessionMetrics{
		SessionID: sessionID,
		Model:     model,
		StartTime: time.Now(),
	}
}

// AddAudio records one forwarded frame: raw bytes received from the caller
// and resampled bytes written to the backend.
func (m *SessionMetrics) AddAudio(bytesIn, bytesOut int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AudioBytesIn += bytesIn
	m.AudioBytesOut += bytesOut
}

// AddSegment records one emitted transcription event.
func (m *SessionMetrics) AddSegment(textLen int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FirstSegmentTime == nil {
		now := time.Now()
		m.FirstSegmentTime = &now
	}
	m.SegmentCount++
	m.TranscriptLength += textLen
}

// AddWaitNotice records one "server busy" notice.
func (m *SessionMetrics) AddWaitNotice() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WaitNotices++
}

func (m *SessionMetrics) Finalize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EndTime.IsZero() {
		m.EndTime = time.Now()
	}
}

func (m *SessionMetrics) Summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := m.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	duration := end.Sub(m.StartTime)

	var latency time.Duration
	if m.FirstSegmentTime != nil {
		latency = m.FirstSegmentTime.Sub(m.StartTime)
	}

	// Caller-side audio is 16-bit PCM, two bytes per sample.
	audioDuration := float64(m.AudioBytesIn) / (24000 * 2)

	return fmt.Sprintf(
		"Session: %s\n"+
			"Model: %s\n"+
			"Duration: %v\n"+
			"Audio Duration: %.2f seconds\n"+
			"Audio Bytes In: %d\n"+
			"Audio Bytes Out: %d\n"+
			"Segments: %d\n"+
			"Transcript Length: %d chars\n"+
			"First Segment Latency: %v\n"+
			"Wait Notices: %d\n",
		m.SessionID,
		m.Model,
		duration,
		audioDuration,
		m.AudioBytesIn,
		m.AudioBytesOut,
		m.SegmentCount,
		m.TranscriptLength,
		latency,
		m.WaitNotices,
	)
}
