package metrics

import (
	"strings"
	"testing"
)

func TestSessionMetricsCounters(t *testing.T) {
	m := NewSessionMetrics("s1", "base")

	if m.FirstSegmentTime != nil {
		t.Error("FirstSegmentTime should be nil before any segment")
	}

	m.AddAudio(4800, 6400)
	m.AddAudio(4800, 6400)
	m.AddSegment(5)
	m.AddSegment(7)
	m.AddWaitNotice()
	m.Finalize()

	if m.AudioBytesIn != 9600 {
		t.Errorf("AudioBytesIn = %d, want 9600", m.AudioBytesIn)
	}
	if m.AudioBytesOut != 12800 {
		t.Errorf("AudioBytesOut = %d, want 12800", m.AudioBytesOut)
	}
	if m.SegmentCount != 2 {
		t.Errorf("SegmentCount = %d, want 2", m.SegmentCount)
	}
	if m.TranscriptLength != 12 {
		t.Errorf("TranscriptLength = %d, want 12", m.TranscriptLength)
	}
	if m.WaitNotices != 1 {
		t.Errorf("WaitNotices = %d, want 1", m.WaitNotices)
	}
	if m.FirstSegmentTime == nil {
		t.Error("FirstSegmentTime should be set after a segment")
	}
	if m.EndTime.IsZero() {
		t.Error("EndTime should be set after Finalize")
	}
}

func TestSummaryContents(t *testing.T) {
	m := NewSessionMetrics("s1", "base")
	m.AddSegment(10)
	m.Finalize()

	summary := m.Summary()
	for _, want := range []string{"Session: s1", "Model: base", "Segments: 1", "Transcript Length: 10 chars"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary missing %q:\n%s", want, summary)
		}
	}
}
