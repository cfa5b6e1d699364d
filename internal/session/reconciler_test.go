package session

import (
	"testing"

	"github.com/rtranscribe/livestt/internal/protocol"
)

func seg(text string, completed bool, start, end float64) protocol.Segment {
	return protocol.Segment{
		Text:      text,
		Completed: completed,
		Start:     protocol.FlexFloat(start),
		End:       protocol.FlexFloat(end),
	}
}

func texts(segs []protocol.Segment) []string {
	var out []string
	for _, s := range segs {
		out = append(out, s.Text)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReconcilerGrowingHistory(t *testing.T) {
	var r reconciler

	first := r.advance([]protocol.Segment{seg("hi", true, 0, 1)})
	if got := texts(first); !equal(got, []string{"hi"}) {
		t.Fatalf("first advance emitted %v, want [hi]", got)
	}

	// The server replays the full history with every update.
	second := r.advance([]protocol.Segment{
		seg("hi", true, 0, 1),
		seg("there", true, 1, 2),
	})
	if got := texts(second); !equal(got, []string{"there"}) {
		t.Fatalf("second advance emitted %v, want [there]", got)
	}
}

func TestReconcilerRepeatedFeedIsNoOp(t *testing.T) {
	var r reconciler
	history := []protocol.Segment{
		seg("one", true, 0, 1),
		seg("two", true, 1, 2),
	}

	if got := len(r.advance(history)); got != 2 {
		t.Fatalf("first feed emitted %d segments, want 2", got)
	}
	if got := r.advance(history); got != nil {
		t.Errorf("second identical feed emitted %v, want nothing", texts(got))
	}
	if got := r.advance(history); got != nil {
		t.Errorf("third identical feed emitted %v, want nothing", texts(got))
	}
}

func TestReconcilerIgnoresIncompleteSegments(t *testing.T) {
	var r reconciler

	got := r.advance([]protocol.Segment{
		seg("done", true, 0, 1),
		seg("still changing", false, 1, 2),
	})
	if gotTexts := texts(got); !equal(gotTexts, []string{"done"}) {
		t.Fatalf("emitted %v, want [done]", gotTexts)
	}
	if r.emitted != 1 {
		t.Errorf("emitted count = %d, want 1", r.emitted)
	}
}

func TestReconcilerSuppressesAdjacentDuplicate(t *testing.T) {
	var r reconciler

	r.advance([]protocol.Segment{seg("hello", true, 0, 1)})
	got := r.advance([]protocol.Segment{
		seg("hello", true, 0, 1),
		seg(" hello ", true, 1, 2), // trims to the previous emission
	})
	if got != nil {
		t.Errorf("duplicate text emitted %v, want nothing", texts(got))
	}
	// The duplicate still counts toward the accounted prefix.
	if r.emitted != 2 {
		t.Errorf("emitted count = %d, want 2", r.emitted)
	}
}

func TestReconcilerSkipsEmptyText(t *testing.T) {
	var r reconciler

	got := r.advance([]protocol.Segment{
		seg("  ", true, 0, 1),
		seg("real", true, 1, 2),
	})
	if gotTexts := texts(got); !equal(gotTexts, []string{"real"}) {
		t.Errorf("emitted %v, want [real]", gotTexts)
	}
}

func TestReconcilerTrimsText(t *testing.T) {
	var r reconciler

	got := r.advance([]protocol.Segment{seg("  padded  ", true, 0, 1)})
	if gotTexts := texts(got); !equal(gotTexts, []string{"padded"}) {
		t.Errorf("emitted %v, want [padded]", gotTexts)
	}
}

// The suffix-by-count strategy assumes the completed history only grows.
// These two tests pin down the known failure modes for servers that edit or
// shrink already-completed history, rather than asserting a guarantee the
// protocol does not give us.

func TestReconcilerRevisedCompletedSegmentIsLost(t *testing.T) {
	var r reconciler

	r.advance([]protocol.Segment{seg("helo", true, 0, 1)})

	// The server re-finalizes the same span with corrected text. It sits
	// inside the accounted prefix, so the revision never surfaces.
	got := r.advance([]protocol.Segment{seg("hello", true, 0, 1)})
	if got != nil {
		t.Errorf("revised history emitted %v; the revision is dropped by design", texts(got))
	}
}

func TestReconcilerShrinkingHistoryReprocesses(t *testing.T) {
	var r reconciler

	r.advance([]protocol.Segment{
		seg("one", true, 0, 1),
		seg("two", true, 1, 2),
	})

	shrunk := r.advance([]protocol.Segment{seg("one", true, 0, 1)})
	if shrunk != nil {
		t.Fatalf("shrunk feed emitted %v", texts(shrunk))
	}
	// The count tracks the shrunk list, breaking monotonicity.
	if r.emitted != 1 {
		t.Fatalf("emitted count after shrink = %d, want 1", r.emitted)
	}

	// Position 1 now falls past the accounted prefix again, so a revised
	// entry there is emitted a second time.
	regrown := r.advance([]protocol.Segment{
		seg("one", true, 0, 1),
		seg("two again", true, 1, 2),
	})
	if got := texts(regrown); !equal(got, []string{"two again"}) {
		t.Errorf("regrown feed emitted %v, want [two again] (the documented reprocessing)", got)
	}
}
