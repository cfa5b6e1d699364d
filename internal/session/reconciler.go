package session

import (
	"strings"

	"github.com/rtranscribe/livestt/internal/protocol"
)

// reconciler turns the backend's full-history segment replay into an
// at-most-once stream of finalized segments. The backend resends every
// segment on each update and may rewrite a span until it is marked
// completed, so only completed segments past the already-accounted prefix
// are candidates for emission.
//
// Only touched from the session read loop; no locking needed.
type reconciler struct {
	emitted  int    // completed segments already accounted for
	lastText string // guards against immediate duplicate emissions
}

// advance consumes one full-history segment list and returns the segments
// to surface, in encountered order, with their text trimmed.
//
// The suffix slice assumes the completed prefix only ever grows. A backend
// that shrinks or reorders its history would make this skip or repeat
// entries; that fragility is inherited from the protocol and demonstrated
// in the tests rather than papered over.
func (r *reconciler) advance(segs []protocol.Segment) []protocol.Segment {
	var completed []protocol.Segment
	for _, s := range segs {
		if s.Completed {
			completed = append(completed, s)
		}
	}

	var out []protocol.Segment
	if r.emitted < len(completed) {
		for _, s := range completed[r.emitted:] {
			text := strings.TrimSpace(s.Text)
			if text == "" || text == r.lastText {
				continue
			}
			s.Text = text
			out = append(out, s)
			r.lastText = text
		}
	}

	// Account for the full completed list even when nothing was emitted,
	// so a server repeating the same set without growth stays a no-op.
	r.emitted = len(completed)
	return out
}
