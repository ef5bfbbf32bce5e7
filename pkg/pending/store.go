// Package pending implements C7: responses staged in simultaneous
// submission mode until testPart end (core.v1 §4.6).
package pending

import "github.com/mind-engage/qti-testengine/pkg/variable"

// Response is a (itemRef, occurrence, state of response variables) triple
// queued per testPart when submissionMode = SIMULTANEOUS.
type Response struct {
	ItemRefID  string
	Occurrence int
	Responses  map[string]variable.Value
}

// Store holds PendingResponses in arrival order.
type Store struct {
	entries []Response
}

func NewStore() *Store { return &Store{} }

// AddPending queues pr, replacing any existing pending entry for the same
// (itemRef, occurrence) — a candidate may revise and resubmit an item
// before the testPart ends.
func (s *Store) AddPending(pr Response) {
	for i, existing := range s.entries {
		if existing.ItemRefID == pr.ItemRefID && existing.Occurrence == pr.Occurrence {
			s.entries[i] = pr
			return
		}
	}
	s.entries = append(s.entries, pr)
}

// GetPending returns the queued entry for (itemRefID, occurrence), or
// false if none is pending.
func (s *Store) GetPending(itemRefID string, occurrence int) (Response, bool) {
	for _, e := range s.entries {
		if e.ItemRefID == itemRefID && e.Occurrence == occurrence {
			return e, true
		}
	}
	return Response{}, false
}

// All returns every pending entry in arrival (insertion) order.
func (s *Store) All() []Response {
	out := make([]Response, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear empties the store, performed after a deferredResponseSubmission
// batch completes (§4.8.1).
func (s *Store) Clear() { s.entries = nil }
