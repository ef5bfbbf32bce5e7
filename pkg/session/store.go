package session

import "github.com/mind-engage/qti-testengine/pkg/qerr"

type key struct {
	itemRefID  string
	occurrence int
}

// Store maps (itemRef, occurrence) -> Session, guaranteeing at-most-one
// session per key, with insertion-order iteration (§4.4).
type Store struct {
	sessions map[key]*Session
	order    []key
}

func NewStore() *Store {
	return &Store{sessions: make(map[key]*Session)}
}

// AddSession adds session under (itemRefID, occurrence). Adding twice for
// the same key replaces the entry but does not duplicate it in iteration
// order.
func (s *Store) AddSession(itemRefID string, occurrence int, sess *Session) {
	k := key{itemRefID, occurrence}
	if _, exists := s.sessions[k]; !exists {
		s.order = append(s.order, k)
	}
	s.sessions[k] = sess
}

func (s *Store) GetSession(itemRefID string, occurrence int) (*Session, bool) {
	sess, ok := s.sessions[key{itemRefID, occurrence}]
	return sess, ok
}

func (s *Store) HasSession(itemRefID string, occurrence int) bool {
	_, ok := s.sessions[key{itemRefID, occurrence}]
	return ok
}

// MustGetSession is a convenience for callers that have already verified
// existence via HasSession; it raises LogicError otherwise, as this
// indicates an invariant breach rather than a recoverable condition.
func (s *Store) MustGetSession(itemRefID string, occurrence int) (*Session, error) {
	sess, ok := s.GetSession(itemRefID, occurrence)
	if !ok {
		return nil, qerr.New(qerr.LogicError, qerr.ItemComponent(itemRefID, occurrence), "no session registered for this occurrence")
	}
	return sess, nil
}

// All iterates every registered session in insertion order.
func (s *Store) All() []*Session {
	out := make([]*Session, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.sessions[k])
	}
	return out
}

// CountForItemRef returns how many distinct occurrences of itemRefID have a
// session registered — used by the §8 invariant relating Route occurrences
// to store entries.
func (s *Store) CountForItemRef(itemRefID string) int {
	n := 0
	for _, k := range s.order {
		if k.itemRefID == itemRefID {
			n++
		}
	}
	return n
}
