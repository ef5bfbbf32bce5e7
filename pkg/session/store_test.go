package session_test

import (
	"testing"

	"github.com/mind-engage/qti-testengine/pkg/session"
)

func TestStoreAddGetHas(t *testing.T) {
	s := session.NewStore()
	if s.HasSession("item1", 0) {
		t.Fatal("expected no session before AddSession")
	}
	sess := newTestSession(nil, nil)
	s.AddSession("item1", 0, sess)
	if !s.HasSession("item1", 0) {
		t.Fatal("expected HasSession true after AddSession")
	}
	got, ok := s.GetSession("item1", 0)
	if !ok || got != sess {
		t.Fatalf("expected GetSession to return the same pointer, got %v (ok=%v)", got, ok)
	}
}

func TestStorePreservesInsertionOrder(t *testing.T) {
	s := session.NewStore()
	item2 := newTestSession(nil, nil)
	item2.ItemRefID = "item2"
	s.AddSession("item2", 0, item2)
	s.AddSession("item1", 0, newTestSession(nil, nil))
	s.AddSession("item1", 1, newTestSession(nil, nil))

	all := s.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(all))
	}
	wantOrder := []string{"item2", "item1", "item1"}
	for i, id := range wantOrder {
		if all[i].ItemRefID != id {
			t.Errorf("position %d: expected %q, got %q", i, id, all[i].ItemRefID)
		}
	}
}

func TestAddSessionReplaceDoesNotDuplicateOrder(t *testing.T) {
	s := session.NewStore()
	first := newTestSession(nil, nil)
	second := newTestSession(nil, nil)
	s.AddSession("item1", 0, first)
	s.AddSession("item1", 0, second)

	if len(s.All()) != 1 {
		t.Fatalf("expected replacing the same key not to duplicate it, got %d entries", len(s.All()))
	}
	got, _ := s.GetSession("item1", 0)
	if got != second {
		t.Fatal("expected the later AddSession to win")
	}
}

func TestCountForItemRef(t *testing.T) {
	s := session.NewStore()
	s.AddSession("item1", 0, newTestSession(nil, nil))
	s.AddSession("item1", 1, newTestSession(nil, nil))
	s.AddSession("item2", 0, newTestSession(nil, nil))

	if got := s.CountForItemRef("item1"); got != 2 {
		t.Fatalf("expected 2 occurrences of item1, got %d", got)
	}
	if got := s.CountForItemRef("ghost"); got != 0 {
		t.Fatalf("expected 0 occurrences of an unknown itemRef, got %d", got)
	}
}

func TestMustGetSessionErrorsWhenMissing(t *testing.T) {
	s := session.NewStore()
	if _, err := s.MustGetSession("ghost", 0); err == nil {
		t.Fatal("expected an error for a missing session")
	}
}
