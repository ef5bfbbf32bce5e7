package pending_test

import (
	"testing"

	"github.com/mind-engage/qti-testengine/pkg/pending"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

func TestAddPendingReplacesSameOccurrence(t *testing.T) {
	s := pending.NewStore()
	s.AddPending(pending.Response{ItemRefID: "item1", Occurrence: 0, Responses: map[string]variable.Value{
		"RESPONSE": variable.IdentValue("ChoiceA"),
	}})
	s.AddPending(pending.Response{ItemRefID: "item1", Occurrence: 0, Responses: map[string]variable.Value{
		"RESPONSE": variable.IdentValue("ChoiceB"),
	}})

	pr, ok := s.GetPending("item1", 0)
	if !ok {
		t.Fatal("expected a pending entry for item1.0")
	}
	if pr.Responses["RESPONSE"].Ident() != "ChoiceB" {
		t.Fatalf("expected the later submission to replace the earlier one, got %q", pr.Responses["RESPONSE"].Ident())
	}
	if len(s.All()) != 1 {
		t.Fatalf("expected replacement not to duplicate the entry, got %d entries", len(s.All()))
	}
}

func TestAllPreservesArrivalOrder(t *testing.T) {
	s := pending.NewStore()
	s.AddPending(pending.Response{ItemRefID: "item1", Occurrence: 0})
	s.AddPending(pending.Response{ItemRefID: "item2", Occurrence: 0})
	s.AddPending(pending.Response{ItemRefID: "item1", Occurrence: 1})

	all := s.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	want := []string{"item1", "item2", "item1"}
	for i, w := range want {
		if all[i].ItemRefID != w {
			t.Errorf("entry %d: expected %q, got %q", i, w, all[i].ItemRefID)
		}
	}
}

func TestClearEmptiesStore(t *testing.T) {
	s := pending.NewStore()
	s.AddPending(pending.Response{ItemRefID: "item1", Occurrence: 0})
	s.Clear()
	if len(s.All()) != 0 {
		t.Fatalf("expected empty store after Clear")
	}
	if _, ok := s.GetPending("item1", 0); ok {
		t.Fatalf("expected no pending entry after Clear")
	}
}

func TestGetPendingMissing(t *testing.T) {
	s := pending.NewStore()
	if _, ok := s.GetPending("ghost", 0); ok {
		t.Fatalf("expected GetPending to report false for an unknown key")
	}
}
