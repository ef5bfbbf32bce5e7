package route_test

import (
	"testing"

	"github.com/mind-engage/qti-testengine/pkg/qerr"
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
	"github.com/mind-engage/qti-testengine/pkg/route"
)

func buildThreeItemTest() *qtimodel.AssessmentTest {
	item1 := &qtimodel.AssessmentItemRef{Identifier: "item1", FixedOccurrenceCount: 1}
	item2 := &qtimodel.AssessmentItemRef{Identifier: "item2", FixedOccurrenceCount: 2}
	item3 := &qtimodel.AssessmentItemRef{Identifier: "item3", FixedOccurrenceCount: 1}

	sectionA := &qtimodel.AssessmentSection{Identifier: "sectionA", ItemRefs: []*qtimodel.AssessmentItemRef{item1, item2}}
	sectionB := &qtimodel.AssessmentSection{Identifier: "sectionB", ItemRefs: []*qtimodel.AssessmentItemRef{item3}}
	part := &qtimodel.TestPart{
		Identifier: "part1", NavigationMode: qtimodel.Linear, SubmissionMode: qtimodel.Individual,
		Sections: []*qtimodel.AssessmentSection{sectionA, sectionB},
	}
	return &qtimodel.AssessmentTest{Identifier: "test1", TestParts: []*qtimodel.TestPart{part}}
}

func TestBuildExpandsOccurrencesInModelOrder(t *testing.T) {
	rt := route.Build(buildThreeItemTest())
	if rt.Count() != 4 {
		t.Fatalf("expected 4 route items (1+2+1 occurrences), got %d", rt.Count())
	}
	items := rt.Items()
	wantIDs := []string{"item1", "item2", "item2", "item3"}
	wantOcc := []int{0, 0, 1, 0}
	for i := range wantIDs {
		if items[i].ItemRef.Identifier != wantIDs[i] || items[i].Occurrence != wantOcc[i] {
			t.Errorf("position %d: expected (%s,%d), got (%s,%d)", i, wantIDs[i], wantOcc[i], items[i].ItemRef.Identifier, items[i].Occurrence)
		}
	}
}

func TestNextPreviousCursor(t *testing.T) {
	rt := route.Build(buildThreeItemTest())
	if !rt.IsFirst() {
		t.Fatal("expected position 0 to be first")
	}
	if err := rt.Previous(); err == nil {
		t.Fatal("expected RouteOutOfBounds moving back from position 0")
	} else if code, _ := qerr.CodeOf(err); code != qerr.RouteOutOfBounds {
		t.Fatalf("expected RouteOutOfBounds, got %v", err)
	}

	for i := 0; i < rt.Count()-1; i++ {
		if !rt.Next() {
			t.Fatalf("unexpected exhaustion advancing to position %d", i+1)
		}
	}
	if !rt.IsLast() {
		t.Fatalf("expected the cursor to land on the last item, position=%d", rt.Position())
	}
	if cur, ok := rt.Current(); !ok || cur.ItemRef.Identifier != "item3" {
		t.Fatalf("expected item3 at the end, got %v (ok=%v)", cur, ok)
	}
}

func TestSetPositionBounds(t *testing.T) {
	rt := route.Build(buildThreeItemTest())
	if err := rt.SetPosition(4); err != nil {
		t.Fatalf("expected position == len to be valid (exhausted sentinel), got %v", err)
	}
	if _, ok := rt.Current(); ok {
		t.Fatal("expected Current to report false once exhausted")
	}
	if err := rt.SetPosition(-1); err == nil {
		t.Fatal("expected an error for a negative position")
	}
	if err := rt.SetPosition(5); err == nil {
		t.Fatal("expected an error for a position past the end")
	}
}

func TestIsFirstOfTestPartAndSection(t *testing.T) {
	rt := route.Build(buildThreeItemTest())
	if !rt.IsFirstOfTestPart() {
		t.Fatal("expected position 0 to be first of its testPart")
	}
	rt.Next() // item2 occurrence 0, still sectionA
	if rt.IsFirstOfTestPart() {
		t.Fatal("did not expect item2 occurrence 0 to be first of testPart")
	}
	if rt.IsLastOfAssessmentSection() {
		t.Fatal("did not expect item2 occurrence 0 to be last of sectionA (item2 occurrence 1 follows)")
	}
	rt.Next() // item2 occurrence 1, last of sectionA
	if !rt.IsLastOfAssessmentSection() {
		t.Fatal("expected item2 occurrence 1 to be last of sectionA")
	}
	rt.Next() // item3, sectionB
	if !rt.IsLastOfTestPart() {
		t.Fatal("expected item3 to be last of the only testPart")
	}
}

func TestBranchFindsEarliestMatch(t *testing.T) {
	rt := route.Build(buildThreeItemTest())
	if err := rt.Branch("item2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cur, _ := rt.Current()
	if cur.ItemRef.Identifier != "item2" || cur.Occurrence != 0 {
		t.Fatalf("expected the earliest item2 occurrence, got %v occurrence %d", cur.ItemRef.Identifier, cur.Occurrence)
	}
}

func TestBranchUnknownTarget(t *testing.T) {
	rt := route.Build(buildThreeItemTest())
	if err := rt.Branch("ghost"); err == nil {
		t.Fatal("expected an error for an unknown branch target")
	} else if code, _ := qerr.CodeOf(err); code != qerr.RouteOutOfBounds {
		t.Fatalf("expected RouteOutOfBounds, got %v", err)
	}
}

func TestGetRouteItemsByScope(t *testing.T) {
	rt := route.Build(buildThreeItemTest())
	if got := rt.GetRouteItemsByTestPart("part1"); len(got) != 4 {
		t.Fatalf("expected all 4 items in part1, got %d", len(got))
	}
	if got := rt.GetRouteItemsByAssessmentSection("sectionA"); len(got) != 3 {
		t.Fatalf("expected 3 items in sectionA, got %d", len(got))
	}
	if got := rt.GetRouteItemsByAssessmentItemRef("item2"); len(got) != 2 {
		t.Fatalf("expected 2 occurrences of item2, got %d", len(got))
	}
}
