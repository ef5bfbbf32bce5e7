// Package route implements C5: the ordered, seekable sequence of item
// occurrences a candidate will visit (core.v1 §4.5).
package route

import (
	"github.com/mind-engage/qti-testengine/pkg/qerr"
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
)

// Item is an immutable (itemRef, occurrence, containing testPart,
// containing section chain) triple enriched with effective rules obtained
// by walking the section chain at construction time (§3). Occurrences
// within one itemRef are dense integers starting at 0.
type Item struct {
	ItemRef    *qtimodel.AssessmentItemRef
	Occurrence int
	TestPart   *qtimodel.TestPart
	Sections   qtimodel.SectionChain

	ItemSessionControl *qtimodel.ItemSessionControl
	TimeLimits         *qtimodel.TimeLimits
	PreConditions      []qtimodel.PreCondition
	BranchRules        []qtimodel.BranchRule
}

// NewItem constructs a RouteItem, resolving effective rules by walking the
// section chain (innermost wins for control/timeLimits; preConditions and
// branchRules concatenate outer to inner).
func NewItem(tp *qtimodel.TestPart, chain qtimodel.SectionChain, ref *qtimodel.AssessmentItemRef, occurrence int) Item {
	return Item{
		ItemRef:            ref,
		Occurrence:         occurrence,
		TestPart:           tp,
		Sections:           chain,
		ItemSessionControl: qtimodel.EffectiveItemSessionControl(tp, chain, ref),
		TimeLimits:         qtimodel.EffectiveTimeLimits(tp, chain, ref),
		PreConditions:      qtimodel.EffectivePreConditions(tp, chain, ref),
		BranchRules:        qtimodel.EffectiveBranchRules(tp, chain, ref),
	}
}

func (it Item) matchesIdentifier(target string) bool {
	if it.ItemRef != nil && it.ItemRef.Identifier == target {
		return true
	}
	if it.TestPart != nil && it.TestPart.Identifier == target {
		return true
	}
	for _, sec := range it.Sections {
		if sec.Identifier == target {
			return true
		}
	}
	return false
}

// InnermostSection returns the identifier of the deepest section this item
// is nested under, if any.
func (it Item) InnermostSection() (string, bool) {
	if len(it.Sections) == 0 {
		return "", false
	}
	return it.Sections[len(it.Sections)-1].Identifier, true
}

// Route is the finite ordered sequence of RouteItems with a cursor
// (0 <= position <= len). The sequence itself is never mutated during a
// session; only the cursor moves (§3 invariant).
type Route struct {
	items    []Item
	position int
}

// New constructs a Route from an already-materialized RouteItem sequence
// (Route construction proper — selection/ordering expansion — is an
// external collaborator per §1).
func New(items []Item) *Route {
	cp := make([]Item, len(items))
	copy(cp, items)
	return &Route{items: cp, position: 0}
}

// Build materializes a Route in model order from an AssessmentTest, one Item
// per (itemRef, occurrence) pair, using AssessmentTest.Walk. Selection and
// ordering (shuffling, selection-with-replacement beyond a fixed occurrence
// count) are external collaborators per §1; Build only expands the fixed
// occurrence count every AssessmentItemRef already carries.
func Build(test *qtimodel.AssessmentTest) *Route {
	var items []Item
	test.Walk(func(tp *qtimodel.TestPart, chain qtimodel.SectionChain, ref *qtimodel.AssessmentItemRef) {
		for occ := 0; occ < ref.OccurrenceCount(); occ++ {
			items = append(items, NewItem(tp, chain, ref, occ))
		}
	})
	return New(items)
}

func (r *Route) Count() int { return len(r.items) }

func (r *Route) Position() int { return r.position }

// SetPosition seeks the cursor directly; it is the primitive jumpTo relies
// on, bounds-checked to [0, len].
func (r *Route) SetPosition(i int) error {
	if i < 0 || i > len(r.items) {
		return qerr.New(qerr.RouteOutOfBounds, "", "position out of bounds")
	}
	r.position = i
	return nil
}

// Current returns the RouteItem at the cursor, or false if the cursor is at
// the end (Route exhausted).
func (r *Route) Current() (Item, bool) {
	if r.position < 0 || r.position >= len(r.items) {
		return Item{}, false
	}
	return r.items[r.position], true
}

// Next advances the cursor by one; returns false (without error) once the
// Route is exhausted, so callers can detect end-of-route without a sentinel
// error on the common path.
func (r *Route) Next() bool {
	if r.position >= len(r.items) {
		return false
	}
	r.position++
	return r.position < len(r.items)
}

// Previous moves the cursor back by one. Fails with RouteOutOfBounds at
// position 0.
func (r *Route) Previous() error {
	if r.position <= 0 {
		return qerr.New(qerr.RouteOutOfBounds, "", "already at first route item")
	}
	r.position--
	return nil
}

func (r *Route) IsFirst() bool { return r.position == 0 }
func (r *Route) IsLast() bool  { return r.position == len(r.items)-1 }

func (r *Route) IsFirstOfTestPart() bool {
	cur, ok := r.Current()
	if !ok {
		return false
	}
	if r.position == 0 {
		return true
	}
	return r.items[r.position-1].TestPart != cur.TestPart
}

func (r *Route) IsLastOfTestPart() bool {
	cur, ok := r.Current()
	if !ok {
		return false
	}
	if r.position == len(r.items)-1 {
		return true
	}
	return r.items[r.position+1].TestPart != cur.TestPart
}

func (r *Route) IsLastOfAssessmentSection() bool {
	cur, ok := r.Current()
	if !ok {
		return false
	}
	curSec, hasCur := cur.InnermostSection()
	if r.position == len(r.items)-1 {
		return hasCur
	}
	nextSec, hasNext := r.items[r.position+1].InnermostSection()
	if !hasCur {
		return false
	}
	return !hasNext || nextSec != curSec
}

// GetRouteItemsByTestPart returns every RouteItem sharing the given
// testPart identifier, in Route order.
func (r *Route) GetRouteItemsByTestPart(id string) []Item {
	var out []Item
	for _, it := range r.items {
		if it.TestPart != nil && it.TestPart.Identifier == id {
			out = append(out, it)
		}
	}
	return out
}

// GetRouteItemsByAssessmentSection returns every RouteItem whose section
// chain contains the given section identifier, in Route order.
func (r *Route) GetRouteItemsByAssessmentSection(id string) []Item {
	var out []Item
	for _, it := range r.items {
		for _, sec := range it.Sections {
			if sec.Identifier == id {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// GetRouteItemsByAssessmentItemRef returns every occurrence of the given
// itemRef identifier, in occurrence order.
func (r *Route) GetRouteItemsByAssessmentItemRef(id string) []Item {
	var out []Item
	for _, it := range r.items {
		if it.ItemRef != nil && it.ItemRef.Identifier == id {
			out = append(out, it)
		}
	}
	return out
}

// Branch moves the cursor to the earliest RouteItem whose itemRef, section,
// or testPart identifier equals target; ties broken by RouteItem order.
// EXIT_TEST / EXIT_TESTPART / EXIT_SECTION are not handled here — the
// driver's special handlers fire for those instead (§4.5).
func (r *Route) Branch(target string) error {
	for i, it := range r.items {
		if it.matchesIdentifier(target) {
			r.position = i
			return nil
		}
	}
	return qerr.New(qerr.RouteOutOfBounds, target, "branch target not found in route")
}

// Items returns the full, never-mutated underlying sequence. Callers must
// not mutate the returned slice; Route.Branch guarantees it never clones,
// so branch+previous never revisits branched-over items unless explicitly
// jumped back (§9 design note).
func (r *Route) Items() []Item { return r.items }
