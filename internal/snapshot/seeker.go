// Package snapshot implements C10, the Binary Snapshot Codec: a versioned,
// deterministic encoding of a TestSession to and from an octet stream
// (core.v1 §4.9).
package snapshot

import (
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

// ClassName names one of the Seeker's seven component classes (§4.9).
type ClassName string

const (
	ClassAssessmentItemRef   ClassName = "assessmentItemRef"
	ClassAssessmentSection   ClassName = "assessmentSection"
	ClassTestPart            ClassName = "testPart"
	ClassOutcomeDeclaration  ClassName = "outcomeDeclaration"
	ClassResponseDeclaration ClassName = "responseDeclaration"
	ClassBranchRule          ClassName = "branchRule"
	ClassPreCondition        ClassName = "preCondition"
)

// Seeker indexes an AssessmentTest's components by class so the codec can
// refer to model elements by (className, integer index) instead of by
// name, keeping the encoding compact and order-stable (§4.9). It is
// derived once from a read-only AssessmentTest tree and is itself
// read-only and safe to share across sessions (§5).
//
// Component identity for the pointer-shaped classes (assessmentItemRef,
// assessmentSection, testPart) is plain Go pointer identity. For the
// value-shaped classes (outcomeDeclaration, responseDeclaration,
// branchRule, preCondition) — which the model stores as plain slice
// elements — identity is the address of that slice element, valid for as
// long as the AssessmentTest tree itself is not mutated (§5: the tree is
// read-only for the life of every session built over it).
type Seeker struct {
	itemRefs  []*qtimodel.AssessmentItemRef
	sections  []*qtimodel.AssessmentSection
	testParts []*qtimodel.TestPart
	outcomes  []*variable.Declaration
	responses []*variable.Declaration
	branches  []*qtimodel.BranchRule
	preconds  []*qtimodel.PreCondition

	itemRefIndex  map[*qtimodel.AssessmentItemRef]int
	sectionIndex  map[*qtimodel.AssessmentSection]int
	testPartIndex map[*qtimodel.TestPart]int
	outcomeIndex  map[*variable.Declaration]int
	responseIndex map[*variable.Declaration]int
	branchIndex   map[*qtimodel.BranchRule]int
	precondIndex  map[*qtimodel.PreCondition]int
}

// NewSeeker walks test once (the same depth-first order every other
// consumer — Route construction, this codec — is built from) and records
// every component's identity and position per class.
func NewSeeker(test *qtimodel.AssessmentTest) *Seeker {
	s := &Seeker{
		itemRefIndex:  make(map[*qtimodel.AssessmentItemRef]int),
		sectionIndex:  make(map[*qtimodel.AssessmentSection]int),
		testPartIndex: make(map[*qtimodel.TestPart]int),
		outcomeIndex:  make(map[*variable.Declaration]int),
		responseIndex: make(map[*variable.Declaration]int),
		branchIndex:   make(map[*qtimodel.BranchRule]int),
		precondIndex:  make(map[*qtimodel.PreCondition]int),
	}

	for i := range test.OutcomeDeclarations {
		ref := &test.OutcomeDeclarations[i]
		s.outcomeIndex[ref] = len(s.outcomes)
		s.outcomes = append(s.outcomes, ref)
	}

	seenTestParts := make(map[*qtimodel.TestPart]bool)
	seenSections := make(map[*qtimodel.AssessmentSection]bool)

	test.Walk(func(tp *qtimodel.TestPart, chain qtimodel.SectionChain, ref *qtimodel.AssessmentItemRef) {
		if !seenTestParts[tp] {
			seenTestParts[tp] = true
			s.testPartIndex[tp] = len(s.testParts)
			s.testParts = append(s.testParts, tp)
			s.indexBranchesAndPreconds(tp.BranchRules, tp.PreConditions)
		}
		for _, sec := range chain {
			if !seenSections[sec] {
				seenSections[sec] = true
				s.sectionIndex[sec] = len(s.sections)
				s.sections = append(s.sections, sec)
				s.indexBranchesAndPreconds(sec.BranchRules, sec.PreConditions)
			}
		}
		if _, ok := s.itemRefIndex[ref]; !ok {
			s.itemRefIndex[ref] = len(s.itemRefs)
			s.itemRefs = append(s.itemRefs, ref)
			s.indexBranchesAndPreconds(ref.BranchRules, ref.PreConditions)
			for i := range ref.ResponseDeclarations {
				rref := &ref.ResponseDeclarations[i]
				s.responseIndex[rref] = len(s.responses)
				s.responses = append(s.responses, rref)
			}
		}
	})
	return s
}

func (s *Seeker) indexBranchesAndPreconds(branches []qtimodel.BranchRule, preconds []qtimodel.PreCondition) {
	for i := range branches {
		b := &branches[i]
		if _, ok := s.branchIndex[b]; !ok {
			s.branchIndex[b] = len(s.branches)
			s.branches = append(s.branches, b)
		}
	}
	for i := range preconds {
		p := &preconds[i]
		if _, ok := s.precondIndex[p]; !ok {
			s.precondIndex[p] = len(s.preconds)
			s.preconds = append(s.preconds, p)
		}
	}
}

// GetComponentByIndex returns the i'th component of the given class, or
// false if className is unknown or i is out of range.
func (s *Seeker) GetComponentByIndex(className ClassName, i int) (any, bool) {
	switch className {
	case ClassAssessmentItemRef:
		return indexed(s.itemRefs, i)
	case ClassAssessmentSection:
		return indexed(s.sections, i)
	case ClassTestPart:
		return indexed(s.testParts, i)
	case ClassOutcomeDeclaration:
		return indexed(s.outcomes, i)
	case ClassResponseDeclaration:
		return indexed(s.responses, i)
	case ClassBranchRule:
		return indexed(s.branches, i)
	case ClassPreCondition:
		return indexed(s.preconds, i)
	}
	return nil, false
}

func indexed[T any](xs []T, i int) (any, bool) {
	if i < 0 || i >= len(xs) {
		return nil, false
	}
	return xs[i], true
}

// GetIndexOfComponent returns component's index within its class, or false
// if component is not one of the recognized pointer shapes, or is not part
// of this Seeker's tree. *variable.Declaration is checked against both the
// outcomeDeclaration and responseDeclaration classes since the two share a
// Go type; callers that already know which class applies should prefer
// IndexOfResponseDecl/IndexOfOutcomeDecl.
func (s *Seeker) GetIndexOfComponent(component any) (int, bool) {
	switch c := component.(type) {
	case *qtimodel.AssessmentItemRef:
		i, ok := s.itemRefIndex[c]
		return i, ok
	case *qtimodel.AssessmentSection:
		i, ok := s.sectionIndex[c]
		return i, ok
	case *qtimodel.TestPart:
		i, ok := s.testPartIndex[c]
		return i, ok
	case *qtimodel.BranchRule:
		i, ok := s.branchIndex[c]
		return i, ok
	case *qtimodel.PreCondition:
		i, ok := s.precondIndex[c]
		return i, ok
	case *variable.Declaration:
		if i, ok := s.responseIndex[c]; ok {
			return i, true
		}
		i, ok := s.outcomeIndex[c]
		return i, ok
	}
	return 0, false
}

// Typed conveniences over GetComponentByIndex/GetIndexOfComponent for the
// codec's own internal use.

func (s *Seeker) ItemRefByIndex(i int) (*qtimodel.AssessmentItemRef, bool) {
	v, ok := indexed(s.itemRefs, i)
	if !ok {
		return nil, false
	}
	return v.(*qtimodel.AssessmentItemRef), true
}

func (s *Seeker) SectionByIndex(i int) (*qtimodel.AssessmentSection, bool) {
	v, ok := indexed(s.sections, i)
	if !ok {
		return nil, false
	}
	return v.(*qtimodel.AssessmentSection), true
}

func (s *Seeker) TestPartByIndex(i int) (*qtimodel.TestPart, bool) {
	v, ok := indexed(s.testParts, i)
	if !ok {
		return nil, false
	}
	return v.(*qtimodel.TestPart), true
}

func (s *Seeker) IndexOfTestPart(tp *qtimodel.TestPart) (int, bool) {
	i, ok := s.testPartIndex[tp]
	return i, ok
}

func (s *Seeker) IndexOfSection(sec *qtimodel.AssessmentSection) (int, bool) {
	i, ok := s.sectionIndex[sec]
	return i, ok
}

func (s *Seeker) IndexOfItemRef(ref *qtimodel.AssessmentItemRef) (int, bool) {
	i, ok := s.itemRefIndex[ref]
	return i, ok
}

func (s *Seeker) IndexOfResponseDecl(d *variable.Declaration) (int, bool) {
	i, ok := s.responseIndex[d]
	return i, ok
}

func (s *Seeker) ResponseDeclByIndex(i int) (*variable.Declaration, bool) {
	v, ok := indexed(s.responses, i)
	if !ok {
		return nil, false
	}
	return v.(*variable.Declaration), true
}

func (s *Seeker) IndexOfBranchRule(b *qtimodel.BranchRule) (int, bool) {
	i, ok := s.branchIndex[b]
	return i, ok
}

func (s *Seeker) BranchRuleByIndex(i int) (*qtimodel.BranchRule, bool) {
	v, ok := indexed(s.branches, i)
	if !ok {
		return nil, false
	}
	return v.(*qtimodel.BranchRule), true
}

func (s *Seeker) IndexOfPreCondition(p *qtimodel.PreCondition) (int, bool) {
	i, ok := s.precondIndex[p]
	return i, ok
}

func (s *Seeker) PreConditionByIndex(i int) (*qtimodel.PreCondition, bool) {
	v, ok := indexed(s.preconds, i)
	if !ok {
		return nil, false
	}
	return v.(*qtimodel.PreCondition), true
}
