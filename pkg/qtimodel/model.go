// Package qtimodel is the minimal read-only AssessmentTest tree the engine
// consumes (core.v1 §6a). XML parsing and full QTI authoring semantics are
// out of scope (§1); this package only carries the shape the engine needs:
// testParts, sections, item references, declarations, and the rules that
// drive navigation (preConditions, branchRules, timeLimits,
// itemSessionControl, testFeedbackRefs).
package qtimodel

import (
	"time"

	"github.com/mind-engage/qti-testengine/pkg/variable"
)

// NavigationMode bit-exact values per §6.
type NavigationMode int

const (
	Linear    NavigationMode = 0
	NonLinear NavigationMode = 1
)

// SubmissionMode bit-exact values per §6.
type SubmissionMode int

const (
	Individual   SubmissionMode = 0
	Simultaneous SubmissionMode = 1
)

func (m SubmissionMode) IsSimultaneous() bool { return m == Simultaneous }
func (m NavigationMode) IsLinear() bool       { return m == Linear }

// TestFeedbackAccess bit-exact values per §6.
type TestFeedbackAccess int

const (
	During TestFeedbackAccess = 0
	AtEnd  TestFeedbackAccess = 1
)

// ShowHide bit-exact values per §6.
type ShowHide int

const (
	Show ShowHide = 0
	Hide ShowHide = 1
)

// TimeLimits models a maxTime/minTime constraint in force at some scope.
// The source material spells the in-force flag inconsistently
// ("maxTimeInforce" vs "maxTimeInForce"); both name the same predicate here
// (§9 design note).
type TimeLimits struct {
	MinTime             *time.Duration
	MaxTime             *time.Duration
	MaxTimeInForce       bool
	AllowLateSubmission bool
}

// ItemSessionControl governs attempt and review policy for an item,
// section, or testPart (the effective value is obtained by walking the
// section chain, innermost wins).
type ItemSessionControl struct {
	MaxAttempts       int // 0 means unlimited
	ShowFeedback      bool
	AllowReview       bool
	AllowComment      bool
	AllowSkipping     bool
	ValidateResponses bool
}

// PreCondition gates whether a RouteItem/testPart is visited at all.
type PreCondition struct {
	Expression any
}

// BranchRule redirects the Route's cursor when Expression evaluates true.
// Target is an identifier, or one of the reserved EXIT_* sentinels.
type BranchRule struct {
	Expression any
	Target     string
}

const (
	ExitTest     = "EXIT_TEST"
	ExitTestPart = "EXIT_TESTPART"
	ExitSection  = "EXIT_SECTION"
)

// TemplateDefault assigns an expression's result to a template variable
// before the candidate's first attempt.
type TemplateDefault struct {
	Identifier string
	Expression any
}

// TestFeedbackRef is a conditional-content reference bound to an outcome's
// value (§4.8.5 feedback gating).
type TestFeedbackRef struct {
	Identifier        string
	OutcomeIdentifier string
	MatchValue        variable.Value
	ShowHide          ShowHide
	Access            TestFeedbackAccess
}

// AssessmentItemRef is a reference within the test to a reusable item.
type AssessmentItemRef struct {
	Identifier            string
	Href                  string
	FixedOccurrenceCount  int // >=1; selection-with-replacement yields multiple occurrences
	ResponseDeclarations  []variable.Declaration
	OutcomeDeclarations   []variable.Declaration
	TemplateDeclarations  []variable.Declaration
	TemplateDefaults      []TemplateDefault
	ItemSessionControl    *ItemSessionControl
	TimeLimits            *TimeLimits
	PreConditions         []PreCondition
	BranchRules           []BranchRule
}

// OccurrenceCount returns how many occurrences this reference yields when
// selection-with-replacement is used (at least 1).
func (r *AssessmentItemRef) OccurrenceCount() int {
	if r.FixedOccurrenceCount < 1 {
		return 1
	}
	return r.FixedOccurrenceCount
}

// AssessmentSection is a nested grouping within a testPart.
type AssessmentSection struct {
	Identifier         string
	Sections           []*AssessmentSection
	ItemRefs           []*AssessmentItemRef
	ItemSessionControl *ItemSessionControl
	TimeLimits         *TimeLimits
	PreConditions      []PreCondition
	BranchRules        []BranchRule
}

// TestPart is a top-level group sharing navigation/submission modes.
type TestPart struct {
	Identifier         string
	NavigationMode     NavigationMode
	SubmissionMode     SubmissionMode
	Sections           []*AssessmentSection
	ItemSessionControl *ItemSessionControl
	TimeLimits         *TimeLimits
	PreConditions      []PreCondition
	BranchRules        []BranchRule
	TestFeedbackRefs   []TestFeedbackRef
}

// OutcomeRule is one setOutcomeValue rule of the test's outcomeProcessing
// (§4.8.5): assign Expression's result to the named global outcome.
type OutcomeRule struct {
	Identifier string
	Expression any
}

// AssessmentTest is the top-level QTI document.
type AssessmentTest struct {
	Identifier            string
	TestParts             []*TestPart
	OutcomeDeclarations   []variable.Declaration
	OutcomeProcessingRules []OutcomeRule
	TimeLimits            *TimeLimits
	TestFeedbackRefs      []TestFeedbackRef
}

// SectionChain is the path of AssessmentSections (outermost first) a
// RouteItem or AssessmentItemRef is nested under within its testPart.
type SectionChain []*AssessmentSection

// Walk calls fn for every testPart/section/itemRef in model order, depth
// first; it is the one traversal every downstream consumer (Route
// construction, the snapshot Seeker) is built from.
func (t *AssessmentTest) Walk(fn func(tp *TestPart, chain SectionChain, ref *AssessmentItemRef)) {
	for _, tp := range t.TestParts {
		walkSections(tp, tp.Sections, nil, fn)
	}
}

func walkSections(tp *TestPart, sections []*AssessmentSection, chain SectionChain, fn func(*TestPart, SectionChain, *AssessmentItemRef)) {
	for _, sec := range sections {
		nextChain := append(append(SectionChain{}, chain...), sec)
		for _, ref := range sec.ItemRefs {
			fn(tp, nextChain, ref)
		}
		walkSections(tp, sec.Sections, nextChain, fn)
	}
}

// EffectiveItemSessionControl resolves itemSessionControl by walking the
// section chain innermost-first, falling back outward to the testPart.
func EffectiveItemSessionControl(tp *TestPart, chain SectionChain, ref *AssessmentItemRef) *ItemSessionControl {
	if ref.ItemSessionControl != nil {
		return ref.ItemSessionControl
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].ItemSessionControl != nil {
			return chain[i].ItemSessionControl
		}
	}
	return tp.ItemSessionControl
}

// EffectiveTimeLimits resolves timeLimits the same way.
func EffectiveTimeLimits(tp *TestPart, chain SectionChain, ref *AssessmentItemRef) *TimeLimits {
	if ref.TimeLimits != nil {
		return ref.TimeLimits
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].TimeLimits != nil {
			return chain[i].TimeLimits
		}
	}
	return tp.TimeLimits
}

// EffectivePreConditions concatenates preConditions along the chain,
// outermost (testPart) first, then sections outer-to-inner, then the item.
func EffectivePreConditions(tp *TestPart, chain SectionChain, ref *AssessmentItemRef) []PreCondition {
	var out []PreCondition
	out = append(out, tp.PreConditions...)
	for _, sec := range chain {
		out = append(out, sec.PreConditions...)
	}
	out = append(out, ref.PreConditions...)
	return out
}

// EffectiveBranchRules concatenates branchRules the same way.
func EffectiveBranchRules(tp *TestPart, chain SectionChain, ref *AssessmentItemRef) []BranchRule {
	var out []BranchRule
	out = append(out, tp.BranchRules...)
	for _, sec := range chain {
		out = append(out, sec.BranchRules...)
	}
	out = append(out, ref.BranchRules...)
	return out
}
