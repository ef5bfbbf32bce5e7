// Package testdriver implements C9, the Test Session Driver: the top-level
// state machine orchestrating C3-C8, enforcing navigation/submission modes,
// time limits, branching, preconditions, outcome processing, and feedback
// gating (core.v1 §4.8).
package testdriver

import (
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/qti-testengine/pkg/duration"
	"github.com/mind-engage/qti-testengine/pkg/expr"
	"github.com/mind-engage/qti-testengine/pkg/pending"
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
	"github.com/mind-engage/qti-testengine/pkg/route"
	"github.com/mind-engage/qti-testengine/pkg/session"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

// State enumerates TestSession lifecycle states, bit-exact per §6.
type State int

const (
	Initial       State = 1
	Interacting   State = 2
	ModalFeedback State = 3
	Suspended     State = 4
	Closed        State = 5
)

// Config is the bitset of behavioral flags named in §6.
type Config uint32

const (
	ForceBranching     Config = 1
	ForcePreconditions Config = 2
	PathTracking       Config = 4
	AlwaysAllowJumps   Config = 8
	InitializeAllItems Config = 16
)

func (c Config) has(flag Config) bool { return c&flag != 0 }

// ResultSink is the external collaborator results are submitted to, named
// in §4.8.5/§6 ("submitTestResults"/item result submission). Grounded on
// the teacher's gradebook.Syncer sync-on-submit pattern; a no-op
// implementation is fine in tests.
type ResultSink interface {
	SubmitItemResult(sessionID string, itemRefID string, occurrence int) error
	SubmitTestResult(sessionID string) error
}

// NoopResultSink discards every submission; the useful default when no
// external gradebook/LRS is wired.
type NoopResultSink struct{}

func (NoopResultSink) SubmitItemResult(string, string, int) error { return nil }
func (NoopResultSink) SubmitTestResult(string) error               { return nil }

// ResultSubmissionPolicy controls when submitTestResults fires (§4.8.5).
type ResultSubmissionPolicy int

const (
	SubmitNever ResultSubmissionPolicy = iota
	SubmitOnOutcomeProcessing
)

// TestSession is the stateful interpreter driving one candidate's session
// from start to end (§3). It exclusively owns its ItemSessionStore,
// DurationStore, PendingResponseStore, Route cursor, and global outcome
// variables; the AssessmentTest tree is shared read-only.
type TestSession struct {
	SessionID string
	State     State

	Test  *qtimodel.AssessmentTest
	Route *route.Route

	Items     *session.Store
	Durations *duration.Store
	Pending   *pending.Store
	Outcomes  *variable.State

	lastOccurrenceUpdate map[string]int  // itemRefID -> last occurrence updated
	visitedTestParts     map[string]bool // testPart identifier -> visited
	path                 []int           // position history, when PathTracking is set
	timeReference        *time.Time
	adaptivity           map[string]bool // testPart identifier -> has preConditions/branchRules

	Config Config

	Engine      expr.Engine
	Results     ResultSink
	ResultsPolicy ResultSubmissionPolicy
}

// New constructs a TestSession in Initial state for the given
// AssessmentTest and pre-materialized Route. engine and results may be nil,
// in which case a BasicEngine and NoopResultSink are used.
func New(test *qtimodel.AssessmentTest, rt *route.Route, engine expr.Engine, results ResultSink, cfg Config) *TestSession {
	if engine == nil {
		engine = expr.NewBasicEngine()
	}
	if results == nil {
		results = NoopResultSink{}
	}
	ts := &TestSession{
		SessionID:            uuid.NewString(),
		State:                Initial,
		Test:                 test,
		Route:                rt,
		Items:                session.NewStore(),
		Durations:            duration.NewStore(),
		Pending:              pending.NewStore(),
		Outcomes:             variable.NewState(),
		lastOccurrenceUpdate: make(map[string]int),
		visitedTestParts:     make(map[string]bool),
		Config:               cfg,
		Engine:               engine,
		Results:              results,
	}
	for _, d := range test.OutcomeDeclarations {
		ts.Outcomes.Declare(d)
	}
	ts.Outcomes.ApplyAllDefaults()
	ts.adaptivity = computeAdaptivity(rt)
	return ts
}

func computeAdaptivity(rt *route.Route) map[string]bool {
	out := make(map[string]bool)
	for _, it := range rt.Items() {
		if it.TestPart == nil {
			continue
		}
		id := it.TestPart.Identifier
		if out[id] {
			continue
		}
		if len(it.PreConditions) > 0 || len(it.BranchRules) > 0 {
			out[id] = true
		}
	}
	return out
}

// isNonAdaptiveTest reports whether no testPart in the route carries
// preConditions/branchRules, the "non-adaptive test" condition of §4.8.2.
func (ts *TestSession) isNonAdaptiveTest() bool {
	for _, adaptive := range ts.adaptivity {
		if adaptive {
			return false
		}
	}
	return true
}

func (ts *TestSession) currentTestPartVisited() bool {
	cur, ok := ts.Route.Current()
	if !ok {
		return false
	}
	return ts.visitedTestParts[cur.TestPart.Identifier]
}

func (ts *TestSession) markTestPartVisited(id string) { ts.visitedTestParts[id] = true }

// firstTestPart returns the identifier of the Route's first testPart.
func (ts *TestSession) firstTestPartID() (string, bool) {
	items := ts.Route.Items()
	if len(items) == 0 {
		return "", false
	}
	return items[0].TestPart.Identifier, true
}
