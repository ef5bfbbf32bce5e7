package testdriver

import (
	"time"

	"github.com/mind-engage/qti-testengine/pkg/duration"
	"github.com/mind-engage/qti-testengine/pkg/expr"
	"github.com/mind-engage/qti-testengine/pkg/pending"
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
	"github.com/mind-engage/qti-testengine/pkg/route"
	"github.com/mind-engage/qti-testengine/pkg/session"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

// RestoreState is every field internal/snapshot needs to reconstruct a
// TestSession from a decoded stream. It is the codec's one point of
// contact with TestSession's otherwise-private bookkeeping.
type RestoreState struct {
	SessionID            string
	State                State
	Items                *session.Store
	Durations            *duration.Store
	Pending              *pending.Store
	Outcomes             *variable.State
	LastOccurrenceUpdate map[string]int
	VisitedTestParts     map[string]bool
	Path                 []int
	TimeReference        *time.Time
}

// Restore reconstructs a TestSession from decoded state plus a freshly
// rebuilt Route, used by internal/snapshot's Decode. It bypasses New's
// fresh-session initialization (SessionID generation, default outcomes)
// entirely, since every field here was itself produced by a prior
// encode of a live session (§4.9 round-trip requirement).
func Restore(test *qtimodel.AssessmentTest, rt *route.Route, rs RestoreState, cfg Config, engine expr.Engine, results ResultSink, resultsPolicy ResultSubmissionPolicy) *TestSession {
	if engine == nil {
		engine = expr.NewBasicEngine()
	}
	if results == nil {
		results = NoopResultSink{}
	}
	ts := &TestSession{
		SessionID:            rs.SessionID,
		State:                rs.State,
		Test:                 test,
		Route:                rt,
		Items:                rs.Items,
		Durations:            rs.Durations,
		Pending:              rs.Pending,
		Outcomes:             rs.Outcomes,
		lastOccurrenceUpdate: rs.LastOccurrenceUpdate,
		visitedTestParts:     rs.VisitedTestParts,
		path:                 rs.Path,
		timeReference:        rs.TimeReference,
		Config:               cfg,
		Engine:               engine,
		Results:              results,
		ResultsPolicy:        resultsPolicy,
	}
	ts.adaptivity = computeAdaptivity(rt)
	return ts
}

// Snapshot returns the bookkeeping internal/snapshot needs to encode this
// TestSession (the mirror of RestoreState/Restore).
func (ts *TestSession) Snapshot() RestoreState {
	return RestoreState{
		SessionID:            ts.SessionID,
		State:                ts.State,
		Items:                ts.Items,
		Durations:            ts.Durations,
		Pending:              ts.Pending,
		Outcomes:             ts.Outcomes,
		LastOccurrenceUpdate: ts.lastOccurrenceUpdate,
		VisitedTestParts:     ts.visitedTestParts,
		Path:                 ts.path,
		TimeReference:        ts.timeReference,
	}
}
