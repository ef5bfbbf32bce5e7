package testdriver

import "github.com/mind-engage/qti-testengine/pkg/qerr"

// BeginTestSession transitions Initial -> Interacting: zero-initializes
// test/testPart/section duration entries, selects the first batch of
// eligible items, and marks the first testPart visited (§4.8).
func (ts *TestSession) BeginTestSession() error {
	if ts.State != Initial {
		return qerr.New(qerr.StateViolation, ts.Test.Identifier, "beginTestSession requires Initial state")
	}
	ts.initializeTestDurations()
	ts.State = Interacting
	if err := ts.selectEligibleItems(); err != nil {
		return err
	}
	if cur, ok := ts.Route.Current(); ok {
		ts.markTestPartVisited(cur.TestPart.Identifier)
	}
	return nil
}

func (ts *TestSession) initializeTestDurations() {
	ts.Durations.Get(ts.Test.Identifier)
	for _, it := range ts.Route.Items() {
		if it.TestPart != nil {
			ts.Durations.Get(it.TestPart.Identifier)
		}
		for _, sec := range it.Sections {
			ts.Durations.Get(sec.Identifier)
		}
	}
}

// EndTestSession flushes any pending responses, optionally submits test
// results, closes every still-open ItemSession, and transitions to Closed.
// A second call raises StateViolation (§5, §8).
func (ts *TestSession) EndTestSession() error {
	if ts.State == Closed {
		return qerr.New(qerr.StateViolation, ts.Test.Identifier, "test session already closed")
	}
	if cur, ok := ts.Route.Current(); ok && cur.TestPart != nil && cur.TestPart.SubmissionMode.IsSimultaneous() {
		if err := ts.deferredResponseSubmission(); err != nil {
			return err
		}
	}
	if ts.ResultsPolicy == SubmitOnOutcomeProcessing {
		if err := ts.Results.SubmitTestResult(ts.SessionID); err != nil {
			return qerr.Wrap(qerr.ResultSubmissionError, ts.Test.Identifier, "test result submission failed", err)
		}
	}
	for _, sess := range ts.Items.All() {
		_ = sess.EndItemSession()
	}
	ts.State = Closed
	return nil
}
