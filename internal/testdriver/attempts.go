package testdriver

import (
	"github.com/mind-engage/qti-testengine/pkg/pending"
	"github.com/mind-engage/qti-testengine/pkg/qerr"
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
	"github.com/mind-engage/qti-testengine/pkg/session"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

func late(flags []bool) bool { return len(flags) > 0 && flags[0] }

// BeginAttempt starts an attempt on the current item (§4.8). In LINEAR
// navigation it enforces minTime at the test/testPart/section scopes
// unless allowLateSubmission is set; on the item's first attempt it
// applies the item's templateDefaults through the expression engine.
// SIMULTANEOUS submission uses beginCandidateSession, which does not
// enforce the per-item attempt counter.
func (ts *TestSession) BeginAttempt(allowLateSubmission ...bool) error {
	if err := ts.requireInteracting(); err != nil {
		return err
	}
	cur, ok := ts.Route.Current()
	if !ok {
		return qerr.New(qerr.StateViolation, ts.Test.Identifier, "no current route item")
	}
	if !late(allowLateSubmission) {
		if err := ts.checkTimeLimits(true, false); err != nil {
			return err
		}
	}
	sess, ok := ts.currentSession()
	if !ok {
		return qerr.New(qerr.LogicError, qerr.ItemComponent(cur.ItemRef.Identifier, cur.Occurrence), "no item session materialized for current route item")
	}
	if sess.NumAttempts == 0 {
		if err := ts.applyTemplateDefaults(cur.ItemRef, sess); err != nil {
			return err
		}
	}
	if cur.TestPart.SubmissionMode.IsSimultaneous() {
		return sess.BeginCandidateSession()
	}
	return sess.BeginAttempt()
}

func (ts *TestSession) applyTemplateDefaults(ref *qtimodel.AssessmentItemRef, sess *session.Session) error {
	for _, td := range ref.TemplateDefaults {
		v, err := ts.Engine.Evaluate(td.Expression, ts)
		if err != nil {
			return qerr.Wrap(qerr.LogicError, sess.ItemRefID, "templateDefault evaluation failed", err)
		}
		if err := sess.Vars.SetVariable(td.Identifier, v); err != nil {
			return err
		}
	}
	return nil
}

// EndAttempt commits the candidate's responses for the current item
// (§4.8). In INDIVIDUAL mode this runs responseProcessing, submits the
// item result, then runs outcome processing immediately (ordering
// guarantee of §5). In SIMULTANEOUS mode the responses are queued in the
// PendingResponseStore and committed later by deferredResponseSubmission.
func (ts *TestSession) EndAttempt(responses map[string]variable.Value, allowLateSubmission ...bool) error {
	if err := ts.requireInteracting(); err != nil {
		return err
	}
	cur, ok := ts.Route.Current()
	if !ok {
		return qerr.New(qerr.StateViolation, ts.Test.Identifier, "no current route item")
	}
	if !late(allowLateSubmission) {
		if err := ts.checkTimeLimits(false, true); err != nil {
			return err
		}
	}
	sess, ok := ts.currentSession()
	if !ok {
		return qerr.New(qerr.LogicError, qerr.ItemComponent(cur.ItemRef.Identifier, cur.Occurrence), "no item session materialized for current route item")
	}

	if cur.TestPart.SubmissionMode.IsSimultaneous() {
		ts.Pending.AddPending(pending.Response{ItemRefID: cur.ItemRef.Identifier, Occurrence: cur.Occurrence, Responses: responses})
		return sess.EndCandidateSession()
	}

	ref := cur.ItemRef
	rp := func() error { return ts.defaultResponseProcessing(ref, sess) }
	if err := sess.EndAttempt(responses, rp); err != nil {
		return err
	}
	ts.lastOccurrenceUpdate[cur.ItemRef.Identifier] = cur.Occurrence
	if err := ts.Results.SubmitItemResult(ts.SessionID, cur.ItemRef.Identifier, cur.Occurrence); err != nil {
		return qerr.Wrap(qerr.ResultSubmissionError, qerr.ItemComponent(cur.ItemRef.Identifier, cur.Occurrence), "item result submission failed", err)
	}
	return ts.runOutcomeProcessing()
}

// deferredResponseSubmission commits every queued SIMULTANEOUS-mode
// response in arrival order, then runs outcome processing once for the
// whole batch (§4.8.1, §5).
func (ts *TestSession) deferredResponseSubmission() error {
	for _, pr := range ts.Pending.All() {
		sess, ok := ts.Items.GetSession(pr.ItemRefID, pr.Occurrence)
		if !ok {
			continue
		}
		ref, _ := ts.findItemRef(pr.ItemRefID)
		rp := func() error { return ts.defaultResponseProcessing(ref, sess) }
		if err := sess.ApplyDeferredResponses(pr.Responses, rp); err != nil {
			return err
		}
		ts.lastOccurrenceUpdate[pr.ItemRefID] = pr.Occurrence
		if err := ts.Results.SubmitItemResult(ts.SessionID, pr.ItemRefID, pr.Occurrence); err != nil {
			return qerr.Wrap(qerr.ResultSubmissionError, qerr.ItemComponent(pr.ItemRefID, pr.Occurrence), "item result submission failed", err)
		}
	}
	if err := ts.runOutcomeProcessing(); err != nil {
		return err
	}
	ts.Pending.Clear()
	return nil
}

// defaultResponseProcessing is the engine's built-in responseProcessing:
// the first response declaration carrying a correctResponse decides the
// item's SCORE outcome, 1 when the candidate's response matches, else 0;
// later declarations are not consulted. A full
// responseProcessing rule language is out of scope (§1); production
// deployments drive scoring entirely through custom ExpressionEngine rules
// instead.
func (ts *TestSession) defaultResponseProcessing(ref *qtimodel.AssessmentItemRef, sess *session.Session) error {
	if !sess.Vars.Has("SCORE") {
		return nil
	}
	for _, rd := range ref.ResponseDeclarations {
		if rd.CorrectResponse == nil {
			continue
		}
		v, ok := sess.Vars.GetVariable(rd.Identifier)
		if !ok {
			continue
		}
		if v.Value.Equal(*rd.CorrectResponse) {
			return sess.Vars.SetVariable("SCORE", variable.FloatValue(1))
		}
		return sess.Vars.SetVariable("SCORE", variable.FloatValue(0))
	}
	return nil
}
