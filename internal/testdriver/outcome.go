package testdriver

import (
	"github.com/mind-engage/qti-testengine/pkg/qerr"
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
)

// runOutcomeProcessing resets every global outcome to its declared
// default, then runs the test's outcomeProcessing rules through the
// expression engine (§4.8.5). Fired once after an INDIVIDUAL endAttempt
// and once per deferredResponseSubmission batch — never per pending entry.
func (ts *TestSession) runOutcomeProcessing() error {
	ts.Outcomes.ResetOutcomeVariables()
	for _, rule := range ts.Test.OutcomeProcessingRules {
		v, err := ts.Engine.Evaluate(rule.Expression, ts)
		if err != nil {
			return qerr.Wrap(qerr.OutcomeProcessingError, ts.Test.Identifier, "outcomeProcessing rule evaluation failed", err)
		}
		if err := ts.Outcomes.SetVariable(rule.Identifier, v); err != nil {
			return qerr.Wrap(qerr.OutcomeProcessingError, ts.Test.Identifier, "outcomeProcessing rule targets an undeclared outcome", err)
		}
	}
	if ts.ResultsPolicy == SubmitOnOutcomeProcessing {
		if err := ts.Results.SubmitTestResult(ts.SessionID); err != nil {
			return qerr.Wrap(qerr.ResultSubmissionError, ts.Test.Identifier, "test result submission failed", err)
		}
	}
	return nil
}

// pendingFeedbackFires evaluates every testFeedbackRef in scope of the
// current (not-yet-advanced) route item: the assessmentTest's own refs,
// and the current testPart's refs. An "atEnd" ref is dropped unless the
// current item is the last of its respective scope. A ref fires when its
// bound outcome matching/containing MatchValue is XORed true against its
// showHide mode (§4.8.5). moveNext transitions to ModalFeedback without
// advancing when any ref fires.
func (ts *TestSession) pendingFeedbackFires() (bool, error) {
	cur, ok := ts.Route.Current()
	if !ok {
		return false, nil
	}

	var refs []qtimodel.TestFeedbackRef
	atTestEnd := ts.Route.IsLast()
	atTestPartEnd := ts.Route.IsLastOfTestPart()
	for _, r := range ts.Test.TestFeedbackRefs {
		if r.Access == qtimodel.AtEnd && !atTestEnd {
			continue
		}
		refs = append(refs, r)
	}
	for _, r := range cur.TestPart.TestFeedbackRefs {
		if r.Access == qtimodel.AtEnd && !atTestPartEnd {
			continue
		}
		refs = append(refs, r)
	}

	for _, r := range refs {
		v, err := ts.Get(r.OutcomeIdentifier)
		if err != nil {
			return false, err
		}
		match := v.Contains(r.MatchValue)
		fires := match
		if r.ShowHide == qtimodel.Hide {
			fires = !match
		}
		if fires {
			return true, nil
		}
	}
	return false, nil
}
