package testdriver

import (
	"github.com/mind-engage/qti-testengine/pkg/expr"
	"github.com/mind-engage/qti-testengine/pkg/qerr"
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
	"github.com/mind-engage/qti-testengine/pkg/route"
	"github.com/mind-engage/qti-testengine/pkg/session"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

// selectEligibleItems lazily materializes ItemSessions per §4.8.2.
func (ts *TestSession) selectEligibleItems() error {
	if ts.Config.has(InitializeAllItems) {
		return ts.initItems(ts.Route.Items())
	}
	firstID, hasFirst := ts.firstTestPartID()
	if hasFirst && ts.isNonAdaptiveTest() && !ts.visitedTestParts[firstID] {
		return ts.initItems(ts.Route.Items())
	}
	cur, ok := ts.Route.Current()
	if !ok {
		return nil
	}
	if ts.adaptivity[cur.TestPart.Identifier] {
		return ts.initItem(cur)
	}
	if !ts.visitedTestParts[cur.TestPart.Identifier] {
		return ts.initItems(ts.Route.GetRouteItemsByTestPart(cur.TestPart.Identifier))
	}
	return nil
}

func (ts *TestSession) initItems(items []route.Item) error {
	for _, it := range items {
		if err := ts.initItem(it); err != nil {
			return err
		}
	}
	return nil
}

// initItem creates and begins the ItemSession for it if one is not already
// registered: inherits navigation/submission mode, applies the route
// item's effective itemSessionControl/timeLimits, propagates timeReference,
// and calls beginItemSession (§4.8.2).
func (ts *TestSession) initItem(it route.Item) error {
	if ts.Items.HasSession(it.ItemRef.Identifier, it.Occurrence) {
		return nil
	}

	sess := session.New(
		it.ItemRef.Identifier,
		it.Occurrence,
		allDeclarations(it.ItemRef),
		it.ItemSessionControl,
		it.TimeLimits,
		it.TestPart.NavigationMode,
		it.TestPart.SubmissionMode,
	)
	if err := sess.BeginItemSession(); err != nil {
		return err
	}
	if ts.timeReference != nil {
		sess.SetTime(*ts.timeReference)
	}
	ts.Items.AddSession(it.ItemRef.Identifier, it.Occurrence, sess)
	return nil
}

func allDeclarations(ref *qtimodel.AssessmentItemRef) []variable.Declaration {
	var out []variable.Declaration
	out = append(out, ref.ResponseDeclarations...)
	out = append(out, ref.OutcomeDeclarations...)
	out = append(out, ref.TemplateDeclarations...)
	return out
}

// MoveNext advances the cursor: suspends the current item, clears a pending
// ModalFeedback gate, and otherwise runs nextRouteItem followed by
// interacting with the new current item (§4.8).
func (ts *TestSession) MoveNext() error {
	if ts.State != ModalFeedback {
		if err := ts.requireInteracting(); err != nil {
			return err
		}
	}
	ts.suspendCurrent()

	if ts.State == ModalFeedback {
		ts.State = Interacting
		return nil
	}
	if fires, err := ts.pendingFeedbackFires(); err != nil {
		return err
	} else if fires {
		ts.State = ModalFeedback
		return nil
	}

	if ts.Config.has(PathTracking) {
		ts.path = append(ts.path, ts.Route.Position())
	}
	if err := ts.nextRouteItem(false, false); err != nil {
		return err
	}
	if ts.State == Interacting {
		return ts.interactWithItemSession()
	}
	return nil
}

// MoveBack moves the cursor back: suspends the current item, then either
// pops path history or calls Route.Previous, then interacts with the new
// current item. Fails with StateViolation at position 0 with no path
// history (§9 design note).
func (ts *TestSession) MoveBack() error {
	if err := ts.requireInteracting(); err != nil {
		return err
	}
	ts.suspendCurrent()

	if ts.Config.has(PathTracking) && len(ts.path) > 0 {
		target := ts.path[len(ts.path)-1]
		ts.path = ts.path[:len(ts.path)-1]
		if err := ts.Route.SetPosition(target); err != nil {
			return err
		}
	} else if ts.Route.Position() == 0 {
		return qerr.New(qerr.StateViolation, ts.Test.Identifier, "cannot move back from the first route item")
	} else {
		if err := ts.Route.Previous(); err != nil {
			return qerr.Wrap(qerr.StateViolation, ts.Test.Identifier, "cannot move back", err)
		}
	}
	return ts.interactAndMarkVisited()
}

// JumpTo seeks the cursor directly. Allowed only in NONLINEAR navigation or
// when AlwaysAllowJumps is set (§4.8, §8 invariant).
func (ts *TestSession) JumpTo(position int) error {
	if err := ts.requireInteracting(); err != nil {
		return err
	}
	cur, ok := ts.Route.Current()
	if ok && cur.TestPart.NavigationMode.IsLinear() && !ts.Config.has(AlwaysAllowJumps) {
		if position != ts.Route.Position() {
			return qerr.New(qerr.NavigationModeViolation, ts.Test.Identifier, "jumps are forbidden in linear navigation")
		}
	}

	prevPosition := ts.Route.Position()
	ts.suspendCurrent()

	if err := ts.Route.SetPosition(position); err != nil {
		_ = ts.Route.SetPosition(prevPosition)
		return qerr.Wrap(qerr.ForbiddenJump, ts.Test.Identifier, "jump target out of range", err)
	}

	if ts.Config.has(PathTracking) {
		if idx := indexOf(ts.path, position); idx >= 0 {
			ts.path = ts.path[:idx]
		} else {
			ts.path = append(ts.path, prevPosition)
		}
	}

	if err := ts.interactAndMarkVisited(); err != nil {
		_ = ts.Route.SetPosition(prevPosition)
		_ = ts.interactAndMarkVisited()
		return err
	}
	return nil
}

func indexOf(xs []int, v int) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return -1
}

func (ts *TestSession) interactAndMarkVisited() error {
	if err := ts.selectEligibleItems(); err != nil {
		return err
	}
	return ts.interactWithItemSession()
}

func (ts *TestSession) interactWithItemSession() error {
	cur, ok := ts.Route.Current()
	if !ok {
		return nil
	}
	ts.markTestPartVisited(cur.TestPart.Identifier)
	return nil
}

// MoveNextTestPart advances the cursor past every RouteItem sharing the
// current testPart, ending the session if the Route is thereby exhausted.
func (ts *TestSession) MoveNextTestPart() error {
	if err := ts.requireInteracting(); err != nil {
		return err
	}
	ts.suspendCurrent()
	cur, ok := ts.Route.Current()
	if !ok {
		return ts.EndTestSession()
	}
	if cur.TestPart.SubmissionMode.IsSimultaneous() {
		if err := ts.deferredResponseSubmission(); err != nil {
			return err
		}
	}
	if err := ts.skipPastCurrentTestPart(); err != nil {
		return err
	}
	if _, ok := ts.Route.Current(); !ok {
		return ts.EndTestSession()
	}
	return ts.interactAndMarkVisited()
}

// MoveNextAssessmentSection advances the cursor past every RouteItem
// sharing the current (innermost) assessmentSection.
func (ts *TestSession) MoveNextAssessmentSection() error {
	if err := ts.requireInteracting(); err != nil {
		return err
	}
	ts.suspendCurrent()
	if err := ts.skipPastCurrentSection(); err != nil {
		return err
	}
	if _, ok := ts.Route.Current(); !ok {
		return ts.EndTestSession()
	}
	return ts.interactAndMarkVisited()
}

func (ts *TestSession) skipPastCurrentTestPart() error {
	items := ts.Route.Items()
	pos := ts.Route.Position()
	if pos >= len(items) {
		return nil
	}
	tp := items[pos].TestPart
	i := pos
	for i < len(items) && items[i].TestPart == tp {
		i++
	}
	return ts.Route.SetPosition(i)
}

func (ts *TestSession) skipPastCurrentSection() error {
	items := ts.Route.Items()
	pos := ts.Route.Position()
	if pos >= len(items) {
		return nil
	}
	sec, hasSec := items[pos].InnermostSection()
	i := pos
	for i < len(items) {
		s, has := items[i].InnermostSection()
		if !hasSec || !has || s != sec {
			break
		}
		i++
	}
	return ts.Route.SetPosition(i)
}

func (ts *TestSession) suspendCurrent() {
	if sess, ok := ts.currentSession(); ok {
		sess.Suspend()
	}
}

func (ts *TestSession) currentSession() (*session.Session, bool) {
	cur, ok := ts.Route.Current()
	if !ok {
		return nil, false
	}
	return ts.Items.GetSession(cur.ItemRef.Identifier, cur.Occurrence)
}

func (ts *TestSession) requireInteracting() error {
	if ts.State != Interacting {
		return qerr.New(qerr.StateViolation, ts.Test.Identifier, "operation requires Interacting state")
	}
	return nil
}

// nextRouteItem implements §4.8.1.
func (ts *TestSession) nextRouteItem(ignoreBranching, ignorePreconditions bool) error {
	if cur, ok := ts.Route.Current(); ok && ts.Route.IsLastOfTestPart() && cur.TestPart.SubmissionMode.IsSimultaneous() {
		if err := ts.deferredResponseSubmission(); err != nil {
			return err
		}
	}

	for {
		cur, hasCurrent := ts.Route.Current()
		branched := false
		if !ignoreBranching && hasCurrent && len(cur.BranchRules) > 0 {
			linearApplies := cur.TestPart.NavigationMode.IsLinear() || ts.Config.has(ForceBranching)
			if linearApplies {
				target, matched, err := ts.evaluateBranchRules(cur.BranchRules)
				if err != nil {
					return err
				}
				if matched {
					if handled, err := ts.handleSpecialBranchTarget(target); err != nil {
						return err
					} else if handled {
						return nil
					}
					if err := ts.Route.Branch(target); err != nil {
						return qerr.Wrap(qerr.LogicError, ts.Test.Identifier, "branch target not found", err)
					}
					branched = true
				}
			}
		}
		if !branched {
			ts.Route.Next()
		}

		ignoreBranching = true

		if _, ok := ts.Route.Current(); !ok {
			break
		}
		if ignorePreconditions {
			break
		}
		ok, err := ts.checkPreconditions()
		if err != nil {
			return err
		}
		if ok {
			break
		}
	}

	if _, ok := ts.Route.Current(); !ok {
		if ts.State == Interacting {
			return ts.EndTestSession()
		}
		return nil
	}
	return ts.selectEligibleItems()
}

func (ts *TestSession) evaluateBranchRules(rules []qtimodel.BranchRule) (string, bool, error) {
	for _, rule := range rules {
		v, err := ts.Engine.Evaluate(rule.Expression, ts)
		if err != nil {
			return "", false, qerr.Wrap(qerr.LogicError, ts.Test.Identifier, "branchRule evaluation failed", err)
		}
		if expr.AsBool(v) {
			return rule.Target, true, nil
		}
	}
	return "", false, nil
}

// handleSpecialBranchTarget handles EXIT_TEST/EXIT_TESTPART/EXIT_SECTION.
// It returns handled=true when nextRouteItem should stop looping because
// the driver already took full ownership of cursor/state (§4.5).
func (ts *TestSession) handleSpecialBranchTarget(target string) (bool, error) {
	switch target {
	case qtimodel.ExitTest:
		return true, ts.EndTestSession()
	case qtimodel.ExitTestPart:
		if err := ts.skipPastCurrentTestPart(); err != nil {
			return true, err
		}
		if _, ok := ts.Route.Current(); !ok {
			return true, ts.EndTestSession()
		}
		return true, ts.selectEligibleItems()
	case qtimodel.ExitSection:
		if err := ts.skipPastCurrentSection(); err != nil {
			return true, err
		}
		if _, ok := ts.Route.Current(); !ok {
			return true, ts.EndTestSession()
		}
		return true, ts.selectEligibleItems()
	}
	return false, nil
}

// checkPreconditions evaluates the current RouteItem's effective
// preConditions in LINEAR mode, or just the testPart's own preConditions in
// NONLINEAR mode (§4.8.1c).
func (ts *TestSession) checkPreconditions() (bool, error) {
	cur, ok := ts.Route.Current()
	if !ok {
		return true, nil
	}
	var conditions []qtimodel.PreCondition
	if cur.TestPart.NavigationMode.IsLinear() {
		conditions = cur.PreConditions
	} else {
		conditions = cur.TestPart.PreConditions
	}
	for _, pc := range conditions {
		v, err := ts.Engine.Evaluate(pc.Expression, ts)
		if err != nil {
			return false, qerr.Wrap(qerr.LogicError, ts.Test.Identifier, "preCondition evaluation failed", err)
		}
		if !expr.AsBool(v) {
			return false, nil
		}
	}
	return true, nil
}
