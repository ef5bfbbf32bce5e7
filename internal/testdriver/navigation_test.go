package testdriver_test

import (
	"testing"

	"github.com/mind-engage/qti-testengine/pkg/qerr"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

func answerItem(t *testing.T, ts interface {
	EndAttempt(map[string]variable.Value, ...bool) error
}, responseName string, v variable.Value) {
	t.Helper()
	if err := ts.EndAttempt(map[string]variable.Value{responseName: v}); err != nil {
		t.Fatalf("endAttempt: %v", err)
	}
}

func TestMoveNextAdvancesLinearRoute(t *testing.T) {
	ts := newSession(buildLinearQuiz(), 0)
	_ = ts.BeginTestSession()
	if err := ts.BeginAttempt(); err != nil {
		t.Fatalf("beginAttempt: %v", err)
	}
	answerItem(t, ts, "RESPONSE", variable.IdentValue("ChoiceA"))

	if err := ts.MoveNext(); err != nil {
		t.Fatalf("moveNext: %v", err)
	}
	cur, ok := ts.Route.Current()
	if !ok || cur.ItemRef.Identifier != "item2" {
		t.Fatalf("expected item2 current after moveNext, got %v (ok=%v)", cur, ok)
	}
}

func TestMoveNextEndsTestSessionWhenRouteExhausted(t *testing.T) {
	ts := newSession(buildLinearQuiz(), 0)
	_ = ts.BeginTestSession()
	_ = ts.BeginAttempt()
	answerItem(t, ts, "RESPONSE", variable.IdentValue("ChoiceA"))
	_ = ts.MoveNext()
	_ = ts.BeginAttempt()
	answerItem(t, ts, "RESPONSE", variable.IdentValue("ChoiceB"))

	if err := ts.MoveNext(); err != nil {
		t.Fatalf("moveNext: %v", err)
	}
	if ts.State != 5 { // testdriver.Closed
		t.Fatalf("expected the session to close once the route is exhausted, got %v", ts.State)
	}
}

func TestMoveBackRejectedAtFirstPosition(t *testing.T) {
	ts := newSession(buildLinearQuiz(), 0)
	_ = ts.BeginTestSession()
	if err := ts.MoveBack(); err == nil {
		t.Fatal("expected an error moving back from the first route item")
	} else if code, _ := qerr.CodeOf(err); code != qerr.StateViolation {
		t.Fatalf("expected StateViolation, got %v", err)
	}
}

func TestMoveBackReturnsToPriorItem(t *testing.T) {
	ts := newSession(buildLinearQuiz(), 0)
	_ = ts.BeginTestSession()
	_ = ts.BeginAttempt()
	answerItem(t, ts, "RESPONSE", variable.IdentValue("ChoiceA"))
	_ = ts.MoveNext()

	if err := ts.MoveBack(); err != nil {
		t.Fatalf("moveBack: %v", err)
	}
	cur, ok := ts.Route.Current()
	if !ok || cur.ItemRef.Identifier != "item1" {
		t.Fatalf("expected item1 after moveBack, got %v (ok=%v)", cur, ok)
	}
}

func TestJumpForbiddenInLinearNavigation(t *testing.T) {
	ts := newSession(buildLinearQuiz(), 0)
	_ = ts.BeginTestSession()
	if err := ts.JumpTo(1); err == nil {
		t.Fatal("expected a jump to be forbidden in linear navigation")
	} else if code, _ := qerr.CodeOf(err); code != qerr.NavigationModeViolation {
		t.Fatalf("expected NavigationModeViolation, got %v", err)
	}
}

func TestJumpAllowedInNonlinearNavigation(t *testing.T) {
	ts := newSession(buildSimultaneousQuiz(), 0)
	_ = ts.BeginTestSession()
	if err := ts.JumpTo(1); err != nil {
		t.Fatalf("jumpTo: %v", err)
	}
	cur, ok := ts.Route.Current()
	if !ok || cur.ItemRef.Identifier != "item2" {
		t.Fatalf("expected item2 after jumping to position 1, got %v (ok=%v)", cur, ok)
	}
}

func TestMoveNextTestPartEndsSessionWhenNoMoreParts(t *testing.T) {
	ts := newSession(buildLinearQuiz(), 0)
	_ = ts.BeginTestSession()
	if err := ts.MoveNextTestPart(); err != nil {
		t.Fatalf("moveNextTestPart: %v", err)
	}
	if ts.State != 5 { // testdriver.Closed
		t.Fatalf("expected the session to close (the only testPart was skipped past), got %v", ts.State)
	}
}

func TestBranchRuleSkipsToTarget(t *testing.T) {
	ts := newSession(buildBranchingTest(), 0)
	_ = ts.BeginTestSession()
	_ = ts.BeginAttempt()
	answerItem(t, ts, "RESPONSE", variable.IdentValue("ChoiceA"))

	if err := ts.MoveNext(); err != nil {
		t.Fatalf("moveNext: %v", err)
	}
	cur, ok := ts.Route.Current()
	if !ok || cur.ItemRef.Identifier != "item3" {
		t.Fatalf("expected the unconditional branchRule to land on item3, got %v (ok=%v)", cur, ok)
	}
}

func TestPreconditionSkipsGatedItemUntilSatisfied(t *testing.T) {
	ts := newSession(buildPreconditionTest(), 0)
	_ = ts.BeginTestSession()
	_ = ts.BeginAttempt()
	answerItem(t, ts, "RESPONSE", variable.IdentValue("ChoiceB")) // wrong: TOTALSCORE stays 0

	if err := ts.MoveNext(); err != nil {
		t.Fatalf("moveNext: %v", err)
	}
	cur, ok := ts.Route.Current()
	if !ok || cur.ItemRef.Identifier != "item3" {
		t.Fatalf("expected item2's precondition to fail and land on item3, got %v (ok=%v)", cur, ok)
	}
}

func TestPreconditionAdmitsGatedItemWhenSatisfied(t *testing.T) {
	ts := newSession(buildPreconditionTest(), 0)
	_ = ts.BeginTestSession()
	_ = ts.BeginAttempt()
	answerItem(t, ts, "RESPONSE", variable.IdentValue("ChoiceA")) // correct: TOTALSCORE becomes 1

	if err := ts.MoveNext(); err != nil {
		t.Fatalf("moveNext: %v", err)
	}
	cur, ok := ts.Route.Current()
	if !ok || cur.ItemRef.Identifier != "item2" {
		t.Fatalf("expected item2's precondition to pass once TOTALSCORE > 0, got %v (ok=%v)", cur, ok)
	}
}
