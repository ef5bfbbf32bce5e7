package testdriver_test

import (
	"testing"

	"github.com/mind-engage/qti-testengine/pkg/qerr"
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

func TestEndAttemptScoresAgainstCorrectResponse(t *testing.T) {
	ts := newSession(buildLinearQuiz(), 0)
	_ = ts.BeginTestSession()
	_ = ts.BeginAttempt()
	if err := ts.EndAttempt(map[string]variable.Value{"RESPONSE": variable.IdentValue("ChoiceB")}); err != nil {
		t.Fatalf("endAttempt: %v", err)
	}
	v, _ := ts.Get("item1.SCORE")
	if v.Float() != 0 {
		t.Fatalf("expected SCORE 0 for an incorrect response, got %v", v.Float())
	}
}

func TestEndAttemptRunsOutcomeProcessingImmediatelyInIndividualMode(t *testing.T) {
	ts := newSession(buildLinearQuiz(), 0)
	_ = ts.BeginTestSession()
	_ = ts.BeginAttempt()
	_ = ts.EndAttempt(map[string]variable.Value{"RESPONSE": variable.IdentValue("ChoiceA")})

	total, _ := ts.Get("TOTALSCORE")
	if total.Float() != 1 {
		t.Fatalf("expected TOTALSCORE to reflect item1's SCORE immediately, got %v", total.Float())
	}
}

func TestSimultaneousModeQueuesResponsesUntilFlush(t *testing.T) {
	ts := newSession(buildSimultaneousQuiz(), 0)
	_ = ts.BeginTestSession()
	_ = ts.BeginAttempt()
	if err := ts.EndAttempt(map[string]variable.Value{"RESPONSE": variable.IdentValue("ChoiceA")}); err != nil {
		t.Fatalf("endAttempt: %v", err)
	}

	total, _ := ts.Get("TOTALSCORE")
	if total.Float() != 0 {
		t.Fatalf("expected TOTALSCORE to stay at its default until the testPart flushes, got %v", total.Float())
	}
	if len(ts.Pending.All()) != 1 {
		t.Fatalf("expected one queued pending response, got %d", len(ts.Pending.All()))
	}

	if err := ts.MoveNextTestPart(); err != nil {
		t.Fatalf("moveNextTestPart: %v", err)
	}
	total, _ = ts.Get("TOTALSCORE")
	if total.Float() != 1 {
		t.Fatalf("expected TOTALSCORE 1 once the queued response is committed, got %v", total.Float())
	}
	if len(ts.Pending.All()) != 0 {
		t.Fatal("expected the pending store to be cleared after the flush")
	}
}

func TestBeginAttemptStateViolationOnExhaustedMaxAttempts(t *testing.T) {
	test := buildLinearQuiz()
	test.TestParts[0].Sections[0].ItemRefs[0].ItemSessionControl = &qtimodel.ItemSessionControl{MaxAttempts: 1}

	ts := newSession(test, 0)
	_ = ts.BeginTestSession()
	_ = ts.BeginAttempt()
	_ = ts.EndAttempt(map[string]variable.Value{"RESPONSE": variable.IdentValue("ChoiceA")})

	err := ts.BeginAttempt()
	if code, ok := qerr.CodeOf(err); !ok || code != qerr.StateViolation {
		t.Fatalf("expected StateViolation once item1's single attempt is exhausted and it is closed, got %v", err)
	}
}

func TestBeginAttemptRequiresCurrentRouteItem(t *testing.T) {
	ts := newSession(buildLinearQuiz(), 0)
	if err := ts.BeginAttempt(); err == nil {
		t.Fatal("expected beginAttempt to fail before beginTestSession")
	} else if code, _ := qerr.CodeOf(err); code != qerr.StateViolation {
		t.Fatalf("expected StateViolation, got %v", err)
	}
}
