package qerr_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/mind-engage/qti-testengine/pkg/qerr"
)

func TestIsMatchesOnCodeAlone(t *testing.T) {
	underlying := qerr.New(qerr.StateViolation, "item1.0", "endAttempt requires Interacting state")
	wrapped := errors.New("outer context")
	err := qerr.Wrap(qerr.ResponseProcessingError, "item1.0", "responseProcessing failed", underlying)

	if !errors.Is(err, qerr.New(qerr.ResponseProcessingError, "", "")) {
		t.Fatalf("expected errors.Is to match on code alone")
	}
	if !errors.Is(err, qerr.New(qerr.StateViolation, "", "")) {
		t.Fatalf("expected errors.Is to reach the wrapped StateViolation cause through Unwrap")
	}
	if errors.Is(wrapped, qerr.New(qerr.StateViolation, "", "")) {
		t.Fatalf("a plain error must never match a TestSessionError code")
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("boom")
	err := qerr.Wrap(qerr.OutcomeProcessingError, "test1", "outcomeProcessing rule evaluation failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to reach the wrapped cause")
	}
	if errors.Unwrap(err) != cause {
		t.Fatalf("expected Unwrap to return the cause directly")
	}
}

func TestCodeOf(t *testing.T) {
	err := qerr.New(qerr.RouteOutOfBounds, "", "position out of bounds")
	code, ok := qerr.CodeOf(err)
	if !ok || code != qerr.RouteOutOfBounds {
		t.Fatalf("expected RouteOutOfBounds, got %v (ok=%v)", code, ok)
	}

	if _, ok := qerr.CodeOf(errors.New("not a TestSessionError")); ok {
		t.Fatalf("expected CodeOf to report false for a non-TestSessionError")
	}
}

func TestItemComponent(t *testing.T) {
	if got := qerr.ItemComponent("item1", 2); got != "item1.2" {
		t.Fatalf("expected %q, got %q", "item1.2", got)
	}
}

func TestErrorMessageIncludesComponentAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := qerr.Wrap(qerr.LogicError, "item1.0", "branchRule evaluation failed", cause)
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty error message")
	}
	for _, want := range []string{"LogicError", "item1.0", "branchRule evaluation failed", "boom"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error message %q to contain %q", msg, want)
		}
	}
}
