// Package qerr defines the closed error taxonomy raised by the test session
// engine (core.v1, §7): a fixed set of codes, each carrying the affected
// component identifier and, for item-scoped faults, "<itemRefId>.<occurrence>".
package qerr

import (
	"errors"
	"fmt"
)

// Code enumerates the engine's closed error taxonomy.
type Code string

const (
	StateViolation          Code = "StateViolation"
	NavigationModeViolation Code = "NavigationModeViolation"
	ForbiddenJump           Code = "ForbiddenJump"
	LogicError              Code = "LogicError"
	UnknownVariable         Code = "UnknownVariable"
	MalformedIdentifier     Code = "MalformedIdentifier"
	OutOfRange              Code = "OutOfRange"
	OutOfScope              Code = "OutOfScope"
	ResponseProcessingError Code = "ResponseProcessingError"
	OutcomeProcessingError  Code = "OutcomeProcessingError"
	ResultSubmissionError   Code = "ResultSubmissionError"
	RouteOutOfBounds        Code = "RouteOutOfBounds"
	AttemptsOverflow        Code = "AttemptsOverflow"
	InvalidResponse         Code = "InvalidResponse"
	SkippingForbidden       Code = "SkippingForbidden"

	TestDurationOverflow      Code = "TestDurationOverflow"
	TestPartDurationOverflow  Code = "TestPartDurationOverflow"
	SectionDurationOverflow   Code = "SectionDurationOverflow"
	ItemDurationOverflow      Code = "ItemDurationOverflow"
	TestDurationUnderflow     Code = "TestDurationUnderflow"
	TestPartDurationUnderflow Code = "TestPartDurationUnderflow"
	SectionDurationUnderflow  Code = "SectionDurationUnderflow"
	ItemDurationUnderflow     Code = "ItemDurationUnderflow"
)

// TestSessionError is the concrete error type raised across the engine.
// Component identifies the affected scope (a testPart/section/item
// identifier, or "<itemRefId>.<occurrence>" per §7 for item-scoped faults).
type TestSessionError struct {
	Code      Code
	Component string
	Message   string
	Cause     error
}

func (e *TestSessionError) Error() string {
	if e.Component == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Code, e.Component, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Code, e.Component, e.Message)
}

func (e *TestSessionError) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, qerr.New(code, "", "")) to match purely on code.
func (e *TestSessionError) Is(target error) bool {
	t, ok := target.(*TestSessionError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New constructs a TestSessionError with no wrapped cause.
func New(code Code, component, message string) *TestSessionError {
	return &TestSessionError{Code: code, Component: component, Message: message}
}

// Wrap constructs a TestSessionError around an originating cause, used at
// the driver boundary when an ItemSession or ExpressionEngine fault is
// mapped to the closest scope-level code (§7).
func Wrap(code Code, component, message string, cause error) *TestSessionError {
	return &TestSessionError{Code: code, Component: component, Message: message, Cause: cause}
}

// ItemComponent formats the "<itemRefId>.<occurrence>" component string
// mandated by §7 for item-scoped errors.
func ItemComponent(itemRefID string, occurrence int) string {
	return fmt.Sprintf("%s.%d", itemRefID, occurrence)
}

// CodeOf extracts the Code from err if it (or a wrapped cause) is a
// *TestSessionError, and ok=false otherwise.
func CodeOf(err error) (Code, bool) {
	var tse *TestSessionError
	if errors.As(err, &tse) {
		return tse.Code, true
	}
	return "", false
}
