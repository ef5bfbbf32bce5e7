// Package session implements C3 (Item Session) and C4 (Item Session Store):
// the state machine for one item occurrence, and the map from
// (itemRef, occurrence) to its session (core.v1 §4.3, §4.4).
package session

import (
	"time"

	"github.com/mind-engage/qti-testengine/pkg/qerr"
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

// State enumerates ItemSession lifecycle states, bit-exact per §6.
type State int

const (
	NotSelected  State = 1
	Initial      State = 2
	Interacting  State = 3
	Suspended    State = 4
	Closed       State = 5
	Solution     State = 6
	Review       State = 7
	ModalFeedback State = 8
)

// CompletionStatus tracks whether/how the candidate completed the item.
type CompletionStatus string

const (
	NotAttempted CompletionStatus = "notAttempted"
	Unknown      CompletionStatus = "unknown"
	Completed    CompletionStatus = "completed"
	Incomplete   CompletionStatus = "incomplete"
)

// ResponseProcessingFunc invokes the C8 ExpressionEngine's responseProcessing
// rules against the owning TestSession's scope. The driver supplies this as
// a closure so ItemSession never needs a TestSession reference of its own.
type ResponseProcessingFunc func() error

// Session is the per-occurrence item state machine (§4.3).
type Session struct {
	ItemRefID  string
	Occurrence int

	State            State
	NumAttempts      int
	CompletionStatus CompletionStatus
	Duration         time.Duration
	TimeReference    *time.Time

	Vars *variable.State

	MaxAttempts        int // 0 = unlimited
	AllowSkipping      bool
	ValidateResponses  bool
	TimeLimits         *qtimodel.TimeLimits
	NavigationMode     qtimodel.NavigationMode
	SubmissionMode     qtimodel.SubmissionMode
}

// New constructs a Session in NotSelected state with the given declarations
// registered (not yet defaulted — BeginItemSession applies defaults).
func New(itemRefID string, occurrence int, decls []variable.Declaration, control *qtimodel.ItemSessionControl, limits *qtimodel.TimeLimits, navMode qtimodel.NavigationMode, subMode qtimodel.SubmissionMode) *Session {
	s := &Session{
		ItemRefID:        itemRefID,
		Occurrence:       occurrence,
		State:            NotSelected,
		CompletionStatus: NotAttempted,
		Vars:             variable.NewState(),
		TimeLimits:       limits,
		NavigationMode:   navMode,
		SubmissionMode:   subMode,
	}
	if control != nil {
		s.MaxAttempts = control.MaxAttempts
		s.AllowSkipping = control.AllowSkipping
		s.ValidateResponses = control.ValidateResponses
	}
	for _, d := range decls {
		s.Vars.Declare(d)
	}
	return s
}

func (s *Session) component() string { return qerr.ItemComponent(s.ItemRefID, s.Occurrence) }

// BeginItemSession applies declared defaults and moves NotSelected -> Initial.
func (s *Session) BeginItemSession() error {
	if s.State != NotSelected {
		return qerr.New(qerr.StateViolation, s.component(), "beginItemSession requires NotSelected state")
	}
	s.Vars.ApplyAllDefaults()
	s.CompletionStatus = NotAttempted
	s.State = Initial
	return nil
}

// BeginAttempt starts (or resumes into) an attempt: Initial/Suspended ->
// Interacting. Raises AttemptsOverflow if MaxAttempts is already exhausted.
func (s *Session) BeginAttempt() error {
	if s.State != Initial && s.State != Suspended {
		return qerr.New(qerr.StateViolation, s.component(), "beginAttempt requires Initial or Suspended state")
	}
	if s.MaxAttempts > 0 && s.NumAttempts >= s.MaxAttempts {
		return qerr.New(qerr.AttemptsOverflow, s.component(), "no attempts remaining")
	}
	s.State = Interacting
	return nil
}

// BeginCandidateSession is the SIMULTANEOUS-mode analogue of BeginAttempt:
// it does not enforce the attempt counter (the counter advances once per
// testPart flush, not per interaction) and is used by the driver when
// submissionMode = SIMULTANEOUS (§4.8).
func (s *Session) BeginCandidateSession() error {
	if s.State != Initial && s.State != Suspended {
		return qerr.New(qerr.StateViolation, s.component(), "beginCandidateSession requires Initial or Suspended state")
	}
	s.State = Interacting
	return nil
}

// EndCandidateSession stages the item without running response processing;
// the driver queues the responses in the PendingResponseStore and the
// actual commit happens at deferredResponseSubmission (§4.8.1).
func (s *Session) EndCandidateSession() error {
	if s.State != Interacting {
		return qerr.New(qerr.StateViolation, s.component(), "endCandidateSession requires Interacting state")
	}
	s.State = Suspended
	return nil
}

// EndAttempt is the INDIVIDUAL-mode commit: copies responses into the
// session's response variables, increments numAttempts, invokes
// responseProcessing unless rp is nil, updates completionStatus, and
// transitions to Suspended (more attempts allowed) or Closed (§4.3).
func (s *Session) EndAttempt(responses map[string]variable.Value, rp ResponseProcessingFunc) error {
	if s.State != Interacting {
		return qerr.New(qerr.StateViolation, s.component(), "endAttempt requires Interacting state")
	}
	return s.commit(responses, rp)
}

// ApplyDeferredResponses is the SIMULTANEOUS-mode commit, invoked by the
// driver's deferredResponseSubmission for each pending entry in arrival
// order (§4.8.1, §5). The session need not be Interacting at this point —
// it was already suspended by EndCandidateSession when the response was
// queued.
func (s *Session) ApplyDeferredResponses(responses map[string]variable.Value, rp ResponseProcessingFunc) error {
	return s.commit(responses, rp)
}

func (s *Session) commit(responses map[string]variable.Value, rp ResponseProcessingFunc) error {
	if !s.AllowSkipping && len(responses) == 0 {
		return qerr.New(qerr.SkippingForbidden, s.component(), "this item does not allow skipping")
	}
	for name, v := range responses {
		if err := s.Vars.SetVariable(name, v); err != nil {
			return qerr.Wrap(qerr.InvalidResponse, s.component(), "response targets an undeclared variable", err)
		}
	}
	s.NumAttempts++
	if rp != nil {
		if err := rp(); err != nil {
			return qerr.Wrap(qerr.ResponseProcessingError, s.component(), "responseProcessing failed", err)
		}
	}
	if s.MaxAttempts == 0 || s.NumAttempts < s.MaxAttempts {
		s.State = Suspended
		s.CompletionStatus = Incomplete
	} else {
		s.State = Closed
		s.CompletionStatus = Completed
	}
	return nil
}

// Suspend moves Interacting -> Suspended; it is a no-op (not an error) from
// any other state, including a second consecutive call, and explicitly
// preserves ModalFeedback rather than clobbering it (§4.8 suspend).
func (s *Session) Suspend() {
	if s.State == Interacting {
		s.State = Suspended
	}
}

// EndItemSession force-closes the session regardless of its current state
// (used when ending the test session, or when a scope's time budget is
// exhausted). Idempotent.
func (s *Session) EndItemSession() error {
	if s.State == Closed {
		return nil
	}
	if s.NumAttempts == 0 {
		s.CompletionStatus = NotAttempted
	} else if s.CompletionStatus != Completed {
		s.CompletionStatus = Incomplete
	}
	s.State = Closed
	return nil
}

// SetTime credits elapsed time since the prior observation to Duration when
// Interacting, then clamps to TimeLimits.MaxTime if exceeded (§4.8.3). It
// does not itself raise overflow/underflow — the driver's checkTimeLimits
// does that with full scope context.
func (s *Session) SetTime(observation time.Time) {
	if s.State == Interacting && s.TimeReference != nil {
		delta := observation.Sub(*s.TimeReference)
		if delta < 0 {
			delta = -delta
		}
		s.Duration += delta
		if s.TimeLimits != nil && s.TimeLimits.MaxTime != nil && s.Duration > *s.TimeLimits.MaxTime {
			s.Duration = *s.TimeLimits.MaxTime
		}
	}
	t := observation
	s.TimeReference = &t
}

// CheckTimeLimits validates Duration against TimeLimits, raising the
// item-scoped overflow/underflow codes (§4.8.3). includeMinTime should be
// false unless navigationMode = LINEAR.
func (s *Session) CheckTimeLimits(includeMinTime bool) error {
	if s.TimeLimits == nil {
		return nil
	}
	if includeMinTime && s.TimeLimits.MinTime != nil && s.Duration < *s.TimeLimits.MinTime {
		return qerr.New(qerr.ItemDurationUnderflow, s.component(), "minimum time not yet reached")
	}
	if s.TimeLimits.MaxTime != nil && !s.TimeLimits.AllowLateSubmission && s.Duration >= *s.TimeLimits.MaxTime {
		return qerr.New(qerr.ItemDurationOverflow, s.component(), "maximum time exceeded")
	}
	return nil
}
