package testdriver

import (
	"time"

	"github.com/mind-engage/qti-testengine/pkg/qerr"
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
	"github.com/mind-engage/qti-testengine/pkg/route"
)

// SetTime is the sole source of time advancement (§5): the engine never
// reads wall-clock itself. It credits elapsed duration to every live
// ItemSession (each only actually accrues while it is Interacting) and to
// every scope's DurationStore entry (test, testPart, sections), closes any
// scope whose remaining time has hit zero, then records the observation as
// the new reference.
func (ts *TestSession) SetTime(observation time.Time) {
	if cur, ok := ts.Route.Current(); ok && ts.State == Interacting {
		for _, sess := range ts.Items.All() {
			sess.SetTime(observation)
		}
		if ts.timeReference != nil {
			delta := observation.Sub(*ts.timeReference)
			if delta < 0 {
				delta = -delta
			}
			if ts.creditScope(ts.Test.Identifier, ts.Test.TimeLimits, delta) {
				t := observation
				ts.timeReference = &t
				_ = ts.EndTestSession()
				return
			}
			if ts.creditScope(cur.TestPart.Identifier, cur.TestPart.TimeLimits, delta) {
				ts.closeRouteItemSessions(ts.Route.GetRouteItemsByTestPart(cur.TestPart.Identifier))
			}
			for _, sec := range cur.Sections {
				if ts.creditScope(sec.Identifier, sec.TimeLimits, delta) {
					ts.closeRouteItemSessions(ts.Route.GetRouteItemsByAssessmentSection(sec.Identifier))
				}
			}
		}
	}
	t := observation
	ts.timeReference = &t
}

// creditScope adds delta to identifier's DurationStore entry, then clamps
// to the scope's maxTime if exceeded (§4.8.3, §5: credit precedes clamp).
// It reports whether the scope's remaining time has thereby hit zero, so
// the caller can close the affected scope immediately (§4.8.3, §8 scenario
// 5) rather than leaving closure to a later lazy checkTimeLimits call. A
// scope whose TimeLimits explicitly allows late submission never triggers
// this closure, mirroring checkScopeTime's own overflow gate below.
func (ts *TestSession) creditScope(identifier string, tl *qtimodel.TimeLimits, delta time.Duration) bool {
	ts.Durations.Add(identifier, delta)
	if tl == nil || tl.MaxTime == nil {
		return false
	}
	d := ts.Durations.Get(identifier)
	if d > *tl.MaxTime {
		d = *tl.MaxTime
		ts.Durations.Set(identifier, d)
	}
	return d >= *tl.MaxTime && !tl.AllowLateSubmission
}

// closeRouteItemSessions force-closes every materialized ItemSession among
// items, used when a testPart's or section's time budget is exhausted.
func (ts *TestSession) closeRouteItemSessions(items []route.Item) {
	for _, it := range items {
		if sess, ok := ts.Items.GetSession(it.ItemRef.Identifier, it.Occurrence); ok {
			_ = sess.EndItemSession()
		}
	}
}

// checkTimeLimits validates the current RouteItem's test/testPart/section
// scopes (and, when includeAssessmentItem, the current ItemSession's own
// scope) against their time limits, raising the scope-specific
// overflow/underflow code on the first violation found (§4.8.3).
// includeMinTime is only honored in LINEAR navigation, since minTime
// enforcement only makes sense when the candidate cannot return later.
func (ts *TestSession) checkTimeLimits(includeMinTime, includeAssessmentItem bool) error {
	cur, ok := ts.Route.Current()
	if !ok {
		return nil
	}
	includeMinTime = includeMinTime && cur.TestPart.NavigationMode.IsLinear()

	if err := ts.checkScopeTime(ts.Test.Identifier, ts.Test.TimeLimits, includeMinTime,
		qerr.TestDurationOverflow, qerr.TestDurationUnderflow); err != nil {
		return err
	}
	if err := ts.checkScopeTime(cur.TestPart.Identifier, cur.TestPart.TimeLimits, includeMinTime,
		qerr.TestPartDurationOverflow, qerr.TestPartDurationUnderflow); err != nil {
		return err
	}
	for _, sec := range cur.Sections {
		if err := ts.checkScopeTime(sec.Identifier, sec.TimeLimits, includeMinTime,
			qerr.SectionDurationOverflow, qerr.SectionDurationUnderflow); err != nil {
			return err
		}
	}
	if includeAssessmentItem {
		if sess, hasSess := ts.currentSession(); hasSess {
			if err := sess.CheckTimeLimits(includeMinTime); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ts *TestSession) checkScopeTime(identifier string, tl *qtimodel.TimeLimits, includeMinTime bool, overflow, underflow qerr.Code) error {
	if tl == nil {
		return nil
	}
	elapsed := ts.Durations.Get(identifier)
	if includeMinTime && tl.MinTime != nil && elapsed < *tl.MinTime {
		return qerr.New(underflow, identifier, "minimum time not yet reached")
	}
	if tl.MaxTime != nil && !tl.AllowLateSubmission && elapsed >= *tl.MaxTime {
		return qerr.New(overflow, identifier, "maximum time exceeded")
	}
	return nil
}
