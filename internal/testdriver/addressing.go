package testdriver

import (
	"github.com/mind-engage/qti-testengine/pkg/qerr"
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

// Get implements offsetGet (§4.8.4) and satisfies expr.Context, so a
// *TestSession can be passed directly to Engine.Evaluate for branchRule
// conditions, preConditions, and templateDefaults.
func (ts *TestSession) Get(name string) (variable.Value, error) {
	id, err := variable.Parse(name)
	if err != nil {
		return variable.Value{}, err
	}
	null := variable.Null(variable.Single, variable.BaseTypeIdentifier)

	if id.IsSimple() {
		if id.Name() == "duration" {
			return variable.DurationValue(ts.Durations.Get(ts.Test.Identifier)), nil
		}
		if v, ok := ts.Outcomes.GetVariable(id.Name()); ok {
			return v.Value, nil
		}
		return null, nil
	}

	if ref, occ, ok := ts.resolveItemAddress(id); ok {
		sess, hasSess := ts.Items.GetSession(ref.Identifier, occ)
		if !hasSess {
			return null, nil
		}
		v, ok := sess.Vars.GetVariable(id.Name())
		if !ok {
			return null, nil
		}
		return v.Value, nil
	}

	if id.Name() == "duration" && ts.prefixMatchesScope(id.Prefix()) {
		return variable.DurationValue(ts.Durations.Get(id.Prefix())), nil
	}

	return null, nil
}

// Set implements offsetSet (§4.8.4): only variables already declared in the
// target scope are writable; an unknown target raises UnknownVariable.
// Unset (writing Null) clears the global variable's value; a prefixed
// identifier targeting the global scope raises OutOfScope.
func (ts *TestSession) Set(name string, v variable.Value) error {
	id, err := variable.Parse(name)
	if err != nil {
		return err
	}

	if id.IsSimple() {
		return ts.Outcomes.SetVariable(id.Name(), v)
	}

	if ref, occ, ok := ts.resolveItemAddress(id); ok {
		sess, hasSess := ts.Items.GetSession(ref.Identifier, occ)
		if !hasSess {
			return qerr.New(qerr.UnknownVariable, name, "no item session at this address")
		}
		return sess.Vars.SetVariable(id.Name(), v)
	}

	if id.Name() == "duration" && ts.prefixMatchesScope(id.Prefix()) {
		return qerr.New(qerr.OutOfScope, name, "duration is read-only")
	}

	return qerr.New(qerr.OutOfScope, name, "prefix does not resolve to a writable scope")
}

// resolveItemAddress resolves a prefixed identifier to the itemRef and
// occurrence it addresses, when the prefix names an itemRef (§4.8.4):
// explicit occurrence (1-based in the identifier, 0-based in the store)
// when the identifier carries a sequence number; else the itemRef's
// lastOccurrenceUpdate entry; else occurrence 0. In INDIVIDUAL submission
// mode, an absent lastOccurrenceUpdate yields no address (null) rather than
// defaulting to 0, per §9 design note.
func (ts *TestSession) resolveItemAddress(id variable.Identifier) (*qtimodel.AssessmentItemRef, int, bool) {
	ref, ok := ts.findItemRef(id.Prefix())
	if !ok {
		return nil, 0, false
	}
	if id.HasSequenceNumber() {
		return ref, id.SequenceNumber() - 1, true
	}
	if occ, ok := ts.lastOccurrenceUpdate[id.Prefix()]; ok {
		return ref, occ, true
	}
	if ts.individualModeInForce() {
		return nil, 0, false
	}
	return ref, 0, true
}

// individualModeInForce reports whether the current route item's testPart
// submits INDIVIDUAL, the condition under which an absent
// lastOccurrenceUpdate yields null rather than occurrence 0 (§4.8.4).
func (ts *TestSession) individualModeInForce() bool {
	cur, ok := ts.Route.Current()
	return ok && !cur.TestPart.SubmissionMode.IsSimultaneous()
}

// findItemRef locates the AssessmentItemRef named identifier anywhere in
// the Route.
func (ts *TestSession) findItemRef(identifier string) (*qtimodel.AssessmentItemRef, bool) {
	for _, it := range ts.Route.Items() {
		if it.ItemRef != nil && it.ItemRef.Identifier == identifier {
			return it.ItemRef, true
		}
	}
	return nil, false
}

// prefixMatchesScope reports whether prefix names a testPart or
// assessmentSection appearing anywhere in the Route.
func (ts *TestSession) prefixMatchesScope(prefix string) bool {
	for _, it := range ts.Route.Items() {
		if it.TestPart != nil && it.TestPart.Identifier == prefix {
			return true
		}
		for _, sec := range it.Sections {
			if sec.Identifier == prefix {
				return true
			}
		}
	}
	return false
}
