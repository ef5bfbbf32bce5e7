package variable

import "github.com/mind-engage/qti-testengine/pkg/qerr"

// Kind distinguishes the three Variable subtypes named in §3: only the
// permissible scope and whether response processing writes to them differs
// behaviorally.
type Kind int

const (
	KindOutcome Kind = iota
	KindResponse
	KindTemplate
)

// Declaration is the static shape of a Variable as declared on an
// AssessmentItem or AssessmentTest: identifier, cardinality, baseType, kind,
// and an optional default.
type Declaration struct {
	Identifier      string
	Cardinality     Cardinality
	BaseType        BaseType
	Kind            Kind
	DefaultValue    Value  // Null(Cardinality, BaseType) when no default declared
	CorrectResponse *Value // response declarations only; nil when not scored by correctness
}

// Variable is a declaration plus its current runtime value.
type Variable struct {
	Declaration Declaration
	Value       Value
}

// createFromDataModel builds a Variable matching the declaration's
// cardinality/baseType, initialized to null (§4.1).
func createFromDataModel(d Declaration) *Variable {
	return &Variable{Declaration: d, Value: Null(d.Cardinality, d.BaseType)}
}

// ApplyDefaultValue copies the declared default into the variable's value
// (§4.1).
func (v *Variable) ApplyDefaultValue() { v.Value = v.Declaration.DefaultValue }

// State is a keyed container of Variables by identifier name (§4.1).
type State struct {
	vars map[string]*Variable
}

func NewState() *State { return &State{vars: make(map[string]*Variable)} }

// Declare registers a new variable matching d, initialized to null. It does
// not apply the default; callers apply defaults explicitly (e.g. during
// item session initialization) so that "declared but not yet defaulted" is
// observable.
func (s *State) Declare(d Declaration) {
	s.vars[d.Identifier] = createFromDataModel(d)
}

// GetVariable returns the named variable and whether it is bound.
func (s *State) GetVariable(name string) (*Variable, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// SetVariable sets the bound variable's value. Unknown targets raise
// UnknownVariable (§4.8.4).
func (s *State) SetVariable(name string, val Value) error {
	v, ok := s.vars[name]
	if !ok {
		return qerr.New(qerr.UnknownVariable, name, "variable not declared in this scope")
	}
	v.Value = val
	return nil
}

// UnsetVariable sets the value to null without removing the binding (§4.1).
func (s *State) UnsetVariable(name string) error {
	v, ok := s.vars[name]
	if !ok {
		return qerr.New(qerr.UnknownVariable, name, "variable not declared in this scope")
	}
	v.Value = Null(v.Declaration.Cardinality, v.Declaration.BaseType)
	return nil
}

// ApplyDefaultValue applies the named variable's declared default.
func (s *State) ApplyDefaultValue(name string) error {
	v, ok := s.vars[name]
	if !ok {
		return qerr.New(qerr.UnknownVariable, name, "variable not declared in this scope")
	}
	v.ApplyDefaultValue()
	return nil
}

// ApplyAllDefaults applies every declared variable's default value.
func (s *State) ApplyAllDefaults() {
	for _, v := range s.vars {
		v.ApplyDefaultValue()
	}
}

// ResetOutcomeVariables sets every outcome variable to its declared default
// (or null if none), per §4.1.
func (s *State) ResetOutcomeVariables() {
	for _, v := range s.vars {
		if v.Declaration.Kind == KindOutcome {
			v.ApplyDefaultValue()
		}
	}
}

// Variables returns all bound variables of the given kind, in no
// particular order (callers needing model order iterate declarations
// directly, e.g. the snapshot codec).
func (s *State) Variables(kind Kind) []*Variable {
	out := make([]*Variable, 0, len(s.vars))
	for _, v := range s.vars {
		if v.Declaration.Kind == kind {
			out = append(out, v)
		}
	}
	return out
}

// Has reports whether name is declared in this scope.
func (s *State) Has(name string) bool {
	_, ok := s.vars[name]
	return ok
}
