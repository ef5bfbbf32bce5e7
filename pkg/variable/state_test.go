package variable_test

import (
	"testing"

	"github.com/mind-engage/qti-testengine/pkg/qerr"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

func TestStateDeclareAndDefault(t *testing.T) {
	s := variable.NewState()
	s.Declare(variable.Declaration{
		Identifier:   "SCORE",
		Cardinality:  variable.Single,
		BaseType:     variable.BaseTypeFloat,
		Kind:         variable.KindOutcome,
		DefaultValue: variable.FloatValue(0),
	})
	v, ok := s.GetVariable("SCORE")
	if !ok {
		t.Fatalf("expected SCORE to be declared")
	}
	if !v.Value.IsNull() {
		t.Fatalf("expected freshly declared variable to be null before default applied")
	}
	if err := s.ApplyDefaultValue("SCORE"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _ = s.GetVariable("SCORE")
	if v.Value.Float() != 0 {
		t.Fatalf("expected default 0, got %v", v.Value.Float())
	}
}

func TestStateSetUnknownVariable(t *testing.T) {
	s := variable.NewState()
	err := s.SetVariable("GHOST", variable.IntValue(1))
	if code, ok := qerr.CodeOf(err); !ok || code != qerr.UnknownVariable {
		t.Fatalf("expected UnknownVariable, got %v", err)
	}
}

func TestStateUnsetKeepsBinding(t *testing.T) {
	s := variable.NewState()
	s.Declare(variable.Declaration{Identifier: "X", Cardinality: variable.Single, BaseType: variable.BaseTypeInteger})
	_ = s.SetVariable("X", variable.IntValue(5))
	if err := s.UnsetVariable("X"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := s.GetVariable("X")
	if !ok {
		t.Fatalf("expected binding to remain after unset")
	}
	if !v.Value.IsNull() {
		t.Fatalf("expected value to be null after unset")
	}
}

func TestResetOutcomeVariablesOnlyTouchesOutcomes(t *testing.T) {
	s := variable.NewState()
	s.Declare(variable.Declaration{Identifier: "SCORE", Cardinality: variable.Single, BaseType: variable.BaseTypeFloat, Kind: variable.KindOutcome, DefaultValue: variable.FloatValue(1)})
	s.Declare(variable.Declaration{Identifier: "RESPONSE", Cardinality: variable.Single, BaseType: variable.BaseTypeIdentifier, Kind: variable.KindResponse, DefaultValue: variable.IdentValue("A")})

	_ = s.SetVariable("SCORE", variable.FloatValue(99))
	_ = s.SetVariable("RESPONSE", variable.IdentValue("B"))
	s.ResetOutcomeVariables()

	score, _ := s.GetVariable("SCORE")
	if score.Value.Float() != 1 {
		t.Fatalf("expected SCORE reset to default 1, got %v", score.Value.Float())
	}
	resp, _ := s.GetVariable("RESPONSE")
	if resp.Value.Ident() != "B" {
		t.Fatalf("expected RESPONSE untouched by outcome reset, got %v", resp.Value.Ident())
	}
}

func TestValueEqualAndContains(t *testing.T) {
	m := variable.MultipleValue(variable.BaseTypeIdentifier, variable.IdentValue("A"), variable.IdentValue("B"))
	if !m.Contains(variable.IdentValue("B")) {
		t.Fatalf("expected multiple value to contain B")
	}
	if m.Contains(variable.IdentValue("C")) {
		t.Fatalf("did not expect multiple value to contain C")
	}
	m2 := variable.MultipleValue(variable.BaseTypeIdentifier, variable.IdentValue("B"), variable.IdentValue("A"))
	if !m.Equal(m2) {
		t.Fatalf("expected multiple cardinality equality to be order-insensitive")
	}
}
