package expr_test

import (
	"testing"

	"github.com/mind-engage/qti-testengine/pkg/expr"
	"github.com/mind-engage/qti-testengine/pkg/qerr"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

type fakeContext map[string]variable.Value

func (c fakeContext) Get(identifier string) (variable.Value, error) {
	v, ok := c[identifier]
	if !ok {
		return variable.Value{}, qerr.New(qerr.UnknownVariable, identifier, "not found")
	}
	return v, nil
}

func TestEvaluateRejectsForeignExpressionType(t *testing.T) {
	e := expr.NewBasicEngine()
	_, err := e.Evaluate("not an expr.Expr", fakeContext{})
	if code, ok := qerr.CodeOf(err); !ok || code != qerr.LogicError {
		t.Fatalf("expected LogicError for a foreign expression type, got %v", err)
	}
}

func TestEvaluateVariableLookup(t *testing.T) {
	e := expr.NewBasicEngine()
	ctx := fakeContext{"item1.SCORE": variable.FloatValue(3)}
	v, err := e.Evaluate(expr.Variable("item1.SCORE"), ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Float() != 3 {
		t.Fatalf("expected 3, got %v", v.Float())
	}
}

func TestEvaluateVariableLookupPropagatesError(t *testing.T) {
	e := expr.NewBasicEngine()
	_, err := e.Evaluate(expr.Variable("ghost"), fakeContext{})
	if code, ok := qerr.CodeOf(err); !ok || code != qerr.UnknownVariable {
		t.Fatalf("expected UnknownVariable to propagate, got %v", err)
	}
}

func TestEvaluateConst(t *testing.T) {
	e := expr.NewBasicEngine()
	v, err := e.Evaluate(expr.Const(variable.IdentValue("ChoiceA")), fakeContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Ident() != "ChoiceA" {
		t.Fatalf("expected ChoiceA, got %q", v.Ident())
	}
}

func TestEvaluateMatch(t *testing.T) {
	e := expr.NewBasicEngine()
	m := expr.Match(expr.Const(variable.IdentValue("ChoiceA")), expr.Const(variable.IdentValue("ChoiceA")))
	v, err := e.Evaluate(m, fakeContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Bool() {
		t.Fatal("expected identical identifiers to match")
	}

	m = expr.Match(expr.Const(variable.IdentValue("ChoiceA")), expr.Const(variable.IdentValue("ChoiceB")))
	v, _ = e.Evaluate(m, fakeContext{})
	if v.Bool() {
		t.Fatal("expected different identifiers not to match")
	}
}

func TestEvaluateGtAndLt(t *testing.T) {
	e := expr.NewBasicEngine()
	gt := expr.Gt(expr.Const(variable.FloatValue(5)), expr.Const(variable.FloatValue(3)))
	v, _ := e.Evaluate(gt, fakeContext{})
	if !v.Bool() {
		t.Fatal("expected 5 > 3")
	}

	lt := expr.Lt(expr.Const(variable.IntValue(2)), expr.Const(variable.IntValue(3)))
	v, _ = e.Evaluate(lt, fakeContext{})
	if !v.Bool() {
		t.Fatal("expected 2 < 3, comparing across integer and float operands via numeric()")
	}
}

func TestEvaluateGtWithNullOperandIsNull(t *testing.T) {
	e := expr.NewBasicEngine()
	gt := expr.Gt(expr.Const(variable.Null(variable.Single, variable.BaseTypeFloat)), expr.Const(variable.FloatValue(3)))
	v, err := e.Evaluate(gt, fakeContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsNull() {
		t.Fatal("expected a null operand to produce a null boolean result")
	}
}

func TestEvaluateIsNull(t *testing.T) {
	e := expr.NewBasicEngine()
	v, _ := e.Evaluate(expr.IsNull(expr.Const(variable.Null(variable.Single, variable.BaseTypeFloat))), fakeContext{})
	if !v.Bool() {
		t.Fatal("expected IsNull true for a null const")
	}
	v, _ = e.Evaluate(expr.IsNull(expr.Const(variable.FloatValue(1))), fakeContext{})
	if v.Bool() {
		t.Fatal("expected IsNull false for a non-null const")
	}
}

func TestEvaluateAndShortCircuitsOnNull(t *testing.T) {
	e := expr.NewBasicEngine()
	and := expr.And(
		expr.Const(variable.BoolValue(true)),
		expr.Const(variable.Null(variable.Single, variable.BaseTypeBoolean)),
	)
	v, _ := e.Evaluate(and, fakeContext{})
	if v.Bool() {
		t.Fatal("expected And to treat a null operand as false")
	}
}

func TestEvaluateOrTreatsNullAsFalse(t *testing.T) {
	e := expr.NewBasicEngine()
	or := expr.Or(
		expr.Const(variable.Null(variable.Single, variable.BaseTypeBoolean)),
		expr.Const(variable.BoolValue(true)),
	)
	v, _ := e.Evaluate(or, fakeContext{})
	if !v.Bool() {
		t.Fatal("expected Or to find the true operand past a null one")
	}
}

func TestEvaluateNotPropagatesNull(t *testing.T) {
	e := expr.NewBasicEngine()
	v, _ := e.Evaluate(expr.Not(expr.Const(variable.Null(variable.Single, variable.BaseTypeBoolean))), fakeContext{})
	if !v.IsNull() {
		t.Fatal("expected Not of a null operand to stay null rather than flip to a boolean")
	}
}

func TestEvaluateSumSkipsNullOperands(t *testing.T) {
	e := expr.NewBasicEngine()
	sum := expr.Sum(
		expr.Const(variable.FloatValue(1.5)),
		expr.Const(variable.IntValue(2)),
		expr.Const(variable.Null(variable.Single, variable.BaseTypeFloat)),
	)
	v, err := e.Evaluate(sum, fakeContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Float() != 3.5 {
		t.Fatalf("expected 3.5, got %v", v.Float())
	}
}

func TestAsBoolTreatsNullAsFalse(t *testing.T) {
	if expr.AsBool(variable.Null(variable.Single, variable.BaseTypeBoolean)) {
		t.Fatal("expected AsBool(null) to be false")
	}
	if !expr.AsBool(variable.BoolValue(true)) {
		t.Fatal("expected AsBool(true) to be true")
	}
}
