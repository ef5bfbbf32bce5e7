// Package expr defines C8, the ExpressionEngine interface the driver
// invokes for branchRule conditions, preConditions, and templateDefaults/
// templateProcessing (core.v1 §4.7), plus BasicEngine, a small reference
// implementation sufficient to exercise that contract end to end. The
// actual expression language is out of scope (§1); production deployments
// supply their own Engine.
package expr

import (
	"github.com/mind-engage/qti-testengine/pkg/qerr"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

// Context is the minimal view of the test session an expression needs to
// resolve a variable reference. internal/testdriver.TestSession implements
// this so pkg/expr never imports the driver package.
type Context interface {
	Get(identifier string) (variable.Value, error)
}

// Engine evaluates a single expression against the current test-session
// scope (§4.7). It is a pure function object; the core consumes it in
// exactly three contexts: branchRule conditions, preConditions, and
// templateDefaults/templateProcessing.
type Engine interface {
	Evaluate(expression any, ctx Context) (variable.Value, error)
}

// Kind enumerates the expression shapes BasicEngine understands, grounded
// on the QTI operators a test-control rule actually needs: variable lookup,
// constants, equality/containment match, numeric comparison, null test, and
// boolean combinators.
type Kind int

const (
	KindVariable Kind = iota
	KindConst
	KindMatch
	KindGt
	KindLt
	KindIsNull
	KindAnd
	KindOr
	KindNot
	KindSum
)

// Expr is BasicEngine's concrete expression representation.
type Expr struct {
	Kind       Kind
	Identifier string         // KindVariable
	Value      variable.Value // KindConst
	Args       []Expr         // operands for Match/Gt/Lt/IsNull/And/Or/Not/Sum
}

func Variable(identifier string) Expr { return Expr{Kind: KindVariable, Identifier: identifier} }
func Const(v variable.Value) Expr     { return Expr{Kind: KindConst, Value: v} }
func Match(a, b Expr) Expr            { return Expr{Kind: KindMatch, Args: []Expr{a, b}} }
func Gt(a, b Expr) Expr               { return Expr{Kind: KindGt, Args: []Expr{a, b}} }
func Lt(a, b Expr) Expr               { return Expr{Kind: KindLt, Args: []Expr{a, b}} }
func IsNull(a Expr) Expr              { return Expr{Kind: KindIsNull, Args: []Expr{a}} }
func And(args ...Expr) Expr           { return Expr{Kind: KindAnd, Args: args} }
func Or(args ...Expr) Expr            { return Expr{Kind: KindOr, Args: args} }
func Not(a Expr) Expr                 { return Expr{Kind: KindNot, Args: []Expr{a}} }
func Sum(args ...Expr) Expr           { return Expr{Kind: KindSum, Args: args} }

// BasicEngine is the reference Engine implementation. It dispatches by
// expression Kind the way the teacher's grading.defaultGrader dispatches by
// question type to a Strategy.
type BasicEngine struct{}

func NewBasicEngine() *BasicEngine { return &BasicEngine{} }

func (e *BasicEngine) Evaluate(expression any, ctx Context) (variable.Value, error) {
	ex, ok := expression.(Expr)
	if !ok {
		return variable.Value{}, qerr.New(qerr.LogicError, "", "BasicEngine cannot evaluate this expression type")
	}
	return e.eval(ex, ctx)
}

func (e *BasicEngine) eval(ex Expr, ctx Context) (variable.Value, error) {
	switch ex.Kind {
	case KindVariable:
		return ctx.Get(ex.Identifier)
	case KindConst:
		return ex.Value, nil
	case KindMatch:
		a, err := e.eval(ex.Args[0], ctx)
		if err != nil {
			return variable.Value{}, err
		}
		b, err := e.eval(ex.Args[1], ctx)
		if err != nil {
			return variable.Value{}, err
		}
		return variable.BoolValue(a.Equal(b)), nil
	case KindGt, KindLt:
		a, err := e.eval(ex.Args[0], ctx)
		if err != nil {
			return variable.Value{}, err
		}
		b, err := e.eval(ex.Args[1], ctx)
		if err != nil {
			return variable.Value{}, err
		}
		if a.IsNull() || b.IsNull() {
			return variable.Null(variable.Single, variable.BaseTypeBoolean), nil
		}
		af, bf := numeric(a), numeric(b)
		if ex.Kind == KindGt {
			return variable.BoolValue(af > bf), nil
		}
		return variable.BoolValue(af < bf), nil
	case KindIsNull:
		a, err := e.eval(ex.Args[0], ctx)
		if err != nil {
			return variable.Value{}, err
		}
		return variable.BoolValue(a.IsNull()), nil
	case KindAnd:
		for _, arg := range ex.Args {
			v, err := e.eval(arg, ctx)
			if err != nil {
				return variable.Value{}, err
			}
			if v.IsNull() || !v.Bool() {
				return variable.BoolValue(false), nil
			}
		}
		return variable.BoolValue(true), nil
	case KindOr:
		for _, arg := range ex.Args {
			v, err := e.eval(arg, ctx)
			if err != nil {
				return variable.Value{}, err
			}
			if !v.IsNull() && v.Bool() {
				return variable.BoolValue(true), nil
			}
		}
		return variable.BoolValue(false), nil
	case KindNot:
		a, err := e.eval(ex.Args[0], ctx)
		if err != nil {
			return variable.Value{}, err
		}
		if a.IsNull() {
			return a, nil
		}
		return variable.BoolValue(!a.Bool()), nil
	case KindSum:
		var total float64
		for _, arg := range ex.Args {
			v, err := e.eval(arg, ctx)
			if err != nil {
				return variable.Value{}, err
			}
			if v.IsNull() {
				continue
			}
			total += numeric(v)
		}
		return variable.FloatValue(total), nil
	}
	return variable.Value{}, qerr.New(qerr.LogicError, "", "unknown expression kind")
}

func numeric(v variable.Value) float64 {
	if v.BaseType == variable.BaseTypeInteger {
		return float64(v.Int())
	}
	return v.Float()
}

// AsBool extracts a boolean scalar result, the shape branchRule/preCondition
// evaluation requires; a null result is treated as false (no match).
func AsBool(v variable.Value) bool {
	return !v.IsNull() && v.Bool()
}
