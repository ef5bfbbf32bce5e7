package testdriver_test

import (
	"time"

	"github.com/mind-engage/qti-testengine/internal/testdriver"
	"github.com/mind-engage/qti-testengine/pkg/expr"
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
	"github.com/mind-engage/qti-testengine/pkg/route"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

func responseDecl(correct variable.Value) variable.Declaration {
	return variable.Declaration{
		Identifier:      "RESPONSE",
		Cardinality:     variable.Single,
		BaseType:        correct.BaseType,
		Kind:            variable.KindResponse,
		DefaultValue:    variable.Null(variable.Single, correct.BaseType),
		CorrectResponse: &correct,
	}
}

func scoreDecl() variable.Declaration {
	return variable.Declaration{
		Identifier:   "SCORE",
		Cardinality:  variable.Single,
		BaseType:     variable.BaseTypeFloat,
		Kind:         variable.KindOutcome,
		DefaultValue: variable.FloatValue(0),
	}
}

func totalScoreDecl() variable.Declaration {
	return variable.Declaration{
		Identifier:   "TOTALSCORE",
		Cardinality:  variable.Single,
		BaseType:     variable.BaseTypeFloat,
		Kind:         variable.KindOutcome,
		DefaultValue: variable.FloatValue(0),
	}
}

func buildItem(id string, correct variable.Value) *qtimodel.AssessmentItemRef {
	return &qtimodel.AssessmentItemRef{
		Identifier:           id,
		ResponseDeclarations: []variable.Declaration{responseDecl(correct)},
		OutcomeDeclarations:  []variable.Declaration{scoreDecl()},
	}
}

// buildLinearQuiz is a two-item LINEAR/INDIVIDUAL test scored by
// defaultResponseProcessing and summed into TOTALSCORE.
func buildLinearQuiz() *qtimodel.AssessmentTest {
	item1 := buildItem("item1", variable.IdentValue("ChoiceA"))
	item2 := buildItem("item2", variable.IdentValue("ChoiceB"))
	section := &qtimodel.AssessmentSection{Identifier: "section1", ItemRefs: []*qtimodel.AssessmentItemRef{item1, item2}}
	part := &qtimodel.TestPart{
		Identifier: "part1", NavigationMode: qtimodel.Linear, SubmissionMode: qtimodel.Individual,
		Sections: []*qtimodel.AssessmentSection{section},
	}
	return &qtimodel.AssessmentTest{
		Identifier:          "linear-quiz",
		TestParts:           []*qtimodel.TestPart{part},
		OutcomeDeclarations: []variable.Declaration{totalScoreDecl()},
		OutcomeProcessingRules: []qtimodel.OutcomeRule{
			{Identifier: "TOTALSCORE", Expression: expr.Sum(expr.Variable("item1.SCORE"), expr.Variable("item2.SCORE"))},
		},
	}
}

// buildSimultaneousQuiz is the NONLINEAR/SIMULTANEOUS analogue: responses
// are only committed (and TOTALSCORE recomputed) at moveNextTestPart.
func buildSimultaneousQuiz() *qtimodel.AssessmentTest {
	item1 := buildItem("item1", variable.IdentValue("ChoiceA"))
	item2 := buildItem("item2", variable.IdentValue("ChoiceB"))
	section := &qtimodel.AssessmentSection{Identifier: "section1", ItemRefs: []*qtimodel.AssessmentItemRef{item1, item2}}
	part := &qtimodel.TestPart{
		Identifier: "part1", NavigationMode: qtimodel.NonLinear, SubmissionMode: qtimodel.Simultaneous,
		Sections: []*qtimodel.AssessmentSection{section},
	}
	return &qtimodel.AssessmentTest{
		Identifier:          "simultaneous-quiz",
		TestParts:           []*qtimodel.TestPart{part},
		OutcomeDeclarations: []variable.Declaration{totalScoreDecl()},
		OutcomeProcessingRules: []qtimodel.OutcomeRule{
			{Identifier: "TOTALSCORE", Expression: expr.Sum(expr.Variable("item1.SCORE"), expr.Variable("item2.SCORE"))},
		},
	}
}

// buildBranchingTest has three items where item1 unconditionally branches
// past item2 straight to item3.
func buildBranchingTest() *qtimodel.AssessmentTest {
	item1 := buildItem("item1", variable.IdentValue("ChoiceA"))
	item2 := buildItem("item2", variable.IdentValue("ChoiceA"))
	item3 := buildItem("item3", variable.IdentValue("ChoiceA"))
	item1.BranchRules = []qtimodel.BranchRule{
		{Target: "item3", Expression: expr.Const(variable.BoolValue(true))},
	}
	section := &qtimodel.AssessmentSection{Identifier: "section1", ItemRefs: []*qtimodel.AssessmentItemRef{item1, item2, item3}}
	part := &qtimodel.TestPart{
		Identifier: "part1", NavigationMode: qtimodel.Linear, SubmissionMode: qtimodel.Individual,
		Sections: []*qtimodel.AssessmentSection{section},
	}
	return &qtimodel.AssessmentTest{Identifier: "branching-quiz", TestParts: []*qtimodel.TestPart{part}}
}

// buildPreconditionTest has item2 gated on TOTALSCORE > 0 (false unless
// item1 was just answered correctly); item3 is unconditional, so the route
// lands there directly whenever item2 is skipped.
func buildPreconditionTest() *qtimodel.AssessmentTest {
	item1 := buildItem("item1", variable.IdentValue("ChoiceA"))
	item2 := buildItem("item2", variable.IdentValue("ChoiceA"))
	item3 := buildItem("item3", variable.IdentValue("ChoiceA"))
	item2.PreConditions = []qtimodel.PreCondition{
		{Expression: expr.Gt(expr.Variable("TOTALSCORE"), expr.Const(variable.FloatValue(0)))},
	}
	section := &qtimodel.AssessmentSection{Identifier: "section1", ItemRefs: []*qtimodel.AssessmentItemRef{item1, item2, item3}}
	part := &qtimodel.TestPart{
		Identifier: "part1", NavigationMode: qtimodel.Linear, SubmissionMode: qtimodel.Individual,
		Sections: []*qtimodel.AssessmentSection{section},
	}
	return &qtimodel.AssessmentTest{
		Identifier:          "precondition-quiz",
		TestParts:           []*qtimodel.TestPart{part},
		OutcomeDeclarations: []variable.Declaration{totalScoreDecl()},
		OutcomeProcessingRules: []qtimodel.OutcomeRule{
			{Identifier: "TOTALSCORE", Expression: expr.Sum(expr.Variable("item1.SCORE"))},
		},
	}
}

// buildTimedTest sets a 10s maxTime at the testPart scope.
func buildTimedTest() *qtimodel.AssessmentTest {
	item1 := buildItem("item1", variable.IdentValue("ChoiceA"))
	section := &qtimodel.AssessmentSection{Identifier: "section1", ItemRefs: []*qtimodel.AssessmentItemRef{item1}}
	maxTime := 10 * time.Second
	part := &qtimodel.TestPart{
		Identifier: "part1", NavigationMode: qtimodel.Linear, SubmissionMode: qtimodel.Individual,
		Sections: []*qtimodel.AssessmentSection{section}, TimeLimits: &qtimodel.TimeLimits{MaxTime: &maxTime},
	}
	return &qtimodel.AssessmentTest{Identifier: "timed-quiz", TestParts: []*qtimodel.TestPart{part}}
}

func newSession(test *qtimodel.AssessmentTest, cfg testdriver.Config) *testdriver.TestSession {
	rt := route.Build(test)
	return testdriver.New(test, rt, nil, nil, cfg)
}
