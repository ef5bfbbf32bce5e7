package main

import (
	"github.com/mind-engage/qti-testengine/pkg/expr"
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

// demoTests returns the AssessmentTest catalog this binary serves. XML
// parsing is out of scope for the engine (core.v1 §1), so cmd/qtiengine
// stands in for an authoring tool with a couple of hand-built trees, the
// same role the teacher's in-memory item store plays for SubmitItem/
// GetItem in services/assessment-service.
func demoTests() []*qtimodel.AssessmentTest {
	return []*qtimodel.AssessmentTest{buildLinearQuiz()}
}

// buildLinearQuiz is a two-item LINEAR/INDIVIDUAL test: a single-choice
// identifier response and an integer response, each scored against a
// correctResponse by defaultResponseProcessing, summed into a test-level
// TOTALSCORE by outcomeProcessing.
func buildLinearQuiz() *qtimodel.AssessmentTest {
	choiceCorrect := variable.IdentValue("ChoiceA")
	item1 := &qtimodel.AssessmentItemRef{
		Identifier:           "item1",
		Href:                 "items/item1.xml",
		FixedOccurrenceCount: 1,
		ResponseDeclarations: []variable.Declaration{{
			Identifier:      "RESPONSE",
			Cardinality:     variable.Single,
			BaseType:        variable.BaseTypeIdentifier,
			Kind:            variable.KindResponse,
			DefaultValue:    variable.Null(variable.Single, variable.BaseTypeIdentifier),
			CorrectResponse: &choiceCorrect,
		}},
		OutcomeDeclarations: []variable.Declaration{{
			Identifier:   "SCORE",
			Cardinality:  variable.Single,
			BaseType:     variable.BaseTypeFloat,
			Kind:         variable.KindOutcome,
			DefaultValue: variable.FloatValue(0),
		}},
	}

	intCorrect := variable.IntValue(42)
	item2 := &qtimodel.AssessmentItemRef{
		Identifier:           "item2",
		Href:                 "items/item2.xml",
		FixedOccurrenceCount: 1,
		ResponseDeclarations: []variable.Declaration{{
			Identifier:      "RESPONSE",
			Cardinality:     variable.Single,
			BaseType:        variable.BaseTypeInteger,
			Kind:            variable.KindResponse,
			DefaultValue:    variable.Null(variable.Single, variable.BaseTypeInteger),
			CorrectResponse: &intCorrect,
		}},
		OutcomeDeclarations: []variable.Declaration{{
			Identifier:   "SCORE",
			Cardinality:  variable.Single,
			BaseType:     variable.BaseTypeFloat,
			Kind:         variable.KindOutcome,
			DefaultValue: variable.FloatValue(0),
		}},
	}

	section := &qtimodel.AssessmentSection{
		Identifier: "section1",
		ItemRefs:   []*qtimodel.AssessmentItemRef{item1, item2},
	}
	part := &qtimodel.TestPart{
		Identifier:     "part1",
		NavigationMode: qtimodel.Linear,
		SubmissionMode: qtimodel.Individual,
		Sections:       []*qtimodel.AssessmentSection{section},
	}

	return &qtimodel.AssessmentTest{
		Identifier: "demo-linear-quiz",
		TestParts:  []*qtimodel.TestPart{part},
		OutcomeDeclarations: []variable.Declaration{{
			Identifier:   "TOTALSCORE",
			Cardinality:  variable.Single,
			BaseType:     variable.BaseTypeFloat,
			Kind:         variable.KindOutcome,
			DefaultValue: variable.FloatValue(0),
		}},
		OutcomeProcessingRules: []qtimodel.OutcomeRule{{
			Identifier: "TOTALSCORE",
			Expression: expr.Sum(expr.Variable("item1.SCORE"), expr.Variable("item2.SCORE")),
		}},
	}
}
