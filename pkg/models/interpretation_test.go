package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpretationValidateRejectsShortSection(t *testing.T) {
	i := Interpretation{
		LineByLineInterpretation: strings.Repeat("a", 100),
		OverallDevelopment:       strings.Repeat("b", 50),
		PositiveFactors:          strings.Repeat("c", 50),
		Challenges:               strings.Repeat("d", 50),
		SuggestedActions:         strings.Repeat("e", 50),
		SupplementaryNotes:       strings.Repeat("f", 30),
		Conclusion:               "too short",
	}
	assert.Error(t, i.Validate())
}

func TestInterpretationValidateAcceptsExactMinimums(t *testing.T) {
	i := Interpretation{
		LineByLineInterpretation: strings.Repeat("a", 100),
		OverallDevelopment:       strings.Repeat("b", 50),
		PositiveFactors:          strings.Repeat("c", 50),
		Challenges:               strings.Repeat("d", 50),
		SuggestedActions:         strings.Repeat("e", 50),
		SupplementaryNotes:       strings.Repeat("f", 30),
		Conclusion:               strings.Repeat("g", 30),
	}
	assert.NoError(t, i.Validate())
}
