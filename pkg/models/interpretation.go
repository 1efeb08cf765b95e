package models

import "fmt"

// Interpretation is the seven-section structured LLM output contract, in
// fixed order.
type Interpretation struct {
	LineByLineInterpretation string `json:"line_by_line_interpretation"`
	OverallDevelopment       string `json:"overall_development"`
	PositiveFactors          string `json:"positive_factors"`
	Challenges               string `json:"challenges"`
	SuggestedActions         string `json:"suggested_actions"`
	SupplementaryNotes       string `json:"supplementary_notes"`
	Conclusion               string `json:"conclusion"`
}

// minLengths maps each section name to its minimum character count.
var minLengths = map[string]int{
	"line_by_line_interpretation": 100,
	"overall_development":         50,
	"positive_factors":            50,
	"challenges":                  50,
	"suggested_actions":           50,
	"supplementary_notes":         30,
	"conclusion":                  30,
}

// Validate enforces the per-section length minimums the structured-output
// contract requires. It returns the first violation found.
func (i Interpretation) Validate() error {
	sections := []struct {
		name  string
		value string
	}{
		{"line_by_line_interpretation", i.LineByLineInterpretation},
		{"overall_development", i.OverallDevelopment},
		{"positive_factors", i.PositiveFactors},
		{"challenges", i.Challenges},
		{"suggested_actions", i.SuggestedActions},
		{"supplementary_notes", i.SupplementaryNotes},
		{"conclusion", i.Conclusion},
	}
	for _, s := range sections {
		min := minLengths[s.name]
		if len([]rune(s.value)) < min {
			return fmt.Errorf("section %q must be at least %d characters, got %d", s.name, min, len([]rune(s.value)))
		}
	}
	return nil
}
