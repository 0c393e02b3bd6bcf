// internal/services/wine_validation_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateWineDataPassesCleanExtraction(t *testing.T) {
	raw := Analysis{
		"name":                  "Barolo Monfortino",
		"producer":              "Giacomo Conterno",
		"vintage":               float64(2015),
		"country":               "Italy",
		"region":                "Piedmont",
		"appellation":           "Barolo DOCG",
		"style":                 "Red",
		"grape_varieties":       []interface{}{"Nebbiolo"},
		"alcohol_percentage":    14.5,
		"drinking_window_start": float64(2025),
		"drinking_window_end":   float64(2050),
		"score":                 float64(97),
		"description":           "Legendary Barolo from a historic producer",
		"tasting_notes": map[string]interface{}{
			"aromas": []interface{}{"tar", "roses"},
			"body":   "Full",
		},
		"needs_clarification":     false,
		"clarification_questions": []interface{}{},
	}

	cleaned := ValidateWineData(raw)

	assert.Equal(t, "Barolo Monfortino", cleaned["name"])
	assert.Equal(t, "Giacomo Conterno", cleaned["producer"])
	assert.Equal(t, 2015, cleaned["vintage"])
	assert.Equal(t, "Red", cleaned["style"])
	assert.Equal(t, []string{"Nebbiolo"}, cleaned["grape_varieties"])
	assert.Equal(t, 14.5, cleaned["alcohol_percentage"])
	assert.Equal(t, 2025, cleaned["drinking_window_start"])
	assert.Equal(t, 2050, cleaned["drinking_window_end"])
	assert.Equal(t, 97, cleaned["score"])
	assert.Equal(t, false, cleaned["needs_clarification"])
	notes, ok := cleaned["tasting_notes"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "Full", notes["body"])
}

func TestValidateWineDataReturnsErrorInputUntouched(t *testing.T) {
	raw := Analysis{"error": "Not a wine label image", "raw_response": "..."}

	cleaned := ValidateWineData(raw)

	assert.Equal(t, "Not a wine label image", cleaned["error"])
	assert.Equal(t, "...", cleaned["raw_response"])
	// No record fields are synthesized on an error result
	assert.NotContains(t, cleaned, "name")
}

func TestValidateWineDataNameFallback(t *testing.T) {
	for _, raw := range []Analysis{
		{},
		{"name": nil},
		{"name": ""},
		{"name": float64(42)},
	} {
		cleaned := ValidateWineData(raw)
		assert.Equal(t, "Unknown Wine", cleaned["name"])
	}
}

func TestValidateWineDataStyleMembership(t *testing.T) {
	cases := map[interface{}]interface{}{
		"Red":       "Red",
		"Rosé":      "Rosé",
		"Orange":    nil,
		"red":       nil, // style comparison is exact
		"":          nil,
		float64(12): nil,
	}

	for input, want := range cases {
		cleaned := ValidateWineData(Analysis{"name": "x", "style": input})
		assert.Equal(t, want, cleaned["style"], "style %v", input)
	}
}

func TestValidateWineDataRangeChecks(t *testing.T) {
	tests := []struct {
		name  string
		field string
		input interface{}
		want  interface{}
	}{
		{"vintage in range", "vintage", float64(1997), 1997},
		{"vintage at lower bound", "vintage", float64(1800), 1800},
		{"vintage too old", "vintage", float64(1799), nil},
		{"vintage too futuristic", "vintage", float64(2101), nil},
		{"vintage from string", "vintage", "2015", 2015},
		{"vintage garbage string", "vintage", "NV", nil},
		{"window start in range", "drinking_window_start", float64(2024), 2024},
		{"window start out of range", "drinking_window_start", float64(1899), nil},
		{"window end out of range", "drinking_window_end", float64(2201), nil},
		{"score zero", "score", float64(0), 0},
		{"score hundred", "score", float64(100), 100},
		{"score negative", "score", float64(-1), nil},
		{"score above hundred", "score", float64(101), nil},
		{"alcohol in range", "alcohol_percentage", 13.5, 13.5},
		{"alcohol over limit", "alcohol_percentage", 101.0, nil},
		{"alcohol from int", "alcohol_percentage", 13, 13.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaned := ValidateWineData(Analysis{"name": "x", tt.field: tt.input})
			assert.Equal(t, tt.want, cleaned[tt.field])
		})
	}
}

func TestValidateWineDataWindowBoundsAreIndependent(t *testing.T) {
	cleaned := ValidateWineData(Analysis{
		"name":                  "x",
		"drinking_window_start": float64(2024),
		"drinking_window_end":   float64(9999),
	})

	assert.Equal(t, 2024, cleaned["drinking_window_start"])
	assert.Nil(t, cleaned["drinking_window_end"])
}

func TestValidateWineDataListCoercion(t *testing.T) {
	cleaned := ValidateWineData(Analysis{
		"name": "x",
		"grape_varieties": []interface{}{
			"Merlot",
			"",
			float64(42),
			float64(0),
			true,
			false,
			nil,
			map[string]interface{}{"not": "a grape"},
			map[string]interface{}{},
		},
	})
	assert.Equal(t, []string{"Merlot", "42", "true", "map[not:a grape]"}, cleaned["grape_varieties"])

	// Non-list input degrades to an empty list
	cleaned = ValidateWineData(Analysis{"name": "x", "grape_varieties": "Merlot"})
	assert.Equal(t, []string{}, cleaned["grape_varieties"])
}

func TestValidateWineDataKeepsStructuredQuestions(t *testing.T) {
	cleaned := ValidateWineData(Analysis{
		"name": "x",
		"clarification_questions": []interface{}{
			"Is this wine red or white?",
			map[string]interface{}{"q": "vintage?"},
		},
	})

	assert.Equal(t,
		[]string{"Is this wine red or white?", "map[q:vintage?]"},
		cleaned["clarification_questions"])
}

func TestValidateWineDataTastingNotesShape(t *testing.T) {
	cleaned := ValidateWineData(Analysis{"name": "x", "tasting_notes": "fruity"})
	assert.Equal(t, map[string]interface{}{}, cleaned["tasting_notes"])
}

func TestValidateWineDataClarification(t *testing.T) {
	cleaned := ValidateWineData(Analysis{
		"name":                    "Santenay",
		"needs_clarification":     true,
		"clarification_questions": []interface{}{"Is this wine red or white?"},
	})

	assert.Equal(t, true, cleaned["needs_clarification"])
	assert.Equal(t, []string{"Is this wine red or white?"}, cleaned["clarification_questions"])
}

func TestValidateWineDataClarificationTruthiness(t *testing.T) {
	// The flag is coerced, not type-checked: models emit 1 or "yes" often
	// enough that a strict bool assertion would silence real questions.
	truthy := []interface{}{true, "yes", float64(1), []interface{}{"q"}}
	for _, input := range truthy {
		cleaned := ValidateWineData(Analysis{"name": "x", "needs_clarification": input})
		assert.Equal(t, true, cleaned["needs_clarification"], "input %v", input)
	}

	falsy := []interface{}{false, nil, "", float64(0), []interface{}{}, map[string]interface{}{}}
	for _, input := range falsy {
		cleaned := ValidateWineData(Analysis{"name": "x", "needs_clarification": input})
		assert.Equal(t, false, cleaned["needs_clarification"], "input %v", input)
	}

	// Absent defaults to false
	cleaned := ValidateWineData(Analysis{"name": "x"})
	assert.Equal(t, false, cleaned["needs_clarification"])
}

func TestValidateWineDataDropsUnknownKeys(t *testing.T) {
	cleaned := ValidateWineData(Analysis{
		"name":    "x",
		"bottler": "should not survive",
		"price":   float64(120),
	})

	assert.NotContains(t, cleaned, "bottler")
	assert.NotContains(t, cleaned, "price")
}
