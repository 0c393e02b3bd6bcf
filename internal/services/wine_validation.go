// internal/services/wine_validation.go
package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agnarsw/cellar-backend/internal/models"
)

// Bounds for extracted numeric fields. Values outside these ranges are
// treated as extraction mistakes and nulled out individually.
const (
	minVintage    = 1800
	maxVintage    = 2100
	minWindowYear = 1900
	maxWindowYear = 2200
	minScore      = 0
	maxScore      = 100
	minAlcohol    = 0
	maxAlcohol    = 100
)

// ValidateWineData normalizes a raw extraction result into a record-shaped
// Analysis. It never rejects: every malformed or out-of-range field degrades
// to null (or the empty collection) on its own, unknown keys are dropped,
// and an error-shaped input is returned untouched so the failure keeps
// flowing downstream.
func ValidateWineData(raw Analysis) Analysis {
	if _, failed := raw["error"]; failed {
		return raw
	}

	cleaned := Analysis{}

	// Required field
	if name, ok := nonEmptyString(raw["name"]); ok {
		cleaned["name"] = name
	} else {
		cleaned["name"] = "Unknown Wine"
	}

	// String fields
	for _, field := range []string{"producer", "country", "region", "appellation", "description"} {
		if value, ok := nonEmptyString(raw[field]); ok {
			cleaned[field] = value
		} else {
			cleaned[field] = nil
		}
	}

	// Style validation
	if style, ok := nonEmptyString(raw["style"]); ok && models.WineStyle(style).IsValid() {
		cleaned["style"] = style
	} else {
		cleaned["style"] = nil
	}

	// Integer fields
	if vintage, ok := intInRange(raw["vintage"], minVintage, maxVintage); ok {
		cleaned["vintage"] = vintage
	} else {
		cleaned["vintage"] = nil
	}

	// Drinking window, each bound checked on its own
	for _, field := range []string{"drinking_window_start", "drinking_window_end"} {
		if year, ok := intInRange(raw[field], minWindowYear, maxWindowYear); ok {
			cleaned[field] = year
		} else {
			cleaned[field] = nil
		}
	}

	// Score (0-100)
	if score, ok := intInRange(raw["score"], minScore, maxScore); ok {
		cleaned["score"] = score
	} else {
		cleaned["score"] = nil
	}

	// Alcohol percentage
	if alcohol, ok := floatInRange(raw["alcohol_percentage"], minAlcohol, maxAlcohol); ok {
		cleaned["alcohol_percentage"] = alcohol
	} else {
		cleaned["alcohol_percentage"] = nil
	}

	// Grape varieties (array)
	cleaned["grape_varieties"] = stringifyList(raw["grape_varieties"])

	// Tasting notes (object)
	if notes, ok := raw["tasting_notes"].(map[string]interface{}); ok {
		cleaned["tasting_notes"] = notes
	} else {
		cleaned["tasting_notes"] = map[string]interface{}{}
	}

	// Clarification fields
	cleaned["needs_clarification"] = coerceBool(raw["needs_clarification"])
	cleaned["clarification_questions"] = stringifyList(raw["clarification_questions"])

	return cleaned
}

// StringField returns the named field when it holds a non-empty string.
func (a Analysis) StringField(key string) (string, bool) {
	return nonEmptyString(a[key])
}

// IntField returns the named field coerced to an int. JSON numbers arrive as
// float64 and are truncated; numeric strings parse.
func (a Analysis) IntField(key string) (int, bool) {
	return coerceInt(a[key])
}

func nonEmptyString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok && s != ""
}

func coerceInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func coerceFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// coerceBool applies JSON truthiness: false, 0, "", null and empty
// collections are false, anything else is true. Models occasionally emit
// flags as 1 or "yes" instead of a proper bool.
func coerceBool(v interface{}) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case float64:
		return b != 0
	case int:
		return b != 0
	case int64:
		return b != 0
	case string:
		return b != ""
	case []interface{}:
		return len(b) > 0
	case map[string]interface{}:
		return len(b) > 0
	}
	return true
}

func intInRange(v interface{}, lo, hi int) (int, bool) {
	n, ok := coerceInt(v)
	if !ok || n < lo || n > hi {
		return 0, false
	}
	return n, true
}

func floatInRange(v interface{}, lo, hi float64) (float64, bool) {
	f, ok := coerceFloat(v)
	if !ok || f < lo || f > hi {
		return 0, false
	}
	return f, true
}

// stringifyList coerces an untyped array into strings: every truthy element
// is kept in string form, falsy and empty ones are dropped. Anything that is
// not an array becomes an empty list.
func stringifyList(v interface{}) []string {
	out := []string{}

	items, ok := v.([]interface{})
	if !ok {
		return out
	}

	for _, item := range items {
		if !coerceBool(item) {
			continue
		}
		switch s := item.(type) {
		case string:
			out = append(out, s)
		case float64:
			out = append(out, strconv.FormatFloat(s, 'f', -1, 64))
		case bool:
			out = append(out, strconv.FormatBool(s))
		default:
			out = append(out, fmt.Sprintf("%v", item))
		}
	}
	return out
}
