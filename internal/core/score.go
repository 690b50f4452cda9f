package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
)

// ParseScore normalizes an upstream score payload into a percentage.
// nil and blank strings mean "ungraded" and yield a nil result.
func ParseScore(v any) (*float64, error) {
	f, ok, err := toFloat(v)
	if err != nil {
		return nil, Invalid("score", err.Error())
	}
	if !ok {
		return nil, nil
	}
	if f < MinScore || f > MaxScore {
		return nil, Invalid("score", fmt.Sprintf("must be between %g and %g, got %g", MinScore, MaxScore, f))
	}
	return &f, nil
}

// ParsePoints normalizes a manual question score into whole points within
// [0, max]. Fractional values are rejected.
func ParsePoints(v any, max int) (int, error) {
	f, ok, err := toFloat(v)
	if err != nil {
		return 0, Invalid("score", err.Error())
	}
	if !ok {
		return 0, Invalid("score", "is required")
	}
	if f != math.Trunc(f) {
		return 0, Invalid("score", fmt.Sprintf("must be a whole number of points, got %g", f))
	}
	if f < 0 || f > float64(max) {
		return 0, Invalid("score", fmt.Sprintf("must be between 0 and %d, got %g", max, f))
	}
	return int(f), nil
}

// RequireID returns a validation error when id is blank.
func RequireID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return Invalid(field, "is required")
	}
	return nil
}

func toFloat(v any) (float64, bool, error) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, false, nil
	case *float64:
		if t == nil {
			return 0, false, nil
		}
		f = *t
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int8:
		f = float64(t)
	case int16:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint8:
		f = float64(t)
	case uint16:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		p, err := t.Float64()
		if err != nil {
			return 0, false, fmt.Errorf("not a number: %q", t.String())
		}
		f = p
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false, nil
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, fmt.Errorf("not a number: %q", t)
		}
		f = p
	default:
		return 0, false, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("not a finite number")
	}
	return f, true, nil
}
