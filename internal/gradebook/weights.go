package gradebook

import "strings"

// DefaultWeightPercent is used for component types with no entry in typeWeights.
const DefaultWeightPercent = 10

var typeWeights = map[string]int{
	"quiz":       5,
	"homework":   10,
	"assignment": 10,
	"lab":        10,
	"project":    25,
	"midterm":    20,
	"exam":       20,
	"final":      20,
}

// DefaultWeight returns the starting weight for an auto-created component of
// the given type.
func DefaultWeight(typ string) int {
	if w, ok := typeWeights[strings.ToLower(strings.TrimSpace(typ))]; ok {
		return w
	}
	return DefaultWeightPercent
}

// CapWeight reduces weight so that currentTotal+weight stays within 100. The
// result is never below 1.
func CapWeight(weight, currentTotal int) int {
	if currentTotal+weight <= 100 {
		return weight
	}
	return max(1, 100-currentTotal)
}
