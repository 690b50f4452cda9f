package gradebook

import (
	"math"
	"sort"
)

// EffectiveWeights returns the weight each active component contributes to the
// final grade. Weights are shrunk proportionally when the active total exceeds
// 100 and are used as-is otherwise.
func EffectiveWeights(components []Component) map[string]float64 {
	total := ActiveWeightTotal(components)
	out := make(map[string]float64, len(components))
	for _, c := range components {
		if !c.IsActive {
			continue
		}
		w := float64(c.WeightPercent)
		if total > 100 {
			w = w / float64(total) * 100
		}
		out[c.ID] = w
	}
	return out
}

// Calculate combines raw component scores into a final percentage in [0,100],
// rounded to two decimals. Ungraded components contribute nothing and their
// weight is not redistributed.
func Calculate(components []Component, scores map[string]float64) float64 {
	weights := EffectiveWeights(components)

	ids := make([]string, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Strings(ids) // fixed summation order

	percent := 0.0
	for _, id := range ids {
		raw, ok := scores[id]
		if !ok {
			continue
		}
		percent += raw * weights[id] / 100
	}
	return round2(clamp(percent, 0, 100))
}

// ActiveWeightTotal sums WeightPercent over active components.
func ActiveWeightTotal(components []Component) int {
	total := 0
	for _, c := range components {
		if c.IsActive {
			total += c.WeightPercent
		}
	}
	return total
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
