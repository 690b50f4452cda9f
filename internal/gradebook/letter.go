package gradebook

var letterBreakpoints = []struct {
	min    float64
	letter string
}{
	{97, "A+"},
	{93, "A"},
	{90, "A-"},
	{87, "B+"},
	{83, "B"},
	{80, "B-"},
	{77, "C+"},
	{73, "C"},
	{70, "C-"},
	{67, "D+"},
	{63, "D"},
	{60, "D-"},
}

// Letter maps a percentage to a letter grade. Anything below 60, including
// negative input, is an F.
func Letter(percent float64) string {
	for _, bp := range letterBreakpoints {
		if percent >= bp.min {
			return bp.letter
		}
	}
	return "F"
}

// LetterFor is Letter for an optional percentage; nil maps to F.
func LetterFor(percent *float64) string {
	if percent == nil {
		return "F"
	}
	return Letter(*percent)
}
