package grading

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var boolSynonyms = map[string]bool{
	"true": true, "1": true, "yes": true, "t": true, "y": true,
	"false": false, "0": false, "no": false, "f": false, "n": false,
}

// parseBool maps a true/false answer through the synonym table. Unknown
// values read as false.
func parseBool(s string) bool {
	return boolSynonyms[strings.ToLower(strings.TrimSpace(s))]
}

// normalize trims s and puts it in NFC form so composed and decomposed
// accents compare equal. Unless caseSensitive, the result is case folded.
func normalize(s string, caseSensitive bool) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	if caseSensitive {
		return s
	}
	// Casers are stateful; build one per call.
	return cases.Fold().String(s)
}
