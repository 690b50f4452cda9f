package gradebook

import "testing"

func TestLetter(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{100, "A+"},
		{97, "A+"},
		{96.99, "A"},
		{93, "A"},
		{92.99, "A-"},
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
		{59.99, "F"},
		{0, "F"},
		{-5, "F"},
	}
	for _, tt := range tests {
		if got := Letter(tt.percent); got != tt.want {
			t.Errorf("Letter(%v) = %q, want %q", tt.percent, got, tt.want)
		}
	}
}

func TestLetterFor(t *testing.T) {
	if got := LetterFor(nil); got != "F" {
		t.Fatalf("LetterFor(nil) = %q, want F", got)
	}
	p := 88.5
	if got := LetterFor(&p); got != "B+" {
		t.Fatalf("LetterFor(88.5) = %q, want B+", got)
	}
}
