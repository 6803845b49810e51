package util

import (
	"math"
	"testing"
)

func TestParseCount(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  int
	}{
		{name: "plain", input: "12", want: 12},
		{name: "with suffix", input: "45 students", want: 45},
		{name: "leading noise", input: "~ 30", want: 30},
		{name: "first run only", input: "12-15", want: 12},
		{name: "decimal from excel", input: "7.0", want: 7},
		{name: "no digits", input: "TBD", want: 0},
		{name: "empty", input: "", want: 0},
		{name: "overflow", input: "99999999999999999999999", want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseCount(tc.input); got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}

func TestCapitalize(t *testing.T) {
	cases := map[string]string{
		"SPAN":     "Span",
		"asianlan": "Asianlan",
		"f":        "F",
		"":         "",
		"élan":     "Élan",
	}
	for in, want := range cases {
		if got := Capitalize(in); got != want {
			t.Fatalf("Capitalize(%q)=%q want %q", in, got, want)
		}
	}
}

func TestStripEdgeNoise(t *testing.T) {
	cases := map[string]string{
		"(French)":  "French",
		"12Korean!": "Korean",
		"Japanese,": "Japanese",
		"--":        "",
		"o'neil":    "o'neil",
	}
	for in, want := range cases {
		if got := StripEdgeNoise(in); got != want {
			t.Fatalf("StripEdgeNoise(%q)=%q want %q", in, got, want)
		}
	}
}

func TestFirstToken(t *testing.T) {
	if got := FirstToken("  SPAN   231 "); got != "SPAN" {
		t.Fatalf("got %q", got)
	}
	if got := FirstToken("   "); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeCell(t *testing.T) {
	decomposed := "Franc\u0327ais"
	if got := NormalizeCell(" " + decomposed + " "); got != "Français" {
		t.Fatalf("got %q", got)
	}
}

func TestFirstInt(t *testing.T) {
	cases := []struct {
		input string
		want  int
		ok    bool
	}{
		{"SPAN 230", 230, true},
		{"no digits", 0, false},
		{"SPAN 99999999999999999999999", math.MaxInt, true},
	}
	for _, tc := range cases {
		got, ok := FirstInt(tc.input)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("FirstInt(%q) = %d, %v", tc.input, got, ok)
		}
	}
}
