package util

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reDigits    = regexp.MustCompile(`\d+`)
	reEdgeNoise = regexp.MustCompile(`^[^A-Za-z]+|[^A-Za-z]+$`)
)

// NormalizeCell trims a spreadsheet cell and folds it to NFC so visually equal
// labels compare equal.
func NormalizeCell(input string) string {
	s := strings.ReplaceAll(input, "\u00A0", " ")
	return strings.TrimSpace(norm.NFC.String(s))
}

func FirstToken(input string) string {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Capitalize upper-cases the first rune and lower-cases the rest.
func Capitalize(input string) string {
	if input == "" {
		return ""
	}
	runes := []rune(strings.ToLower(input))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// StripEdgeNoise removes leading and trailing characters that are not ASCII letters.
func StripEdgeNoise(input string) string {
	return reEdgeNoise.ReplaceAllString(strings.TrimSpace(input), "")
}

// FirstInt returns the first run of decimal digits in input. A run too large
// for int is clamped to math.MaxInt.
func FirstInt(input string) (int, bool) {
	m := reDigits.FindString(input)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt, true
	}
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseCount extracts a non-negative count from a numeric-like cell, 0 when
// none or when the digits overflow int.
func ParseCount(input string) int {
	n, err := strconv.Atoi(reDigits.FindString(input))
	if err != nil {
		return 0
	}
	return n
}

func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func IntPtr(v int) *int { return &v }
