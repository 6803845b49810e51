package pipeline

import (
	"strconv"
	"strings"

	"streamstats/internal"
	"streamstats/internal/util"
)

const (
	UnknownLabel   = "Unknown"
	OtherLanguage  = "Other"
	UnknownSection = "Unknown Section"
)

// Lookup tables are keyed by lower-case text.
var (
	UmbrellaDepartments = map[string]struct{}{
		"asianlan": {},
		"slavic":   {},
		"asian":    {},
	}

	DepartmentCorrections = map[string]string{
		"asain": "asian",
	}

	LanguageCorrections = map[string]string{
		"frecnh": "french",
	}

	LanguageNullMarkers = map[string]struct{}{
		"nan":  {},
		"null": {},
		"none": {},
	}

	ExclusionKeywords = map[internal.SourceFormat][]string{
		internal.FormatDirect:  {"practice"},
		internal.FormatGrouped: {"testcourse"},
	}
)

type Normalizer struct {
	format   internal.SourceFormat
	excluded []string
}

func NewNormalizer(format internal.SourceFormat) *Normalizer {
	return &Normalizer{format: format, excluded: ExclusionKeywords[format]}
}

func (n *Normalizer) Format() internal.SourceFormat {
	return n.format
}

// Excluded reports whether a course is dropped before aggregation.
func (n *Normalizer) Excluded(course string) bool {
	course = strings.TrimSpace(course)
	if course == "" {
		return true
	}
	for _, kw := range n.excluded {
		if util.ContainsFold(course, kw) {
			return true
		}
	}
	return false
}

// Normalize maps one raw row to its canonical form. The boolean is false when
// the row must be dropped.
func (n *Normalizer) Normalize(raw internal.RawRecord) (internal.NormalizedRecord, bool) {
	course := strings.TrimSpace(raw.Course)
	if n.Excluded(course) {
		return internal.NormalizedRecord{}, false
	}

	department := Department(course)
	if _, ok := UmbrellaDepartments[strings.ToLower(department)]; ok {
		if language, ok := Language(raw.Language); ok {
			department = department + ": " + language
		} else {
			department = department + ": " + OtherLanguage
		}
	}

	reservations := util.ParseCount(raw.Reservations)
	if raw.ReservationCount != nil {
		reservations = max(*raw.ReservationCount, 0)
	}

	return internal.NormalizedRecord{
		Department:   department,
		Level:        Level(course),
		Students:     util.ParseCount(raw.Enrollment),
		Reservations: reservations,
	}, true
}

func Department(course string) string {
	token := strings.ToLower(util.FirstToken(course))
	if token == "" {
		return UnknownLabel
	}
	if fixed, ok := DepartmentCorrections[token]; ok {
		token = fixed
	}
	return util.Capitalize(token)
}

func Level(course string) string {
	num, ok := util.FirstInt(course)
	if !ok {
		return UnknownLabel
	}
	return strconv.Itoa((num / 100) * 100)
}

// Language returns the cleaned primary language, or false when the cell is
// blank or a null marker.
func Language(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if _, ok := LanguageNullMarkers[strings.ToLower(raw)]; ok {
		return "", false
	}

	name := strings.ToLower(util.StripEdgeNoise(util.FirstToken(raw)))
	if name == "" {
		return UnknownLabel, true
	}
	if fixed, ok := LanguageCorrections[name]; ok {
		name = fixed
	}
	return util.Capitalize(name), true
}
