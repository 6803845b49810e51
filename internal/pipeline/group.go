package pipeline

import (
	"sort"
	"strconv"
	"strings"

	"streamstats/internal"
	"streamstats/internal/util"
)

type groupKey struct {
	instructor string
	course     string
	section    string
}

// GroupBookings collapses one-row-per-booking sheets into one record per
// (instructor, course, section). Excluded courses are removed first.
func GroupBookings(rows []internal.RawRecord, n *Normalizer) []internal.GroupedRecord {
	type bucket struct {
		count      int
		enrollment string
		languages  []string
		seen       map[string]struct{}
	}

	buckets := map[groupKey]*bucket{}
	for _, row := range rows {
		course := strings.TrimSpace(row.Course)
		if n.Excluded(course) {
			continue
		}
		key := groupKey{
			instructor: strings.TrimSpace(row.Uniquename),
			course:     course,
			section:    strings.TrimSpace(row.Section),
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{seen: map[string]struct{}{}}
			buckets[key] = b
		}
		b.count++
		if b.enrollment == "" && strings.TrimSpace(row.Enrollment) != "" {
			b.enrollment = row.Enrollment
		}
		if lang := strings.TrimSpace(row.Language); lang != "" {
			if _, dup := b.seen[lang]; !dup {
				b.seen[lang] = struct{}{}
				b.languages = append(b.languages, lang)
			}
		}
	}

	keys := make([]groupKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].instructor != keys[j].instructor {
			return keys[i].instructor < keys[j].instructor
		}
		if keys[i].course != keys[j].course {
			return keys[i].course < keys[j].course
		}
		return keys[i].section < keys[j].section
	})

	out := make([]internal.GroupedRecord, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		section := k.section
		if section == "" {
			section = UnknownSection
		}
		out = append(out, internal.GroupedRecord{
			Instructor:   k.instructor,
			Course:       k.course,
			Section:      section,
			Language:     strings.Join(b.languages, ", "),
			Reservations: b.count,
			Students:     util.ParseCount(b.enrollment),
		})
	}
	return out
}

// GroupedToRaw feeds a grouped record back through the common normalizer.
func GroupedToRaw(g internal.GroupedRecord) internal.RawRecord {
	return internal.RawRecord{
		Course:           g.Course,
		Language:         g.Language,
		Enrollment:       strconv.Itoa(g.Students),
		Uniquename:       g.Instructor,
		Section:          g.Section,
		ReservationCount: util.IntPtr(g.Reservations),
	}
}
