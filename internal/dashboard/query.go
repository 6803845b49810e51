// Package dashboard answers the read-only questions the streaming dashboard asks
// of a published document. Nothing here mutates the document; every roll-up is
// recomputed per call.
package dashboard

import (
	"cmp"
	"slices"
	"strconv"

	"streamstats/internal/pipeline"
)

const (
	AllTerms       = "All Terms"
	AllDepartments = "All Departments"
)

type Metric string

const (
	Students     Metric = "students"
	Reservations Metric = "reservations"
)

// Row is one flattened (term, department, level) cell of the document. Fields
// that do not apply to a view are left empty.
type Row struct {
	Term         string
	Department   string
	Level        string
	Students     int
	Reservations int
}

func (r Row) Value(m Metric) int {
	if m == Reservations {
		return r.Reservations
	}
	return r.Students
}

type Totals struct {
	Students     int
	Reservations int
}

func TermOptions(doc *pipeline.Document, order []string) []string {
	return append([]string{AllTerms}, pipeline.OrderTerms(doc.TermNames(), order)...)
}

func AllTermsRows(doc *pipeline.Document, order []string) []Row {
	var out []Row
	for _, name := range pipeline.OrderTerms(doc.TermNames(), order) {
		term, _ := doc.Term(name)
		for _, deptName := range sortedKeys(term.Departments) {
			dept := term.Departments[deptName]
			for _, level := range SortLevels(keys(dept.Levels)) {
				counts := dept.Levels[level]
				out = append(out, Row{
					Term:         name,
					Department:   deptName,
					Level:        level,
					Students:     counts.Students,
					Reservations: counts.Reservations,
				})
			}
		}
	}
	return out
}

func SumRows(rows []Row) Totals {
	var t Totals
	for _, r := range rows {
		t.Students += r.Students
		t.Reservations += r.Reservations
	}
	return t
}

// TopDepartmentsByMean ranks departments by the mean of metric over their rows.
func TopDepartmentsByMean(rows []Row, metric Metric, n int) []string {
	type acc struct {
		sum   int
		count int
	}
	byDept := map[string]*acc{}
	for _, r := range rows {
		a, ok := byDept[r.Department]
		if !ok {
			a = &acc{}
			byDept[r.Department] = a
		}
		a.sum += r.Value(metric)
		a.count++
	}

	names := keys(byDept)
	mean := func(name string) float64 {
		a := byDept[name]
		return float64(a.sum) / float64(a.count)
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(mean(b), mean(a)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return limit(names, n)
}

// Series sums metric per (term, department) for the given departments, in row order.
func Series(rows []Row, departments []string) []Row {
	wanted := map[string]struct{}{}
	for _, d := range departments {
		wanted[d] = struct{}{}
	}
	type key struct{ term, dept string }
	idx := map[key]int{}
	var out []Row
	for _, r := range rows {
		if _, ok := wanted[r.Department]; !ok {
			continue
		}
		k := key{r.Term, r.Department}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, Row{Term: r.Term, Department: r.Department})
		}
		out[i].Students += r.Students
		out[i].Reservations += r.Reservations
	}
	return out
}

func DepartmentOptions(term *pipeline.TermAggregate) []string {
	return append([]string{AllDepartments}, sortedKeys(term.Departments)...)
}

// DepartmentTotals lists every department of a term, most reservations first.
func DepartmentTotals(term *pipeline.TermAggregate) []Row {
	out := make([]Row, 0, len(term.Departments))
	for name, dept := range term.Departments {
		out = append(out, Row{Department: name, Students: dept.TotalStudents, Reservations: dept.TotalReservations})
	}
	return sortByMetric(out, Reservations)
}

// TopN returns the n rows with the largest metric; ties keep name order.
func TopN(rows []Row, metric Metric, n int) []Row {
	return limit(sortByMetric(slices.Clone(rows), metric), n)
}

func LevelBreakdown(dept *pipeline.DeptAggregate) []Row {
	levels := SortLevels(keys(dept.Levels))
	out := make([]Row, 0, len(levels))
	for _, level := range levels {
		c := dept.Levels[level]
		out = append(out, Row{Level: level, Students: c.Students, Reservations: c.Reservations})
	}
	return out
}

func LevelOptions(term *pipeline.TermAggregate) []string {
	seen := map[string]struct{}{}
	for _, dept := range term.Departments {
		for level := range dept.Levels {
			seen[level] = struct{}{}
		}
	}
	return SortLevels(keys(seen))
}

// LevelView lists the departments that have the level in a term.
func LevelView(term *pipeline.TermAggregate, level string) ([]Row, Totals) {
	var out []Row
	for _, name := range sortedKeys(term.Departments) {
		c, ok := term.Departments[name].Levels[level]
		if !ok {
			continue
		}
		out = append(out, Row{Department: name, Level: level, Students: c.Students, Reservations: c.Reservations})
	}
	return out, SumRows(out)
}

// SortLevels orders numeric buckets numerically and puts non-numeric labels,
// "Unknown" included, after them.
func SortLevels(levels []string) []string {
	slices.SortFunc(levels, func(a, b string) int {
		na, errA := strconv.Atoi(a)
		nb, errB := strconv.Atoi(b)
		switch {
		case errA == nil && errB == nil:
			return cmp.Compare(na, nb)
		case errA == nil:
			return -1
		case errB == nil:
			return 1
		default:
			return cmp.Compare(a, b)
		}
	})
	return levels
}

func sortByMetric(rows []Row, metric Metric) []Row {
	slices.SortFunc(rows, func(a, b Row) int {
		if c := cmp.Compare(b.Value(metric), a.Value(metric)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Department, b.Department); c != 0 {
			return c
		}
		return cmp.Compare(a.Level, b.Level)
	})
	return rows
}

func limit[T any](items []T, n int) []T {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[:n]
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := keys(m)
	slices.Sort(out)
	return out
}
