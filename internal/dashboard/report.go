package dashboard

import (
	"errors"
	"fmt"
	"strings"

	"streamstats/internal/pipeline"
)

var (
	ErrUnknownTerm       = errors.New("term not in document")
	ErrUnknownDepartment = errors.New("department not in term")
	ErrUnknownLevel      = errors.New("level not in term")
)

type Mode string

const (
	ByDepartment Mode = "department"
	ByLevel      Mode = "level"
)

// Selection mirrors the dashboard controls.
type Selection struct {
	Term       string
	Mode       Mode
	Department string
	Level      string
	TopN       int
}

// Column picks what a section shows per entry.
type Column string

const (
	ColTerm       Column = "Term"
	ColDepartment Column = "Department"
	ColLevel      Column = "Level"
)

type Section struct {
	Title   string
	Columns []Column
	Rows    []Row
}

type Report struct {
	Title       string
	TotalsLabel string
	Totals      Totals
	Warning     string
	Sections    []Section
}

func (s Section) Label(r Row, c Column) string {
	switch c {
	case ColTerm:
		return r.Term
	case ColLevel:
		return r.Level
	default:
		return r.Department
	}
}

// Build computes the report for one selection of the dashboard controls.
func Build(doc *pipeline.Document, order []string, sel Selection) (Report, error) {
	if sel.TopN <= 0 {
		sel.TopN = 8
	}
	if sel.Term == "" || sel.Term == AllTerms {
		return buildAllTerms(doc, order, sel.TopN), nil
	}

	term, ok := doc.Term(sel.Term)
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrUnknownTerm, sel.Term)
	}

	switch Mode(strings.ToLower(string(sel.Mode))) {
	case ByLevel:
		return buildLevel(term, sel)
	case ByDepartment, "":
		if sel.Department == "" || sel.Department == AllDepartments {
			return buildTerm(term, sel), nil
		}
		return buildDepartment(term, sel)
	default:
		return Report{}, fmt.Errorf("unsupported view: %s", sel.Mode)
	}
}

func buildAllTerms(doc *pipeline.Document, order []string, n int) Report {
	rows := AllTermsRows(doc, order)
	r := Report{Title: AllTerms, TotalsLabel: "All Terms Totals"}
	if len(rows) == 0 {
		r.Warning = "No data found in All Terms view."
		return r
	}
	r.Totals = SumRows(rows)
	r.Sections = []Section{
		{
			Title:   fmt.Sprintf("Top %d Departments: Students per Term", n),
			Columns: []Column{ColTerm, ColDepartment},
			Rows:    Series(rows, TopDepartmentsByMean(rows, Students, n)),
		},
		{
			Title:   fmt.Sprintf("Top %d Departments: Reservations per Term", n),
			Columns: []Column{ColTerm, ColDepartment},
			Rows:    Series(rows, TopDepartmentsByMean(rows, Reservations, n)),
		},
	}
	return r
}

func buildTerm(term *pipeline.TermAggregate, sel Selection) Report {
	totals := DepartmentTotals(term)
	return Report{
		Title:       sel.Term + ": Department View",
		TotalsLabel: sel.Term + " Totals",
		Totals:      Totals{Students: term.TotalStudents, Reservations: term.TotalReservations},
		Sections: []Section{
			{Title: fmt.Sprintf("Top %d Departments in %s: Students", sel.TopN, sel.Term), Columns: []Column{ColDepartment}, Rows: TopN(totals, Students, sel.TopN)},
			{Title: fmt.Sprintf("Top %d Departments in %s: Reservations", sel.TopN, sel.Term), Columns: []Column{ColDepartment}, Rows: TopN(totals, Reservations, sel.TopN)},
			{Title: "Department Totals", Columns: []Column{ColDepartment}, Rows: totals},
		},
	}
}

func buildDepartment(term *pipeline.TermAggregate, sel Selection) (Report, error) {
	dept, ok := term.Departments[sel.Department]
	if !ok {
		return Report{}, fmt.Errorf("%w: %s in %s", ErrUnknownDepartment, sel.Department, sel.Term)
	}
	return Report{
		Title:       sel.Term + ": " + sel.Department,
		TotalsLabel: sel.Department + " Totals",
		Totals:      Totals{Students: dept.TotalStudents, Reservations: dept.TotalReservations},
		Sections: []Section{
			{Title: "Level Breakdown for " + sel.Department, Columns: []Column{ColLevel}, Rows: LevelBreakdown(dept)},
		},
	}, nil
}

func buildLevel(term *pipeline.TermAggregate, sel Selection) (Report, error) {
	level := sel.Level
	options := LevelOptions(term)
	if level == "" && len(options) > 0 {
		level = options[0]
	}
	rows, totals := LevelView(term, level)
	if len(rows) == 0 {
		return Report{}, fmt.Errorf("%w: %s in %s", ErrUnknownLevel, level, sel.Term)
	}
	return Report{
		Title:       sel.Term + ": Level View",
		TotalsLabel: "Level " + level + " Totals",
		Totals:      totals,
		Sections: []Section{
			{Title: fmt.Sprintf("Top %d Departments - Level %s in %s: Students", sel.TopN, level, sel.Term), Columns: []Column{ColDepartment}, Rows: TopN(rows, Students, sel.TopN)},
			{Title: fmt.Sprintf("Top %d Departments - Level %s in %s: Reservations", sel.TopN, level, sel.Term), Columns: []Column{ColDepartment}, Rows: TopN(rows, Reservations, sel.TopN)},
		},
	}, nil
}
