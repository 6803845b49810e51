package pipeline

import (
	"path/filepath"
	"reflect"
	"testing"

	"streamstats/internal"
)

func TestGroupBookings(t *testing.T) {
	rows := []internal.RawRecord{
		{Uniquename: "bsmith", Course: "SLAVIC 225", Section: "", Language: "Polish", Enrollment: ""},
		{Uniquename: "alee", Course: " RUSSIAN 101 ", Section: "002", Language: "Russian", Enrollment: "n/a"},
		{Uniquename: "alee", Course: "RUSSIAN 101", Section: "002", Language: "Russian", Enrollment: "14 enrolled"},
		{Uniquename: "alee", Course: "RUSSIAN 101", Section: "002", Language: "Ukrainian", Enrollment: "99"},
		{Uniquename: "alee", Course: "RUSSIAN 101", Section: "001", Language: "", Enrollment: "9"},
		{Uniquename: "bsmith", Course: "SLAVIC 225", Section: "  ", Language: "Czech", Enrollment: "7"},
		{Uniquename: "qa", Course: "testcourse 1", Section: "001", Language: "", Enrollment: "1"},
		{Uniquename: "qa", Course: "", Section: "001", Language: "", Enrollment: "1"},
	}

	got := GroupBookings(rows, NewNormalizer(internal.FormatGrouped))
	want := []internal.GroupedRecord{
		{Instructor: "alee", Course: "RUSSIAN 101", Section: "001", Language: "", Reservations: 1, Students: 9},
		{Instructor: "alee", Course: "RUSSIAN 101", Section: "002", Language: "Russian, Ukrainian", Reservations: 3, Students: 0},
		{Instructor: "bsmith", Course: "SLAVIC 225", Section: "Unknown Section", Language: "Polish, Czech", Reservations: 2, Students: 7},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

func TestGroupedRecordsAggregate(t *testing.T) {
	n := NewNormalizer(internal.FormatGrouped)
	groups := []internal.GroupedRecord{
		{Instructor: "alee", Course: "RUSSIAN 101", Section: "002", Language: "Russian, Ukrainian", Reservations: 3, Students: 14},
		{Instructor: "bsmith", Course: "SLAVIC 225", Section: "Unknown Section", Language: "Polish, Czech", Reservations: 2, Students: 7},
	}
	term := NewTermAggregate()
	for _, g := range groups {
		rec, ok := n.Normalize(GroupedToRaw(g))
		if !ok {
			t.Fatalf("group dropped: %+v", g)
		}
		term.Add(rec)
	}
	if term.TotalReservations != 5 || term.TotalStudents != 21 {
		t.Fatalf("totals=%d/%d", term.TotalStudents, term.TotalReservations)
	}
	if _, ok := term.Departments["Slavic: Polish"]; !ok {
		t.Fatalf("departments=%v", term.Departments)
	}
}

func TestExportGroupedRoundTrip(t *testing.T) {
	groups := []internal.GroupedRecord{
		{Instructor: "alee", Course: "RUSSIAN 101", Section: "002", Language: "Russian", Reservations: 3, Students: 14},
		{Instructor: "bsmith", Course: "SLAVIC 225", Section: "Unknown Section", Language: "Polish, Czech", Reservations: 2, Students: 7},
	}
	out := filepath.Join(t.TempDir(), "out", "Fall 2024.xlsx")
	if err := ExportGroupedToXLSX(groups, "Fall 2024", out); err != nil {
		t.Fatal(err)
	}

	wb, err := OpenWorkbook(out)
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()
	if sheets := wb.Sheets(); !reflect.DeepEqual(sheets, []string{"Fall 2024"}) {
		t.Fatalf("sheets=%v", sheets)
	}

	unit, st, err := BuildTerm(wb, sourceFor(out, "Fall 2024", internal.FormatDirect))
	if err != nil {
		t.Fatal(err)
	}
	if st.Read != 2 || st.Kept != 2 || st.Dropped != 0 {
		t.Fatalf("stats=%+v", st)
	}
	if unit.Aggregate.TotalStudents != 21 || unit.Aggregate.TotalReservations != 5 {
		t.Fatalf("aggregate=%+v", unit.Aggregate)
	}
}

func TestGroupSheet(t *testing.T) {
	path := mkXLSXFile(t, sheetFixture{name: "RAW", rows: [][]any{
		{"Uniquename", "Course", "Section", "CIR_COL::Language", "Enrollment"},
		{"alee", "RUSSIAN 101", "002", "Russian", "14"},
		{"alee", "RUSSIAN 101", "002", "Russian", ""},
		{"qa", "TestCourse 9", "001", "", ""},
	}})

	groups, st, err := GroupSheet(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].Reservations != 2 || groups[0].Students != 14 {
		t.Fatalf("groups=%+v", groups)
	}
	if st.Read != 3 || st.Dropped != 1 || st.Kept != 1 {
		t.Fatalf("stats=%+v", st)
	}
}
