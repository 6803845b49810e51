package pipeline

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"streamstats/internal"
)

type sheetFixture struct {
	name string
	rows [][]any
}

func mkXLSX(sheets ...sheetFixture) []byte {
	f := excelize.NewFile()
	defer f.Close()
	for i, s := range sheets {
		if i == 0 {
			_ = f.SetSheetName(f.GetSheetName(0), s.name)
		} else {
			_, _ = f.NewSheet(s.name)
		}
		for r, row := range s.rows {
			for c, v := range row {
				if v == nil {
					continue
				}
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				_ = f.SetCellValue(s.name, cell, v)
			}
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func mkXLSXFile(t *testing.T, sheets ...sheetFixture) string {
	t.Helper()
	wb, err := OpenWorkbookReader("fixture", mkXLSX(sheets...))
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()
	path := filepath.Join(t.TempDir(), "fixture.xlsx")
	if err := wb.file.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

var directHeader = []any{"Course", "Language", "Students Enrolled", "Reservations"}

func TestReadSheetDirect(t *testing.T) {
	blob := mkXLSX(sheetFixture{name: "Winter 2024", rows: [][]any{
		{},
		directHeader,
		{"SPAN 231", "Spanish", 18, 3},
		{},
		{" ASIANLAN 100 ", "Japanese", "45 students", 1},
		{"MUSIC Capstone", nil, nil, 2},
	}})
	wb, err := OpenWorkbookReader("fixture.xlsx", blob)
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()

	rows, err := wb.ReadSheet("Winter 2024", internal.FormatDirect)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("len=%d", len(rows))
	}
	if rows[0].Course != "SPAN 231" || rows[0].Enrollment != "18" || rows[0].Reservations != "3" || rows[0].Row != 3 {
		t.Fatalf("row0=%+v", rows[0])
	}
	if rows[1].Course != "ASIANLAN 100" || rows[1].Enrollment != "45 students" {
		t.Fatalf("row1=%+v", rows[1])
	}
	if rows[2].Language != "" || rows[2].Enrollment != "" {
		t.Fatalf("row2=%+v", rows[2])
	}
}

func TestReadSheetHeaderIsCaseInsensitive(t *testing.T) {
	blob := mkXLSX(sheetFixture{name: "RAW", rows: [][]any{
		{"uniquename", " COURSE ", "Section", "cir_col::language", "ENROLLMENT"},
		{"jdoe", "RUSSIAN 101", "001", "Russian", "12"},
	}})
	wb, err := OpenWorkbookReader("fixture.xlsx", blob)
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()

	rows, err := wb.ReadSheet("RAW", internal.FormatGrouped)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Uniquename != "jdoe" || rows[0].Section != "001" || rows[0].Language != "Russian" {
		t.Fatalf("rows=%+v", rows)
	}
}

func TestReadSheetStructuralErrors(t *testing.T) {
	blob := mkXLSX(
		sheetFixture{name: "Winter 2024", rows: [][]any{{"Course", "Language", "Reservations"}, {"SPAN 101", "", 1}}},
		sheetFixture{name: "Empty", rows: nil},
		sheetFixture{name: "HeaderOnly", rows: [][]any{directHeader}},
	)
	wb, err := OpenWorkbookReader("fixture.xlsx", blob)
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()

	cases := []struct {
		sheet string
		want  error
	}{
		{sheet: "Fall 2030", want: ErrMissingSheet},
		{sheet: "Winter 2024", want: ErrMissingColumn},
		{sheet: "Empty", want: ErrEmptySource},
		{sheet: "HeaderOnly", want: ErrEmptySource},
	}
	for _, tc := range cases {
		t.Run(tc.sheet, func(t *testing.T) {
			_, err := wb.ReadSheet(tc.sheet, internal.FormatDirect)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want %v", err, tc.want)
			}
			var se *SourceError
			if !errors.As(err, &se) || se.Sheet != tc.sheet || se.Path != "fixture.xlsx" {
				t.Fatalf("expected SourceError naming the sheet, got %v", err)
			}
		})
	}
}

func TestOpenWorkbookMissingFile(t *testing.T) {
	_, err := OpenWorkbook(filepath.Join(t.TempDir(), "missing.xlsx"))
	if !IsSourceError(err) {
		t.Fatalf("err=%v", err)
	}
}
