package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"streamstats/internal"
)

var groupedHeaders = []string{"Instructor", "Course", "Section", "Language", "Reservations", "Students Enrolled"}

// ExportGroupedToXLSX writes grouped bookings to a single sheet named after the term.
func ExportGroupedToXLSX(rows []internal.GroupedRecord, term, outputPath string) error {
	if term == "" {
		return fmt.Errorf("export needs a term to name the sheet")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), term); err != nil {
		return err
	}

	for i, h := range groupedHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(term, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(term, cell, value)
		}

		set(1, row.Instructor)
		set(2, row.Course)
		set(3, row.Section)
		set(4, row.Language)
		set(5, row.Reservations)
		set(6, row.Students)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

// GroupSheet reads a booking sheet and returns its grouped records.
func GroupSheet(path, sheet string) ([]internal.GroupedRecord, internal.SourceStats, error) {
	if sheet == "" {
		sheet = defaultGroupedSheet
	}
	st := internal.SourceStats{Source: path + "#" + sheet}
	wb, err := OpenWorkbook(path)
	if err != nil {
		return nil, st, err
	}
	defer wb.Close()

	raws, err := wb.ReadSheet(sheet, internal.FormatGrouped)
	if err != nil {
		return nil, st, err
	}
	n := NewNormalizer(internal.FormatGrouped)
	st.Read = len(raws)
	for _, raw := range raws {
		if n.Excluded(raw.Course) {
			st.Dropped++
		}
	}
	groups := GroupBookings(raws, n)
	st.Kept = len(groups)
	return groups, st, nil
}
