package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"streamstats/internal"
	"streamstats/internal/util"
)

const (
	colCourse       = "course"
	colLanguage     = "language"
	colEnrollment   = "enrollment"
	colReservations = "reservations"
	colUniquename   = "uniquename"
	colSection      = "section"
)

// Header aliases per logical column, compared case-insensitively.
var sheetColumns = map[internal.SourceFormat]map[string][]string{
	internal.FormatDirect: {
		colCourse:       {"Course"},
		colLanguage:     {"Language"},
		colEnrollment:   {"Students Enrolled", "Enrollment"},
		colReservations: {"Reservations"},
	},
	internal.FormatGrouped: {
		colUniquename: {"Uniquename"},
		colCourse:     {"Course"},
		colSection:    {"Section"},
		colLanguage:   {"CIR_COL::Language", "Language"},
		colEnrollment: {"Enrollment", "Students Enrolled"},
	},
}

type Workbook struct {
	Path string
	file *excelize.File
}

func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, sourceErr(path, "", err)
	}
	return &Workbook{Path: path, file: f}, nil
}

func OpenWorkbookReader(name string, content []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, sourceErr(name, "", err)
	}
	return &Workbook{Path: name, file: f}, nil
}

func (w *Workbook) Close() error {
	return w.file.Close()
}

func (w *Workbook) Sheets() []string {
	return w.file.GetSheetList()
}

// ReadSheet maps every data row of a sheet to a RawRecord. The first non-empty
// row is the header. Missing sheets, missing columns and sheets without data
// rows are reported as *SourceError.
func (w *Workbook) ReadSheet(sheet string, format internal.SourceFormat) ([]internal.RawRecord, error) {
	columns, ok := sheetColumns[format]
	if !ok {
		return nil, sourceErr(w.Path, sheet, fmt.Errorf("unsupported source format: %s", format))
	}
	if idx, err := w.file.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, sourceErr(w.Path, sheet, ErrMissingSheet)
	}

	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, sourceErr(w.Path, sheet, err)
	}

	headerAt := -1
	for i, row := range rows {
		if !blankRow(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, sourceErr(w.Path, sheet, ErrEmptySource)
	}

	index, err := mapColumns(normalizeCells(rows[headerAt]), columns)
	if err != nil {
		return nil, sourceErr(w.Path, sheet, err)
	}

	out := make([]internal.RawRecord, 0, len(rows)-headerAt-1)
	for i := headerAt + 1; i < len(rows); i++ {
		if blankRow(rows[i]) {
			continue
		}
		cells := normalizeCells(rows[i])
		out = append(out, internal.RawRecord{
			Row:          i + 1,
			Course:       pickCell(cells, index, colCourse),
			Language:     pickCell(cells, index, colLanguage),
			Enrollment:   pickCell(cells, index, colEnrollment),
			Reservations: pickCell(cells, index, colReservations),
			Uniquename:   pickCell(cells, index, colUniquename),
			Section:      pickCell(cells, index, colSection),
		})
	}
	if len(out) == 0 {
		return nil, sourceErr(w.Path, sheet, ErrEmptySource)
	}
	return out, nil
}

func mapColumns(headers []string, columns map[string][]string) (map[string]int, error) {
	index := make(map[string]int, len(columns))
	var missing []string
	for key, aliases := range columns {
		idx := findHeaderIndex(headers, aliases)
		if idx < 0 {
			missing = append(missing, aliases[0])
			continue
		}
		index[key] = idx
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return index, nil
}

func findHeaderIndex(headers []string, aliases []string) int {
	for _, alias := range aliases {
		for i, h := range headers {
			if strings.EqualFold(h, alias) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, index map[string]int, key string) string {
	idx, ok := index[key]
	if !ok || idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, util.NormalizeCell(c))
	}
	return out
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// IsSourceError reports whether err carries a structural source defect.
func IsSourceError(err error) bool {
	var se *SourceError
	return errors.As(err, &se)
}
