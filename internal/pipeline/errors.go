package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrMissingSheet  = errors.New("sheet not found")
	ErrMissingColumn = errors.New("required column missing")
	ErrEmptySource   = errors.New("source has no data rows")
	ErrDuplicateTerm = errors.New("term supplied by more than one source")
	ErrBadDocument   = errors.New("malformed document")
)

// SourceError reports a structural defect that stops the run for one source sheet.
type SourceError struct {
	Path  string
	Sheet string
	Err   error
}

func (e *SourceError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("source %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("source %s sheet %q: %v", e.Path, e.Sheet, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func sourceErr(path, sheet string, err error) *SourceError {
	return &SourceError{Path: path, Sheet: sheet, Err: err}
}
