package ingestion

import (
	"errors"
	"fmt"
)

var (
	ErrHeaderNotFound    = errors.New("header row not found")
	ErrImportParse       = errors.New("import parse error")
	ErrUnsupportedFormat = errors.New("unsupported table format")
)

// ImportParseError aborts a whole import. Row is 1-based; zero means the
// input could not be read at all.
type ImportParseError struct {
	Row    int
	Column string
	Err    error
}

func (e *ImportParseError) Error() string {
	switch {
	case e.Row == 0:
		return fmt.Sprintf("import parse error: %v", e.Err)
	case e.Column == "":
		return fmt.Sprintf("import parse error at row %d: %v", e.Row, e.Err)
	default:
		return fmt.Sprintf("import parse error at row %d, column %s: %v", e.Row, e.Column, e.Err)
	}
}

func (e *ImportParseError) Unwrap() []error {
	return []error{ErrImportParse, e.Err}
}

func IsImportError(err error) bool {
	return errors.Is(err, ErrImportParse) || errors.Is(err, ErrHeaderNotFound)
}

func parseError(row int, column string, err error) error {
	return &ImportParseError{Row: row, Column: column, Err: err}
}
