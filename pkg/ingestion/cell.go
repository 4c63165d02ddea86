package ingestion

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type CellKind int

const (
	CellBlank CellKind = iota
	CellText
	CellNumber
	// CellError is a spreadsheet error value such as #REF! or #VALUE!.
	CellError
)

// Cell is one raw spreadsheet value. It never leaves this package: the
// importer turns cells into typed record fields.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// Grid is a sheet: rows of cells, rows may have different lengths.
type Grid [][]Cell

func TextCell(s string) Cell {
	if s == "" {
		return Cell{Kind: CellBlank}
	}
	return Cell{Kind: CellText, Text: s}
}

func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumber, Number: v}
}

func ErrorCell(code string) Cell {
	return Cell{Kind: CellError, Text: code}
}

// CellOf converts a decoded scalar into a cell.
func CellOf(v interface{}) (Cell, error) {
	switch val := v.(type) {
	case nil:
		return Cell{Kind: CellBlank}, nil
	case string:
		return TextCell(val), nil
	case float64:
		return NumberCell(val), nil
	case float32:
		return NumberCell(float64(val)), nil
	case int:
		return NumberCell(float64(val)), nil
	case int64:
		return NumberCell(float64(val)), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return Cell{}, fmt.Errorf("number %q: %w", val.String(), err)
		}
		return NumberCell(f), nil
	default:
		return Cell{}, fmt.Errorf("unsupported cell value of type %T", v)
	}
}

// Empty reports whether the cell holds nothing but whitespace.
func (c Cell) Empty() bool {
	switch c.Kind {
	case CellBlank:
		return true
	case CellText:
		return strings.TrimSpace(c.Text) == ""
	}
	return false
}

// Value returns the cell as a string, a float64 or nil.
func (c Cell) Value() interface{} {
	switch c.Kind {
	case CellText, CellError:
		return c.Text
	case CellNumber:
		return c.Number
	}
	return nil
}

func (c Cell) String() string {
	switch c.Kind {
	case CellText, CellError:
		return strings.TrimSpace(c.Text)
	case CellNumber:
		if math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return ""
		}
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	}
	return ""
}

func cellAt(row []Cell, col int) Cell {
	if col < 0 || col >= len(row) {
		return Cell{Kind: CellBlank}
	}
	return row[col]
}
