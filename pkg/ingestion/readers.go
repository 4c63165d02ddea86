package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Format names accepted by ReadFormat.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

// FormatFromName guesses the table format from a file name.
func FormatFromName(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("file %q: %w", name, ErrUnsupportedFormat)
}

func ReadFormat(format string, r io.Reader) (Grid, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatCSV:
		return ReadCSV(r)
	case FormatXLSX:
		return ReadXLSX(r)
	case FormatJSON:
		return ReadJSONGrid(r)
	}
	return nil, fmt.Errorf("format %q: %w", format, ErrUnsupportedFormat)
}

// ReadCSV reads delimited text. Spreadsheet exports in Spanish locales use
// ';', so the delimiter is picked from the first line.
func ReadCSV(r io.Reader) (Grid, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	// Peek returns whatever is buffered even when the input is shorter.
	sample, _ := br.Peek(br.Size())
	reader.Comma = sniffDelimiter(sample)

	var grid Grid
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError(0, "", fmt.Errorf("reading csv: %w", err))
		}
		row := make([]Cell, len(record))
		for i, field := range record {
			row[i] = textOrErrorCell(field)
		}
		grid = append(grid, row)
	}
	return grid, nil
}

// spreadsheetErrors are the error values Excel writes into exported text.
var spreadsheetErrors = map[string]struct{}{
	"#NULL!": {}, "#DIV/0!": {}, "#VALUE!": {}, "#REF!": {}, "#NAME?": {}, "#NUM!": {}, "#N/A": {},
}

func textOrErrorCell(s string) Cell {
	if _, ok := spreadsheetErrors[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return ErrorCell(strings.TrimSpace(s))
	}
	return TextCell(s)
}

func sniffDelimiter(sample []byte) rune {
	line := sample
	if idx := bytes.IndexByte(sample, '\n'); idx >= 0 {
		line = sample[:idx]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

// ReadXLSX reads the first sheet of a workbook. Numbers keep their raw value
// so time cells stored as day fractions survive.
func ReadXLSX(r io.Reader) (Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, parseError(0, "", fmt.Errorf("opening workbook: %w", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, parseError(0, "", errors.New("workbook has no sheets"))
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, parseError(0, "", fmt.Errorf("reading sheet %s: %w", sheet, err))
	}

	grid := make(Grid, len(rows))
	for ri, values := range rows {
		row := make([]Cell, len(values))
		for ci, raw := range values {
			if raw == "" {
				row[ci] = Cell{Kind: CellBlank}
				continue
			}
			axis, err := excelize.CoordinatesToCellName(ci+1, ri+1)
			if err != nil {
				return nil, parseError(ri+1, "", err)
			}
			typ, err := f.GetCellType(sheet, axis)
			if err != nil {
				return nil, parseError(ri+1, axis, err)
			}
			row[ci] = workbookCell(typ, raw)
		}
		grid[ri] = row
	}
	return grid, nil
}

func workbookCell(typ excelize.CellType, raw string) Cell {
	switch typ {
	case excelize.CellTypeError:
		return ErrorCell(raw)
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return NumberCell(v)
		}
	}
	return TextCell(raw)
}

// ReadJSONGrid reads a JSON array of rows, each an array of strings, numbers
// or nulls.
func ReadJSONGrid(r io.Reader) (Grid, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw [][]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, parseError(0, "", fmt.Errorf("decoding json grid: %w", err))
	}

	grid := make(Grid, len(raw))
	for ri, values := range raw {
		row := make([]Cell, len(values))
		for ci, v := range values {
			cell, err := CellOf(v)
			if err != nil {
				return nil, parseError(ri+1, strconv.Itoa(ci+1), err)
			}
			row[ci] = cell
		}
		grid[ri] = row
	}
	return grid, nil
}
