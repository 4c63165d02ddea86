package ingestion

import (
	"fmt"

	"github.com/muelle-planner/platform/pkg/common/logger"
	"github.com/muelle-planner/platform/pkg/dock"
	"github.com/muelle-planner/platform/pkg/normalizer"
	"github.com/muelle-planner/platform/pkg/schema"
	"github.com/muelle-planner/platform/pkg/terminology"
)

// HeaderSearchRows is how many leading rows may hold the title block before
// the header row.
const HeaderSearchRows = 5

// Result is a staged import. Records carry no ids yet; the store allocates
// them when the result is committed.
type Result struct {
	Variant   schema.Variant
	Records   []dock.Record
	HeaderRow int
	Skipped   int
}

type Importer struct {
	catalog terminology.Catalog
}

func NewImporter(cat terminology.Catalog) *Importer {
	if len(cat.Headers) == 0 {
		cat = terminology.DefaultCatalog()
	}
	return &Importer{catalog: cat}
}

// header is the resolved header row of a sheet.
type header struct {
	row     int
	columns map[schema.Field]int
	labels  map[schema.Field]string
}

func (h header) has(f schema.Field) bool {
	_, ok := h.columns[f]
	return ok
}

// Import turns a sheet into records of the layout its header describes.
func (im *Importer) Import(grid Grid) (*Result, error) {
	hdr, err := im.findHeader(grid)
	if err != nil {
		return nil, err
	}
	variant := detectVariant(hdr)

	result := &Result{Variant: variant, HeaderRow: hdr.row + 1}
	fields := schema.FieldsFor(variant)

	for i := hdr.row + 1; i < len(grid); i++ {
		row := grid[i]
		if len(row) == 0 || row[0].Empty() {
			result.Skipped++
			continue
		}

		rec, err := im.buildRecord(i+1, row, hdr, fields)
		if err != nil {
			logger.Log.WithError(err).WithField("row", i+1).Warn("aborting table import")
			return nil, err
		}
		if rec.Carrier == "" {
			result.Skipped++
			continue
		}
		if variant != schema.Variant2 && schema.Confirmed(rec.DockStatus) {
			rec.Status = dock.StatusAccepted
		}
		result.Records = append(result.Records, rec)
	}

	logger.Log.WithFields(map[string]interface{}{
		"variant":    variant,
		"header_row": result.HeaderRow,
		"records":    len(result.Records),
		"skipped":    result.Skipped,
	}).Info("table parsed")

	return result, nil
}

func (im *Importer) findHeader(grid Grid) (header, error) {
	limit := len(grid)
	if limit > HeaderSearchRows {
		limit = HeaderSearchRows
	}
	for i := 0; i < limit; i++ {
		for _, cell := range grid[i] {
			if cell.Kind == CellText && im.catalog.IsHeaderCell(cell.Text) {
				return im.mapHeader(i, grid[i]), nil
			}
		}
	}
	return header{}, fmt.Errorf("no %s cell in the first %d rows: %w", im.catalog.Marker, limit, ErrHeaderNotFound)
}

func (im *Importer) mapHeader(rowIdx int, row []Cell) header {
	hdr := header{
		row:     rowIdx,
		columns: make(map[schema.Field]int),
		labels:  make(map[schema.Field]string),
	}
	for col, cell := range row {
		label := terminology.NormalizeLabel(cell.String())
		field, ok := im.catalog.Lookup(label)
		if !ok {
			continue
		}
		if _, seen := hdr.columns[field]; seen {
			continue
		}
		hdr.columns[field] = col
		hdr.labels[field] = label
	}
	return hdr
}

// detectVariant applies the layout rules in order: no plate and no dock
// column means side 2; departure plus deadline means side 3; a deadline
// alone means side 4. Anything else falls back to the default layout.
func detectVariant(hdr header) schema.Variant {
	switch {
	case !hdr.has(schema.FieldPlate) && !hdr.has(schema.FieldDock):
		return schema.Variant2
	case hdr.has(schema.FieldDeparture) && hdr.has(schema.FieldDepartureDeadline):
		return schema.Variant3
	case hdr.has(schema.FieldDepartureDeadline):
		return schema.Variant4
	}
	return schema.DefaultVariant
}

func (im *Importer) buildRecord(rowNum int, row []Cell, hdr header, fields []schema.Field) (dock.Record, error) {
	rec := dock.Record{Status: dock.StatusPending}
	for _, field := range fields {
		if field == schema.FieldStatus {
			continue
		}
		col, ok := hdr.columns[field]
		if !ok {
			continue
		}
		cell := cellAt(row, col)
		if cell.Kind == CellError {
			return dock.Record{}, parseError(rowNum, hdr.labels[field], fmt.Errorf("cell holds spreadsheet error %q", cell.Text))
		}
		if schema.TimeField(field) {
			rec.Set(field, normalizer.ParseSourceTime(cell.Value()))
			continue
		}
		rec.Set(field, cell.String())
	}
	return rec, nil
}
