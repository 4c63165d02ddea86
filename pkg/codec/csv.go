package codec

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/muelle-planner/platform/pkg/dock"
	"github.com/muelle-planner/platform/pkg/schema"
)

const utf8BOM = "\ufeff"

// Export kinds for ExportFilename.
const (
	KindDocument = "json"
	KindCSV      = "csv"
)

// WriteCSV writes the delimited export of records for variant. The header is
// a plain label list; every value is quoted and embedded quotes are doubled.
func WriteCSV(w io.Writer, variant schema.Variant, records []dock.Record) error {
	columns := schema.Columns(variant)
	if len(columns) == 0 {
		return fmt.Errorf("variant %q: %w", variant, schema.ErrUnknownVariant)
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(utf8BOM); err != nil {
		return err
	}

	labels := make([]string, len(columns))
	for i, c := range columns {
		labels[i] = c.Label
	}
	bw.WriteString(strings.Join(labels, ","))
	bw.WriteByte('\n')

	values := make([]string, len(columns))
	for _, r := range records {
		for i, c := range columns {
			values[i] = r.Value(c.Field)
		}
		writeRow(bw, values)
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, values []string) {
	for i, v := range values {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(v, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

// ExportFilename names an export the way the board always has:
// reunion-lado-3-2024-05-01.csv.
func ExportFilename(kind string, variant schema.Variant, now time.Time) string {
	return fmt.Sprintf("reunion-lado-%s-%s.%s", variant, now.Format("2006-01-02"), kind)
}
