package codec

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/muelle-planner/platform/pkg/dock"
	"github.com/muelle-planner/platform/pkg/schema"
)

func TestDocumentRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	records := []dock.Record{
		{ID: 4, Carrier: "EWALS", Destination: "PB-ZM", Status: dock.StatusPending, Plate: "OV67BZ", Trailer: "R-1"},
	}
	doc := NewDocument(schema.Variant3, records, now)
	if doc.Date != "1/5/2024" {
		t.Fatalf("unexpected date %q", doc.Date)
	}

	var buf bytes.Buffer
	if err := EncodeDocument(&buf, doc); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeDocument(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Variant != schema.Variant3 || len(got.Records) != 1 {
		t.Fatalf("unexpected document %+v", got)
	}
	if got.Records[0] != records[0] {
		t.Fatalf("record changed: %+v", got.Records[0])
	}
}

func TestDecodeDocumentLegacyKeys(t *testing.T) {
	body := `{"sideType":4,"fecha":"3/2/2024","trucks":[{"id":7,"transportista":"ACME","destino":"SEVILLA","estado":"accepted","estadoMuelle":"*"}]}`
	doc, err := ParseDocument([]byte(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Variant != schema.Variant4 || doc.Date != "3/2/2024" {
		t.Fatalf("unexpected document %+v", doc)
	}
	rec := doc.Records[0]
	if rec.ID != 7 || rec.Carrier != "ACME" || rec.Status != dock.StatusAccepted || !rec.Incident() {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestDecodeDocumentWithoutVariant(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"records":[]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Variant != "" || doc.Records == nil || len(doc.Records) != 0 {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestDecodeDocumentRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":          `{"records":`,
		"missing records":   `{"variant":"3"}`,
		"records as object": `{"variant":"3","records":{"id":1}}`,
		"records as null":   `{"records":null}`,
		"unknown variant":   `{"variant":"9","records":[]}`,
		"bad record":        `{"records":[{"id":"x"}]}`,
		"top level array":   `[]`,
	}
	for name, body := range cases {
		_, err := DecodeDocument(strings.NewReader(body))
		if !errors.Is(err, ErrDocumentParse) {
			t.Fatalf("%s: expected ErrDocumentParse, got %v", name, err)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	records := []dock.Record{
		{ID: 1, Carrier: `TRANS "EL RAPIDO"`, Destination: "MADRID", Plate: "OV67BZ", Dock: "316", DockStatus: "OK", DepartureDeadline: "05:00", Notes: "a, b"},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, schema.Variant4, records); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\ufeff") {
		t.Fatal("missing byte order mark")
	}
	lines := strings.Split(strings.TrimSuffix(strings.TrimPrefix(out, "\ufeff"), "\n"), "\n")
	if lines[0] != `CARRIER,PLATE,DOCK,DOCK-STATUS,DESTINATION,ARRIVAL,DEPARTURE-DEADLINE,EXIT,NOTES` {
		t.Fatalf("unexpected header %s", lines[0])
	}
	if lines[1] != `"TRANS ""EL RAPIDO""","OV67BZ","316","OK","MADRID","","05:00","","a, b"` {
		t.Fatalf("unexpected row %s", lines[1])
	}

	rows, err := csv.NewReader(strings.NewReader(strings.Join(lines, "\n"))).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid csv: %v", err)
	}
	if rows[1][0] != `TRANS "EL RAPIDO"` {
		t.Fatalf("quote escaping lost: %q", rows[1][0])
	}
}

func TestWriteCSVColumnsPerVariant(t *testing.T) {
	want := map[schema.Variant]string{
		schema.Variant2: `CARRIER,DESTINATION,ARRIVAL,DEPARTURE,TRAILER,NOTES`,
		schema.Variant3: `CARRIER,PLATE,DOCK,DOCK-STATUS,DESTINATION,ARRIVAL,DEPARTURE,DEPARTURE-DEADLINE,EXIT,NOTES`,
	}
	for v, header := range want {
		var buf bytes.Buffer
		if err := WriteCSV(&buf, v, nil); err != nil {
			t.Fatalf("write %s: %v", v, err)
		}
		if got := strings.TrimSpace(strings.TrimPrefix(buf.String(), "\ufeff")); got != header {
			t.Fatalf("variant %s: expected %s, got %s", v, header, got)
		}
	}
	if err := WriteCSV(&bytes.Buffer{}, schema.Variant("7"), nil); !errors.Is(err, schema.ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant, got %v", err)
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)
	if got := ExportFilename(KindCSV, schema.Variant3, now); got != "reunion-lado-3-2024-05-01.csv" {
		t.Fatalf("unexpected filename %s", got)
	}
}
