package terminology

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/muelle-planner/platform/pkg/schema"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// DefaultMarker is the header text that identifies the header row of a sheet.
const DefaultMarker = "TRANSPORTISTA"

// Catalog maps sheet header labels to record fields.
type Catalog struct {
	Marker  string                    `yaml:"marker" json:"marker"`
	Headers map[schema.Field][]string `yaml:"headers" json:"headers"`
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Headers) == 0 {
		return Catalog{}, fmt.Errorf("header catalog empty")
	}
	if _, ok := cat.Headers[schema.FieldCarrier]; !ok {
		return Catalog{}, fmt.Errorf("header catalog has no %s labels", schema.FieldCarrier)
	}
	if strings.TrimSpace(cat.Marker) == "" {
		cat.Marker = DefaultMarker
	}
	return cat.merged(), nil
}

// merged adds the default label of every field so files only need to list aliases.
func (c Catalog) merged() Catalog {
	out := Catalog{Marker: c.Marker, Headers: make(map[schema.Field][]string)}
	for field, labels := range DefaultCatalog().Headers {
		out.Headers[field] = append(out.Headers[field], labels...)
	}
	for field, labels := range c.Headers {
		out.Headers[field] = append(out.Headers[field], labels...)
	}
	return out
}

// Lookup resolves a header label to a field. Labels are compared after
// NormalizeLabel, so case, spacing and accents do not matter.
func (c Catalog) Lookup(label string) (schema.Field, bool) {
	key := NormalizeLabel(label)
	if key == "" {
		return "", false
	}
	for field, labels := range c.Headers {
		for _, candidate := range labels {
			if NormalizeLabel(candidate) == key {
				return field, true
			}
		}
	}
	return "", false
}

// IsHeaderCell reports whether a cell text marks the header row.
func (c Catalog) IsHeaderCell(text string) bool {
	marker := NormalizeLabel(c.Marker)
	if marker == "" {
		marker = DefaultMarker
	}
	return strings.Contains(NormalizeLabel(text), marker)
}

// NormalizeLabel upper-cases, trims, collapses inner whitespace and strips
// diacritics ("Matrícula " -> "MATRICULA").
func NormalizeLabel(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToUpper(folded)), " ")
}

func DefaultCatalog() Catalog {
	return Catalog{
		Marker: DefaultMarker,
		Headers: map[schema.Field][]string{
			schema.FieldCarrier:           {"TRANSPORTISTA"},
			schema.FieldDestination:       {"DESTINO"},
			schema.FieldNotes:             {"OBSERVACIONES"},
			schema.FieldPlate:             {"MATRICULA"},
			schema.FieldDock:              {"MUELLE"},
			schema.FieldDockStatus:        {"ESTADO"},
			schema.FieldArrival:           {"LLEGADA"},
			schema.FieldDeparture:         {"SALIDA"},
			schema.FieldDepartureDeadline: {"SALIDA TOPE"},
			schema.FieldExitTime:          {"FUERA"},
			schema.FieldTrailer:           {"REMOLQUE"},
		},
	}
}
