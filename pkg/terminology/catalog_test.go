package terminology

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/muelle-planner/platform/pkg/schema"
)

func TestNormalizeLabel(t *testing.T) {
	cases := []struct{ in, want string }{
		{" Matrícula ", "MATRICULA"},
		{"salida   tope", "SALIDA TOPE"},
		{"Observaciones\t", "OBSERVACIONES"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeLabel(tc.in); got != tc.want {
			t.Fatalf("NormalizeLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDefaultLookup(t *testing.T) {
	cat := DefaultCatalog()
	field, ok := cat.Lookup("salida tope")
	if !ok || field != schema.FieldDepartureDeadline {
		t.Fatalf("expected departureDeadline, got %q (%v)", field, ok)
	}
	field, ok = cat.Lookup("SALIDA")
	if !ok || field != schema.FieldDeparture {
		t.Fatalf("expected departure, got %q (%v)", field, ok)
	}
	if _, ok := cat.Lookup("COLOR"); ok {
		t.Fatal("expected unknown label to miss")
	}
	if !cat.IsHeaderCell("  transportista / carrier") {
		t.Fatal("expected marker match")
	}
}

func TestLoadMergesAliases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "headers.yaml")
	content := "headers:\n  carrier: [\"EMPRESA\"]\n  notes: [\"OBS\"]\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if cat.Marker != DefaultMarker {
		t.Fatalf("expected default marker, got %q", cat.Marker)
	}
	if field, ok := cat.Lookup("obs"); !ok || field != schema.FieldNotes {
		t.Fatalf("expected alias to resolve to notes, got %q", field)
	}
	if field, ok := cat.Lookup("TRANSPORTISTA"); !ok || field != schema.FieldCarrier {
		t.Fatalf("expected default label kept, got %q", field)
	}
}

func TestLoadRejectsCatalogWithoutCarrier(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "headers.yaml")
	if err := os.WriteFile(path, []byte("headers:\n  notes: [\"OBS\"]\n"), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for catalog without carrier labels")
	}
}
