// Package schema describes the three dock sheet layouts ("lados") and the
// fields each one carries.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Variant identifies a record layout.
type Variant string

const (
	Variant2 Variant = "2"
	Variant3 Variant = "3"
	Variant4 Variant = "4"

	DefaultVariant = Variant3
)

var ErrUnknownVariant = errors.New("unknown variant")

func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.TrimSpace(s))
	if !v.Valid() {
		return "", fmt.Errorf("variant %q: %w", s, ErrUnknownVariant)
	}
	return v, nil
}

func (v Variant) Valid() bool {
	switch v {
	case Variant2, Variant3, Variant4:
		return true
	}
	return false
}

func (v Variant) String() string { return string(v) }

// All returns the known variants in code order.
func All() []Variant {
	return []Variant{Variant2, Variant3, Variant4}
}

type Field string

const (
	FieldCarrier           Field = "carrier"
	FieldDestination       Field = "destination"
	FieldNotes             Field = "notes"
	FieldStatus            Field = "status"
	FieldPlate             Field = "plate"
	FieldDock              Field = "dock"
	FieldDockStatus        Field = "dockStatus"
	FieldArrival           Field = "arrival"
	FieldDeparture         Field = "departure"
	FieldDepartureDeadline Field = "departureDeadline"
	FieldExitTime          Field = "exitTime"
	FieldTrailer           Field = "trailer"
)

// TimeField reports whether values of f are clock times.
func TimeField(f Field) bool {
	switch f {
	case FieldArrival, FieldDeparture, FieldDepartureDeadline, FieldExitTime:
		return true
	}
	return false
}

var common = []Field{FieldCarrier, FieldDestination, FieldNotes, FieldStatus}

var specific = map[Variant][]Field{
	Variant2: {FieldArrival, FieldDeparture, FieldTrailer},
	Variant3: {FieldPlate, FieldDock, FieldDockStatus, FieldArrival, FieldDeparture, FieldDepartureDeadline, FieldExitTime},
	Variant4: {FieldPlate, FieldDock, FieldDockStatus, FieldArrival, FieldDepartureDeadline, FieldExitTime},
}

// FieldsFor returns the fields active for v: the common ones first, then the
// variant specific ones. Unknown variants only get the common fields.
func FieldsFor(v Variant) []Field {
	out := make([]Field, 0, len(common)+len(specific[v]))
	out = append(out, common...)
	return append(out, specific[v]...)
}

// SpecificFields returns only the fields that depend on the variant.
func SpecificFields(v Variant) []Field {
	return append([]Field(nil), specific[v]...)
}

func Has(v Variant, f Field) bool {
	for _, candidate := range FieldsFor(v) {
		if candidate == f {
			return true
		}
	}
	return false
}

// Column is one column of the delimited export.
type Column struct {
	Field  Field  `json:"field"`
	Label  string `json:"label"`
	Source string `json:"source"`
}

var columns = map[Variant][]Column{
	Variant2: {
		{FieldCarrier, "CARRIER", "TRANSPORTISTA"},
		{FieldDestination, "DESTINATION", "DESTINO"},
		{FieldArrival, "ARRIVAL", "LLEGADA"},
		{FieldDeparture, "DEPARTURE", "SALIDA"},
		{FieldTrailer, "TRAILER", "REMOLQUE"},
		{FieldNotes, "NOTES", "OBSERVACIONES"},
	},
	Variant3: {
		{FieldCarrier, "CARRIER", "TRANSPORTISTA"},
		{FieldPlate, "PLATE", "MATRICULA"},
		{FieldDock, "DOCK", "MUELLE"},
		{FieldDockStatus, "DOCK-STATUS", "ESTADO"},
		{FieldDestination, "DESTINATION", "DESTINO"},
		{FieldArrival, "ARRIVAL", "LLEGADA"},
		{FieldDeparture, "DEPARTURE", "SALIDA"},
		{FieldDepartureDeadline, "DEPARTURE-DEADLINE", "SALIDA TOPE"},
		{FieldExitTime, "EXIT", "FUERA"},
		{FieldNotes, "NOTES", "OBSERVACIONES"},
	},
	Variant4: {
		{FieldCarrier, "CARRIER", "TRANSPORTISTA"},
		{FieldPlate, "PLATE", "MATRICULA"},
		{FieldDock, "DOCK", "MUELLE"},
		{FieldDockStatus, "DOCK-STATUS", "ESTADO"},
		{FieldDestination, "DESTINATION", "DESTINO"},
		{FieldArrival, "ARRIVAL", "LLEGADA"},
		{FieldDepartureDeadline, "DEPARTURE-DEADLINE", "SALIDA TOPE"},
		{FieldExitTime, "EXIT", "FUERA"},
		{FieldNotes, "NOTES", "OBSERVACIONES"},
	},
}

// Columns returns the export columns of v in output order.
func Columns(v Variant) []Column {
	return append([]Column(nil), columns[v]...)
}

// Dock status codes.
const (
	DockStatusNone     = ""
	DockStatusOK       = "OK"
	DockStatusIncident = "*"
)

// NormalizeDockStatus trims surrounding blanks. Codes are case sensitive:
// only "OK" and "*" confirm a truck.
func NormalizeDockStatus(s string) string {
	return strings.TrimSpace(s)
}

// Confirmed reports whether a dock status code marks the truck as handled.
func Confirmed(dockStatus string) bool {
	switch NormalizeDockStatus(dockStatus) {
	case DockStatusOK, DockStatusIncident:
		return true
	}
	return false
}
