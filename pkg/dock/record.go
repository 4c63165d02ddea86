package dock

import (
	"encoding/json"
	"strings"

	"github.com/muelle-planner/platform/pkg/schema"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusAccepted
}

// Record is one truck assigned to the dock board. Variant specific fields
// are kept even when the active variant does not show them.
type Record struct {
	ID          int    `json:"id"`
	Carrier     string `json:"carrier"`
	Destination string `json:"destination"`
	Notes       string `json:"notes"`
	Status      Status `json:"status"`

	Plate             string `json:"plate,omitempty"`
	Dock              string `json:"dock,omitempty"`
	DockStatus        string `json:"dockStatus,omitempty"`
	Arrival           string `json:"arrival,omitempty"`
	Departure         string `json:"departure,omitempty"`
	DepartureDeadline string `json:"departureDeadline,omitempty"`
	ExitTime          string `json:"exitTime,omitempty"`
	Trailer           string `json:"trailer,omitempty"`
}

// EmptyRecord returns a blank pending record for the given variant.
func EmptyRecord(v schema.Variant, id int) Record {
	return Record{ID: id, Status: StatusPending}
}

// Incident reports whether the dock was flagged with "*".
func (r Record) Incident() bool {
	return schema.NormalizeDockStatus(r.DockStatus) == schema.DockStatusIncident
}

// Value returns the value of field f; fields a record never had read as "".
func (r Record) Value(f schema.Field) string {
	switch f {
	case schema.FieldCarrier:
		return r.Carrier
	case schema.FieldDestination:
		return r.Destination
	case schema.FieldNotes:
		return r.Notes
	case schema.FieldStatus:
		return string(r.Status)
	case schema.FieldPlate:
		return r.Plate
	case schema.FieldDock:
		return r.Dock
	case schema.FieldDockStatus:
		return r.DockStatus
	case schema.FieldArrival:
		return r.Arrival
	case schema.FieldDeparture:
		return r.Departure
	case schema.FieldDepartureDeadline:
		return r.DepartureDeadline
	case schema.FieldExitTime:
		return r.ExitTime
	case schema.FieldTrailer:
		return r.Trailer
	}
	return ""
}

// Set assigns value to field f. Status and unknown fields are ignored.
func (r *Record) Set(f schema.Field, value string) {
	switch f {
	case schema.FieldCarrier:
		r.Carrier = value
	case schema.FieldDestination:
		r.Destination = value
	case schema.FieldNotes:
		r.Notes = value
	case schema.FieldPlate:
		r.Plate = value
	case schema.FieldDock:
		r.Dock = value
	case schema.FieldDockStatus:
		r.DockStatus = schema.NormalizeDockStatus(value)
	case schema.FieldArrival:
		r.Arrival = value
	case schema.FieldDeparture:
		r.Departure = value
	case schema.FieldDepartureDeadline:
		r.DepartureDeadline = value
	case schema.FieldExitTime:
		r.ExitTime = value
	case schema.FieldTrailer:
		r.Trailer = value
	}
}

// Project returns a copy holding only the fields of variant v. Used by views
// that must not leak fields of a previously active variant.
func (r Record) Project(v schema.Variant) Record {
	out := Record{ID: r.ID, Status: r.Status}
	for _, f := range schema.FieldsFor(v) {
		out.Set(f, r.Value(f))
	}
	return out
}

type recordJSON Record

// legacyRecord carries the keys written by the first version of the board.
type legacyRecord struct {
	Transportista *string `json:"transportista"`
	Destino       *string `json:"destino"`
	Observaciones *string `json:"observaciones"`
	Estado        *string `json:"estado"`
	Matricula     *string `json:"matricula"`
	Muelle        *string `json:"muelle"`
	EstadoMuelle  *string `json:"estadoMuelle"`
	Llegada       *string `json:"llegada"`
	Salida        *string `json:"salida"`
	SalidaTope    *string `json:"salidaTope"`
	Fuera         *string `json:"fuera"`
	Remolque      *string `json:"remolque"`
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var base recordJSON
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	var legacy legacyRecord
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}

	rec := Record(base)
	fallback(&rec.Carrier, legacy.Transportista)
	fallback(&rec.Destination, legacy.Destino)
	fallback(&rec.Notes, legacy.Observaciones)
	fallback(&rec.Plate, legacy.Matricula)
	fallback(&rec.Dock, legacy.Muelle)
	fallback(&rec.DockStatus, legacy.EstadoMuelle)
	fallback(&rec.Arrival, legacy.Llegada)
	fallback(&rec.Departure, legacy.Salida)
	fallback(&rec.DepartureDeadline, legacy.SalidaTope)
	fallback(&rec.ExitTime, legacy.Fuera)
	fallback(&rec.Trailer, legacy.Remolque)
	if rec.Status == "" && legacy.Estado != nil {
		rec.Status = Status(strings.TrimSpace(*legacy.Estado))
	}

	*r = rec
	return nil
}

func fallback(dst *string, legacy *string) {
	if *dst == "" && legacy != nil {
		*dst = *legacy
	}
}

// Input holds the user editable part of a record.
type Input struct {
	Carrier           string `json:"carrier"`
	Destination       string `json:"destination"`
	Notes             string `json:"notes"`
	Plate             string `json:"plate"`
	Dock              string `json:"dock"`
	DockStatus        string `json:"dockStatus"`
	Arrival           string `json:"arrival"`
	Departure         string `json:"departure"`
	DepartureDeadline string `json:"departureDeadline"`
	ExitTime          string `json:"exitTime"`
	Trailer           string `json:"trailer"`
}

func (in Input) Validate() error {
	if strings.TrimSpace(in.Carrier) == "" {
		return ValidationError{Field: schema.FieldCarrier, reason: errRequired}
	}
	if strings.TrimSpace(in.Destination) == "" {
		return ValidationError{Field: schema.FieldDestination, reason: errRequired}
	}
	return nil
}

// apply copies the input onto r, trimming values.
func (in Input) apply(r *Record) {
	r.Carrier = strings.TrimSpace(in.Carrier)
	r.Destination = strings.TrimSpace(in.Destination)
	r.Notes = strings.TrimSpace(in.Notes)
	r.Plate = strings.TrimSpace(in.Plate)
	r.Dock = strings.TrimSpace(in.Dock)
	r.DockStatus = schema.NormalizeDockStatus(in.DockStatus)
	r.Arrival = strings.TrimSpace(in.Arrival)
	r.Departure = strings.TrimSpace(in.Departure)
	r.DepartureDeadline = strings.TrimSpace(in.DepartureDeadline)
	r.ExitTime = strings.TrimSpace(in.ExitTime)
	r.Trailer = strings.TrimSpace(in.Trailer)
}

// applyFields copies only the given fields of the input onto r. Fields of
// other variants stored on r are left untouched.
func (in Input) applyFields(r *Record, fields []schema.Field) {
	for _, f := range fields {
		r.Set(f, strings.TrimSpace(in.value(f)))
	}
}

func (in Input) value(f schema.Field) string {
	switch f {
	case schema.FieldCarrier:
		return in.Carrier
	case schema.FieldDestination:
		return in.Destination
	case schema.FieldNotes:
		return in.Notes
	case schema.FieldPlate:
		return in.Plate
	case schema.FieldDock:
		return in.Dock
	case schema.FieldDockStatus:
		return in.DockStatus
	case schema.FieldArrival:
		return in.Arrival
	case schema.FieldDeparture:
		return in.Departure
	case schema.FieldDepartureDeadline:
		return in.DepartureDeadline
	case schema.FieldExitTime:
		return in.ExitTime
	case schema.FieldTrailer:
		return in.Trailer
	}
	return ""
}

// InputOf returns the editable fields of r.
func InputOf(r Record) Input {
	return Input{
		Carrier:           r.Carrier,
		Destination:       r.Destination,
		Notes:             r.Notes,
		Plate:             r.Plate,
		Dock:              r.Dock,
		DockStatus:        r.DockStatus,
		Arrival:           r.Arrival,
		Departure:         r.Departure,
		DepartureDeadline: r.DepartureDeadline,
		ExitTime:          r.ExitTime,
		Trailer:           r.Trailer,
	}
}
