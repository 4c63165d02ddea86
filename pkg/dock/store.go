package dock

import (
	"fmt"
	"sync"

	"github.com/muelle-planner/platform/pkg/schema"
)

// State is a consistent copy of the store contents.
type State struct {
	Records []Record
	Variant schema.Variant
	NextID  int
}

// Store holds the ordered record collection of one planning session. Every
// method is atomic with respect to the others.
type Store struct {
	mu      sync.RWMutex
	records []Record
	variant schema.Variant
	nextID  int
}

func NewStore(variant schema.Variant) *Store {
	if !variant.Valid() {
		variant = schema.DefaultVariant
	}
	return &Store{variant: variant, nextID: 1}
}

// Restore loads a persisted state. Ids must be distinct; the allocator is
// raised above the highest id if the persisted counter lags behind.
func (s *Store) Restore(st State) error {
	variant := st.Variant
	if !variant.Valid() {
		variant = schema.DefaultVariant
	}
	records, next, err := adopt(st.Records, st.NextID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.variant = variant
	s.nextID = next
	return nil
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{Records: s.copyRecords(), Variant: s.variant, NextID: s.nextID}
}

func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyRecords()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) Variant() schema.Variant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.variant
}

func (s *Store) NextID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}

// SetVariant switches the active layout. Stored fields are left untouched.
func (s *Store) SetVariant(v schema.Variant) error {
	if !v.Valid() {
		return fmt.Errorf("variant %q: %w", v, schema.ErrUnknownVariant)
	}
	s.mu.Lock()
	s.variant = v
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(id int) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return Record{}, notFound(id)
	}
	return s.records[idx], nil
}

// Add appends a new pending record.
func (s *Store) Add(in Input) (Record, error) {
	if err := in.Validate(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := EmptyRecord(s.variant, s.allocate())
	in.apply(&rec)
	s.records = append(s.records, rec)
	return rec, nil
}

// Update replaces the editable fields of the active variant, keeping the
// record's id, status, position and any fields stored for other variants.
func (s *Store) Update(id int, in Input) (Record, error) {
	if err := in.Validate(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return Record{}, notFound(id)
	}
	rec := s.records[idx]
	in.applyFields(&rec, schema.FieldsFor(s.variant))
	s.records[idx] = rec
	return rec, nil
}

// Delete removes a record. Callers must have confirmed the removal.
func (s *Store) Delete(id int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return Record{}, notFound(id)
	}
	rec := s.records[idx]
	records := make([]Record, 0, len(s.records)-1)
	records = append(records, s.records[:idx]...)
	s.records = append(records, s.records[idx+1:]...)
	return rec, nil
}

// Accept marks a record as accepted. Accepting twice is not an error.
func (s *Store) Accept(id int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return Record{}, notFound(id)
	}
	s.records[idx].Status = StatusAccepted
	return s.records[idx], nil
}

// Commit replaces the collection with freshly imported records, giving each
// one a new id in order, and switches the active variant.
func (s *Store) Commit(records []Record, variant schema.Variant) ([]Record, error) {
	if !variant.Valid() {
		return nil, fmt.Errorf("variant %q: %w", variant, schema.ErrUnknownVariant)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	staged := make([]Record, len(records))
	next := s.nextID
	for i, rec := range records {
		rec.ID = next
		next++
		if !rec.Status.Valid() {
			rec.Status = StatusPending
		}
		staged[i] = rec
	}
	s.records = staged
	s.variant = variant
	s.nextID = next
	return s.copyRecords(), nil
}

// ReplaceAll swaps in records that already carry ids, such as a portable
// document. Records without an id get a fresh one. The allocator never moves
// backwards so ids are not handed out twice in a session.
func (s *Store) ReplaceAll(records []Record, variant schema.Variant) ([]Record, error) {
	if !variant.Valid() {
		return nil, fmt.Errorf("variant %q: %w", variant, schema.ErrUnknownVariant)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	staged, next, err := adopt(records, s.nextID)
	if err != nil {
		return nil, err
	}
	s.records = staged
	s.variant = variant
	s.nextID = next
	return s.copyRecords(), nil
}

// Clear empties the collection and restarts ids at 1.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.nextID = 1
}

func (s *Store) allocate() int {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Store) indexOf(id int) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) copyRecords() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// adopt validates externally supplied records and computes the next id.
func adopt(records []Record, floor int) ([]Record, int, error) {
	next := floor
	if next < 1 {
		next = 1
	}
	seen := make(map[int]struct{}, len(records))
	for _, rec := range records {
		if rec.ID <= 0 {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			return nil, 0, fmt.Errorf("id %d: %w", rec.ID, ErrDuplicateID)
		}
		seen[rec.ID] = struct{}{}
		if rec.ID >= next {
			next = rec.ID + 1
		}
	}

	staged := make([]Record, len(records))
	for i, rec := range records {
		if rec.ID <= 0 {
			rec.ID = next
			next++
		}
		if !rec.Status.Valid() {
			rec.Status = StatusPending
		}
		rec.DockStatus = schema.NormalizeDockStatus(rec.DockStatus)
		staged[i] = rec
	}
	return staged, next, nil
}
