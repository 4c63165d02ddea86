// Package storage persists the board snapshot: one opaque JSON payload
// under a fixed key, in whichever backend the service is configured with.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/muelle-planner/platform/pkg/dock"
	"github.com/muelle-planner/platform/pkg/schema"
)

// DefaultKey is the name the snapshot is stored under.
const DefaultKey = "dock-planner:snapshot"

var ErrMalformedSnapshot = errors.New("malformed snapshot")

type Snapshot struct {
	Records   []dock.Record  `json:"records"`
	Variant   schema.Variant `json:"variant"`
	NextID    int            `json:"nextId"`
	LastSaved time.Time      `json:"lastSaved"`
}

// SnapshotStore is a single-key blob store. Load returns nil, nil when no
// snapshot was ever saved.
type SnapshotStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

func NewSnapshot(st dock.State, now time.Time) Snapshot {
	records := st.Records
	if records == nil {
		records = []dock.Record{}
	}
	return Snapshot{Records: records, Variant: st.Variant, NextID: st.NextID, LastSaved: now.UTC()}
}

// State converts the snapshot back into store state.
func (s Snapshot) State() dock.State {
	return dock.State{Records: s.Records, Variant: s.Variant, NextID: s.NextID}
}

func encodeSnapshot(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

func decodeSnapshot(payload []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if snap.Variant != "" && !snap.Variant.Valid() {
		return nil, fmt.Errorf("%w: variant %q", ErrMalformedSnapshot, snap.Variant)
	}
	return &snap, nil
}

// MemoryStore keeps the snapshot in process. Used when persistence is off.
type MemoryStore struct {
	mu      sync.Mutex
	payload []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.payload == nil {
		return nil, nil
	}
	return decodeSnapshot(m.payload)
}

func (m *MemoryStore) Save(ctx context.Context, snap Snapshot) error {
	payload, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.payload = payload
	m.mu.Unlock()
	return nil
}
