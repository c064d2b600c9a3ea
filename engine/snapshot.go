package engine

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/pierrec/lz4"

	"github.com/go-tabular/tabular"
	errors "github.com/go-tabular/tabular/errors"
)

// Snapshot is the view state preserved across a population run: enough to
// restore exactly what the renderer saw before the run cleared it.
type Snapshot struct {
	Mode         ViewMode      `json:"mode"`
	Rows         []tabular.Row `json:"rows"`
	ScrollOffset int           `json:"scrollOffset"`
}

// SnapshotStore holds at most one pre-run snapshot per table, compressed so
// a large rendered row set does not double the engine's live footprint while
// a run is in flight.
type SnapshotStore struct {
	lock  sync.Mutex
	snaps map[string][]byte
}

// CreateSnapshotStore produces an empty SnapshotStore
func CreateSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snaps: make(map[string][]byte)}
}

// Capture compresses and stores a snapshot for the given table, replacing
// any previous one
func (s *SnapshotStore) Capture(tableID string, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	compressor := lz4.NewWriter(&buf)
	if _, err := compressor.Write(data); err != nil {
		return err
	}
	if err := compressor.Close(); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.snaps[tableID] = buf.Bytes()
	return nil
}

// Restore decompresses and returns the snapshot for the given table, removing
// it from the store
func (s *SnapshotStore) Restore(tableID string) (*Snapshot, error) {
	s.lock.Lock()
	data, ok := s.snaps[tableID]
	if ok {
		delete(s.snaps, tableID)
	}
	s.lock.Unlock()
	if !ok {
		return nil, errors.MissingSnapshotError{TableID: tableID}
	}
	decompressor := lz4.NewReader(bytes.NewReader(data))
	var raw bytes.Buffer
	if _, err := raw.ReadFrom(decompressor); err != nil {
		return nil, err
	}
	snap := &Snapshot{}
	if err := json.Unmarshal(raw.Bytes(), snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Drop discards any snapshot held for the given table
func (s *SnapshotStore) Drop(tableID string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.snaps, tableID)
}

// Has returns true iff a snapshot is held for the given table
func (s *SnapshotStore) Has(tableID string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.snaps[tableID]
	return ok
}
