// Package storetest provides an in-memory store.Backend for tests.
package storetest

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/JonMunkholm/dimtable/internal/grid"
	"github.com/JonMunkholm/dimtable/internal/store"
)

// Call records one backend operation.
type Call struct {
	Op string // "fetch", "insert", "update" or "delete"
	ID int64
}

// Memory keeps records in a map and records every call made to it.
type Memory struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]map[string]any
	calls   []Call
}

func NewMemory() *Memory {
	return &Memory{nextID: 1, records: make(map[int64]map[string]any)}
}

// Seed stores a record directly, bypassing the call log.
func (m *Memory) Seed(fields map[string]any) grid.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.records[id] = copyFields(fields)
	return store.NewMapRecord(id, fields)
}

// Snapshot returns every stored record ordered by id, as a fresh load would.
func (m *Memory) Snapshot() []grid.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	recs := make([]grid.Record, len(ids))
	for i, id := range ids {
		recs[i] = store.NewMapRecord(id, m.records[id])
	}
	return recs
}

// Fields returns the stored fields of record id.
func (m *Memory) Fields(id int64) (map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.records[id]
	if !ok {
		return nil, false
	}
	return copyFields(f), true
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Calls returns the mutating calls made so far (inserts, updates, deletes).
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if c.Op != "fetch" {
			out = append(out, c)
		}
	}
	return out
}

func (m *Memory) New() grid.Record { return store.NewMapRecord(0, nil) }

func (m *Memory) Fetch(_ context.Context, id int64) (grid.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "fetch", ID: id})
	f, ok := m.records[id]
	if !ok {
		return nil, errors.Wrapf(store.ErrRecordNotFound, "id %d", id)
	}
	return store.NewMapRecord(id, f), nil
}

func (m *Memory) Save(_ context.Context, r grid.Record) (grid.Record, error) {
	mr, ok := r.(*store.MapRecord)
	if !ok {
		return nil, errors.Newf("unsupported record type %T", r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := mr.ID()
	if id == 0 {
		id = m.nextID
		m.nextID++
		m.calls = append(m.calls, Call{Op: "insert", ID: id})
	} else {
		if _, ok := m.records[id]; !ok {
			return nil, errors.Wrapf(store.ErrRecordNotFound, "id %d", id)
		}
		m.calls = append(m.calls, Call{Op: "update", ID: id})
	}
	m.records[id] = mr.Fields()
	return store.NewMapRecord(id, m.records[id]), nil
}

func (m *Memory) Delete(_ context.Context, r grid.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.ID()]; !ok {
		return errors.Wrapf(store.ErrRecordNotFound, "id %d", r.ID())
	}
	delete(m.records, r.ID())
	m.calls = append(m.calls, Call{Op: "delete", ID: r.ID()})
	return nil
}

// Remove deletes a record behind the store's back, as a concurrent user would.
func (m *Memory) Remove(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
}

func copyFields(f map[string]any) map[string]any {
	cp := make(map[string]any, len(f))
	for k, v := range f {
		cp[k] = v
	}
	return cp
}
