package store

import (
	"context"
	"maps"

	"github.com/JonMunkholm/dimtable/internal/grid"
)

// Backend persists records for a store. Implementations own the records;
// the store only keeps non-authoritative references for one table instance.
type Backend interface {
	// New returns an empty, unsaved record (ID 0).
	New() grid.Record
	// Fetch loads a record by id. A missing record yields ErrRecordNotFound.
	Fetch(ctx context.Context, id int64) (grid.Record, error)
	// Save inserts a record with ID 0 or updates an existing one, returning
	// the stored record.
	Save(ctx context.Context, r grid.Record) (grid.Record, error)
	// Delete removes a record. A missing record yields ErrRecordNotFound.
	Delete(ctx context.Context, r grid.Record) error
}

// MapRecord is a Record backed by a field map.
type MapRecord struct {
	id     int64
	fields map[string]any
}

// NewMapRecord creates a record. The fields map is copied.
func NewMapRecord(id int64, fields map[string]any) *MapRecord {
	cp := make(map[string]any, len(fields))
	maps.Copy(cp, fields)
	return &MapRecord{id: id, fields: cp}
}

func (r *MapRecord) ID() int64                   { return r.id }
func (r *MapRecord) SetID(id int64)              { r.id = id }
func (r *MapRecord) Get(field string) any        { return r.fields[field] }
func (r *MapRecord) Set(field string, value any) { r.fields[field] = value }

// Fields returns a copy of the record's fields.
func (r *MapRecord) Fields() map[string]any {
	cp := make(map[string]any, len(r.fields))
	maps.Copy(cp, r.fields)
	return cp
}
