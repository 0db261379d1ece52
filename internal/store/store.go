// Package store implements the sparse record store behind a pivot table: a
// cache from coordinates to the records located at them, plus the
// create/update/delete dispatch used when cells are saved.
//
// A table has at most one record per coordinate of its value dimensions. When
// several fields of a record are edited, the input dimension is appended as
// the innermost row dimension; it is stripped again to find the record.
package store

import (
	"log/slog"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/JonMunkholm/dimtable/internal/grid"
	"github.com/JonMunkholm/dimtable/internal/logging"
)

var (
	// ErrRecordNotFound is returned when an update or delete references a
	// record id the backend no longer has.
	ErrRecordNotFound = errors.New("record not found")

	// ErrDefaultMissing is returned when a record would be created with a
	// field that has neither a value nor a configured default.
	ErrDefaultMissing = errors.New("no value and no default for field")

	// ErrNotEditable is returned when a coordinate addresses an input
	// position that is not bound to a record field.
	ErrNotEditable = errors.New("cell is not bound to a field")
)

// FixedField is a field value applied to every record the store creates.
type FixedField struct {
	Field string
	Value any
}

// Config holds the dimensions and collaborators of a store.
type Config struct {
	Backend Backend
	Rows    []grid.Dimension // Value dimensions along the rows
	Cols    []grid.Dimension // Value dimensions along the columns
	Inputs  grid.Dimension   // Input dimension: one position per editable field
	Fixed   []FixedField
	// Defaults holds the value used for an unset field when a record is
	// created by SaveMany. Fields without an entry have no default.
	Defaults map[string]any
	Logger   *slog.Logger
}

// Action describes what a save did.
type Action int

const (
	Unchanged Action = iota
	Created
	Updated
	Deleted
)

func (a Action) String() string {
	switch a {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	default:
		return "unchanged"
	}
}

type entry struct {
	cell grid.CellIndex // stripped coordinate
	rec  grid.Record
}

// Store maps stripped coordinates to records. It is built fresh from a
// record snapshot for every table instance and is not safe for concurrent use.
type Store struct {
	backend  Backend
	rows     []grid.Dimension
	cols     []grid.Dimension
	inputs   grid.Dimension
	fixed    []FixedField
	defaults map[string]any
	logger   *slog.Logger

	indexer grid.Indexer
	cache   map[grid.CellKey]entry
}

// New builds a store and files every record of the snapshot under the
// coordinate derived from its field values. Records that match no item of
// some dimension are outside the table and are skipped.
func New(cfg Config, records []grid.Record) (*Store, error) {
	if cfg.Backend == nil {
		return nil, errors.New("store: backend is required")
	}
	if len(cfg.Rows) == 0 || len(cfg.Cols) == 0 {
		return nil, errors.New("store: at least one row and one column dimension are required")
	}
	if cfg.Inputs.Len() == 0 {
		return nil, errors.Wrap(grid.ErrEmptyDimension, "store: input dimension")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Store{
		backend:  cfg.Backend,
		rows:     append([]grid.Dimension(nil), cfg.Rows...),
		cols:     append([]grid.Dimension(nil), cfg.Cols...),
		inputs:   cfg.Inputs,
		fixed:    append([]FixedField(nil), cfg.Fixed...),
		defaults: cfg.Defaults,
		logger:   logger,
		cache:    make(map[grid.CellKey]entry, len(records)),
	}
	s.indexer = grid.NewIndexer(s.RowDims(), s.ColDims())

	skipped := 0
	for _, r := range records {
		c, ok := s.locate(r)
		if !ok {
			skipped++
			continue
		}
		if prev, dup := s.cache[c.Key()]; dup {
			s.logger.Warn("duplicate record for coordinate, keeping the later one",
				"cell", c.String(), "kept_id", r.ID(), "dropped_id", prev.rec.ID())
		}
		s.cache[c.Key()] = entry{cell: c, rec: r}
	}
	if skipped > 0 {
		s.logger.Debug("records outside table skipped", "count", skipped)
	}
	return s, nil
}

// locate derives the stripped coordinate of r from the value dimensions.
func (s *Store) locate(r grid.Record) (grid.CellIndex, bool) {
	c := grid.CellIndex{Rows: make(grid.Coord, len(s.rows)), Cols: make(grid.Coord, len(s.cols))}
	for i, d := range s.rows {
		ix, ok := d.IndexOf(r)
		if !ok {
			return grid.CellIndex{}, false
		}
		c.Rows[i] = ix
	}
	for j, d := range s.cols {
		ix, ok := d.IndexOf(r)
		if !ok {
			return grid.CellIndex{}, false
		}
		c.Cols[j] = ix
	}
	return c, true
}

// MultiInput reports whether the input dimension is part of the row
// coordinate, which is the case when records have more than one input field.
func (s *Store) MultiInput() bool { return s.inputs.Len() > 1 }

// RowDims returns the full row dimensions, including the input dimension as
// the innermost one when records have several input fields.
func (s *Store) RowDims() []grid.Dimension {
	dims := append([]grid.Dimension(nil), s.rows...)
	if s.MultiInput() {
		dims = append(dims, s.inputs)
	}
	return dims
}

// ValueRowDims returns the row dimensions without the input dimension.
func (s *Store) ValueRowDims() []grid.Dimension { return append([]grid.Dimension(nil), s.rows...) }

func (s *Store) ColDims() []grid.Dimension { return append([]grid.Dimension(nil), s.cols...) }

func (s *Store) Inputs() grid.Dimension { return s.inputs }

func (s *Store) Fixed() []FixedField { return append([]FixedField(nil), s.fixed...) }

// Indexer returns the flat index mapping over the full dimensions.
func (s *Store) Indexer() grid.Indexer { return s.indexer }

// Key strips the input component from a full coordinate.
func (s *Store) Key(c grid.CellIndex) grid.CellIndex {
	if !s.MultiInput() || len(c.Rows) == 0 {
		return grid.Cell(c.Rows, c.Cols)
	}
	return grid.Cell(c.Rows[:len(c.Rows)-1], c.Cols)
}

// InputIndex returns the input dimension position a full coordinate edits.
func (s *Store) InputIndex(c grid.CellIndex) int {
	if !s.MultiInput() || len(c.Rows) == 0 {
		return 0
	}
	return c.Rows[len(c.Rows)-1]
}

// Expand returns the full coordinate of input position input within the
// record at stripped coordinate key.
func (s *Store) Expand(key grid.CellIndex, input int) grid.CellIndex {
	if !s.MultiInput() {
		return grid.Cell(key.Rows, key.Cols)
	}
	return grid.Cell(append(append(grid.Coord(nil), key.Rows...), input), key.Cols)
}

// InputField returns the field edited at input position i, or "" for
// positions that are not bound to a field.
func (s *Store) InputField(i int) string {
	if r, ok := s.inputs.Item(i).(grid.RecordRenderer); ok {
		return r.Field()
	}
	return ""
}

// Get returns the record at the full coordinate c.
func (s *Store) Get(c grid.CellIndex) (grid.Record, bool) {
	e, ok := s.cache[s.Key(c).Key()]
	return e.rec, ok
}

// Len returns the number of cached records.
func (s *Store) Len() int { return len(s.cache) }

// InstanceIDs maps the flat index of every input cell of every cached record
// to the record's id.
func (s *Store) InstanceIDs() map[int]int64 {
	ids := make(map[int]int64, len(s.cache)*s.inputs.Len())
	for _, e := range s.cache {
		for i := 0; i < s.inputs.Len(); i++ {
			n, err := s.indexer.ToFlat(s.Expand(e.cell, i))
			if err != nil {
				continue
			}
			ids[n] = e.rec.ID()
		}
	}
	return ids
}

// Records returns the cached records ordered by coordinate.
func (s *Store) Records() []grid.Record {
	entries := make([]entry, 0, len(s.cache))
	for _, e := range s.cache {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(a, b int) bool {
		na, _ := s.indexer.ToFlat(s.Expand(entries[a].cell, 0))
		nb, _ := s.indexer.ToFlat(s.Expand(entries[b].cell, 0))
		return na < nb
	})
	recs := make([]grid.Record, len(entries))
	for i, e := range entries {
		recs[i] = e.rec
	}
	return recs
}

func (s *Store) validate(c grid.CellIndex) error {
	return c.Validate(grid.Lengths(s.RowDims()), grid.Lengths(s.cols))
}
