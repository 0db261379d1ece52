// Package edit turns posted cell values into record changes. Cells are
// grouped by the record they address; every cell of a group is validated
// before any of them is committed, so a record is never partially written.
package edit

import (
	"context"
	"log/slog"
	"slices"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/JonMunkholm/dimtable/internal/field"
	"github.com/JonMunkholm/dimtable/internal/grid"
	"github.com/JonMunkholm/dimtable/internal/logging"
	"github.com/JonMunkholm/dimtable/internal/store"
)

// Config holds the collaborators of an Editor.
type Config struct {
	Store *store.Store
	// Fields holds one spec per position of the store's input dimension.
	// Positions not bound to a field use the zero Spec.
	Fields []field.Spec
	Logger *slog.Logger
}

// Editor validates and commits submissions against one store.
type Editor struct {
	store  *store.Store
	fields []field.Spec
	logger *slog.Logger
}

func NewEditor(cfg Config) (*Editor, error) {
	if cfg.Store == nil {
		return nil, errors.New("edit: store is required")
	}
	if n := cfg.Store.Inputs().Len(); len(cfg.Fields) != n {
		return nil, errors.Newf("edit: %d field specs for %d input positions", len(cfg.Fields), n)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Editor{
		store:  cfg.Store,
		fields: append([]field.Spec(nil), cfg.Fields...),
		logger: logger,
	}, nil
}

// Field returns the spec of input position i.
func (e *Editor) Field(i int) field.Spec { return e.fields[i] }

type cellInput struct {
	flat  int
	cell  grid.CellIndex
	input int
	raw   string
	value any
}

type group struct {
	key   grid.CellIndex
	id    int64
	cells []cellInput
}

// Save validates the submission and commits every group that validates.
//
// Validation failures and fields of an existing record cleared without a
// default become cell errors, a missing default on create becomes a
// table-wide error; each only skips its own group. Malformed input aborts
// before anything is written. A record that disappeared from the backend
// aborts the remaining groups; groups committed before it stay committed.
func (e *Editor) Save(ctx context.Context, sub Submission) (*Result, error) {
	res := newResult(uuid.NewString())
	logger := e.logger.With("save_id", res.SaveID)

	groups, err := e.group(sub)
	if err != nil {
		logger.Warn("save rejected", "error", err)
		return nil, err
	}

	for _, g := range groups {
		if !e.validate(g, res) {
			e.keepEntered(g, res)
			continue
		}
		act, err := e.commit(ctx, g)
		var empty *store.EmptyFieldError
		switch {
		case err == nil:
			res.Actions[act]++
		case errors.As(err, &empty):
			e.markEmpty(g, empty, res)
			e.keepEntered(g, res)
		case errors.Is(err, store.ErrDefaultMissing):
			res.TableErrors = append(res.TableErrors, err)
			e.keepEntered(g, res)
		default:
			logger.Error("save aborted", "cell", g.key.String(), "record_id", g.id, "error", err)
			return nil, err
		}
	}

	logger.Info("save finished",
		"groups", len(groups),
		"created", res.Actions[store.Created],
		"updated", res.Actions[store.Updated],
		"deleted", res.Actions[store.Deleted],
		"cell_errors", len(res.CellErrors),
		"table_errors", len(res.TableErrors),
	)
	return res, nil
}

// group resolves every posted cell and groups the cells by the record they
// address, in order of their first flat index.
func (e *Editor) group(sub Submission) ([]*group, error) {
	flats := make([]int, 0, len(sub.Cells))
	for n := range sub.Cells {
		flats = append(flats, n)
	}
	sort.Ints(flats)

	x := e.store.Indexer()
	byKey := make(map[grid.CellKey]*group)
	var groups []*group
	for _, n := range flats {
		c, err := x.FromFlat(n)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedInput, "cell %d: %v", n, err)
		}
		key := e.store.Key(c)
		id := sub.InstanceIDs[n]

		g, ok := byKey[key.Key()]
		if !ok {
			g = &group{key: key, id: id}
			byKey[key.Key()] = g
			groups = append(groups, g)
		} else if g.id != id {
			return nil, errors.Wrapf(ErrMalformedInput,
				"cells of record %s posted with record ids %d and %d", key, g.id, id)
		}
		g.cells = append(g.cells, cellInput{flat: n, cell: c, input: e.store.InputIndex(c), raw: sub.Cells[n]})
	}
	return groups, nil
}

// validate parses every cell of g, recording a CellError for each failure.
func (e *Editor) validate(g *group, res *Result) bool {
	ok := true
	for i := range g.cells {
		ci := &g.cells[i]
		spec := e.fields[ci.input]
		if !spec.Editable() || !e.editable(ci.cell) {
			res.CellErrors[ci.cell.Key()] = CellError{
				Cell: ci.cell, Flat: ci.flat, Input: ci.raw,
				Messages: []string{"cell is not editable"},
			}
			ok = false
			continue
		}
		v, err := field.Parse(ci.raw, spec)
		if err != nil {
			res.CellErrors[ci.cell.Key()] = CellError{
				Cell: ci.cell, Flat: ci.flat, Input: ci.raw,
				Messages: []string{err.Error()},
			}
			ok = false
			continue
		}
		ci.value = v
	}
	return ok
}

func (e *Editor) editable(c grid.CellIndex) bool {
	for _, it := range grid.ItemsAt(e.store.RowDims(), e.store.ColDims(), c) {
		if !it.Editable() {
			return false
		}
	}
	return true
}

func (e *Editor) commit(ctx context.Context, g *group) (store.Action, error) {
	if !e.store.MultiInput() {
		c := g.cells[0]
		return e.store.SaveOne(ctx, c.cell, g.id, c.value)
	}
	values := make([]store.FieldValue, len(g.cells))
	for i, c := range g.cells {
		values[i] = store.FieldValue{Input: c.input, Value: c.value}
	}
	return e.store.SaveMany(ctx, g.cells[0].cell, g.id, values)
}

// markEmpty records a CellError for every cell of g named by empty.
func (e *Editor) markEmpty(g *group, empty *store.EmptyFieldError, res *Result) {
	for _, c := range g.cells {
		if !slices.Contains(empty.Inputs, c.input) {
			continue
		}
		res.CellErrors[c.cell.Key()] = CellError{
			Cell: c.cell, Flat: c.flat, Input: c.raw,
			Messages: []string{"value required, this field has no default"},
		}
	}
}

func (e *Editor) keepEntered(g *group, res *Result) {
	for _, c := range g.cells {
		res.Entered[c.flat] = c.raw
	}
}
