package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/JonMunkholm/dimtable/internal/grid"
)

// FieldValue is one input field posted for a record. A nil Value means the
// cell was submitted empty.
type FieldValue struct {
	Input int // Position in the input dimension
	Value any
}

// Create builds a new record at c, sets the dimension-derived and fixed
// fields plus the input field addressed by c, persists it and caches it.
func (s *Store) Create(ctx context.Context, c grid.CellIndex, value any) (grid.Record, error) {
	if err := s.validate(c); err != nil {
		return nil, err
	}
	f := s.InputField(s.InputIndex(c))
	if f == "" {
		return nil, errors.Wrapf(ErrNotEditable, "cell %s", c)
	}
	return s.create(ctx, s.Key(c), map[string]any{f: value})
}

func (s *Store) create(ctx context.Context, key grid.CellIndex, values map[string]any) (grid.Record, error) {
	r := s.backend.New()
	for d, ix := range key.Rows {
		setFromItem(r, s.rows[d].Item(ix))
	}
	for d, ix := range key.Cols {
		setFromItem(r, s.cols[d].Item(ix))
	}
	for _, f := range s.fixed {
		r.Set(f.Field, f.Value)
	}
	for field, v := range values {
		r.Set(field, v)
	}

	saved, err := s.backend.Save(ctx, r)
	if err != nil {
		return nil, errors.Wrapf(err, "create record at %s", key)
	}
	s.cache[key.Key()] = entry{cell: key, rec: saved}
	s.logger.Debug("record created", "cell", key.String(), "id", saved.ID())
	return saved, nil
}

func setFromItem(r grid.Record, it grid.Item) {
	if m, ok := it.(grid.RecordMatcher); ok {
		r.Set(m.Field(), m.Value())
	}
}

// Update fetches record id, sets the input field addressed by c and persists it.
func (s *Store) Update(ctx context.Context, c grid.CellIndex, id int64, value any) (grid.Record, error) {
	if err := s.validate(c); err != nil {
		return nil, err
	}
	f := s.InputField(s.InputIndex(c))
	if f == "" {
		return nil, errors.Wrapf(ErrNotEditable, "cell %s", c)
	}
	return s.update(ctx, s.Key(c), id, map[string]any{f: value})
}

func (s *Store) update(ctx context.Context, key grid.CellIndex, id int64, values map[string]any) (grid.Record, error) {
	r, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	for field, v := range values {
		r.Set(field, v)
	}
	saved, err := s.backend.Save(ctx, r)
	if err != nil {
		return nil, errors.Wrapf(err, "update record %d", id)
	}
	s.cache[key.Key()] = entry{cell: key, rec: saved}
	s.logger.Debug("record updated", "cell", key.String(), "id", id, "fields", len(values))
	return saved, nil
}

// Delete fetches record id, deletes it and drops the cache entry at c.
func (s *Store) Delete(ctx context.Context, c grid.CellIndex, id int64) error {
	if err := s.validate(c); err != nil {
		return err
	}
	return s.delete(ctx, s.Key(c), id)
}

func (s *Store) delete(ctx context.Context, key grid.CellIndex, id int64) error {
	r, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, r); err != nil {
		return errors.Wrapf(err, "delete record %d", id)
	}
	delete(s.cache, key.Key())
	s.logger.Debug("record deleted", "cell", key.String(), "id", id)
	return nil
}

func (s *Store) fetch(ctx context.Context, id int64) (grid.Record, error) {
	r, err := s.backend.Fetch(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch record %d", id)
	}
	if r == nil {
		return nil, errors.Wrapf(ErrRecordNotFound, "record %d", id)
	}
	return r, nil
}

// SaveOne saves a single cell. An id of 0 means no record exists yet and a
// nil value means the cell was submitted empty:
//
//	id set,   value set   -> update
//	id set,   value nil   -> delete
//	id 0,     value set   -> create
//	id 0,     value nil   -> nothing
func (s *Store) SaveOne(ctx context.Context, c grid.CellIndex, id int64, value any) (Action, error) {
	switch {
	case id != 0 && value == nil:
		if err := s.Delete(ctx, c, id); err != nil {
			return Unchanged, err
		}
		return Deleted, nil
	case id != 0:
		if _, err := s.Update(ctx, c, id, value); err != nil {
			return Unchanged, err
		}
		return Updated, nil
	case value != nil:
		if _, err := s.Create(ctx, c, value); err != nil {
			return Unchanged, err
		}
		return Created, nil
	default:
		return Unchanged, nil
	}
}

// EmptyFieldError is returned by SaveMany when fields of an existing record
// were posted empty and have no default to fall back to. It matches
// ErrDefaultMissing.
type EmptyFieldError struct {
	Inputs []int // Input positions
	Fields []string
}

func (e *EmptyFieldError) Error() string {
	return fmt.Sprintf("no value and no default for %s", strings.Join(e.Fields, ", "))
}

func (e *EmptyFieldError) Is(target error) bool { return target == ErrDefaultMissing }

// SaveMany saves several input fields of the record at c (any full
// coordinate of the record). An existing record is deleted only when every
// one of its input fields was posted empty. Otherwise a field posted empty
// takes its default, or fails with EmptyFieldError when it has none and
// still holds a value. A new record takes unset fields from the configured
// defaults and is not created when a field has neither.
func (s *Store) SaveMany(ctx context.Context, c grid.CellIndex, id int64, values []FieldValue) (Action, error) {
	if err := s.validate(c); err != nil {
		return Unchanged, err
	}
	key := s.Key(c)

	set := make(map[string]any, len(values))
	posted := make(map[int]bool, len(values))
	for _, fv := range values {
		if fv.Input < 0 || fv.Input >= s.inputs.Len() {
			return Unchanged, errors.Wrapf(grid.ErrOutOfRange, "input position %d", fv.Input)
		}
		f := s.InputField(fv.Input)
		if f == "" {
			return Unchanged, errors.Wrapf(ErrNotEditable, "input position %d", fv.Input)
		}
		posted[fv.Input] = true
		if fv.Value != nil {
			set[f] = fv.Value
		}
	}

	switch {
	case id != 0 && len(set) == 0 && s.allFieldsPosted(posted):
		if err := s.delete(ctx, key, id); err != nil {
			return Unchanged, err
		}
		return Deleted, nil
	case id != 0:
		if err := s.clearEmpty(key, values, set); err != nil {
			return Unchanged, err
		}
		if len(set) == 0 {
			return Unchanged, nil
		}
		if _, err := s.update(ctx, key, id, set); err != nil {
			return Unchanged, err
		}
		return Updated, nil
	case len(set) > 0:
		for i := 0; i < s.inputs.Len(); i++ {
			f := s.InputField(i)
			if f == "" {
				continue
			}
			if _, ok := set[f]; ok {
				continue
			}
			def, ok := s.defaults[f]
			if !ok || def == nil {
				return Unchanged, errors.Wrapf(ErrDefaultMissing, "field %q", f)
			}
			set[f] = def
		}
		if _, err := s.create(ctx, key, set); err != nil {
			return Unchanged, err
		}
		return Created, nil
	default:
		return Unchanged, nil
	}
}

// clearEmpty puts the default of every field posted empty into set. Fields
// the cached record holds no value for are skipped.
func (s *Store) clearEmpty(key grid.CellIndex, values []FieldValue, set map[string]any) error {
	var missing EmptyFieldError
	for _, fv := range values {
		if fv.Value != nil {
			continue
		}
		f := s.InputField(fv.Input)
		if def, ok := s.defaults[f]; ok && def != nil {
			set[f] = def
			continue
		}
		if e, ok := s.cache[key.Key()]; ok && e.rec.Get(f) == nil {
			continue
		}
		missing.Inputs = append(missing.Inputs, fv.Input)
		missing.Fields = append(missing.Fields, f)
	}
	if len(missing.Inputs) > 0 {
		return errors.WithStack(&missing)
	}
	return nil
}

func (s *Store) allFieldsPosted(posted map[int]bool) bool {
	for i := 0; i < s.inputs.Len(); i++ {
		if s.InputField(i) != "" && !posted[i] {
			return false
		}
	}
	return true
}
