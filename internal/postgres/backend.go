package postgres

import (
	"context"
	"slices"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/dimtable/internal/grid"
	"github.com/JonMunkholm/dimtable/internal/store"
)

// Relation describes the table records are stored in.
type Relation struct {
	Name     string   `validate:"required"`
	IDColumn string   // Defaults to "id"
	Columns  []string `validate:"required,min=1"` // Every column read and written, without the id
}

func (r Relation) idColumn() string {
	if r.IDColumn == "" {
		return "id"
	}
	return r.IDColumn
}

func (r Relation) selectColumns() []string {
	return append([]string{r.idColumn()}, r.Columns...)
}

// Backend persists records of one relation. It implements store.Backend.
type Backend struct {
	db  DBTX
	rel Relation
}

func NewBackend(db DBTX, rel Relation) *Backend {
	return &Backend{db: db, rel: rel}
}

func (b *Backend) New() grid.Record { return store.NewMapRecord(0, nil) }

// Fetch loads one record by id.
func (b *Backend) Fetch(ctx context.Context, id int64) (grid.Record, error) {
	sql, args, err := NewQueryBuilder().
		Select(b.rel.selectColumns()...).
		From(b.rel.Name).
		Where(squirrel.Eq{b.rel.idColumn(): id}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build fetch query")
	}

	rows, err := b.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s %d", b.rel.Name, id)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(store.ErrRecordNotFound, "%s %d", b.rel.Name, id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s %d", b.rel.Name, id)
	}
	return b.toRecord(row)
}

// Load returns every record matching filter, ordered by id. A nil filter
// loads the whole relation.
func (b *Backend) Load(ctx context.Context, filter squirrel.Sqlizer) ([]grid.Record, error) {
	q := NewQueryBuilder().
		Select(b.rel.selectColumns()...).
		From(b.rel.Name).
		OrderBy(b.rel.idColumn())
	if filter != nil {
		q = q.Where(filter)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build load query")
	}

	rows, err := b.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", b.rel.Name)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", b.rel.Name)
	}

	recs := make([]grid.Record, 0, len(maps))
	for _, m := range maps {
		r, err := b.toRecord(m)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// Save inserts a record with id 0 and updates any other.
func (b *Backend) Save(ctx context.Context, r grid.Record) (grid.Record, error) {
	if r.ID() == 0 {
		return b.insert(ctx, r)
	}
	return b.update(ctx, r)
}

func (b *Backend) insert(ctx context.Context, r grid.Record) (grid.Record, error) {
	values := b.values(r, true)
	sql, args, err := NewQueryBuilder().
		Insert(b.rel.Name).
		SetMap(values).
		Suffix("RETURNING " + b.rel.idColumn()).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build insert")
	}

	var id int64
	if err := b.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return nil, errors.Wrapf(translate(err), "insert into %s", b.rel.Name)
	}
	return store.NewMapRecord(id, values), nil
}

func (b *Backend) update(ctx context.Context, r grid.Record) (grid.Record, error) {
	values := b.values(r, false)
	sql, args, err := NewQueryBuilder().
		Update(b.rel.Name).
		SetMap(values).
		Where(squirrel.Eq{b.rel.idColumn(): r.ID()}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build update")
	}

	tag, err := b.db.Exec(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrapf(translate(err), "update %s %d", b.rel.Name, r.ID())
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.Wrapf(store.ErrRecordNotFound, "%s %d", b.rel.Name, r.ID())
	}
	return store.NewMapRecord(r.ID(), values), nil
}

// Delete removes a record by id.
func (b *Backend) Delete(ctx context.Context, r grid.Record) error {
	sql, args, err := NewQueryBuilder().
		Delete(b.rel.Name).
		Where(squirrel.Eq{b.rel.idColumn(): r.ID()}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build delete")
	}

	tag, err := b.db.Exec(ctx, sql, args...)
	if err != nil {
		return errors.Wrapf(translate(err), "delete %s %d", b.rel.Name, r.ID())
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(store.ErrRecordNotFound, "%s %d", b.rel.Name, r.ID())
	}
	return nil
}

// values collects the relation's columns from r. On insert, unset columns
// are left out so the database defaults apply.
func (b *Backend) values(r grid.Record, skipNil bool) map[string]any {
	out := make(map[string]any, len(b.rel.Columns))
	for _, c := range b.rel.Columns {
		v := r.Get(c)
		if v == nil && skipNil {
			continue
		}
		out[c] = v
	}
	return out
}

func (b *Backend) toRecord(row map[string]any) (grid.Record, error) {
	id, ok := asID(row[b.rel.idColumn()])
	if !ok {
		return nil, errors.Newf("%s: unexpected id %v (%T)", b.rel.Name, row[b.rel.idColumn()], row[b.rel.idColumn()])
	}
	fields := make(map[string]any, len(row)-1)
	for k, v := range row {
		if k != b.rel.idColumn() && slices.Contains(b.rel.Columns, k) {
			fields[k] = v
		}
	}
	return store.NewMapRecord(id, fields), nil
}

func asID(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int:
		return int64(x), true
	default:
		return 0, false
	}
}
