package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/dimtable/internal/grid"
	"github.com/JonMunkholm/dimtable/internal/store"
)

// ItemQuery loads the items of a dimension from a lookup relation, e.g. the
// employees a table has a row for.
type ItemQuery struct {
	Relation    string           `validate:"required"`
	ValueColumn string           `validate:"required"` // Matched against the record field
	LabelColumn string           `validate:"required"` // Shown as the header
	Field       string           `validate:"required"` // Record field the items are bound to
	Where       squirrel.Sqlizer // Optional filter
	OrderBy     string           // Defaults to the label column
}

type itemRow struct {
	Value any    `db:"value"`
	Label string `db:"label"`
}

// LoadItems returns one ValueItem per row of the lookup relation.
func LoadItems(ctx context.Context, db DBTX, q ItemQuery) ([]grid.Item, error) {
	order := q.OrderBy
	if order == "" {
		order = q.LabelColumn
	}
	b := NewQueryBuilder().
		Select(
			fmt.Sprintf("%s AS value", q.ValueColumn),
			fmt.Sprintf("%s::text AS label", q.LabelColumn),
		).
		From(q.Relation).
		OrderBy(order)
	if q.Where != nil {
		b = b.Where(q.Where)
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build item query")
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s items", q.Relation)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[itemRow])
	if err != nil {
		return nil, errors.Wrapf(err, "load %s items", q.Relation)
	}
	if len(found) == 0 {
		return nil, errors.Wrapf(grid.ErrEmptyDimension, "no rows in %s", q.Relation)
	}

	items := make([]grid.Item, len(found))
	for i, r := range found {
		label := r.Label
		items[i] = grid.NewValueItem(q.Field, r.Value, func(any) string { return label })
	}
	return items, nil
}

// SnapshotFilter restricts a record load to the value range of a table:
// every record-bound dimension's field must be one of its item values, and
// every fixed field must match.
func SnapshotFilter(dims []grid.Dimension, fixed []store.FixedField) squirrel.Sqlizer {
	and := squirrel.And{}
	for _, d := range dims {
		f := d.Field()
		if f == "" {
			continue
		}
		var values []any
		for _, it := range d.Items() {
			if m, ok := it.(grid.RecordMatcher); ok {
				values = append(values, m.Value())
			}
		}
		and = append(and, squirrel.Eq{f: values})
	}
	for _, ff := range fixed {
		and = append(and, squirrel.Eq{ff.Field: ff.Value})
	}
	return and
}
