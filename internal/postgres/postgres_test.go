package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dimtable/internal/grid"
	"github.com/JonMunkholm/dimtable/internal/store"
)

var sales = Relation{Name: "daily_sales", Columns: []string{"amount", "employee_id"}}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestBackend_Fetch(t *testing.T) {
	t.Run("nominal", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, amount, employee_id FROM daily_sales WHERE id = $1")).
			WithArgs(int64(5)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "amount", "employee_id"}).
				AddRow(int64(5), int64(12), int64(2)))

		r, err := NewBackend(mock, sales).Fetch(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), r.ID())
		assert.Equal(t, int64(12), r.Get("amount"))
		assert.Equal(t, int64(2), r.Get("employee_id"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, amount, employee_id FROM daily_sales")).
			WithArgs(int64(9)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "amount", "employee_id"}))

		_, err := NewBackend(mock, sales).Fetch(context.Background(), 9)
		assert.True(t, errors.Is(err, store.ErrRecordNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBackend_Save(t *testing.T) {
	t.Run("insert returns id", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO daily_sales (amount,employee_id) VALUES ($1,$2) RETURNING id")).
			WithArgs(int64(7), int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(31)))

		r := store.NewMapRecord(0, map[string]any{"amount": int64(7), "employee_id": int64(1), "ignored": "x"})
		saved, err := NewBackend(mock, sales).Save(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, int64(31), saved.ID())
		assert.Nil(t, saved.Get("ignored"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert leaves out unset columns", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO daily_sales (employee_id) VALUES ($1) RETURNING id")).
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(32)))

		_, err := NewBackend(mock, sales).Save(context.Background(), store.NewMapRecord(0, map[string]any{"employee_id": int64(1)}))
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO daily_sales")).
			WithArgs(int64(7), int64(1)).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

		r := store.NewMapRecord(0, map[string]any{"amount": int64(7), "employee_id": int64(1)})
		_, err := NewBackend(mock, sales).Save(context.Background(), r)
		assert.True(t, errors.Is(err, ErrConflict))
	})

	t.Run("update", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE daily_sales SET amount = $1, employee_id = $2 WHERE id = $3")).
			WithArgs(int64(8), int64(1), int64(31)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		r := store.NewMapRecord(31, map[string]any{"amount": int64(8), "employee_id": int64(1)})
		saved, err := NewBackend(mock, sales).Save(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, int64(8), saved.Get("amount"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update of missing row", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE daily_sales")).
			WithArgs(int64(8), int64(1), int64(31)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		r := store.NewMapRecord(31, map[string]any{"amount": int64(8), "employee_id": int64(1)})
		_, err := NewBackend(mock, sales).Save(context.Background(), r)
		assert.True(t, errors.Is(err, store.ErrRecordNotFound))
	})
}

func TestBackend_Delete(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM daily_sales WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM daily_sales WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	b := NewBackend(mock, sales)
	require.NoError(t, b.Delete(context.Background(), store.NewMapRecord(4, nil)))
	err := b.Delete(context.Background(), store.NewMapRecord(4, nil))
	assert.True(t, errors.Is(err, store.ErrRecordNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackend_Load(t *testing.T) {
	mock := newMock(t)
	employees := grid.MustDimension(grid.Values("employee_id", []int64{1, 2}, nil)...)
	filter := SnapshotFilter([]grid.Dimension{employees}, []store.FixedField{{Field: "region", Value: "north"}})

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, amount, employee_id FROM daily_sales WHERE (employee_id IN ($1,$2) AND region = $3) ORDER BY id")).
		WithArgs(int64(1), int64(2), "north").
		WillReturnRows(pgxmock.NewRows([]string{"id", "amount", "employee_id"}).
			AddRow(int64(1), int64(5), int64(1)).
			AddRow(int64(2), int64(6), int64(2)))

	recs, err := NewBackend(mock, sales).Load(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(6), recs[1].Get("amount"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadItems(t *testing.T) {
	t.Run("nominal", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id AS value, name::text AS label FROM employees ORDER BY name")).
			WillReturnRows(pgxmock.NewRows([]string{"value", "label"}).
				AddRow(int64(2), "Ada").
				AddRow(int64(1), "Brian"))

		items, err := LoadItems(context.Background(), mock, ItemQuery{
			Relation: "employees", ValueColumn: "id", LabelColumn: "name", Field: "employee_id",
		})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Ada", items[0].Representation())
		assert.Equal(t, "Brian", items[1].Representation())

		m, ok := items[0].(grid.RecordMatcher)
		require.True(t, ok)
		assert.Equal(t, "employee_id", m.Field())
		assert.True(t, m.MatchesRecord(store.NewMapRecord(1, map[string]any{"employee_id": int32(2)})))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty relation", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id AS value")).
			WillReturnRows(pgxmock.NewRows([]string{"value", "label"}))

		_, err := LoadItems(context.Background(), mock, ItemQuery{
			Relation: "employees", ValueColumn: "id", LabelColumn: "name", Field: "employee_id",
		})
		assert.True(t, errors.Is(err, grid.ErrEmptyDimension))
	})
}
