package store_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dimtable/internal/grid"
	"github.com/JonMunkholm/dimtable/internal/store"
	"github.com/JonMunkholm/dimtable/internal/store/storetest"
)

var (
	employees = grid.MustDimension(grid.Values("employee_id", []int64{1, 2}, nil)...)
	products  = grid.MustDimension(grid.Values("product_id", []int64{10, 20, 30}, nil)...)
)

func singleInput(t *testing.T) grid.Dimension {
	t.Helper()
	d, err := grid.NewInputDimension(grid.NewInputItem("amount", "Amount", nil))
	require.NoError(t, err)
	return d
}

func twoInputs(t *testing.T) grid.Dimension {
	t.Helper()
	d, err := grid.NewInputDimension(
		grid.NewInputItem("amount", "Amount", nil),
		grid.NewInputItem("qty", "Quantity", nil),
	)
	require.NoError(t, err)
	return d
}

func newStore(t *testing.T, m *storetest.Memory, inputs grid.Dimension, defaults map[string]any) *store.Store {
	t.Helper()
	s, err := store.New(store.Config{
		Backend:  m,
		Rows:     []grid.Dimension{employees},
		Cols:     []grid.Dimension{products},
		Inputs:   inputs,
		Fixed:    []store.FixedField{{Field: "region", Value: "north"}},
		Defaults: defaults,
	}, m.Snapshot())
	require.NoError(t, err)
	return s
}

func TestNewLocatesRecords(t *testing.T) {
	t.Parallel()
	m := storetest.NewMemory()
	r := m.Seed(map[string]any{"employee_id": int64(2), "product_id": int64(20), "amount": 5})
	m.Seed(map[string]any{"employee_id": int64(9), "product_id": int64(20), "amount": 1}) // outside table

	s := newStore(t, m, singleInput(t), nil)
	assert.Equal(t, 1, s.Len())

	got, ok := s.Get(grid.Cell([]int{1}, []int{1}))
	require.True(t, ok)
	assert.Equal(t, r.ID(), got.ID())

	_, ok = s.Get(grid.Cell([]int{0}, []int{1}))
	assert.False(t, ok)
}

func TestDuplicateRecordLastWins(t *testing.T) {
	t.Parallel()
	m := storetest.NewMemory()
	m.Seed(map[string]any{"employee_id": int64(1), "product_id": int64(10)})
	second := m.Seed(map[string]any{"employee_id": int64(1), "product_id": int64(10)})

	s := newStore(t, m, singleInput(t), nil)
	got, ok := s.Get(grid.Cell([]int{0}, []int{0}))
	require.True(t, ok)
	assert.Equal(t, second.ID(), got.ID())
}

func TestKeyAndInputIndex(t *testing.T) {
	t.Parallel()
	m := storetest.NewMemory()

	single := newStore(t, m, singleInput(t), nil)
	c := grid.Cell([]int{1}, []int{2})
	assert.False(t, single.MultiInput())
	assert.Len(t, single.RowDims(), 1)
	assert.True(t, single.Key(c).Equal(c))
	assert.Equal(t, 0, single.InputIndex(c))

	multi := newStore(t, m, twoInputs(t), nil)
	full := grid.Cell([]int{1, 1}, []int{2})
	assert.True(t, multi.MultiInput())
	assert.Len(t, multi.RowDims(), 2)
	assert.True(t, multi.Key(full).Equal(c))
	assert.Equal(t, 1, multi.InputIndex(full))
	assert.True(t, multi.Expand(c, 1).Equal(full))
	assert.Equal(t, "qty", multi.InputField(1))
	assert.Equal(t, 12, multi.Indexer().Total())
}

func TestSaveOne(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("create sets dimension, fixed and input fields", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		s := newStore(t, m, singleInput(t), nil)
		c := grid.Cell([]int{0}, []int{2})

		act, err := s.SaveOne(ctx, c, 0, 7)
		require.NoError(t, err)
		assert.Equal(t, store.Created, act)

		r, ok := s.Get(c)
		require.True(t, ok)
		fields, ok := m.Fields(r.ID())
		require.True(t, ok)
		assert.Equal(t, map[string]any{
			"employee_id": int64(1),
			"product_id":  int64(30),
			"region":      "north",
			"amount":      7,
		}, fields)
	})

	t.Run("delete when value is absent", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		r := m.Seed(map[string]any{"employee_id": int64(1), "product_id": int64(10), "amount": 3})
		s := newStore(t, m, singleInput(t), nil)
		c := grid.Cell([]int{0}, []int{0})

		act, err := s.SaveOne(ctx, c, r.ID(), nil)
		require.NoError(t, err)
		assert.Equal(t, store.Deleted, act)
		assert.Equal(t, []storetest.Call{{Op: "delete", ID: r.ID()}}, m.Calls())
		_, ok := s.Get(c)
		assert.False(t, ok)
	})

	t.Run("update sets only the input field", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		r := m.Seed(map[string]any{"employee_id": int64(1), "product_id": int64(10), "amount": 3, "note": "x"})
		s := newStore(t, m, singleInput(t), nil)
		c := grid.Cell([]int{0}, []int{0})

		act, err := s.SaveOne(ctx, c, r.ID(), 4)
		require.NoError(t, err)
		assert.Equal(t, store.Updated, act)
		fields, _ := m.Fields(r.ID())
		assert.Equal(t, 4, fields["amount"])
		assert.Equal(t, "x", fields["note"])

		cached, _ := s.Get(c)
		assert.Equal(t, 4, cached.Get("amount"))
	})

	t.Run("nothing to do", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		s := newStore(t, m, singleInput(t), nil)
		act, err := s.SaveOne(ctx, grid.Cell([]int{0}, []int{0}), 0, nil)
		require.NoError(t, err)
		assert.Equal(t, store.Unchanged, act)
		assert.Empty(t, m.Calls())
	})

	t.Run("record gone", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		r := m.Seed(map[string]any{"employee_id": int64(1), "product_id": int64(10), "amount": 3})
		s := newStore(t, m, singleInput(t), nil)
		m.Remove(r.ID())

		_, err := s.SaveOne(ctx, grid.Cell([]int{0}, []int{0}), r.ID(), 1)
		assert.True(t, errors.Is(err, store.ErrRecordNotFound))
	})

	t.Run("out of range", func(t *testing.T) {
		t.Parallel()
		s := newStore(t, storetest.NewMemory(), singleInput(t), nil)
		_, err := s.SaveOne(ctx, grid.Cell([]int{5}, []int{0}), 0, 1)
		assert.ErrorIs(t, err, grid.ErrOutOfRange)
	})
}

func TestSaveMany(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cell := grid.Cell([]int{1, 0}, []int{1})

	t.Run("all empty with existing id deletes", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		r := m.Seed(map[string]any{"employee_id": int64(2), "product_id": int64(20), "amount": 1, "qty": 2})
		s := newStore(t, m, twoInputs(t), nil)

		act, err := s.SaveMany(ctx, cell, r.ID(), []store.FieldValue{{Input: 0}, {Input: 1}})
		require.NoError(t, err)
		assert.Equal(t, store.Deleted, act)
		assert.Equal(t, 0, m.Len())
		_, ok := s.Get(cell)
		assert.False(t, ok)
	})

	t.Run("update leaves unposted fields untouched", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		r := m.Seed(map[string]any{"employee_id": int64(2), "product_id": int64(20), "amount": 1, "qty": 2})
		s := newStore(t, m, twoInputs(t), nil)

		act, err := s.SaveMany(ctx, cell, r.ID(), []store.FieldValue{{Input: 0, Value: 9}})
		require.NoError(t, err)
		assert.Equal(t, store.Updated, act)
		fields, _ := m.Fields(r.ID())
		assert.Equal(t, 9, fields["amount"])
		assert.Equal(t, 2, fields["qty"])
	})

	t.Run("clearing a field without default fails", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		r := m.Seed(map[string]any{"employee_id": int64(2), "product_id": int64(20), "amount": 1, "qty": 2})
		s := newStore(t, m, twoInputs(t), nil)

		act, err := s.SaveMany(ctx, cell, r.ID(), []store.FieldValue{{Input: 0, Value: 9}, {Input: 1}})
		assert.ErrorIs(t, err, store.ErrDefaultMissing)
		var empty *store.EmptyFieldError
		require.True(t, errors.As(err, &empty))
		assert.Equal(t, []int{1}, empty.Inputs)
		assert.Equal(t, []string{"qty"}, empty.Fields)
		assert.Equal(t, store.Unchanged, act)

		fields, _ := m.Fields(r.ID())
		assert.Equal(t, 1, fields["amount"])
		assert.Equal(t, 2, fields["qty"])
	})

	t.Run("partially posted empties without default fail", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		r := m.Seed(map[string]any{"employee_id": int64(2), "product_id": int64(20), "amount": 1, "qty": 2})
		s := newStore(t, m, twoInputs(t), nil)

		_, err := s.SaveMany(ctx, cell, r.ID(), []store.FieldValue{{Input: 0}})
		assert.ErrorIs(t, err, store.ErrDefaultMissing)
		assert.Equal(t, 1, m.Len())
	})

	t.Run("clearing a field applies its default", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		r := m.Seed(map[string]any{"employee_id": int64(2), "product_id": int64(20), "amount": 1, "qty": 2})
		s := newStore(t, m, twoInputs(t), map[string]any{"qty": 1})

		act, err := s.SaveMany(ctx, cell, r.ID(), []store.FieldValue{{Input: 0, Value: 9}, {Input: 1}})
		require.NoError(t, err)
		assert.Equal(t, store.Updated, act)
		fields, _ := m.Fields(r.ID())
		assert.Equal(t, 9, fields["amount"])
		assert.Equal(t, 1, fields["qty"])
	})

	t.Run("empty field that holds no value is skipped", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		r := m.Seed(map[string]any{"employee_id": int64(2), "product_id": int64(20), "amount": 1})
		s := newStore(t, m, twoInputs(t), nil)

		act, err := s.SaveMany(ctx, cell, r.ID(), []store.FieldValue{{Input: 0, Value: 9}, {Input: 1}})
		require.NoError(t, err)
		assert.Equal(t, store.Updated, act)
	})

	t.Run("create uses default for unset field", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		s := newStore(t, m, twoInputs(t), map[string]any{"qty": 1})

		act, err := s.SaveMany(ctx, cell, 0, []store.FieldValue{{Input: 0, Value: 5}})
		require.NoError(t, err)
		assert.Equal(t, store.Created, act)

		r, ok := s.Get(cell)
		require.True(t, ok)
		fields, _ := m.Fields(r.ID())
		assert.Equal(t, 5, fields["amount"])
		assert.Equal(t, 1, fields["qty"])
		assert.Equal(t, int64(2), fields["employee_id"])
		assert.Equal(t, int64(20), fields["product_id"])
	})

	t.Run("create without default fails", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		s := newStore(t, m, twoInputs(t), nil)

		act, err := s.SaveMany(ctx, cell, 0, []store.FieldValue{{Input: 0, Value: 5}})
		assert.ErrorIs(t, err, store.ErrDefaultMissing)
		assert.Equal(t, store.Unchanged, act)
		assert.Equal(t, 0, m.Len())
	})

	t.Run("custom input position is not editable", func(t *testing.T) {
		t.Parallel()
		inputs, err := grid.NewInputDimension(grid.NewInputItem("amount", "", nil), grid.NewCustomItem("total"))
		require.NoError(t, err)
		s := newStore(t, storetest.NewMemory(), inputs, nil)

		_, err = s.SaveMany(ctx, cell, 0, []store.FieldValue{{Input: 1, Value: 5}})
		assert.ErrorIs(t, err, store.ErrNotEditable)
	})
}

func TestInstanceIDs(t *testing.T) {
	t.Parallel()
	m := storetest.NewMemory()
	r := m.Seed(map[string]any{"employee_id": int64(2), "product_id": int64(30)})
	s := newStore(t, m, twoInputs(t), nil)

	// rows: employee(2) x input(2), cols: product(3)
	// employee 1, input 0, product 2 -> (1*2+0)*3+2 = 8; input 1 -> 11
	assert.Equal(t, map[int]int64{8: r.ID(), 11: r.ID()}, s.InstanceIDs())
	assert.Len(t, s.Records(), 1)
}

func TestNewRequiresInputs(t *testing.T) {
	t.Parallel()
	_, err := store.New(store.Config{
		Backend: storetest.NewMemory(),
		Rows:    []grid.Dimension{employees},
		Cols:    []grid.Dimension{products},
	}, nil)
	assert.ErrorIs(t, err, grid.ErrEmptyDimension)
}
