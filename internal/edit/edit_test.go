package edit

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dimtable/internal/field"
	"github.com/JonMunkholm/dimtable/internal/grid"
	"github.com/JonMunkholm/dimtable/internal/store"
	"github.com/JonMunkholm/dimtable/internal/store/storetest"
)

var (
	employees = grid.MustDimension(grid.Values("employee_id", []int64{1, 2}, nil)...)
	products  = grid.MustDimension(grid.Values("product_id", []int64{10, 20, 30}, nil)...)

	amountSpec = field.Spec{Name: "amount", Label: "Amount", Type: field.Integer}
	qtySpec    = field.Spec{Name: "qty", Label: "Quantity", Type: field.Integer}
)

func newEditor(t *testing.T, m *storetest.Memory, specs []field.Spec, defaults map[string]any) *Editor {
	t.Helper()
	items := make([]grid.Item, len(specs))
	for i, sp := range specs {
		if sp.Editable() {
			items[i] = grid.NewInputItem(sp.Name, sp.Label, nil)
		} else {
			items[i] = grid.NewCustomItem("total")
		}
	}
	inputs, err := grid.NewInputDimension(items...)
	require.NoError(t, err)

	s, err := store.New(store.Config{
		Backend:  m,
		Rows:     []grid.Dimension{employees},
		Cols:     []grid.Dimension{products},
		Inputs:   inputs,
		Defaults: defaults,
	}, m.Snapshot())
	require.NoError(t, err)

	e, err := NewEditor(Config{Store: s, Fields: specs})
	require.NoError(t, err)
	return e
}

func TestParseSubmission(t *testing.T) {
	t.Parallel()

	t.Run("cells and ids of own prefix", func(t *testing.T) {
		t.Parallel()
		form := url.Values{
			"t1_cell_0":      {"5"},
			"t1_cell_11":     {""},
			"t1_instanceids": {`[[11, 42], [8, 42]]`},
			"t1_rdim_dimN":   {"2"},
			"t2_cell_x":      {"ignored"},
			"csrf":           {"abc"},
		}
		sub, err := ParseSubmission("t1", form)
		require.NoError(t, err)
		assert.Equal(t, map[int]string{0: "5", 11: ""}, sub.Cells)
		assert.Equal(t, map[int]int64{11: 42, 8: 42}, sub.InstanceIDs)
	})

	tests := []struct {
		name string
		form url.Values
	}{
		{"non integer cell key", url.Values{"t1_cell_abc": {"1"}}},
		{"negative cell key", url.Values{"t1_cell_-1": {"1"}}},
		{"signed cell key", url.Values{"t1_cell_+5": {"1"}}},
		{"zero padded cell key", url.Values{"t1_cell_05": {"1"}}},
		{"empty cell key", url.Values{"t1_cell_": {"1"}}},
		{"invalid json", url.Values{"t1_instanceids": {"[[1,"}}},
		{"not a list", url.Values{"t1_instanceids": {`{"1": 2}`}}},
		{"short pair", url.Values{"t1_instanceids": {`[[1]]`}}},
		{"fractional id", url.Values{"t1_instanceids": {`[[1, 2.5]]`}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseSubmission("t1", tt.form)
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}

func TestSaveSingleInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("create and delete", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		existing := m.Seed(map[string]any{"employee_id": int64(1), "product_id": int64(20), "amount": int64(3)})
		e := newEditor(t, m, []field.Spec{amountSpec}, nil)

		// cell 1 = (0|1) existing record, cell 5 = (1|2) new
		res, err := e.Save(ctx, Submission{
			Cells:       map[int]string{1: "", 5: "7"},
			InstanceIDs: map[int]int64{1: existing.ID()},
		})
		require.NoError(t, err)
		assert.True(t, res.OK())
		assert.NotEmpty(t, res.SaveID)
		assert.Equal(t, 1, res.Actions[store.Created])
		assert.Equal(t, 1, res.Actions[store.Deleted])

		_, ok := m.Fields(existing.ID())
		assert.False(t, ok)
		r, ok := e.store.Get(grid.Cell([]int{1}, []int{2}))
		require.True(t, ok)
		assert.Equal(t, int64(7), r.Get("amount"))
	})

	t.Run("validation failure keeps raw input", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		e := newEditor(t, m, []field.Spec{amountSpec}, nil)

		res, err := e.Save(ctx, Submission{Cells: map[int]string{0: "seven", 1: "8"}})
		require.NoError(t, err)
		assert.False(t, res.OK())

		ce, ok := res.CellError(grid.Cell([]int{0}, []int{0}))
		require.True(t, ok)
		assert.Equal(t, "seven", ce.Input)
		assert.Equal(t, 0, ce.Flat)
		assert.ErrorIs(t, ce, ErrValidation)
		assert.Equal(t, map[int]string{0: "seven"}, res.Entered)

		// the other cell is its own record and still commits
		assert.Equal(t, 1, res.Actions[store.Created])
		assert.Len(t, res.Messages(), 1)
	})

	t.Run("flat index outside table", func(t *testing.T) {
		t.Parallel()
		e := newEditor(t, storetest.NewMemory(), []field.Spec{amountSpec}, nil)
		_, err := e.Save(ctx, Submission{Cells: map[int]string{6: "1"}})
		assert.ErrorIs(t, err, ErrMalformedInput)
	})

	t.Run("record removed concurrently", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		r := m.Seed(map[string]any{"employee_id": int64(1), "product_id": int64(10), "amount": int64(3)})
		e := newEditor(t, m, []field.Spec{amountSpec}, nil)
		m.Remove(r.ID())

		_, err := e.Save(ctx, Submission{
			Cells:       map[int]string{0: "4"},
			InstanceIDs: map[int]int64{0: r.ID()},
		})
		assert.ErrorIs(t, err, store.ErrRecordNotFound)
	})
}

func TestSaveMultiInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	// rows: employee x {amount, qty}, cols: product
	// employee 2, product 20: amount -> (1*2+0)*3+1 = 7, qty -> (1*2+1)*3+1 = 10

	t.Run("group fails as a whole", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		e := newEditor(t, m, []field.Spec{amountSpec, qtySpec}, nil)

		res, err := e.Save(ctx, Submission{Cells: map[int]string{7: "5", 10: "x"}})
		require.NoError(t, err)
		assert.False(t, res.OK())
		assert.Len(t, res.CellErrors, 1)
		assert.Equal(t, 0, m.Len(), "no partial writes")
		assert.Equal(t, map[int]string{7: "5", 10: "x"}, res.Entered)
	})

	t.Run("both empty with id deletes", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		r := m.Seed(map[string]any{"employee_id": int64(2), "product_id": int64(20), "amount": int64(1), "qty": int64(2)})
		e := newEditor(t, m, []field.Spec{amountSpec, qtySpec}, nil)

		res, err := e.Save(ctx, Submission{
			Cells:       map[int]string{7: "", 10: " "},
			InstanceIDs: map[int]int64{7: r.ID(), 10: r.ID()},
		})
		require.NoError(t, err)
		assert.True(t, res.OK())
		assert.Equal(t, []storetest.Call{{Op: "delete", ID: r.ID()}}, m.Calls())
	})

	t.Run("default fills unset field", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		e := newEditor(t, m, []field.Spec{amountSpec, qtySpec}, map[string]any{"qty": int64(1)})

		res, err := e.Save(ctx, Submission{Cells: map[int]string{7: "5"}})
		require.NoError(t, err)
		assert.True(t, res.OK())
		recs := m.Snapshot()
		require.Len(t, recs, 1)
		assert.Equal(t, int64(5), recs[0].Get("amount"))
		assert.Equal(t, int64(1), recs[0].Get("qty"))
	})

	t.Run("missing default is a table error", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		e := newEditor(t, m, []field.Spec{amountSpec, qtySpec}, nil)

		res, err := e.Save(ctx, Submission{Cells: map[int]string{7: "5", 0: "1", 3: "2"}})
		require.NoError(t, err)
		assert.False(t, res.OK())
		require.Len(t, res.TableErrors, 1)
		assert.ErrorIs(t, res.TableErrors[0], store.ErrDefaultMissing)
		assert.Empty(t, res.CellErrors)
		// the fully posted record (cells 0 and 3) still commits
		assert.Equal(t, 1, m.Len())
		assert.Equal(t, "5", res.Entered[7])
	})

	t.Run("clearing a field without default is a cell error", func(t *testing.T) {
		t.Parallel()
		m := storetest.NewMemory()
		r := m.Seed(map[string]any{"employee_id": int64(2), "product_id": int64(20), "amount": int64(1), "qty": int64(2)})
		e := newEditor(t, m, []field.Spec{amountSpec, qtySpec}, nil)

		res, err := e.Save(ctx, Submission{
			Cells:       map[int]string{7: "4", 10: ""},
			InstanceIDs: map[int]int64{7: r.ID(), 10: r.ID()},
		})
		require.NoError(t, err)
		assert.False(t, res.OK())
		require.Len(t, res.CellErrors, 1)
		ce, ok := res.CellError(grid.Cell([]int{1, 1}, []int{1}))
		require.True(t, ok)
		assert.Equal(t, 10, ce.Flat)
		assert.Empty(t, res.TableErrors)
		assert.Equal(t, map[int]string{7: "4", 10: ""}, res.Entered)

		fields, _ := m.Fields(r.ID())
		assert.Equal(t, int64(1), fields["amount"])
		assert.Equal(t, int64(2), fields["qty"])
	})

	t.Run("mismatched record ids", func(t *testing.T) {
		t.Parallel()
		e := newEditor(t, storetest.NewMemory(), []field.Spec{amountSpec, qtySpec}, nil)
		_, err := e.Save(ctx, Submission{
			Cells:       map[int]string{7: "1", 10: "2"},
			InstanceIDs: map[int]int64{7: 3, 10: 4},
		})
		assert.ErrorIs(t, err, ErrMalformedInput)
	})

	t.Run("custom position is not editable", func(t *testing.T) {
		t.Parallel()
		e := newEditor(t, storetest.NewMemory(), []field.Spec{amountSpec, {}}, nil)
		res, err := e.Save(ctx, Submission{Cells: map[int]string{10: "2"}})
		require.NoError(t, err)
		assert.Len(t, res.CellErrors, 1)
	})
}

func TestNewEditorChecksFields(t *testing.T) {
	t.Parallel()
	m := storetest.NewMemory()
	e := newEditor(t, m, []field.Spec{amountSpec}, nil)
	_, err := NewEditor(Config{Store: e.store, Fields: []field.Spec{amountSpec, qtySpec}})
	assert.Error(t, err)
}
