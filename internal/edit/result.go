package edit

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/JonMunkholm/dimtable/internal/grid"
	"github.com/JonMunkholm/dimtable/internal/store"
)

// ErrValidation marks a cell value that could not be parsed into its field.
var ErrValidation = errors.New("validation failed")

// CellError binds validation failures to the cell they happened in and the
// raw string the user entered there.
type CellError struct {
	Cell     grid.CellIndex
	Flat     int
	Input    string
	Messages []string
}

func (e CellError) Error() string {
	return "cell " + e.Cell.String() + ": " + strings.Join(e.Messages, "; ")
}

func (e CellError) Is(target error) bool { return target == ErrValidation }

// Result is the outcome of one save.
type Result struct {
	SaveID      string
	CellErrors  map[grid.CellKey]CellError
	TableErrors []error
	// Entered holds the raw values of every cell whose group was not
	// committed, keyed by flat index, for redisplay.
	Entered map[int]string
	Actions map[store.Action]int
}

func newResult(saveID string) *Result {
	return &Result{
		SaveID:     saveID,
		CellErrors: make(map[grid.CellKey]CellError),
		Entered:    make(map[int]string),
		Actions:    make(map[store.Action]int),
	}
}

// OK reports whether the save recorded no cell or table-wide error.
func (r *Result) OK() bool {
	return r != nil && len(r.CellErrors) == 0 && len(r.TableErrors) == 0
}

// SortedCellErrors returns the cell errors ordered by flat index.
func (r *Result) SortedCellErrors() []CellError {
	out := make([]CellError, 0, len(r.CellErrors))
	for _, ce := range r.CellErrors {
		out = append(out, ce)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Flat < out[b].Flat })
	return out
}

// Messages is the consolidated error list: table-wide errors first, then
// every cell error message in flat order.
func (r *Result) Messages() []string {
	if r == nil {
		return nil
	}
	var msgs []string
	for _, err := range r.TableErrors {
		msgs = append(msgs, err.Error())
	}
	for _, ce := range r.SortedCellErrors() {
		msgs = append(msgs, ce.Messages...)
	}
	return msgs
}

// CellError returns the error recorded for c, if any.
func (r *Result) CellError(c grid.CellIndex) (CellError, bool) {
	if r == nil {
		return CellError{}, false
	}
	ce, ok := r.CellErrors[c.Key()]
	return ce, ok
}
