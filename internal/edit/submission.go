package edit

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

// ErrMalformedInput is returned when posted keys or record ids do not follow
// the table's key space. It aborts the whole save.
var ErrMalformedInput = errors.New("malformed input")

// Submission is a parsed save request: the raw strings posted per cell and
// the record id posted per cell.
type Submission struct {
	Cells       map[int]string // Flat index -> raw entered value
	InstanceIDs map[int]int64  // Flat index -> existing record id
}

// CellKey returns the form key of the cell at flat index n.
func CellKey(prefix string, n int) string {
	return prefix + "_cell_" + strconv.Itoa(n)
}

// InstanceIDsKey returns the form key of the record id map.
func InstanceIDsKey(prefix string) string {
	return prefix + "_instanceids"
}

// ParseSubmission extracts the cells and record ids posted for the table
// with the given prefix. Keys of other tables and the other hidden fields
// of this table are ignored.
func ParseSubmission(prefix string, form url.Values) (Submission, error) {
	sub := Submission{Cells: make(map[int]string), InstanceIDs: make(map[int]int64)}
	cellPrefix := prefix + "_cell_"

	for key, values := range form {
		if len(values) == 0 {
			continue
		}
		switch {
		case key == InstanceIDsKey(prefix):
			ids, err := parseInstanceIDs(values[0])
			if err != nil {
				return Submission{}, err
			}
			sub.InstanceIDs = ids
		case strings.HasPrefix(key, cellPrefix):
			n, ok := parseFlat(strings.TrimPrefix(key, cellPrefix))
			if !ok {
				return Submission{}, errors.Wrapf(ErrMalformedInput, "cell key %q", key)
			}
			sub.Cells[n] = values[0]
		}
	}
	return sub, nil
}

// parseFlat reads a flat index written the way CellKey writes it, so that
// no two keys name the same cell.
func parseFlat(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || strconv.Itoa(n) != s {
		return 0, false
	}
	return n, true
}

// parseInstanceIDs reads the JSON list of [flatIndex, recordId] pairs.
func parseInstanceIDs(data string) (map[int]int64, error) {
	ids := make(map[int]int64)
	if strings.TrimSpace(data) == "" {
		return ids, nil
	}
	if !gjson.Valid(data) {
		return nil, errors.Wrap(ErrMalformedInput, "instance ids are not valid JSON")
	}
	result := gjson.Parse(data)
	if !result.IsArray() {
		return nil, errors.Wrap(ErrMalformedInput, "instance ids must be a list of pairs")
	}

	var perr error
	result.ForEach(func(_, pair gjson.Result) bool {
		parts := pair.Array()
		if !pair.IsArray() || len(parts) != 2 {
			perr = errors.Wrapf(ErrMalformedInput, "instance id entry %s", pair.Raw)
			return false
		}
		n, ok1 := wholeNumber(parts[0])
		id, ok2 := wholeNumber(parts[1])
		if !ok1 || !ok2 || n < 0 || id < 0 {
			perr = errors.Wrapf(ErrMalformedInput, "instance id entry %s", pair.Raw)
			return false
		}
		ids[int(n)] = id
		return true
	})
	if perr != nil {
		return nil, perr
	}
	return ids, nil
}

func wholeNumber(r gjson.Result) (int64, bool) {
	switch r.Type {
	case gjson.Number:
		i, err := strconv.ParseInt(r.Raw, 10, 64)
		return i, err == nil
	case gjson.String:
		i, err := strconv.ParseInt(r.Str, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}
