package render

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/JonMunkholm/dimtable/internal/edit"
	"github.com/JonMunkholm/dimtable/internal/grid"
)

// SideChannel is the hidden state rendered with a table so that a stateless
// client can map posted cells back to coordinates and records.
type SideChannel struct {
	Prefix      string
	RowLengths  []int
	ColLengths  []int
	RowValues   map[int][]string // Hidden values per row dimension; the input dimension has none
	ColValues   map[int][]string
	Fixed       []FixedValue
	InstanceIDs map[int]int64 // Flat index -> record id, for every input cell of every record
}

type FixedValue struct {
	Field string
	Value string
}

// HiddenField is one hidden form input.
type HiddenField struct {
	Name  string
	Value string
}

// SideChannel collects the hidden state of the renderer's table.
func (r *Renderer) SideChannel() SideChannel {
	sc := SideChannel{
		Prefix:      r.opts.Prefix,
		RowLengths:  grid.Lengths(r.rows),
		ColLengths:  grid.Lengths(r.cols),
		RowValues:   hiddenValues(r.rows),
		ColValues:   hiddenValues(r.cols),
		InstanceIDs: r.store.InstanceIDs(),
	}
	for _, f := range r.store.Fixed() {
		sc.Fixed = append(sc.Fixed, FixedValue{Field: f.Field, Value: grid.HiddenString(f.Value)})
	}
	return sc
}

func hiddenValues(dims []grid.Dimension) map[int][]string {
	out := make(map[int][]string)
	for i, d := range dims {
		if d.IsInput() {
			continue
		}
		var vs []string
		for _, it := range d.Items() {
			if m, ok := it.(grid.RecordMatcher); ok {
				vs = append(vs, m.HiddenValue())
			}
		}
		out[i] = vs
	}
	return out
}

// Indexer rebuilds the flat index mapping from the cardinalities alone.
func (s SideChannel) Indexer() grid.Indexer {
	return grid.IndexerFromLengths(s.RowLengths, s.ColLengths)
}

// Fields returns the hidden inputs in a stable order.
func (s SideChannel) Fields() []HiddenField {
	p := s.Prefix
	var out []HiddenField
	axis := func(tag string, lens []int, values map[int][]string) {
		out = append(out, HiddenField{Name: p + "_" + tag + "_dimN", Value: strconv.Itoa(len(lens))})
		for i, l := range lens {
			out = append(out, HiddenField{Name: fmt.Sprintf("%s_%s_length_%d", p, tag, i), Value: strconv.Itoa(l)})
		}
		for i := range lens {
			if vs, ok := values[i]; ok {
				out = append(out, HiddenField{Name: fmt.Sprintf("%s_%s_values_%d", p, tag, i), Value: strings.Join(vs, ",")})
			}
		}
	}
	axis("rdim", s.RowLengths, s.RowValues)
	axis("cdim", s.ColLengths, s.ColValues)

	for _, f := range s.Fixed {
		out = append(out, HiddenField{Name: p + "_fixed_" + f.Field, Value: f.Value})
	}
	out = append(out, HiddenField{Name: edit.InstanceIDsKey(p), Value: s.encodeInstanceIDs()})
	return out
}

// Values returns the hidden inputs as form values, as a client posts them.
func (s SideChannel) Values() url.Values {
	v := url.Values{}
	for _, f := range s.Fields() {
		v.Set(f.Name, f.Value)
	}
	return v
}

func (s SideChannel) encodeInstanceIDs() string {
	flats := make([]int, 0, len(s.InstanceIDs))
	for n := range s.InstanceIDs {
		flats = append(flats, n)
	}
	sort.Ints(flats)
	pairs := make([][2]int64, len(flats))
	for i, n := range flats {
		pairs[i] = [2]int64{int64(n), s.InstanceIDs[n]}
	}
	b, err := json.Marshal(pairs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// DecodeSideChannel reads the hidden state of the table with the given
// prefix back from posted form values.
func DecodeSideChannel(prefix string, form url.Values) (SideChannel, error) {
	sc := SideChannel{
		Prefix:    prefix,
		RowValues: make(map[int][]string),
		ColValues: make(map[int][]string),
	}
	var err error
	if sc.RowLengths, err = decodeAxis(prefix, "rdim", form, sc.RowValues); err != nil {
		return SideChannel{}, err
	}
	if sc.ColLengths, err = decodeAxis(prefix, "cdim", form, sc.ColValues); err != nil {
		return SideChannel{}, err
	}

	fixedPrefix := prefix + "_fixed_"
	for key := range form {
		if strings.HasPrefix(key, fixedPrefix) {
			sc.Fixed = append(sc.Fixed, FixedValue{Field: strings.TrimPrefix(key, fixedPrefix), Value: form.Get(key)})
		}
	}
	sort.Slice(sc.Fixed, func(a, b int) bool { return sc.Fixed[a].Field < sc.Fixed[b].Field })

	sub, err := edit.ParseSubmission(prefix, url.Values{edit.InstanceIDsKey(prefix): form[edit.InstanceIDsKey(prefix)]})
	if err != nil {
		return SideChannel{}, err
	}
	sc.InstanceIDs = sub.InstanceIDs
	return sc, nil
}

// MaxAxisDimensions bounds the dimension count a posted side channel may
// declare per axis.
const MaxAxisDimensions = 32

func decodeAxis(prefix, tag string, form url.Values, values map[int][]string) ([]int, error) {
	key := fmt.Sprintf("%s_%s_dimN", prefix, tag)
	n, err := formInt(form, key)
	if err != nil {
		return nil, err
	}
	if n > MaxAxisDimensions {
		return nil, errors.Wrapf(edit.ErrMalformedInput, "%s=%d exceeds %d", key, n, MaxAxisDimensions)
	}
	var lens []int
	for i := range n {
		l, err := formInt(form, fmt.Sprintf("%s_%s_length_%d", prefix, tag, i))
		if err != nil {
			return nil, err
		}
		if l < 1 {
			return nil, errors.Wrapf(edit.ErrMalformedInput, "%s dimension %d has length %d", tag, i, l)
		}
		lens = append(lens, l)
		vkey := fmt.Sprintf("%s_%s_values_%d", prefix, tag, i)
		if !form.Has(vkey) {
			continue
		}
		if v := form.Get(vkey); v != "" {
			values[i] = strings.Split(v, ",")
		} else {
			values[i] = nil
		}
	}
	return lens, nil
}

func formInt(form url.Values, key string) (int, error) {
	if !form.Has(key) {
		return 0, errors.Wrapf(edit.ErrMalformedInput, "missing %s", key)
	}
	n, err := strconv.Atoi(form.Get(key))
	if err != nil || n < 0 {
		return 0, errors.Wrapf(edit.ErrMalformedInput, "%s=%q", key, form.Get(key))
	}
	return n, nil
}
