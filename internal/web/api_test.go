package web

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dimtable/internal/core"
	"github.com/JonMunkholm/dimtable/internal/edit"
	"github.com/JonMunkholm/dimtable/internal/postgres"
	"github.com/JonMunkholm/dimtable/internal/store"
)

func TestDecodeJSONForm(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    map[string]string
		wantErr bool
	}{
		{"strings and numbers", `{"t_cell_0": "12.5", "t_cell_1": 7}`, map[string]string{"t_cell_0": "12.5", "t_cell_1": "7"}, false},
		{"booleans and null", `{"t_cell_0": true, "t_cell_1": null}`, map[string]string{"t_cell_0": "true", "t_cell_1": ""}, false},
		{"raw id list", `{"t_instanceids": [[0, 10]]}`, map[string]string{"t_instanceids": "[[0, 10]]"}, false},
		{"invalid json", `{"t_cell_0"`, nil, true},
		{"not an object", `[1, 2]`, nil, true},
		{"nested object", `{"t_cell_0": {"v": 1}}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form, err := decodeJSONForm([]byte(tt.body))
			if tt.wantErr {
				assert.True(t, errors.Is(err, edit.ErrMalformedInput))
				return
			}
			require.NoError(t, err)
			assert.Len(t, form, len(tt.want))
			for k, v := range tt.want {
				assert.Equal(t, v, form.Get(k), k)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.Wrap(core.ErrUnknownTable, "open"), http.StatusNotFound},
		{core.ErrStaleLayout, http.StatusConflict},
		{errors.Mark(errors.WithStack(core.ErrStaleLayout), edit.ErrMalformedInput), http.StatusConflict},
		{errors.Wrapf(edit.ErrMalformedInput, "cell key %q", "t_cell_x"), http.StatusBadRequest},
		{store.ErrRecordNotFound, http.StatusConflict},
		{postgres.ErrConflict, http.StatusConflict},
		{edit.ErrMalformedInput, http.StatusBadRequest},
		{core.ErrReadOnly, http.StatusForbidden},
		{core.ErrRateLimited, http.StatusTooManyRequests},
		{core.ErrTooManySaves, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestIPLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(2)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"), "buckets are per address")

	now = now.Add(30 * time.Second)
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.Equal(t, "30", l.retryAfter())

	now = now.Add(10 * time.Minute)
	l.allow("c")
	assert.NotContains(t, l.visitors, "a", "idle visitors are swept")
	assert.Contains(t, l.visitors, "c")
}
