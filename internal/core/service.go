package core

import (
	"context"
	"log/slog"
	"maps"
	"net/url"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/dimtable/internal/config"
	"github.com/JonMunkholm/dimtable/internal/edit"
	"github.com/JonMunkholm/dimtable/internal/field"
	"github.com/JonMunkholm/dimtable/internal/grid"
	"github.com/JonMunkholm/dimtable/internal/logging"
	"github.com/JonMunkholm/dimtable/internal/postgres"
	"github.com/JonMunkholm/dimtable/internal/render"
	"github.com/JonMunkholm/dimtable/internal/store"
)

var (
	// ErrUnknownTable is returned for a key nothing is registered under.
	ErrUnknownTable = errors.New("unknown table")

	// ErrReadOnly is returned when saving a table that is not editable.
	ErrReadOnly = errors.New("table is read-only")

	// ErrStaleLayout is returned when a save was posted from a rendering
	// whose dimensions no longer match the table, e.g. after the date
	// window moved on. Returned errors are also marked ErrMalformedInput.
	ErrStaleLayout = errors.New("table layout changed since it was rendered")
)

// Service opens registered tables against a database.
type Service struct {
	db      postgres.DBTX
	cfg     config.TableConfig
	logger  *slog.Logger
	metrics *Metrics
	limiter *SaveLimiter
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records every save in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces time.Now, which positions date windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. A nil logger discards output.
func NewService(db postgres.DBTX, cfg config.TableConfig, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Service{
		db:      db,
		cfg:     cfg,
		logger:  logger,
		limiter: NewSaveLimiter(cfg.MaxConcurrentSaves, cfg.SaveWait),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListTables returns information about all registered tables.
func (s *Service) ListTables() []TableInfo {
	defs := All()
	infos := make([]TableInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// Definition returns the definition registered under key.
func (s *Service) Definition(key string) (TableDefinition, error) {
	def, ok := Get(key)
	if !ok {
		return TableDefinition{}, errors.Wrapf(ErrUnknownTable, "%q", key)
	}
	return def, nil
}

// Drain waits for running saves to finish.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) editable(def TableDefinition) bool {
	return s.cfg.Editable && !def.Info.ReadOnly
}

// Open loads the dimensions and record snapshot of a table and returns an
// instance ready to render or save. Instances are not shared between
// requests.
func (s *Service) Open(ctx context.Context, key string) (*Table, error) {
	def, err := s.Definition(key)
	if err != nil {
		return nil, err
	}
	logger := logging.WithFields(ctx, s.logger, append([]any{"table", key}, clientAttrs(ctx)...)...)

	src := Source{DB: s.db, Start: s.cfg.Start(s.now()), Days: s.cfg.DateWindowDays}
	dims, err := loadDimensions(ctx, src, slices.Concat(def.Rows, def.Cols))
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", key)
	}
	n := len(def.Rows)
	rows, cols := dims[:n:n], dims[n:]

	inputs, err := inputDimension(def.Cells)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", key)
	}

	backend := postgres.NewBackend(s.db, def.Relation)
	recs, err := backend.Load(ctx, postgres.SnapshotFilter(dims, def.Fixed))
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", key)
	}

	st, err := store.New(store.Config{
		Backend:  backend,
		Rows:     rows,
		Cols:     cols,
		Inputs:   inputs,
		Fixed:    def.Fixed,
		Defaults: fieldDefaults(def.Cells),
		Logger:   logger,
	}, recs)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", key)
	}

	ed, err := edit.NewEditor(edit.Config{Store: st, Fields: def.Cells, Logger: logger})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", key)
	}

	logger.Debug("table opened", "records", st.Len(), "cells", st.Indexer().Total())

	return &Table{
		Info:   def.Info,
		svc:    s,
		editor: ed,
		renderer: render.New(st, render.Options{
			Prefix:      def.Info.Prefix,
			CSSClass:    s.cfg.CSSClass,
			CornerTitle: def.Info.CornerTitle,
			Editable:    s.editable(def),
		}),
		editable: s.editable(def),
	}, nil
}

// loadDimensions runs every loader concurrently and keeps their order.
func loadDimensions(ctx context.Context, src Source, specs []DimensionSpec) ([]grid.Dimension, error) {
	dims := make([]grid.Dimension, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			items, err := spec.Load(gctx, src)
			if err != nil {
				return errors.Wrapf(err, "load dimension %s", spec.Name)
			}
			d, err := grid.NewDimension(items...)
			if err != nil {
				return errors.Wrapf(err, "dimension %s", spec.Name)
			}
			dims[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dims, nil
}

func inputDimension(cells []field.Spec) (grid.Dimension, error) {
	items := make([]grid.Item, len(cells))
	for i, c := range cells {
		items[i] = grid.NewInputItem(c.Name, c.DisplayLabel(), c.Formatter())
	}
	return grid.NewInputDimension(items...)
}

// fieldDefaults collects the defaults of the input fields that have one.
func fieldDefaults(cells []field.Spec) map[string]any {
	out := make(map[string]any)
	for _, c := range cells {
		if c.Editable() && c.HasDefault() {
			out[c.Name] = c.Default
		}
	}
	return out
}

// Table is one opened instance of a registered table.
type Table struct {
	Info TableInfo

	svc      *Service
	editor   *edit.Editor
	renderer *render.Renderer
	editable bool

	// last failed save, merged into the next rendering
	last *edit.Result
}

// Editable reports whether the table accepts saves.
func (t *Table) Editable() bool { return t.editable }

// Render lays out the table. After a failed save the errors and the values
// entered in uncommitted cells are shown.
func (t *Table) Render() *render.Table {
	return t.renderer.Render(t.last)
}

// Save applies the posted form to the table.
//
// A returned error means nothing could be reported per cell: the input was
// malformed, the table is read-only, or the backend failed. Otherwise the
// result tells which cells failed; a result that is not OK is also kept for
// the next Render.
func (t *Table) Save(ctx context.Context, form url.Values) (*edit.Result, error) {
	start := time.Now()
	res, err := t.save(ctx, form)

	outcome := OutcomeOK
	switch {
	case errors.Is(err, edit.ErrMalformedInput), errors.Is(err, ErrReadOnly):
		outcome = OutcomeRejected
	case err != nil:
		outcome = OutcomeFailed
	case !res.OK():
		outcome = OutcomeInvalid
	}
	t.svc.metrics.observe(t.Info.Key, outcome, time.Since(start).Seconds(), res)

	if err != nil {
		return nil, err
	}
	if !res.OK() {
		t.last = res
	} else {
		t.last = nil
	}
	return res, nil
}

func (t *Table) save(ctx context.Context, form url.Values) (*edit.Result, error) {
	if !t.editable {
		return nil, errors.Wrapf(ErrReadOnly, "%s", t.Info.Key)
	}
	if err := t.checkLayout(form); err != nil {
		return nil, err
	}
	sub, err := edit.ParseSubmission(t.Info.Prefix, form)
	if err != nil {
		return nil, err
	}

	if err := t.svc.limiter.Acquire(ctx); err != nil {
		return nil, errors.Wrapf(err, "save %s", t.Info.Key)
	}
	defer t.svc.limiter.Release()

	if d := t.svc.cfg.SaveTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return t.editor.Save(ctx, sub)
}

// checkLayout compares the posted side channel, when there is one, with the
// current dimensions.
func (t *Table) checkLayout(form url.Values) error {
	if !form.Has(t.Info.Prefix + "_rdim_dimN") {
		return nil
	}
	posted, err := render.DecodeSideChannel(t.Info.Prefix, form)
	if err != nil {
		return err
	}
	cur := t.renderer.SideChannel()
	same := slices.Equal(posted.RowLengths, cur.RowLengths) &&
		slices.Equal(posted.ColLengths, cur.ColLengths) &&
		maps.EqualFunc(posted.RowValues, cur.RowValues, slices.Equal[[]string]) &&
		maps.EqualFunc(posted.ColValues, cur.ColValues, slices.Equal[[]string])
	if !same {
		return errors.Mark(errors.WithStack(ErrStaleLayout), edit.ErrMalformedInput)
	}
	return nil
}
