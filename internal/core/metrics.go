package core

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/dimtable/internal/edit"
	"github.com/JonMunkholm/dimtable/internal/store"
)

// Save outcomes used as metric labels.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics counts saves and the record changes they make.
type Metrics struct {
	saves   *prometheus.CounterVec
	changes *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewMetrics registers the save metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dimtable",
			Name:      "saves_total",
			Help:      "Table saves by outcome.",
		}, []string{"table", "outcome"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dimtable",
			Name:      "record_changes_total",
			Help:      "Records created, updated or deleted by saves.",
		}, []string{"table", "action"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dimtable",
			Name:      "save_duration_seconds",
			Help:      "Duration of table saves.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table"}),
	}
	reg.MustRegister(m.saves, m.changes, m.latency)
	return m
}

func (m *Metrics) observe(table, outcome string, seconds float64, res *edit.Result) {
	if m == nil {
		return
	}
	m.saves.With(prometheus.Labels{"table": table, "outcome": outcome}).Inc()
	m.latency.With(prometheus.Labels{"table": table}).Observe(seconds)
	if res == nil {
		return
	}
	for _, a := range []store.Action{store.Created, store.Updated, store.Deleted} {
		if n := res.Actions[a]; n > 0 {
			m.changes.With(prometheus.Labels{"table": table, "action": a.String()}).Add(float64(n))
		}
	}
}
