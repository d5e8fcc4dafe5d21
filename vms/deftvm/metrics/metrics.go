// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"github.com/luxfi/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/deft/vms/deftvm/state"
)

var (
	_ Metrics = (*metricsImpl)(nil)
	_ Metrics = noMetrics{}
)

type Metrics interface {
	// MarkCommitted updates all metrics relating to a committed call,
	// including the events it emitted.
	MarkCommitted(receipt *state.Receipt)
	// MarkAborted records a call that failed and left no trace.
	MarkAborted()
	// MarkOracleUpdate records an observation taken by the price oracle.
	MarkOracleUpdate()
}

type metricsImpl struct {
	eventMetrics *eventMetrics

	numCommitted, numAborted, numOracleUpdates prometheus.Counter
}

func (m *metricsImpl) MarkCommitted(receipt *state.Receipt) {
	m.numCommitted.Inc()
	for _, l := range receipt.Logs {
		m.eventMetrics.observe(l.Event)
	}
}

func (m *metricsImpl) MarkAborted() {
	m.numAborted.Inc()
}

func (m *metricsImpl) MarkOracleUpdate() {
	m.numOracleUpdates.Inc()
}

func New(namespace string, registerer prometheus.Registerer) (Metrics, error) {
	m := &metricsImpl{
		eventMetrics: newEventMetrics(namespace),
		numCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_committed",
			Help:      "Number of calls committed",
		}),
		numAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_aborted",
			Help:      "Number of calls that failed and were rolled back",
		}),
		numOracleUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_updates",
			Help:      "Number of price observations recorded by the oracle",
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(m.numCommitted),
		registerer.Register(m.numAborted),
		registerer.Register(m.numOracleUpdates),
		registerer.Register(m.eventMetrics.numEvents),
		registerer.Register(m.eventMetrics.numPairs),
	)
	if errs.Errored() {
		return nil, errs.Err
	}
	return m, nil
}

// NewNoOp returns metrics that record nothing.
func NewNoOp() Metrics {
	return noMetrics{}
}

type noMetrics struct{}

func (noMetrics) MarkCommitted(*state.Receipt) {}

func (noMetrics) MarkAborted() {}

func (noMetrics) MarkOracleUpdate() {}
