// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/deft/vms/deftvm/core"
	"github.com/luxfi/deft/vms/deftvm/state"
	"github.com/luxfi/deft/vms/deftvm/token"
)

const eventLabel = "event"

var eventLabels = []string{eventLabel}

type eventMetrics struct {
	numEvents *prometheus.CounterVec
	numPairs  prometheus.Gauge
}

func newEventMetrics(namespace string) *eventMetrics {
	return &eventMetrics{
		numEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events",
				Help:      "number of events emitted by committed calls",
			},
			eventLabels,
		),
		numPairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pairs",
			Help:      "number of pairs created",
		}),
	}
}

func (m *eventMetrics) observe(e state.Event) {
	var name string
	switch e.(type) {
	case core.PairCreated:
		m.numPairs.Inc()
		name = "pair_created"
	case core.Mint:
		name = "mint"
	case core.Burn:
		name = "burn"
	case core.Swap:
		name = "swap"
	case core.Sync:
		name = "sync"
	case token.Transfer:
		name = "transfer"
	case token.Approval:
		name = "approval"
	case token.Deposit:
		name = "deposit"
	case token.Withdrawal:
		name = "withdrawal"
	default:
		name = "other"
	}
	m.numEvents.With(prometheus.Labels{
		eventLabel: name,
	}).Inc()
}
