// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"

	"github.com/luxfi/metric"
)

const ReasonLabel = "reason"

const (
	ReasonCycle = "cycle"
	ReasonDepth = "depth"
)

var (
	_ Metrics = (*metricsImpl)(nil)

	rejectionLabels = []string{ReasonLabel}
)

type Metrics interface {
	// Mark that a snapshot was created.
	IncSnapshotsCreated()
	// Mark that a delegation edge was set.
	IncDelegationsSet()
	// Mark that a delegation was reset to self.
	IncDelegationsReset()
	// Mark that a proposed delegation was rejected.
	IncDelegationsRejected(reason string)

	// Mark the current total supply.
	SetTotalSupply(uint64)
}

func New(registerer metric.Registerer) (Metrics, error) {
	m := &metricsImpl{
		snapshotsCreated: metric.NewCounter(metric.CounterOpts{
			Name: "snapshots_created",
			Help: "Total number of snapshots created",
		}),
		delegationsSet: metric.NewCounter(metric.CounterOpts{
			Name: "delegations_set",
			Help: "Total number of delegation edges set",
		}),
		delegationsReset: metric.NewCounter(metric.CounterOpts{
			Name: "delegations_reset",
			Help: "Total number of delegations reset to self",
		}),
		delegationsRejected: metric.NewCounterVec(
			metric.CounterOpts{
				Name: "delegations_rejected",
				Help: "Total number of rejected delegation attempts",
			},
			rejectionLabels,
		),
		totalSupply: metric.NewGauge(metric.GaugeOpts{
			Name: "total_supply",
			Help: "Current total token supply",
		}),
	}

	err := errors.Join(
		registerer.Register(metric.AsCollector(m.snapshotsCreated)),
		registerer.Register(metric.AsCollector(m.delegationsSet)),
		registerer.Register(metric.AsCollector(m.delegationsReset)),
		registerer.Register(metric.AsCollector(m.delegationsRejected)),
		registerer.Register(metric.AsCollector(m.totalSupply)),
	)
	return m, err
}

type metricsImpl struct {
	snapshotsCreated    metric.Counter
	delegationsSet      metric.Counter
	delegationsReset    metric.Counter
	delegationsRejected metric.CounterVec
	totalSupply         metric.Gauge
}

func (m *metricsImpl) IncSnapshotsCreated() {
	m.snapshotsCreated.Inc()
}

func (m *metricsImpl) IncDelegationsSet() {
	m.delegationsSet.Inc()
}

func (m *metricsImpl) IncDelegationsReset() {
	m.delegationsReset.Inc()
}

func (m *metricsImpl) IncDelegationsRejected(reason string) {
	m.delegationsRejected.With(metric.Labels{
		ReasonLabel: reason,
	}).Inc()
}

func (m *metricsImpl) SetTotalSupply(supply uint64) {
	m.totalSupply.Set(float64(supply))
}
