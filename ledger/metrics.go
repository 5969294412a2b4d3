// Copyright (C) 2019-2024 Algorand, Inc.
// This file is part of go-algorand
//
// go-algorand is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-algorand is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-algorand.  If not, see <https://www.gnu.org/licenses/>.

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/algorand/avm-runtime/data/transactions/verify"
)

// Values of the result label on avm_txn_groups_total.
const (
	groupResultCommitted = "committed"
	groupResultRejected  = "rejected"
	groupResultFailed    = "failed"
)

type metricsTracker struct {
	registry *prometheus.Registry

	groupsTotal      *prometheus.CounterVec
	txnsAppliedTotal prometheus.Counter
	innerTxnsTotal   prometheus.Counter
	lastGroupCost    prometheus.Gauge
	ledgerRound      prometheus.Gauge
}

// init builds the collectors on a registry owned by this ledger, so that
// several ledgers may live in one process.
func (mt *metricsTracker) init(enabled bool) {
	mt.groupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "avm_txn_groups_total",
		Help: "Transaction groups submitted to the ledger, by result",
	}, []string{"result"})
	mt.txnsAppliedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "avm_txns_applied_total",
		Help: "Top-level transactions committed",
	})
	mt.innerTxnsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "avm_inner_txns_total",
		Help: "Inner transactions committed",
	})
	mt.lastGroupCost = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "avm_last_group_opcode_cost",
		Help: "Opcode cost of the last evaluated group",
	})
	mt.ledgerRound = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "avm_ledger_round",
		Help: "Current round of the ledger",
	})

	if !enabled {
		return
	}
	mt.registry = prometheus.NewRegistry()
	mt.registry.MustRegister(mt.groupsTotal, mt.txnsAppliedTotal, mt.innerTxnsTotal, mt.lastGroupCost, mt.ledgerRound)
	mt.registry.MustRegister(verify.Collectors()...)
}

func (mt *metricsTracker) newGroup(txns int, inners int, cost int) {
	mt.groupsTotal.WithLabelValues(groupResultCommitted).Inc()
	mt.txnsAppliedTotal.Add(float64(txns))
	mt.innerTxnsTotal.Add(float64(inners))
	mt.lastGroupCost.Set(float64(cost))
}

func (mt *metricsTracker) failedGroup(rejected bool, cost int) {
	result := groupResultFailed
	if rejected {
		result = groupResultRejected
	}
	mt.groupsTotal.WithLabelValues(result).Inc()
	mt.lastGroupCost.Set(float64(cost))
}

func (mt *metricsTracker) setRound(rnd uint64) {
	mt.ledgerRound.Set(float64(rnd))
}
