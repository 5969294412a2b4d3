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
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/algorand/avm-runtime/test/partitiontest"
)

func TestMetricsTracker(t *testing.T) {
	partitiontest.PartitionTest(t)
	var mt metricsTracker
	mt.init(true)
	require.NotNil(t, mt.registry)

	mt.newGroup(3, 2, 40)
	mt.failedGroup(true, 7)
	mt.failedGroup(false, 0)
	mt.setRound(12)

	require.Equal(t, 1.0, testutil.ToFloat64(mt.groupsTotal.WithLabelValues(groupResultCommitted)))
	require.Equal(t, 1.0, testutil.ToFloat64(mt.groupsTotal.WithLabelValues(groupResultRejected)))
	require.Equal(t, 1.0, testutil.ToFloat64(mt.groupsTotal.WithLabelValues(groupResultFailed)))
	require.Equal(t, 3.0, testutil.ToFloat64(mt.txnsAppliedTotal))
	require.Equal(t, 2.0, testutil.ToFloat64(mt.innerTxnsTotal))
	require.Equal(t, 0.0, testutil.ToFloat64(mt.lastGroupCost))
	require.Equal(t, 12.0, testutil.ToFloat64(mt.ledgerRound))

	families, err := mt.registry.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["avm_txn_groups_total"])
	require.True(t, names["avm_txns_applied_total"])
}

func TestMetricsDisabled(t *testing.T) {
	partitiontest.PartitionTest(t)
	var mt metricsTracker
	mt.init(false)
	require.Nil(t, mt.registry)

	// collectors still work, they are just not exported
	mt.newGroup(1, 0, 1)
	require.Equal(t, 1.0, testutil.ToFloat64(mt.txnsAppliedTotal))
}
