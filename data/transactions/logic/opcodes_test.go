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

package logic

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/avm-runtime/test/partitiontest"
)

func TestOpSpecs(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	for _, spec := range OpSpecs {
		require.NotNil(t, spec.op, spec.Name)
		require.NotEmpty(t, spec.Name)
		require.LessOrEqual(t, spec.Version, uint64(LogicVersion), spec.Name)
		require.Positive(t, spec.FullCost.baseCost, spec.Name)
		require.NotZero(t, spec.Modes, spec.Name)
	}
}

func TestOpcodesByVersion(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	prev := 0
	for v := uint64(1); v <= LogicVersion; v++ {
		t.Run(fmt.Sprintf("v=%d", v), func(t *testing.T) {
			specs := OpcodesByVersion(v)
			for i := 0; i < len(specs)-1; i++ {
				require.Less(t, specs[i].Opcode, specs[i+1].Opcode, "%s %s", specs[i].Name, specs[i+1].Name)
			}
			for _, spec := range specs {
				require.LessOrEqual(t, spec.Version, v)
			}
			// nothing is ever removed
			require.GreaterOrEqual(t, len(specs), prev)
			prev = len(specs)
		})
	}
	require.Nil(t, OpcodesByVersion(LogicVersion+1))
}

func TestOpsByNameLatest(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	// later versions replace the definition of an op
	require.EqualValues(t, 7, OpsByName[1]["sha256"].FullCost.baseCost)
	require.EqualValues(t, 35, OpsByName[2]["sha256"].FullCost.baseCost)
	require.Equal(t, OpsByName[LogicVersion]["balance"].Version, uint64(directRefEnabledVersion))

	_, ok := OpsByName[4]["log"]
	require.False(t, ok)
	_, ok = OpsByName[5]["log"]
	require.True(t, ok)
}

func TestOpModes(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	require.Equal(t, modeApp, OpsByName[LogicVersion]["app_global_get"].Modes)
	require.Equal(t, modeSig, OpsByName[4]["ed25519verify"].Modes)
	require.Equal(t, modeAny, OpsByName[5]["ed25519verify"].Modes)
	require.Equal(t, modeAny, OpsByName[LogicVersion]["+"].Modes)
}
