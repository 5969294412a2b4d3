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

package basics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/avm-runtime/test/partitiontest"
)

func TestSubSaturate(t *testing.T) {
	partitiontest.PartitionTest(t)
	a := Round(1)
	b := Round(2)
	require.Equal(t, a.SubSaturate(b), Round(0))
	require.Equal(t, a.SubSaturate(a), Round(0))
	require.Equal(t, b.SubSaturate(a), Round(1))
}

func TestMicroAlgos(t *testing.T) {
	partitiontest.PartitionTest(t)
	a := MicroAlgos{Raw: 1500000}
	require.Equal(t, "1.500000", a.String())
	require.True(t, MicroAlgos{}.IsZero())
	require.True(t, MicroAlgos{Raw: 1}.LessThan(a))
	require.True(t, a.GreaterThan(MicroAlgos{Raw: 1}))
	require.Equal(t, uint64(1500000), a.ToUint64())
}
