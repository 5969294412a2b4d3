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

var testReqs = BalanceRequirements{
	MinBalance:               100000,
	AppFlatParamsMinBalance:  100000,
	AppFlatOptInMinBalance:   100000,
	SchemaMinBalancePerEntry: 25000,
	SchemaUintMinBalance:     3500,
	SchemaBytesMinBalance:    25000,
}

func TestEmptyEncoding(t *testing.T) {
	partitiontest.PartitionTest(t)
	var ub AccountData
	require.True(t, ub.IsZero())

	ub.MicroAlgos.Raw = 1
	require.False(t, ub.IsZero())
}

func TestMinBalance(t *testing.T) {
	partitiontest.PartitionTest(t)
	var ad AccountData
	require.Equal(t, uint64(100000), ad.MinBalance(testReqs).Raw)

	ad.Assets = map[AssetIndex]AssetHolding{1: {}}
	require.Equal(t, uint64(200000), ad.MinBalance(testReqs).Raw)

	ad.AppParams = map[AppIndex]AppParams{2: {}}
	ad.TotalAppSchema = StateSchema{NumUint: 5, NumByteSlice: 3}
	// 100000 base + 100000 asset + 100000 app + 8*25000 + 5*3500 + 3*25000
	require.Equal(t, uint64(100000+100000+100000+200000+17500+75000), ad.MinBalance(testReqs).Raw)

	ad.AppLocalStates = map[AppIndex]AppLocalState{3: {}}
	ad.TotalExtraAppPages = 1
	require.Equal(t, uint64(592500+200000), ad.MinBalance(testReqs).Raw)
}

func TestAccountDataClone(t *testing.T) {
	partitiontest.PartitionTest(t)
	ad := AccountData{
		MicroAlgos: MicroAlgos{Raw: 10},
		Assets:     map[AssetIndex]AssetHolding{1: {Amount: 5}},
		AppParams: map[AppIndex]AppParams{2: {
			ApprovalProgram: []byte("int 1"),
			GlobalState:     TealKeyValue{"k": {Type: TealUintType, Uint: 1}},
		}},
		AppLocalStates: map[AppIndex]AppLocalState{3: {KeyValue: TealKeyValue{"l": {Type: TealBytesType, Bytes: "v"}}}},
	}

	cp := ad.Clone()
	require.Equal(t, ad, cp)

	cp.Assets[1] = AssetHolding{Amount: 6}
	cp.AppParams[2].GlobalState["k"] = TealValue{Type: TealUintType, Uint: 2}
	cp.AppParams[2].ApprovalProgram[0] = 'x'
	cp.AppLocalStates[3].KeyValue["l"] = TealValue{Type: TealBytesType, Bytes: "w"}

	require.Equal(t, uint64(5), ad.Assets[1].Amount)
	require.Equal(t, uint64(1), ad.AppParams[2].GlobalState["k"].Uint)
	require.Equal(t, "int 1", string(ad.AppParams[2].ApprovalProgram))
	require.Equal(t, "v", ad.AppLocalStates[3].KeyValue["l"].Bytes)
}
