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
	"pgregory.net/rapid"

	"github.com/algorand/avm-runtime/test/partitiontest"
)

// genTealValue generates a valid TealValue with proper Type/field correspondence.
func genTealValue() *rapid.Generator[TealValue] {
	return rapid.Custom(func(t *rapid.T) TealValue {
		tealType := rapid.OneOf(rapid.Just(TealUintType), rapid.Just(TealBytesType)).Draw(t, "type")

		if tealType == TealUintType {
			return TealValue{Type: TealUintType, Uint: rapid.Uint64().Draw(t, "uint")}
		}
		return TealValue{Type: TealBytesType, Bytes: rapid.String().Draw(t, "bytes")}
	})
}

func TestStateDeltaEqual(t *testing.T) {
	partitiontest.PartitionTest(t)
	a := require.New(t)

	var d1 StateDelta = nil
	var d2 StateDelta = nil
	a.True(d1.Equal(d2))

	d2 = StateDelta{}
	a.True(d1.Equal(d2))

	d2 = StateDelta{"test": {Action: SetUintAction, Uint: 0}}
	a.False(d1.Equal(d2))

	d1 = StateDelta{"test": {Action: SetUintAction, Uint: 0}}
	a.True(d1.Equal(d2))

	d2 = StateDelta{"test": {Action: SetBytesAction, Bytes: "val"}}
	a.False(d1.Equal(d2))
}

func TestTealValueDeltaRoundTrip(t *testing.T) {
	partitiontest.PartitionTest(t)
	rapid.Check(t, func(t *rapid.T) {
		tv := genTealValue().Draw(t, "tv")
		vd := tv.ToValueDelta()
		back, ok := vd.ToTealValue()
		require.True(t, ok)
		require.Equal(t, tv, back)
	})

	del := ValueDelta{Action: DeleteAction}
	_, ok := del.ToTealValue()
	require.False(t, ok)
}

func TestTealKeyValueSchema(t *testing.T) {
	partitiontest.PartitionTest(t)
	kv := TealKeyValue{
		"a": {Type: TealUintType, Uint: 1},
		"b": {Type: TealBytesType, Bytes: "x"},
		"c": {Type: TealBytesType, Bytes: "y"},
	}
	schema, err := kv.ToStateSchema()
	require.NoError(t, err)
	require.Equal(t, StateSchema{NumUint: 1, NumByteSlice: 2}, schema)
	require.True(t, StateSchema{NumUint: 1, NumByteSlice: 2}.Allows(schema))
	require.False(t, StateSchema{NumUint: 1, NumByteSlice: 1}.Allows(schema))

	kv["d"] = TealValue{Type: 7}
	_, err = kv.ToStateSchema()
	require.Error(t, err)

	clone := kv.Clone()
	clone["e"] = TealValue{Type: TealUintType}
	require.NotContains(t, kv, "e")
	require.Nil(t, TealKeyValue(nil).Clone())
}

func TestStateSchemaArithmetic(t *testing.T) {
	partitiontest.PartitionTest(t)
	a := StateSchema{NumUint: 3, NumByteSlice: 2}
	b := StateSchema{NumUint: 1, NumByteSlice: 5}
	require.Equal(t, StateSchema{NumUint: 4, NumByteSlice: 7}, a.AddSchema(b))
	require.Equal(t, StateSchema{NumUint: 2, NumByteSlice: 0}, a.SubSchema(b))
	require.Equal(t, uint64(5), a.NumEntries())
}
