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

package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/avm-runtime/test/partitiontest"
)

type testStruct struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	B   uint64   `codec:"b"`
	A   string   `codec:"a"`
	Arr [][]byte `codec:"arr"`
}

func TestOmitEmpty(t *testing.T) {
	partitiontest.PartitionTest(t)
	var x testStruct
	enc := Encode(&x)
	// an empty struct encodes to an empty map
	require.Equal(t, []byte{0x80}, enc)
}

func TestEncodeCanonicalOrder(t *testing.T) {
	partitiontest.PartitionTest(t)
	x := testStruct{A: "x", B: 1}
	enc := Encode(&x)
	// keys are sorted, so "a" comes before "b" whatever the field order
	require.Less(t, bytes.Index(enc, []byte("a")), bytes.Index(enc, []byte("b")))

	var y testStruct
	require.NoError(t, Decode(enc, &y))
	require.Equal(t, x, y)
}

func TestDecodeUnknownField(t *testing.T) {
	partitiontest.PartitionTest(t)
	type wider struct {
		_struct struct{} `codec:",omitempty,omitemptyarray"`

		A string `codec:"a"`
		Z uint64 `codec:"z"`
	}
	enc := Encode(&wider{A: "x", Z: 3})
	var x testStruct
	require.Error(t, Decode(enc, &x))
}

func TestEncodeJSON(t *testing.T) {
	partitiontest.PartitionTest(t)
	x := testStruct{A: "hello", B: 7}
	js := EncodeJSON(&x)
	require.Contains(t, string(js), `"hello"`)

	var y testStruct
	require.NoError(t, DecodeJSON(js, &y))
	require.Equal(t, x, y)
}

func TestEncodeStream(t *testing.T) {
	partitiontest.PartitionTest(t)
	x := testStruct{Arr: [][]byte{{1}, {2, 3}}}
	var buf bytes.Buffer
	require.NoError(t, EncodeStream(&buf, &x))
	require.Equal(t, Encode(&x), buf.Bytes())

	var y testStruct
	require.NoError(t, DecodeStream(&buf, &y))
	require.Equal(t, x, y)
}
