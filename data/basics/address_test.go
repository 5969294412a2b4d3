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

	"github.com/algorand/avm-runtime/crypto"
	"github.com/algorand/avm-runtime/protocol"
	"github.com/algorand/avm-runtime/test/partitiontest"
)

func TestChecksumAddress_Unmarshal(t *testing.T) {
	partitiontest.PartitionTest(t)
	address := crypto.Hash([]byte("randomString"))
	shortAddress := Address(address)

	addr, err := UnmarshalChecksumAddress(shortAddress.String())
	require.NoError(t, err)
	require.Equal(t, addr, shortAddress)
}

func TestAddressChecksumMalformed(t *testing.T) {
	partitiontest.PartitionTest(t)
	shortAddress := Address(crypto.Hash([]byte("randomString")))

	for _, bad := range []string{
		"",
		shortAddress.String() + "r",
		shortAddress.String() + " ",
		"4" + shortAddress.String(),
		" " + shortAddress.String(),
	} {
		_, err := UnmarshalChecksumAddress(bad)
		require.Error(t, err, "%q", bad)
	}
}

func TestAddressChecksumCanonical(t *testing.T) {
	partitiontest.PartitionTest(t)
	addr := "J5YDZLPOHWB5O6MVRHNFGY4JXIQAYYM6NUJWPBSYBBIXH5ENQ4Z5LTJELU"
	nonCanonical := "J5YDZLPOHWB5O6MVRHNFGY4JXIQAYYM6NUJWPBSYBBIXH5ENQ4Z5LTJELV"

	_, err := UnmarshalChecksumAddress(addr)
	require.NoError(t, err)

	_, err = UnmarshalChecksumAddress(nonCanonical)
	require.Error(t, err)
}

type TestOb struct {
	Aaaa Address `codec:"aaaa,omitempty"`
}

func TestAddressMarshalUnmarshal(t *testing.T) {
	partitiontest.PartitionTest(t)
	var addr Address
	crypto.RandBytes(addr[:])
	testob := TestOb{Aaaa: addr}
	data := protocol.EncodeJSON(testob)
	var nob TestOb
	err := protocol.DecodeJSON(data, &nob)
	require.NoError(t, err)
	require.Equal(t, testob, nob)
}

func TestAppIndexAddress(t *testing.T) {
	partitiontest.PartitionTest(t)
	a1 := AppIndex(1).Address()
	a2 := AppIndex(2).Address()
	require.NotEqual(t, a1, a2)
	require.Equal(t, a1, AppIndex(1).Address())

	// "appID" || big-endian uint64
	expected := crypto.Hash(append([]byte("appID"), 0, 0, 0, 0, 0, 0, 0, 1))
	require.Equal(t, Address(expected), a1)
}
