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

func TestGlobalFieldsVersions(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	for _, fs := range globalFieldSpecs {
		name := GlobalFields.Names[fs.field]
		if fs.version > 1 {
			_, err := AssembleString(fmt.Sprintf("#pragma version %d\nglobal %s", fs.version-1, name))
			require.ErrorIs(t, err, ErrVersionViolation, name)
		}
		v := fs.version
		if v == 0 {
			v = 1
		}
		_, err := AssembleString(fmt.Sprintf("#pragma version %d\nglobal %s", v, name))
		require.NoError(t, err, name)
	}
}

func TestTxnFieldsVersions(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	for _, fs := range txnFieldSpecs {
		if fs.array {
			continue
		}
		name := TxnFields.Names[fs.field]
		if fs.version > 1 {
			_, err := AssembleString(fmt.Sprintf("#pragma version %d\ntxn %s", fs.version-1, name))
			require.ErrorIs(t, err, ErrVersionViolation, name)
		}
		v := fs.version
		if v == 0 {
			v = 1
		}
		_, err := AssembleString(fmt.Sprintf("#pragma version %d\ntxn %s", v, name))
		require.NoError(t, err, name)
	}
}

func TestItxnFieldVersions(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	settable := 0
	for _, fs := range txnFieldSpecs {
		if fs.itxVersion == 0 {
			continue
		}
		settable++
		name := TxnFields.Names[fs.field]
		v := max(fs.itxVersion, fs.version)
		if v > 5 {
			_, err := AssembleString(fmt.Sprintf("#pragma version %d\nitxn_field %s", v-1, name))
			require.ErrorIs(t, err, ErrVersionViolation, name)
		}
		_, err := AssembleString(fmt.Sprintf("#pragma version %d\nitxn_field %s", v, name))
		require.NoError(t, err, name)
	}
	require.Greater(t, settable, 30)
}

func TestFieldsAreNamed(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	groups := []*FieldGroup{&TxnFields, &GlobalFields, &AssetHoldingFields, &AssetParamsFields,
		&AppParamsFields, &AcctParamsFields, &Base64Encodings}
	for _, fg := range groups {
		for _, name := range fg.Names {
			if name == "" {
				continue
			}
			fs, ok := fg.SpecByName(name)
			require.True(t, ok, "%s %s", fg.Name, name)
			require.Equal(t, name, fg.Names[fs.Field()])
		}
	}
}

func TestFieldTypesAtRuntime(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	testAccepts(t, "txn Fee; int 1000; ==", 1)
	testAccepts(t, "txn Sender; len; int 32; ==", 1)
	testAccepts(t, "txn TypeEnum; int pay; ==", 1)
	testAccepts(t, `txn Type; byte "pay"; ==`, 1)
	testAccepts(t, "global MinTxnFee; int 1000; ==", 1)
	testAccepts(t, "global ZeroAddress; len; int 32; ==", 1)
	testAccepts(t, "global LogicSigVersion; int 7; ==", 2)
}
