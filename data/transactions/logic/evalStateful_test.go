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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/ledger/ledgercore"
	"github.com/algorand/avm-runtime/test/partitiontest"
)

func TestBalance(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	testApp(t, prog(7, "txn Sender; balance; int 1000000; =="), nil)
	testApp(t, prog(7, "int 1; balance; int 500000; =="), nil)
	testApp(t, prog(7, "txna Accounts 1; balance; int 500000; =="), nil)
	testApp(t, prog(2, "int 0; balance; int 1000000; =="), nil)

	// the app's own address is always available, even when unfunded
	testApp(t, prog(7, "global CurrentApplicationAddress; balance; int 0; =="), nil)

	testApp(t, prog(7, "int 2; balance"), nil, ErrInvalidReference)
	testApp(t, prog(7, "byte 0x0000000000000000000000000000000000000000000000000000000000000001; balance"),
		nil, ErrInvalidReference)
	testApp(t, prog(7, "byte 0x01; balance"), nil, ErrTypeMismatch)

	testPanics(t, "int 0; balance", 2, ErrModeViolation)
}

func TestMinBalance(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	ep, ledger := defaultAppParams()
	testApp(t, prog(7, "txn Sender; min_balance; int 100000; =="), ep)

	ledger.NewLocals(testSender, uint64(testAppID))
	ledger.NewHolding(testSender, 77, 5, false)
	testApp(t, prog(7, "txn Sender; min_balance; int 300000; =="), ep)
	testApp(t, prog(3, "int 0; min_balance; int 300000; =="), ep)
}

func TestAppOptedIn(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	ep, ledger := defaultAppParams()
	testApp(t, prog(7, "txn Sender; int 0; app_opted_in; !"), ep)
	ledger.NewLocals(testSender, uint64(testAppID))
	testApp(t, prog(7, "txn Sender; int 0; app_opted_in"), ep)
	testApp(t, prog(7, "txn Sender; txn ApplicationID; app_opted_in"), ep)
	testApp(t, prog(7, "int 1; int 0; app_opted_in; !"), ep)

	// apps must be the current app or in ForeignApps
	testApp(t, prog(7, "txn Sender; int 4321; app_opted_in"), ep, ErrInvalidReference)
}

func TestLocalState(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	ep, ledger := defaultAppParams()
	ledger.NewLocals(testSender, uint64(testAppID))
	ledger.NewLocal(testSender, uint64(testAppID), "k", basics.TealValue{Type: basics.TealUintType, Uint: 7})

	cx := testApp(t, prog(7, `txn Sender; byte "k"; app_local_get; int 7; ==; assert
txn Sender; byte "k"; int 9; app_local_put
txn Sender; byte "k"; app_local_get; int 9; ==; assert
txn Sender; int 0; byte "missing"; app_local_get_ex; !; assert; int 0; ==`), ep)

	require.Equal(t, basics.StateDelta{
		"k": {Action: basics.SetUintAction, Uint: 9},
	}, cx.Txn.EvalDelta.LocalDeltas[0])
	tv, ok, err := ledger.GetLocal(testSender, testAppID, "k", 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 9, tv.Uint)

	// rewriting the current value is not a change
	ep, ledger = defaultAppParams()
	ledger.NewLocals(testSender, uint64(testAppID))
	ledger.NewLocal(testSender, uint64(testAppID), "k", basics.TealValue{Type: basics.TealUintType, Uint: 7})
	cx = testApp(t, prog(7, `txn Sender; byte "k"; int 7; app_local_put; int 1`), ep)
	require.NotContains(t, cx.Txn.EvalDelta.LocalDeltas, uint64(0))

	cx = testApp(t, prog(7, `txn Sender; byte "k"; app_local_del
txn Sender; byte "never"; app_local_del
txn Sender; byte "k"; app_local_get; int 0; ==`), ep)
	require.Equal(t, basics.StateDelta{
		"k": {Action: basics.DeleteAction},
	}, cx.Txn.EvalDelta.LocalDeltas[0])
}

func TestLocalStateFaults(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	ep, ledger := defaultAppParams()
	ledger.NewLocals(testSender, uint64(testAppID))

	// the receiver never opted in
	testApp(t, prog(7, `int 1; byte "k"; app_local_get`), ep, ledgercore.ErrNotOptedIn)
	testApp(t, prog(7, `int 1; byte "k"; int 1; app_local_put; int 1`), ep, ledgercore.ErrNotOptedIn)

	// the app address may be read but its locals can't be written, since
	// the change couldn't be recorded
	testApp(t, prog(7, `global CurrentApplicationAddress; byte "k"; int 1; app_local_put; int 1`),
		ep, ErrInvalidReference)

	testApp(t, prog(7, `int 5; byte "k"; app_local_get`), ep, ErrInvalidReference)
}

func TestGlobalState(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	ep, ledger := defaultAppParams()
	ledger.NewGlobal(uint64(testAppID), "g", basics.TealValue{Type: basics.TealBytesType, Bytes: "hello"})

	cx := testApp(t, prog(7, `byte "g"; app_global_get; byte "hello"; ==; assert
byte "n"; int 3; app_global_put
byte "g"; app_global_del
byte "nope"; app_global_del
int 0; byte "g"; app_global_get_ex; !; assert; int 0; ==; assert
byte "n"; app_global_get; int 3; ==`), ep)

	require.Equal(t, basics.StateDelta{
		"n": {Action: basics.SetUintAction, Uint: 3},
		"g": {Action: basics.DeleteAction},
	}, cx.Txn.EvalDelta.GlobalDelta)

	_, ok, err := ledger.GetGlobal(testAppID, "g")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestForeignApps(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	txn := appTxn()
	txn.Txn.ForeignApps = []basics.AppIndex{999}
	ep, ledger := defaultAppParams(txn)
	ledger.NewApp(testReceiver, 999, basics.AppParams{})
	ledger.NewGlobal(999, "x", basics.TealValue{Type: basics.TealUintType, Uint: 5})

	testApp(t, prog(7, `int 999; byte "x"; app_global_get_ex; assert; int 5; ==`), ep)
	// by index into ForeignApps
	testApp(t, prog(7, `int 1; byte "x"; app_global_get_ex; assert; int 5; ==`), ep)
	testApp(t, prog(2, `int 1; byte "x"; app_global_get_ex; bz fail; int 5; ==; return; fail: err`), ep)
	testApp(t, prog(7, `int 777; byte "x"; app_global_get_ex`), ep, ErrInvalidReference)

	// foreign app addresses are usable accounts from v7
	testApp(t, prog(7, `int 999; app_params_get AppAddress; assert; balance; int 0; ==`), ep)
	testApp(t, prog(6, `int 999; app_params_get AppAddress; assert; balance`), ep, ErrInvalidReference)
}

func TestAssetRefs(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	txn := appTxn()
	txn.Txn.ForeignAssets = []basics.AssetIndex{400}
	ep, ledger := defaultAppParams(txn)
	ledger.NewAsset(testSender, 400, basics.AssetParams{
		Total:    1000,
		Decimals: 2,
		UnitName: "tok",
		Manager:  testReceiver,
	})

	testApp(t, prog(7, "txn Sender; int 400; asset_holding_get AssetBalance; assert; int 1000; =="), ep)
	testApp(t, prog(7, "txn Sender; int 400; asset_holding_get AssetFrozen; assert; !"), ep)
	testApp(t, prog(7, "int 1; int 400; asset_holding_get AssetBalance; !; assert; int 0; =="), ep)
	testApp(t, prog(7, `int 400; asset_params_get AssetUnitName; assert; byte "tok"; ==`), ep)
	testApp(t, prog(7, "int 400; asset_params_get AssetDecimals; assert; int 2; =="), ep)
	testApp(t, prog(7, "int 400; asset_params_get AssetManager; assert; txna Accounts 1; =="), ep)
	testApp(t, prog(7, "int 400; asset_params_get AssetCreator; assert; txn Sender; =="), ep)
	// index 0 into ForeignAssets, the old way
	testApp(t, prog(2, "int 0; asset_params_get AssetTotal; bz fail; int 1000; ==; return; fail: err"), ep)

	testApp(t, prog(7, "int 401; asset_params_get AssetTotal"), ep, ErrInvalidReference)
	testApp(t, prog(4, "int 400; asset_params_get AssetCreator"), ep, ErrVersionViolation)
}

func TestAppParams(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	ep, ledger := defaultAppParams()
	ledger.NewApp(testSender, testAppID, basics.AppParams{
		ApprovalProgram: []byte{0x01, 0x02},
		StateSchemas: basics.StateSchemas{
			GlobalStateSchema: basics.StateSchema{NumUint: 3},
		},
	})

	testApp(t, prog(7, "txn ApplicationID; app_params_get AppCreator; assert; txn Sender; =="), ep)
	testApp(t, prog(7, "int 0; app_params_get AppAddress; assert; global CurrentApplicationAddress; =="), ep)
	testApp(t, prog(7, "int 0; app_params_get AppGlobalNumUint; assert; int 3; =="), ep)
	testApp(t, prog(7, "int 0; app_params_get AppApprovalProgram; assert; byte 0x0102; =="), ep)
	testApp(t, prog(7, "int 0; app_params_get AppLocalNumByteSlice; assert; !"), ep)
}

func TestAcctParams(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	ep, ledger := defaultAppParams()
	ledger.Rekey(testReceiver, testSender)

	testApp(t, prog(7, "txn Sender; acct_params_get AcctBalance; assert; int 1000000; =="), ep)
	testApp(t, prog(7, "txn Sender; acct_params_get AcctMinBalance; assert; int 100000; =="), ep)
	testApp(t, prog(7, "txna Accounts 1; acct_params_get AcctAuthAddr; assert; txn Sender; =="), ep)
	testApp(t, prog(7, "global CurrentApplicationAddress; acct_params_get AcctBalance; !; assert; int 0; =="), ep)
	testApp(t, prog(7, "int 2; acct_params_get AcctBalance"), ep, ErrInvalidReference)
}

func TestLog(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	cx := testApp(t, prog(5, `byte "a"; log; byte "b"; log; int 1`), nil)
	require.Equal(t, []string{"a", "b"}, cx.Txn.EvalDelta.Logs)

	testApp(t, prog(7, `int 0; store 0
top: byte "x"; log
load 0; int 1; +; dup; store 0
int 33; <; bnz top
int 1`), nil, ErrLogLimit)

	testApp(t, prog(5, "int 600; bzero; log; int 600; bzero; log; int 1"), nil, ErrLogLimit)
	testPanics(t, `byte "a"; log; int 1`, 5, ErrModeViolation)
}
