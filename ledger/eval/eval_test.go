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

package eval

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/avm-runtime/config"
	"github.com/algorand/avm-runtime/crypto"
	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/ledger/ledgercore"
	"github.com/algorand/avm-runtime/logging"
	"github.com/algorand/avm-runtime/protocol"
	"github.com/algorand/avm-runtime/test/partitiontest"
)

// evalTestLedger is a LedgerForEvaluator over plain maps. commit folds a
// delta in the way the real ledger does.
type evalTestLedger struct {
	accounts map[basics.Address]basics.AccountData
	creators map[basics.CreatableIndex]basics.CreatableLocator
	txids    map[transactions.Txid]struct{}
	counter  uint64
	rnd      basics.Round
	ts       int64
}

func makeEvalTestLedger() *evalTestLedger {
	return &evalTestLedger{
		accounts: make(map[basics.Address]basics.AccountData),
		creators: make(map[basics.CreatableIndex]basics.CreatableLocator),
		txids:    make(map[transactions.Txid]struct{}),
		counter:  1000,
		rnd:      10,
		ts:       1_600_000_000,
	}
}

func (l *evalTestLedger) LookupAccount(addr basics.Address) (basics.AccountData, error) {
	return l.accounts[addr], nil
}

func (l *evalTestLedger) GetCreator(cidx basics.CreatableIndex, ctype basics.CreatableType) (basics.Address, bool, error) {
	loc, ok := l.creators[cidx]
	if !ok || loc.Type != ctype {
		return basics.Address{}, false, nil
	}
	return loc.Creator, true, nil
}

func (l *evalTestLedger) Counter() uint64        { return l.counter }
func (l *evalTestLedger) Round() basics.Round    { return l.rnd }
func (l *evalTestLedger) LatestTimestamp() int64 { return l.ts }

func (l *evalTestLedger) CheckDup(txid transactions.Txid) error {
	if _, ok := l.txids[txid]; ok {
		return &ledgercore.TransactionInLedgerError{Txid: txid}
	}
	return nil
}

func (l *evalTestLedger) commit(delta ledgercore.StateDelta) {
	for addr, data := range delta.Accts {
		if data.IsZero() {
			delete(l.accounts, addr)
			continue
		}
		l.accounts[addr] = data
	}
	for idx, mc := range delta.Creatables {
		if mc.Created {
			l.creators[idx] = basics.CreatableLocator{Type: mc.Ctype, Creator: mc.Creator, Index: idx}
		} else {
			delete(l.creators, idx)
		}
	}
	for txid := range delta.Txids {
		l.txids[txid] = struct{}{}
	}
	l.counter = delta.TxnCounter
}

type testAccount struct {
	secrets *crypto.SignatureSecrets
	addr    basics.Address
}

func newTestAccount(l *evalTestLedger, balance uint64) testAccount {
	secrets := crypto.NewSignatureSecrets()
	addr := basics.Address(secrets.SignatureVerifier)
	l.accounts[addr] = basics.AccountData{MicroAlgos: basics.MicroAlgos{Raw: balance}}
	return testAccount{secrets: secrets, addr: addr}
}

func header(sender basics.Address) transactions.Header {
	return transactions.Header{
		Sender:     sender,
		Fee:        basics.MicroAlgos{Raw: 1000},
		FirstValid: 1,
		LastValid:  100,
	}
}

func payTxn(from, to basics.Address, amount uint64) transactions.Transaction {
	return transactions.Transaction{
		Type:   protocol.PaymentTx,
		Header: header(from),
		PaymentTxnFields: transactions.PaymentTxnFields{
			Receiver: to,
			Amount:   basics.MicroAlgos{Raw: amount},
		},
	}
}

func appCreateTxn(from basics.Address, approval, clear string, global basics.StateSchema) transactions.Transaction {
	return transactions.Transaction{
		Type:   protocol.ApplicationCallTx,
		Header: header(from),
		ApplicationCallTxnFields: transactions.ApplicationCallTxnFields{
			ApprovalProgram:   []byte(approval),
			ClearStateProgram: []byte(clear),
			GlobalStateSchema: global,
			LocalStateSchema:  basics.StateSchema{NumUint: 1},
		},
	}
}

func appCallTxn(from basics.Address, app basics.AppIndex, oc transactions.OnCompletion, args ...[]byte) transactions.Transaction {
	return transactions.Transaction{
		Type:   protocol.ApplicationCallTx,
		Header: header(from),
		ApplicationCallTxnFields: transactions.ApplicationCallTxnFields{
			ApplicationID:   app,
			OnCompletion:    oc,
			ApplicationArgs: args,
		},
	}
}

// group assigns a group id and signs each txn with the matching signer.
func group(txns []transactions.Transaction, signers ...testAccount) []transactions.SignedTxn {
	transactions.AssignGroupID(txns)
	stxns := make([]transactions.SignedTxn, len(txns))
	for i := range txns {
		stxns[i] = txns[i].Sign(signers[i].secrets)
	}
	return stxns
}

func testProto() config.ConsensusParams {
	return config.Consensus[protocol.ConsensusCurrentVersion]
}

func evaluate(t *testing.T, l *evalTestLedger, stxns []transactions.SignedTxn) ([]transactions.ApplyData, error) {
	t.Helper()
	delta, ads, err := Evaluate(l, stxns, testProto(), logging.TestingLog(t))
	if err == nil {
		l.commit(delta)
	}
	return ads, err
}

const (
	approveV6 = "#pragma version 6\nint 1"
	rejectV6  = "#pragma version 6\nint 0"
)

func TestEvalPayment(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := makeEvalTestLedger()
	alice := newTestAccount(l, 1_000_000)
	bob := newTestAccount(l, 1_000_000)

	_, err := evaluate(t, l, group([]transactions.Transaction{payTxn(alice.addr, bob.addr, 5000)}, alice))
	require.NoError(t, err)

	// the fee is burned, not paid to anyone
	require.EqualValues(t, 1_000_000-5000-1000, l.accounts[alice.addr].MicroAlgos.Raw)
	require.EqualValues(t, 1_000_000+5000, l.accounts[bob.addr].MicroAlgos.Raw)
	require.Len(t, l.txids, 1)
}

func TestEvalGroupShape(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := makeEvalTestLedger()
	alice := newTestAccount(l, 10_000_000)
	bob := newTestAccount(l, 1_000_000)

	_, err := evaluate(t, l, nil)
	require.ErrorIs(t, err, ledgercore.ErrBadGroup)

	var txns []transactions.Transaction
	var signers []testAccount
	for i := 0; i < 17; i++ {
		txn := payTxn(alice.addr, bob.addr, uint64(i+1))
		txns = append(txns, txn)
		signers = append(signers, alice)
	}
	_, err = evaluate(t, l, group(txns, signers...))
	require.ErrorIs(t, err, ledgercore.ErrGroupTooLarge)

	// a group of 16 is fine
	_, err = evaluate(t, l, group(txns[:16], signers[:16]...))
	require.NoError(t, err)

	// members without a group id
	a := payTxn(alice.addr, bob.addr, 100)
	b := payTxn(bob.addr, alice.addr, 100)
	_, err = evaluate(t, l, []transactions.SignedTxn{a.Sign(alice.secrets), b.Sign(bob.secrets)})
	require.ErrorIs(t, err, ledgercore.ErrBadGroup)

	// a group id that does not cover both members
	gid := transactions.GroupID([]transactions.Transaction{a})
	a.Group = gid
	b.Group = gid
	_, err = evaluate(t, l, []transactions.SignedTxn{a.Sign(alice.secrets), b.Sign(bob.secrets)})
	require.ErrorIs(t, err, ledgercore.ErrBadGroup)

	// a lone txn may carry its own group id, but only the right one
	_, err = evaluate(t, l, []transactions.SignedTxn{a.Sign(alice.secrets)})
	require.NoError(t, err)
}

func TestEvalValidityWindowAndDuplicates(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := makeEvalTestLedger()
	alice := newTestAccount(l, 1_000_000)
	bob := newTestAccount(l, 1_000_000)

	late := payTxn(alice.addr, bob.addr, 1)
	late.FirstValid = 11
	_, err := evaluate(t, l, group([]transactions.Transaction{late}, alice))
	require.ErrorIs(t, err, ledgercore.ErrTxnDead)

	pay := payTxn(alice.addr, bob.addr, 1)
	_, err = evaluate(t, l, group([]transactions.Transaction{pay}, alice))
	require.NoError(t, err)

	_, err = evaluate(t, l, group([]transactions.Transaction{pay}, alice))
	require.ErrorIs(t, err, ledgercore.ErrInvalidTxn)
	var tile *ledgercore.TransactionInLedgerError
	require.ErrorAs(t, err, &tile)

	// the same txn twice in one group
	twice := payTxn(alice.addr, bob.addr, 2)
	_, err = evaluate(t, l, group([]transactions.Transaction{twice, twice}, alice, alice))
	require.ErrorIs(t, err, ledgercore.ErrInvalidTxn)
}

func TestEvalFeePooling(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := makeEvalTestLedger()
	alice := newTestAccount(l, 1_000_000)
	bob := newTestAccount(l, 1_000_000)

	a := payTxn(alice.addr, bob.addr, 1)
	a.Fee.Raw = 2000
	b := payTxn(bob.addr, alice.addr, 1)
	b.Fee.Raw = 0
	_, err := evaluate(t, l, group([]transactions.Transaction{a, b}, alice, bob))
	require.NoError(t, err)
	require.EqualValues(t, 1_000_000-2000, l.accounts[alice.addr].MicroAlgos.Raw)
	require.EqualValues(t, 1_000_000, l.accounts[bob.addr].MicroAlgos.Raw)

	a = payTxn(alice.addr, bob.addr, 3)
	a.Fee.Raw = 1500
	b = payTxn(bob.addr, alice.addr, 3)
	b.Fee.Raw = 400
	_, err = evaluate(t, l, group([]transactions.Transaction{a, b}, alice, bob))
	require.ErrorIs(t, err, ledgercore.ErrFeeShortfall)
}

func TestEvalAtomicity(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := makeEvalTestLedger()
	alice := newTestAccount(l, 1_000_000)
	bob := newTestAccount(l, 1_000_000)

	eval := NewEvaluator(l, testProto(), logging.TestingLog(t))
	ok := payTxn(alice.addr, bob.addr, 1000)
	overspend := payTxn(bob.addr, alice.addr, 5_000_000)
	_, err := eval.TransactionGroup(group([]transactions.Transaction{ok, overspend}, alice, bob))
	require.ErrorIs(t, err, ledgercore.ErrInsufficientBalance)

	delta := eval.Delta()
	require.Zero(t, delta.Len())
	require.Empty(t, delta.Txids)
}

func TestEvalMinBalance(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := makeEvalTestLedger()
	alice := newTestAccount(l, 200_000)
	bob := newTestAccount(l, 1_000_000)

	_, err := evaluate(t, l, group([]transactions.Transaction{payTxn(alice.addr, bob.addr, 150_000)}, alice))
	require.ErrorIs(t, err, ledgercore.ErrMinBalance)

	// a receiver below the minimum is rejected too
	carol := crypto.NewSignatureSecrets()
	_, err = evaluate(t, l, group([]transactions.Transaction{payTxn(bob.addr, basics.Address(carol.SignatureVerifier), 1)}, bob))
	require.ErrorIs(t, err, ledgercore.ErrMinBalance)

	// closing the account out entirely is fine
	closing := payTxn(alice.addr, bob.addr, 0)
	closing.CloseRemainderTo = bob.addr
	ads, err := evaluate(t, l, group([]transactions.Transaction{closing}, alice))
	require.NoError(t, err)
	require.EqualValues(t, 199_000, ads[0].ClosingAmount.Raw)
	_, present := l.accounts[alice.addr]
	require.False(t, present)
}

func TestEvalRekey(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := makeEvalTestLedger()
	alice := newTestAccount(l, 1_000_000)
	bob := newTestAccount(l, 1_000_000)

	rekey := payTxn(alice.addr, alice.addr, 0)
	rekey.RekeyTo = bob.addr
	_, err := evaluate(t, l, group([]transactions.Transaction{rekey}, alice))
	require.NoError(t, err)
	require.Equal(t, bob.addr, l.accounts[alice.addr].AuthAddr)

	// alice's own key no longer controls her account
	_, err = evaluate(t, l, group([]transactions.Transaction{payTxn(alice.addr, bob.addr, 1)}, alice))
	require.ErrorIs(t, err, ledgercore.ErrUnauthorized)

	_, err = evaluate(t, l, group([]transactions.Transaction{payTxn(alice.addr, bob.addr, 2)}, bob))
	require.NoError(t, err)

	// rekeying back to yourself clears AuthAddr
	back := payTxn(alice.addr, alice.addr, 0)
	back.RekeyTo = alice.addr
	_, err = evaluate(t, l, group([]transactions.Transaction{back}, bob))
	require.NoError(t, err)
	require.True(t, l.accounts[alice.addr].AuthAddr.IsZero())
}

func TestEvalBadSignature(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := makeEvalTestLedger()
	alice := newTestAccount(l, 1_000_000)
	bob := newTestAccount(l, 1_000_000)

	stxns := group([]transactions.Transaction{payTxn(alice.addr, bob.addr, 1)}, alice)
	stxns[0].Sig[0] ^= 1
	_, err := evaluate(t, l, stxns)
	require.ErrorIs(t, err, ledgercore.ErrSignatureInvalid)
}

const counterApproval = `#pragma version 6
txn ApplicationID
bz create
byte "count"
byte "count"
app_global_get
int 1
+
app_global_put
byte "counted"
log
int 1
return
create:
byte "count"
int 0
app_global_put
int 1`

func TestEvalAppLifecycle(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := makeEvalTestLedger()
	alice := newTestAccount(l, 10_000_000)

	create := appCreateTxn(alice.addr, counterApproval, approveV6, basics.StateSchema{NumUint: 1})
	ads, err := evaluate(t, l, group([]transactions.Transaction{create}, alice))
	require.NoError(t, err)
	appID := ads[0].ApplicationID
	require.EqualValues(t, 1001, appID)
	require.EqualValues(t, 1001, l.counter)
	require.Equal(t, alice.addr, l.creators[basics.CreatableIndex(appID)].Creator)

	params := l.accounts[alice.addr].AppParams[appID]
	require.Equal(t, basics.TealValue{Type: basics.TealUintType}, params.GlobalState["count"])

	call := appCallTxn(alice.addr, appID, transactions.NoOpOC)
	ads, err = evaluate(t, l, group([]transactions.Transaction{call}, alice))
	require.NoError(t, err)
	require.Equal(t, []string{"counted"}, ads[0].EvalDelta.Logs)
	require.Equal(t, basics.SetUintAction, ads[0].EvalDelta.GlobalDelta["count"].Action)
	require.EqualValues(t, 1, l.accounts[alice.addr].AppParams[appID].GlobalState["count"].Uint)

	// two calls in one group see each other's writes
	c1 := appCallTxn(alice.addr, appID, transactions.NoOpOC, []byte("1"))
	c2 := appCallTxn(alice.addr, appID, transactions.NoOpOC, []byte("2"))
	_, err = evaluate(t, l, group([]transactions.Transaction{c1, c2}, alice, alice))
	require.NoError(t, err)
	require.EqualValues(t, 3, l.accounts[alice.addr].AppParams[appID].GlobalState["count"].Uint)

	del := appCallTxn(alice.addr, appID, transactions.DeleteApplicationOC)
	_, err = evaluate(t, l, group([]transactions.Transaction{del}, alice))
	require.NoError(t, err)
	require.NotContains(t, l.accounts[alice.addr].AppParams, appID)
	require.NotContains(t, l.creators, basics.CreatableIndex(appID))
}

func TestEvalAppReject(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := makeEvalTestLedger()
	alice := newTestAccount(l, 10_000_000)

	create := appCreateTxn(alice.addr, rejectV6, approveV6, basics.StateSchema{})
	_, err := evaluate(t, l, group([]transactions.Transaction{create}, alice))
	require.ErrorIs(t, err, ledgercore.ErrRejected)
	require.True(t, IsRejection(err))
	require.EqualValues(t, 1000, l.counter)
	require.Empty(t, l.accounts[alice.addr].AppParams)

	// a fault is not a rejection
	create = appCreateTxn(alice.addr, "#pragma version 6\nint 1\nint 0\n/", approveV6, basics.StateSchema{})
	_, err = evaluate(t, l, group([]transactions.Transaction{create}, alice))
	require.Error(t, err)
	require.False(t, IsRejection(err))
	var lee ledgercore.LogicEvalError
	require.True(t, errors.As(err, &lee))
}

func TestEvalSchemaViolation(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := makeEvalTestLedger()
	alice := newTestAccount(l, 10_000_000)

	// the schema allows no globals at all
	create := appCreateTxn(alice.addr, counterApproval, approveV6, basics.StateSchema{})
	_, err := evaluate(t, l, group([]transactions.Transaction{create}, alice))
	require.ErrorIs(t, err, ledgercore.ErrSchemaViolation)

	// a 128 byte value fits on its own, but not next to its key
	long := "#pragma version 6\nbyte \"k\"\nbyte 0x" + strings.Repeat("00", 128) + "\napp_global_put\nint 1"
	create = appCreateTxn(alice.addr, long, approveV6, basics.StateSchema{NumByteSlice: 1})
	_, err = evaluate(t, l, group([]transactions.Transaction{create}, alice))
	require.ErrorIs(t, err, ledgercore.ErrSchemaViolation)
}

const localApproval = `#pragma version 6
txn ApplicationID
bz ok
txn OnCompletion
int OptIn
==
bz ok
txn Sender
byte "n"
int 7
app_local_put
ok:
int 1`

func TestEvalOptInAndClearState(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := makeEvalTestLedger()
	alice := newTestAccount(l, 10_000_000)
	bob := newTestAccount(l, 10_000_000)

	ads, err := evaluate(t, l, group([]transactions.Transaction{
		appCreateTxn(alice.addr, localApproval, rejectV6, basics.StateSchema{})}, alice))
	require.NoError(t, err)
	appID := ads[0].ApplicationID

	_, err = evaluate(t, l, group([]transactions.Transaction{appCallTxn(bob.addr, appID, transactions.OptInOC)}, bob))
	require.NoError(t, err)
	ls := l.accounts[bob.addr].AppLocalStates[appID]
	require.EqualValues(t, 7, ls.KeyValue["n"].Uint)
	require.Equal(t, basics.StateSchema{NumUint: 1}, l.accounts[bob.addr].TotalAppSchema)

	// a fresh txid, so only the opt-in itself can fail
	again := appCallTxn(bob.addr, appID, transactions.OptInOC)
	again.Note = []byte("again")
	_, err = evaluate(t, l, group([]transactions.Transaction{again}, bob))
	require.ErrorIs(t, err, ledgercore.ErrAlreadyOptedIn)
	var tile *ledgercore.TransactionInLedgerError
	require.False(t, errors.As(err, &tile))

	// the clear state program rejects, but local state is cleared anyway
	_, err = evaluate(t, l, group([]transactions.Transaction{appCallTxn(bob.addr, appID, transactions.ClearStateOC)}, bob))
	require.NoError(t, err)
	require.NotContains(t, l.accounts[bob.addr].AppLocalStates, appID)
	require.Equal(t, basics.StateSchema{}, l.accounts[bob.addr].TotalAppSchema)
}

const innerPayApproval = `#pragma version 6
txn ApplicationID
bz done
itxn_begin
int pay
itxn_field TypeEnum
int 5000
itxn_field Amount
txn Sender
itxn_field Receiver
itxn_submit
done:
int 1`

func TestEvalInnerPayment(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := makeEvalTestLedger()
	alice := newTestAccount(l, 10_000_000)
	bob := newTestAccount(l, 10_000_000)

	ads, err := evaluate(t, l, group([]transactions.Transaction{
		appCreateTxn(alice.addr, innerPayApproval, approveV6, basics.StateSchema{})}, alice))
	require.NoError(t, err)
	appID := ads[0].ApplicationID
	appAddr := appID.Address()

	// unfunded, the app cannot pay
	call := appCallTxn(bob.addr, appID, transactions.NoOpOC)
	_, err = evaluate(t, l, group([]transactions.Transaction{call}, bob))
	require.ErrorIs(t, err, ledgercore.ErrInsufficientBalance)

	fund := payTxn(bob.addr, appAddr, 1_000_000)
	call.Note = []byte("again")
	eval := NewEvaluator(l, testProto(), logging.TestingLog(t))
	ads, err = eval.TransactionGroup(group([]transactions.Transaction{fund, call}, bob, bob))
	require.NoError(t, err)
	require.Equal(t, 1, eval.InnerCount())
	require.Positive(t, eval.Cost())
	l.commit(eval.Delta())

	require.Len(t, ads[1].EvalDelta.InnerTxns, 1)
	inner := ads[1].EvalDelta.InnerTxns[0]
	require.Equal(t, appAddr, inner.Txn.Sender)
	require.EqualValues(t, 5000, inner.Txn.Amount.Raw)

	// the app paid the inner fee itself
	require.EqualValues(t, 1_000_000-5000-1000, l.accounts[appAddr].MicroAlgos.Raw)
	require.EqualValues(t, 10_000_000-1_000_000-2000+5000, l.accounts[bob.addr].MicroAlgos.Raw)
}

func TestEvalAssets(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := makeEvalTestLedger()
	alice := newTestAccount(l, 10_000_000)
	bob := newTestAccount(l, 10_000_000)

	acfg := transactions.Transaction{
		Type:   protocol.AssetConfigTx,
		Header: header(alice.addr),
		AssetConfigTxnFields: transactions.AssetConfigTxnFields{
			AssetParams: basics.AssetParams{Total: 100, UnitName: "tok", Manager: alice.addr, Freeze: alice.addr},
		},
	}
	ads, err := evaluate(t, l, group([]transactions.Transaction{acfg}, alice))
	require.NoError(t, err)
	aid := ads[0].ConfigAsset
	require.EqualValues(t, 1001, aid)
	require.EqualValues(t, 100, l.accounts[alice.addr].Assets[aid].Amount)

	axfer := func(from, to basics.Address, amount uint64) transactions.Transaction {
		return transactions.Transaction{
			Type:   protocol.AssetTransferTx,
			Header: header(from),
			AssetTransferTxnFields: transactions.AssetTransferTxnFields{
				XferAsset:     aid,
				AssetAmount:   amount,
				AssetReceiver: to,
			},
		}
	}

	// not opted in yet
	_, err = evaluate(t, l, group([]transactions.Transaction{axfer(alice.addr, bob.addr, 10)}, alice))
	require.ErrorIs(t, err, ledgercore.ErrNotOptedIn)

	// opt in and receive atomically
	_, err = evaluate(t, l, group([]transactions.Transaction{axfer(bob.addr, bob.addr, 0), axfer(alice.addr, bob.addr, 10)}, bob, alice))
	require.NoError(t, err)
	require.EqualValues(t, 10, l.accounts[bob.addr].Assets[aid].Amount)
	require.EqualValues(t, 90, l.accounts[alice.addr].Assets[aid].Amount)

	freeze := transactions.Transaction{
		Type:   protocol.AssetFreezeTx,
		Header: header(alice.addr),
		AssetFreezeTxnFields: transactions.AssetFreezeTxnFields{
			FreezeAccount: bob.addr,
			FreezeAsset:   aid,
			AssetFrozen:   true,
		},
	}
	_, err = evaluate(t, l, group([]transactions.Transaction{freeze}, alice))
	require.NoError(t, err)

	_, err = evaluate(t, l, group([]transactions.Transaction{axfer(bob.addr, alice.addr, 1)}, bob))
	require.ErrorIs(t, err, ledgercore.ErrAssetFrozen)
}

func TestCowChildIsolation(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := makeEvalTestLedger()
	alice := newTestAccount(l, 1_000_000)
	l.accounts[alice.addr] = basics.AccountData{
		MicroAlgos: basics.MicroAlgos{Raw: 1_000_000},
		Assets:     map[basics.AssetIndex]basics.AssetHolding{7: {Amount: 3}},
	}

	base := makeRoundCowState(&roundCowBase{l: l}, testProto(), logging.TestingLog(t), 1)
	child := base.child(1)
	require.NoError(t, child.PutAssetHolding(alice.addr, 7, basics.AssetHolding{Amount: 4}))
	require.NoError(t, child.PutAssetHolding(alice.addr, 8, basics.AssetHolding{Amount: 1}))

	// neither the parent nor the ledger sees the child's writes
	h, ok, err := base.GetAssetHolding(alice.addr, 7)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 3, h.Amount)
	require.Len(t, l.accounts[alice.addr].Assets, 1)

	child.commitToParent()
	h, _, err = base.GetAssetHolding(alice.addr, 7)
	require.NoError(t, err)
	require.EqualValues(t, 4, h.Amount)
	require.EqualValues(t, 3, l.accounts[alice.addr].Assets[7].Amount)

	require.NoError(t, base.DeleteAssetHolding(alice.addr, 8))
	require.Error(t, base.DeleteAssetHolding(alice.addr, 8))
}

func TestCowCreatables(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := makeEvalTestLedger()
	alice := newTestAccount(l, 1_000_000)
	l.creators[5] = basics.CreatableLocator{Type: basics.AssetCreatable, Creator: alice.addr, Index: 5}

	base := makeRoundCowState(&roundCowBase{l: l}, testProto(), logging.TestingLog(t), 1)
	creator, ok, err := base.GetCreator(5, basics.AssetCreatable)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, alice.addr, creator)

	_, ok, err = base.GetCreator(5, basics.AppCreatable)
	require.NoError(t, err)
	require.False(t, ok)

	child := base.child(1)
	require.NoError(t, child.DeallocateAsset(alice.addr, 5, true))
	require.NoError(t, child.AllocateApp(alice.addr, 1001, true, basics.StateSchema{}))
	require.EqualValues(t, 1001, child.Counter())
	require.EqualValues(t, 1000, base.Counter())

	_, ok, _ = child.GetCreator(5, basics.AssetCreatable)
	require.False(t, ok)
	_, ok, _ = base.GetCreator(5, basics.AssetCreatable)
	require.True(t, ok)

	child.commitToParent()
	require.EqualValues(t, 1001, base.Counter())
	creator, ok, _ = base.GetCreator(1001, basics.AppCreatable)
	require.True(t, ok)
	require.Equal(t, alice.addr, creator)
}
