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
	"fmt"

	"github.com/algorand/avm-runtime/config"
	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/data/transactions/logic"
	"github.com/algorand/avm-runtime/ledger/apply"
	"github.com/algorand/avm-runtime/ledger/ledgercore"
)

// roundCowState is both the apply.Balances the appliers write through and
// the logic.LedgerForLogic that programs read and write through.
var _ apply.Balances = (*roundCowState)(nil)
var _ logic.LedgerForLogic = (*roundCowState)(nil)

func (cs *roundCowState) ConsensusParams() config.ConsensusParams {
	return cs.proto
}

func (cs *roundCowState) AccountData(addr basics.Address) (basics.AccountData, error) {
	return cs.Get(addr)
}

// Authorizer returns the address whose signature currently controls addr.
func (cs *roundCowState) Authorizer(addr basics.Address) (basics.Address, error) {
	acct, err := cs.lookup(addr)
	if err != nil {
		return basics.Address{}, err
	}
	if !acct.AuthAddr.IsZero() {
		return acct.AuthAddr, nil
	}
	return addr, nil
}

func (cs *roundCowState) LatestTimestamp() int64 {
	return cs.timestamp()
}

func (cs *roundCowState) AssetHolding(addr basics.Address, aidx basics.AssetIndex) (basics.AssetHolding, error) {
	holding, ok, err := cs.GetAssetHolding(addr, aidx)
	if err != nil {
		return basics.AssetHolding{}, err
	}
	if !ok {
		return basics.AssetHolding{}, &ledgercore.LedgerError{Kind: ledgercore.ErrNotOptedIn, Addr: addr, AssetID: aidx}
	}
	return holding, nil
}

func (cs *roundCowState) AssetParams(aidx basics.AssetIndex) (basics.AssetParams, basics.Address, error) {
	creator, ok, err := cs.getCreator(basics.CreatableIndex(aidx), basics.AssetCreatable)
	if err != nil {
		return basics.AssetParams{}, creator, err
	}
	if !ok {
		return basics.AssetParams{}, creator, ledgercore.AssetError(ledgercore.ErrAssetNotFound, aidx)
	}
	params, ok, err := cs.GetAssetParams(creator, aidx)
	if err != nil {
		return basics.AssetParams{}, creator, err
	}
	if !ok {
		return basics.AssetParams{}, creator, ledgercore.AssetError(ledgercore.ErrAssetNotFound, aidx)
	}
	return params, creator, nil
}

func (cs *roundCowState) AppParams(aidx basics.AppIndex) (basics.AppParams, basics.Address, error) {
	creator, ok, err := cs.getCreator(basics.CreatableIndex(aidx), basics.AppCreatable)
	if err != nil {
		return basics.AppParams{}, creator, err
	}
	if !ok {
		return basics.AppParams{}, creator, ledgercore.AppError(ledgercore.ErrAppNotFound, aidx)
	}
	params, ok, err := cs.GetAppParams(creator, aidx)
	if err != nil {
		return basics.AppParams{}, creator, err
	}
	if !ok {
		return basics.AppParams{}, creator, ledgercore.AppError(ledgercore.ErrAppNotFound, aidx)
	}
	return params, creator, nil
}

func (cs *roundCowState) OptedIn(addr basics.Address, appIdx basics.AppIndex) (bool, error) {
	return cs.HasAppLocalState(addr, appIdx)
}

// checkKeyValue enforces the size limits on a single key/value pair.
func (cs *roundCowState) checkKeyValue(key string, value basics.TealValue) error {
	if len(key) > cs.proto.MaxAppKeyLen {
		return ledgercore.MakeError(ledgercore.ErrSchemaViolation, "key too long: length was %d, maximum is %d", len(key), cs.proto.MaxAppKeyLen)
	}
	if value.Type == basics.TealBytesType {
		if len(value.Bytes) > cs.proto.MaxAppBytesValueLen {
			return ledgercore.MakeError(ledgercore.ErrSchemaViolation, "value too long for key 0x%x: length was %d", key, len(value.Bytes))
		}
		if sum := len(key) + len(value.Bytes); sum > cs.proto.MaxAppSumKeyValueLens {
			return ledgercore.MakeError(ledgercore.ErrSchemaViolation, "key/value total too long for key 0x%x: sum was %d", key, sum)
		}
	}
	return nil
}

// checkSchema reports whether kv still fits in schema.
func checkSchema(kv basics.TealKeyValue, schema basics.StateSchema, aidx basics.AppIndex) error {
	used, err := kv.ToStateSchema()
	if err != nil {
		return err
	}
	if !schema.Allows(used) {
		return &ledgercore.LedgerError{
			Kind:  ledgercore.ErrSchemaViolation,
			AppID: aidx,
			Err:   fmt.Errorf("store integer count %d exceeds schema integer count %d or bytes count %d exceeds %d", used.NumUint, schema.NumUint, used.NumByteSlice, schema.NumByteSlice),
		}
	}
	return nil
}

func (cs *roundCowState) localState(addr basics.Address, appIdx basics.AppIndex) (basics.AccountData, basics.AppLocalState, error) {
	acct, err := cs.lookup(addr)
	if err != nil {
		return basics.AccountData{}, basics.AppLocalState{}, err
	}
	ls, ok := acct.AppLocalStates[appIdx]
	if !ok {
		return basics.AccountData{}, basics.AppLocalState{}, &ledgercore.LedgerError{Kind: ledgercore.ErrNotOptedIn, Addr: addr, AppID: appIdx}
	}
	return acct, ls, nil
}

func (cs *roundCowState) GetLocal(addr basics.Address, appIdx basics.AppIndex, key string, accountIdx uint64) (basics.TealValue, bool, error) {
	_, ls, err := cs.localState(addr, appIdx)
	if err != nil {
		return basics.TealValue{}, false, err
	}
	value, ok := ls.KeyValue[key]
	return value, ok, nil
}

func (cs *roundCowState) SetLocal(addr basics.Address, appIdx basics.AppIndex, key string, value basics.TealValue, accountIdx uint64) error {
	if err := cs.checkKeyValue(key, value); err != nil {
		return err
	}
	acct, ls, err := cs.localState(addr, appIdx)
	if err != nil {
		return err
	}
	ls.KeyValue = mapWith(ls.KeyValue, key, value)
	if err := checkSchema(ls.KeyValue, ls.Schema, appIdx); err != nil {
		return err
	}
	acct.AppLocalStates = mapWith(acct.AppLocalStates, appIdx, ls)
	cs.put(addr, acct, nil, nil)
	return nil
}

func (cs *roundCowState) DelLocal(addr basics.Address, appIdx basics.AppIndex, key string, accountIdx uint64) error {
	acct, ls, err := cs.localState(addr, appIdx)
	if err != nil {
		return err
	}
	if _, ok := ls.KeyValue[key]; !ok {
		return nil
	}
	ls.KeyValue = mapWithout(ls.KeyValue, key)
	acct.AppLocalStates = mapWith(acct.AppLocalStates, appIdx, ls)
	cs.put(addr, acct, nil, nil)
	return nil
}

func (cs *roundCowState) globalState(appIdx basics.AppIndex) (basics.Address, basics.AccountData, basics.AppParams, error) {
	creator, ok, err := cs.getCreator(basics.CreatableIndex(appIdx), basics.AppCreatable)
	if err != nil {
		return creator, basics.AccountData{}, basics.AppParams{}, err
	}
	if !ok {
		return creator, basics.AccountData{}, basics.AppParams{}, ledgercore.AppError(ledgercore.ErrAppNotFound, appIdx)
	}
	acct, err := cs.lookup(creator)
	if err != nil {
		return creator, basics.AccountData{}, basics.AppParams{}, err
	}
	params, ok := acct.AppParams[appIdx]
	if !ok {
		return creator, basics.AccountData{}, basics.AppParams{}, ledgercore.AppError(ledgercore.ErrAppNotFound, appIdx)
	}
	return creator, acct, params, nil
}

func (cs *roundCowState) GetGlobal(appIdx basics.AppIndex, key string) (basics.TealValue, bool, error) {
	_, _, params, err := cs.globalState(appIdx)
	if err != nil {
		return basics.TealValue{}, false, err
	}
	value, ok := params.GlobalState[key]
	return value, ok, nil
}

func (cs *roundCowState) SetGlobal(appIdx basics.AppIndex, key string, value basics.TealValue) error {
	if err := cs.checkKeyValue(key, value); err != nil {
		return err
	}
	creator, acct, params, err := cs.globalState(appIdx)
	if err != nil {
		return err
	}
	params.GlobalState = mapWith(params.GlobalState, key, value)
	if err := checkSchema(params.GlobalState, params.GlobalStateSchema, appIdx); err != nil {
		return err
	}
	acct.AppParams = mapWith(acct.AppParams, appIdx, params)
	cs.put(creator, acct, nil, nil)
	return nil
}

func (cs *roundCowState) DelGlobal(appIdx basics.AppIndex, key string) error {
	creator, acct, params, err := cs.globalState(appIdx)
	if err != nil {
		return err
	}
	if _, ok := params.GlobalState[key]; !ok {
		return nil
	}
	params.GlobalState = mapWithout(params.GlobalState, key)
	acct.AppParams = mapWith(acct.AppParams, appIdx, params)
	cs.put(creator, acct, nil, nil)
	return nil
}

// StatefulEval runs program against a child of cs. The child is merged back
// only if the program accepts, so a rejecting or failing program leaves no
// trace besides its cost.
func (cs *roundCowState) StatefulEval(gi int, params *logic.EvalParams, aidx basics.AppIndex, program []byte) (pass bool, evalDelta transactions.EvalDelta, err error) {
	// Make a child cow to eval our program in
	calf := cs.child(1)
	defer func(saved logic.LedgerForLogic) {
		params.Ledger = saved
	}(params.Ledger)
	params.Ledger = calf

	// Eval the program
	pass, cx, err := logic.EvalContract(program, gi, aidx, params)
	if cx != nil {
		cs.stats.cost += cx.Cost()
	}
	if err != nil {
		return false, transactions.EvalDelta{}, ledgercore.LogicEvalError{GroupIndex: gi, Err: err}
	}

	// If program passed, build our eval delta, and commit to state changes
	if pass {
		evalDelta = cx.Txn.EvalDelta
		calf.commitToParent()
	}

	return pass, evalDelta, nil
}

// Perform applies the gi'th inner transaction of ep. The caller has
// already authorized it and checked it is well formed.
func (cs *roundCowState) Perform(gi int, ep *logic.EvalParams) error {
	txn := &ep.TxnGroup[gi]

	if err := cs.payFee(txn.Txn.Sender, txn.Txn.Fee); err != nil {
		return err
	}

	err := applyTransaction(txn.Txn, cs, ep, gi, &txn.ApplyData)
	if err != nil {
		return err
	}

	if err := apply.Rekey(cs, &txn.Txn); err != nil {
		return err
	}

	cs.stats.inners++
	return nil
}

// payFee burns fee from addr.
func (cs *roundCowState) payFee(addr basics.Address, fee basics.MicroAlgos) error {
	if fee.IsZero() {
		return nil
	}
	acct, err := cs.lookup(addr)
	if err != nil {
		return err
	}
	remaining, overflowed := basics.OSubA(acct.MicroAlgos, fee)
	if overflowed {
		return &ledgercore.LedgerError{
			Kind: ledgercore.ErrInsufficientBalance,
			Addr: addr,
			Err:  fmt.Errorf("cannot pay fee %d from balance %d", fee.Raw, acct.MicroAlgos.Raw),
		}
	}
	acct.MicroAlgos = remaining
	cs.put(addr, acct, nil, nil)
	return nil
}
