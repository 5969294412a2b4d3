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

	"github.com/algorand/avm-runtime/data/basics"
)

var errNoLedger = fmt.Errorf("%w: ledger not available", ErrModeViolation)

// accountReference resolves an account argument, either an index into the
// Accounts array or an address, into an address and the index that
// EvalDelta.LocalDeltas would use for it.
func (cx *EvalContext) accountReference(account stackValue) (basics.Address, uint64, error) {
	if account.argType() == StackUint64 {
		addr, err := cx.Txn.Txn.AddressByIndex(account.Uint, cx.Txn.Txn.Sender)
		if err != nil {
			return addr, 0, fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
		return addr, account.Uint, nil
	}
	addr, err := account.address()
	if err != nil {
		return addr, 0, err
	}
	idx, err := cx.Txn.Txn.IndexByAddress(addr, cx.Txn.Txn.Sender)
	if err == nil {
		return addr, idx, nil
	}

	invalidIndex := uint64(len(cx.Txn.Txn.Accounts) + 1)
	// Allow an address for an app that was created in group
	if cx.version >= createdResourcesVersion {
		for _, appID := range cx.created.apps {
			createdAddress := cx.getApplicationAddress(appID)
			if addr == createdAddress {
				return addr, invalidIndex, nil
			}
		}
	}

	// this app's address is also allowed
	appAddr := cx.getApplicationAddress(cx.appID)
	if appAddr == addr {
		return addr, invalidIndex, nil
	}

	// as are the addresses of apps in the foreign apps array
	if cx.version >= appAddressAvailableVersion {
		for _, appID := range cx.Txn.Txn.ForeignApps {
			if addr == cx.getApplicationAddress(appID) {
				return addr, invalidIndex, nil
			}
		}
	}

	return addr, 0, fmt.Errorf("%w: invalid Account reference %s", ErrInvalidReference, addr)
}

func (cx *EvalContext) mutableAccountReference(account stackValue) (basics.Address, uint64, error) {
	addr, accountIdx, err := cx.accountReference(account)
	if err == nil && accountIdx > uint64(len(cx.Txn.Txn.Accounts)) {
		// There was no error, but accountReference has signaled that accountIdx
		// is not for mutable ops (because it can't encode it in EvalDelta)
		err = fmt.Errorf("%w: invalid Account reference for mutation %s", ErrInvalidReference, addr)
	}
	return addr, accountIdx, err
}

func opBalance(cx *EvalContext) error {
	if cx.Ledger == nil {
		return errNoLedger
	}
	last := len(cx.stack) - 1 // account (index or actual address)

	addr, _, err := cx.accountReference(cx.stack[last])
	if err != nil {
		return err
	}

	account, err := cx.Ledger.AccountData(addr)
	if err != nil {
		return err
	}

	cx.stack[last].Bytes = nil
	cx.stack[last].Uint = account.MicroAlgos.Raw
	return nil
}

func opMinBalance(cx *EvalContext) error {
	if cx.Ledger == nil {
		return errNoLedger
	}
	last := len(cx.stack) - 1 // account (index or actual address)

	addr, _, err := cx.accountReference(cx.stack[last])
	if err != nil {
		return err
	}

	account, err := cx.Ledger.AccountData(addr)
	if err != nil {
		return err
	}

	cx.stack[last].Bytes = nil
	cx.stack[last].Uint = account.MinBalance(cx.Proto.BalanceRequirements()).Raw
	return nil
}

func opAppOptedIn(cx *EvalContext) error {
	last := len(cx.stack) - 1 // app
	prev := last - 1          // account

	if cx.Ledger == nil {
		return errNoLedger
	}

	addr, _, err := cx.accountReference(cx.stack[prev])
	if err != nil {
		return err
	}

	app, err := appReference(cx, cx.stack[last].Uint, false)
	if err != nil {
		return err
	}

	optedIn, err := cx.Ledger.OptedIn(addr, app)
	if err != nil {
		return err
	}

	cx.stack[prev].Uint = boolToUint(optedIn)
	cx.stack[prev].Bytes = nil

	cx.stack = cx.stack[:last]
	return nil
}

func opAppLocalGet(cx *EvalContext) error {
	last := len(cx.stack) - 1 // state key
	prev := last - 1          // account

	key := cx.stack[last].Bytes

	result, _, err := opAppLocalGetImpl(cx, 0, key, cx.stack[prev])
	if err != nil {
		return err
	}

	cx.stack[prev] = result
	cx.stack = cx.stack[:last]
	return nil
}

func opAppLocalGetEx(cx *EvalContext) error {
	last := len(cx.stack) - 1 // state key
	prev := last - 1          // app id
	pprev := prev - 1         // account

	key := cx.stack[last].Bytes
	appID := cx.stack[prev].Uint

	result, ok, err := opAppLocalGetImpl(cx, appID, key, cx.stack[pprev])
	if err != nil {
		return err
	}

	var isOk stackValue
	if ok {
		isOk.Uint = 1
	}

	cx.stack[pprev] = result
	cx.stack[prev] = isOk
	cx.stack = cx.stack[:last]
	return nil
}

func opAppLocalGetImpl(cx *EvalContext, appID uint64, key []byte, acct stackValue) (result stackValue, ok bool, err error) {
	if cx.Ledger == nil {
		err = errNoLedger
		return
	}

	addr, accountIdx, err := cx.accountReference(acct)
	if err != nil {
		return
	}

	app, err := appReference(cx, appID, false)
	if err != nil {
		return
	}

	tv, ok, err := cx.Ledger.GetLocal(addr, app, string(key), accountIdx)
	if err != nil {
		return
	}

	if ok {
		result, err = stackValueFromTealValue(tv)
	}
	return
}

func opAppGetGlobalStateImpl(cx *EvalContext, appIndex uint64, key []byte) (result stackValue, ok bool, err error) {
	if cx.Ledger == nil {
		err = errNoLedger
		return
	}

	app, err := appReference(cx, appIndex, true)
	if err != nil {
		return
	}
	tv, ok, err := cx.Ledger.GetGlobal(app, string(key))
	if err != nil {
		return
	}

	if ok {
		result, err = stackValueFromTealValue(tv)
	}
	return
}

func opAppGlobalGet(cx *EvalContext) error {
	last := len(cx.stack) - 1 // state key

	key := cx.stack[last].Bytes

	result, _, err := opAppGetGlobalStateImpl(cx, 0, key)
	if err != nil {
		return err
	}

	cx.stack[last] = result
	return nil
}

func opAppGlobalGetEx(cx *EvalContext) error {
	last := len(cx.stack) - 1 // state key
	prev := last - 1          // app

	key := cx.stack[last].Bytes

	result, ok, err := opAppGetGlobalStateImpl(cx, cx.stack[prev].Uint, key)
	if err != nil {
		return err
	}

	var isOk stackValue
	if ok {
		isOk.Uint = 1
	}

	cx.stack[prev] = result
	cx.stack[last] = isOk
	return nil
}

func opAppLocalPut(cx *EvalContext) error {
	last := len(cx.stack) - 1 // value
	prev := last - 1          // state key
	pprev := prev - 1         // account

	sv := cx.stack[last]
	key := string(cx.stack[prev].Bytes)

	if cx.Ledger == nil {
		return errNoLedger
	}

	addr, accountIdx, err := cx.mutableAccountReference(cx.stack[pprev])
	if err != nil {
		return err
	}

	// if writing the same value, don't record in EvalDelta
	etv, ok, err := cx.Ledger.GetLocal(addr, cx.appID, key, accountIdx)
	if err != nil {
		return err
	}

	tv := sv.toTealValue()
	if !ok || tv != etv {
		if _, ok := cx.Txn.EvalDelta.LocalDeltas[accountIdx]; !ok {
			cx.Txn.EvalDelta.LocalDeltas[accountIdx] = basics.StateDelta{}
		}
		cx.Txn.EvalDelta.LocalDeltas[accountIdx][key] = tv.ToValueDelta()
	}
	err = cx.Ledger.SetLocal(addr, cx.appID, key, tv, accountIdx)
	if err != nil {
		return err
	}

	cx.stack = cx.stack[:pprev]
	return nil
}

func opAppGlobalPut(cx *EvalContext) error {
	last := len(cx.stack) - 1 // value
	prev := last - 1          // state key

	sv := cx.stack[last]
	key := string(cx.stack[prev].Bytes)

	if cx.Ledger == nil {
		return errNoLedger
	}

	// if writing the same value, don't record in EvalDelta
	etv, ok, err := cx.Ledger.GetGlobal(cx.appID, key)
	if err != nil {
		return err
	}
	tv := sv.toTealValue()
	if !ok || tv != etv {
		cx.Txn.EvalDelta.GlobalDelta[key] = tv.ToValueDelta()
	}

	err = cx.Ledger.SetGlobal(cx.appID, key, tv)
	if err != nil {
		return err
	}

	cx.stack = cx.stack[:prev]
	return nil
}

func opAppLocalDel(cx *EvalContext) error {
	last := len(cx.stack) - 1 // key
	prev := last - 1          // account

	key := string(cx.stack[last].Bytes)

	if cx.Ledger == nil {
		return errNoLedger
	}

	addr, accountIdx, err := cx.mutableAccountReference(cx.stack[prev])
	if err != nil {
		return err
	}

	// if deleting a non-existent value, don't record in EvalDelta
	_, ok, err := cx.Ledger.GetLocal(addr, cx.appID, key, accountIdx)
	if err != nil {
		return err
	}
	if ok {
		if _, ok := cx.Txn.EvalDelta.LocalDeltas[accountIdx]; !ok {
			cx.Txn.EvalDelta.LocalDeltas[accountIdx] = basics.StateDelta{}
		}
		cx.Txn.EvalDelta.LocalDeltas[accountIdx][key] = basics.ValueDelta{
			Action: basics.DeleteAction,
		}
	}

	err = cx.Ledger.DelLocal(addr, cx.appID, key, accountIdx)
	if err != nil {
		return err
	}

	cx.stack = cx.stack[:prev]
	return nil
}

func opAppGlobalDel(cx *EvalContext) error {
	last := len(cx.stack) - 1 // key

	key := string(cx.stack[last].Bytes)

	if cx.Ledger == nil {
		return errNoLedger
	}

	// if deleting a non-existent value, don't record in EvalDelta
	_, ok, err := cx.Ledger.GetGlobal(cx.appID, key)
	if err != nil {
		return err
	}
	if ok {
		cx.Txn.EvalDelta.GlobalDelta[key] = basics.ValueDelta{
			Action: basics.DeleteAction,
		}
	}

	err = cx.Ledger.DelGlobal(cx.appID, key)
	if err != nil {
		return err
	}
	cx.stack = cx.stack[:last]
	return nil
}

// We have a difficult naming problem here. In some opcodes, TEAL
// allows (and used to require) ASAs and Apps to to be referenced by
// their "index" in an app call txn's foreign-apps or foreign-assets
// arrays.  That was a small integer, no more than 2 or so, and was
// often called an "index".  But it was not a basics.AssetIndex or
// basics.AppIndex.

func appReference(cx *EvalContext, ref uint64, foreign bool) (basics.AppIndex, error) {
	if cx.version >= directRefEnabledVersion {
		if ref == 0 || ref == uint64(cx.appID) {
			return cx.appID, nil
		}
		for _, appID := range cx.Txn.Txn.ForeignApps {
			if appID == basics.AppIndex(ref) {
				return appID, nil
			}
		}
		// or was created in group
		if cx.version >= createdResourcesVersion {
			for _, appID := range cx.created.apps {
				if appID == basics.AppIndex(ref) {
					return appID, nil
				}
			}
		}
		// Allow use of indexes, but this comes last so that clear advice can be
		// given to anyone who cares about semantics in the first few rounds of
		// a new network - don't use indexes for references, use the App ID
		if ref <= uint64(len(cx.Txn.Txn.ForeignApps)) {
			return basics.AppIndex(cx.Txn.Txn.ForeignApps[ref-1]), nil
		}
	} else {
		// Old rules
		if ref == 0 { // Even back when expected to be a real ID, ref = 0 was current app
			return cx.appID, nil
		}
		if foreign {
			// In old versions, a foreign reference must be an index in ForeignApps or 0
			if ref <= uint64(len(cx.Txn.Txn.ForeignApps)) {
				return basics.AppIndex(cx.Txn.Txn.ForeignApps[ref-1]), nil
			}
		} else {
			// Otherwise it's direct
			return basics.AppIndex(ref), nil
		}
	}
	return basics.AppIndex(0), fmt.Errorf("%w: invalid App reference %d", ErrInvalidReference, ref)
}

func asaReference(cx *EvalContext, ref uint64, foreign bool) (basics.AssetIndex, error) {
	if cx.version >= directRefEnabledVersion {
		for _, assetID := range cx.Txn.Txn.ForeignAssets {
			if assetID == basics.AssetIndex(ref) {
				return assetID, nil
			}
		}
		// or was created in group
		if cx.version >= createdResourcesVersion {
			for _, assetID := range cx.created.asas {
				if assetID == basics.AssetIndex(ref) {
					return assetID, nil
				}
			}
		}
		// Allow use of indexes, but this comes last so that clear advice can be
		// given to anyone who cares about semantics in the first few rounds of
		// a new network - don't use indexes for references, use the asa ID.
		if ref < uint64(len(cx.Txn.Txn.ForeignAssets)) {
			return basics.AssetIndex(cx.Txn.Txn.ForeignAssets[ref]), nil
		}
	} else {
		// Old rules
		if foreign {
			// In old versions, a foreign reference must be an index in ForeignAssets
			if ref < uint64(len(cx.Txn.Txn.ForeignAssets)) {
				return basics.AssetIndex(cx.Txn.Txn.ForeignAssets[ref]), nil
			}
		} else {
			// Otherwise it's direct
			return basics.AssetIndex(ref), nil
		}
	}
	return basics.AssetIndex(0), fmt.Errorf("%w: invalid Asset reference %d", ErrInvalidReference, ref)
}

func (cx *EvalContext) assetHoldingToValue(holding *basics.AssetHolding, fs assetHoldingFieldSpec) (sv stackValue, err error) {
	switch fs.field {
	case AssetBalance:
		sv.Uint = holding.Amount
	case AssetFrozen:
		sv.Uint = boolToUint(holding.Frozen)
	default:
		err = fmt.Errorf("%w: invalid asset_holding_get field %d", ErrBadImmediate, fs.field)
		return
	}

	if !fs.ftype.matches(sv) {
		err = fmt.Errorf("%s expected field type is %s but got %s", fs.field, fs.ftype, sv.argType())
	}
	return
}

func (cx *EvalContext) assetParamsToValue(params *basics.AssetParams, creator basics.Address, fs assetParamsFieldSpec) (sv stackValue, err error) {
	switch fs.field {
	case AssetTotal:
		sv.Uint = params.Total
	case AssetDecimals:
		sv.Uint = uint64(params.Decimals)
	case AssetDefaultFrozen:
		sv.Uint = boolToUint(params.DefaultFrozen)
	case AssetUnitName:
		sv.Bytes = nilToEmpty([]byte(params.UnitName))
	case AssetName:
		sv.Bytes = nilToEmpty([]byte(params.AssetName))
	case AssetURL:
		sv.Bytes = nilToEmpty([]byte(params.URL))
	case AssetMetadataHash:
		sv.Bytes = params.MetadataHash[:]
	case AssetManager:
		sv.Bytes = params.Manager[:]
	case AssetReserve:
		sv.Bytes = params.Reserve[:]
	case AssetFreeze:
		sv.Bytes = params.Freeze[:]
	case AssetClawback:
		sv.Bytes = params.Clawback[:]
	case AssetCreator:
		sv.Bytes = creator[:]
	default:
		err = fmt.Errorf("%w: invalid asset_params_get field %d", ErrBadImmediate, fs.field)
		return
	}

	if !fs.ftype.matches(sv) {
		err = fmt.Errorf("%s expected field type is %s but got %s", fs.field, fs.ftype, sv.argType())
	}
	return
}

func (cx *EvalContext) appParamsToValue(params *basics.AppParams, fs appParamsFieldSpec) (sv stackValue, err error) {
	switch fs.field {
	case AppApprovalProgram:
		sv.Bytes = nilToEmpty(params.ApprovalProgram)
	case AppClearStateProgram:
		sv.Bytes = nilToEmpty(params.ClearStateProgram)
	case AppGlobalNumUint:
		sv.Uint = params.GlobalStateSchema.NumUint
	case AppGlobalNumByteSlice:
		sv.Uint = params.GlobalStateSchema.NumByteSlice
	case AppLocalNumUint:
		sv.Uint = params.LocalStateSchema.NumUint
	case AppLocalNumByteSlice:
		sv.Uint = params.LocalStateSchema.NumByteSlice
	case AppExtraProgramPages:
		sv.Uint = uint64(params.ExtraProgramPages)
	default:
		// The pseudo fields AppCreator and AppAddress are handled before this method
		err = fmt.Errorf("%w: invalid app_params_get field %d", ErrBadImmediate, fs.field)
		return
	}

	if !fs.ftype.matches(sv) {
		err = fmt.Errorf("%s expected field type is %s but got %s", fs.field, fs.ftype, sv.argType())
	}
	return
}

func opAssetHoldingGet(cx *EvalContext) error {
	last := len(cx.stack) - 1 // asset
	prev := last - 1          // account

	if cx.Ledger == nil {
		return errNoLedger
	}

	holdingField := AssetHoldingField(cx.instr.Immediates[0])
	if int(holdingField) >= len(assetHoldingFieldSpecs) {
		return fmt.Errorf("%w: invalid asset_holding_get field %d", ErrBadImmediate, holdingField)
	}
	fs := assetHoldingFieldSpecs[holdingField]
	if fs.version > cx.version {
		return fmt.Errorf("%w: asset_holding_get field %s", ErrVersionViolation, holdingField)
	}

	addr, _, err := cx.accountReference(cx.stack[prev])
	if err != nil {
		return err
	}

	asset, err := asaReference(cx, cx.stack[last].Uint, false)
	if err != nil {
		return err
	}

	var exist uint64 = 0
	var value stackValue
	if holding, err := cx.Ledger.AssetHolding(addr, asset); err == nil {
		// the holding exist, read the value
		exist = 1
		value, err = cx.assetHoldingToValue(&holding, fs)
		if err != nil {
			return err
		}
	}

	cx.stack[prev] = value
	cx.stack[last].Uint = exist
	return nil
}

func opAssetParamsGet(cx *EvalContext) error {
	last := len(cx.stack) - 1 // asset

	if cx.Ledger == nil {
		return errNoLedger
	}

	paramField := AssetParamsField(cx.instr.Immediates[0])
	if int(paramField) >= len(assetParamsFieldSpecs) {
		return fmt.Errorf("%w: invalid asset_params_get field %d", ErrBadImmediate, paramField)
	}
	fs := assetParamsFieldSpecs[paramField]
	if fs.version > cx.version {
		return fmt.Errorf("%w: asset_params_get field %s", ErrVersionViolation, paramField)
	}

	asset, err := asaReference(cx, cx.stack[last].Uint, true)
	if err != nil {
		return err
	}

	var exist uint64 = 0
	var value stackValue
	if params, creator, err := cx.Ledger.AssetParams(asset); err == nil {
		// params exist, read the value
		exist = 1
		value, err = cx.assetParamsToValue(&params, creator, fs)
		if err != nil {
			return err
		}
	}

	cx.stack[last] = value
	return cx.push(stackValue{Uint: exist})
}

func opAppParamsGet(cx *EvalContext) error {
	last := len(cx.stack) - 1 // app

	if cx.Ledger == nil {
		return errNoLedger
	}

	paramField := AppParamsField(cx.instr.Immediates[0])
	if int(paramField) >= len(appParamsFieldSpecs) {
		return fmt.Errorf("%w: invalid app_params_get field %d", ErrBadImmediate, paramField)
	}
	fs := appParamsFieldSpecs[paramField]
	if fs.version > cx.version {
		return fmt.Errorf("%w: app_params_get field %s", ErrVersionViolation, paramField)
	}

	app, err := appReference(cx, cx.stack[last].Uint, true)
	if err != nil {
		return err
	}

	var exist uint64 = 0
	var value stackValue
	if params, creator, err := cx.Ledger.AppParams(app); err == nil {
		// params exist, read the value
		exist = 1

		switch fs.field {
		case AppCreator:
			value.Bytes = creator[:]
		case AppAddress:
			address := cx.getApplicationAddress(app)
			value.Bytes = address[:]
		default:
			value, err = cx.appParamsToValue(&params, fs)
		}
		if err != nil {
			return err
		}
	}

	cx.stack[last] = value
	return cx.push(stackValue{Uint: exist})
}

func opAcctParamsGet(cx *EvalContext) error {
	last := len(cx.stack) - 1 // acct

	if cx.Ledger == nil {
		return errNoLedger
	}

	addr, _, err := cx.accountReference(cx.stack[last])
	if err != nil {
		return err
	}

	paramField := AcctParamsField(cx.instr.Immediates[0])
	if int(paramField) >= len(acctParamsFieldSpecs) {
		return fmt.Errorf("%w: invalid acct_params_get field %d", ErrBadImmediate, paramField)
	}
	fs := acctParamsFieldSpecs[paramField]
	if fs.version > cx.version {
		return fmt.Errorf("%w: acct_params_get field %s", ErrVersionViolation, paramField)
	}

	account, err := cx.Ledger.AccountData(addr)
	if err != nil {
		return err
	}

	exist := boolToUint(account.MicroAlgos.Raw > 0)

	var value stackValue

	switch fs.field {
	case AcctBalance:
		value.Uint = account.MicroAlgos.Raw
	case AcctMinBalance:
		value.Uint = account.MinBalance(cx.Proto.BalanceRequirements()).Raw
	case AcctAuthAddr:
		value.Bytes = account.AuthAddr[:]
	}
	cx.stack[last] = value
	return cx.push(stackValue{Uint: exist})
}

func opLog(cx *EvalContext) error {
	last := len(cx.stack) - 1

	if len(cx.Txn.EvalDelta.Logs) >= MaxLogCalls {
		return fmt.Errorf("%w: too many log calls in program. up to %d is allowed", ErrLogLimit, MaxLogCalls)
	}
	log := cx.stack[last]
	cx.logSize += len(log.Bytes)
	if cx.logSize > MaxLogSize {
		return fmt.Errorf("%w: program logs too large. %d bytes >  %d bytes limit", ErrLogLimit, cx.logSize, MaxLogSize)
	}
	cx.Txn.EvalDelta.Logs = append(cx.Txn.EvalDelta.Logs, string(log.Bytes))
	cx.stack = cx.stack[:last]
	return nil
}
