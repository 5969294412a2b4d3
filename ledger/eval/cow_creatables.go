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

	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/ledger/ledgercore"
)

// These functions ensure roundCowState satisfies the methods for
// accessing asset and app data in the apply.Balances interface.
//
// Accounts are stored whole, so every put replaces the map it touches
// with a fresh copy. Maps reachable from a parent cow are never written.

func mapWith[M ~map[K]V, K comparable, V any](m M, k K, v V) M {
	res := make(M, len(m)+1)
	for key, val := range m {
		res[key] = val
	}
	res[k] = v
	return res
}

func mapWithout[M ~map[K]V, K comparable, V any](m M, k K) M {
	if len(m) <= 1 {
		if _, ok := m[k]; ok || len(m) == 0 {
			return nil
		}
	}
	res := make(M, len(m))
	for key, val := range m {
		if key != k {
			res[key] = val
		}
	}
	return res
}

func (cs *roundCowState) Get(addr basics.Address) (basics.AccountData, error) {
	acct, err := cs.lookup(addr)
	if err != nil {
		return basics.AccountData{}, err
	}
	return acct.Clone(), nil
}

func (cs *roundCowState) Put(addr basics.Address, acct basics.AccountData) error {
	cs.put(addr, acct, nil, nil)
	return nil
}

// CloseAccount leaves a zero record behind, which the ledger drops on commit.
func (cs *roundCowState) CloseAccount(addr basics.Address) error {
	cs.put(addr, basics.AccountData{}, nil, nil)
	return nil
}

func (cs *roundCowState) Move(from basics.Address, to basics.Address, amt basics.MicroAlgos) error {
	src, err := cs.lookup(from)
	if err != nil {
		return err
	}
	newFromAmount, overflowed := basics.OSubA(src.MicroAlgos, amt)
	if overflowed {
		return ledgercore.MakeError(ledgercore.ErrInsufficientBalance,
			"overspend (account %v, data %+v, tried to spend %v)", from, src, amt)
	}
	src.MicroAlgos = newFromAmount
	cs.put(from, src, nil, nil)

	dst, err := cs.lookup(to)
	if err != nil {
		return err
	}
	newToAmount, overflowed := basics.OAddA(dst.MicroAlgos, amt)
	if overflowed {
		return fmt.Errorf("balance overflow (account %v, data %+v, was going to receive %v)", to, dst, amt)
	}
	dst.MicroAlgos = newToAmount
	cs.put(to, dst, nil, nil)

	return nil
}

func (cs *roundCowState) GetCreator(cidx basics.CreatableIndex, ctype basics.CreatableType) (basics.Address, bool, error) {
	return cs.getCreator(cidx, ctype)
}

func (cs *roundCowState) Counter() uint64 {
	return cs.counter()
}

func (cs *roundCowState) Round() basics.Round {
	return cs.round()
}

func (cs *roundCowState) GetAppParams(addr basics.Address, aidx basics.AppIndex) (ret basics.AppParams, ok bool, err error) {
	acct, err := cs.lookup(addr)
	if err != nil {
		return
	}
	ret, ok = acct.AppParams[aidx]
	if ok {
		ret = ret.Clone()
	}
	return
}

func (cs *roundCowState) GetAppLocalState(addr basics.Address, aidx basics.AppIndex) (ret basics.AppLocalState, ok bool, err error) {
	acct, err := cs.lookup(addr)
	if err != nil {
		return
	}
	ret, ok = acct.AppLocalStates[aidx]
	if ok {
		ret = ret.Clone()
	}
	return
}

func (cs *roundCowState) GetAssetHolding(addr basics.Address, aidx basics.AssetIndex) (ret basics.AssetHolding, ok bool, err error) {
	acct, err := cs.lookup(addr)
	if err != nil {
		return
	}
	ret, ok = acct.Assets[aidx]
	return
}

func (cs *roundCowState) GetAssetParams(addr basics.Address, aidx basics.AssetIndex) (ret basics.AssetParams, ok bool, err error) {
	acct, err := cs.lookup(addr)
	if err != nil {
		return
	}
	ret, ok = acct.AssetParams[aidx]
	return
}

func (cs *roundCowState) PutAppParams(addr basics.Address, aidx basics.AppIndex, params basics.AppParams) error {
	acct, err := cs.lookup(addr)
	if err != nil {
		return err
	}
	acct.AppParams = mapWith(acct.AppParams, aidx, params)
	cs.put(addr, acct, nil, nil)
	return nil
}

func (cs *roundCowState) PutAppLocalState(addr basics.Address, aidx basics.AppIndex, state basics.AppLocalState) error {
	acct, err := cs.lookup(addr)
	if err != nil {
		return err
	}
	acct.AppLocalStates = mapWith(acct.AppLocalStates, aidx, state)
	cs.put(addr, acct, nil, nil)
	return nil
}

func (cs *roundCowState) PutAssetHolding(addr basics.Address, aidx basics.AssetIndex, data basics.AssetHolding) error {
	acct, err := cs.lookup(addr)
	if err != nil {
		return err
	}
	acct.Assets = mapWith(acct.Assets, aidx, data)
	cs.put(addr, acct, nil, nil)
	return nil
}

func (cs *roundCowState) PutAssetParams(addr basics.Address, aidx basics.AssetIndex, data basics.AssetParams) error {
	acct, err := cs.lookup(addr)
	if err != nil {
		return err
	}
	acct.AssetParams = mapWith(acct.AssetParams, aidx, data)
	cs.put(addr, acct, nil, nil)
	return nil
}

func (cs *roundCowState) DeleteAppParams(addr basics.Address, aidx basics.AppIndex) error {
	acct, err := cs.lookup(addr)
	if err != nil {
		return err
	}
	if _, ok := acct.AppParams[aidx]; !ok {
		return fmt.Errorf("DeleteAppParams: %s has no params for %d", addr.String(), aidx)
	}
	acct.AppParams = mapWithout(acct.AppParams, aidx)
	cs.put(addr, acct, nil, nil)
	return nil
}

func (cs *roundCowState) DeleteAppLocalState(addr basics.Address, aidx basics.AppIndex) error {
	acct, err := cs.lookup(addr)
	if err != nil {
		return err
	}
	if _, ok := acct.AppLocalStates[aidx]; !ok {
		return fmt.Errorf("DeleteAppLocalState: %s has no local state for %d", addr.String(), aidx)
	}
	acct.AppLocalStates = mapWithout(acct.AppLocalStates, aidx)
	cs.put(addr, acct, nil, nil)
	return nil
}

func (cs *roundCowState) DeleteAssetHolding(addr basics.Address, aidx basics.AssetIndex) error {
	acct, err := cs.lookup(addr)
	if err != nil {
		return err
	}
	if _, ok := acct.Assets[aidx]; !ok {
		return fmt.Errorf("DeleteAssetHolding: %s has no holding of %d", addr, aidx)
	}
	acct.Assets = mapWithout(acct.Assets, aidx)
	cs.put(addr, acct, nil, nil)
	return nil
}

func (cs *roundCowState) DeleteAssetParams(addr basics.Address, aidx basics.AssetIndex) error {
	acct, err := cs.lookup(addr)
	if err != nil {
		return err
	}
	if _, ok := acct.AssetParams[aidx]; !ok {
		return fmt.Errorf("DeleteAssetParams: %s has no params for %d", addr.String(), aidx)
	}
	acct.AssetParams = mapWithout(acct.AssetParams, aidx)
	cs.put(addr, acct, nil, nil)
	return nil
}

func (cs *roundCowState) HasAppLocalState(addr basics.Address, aidx basics.AppIndex) (ok bool, err error) {
	_, ok, err = cs.GetAppLocalState(addr, aidx)
	return
}

func (cs *roundCowState) HasAssetParams(addr basics.Address, aidx basics.AssetIndex) (ok bool, err error) {
	_, ok, err = cs.GetAssetParams(addr, aidx)
	return
}

// AllocateApp records the creation of an app when global is set. Local
// allocation needs no bookkeeping beyond the account itself.
func (cs *roundCowState) AllocateApp(addr basics.Address, aidx basics.AppIndex, global bool, space basics.StateSchema) error {
	if global {
		cs.put(addr, cs.mustLookup(addr), &basics.CreatableLocator{
			Type:    basics.AppCreatable,
			Creator: addr,
			Index:   basics.CreatableIndex(aidx),
		}, nil)
	}
	return nil
}

func (cs *roundCowState) DeallocateApp(addr basics.Address, aidx basics.AppIndex, global bool) error {
	if global {
		cs.put(addr, cs.mustLookup(addr), nil, &basics.CreatableLocator{
			Type:    basics.AppCreatable,
			Creator: addr,
			Index:   basics.CreatableIndex(aidx),
		})
	}
	return nil
}

func (cs *roundCowState) AllocateAsset(addr basics.Address, index basics.AssetIndex, global bool) error {
	if global {
		cs.put(addr, cs.mustLookup(addr), &basics.CreatableLocator{
			Type:    basics.AssetCreatable,
			Creator: addr,
			Index:   basics.CreatableIndex(index),
		}, nil)
	}
	return nil
}

func (cs *roundCowState) DeallocateAsset(addr basics.Address, index basics.AssetIndex, global bool) error {
	if global {
		cs.put(addr, cs.mustLookup(addr), nil, &basics.CreatableLocator{
			Type:    basics.AssetCreatable,
			Creator: addr,
			Index:   basics.CreatableIndex(index),
		})
	}
	return nil
}

// mustLookup is only used after the caller has already written addr, so
// the record is in mods.
func (cs *roundCowState) mustLookup(addr basics.Address) basics.AccountData {
	acct, err := cs.lookup(addr)
	if err != nil {
		cs.log.Panicf("account %v vanished from the cow: %v", addr, err)
	}
	return acct
}
