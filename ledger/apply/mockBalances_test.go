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

package apply

import (
	"maps"

	"github.com/algorand/avm-runtime/config"
	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/data/transactions/logic"
	"github.com/algorand/avm-runtime/ledger/ledgercore"
	"github.com/algorand/avm-runtime/protocol"
)

// mockBalances is a map-backed apply.Balances. Programs are not run:
// StatefulEval answers with evalPass/evalErr and records what it was asked
// to run.
type mockBalances struct {
	protocol.ConsensusVersion
	b        map[basics.Address]basics.AccountData
	creators map[basics.CreatableIndex]basics.CreatableLocator
	counter  uint64

	evalPass  bool
	evalErr   error
	evalDelta transactions.EvalDelta
	evaluated [][]byte

	mockCreatableBalances
}

// makeMockBalances takes a ConsensusVersion and returns a mocked balances with an Address to AccountData map
func makeMockBalances(cv protocol.ConsensusVersion) *mockBalances {
	return makeMockBalancesWithAccounts(cv, map[basics.Address]basics.AccountData{})
}

// makeMockBalancesWithAccounts takes a ConsensusVersion and a map of Address to AccountData and returns a mocked
// balances.
func makeMockBalancesWithAccounts(cv protocol.ConsensusVersion, b map[basics.Address]basics.AccountData) *mockBalances {
	ret := &mockBalances{
		ConsensusVersion: cv,
		b:                b,
		creators:         map[basics.CreatableIndex]basics.CreatableLocator{},
		evalPass:         true,
	}
	ret.mockCreatableBalances = mockCreatableBalances{access: ret}
	return ret
}

// rollback runs apply and, if it fails, puts the accounts back the way they
// were. Appliers may leave partial writes behind on error; the evaluator's
// cow drops them, and this does the same for the mock.
func (balances *mockBalances) rollback(apply func() error) error {
	saved := make(map[basics.Address]basics.AccountData, len(balances.b))
	for addr, data := range balances.b {
		saved[addr] = data.Clone()
	}
	err := apply()
	if err != nil {
		balances.b = saved
	}
	return err
}

func (balances *mockBalances) Round() basics.Round {
	return basics.Round(8675309)
}

func (balances *mockBalances) Counter() uint64 {
	return balances.counter
}

func (balances *mockBalances) allocate(addr basics.Address, cidx basics.CreatableIndex, ctype basics.CreatableType, global bool) {
	if !global {
		return
	}
	balances.creators[cidx] = basics.CreatableLocator{Type: ctype, Creator: addr, Index: cidx}
	if uint64(cidx) > balances.counter {
		balances.counter = uint64(cidx)
	}
}

func (balances *mockBalances) AllocateApp(addr basics.Address, aidx basics.AppIndex, global bool, _ basics.StateSchema) error {
	balances.allocate(addr, basics.CreatableIndex(aidx), basics.AppCreatable, global)
	return nil
}

func (balances *mockBalances) DeallocateApp(addr basics.Address, aidx basics.AppIndex, global bool) error {
	if global {
		delete(balances.creators, basics.CreatableIndex(aidx))
	}
	return nil
}

func (balances *mockBalances) AllocateAsset(addr basics.Address, index basics.AssetIndex, global bool) error {
	balances.allocate(addr, basics.CreatableIndex(index), basics.AssetCreatable, global)
	return nil
}

func (balances *mockBalances) DeallocateAsset(addr basics.Address, index basics.AssetIndex, global bool) error {
	if global {
		delete(balances.creators, basics.CreatableIndex(index))
	}
	return nil
}

func (balances *mockBalances) StatefulEval(_ int, _ *logic.EvalParams, _ basics.AppIndex, program []byte) (bool, transactions.EvalDelta, error) {
	balances.evaluated = append(balances.evaluated, program)
	if balances.evalErr != nil {
		return false, transactions.EvalDelta{}, balances.evalErr
	}
	return balances.evalPass, balances.evalDelta, nil
}

func (balances *mockBalances) Get(addr basics.Address) (basics.AccountData, error) {
	return balances.getAccount(addr)
}

func (balances *mockBalances) getAccount(addr basics.Address) (basics.AccountData, error) {
	return balances.b[addr], nil
}

func (balances *mockBalances) GetCreator(idx basics.CreatableIndex, ctype basics.CreatableType) (basics.Address, bool, error) {
	loc, ok := balances.creators[idx]
	if !ok || loc.Type != ctype {
		return basics.Address{}, false, nil
	}
	return loc.Creator, true, nil
}

func (balances *mockBalances) Put(addr basics.Address, acct basics.AccountData) error {
	return balances.putAccount(addr, acct)
}

func (balances *mockBalances) putAccount(addr basics.Address, ad basics.AccountData) error {
	balances.b[addr] = ad
	return nil
}

func (balances *mockBalances) CloseAccount(addr basics.Address) error {
	delete(balances.b, addr)
	return nil
}

func (balances *mockBalances) Move(src, dst basics.Address, amount basics.MicroAlgos) error {
	if src == dst {
		return nil
	}
	from := balances.b[src]
	var overflowed bool
	from.MicroAlgos, overflowed = basics.OSubA(from.MicroAlgos, amount)
	if overflowed {
		return ledgercore.AccountError(ledgercore.ErrInsufficientBalance, src)
	}
	balances.b[src] = from
	to := balances.b[dst]
	to.MicroAlgos, overflowed = basics.OAddA(to.MicroAlgos, amount)
	if overflowed {
		return ledgercore.MakeError(ledgercore.ErrInvalidTxn, "overflow crediting %v", dst)
	}
	balances.b[dst] = to
	return nil
}

func (balances *mockBalances) ConsensusParams() config.ConsensusParams {
	return config.Consensus[balances.ConsensusVersion]
}

// mockCreatableBalances provides the creatable access methods of
// apply.Balances on top of whole-account reads and writes, counting the
// writes so tests can check what a transaction touched.
type mockCreatableBalances struct {
	access accountDataAccessor

	putAppParams, deleteAppParams         int
	putAppLocalState, deleteAppLocalState int
	putAssetHolding, deleteAssetHolding   int
	putAssetParams, deleteAssetParams     int
}

type accountDataAccessor interface {
	putAccount(addr basics.Address, ad basics.AccountData) error
	getAccount(addr basics.Address) (basics.AccountData, error)
}

func (b *mockCreatableBalances) GetAppParams(addr basics.Address, aidx basics.AppIndex) (ret basics.AppParams, ok bool, err error) {
	acct, err := b.access.getAccount(addr)
	if err != nil {
		return
	}
	ret, ok = acct.AppParams[aidx]
	return
}
func (b *mockCreatableBalances) GetAppLocalState(addr basics.Address, aidx basics.AppIndex) (ret basics.AppLocalState, ok bool, err error) {
	acct, err := b.access.getAccount(addr)
	if err != nil {
		return
	}
	ret, ok = acct.AppLocalStates[aidx]
	return
}

func (b *mockCreatableBalances) GetAssetHolding(addr basics.Address, aidx basics.AssetIndex) (ret basics.AssetHolding, ok bool, err error) {
	acct, err := b.access.getAccount(addr)
	if err != nil {
		return
	}
	ret, ok = acct.Assets[aidx]
	return
}
func (b *mockCreatableBalances) GetAssetParams(addr basics.Address, aidx basics.AssetIndex) (ret basics.AssetParams, ok bool, err error) {
	acct, err := b.access.getAccount(addr)
	if err != nil {
		return
	}
	ret, ok = acct.AssetParams[aidx]
	return
}

// mapWith returns a new map with the given key and value added to it.
// maps.Clone would keep nil inputs as nil, so we make() then map.Copy().
func mapWith[M ~map[K]V, K comparable, V any](m M, k K, v V) M {
	newMap := make(M, len(m)+1)
	maps.Copy(newMap, m)
	newMap[k] = v
	return newMap
}

// mapWithout returns a copy of m lacking k. An emptied map becomes nil.
func mapWithout[M ~map[K]V, K comparable, V any](m M, k K) M {
	newMap := maps.Clone(m)
	delete(newMap, k)
	if len(newMap) == 0 {
		return nil
	}
	return newMap
}

func (b *mockCreatableBalances) PutAppParams(addr basics.Address, aidx basics.AppIndex, params basics.AppParams) error {
	b.putAppParams++
	acct, err := b.access.getAccount(addr)
	if err != nil {
		return err
	}
	acct.AppParams = mapWith(acct.AppParams, aidx, params)
	return b.access.putAccount(addr, acct)
}
func (b *mockCreatableBalances) PutAppLocalState(addr basics.Address, aidx basics.AppIndex, state basics.AppLocalState) error {
	b.putAppLocalState++
	acct, err := b.access.getAccount(addr)
	if err != nil {
		return err
	}
	acct.AppLocalStates = mapWith(acct.AppLocalStates, aidx, state)
	return b.access.putAccount(addr, acct)
}
func (b *mockCreatableBalances) PutAssetHolding(addr basics.Address, aidx basics.AssetIndex, data basics.AssetHolding) error {
	b.putAssetHolding++
	acct, err := b.access.getAccount(addr)
	if err != nil {
		return err
	}
	acct.Assets = mapWith(acct.Assets, aidx, data)
	return b.access.putAccount(addr, acct)
}
func (b *mockCreatableBalances) PutAssetParams(addr basics.Address, aidx basics.AssetIndex, data basics.AssetParams) error {
	b.putAssetParams++
	acct, err := b.access.getAccount(addr)
	if err != nil {
		return err
	}
	acct.AssetParams = mapWith(acct.AssetParams, aidx, data)
	return b.access.putAccount(addr, acct)
}

func (b *mockCreatableBalances) DeleteAppParams(addr basics.Address, aidx basics.AppIndex) error {
	b.deleteAppParams++
	acct, err := b.access.getAccount(addr)
	if err != nil {
		return err
	}
	acct.AppParams = mapWithout(acct.AppParams, aidx)
	return b.access.putAccount(addr, acct)
}
func (b *mockCreatableBalances) DeleteAppLocalState(addr basics.Address, aidx basics.AppIndex) error {
	b.deleteAppLocalState++
	acct, err := b.access.getAccount(addr)
	if err != nil {
		return err
	}
	acct.AppLocalStates = mapWithout(acct.AppLocalStates, aidx)
	return b.access.putAccount(addr, acct)
}
func (b *mockCreatableBalances) DeleteAssetHolding(addr basics.Address, aidx basics.AssetIndex) error {
	b.deleteAssetHolding++
	acct, err := b.access.getAccount(addr)
	if err != nil {
		return err
	}
	acct.Assets = mapWithout(acct.Assets, aidx)
	return b.access.putAccount(addr, acct)
}
func (b *mockCreatableBalances) DeleteAssetParams(addr basics.Address, aidx basics.AssetIndex) error {
	b.deleteAssetParams++
	acct, err := b.access.getAccount(addr)
	if err != nil {
		return err
	}
	acct.AssetParams = mapWithout(acct.AssetParams, aidx)
	return b.access.putAccount(addr, acct)
}

func (b *mockCreatableBalances) HasAppLocalState(addr basics.Address, aidx basics.AppIndex) (ok bool, err error) {
	acct, err := b.access.getAccount(addr)
	if err != nil {
		return
	}
	_, ok = acct.AppLocalStates[aidx]
	return
}

func (b *mockCreatableBalances) HasAssetParams(addr basics.Address, aidx basics.AssetIndex) (ok bool, err error) {
	acct, err := b.access.getAccount(addr)
	if err != nil {
		return
	}
	_, ok = acct.AssetParams[aidx]
	return
}
