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

package ledgercore

import (
	"bytes"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
)

// ModifiedCreatable defines the changes to a single single creatable state
type ModifiedCreatable struct {
	// Type of the creatable: app or asset
	Ctype basics.CreatableType

	// Created if true, deleted if false
	Created bool

	// creator of the app/asset
	Creator basics.Address
}

// IncludedTransactions defines the transactions included in a group and
// their index in it.
type IncludedTransactions struct {
	LastValid basics.Round
	Intra     uint64 // the index of the transaction in the group
}

// StateDelta describes the delta between a given ledger state and the
// state after a transaction group is applied. Accounts are recorded whole.
type StateDelta struct {
	// modified accounts
	Accts map[basics.Address]basics.AccountData

	// new Txids for the txtail and TxnCounter, mapped to txn.LastValid
	Txids map[transactions.Txid]IncludedTransactions

	// new creatables creator lookup table
	Creatables map[basics.CreatableIndex]ModifiedCreatable

	// TxnCounter is the value of the creatable counter after the group
	TxnCounter uint64
}

// MakeStateDelta creates a new instance of StateDelta.
// hint is amount of transactions for evaluation, 2 * hint is for sender and receiver balance records.
func MakeStateDelta(hint int) StateDelta {
	return StateDelta{
		Accts:      make(map[basics.Address]basics.AccountData, hint*2),
		Txids:      make(map[transactions.Txid]IncludedTransactions, hint),
		Creatables: make(map[basics.CreatableIndex]ModifiedCreatable),
	}
}

// GetData returns the modified account data, if any
func (sd *StateDelta) GetData(addr basics.Address) (basics.AccountData, bool) {
	data, ok := sd.Accts[addr]
	return data, ok
}

// Upsert records the new state of an account
func (sd *StateDelta) Upsert(addr basics.Address, data basics.AccountData) {
	if sd.Accts == nil {
		sd.Accts = make(map[basics.Address]basics.AccountData)
	}
	sd.Accts[addr] = data
}

// AddCreatable adds a creatable to the state delta
func (sd *StateDelta) AddCreatable(idx basics.CreatableIndex, creatable ModifiedCreatable) {
	if sd.Creatables == nil {
		sd.Creatables = make(map[basics.CreatableIndex]ModifiedCreatable)
	}
	sd.Creatables[idx] = creatable
}

// AddTxid records a transaction as included
func (sd *StateDelta) AddTxid(txid transactions.Txid, inc IncludedTransactions) {
	if sd.Txids == nil {
		sd.Txids = make(map[transactions.Txid]IncludedTransactions)
	}
	sd.Txids[txid] = inc
}

// ModifiedAccounts returns the addresses of all modified accounts, in a
// stable order.
func (sd *StateDelta) ModifiedAccounts() []basics.Address {
	addrs := maps.Keys(sd.Accts)
	slices.SortFunc(addrs, func(a, b basics.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	return addrs
}

// Merge folds a child delta into sd. Entries in child win.
func (sd *StateDelta) Merge(child StateDelta) {
	for addr, data := range child.Accts {
		sd.Upsert(addr, data)
	}
	for txid, inc := range child.Txids {
		sd.AddTxid(txid, inc)
	}
	for idx, mc := range child.Creatables {
		sd.AddCreatable(idx, mc)
	}
	if child.TxnCounter > sd.TxnCounter {
		sd.TxnCounter = child.TxnCounter
	}
}

// Len returns the number of modified accounts
func (sd *StateDelta) Len() int {
	return len(sd.Accts)
}
