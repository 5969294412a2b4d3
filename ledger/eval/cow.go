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
	"github.com/algorand/avm-runtime/config"
	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/ledger/ledgercore"
	"github.com/algorand/avm-runtime/logging"
)

//   ___________________
// < cow = Copy On Write >
//   -------------------
//          \   ^__^
//           \  (oo)\_______
//              (__)\       )\/\
//                  ||----w |
//                  ||     ||

type roundCowParent interface {
	lookup(basics.Address) (basics.AccountData, error)
	checkDup(transactions.Txid) error
	counter() uint64
	round() basics.Round
	timestamp() int64
	getCreator(cidx basics.CreatableIndex, ctype basics.CreatableType) (basics.Address, bool, error)
}

// groupStats is shared by a cow and all of its children, so that work done
// in a discarded child is still accounted for.
type groupStats struct {
	cost   int
	inners int
}

type roundCowState struct {
	lookupParent roundCowParent
	commitParent *roundCowState
	proto        config.ConsensusParams
	mods         ledgercore.StateDelta
	stats        *groupStats
	log          logging.Logger
}

func makeRoundCowState(b roundCowParent, proto config.ConsensusParams, log logging.Logger, hint int) *roundCowState {
	mods := ledgercore.MakeStateDelta(hint)
	mods.TxnCounter = b.counter()
	return &roundCowState{
		lookupParent: b,
		commitParent: nil,
		proto:        proto,
		mods:         mods,
		stats:        &groupStats{},
		log:          log,
	}
}

func (cb *roundCowState) deltas() ledgercore.StateDelta {
	return cb.mods
}

func (cb *roundCowState) getCreator(cidx basics.CreatableIndex, ctype basics.CreatableType) (creator basics.Address, ok bool, err error) {
	delta, ok := cb.mods.Creatables[cidx]
	if ok {
		if delta.Created && delta.Ctype == ctype {
			return delta.Creator, true, nil
		}
		return basics.Address{}, false, nil
	}
	return cb.lookupParent.getCreator(cidx, ctype)
}

// lookup returns the account as this cow sees it. The maps inside the
// result are shared with whoever stored it, so it must be cloned before
// being modified.
func (cb *roundCowState) lookup(addr basics.Address) (data basics.AccountData, err error) {
	d, ok := cb.mods.Accts[addr]
	if ok {
		return d, nil
	}

	return cb.lookupParent.lookup(addr)
}

func (cb *roundCowState) checkDup(txid transactions.Txid) error {
	_, present := cb.mods.Txids[txid]
	if present {
		return &ledgercore.TransactionInLedgerError{Txid: txid}
	}

	return cb.lookupParent.checkDup(txid)
}

func (cb *roundCowState) counter() uint64 {
	return cb.mods.TxnCounter
}

func (cb *roundCowState) round() basics.Round {
	return cb.lookupParent.round()
}

func (cb *roundCowState) timestamp() int64 {
	return cb.lookupParent.timestamp()
}

func (cb *roundCowState) put(addr basics.Address, new basics.AccountData, newCreatable *basics.CreatableLocator, deletedCreatable *basics.CreatableLocator) {
	cb.mods.Upsert(addr, new)

	if newCreatable != nil {
		cb.mods.AddCreatable(newCreatable.Index, ledgercore.ModifiedCreatable{
			Ctype:   newCreatable.Type,
			Creator: newCreatable.Creator,
			Created: true,
		})
		if uint64(newCreatable.Index) > cb.mods.TxnCounter {
			cb.mods.TxnCounter = uint64(newCreatable.Index)
		}
	}

	if deletedCreatable != nil {
		cb.mods.AddCreatable(deletedCreatable.Index, ledgercore.ModifiedCreatable{
			Ctype:   deletedCreatable.Type,
			Creator: deletedCreatable.Creator,
			Created: false,
		})
	}
}

func (cb *roundCowState) addTx(txn transactions.Transaction, txid transactions.Txid, intra int) {
	cb.mods.AddTxid(txid, ledgercore.IncludedTransactions{LastValid: txn.LastValid, Intra: uint64(intra)})
}

func (cb *roundCowState) child(hint int) *roundCowState {
	mods := ledgercore.MakeStateDelta(hint)
	mods.TxnCounter = cb.mods.TxnCounter
	return &roundCowState{
		lookupParent: cb,
		commitParent: cb,
		proto:        cb.proto,
		mods:         mods,
		stats:        cb.stats,
		log:          cb.log,
	}
}

func (cb *roundCowState) commitToParent() {
	cb.commitParent.mods.Merge(cb.mods)
	cb.commitParent.mods.TxnCounter = cb.mods.TxnCounter
}

func (cb *roundCowState) modifiedAccounts() []basics.Address {
	return cb.mods.ModifiedAccounts()
}
