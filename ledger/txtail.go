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

package ledger

import (
	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/ledger/ledgercore"
)

// txTail remembers the ids of committed transactions for as long as they
// could still be valid. Once the round passes a txn's LastValid, the
// validity window check rejects it anyway and its id can be forgotten.
type txTail struct {
	txids     map[transactions.Txid]basics.Round
	lastValid map[basics.Round]map[transactions.Txid]struct{} // map tx.LastValid -> tx confirmed set
}

func (t *txTail) init() {
	t.txids = make(map[transactions.Txid]basics.Round)
	t.lastValid = make(map[basics.Round]map[transactions.Txid]struct{})
}

func (t *txTail) newGroup(delta ledgercore.StateDelta) {
	for txid, inc := range delta.Txids {
		t.txids[txid] = inc.LastValid
		set, ok := t.lastValid[inc.LastValid]
		if !ok {
			set = make(map[transactions.Txid]struct{})
			t.lastValid[inc.LastValid] = set
		}
		set[txid] = struct{}{}
	}
}

// committedUpTo drops every txid whose LastValid is before rnd.
func (t *txTail) committedUpTo(rnd basics.Round) {
	for lv, set := range t.lastValid {
		if lv < rnd {
			for txid := range set {
				delete(t.txids, txid)
			}
			delete(t.lastValid, lv)
		}
	}
}

func (t *txTail) isDup(txid transactions.Txid) bool {
	_, confirmed := t.txids[txid]
	return confirmed
}

func (t *txTail) len() int {
	return len(t.txids)
}
