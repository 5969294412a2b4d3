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
	"github.com/algorand/avm-runtime/protocol"
)

// Snapshot is a deep copy of the ledger's state.
type Snapshot struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Round     basics.Round                          `codec:"rnd"`
	Timestamp int64                                 `codec:"ts"`
	Counter   uint64                                `codec:"ctr"`
	Accounts  map[basics.Address]basics.AccountData `codec:"accts"`
}

// Snapshot copies the current state. Later changes to the ledger do not
// show in the copy, nor the other way round.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Snapshot{
		Round:     l.round,
		Timestamp: l.timestamp,
		Counter:   l.counter,
		Accounts:  make(map[basics.Address]basics.AccountData, len(l.accounts)),
	}
	for addr, acct := range l.accounts {
		s.Accounts[addr] = acct.Clone()
	}
	return s
}

// Restore replaces the ledger's state with s. Receipts and remembered
// txids are dropped; signing keys are kept.
func (l *Ledger) Restore(s Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.accounts = make(map[basics.Address]basics.AccountData, len(s.Accounts))
	l.creators = make(map[basics.CreatableIndex]basics.CreatableLocator)
	for addr, acct := range s.Accounts {
		l.accounts[addr] = acct.Clone()
		for aidx := range acct.AppParams {
			l.creators[basics.CreatableIndex(aidx)] = basics.CreatableLocator{Type: basics.AppCreatable, Creator: addr, Index: basics.CreatableIndex(aidx)}
		}
		for aidx := range acct.AssetParams {
			l.creators[basics.CreatableIndex(aidx)] = basics.CreatableLocator{Type: basics.AssetCreatable, Creator: addr, Index: basics.CreatableIndex(aidx)}
		}
	}
	l.counter = s.Counter
	l.timestamp = s.Timestamp
	l.receipts = make(map[transactions.Txid]Receipt)
	l.txTail.init()
	l.setRound(s.Round)
}

// Encode returns the canonical msgpack encoding of s.
func (s Snapshot) Encode() []byte {
	return protocol.Encode(&s)
}

// DecodeSnapshot is the inverse of Snapshot.Encode.
func DecodeSnapshot(b []byte) (Snapshot, error) {
	var s Snapshot
	err := protocol.Decode(b, &s)
	return s, err
}
