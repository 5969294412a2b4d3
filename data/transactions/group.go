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

package transactions

import (
	"github.com/algorand/avm-runtime/crypto"
)

// GroupID computes the id of a transaction group: the hash of the TxGroup
// listing the ids of its members (with their Group fields cleared).
func GroupID(txns []Transaction) crypto.Digest {
	var group TxGroup
	group.TxGroupHashes = make([]crypto.Digest, len(txns))
	for i, tx := range txns {
		tx.Group = crypto.Digest{}
		group.TxGroupHashes[i] = crypto.Digest(tx.ID())
	}
	return crypto.HashObj(group)
}

// AssignGroupID sets the Group field of every transaction to the id of the
// group they form together. A single transaction is left ungrouped.
func AssignGroupID(txns []Transaction) {
	if len(txns) < 2 {
		return
	}
	gid := GroupID(txns)
	for i := range txns {
		txns[i].Group = gid
	}
}
