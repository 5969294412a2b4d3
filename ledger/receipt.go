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
)

// Receipt records the outcome of a committed transaction.
type Receipt struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Txid  transactions.Txid `codec:"txid"`
	Round basics.Round      `codec:"rnd"`

	// Logs emitted by the transaction's program, in order.
	Logs []string `codec:"lg"`

	// AppID and AssetID are set when the transaction created an app or
	// asset, or, for an app call, to the app it called.
	AppID   basics.AppIndex   `codec:"apid"`
	AssetID basics.AssetIndex `codec:"caid"`

	// InnerTxns are the inner transactions the program performed, each with
	// its own ApplyData.
	InnerTxns []transactions.SignedTxnWithAD `codec:"itx"`

	ApplyData transactions.ApplyData `codec:"ad"`
}

func makeReceipt(stxn transactions.SignedTxn, ad transactions.ApplyData, rnd basics.Round) Receipt {
	r := Receipt{
		Txid:      stxn.ID(),
		Round:     rnd,
		Logs:      ad.EvalDelta.Logs,
		AppID:     ad.ApplicationID,
		AssetID:   ad.ConfigAsset,
		InnerTxns: ad.EvalDelta.InnerTxns,
		ApplyData: ad,
	}
	if r.AppID == 0 {
		r.AppID = stxn.Txn.ApplicationID
	}
	if r.AssetID == 0 {
		r.AssetID = stxn.Txn.ConfigAsset
	}
	return r
}
