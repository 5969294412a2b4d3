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
	"fmt"

	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/ledger/ledgercore"
)

// Payment changes the balances according to this transaction.
func Payment(payment transactions.PaymentTxnFields, header transactions.Header, balances Balances, ad *transactions.ApplyData) error {
	// move tx money
	if !payment.Amount.IsZero() || payment.Receiver != (basics.Address{}) {
		err := balances.Move(header.Sender, payment.Receiver, payment.Amount)
		if err != nil {
			return err
		}
	}

	if payment.CloseRemainderTo != (basics.Address{}) {
		rec, err := balances.Get(header.Sender)
		if err != nil {
			return err
		}

		closeAmount := rec.MicroAlgos
		ad.ClosingAmount = closeAmount
		err = balances.Move(header.Sender, payment.CloseRemainderTo, closeAmount)
		if err != nil {
			return err
		}

		// Confirm that we have no balance left
		rec, err = balances.Get(header.Sender)
		if err != nil {
			return err
		}
		if !rec.MicroAlgos.IsZero() {
			return fmt.Errorf("balance %d still not zero after CloseRemainderTo", rec.MicroAlgos.Raw)
		}

		// Confirm that there is no asset-related state in the account
		if len(rec.Assets) > 0 {
			return ledgercore.MakeError(ledgercore.ErrInvalidTxn,
				"cannot close account %v with %d available assets", header.Sender, len(rec.Assets))
		}
		if len(rec.AssetParams) > 0 {
			return ledgercore.MakeError(ledgercore.ErrInvalidTxn,
				"cannot close account %v with %d outstanding created assets", header.Sender, len(rec.AssetParams))
		}

		// Can't have created apps or opted in
		if len(rec.AppLocalStates) > 0 {
			return ledgercore.MakeError(ledgercore.ErrInvalidTxn,
				"cannot close account %v: %d outstanding applications opted in. Please opt out or clear them", header.Sender, len(rec.AppLocalStates))
		}
		if len(rec.AppParams) > 0 {
			return ledgercore.MakeError(ledgercore.ErrInvalidTxn,
				"cannot close account %v: %d outstanding created applications", header.Sender, len(rec.AppParams))
		}

		// Clear out entire account record
		err = balances.CloseAccount(header.Sender)
		if err != nil {
			return err
		}
	}

	return nil
}
