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
	"errors"
	"fmt"
	"strings"

	"github.com/algorand/avm-runtime/config"
	"github.com/algorand/avm-runtime/crypto"
	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/data/transactions/logic"
	"github.com/algorand/avm-runtime/data/transactions/verify"
	"github.com/algorand/avm-runtime/ledger/apply"
	"github.com/algorand/avm-runtime/ledger/ledgercore"
	"github.com/algorand/avm-runtime/logging"
	"github.com/algorand/avm-runtime/protocol"
)

// LedgerForEvaluator defines the ledger interface needed by the evaluator.
type LedgerForEvaluator interface {
	// LookupAccount returns the committed state of addr. Unknown accounts
	// are returned as the zero AccountData with a nil error.
	LookupAccount(addr basics.Address) (basics.AccountData, error)
	GetCreator(cidx basics.CreatableIndex, ctype basics.CreatableType) (basics.Address, bool, error)
	Counter() uint64
	Round() basics.Round
	LatestTimestamp() int64
	// CheckDup returns a TransactionInLedgerError if txid was already
	// committed.
	CheckDup(txid transactions.Txid) error
}

// roundCowBase is the bottom of every cow stack. It reads straight from
// the committed ledger.
type roundCowBase struct {
	l LedgerForEvaluator
}

func (x *roundCowBase) lookup(addr basics.Address) (basics.AccountData, error) {
	return x.l.LookupAccount(addr)
}

func (x *roundCowBase) checkDup(txid transactions.Txid) error {
	return x.l.CheckDup(txid)
}

func (x *roundCowBase) counter() uint64 {
	return x.l.Counter()
}

func (x *roundCowBase) round() basics.Round {
	return x.l.Round()
}

func (x *roundCowBase) timestamp() int64 {
	return x.l.LatestTimestamp()
}

func (x *roundCowBase) getCreator(cidx basics.CreatableIndex, ctype basics.CreatableType) (basics.Address, bool, error) {
	return x.l.GetCreator(cidx, ctype)
}

// Evaluator applies transaction groups on top of a ledger. Groups that
// succeed accumulate in the evaluator's state until the caller takes
// Delta(); a failing group leaves it untouched.
type Evaluator struct {
	state *roundCowState
	proto config.ConsensusParams
	log   logging.Logger
	trace bool
}

// NewEvaluator starts an evaluator over l.
func NewEvaluator(l LedgerForEvaluator, proto config.ConsensusParams, log logging.Logger) *Evaluator {
	if log == nil {
		log = logging.Base()
	}
	base := &roundCowBase{l: l}
	return &Evaluator{
		state: makeRoundCowState(base, proto, log, proto.MaxTxGroupSize),
		proto: proto,
		log:   log,
	}
}

// EnableTrace makes every group record a step-by-step trace of the
// programs it runs, logged at Debug level when the group finishes.
func (eval *Evaluator) EnableTrace() {
	eval.trace = true
}

// Delta returns the changes made by every group applied so far.
func (eval *Evaluator) Delta() ledgercore.StateDelta {
	return eval.state.deltas()
}

// Cost is the total opcode cost of all programs run by the evaluator,
// including programs that rejected or failed.
func (eval *Evaluator) Cost() int {
	return eval.state.stats.cost
}

// InnerCount is the number of inner transactions performed.
func (eval *Evaluator) InnerCount() int {
	return eval.state.stats.inners
}

// Evaluate applies a single group to l and returns the resulting delta,
// which the caller commits. Nothing is written to l.
func Evaluate(l LedgerForEvaluator, group []transactions.SignedTxn, proto config.ConsensusParams, log logging.Logger) (ledgercore.StateDelta, []transactions.ApplyData, error) {
	eval := NewEvaluator(l, proto, log)
	ads, err := eval.TransactionGroup(group)
	if err != nil {
		return ledgercore.StateDelta{}, nil, err
	}
	return eval.Delta(), ads, nil
}

func (eval *Evaluator) checkGroup(group []transactions.SignedTxn) error {
	if len(group) == 0 {
		return ledgercore.MakeError(ledgercore.ErrBadGroup, "empty transaction group")
	}
	if len(group) > eval.proto.MaxTxGroupSize {
		return ledgercore.MakeError(ledgercore.ErrGroupTooLarge, "group size %d exceeds maximum %d", len(group), eval.proto.MaxTxGroupSize)
	}

	txns := make([]transactions.Transaction, len(group))
	for i := range group {
		txns[i] = group[i].Txn
	}
	var gid crypto.Digest
	if len(group) > 1 || !group[0].Txn.Group.IsZero() {
		gid = transactions.GroupID(txns)
	}
	for gi, stxn := range group {
		if stxn.Txn.Group != gid {
			if stxn.Txn.Group.IsZero() {
				return ledgercore.MakeError(ledgercore.ErrBadGroup, "[%d] had zero Group but was submitted in a group of %d", gi, len(group))
			}
			return ledgercore.MakeError(ledgercore.ErrBadGroup, "[%d] group id %v does not match %v", gi, stxn.Txn.Group, gid)
		}
	}
	return nil
}

// TransactionGroup tentatively executes a group of transactions. If any
// member fails, an error is returned and the evaluator state is unchanged.
// On success the ApplyData of each member is returned in group order.
func (eval *Evaluator) TransactionGroup(group []transactions.SignedTxn) ([]transactions.ApplyData, error) {
	if err := eval.checkGroup(group); err != nil {
		return nil, err
	}

	cow := eval.state.child(len(group))
	round := cow.round()

	seen := make(map[transactions.Txid]struct{}, len(group))
	for gi := range group {
		txn := &group[gi].Txn
		if err := txn.WellFormed(eval.proto); err != nil {
			return nil, &ledgercore.LedgerError{Kind: ledgercore.ErrInvalidTxn, Addr: txn.Sender, Err: fmt.Errorf("transaction %d: %w", gi, err)}
		}
		if err := txn.Alive(round); err != nil {
			return nil, &ledgercore.LedgerError{Kind: ledgercore.ErrTxnDead, Addr: txn.Sender, Err: err}
		}
		txid := txn.ID()
		if _, dup := seen[txid]; dup {
			return nil, &ledgercore.LedgerError{Kind: ledgercore.ErrInvalidTxn, Err: &ledgercore.TransactionInLedgerError{Txid: txid}}
		}
		seen[txid] = struct{}{}
		if err := cow.checkDup(txid); err != nil {
			return nil, &ledgercore.LedgerError{Kind: ledgercore.ErrInvalidTxn, Err: err}
		}
	}

	if _, err := verify.TxnGroup(group, eval.proto, cow, eval.log); err != nil {
		return nil, err
	}

	// Fees are pooled: the group as a whole must cover the minimum fee for
	// each of its members.
	feesPaid := uint64(0)
	for _, stxn := range group {
		feesPaid = basics.AddSaturate(feesPaid, stxn.Txn.Fee.Raw)
	}
	feeNeeded := basics.MulSaturate(eval.proto.MinTxnFee, uint64(len(group)))
	if feesPaid < feeNeeded {
		return nil, ledgercore.MakeError(ledgercore.ErrFeeShortfall, "group paid %d, requires %d", feesPaid, feeNeeded)
	}

	evalParams := logic.NewEvalParams(transactions.WrapSignedTxnsWithAD(group), &eval.proto)
	evalParams.SetLogger(eval.log)
	if eval.trace {
		evalParams.Trace = &strings.Builder{}
		defer func() {
			eval.log.Debugf("program trace:\n%s", evalParams.Trace.String())
		}()
	}

	for gi := range group {
		if err := eval.transaction(group[gi], evalParams, gi, cow); err != nil {
			eval.log.Debugf("group rejected at transaction %d: %v", gi, err)
			return nil, err
		}
	}

	cow.commitToParent()

	ads := make([]transactions.ApplyData, len(group))
	for gi := range evalParams.TxnGroup {
		ads[gi] = evalParams.TxnGroup[gi].ApplyData
	}
	return ads, nil
}

// transaction executes the gi'th member of the group in its own child of
// cow, merging it only when every check passed.
func (eval *Evaluator) transaction(stxn transactions.SignedTxn, evalParams *logic.EvalParams, gi int, cow *roundCowState) error {
	txid := stxn.ID()
	txn := &stxn.Txn

	child := cow.child(1)

	// Does the address that authorized the transaction actually match whatever address the sender has rekeyed to?
	// i.e., the sig/lsig/msig was checked against the txn.Authorizer() address, but does this match the sender's balrecord.AuthAddr?
	correctAuthorizer, err := child.Authorizer(txn.Sender)
	if err != nil {
		return err
	}
	if stxn.Authorizer() != correctAuthorizer {
		return &ledgercore.LedgerError{
			Kind: ledgercore.ErrUnauthorized,
			Addr: txn.Sender,
			Err:  fmt.Errorf("transaction %v: should have been authorized by %v but was actually authorized by %v", txid, correctAuthorizer, stxn.Authorizer()),
		}
	}

	if err := child.payFee(txn.Sender, txn.Fee); err != nil {
		return fmt.Errorf("transaction %v: %w", txid, err)
	}

	ad := &evalParams.TxnGroup[gi].ApplyData
	if err := applyTransaction(*txn, child, evalParams, gi, ad); err != nil {
		return fmt.Errorf("transaction %v: %w", txid, err)
	}
	// Record, so that created ids can be used by later members of the group.
	evalParams.RecordAD(gi, *ad)

	if err := apply.Rekey(child, txn); err != nil {
		return fmt.Errorf("transaction %v: %w", txid, err)
	}

	// Check if any affected accounts dipped below MinBalance (unless they are
	// completely zero, which means the account will be deleted.)
	if err := eval.checkMinBalance(child); err != nil {
		return fmt.Errorf("transaction %v: %w", txid, err)
	}

	child.commitToParent()

	// Remember this txn
	cow.addTx(*txn, txid, gi)
	return nil
}

// checkMinBalance checks the minimum balance requirement for the accounts
// modified in cow.
func (eval *Evaluator) checkMinBalance(cow *roundCowState) error {
	reqs := eval.proto.BalanceRequirements()
	for _, addr := range cow.modifiedAccounts() {
		data, err := cow.lookup(addr)
		if err != nil {
			return err
		}

		// It's always OK to have the account move to an empty state,
		// because the ledger can delete it. Otherwise, we will enforce
		// MinBalance.
		if data.IsZero() {
			continue
		}

		effectiveMinBalance := data.MinBalance(reqs)
		if data.MicroAlgos.Raw < effectiveMinBalance.Raw {
			return &ledgercore.LedgerError{
				Kind: ledgercore.ErrMinBalance,
				Addr: addr,
				Err: fmt.Errorf("balance %d below min %d (%d assets)",
					data.MicroAlgos.Raw, effectiveMinBalance.Raw, len(data.Assets)),
			}
		}
	}
	return nil
}

// applyTransaction changes the balances according to this transaction. It
// serves both top-level members and inner transactions, so it neither
// charges the fee nor applies RekeyTo.
func applyTransaction(tx transactions.Transaction, balances *roundCowState, evalParams *logic.EvalParams, gi int, ad *transactions.ApplyData) (err error) {
	switch tx.Type {
	case protocol.PaymentTx:
		err = apply.Payment(tx.PaymentTxnFields, tx.Header, balances, ad)

	case protocol.KeyRegistrationTx:
		err = apply.Keyreg(tx.KeyregTxnFields, tx.Header, balances, balances.Round())

	case protocol.AssetConfigTx:
		err = apply.AssetConfig(tx.AssetConfigTxnFields, tx.Header, balances, ad)

	case protocol.AssetTransferTx:
		err = apply.AssetTransfer(tx.AssetTransferTxnFields, tx.Header, balances, ad)

	case protocol.AssetFreezeTx:
		err = apply.AssetFreeze(tx.AssetFreezeTxnFields, tx.Header, balances)

	case protocol.ApplicationCallTx:
		err = apply.ApplicationCall(tx.ApplicationCallTxnFields, tx.Header, balances, ad, gi, evalParams)

	default:
		err = ledgercore.MakeError(ledgercore.ErrInvalidTxn, "unknown transaction type %v", tx.Type)
	}
	return err
}

// SetGlobal writes a global state entry of app directly, without running
// any program. Key, value and schema limits apply as they do to programs.
func (eval *Evaluator) SetGlobal(app basics.AppIndex, key string, value basics.TealValue) error {
	child := eval.state.child(1)
	if err := child.SetGlobal(app, key, value); err != nil {
		return err
	}
	child.commitToParent()
	return nil
}

// SetLocal is SetGlobal for the local state of addr in app.
func (eval *Evaluator) SetLocal(addr basics.Address, app basics.AppIndex, key string, value basics.TealValue) error {
	child := eval.state.child(1)
	if err := child.SetLocal(addr, app, key, value, 0); err != nil {
		return err
	}
	child.commitToParent()
	return nil
}

// IsRejection reports whether err came from a program that ran to
// completion without accepting, rather than from a fault.
func IsRejection(err error) bool {
	var le *ledgercore.LedgerError
	return errors.As(err, &le) && le.Kind == ledgercore.ErrRejected
}
