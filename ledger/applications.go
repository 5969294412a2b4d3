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
	"github.com/algorand/avm-runtime/ledger/eval"
	"github.com/algorand/avm-runtime/ledger/ledgercore"
	"github.com/algorand/avm-runtime/protocol"
)

// AppDefinition describes an application to deploy. Programs are TEAL
// source text.
type AppDefinition struct {
	ApprovalProgram   string
	ClearStateProgram string
	GlobalSchema      basics.StateSchema
	LocalSchema       basics.StateSchema
	ExtraPages        uint32
}

func (l *Ledger) appCall(sender basics.Address, app basics.AppIndex, oc transactions.OnCompletion, args [][]byte) transactions.Transaction {
	txn := l.makeTxn(sender)
	txn.Type = protocol.ApplicationCallTx
	txn.ApplicationID = app
	txn.OnCompletion = oc
	txn.ApplicationArgs = args
	return txn
}

// DeployApp creates an application owned by creator, running its approval
// program once with args. It returns the new app's index.
func (l *Ledger) DeployApp(creator basics.Address, def AppDefinition, args ...[]byte) (basics.AppIndex, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn := l.appCall(creator, 0, transactions.NoOpOC, args)
	txn.ApprovalProgram = []byte(def.ApprovalProgram)
	txn.ClearStateProgram = []byte(def.ClearStateProgram)
	txn.GlobalStateSchema = def.GlobalSchema
	txn.LocalStateSchema = def.LocalSchema
	txn.ExtraProgramPages = def.ExtraPages

	r, err := l.submit(txn)
	if err != nil {
		return 0, err
	}
	return r.AppID, nil
}

// CallApp calls app from sender with the given completion action.
func (l *Ledger) CallApp(sender basics.Address, app basics.AppIndex, oc transactions.OnCompletion, args ...[]byte) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.submit(l.appCall(sender, app, oc, args))
}

// UpdateApp replaces the programs of app. The approval program being
// replaced decides whether sender may do so.
func (l *Ledger) UpdateApp(sender basics.Address, app basics.AppIndex, approval, clearState string, args ...[]byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn := l.appCall(sender, app, transactions.UpdateApplicationOC, args)
	txn.ApprovalProgram = []byte(approval)
	txn.ClearStateProgram = []byte(clearState)
	_, err := l.submit(txn)
	return err
}

// OptInToApp allocates local state for sender in app.
func (l *Ledger) OptInToApp(sender basics.Address, app basics.AppIndex, args ...[]byte) error {
	_, err := l.CallApp(sender, app, transactions.OptInOC, args...)
	return err
}

// CloseApp removes sender's local state from app, if its approval program
// allows.
func (l *Ledger) CloseApp(sender basics.Address, app basics.AppIndex, args ...[]byte) error {
	_, err := l.CallApp(sender, app, transactions.CloseOutOC, args...)
	return err
}

// ClearApp removes sender's local state from app whatever its clear state
// program decides.
func (l *Ledger) ClearApp(sender basics.Address, app basics.AppIndex, args ...[]byte) error {
	_, err := l.CallApp(sender, app, transactions.ClearStateOC, args...)
	return err
}

// DeleteApp removes app from its creator, if its approval program allows.
func (l *Ledger) DeleteApp(sender basics.Address, app basics.AppIndex, args ...[]byte) error {
	_, err := l.CallApp(sender, app, transactions.DeleteApplicationOC, args...)
	return err
}

// GetApplication returns a copy of app's parameters.
func (l *Ledger) GetApplication(app basics.AppIndex) (basics.AppParams, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	loc, ok := l.creators[basics.CreatableIndex(app)]
	if !ok || loc.Type != basics.AppCreatable {
		return basics.AppParams{}, ledgercore.AppError(ledgercore.ErrAppNotFound, app)
	}
	params := l.accounts[loc.Creator].AppParams[app]
	return params.Clone(), nil
}

// AppAddress returns the address of app's account.
func (l *Ledger) AppAddress(app basics.AppIndex) basics.Address {
	return app.Address()
}

// GetGlobalState reads key from app's global state.
func (l *Ledger) GetGlobalState(app basics.AppIndex, key string) (basics.TealValue, bool, error) {
	params, err := l.GetApplication(app)
	if err != nil {
		return basics.TealValue{}, false, err
	}
	tv, ok := params.GlobalState[key]
	return tv, ok, nil
}

// GetLocalState reads key from addr's local state in app.
func (l *Ledger) GetLocalState(addr basics.Address, app basics.AppIndex, key string) (basics.TealValue, bool, error) {
	acct, err := l.GetAccount(addr)
	if err != nil {
		return basics.TealValue{}, false, err
	}
	ls, ok := acct.AppLocalStates[app]
	if !ok {
		return basics.TealValue{}, false, &ledgercore.LedgerError{Kind: ledgercore.ErrNotOptedIn, Addr: addr, AppID: app}
	}
	tv, ok := ls.KeyValue[key]
	return tv, ok, nil
}

// SetGlobalState writes key in app's global state without running a
// program. Size and schema limits still apply.
func (l *Ledger) SetGlobalState(app basics.AppIndex, key string, value basics.TealValue) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	evaluator := eval.NewEvaluator(ledgerView{l}, l.proto, l.log)
	if err := evaluator.SetGlobal(app, key, value); err != nil {
		return err
	}
	l.commit(evaluator.Delta())
	return nil
}

// SetLocalState writes key in addr's local state in app without running a
// program. addr must be opted in, and size and schema limits apply.
func (l *Ledger) SetLocalState(addr basics.Address, app basics.AppIndex, key string, value basics.TealValue) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	evaluator := eval.NewEvaluator(ledgerView{l}, l.proto, l.log)
	if err := evaluator.SetLocal(addr, app, key, value); err != nil {
		return err
	}
	l.commit(evaluator.Delta())
	return nil
}

// Pay sends amount microalgos from one account to another.
func (l *Ledger) Pay(from, to basics.Address, amount uint64) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn := l.makeTxn(from)
	txn.Type = protocol.PaymentTx
	txn.Receiver = to
	txn.Amount = basics.MicroAlgos{Raw: amount}
	return l.submit(txn)
}
