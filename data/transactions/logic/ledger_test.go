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

package logic

import (
	"errors"
	"fmt"

	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/ledger/ledgercore"
	"github.com/algorand/avm-runtime/protocol"
)

type balanceRecord struct {
	addr     basics.Address
	auth     basics.Address
	balance  uint64
	locals   map[basics.AppIndex]basics.TealKeyValue
	holdings map[basics.AssetIndex]basics.AssetHolding
}

func newBalanceRecord(addr basics.Address, balance uint64) balanceRecord {
	return balanceRecord{
		addr:     addr,
		balance:  balance,
		locals:   make(map[basics.AppIndex]basics.TealKeyValue),
		holdings: make(map[basics.AssetIndex]basics.AssetHolding),
	}
}

// In our test ledger, we don't store the creatables with their
// creators, so we need to carry the creator around with them.
type appParams struct {
	basics.AppParams
	Creator basics.Address
}

type asaParams struct {
	basics.AssetParams
	Creator basics.Address
}

// Ledger is a fake ledger that is "good enough" to reasonably test AVM programs.
type Ledger struct {
	balances     map[basics.Address]balanceRecord
	applications map[basics.AppIndex]appParams
	assets       map[basics.AssetIndex]asaParams
	rnd          basics.Round
	timestamp    int64
}

// NewLedger constructs a Ledger with the given balances.
func NewLedger(balances map[basics.Address]uint64) *Ledger {
	l := &Ledger{
		balances:     make(map[basics.Address]balanceRecord),
		applications: make(map[basics.AppIndex]appParams),
		assets:       make(map[basics.AssetIndex]asaParams),
		rnd:          1,
	}
	for addr, balance := range balances {
		l.NewAccount(addr, balance)
	}
	return l
}

// NewAccount adds a new account with a given balance to the Ledger.
func (l *Ledger) NewAccount(addr basics.Address, balance uint64) {
	l.balances[addr] = newBalanceRecord(addr, balance)
}

// NewApp adds a new app to the Ledger. Most tests only need the id and
// schema, since they try many different programs against it.
func (l *Ledger) NewApp(creator basics.Address, appID basics.AppIndex, params basics.AppParams) {
	params = params.Clone()
	if params.GlobalState == nil {
		params.GlobalState = make(basics.TealKeyValue)
	}
	l.applications[appID] = appParams{
		Creator:   creator,
		AppParams: params,
	}
}

// NewAsset adds an asset with the given id and params to the ledger.
func (l *Ledger) NewAsset(creator basics.Address, assetID basics.AssetIndex, params basics.AssetParams) {
	l.assets[assetID] = asaParams{
		Creator:     creator,
		AssetParams: params,
	}
	br, ok := l.balances[creator]
	if !ok {
		br = newBalanceRecord(creator, 0)
	}
	br.holdings[assetID] = basics.AssetHolding{Amount: params.Total, Frozen: params.DefaultFrozen}
	l.balances[creator] = br
}

const firstTestID = 5000

// Counter is not really a txn counter, but it yields unused ids, which is
// all the logic package needs.
func (l *Ledger) Counter() uint64 {
	for try := firstTestID; true; try++ {
		if _, ok := l.assets[basics.AssetIndex(try)]; ok {
			continue
		}
		if _, ok := l.applications[basics.AppIndex(try)]; ok {
			continue
		}
		return uint64(try)
	}
	panic("wow")
}

// NewHolding sets the ASA balance of a given account.
func (l *Ledger) NewHolding(addr basics.Address, assetID uint64, amount uint64, frozen bool) {
	br, ok := l.balances[addr]
	if !ok {
		br = newBalanceRecord(addr, 0)
	}
	br.holdings[basics.AssetIndex(assetID)] = basics.AssetHolding{Amount: amount, Frozen: frozen}
	l.balances[addr] = br
}

// NewLocals essentially "opts in" an address to an app id.
func (l *Ledger) NewLocals(addr basics.Address, appID uint64) {
	if _, ok := l.balances[addr]; !ok {
		l.balances[addr] = newBalanceRecord(addr, 0)
	}
	l.balances[addr].locals[basics.AppIndex(appID)] = basics.TealKeyValue{}
}

// NewLocal sets a local value of an app on an address
func (l *Ledger) NewLocal(addr basics.Address, appID uint64, key string, value basics.TealValue) {
	l.balances[addr].locals[basics.AppIndex(appID)][key] = value
}

// NewGlobal sets a global value for an app
func (l *Ledger) NewGlobal(appID uint64, key string, value basics.TealValue) {
	l.applications[basics.AppIndex(appID)].GlobalState[key] = value
}

// Rekey sets the authAddr for an address.
func (l *Ledger) Rekey(addr basics.Address, auth basics.Address) {
	if br, ok := l.balances[addr]; ok {
		br.auth = auth
		l.balances[addr] = br
	}
}

// Round gives the current round of the test ledger
func (l *Ledger) Round() basics.Round {
	return l.rnd
}

// LatestTimestamp gives a fixed timestamp for tests
func (l *Ledger) LatestTimestamp() int64 {
	return l.timestamp
}

// AccountData returns a version of the account that is good enough for
// satisfying AVM programs.
func (l *Ledger) AccountData(addr basics.Address) (basics.AccountData, error) {
	br, ok := l.balances[addr]
	if !ok {
		return basics.AccountData{}, nil
	}
	ad := basics.AccountData{
		MicroAlgos:     basics.MicroAlgos{Raw: br.balance},
		AuthAddr:       br.auth,
		AppLocalStates: make(map[basics.AppIndex]basics.AppLocalState),
		Assets:         make(map[basics.AssetIndex]basics.AssetHolding),
	}
	for aid := range br.locals {
		ad.AppLocalStates[aid] = basics.AppLocalState{}
	}
	for aid, holding := range br.holdings {
		ad.Assets[aid] = holding
	}
	return ad, nil
}

// Authorizer returns the address that must authorize txns from a
// given address.  It's either the address itself, or the value it has been
// rekeyed to.
func (l *Ledger) Authorizer(addr basics.Address) (basics.Address, error) {
	br, ok := l.balances[addr]
	if !ok {
		return addr, nil // Not rekeyed if not present
	}
	if !br.auth.IsZero() {
		return br.auth, nil
	}
	return br.addr, nil
}

// GetGlobal returns the current value of a global in an app
func (l *Ledger) GetGlobal(appIdx basics.AppIndex, key string) (basics.TealValue, bool, error) {
	params, ok := l.applications[appIdx]
	if !ok {
		return basics.TealValue{}, false, ledgercore.AppError(ledgercore.ErrAppNotFound, appIdx)
	}
	val, ok := params.GlobalState[key]
	return val, ok, nil
}

// SetGlobal "sets" a global, but only through the mods mechanism, so
// it can be removed with Reset()
func (l *Ledger) SetGlobal(appIdx basics.AppIndex, key string, value basics.TealValue) error {
	params, ok := l.applications[appIdx]
	if !ok {
		return ledgercore.AppError(ledgercore.ErrAppNotFound, appIdx)
	}
	params.GlobalState[key] = value
	return nil
}

// DelGlobal removes a global value from an app
func (l *Ledger) DelGlobal(appIdx basics.AppIndex, key string) error {
	params, ok := l.applications[appIdx]
	if !ok {
		return ledgercore.AppError(ledgercore.ErrAppNotFound, appIdx)
	}
	delete(params.GlobalState, key)
	return nil
}

func (l *Ledger) locals(addr basics.Address, appIdx basics.AppIndex) (basics.TealKeyValue, error) {
	br, ok := l.balances[addr]
	if !ok {
		return nil, ledgercore.AccountError(ledgercore.ErrAccountNotFound, addr)
	}
	tkv, ok := br.locals[appIdx]
	if !ok {
		return nil, &ledgercore.LedgerError{Kind: ledgercore.ErrNotOptedIn, Addr: addr, AppID: appIdx}
	}
	return tkv, nil
}

// GetLocal returns the current value bound to a local key, taking
// into account mods caused by earlier executions.
func (l *Ledger) GetLocal(addr basics.Address, appIdx basics.AppIndex, key string, accountIdx uint64) (basics.TealValue, bool, error) {
	tkv, err := l.locals(addr, appIdx)
	if err != nil {
		return basics.TealValue{}, false, err
	}
	val, ok := tkv[key]
	return val, ok, nil
}

// SetLocal sets a local value
func (l *Ledger) SetLocal(addr basics.Address, appIdx basics.AppIndex, key string, value basics.TealValue, accountIdx uint64) error {
	tkv, err := l.locals(addr, appIdx)
	if err != nil {
		return err
	}
	tkv[key] = value
	return nil
}

// DelLocal removes a local value
func (l *Ledger) DelLocal(addr basics.Address, appIdx basics.AppIndex, key string, accountIdx uint64) error {
	tkv, err := l.locals(addr, appIdx)
	if err != nil {
		return err
	}
	delete(tkv, key)
	return nil
}

// OptedIn returns whether an Address has opted into the app (or is
// the creator, which is considered opted in)
func (l *Ledger) OptedIn(addr basics.Address, appIdx basics.AppIndex) (bool, error) {
	br, ok := l.balances[addr]
	if !ok {
		return false, nil
	}
	_, ok = br.locals[appIdx]
	return ok, nil
}

// AssetHolding gives the amount of an ASA held by an account, or
// error if the account is not opted into the asset.
func (l *Ledger) AssetHolding(addr basics.Address, assetID basics.AssetIndex) (basics.AssetHolding, error) {
	if br, ok := l.balances[addr]; ok {
		if asset, ok := br.holdings[assetID]; ok {
			return asset, nil
		}
		return basics.AssetHolding{}, &ledgercore.LedgerError{Kind: ledgercore.ErrNotOptedIn, Addr: addr, AssetID: assetID}
	}
	return basics.AssetHolding{}, ledgercore.AccountError(ledgercore.ErrAccountNotFound, addr)
}

// AssetParams gives the parameters of an ASA if it exists
func (l *Ledger) AssetParams(assetID basics.AssetIndex) (basics.AssetParams, basics.Address, error) {
	if asset, ok := l.assets[assetID]; ok {
		return asset.AssetParams, asset.Creator, nil
	}
	return basics.AssetParams{}, basics.Address{}, &ledgercore.LedgerError{Kind: ledgercore.ErrAssetNotFound, AssetID: assetID}
}

// AppParams gives the parameters of an App if it exists
func (l *Ledger) AppParams(appID basics.AppIndex) (basics.AppParams, basics.Address, error) {
	if app, ok := l.applications[appID]; ok {
		return app.AppParams, app.Creator, nil
	}
	return basics.AppParams{}, basics.Address{}, ledgercore.AppError(ledgercore.ErrAppNotFound, appID)
}

func (l *Ledger) move(from basics.Address, to basics.Address, amount uint64) error {
	fbr, ok := l.balances[from]
	if !ok || fbr.balance < amount {
		return ledgercore.AccountError(ledgercore.ErrInsufficientBalance, from)
	}
	fbr.balance -= amount
	l.balances[from] = fbr
	// re-read, in case from == to
	tbr, ok := l.balances[to]
	if !ok {
		tbr = newBalanceRecord(to, 0)
	}
	tbr.balance += amount
	l.balances[to] = tbr
	return nil
}

func (l *Ledger) rekey(tx *transactions.Transaction) {
	if tx.RekeyTo.IsZero() {
		return
	}
	br := l.balances[tx.Sender]
	if tx.RekeyTo == tx.Sender {
		br.auth = basics.Address{}
	} else {
		br.auth = tx.RekeyTo
	}
	l.balances[tx.Sender] = br
}

func (l *Ledger) pay(from basics.Address, pay transactions.PaymentTxnFields) error {
	if err := l.move(from, pay.Receiver, pay.Amount.Raw); err != nil {
		return err
	}
	if !pay.CloseRemainderTo.IsZero() {
		sbr := l.balances[from]
		if len(sbr.holdings) > 0 || len(sbr.locals) > 0 {
			return fmt.Errorf("unable to close, Sender (%s) has holdings or locals", from)
		}
		if remainder := sbr.balance; remainder > 0 {
			return l.move(from, pay.CloseRemainderTo, remainder)
		}
	}
	return nil
}

func (l *Ledger) axfer(from basics.Address, xfer transactions.AssetTransferTxnFields) error {
	if !xfer.AssetSender.IsZero() {
		params, ok := l.assets[xfer.XferAsset]
		if !ok || params.Clawback != from {
			return ledgercore.AccountError(ledgercore.ErrUnauthorized, from)
		}
		from = xfer.AssetSender
	}
	to := xfer.AssetReceiver
	aid := xfer.XferAsset
	amount := xfer.AssetAmount

	fbr := l.balances[from]
	fholding, ok := fbr.holdings[aid]
	if !ok {
		if from == to && amount == 0 {
			if params, exists := l.assets[aid]; exists {
				fbr.holdings[aid] = basics.AssetHolding{Frozen: params.DefaultFrozen}
				return nil
			}
			return &ledgercore.LedgerError{Kind: ledgercore.ErrAssetNotFound, AssetID: aid}
		}
		return &ledgercore.LedgerError{Kind: ledgercore.ErrNotOptedIn, Addr: from, AssetID: aid}
	}
	tbr, ok := l.balances[to]
	if !ok {
		return ledgercore.AccountError(ledgercore.ErrAccountNotFound, to)
	}
	tholding, ok := tbr.holdings[aid]
	if !ok && amount > 0 {
		return &ledgercore.LedgerError{Kind: ledgercore.ErrNotOptedIn, Addr: to, AssetID: aid}
	}
	if fholding.Amount < amount {
		return ledgercore.AccountError(ledgercore.ErrInsufficientBalance, from)
	}
	if amount > 0 && from != to {
		fholding.Amount -= amount
		fbr.holdings[aid] = fholding
		tholding.Amount += amount
		tbr.holdings[aid] = tholding
	}
	return nil
}

func (l *Ledger) acfg(from basics.Address, cfg transactions.AssetConfigTxnFields, ad *transactions.ApplyData) error {
	if cfg.ConfigAsset == 0 {
		aid := basics.AssetIndex(l.Counter())
		l.NewAsset(from, aid, cfg.AssetParams)
		ad.ConfigAsset = aid
		return nil
	}
	// This is just a mock. We don't check the rules about reconfiguration.
	l.assets[cfg.ConfigAsset] = asaParams{
		Creator:     from,
		AssetParams: cfg.AssetParams,
	}
	return nil
}

func (l *Ledger) appl(from basics.Address, appl transactions.ApplicationCallTxnFields, ad *transactions.ApplyData, gi int, ep *EvalParams) error {
	aid := appl.ApplicationID
	if aid == 0 {
		aid = basics.AppIndex(l.Counter())
		l.NewApp(from, aid, basics.AppParams{
			ApprovalProgram:   appl.ApprovalProgram,
			ClearStateProgram: appl.ClearStateProgram,
			StateSchemas: basics.StateSchemas{
				LocalStateSchema:  appl.LocalStateSchema,
				GlobalStateSchema: appl.GlobalStateSchema,
			},
			ExtraProgramPages: appl.ExtraProgramPages,
		})
		ad.ApplicationID = aid
	}

	if appl.OnCompletion == transactions.ClearStateOC {
		return errors.New("not implemented in test ledger")
	}
	if appl.OnCompletion == transactions.OptInOC {
		l.NewLocals(from, uint64(aid))
	}

	params, ok := l.applications[aid]
	if !ok {
		return ledgercore.AppError(ledgercore.ErrAppNotFound, aid)
	}
	pass, cx, err := EvalContract(params.ApprovalProgram, gi, aid, ep)
	if err != nil {
		return err
	}
	if !pass {
		return ledgercore.AppError(ledgercore.ErrRejected, aid)
	}
	ad.EvalDelta = cx.Txn.EvalDelta

	switch appl.OnCompletion {
	case transactions.CloseOutOC:
		delete(l.balances[from].locals, aid)
	case transactions.DeleteApplicationOC:
		delete(l.applications, aid)
	case transactions.UpdateApplicationOC:
		app := l.applications[aid]
		app.ApprovalProgram = appl.ApprovalProgram
		app.ClearStateProgram = appl.ClearStateProgram
		l.applications[aid] = app
	}
	return nil
}

// Perform causes txn to "occur" against the ledger. Fees are burned.
func (l *Ledger) Perform(gi int, ep *EvalParams) error {
	txn := &ep.TxnGroup[gi]
	br, ok := l.balances[txn.Txn.Sender]
	if !ok || br.balance < txn.Txn.Fee.Raw {
		return ledgercore.AccountError(ledgercore.ErrInsufficientBalance, txn.Txn.Sender)
	}
	br.balance -= txn.Txn.Fee.Raw
	l.balances[txn.Txn.Sender] = br

	l.rekey(&txn.Txn)

	switch txn.Txn.Type {
	case protocol.PaymentTx:
		return l.pay(txn.Txn.Sender, txn.Txn.PaymentTxnFields)
	case protocol.AssetTransferTx:
		return l.axfer(txn.Txn.Sender, txn.Txn.AssetTransferTxnFields)
	case protocol.AssetConfigTx:
		return l.acfg(txn.Txn.Sender, txn.Txn.AssetConfigTxnFields, &txn.ApplyData)
	case protocol.ApplicationCallTx:
		return l.appl(txn.Txn.Sender, txn.Txn.ApplicationCallTxnFields, &txn.ApplyData, gi, ep)
	case protocol.KeyRegistrationTx, protocol.AssetFreezeTx:
		return nil // presume success in test ledger
	default:
		return fmt.Errorf("%s txn in AVM", txn.Txn.Type)
	}
}
