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
	"encoding/binary"
	"fmt"

	"github.com/algorand/go-deadlock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/algorand/avm-runtime/config"
	"github.com/algorand/avm-runtime/crypto"
	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/ledger/eval"
	"github.com/algorand/avm-runtime/ledger/ledgercore"
	"github.com/algorand/avm-runtime/logging"
)

// Ledger is the authoritative in-memory state of the runtime: accounts,
// the creatable index, the round and timestamp, and the log of receipts.
// All state changes go through ExecuteTx, which applies a transaction
// group atomically.
type Ledger struct {
	mu deadlock.RWMutex

	accounts map[basics.Address]basics.AccountData
	creators map[basics.CreatableIndex]basics.CreatableLocator

	// counter is the index most recently given to an app or asset.
	counter   uint64
	round     basics.Round
	timestamp int64

	txTail   txTail
	receipts map[transactions.Txid]Receipt

	// keys holds the signing secrets of accounts made by NewAccount, so
	// the high level operations can sign on their behalf.
	keys map[basics.Address]*crypto.SignatureSecrets

	// nonce makes the notes of generated transactions unique, so that
	// repeating an operation does not repeat a txid.
	nonce uint64

	cfg   config.Local
	proto config.ConsensusParams
	log   logging.Logger

	metrics metricsTracker
}

// Account is an account created by the ledger, whose key the ledger holds.
type Account struct {
	Address basics.Address
	secrets *crypto.SignatureSecrets
}

// Sign signs txn with the account's key.
func (a *Account) Sign(txn transactions.Transaction) transactions.SignedTxn {
	return txn.Sign(a.secrets)
}

// NewLedger makes an empty ledger configured by cfg.
func NewLedger(cfg config.Local, log logging.Logger) (*Ledger, error) {
	proto, ok := cfg.ConsensusParams()
	if !ok {
		return nil, fmt.Errorf("NewLedger: unknown consensus version %q", cfg.ConsensusVersion)
	}
	if log == nil {
		log = logging.Base()
	}

	l := &Ledger{
		accounts:  make(map[basics.Address]basics.AccountData),
		creators:  make(map[basics.CreatableIndex]basics.CreatableLocator),
		round:     basics.Round(cfg.InitialRound),
		timestamp: cfg.InitialTimestamp,
		receipts:  make(map[transactions.Txid]Receipt),
		keys:      make(map[basics.Address]*crypto.SignatureSecrets),
		cfg:       cfg,
		proto:     proto,
		log:       log,
	}
	l.txTail.init()
	l.metrics.init(cfg.EnableMetrics)
	l.metrics.setRound(uint64(l.round))
	return l, nil
}

// Registry returns the prometheus registry holding the ledger's metrics,
// or nil if metrics are disabled.
func (l *Ledger) Registry() *prometheus.Registry {
	return l.metrics.registry
}

// ConsensusParams returns the protocol parameters the ledger runs with.
func (l *Ledger) ConsensusParams() config.ConsensusParams {
	return l.proto
}

// NewAccount generates a key pair, funds its address with balance and
// keeps the key for signing.
func (l *Ledger) NewAccount(balance uint64) *Account {
	secrets := crypto.NewSignatureSecrets()
	acct := &Account{Address: basics.Address(secrets.SignatureVerifier), secrets: secrets}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys[acct.Address] = secrets
	l.fund(acct.Address, balance)
	return acct
}

// AddAccount credits balance to addr without a transaction. It is how
// funds enter the ledger. The ledger holds no key for addr, so addr can
// only act through a logicsig, a rekey, or as an app account.
func (l *Ledger) AddAccount(addr basics.Address, balance uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fund(addr, balance)
}

func (l *Ledger) fund(addr basics.Address, balance uint64) {
	acct := l.accounts[addr]
	acct.MicroAlgos = basics.MicroAlgos{Raw: basics.AddSaturate(acct.MicroAlgos.Raw, balance)}
	l.accounts[addr] = acct
	l.log.Debugf("funded %v with %d", addr, balance)
}

// GetAccount returns a copy of the account at addr.
func (l *Ledger) GetAccount(addr basics.Address) (basics.AccountData, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[addr]
	if !ok {
		return basics.AccountData{}, ledgercore.AccountError(ledgercore.ErrAccountNotFound, addr)
	}
	return acct.Clone(), nil
}

// MinBalance returns the minimum balance addr currently must keep.
func (l *Ledger) MinBalance(addr basics.Address) (basics.MicroAlgos, error) {
	acct, err := l.GetAccount(addr)
	if err != nil {
		return basics.MicroAlgos{}, err
	}
	return acct.MinBalance(l.proto.BalanceRequirements()), nil
}

// Round returns the current round.
func (l *Ledger) Round() basics.Round {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.round
}

// SetRound moves the ledger to rnd. Transactions whose validity window
// ended before rnd are forgotten.
func (l *Ledger) SetRound(rnd basics.Round) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setRound(rnd)
}

func (l *Ledger) setRound(rnd basics.Round) {
	l.round = rnd
	l.txTail.committedUpTo(rnd)
	l.metrics.setRound(uint64(rnd))
}

// LatestTimestamp returns the timestamp programs see as the latest block's.
func (l *Ledger) LatestTimestamp() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.timestamp
}

// SetTimestamp sets the timestamp programs see as the latest block's.
func (l *Ledger) SetTimestamp(ts int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamp = ts
}

// Receipt returns the receipt of a committed transaction.
func (l *Ledger) Receipt(txid transactions.Txid) (Receipt, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.receipts[txid]
	return r, ok
}

// SignTxn signs txn with the key of whoever currently authorizes its
// sender: the sender itself or the account it was rekeyed to.
func (l *Ledger) SignTxn(txn transactions.Transaction) (transactions.SignedTxn, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.signTxn(txn)
}

func (l *Ledger) signTxn(txn transactions.Transaction) (transactions.SignedTxn, error) {
	authorizer := txn.Sender
	if acct, ok := l.accounts[txn.Sender]; ok && !acct.AuthAddr.IsZero() {
		authorizer = acct.AuthAddr
	}
	secrets, ok := l.keys[authorizer]
	if !ok {
		return transactions.SignedTxn{}, &ledgercore.LedgerError{
			Kind: ledgercore.ErrUnauthorized,
			Addr: txn.Sender,
			Err:  fmt.Errorf("no key held for authorizer %v", authorizer),
		}
	}
	return txn.Sign(secrets), nil
}

// ExecuteTx evaluates group and commits it if every member succeeds. On
// any failure the ledger is left exactly as it was.
func (l *Ledger) ExecuteTx(group ...transactions.SignedTxn) ([]Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.executeTx(group)
}

func (l *Ledger) executeTx(group []transactions.SignedTxn) ([]Receipt, error) {
	evaluator := eval.NewEvaluator(ledgerView{l}, l.proto, l.log)
	if l.cfg.EnableProgramTrace {
		evaluator.EnableTrace()
	}

	ads, err := evaluator.TransactionGroup(group)
	if err != nil {
		l.metrics.failedGroup(eval.IsRejection(err), evaluator.Cost())
		l.log.WithFields(logging.Fields{
			"round": l.round,
			"size":  len(group),
		}).Debugf("group rolled back: %v", err)
		return nil, err
	}

	delta := evaluator.Delta()
	l.commit(delta)

	receipts := make([]Receipt, len(group))
	for gi := range group {
		receipts[gi] = makeReceipt(group[gi], ads[gi], l.round)
		l.receipts[receipts[gi].Txid] = receipts[gi]
	}

	l.metrics.newGroup(len(group), evaluator.InnerCount(), evaluator.Cost())
	l.log.WithFields(logging.Fields{
		"round":    l.round,
		"size":     len(group),
		"accounts": delta.Len(),
		"cost":     evaluator.Cost(),
	}).Info("group committed")

	if l.cfg.DevMode {
		l.setRound(l.round + 1)
	}
	return receipts, nil
}

// commit folds delta into the ledger. Accounts left empty are deleted.
func (l *Ledger) commit(delta ledgercore.StateDelta) {
	for _, addr := range delta.ModifiedAccounts() {
		data := delta.Accts[addr]
		if data.IsZero() {
			delete(l.accounts, addr)
			continue
		}
		l.accounts[addr] = data
	}
	for cidx, mc := range delta.Creatables {
		if mc.Created {
			l.creators[cidx] = basics.CreatableLocator{Type: mc.Ctype, Creator: mc.Creator, Index: cidx}
		} else {
			delete(l.creators, cidx)
		}
	}
	if delta.TxnCounter > l.counter {
		l.counter = delta.TxnCounter
	}
	l.txTail.newGroup(delta)
}

// makeTxn builds a transaction of the given type from sender, valid from
// the current round for as long as the protocol allows.
func (l *Ledger) makeTxn(sender basics.Address) transactions.Transaction {
	l.nonce++
	note := make([]byte, 8)
	binary.BigEndian.PutUint64(note, l.nonce)
	return transactions.Transaction{
		Header: transactions.Header{
			Sender:     sender,
			Fee:        basics.MicroAlgos{Raw: l.proto.MinTxnFee},
			FirstValid: l.round,
			LastValid:  l.round + basics.Round(l.proto.MaxTxnLife),
			Note:       note,
		},
	}
}

// submit signs and executes a single transaction built by one of the high
// level operations.
func (l *Ledger) submit(txn transactions.Transaction) (Receipt, error) {
	stxn, err := l.signTxn(txn)
	if err != nil {
		return Receipt{}, err
	}
	receipts, err := l.executeTx([]transactions.SignedTxn{stxn})
	if err != nil {
		return Receipt{}, err
	}
	return receipts[0], nil
}

// ledgerView gives the evaluator read access to a ledger whose lock is
// already held.
type ledgerView struct {
	l *Ledger
}

func (v ledgerView) LookupAccount(addr basics.Address) (basics.AccountData, error) {
	return v.l.accounts[addr], nil
}

func (v ledgerView) GetCreator(cidx basics.CreatableIndex, ctype basics.CreatableType) (basics.Address, bool, error) {
	loc, ok := v.l.creators[cidx]
	if !ok || loc.Type != ctype {
		return basics.Address{}, false, nil
	}
	return loc.Creator, true, nil
}

func (v ledgerView) Counter() uint64 {
	return v.l.counter
}

func (v ledgerView) Round() basics.Round {
	return v.l.round
}

func (v ledgerView) LatestTimestamp() int64 {
	return v.l.timestamp
}

func (v ledgerView) CheckDup(txid transactions.Txid) error {
	if v.l.txTail.isDup(txid) {
		return &ledgercore.TransactionInLedgerError{Txid: txid}
	}
	return nil
}
