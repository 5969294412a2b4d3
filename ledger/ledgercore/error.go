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

package ledgercore

import (
	"errors"
	"fmt"

	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
)

// Ledger error kinds. A LedgerError carries one of these as its Kind, so
// callers test for them with errors.Is.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAppNotFound         = errors.New("application not found")
	ErrAssetNotFound       = errors.New("asset not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrSchemaViolation     = errors.New("state schema violation")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrMinBalance          = errors.New("below minimum balance")
	ErrAlreadyOptedIn      = errors.New("already opted in")
	ErrNotOptedIn          = errors.New("not opted in")
	ErrAssetFrozen         = errors.New("asset frozen")
	ErrGroupTooLarge       = errors.New("transaction group too large")
	ErrBadGroup            = errors.New("malformed transaction group")
	ErrFeeShortfall        = errors.New("insufficient fee")
	ErrTooManyInnerTxns    = errors.New("too many inner transactions")
	ErrCallDepthExceeded   = errors.New("app call depth exceeded")
	ErrAppReentrancy       = errors.New("attempt to re-enter app")
	ErrSignatureInvalid    = errors.New("signature invalid")
	ErrRejected            = errors.New("rejected by logic")
	ErrTxnDead             = errors.New("transaction outside validity window")
	ErrCreatableLimit      = errors.New("too many creatables")
	ErrInvalidTxn          = errors.New("invalid transaction")
)

// LedgerError describes a failed ledger operation. Addr, AppID and AssetID
// are filled in when they are known.
type LedgerError struct {
	Kind    error
	Addr    basics.Address
	AppID   basics.AppIndex
	AssetID basics.AssetIndex
	Err     error
}

// Error satisfies builtin interface `error`
func (le *LedgerError) Error() string {
	msg := le.Kind.Error()
	switch {
	case le.AppID != 0:
		msg = fmt.Sprintf("%s (app %d)", msg, le.AppID)
	case le.AssetID != 0:
		msg = fmt.Sprintf("%s (asset %d)", msg, le.AssetID)
	}
	if !le.Addr.IsZero() {
		msg = fmt.Sprintf("%s: %s", msg, le.Addr)
	}
	if le.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, le.Err)
	}
	return msg
}

// Unwrap exposes the cause, if any
func (le *LedgerError) Unwrap() error {
	return le.Err
}

// Is matches the error kind
func (le *LedgerError) Is(target error) bool {
	return le.Kind == target
}

// MakeError builds a LedgerError of the given kind, formatting a cause
// from format and args when format is not empty.
func MakeError(kind error, format string, args ...interface{}) *LedgerError {
	le := &LedgerError{Kind: kind}
	if format != "" {
		le.Err = fmt.Errorf(format, args...)
	}
	return le
}

// AccountError builds a LedgerError about an account
func AccountError(kind error, addr basics.Address) *LedgerError {
	return &LedgerError{Kind: kind, Addr: addr}
}

// AppError builds a LedgerError about an application
func AppError(kind error, app basics.AppIndex) *LedgerError {
	return &LedgerError{Kind: kind, AppID: app}
}

// AssetError builds a LedgerError about an asset
func AssetError(kind error, asset basics.AssetIndex) *LedgerError {
	return &LedgerError{Kind: kind, AssetID: asset}
}

// TransactionInLedgerError is returned when a transaction cannot be added because it has already been done
type TransactionInLedgerError struct {
	Txid transactions.Txid
}

// Error satisfies builtin interface `error`
func (tile TransactionInLedgerError) Error() string {
	return fmt.Sprintf("transaction already in ledger: %v", tile.Txid)
}

// LogicEvalError indicates a program faulted while evaluating the
// GroupIndex'th transaction of a group.
type LogicEvalError struct {
	GroupIndex int
	Err        error
}

// Error satisfies builtin interface `error`
func (err LogicEvalError) Error() string {
	return fmt.Sprintf("logic eval error in transaction %d: %v", err.GroupIndex, err.Err)
}

// Unwrap exposes the evaluation error
func (err LogicEvalError) Unwrap() error {
	return err.Err
}
