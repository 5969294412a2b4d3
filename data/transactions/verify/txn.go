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

package verify

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/algorand/avm-runtime/config"
	"github.com/algorand/avm-runtime/crypto"
	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/data/transactions/logic"
	"github.com/algorand/avm-runtime/ledger/ledgercore"
	"github.com/algorand/avm-runtime/logging"
)

var logicGoodTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "avm_logic_ok_total", Help: "Total transaction scripts executed and accepted"})
var logicRejTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "avm_logic_rej_total", Help: "Total transaction scripts executed and rejected"})
var logicErrTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "avm_logic_err_total", Help: "Total transaction scripts executed and errored"})
var logicCostTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "avm_logic_cost_total", Help: "Total cost of transaction scripts executed"})
var msigTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "avm_verify_msig_total", Help: "Total multisig checks, by number of subsignatures"}, []string{"sigs"})

// Collectors returns the verifier's metrics so an embedder can register them.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{logicGoodTotal, logicRejTotal, logicErrTotal, logicCostTotal, msigTotal}
}

func countMsig(sigs int) {
	switch {
	case sigs <= 4:
		msigTotal.WithLabelValues("1-4").Inc()
	case sigs <= 10:
		msigTotal.WithLabelValues("5-10").Inc()
	default:
		msigTotal.WithLabelValues("11+").Inc()
	}
}

var errTxnSigHasNoSig = errors.New("signedtxn has no sig")
var errTxnSigNotWellFormed = errors.New("signedtxn should only have one of Sig or Msig or LogicSig")
var errRekeyingNotSupported = errors.New("nonempty AuthAddr but rekeying is not supported")
var errUnknownSignature = errors.New("has one mystery sig. WAT?")

// TxGroupErrorReason is reason code for ErrTxGroupError
type TxGroupErrorReason int

const (
	// TxGroupErrorReasonGeneric is a generic (not tracked) reason code
	TxGroupErrorReasonGeneric TxGroupErrorReason = iota
	// TxGroupErrorReasonHasNoSig is for transaction without any signature
	TxGroupErrorReasonHasNoSig
	// TxGroupErrorReasonSigNotWellFormed defines signature format errors
	TxGroupErrorReasonSigNotWellFormed
	// TxGroupErrorReasonMsigNotWellFormed defines multisig format errors
	TxGroupErrorReasonMsigNotWellFormed
	// TxGroupErrorReasonLogicSigFailed defines logic sig validation errors
	TxGroupErrorReasonLogicSigFailed
	// TxGroupErrorReasonLogicSigRejected is a logicsig that ran but did not accept
	TxGroupErrorReasonLogicSigRejected
)

// TxGroupError is an error from signature verification of a group member.
// It unwraps into the underlying error, and matches
// ledgercore.ErrSignatureInvalid (or ledgercore.ErrRejected, for a logicsig
// that ran and did not accept) with errors.Is.
type TxGroupError struct {
	err error
	// GroupIndex is the index of the transaction in the group that failed.
	GroupIndex int
	Reason     TxGroupErrorReason
}

// Error returns an error message from the underlying error
func (e *TxGroupError) Error() string {
	return fmt.Sprintf("transaction %d: %v", e.GroupIndex, e.err)
}

// Unwrap returns an underlying error
func (e *TxGroupError) Unwrap() error {
	return e.err
}

// Is reports the ledger error kind of the failure
func (e *TxGroupError) Is(target error) bool {
	if e.Reason == TxGroupErrorReasonLogicSigRejected {
		return target == ledgercore.ErrRejected
	}
	return target == ledgercore.ErrSignatureInvalid
}

// GroupContext holds values used to evaluate the LogicSigs in a group.
type GroupContext struct {
	consensusParams config.ConsensusParams
	signedGroupTxns []transactions.SignedTxn
	evalParams      *logic.EvalParams
}

// PrepareGroupContext prepares a GroupContext for a given transaction group.
// ledger may be nil; logicsigs then cannot read the round or timestamp.
func PrepareGroupContext(group []transactions.SignedTxn, proto config.ConsensusParams, ledger logic.LedgerForLogic, log logging.Logger) *GroupContext {
	if len(group) == 0 {
		return nil
	}
	ep := logic.NewEvalParams(transactions.WrapSignedTxnsWithAD(group), &proto)
	ep.Ledger = ledger
	if log != nil {
		ep.SetLogger(log)
	}
	return &GroupContext{
		consensusParams: proto,
		signedGroupTxns: group,
		evalParams:      ep,
	}
}

// TxnGroup verifies the signatures of every transaction in stxs. Each
// signature is checked against the authorizer the transaction claims
// (SignedTxn.Authorizer); matching that claim to the ledger's view of the
// sender is the evaluator's job.
func TxnGroup(stxs []transactions.SignedTxn, proto config.ConsensusParams, ledger logic.LedgerForLogic, log logging.Logger) (*GroupContext, error) {
	groupCtx := PrepareGroupContext(stxs, proto, ledger, log)
	for i := range stxs {
		if err := stxnCoreChecks(i, groupCtx); err != nil {
			return nil, err
		}
	}
	return groupCtx, nil
}

type sigOrTxnType int

const regularSig sigOrTxnType = 1
const multiSig sigOrTxnType = 2
const logicSig sigOrTxnType = 3

// checkTxnSigTypeCounts checks the number of signature types and reports an error in case of a violation
func checkTxnSigTypeCounts(s *transactions.SignedTxn, groupIndex int) (sigType sigOrTxnType, err *TxGroupError) {
	numSigCategories := 0
	if !s.Sig.Blank() {
		numSigCategories++
		sigType = regularSig
	}
	if !s.Msig.Blank() {
		numSigCategories++
		sigType = multiSig
	}
	if !s.Lsig.Blank() {
		numSigCategories++
		sigType = logicSig
	}
	if numSigCategories == 0 {
		return 0, &TxGroupError{err: errTxnSigHasNoSig, GroupIndex: groupIndex, Reason: TxGroupErrorReasonHasNoSig}
	}
	if numSigCategories > 1 {
		return 0, &TxGroupError{err: errTxnSigNotWellFormed, GroupIndex: groupIndex, Reason: TxGroupErrorReasonSigNotWellFormed}
	}
	return sigType, nil
}

// stxnCoreChecks runs signatures validity checks and enqueues signature into batchVerifier for verification.
func stxnCoreChecks(gi int, groupCtx *GroupContext) *TxGroupError {
	s := &groupCtx.signedGroupTxns[gi]
	if !groupCtx.consensusParams.SupportRekeying && (s.AuthAddr != basics.Address{}) {
		return &TxGroupError{err: errRekeyingNotSupported, GroupIndex: gi, Reason: TxGroupErrorReasonSigNotWellFormed}
	}
	sigType, err := checkTxnSigTypeCounts(s, gi)
	if err != nil {
		return err
	}

	switch sigType {
	case regularSig:
		if !crypto.SignatureVerifier(s.Authorizer()).Verify(s.Txn, s.Sig) {
			return &TxGroupError{err: errors.New("signature validation failed"), GroupIndex: gi, Reason: TxGroupErrorReasonSigNotWellFormed}
		}
		return nil
	case multiSig:
		if err := crypto.MultisigVerify(s.Txn, crypto.Digest(s.Authorizer()), s.Msig); err != nil {
			return &TxGroupError{err: fmt.Errorf("multisig validation failed: %w", err), GroupIndex: gi, Reason: TxGroupErrorReasonMsigNotWellFormed}
		}
		countMsig(s.Msig.Signatures())
		return nil

	case logicSig:
		return logicSigVerify(gi, groupCtx)

	default:
		return &TxGroupError{err: errUnknownSignature, GroupIndex: gi, Reason: TxGroupErrorReasonGeneric}
	}
}

// LogicSigSanityCheck checks that the signature is valid and that the program is basically well formed.
// It does not evaluate the logic.
func LogicSigSanityCheck(gi int, groupCtx *GroupContext) error {
	if groupCtx.consensusParams.LogicSigVersion == 0 {
		return errors.New("LogicSig not enabled")
	}
	if gi < 0 {
		return errors.New("negative group index")
	}
	txn := &groupCtx.signedGroupTxns[gi]
	lsig := txn.Lsig

	if len(lsig.Logic) == 0 {
		return errors.New("LogicSig.Logic empty")
	}
	if uint64(lsig.Len()) > groupCtx.consensusParams.LogicSigMaxSize {
		return errors.New("LogicSig too long")
	}

	if err := logic.CheckSignature(gi, groupCtx.evalParams); err != nil {
		return err
	}
	if err := LogicSig(&lsig, txn.Authorizer()); err != nil {
		return err
	}
	if !lsig.Msig.Blank() {
		countMsig(lsig.Msig.Signatures())
	}
	return nil
}

// LogicSig checks that lsig authorizes signer: either signer is the escrow
// address of the program, or the program was signed by signer's key, or by
// enough members of the multisig account signer. The program itself is not
// run.
func LogicSig(lsig *transactions.LogicSig, signer basics.Address) error {
	if err := lsig.Verify(signer); err != nil {
		return &ledgercore.LedgerError{Kind: ledgercore.ErrSignatureInvalid, Addr: signer, Err: err}
	}
	return nil
}

// logicSigVerify checks that the signature is valid, executing the program.
func logicSigVerify(gi int, groupCtx *GroupContext) *TxGroupError {
	if err := LogicSigSanityCheck(gi, groupCtx); err != nil {
		return &TxGroupError{err: err, GroupIndex: gi, Reason: TxGroupErrorReasonLogicSigFailed}
	}

	pass, cx, err := logic.EvalSignatureFull(gi, groupCtx.evalParams)
	if err != nil {
		logicErrTotal.Inc()
		return &TxGroupError{err: fmt.Errorf("transaction %v: %w", groupCtx.signedGroupTxns[gi].ID(), err), GroupIndex: gi, Reason: TxGroupErrorReasonLogicSigFailed}
	}
	if !pass {
		logicRejTotal.Inc()
		return &TxGroupError{err: fmt.Errorf("transaction %v: rejected by logic", groupCtx.signedGroupTxns[gi].ID()), GroupIndex: gi, Reason: TxGroupErrorReasonLogicSigRejected}
	}
	logicGoodTotal.Inc()
	logicCostTotal.Add(float64(cx.Cost()))
	return nil
}
