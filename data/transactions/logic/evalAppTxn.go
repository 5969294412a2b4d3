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

	"github.com/algorand/avm-runtime/crypto"
	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/ledger/ledgercore"
	"github.com/algorand/avm-runtime/protocol"
)

// innerTxnTypes maps the transaction types an app may issue to the program
// version that first allowed it.
var innerTxnTypes = map[string]uint64{
	string(protocol.PaymentTx):         5,
	string(protocol.AssetConfigTx):     5,
	string(protocol.AssetTransferTx):   5,
	string(protocol.AssetFreezeTx):     5,
	string(protocol.KeyRegistrationTx): 6,
	string(protocol.ApplicationCallTx): innerAppsEnabledVersion,
}

func innerErr(err error) error {
	return fmt.Errorf("%w: %w", ErrInnerTxn, err)
}

func authorizedSender(cx *EvalContext, addr basics.Address) error {
	authorizer, err := cx.Ledger.Authorizer(addr)
	if err != nil {
		return err
	}
	if cx.getApplicationAddress(cx.appID) != authorizer {
		return ledgercore.MakeError(ledgercore.ErrUnauthorized,
			"app %d (addr %s) unauthorized %s", cx.appID, cx.getApplicationAddress(cx.appID), authorizer)
	}
	return nil
}

// addInnerTxn appends a fresh SignedTxn to subtxns, populated with reasonable
// defaults.
func addInnerTxn(cx *EvalContext) error {
	addr := cx.getApplicationAddress(cx.appID)

	// Only fail here if we are already over the max inner limit, so that one
	// more inner than allowed can be built, failing in submit. The
	// MaxTxGroupSize check is precise.
	if len(cx.subtxns) > cx.remainingInners() || len(cx.subtxns) >= cx.Proto.MaxTxGroupSize {
		return innerErr(ledgercore.MakeError(ledgercore.ErrTooManyInnerTxns,
			"%d with %d left", len(cx.subtxns), cx.remainingInners()))
	}

	stxn := transactions.SignedTxnWithAD{}

	groupFee := basics.MulSaturate(cx.Proto.MinTxnFee, uint64(len(cx.subtxns)+1))
	groupPaid := uint64(0)
	for _, ptxn := range cx.subtxns {
		groupPaid = basics.AddSaturate(groupPaid, ptxn.Txn.Fee.Raw)
	}

	fee := uint64(0)
	if groupPaid < groupFee {
		fee = groupFee - groupPaid

		if cx.FeeCredit != nil {
			// Use credit to shrink the default populated fee, but don't change
			// FeeCredit here, because they might never itxn_submit, or they
			// might change the fee.  Do it in itxn_submit.
			fee = basics.SubSaturate(fee, *cx.FeeCredit)
		}
	}

	stxn.Txn.Header = transactions.Header{
		Sender:     addr,
		Fee:        basics.MicroAlgos{Raw: fee},
		FirstValid: cx.Txn.Txn.FirstValid,
		LastValid:  cx.Txn.Txn.LastValid,
	}
	cx.subtxns = append(cx.subtxns, stxn)
	return nil
}

func opTxBegin(cx *EvalContext) error {
	if len(cx.subtxns) > 0 {
		return innerErr(errors.New("itxn_begin without itxn_submit"))
	}
	if cx.Txn.Txn.OnCompletion == transactions.ClearStateOC {
		return innerErr(errors.New("clear state programs can not issue inner transactions"))
	}
	return addInnerTxn(cx)
}

func opItxnNext(cx *EvalContext) error {
	if len(cx.subtxns) == 0 {
		return innerErr(errors.New("itxn_next without itxn_begin"))
	}
	return addInnerTxn(cx)
}

// availableAccount is used instead of accountReference for more recent opcodes
// that don't need (or want!) to allow low numbers to represent the account at
// that index in Accounts array.
func (cx *EvalContext) availableAccount(sv stackValue) (basics.Address, error) {
	if sv.argType() != StackBytes || len(sv.Bytes) != crypto.DigestSize {
		return basics.Address{}, fmt.Errorf("%w: not an address", ErrTypeMismatch)
	}

	addr, _, err := cx.accountReference(sv)
	return addr, err
}

// availableAsset is used instead of asaReference for more recent opcodes that
// don't need (or want!) to allow low numbers to represent the asset at that
// index in ForeignAssets array.
func (cx *EvalContext) availableAsset(sv stackValue) (basics.AssetIndex, error) {
	uint, err := sv.uint()
	if err != nil {
		return basics.AssetIndex(0), err
	}
	aid := basics.AssetIndex(uint)

	for _, assetID := range cx.Txn.Txn.ForeignAssets {
		if assetID == aid {
			return aid, nil
		}
	}
	if cx.version >= createdResourcesVersion {
		for _, assetID := range cx.created.asas {
			if assetID == aid {
				return aid, nil
			}
		}
	}

	return basics.AssetIndex(0), fmt.Errorf("%w: invalid Asset reference %d", ErrInvalidReference, aid)
}

// availableApp is used instead of appReference for more recent (stateful)
// opcodes that don't need (or want!) to allow low numbers to represent the app
// at that index in ForeignApps array.
func (cx *EvalContext) availableApp(sv stackValue) (basics.AppIndex, error) {
	uint, err := sv.uint()
	if err != nil {
		return basics.AppIndex(0), err
	}
	aid := basics.AppIndex(uint)

	for _, appID := range cx.Txn.Txn.ForeignApps {
		if appID == aid {
			return aid, nil
		}
	}
	if cx.version >= createdResourcesVersion {
		for _, appID := range cx.created.apps {
			if appID == aid {
				return aid, nil
			}
		}
	}
	if cx.appID == aid {
		return aid, nil
	}

	return 0, fmt.Errorf("%w: invalid App reference %d", ErrInvalidReference, aid)
}

func (cx *EvalContext) maxProgramSize() int {
	return cx.Proto.MaxAppProgramLen * (1 + cx.Proto.MaxExtraAppProgramPages)
}

func (cx *EvalContext) stackIntoTxnField(sv stackValue, fs *txnFieldSpec, txn *transactions.Transaction) (err error) {
	switch fs.field {
	case Type:
		if sv.Bytes == nil {
			return fmt.Errorf("%w: Type arg not a byte array", ErrTypeMismatch)
		}
		txType := string(sv.Bytes)
		ver, ok := innerTxnTypes[txType]
		if ok && ver <= cx.version {
			txn.Type = protocol.TxType(txType)
		} else {
			err = fmt.Errorf("%w: %s is not a valid Type for itxn_field", ErrBadImmediate, txType)
		}
	case TypeEnum:
		var i uint64
		i, err = sv.uint()
		if err != nil {
			return
		}
		// i != 0 is so that the error reports 0 instead of Unknown
		if i != 0 && i < uint64(len(TxnTypeNames)) {
			ver, ok := innerTxnTypes[TxnTypeNames[i]]
			if ok && ver <= cx.version {
				txn.Type = protocol.TxType(TxnTypeNames[i])
			} else {
				err = fmt.Errorf("%w: %s is not a valid Type for itxn_field", ErrBadImmediate, TxnTypeNames[i])
			}
		} else {
			err = fmt.Errorf("%w: %d is not a valid TypeEnum", ErrBadImmediate, i)
		}
	case Sender:
		txn.Sender, err = cx.availableAccount(sv)
	case Fee:
		txn.Fee.Raw, err = sv.uint()
	case Note:
		if len(sv.Bytes) > cx.Proto.MaxTxnNoteBytes {
			return fmt.Errorf("%w: %s may not exceed %d bytes", ErrValueTooLarge, fs.field, cx.Proto.MaxTxnNoteBytes)
		}
		txn.Note = make([]byte, len(sv.Bytes))
		copy(txn.Note, sv.Bytes)
	case RekeyTo:
		txn.RekeyTo, err = sv.address()

	// KeyReg
	case VotePK:
		if len(sv.Bytes) != 32 {
			return fmt.Errorf("%w: %s must be 32 bytes", ErrTypeMismatch, fs.field)
		}
		copy(txn.VotePK[:], sv.Bytes)
	case SelectionPK:
		if len(sv.Bytes) != 32 {
			return fmt.Errorf("%w: %s must be 32 bytes", ErrTypeMismatch, fs.field)
		}
		copy(txn.SelectionPK[:], sv.Bytes)
	case VoteFirst:
		var round uint64
		round, err = sv.uint()
		txn.VoteFirst = basics.Round(round)
	case VoteLast:
		var round uint64
		round, err = sv.uint()
		txn.VoteLast = basics.Round(round)
	case VoteKeyDilution:
		txn.VoteKeyDilution, err = sv.uint()
	case Nonparticipation:
		txn.Nonparticipation, err = sv.bool()

	// Payment
	case Receiver:
		txn.Receiver, err = cx.availableAccount(sv)
	case Amount:
		txn.Amount.Raw, err = sv.uint()
	case CloseRemainderTo:
		txn.CloseRemainderTo, err = cx.availableAccount(sv)

	// AssetTransfer
	case XferAsset:
		txn.XferAsset, err = cx.availableAsset(sv)
	case AssetAmount:
		txn.AssetAmount, err = sv.uint()
	case AssetSender:
		txn.AssetSender, err = cx.availableAccount(sv)
	case AssetReceiver:
		txn.AssetReceiver, err = cx.availableAccount(sv)
	case AssetCloseTo:
		txn.AssetCloseTo, err = cx.availableAccount(sv)

	// AssetConfig
	case ConfigAsset:
		txn.ConfigAsset, err = cx.availableAsset(sv)
	case ConfigAssetTotal:
		txn.AssetParams.Total, err = sv.uint()
	case ConfigAssetDecimals:
		var decimals uint64
		decimals, err = sv.uint()
		if err == nil {
			if decimals > uint64(cx.Proto.MaxAssetDecimals) {
				err = fmt.Errorf("%w: too many decimals (%d)", ErrValueTooLarge, decimals)
			} else {
				txn.AssetParams.Decimals = uint32(decimals)
			}
		}
	case ConfigAssetDefaultFrozen:
		txn.AssetParams.DefaultFrozen, err = sv.bool()
	case ConfigAssetUnitName:
		txn.AssetParams.UnitName, err = sv.string(cx.Proto.MaxAssetUnitNameBytes)
	case ConfigAssetName:
		txn.AssetParams.AssetName, err = sv.string(cx.Proto.MaxAssetNameBytes)
	case ConfigAssetURL:
		txn.AssetParams.URL, err = sv.string(cx.Proto.MaxAssetURLBytes)
	case ConfigAssetMetadataHash:
		if len(sv.Bytes) != 32 {
			return fmt.Errorf("%w: %s must be 32 bytes", ErrTypeMismatch, fs.field)
		}
		copy(txn.AssetParams.MetadataHash[:], sv.Bytes)
	case ConfigAssetManager:
		txn.AssetParams.Manager, err = sv.address()
	case ConfigAssetReserve:
		txn.AssetParams.Reserve, err = sv.address()
	case ConfigAssetFreeze:
		txn.AssetParams.Freeze, err = sv.address()
	case ConfigAssetClawback:
		txn.AssetParams.Clawback, err = sv.address()

	// Freeze
	case FreezeAsset:
		txn.FreezeAsset, err = cx.availableAsset(sv)
	case FreezeAssetAccount:
		txn.FreezeAccount, err = cx.availableAccount(sv)
	case FreezeAssetFrozen:
		txn.AssetFrozen, err = sv.bool()

	// ApplicationCall
	case ApplicationID:
		txn.ApplicationID, err = cx.availableApp(sv)
	case OnCompletion:
		var onc uint64
		onc, err = sv.uintMaxed(uint64(transactions.DeleteApplicationOC))
		txn.OnCompletion = transactions.OnCompletion(onc)
	case ApplicationArgs:
		if sv.Bytes == nil {
			return fmt.Errorf("%w: ApplicationArg is not a byte array", ErrTypeMismatch)
		}
		total := len(sv.Bytes)
		for _, arg := range txn.ApplicationArgs {
			total += len(arg)
		}
		if total > cx.Proto.MaxAppTotalArgLen {
			return fmt.Errorf("%w: total application args length too long", ErrValueTooLarge)
		}
		if len(txn.ApplicationArgs) >= cx.Proto.MaxAppArgs {
			return fmt.Errorf("%w: too many application args", ErrValueTooLarge)
		}
		txn.ApplicationArgs = append(txn.ApplicationArgs, append([]byte(nil), sv.Bytes...))
	case Accounts:
		var addr basics.Address
		addr, err = cx.availableAccount(sv)
		if err != nil {
			return
		}
		if len(txn.Accounts) >= cx.Proto.MaxAppTxnAccounts {
			return fmt.Errorf("%w: too many foreign accounts", ErrValueTooLarge)
		}
		txn.Accounts = append(txn.Accounts, addr)
	case ApprovalProgram:
		if len(sv.Bytes) > cx.maxProgramSize() {
			return fmt.Errorf("%w: %s may not exceed %d bytes", ErrValueTooLarge, fs.field, cx.maxProgramSize())
		}
		txn.ApprovalProgram = append([]byte(nil), sv.Bytes...)
	case ApprovalProgramPages:
		if len(txn.ApprovalProgram)+len(sv.Bytes) > cx.maxProgramSize() {
			return fmt.Errorf("%w: %s may not exceed %d bytes", ErrValueTooLarge, fs.field, cx.maxProgramSize())
		}
		txn.ApprovalProgram = append(txn.ApprovalProgram, sv.Bytes...)
	case ClearStateProgram:
		if len(sv.Bytes) > cx.maxProgramSize() {
			return fmt.Errorf("%w: %s may not exceed %d bytes", ErrValueTooLarge, fs.field, cx.maxProgramSize())
		}
		txn.ClearStateProgram = append([]byte(nil), sv.Bytes...)
	case ClearStateProgramPages:
		if len(txn.ClearStateProgram)+len(sv.Bytes) > cx.maxProgramSize() {
			return fmt.Errorf("%w: %s may not exceed %d bytes", ErrValueTooLarge, fs.field, cx.maxProgramSize())
		}
		txn.ClearStateProgram = append(txn.ClearStateProgram, sv.Bytes...)
	case Assets:
		var aid basics.AssetIndex
		aid, err = cx.availableAsset(sv)
		if err != nil {
			return
		}
		if len(txn.ForeignAssets) >= cx.Proto.MaxAppTxnForeignAssets {
			return fmt.Errorf("%w: too many foreign assets", ErrValueTooLarge)
		}
		txn.ForeignAssets = append(txn.ForeignAssets, aid)
	case Applications:
		var aid basics.AppIndex
		aid, err = cx.availableApp(sv)
		if err != nil {
			return
		}
		if len(txn.ForeignApps) >= cx.Proto.MaxAppTxnForeignApps {
			return fmt.Errorf("%w: too many foreign apps", ErrValueTooLarge)
		}
		txn.ForeignApps = append(txn.ForeignApps, aid)
	case GlobalNumUint:
		txn.GlobalStateSchema.NumUint, err = sv.uintMaxed(cx.Proto.MaxGlobalSchemaEntries)
	case GlobalNumByteSlice:
		txn.GlobalStateSchema.NumByteSlice, err = sv.uintMaxed(cx.Proto.MaxGlobalSchemaEntries)
	case LocalNumUint:
		txn.LocalStateSchema.NumUint, err = sv.uintMaxed(cx.Proto.MaxLocalSchemaEntries)
	case LocalNumByteSlice:
		txn.LocalStateSchema.NumByteSlice, err = sv.uintMaxed(cx.Proto.MaxLocalSchemaEntries)
	case ExtraProgramPages:
		var epp uint64
		epp, err = sv.uintMaxed(uint64(cx.Proto.MaxExtraAppProgramPages))
		if err != nil {
			return
		}
		txn.ExtraProgramPages = uint32(epp)
	default:
		err = fmt.Errorf("%w: invalid itxn_field %s", ErrBadImmediate, fs.field)
	}
	return
}

func opItxnField(cx *EvalContext) error {
	itx := len(cx.subtxns) - 1
	if itx < 0 {
		return innerErr(errors.New("itxn_field without itxn_begin"))
	}
	last := len(cx.stack) - 1
	field := TxnField(cx.instr.Immediates[0])
	fs, ok := txnFieldSpecByField(field)
	if !ok || fs.itxVersion == 0 || fs.itxVersion > cx.version {
		return fmt.Errorf("%w: invalid itxn_field %s", ErrBadImmediate, field)
	}
	sv := cx.stack[last]
	if err := cx.stackIntoTxnField(sv, &fs, &cx.subtxns[itx].Txn); err != nil {
		return err
	}
	cx.stack = cx.stack[:last]
	return nil
}

// checkInnerAppl rejects inner app calls that re-enter an active app or
// exceed the call depth, and callees below the inner-call version.
func (cx *EvalContext) checkInnerAppl(txn *transactions.Transaction) error {
	if cx.appID == txn.ApplicationID {
		return ledgercore.AppError(ledgercore.ErrAppReentrancy, cx.appID)
	}
	depth := 0
	for parent := cx.caller; parent != nil; parent = parent.caller {
		if parent.appID == txn.ApplicationID {
			return ledgercore.AppError(ledgercore.ErrAppReentrancy, parent.appID)
		}
		depth++
	}
	if depth >= maxAppCallDepth {
		return ledgercore.MakeError(ledgercore.ErrCallDepthExceeded, "depth %d", depth)
	}

	program := txn.ApprovalProgram
	if txn.ApplicationID != 0 {
		app, _, err := cx.Ledger.AppParams(txn.ApplicationID)
		if err != nil {
			return err
		}
		program = app.ApprovalProgram
	}
	v, err := transactions.ProgramVersion(program)
	if err != nil {
		return err
	}
	if v < cx.Proto.MinInnerApplVersion {
		return fmt.Errorf("%w: inner app call with version %d < %d", ErrVersionViolation, v, cx.Proto.MinInnerApplVersion)
	}
	return nil
}

func opItxnSubmit(cx *EvalContext) error {
	if cx.Ledger == nil {
		return errNoLedger
	}

	// itxn_next checks these too, but that check allows one extra inner.
	if len(cx.subtxns) > cx.remainingInners() || len(cx.subtxns) > cx.Proto.MaxTxGroupSize {
		return innerErr(ledgercore.MakeError(ledgercore.ErrTooManyInnerTxns,
			"%d with %d left", len(cx.subtxns), cx.remainingInners()))
	}

	if len(cx.subtxns) == 0 {
		return innerErr(errors.New("itxn_submit without itxn_begin"))
	}

	// Check fees across the group first. Allows fee pooling in inner groups.
	groupFee := basics.MulSaturate(cx.Proto.MinTxnFee, uint64(len(cx.subtxns)))
	groupPaid := uint64(0)
	for _, ptxn := range cx.subtxns {
		groupPaid = basics.AddSaturate(groupPaid, ptxn.Txn.Fee.Raw)
	}
	if groupPaid < groupFee {
		// See if the FeeCredit is enough to cover the shortfall
		shortfall := groupFee - groupPaid
		if cx.FeeCredit == nil || *cx.FeeCredit < shortfall {
			return innerErr(ledgercore.MakeError(ledgercore.ErrFeeShortfall,
				"inner group paid %d, requires %d", groupPaid, groupFee))
		}
		*cx.FeeCredit -= shortfall
	} else {
		overpay := groupPaid - groupFee
		if cx.FeeCredit == nil {
			cx.FeeCredit = new(uint64)
		}
		*cx.FeeCredit = basics.AddSaturate(*cx.FeeCredit, overpay)
	}

	// All subtxns will have zero'd GroupID since GroupID can't be set in
	// AVM. (no need to blank it out before hashing for TxID)
	var group transactions.TxGroup
	var parent transactions.Txid
	isGroup := len(cx.subtxns) > 1
	if isGroup {
		parent = cx.Txn.ID()
	}
	for itx := range cx.subtxns {
		// Anything that reaches Perform is authorized and WellFormed, the
		// same as a top-level transaction.
		if err := authorizedSender(cx, cx.subtxns[itx].Txn.Sender); err != nil {
			return innerErr(err)
		}

		// WellFormed does not care about individual transaction fees
		// because of fee pooling. Checked above.
		if err := cx.subtxns[itx].Txn.WellFormed(*cx.Proto); err != nil {
			return innerErr(ledgercore.MakeError(ledgercore.ErrInvalidTxn, "%v", err))
		}

		if cx.subtxns[itx].Txn.Type == protocol.ApplicationCallTx {
			if err := cx.checkInnerAppl(&cx.subtxns[itx].Txn); err != nil {
				return innerErr(err)
			}
		}

		if isGroup {
			innerOffset := len(cx.Txn.EvalDelta.InnerTxns)
			group.TxGroupHashes = append(group.TxGroupHashes,
				crypto.Digest(cx.subtxns[itx].Txn.InnerID(parent, innerOffset)))
		}
	}

	if isGroup {
		groupID := crypto.HashObj(group)
		for itx := range cx.subtxns {
			cx.subtxns[itx].Txn.Group = groupID
		}
	}

	// Decrement allowed inners *before* execution, else runaway recursion is
	// not noticed.
	if cx.pooledAllowedInners != nil {
		*cx.pooledAllowedInners -= len(cx.subtxns)
	}

	ep := NewInnerEvalParams(cx.subtxns, cx)
	for i := range ep.TxnGroup {
		if err := cx.Ledger.Perform(i, ep); err != nil {
			return innerErr(err)
		}
		// Perform works in place, but RecordAD has further responsibilities.
		ep.RecordAD(i, ep.TxnGroup[i].ApplyData)
	}
	cx.Txn.EvalDelta.InnerTxns = append(cx.Txn.EvalDelta.InnerTxns, ep.TxnGroup...)
	cx.subtxns = nil
	return nil
}

func (cx *EvalContext) getLastInner() []transactions.SignedTxnWithAD {
	inners := cx.Txn.EvalDelta.InnerTxns
	// If there are no inners yet, return empty slice, which will result in error
	if len(inners) == 0 {
		return inners
	}
	return inners[len(inners)-1:]
}

func (cx *EvalContext) getLastInnerGroup() []transactions.SignedTxnWithAD {
	inners := cx.Txn.EvalDelta.InnerTxns
	if len(inners) == 0 {
		return inners
	}
	gid := inners[len(inners)-1].Txn.Group
	// If last inner was a singleton, return it as a slice.
	if gid.IsZero() {
		return inners[len(inners)-1:]
	}
	// Look back for the first non-matching inner (by group) to find beginning
	for i := len(inners) - 2; i >= 0; i-- {
		if inners[i].Txn.Group != gid {
			return inners[i+1:]
		}
	}
	// All have the same (non-zero) group. Return all
	return inners
}

func opItxn(cx *EvalContext) error {
	field := TxnField(cx.instr.Immediates[0])

	sv, err := cx.opTxnImpl(0, srcInner, field, 0, false)
	if err != nil {
		return err
	}
	return cx.push(sv)
}

func opItxna(cx *EvalContext) error {
	field := TxnField(cx.instr.Immediates[0])
	ai := cx.instr.Immediates[1]

	sv, err := cx.opTxnImpl(0, srcInner, field, ai, true)
	if err != nil {
		return err
	}
	return cx.push(sv)
}

func opItxnas(cx *EvalContext) error {
	last := len(cx.stack) - 1

	field := TxnField(cx.instr.Immediates[0])
	ai := cx.stack[last].Uint

	sv, err := cx.opTxnImpl(0, srcInner, field, ai, true)
	if err != nil {
		return err
	}
	cx.stack[last] = sv
	return nil
}

func opGitxn(cx *EvalContext) error {
	gi := cx.instr.Immediates[0]
	field := TxnField(cx.instr.Immediates[1])

	sv, err := cx.opTxnImpl(gi, srcInnerGroup, field, 0, false)
	if err != nil {
		return err
	}
	return cx.push(sv)
}

func opGitxna(cx *EvalContext) error {
	gi := cx.instr.Immediates[0]
	field := TxnField(cx.instr.Immediates[1])
	ai := cx.instr.Immediates[2]

	sv, err := cx.opTxnImpl(gi, srcInnerGroup, field, ai, true)
	if err != nil {
		return err
	}
	return cx.push(sv)
}

func opGitxnas(cx *EvalContext) error {
	last := len(cx.stack) - 1

	gi := cx.instr.Immediates[0]
	field := TxnField(cx.instr.Immediates[1])
	ai := cx.stack[last].Uint

	sv, err := cx.opTxnImpl(gi, srcInnerGroup, field, ai, true)
	if err != nil {
		return err
	}
	cx.stack[last] = sv
	return nil
}
