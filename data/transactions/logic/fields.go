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
	"fmt"

	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/protocol"
)

// FieldSpec unifies the various specs for assembly and evaluation
type FieldSpec interface {
	Field() byte
	Type() StackType
	OpVersion() uint64
}

// FieldGroup binds all the info for a field (names, int value, spec access)
// so they can be attached to opcodes and used by the assembler
type FieldGroup struct {
	Name  string
	Names []string
	specs map[string]FieldSpec
}

// SpecByName returns a FieldsSpec for a name, respecting the "sparseness"
// of the Names array to hide some names
func (fg *FieldGroup) SpecByName(name string) (FieldSpec, bool) {
	fs, ok := fg.specs[name]
	return fs, ok
}

func makeFieldGroup(name string, names []string, specs []FieldSpec) FieldGroup {
	fg := FieldGroup{Name: name, Names: names, specs: make(map[string]FieldSpec, len(specs))}
	for _, s := range specs {
		fg.specs[names[s.Field()]] = s
	}
	return fg
}

// TxnField is an enum type for `txn` and `gtxn`
type TxnField byte

const (
	// Sender Transaction.Sender
	Sender TxnField = iota
	// Fee Transaction.Fee
	Fee
	// FirstValid Transaction.FirstValid
	FirstValid
	// FirstValidTime is not available in this runtime
	FirstValidTime
	// LastValid Transaction.LastValid
	LastValid
	// Note Transaction.Note
	Note
	// Lease Transaction.Lease
	Lease
	// Receiver Transaction.Receiver
	Receiver
	// Amount Transaction.Amount
	Amount
	// CloseRemainderTo Transaction.CloseRemainderTo
	CloseRemainderTo
	// VotePK Transaction.VotePK
	VotePK
	// SelectionPK Transaction.SelectionPK
	SelectionPK
	// VoteFirst Transaction.VoteFirst
	VoteFirst
	// VoteLast Transaction.VoteLast
	VoteLast
	// VoteKeyDilution Transaction.VoteKeyDilution
	VoteKeyDilution
	// Type Transaction.Type
	Type
	// TypeEnum int(Transaction.Type)
	TypeEnum
	// XferAsset Transaction.XferAsset
	XferAsset
	// AssetAmount Transaction.AssetAmount
	AssetAmount
	// AssetSender Transaction.AssetSender
	AssetSender
	// AssetReceiver Transaction.AssetReceiver
	AssetReceiver
	// AssetCloseTo Transaction.AssetCloseTo
	AssetCloseTo
	// GroupIndex i for txngroup[i] == Txn
	GroupIndex
	// TxID Transaction.ID()
	TxID
	// ApplicationID basics.AppIndex
	ApplicationID
	// OnCompletion OnCompletion
	OnCompletion
	// ApplicationArgs  [][]byte
	ApplicationArgs
	// NumAppArgs len(ApplicationArgs)
	NumAppArgs
	// Accounts []basics.Address
	Accounts
	// NumAccounts len(Accounts)
	NumAccounts
	// ApprovalProgram []byte
	ApprovalProgram
	// ClearStateProgram []byte
	ClearStateProgram
	// RekeyTo basics.Address
	RekeyTo
	// ConfigAsset basics.AssetIndex
	ConfigAsset
	// ConfigAssetTotal AssetParams.Total
	ConfigAssetTotal
	// ConfigAssetDecimals AssetParams.Decimals
	ConfigAssetDecimals
	// ConfigAssetDefaultFrozen AssetParams.AssetDefaultFrozen
	ConfigAssetDefaultFrozen
	// ConfigAssetUnitName AssetParams.UnitName
	ConfigAssetUnitName
	// ConfigAssetName AssetParams.AssetName
	ConfigAssetName
	// ConfigAssetURL AssetParams.URL
	ConfigAssetURL
	// ConfigAssetMetadataHash AssetParams.MetadataHash
	ConfigAssetMetadataHash
	// ConfigAssetManager AssetParams.Manager
	ConfigAssetManager
	// ConfigAssetReserve AssetParams.Reserve
	ConfigAssetReserve
	// ConfigAssetFreeze AssetParams.Freeze
	ConfigAssetFreeze
	// ConfigAssetClawback AssetParams.Clawback
	ConfigAssetClawback
	//FreezeAsset  basics.AssetIndex
	FreezeAsset
	// FreezeAssetAccount basics.Address
	FreezeAssetAccount
	// FreezeAssetFrozen bool
	FreezeAssetFrozen
	// Assets []basics.AssetIndex
	Assets
	// NumAssets len(ForeignAssets)
	NumAssets
	// Applications []basics.AppIndex
	Applications
	// NumApplications len(ForeignApps)
	NumApplications

	// GlobalNumUint uint64
	GlobalNumUint
	// GlobalNumByteSlice uint64
	GlobalNumByteSlice
	// LocalNumUint uint64
	LocalNumUint
	// LocalNumByteSlice uint64
	LocalNumByteSlice

	// ExtraProgramPages AppParams.ExtraProgramPages
	ExtraProgramPages

	// Nonparticipation Transaction.Nonparticipation
	Nonparticipation

	// Logs Transaction.ApplyData.EvalDelta.Logs
	Logs

	// NumLogs len(Logs)
	NumLogs

	// CreatedAssetID Transaction.ApplyData.EvalDelta.ConfigAsset
	CreatedAssetID

	// CreatedApplicationID Transaction.ApplyData.EvalDelta.ApplicationID
	CreatedApplicationID

	// LastLog Logs[len(Logs)-1]
	LastLog

	// ApprovalProgramPages [][]byte
	ApprovalProgramPages

	// NumApprovalProgramPages = len(ApprovalProgramPages) // 4096
	NumApprovalProgramPages

	// ClearStateProgramPages [][]byte
	ClearStateProgramPages

	// NumClearStateProgramPages = len(ClearStateProgramPages) // 4096
	NumClearStateProgramPages

	invalidTxnField // compile-time constant for number of fields
)

var txnFieldNames = [...]string{
	"Sender", "Fee", "FirstValid", "FirstValidTime", "LastValid", "Note", "Lease",
	"Receiver", "Amount", "CloseRemainderTo", "VotePK", "SelectionPK", "VoteFirst",
	"VoteLast", "VoteKeyDilution", "Type", "TypeEnum", "XferAsset", "AssetAmount",
	"AssetSender", "AssetReceiver", "AssetCloseTo", "GroupIndex", "TxID",
	"ApplicationID", "OnCompletion", "ApplicationArgs", "NumAppArgs", "Accounts",
	"NumAccounts", "ApprovalProgram", "ClearStateProgram", "RekeyTo", "ConfigAsset",
	"ConfigAssetTotal", "ConfigAssetDecimals", "ConfigAssetDefaultFrozen",
	"ConfigAssetUnitName", "ConfigAssetName", "ConfigAssetURL", "ConfigAssetMetadataHash",
	"ConfigAssetManager", "ConfigAssetReserve", "ConfigAssetFreeze", "ConfigAssetClawback",
	"FreezeAsset", "FreezeAssetAccount", "FreezeAssetFrozen", "Assets", "NumAssets",
	"Applications", "NumApplications", "GlobalNumUint", "GlobalNumByteSlice",
	"LocalNumUint", "LocalNumByteSlice", "ExtraProgramPages", "Nonparticipation",
	"Logs", "NumLogs", "CreatedAssetID", "CreatedApplicationID", "LastLog",
	"ApprovalProgramPages", "NumApprovalProgramPages",
	"ClearStateProgramPages", "NumClearStateProgramPages",
}

func (tf TxnField) String() string {
	if int(tf) < len(txnFieldNames) {
		return txnFieldNames[tf]
	}
	return fmt.Sprintf("TxnField(%d)", byte(tf))
}

type txnFieldSpec struct {
	field      TxnField
	ftype      StackType
	array      bool   // Is this an array field?
	version    uint64 // When this field become available to txn/gtxn. 0=always
	itxVersion uint64 // When this field become available to itxn_field. 0=never
	effects    bool   // Is this a field on the "effects"? That is, something in ApplyData
}

func (fs txnFieldSpec) Field() byte {
	return byte(fs.field)
}
func (fs txnFieldSpec) Type() StackType {
	return fs.ftype
}
func (fs txnFieldSpec) OpVersion() uint64 {
	return fs.version
}

var txnFieldSpecs = [...]txnFieldSpec{
	{Sender, StackBytes, false, 0, 5, false},
	{Fee, StackUint64, false, 0, 5, false},
	{FirstValid, StackUint64, false, 0, 0, false},
	{FirstValidTime, StackUint64, false, 7, 0, false},
	{LastValid, StackUint64, false, 0, 0, false},
	{Note, StackBytes, false, 0, 6, false},
	{Lease, StackBytes, false, 0, 0, false},
	{Receiver, StackBytes, false, 0, 5, false},
	{Amount, StackUint64, false, 0, 5, false},
	{CloseRemainderTo, StackBytes, false, 0, 5, false},
	{VotePK, StackBytes, false, 0, 6, false},
	{SelectionPK, StackBytes, false, 0, 6, false},
	{VoteFirst, StackUint64, false, 0, 6, false},
	{VoteLast, StackUint64, false, 0, 6, false},
	{VoteKeyDilution, StackUint64, false, 0, 6, false},
	{Type, StackBytes, false, 0, 5, false},
	{TypeEnum, StackUint64, false, 0, 5, false},
	{XferAsset, StackUint64, false, 0, 5, false},
	{AssetAmount, StackUint64, false, 0, 5, false},
	{AssetSender, StackBytes, false, 0, 5, false},
	{AssetReceiver, StackBytes, false, 0, 5, false},
	{AssetCloseTo, StackBytes, false, 0, 5, false},
	{GroupIndex, StackUint64, false, 0, 0, false},
	{TxID, StackBytes, false, 0, 0, false},
	{ApplicationID, StackUint64, false, 2, 6, false},
	{OnCompletion, StackUint64, false, 2, 6, false},
	{ApplicationArgs, StackBytes, true, 2, 6, false},
	{NumAppArgs, StackUint64, false, 2, 0, false},
	{Accounts, StackBytes, true, 2, 6, false},
	{NumAccounts, StackUint64, false, 2, 0, false},
	{ApprovalProgram, StackBytes, false, 2, 6, false},
	{ClearStateProgram, StackBytes, false, 2, 6, false},
	{RekeyTo, StackBytes, false, 2, 6, false},
	{ConfigAsset, StackUint64, false, 2, 5, false},
	{ConfigAssetTotal, StackUint64, false, 2, 5, false},
	{ConfigAssetDecimals, StackUint64, false, 2, 5, false},
	{ConfigAssetDefaultFrozen, StackUint64, false, 2, 5, false},
	{ConfigAssetUnitName, StackBytes, false, 2, 5, false},
	{ConfigAssetName, StackBytes, false, 2, 5, false},
	{ConfigAssetURL, StackBytes, false, 2, 5, false},
	{ConfigAssetMetadataHash, StackBytes, false, 2, 5, false},
	{ConfigAssetManager, StackBytes, false, 2, 5, false},
	{ConfigAssetReserve, StackBytes, false, 2, 5, false},
	{ConfigAssetFreeze, StackBytes, false, 2, 5, false},
	{ConfigAssetClawback, StackBytes, false, 2, 5, false},
	{FreezeAsset, StackUint64, false, 2, 5, false},
	{FreezeAssetAccount, StackBytes, false, 2, 5, false},
	{FreezeAssetFrozen, StackUint64, false, 2, 5, false},
	{Assets, StackUint64, true, 3, 6, false},
	{NumAssets, StackUint64, false, 3, 0, false},
	{Applications, StackUint64, true, 3, 6, false},
	{NumApplications, StackUint64, false, 3, 0, false},
	{GlobalNumUint, StackUint64, false, 3, 6, false},
	{GlobalNumByteSlice, StackUint64, false, 3, 6, false},
	{LocalNumUint, StackUint64, false, 3, 6, false},
	{LocalNumByteSlice, StackUint64, false, 3, 6, false},
	{ExtraProgramPages, StackUint64, false, 4, 6, false},
	{Nonparticipation, StackUint64, false, 5, 6, false},
	{Logs, StackBytes, true, 5, 0, true},
	{NumLogs, StackUint64, false, 5, 0, true},
	{CreatedAssetID, StackUint64, false, 5, 0, true},
	{CreatedApplicationID, StackUint64, false, 5, 0, true},
	{LastLog, StackBytes, false, 6, 0, true},
	{ApprovalProgramPages, StackBytes, true, 7, 7, false},
	{NumApprovalProgramPages, StackUint64, false, 7, 0, false},
	{ClearStateProgramPages, StackBytes, true, 7, 7, false},
	{NumClearStateProgramPages, StackUint64, false, 7, 0, false},
}

// TxnFields contains info on the arguments to the txn* family of opcodes
var TxnFields FieldGroup

// TxnScalarFields narrows TxnFields to only have the names of scalar fetching opcodes
var TxnScalarFields FieldGroup

// TxnArrayFields narows TxnFields to only have the names of array fetching opcodes
var TxnArrayFields FieldGroup

// ItxnSettableFields collects info for itxn_field opcode
var ItxnSettableFields FieldGroup

func txnFieldSpecByField(f TxnField) (txnFieldSpec, bool) {
	if int(f) >= len(txnFieldSpecs) {
		return txnFieldSpec{}, false
	}
	return txnFieldSpecs[f], true
}

// TxnTypeNames is the values of Txn.Type in enum order
var TxnTypeNames = [...]string{
	string(protocol.UnknownTx),
	string(protocol.PaymentTx),
	string(protocol.KeyRegistrationTx),
	string(protocol.AssetConfigTx),
	string(protocol.AssetTransferTx),
	string(protocol.AssetFreezeTx),
	string(protocol.ApplicationCallTx),
}

// map txn type names (long and short) to index/enum value
var txnTypeMap = make(map[string]uint64)

// OnCompletionConstType is the same as transactions.OnCompletion
type OnCompletionConstType transactions.OnCompletion

const (
	// NoOp = transactions.NoOpOC
	NoOp = OnCompletionConstType(transactions.NoOpOC)
	// OptIn = transactions.OptInOC
	OptIn = OnCompletionConstType(transactions.OptInOC)
	// CloseOut = transactions.CloseOutOC
	CloseOut = OnCompletionConstType(transactions.CloseOutOC)
	// ClearState = transactions.ClearStateOC
	ClearState = OnCompletionConstType(transactions.ClearStateOC)
	// UpdateApplication = transactions.UpdateApplicationOC
	UpdateApplication = OnCompletionConstType(transactions.UpdateApplicationOC)
	// DeleteApplication = transactions.DeleteApplicationOC
	DeleteApplication = OnCompletionConstType(transactions.DeleteApplicationOC)
	// end of constants
	invalidOnCompletionConst = DeleteApplication + 1
)

// OnCompletionNames is the string names of Txn.OnCompletion, array index is the const value
var OnCompletionNames [invalidOnCompletionConst]string

// onCompletionMap maps symbolic name to uint64 for assembleInt
var onCompletionMap map[string]uint64

// GlobalField is an enum for `global` opcode
type GlobalField byte

const (
	// MinTxnFee ConsensusParams.MinTxnFee
	MinTxnFee GlobalField = iota
	// MinBalance ConsensusParams.MinBalance
	MinBalance
	// MaxTxnLife ConsensusParams.MaxTxnLife
	MaxTxnLife
	// ZeroAddress [32]byte{0...}
	ZeroAddress
	// GroupSize len(txn group)
	GroupSize

	// v2

	// LogicSigVersion ConsensusParams.LogicSigVersion
	LogicSigVersion
	// Round basics.Round
	Round
	// LatestTimestamp uint64
	LatestTimestamp
	// CurrentApplicationID uint64
	CurrentApplicationID

	// v3

	// CreatorAddress [32]byte
	CreatorAddress

	// v5

	// CurrentApplicationAddress [32]byte
	CurrentApplicationAddress
	// GroupID [32]byte
	GroupID

	// v6

	// OpcodeBudget The remaining budget available for execution
	OpcodeBudget

	// CallerApplicationID The ID of the caller app, else 0
	CallerApplicationID

	// CallerApplicationAddress The Address of the caller app, else ZeroAddress
	CallerApplicationAddress

	invalidGlobalField // compile-time constant for number of fields
)

var globalFieldNames = [...]string{
	"MinTxnFee", "MinBalance", "MaxTxnLife", "ZeroAddress", "GroupSize",
	"LogicSigVersion", "Round", "LatestTimestamp", "CurrentApplicationID",
	"CreatorAddress", "CurrentApplicationAddress", "GroupID", "OpcodeBudget",
	"CallerApplicationID", "CallerApplicationAddress",
}

func (gf GlobalField) String() string {
	if int(gf) < len(globalFieldNames) {
		return globalFieldNames[gf]
	}
	return fmt.Sprintf("GlobalField(%d)", byte(gf))
}

type globalFieldSpec struct {
	field   GlobalField
	ftype   StackType
	mode    runMode
	version uint64
}

func (fs globalFieldSpec) Field() byte {
	return byte(fs.field)
}
func (fs globalFieldSpec) Type() StackType {
	return fs.ftype
}
func (fs globalFieldSpec) OpVersion() uint64 {
	return fs.version
}

var globalFieldSpecs = [...]globalFieldSpec{
	// version 0 is the same as v1 (initial release)
	{MinTxnFee, StackUint64, modeAny, 0},
	{MinBalance, StackUint64, modeAny, 0},
	{MaxTxnLife, StackUint64, modeAny, 0},
	{ZeroAddress, StackBytes, modeAny, 0},
	{GroupSize, StackUint64, modeAny, 0},
	{LogicSigVersion, StackUint64, modeAny, 2},
	{Round, StackUint64, runModeApplication, 2},
	{LatestTimestamp, StackUint64, runModeApplication, 2},
	{CurrentApplicationID, StackUint64, runModeApplication, 2},
	{CreatorAddress, StackBytes, runModeApplication, 3},
	{CurrentApplicationAddress, StackBytes, runModeApplication, 5},
	{GroupID, StackBytes, modeAny, 5},
	{OpcodeBudget, StackUint64, modeAny, 6},
	{CallerApplicationID, StackUint64, runModeApplication, 6},
	{CallerApplicationAddress, StackBytes, runModeApplication, 6},
}

func globalFieldSpecByField(f GlobalField) (globalFieldSpec, bool) {
	if int(f) >= len(globalFieldSpecs) {
		return globalFieldSpec{}, false
	}
	return globalFieldSpecs[f], true
}

// GlobalFields has info on the global opcode's immediate
var GlobalFields FieldGroup

// AssetHoldingField is an enum for `asset_holding_get` opcode
type AssetHoldingField byte

const (
	// AssetBalance AssetHolding.Amount
	AssetBalance AssetHoldingField = iota
	// AssetFrozen AssetHolding.Frozen
	AssetFrozen
	invalidAssetHoldingField // compile-time constant for number of fields
)

var assetHoldingFieldNames = [...]string{"AssetBalance", "AssetFrozen"}

func (f AssetHoldingField) String() string {
	if int(f) < len(assetHoldingFieldNames) {
		return assetHoldingFieldNames[f]
	}
	return fmt.Sprintf("AssetHoldingField(%d)", byte(f))
}

type assetHoldingFieldSpec struct {
	field   AssetHoldingField
	ftype   StackType
	version uint64
}

func (fs assetHoldingFieldSpec) Field() byte {
	return byte(fs.field)
}
func (fs assetHoldingFieldSpec) Type() StackType {
	return fs.ftype
}
func (fs assetHoldingFieldSpec) OpVersion() uint64 {
	return fs.version
}

var assetHoldingFieldSpecs = [...]assetHoldingFieldSpec{
	{AssetBalance, StackUint64, 2},
	{AssetFrozen, StackUint64, 2},
}

// AssetHoldingFields describes asset_holding_get's immediates
var AssetHoldingFields FieldGroup

// AssetParamsField is an enum for `asset_params_get` opcode
type AssetParamsField byte

const (
	// AssetTotal AssetParams.Total
	AssetTotal AssetParamsField = iota
	// AssetDecimals AssetParams.Decimals
	AssetDecimals
	// AssetDefaultFrozen AssetParams.AssetDefaultFrozen
	AssetDefaultFrozen
	// AssetUnitName AssetParams.UnitName
	AssetUnitName
	// AssetName AssetParams.AssetName
	AssetName
	// AssetURL AssetParams.URL
	AssetURL
	// AssetMetadataHash AssetParams.MetadataHash
	AssetMetadataHash
	// AssetManager AssetParams.Manager
	AssetManager
	// AssetReserve AssetParams.Reserve
	AssetReserve
	// AssetFreeze AssetParams.Freeze
	AssetFreeze
	// AssetClawback AssetParams.Clawback
	AssetClawback

	// AssetCreator is not *in* the Params, but it is uniquely determined.
	AssetCreator

	invalidAssetParamsField // compile-time constant for number of fields
)

var assetParamsFieldNames = [...]string{
	"AssetTotal", "AssetDecimals", "AssetDefaultFrozen", "AssetUnitName", "AssetName",
	"AssetURL", "AssetMetadataHash", "AssetManager", "AssetReserve", "AssetFreeze",
	"AssetClawback", "AssetCreator",
}

func (f AssetParamsField) String() string {
	if int(f) < len(assetParamsFieldNames) {
		return assetParamsFieldNames[f]
	}
	return fmt.Sprintf("AssetParamsField(%d)", byte(f))
}

type assetParamsFieldSpec struct {
	field   AssetParamsField
	ftype   StackType
	version uint64
}

func (fs assetParamsFieldSpec) Field() byte {
	return byte(fs.field)
}
func (fs assetParamsFieldSpec) Type() StackType {
	return fs.ftype
}
func (fs assetParamsFieldSpec) OpVersion() uint64 {
	return fs.version
}

var assetParamsFieldSpecs = [...]assetParamsFieldSpec{
	{AssetTotal, StackUint64, 2},
	{AssetDecimals, StackUint64, 2},
	{AssetDefaultFrozen, StackUint64, 2},
	{AssetUnitName, StackBytes, 2},
	{AssetName, StackBytes, 2},
	{AssetURL, StackBytes, 2},
	{AssetMetadataHash, StackBytes, 2},
	{AssetManager, StackBytes, 2},
	{AssetReserve, StackBytes, 2},
	{AssetFreeze, StackBytes, 2},
	{AssetClawback, StackBytes, 2},
	{AssetCreator, StackBytes, 5},
}

// AssetParamsFields describes asset_params_get's immediates
var AssetParamsFields FieldGroup

// AppParamsField is an enum for `app_params_get` opcode
type AppParamsField byte

const (
	// AppApprovalProgram AppParams.ApprovalProgram
	AppApprovalProgram AppParamsField = iota
	// AppClearStateProgram AppParams.ClearStateProgram
	AppClearStateProgram
	// AppGlobalNumUint AppParams.StateSchemas.GlobalStateSchema.NumUint
	AppGlobalNumUint
	// AppGlobalNumByteSlice AppParams.StateSchemas.GlobalStateSchema.NumByteSlice
	AppGlobalNumByteSlice
	// AppLocalNumUint AppParams.StateSchemas.LocalStateSchema.NumUint
	AppLocalNumUint
	// AppLocalNumByteSlice AppParams.StateSchemas.LocalStateSchema.NumByteSlice
	AppLocalNumByteSlice
	// AppExtraProgramPages AppParams.ExtraProgramPages
	AppExtraProgramPages

	// AppCreator is not *in* the Params, but it is uniquely determined.
	AppCreator

	// AppAddress is also not *in* the Params, but can be derived
	AppAddress

	invalidAppParamsField // compile-time constant for number of fields
)

var appParamsFieldNames = [...]string{
	"AppApprovalProgram", "AppClearStateProgram", "AppGlobalNumUint", "AppGlobalNumByteSlice",
	"AppLocalNumUint", "AppLocalNumByteSlice", "AppExtraProgramPages", "AppCreator", "AppAddress",
}

func (f AppParamsField) String() string {
	if int(f) < len(appParamsFieldNames) {
		return appParamsFieldNames[f]
	}
	return fmt.Sprintf("AppParamsField(%d)", byte(f))
}

type appParamsFieldSpec struct {
	field   AppParamsField
	ftype   StackType
	version uint64
}

func (fs appParamsFieldSpec) Field() byte {
	return byte(fs.field)
}
func (fs appParamsFieldSpec) Type() StackType {
	return fs.ftype
}
func (fs appParamsFieldSpec) OpVersion() uint64 {
	return fs.version
}

var appParamsFieldSpecs = [...]appParamsFieldSpec{
	{AppApprovalProgram, StackBytes, 5},
	{AppClearStateProgram, StackBytes, 5},
	{AppGlobalNumUint, StackUint64, 5},
	{AppGlobalNumByteSlice, StackUint64, 5},
	{AppLocalNumUint, StackUint64, 5},
	{AppLocalNumByteSlice, StackUint64, 5},
	{AppExtraProgramPages, StackUint64, 5},
	{AppCreator, StackBytes, 5},
	{AppAddress, StackBytes, 5},
}

// AppParamsFields describes app_params_get's immediates
var AppParamsFields FieldGroup

// AcctParamsField is an enum for `acct_params_get` opcode
type AcctParamsField byte

const (
	// AcctBalance is the balance, with pending rewards
	AcctBalance AcctParamsField = iota
	// AcctMinBalance is algos needed for this accounts apps and assets
	AcctMinBalance
	// AcctAuthAddr is the rekeyed address if any, else ZeroAddress
	AcctAuthAddr

	invalidAcctParamsField // compile-time constant for number of fields
)

var acctParamsFieldNames = [...]string{"AcctBalance", "AcctMinBalance", "AcctAuthAddr"}

func (f AcctParamsField) String() string {
	if int(f) < len(acctParamsFieldNames) {
		return acctParamsFieldNames[f]
	}
	return fmt.Sprintf("AcctParamsField(%d)", byte(f))
}

type acctParamsFieldSpec struct {
	field   AcctParamsField
	ftype   StackType
	version uint64
}

func (fs acctParamsFieldSpec) Field() byte {
	return byte(fs.field)
}
func (fs acctParamsFieldSpec) Type() StackType {
	return fs.ftype
}
func (fs acctParamsFieldSpec) OpVersion() uint64 {
	return fs.version
}

var acctParamsFieldSpecs = [...]acctParamsFieldSpec{
	{AcctBalance, StackUint64, 6},
	{AcctMinBalance, StackUint64, 6},
	{AcctAuthAddr, StackBytes, 6},
}

// AcctParamsFields describes acct_params_get's immediates
var AcctParamsFields FieldGroup

// Base64Encoding is an enum for the `base64decode` opcode
type Base64Encoding byte

const (
	// URLEncoding represents the base64url encoding defined in https://www.rfc-editor.org/rfc/rfc4648.html
	URLEncoding Base64Encoding = iota
	// StdEncoding represents the standard encoding of the RFC
	StdEncoding
	invalidBase64Encoding // compile-time constant for number of fields
)

var base64EncodingNames = [...]string{"URLEncoding", "StdEncoding"}

func (e Base64Encoding) String() string {
	if int(e) < len(base64EncodingNames) {
		return base64EncodingNames[e]
	}
	return fmt.Sprintf("Base64Encoding(%d)", byte(e))
}

type base64EncodingSpec struct {
	field   Base64Encoding
	version uint64
}

func (fs base64EncodingSpec) Field() byte {
	return byte(fs.field)
}
func (fs base64EncodingSpec) Type() StackType {
	return StackBytes
}
func (fs base64EncodingSpec) OpVersion() uint64 {
	return fs.version
}

var base64EncodingSpecs = [...]base64EncodingSpec{
	{URLEncoding, 6},
	{StdEncoding, 6},
}

// Base64Encodings describes the base64_encode immediate
var Base64Encodings FieldGroup

func init() {
	all := make([]FieldSpec, 0, len(txnFieldSpecs))
	var scalars, arrays, settable []FieldSpec
	for i, s := range txnFieldSpecs {
		if int(s.field) != i {
			panic("txnFieldSpecs disjoint with TxnField enum")
		}
		all = append(all, s)
		if s.array {
			arrays = append(arrays, s)
		} else {
			scalars = append(scalars, s)
		}
		if s.itxVersion > 0 {
			settable = append(settable, s)
		}
	}
	TxnFields = makeFieldGroup("txn", txnFieldNames[:], all)
	TxnScalarFields = makeFieldGroup("txn", txnFieldNames[:], scalars)
	TxnArrayFields = makeFieldGroup("txna", txnFieldNames[:], arrays)
	ItxnSettableFields = makeFieldGroup("itxn_field", txnFieldNames[:], settable)

	globals := make([]FieldSpec, len(globalFieldSpecs))
	for i, s := range globalFieldSpecs {
		if int(s.field) != i {
			panic("globalFieldSpecs disjoint with GlobalField enum")
		}
		globals[i] = s
	}
	GlobalFields = makeFieldGroup("global", globalFieldNames[:], globals)

	holdings := make([]FieldSpec, len(assetHoldingFieldSpecs))
	for i, s := range assetHoldingFieldSpecs {
		holdings[i] = s
	}
	AssetHoldingFields = makeFieldGroup("asset_holding", assetHoldingFieldNames[:], holdings)

	assetParams := make([]FieldSpec, len(assetParamsFieldSpecs))
	for i, s := range assetParamsFieldSpecs {
		assetParams[i] = s
	}
	AssetParamsFields = makeFieldGroup("asset_params", assetParamsFieldNames[:], assetParams)

	appParams := make([]FieldSpec, len(appParamsFieldSpecs))
	for i, s := range appParamsFieldSpecs {
		appParams[i] = s
	}
	AppParamsFields = makeFieldGroup("app_params", appParamsFieldNames[:], appParams)

	acctParams := make([]FieldSpec, len(acctParamsFieldSpecs))
	for i, s := range acctParamsFieldSpecs {
		acctParams[i] = s
	}
	AcctParamsFields = makeFieldGroup("acct_params", acctParamsFieldNames[:], acctParams)

	encodings := make([]FieldSpec, len(base64EncodingSpecs))
	for i, s := range base64EncodingSpecs {
		encodings[i] = s
	}
	Base64Encodings = makeFieldGroup("base64", base64EncodingNames[:], encodings)

	for i, tt := range TxnTypeNames {
		txnTypeMap[tt] = uint64(i)
	}

	onCompletionMap = make(map[string]uint64, len(OnCompletionNames))
	for oc := NoOp; oc < invalidOnCompletionConst; oc++ {
		symbol := transactions.OnCompletion(oc).String()
		OnCompletionNames[oc] = symbol
		onCompletionMap[symbol] = uint64(oc)
	}
}
