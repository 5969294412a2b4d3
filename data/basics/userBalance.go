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

package basics

import (
	"encoding/binary"
	"fmt"
	"maps"
	"slices"

	"github.com/algorand/avm-runtime/crypto"
	"github.com/algorand/avm-runtime/protocol"
)

// Status is the delegation status of an account's MicroAlgos
type Status byte

const (
	// Offline indicates that the associated account receives rewards but does not participate in the consensus.
	Offline Status = iota
	// Online indicates that the associated account participates in the consensus and receive rewards.
	Online
	// NotParticipating indicates that the associated account neither participates in the consensus, nor receives rewards.
	NotParticipating
)

func (s Status) String() string {
	switch s {
	case Offline:
		return "Offline"
	case Online:
		return "Online"
	case NotParticipating:
		return "Not Participating"
	}
	return ""
}

// AccountData contains the data associated with a given address.
//
// This includes the account balance, participation keys, the created
// applications and assets, and the opted-in local states and holdings.
// AccountData is expected to have copy-by-value semantics: maps must be
// cloned (see Clone) before they are modified.
type AccountData struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Status     Status     `codec:"onl"`
	MicroAlgos MicroAlgos `codec:"algo"`

	VoteID          crypto.PublicKey `codec:"vote"`
	SelectionID     crypto.PublicKey `codec:"sel"`
	VoteFirstValid  Round            `codec:"voteFst"`
	VoteLastValid   Round            `codec:"voteLst"`
	VoteKeyDilution uint64           `codec:"voteKD"`

	// AssetParams stores the parameters of every asset this account created.
	// An account with any asset in AssetParams cannot be closed until the
	// asset is destroyed.
	AssetParams map[AssetIndex]AssetParams `codec:"apar"`

	// Assets is the set of assets that can be held by this account. Each
	// asset bumps the required MinBalance in this account.
	Assets map[AssetIndex]AssetHolding `codec:"asset"`

	// AuthAddr is the address against which signatures/multisigs/logicsigs should be checked.
	// If empty, the address of the account whose AccountData this is is used.
	AuthAddr Address `codec:"spend"`

	AppLocalStates map[AppIndex]AppLocalState `codec:"appl"`
	AppParams      map[AppIndex]AppParams     `codec:"appp"`

	// TotalAppSchema stores the sum of all of the LocalStateSchemas
	// and GlobalStateSchemas in this account (global for applications
	// we created local for applications we opted in to), so that we don't
	// have to iterate over all of them to compute MinBalance.
	TotalAppSchema StateSchema `codec:"tsch"`

	// TotalExtraAppPages stores the extra length in pages (MaxAppProgramLen bytes per page)
	// requested for app program by this account
	TotalExtraAppPages uint32 `codec:"teap"`
}

// Clone returns a deep copy of the account data.
func (u AccountData) Clone() AccountData {
	res := u
	res.AssetParams = maps.Clone(u.AssetParams)
	res.Assets = maps.Clone(u.Assets)
	if u.AppLocalStates != nil {
		res.AppLocalStates = make(map[AppIndex]AppLocalState, len(u.AppLocalStates))
		for k, v := range u.AppLocalStates {
			res.AppLocalStates[k] = v.Clone()
		}
	}
	if u.AppParams != nil {
		res.AppParams = make(map[AppIndex]AppParams, len(u.AppParams))
		for k, v := range u.AppParams {
			res.AppParams[k] = v.Clone()
		}
	}
	return res
}

// IsZero checks if an AccountData value is the same as its zero value.
func (u AccountData) IsZero() bool {
	return u.MicroAlgos.IsZero() && u.AuthAddr.IsZero() && u.Status == Offline &&
		len(u.AssetParams) == 0 && len(u.Assets) == 0 &&
		len(u.AppLocalStates) == 0 && len(u.AppParams) == 0 &&
		u.TotalAppSchema == StateSchema{} && u.TotalExtraAppPages == 0 &&
		u.VoteID == crypto.PublicKey{} && u.SelectionID == crypto.PublicKey{}
}

// AppLocalState stores the LocalState associated with an application. It also
// stores a cached copy of the application's LocalStateSchema so that
// MinBalance requirements may be computed 1. without looking up the
// AppParams and 2. even if the application has been deleted
type AppLocalState struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Schema   StateSchema  `codec:"hsch"`
	KeyValue TealKeyValue `codec:"tkv"`
}

// AppParams stores the global information associated with an application.
// Programs are kept as the source text they were deployed with.
type AppParams struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	ApprovalProgram   []byte       `codec:"approv"`
	ClearStateProgram []byte       `codec:"clearp"`
	GlobalState       TealKeyValue `codec:"gs"`
	StateSchemas
	ExtraProgramPages uint32 `codec:"epp"`
}

// StateSchemas is a thin wrapper around the LocalStateSchema and the
// GlobalStateSchema, since they are often needed together
type StateSchemas struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	LocalStateSchema  StateSchema `codec:"lsch"`
	GlobalStateSchema StateSchema `codec:"gsch"`
}

// Clone returns a copy of some AppParams that may be modified without
// affecting the original
func (ap *AppParams) Clone() (res AppParams) {
	res = *ap
	res.ApprovalProgram = slices.Clone(ap.ApprovalProgram)
	res.ClearStateProgram = slices.Clone(ap.ClearStateProgram)
	res.GlobalState = ap.GlobalState.Clone()
	return
}

// Clone returns a copy of some AppLocalState that may be modified without
// affecting the original
func (al *AppLocalState) Clone() (res AppLocalState) {
	res = *al
	res.KeyValue = al.KeyValue.Clone()
	return
}

// AssetIndex is the unique integer index of an asset that can be used to look
// up the creator of the asset, whose balance record contains the AssetParams
type AssetIndex uint64

// AppIndex is the unique integer index of an application that can be used to
// look up the creator of the application, whose balance record contains the
// AppParams
type AppIndex uint64

// CreatableIndex represents either an AssetIndex or AppIndex, which come from
// the same namespace of indices as each other (both assets and apps are
// "creatables")
type CreatableIndex uint64

// CreatableType is an enum representing whether or not a given creatable is an
// application or an asset
type CreatableType uint64

const (
	// AssetCreatable is the CreatableType corresponding to assets
	AssetCreatable CreatableType = 0

	// AppCreatable is the CreatableType corresponds to apps
	AppCreatable CreatableType = 1
)

func (ct CreatableType) String() string {
	if ct == AppCreatable {
		return "app"
	}
	return "asset"
}

// CreatableLocator stores both the creator, whose balance record contains
// the asset/app parameters, and the creatable index, which is the key into
// those parameters
type CreatableLocator struct {
	Type    CreatableType
	Creator Address
	Index   CreatableIndex
}

// AssetHolding describes an asset held by an account.
type AssetHolding struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Amount uint64 `codec:"a"`
	Frozen bool   `codec:"f"`
}

// AssetParams describes the parameters of an asset.
type AssetParams struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	// Total specifies the total number of units of this asset
	// created.
	Total uint64 `codec:"t"`

	// Decimals specifies the number of digits to display after the decimal
	// place when displaying this asset. This value must be between 0 and 19
	// (inclusive).
	Decimals uint32 `codec:"dc"`

	// DefaultFrozen specifies whether slots for this asset
	// in user accounts are frozen by default or not.
	DefaultFrozen bool `codec:"df"`

	UnitName     string   `codec:"un"`
	AssetName    string   `codec:"an"`
	URL          string   `codec:"au"`
	MetadataHash [32]byte `codec:"am"`

	// Manager specifies an account that is allowed to change the
	// non-zero addresses in this AssetParams.
	Manager Address `codec:"m"`

	// Reserve specifies an account whose holdings of this asset
	// should be reported as "not minted".
	Reserve Address `codec:"r"`

	// Freeze specifies an account that is allowed to change the
	// frozen state of holdings of this asset.
	Freeze Address `codec:"f"`

	// Clawback specifies an account that is allowed to take units
	// of this asset from any account.
	Clawback Address `codec:"c"`
}

// ToBeHashed implements crypto.Hashable
func (app AppIndex) ToBeHashed() (protocol.HashID, []byte) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(app))
	return protocol.AppIndex, buf
}

// Address yields the "app address" of the app
func (app AppIndex) Address() Address {
	return Address(crypto.HashObj(app))
}

func (app AppIndex) String() string {
	return fmt.Sprintf("app %d", uint64(app))
}

func (aidx AssetIndex) String() string {
	return fmt.Sprintf("asset %d", uint64(aidx))
}

// BalanceRequirements collects the consensus values that MinBalance depends on.
type BalanceRequirements struct {
	MinBalance              uint64
	AppFlatParamsMinBalance uint64
	AppFlatOptInMinBalance  uint64

	SchemaMinBalancePerEntry uint64
	SchemaUintMinBalance     uint64
	SchemaBytesMinBalance    uint64
}

// MinBalance computes the minimum balance requirements for an account based on
// some consensus parameters. MinBalance should correspond roughly to how much
// storage the account is allowed to store on disk.
func (u AccountData) MinBalance(reqs BalanceRequirements) MicroAlgos {
	return MinBalance(
		reqs,
		uint64(len(u.Assets)),
		u.TotalAppSchema,
		uint64(len(u.AppParams)), uint64(len(u.AppLocalStates)),
		uint64(u.TotalExtraAppPages),
	)
}

// MinBalance computes the minimum balance requirements for an account based on
// the counts of the things it holds.
func MinBalance(
	reqs BalanceRequirements,
	totalAssets uint64,
	totalAppSchema StateSchema,
	totalAppParams uint64, totalAppLocalStates uint64,
	totalExtraAppPages uint64,
) MicroAlgos {
	var min uint64

	// First, base MinBalance
	min = reqs.MinBalance

	// MinBalance for each Asset
	assetCost := MulSaturate(reqs.MinBalance, totalAssets)
	min = AddSaturate(min, assetCost)

	// Base MinBalance for each created application
	appCreationCost := MulSaturate(reqs.AppFlatParamsMinBalance, totalAppParams)
	min = AddSaturate(min, appCreationCost)

	// Base MinBalance for each opted in application
	appOptInCost := MulSaturate(reqs.AppFlatOptInMinBalance, totalAppLocalStates)
	min = AddSaturate(min, appOptInCost)

	// MinBalance for state usage measured by LocalStateSchemas and
	// GlobalStateSchemas
	schemaCost := totalAppSchema.MinBalance(reqs)
	min = AddSaturate(min, schemaCost.Raw)

	// MinBalance for each extra app program page
	extraAppProgramLenCost := MulSaturate(reqs.AppFlatParamsMinBalance, totalExtraAppPages)
	min = AddSaturate(min, extraAppProgramLenCost)

	return MicroAlgos{Raw: min}
}
