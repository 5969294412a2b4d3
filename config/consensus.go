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

package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/protocol"
)

// ConsensusParams specifies settings that might vary based on the
// particular version of the consensus protocol.
type ConsensusParams struct {
	// MaxTxnNoteBytes is the maximum size of a transaction's Note field.
	MaxTxnNoteBytes int

	// MaxTxnLife is how long a transaction can be live for:
	// the maximum difference between LastValid and FirstValid.
	MaxTxnLife uint64

	// DefaultKeyDilution specifies the granularity of top-level ephemeral
	// keys, used when a keyreg transaction leaves it unset.
	DefaultKeyDilution uint64

	// MinBalance specifies the minimum balance that can appear in
	// an account.  To spend money below MinBalance requires issuing
	// an account-closing transaction, which transfers all of the
	// money from the account, and deletes the account state.
	MinBalance uint64

	// MinTxnFee specifies the minimum fee allowed on a transaction.
	MinTxnFee uint64

	// EnableFeePooling specifies that the sum of the fees in a
	// group must exceed one MinTxnFee per Txn, rather than check that
	// each Txn has a MinFee.
	EnableFeePooling bool

	// EnableAppCostPooling specifies that the sum of fees for application calls
	// in a group is checked against the sum of the budget for application calls,
	// rather than check each individual app call is within the budget.
	EnableAppCostPooling bool

	// EnableInnerTransactionPooling specifies that the number of inner
	// transactions is pooled across a group.
	EnableInnerTransactionPooling bool

	// SupportRekeying indicates support for account rekeying (the RekeyTo and AuthAddr fields)
	SupportRekeying bool

	// max number of txns in a group
	MaxTxGroupSize int

	// LogicSigVersion is the highest supported program version
	LogicSigVersion uint64

	// LogicSigMaxCost is the budget of a single logic signature program
	LogicSigMaxCost uint64

	// LogicSigMaxSize is the max size of a logic signature program plus its args
	LogicSigMaxSize uint64

	// Application support
	Application bool

	// max number of ApplicationArgs for an ApplicationCall transaction
	MaxAppArgs int

	// max sum([len(arg) for arg in txn.ApplicationArgs])
	MaxAppTotalArgLen int

	// maximum byte len of application approval program or clear state
	// When MaxExtraAppProgramPages > 0, this is the size of those pages.
	// So two "extra pages" would mean 3*MaxAppProgramLen bytes are available.
	MaxAppProgramLen int

	// maximum total length of an application's programs (approval + clear state)
	// When MaxExtraAppProgramPages > 0, this is the size of those pages.
	MaxAppTotalProgramLen int

	// extra length for application program in pages. A page is MaxAppProgramLen bytes
	MaxExtraAppProgramPages int

	// maximum number of accounts in the ApplicationCall Accounts field.
	// this determines, in part, the maximum number of balance records
	// accessed by a single transaction
	MaxAppTxnAccounts int

	// maximum number of app ids in the ApplicationCall ForeignApps field.
	MaxAppTxnForeignApps int

	// maximum number of asset ids in the ApplicationCall ForeignAssets
	// field. this determines, in part, the maximum number of asset params
	// and holdings accessed by a single transaction
	MaxAppTxnForeignAssets int

	// maximum number of "foreign references" (accounts, asa, app)
	// that can be attached to a single app call.
	MaxAppTotalTxnReferences int

	// maximum cost of application approval program or clear state program
	MaxAppProgramCost int

	// maximum length of a key used in an application's global or local
	// key/value store
	MaxAppKeyLen int

	// maximum length of a bytes value used in an application's global or
	// local key/value store
	MaxAppBytesValueLen int

	// maximum sum of the lengths of the key and value of one app state entry
	MaxAppSumKeyValueLens int

	// maximum number of inner transactions that can be created by an app call.
	// with EnableInnerTransactionPooling, limit is multiplied by MaxTxGroupSize
	// and enforced over the whole group.
	MaxInnerTransactions int

	// minimum program version of an app that may be called from an inner transaction
	MinInnerApplVersion uint64

	// maximum number of applications a single account can create and store
	// AppParams for at once
	MaxAppsCreated int

	// maximum number of applications a single account can opt in to and
	// store AppLocalState for at once
	MaxAppsOptedIn int

	// maximum number of assets a single account can hold or create
	MaxAssetsPerAccount int

	// max decimal precision for assets
	MaxAssetDecimals uint32

	// max lengths of the asset name, unit name and url
	MaxAssetNameBytes     int
	MaxAssetUnitNameBytes int
	MaxAssetURLBytes      int

	// maximum number of total key/value pairs allowed by a given
	// LocalStateSchema (and therefore allowed in LocalState)
	MaxLocalSchemaEntries uint64

	// maximum number of total key/value pairs allowed by a given
	// GlobalStateSchema (and therefore allowed in GlobalState)
	MaxGlobalSchemaEntries uint64

	// base min balance for each created application
	AppFlatParamsMinBalance uint64

	// base min balance for each opted in application
	AppFlatOptInMinBalance uint64

	// SchemaMinBalancePerEntry is the amount of min balance required per
	// key/value entry in an application's schema, and is charged
	// regardless of the value type
	SchemaMinBalancePerEntry uint64

	// SchemaUintMinBalance is the additional min balance for each uint entry
	SchemaUintMinBalance uint64

	// SchemaBytesMinBalance is the additional min balance for each bytes entry
	SchemaBytesMinBalance uint64
}

// BalanceRequirements returns all the consensus values that determine min balance.
func (proto ConsensusParams) BalanceRequirements() basics.BalanceRequirements {
	return basics.BalanceRequirements{
		MinBalance:               proto.MinBalance,
		AppFlatParamsMinBalance:  proto.AppFlatParamsMinBalance,
		AppFlatOptInMinBalance:   proto.AppFlatOptInMinBalance,
		SchemaMinBalancePerEntry: proto.SchemaMinBalancePerEntry,
		SchemaUintMinBalance:     proto.SchemaUintMinBalance,
		SchemaBytesMinBalance:    proto.SchemaBytesMinBalance,
	}
}

// EffectiveKeyDilution returns the key dilution for this account,
// returning the default key dilution if not explicitly specified.
func (proto ConsensusParams) EffectiveKeyDilution(kd uint64) uint64 {
	if kd != 0 {
		return kd
	}
	return proto.DefaultKeyDilution
}

// ConsensusProtocols defines a set of supported protocol versions and their
// corresponding parameters.
type ConsensusProtocols map[protocol.ConsensusVersion]ConsensusParams

// Consensus tracks the protocol-level settings for different versions of the
// consensus protocol.
var Consensus ConsensusProtocols

// ConfigurableConsensusProtocolsFilename defines a set of consensus protocols that
// are to be loaded from the data directory ( if present ), to override the
// built-in supported consensus protocols.
const ConfigurableConsensusProtocolsFilename = "consensus.json"

// DeepCopy creates a deep copy of a consensus protocols map.
func (cp ConsensusProtocols) DeepCopy() ConsensusProtocols {
	staticConsensus := make(ConsensusProtocols, len(cp))
	for consensusVersion, consensusParams := range cp {
		staticConsensus[consensusVersion] = consensusParams
	}
	return staticConsensus
}

// Merge merges a configurable consensus on top of the existing consensus protocol and return
// a new consensus protocol without modify any of the incoming structures.
func (cp ConsensusProtocols) Merge(configurableConsensus ConsensusProtocols) ConsensusProtocols {
	staticConsensus := cp.DeepCopy()

	for consensusVersion, consensusParams := range configurableConsensus {
		if consensusParams == (ConsensusParams{}) {
			// if we were provided with an empty ConsensusParams, delete the existing reference to this consensus version
			delete(staticConsensus, consensusVersion)
		} else {
			// need to add/update entry
			staticConsensus[consensusVersion] = consensusParams
		}
	}

	return staticConsensus
}

// LoadConfigurableConsensusProtocols loads the configurable protocols from the data directory
func LoadConfigurableConsensusProtocols(dataDirectory string) error {
	newConsensus, err := PreloadConfigurableConsensusProtocols(dataDirectory)
	if err != nil {
		return err
	}
	if newConsensus != nil {
		Consensus = newConsensus
	}
	return nil
}

// PreloadConfigurableConsensusProtocols loads the configurable protocols from the data directory
// and merge it with a copy of the Consensus map. Then, it returns it to the caller.
func PreloadConfigurableConsensusProtocols(dataDirectory string) (ConsensusProtocols, error) {
	consensusProtocolPath := filepath.Join(dataDirectory, ConfigurableConsensusProtocolsFilename)
	file, err := os.Open(consensusProtocolPath)

	if err != nil {
		if os.IsNotExist(err) {
			// this file is not required, only optional. if it's missing, no harm is done.
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	configurableConsensus := make(ConsensusProtocols)

	decoder := json.NewDecoder(file)
	err = decoder.Decode(&configurableConsensus)
	if err != nil {
		return nil, err
	}
	return Consensus.Merge(configurableConsensus), nil
}

// SaveConfigurableConsensus saves the configurable protocols file to the provided data directory.
func SaveConfigurableConsensus(dataDirectory string, params ConsensusProtocols) error {
	consensusProtocolPath := filepath.Join(dataDirectory, ConfigurableConsensusProtocolsFilename)

	encodedConsensusParams, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return os.WriteFile(consensusProtocolPath, encodedConsensusParams, 0644)
}

// initConsensusProtocols defines the consensus protocol values supported by the runtime.
func initConsensusProtocols() {
	v7 := ConsensusParams{
		MinBalance:         100000,
		MinTxnFee:          1000,
		MaxTxnLife:         1000,
		MaxTxnNoteBytes:    1024,
		DefaultKeyDilution: 10000,

		EnableFeePooling:              true,
		EnableAppCostPooling:          true,
		EnableInnerTransactionPooling: true,
		SupportRekeying:               true,

		MaxTxGroupSize: 16,

		LogicSigVersion: 7,
		LogicSigMaxCost: 20000,
		LogicSigMaxSize: 1000,

		Application:              true,
		MaxAppArgs:               16,
		MaxAppTotalArgLen:        2048,
		MaxAppProgramLen:         2048,
		MaxAppTotalProgramLen:    2048,
		MaxExtraAppProgramPages:  3,
		MaxAppTxnAccounts:        4,
		MaxAppTxnForeignApps:     8,
		MaxAppTxnForeignAssets:   8,
		MaxAppTotalTxnReferences: 8,
		MaxAppProgramCost:        700,
		MaxAppKeyLen:             64,
		MaxAppBytesValueLen:      128,
		MaxAppSumKeyValueLens:    128,
		MaxInnerTransactions:     16,
		MinInnerApplVersion:      4,
		MaxAppsCreated:           10,
		MaxAppsOptedIn:           50,

		MaxAssetsPerAccount:   1000,
		MaxAssetDecimals:      19,
		MaxAssetNameBytes:     32,
		MaxAssetUnitNameBytes: 8,
		MaxAssetURLBytes:      96,

		MaxLocalSchemaEntries:  16,
		MaxGlobalSchemaEntries: 64,

		AppFlatParamsMinBalance:  100000,
		AppFlatOptInMinBalance:   100000,
		SchemaMinBalancePerEntry: 25000,
		SchemaUintMinBalance:     3500,
		SchemaBytesMinBalance:    25000,
	}
	Consensus[protocol.ConsensusV7] = v7

	// vFuture is for test purposes only, currently identical to v7
	vFuture := v7
	Consensus[protocol.ConsensusFuture] = vFuture
}

func init() {
	Consensus = make(ConsensusProtocols)

	initConsensusProtocols()
}
