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
	"github.com/algorand/avm-runtime/ledger/ledgercore"
	"github.com/algorand/avm-runtime/protocol"
)

// AssetDefinition describes an asset to create. The role addresses are
// left empty when zero.
type AssetDefinition struct {
	Total         uint64
	Decimals      uint32
	DefaultFrozen bool
	UnitName      string
	AssetName     string
	URL           string
	MetadataHash  [32]byte

	Manager  basics.Address
	Reserve  basics.Address
	Freeze   basics.Address
	Clawback basics.Address
}

func (def AssetDefinition) params() basics.AssetParams {
	return basics.AssetParams{
		Total:         def.Total,
		Decimals:      def.Decimals,
		DefaultFrozen: def.DefaultFrozen,
		UnitName:      def.UnitName,
		AssetName:     def.AssetName,
		URL:           def.URL,
		MetadataHash:  def.MetadataHash,
		Manager:       def.Manager,
		Reserve:       def.Reserve,
		Freeze:        def.Freeze,
		Clawback:      def.Clawback,
	}
}

// DeployAsset creates an asset whose whole supply is held by creator.
func (l *Ledger) DeployAsset(creator basics.Address, def AssetDefinition) (basics.AssetIndex, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn := l.makeTxn(creator)
	txn.Type = protocol.AssetConfigTx
	txn.AssetParams = def.params()
	r, err := l.submit(txn)
	if err != nil {
		return 0, err
	}
	return r.AssetID, nil
}

// ReconfigureAsset changes the role addresses of asset. Only its manager
// may do so, and a cleared role cannot be set again.
func (l *Ledger) ReconfigureAsset(sender basics.Address, asset basics.AssetIndex, manager, reserve, freeze, clawback basics.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn := l.makeTxn(sender)
	txn.Type = protocol.AssetConfigTx
	txn.ConfigAsset = asset
	txn.AssetParams = basics.AssetParams{Manager: manager, Reserve: reserve, Freeze: freeze, Clawback: clawback}
	_, err := l.submit(txn)
	return err
}

// DestroyAsset removes asset. The creator must hold the whole supply.
func (l *Ledger) DestroyAsset(sender basics.Address, asset basics.AssetIndex) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn := l.makeTxn(sender)
	txn.Type = protocol.AssetConfigTx
	txn.ConfigAsset = asset
	_, err := l.submit(txn)
	return err
}

func (l *Ledger) assetTransfer(sender basics.Address, xfer transactions.AssetTransferTxnFields) (Receipt, error) {
	txn := l.makeTxn(sender)
	txn.Type = protocol.AssetTransferTx
	txn.AssetTransferTxnFields = xfer
	return l.submit(txn)
}

// OptInToAsset adds an empty holding of asset to sender.
func (l *Ledger) OptInToAsset(sender basics.Address, asset basics.AssetIndex) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.assetTransfer(sender, transactions.AssetTransferTxnFields{
		XferAsset:     asset,
		AssetReceiver: sender,
	})
	return err
}

// TransferAsset moves amount units of asset from one holder to another.
func (l *Ledger) TransferAsset(from, to basics.Address, asset basics.AssetIndex, amount uint64) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.assetTransfer(from, transactions.AssetTransferTxnFields{
		XferAsset:     asset,
		AssetAmount:   amount,
		AssetReceiver: to,
	})
}

// RevokeAsset moves amount units of asset from holder to receiver on the
// authority of the asset's clawback address.
func (l *Ledger) RevokeAsset(clawback, holder, to basics.Address, asset basics.AssetIndex, amount uint64) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.assetTransfer(clawback, transactions.AssetTransferTxnFields{
		XferAsset:     asset,
		AssetAmount:   amount,
		AssetSender:   holder,
		AssetReceiver: to,
	})
}

// FreezeAsset sets whether target's holding of asset is frozen. sender
// must be the asset's freeze address.
func (l *Ledger) FreezeAsset(sender, target basics.Address, asset basics.AssetIndex, frozen bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn := l.makeTxn(sender)
	txn.Type = protocol.AssetFreezeTx
	txn.FreezeAccount = target
	txn.FreezeAsset = asset
	txn.AssetFrozen = frozen
	_, err := l.submit(txn)
	return err
}

// GetAsset returns a copy of asset's parameters.
func (l *Ledger) GetAsset(asset basics.AssetIndex) (basics.AssetParams, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	loc, ok := l.creators[basics.CreatableIndex(asset)]
	if !ok || loc.Type != basics.AssetCreatable {
		return basics.AssetParams{}, ledgercore.AssetError(ledgercore.ErrAssetNotFound, asset)
	}
	return l.accounts[loc.Creator].AssetParams[asset], nil
}

// GetAssetHolding returns addr's holding of asset.
func (l *Ledger) GetAssetHolding(addr basics.Address, asset basics.AssetIndex) (basics.AssetHolding, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	holding, ok := l.accounts[addr].Assets[asset]
	if !ok {
		return basics.AssetHolding{}, &ledgercore.LedgerError{Kind: ledgercore.ErrNotOptedIn, Addr: addr, AssetID: asset}
	}
	return holding, nil
}
