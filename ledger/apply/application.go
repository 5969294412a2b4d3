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

package apply

import (
	"errors"
	"fmt"
	"slices"

	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/data/transactions/logic"
	"github.com/algorand/avm-runtime/ledger/ledgercore"
)

// getAppParams fetches the creator address and AppParams for the app index,
// if they exist. It does NOT return an error if the app does not exist, but
// does return an error if there is an issue looking up the creator.
func getAppParams(balances Balances, aidx basics.AppIndex) (params basics.AppParams, creator basics.Address, exists bool, err error) {
	creator, exists, err = balances.GetCreator(basics.CreatableIndex(aidx), basics.AppCreatable)
	if err != nil {
		return
	}

	// App doesn't exist. Not an error, but return straight away
	if !exists {
		return
	}

	params, exists, err = balances.GetAppParams(creator, aidx)
	if err != nil {
		return
	}

	// If we got a creator, but not the params, something went wrong
	if !exists {
		err = fmt.Errorf("app %d not found in account %s", aidx, creator)
	}
	return
}

func createApplication(ac *transactions.ApplicationCallTxnFields, balances Balances, creator basics.Address, appIdx basics.AppIndex) error {
	// Fetch the creator's (sender's) balance record
	record, err := balances.Get(creator)
	if err != nil {
		return err
	}

	// Make sure the creator isn't already at the app creation max
	maxAppsCreated := balances.ConsensusParams().MaxAppsCreated
	if maxAppsCreated > 0 && len(record.AppParams) >= maxAppsCreated {
		return &ledgercore.LedgerError{Kind: ledgercore.ErrCreatableLimit, Addr: creator,
			Err: fmt.Errorf("cannot create app: max created apps per acct is %d", maxAppsCreated)}
	}

	// Update the cached TotalStateSchema for this account, used
	// when computing MinBalance, since the creator has to store
	// the global state
	record.TotalAppSchema = record.TotalAppSchema.AddSchema(ac.GlobalStateSchema)

	// Update the cached TotalExtraAppPages for this account, used
	// when computing MinBalance
	totalExtraPages, overflowed := basics.OAdd(record.TotalExtraAppPages, ac.ExtraProgramPages)
	if overflowed {
		return fmt.Errorf("cannot create app: total extra pages overflow")
	}
	record.TotalExtraAppPages = totalExtraPages

	// Write back to the creator's balance record
	err = balances.Put(creator, record)
	if err != nil {
		return err
	}

	// Allocate global storage
	err = balances.AllocateApp(creator, appIdx, true, ac.GlobalStateSchema)
	if err != nil {
		return err
	}

	params := basics.AppParams{
		ApprovalProgram:   slices.Clone(ac.ApprovalProgram),
		ClearStateProgram: slices.Clone(ac.ClearStateProgram),
		StateSchemas: basics.StateSchemas{
			LocalStateSchema:  ac.LocalStateSchema,
			GlobalStateSchema: ac.GlobalStateSchema,
		},
		ExtraProgramPages: ac.ExtraProgramPages,
	}
	return balances.PutAppParams(creator, appIdx, params)
}

func deleteApplication(balances Balances, creator basics.Address, appIdx basics.AppIndex) error {
	// Deleting the application. Fetch the creator's balance record
	record, err := balances.Get(creator)
	if err != nil {
		return err
	}

	params, ok, err := balances.GetAppParams(creator, appIdx)
	if err != nil {
		return err
	}
	if !ok {
		return &ledgercore.LedgerError{Kind: ledgercore.ErrAppNotFound, Addr: creator, AppID: appIdx}
	}

	// Update the TotalAppSchema used for MinBalance calculation,
	// since the creator no longer has to store the GlobalState
	record.TotalAppSchema = record.TotalAppSchema.SubSchema(params.GlobalStateSchema)
	record.TotalExtraAppPages = basics.SubSaturate(record.TotalExtraAppPages, params.ExtraProgramPages)

	err = balances.Put(creator, record)
	if err != nil {
		return err
	}

	err = balances.DeallocateApp(creator, appIdx, true)
	if err != nil {
		return err
	}
	return balances.DeleteAppParams(creator, appIdx)
}

func updateApplication(ac *transactions.ApplicationCallTxnFields, balances Balances, creator basics.Address, appIdx basics.AppIndex) error {
	params, ok, err := balances.GetAppParams(creator, appIdx)
	if err != nil {
		return err
	}
	if !ok {
		return &ledgercore.LedgerError{Kind: ledgercore.ErrAppNotFound, Addr: creator, AppID: appIdx}
	}

	proto := balances.ConsensusParams()
	// when proto.EnableExtraProgramPages is false, WellFormed rejects all updates with a multiple-page program
	lengthOfProgram := len(ac.ApprovalProgram) + len(ac.ClearStateProgram)
	allowed := int(1+params.ExtraProgramPages) * proto.MaxAppProgramLen
	if proto.MaxAppProgramLen > 0 && lengthOfProgram > allowed {
		return &ledgercore.LedgerError{Kind: ledgercore.ErrInvalidTxn, AppID: appIdx,
			Err: fmt.Errorf("updateApplication app programs too long, %d. max total len %d bytes", lengthOfProgram, allowed)}
	}

	err = transactions.CheckContractVersions(ac.ApprovalProgram, ac.ClearStateProgram, params, &proto)
	if err != nil {
		return &ledgercore.LedgerError{Kind: ledgercore.ErrInvalidTxn, AppID: appIdx, Err: err}
	}

	// Fill in the new programs
	params.ApprovalProgram = slices.Clone(ac.ApprovalProgram)
	params.ClearStateProgram = slices.Clone(ac.ClearStateProgram)

	return balances.PutAppParams(creator, appIdx, params)
}

func optInApplication(balances Balances, sender basics.Address, appIdx basics.AppIndex, params basics.AppParams) error {
	// Fetch the user's balance record
	record, err := balances.Get(sender)
	if err != nil {
		return err
	}

	// If the user has already opted in, fail
	ok, err := balances.HasAppLocalState(sender, appIdx)
	if err != nil {
		return err
	}
	if ok {
		return &ledgercore.LedgerError{Kind: ledgercore.ErrAlreadyOptedIn, Addr: sender, AppID: appIdx}
	}

	// Make sure the user isn't already at the app opt-in max
	maxAppsOptedIn := balances.ConsensusParams().MaxAppsOptedIn
	if maxAppsOptedIn > 0 && len(record.AppLocalStates) >= maxAppsOptedIn {
		return &ledgercore.LedgerError{Kind: ledgercore.ErrCreatableLimit, Addr: sender,
			Err: fmt.Errorf("cannot opt in app %d: max opted-in apps per acct is %d", appIdx, maxAppsOptedIn)}
	}

	// If the user hasn't opted in yet, allocate LocalState for the app
	record.TotalAppSchema = record.TotalAppSchema.AddSchema(params.LocalStateSchema)
	err = balances.Put(sender, record)
	if err != nil {
		return err
	}

	err = balances.AllocateApp(sender, appIdx, false, params.LocalStateSchema)
	if err != nil {
		return err
	}

	return balances.PutAppLocalState(sender, appIdx, basics.AppLocalState{Schema: params.LocalStateSchema})
}

func closeOutApplication(balances Balances, sender basics.Address, appIdx basics.AppIndex) error {
	// Closing out of the application. Fetch the sender's balance record
	record, err := balances.Get(sender)
	if err != nil {
		return err
	}

	// If they haven't opted in, that's an error
	localState, ok, err := balances.GetAppLocalState(sender, appIdx)
	if err != nil {
		return err
	}
	if !ok {
		return &ledgercore.LedgerError{Kind: ledgercore.ErrNotOptedIn, Addr: sender, AppID: appIdx}
	}

	// Update the TotalAppSchema used for MinBalance calculation,
	// since the sender no longer has to store LocalState
	record.TotalAppSchema = record.TotalAppSchema.SubSchema(localState.Schema)

	err = balances.Put(sender, record)
	if err != nil {
		return err
	}

	err = balances.DeallocateApp(sender, appIdx, false)
	if err != nil {
		return err
	}
	return balances.DeleteAppLocalState(sender, appIdx)
}

// ApplicationCall applies an ApplicationCall transaction using the Balances
// interface. The ClearStateProgram may fail or reject without failing the
// transaction; local state is cleared either way.
func ApplicationCall(ac transactions.ApplicationCallTxnFields, header transactions.Header, balances Balances, ad *transactions.ApplyData, gi int, evalParams *logic.EvalParams) (err error) {
	if !balances.ConsensusParams().Application {
		return &ledgercore.LedgerError{Kind: ledgercore.ErrInvalidTxn, Err: fmt.Errorf("applications not supported")}
	}

	defer func() {
		// If we are returning a non-nil error, then don't return a
		// non-empty EvalDelta. Not required for correctness.
		if err != nil && ad != nil {
			ad.EvalDelta = transactions.EvalDelta{}
		}
	}()

	// Keep track of the application ID we're working on
	appIdx := ac.ApplicationID

	// this is not the case in the current code but still probably better to check
	if ad == nil {
		return fmt.Errorf("cannot use empty ApplyData")
	}

	// Specifying an application ID of 0 indicates application creation
	if appIdx == 0 {
		appIdx = basics.AppIndex(balances.Counter() + 1)
		err = createApplication(&ac, balances, header.Sender, appIdx)
		if err != nil {
			return err
		}
		ad.ApplicationID = appIdx
	}

	// Fetch the application parameters, if they exist
	params, creator, exists, err := getAppParams(balances, appIdx)
	if err != nil {
		return err
	}

	// Ensure that the only operation we can do is ClearState if the application
	// does not exist
	if !exists && ac.OnCompletion != transactions.ClearStateOC {
		return ledgercore.AppError(ledgercore.ErrAppNotFound, appIdx)
	}

	// If this txn is going to set new programs (either for creation or
	// update), check that the programs are valid and not too expensive
	if evalParams != nil && (ac.ApplicationID == 0 || ac.OnCompletion == transactions.UpdateApplicationOC) {
		err = logic.CheckContract(ac.ApprovalProgram, evalParams)
		if err != nil {
			return &ledgercore.LedgerError{Kind: ledgercore.ErrInvalidTxn, AppID: appIdx, Err: fmt.Errorf("check failed on ApprovalProgram: %w", err)}
		}
		err = logic.CheckContract(ac.ClearStateProgram, evalParams)
		if err != nil {
			return &ledgercore.LedgerError{Kind: ledgercore.ErrInvalidTxn, AppID: appIdx, Err: fmt.Errorf("check failed on ClearStateProgram: %w", err)}
		}
	}

	// Clear out our LocalState. In this case, we don't execute the
	// ApprovalProgram, since clearing out is always allowed. We only
	// execute the ClearStateProgram, whose failures are ignored.
	if ac.OnCompletion == transactions.ClearStateOC {
		// Ensure that the user is already opted in
		ok, err := balances.HasAppLocalState(header.Sender, appIdx)
		if err != nil {
			return err
		}
		if !ok {
			return &ledgercore.LedgerError{Kind: ledgercore.ErrNotOptedIn, Addr: header.Sender, AppID: appIdx}
		}

		// If the app still exists, run the ClearStateProgram
		if exists {
			pass, evalDelta, err := balances.StatefulEval(gi, evalParams, appIdx, params.ClearStateProgram)
			// Not enough budget to even start is the one failure that
			// fails the transaction.
			var cse logic.ClearStateBudgetError
			if errors.As(err, &cse) {
				return err
			}
			if err != nil || !pass {
				// Fail or reject: the program's effects were not
				// committed, and the opt-out proceeds regardless.
				evalDelta = transactions.EvalDelta{}
			}
			ad.EvalDelta = evalDelta
		}

		return closeOutApplication(balances, header.Sender, appIdx)
	}

	// If this is an OptIn transaction, ensure that the sender has
	// LocalState allocated prior to TEAL execution, so that it may be
	// initialized in the same transaction.
	if ac.OnCompletion == transactions.OptInOC {
		err = optInApplication(balances, header.Sender, appIdx, params)
		if err != nil {
			return err
		}
	}

	// Execute the Approval program
	approved, evalDelta, err := balances.StatefulEval(gi, evalParams, appIdx, params.ApprovalProgram)
	if err != nil {
		return err
	}

	if !approved {
		return &ledgercore.LedgerError{Kind: ledgercore.ErrRejected, AppID: appIdx,
			Err: fmt.Errorf("transaction rejected by ApprovalProgram")}
	}

	switch ac.OnCompletion {
	case transactions.NoOpOC:
		// Nothing to do

	case transactions.OptInOC:
		// Handled above

	case transactions.CloseOutOC:
		// Closing out of the application. Fetch the sender's balance record
		err = closeOutApplication(balances, header.Sender, appIdx)
		if err != nil {
			return err
		}

	case transactions.DeleteApplicationOC:
		err = deleteApplication(balances, creator, appIdx)
		if err != nil {
			return err
		}

	case transactions.UpdateApplicationOC:
		err = updateApplication(&ac, balances, creator, appIdx)
		if err != nil {
			return err
		}

	default:
		return fmt.Errorf("invalid application action")
	}

	// Fill in applyData, so that consumers don't have to implement a
	// stateful TEAL interpreter to apply state changes
	ad.EvalDelta = evalDelta

	return nil
}
