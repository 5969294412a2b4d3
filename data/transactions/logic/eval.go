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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/algorand/avm-runtime/config"
	"github.com/algorand/avm-runtime/crypto"
	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/logging"
	"github.com/algorand/avm-runtime/protocol"
)

// EvalMaxVersion is the max version we can interpret and run
const EvalMaxVersion = LogicVersion

// The constants below control TEAL opcodes evaluation and MAY NOT be changed
// without moving them into consensus parameters.

// MaxStringSize is the limit of byte string length in an AVM value
const MaxStringSize = 4096

// MaxByteMathSize is the limit of byte strings supplied as input to byte math opcodes
const MaxByteMathSize = 64

// MaxLogSize is the limit of total log size from n log calls in a program
const MaxLogSize = 1024

// MaxLogCalls is the limit of total log calls during a program execution
const MaxLogCalls = 32

// maxAppCallDepth is the limit on inner appl call depth
// To be clear, 0 would prevent inner appls, 1 would mean inner app calls cannot
// make inner appls. So the total app depth can be 1 higher than this number, if
// you count the top-level app call.
const maxAppCallDepth = 8

// ComputeMinTealVersion calculates the minimum safe TEAL version that may be
// used by a transaction in this group. It is important to prevent
// newly-introduced transaction fields from breaking assumptions made by older
// versions of TEAL. If one of the transactions in a group will execute a TEAL
// program whose version predates a given field, that field must not be set
// anywhere in the transaction group, or the group will be rejected. In
// addition, inner app calls must not call teal from before inner app calls were
// introduced.
func ComputeMinTealVersion(group []transactions.SignedTxnWithAD, inner bool) uint64 {
	var minVersion uint64
	for _, txn := range group {
		if !txn.Txn.RekeyTo.IsZero() {
			if minVersion < rekeyingEnabledVersion {
				minVersion = rekeyingEnabledVersion
			}
		}
		if txn.Txn.Type == protocol.ApplicationCallTx {
			if minVersion < appsEnabledVersion {
				minVersion = appsEnabledVersion
			}
		}
		if inner {
			if minVersion < innerAppsEnabledVersion {
				minVersion = innerAppsEnabledVersion
			}
		}
	}
	return minVersion
}

// LedgerForLogic represents ledger API for Stateful TEAL program
type LedgerForLogic interface {
	AccountData(addr basics.Address) (basics.AccountData, error)
	Authorizer(addr basics.Address) (basics.Address, error)
	Round() basics.Round
	LatestTimestamp() int64

	AssetHolding(addr basics.Address, assetIdx basics.AssetIndex) (basics.AssetHolding, error)
	AssetParams(aidx basics.AssetIndex) (basics.AssetParams, basics.Address, error)
	AppParams(aidx basics.AppIndex) (basics.AppParams, basics.Address, error)
	OptedIn(addr basics.Address, appIdx basics.AppIndex) (bool, error)

	GetLocal(addr basics.Address, appIdx basics.AppIndex, key string, accountIdx uint64) (value basics.TealValue, exists bool, err error)
	SetLocal(addr basics.Address, appIdx basics.AppIndex, key string, value basics.TealValue, accountIdx uint64) error
	DelLocal(addr basics.Address, appIdx basics.AppIndex, key string, accountIdx uint64) error

	GetGlobal(appIdx basics.AppIndex, key string) (value basics.TealValue, exists bool, err error)
	SetGlobal(appIdx basics.AppIndex, key string, value basics.TealValue) error
	DelGlobal(appIdx basics.AppIndex, key string) error

	Perform(gi int, ep *EvalParams) error
	Counter() uint64
}

// resources contains a list of apps and assets. It's used to track the apps and
// assets created by a txgroup, for "free" access.
type resources struct {
	asas []basics.AssetIndex
	apps []basics.AppIndex
}

// EvalParams contains data that comes into condition evaluation.
type EvalParams struct {
	Proto *config.ConsensusParams

	Trace *strings.Builder

	TxnGroup []transactions.SignedTxnWithAD

	pastScratch []*scratchSpace

	logger logging.Logger

	Ledger LedgerForLogic

	// MinTealVersion is the minimum allowed TEAL version of this program.
	// The program must reject if its version is less than this version. If
	// MinTealVersion is nil, we will compute it ourselves
	MinTealVersion *uint64

	// Amount "overpaid" by the transactions of the group.  Often 0.  When
	// positive, it can be spent by inner transactions.  Shared across a group's
	// txns, so that it can be updated (including upward, by overpaying inner
	// transactions). nil is treated as 0 (used before fee pooling is enabled).
	FeeCredit *uint64

	// Total pool of app call budget in a group transaction (nil before budget pooling enabled)
	PooledApplicationBudget *int

	// Total allowable inner txns in a group transaction (nil before inner pooling enabled)
	pooledAllowedInners *int

	// created contains resources that may be used for "created" - they need not be in
	// a foreign array. They remain empty until createdResourcesVersion.
	created *resources

	// Caching these here means the hashes can be shared across the TxnGroup
	// (and inners, because the cache is shared with the inner EvalParams)
	appAddrCache map[basics.AppIndex]basics.Address

	// assembled programs, keyed by source text, shared with inner EvalParams
	programs map[string]*Program

	// Cache the txid hashing, but do *not* share this into inner EvalParams, as
	// the key is just the index in the txgroup.
	txidCache map[int]transactions.Txid

	// The calling context, if this is an inner app call
	caller *EvalContext
}

func copyWithClearAD(txgroup []transactions.SignedTxnWithAD) []transactions.SignedTxnWithAD {
	copy := make([]transactions.SignedTxnWithAD, len(txgroup))
	for i := range txgroup {
		copy[i].SignedTxn = txgroup[i].SignedTxn
		// leave copy[i].ApplyData clear
	}
	return copy
}

// NewEvalParams creates an EvalParams to use while evaluating a top-level txgroup
func NewEvalParams(txgroup []transactions.SignedTxnWithAD, proto *config.ConsensusParams) *EvalParams {
	apps := 0
	for _, tx := range txgroup {
		if tx.Txn.Type == protocol.ApplicationCallTx {
			apps++
		}
	}

	minTealVersion := ComputeMinTealVersion(txgroup, false)

	var pooledApplicationBudget *int
	var pooledAllowedInners *int

	credit := feeCredit(txgroup, proto.MinTxnFee)

	if proto.EnableAppCostPooling && apps > 0 {
		pooledApplicationBudget = new(int)
		*pooledApplicationBudget = apps * proto.MaxAppProgramCost
	}

	if proto.EnableInnerTransactionPooling && apps > 0 {
		pooledAllowedInners = new(int)
		*pooledAllowedInners = proto.MaxTxGroupSize * proto.MaxInnerTransactions
	}

	return &EvalParams{
		TxnGroup:                copyWithClearAD(txgroup),
		Proto:                   proto,
		pastScratch:             make([]*scratchSpace, len(txgroup)),
		MinTealVersion:          &minTealVersion,
		FeeCredit:               &credit,
		PooledApplicationBudget: pooledApplicationBudget,
		pooledAllowedInners:     pooledAllowedInners,
		created:                 &resources{},
		appAddrCache:            make(map[basics.AppIndex]basics.Address),
		programs:                make(map[string]*Program),
	}
}

// feeCredit returns the extra fee supplied in this top-level txgroup compared
// to required minfee. A group that underpays has no credit.
func feeCredit(txgroup []transactions.SignedTxnWithAD, minFee uint64) uint64 {
	minFeeCount := uint64(len(txgroup))
	feesPaid := uint64(0)
	for _, stxn := range txgroup {
		feesPaid = basics.AddSaturate(feesPaid, stxn.Txn.Fee.Raw)
	}
	feeNeeded := basics.MulSaturate(minFee, minFeeCount)
	return basics.SubSaturate(feesPaid, feeNeeded)
}

// NewInnerEvalParams creates an EvalParams to be used while evaluating an inner group txgroup
func NewInnerEvalParams(txg []transactions.SignedTxnWithAD, caller *EvalContext) *EvalParams {
	minTealVersion := ComputeMinTealVersion(txg, true)
	// Can't happen currently, since innerAppsEnabledVersion > than any minimum
	// imposed otherwise.  But is correct to check, in case of future restriction.
	if minTealVersion < *caller.MinTealVersion {
		minTealVersion = *caller.MinTealVersion
	}

	// Unlike NewEvalParams, do not add fee credit here. opItxnSubmit has already done so.

	if caller.Proto.EnableAppCostPooling {
		for _, tx := range txg {
			if tx.Txn.Type == protocol.ApplicationCallTx {
				*caller.PooledApplicationBudget += caller.Proto.MaxAppProgramCost
			}
		}
	}

	ep := &EvalParams{
		Proto:                   caller.Proto,
		Trace:                   caller.Trace,
		TxnGroup:                txg,
		pastScratch:             make([]*scratchSpace, len(txg)),
		logger:                  caller.logger,
		MinTealVersion:          &minTealVersion,
		FeeCredit:               caller.FeeCredit,
		PooledApplicationBudget: caller.PooledApplicationBudget,
		pooledAllowedInners:     caller.pooledAllowedInners,
		Ledger:                  caller.Ledger,
		created:                 caller.created,
		appAddrCache:            caller.appAddrCache,
		programs:                caller.programs,
		caller:                  caller,
	}
	return ep
}

type evalFunc func(cx *EvalContext) error

type runMode uint64

const (
	// runModeSignature is TEAL in LogicSig execution
	runModeSignature runMode = 1 << iota

	// runModeApplication is TEAL in application/stateful mode
	runModeApplication

	// local constant, run in any mode
	modeAny = runModeSignature | runModeApplication

	modeSig = runModeSignature
	modeApp = runModeApplication
)

// Any reports whether the mode allows both signatures and applications
func (r runMode) Any() bool {
	return r == modeAny
}

func (r runMode) String() string {
	switch r {
	case runModeSignature:
		return "Signature"
	case runModeApplication:
		return "Application"
	case modeAny:
		return "Any"
	default:
	}
	return "Unknown"
}

func (ep EvalParams) log() logging.Logger {
	if ep.logger != nil {
		return ep.logger
	}
	return logging.Base()
}

// SetLogger directs evaluation diagnostics to l instead of the base logger
func (ep *EvalParams) SetLogger(l logging.Logger) {
	ep.logger = l
}

// RecordAD notes ApplyData information that was derived outside of the logic
// package. For example, after a acfg transaction is processed, the AD created
// by the acfg is added to the EvalParams this way.
func (ep *EvalParams) RecordAD(gi int, ad transactions.ApplyData) {
	ep.TxnGroup[gi].ApplyData = ad
	if aid := ad.ConfigAsset; aid != 0 {
		ep.created.asas = append(ep.created.asas, aid)
	}
	if aid := ad.ApplicationID; aid != 0 {
		ep.created.apps = append(ep.created.apps, aid)
	}
}

// assemble returns the assembled form of source, memoized across the group
// and its inner groups.
func (ep *EvalParams) assemble(source []byte) (*Program, error) {
	if ep.programs == nil {
		ep.programs = make(map[string]*Program)
	}
	if prog, ok := ep.programs[string(source)]; ok {
		return prog, nil
	}
	prog, err := Assemble(source)
	if err != nil {
		return nil, err
	}
	ep.programs[string(source)] = prog
	return prog, nil
}

type scratchSpace [256]stackValue

// EvalContext is the execution context of AVM bytecode.  It contains the full
// state of the running program, and tracks some of the things that the program
// has done, like log messages and inner transactions.
type EvalContext struct {
	*EvalParams

	// determines eval mode: runModeSignature or runModeApplication
	runModeFlags runMode

	// the index of the transaction being evaluated
	GroupIndex int
	// the transaction being evaluated (initialized from GroupIndex + ep.TxnGroup)
	Txn *transactions.SignedTxnWithAD

	// Txn.EvalDelta maintains a summary of changes as we go. Changes made by
	// inner app calls accumulate in the ledger, but only appear here inside
	// the EvalDeltas of the InnerTxns.

	stack     Stack
	callstack []int

	appID   basics.AppIndex
	program *Program
	instr   *Instruction
	pc      int
	nextpc  int
	// set when an op moved the pc itself, since 0 is a valid target
	branched bool
	err      error
	intc     []uint64
	bytec    [][]byte
	version  uint64
	scratch  scratchSpace

	subtxns []transactions.SignedTxnWithAD // place to build for itxn_submit
	cost    int                            // cost incurred so far
	logSize int                            // total log size so far

	programHashCached crypto.Digest
}

var errLogicSigNotSupported = errors.New("LogicSig not supported")
var errTooManyArgs = errors.New("LogicSig has too many arguments")

// EvalContract executes stateful TEAL program as the gi'th transaction in params
func EvalContract(program []byte, gi int, aid basics.AppIndex, params *EvalParams) (bool, *EvalContext, error) {
	if params.Ledger == nil {
		return false, nil, errors.New("no ledger in contract eval")
	}
	if aid == 0 {
		return false, nil, errors.New("0 appId in contract eval")
	}
	cx := EvalContext{
		EvalParams:   params,
		runModeFlags: runModeApplication,
		GroupIndex:   gi,
		Txn:          &params.TxnGroup[gi],
		appID:        aid,
	}

	if cx.Txn.Txn.OnCompletion == transactions.ClearStateOC {
		if cx.PooledApplicationBudget != nil && *cx.PooledApplicationBudget < cx.Proto.MaxAppProgramCost {
			return false, nil, ClearStateBudgetError{*cx.PooledApplicationBudget}
		}
	}

	if cx.Trace != nil && cx.caller != nil {
		fmt.Fprintf(cx.Trace, "--- enter %d %s %v\n", aid, cx.Txn.Txn.OnCompletion, cx.Txn.Txn.ApplicationArgs)
	}
	pass, err := eval(program, &cx)
	if cx.Trace != nil && cx.caller != nil {
		fmt.Fprintf(cx.Trace, "--- exit  %d accept=%t\n", aid, pass)
	}

	// update side effects. Scratch is copied, so later gloads see the
	// final values even though cx goes away.
	cx.pastScratch[cx.GroupIndex] = &scratchSpace{}
	*cx.pastScratch[cx.GroupIndex] = cx.scratch

	return pass, &cx, err
}

// EvalApp is a lighter weight interface that doesn't return the EvalContext
func EvalApp(program []byte, gi int, aid basics.AppIndex, params *EvalParams) (bool, error) {
	pass, _, err := EvalContract(program, gi, aid, params)
	return pass, err
}

// EvalSignature evaluates the logicsig of the ith transaction in params.
// A program passes successfully if it finishes with one int element on the stack that is non-zero.
func EvalSignature(gi int, params *EvalParams) (pass bool, err error) {
	pass, _, err = EvalSignatureFull(gi, params)
	return pass, err
}

// EvalSignatureFull is EvalSignature, but also returns the EvalContext so the
// caller can inspect the cost of the run.
func EvalSignatureFull(gi int, params *EvalParams) (bool, *EvalContext, error) {
	cx := EvalContext{
		EvalParams:   params,
		runModeFlags: runModeSignature,
		GroupIndex:   gi,
		Txn:          &params.TxnGroup[gi],
	}
	pass, err := eval(cx.Txn.Lsig.Logic, &cx)
	return pass, &cx, err
}

// eval runs source to completion. A program that ends with anything but a
// single non-zero uint64 on the stack rejects: pass is false and err is nil.
// err is only set when the program faulted.
func eval(source []byte, cx *EvalContext) (pass bool, err error) {
	defer func() {
		if x := recover(); x != nil {
			buf := make([]byte, 16*1024)
			stlen := runtime.Stack(buf, false)
			pass = false
			errstr := string(buf[:stlen])
			if cx.Trace != nil {
				errstr += cx.Trace.String()
			}
			err = PanicError{x, errstr}
			cx.EvalParams.log().Errorf("recovered panic in Eval: %v", err)
		}
	}()

	if (cx.EvalParams.Proto == nil) || (cx.EvalParams.Proto.LogicSigVersion == 0) {
		return false, errLogicSigNotSupported
	}
	if cx.Txn.Lsig.Args != nil && len(cx.Txn.Lsig.Args) > transactions.EvalMaxArgs {
		return false, errTooManyArgs
	}

	program, err := cx.prepare(source)
	if err != nil {
		cx.err = err
		return false, err
	}

	cx.version = program.Version
	cx.program = program
	cx.pc = 0
	cx.stack = make(Stack, 0, 10)
	cx.Txn.EvalDelta = transactions.EvalDelta{
		GlobalDelta: basics.StateDelta{},
		LocalDeltas: make(map[uint64]basics.StateDelta),
	}

	for (cx.err == nil) && (cx.pc < len(cx.program.Code)) {
		cx.step()
	}
	if cx.err != nil {
		if cx.Trace != nil {
			fmt.Fprintf(cx.Trace, "%3d %s\n", cx.pc, cx.err)
		}
		return false, cx.err
	}
	if len(cx.stack) != 1 {
		if cx.Trace != nil {
			fmt.Fprintf(cx.Trace, "end stack:\n")
			for i, sv := range cx.stack {
				fmt.Fprintf(cx.Trace, "[%d] %s\n", i, sv.String())
			}
		}
		return false, nil
	}
	if cx.stack[0].Bytes != nil {
		return false, nil
	}

	return cx.stack[0].Uint != 0, nil
}

// prepare assembles and statically checks a program for cx. Failures are
// reported as faults at the instruction they concern.
func (cx *EvalContext) prepare(source []byte) (*Program, error) {
	program, err := cx.assemble(source)
	if err != nil {
		line := 0
		var lerr *LineErrorWrapper
		if errors.As(err, &lerr) {
			line = lerr.Line
		}
		return nil, &EvalError{Kind: faultKind(err), Line: line, Err: err}
	}
	if err := versionCheck(program.Version, cx.EvalParams); err != nil {
		return nil, &EvalError{Kind: ErrVersionViolation, Err: err}
	}
	if pc, err := program.validate(); err != nil {
		return nil, programFault(program, pc, err)
	}
	if program.Version < backBranchEnabledVersion {
		cx.version = program.Version
		if pc, err := cx.staticCost(program); err != nil {
			return nil, programFault(program, pc, err)
		}
	}
	return program, nil
}

func programFault(program *Program, pc int, err error) *EvalError {
	ee := &EvalError{Kind: faultKind(err), PC: pc, Err: err}
	if pc < len(program.Code) {
		ins := &program.Code[pc]
		ee.Line = ins.Line
		if ins.Spec != nil {
			ee.Op = ins.Spec.Name
		}
	}
	return ee
}

// staticCost sums the cost of every instruction. Before back branches
// were allowed, that bounded the cost of any run.
func (cx *EvalContext) staticCost(program *Program) (int, error) {
	maxCost := cx.remainingBudget()
	total := 0
	for pc := range program.Code {
		total += program.Code[pc].Spec.Cost(nil)
		if total > maxCost {
			return pc, fmt.Errorf("%w: static cost budget of %d exceeded", ErrBudgetExceeded, maxCost)
		}
	}
	return 0, nil
}

// CheckContract performs the static checks on an approval or clear state
// program that do not depend on the ledger: it must assemble, carry an
// allowed version, and (before v4) fit the cost budget.
func CheckContract(program []byte, params *EvalParams) error {
	return check(program, params, runModeApplication)
}

// CheckSignature performs the static checks of CheckContract on the logicsig
// of the gi'th transaction.
func CheckSignature(gi int, params *EvalParams) error {
	return check(params.TxnGroup[gi].Lsig.Logic, params, runModeSignature)
}

func check(source []byte, params *EvalParams, mode runMode) (err error) {
	defer func() {
		if x := recover(); x != nil {
			buf := make([]byte, 16*1024)
			stlen := runtime.Stack(buf, false)
			err = PanicError{x, string(buf[:stlen])}
			params.log().Errorf("recovered panic in Check: %v", err)
		}
	}()
	if (params.Proto == nil) || (params.Proto.LogicSigVersion == 0) {
		return errLogicSigNotSupported
	}
	cx := EvalContext{EvalParams: params, runModeFlags: mode}
	program, err := cx.prepare(source)
	if err != nil {
		return err
	}
	for pc := range program.Code {
		if program.Code[pc].Spec.Modes&mode == 0 {
			return programFault(program, pc, fmt.Errorf("%w: %s", ErrModeViolation, program.Code[pc].Spec.Name))
		}
	}
	return nil
}

func versionCheck(version uint64, params *EvalParams) error {
	if version > EvalMaxVersion {
		return fmt.Errorf("program version %d greater than max supported version %d", version, EvalMaxVersion)
	}
	if version > params.Proto.LogicSigVersion {
		return fmt.Errorf("program version %d greater than protocol supported version %d", version, params.Proto.LogicSigVersion)
	}

	if params.MinTealVersion == nil {
		minVersion := ComputeMinTealVersion(params.TxnGroup, params.caller != nil)
		params.MinTealVersion = &minVersion
	}
	if version < *params.MinTealVersion {
		return fmt.Errorf("program version must be >= %d for this transaction group, but have version %d", *params.MinTealVersion, version)
	}
	return nil
}

func nilToEmpty(x []byte) []byte {
	if x == nil {
		return make([]byte, 0)
	}
	return x
}

func boolToUint(x bool) uint64 {
	if x {
		return 1
	}
	return 0
}

// Cost returns the opcode cost incurred by this program so far
func (cx *EvalContext) Cost() int {
	return cx.cost
}

// Stack returns a copy of the operand stack
func (cx *EvalContext) Stack() Stack {
	return append(Stack(nil), cx.stack...)
}

// AppID returns the id of the application being run, 0 in signature mode
func (cx *EvalContext) AppID() basics.AppIndex {
	return cx.appID
}

func (cx *EvalContext) remainingBudget() int {
	if cx.runModeFlags == runModeSignature {
		return int(cx.Proto.LogicSigMaxCost) - cx.cost
	}

	// restrict clear state programs from using more than standard unpooled budget
	// cx.Txn is not set during check()
	if cx.Txn != nil && cx.Txn.Txn.OnCompletion == transactions.ClearStateOC {
		// ClearState programs are only run if *cx.PooledApplicationBudget
		// was at least MaxAppProgramCost at the start.
		return cx.Proto.MaxAppProgramCost - cx.cost
	}

	if cx.PooledApplicationBudget != nil {
		return *cx.PooledApplicationBudget
	}
	return cx.Proto.MaxAppProgramCost - cx.cost
}

func (cx *EvalContext) remainingInners() int {
	if cx.Proto.EnableInnerTransactionPooling && cx.pooledAllowedInners != nil {
		return *cx.pooledAllowedInners
	}
	// Before EnableInnerTransactionPooling, MaxInnerTransactions was the amount
	// allowed in a single txn.
	return cx.Proto.MaxInnerTransactions - len(cx.Txn.EvalDelta.InnerTxns)
}

// fault wraps err as an EvalError at the current instruction
func (cx *EvalContext) fault(err error) error {
	ee := &EvalError{Kind: faultKind(err), PC: cx.pc, Err: err}
	if cx.instr != nil {
		ee.Line = cx.instr.Line
		ee.Op = cx.instr.Spec.Name
	}
	return ee
}

func (cx *EvalContext) step() {
	ins := &cx.program.Code[cx.pc]
	cx.instr = ins
	spec := ins.Spec

	if spec.Version > cx.version {
		cx.err = cx.fault(fmt.Errorf("%w: %s was introduced in v%d", ErrVersionViolation, spec.Name, spec.Version))
		return
	}
	if (cx.runModeFlags & spec.Modes) == 0 {
		cx.err = cx.fault(fmt.Errorf("%w: %s", ErrModeViolation, spec.Name))
		return
	}

	// check args for stack underflow and types
	args := spec.Arg.Types
	if len(cx.stack) < len(args) {
		cx.err = cx.fault(fmt.Errorf("%w: %s needs %d", ErrStackUnderflow, spec.Name, len(args)))
		return
	}
	first := len(cx.stack) - len(args)
	for i, argType := range args {
		if !argType.matches(cx.stack[first+i]) {
			cx.err = cx.fault(fmt.Errorf("%w: %s arg %d wanted %s but got %s",
				ErrTypeMismatch, spec.Name, i, argType, cx.stack[first+i].typeName()))
			return
		}
	}

	cost := spec.Cost(cx.stack)
	cx.cost += cost
	if cx.PooledApplicationBudget != nil {
		*cx.PooledApplicationBudget -= cost
	}

	if cx.remainingBudget() < 0 {
		// We're not going to execute the instruction, so give the cost back.
		// This only matters if this is an inner ClearState - the caller should
		// not be over debited.
		cx.cost -= cost
		if cx.PooledApplicationBudget != nil {
			*cx.PooledApplicationBudget += cost
		}
		cx.err = cx.fault(fmt.Errorf("%w: executing %s, local program cost was %d",
			ErrBudgetExceeded, spec.Name, cx.cost))
		return
	}

	preheight := len(cx.stack)
	err := spec.op(cx)

	if err == nil {
		postheight := len(cx.stack)
		rets := spec.Return.Types
		if spec.AlwaysExits() {
			rets = nil
		}
		if spec.Name != "return" && postheight-preheight != len(rets)-len(args) {
			err = fmt.Errorf("%s changed stack height improperly %d != %d",
				spec.Name, postheight-preheight, len(rets)-len(args))
		} else if spec.Name != "return" {
			first = postheight - len(rets)
			for i, retType := range rets {
				sv := &cx.stack[first+i]
				if !retType.matches(*sv) {
					err = fmt.Errorf("%s produced %s but intended %s", spec.Name, sv.typeName(), retType)
					break
				}
				if sv.Bytes != nil && len(sv.Bytes) > MaxStringSize {
					err = fmt.Errorf("%w: %s produced a too big (%d) byte-array", ErrValueTooLarge, spec.Name, len(sv.Bytes))
					break
				}
			}
		}
	}

	if cx.Trace != nil {
		var stackString string
		if len(cx.stack) == 0 {
			stackString = "<empty stack>"
		} else if err == nil {
			num := 1
			if len(spec.Return.Types) > 1 {
				num = len(spec.Return.Types)
			}
			if num > len(cx.stack) {
				num = len(cx.stack)
			}
			for i := 1; i <= num; i++ {
				stackString += fmt.Sprintf("(%s) ", cx.stack[len(cx.stack)-i].String())
			}
		}
		fmt.Fprintf(cx.Trace, "%3d %4d %s => %s\n", cx.pc, ins.Line, ins.String(), stackString)
	}
	if err != nil {
		cx.err = cx.fault(err)
		return
	}

	if len(cx.stack) > MaxStackDepth {
		cx.err = cx.fault(fmt.Errorf("%w: depth %d", ErrStackOverflow, len(cx.stack)))
		return
	}
	if cx.branched {
		cx.pc = cx.nextpc
		cx.branched = false
		cx.nextpc = 0
	} else {
		cx.pc++
	}
}

// push adds sv to the stack, enforcing the depth limit
func (cx *EvalContext) push(sv stackValue) error {
	return cx.stack.Push(sv)
}

// branchTo schedules a jump to the instruction at target
func (cx *EvalContext) branchTo(target int) error {
	end := len(cx.program.Code)
	if cx.version < 2 {
		// v1 could not branch to exactly the end
		end--
	}
	if target < 0 || target > end {
		return fmt.Errorf("%w: target %d beyond end of program", ErrBadBranch, target)
	}
	if target <= cx.pc && cx.version < backBranchEnabledVersion {
		return fmt.Errorf("%w: backward branch to %d in v%d", ErrBadBranch, target, cx.version)
	}
	cx.nextpc = target
	cx.branched = true
	return nil
}

func opErr(cx *EvalContext) error {
	return fmt.Errorf("%w: TEAL runtime encountered err opcode", ErrErrOpcode)
}

func opReturn(cx *EvalContext) error {
	// Achieve the end condition:
	// Take the last element on the stack and make it the return value (only element on the stack)
	// Move the pc to the end of the program
	last := len(cx.stack) - 1
	cx.stack[0] = cx.stack[last]
	cx.stack = cx.stack[:1]
	cx.nextpc = len(cx.program.Code)
	cx.branched = true
	return nil
}

func opAssert(cx *EvalContext) error {
	last := len(cx.stack) - 1
	if cx.stack[last].Uint != 0 {
		cx.stack = cx.stack[:last]
		return nil
	}
	return fmt.Errorf("%w: pc=%d", ErrAssertFailed, cx.pc)
}

func opSwap(cx *EvalContext) error {
	last := len(cx.stack) - 1
	prev := last - 1
	cx.stack[last], cx.stack[prev] = cx.stack[prev], cx.stack[last]
	return nil
}

func opSelect(cx *EvalContext) error {
	last := len(cx.stack) - 1 // condition on top
	prev := last - 1          // true is one down
	pprev := prev - 1         // false below that

	if cx.stack[last].Uint != 0 {
		cx.stack[pprev] = cx.stack[prev]
	}
	cx.stack = cx.stack[:prev]
	return nil
}

func opIntConstBlock(cx *EvalContext) error {
	cx.intc = cx.instr.Immediates
	return nil
}

func opIntConstN(cx *EvalContext, n uint64) error {
	if n >= uint64(len(cx.intc)) {
		return fmt.Errorf("%w: intc [%d] beyond %d constants", ErrIndexOutOfBounds, n, len(cx.intc))
	}
	return cx.push(stackValue{Uint: cx.intc[n]})
}
func opIntConstLoad(cx *EvalContext) error {
	return opIntConstN(cx, cx.instr.Immediates[0])
}
func opIntConst0(cx *EvalContext) error {
	return opIntConstN(cx, 0)
}
func opIntConst1(cx *EvalContext) error {
	return opIntConstN(cx, 1)
}
func opIntConst2(cx *EvalContext) error {
	return opIntConstN(cx, 2)
}
func opIntConst3(cx *EvalContext) error {
	return opIntConstN(cx, 3)
}

func opPushInt(cx *EvalContext) error {
	return cx.push(stackValue{Uint: cx.instr.Immediates[0]})
}

func opByteConstBlock(cx *EvalContext) error {
	cx.bytec = cx.instr.Bytes
	return nil
}

func opByteConstN(cx *EvalContext, n uint64) error {
	if n >= uint64(len(cx.bytec)) {
		return fmt.Errorf("%w: bytec [%d] beyond %d constants", ErrIndexOutOfBounds, n, len(cx.bytec))
	}
	return cx.push(stackValue{Bytes: nilToEmpty(cx.bytec[n])})
}
func opByteConstLoad(cx *EvalContext) error {
	return opByteConstN(cx, cx.instr.Immediates[0])
}
func opByteConst0(cx *EvalContext) error {
	return opByteConstN(cx, 0)
}
func opByteConst1(cx *EvalContext) error {
	return opByteConstN(cx, 1)
}
func opByteConst2(cx *EvalContext) error {
	return opByteConstN(cx, 2)
}
func opByteConst3(cx *EvalContext) error {
	return opByteConstN(cx, 3)
}

func opPushBytes(cx *EvalContext) error {
	return cx.push(stackValue{Bytes: nilToEmpty(cx.instr.Bytes[0])})
}

func opArgN(cx *EvalContext, n uint64) error {
	if n >= uint64(len(cx.Txn.Lsig.Args)) {
		return fmt.Errorf("%w: cannot load arg[%d] of %d", ErrIndexOutOfBounds, n, len(cx.Txn.Lsig.Args))
	}
	val := nilToEmpty(cx.Txn.Lsig.Args[n])
	return cx.push(stackValue{Bytes: val})
}

func opArg(cx *EvalContext) error {
	return opArgN(cx, cx.instr.Immediates[0])
}
func opArg0(cx *EvalContext) error {
	return opArgN(cx, 0)
}
func opArg1(cx *EvalContext) error {
	return opArgN(cx, 1)
}
func opArg2(cx *EvalContext) error {
	return opArgN(cx, 2)
}
func opArg3(cx *EvalContext) error {
	return opArgN(cx, 3)
}
func opArgs(cx *EvalContext) error {
	last := len(cx.stack) - 1
	n := cx.stack[last].Uint
	// Pop the index and push the result back on the stack.
	cx.stack = cx.stack[:last]
	return opArgN(cx, n)
}

func opBnz(cx *EvalContext) error {
	last := len(cx.stack) - 1
	isNonZero := cx.stack[last].Uint != 0
	cx.stack = cx.stack[:last] // pop
	if isNonZero {
		return cx.branchTo(cx.instr.Target)
	}
	return nil
}

func opBz(cx *EvalContext) error {
	last := len(cx.stack) - 1
	isZero := cx.stack[last].Uint == 0
	cx.stack = cx.stack[:last] // pop
	if isZero {
		return cx.branchTo(cx.instr.Target)
	}
	return nil
}

func opB(cx *EvalContext) error {
	return cx.branchTo(cx.instr.Target)
}

func opCallSub(cx *EvalContext) error {
	cx.callstack = append(cx.callstack, cx.pc+1)
	if err := opB(cx); err != nil {
		cx.callstack = cx.callstack[:len(cx.callstack)-1]
		return err
	}
	return nil
}

func opRetSub(cx *EvalContext) error {
	top := len(cx.callstack) - 1
	if top < 0 {
		return fmt.Errorf("%w: retsub with empty callstack", ErrCallStack)
	}
	target := cx.callstack[top]
	cx.callstack = cx.callstack[:top]
	cx.nextpc = target
	cx.branched = true
	return nil
}

func opPop(cx *EvalContext) error {
	last := len(cx.stack) - 1
	cx.stack = cx.stack[:last]
	return nil
}

func opDup(cx *EvalContext) error {
	last := len(cx.stack) - 1
	sv := cx.stack[last]
	return cx.push(sv)
}

func opDup2(cx *EvalContext) error {
	last := len(cx.stack) - 1
	prev := last - 1
	a, b := cx.stack[prev], cx.stack[last]
	if err := cx.push(a); err != nil {
		return err
	}
	return cx.push(b)
}

func opDig(cx *EvalContext) error {
	depth := int(cx.instr.Immediates[0])
	idx := len(cx.stack) - 1 - depth
	// dig reaches below its declared argument, so check the depth here
	if idx < 0 {
		return fmt.Errorf("%w: dig %d with stack size = %d", ErrStackUnderflow, depth, len(cx.stack))
	}
	sv := cx.stack[idx]
	return cx.push(sv)
}

func opCover(cx *EvalContext) error {
	depth := int(cx.instr.Immediates[0])
	topIdx := len(cx.stack) - 1
	idx := topIdx - depth
	if idx < 0 {
		return fmt.Errorf("%w: cover %d with stack size = %d", ErrStackUnderflow, depth, len(cx.stack))
	}
	sv := cx.stack[topIdx]
	copy(cx.stack[idx+1:], cx.stack[idx:])
	cx.stack[idx] = sv
	return nil
}

func opUncover(cx *EvalContext) error {
	depth := int(cx.instr.Immediates[0])
	topIdx := len(cx.stack) - 1
	idx := topIdx - depth
	if idx < 0 {
		return fmt.Errorf("%w: uncover %d with stack size = %d", ErrStackUnderflow, depth, len(cx.stack))
	}

	sv := cx.stack[idx]
	copy(cx.stack[idx:], cx.stack[idx+1:])
	cx.stack[topIdx] = sv
	return nil
}

func (cx *EvalContext) getTxID(txn *transactions.Transaction, groupIndex int) transactions.Txid {
	if cx.EvalParams == nil {
		return txn.ID()
	}

	// Initialize txidCache if necessary
	if cx.EvalParams.txidCache == nil {
		cx.EvalParams.txidCache = make(map[int]transactions.Txid, len(cx.TxnGroup))
	}

	// Hashes are expensive, so we cache computed TxIDs
	txid, ok := cx.EvalParams.txidCache[groupIndex]
	if !ok {
		if cx.caller != nil {
			innerOffset := len(cx.caller.Txn.EvalDelta.InnerTxns)
			txid = txn.InnerID(cx.caller.Txn.ID(), innerOffset+groupIndex)
		} else {
			txid = txn.ID()
		}
		cx.EvalParams.txidCache[groupIndex] = txid
	}

	return txid
}

func (cx *EvalContext) txnFieldToStack(stxn *transactions.SignedTxnWithAD, fs *txnFieldSpec, arrayFieldIdx uint64, groupIndex int, inner bool) (sv stackValue, err error) {
	if fs.effects {
		if cx.runModeFlags == runModeSignature {
			return sv, fmt.Errorf("%w: txn[%s]", ErrModeViolation, fs.field)
		}
		if cx.version < txnEffectsVersion && !inner {
			return sv, fmt.Errorf("%w: unable to obtain effects from top-level transactions", ErrVersionViolation)
		}
	}
	if inner {
		// Before we had inner apps, we did not allow these, since we had no inner groups.
		if cx.version < innerAppsEnabledVersion && (fs.field == GroupIndex || fs.field == TxID) {
			err = fmt.Errorf("%w: illegal field for inner transaction %s", ErrVersionViolation, fs.field)
			return
		}
	}
	txn := &stxn.SignedTxn.Txn
	switch fs.field {
	case Sender:
		sv.Bytes = txn.Sender[:]
	case Fee:
		sv.Uint = txn.Fee.Raw
	case FirstValid:
		sv.Uint = uint64(txn.FirstValid)
	case FirstValidTime:
		err = fmt.Errorf("%w: FirstValidTime needs block headers the runtime does not keep", ErrProgramFault)
		return
	case LastValid:
		sv.Uint = uint64(txn.LastValid)
	case Note:
		sv.Bytes = nilToEmpty(txn.Note)
	case Receiver:
		sv.Bytes = txn.Receiver[:]
	case Amount:
		sv.Uint = txn.Amount.Raw
	case CloseRemainderTo:
		sv.Bytes = txn.CloseRemainderTo[:]
	case VotePK:
		sv.Bytes = txn.VotePK[:]
	case SelectionPK:
		sv.Bytes = txn.SelectionPK[:]
	case VoteFirst:
		sv.Uint = uint64(txn.VoteFirst)
	case VoteLast:
		sv.Uint = uint64(txn.VoteLast)
	case VoteKeyDilution:
		sv.Uint = txn.VoteKeyDilution
	case Nonparticipation:
		sv.Uint = boolToUint(txn.Nonparticipation)
	case Type:
		sv.Bytes = nilToEmpty([]byte(txn.Type))
	case TypeEnum:
		sv.Uint = txnTypeMap[string(txn.Type)]
	case XferAsset:
		sv.Uint = uint64(txn.XferAsset)
	case AssetAmount:
		sv.Uint = txn.AssetAmount
	case AssetSender:
		sv.Bytes = txn.AssetSender[:]
	case AssetReceiver:
		sv.Bytes = txn.AssetReceiver[:]
	case AssetCloseTo:
		sv.Bytes = txn.AssetCloseTo[:]
	case GroupIndex:
		sv.Uint = uint64(groupIndex)
	case TxID:
		txid := cx.getTxID(txn, groupIndex)
		sv.Bytes = txid[:]
	case Lease:
		sv.Bytes = txn.Lease[:]
	case ApplicationID:
		sv.Uint = uint64(txn.ApplicationID)
	case OnCompletion:
		sv.Uint = uint64(txn.OnCompletion)

	case ApplicationArgs:
		if arrayFieldIdx >= uint64(len(txn.ApplicationArgs)) {
			err = fmt.Errorf("%w: invalid ApplicationArgs index %d", ErrIndexOutOfBounds, arrayFieldIdx)
			return
		}
		sv.Bytes = nilToEmpty(txn.ApplicationArgs[arrayFieldIdx])
	case NumAppArgs:
		sv.Uint = uint64(len(txn.ApplicationArgs))

	case Accounts:
		if arrayFieldIdx == 0 {
			// special case: sender
			sv.Bytes = txn.Sender[:]
		} else {
			if arrayFieldIdx > uint64(len(txn.Accounts)) {
				err = fmt.Errorf("%w: invalid Accounts index %d", ErrIndexOutOfBounds, arrayFieldIdx)
				return
			}
			sv.Bytes = txn.Accounts[arrayFieldIdx-1][:]
		}
	case NumAccounts:
		sv.Uint = uint64(len(txn.Accounts))

	case Assets:
		if arrayFieldIdx >= uint64(len(txn.ForeignAssets)) {
			err = fmt.Errorf("%w: invalid Assets index %d", ErrIndexOutOfBounds, arrayFieldIdx)
			return
		}
		sv.Uint = uint64(txn.ForeignAssets[arrayFieldIdx])
	case NumAssets:
		sv.Uint = uint64(len(txn.ForeignAssets))

	case Applications:
		if arrayFieldIdx == 0 {
			// special case: current app id
			sv.Uint = uint64(txn.ApplicationID)
		} else {
			if arrayFieldIdx > uint64(len(txn.ForeignApps)) {
				err = fmt.Errorf("%w: invalid Applications index %d", ErrIndexOutOfBounds, arrayFieldIdx)
				return
			}
			sv.Uint = uint64(txn.ForeignApps[arrayFieldIdx-1])
		}
	case NumApplications:
		sv.Uint = uint64(len(txn.ForeignApps))

	case GlobalNumUint:
		sv.Uint = txn.GlobalStateSchema.NumUint
	case GlobalNumByteSlice:
		sv.Uint = txn.GlobalStateSchema.NumByteSlice

	case LocalNumUint:
		sv.Uint = txn.LocalStateSchema.NumUint
	case LocalNumByteSlice:
		sv.Uint = txn.LocalStateSchema.NumByteSlice

	case ApprovalProgram:
		sv.Bytes = nilToEmpty(txn.ApprovalProgram)
	case ClearStateProgram:
		sv.Bytes = nilToEmpty(txn.ClearStateProgram)
	case NumApprovalProgramPages:
		sv.Uint = uint64(divideCeilUnsafely(len(txn.ApprovalProgram), maxStringSize))
	case ApprovalProgramPages:
		sv.Bytes, err = programPage(txn.ApprovalProgram, arrayFieldIdx)
		if err != nil {
			return
		}
	case NumClearStateProgramPages:
		sv.Uint = uint64(divideCeilUnsafely(len(txn.ClearStateProgram), maxStringSize))
	case ClearStateProgramPages:
		sv.Bytes, err = programPage(txn.ClearStateProgram, arrayFieldIdx)
		if err != nil {
			return
		}
	case RekeyTo:
		sv.Bytes = txn.RekeyTo[:]
	case ConfigAsset:
		sv.Uint = uint64(txn.ConfigAsset)
	case ConfigAssetTotal:
		sv.Uint = txn.AssetParams.Total
	case ConfigAssetDecimals:
		sv.Uint = uint64(txn.AssetParams.Decimals)
	case ConfigAssetDefaultFrozen:
		sv.Uint = boolToUint(txn.AssetParams.DefaultFrozen)
	case ConfigAssetUnitName:
		sv.Bytes = nilToEmpty([]byte(txn.AssetParams.UnitName))
	case ConfigAssetName:
		sv.Bytes = nilToEmpty([]byte(txn.AssetParams.AssetName))
	case ConfigAssetURL:
		sv.Bytes = nilToEmpty([]byte(txn.AssetParams.URL))
	case ConfigAssetMetadataHash:
		sv.Bytes = nilToEmpty(txn.AssetParams.MetadataHash[:])
	case ConfigAssetManager:
		sv.Bytes = txn.AssetParams.Manager[:]
	case ConfigAssetReserve:
		sv.Bytes = txn.AssetParams.Reserve[:]
	case ConfigAssetFreeze:
		sv.Bytes = txn.AssetParams.Freeze[:]
	case ConfigAssetClawback:
		sv.Bytes = txn.AssetParams.Clawback[:]
	case FreezeAsset:
		sv.Uint = uint64(txn.FreezeAsset)
	case FreezeAssetAccount:
		sv.Bytes = txn.FreezeAccount[:]
	case FreezeAssetFrozen:
		sv.Uint = boolToUint(txn.AssetFrozen)
	case ExtraProgramPages:
		sv.Uint = uint64(txn.ExtraProgramPages)

	case Logs:
		if arrayFieldIdx >= uint64(len(stxn.EvalDelta.Logs)) {
			err = fmt.Errorf("%w: invalid Logs index %d", ErrIndexOutOfBounds, arrayFieldIdx)
			return
		}
		sv.Bytes = nilToEmpty([]byte(stxn.EvalDelta.Logs[arrayFieldIdx]))
	case NumLogs:
		sv.Uint = uint64(len(stxn.EvalDelta.Logs))
	case LastLog:
		if logs := len(stxn.EvalDelta.Logs); logs > 0 {
			sv.Bytes = nilToEmpty([]byte(stxn.EvalDelta.Logs[logs-1]))
		} else {
			sv.Bytes = nilToEmpty(nil)
		}
	case CreatedAssetID:
		sv.Uint = uint64(stxn.ApplyData.ConfigAsset)
	case CreatedApplicationID:
		sv.Uint = uint64(stxn.ApplyData.ApplicationID)

	default:
		err = fmt.Errorf("%w: invalid txn field %s", ErrBadImmediate, fs.field)
		return
	}

	if !fs.ftype.matches(sv) {
		err = fmt.Errorf("%s expected field type is %s but got %s", fs.field, fs.ftype, sv.argType())
	}
	return
}

// maxStringSize is MaxStringSize as an int, the size of a program page
const maxStringSize = MaxStringSize

func programPage(program []byte, page uint64) ([]byte, error) {
	pages := uint64(divideCeilUnsafely(len(program), maxStringSize))
	if page >= pages {
		return nil, fmt.Errorf("%w: invalid program page %d of %d", ErrIndexOutOfBounds, page, pages)
	}
	start := page * maxStringSize
	end := start + maxStringSize
	if end > uint64(len(program)) {
		end = uint64(len(program))
	}
	return nilToEmpty(program[start:end]), nil
}

func (cx *EvalContext) fetchField(field TxnField, expectArray bool) (*txnFieldSpec, error) {
	fs, ok := txnFieldSpecByField(field)
	if !ok {
		return nil, fmt.Errorf("%w: invalid txn field %d", ErrBadImmediate, field)
	}
	if fs.version > cx.version {
		return nil, fmt.Errorf("%w: txn field %s", ErrVersionViolation, field)
	}
	if expectArray != fs.array {
		if expectArray {
			return nil, fmt.Errorf("%w: unsupported array field %s", ErrBadImmediate, field)
		}
		return nil, fmt.Errorf("%w: %s is an array field", ErrBadImmediate, field)
	}
	return &fs, nil
}

type txnSource int

const (
	srcGroup txnSource = iota
	srcInner
	srcInnerGroup
)

// opTxnImpl implements all of the txn variants.  Each form of txn opcode should
// be able to get its work done with one call here, after collecting the args in
// the most straightforward way possible. They ought to do no error checking, so
// that it is all collected here.
func (cx *EvalContext) opTxnImpl(gi uint64, src txnSource, field TxnField, ai uint64, expectArray bool) (sv stackValue, err error) {
	fs, err := cx.fetchField(field, expectArray)
	if err != nil {
		return sv, err
	}

	var group []transactions.SignedTxnWithAD
	switch src {
	case srcGroup:
		if fs.effects && gi >= uint64(cx.GroupIndex) {
			// Test mode so that error is clearer
			if cx.runModeFlags == runModeSignature {
				return sv, fmt.Errorf("%w: txn[%s]", ErrModeViolation, fs.field)
			}
			return sv, fmt.Errorf("%w: txn effects can only be read from past txns %d %d", ErrIndexOutOfBounds, gi, cx.GroupIndex)
		}
		group = cx.TxnGroup
	case srcInner:
		group = cx.getLastInner()
	case srcInnerGroup:
		group = cx.getLastInnerGroup()
	}

	// We cast the length up, rather than gi down, in case gi overflows `int`.
	if gi >= uint64(len(group)) {
		return sv, fmt.Errorf("%w: txn index %d, len(group) is %d", ErrIndexOutOfBounds, gi, len(group))
	}
	tx := &group[gi]

	// int(gi) is safe because gi < len(group). Slices in Go cannot exceed `int`
	return cx.txnFieldToStack(tx, fs, ai, int(gi), src != srcGroup)
}

func opTxn(cx *EvalContext) error {
	gi := uint64(cx.GroupIndex)
	field := TxnField(cx.instr.Immediates[0])

	sv, err := cx.opTxnImpl(gi, srcGroup, field, 0, false)
	if err != nil {
		return err
	}
	return cx.push(sv)
}

func opTxna(cx *EvalContext) error {
	gi := uint64(cx.GroupIndex)
	field := TxnField(cx.instr.Immediates[0])
	ai := cx.instr.Immediates[1]

	sv, err := cx.opTxnImpl(gi, srcGroup, field, ai, true)
	if err != nil {
		return err
	}
	return cx.push(sv)
}

func opTxnas(cx *EvalContext) error {
	last := len(cx.stack) - 1

	gi := uint64(cx.GroupIndex)
	field := TxnField(cx.instr.Immediates[0])
	ai := cx.stack[last].Uint

	sv, err := cx.opTxnImpl(gi, srcGroup, field, ai, true)
	if err != nil {
		return err
	}
	cx.stack[last] = sv
	return nil
}

func opGtxn(cx *EvalContext) error {
	gi := cx.instr.Immediates[0]
	field := TxnField(cx.instr.Immediates[1])

	sv, err := cx.opTxnImpl(gi, srcGroup, field, 0, false)
	if err != nil {
		return err
	}
	return cx.push(sv)
}

func opGtxna(cx *EvalContext) error {
	gi := cx.instr.Immediates[0]
	field := TxnField(cx.instr.Immediates[1])
	ai := cx.instr.Immediates[2]

	sv, err := cx.opTxnImpl(gi, srcGroup, field, ai, true)
	if err != nil {
		return err
	}
	return cx.push(sv)
}

func opGtxnas(cx *EvalContext) error {
	last := len(cx.stack) - 1

	gi := cx.instr.Immediates[0]
	field := TxnField(cx.instr.Immediates[1])
	ai := cx.stack[last].Uint

	sv, err := cx.opTxnImpl(gi, srcGroup, field, ai, true)
	if err != nil {
		return err
	}
	cx.stack[last] = sv
	return nil
}

func opGtxns(cx *EvalContext) error {
	last := len(cx.stack) - 1

	gi := cx.stack[last].Uint
	field := TxnField(cx.instr.Immediates[0])

	sv, err := cx.opTxnImpl(gi, srcGroup, field, 0, false)
	if err != nil {
		return err
	}
	cx.stack[last] = sv
	return nil
}

func opGtxnsa(cx *EvalContext) error {
	last := len(cx.stack) - 1

	gi := cx.stack[last].Uint
	field := TxnField(cx.instr.Immediates[0])
	ai := cx.instr.Immediates[1]

	sv, err := cx.opTxnImpl(gi, srcGroup, field, ai, true)
	if err != nil {
		return err
	}
	cx.stack[last] = sv
	return nil
}

func opGtxnsas(cx *EvalContext) error {
	last := len(cx.stack) - 1
	prev := last - 1

	gi := cx.stack[prev].Uint
	field := TxnField(cx.instr.Immediates[0])
	ai := cx.stack[last].Uint

	sv, err := cx.opTxnImpl(gi, srcGroup, field, ai, true)
	if err != nil {
		return err
	}
	cx.stack[prev] = sv
	cx.stack = cx.stack[:last]
	return nil
}

func opGaidImpl(cx *EvalContext, giw uint64, opName string) (sv stackValue, err error) {
	if giw >= uint64(len(cx.TxnGroup)) {
		err = fmt.Errorf("%w: %s lookup TxnGroup[%d] but it only has %d", ErrIndexOutOfBounds, opName, giw, len(cx.TxnGroup))
		return
	}
	// Is now assured smalled than a len() so fits in int.
	gi := int(giw)
	if gi > cx.GroupIndex {
		err = fmt.Errorf("%w: %s can't get creatable ID of txn ahead of the current one (index %d) in the transaction group", ErrIndexOutOfBounds, opName, gi)
		return
	}
	if gi == cx.GroupIndex {
		err = fmt.Errorf("%w: %s is only for accessing creatable IDs of previous txns, use `global CurrentApplicationID` instead to access the current app's creatable ID", ErrIndexOutOfBounds, opName)
		return
	}
	if txn := cx.TxnGroup[gi].Txn; !(txn.Type == protocol.ApplicationCallTx || txn.Type == protocol.AssetConfigTx) {
		err = fmt.Errorf("%w: can't use %s on txn that is not an app call nor an asset config txn with index %d", ErrInvalidReference, opName, gi)
		return
	}

	if aid := cx.TxnGroup[gi].ApplyData.ConfigAsset; aid != 0 {
		return stackValue{Uint: uint64(aid)}, nil
	}
	if aid := cx.TxnGroup[gi].ApplyData.ApplicationID; aid != 0 {
		return stackValue{Uint: uint64(aid)}, nil
	}
	err = fmt.Errorf("%w: %s: index %d did not create anything", ErrInvalidReference, opName, gi)
	return
}

func opGaid(cx *EvalContext) error {
	sv, err := opGaidImpl(cx, cx.instr.Immediates[0], "gaid")
	if err != nil {
		return err
	}
	return cx.push(sv)
}

func opGaids(cx *EvalContext) error {
	last := len(cx.stack) - 1
	gi := cx.stack[last].Uint

	sv, err := opGaidImpl(cx, gi, "gaids")
	if err != nil {
		return err
	}
	cx.stack[last] = sv
	return nil
}

func (cx *EvalContext) getRound() (rnd uint64, err error) {
	if cx.Ledger == nil {
		err = fmt.Errorf("ledger not available")
		return
	}
	return uint64(cx.Ledger.Round()), nil
}

func (cx *EvalContext) getLatestTimestamp() (timestamp uint64, err error) {
	if cx.Ledger == nil {
		err = fmt.Errorf("ledger not available")
		return
	}
	ts := cx.Ledger.LatestTimestamp()
	if ts < 0 {
		err = fmt.Errorf("latest timestamp %d < 0", ts)
		return
	}
	return uint64(ts), nil
}

// getApplicationAddress memoizes app.Address() across a tx group's evaluation
func (cx *EvalContext) getApplicationAddress(app basics.AppIndex) basics.Address {
	/* Do not instantiate the cache here, that would mask a programming error.
	   The cache must be instantiated at EvalParams construction time, so that
	   proper sharing with inner EvalParams can work. */
	appAddr, ok := cx.appAddrCache[app]
	if !ok {
		appAddr = app.Address()
		cx.appAddrCache[app] = appAddr
	}

	return appAddr
}

func (cx *EvalContext) getCreatorAddress() ([]byte, error) {
	if cx.Ledger == nil {
		return nil, fmt.Errorf("ledger not available")
	}
	_, creator, err := cx.Ledger.AppParams(cx.appID)
	if err != nil {
		return nil, fmt.Errorf("no params for current app: %w", err)
	}
	return creator[:], nil
}

var zeroAddress basics.Address

func (cx *EvalContext) globalFieldToValue(fs globalFieldSpec) (sv stackValue, err error) {
	switch fs.field {
	case MinTxnFee:
		sv.Uint = cx.Proto.MinTxnFee
	case MinBalance:
		sv.Uint = cx.Proto.MinBalance
	case MaxTxnLife:
		sv.Uint = cx.Proto.MaxTxnLife
	case ZeroAddress:
		sv.Bytes = zeroAddress[:]
	case GroupSize:
		sv.Uint = uint64(len(cx.TxnGroup))
	case LogicSigVersion:
		sv.Uint = cx.Proto.LogicSigVersion
	case Round:
		sv.Uint, err = cx.getRound()
	case LatestTimestamp:
		sv.Uint, err = cx.getLatestTimestamp()
	case CurrentApplicationID:
		sv.Uint = uint64(cx.appID)
	case CurrentApplicationAddress:
		addr := cx.getApplicationAddress(cx.appID)
		sv.Bytes = addr[:]
	case CreatorAddress:
		sv.Bytes, err = cx.getCreatorAddress()
	case GroupID:
		sv.Bytes = cx.Txn.Txn.Group[:]
	case OpcodeBudget:
		sv.Uint = uint64(cx.remainingBudget())
	case CallerApplicationID:
		if cx.caller != nil {
			sv.Uint = uint64(cx.caller.appID)
		} else {
			sv.Uint = 0
		}
	case CallerApplicationAddress:
		if cx.caller != nil {
			addr := cx.caller.getApplicationAddress(cx.caller.appID)
			sv.Bytes = addr[:]
		} else {
			sv.Bytes = zeroAddress[:]
		}
	default:
		err = fmt.Errorf("%w: invalid global field %d", ErrBadImmediate, fs.field)
	}

	if err == nil && !fs.ftype.matches(sv) {
		err = fmt.Errorf("%s expected field type is %s but got %s", fs.field, fs.ftype, sv.argType())
	}

	return sv, err
}

func opGlobal(cx *EvalContext) error {
	globalField := GlobalField(cx.instr.Immediates[0])
	fs, ok := globalFieldSpecByField(globalField)
	if !ok {
		return fmt.Errorf("%w: invalid global field %s", ErrBadImmediate, globalField)
	}
	if fs.version > cx.version {
		return fmt.Errorf("%w: global field %s", ErrVersionViolation, globalField)
	}
	if (cx.runModeFlags & fs.mode) == 0 {
		return fmt.Errorf("%w: global[%s]", ErrModeViolation, globalField)
	}

	sv, err := cx.globalFieldToValue(fs)
	if err != nil {
		return err
	}
	return cx.push(sv)
}

func opLoad(cx *EvalContext) error {
	n := cx.instr.Immediates[0]
	return cx.push(cx.scratch[n])
}

func opLoads(cx *EvalContext) error {
	last := len(cx.stack) - 1
	n := cx.stack[last].Uint
	if n >= uint64(len(cx.scratch)) {
		return fmt.Errorf("%w: invalid Scratch index %d", ErrIndexOutOfBounds, n)
	}
	cx.stack[last] = cx.scratch[n]
	return nil
}

func opStore(cx *EvalContext) error {
	n := cx.instr.Immediates[0]
	last := len(cx.stack) - 1
	cx.scratch[n] = cx.stack[last]
	cx.stack = cx.stack[:last]
	return nil
}

func opStores(cx *EvalContext) error {
	last := len(cx.stack) - 1
	prev := last - 1
	n := cx.stack[prev].Uint
	if n >= uint64(len(cx.scratch)) {
		return fmt.Errorf("%w: invalid Scratch index %d", ErrIndexOutOfBounds, n)
	}
	cx.scratch[n] = cx.stack[last]
	cx.stack = cx.stack[:prev]
	return nil
}

func opGloadImpl(cx *EvalContext, gi int, scratchIdx uint64, opName string) (stackValue, error) {
	var none stackValue
	if gi >= len(cx.TxnGroup) {
		return none, fmt.Errorf("%w: %s lookup TxnGroup[%d] but it only has %d", ErrIndexOutOfBounds, opName, gi, len(cx.TxnGroup))
	}
	if scratchIdx >= uint64(len(cx.scratch)) {
		return none, fmt.Errorf("%w: invalid Scratch index %d", ErrIndexOutOfBounds, scratchIdx)
	}
	if cx.TxnGroup[gi].Txn.Type != protocol.ApplicationCallTx {
		return none, fmt.Errorf("%w: can't use %s on non-app call txn with index %d", ErrInvalidReference, opName, gi)
	}
	if gi == cx.GroupIndex {
		return none, fmt.Errorf("%w: can't use %s on self, use load instead", ErrInvalidReference, opName)
	}
	if gi > cx.GroupIndex {
		return none, fmt.Errorf("%w: %s can't get future scratch space from txn with index %d", ErrIndexOutOfBounds, opName, gi)
	}
	past := cx.pastScratch[gi]
	if past == nil {
		return none, fmt.Errorf("%w: %s txn %d has no scratch space", ErrInvalidReference, opName, gi)
	}
	return past[scratchIdx], nil
}

func opGload(cx *EvalContext) error {
	gi := int(cx.instr.Immediates[0])
	scratchIdx := cx.instr.Immediates[1]
	scratchValue, err := opGloadImpl(cx, gi, scratchIdx, "gload")
	if err != nil {
		return err
	}
	return cx.push(scratchValue)
}

func opGloads(cx *EvalContext) error {
	last := len(cx.stack) - 1
	gi := cx.stack[last].Uint
	if gi >= uint64(len(cx.TxnGroup)) {
		return fmt.Errorf("%w: gloads lookup TxnGroup[%d] but it only has %d", ErrIndexOutOfBounds, gi, len(cx.TxnGroup))
	}
	scratchIdx := cx.instr.Immediates[0]
	scratchValue, err := opGloadImpl(cx, int(gi), scratchIdx, "gloads")
	if err != nil {
		return err
	}
	cx.stack[last] = scratchValue
	return nil
}

func opGloadss(cx *EvalContext) error {
	last := len(cx.stack) - 1
	prev := last - 1

	gi := cx.stack[prev].Uint
	if gi >= uint64(len(cx.TxnGroup)) {
		return fmt.Errorf("%w: gloadss lookup TxnGroup[%d] but it only has %d", ErrIndexOutOfBounds, gi, len(cx.TxnGroup))
	}
	scratchIdx := cx.stack[last].Uint
	scratchValue, err := opGloadImpl(cx, int(gi), scratchIdx, "gloadss")
	if err != nil {
		return err
	}
	cx.stack[prev] = scratchValue
	cx.stack = cx.stack[:last]
	return nil
}

func opConcat(cx *EvalContext) error {
	last := len(cx.stack) - 1
	prev := last - 1
	a := cx.stack[prev].Bytes
	b := cx.stack[last].Bytes
	newlen := len(a) + len(b)
	if newlen > MaxStringSize {
		return fmt.Errorf("%w: concat produced a too big (%d) byte-array", ErrValueTooLarge, newlen)
	}
	newvalue := make([]byte, newlen)
	copy(newvalue, a)
	copy(newvalue[len(a):], b)
	cx.stack[prev].Bytes = newvalue
	cx.stack = cx.stack[:last]
	return nil
}

func substring(x []byte, start, end int) (out []byte, err error) {
	if end < start {
		return x, fmt.Errorf("%w: substring end before start", ErrIndexOutOfBounds)
	}
	if start > len(x) || end > len(x) {
		return x, fmt.Errorf("%w: substring range beyond length of string", ErrIndexOutOfBounds)
	}
	return nilToEmpty(x[start:end]), nil
}

func opSubstring(cx *EvalContext) error {
	last := len(cx.stack) - 1
	start := cx.instr.Immediates[0]
	end := cx.instr.Immediates[1]
	out, err := substring(cx.stack[last].Bytes, int(start), int(end))
	if err != nil {
		return err
	}
	cx.stack[last].Bytes = out
	return nil
}

func opSubstring3(cx *EvalContext) error {
	last := len(cx.stack) - 1 // end
	prev := last - 1          // start
	pprev := prev - 1         // bytes
	start := cx.stack[prev].Uint
	end := cx.stack[last].Uint
	if start > math.MaxInt32 || end > math.MaxInt32 {
		return fmt.Errorf("%w: substring range beyond length of string", ErrIndexOutOfBounds)
	}
	out, err := substring(cx.stack[pprev].Bytes, int(start), int(end))
	if err != nil {
		return err
	}
	cx.stack[pprev].Bytes = out
	cx.stack = cx.stack[:prev]
	return nil
}

func opGetBit(cx *EvalContext) error {
	last := len(cx.stack) - 1
	prev := last - 1
	idx := cx.stack[last].Uint
	target := cx.stack[prev]

	var bit uint64
	if target.argType() == StackUint64 {
		if idx > 63 {
			return fmt.Errorf("%w: getbit index > 63 with Uint", ErrIndexOutOfBounds)
		}
		mask := uint64(1) << idx
		bit = (target.Uint & mask) >> idx
	} else {
		// indexing into a byteslice
		byteIdx := idx / 8
		if byteIdx >= uint64(len(target.Bytes)) {
			return fmt.Errorf("%w: getbit index beyond byteslice", ErrIndexOutOfBounds)
		}
		byteVal := target.Bytes[byteIdx]

		bitIdx := idx % 8
		// bits within a byte are numbered from the high order end, so
		// bit 9 is the almost-highest-order bit of the second byte
		mask := byte(0x80) >> bitIdx
		bit = uint64((byteVal & mask) >> (7 - bitIdx))
	}
	cx.stack[prev].Uint = bit
	cx.stack[prev].Bytes = nil
	cx.stack = cx.stack[:last]
	return nil
}

func opSetBit(cx *EvalContext) error {
	last := len(cx.stack) - 1
	prev := last - 1
	pprev := prev - 1

	bit := cx.stack[last].Uint
	idx := cx.stack[prev].Uint
	target := cx.stack[pprev]

	if bit > 1 {
		return fmt.Errorf("%w: setbit value > 1", ErrIndexOutOfBounds)
	}

	if target.argType() == StackUint64 {
		if idx > 63 {
			return fmt.Errorf("%w: setbit index > 63 with Uint", ErrIndexOutOfBounds)
		}
		mask := uint64(1) << idx
		if bit == uint64(1) {
			cx.stack[pprev].Uint |= mask // manipulate stack in place
		} else {
			cx.stack[pprev].Uint &^= mask // manipulate stack in place
		}
	} else {
		// indexing into a byteslice
		byteIdx := idx / 8
		if byteIdx >= uint64(len(target.Bytes)) {
			return fmt.Errorf("%w: setbit index beyond byteslice", ErrIndexOutOfBounds)
		}

		bitIdx := idx % 8
		mask := byte(0x80) >> bitIdx
		// Copy to avoid modifying shared slice
		scratch := append([]byte(nil), target.Bytes...)
		if bit == uint64(1) {
			scratch[byteIdx] |= mask
		} else {
			scratch[byteIdx] &^= mask
		}
		cx.stack[pprev].Bytes = scratch
	}
	cx.stack = cx.stack[:prev]
	return nil
}

func opGetByte(cx *EvalContext) error {
	last := len(cx.stack) - 1
	prev := last - 1

	idx := cx.stack[last].Uint
	target := cx.stack[prev]

	if idx >= uint64(len(target.Bytes)) {
		return fmt.Errorf("%w: getbyte index beyond array length", ErrIndexOutOfBounds)
	}
	cx.stack[prev].Uint = uint64(target.Bytes[idx])
	cx.stack[prev].Bytes = nil
	cx.stack = cx.stack[:last]
	return nil
}

func opSetByte(cx *EvalContext) error {
	last := len(cx.stack) - 1
	prev := last - 1
	pprev := prev - 1
	if cx.stack[last].Uint > 255 {
		return fmt.Errorf("%w: setbyte value > 255", ErrOverflow)
	}
	if cx.stack[prev].Uint >= uint64(len(cx.stack[pprev].Bytes)) {
		return fmt.Errorf("%w: setbyte index beyond array length", ErrIndexOutOfBounds)
	}
	// Copy to avoid modifying shared slice
	cx.stack[pprev].Bytes = append([]byte(nil), cx.stack[pprev].Bytes...)
	cx.stack[pprev].Bytes[cx.stack[prev].Uint] = byte(cx.stack[last].Uint)
	cx.stack = cx.stack[:prev]
	return nil
}

func opExtractImpl(x []byte, start, length int) (out []byte, err error) {
	end := start + length
	if start > len(x) || end > len(x) {
		return x, fmt.Errorf("%w: extract range beyond length of string", ErrIndexOutOfBounds)
	}
	return nilToEmpty(x[start:end]), nil
}

func opExtract(cx *EvalContext) error {
	last := len(cx.stack) - 1
	startIdx := int(cx.instr.Immediates[0])
	lengthIdx := cx.instr.Immediates[1]
	// Shortcut: if length is 0, take bytes from start index to the end
	length := int(lengthIdx)
	if length == 0 {
		length = len(cx.stack[last].Bytes) - startIdx
		if length < 0 {
			return fmt.Errorf("%w: extract start beyond length of string", ErrIndexOutOfBounds)
		}
	}
	out, err := opExtractImpl(cx.stack[last].Bytes, startIdx, length)
	if err != nil {
		return err
	}
	cx.stack[last].Bytes = out
	return nil
}

func opExtract3(cx *EvalContext) error {
	last := len(cx.stack) - 1 // length
	prev := last - 1          // start
	byteArrayIdx := prev - 1  // bytes
	startIdx := cx.stack[prev].Uint
	lengthIdx := cx.stack[last].Uint
	if startIdx > math.MaxInt32 || lengthIdx > math.MaxInt32 {
		return fmt.Errorf("%w: extract range beyond length of string", ErrIndexOutOfBounds)
	}
	out, err := opExtractImpl(cx.stack[byteArrayIdx].Bytes, int(startIdx), int(lengthIdx))
	if err != nil {
		return err
	}
	cx.stack[byteArrayIdx].Bytes = out
	cx.stack = cx.stack[:prev]
	return nil
}

func opExtractNBytes(cx *EvalContext, n int) error {
	last := len(cx.stack) - 1 // start
	prev := last - 1          // bytes
	startIdx := cx.stack[last].Uint
	if startIdx > math.MaxInt32 {
		return fmt.Errorf("%w: extract range beyond length of string", ErrIndexOutOfBounds)
	}
	out, err := opExtractImpl(cx.stack[prev].Bytes, int(startIdx), n) // extract n bytes
	if err != nil {
		return err
	}
	var buf [8]byte
	copy(buf[8-n:], out)
	cx.stack[prev].Uint = binary.BigEndian.Uint64(buf[:])
	cx.stack[prev].Bytes = nil
	cx.stack = cx.stack[:last]
	return nil
}

func opExtract16Bits(cx *EvalContext) error {
	return opExtractNBytes(cx, 2) // extract 2 bytes
}

func opExtract32Bits(cx *EvalContext) error {
	return opExtractNBytes(cx, 4) // extract 4 bytes
}

func opExtract64Bits(cx *EvalContext) error {
	return opExtractNBytes(cx, 8) // extract 8 bytes
}

func opEq(cx *EvalContext) error {
	last := len(cx.stack) - 1
	prev := last - 1
	ta := cx.stack[prev].argType()
	tb := cx.stack[last].argType()
	if ta != tb {
		return fmt.Errorf("%w: cannot compare (%s to %s)", ErrTypeMismatch, cx.stack[prev].typeName(), cx.stack[last].typeName())
	}
	var cond bool
	if ta == StackBytes {
		cond = bytes.Equal(cx.stack[prev].Bytes, cx.stack[last].Bytes)
	} else {
		cond = cx.stack[prev].Uint == cx.stack[last].Uint
	}
	cx.stack[prev].Uint = boolToUint(cond)
	cx.stack[prev].Bytes = nil
	cx.stack = cx.stack[:last]
	return nil
}

func opNeq(cx *EvalContext) error {
	if err := opEq(cx); err != nil {
		return err
	}
	return opNot(cx)
}
