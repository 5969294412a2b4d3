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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/avm-runtime/config"
	"github.com/algorand/avm-runtime/crypto"
	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/protocol"
	"github.com/algorand/avm-runtime/test/partitiontest"
)

const testAppID = basics.AppIndex(888)

var testSender = basics.Address(crypto.Hash([]byte("sender")))
var testReceiver = basics.Address(crypto.Hash([]byte("receiver")))

func testProto() *config.ConsensusParams {
	proto := config.Consensus[protocol.ConsensusCurrentVersion]
	return &proto
}

// prog prefixes source with a version pragma. "; " separates lines, so
// short programs can be written on one line.
func prog(version uint64, source string) []byte {
	return []byte(fmt.Sprintf("#pragma version %d\n%s", version, strings.ReplaceAll(source, "; ", "\n")))
}

func sigParams(source []byte, txns ...transactions.SignedTxn) *EvalParams {
	if len(txns) == 0 {
		txns = []transactions.SignedTxn{{Txn: transactions.Transaction{
			Type:   protocol.PaymentTx,
			Header: transactions.Header{Sender: testSender, Fee: basics.MicroAlgos{Raw: 1000}},
		}}}
	}
	txns[0].Lsig.Logic = source
	return NewEvalParams(transactions.WrapSignedTxnsWithAD(txns), testProto())
}

func appTxn() transactions.SignedTxn {
	return transactions.SignedTxn{Txn: transactions.Transaction{
		Type: protocol.ApplicationCallTx,
		Header: transactions.Header{
			Sender:     testSender,
			Fee:        basics.MicroAlgos{Raw: 1000},
			FirstValid: 1,
			LastValid:  100,
		},
		ApplicationCallTxnFields: transactions.ApplicationCallTxnFields{
			ApplicationID: testAppID,
			Accounts:      []basics.Address{testReceiver},
		},
	}}
}

func defaultAppParams(txns ...transactions.SignedTxn) (*EvalParams, *Ledger) {
	if len(txns) == 0 {
		txns = []transactions.SignedTxn{appTxn()}
	}
	ep := NewEvalParams(transactions.WrapSignedTxnsWithAD(txns), testProto())
	ledger := NewLedger(map[basics.Address]uint64{
		testSender:   1_000_000,
		testReceiver: 500_000,
	})
	ledger.NewApp(testSender, testAppID, basics.AppParams{})
	ep.Ledger = ledger
	return ep, ledger
}

func evalSig(t *testing.T, source []byte) (bool, error) {
	t.Helper()
	return EvalSignature(0, sigParams(source))
}

func testAccepts(t *testing.T, source string, version uint64) {
	t.Helper()
	pass, err := evalSig(t, prog(version, source))
	require.NoError(t, err)
	require.True(t, pass)
}

func testRejects(t *testing.T, source string, version uint64) {
	t.Helper()
	pass, err := evalSig(t, prog(version, source))
	require.NoError(t, err)
	require.False(t, pass)
}

// testPanics runs source as a logicsig and requires a fault of the given kind
func testPanics(t *testing.T, source string, version uint64, kind error) *EvalError {
	t.Helper()
	pass, err := evalSig(t, prog(version, source))
	require.False(t, pass)
	require.ErrorIs(t, err, kind)
	var ee *EvalError
	require.True(t, errors.As(err, &ee), "%T %v", err, err)
	return ee
}

// testApp runs source as the approval program of the first txn in ep. With
// no kind, the program must accept.
func testApp(t *testing.T, source []byte, ep *EvalParams, kind ...error) *EvalContext {
	t.Helper()
	if ep == nil {
		ep, _ = defaultAppParams()
	}
	pass, cx, err := EvalContract(source, 0, testAppID, ep)
	if len(kind) == 0 {
		require.NoError(t, err)
		require.True(t, pass)
		return cx
	}
	require.False(t, pass)
	require.ErrorIs(t, err, kind[0])
	return cx
}

func TestTrivialMath(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	for v := uint64(1); v <= LogicVersion; v++ {
		t.Run(fmt.Sprintf("v=%d", v), func(t *testing.T) {
			testAccepts(t, "int 2; int 3; +; int 5; ==", v)
			testAccepts(t, "int 22; int 3; -; int 19; ==", v)
			testAccepts(t, "int 7; int 3; *; int 21; ==", v)
			testAccepts(t, "int 22; int 7; /; int 3; ==", v)
			testAccepts(t, "int 22; int 7; %; int 1; ==", v)
		})
	}
}

func TestAcceptReject(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	testAccepts(t, "int 1", 7)
	testAccepts(t, "int 7", 7)
	testRejects(t, "int 0", 7)
	testRejects(t, `byte 0x01`, 7)
	testRejects(t, "int 1; pop", 7)
	testRejects(t, "int 1; int 2", 7)
	// return leaves exactly one value, whatever was below it
	testAccepts(t, "int 0; int 0; int 1; return", 7)
	testRejects(t, "int 1; int 0; return; int 1", 7)
}

func TestArithmeticFaults(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	testPanics(t, "int 0xffffffffffffffff; int 1; +", 7, ErrOverflow)
	testPanics(t, "int 0x100000000; int 0x100000000; *", 7, ErrOverflow)
	testPanics(t, "int 1; int 2; -", 7, ErrUnderflow)
	testPanics(t, "int 1; int 0; /", 7, ErrDivisionByZero)
	testPanics(t, "int 1; int 0; %", 7, ErrDivisionByZero)
	testPanics(t, "int 0; int 0; exp", 7, ErrProgramFault)
	testPanics(t, "int 2; int 64; exp", 7, ErrOverflow)
	testPanics(t, "int 1; int 64; shl", 7, ErrOverflow)
}

func TestEvalErrorLocation(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	ee := testPanics(t, "int 1\nint 2\n-\nint 1", 7, ErrUnderflow)
	require.Equal(t, "-", ee.Op)
	require.Equal(t, 2, ee.PC)
	require.Equal(t, 4, ee.Line)
	require.ErrorIs(t, ee, ErrUnderflow)
	require.NotErrorIs(t, ee, ErrOverflow)
	require.Contains(t, ee.Error(), "line=4")
}

func TestStackFaults(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	testPanics(t, "+", 7, ErrStackUnderflow)
	testPanics(t, "int 1; byte 0x01; +", 7, ErrTypeMismatch)
	testPanics(t, "int 1; btoi", 7, ErrTypeMismatch)
	testPanics(t, "int 1; dig 3", 7, ErrStackUnderflow)

	var sb strings.Builder
	sb.WriteString("int 1\n")
	sb.WriteString(strings.Repeat("dup\n", MaxStackDepth))
	pass, err := evalSig(t, []byte("#pragma version 7\n"+sb.String()))
	require.False(t, pass)
	require.ErrorIs(t, err, ErrStackOverflow)
}

func TestStackManipulation(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	testAccepts(t, "int 1; int 2; swap; int 1; ==; assert; int 2; ==", 7)
	testAccepts(t, "int 1; int 2; dup2; +; int 3; ==; assert; +; int 3; ==", 7)
	testAccepts(t, "int 1; int 2; int 3; dig 2; int 1; ==; assert; pop; pop; pop; int 1", 7)
	testAccepts(t, "int 1; int 2; int 3; cover 2; int 2; ==; assert; pop; int 3; ==", 7)
	testAccepts(t, "int 1; int 2; int 3; uncover 2; int 1; ==; assert; pop; int 2; ==", 7)
	testAccepts(t, "int 10; int 20; int 1; select; int 20; ==", 7)
	testAccepts(t, "int 10; int 20; int 0; select; int 10; ==", 7)
}

func TestBranching(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	testAccepts(t, "int 1; bnz yes; err; yes: int 1", 7)
	testAccepts(t, "int 0; bz yes; err; yes: int 1", 7)
	testAccepts(t, "b end; err; end: int 1", 7)
	testPanics(t, "int 0; bnz yes; err; yes: int 1", 7, ErrErrOpcode)
	testPanics(t, "int 0; assert; int 1", 7, ErrAssertFailed)

	// counting loop, allowed from v4
	testAccepts(t, "int 0; loop: int 1; +; dup; int 10; <; bnz loop; int 10; ==", 4)
	_, err := evalSig(t, prog(3, "int 0; loop: int 1; +; dup; int 10; <; bnz loop; int 10; =="))
	require.ErrorIs(t, err, ErrBadBranch)
}

func TestBranchTarget(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	program, err := Assemble(prog(7, "int 1; b end; end:"))
	require.NoError(t, err)
	// A hand built target beyond the code faults
	program.Code[1].Target = 7
	cx := EvalContext{EvalParams: sigParams(nil), program: program, version: 7, instr: &program.Code[1], pc: 1}
	require.ErrorIs(t, opB(&cx), ErrBadBranch)
	// branching to exactly the end is allowed after v1
	program.Code[1].Target = len(program.Code)
	require.NoError(t, opB(&cx))
	cx.version = 1
	require.ErrorIs(t, opB(&cx), ErrBadBranch)
}

func TestSubroutines(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	testAccepts(t, "int 1; callsub double; int 2; ==; return; double: int 2; *; retsub", 7)
	testAccepts(t, `
int 3
callsub fact
int 6
==
return
fact:
dup
int 1
<=
bnz done
dup
int 1
-
callsub fact
*
done:
retsub`, 7)
	testPanics(t, "retsub; int 1", 7, ErrCallStack)
}

func TestVersionGating(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	// shl is not known to the v3 assembler
	_, err := evalSig(t, prog(3, "int 1; int 2; shl"))
	require.ErrorIs(t, err, ErrVersionViolation)
	testAccepts(t, "int 1; int 2; shl; int 4; ==", 4)

	// programs above the protocol's version are refused
	proto := testProto()
	proto.LogicSigVersion = 5
	ep := sigParams(prog(6, "int 1"))
	ep.Proto = proto
	_, err = EvalSignature(0, ep)
	require.ErrorIs(t, err, ErrVersionViolation)

	// default version is 1
	pass, err := evalSig(t, []byte("int 1"))
	require.NoError(t, err)
	require.True(t, pass)
	_, err = evalSig(t, []byte("int 1\nint 2\nswap\npop"))
	require.ErrorIs(t, err, ErrVersionViolation)
}

func TestModeGating(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	testPanics(t, `byte "hi"; log; int 1`, 7, ErrModeViolation)
	testPanics(t, "txn Sender; balance", 7, ErrModeViolation)

	ep, _ := defaultAppParams()
	testApp(t, prog(7, "arg 0; len"), ep, ErrModeViolation)
	testApp(t, prog(7, "int 1"), nil)

	// Check reports mode problems before anything runs
	sep := sigParams(prog(7, `byte "hi"; log; int 1`))
	require.ErrorIs(t, CheckSignature(0, sep), ErrModeViolation)
	require.ErrorIs(t, CheckContract(prog(7, "arg 0"), ep), ErrModeViolation)
	require.NoError(t, CheckContract(prog(7, "int 1"), ep))
}

func TestArgs(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	ep := sigParams(prog(7, "arg 0; byte 0x01; ==; arg_1; byte 0x0203; ==; &&; int 1; args; len; int 2; ==; &&"))
	ep.TxnGroup[0].Lsig.Args = [][]byte{{0x01}, {0x02, 0x03}}
	pass, err := EvalSignature(0, ep)
	require.NoError(t, err)
	require.True(t, pass)

	ep = sigParams(prog(7, "arg 2; len"))
	ep.TxnGroup[0].Lsig.Args = [][]byte{{0x01}}
	_, err = EvalSignature(0, ep)
	require.ErrorIs(t, err, ErrIndexOutOfBounds)
}

func TestConstantBlocks(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	testAccepts(t, "intcblock 5 6 7; intc_0; intc_2; +; int 12; ==", 7)
	testAccepts(t, "bytecblock 0x01 0x0203; bytec_1; len; int 2; ==", 7)
	testPanics(t, "intcblock 5; intc_1", 7, ErrIndexOutOfBounds)
	testAccepts(t, "pushint 9; pushbytes 0x0a; btoi; +; int 19; ==", 7)
}

func TestScratch(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	testAccepts(t, "int 5; store 3; load 3; int 5; ==", 7)
	testAccepts(t, "int 10; int 42; stores; int 10; loads; int 42; ==", 7)
	testAccepts(t, "load 200; int 0; ==", 7)
	testPanics(t, "int 256; int 1; stores; int 1", 7, ErrIndexOutOfBounds)
}

func TestBudgetSignature(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	// before v4 the whole program is costed up front
	source := "byte 0x01\n" + strings.Repeat("keccak256\n", 160) + "pop\nint 1"
	_, err := evalSig(t, prog(3, source))
	require.ErrorIs(t, err, ErrBudgetExceeded)

	// afterwards, only what runs counts
	source = "int 1\nbnz skip\nbyte 0x01\n" + strings.Repeat("keccak256\n", 160) + "pop\nskip:\nint 1"
	testAccepts(t, source, 4)
	testPanics(t, "byte 0x01\n"+strings.Repeat("keccak256\n", 160)+"pop\nint 1", 4, ErrBudgetExceeded)
}

func TestBudgetApplication(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	loop := "int 0; loop: int 1; +; dup; int %d; <; bnz loop; pop; int 1"
	testApp(t, prog(7, fmt.Sprintf(loop, 100)), nil)
	testApp(t, prog(7, fmt.Sprintf(loop, 200)), nil, ErrBudgetExceeded)

	// a second app call in the group doubles the pool
	ep, _ := defaultAppParams(appTxn(), appTxn())
	cx := testApp(t, prog(7, fmt.Sprintf(loop, 200)), ep)
	require.Greater(t, cx.Cost(), testProto().MaxAppProgramCost)
}

func TestCost(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	ep, _ := defaultAppParams()
	cx := testApp(t, prog(7, "byte 0x01; sha256; pop; int 1"), ep)
	require.Equal(t, 1+35+1+1, cx.Cost())
	require.Equal(t, testProto().MaxAppProgramCost-cx.Cost(), *ep.PooledApplicationBudget)
}

func TestTrace(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	ep := sigParams(prog(7, "int 1; int 2; +"))
	ep.Trace = &strings.Builder{}
	pass, err := EvalSignature(0, ep)
	require.NoError(t, err)
	require.True(t, pass)
	trace := ep.Trace.String()
	require.Contains(t, trace, "+ => (3 0x3)")
	require.Equal(t, 3, strings.Count(trace, "=>"))
}

func TestAssembleFailureIsFault(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	_, err := evalSig(t, []byte("#pragma version 7\nint 1\nnot_an_op"))
	var ee *EvalError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, 3, ee.Line)

	_, err = evalSig(t, []byte("#pragma version 7\nb nowhere\nint 1"))
	require.ErrorIs(t, err, ErrBadBranch)
}

func TestTxnFields(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	txn := appTxn()
	txn.Txn.ApplicationArgs = [][]byte{[]byte("arg0"), []byte("arg1")}
	txn.Txn.Note = []byte("note")
	ep, _ := defaultAppParams(txn)

	sender := testSender
	testApp(t, prog(7, fmt.Sprintf(`txn Sender; addr %s; ==`, sender.String())), ep)
	testApp(t, prog(7, `txn Fee; int 1000; ==`), ep)
	testApp(t, prog(7, `txn Note; byte "note"; ==`), ep)
	testApp(t, prog(7, `txn NumAppArgs; int 2; ==`), ep)
	testApp(t, prog(7, `txna ApplicationArgs 1; byte "arg1"; ==`), ep)
	testApp(t, prog(7, `int 0; txnas ApplicationArgs; byte "arg0"; ==`), ep)
	testApp(t, prog(7, `txn ApplicationID; int 888; ==`), ep)
	testApp(t, prog(7, `txn TypeEnum; int appl; ==`), ep)
	testApp(t, prog(7, `txn GroupIndex; int 0; ==`), ep)
	testApp(t, prog(7, `txn TxID; len; int 32; ==`), ep)
	testApp(t, prog(7, `txna Accounts 1; txn Sender; !=`), ep)
	testApp(t, prog(7, `txna ApplicationArgs 2; len`), ep, ErrIndexOutOfBounds)
	testApp(t, prog(7, `txn FirstValidTime`), ep, ErrProgramFault)
}

func TestGroupAccess(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	pay := transactions.SignedTxn{Txn: transactions.Transaction{
		Type:             protocol.PaymentTx,
		Header:           transactions.Header{Sender: testSender, Fee: basics.MicroAlgos{Raw: 1000}},
		PaymentTxnFields: transactions.PaymentTxnFields{Receiver: testReceiver, Amount: basics.MicroAlgos{Raw: 77}},
	}}
	ep, _ := defaultAppParams(appTxn(), pay)
	testApp(t, prog(7, "gtxn 1 Amount; int 77; =="), ep)
	testApp(t, prog(7, "int 1; gtxns TypeEnum; int pay; =="), ep)
	testApp(t, prog(7, "global GroupSize; int 2; =="), ep)
	testApp(t, prog(7, "gtxn 2 Amount"), ep, ErrIndexOutOfBounds)
}

func TestGlobals(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	ep, ledger := defaultAppParams()
	ledger.rnd = 55
	ledger.timestamp = 1234
	testApp(t, prog(7, "global MinTxnFee; int 1000; =="), ep)
	testApp(t, prog(7, "global Round; int 55; =="), ep)
	testApp(t, prog(7, "global LatestTimestamp; int 1234; =="), ep)
	testApp(t, prog(7, "global CurrentApplicationID; int 888; =="), ep)
	testApp(t, prog(7, "global ZeroAddress; len; int 32; =="), ep)
	testApp(t, prog(7, "global CurrentApplicationAddress; global ZeroAddress; !="), ep)
	testApp(t, prog(7, "global CreatorAddress; txn Sender; =="), ep)

	testAccepts(t, "global LogicSigVersion; int 7; ==", 7)
	testPanics(t, "global Round", 7, ErrModeViolation)
}

func TestGload(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	ep, _ := defaultAppParams(appTxn(), appTxn(), appTxn())
	_, err := EvalApp(prog(7, "int 42; store 4; int 1"), 0, testAppID, ep)
	require.NoError(t, err)
	pass, err := EvalApp(prog(7, "gload 0 4; int 42; =="), 1, testAppID, ep)
	require.NoError(t, err)
	require.True(t, pass)
	pass, err = EvalApp(prog(7, "int 0; gloads 4; int 42; =="), 1, testAppID, ep)
	require.NoError(t, err)
	require.True(t, pass)

	// only earlier transactions can be read
	_, err = EvalApp(prog(7, "gload 2 4; int 42; =="), 1, testAppID, ep)
	require.ErrorIs(t, err, ErrIndexOutOfBounds)
	_, err = EvalApp(prog(7, "gload 1 4; int 42; =="), 1, testAppID, ep)
	require.ErrorIs(t, err, ErrInvalidReference)
	_, err = EvalApp(prog(7, "int 3; gloads 4"), 1, testAppID, ep)
	require.ErrorIs(t, err, ErrIndexOutOfBounds)
}

func TestClearStateBudget(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()
	txn := appTxn()
	txn.Txn.OnCompletion = transactions.ClearStateOC
	ep, _ := defaultAppParams(txn)
	*ep.PooledApplicationBudget = 10
	_, _, err := EvalContract(prog(7, "int 1"), 0, testAppID, ep)
	var cse ClearStateBudgetError
	require.ErrorAs(t, err, &cse)
}
