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
)

// Fault kinds. Every runtime error returned by the interpreter is an
// *EvalError whose Kind is one of these, so callers can test with errors.Is.
var (
	ErrStackUnderflow   = errors.New("stack underflow")
	ErrStackOverflow    = errors.New("stack overflow")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrOverflow         = errors.New("overflow")
	ErrUnderflow        = errors.New("underflow")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	ErrValueTooLarge    = errors.New("value too large")
	ErrBadImmediate     = errors.New("bad immediate")
	ErrBadBranch        = errors.New("bad branch")
	ErrCallStack        = errors.New("callstack error")
	ErrModeViolation    = errors.New("not allowed in current mode")
	ErrVersionViolation = errors.New("not available in program version")
	ErrBudgetExceeded   = errors.New("dynamic cost budget exceeded")
	ErrAssertFailed     = errors.New("assert failed")
	ErrErrOpcode        = errors.New("err opcode executed")
	ErrInvalidReference = errors.New("unavailable reference")
	ErrLogLimit         = errors.New("log limit exceeded")
	ErrInnerTxn         = errors.New("inner transaction error")
	ErrProgramFault     = errors.New("program fault")
)

// faultKinds is searched in order, so wrapped errors that carry more than
// one kind report the first match. A failed inner transaction may wrap the
// callee's own fault, so ErrInnerTxn comes first.
var faultKinds = []error{
	ErrInnerTxn,
	ErrStackUnderflow, ErrStackOverflow, ErrTypeMismatch,
	ErrOverflow, ErrUnderflow, ErrDivisionByZero,
	ErrIndexOutOfBounds, ErrValueTooLarge, ErrBadImmediate, ErrBadBranch,
	ErrCallStack, ErrModeViolation, ErrVersionViolation, ErrBudgetExceeded,
	ErrAssertFailed, ErrErrOpcode, ErrInvalidReference, ErrLogLimit,
}

// EvalError is the error returned when a program faults. It records where
// the fault happened and which kind of fault it was.
type EvalError struct {
	Kind error
	Op   string
	PC   int
	Line int
	Err  error
}

func (e *EvalError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("pc=%d %v", e.PC, e.Err)
	}
	return fmt.Sprintf("pc=%d line=%d %s: %v", e.PC, e.Line, e.Op, e.Err)
}

// Unwrap exposes the underlying error
func (e *EvalError) Unwrap() error {
	return e.Err
}

// Is matches the fault kind
func (e *EvalError) Is(target error) bool {
	return e.Kind == target
}

func faultKind(err error) error {
	for _, kind := range faultKinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrProgramFault
}

// ClearStateBudgetError is returned when a clear state program is not given
// its full budget to start with.
type ClearStateBudgetError struct {
	offered int
}

func (e ClearStateBudgetError) Error() string {
	return fmt.Sprintf("attempted ClearState execution with low OpcodeBudget %d", e.offered)
}

// PanicError wraps a recover() catching a panic()
type PanicError struct {
	PanicValue interface{}
	StackTrace string
}

func (pe PanicError) Error() string {
	return fmt.Sprintf("panic in TEAL Eval: %v\n%s", pe.PanicValue, pe.StackTrace)
}
