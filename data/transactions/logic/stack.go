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
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/algorand/avm-runtime/data/basics"
)

// MaxStackDepth is the maximum number of values on the operand stack
const MaxStackDepth = 1000

// StackType describes the type of a value on the operand stack
type StackType byte

const (
	// StackNone in an OpSpec shows that the op pops or yields nothing
	StackNone StackType = iota

	// StackAny in an OpSpec shows that the op pops or yield any type
	StackAny

	// StackUint64 in an OpSpec shows that the op pops or yields a uint64
	StackUint64

	// StackBytes in an OpSpec shows that the op pops or yields a []byte
	StackBytes
)

// StackTypes is an alias for a list of StackType with syntactic sugar
type StackTypes []StackType

func (st StackType) String() string {
	switch st {
	case StackNone:
		return "None"
	case StackAny:
		return "any"
	case StackUint64:
		return "uint64"
	case StackBytes:
		return "[]byte"
	}
	return "internal error, unknown type"
}

func (st StackType) matches(sv stackValue) bool {
	return st == StackAny || st == sv.argType()
}

func parseStackTypes(spec string) StackTypes {
	if spec == "" {
		return nil
	}
	types := make(StackTypes, len(spec))
	for i, letter := range spec {
		switch letter {
		case 'a':
			types[i] = StackAny
		case 'b':
			types[i] = StackBytes
		case 'i':
			types[i] = StackUint64
		case 'x':
			types[i] = StackNone
		default:
			panic(spec)
		}
	}
	return types
}

// stackValue is the type for the operand stack.
// Each stackValue is either a valid []byte value or a uint64 value.
// If (.Bytes != nil) the stackValue is a []byte value, otherwise uint64 value.
type stackValue struct {
	Uint  uint64
	Bytes []byte
}

func (sv *stackValue) argType() StackType {
	if sv.Bytes != nil {
		return StackBytes
	}
	return StackUint64
}

func (sv *stackValue) typeName() string {
	if sv.Bytes != nil {
		return "[]byte"
	}
	return "uint64"
}

func (sv *stackValue) clone() stackValue {
	if sv.Bytes != nil {
		bytesClone := make([]byte, len(sv.Bytes))
		copy(bytesClone, sv.Bytes)
		return stackValue{Bytes: bytesClone}
	}
	return stackValue{Uint: sv.Uint}
}

func (sv *stackValue) String() string {
	if sv.Bytes != nil {
		return hex.EncodeToString(sv.Bytes)
	}
	return fmt.Sprintf("%d 0x%x", sv.Uint, sv.Uint)
}

func (sv *stackValue) address() (addr basics.Address, err error) {
	if len(sv.Bytes) != len(addr) {
		return basics.Address{}, fmt.Errorf("%w: not an address", ErrTypeMismatch)
	}
	copy(addr[:], sv.Bytes)
	return
}

func (sv *stackValue) uint() (uint64, error) {
	if sv.Bytes != nil {
		return 0, fmt.Errorf("%w: not a uint64", ErrTypeMismatch)
	}
	return sv.Uint, nil
}

func (sv *stackValue) uintMaxed(max uint64) (uint64, error) {
	if sv.Bytes != nil {
		return 0, fmt.Errorf("%w: %#v is not a uint64", ErrTypeMismatch, sv.Bytes)
	}
	if sv.Uint > max {
		return 0, fmt.Errorf("%w: %d is larger than max=%d", ErrIndexOutOfBounds, sv.Uint, max)
	}
	return sv.Uint, nil
}

func (sv *stackValue) bool() (bool, error) {
	u64, err := sv.uint()
	if err != nil {
		return false, err
	}
	switch u64 {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: boolean is neither 1 nor 0: %d", ErrTypeMismatch, u64)
	}
}

func (sv *stackValue) string(limit int) (string, error) {
	if sv.Bytes == nil {
		return "", fmt.Errorf("%w: not a byte array", ErrTypeMismatch)
	}
	if len(sv.Bytes) > limit {
		return "", fmt.Errorf("%w: value is too long", ErrValueTooLarge)
	}
	return string(sv.Bytes), nil
}

func (sv *stackValue) toTealValue() basics.TealValue {
	if sv.argType() == StackBytes {
		return basics.TealValue{Type: basics.TealBytesType, Bytes: string(sv.Bytes)}
	}
	return basics.TealValue{Type: basics.TealUintType, Uint: sv.Uint}
}

func stackValueFromTealValue(tv basics.TealValue) (sv stackValue, err error) {
	switch tv.Type {
	case basics.TealBytesType:
		sv.Bytes = []byte(tv.Bytes)
	case basics.TealUintType:
		sv.Uint = tv.Uint
	default:
		err = fmt.Errorf("invalid TEAL value type: %d", tv.Type)
	}
	return
}

// Stack is the bounded operand stack of a running program. Ops index
// into it directly; Push and Pop enforce the depth and type rules.
type Stack []stackValue

// Len returns the number of values on the stack
func (s *Stack) Len() int {
	return len(*s)
}

// Push adds a value to the top of the stack
func (s *Stack) Push(v stackValue) error {
	if len(*s) >= MaxStackDepth {
		return fmt.Errorf("%w: stack depth %d", ErrStackOverflow, MaxStackDepth)
	}
	*s = append(*s, v)
	return nil
}

// Pop removes and returns the top of the stack
func (s *Stack) Pop() (stackValue, error) {
	last := len(*s) - 1
	if last < 0 {
		return stackValue{}, ErrStackUnderflow
	}
	v := (*s)[last]
	*s = (*s)[:last]
	return v, nil
}

// PopUint pops a uint64. The stack is unchanged if the top is not a uint64.
func (s *Stack) PopUint() (uint64, error) {
	last := len(*s) - 1
	if last < 0 {
		return 0, ErrStackUnderflow
	}
	u, err := (*s)[last].uint()
	if err != nil {
		return 0, err
	}
	*s = (*s)[:last]
	return u, nil
}

// PopBytes pops a byte-array. The stack is unchanged if the top is not bytes.
func (s *Stack) PopBytes() ([]byte, error) {
	last := len(*s) - 1
	if last < 0 {
		return nil, ErrStackUnderflow
	}
	if (*s)[last].Bytes == nil {
		return nil, fmt.Errorf("%w: not a byte array", ErrTypeMismatch)
	}
	b := (*s)[last].Bytes
	*s = (*s)[:last]
	return b, nil
}

// Peek returns up to n values from the top of the stack, top first
func (s *Stack) Peek(n int) []stackValue {
	n = max(0, min(n, len(*s)))
	out := make([]stackValue, n)
	for i := 0; i < n; i++ {
		out[i] = (*s)[len(*s)-1-i]
	}
	return out
}

func (s Stack) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, sv := range s {
		if i > 0 {
			sb.WriteString(", ")
		}
		if sv.Bytes != nil {
			sb.WriteString("0x")
			sb.WriteString(hex.EncodeToString(sv.Bytes))
		} else {
			fmt.Fprintf(&sb, "%d", sv.Uint)
		}
	}
	sb.WriteByte(']')
	return sb.String()
}
