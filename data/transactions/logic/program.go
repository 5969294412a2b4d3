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
)

// Instruction is a single assembled operation with its immediates already
// resolved, so evaluation never re-parses source text.
type Instruction struct {
	Spec *OpSpec
	Line int

	// Immediates holds byte-sized immediates (field ids, slots, indexes)
	// and integer immediates (pushint, intcblock) in source order.
	Immediates []uint64

	// Bytes holds byte-string immediates (pushbytes, bytecblock).
	Bytes [][]byte

	// Target is the index into Program.Code that a branch jumps to.
	// len(Code) is a legal target and ends the program.
	Target int
}

func (ins *Instruction) String() string {
	if ins.Spec == nil {
		return "<nil>"
	}
	var sb strings.Builder
	sb.WriteString(ins.Spec.Name)
	for _, imm := range ins.Spec.Immediates {
		if imm.kind == immLabel {
			fmt.Fprintf(&sb, " @%d", ins.Target)
			break
		}
	}
	for i, v := range ins.Immediates {
		if i < len(ins.Spec.Immediates) && ins.Spec.Immediates[i].Group != nil {
			names := ins.Spec.Immediates[i].Group.Names
			if v < uint64(len(names)) {
				sb.WriteString(" " + names[v])
				continue
			}
		}
		fmt.Fprintf(&sb, " %d", v)
	}
	for _, b := range ins.Bytes {
		sb.WriteString(" 0x" + hex.EncodeToString(b))
	}
	return sb.String()
}

// Program is an assembled program ready for evaluation.
type Program struct {
	Version uint64
	Code    []Instruction

	// Source is the text the program was assembled from. Hashes and
	// addresses of a program are computed over it.
	Source []byte

	// Labels maps each label to the index of the instruction it marks
	Labels map[string]int
}

// immediate returns the i'th byte-sized immediate, checking that it was
// supplied.
func (ins *Instruction) immediate(i int) (uint64, error) {
	if i >= len(ins.Immediates) {
		return 0, fmt.Errorf("%w: %s missing immediate %d", ErrBadImmediate, ins.Spec.Name, i)
	}
	return ins.Immediates[i], nil
}

// validate checks the immediates of every instruction against its spec,
// the way a bytecode checker would before running.
func (p *Program) validate() (int, error) {
	for pc := range p.Code {
		ins := &p.Code[pc]
		if ins.Spec == nil || ins.Spec.op == nil {
			return pc, fmt.Errorf("%w: illegal instruction", ErrBadImmediate)
		}
		nbytes := 0
		nimms := 0
		for _, imm := range ins.Spec.Immediates {
			switch imm.kind {
			case immByte:
				if nimms >= len(ins.Immediates) {
					return pc, fmt.Errorf("%w: %s expects immediate %s", ErrBadImmediate, ins.Spec.Name, imm.Name)
				}
				if ins.Immediates[nimms] > 255 {
					return pc, fmt.Errorf("%w: %s immediate %s is %d", ErrBadImmediate, ins.Spec.Name, imm.Name, ins.Immediates[nimms])
				}
				nimms++
			case immInt:
				if nimms >= len(ins.Immediates) {
					return pc, fmt.Errorf("%w: %s expects an int", ErrBadImmediate, ins.Spec.Name)
				}
				nimms++
			case immBytes:
				if nbytes >= len(ins.Bytes) {
					return pc, fmt.Errorf("%w: %s expects bytes", ErrBadImmediate, ins.Spec.Name)
				}
				nbytes++
			case immInts, immBytess, immLabel:
			}
		}
	}
	return 0, nil
}
