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
	"bufio"
	"bytes"
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/algorand/avm-runtime/crypto"
	"github.com/algorand/avm-runtime/data/basics"
)

// AssemblerDefaultVersion is the version used when a program has no
// #pragma version line
const AssemblerDefaultVersion = 1

const assemblerNoVersion = 0

type asmFunc func(*OpStream, *OpSpec, []string) error

// OpStream accumulates state while assembling a program: the instructions
// so far, labels and the references that still need resolving.
type OpStream struct {
	Version uint64
	Code    []Instruction
	Errors  []*LineErrorWrapper

	sourceLine int
	labels     map[string]int
	labelRefs  []labelReference
}

type labelReference struct {
	sourceLine  int
	instruction int
	label       string
}

func newOpStream(version uint64) OpStream {
	return OpStream{
		Version: version,
		labels:  make(map[string]int),
	}
}

// LineErrorWrapper attaches a source line to an assembly error
type LineErrorWrapper struct {
	Line int
	Err  error
}

func (lew *LineErrorWrapper) Error() string {
	return fmt.Sprintf(":%d %s", lew.Line, lew.Err.Error())
}

// Unwrap exposes the underlying error
func (lew *LineErrorWrapper) Unwrap() error {
	return lew.Err
}

func (ops *OpStream) lineErr(err error) error {
	lew := &LineErrorWrapper{Line: ops.sourceLine, Err: err}
	ops.Errors = append(ops.Errors, lew)
	return lew
}

func (ops *OpStream) errorf(format string, a ...interface{}) error {
	return ops.lineErr(fmt.Errorf(format, a...))
}

func (ops *OpStream) emit(spec *OpSpec, imms []uint64, byteImms [][]byte) {
	s := *spec
	ops.Code = append(ops.Code, Instruction{
		Spec:       &s,
		Line:       ops.sourceLine,
		Immediates: imms,
		Bytes:      byteImms,
	})
}

func (ops *OpStream) referToLabel(label string) {
	ops.labelRefs = append(ops.labelRefs, labelReference{ops.sourceLine, len(ops.Code), label})
}

func (ops *OpStream) createLabel(label string) error {
	if _, ok := ops.labels[label]; ok {
		return fmt.Errorf("duplicate label %#v", label)
	}
	ops.labels[label] = len(ops.Code)
	return nil
}

func parseUint(s string) (uint64, error) {
	val, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unable to parse %#v as integer", ErrBadImmediate, s)
	}
	return val, nil
}

// asmInt parses the argument of `int`, which may be a named constant
func asmInt(ops *OpStream, spec *OpSpec, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: %s needs one argument", ErrBadImmediate, spec.Name)
	}
	if val, ok := txnTypeMap[args[0]]; ok {
		ops.emit(spec, []uint64{val}, nil)
		return nil
	}
	if val, ok := onCompletionMap[args[0]]; ok {
		ops.emit(spec, []uint64{val}, nil)
		return nil
	}
	val, err := parseUint(args[0])
	if err != nil {
		return err
	}
	ops.emit(spec, []uint64{val}, nil)
	return nil
}

func asmPushInt(ops *OpStream, spec *OpSpec, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: %s needs one argument", ErrBadImmediate, spec.Name)
	}
	val, err := parseUint(args[0])
	if err != nil {
		return err
	}
	ops.emit(spec, []uint64{val}, nil)
	return nil
}

func asmByte(ops *OpStream, spec *OpSpec, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: %s operation needs byte literal argument", ErrBadImmediate, spec.Name)
	}
	val, consumed, err := parseBinaryArgs(args)
	if err != nil {
		return err
	}
	if len(args) != consumed {
		return fmt.Errorf("%w: %s operation with extraneous argument", ErrBadImmediate, spec.Name)
	}
	ops.emit(spec, nil, [][]byte{val})
	return nil
}

func asmPushBytes(ops *OpStream, spec *OpSpec, args []string) error {
	return asmByte(ops, spec, args)
}

func asmAddr(ops *OpStream, spec *OpSpec, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: addr operation needs one argument", ErrBadImmediate)
	}
	addr, err := basics.UnmarshalChecksumAddress(args[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadImmediate, err)
	}
	ops.emit(spec, nil, [][]byte{addr[:]})
	return nil
}

func asmMethod(ops *OpStream, spec *OpSpec, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: method requires a literal argument", ErrBadImmediate)
	}
	arg := args[0]
	if len(arg) < 2 || arg[0] != '"' || arg[len(arg)-1] != '"' {
		return fmt.Errorf("%w: unable to parse method signature", ErrBadImmediate)
	}
	signature, err := parseStringLiteral(arg)
	if err != nil {
		return err
	}
	open := bytes.IndexByte(signature, '(')
	close := bytes.LastIndexByte(signature, ')')
	if open <= 0 || close < open {
		return fmt.Errorf("%w: invalid method signature %#v", ErrBadImmediate, string(signature))
	}
	hash := crypto.Hash(signature)
	ops.emit(spec, nil, [][]byte{hash[:4]})
	return nil
}

func asmIntCBlock(ops *OpStream, spec *OpSpec, args []string) error {
	ivals := make([]uint64, len(args))
	for i, xs := range args {
		cu, err := parseUint(xs)
		if err != nil {
			return err
		}
		ivals[i] = cu
	}
	ops.emit(spec, ivals, nil)
	return nil
}

func asmByteCBlock(ops *OpStream, spec *OpSpec, args []string) error {
	var bvals [][]byte
	rest := args
	for len(rest) > 0 {
		val, consumed, err := parseBinaryArgs(rest)
		if err != nil {
			return err
		}
		bvals = append(bvals, val)
		rest = rest[consumed:]
	}
	ops.emit(spec, nil, bvals)
	return nil
}

func parseBase32(s string) ([]byte, error) {
	return base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.TrimRight(s, "="))
}

// parseBinaryArgs parses a byte literal from one or two tokens:
//
//	byte {base64,b64,base32,b32}(...)
//	byte {base64,b64,base32,b32} ...
//	byte 0x....
//	byte "this is a string\n"
func parseBinaryArgs(args []string) (val []byte, consumed int, err error) {
	arg := args[0]
	switch {
	case strings.HasPrefix(arg, "base32(") || strings.HasPrefix(arg, "b32("):
		open := strings.IndexRune(arg, '(')
		close := strings.IndexRune(arg, ')')
		if close == -1 {
			return nil, 0, fmt.Errorf("%w: byte base32 arg lacks close paren", ErrBadImmediate)
		}
		val, err = parseBase32(arg[open+1 : close])
		consumed = 1
	case strings.HasPrefix(arg, "base64(") || strings.HasPrefix(arg, "b64("):
		open := strings.IndexRune(arg, '(')
		close := strings.IndexRune(arg, ')')
		if close == -1 {
			return nil, 0, fmt.Errorf("%w: byte base64 arg lacks close paren", ErrBadImmediate)
		}
		val, err = base64.StdEncoding.DecodeString(arg[open+1 : close])
		consumed = 1
	case strings.HasPrefix(arg, "0x"):
		val, err = hex.DecodeString(arg[2:])
		consumed = 1
	case arg == "base32" || arg == "b32":
		if len(args) < 2 {
			return nil, 0, fmt.Errorf("%w: need literal after 'byte %s'", ErrBadImmediate, arg)
		}
		val, err = parseBase32(args[1])
		consumed = 2
	case arg == "base64" || arg == "b64":
		if len(args) < 2 {
			return nil, 0, fmt.Errorf("%w: need literal after 'byte %s'", ErrBadImmediate, arg)
		}
		val, err = base64.StdEncoding.DecodeString(args[1])
		consumed = 2
	case len(arg) > 1 && arg[0] == '"' && arg[len(arg)-1] == '"':
		val, err = parseStringLiteral(arg)
		consumed = 1
	default:
		return nil, 0, fmt.Errorf("%w: byte arg did not parse: %v", ErrBadImmediate, arg)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrBadImmediate, err)
	}
	if val == nil {
		val = []byte{}
	}
	return val, consumed, nil
}

func parseStringLiteral(input string) ([]byte, error) {
	s, err := strconv.Unquote(input)
	if err != nil {
		return nil, fmt.Errorf("%w: bad string literal %s", ErrBadImmediate, input)
	}
	return []byte(s), nil
}

// asmDefault assembles an op whose immediates are all described by its
// spec: byte-sized numbers, field names, and branch labels.
func asmDefault(ops *OpStream, spec *OpSpec, args []string) error {
	if len(args) != len(spec.Immediates) {
		return fmt.Errorf("%w: %s expects %d immediate arguments", ErrBadImmediate, spec.Name, len(spec.Immediates))
	}
	var imms []uint64
	for i, imm := range spec.Immediates {
		switch imm.kind {
		case immLabel:
			ops.referToLabel(args[i])
		case immByte:
			if imm.Group != nil {
				fs, ok := imm.Group.SpecByName(args[i])
				if !ok {
					return fmt.Errorf("%w: %s unknown field: %#v", ErrBadImmediate, spec.Name, args[i])
				}
				if fs.OpVersion() > ops.Version {
					return fmt.Errorf("%w: %s %s field was introduced in v%d",
						ErrVersionViolation, spec.Name, args[i], fs.OpVersion())
				}
				if tfs, ok := fs.(txnFieldSpec); ok && tfs.array && imm.Group == &TxnFields {
					return fmt.Errorf("%w: found array field %#v in %s op", ErrBadImmediate, args[i], spec.Name)
				}
				if tfs, ok := fs.(txnFieldSpec); ok && imm.Group == &ItxnSettableFields && tfs.itxVersion > ops.Version {
					return fmt.Errorf("%w: %s %s field was introduced in v%d",
						ErrVersionViolation, spec.Name, args[i], tfs.itxVersion)
				}
				imms = append(imms, uint64(fs.Field()))
				continue
			}
			val, err := parseUint(args[i])
			if err != nil {
				return err
			}
			if val > 255 {
				return fmt.Errorf("%w: %s %s beyond 255: %d", ErrBadImmediate, spec.Name, imm.Name, val)
			}
			imms = append(imms, val)
		default:
			return fmt.Errorf("%w: %s has unexpected immediate kind", ErrBadImmediate, spec.Name)
		}
	}
	ops.emit(spec, imms, nil)
	return nil
}

func asmBranch(ops *OpStream, spec *OpSpec, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: %s needs a single label argument", ErrBadImmediate, spec.Name)
	}
	return asmDefault(ops, spec, args)
}

// switchTo assembles a different op of the same family when the extra
// argument form is used, e.g. `txn Accounts 1` is `txna Accounts 1`.
func (ops *OpStream) switchTo(name string, args []string) error {
	other, ok := OpsByName[ops.Version][name]
	if !ok {
		return fmt.Errorf("%w: %s was introduced later", ErrVersionViolation, name)
	}
	return asmDefault(ops, &other, args)
}

func asmTxn2(ops *OpStream, spec *OpSpec, args []string) error {
	if len(args) == 2 {
		return ops.switchTo("txna", args)
	}
	return asmDefault(ops, spec, args)
}

func asmGtxn2(ops *OpStream, spec *OpSpec, args []string) error {
	if len(args) == 3 {
		return ops.switchTo("gtxna", args)
	}
	return asmDefault(ops, spec, args)
}

func asmGtxns(ops *OpStream, spec *OpSpec, args []string) error {
	if len(args) == 2 {
		return ops.switchTo("gtxnsa", args)
	}
	return asmDefault(ops, spec, args)
}

func asmItxn(ops *OpStream, spec *OpSpec, args []string) error {
	if len(args) == 2 {
		return ops.switchTo("itxna", args)
	}
	return asmDefault(ops, spec, args)
}

func asmGitxn(ops *OpStream, spec *OpSpec, args []string) error {
	if len(args) == 3 {
		return ops.switchTo("gitxna", args)
	}
	return asmDefault(ops, spec, args)
}

// fieldsFromLine splits a line into tokens. Quoted strings are kept
// together (quotes included), a ; outside a string is its own token and a
// // outside a string starts a comment.
func fieldsFromLine(line string) []string {
	var fields []string
	i := 0
	for i < len(line) {
		r := rune(line[i])
		switch {
		case unicode.IsSpace(r):
			i++
		case strings.HasPrefix(line[i:], "//"):
			return fields
		case r == ';':
			fields = append(fields, ";")
			i++
		case r == '"':
			start := i
			i++
			for i < len(line) && line[i] != '"' {
				if line[i] == '\\' {
					i++
				}
				i++
			}
			if i < len(line) {
				i++
			}
			if i > len(line) {
				i = len(line)
			}
			fields = append(fields, line[start:i])
		default:
			start := i
			for i < len(line) && !unicode.IsSpace(rune(line[i])) && !strings.HasPrefix(line[i:], "//") {
				if line[i] == '"' || line[i] == ';' {
					break
				}
				i++
			}
			fields = append(fields, line[start:i])
		}
	}
	return fields
}

// splitStatements breaks the tokens of one line at each ";".
func splitStatements(fields []string) [][]string {
	var stmts [][]string
	start := 0
	for i, f := range fields {
		if f == ";" {
			stmts = append(stmts, fields[start:i])
			start = i + 1
		}
	}
	return append(stmts, fields[start:])
}

func (ops *OpStream) pragma(fields []string) error {
	if len(fields) < 2 || fields[0] != "#pragma" {
		return fmt.Errorf("invalid syntax: %s", strings.Join(fields, " "))
	}
	switch fields[1] {
	case "version":
		if len(fields) != 3 {
			return errors.New("no version value")
		}
		ver, err := strconv.ParseUint(fields[2], 0, 64)
		if err != nil {
			return fmt.Errorf("bad #pragma version: %#v", fields[2])
		}
		if ver < 1 || ver > LogicVersion {
			return fmt.Errorf("%w: unsupported version: %d", ErrVersionViolation, ver)
		}
		if ops.Version == assemblerNoVersion {
			ops.Version = ver
			return nil
		}
		if ops.Version != ver {
			return errors.New("version mismatch: assembling with a different #pragma version")
		}
		return nil
	default:
		return fmt.Errorf("unsupported pragma directive: %#v", fields[1])
	}
}

func (ops *OpStream) resolveLabels() {
	saved := ops.sourceLine
	for _, lr := range ops.labelRefs {
		ops.sourceLine = lr.sourceLine
		dest, ok := ops.labels[lr.label]
		if !ok {
			ops.errorf("%w: reference to undefined label %#v", ErrBadBranch, lr.label)
			continue
		}
		if dest <= lr.instruction && ops.Version < backBranchEnabledVersion {
			ops.errorf("%w: label %#v is a back reference, back jump support was introduced in v%d",
				ErrBadBranch, lr.label, backBranchEnabledVersion)
			continue
		}
		ops.Code[lr.instruction].Target = dest
	}
	ops.sourceLine = saved
}

func isLabel(token string) bool {
	return len(token) > 1 && strings.HasSuffix(token, ":") && !strings.HasPrefix(token, "\"")
}

// statement assembles one label and/or instruction.
func (ops *OpStream) statement(fields []string) {
	if len(fields) == 0 {
		return
	}
	if strings.HasPrefix(fields[0], "#pragma") {
		if len(ops.Code) > 0 || len(ops.labels) > 0 {
			ops.errorf("#pragma version is only allowed before instructions")
			return
		}
		if err := ops.pragma(fields); err != nil {
			ops.lineErr(err)
		}
		return
	}
	if ops.Version == assemblerNoVersion {
		ops.Version = AssemblerDefaultVersion
	}
	if isLabel(fields[0]) {
		if err := ops.createLabel(strings.TrimSuffix(fields[0], ":")); err != nil {
			ops.lineErr(err)
		}
		fields = fields[1:]
		if len(fields) == 0 {
			return
		}
	}
	opstring := fields[0]
	spec, ok := OpsByName[ops.Version][opstring]
	if !ok {
		spec, ok = pseudoOps[opstring]
	}
	if !ok {
		if introduced := introducedIn(opstring); introduced > 0 {
			ops.errorf("%w: %s opcode was introduced in v%d", ErrVersionViolation, opstring, introduced)
		} else {
			ops.errorf("unknown opcode: %s", opstring)
		}
		return
	}
	asm := spec.asm
	if asm == nil {
		asm = asmDefault
	}
	if err := asm(ops, &spec, fields[1:]); err != nil {
		ops.lineErr(err)
	}
}

func (ops *OpStream) assemble(source []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		ops.sourceLine++
		for _, fields := range splitStatements(fieldsFromLine(scanner.Text())) {
			ops.statement(fields)
		}
	}
	if err := scanner.Err(); err != nil {
		return ops.lineErr(err)
	}
	if ops.Version == assemblerNoVersion {
		ops.Version = AssemblerDefaultVersion
	}
	ops.resolveLabels()
	if len(ops.Errors) > 0 {
		return ops.Errors[0]
	}
	return nil
}

func introducedIn(name string) uint64 {
	for _, spec := range OpSpecs {
		if spec.Name == name {
			return spec.Version
		}
	}
	return 0
}

// Assemble translates program source into an executable Program. Errors
// are *LineErrorWrapper values naming the offending line.
func Assemble(source []byte) (*Program, error) {
	ops := newOpStream(assemblerNoVersion)
	if err := ops.assemble(source); err != nil {
		return nil, err
	}
	return &Program{
		Version: ops.Version,
		Code:    ops.Code,
		Source:  source,
		Labels:  ops.labels,
	}, nil
}

// AssembleString is Assemble over a string
func AssembleString(text string) (*Program, error) {
	return Assemble([]byte(text))
}
