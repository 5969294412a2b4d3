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
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/algorand/avm-runtime/crypto"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/protocol"
)

func opSHA256(cx *EvalContext) error {
	last := len(cx.stack) - 1
	hash := sha256.Sum256(cx.stack[last].Bytes)
	cx.stack[last].Bytes = hash[:]
	return nil
}

// The Keccak256 variant of SHA-3 is implemented for compatibility with Ethereum
func opKeccak256(cx *EvalContext) error {
	last := len(cx.stack) - 1
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(cx.stack[last].Bytes)
	hv := make([]byte, 0, hasher.Size())
	hv = hasher.Sum(hv)
	cx.stack[last].Bytes = hv
	return nil
}

// This is the hash used for addresses and transaction ids throughout the
// runtime (crypto.Hash). It is spelled out here so that the opcode keeps its
// meaning even if that default ever changes.
func opSHA512_256(cx *EvalContext) error {
	last := len(cx.stack) - 1
	hash := sha512.Sum512_256(cx.stack[last].Bytes)
	cx.stack[last].Bytes = hash[:]
	return nil
}

// The NIST SHA3-256 is implemented for compatibility with ICON
func opSHA3_256(cx *EvalContext) error {
	last := len(cx.stack) - 1
	hash := sha3.Sum256(cx.stack[last].Bytes)
	cx.stack[last].Bytes = hash[:]
	return nil
}

// Msg is data meant to be signed and then verified with the
// ed25519verify opcode.
type Msg struct {
	_struct     struct{}      `codec:",omitempty,omitemptyarray"`
	ProgramHash crypto.Digest `codec:"p"`
	Data        []byte        `codec:"d"`
}

// ToBeHashed implements crypto.Hashable
func (msg Msg) ToBeHashed() (protocol.HashID, []byte) {
	return protocol.ProgramData, append(msg.ProgramHash[:], msg.Data...)
}

// programHash lets us lazily compute H(cx.program)
func (cx *EvalContext) programHash() crypto.Digest {
	if cx.programHashCached == (crypto.Digest{}) {
		cx.programHashCached = crypto.HashObj(transactions.Program(cx.program.Source))
	}
	return cx.programHashCached
}

func ed25519Args(cx *EvalContext) (pk crypto.SignatureVerifier, sig crypto.Signature, err error) {
	last := len(cx.stack) - 1 // index of PK
	prev := last - 1          // index of signature

	if len(cx.stack[last].Bytes) != len(pk) {
		return pk, sig, fmt.Errorf("%w: invalid public key", ErrValueTooLarge)
	}
	copy(pk[:], cx.stack[last].Bytes)

	if len(cx.stack[prev].Bytes) != len(sig) {
		return pk, sig, fmt.Errorf("%w: invalid signature", ErrValueTooLarge)
	}
	copy(sig[:], cx.stack[prev].Bytes)
	return pk, sig, nil
}

func opEd25519Verify(cx *EvalContext) error {
	last := len(cx.stack) - 1 // index of PK
	prev := last - 1          // index of signature
	pprev := prev - 1         // index of data

	pk, sig, err := ed25519Args(cx)
	if err != nil {
		return err
	}

	msg := Msg{ProgramHash: cx.programHash(), Data: cx.stack[pprev].Bytes}
	cx.stack[pprev].Uint = boolToUint(pk.Verify(msg, sig))
	cx.stack[pprev].Bytes = nil
	cx.stack = cx.stack[:prev]
	return nil
}

func opEd25519VerifyBare(cx *EvalContext) error {
	last := len(cx.stack) - 1 // index of PK
	prev := last - 1          // index of signature
	pprev := prev - 1         // index of data

	pk, sig, err := ed25519Args(cx)
	if err != nil {
		return err
	}

	cx.stack[pprev].Uint = boolToUint(pk.VerifyBytes(cx.stack[pprev].Bytes, sig))
	cx.stack[pprev].Bytes = nil
	cx.stack = cx.stack[:prev]
	return nil
}

func base64Decode(encoded []byte, encoding *base64.Encoding) ([]byte, error) {
	decoded := make([]byte, encoding.DecodedLen(len(encoded)))
	n, err := encoding.Decode(decoded, encoded)
	if err != nil {
		return decoded[:0], err
	}
	return decoded[:n], err
}

func opBase64Decode(cx *EvalContext) error {
	last := len(cx.stack) - 1
	encodingField := Base64Encoding(cx.instr.Immediates[0])
	if int(encodingField) >= len(base64EncodingSpecs) {
		return fmt.Errorf("%w: invalid base64_decode encoding %d", ErrBadImmediate, encodingField)
	}
	if base64EncodingSpecs[encodingField].version > cx.version {
		return fmt.Errorf("%w: base64_decode encoding %s", ErrVersionViolation, encodingField)
	}

	encoding := base64.URLEncoding
	if encodingField == StdEncoding {
		encoding = base64.StdEncoding
	}
	encoding = encoding.Strict()
	decoded, err := base64Decode(cx.stack[last].Bytes, encoding)
	if err != nil {
		return fmt.Errorf("%w: base64_decode %v", ErrProgramFault, err)
	}
	cx.stack[last].Bytes = decoded
	return nil
}
