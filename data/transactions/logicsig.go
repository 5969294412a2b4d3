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

package transactions

import (
	"errors"

	"github.com/algorand/avm-runtime/crypto"
	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/protocol"
)

// EvalMaxArgs is the maximum number of arguments to an LSig
const EvalMaxArgs = 255

// Program is the source text of a logic program. It is hashed with the
// "Program" domain prefix to derive escrow addresses and to be signed.
type Program []byte

// ToBeHashed implements crypto.Hashable
func (lsl Program) ToBeHashed() (protocol.HashID, []byte) {
	return protocol.Program, []byte(lsl)
}

// Address returns the escrow (contract account) address of the program.
func (lsl Program) Address() basics.Address {
	return basics.Address(crypto.HashObj(lsl))
}

// LogicSig contains logic for validating a transaction.
// LogicSig is signed by an account, allowing delegation of operations.
// OR
// LogicSig defines a contract account.
type LogicSig struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	// Logic signed by Sig or Msig, OR hashed to be the Address of a contract account.
	Logic []byte `codec:"l"`

	Sig  crypto.Signature   `codec:"sig"`
	Msig crypto.MultisigSig `codec:"msig"`

	// Args are not signed, but checked by Logic
	Args [][]byte `codec:"arg"`
}

// Blank returns true if there is no content in this LogicSig
func (lsig *LogicSig) Blank() bool {
	return len(lsig.Logic) == 0
}

// Len returns the length of Logic plus the length of the Args
// This is limited by config.ConsensusParams.LogicSigMaxSize
func (lsig *LogicSig) Len() int {
	lsiglen := len(lsig.Logic)
	for _, arg := range lsig.Args {
		lsiglen += len(arg)
	}
	return lsiglen
}

var (
	errLogicSigNotSigned      = errors.New("LogicNot signed and not a Logic-only account")
	errLogicSigMultipleSigs   = errors.New("LogicSig should only have one of Sig or Msig but has more than one")
	errLogicSigSigInvalid     = errors.New("logic signature validation failed")
	errLogicSigMultisigFailed = errors.New("logic multisig validation failed")
)

// Verify checks that the signature is valid for the given signer. It does
// not evaluate the logic.
func (lsig *LogicSig) Verify(signer basics.Address) error {
	hasSig := false
	hasMsig := false
	numSigs := 0
	if lsig.Sig != (crypto.Signature{}) {
		hasSig = true
		numSigs++
	}
	if !lsig.Msig.Blank() {
		hasMsig = true
		numSigs++
	}
	program := Program(lsig.Logic)
	if numSigs == 0 {
		// if the signer == hash(Logic) then this is a (potentially) valid operation on a contract-only account
		if signer == program.Address() {
			return nil
		}
		return errLogicSigNotSigned
	}
	if numSigs > 1 {
		return errLogicSigMultipleSigs
	}

	if hasSig {
		if crypto.SignatureVerifier(signer).Verify(program, lsig.Sig) {
			return nil
		}
		return errLogicSigSigInvalid
	}
	if hasMsig {
		if err := crypto.MultisigVerify(program, crypto.Digest(signer), lsig.Msig); err != nil {
			return errLogicSigMultisigFailed
		}
		return nil
	}

	return errors.New("inconsistent internal state verifying LogicSig")
}

// SignLogicSig delegates the program to the key holder's account.
func SignLogicSig(program []byte, secrets *crypto.SignatureSecrets, args ...[]byte) LogicSig {
	return LogicSig{
		Logic: program,
		Sig:   secrets.Sign(Program(program)),
		Args:  args,
	}
}
