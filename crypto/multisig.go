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

package crypto

import (
	"github.com/algorand/avm-runtime/protocol"
)

// MultisigSubsig is a struct that holds a pair of public key and signatures
// signatures may be empty
type MultisigSubsig struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Key PublicKey `codec:"pk"` // all public keys that are possible signers for this address
	Sig Signature `codec:"s"`  // may be either empty or a signature
}

// MultisigSig is the structure that holds multiple Subsigs
type MultisigSig struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Version   uint8            `codec:"v"`
	Threshold uint8            `codec:"thr"`
	Subsigs   []MultisigSubsig `codec:"subsig"`
}

// MultisigPreimageFromPKs makes an empty MultisigSig for a given preimage.
func MultisigPreimageFromPKs(version, threshold uint8, pks []PublicKey) MultisigSig {
	out := MultisigSig{Version: version, Threshold: threshold, Subsigs: make([]MultisigSubsig, len(pks))}
	for i := range pks {
		out.Subsigs[i].Key = pks[i]
	}
	return out
}

// Blank returns true iff the msig is empty. We need this instead of just
// comparing with == MultisigSig{}, because Subsigs is a slice.
func (msig MultisigSig) Blank() bool {
	return msig.Version == 0 && msig.Threshold == 0 && msig.Subsigs == nil
}

// Preimage returns the version, threshold, and list of all public keys in a (partial) multisig address
func (msig MultisigSig) Preimage() (version, threshold uint8, pks []PublicKey) {
	pks = make([]PublicKey, len(msig.Subsigs))
	for i, subsig := range msig.Subsigs {
		pks[i] = subsig.Key
	}
	return msig.Version, msig.Threshold, pks
}

// Signatures returns the actual number of signatures included in the
// multisig. That is, the number of subsigs that are not blank.
func (msig MultisigSig) Signatures() int {
	sigs := 0
	for i := range msig.Subsigs {
		if !msig.Subsigs[i].Sig.Blank() {
			sigs++
		}
	}
	return sigs
}

const maxMultisig = 255

// MultisigAddrGen identifes the exact group, version,
// and devices (Public keys) that it requires to sign
// Hash("MultisigAddr" || version uint8 || threshold uint8 || PK1 || PK2 || ...)
func MultisigAddrGen(version, threshold uint8, pk []PublicKey) (addr Digest, err error) {
	if version != 1 {
		err = errUnknownVersion
		return
	}

	if threshold == 0 || len(pk) == 0 || int(threshold) > len(pk) {
		err = errInvalidThreshold
		return
	}

	buffer := append([]byte(protocol.MultisigAddr), byte(version), byte(threshold))
	for _, pki := range pk {
		buffer = append(buffer, pki[:]...)
	}
	return Hash(buffer), nil
}

// MultisigAddrGenWithSubsigs is similar to MultisigAddrGen
// except the input is []Subsig rather than []PublicKey
func MultisigAddrGenWithSubsigs(version uint8, threshold uint8, subsigs []MultisigSubsig) (addr Digest, err error) {
	_, _, pks := MultisigSig{Version: version, Threshold: threshold, Subsigs: subsigs}.Preimage()
	return MultisigAddrGen(version, threshold, pks)
}

// MultisigSign is for each device individually signs the digest
func MultisigSign(msg Hashable, addr Digest, version, threshold uint8, pk []PublicKey, sk SignatureSecrets) (sig MultisigSig, err error) {
	addrnew, err := MultisigAddrGen(version, threshold, pk)
	if err != nil {
		return
	}
	if addr != addrnew {
		err = errInvalidAddress
		return
	}

	slot := -1
	for i := range pk {
		if sk.SignatureVerifier == pk[i] {
			slot = i
		}
	}
	if slot < 0 {
		err = ErrKeyNotExist
		return
	}

	sig = MultisigPreimageFromPKs(version, threshold, pk)
	sig.Subsigs[slot].Sig = sk.Sign(msg)
	return
}

func sameKeys(a, b MultisigSig) error {
	if a.Threshold != b.Threshold {
		return errInvalidThreshold
	}
	if a.Version != b.Version {
		return errInvalidVersion
	}
	if len(a.Subsigs) != len(b.Subsigs) {
		return errKeysNotMatch
	}
	for j := range a.Subsigs {
		if a.Subsigs[j].Key != b.Subsigs[j].Key {
			return errKeysNotMatch
		}
	}
	return nil
}

// MultisigAssemble assembles multiple MultisigSig
func MultisigAssemble(unisig []MultisigSig) (msig MultisigSig, err error) {
	if len(unisig) < 2 {
		err = errInvalidNumberOfSig
		return
	}
	for i := 1; i < len(unisig); i++ {
		if err = sameKeys(unisig[0], unisig[i]); err != nil {
			return
		}
	}

	_, _, pks := unisig[0].Preimage()
	msig = MultisigPreimageFromPKs(unisig[0].Version, unisig[0].Threshold, pks)
	for i := range unisig {
		for j := range unisig[i].Subsigs {
			if !unisig[i].Subsigs[j].Sig.Blank() {
				msig.Subsigs[j].Sig = unisig[i].Subsigs[j].Sig
			}
		}
	}
	return
}

// MultisigVerify verifies an assembled MultisigSig
func MultisigVerify(msg Hashable, addr Digest, sig MultisigSig) error {
	return MultisigVerifyBytes(HashRep(msg), addr, sig)
}

// MultisigVerifyBytes is MultisigVerify over an already domain-separated message.
func MultisigVerifyBytes(msg []byte, addr Digest, sig MultisigSig) error {
	// short circuit: if msig doesn't have subsigs or if Subsigs are empty
	// then terminate (the upper layer should now verify the unisig)
	if len(sig.Subsigs) == 0 || sig.Subsigs[0] == (MultisigSubsig{}) {
		return errInvalidNumberOfSignature
	}

	addrnew, err := MultisigAddrGenWithSubsigs(sig.Version, sig.Threshold, sig.Subsigs)
	if err != nil {
		return err
	}
	if addr != addrnew {
		return errInvalidAddress
	}

	if len(sig.Subsigs) > maxMultisig {
		return errInvalidNumberOfSignature
	}

	if sig.Signatures() < int(sig.Threshold) {
		return errInvalidNumberOfSignature
	}

	for _, subsigi := range sig.Subsigs {
		if subsigi.Sig.Blank() {
			continue
		}
		if !subsigi.Key.VerifyBytes(msg, subsigi.Sig) {
			return errSubsigVerification
		}
	}
	return nil
}

// MultisigAdd adds unisig to an existing msig
func MultisigAdd(unisig []MultisigSig, msig *MultisigSig) (err error) {
	if len(unisig) < 1 || msig == nil {
		return errInvalidNumberOfSig
	}

	for i := range unisig {
		if err = sameKeys(*msig, unisig[i]); err != nil {
			return
		}
	}

	for i := range unisig {
		for j := range msig.Subsigs {
			if unisig[i].Subsigs[j].Sig.Blank() {
				continue
			}
			if msig.Subsigs[j].Sig.Blank() {
				msig.Subsigs[j].Sig = unisig[i].Subsigs[j].Sig
			} else if msig.Subsigs[j].Sig != unisig[i].Subsigs[j].Sig {
				return errInvalidDuplicates
			}
		}
	}
	return nil
}

// MultisigMerge merges two Multisigs msig1 and msig2 into msigt
func MultisigMerge(msig1 MultisigSig, msig2 MultisigSig) (msigt MultisigSig, err error) {
	if err = sameKeys(msig1, msig2); err != nil {
		return
	}

	_, _, pks := msig1.Preimage()
	msigt = MultisigPreimageFromPKs(msig1.Version, msig1.Threshold, pks)
	for i := range msigt.Subsigs {
		s1, s2 := msig1.Subsigs[i].Sig, msig2.Subsigs[i].Sig
		switch {
		case s1.Blank():
			msigt.Subsigs[i].Sig = s2
		case s2.Blank() || s1 == s2:
			msigt.Subsigs[i].Sig = s1
		default:
			return MultisigSig{}, errInvalidDuplicates
		}
	}
	return
}
