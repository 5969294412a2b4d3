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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/avm-runtime/crypto"
	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/protocol"
	"github.com/algorand/avm-runtime/test/partitiontest"
)

func TestHashes(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	testAccepts(t, `byte ""; sha256; byte 0xe3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855; ==`, 1)
	testAccepts(t, `byte ""; keccak256; byte 0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470; ==`, 1)
	testAccepts(t, `byte ""; sha512_256; byte 0xc672b8d1ef56ed28ab87c3622c5114069bdd3ad7b8f9737498d0c01ecef0967a; ==`, 1)
	testAccepts(t, `byte ""; sha3_256; byte 0xa7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a; ==`, 7)

	// sha512_256 is the hash behind addresses and ids
	sum := crypto.Hash([]byte("avm"))
	testAccepts(t, fmt.Sprintf(`byte "avm"; sha512_256; byte 0x%s; ==`, hex.EncodeToString(sum[:])), 2)

	testPanics(t, "int 1; sha256", 2, ErrTypeMismatch)
}

func sigTxn(args ...[]byte) transactions.SignedTxn {
	stxn := transactions.SignedTxn{Txn: transactions.Transaction{
		Type:   protocol.PaymentTx,
		Header: transactions.Header{Sender: testSender, Fee: basics.MicroAlgos{Raw: 1000}},
	}}
	stxn.Lsig.Args = args
	return stxn
}

func TestEd25519Verify(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	var seed crypto.Seed
	copy(seed[:], "ed25519verify test seed.........")
	secrets := crypto.GenerateSignatureSecrets(seed)
	pk := hex.EncodeToString(secrets.SignatureVerifier[:])

	source := prog(5, fmt.Sprintf(`byte "data"; arg 0; byte 0x%s; ed25519verify`, pk))
	msg := Msg{ProgramHash: crypto.HashObj(transactions.Program(source)), Data: []byte("data")}
	sig := secrets.Sign(msg)

	pass, err := EvalSignature(0, sigParams(source, sigTxn(sig[:])))
	require.NoError(t, err)
	require.True(t, pass)

	// the signature covers the program, so a bare signature of the data fails
	bare := secrets.SignBytes([]byte("data"))
	pass, err = EvalSignature(0, sigParams(source, sigTxn(bare[:])))
	require.NoError(t, err)
	require.False(t, pass)

	// and ed25519verify_bare is the op for that
	source = prog(7, fmt.Sprintf(`byte "data"; arg 0; byte 0x%s; ed25519verify_bare`, pk))
	pass, err = EvalSignature(0, sigParams(source, sigTxn(bare[:])))
	require.NoError(t, err)
	require.True(t, pass)

	source = prog(5, `byte "data"; arg 0; byte 0x01; ed25519verify`)
	_, err = EvalSignature(0, sigParams(source, sigTxn(sig[:])))
	require.ErrorIs(t, err, ErrValueTooLarge)

	source = prog(5, fmt.Sprintf(`byte "data"; byte 0x01; byte 0x%s; ed25519verify`, pk))
	_, err = EvalSignature(0, sigParams(source))
	require.ErrorIs(t, err, ErrValueTooLarge)

	// only signatures could verify before v5
	testApp(t, prog(4, `byte "a"; byte "b"; byte "c"; ed25519verify`), nil, ErrModeViolation)
}

func TestBase64Decode(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	testAccepts(t, `byte "YWJj"; base64_decode StdEncoding; byte "abc"; ==`, 7)
	testAccepts(t, `byte "_w=="; base64_decode URLEncoding; byte 0xff; ==`, 7)
	testAccepts(t, `byte ""; base64_decode StdEncoding; len; !`, 7)

	testPanics(t, `byte "_w=="; base64_decode StdEncoding; len`, 7, ErrProgramFault)
	testPanics(t, `byte "YWJ"; base64_decode StdEncoding; len`, 7, ErrProgramFault)
}

func TestBase64DecodeCost(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	spec := OpsByName[7]["base64_decode"]
	require.Equal(t, 1, spec.Cost([]stackValue{{Bytes: []byte{}}}))
	require.Equal(t, 2, spec.Cost([]stackValue{{Bytes: []byte("YWJj")}}))
	require.Equal(t, 5, spec.Cost([]stackValue{{Bytes: make([]byte, 64)}}))
	require.Equal(t, 6, spec.Cost([]stackValue{{Bytes: make([]byte, 65)}}))
	require.Equal(t, "1 + 1 per 16 bytes", spec.DocCost())
}
