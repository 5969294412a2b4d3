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

	"github.com/algorand/avm-runtime/config"
	"github.com/algorand/avm-runtime/crypto"
	"github.com/algorand/avm-runtime/data/basics"
)

// KeyregTxnFields captures the fields used for key registration transactions.
type KeyregTxnFields struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	VotePK           crypto.PublicKey `codec:"votekey"`
	SelectionPK      crypto.PublicKey `codec:"selkey"`
	VoteFirst        basics.Round     `codec:"votefst"`
	VoteLast         basics.Round     `codec:"votelst"`
	VoteKeyDilution  uint64           `codec:"votekd"`
	Nonparticipation bool             `codec:"nonpart"`
}

var errKeyregGoingOnlineExpiredParticipationKey = errors.New("transaction tries to mark an account as online with last voting round in the past")
var errKeyregGoingOnlineFirstVotingInFuture = errors.New("transaction tries to mark an account as online with first voting round beyond the next voting round")
var errKeyregNonpartWithKeys = errors.New("transaction tries to register keys to go online, but nonparticipatory flag is set")

// Online reports whether the registration marks the account online.
func (keyreg KeyregTxnFields) Online() bool {
	return keyreg.VotePK != crypto.PublicKey{}
}

func (keyreg KeyregTxnFields) wellFormed(header Header, proto config.ConsensusParams) error {
	if keyreg.Nonparticipation && keyreg.Online() {
		return errKeyregNonpartWithKeys
	}
	if !keyreg.Online() {
		return nil
	}
	if keyreg.VoteLast < header.FirstValid {
		return errKeyregGoingOnlineExpiredParticipationKey
	}
	if keyreg.VoteFirst > header.LastValid+1 {
		return errKeyregGoingOnlineFirstVotingInFuture
	}
	if keyreg.VoteLast < keyreg.VoteFirst {
		return errors.New("transaction has an invalid voting range")
	}
	if proto.EffectiveKeyDilution(keyreg.VoteKeyDilution) == 0 {
		return errors.New("transaction has a zero key dilution")
	}
	return nil
}
