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

package config

import (
	"github.com/algorand/avm-runtime/data/basics"
)

/* Functions that simplify the ways that ConsensusParams affect minimum balance
   requirements. */

// MinBalanceReq computes the minimum balance requirements for an account based on
// some consensus parameters. MinBalance should correspond roughly to how much
// storage the account is allowed to store on disk.
func (proto *ConsensusParams) MinBalanceReq(u basics.AccountData) basics.MicroAlgos {
	return u.MinBalance(proto.BalanceRequirements())
}

// MinBalanceForSchema computes the MinBalance requirements for a StateSchema
// based on the consensus parameters
func (proto *ConsensusParams) MinBalanceForSchema(sm basics.StateSchema) basics.MicroAlgos {
	return sm.MinBalance(proto.BalanceRequirements())
}

// WellFormedSchema checks that a schema does not exceed the per-app limits.
func (proto *ConsensusParams) WellFormedSchema(sm basics.StateSchema, global bool) bool {
	if global {
		return sm.NumEntries() <= proto.MaxGlobalSchemaEntries
	}
	return sm.NumEntries() <= proto.MaxLocalSchemaEntries
}
