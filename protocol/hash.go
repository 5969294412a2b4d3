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

package protocol

// HashID is a domain separation prefix for an object type that might be hashed
// This ensures, for example, the hash of a transaction will never collide with the hash of a program
type HashID string

// Hash IDs for specific object types, in lexicographic order to avoid dups.
const (
	AppIndex     HashID = "appID"
	MultisigAddr HashID = "MultisigAddr"
	Program      HashID = "Program"
	ProgramData  HashID = "ProgData"
	TestHashable HashID = "TE"
	TxGroup      HashID = "TG"
	Transaction  HashID = "TX"
)
