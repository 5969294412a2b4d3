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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/algorand/avm-runtime/data/transactions/logic"
)

var disassemble bool

func init() {
	checkCmd.Flags().BoolVar(&disassemble, "disassemble", false, "Print the assembled instructions")
}

var checkCmd = &cobra.Command{
	Use:   "check [program.teal]...",
	Short: "Assemble programs and report the first error in each",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		failed := 0
		for _, fname := range args {
			source, err := os.ReadFile(fname)
			if err != nil {
				reportErrorf("%s: %v", fname, err)
			}
			prog, err := logic.Assemble(source)
			if err != nil {
				errorColor.Printf("%s: ", fname)
				fmt.Println(err)
				failed++
				continue
			}
			passColor.Printf("%s: ", fname)
			fmt.Printf("version %d, %d instructions, %d labels\n", prog.Version, len(prog.Code), len(prog.Labels))
			if disassemble {
				for pc := range prog.Code {
					fmt.Printf("%4d  %s\n", pc, prog.Code[pc].String())
				}
			}
		}
		if failed > 0 {
			os.Exit(1)
		}
	},
}
