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
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/algorand/avm-runtime/config"
	"github.com/algorand/avm-runtime/data/basics"
	"github.com/algorand/avm-runtime/data/transactions"
	"github.com/algorand/avm-runtime/data/transactions/logic"
	"github.com/algorand/avm-runtime/logging"
	"github.com/algorand/avm-runtime/protocol"
)

var (
	dryrunArgs  []string
	dryrunTrace bool
)

func init() {
	dryrunCmd.Flags().StringArrayVar(&dryrunArgs, "arg", nil, "Logicsig argument; a 0x prefix reads it as hex (repeatable)")
	dryrunCmd.Flags().BoolVar(&dryrunTrace, "trace", false, "Print a step by step trace of the run")
}

var dryrunCmd = &cobra.Command{
	Use:   "dryrun [program.teal]",
	Short: "Run a program in signature mode against a self-payment from its address",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, proto, err := loadConfig()
		if err != nil {
			reportErrorf("%v", err)
		}
		source, err := os.ReadFile(args[0])
		if err != nil {
			reportErrorf("%s: %v", args[0], err)
		}
		lsigArgs, err := parseArgs(dryrunArgs)
		if err != nil {
			reportErrorf("%v", err)
		}

		res := dryrunSignature(source, lsigArgs, proto, dryrunTrace || cfg.EnableProgramTrace)
		logging.Base().WithFields(logging.Fields{
			"program": args[0],
			"address": res.Address.String(),
			"cost":    res.Cost,
		}).Debug("dryrun finished")

		if res.Trace != "" {
			fmt.Print(res.Trace)
		}
		switch {
		case res.Err != nil:
			errorColor.Print("ERROR ")
			fmt.Printf("%v (cost %d)\n", res.Err, res.Cost)
			os.Exit(1)
		case res.Pass:
			passColor.Print("PASS ")
			fmt.Printf("cost %d\n", res.Cost)
		default:
			rejectColor.Print("REJECT ")
			fmt.Printf("cost %d\n", res.Cost)
			os.Exit(2)
		}
	},
}

func parseArgs(raw []string) ([][]byte, error) {
	out := make([][]byte, len(raw))
	for i, arg := range raw {
		if strings.HasPrefix(arg, "0x") {
			b, err := hex.DecodeString(arg[2:])
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			out[i] = b
			continue
		}
		out[i] = []byte(arg)
	}
	return out, nil
}

type dryrunResult struct {
	Address basics.Address
	Pass    bool
	Cost    int
	Err     error
	Trace   string
}

// dryrunSignature evaluates source as the logicsig of a zero-amount payment
// from the program's own address to itself.
func dryrunSignature(source []byte, args [][]byte, proto config.ConsensusParams, trace bool) dryrunResult {
	addr := transactions.Program(source).Address()
	stxn := transactions.SignedTxn{
		Txn: transactions.Transaction{
			Type: protocol.PaymentTx,
			Header: transactions.Header{
				Sender:     addr,
				Fee:        basics.MicroAlgos{Raw: proto.MinTxnFee},
				FirstValid: 1,
				LastValid:  basics.Round(proto.MaxTxnLife),
			},
			PaymentTxnFields: transactions.PaymentTxnFields{Receiver: addr},
		},
		Lsig: transactions.LogicSig{Logic: source, Args: args},
	}

	ep := logic.NewEvalParams(transactions.WrapSignedTxnsWithAD([]transactions.SignedTxn{stxn}), &proto)
	ep.SetLogger(logging.Base())
	if trace {
		ep.Trace = &strings.Builder{}
	}
	res := dryrunResult{Address: addr}
	if err := logic.CheckSignature(0, ep); err != nil {
		res.Err = err
		return res
	}
	pass, cx, err := logic.EvalSignatureFull(0, ep)
	res.Pass, res.Err = pass, err
	if cx != nil {
		res.Cost = cx.Cost()
	}
	if ep.Trace != nil {
		res.Trace = ep.Trace.String()
	}
	return res
}
