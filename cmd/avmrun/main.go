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

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/algorand/avm-runtime/config"
	"github.com/algorand/avm-runtime/logging"
)

var (
	dataDir string
	verbose bool
)

var (
	passColor   = color.New(color.FgGreen, color.Bold)
	rejectColor = color.New(color.FgYellow, color.Bold)
	errorColor  = color.New(color.FgRed, color.Bold)
)

var rootCmd = &cobra.Command{
	Use:   "avmrun",
	Short: "Assemble and run AVM programs outside a ledger",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.HelpFunc()(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataDir, "datadir", "d", "", "Directory holding config.json and consensus.json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(dryrunCmd)
}

// loadConfig returns the local config and consensus parameters, reading
// overrides from the data directory when one is given.
func loadConfig() (config.Local, config.ConsensusParams, error) {
	cfg := config.GetDefaultLocal()
	if dataDir != "" {
		var err error
		cfg, err = config.LoadConfigFromDisk(dataDir)
		if err != nil && !os.IsNotExist(err) {
			return cfg, config.ConsensusParams{}, fmt.Errorf("cannot load config from %s: %w", dataDir, err)
		}
		if err := config.LoadConfigurableConsensusProtocols(dataDir); err != nil {
			return cfg, config.ConsensusParams{}, err
		}
	}
	proto, ok := cfg.ConsensusParams()
	if !ok {
		return cfg, config.ConsensusParams{}, fmt.Errorf("unknown consensus version %q", cfg.ConsensusVersion)
	}

	log := logging.Base()
	log.SetLevel(logging.Level(cfg.BaseLoggerDebugLevel))
	if verbose {
		log.SetLevel(logging.Debug)
	}
	return cfg, proto, nil
}

func reportErrorf(format string, args ...interface{}) {
	errorColor.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
