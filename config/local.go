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
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/algorand/avm-runtime/protocol"
)

// ConfigFilename is the name of the config.json file where we store the runtime settings
const ConfigFilename = "config.json"

// Local holds the per-instance configuration settings of the runtime.
type Local struct {
	// Version tracks the current version of the defaults so we can migrate old -> new
	Version uint32

	// BaseLoggerDebugLevel specifies the logging level. The levels range from
	// 0 (critical error / silent) to 5 (debug / verbose).
	BaseLoggerDebugLevel uint32

	// ConsensusVersion selects the entry of config.Consensus used by the ledger.
	ConsensusVersion protocol.ConsensusVersion

	// InitialRound is the round the ledger starts at.
	InitialRound uint64

	// InitialTimestamp is the latest timestamp reported to programs before SetTimestamp is called.
	InitialTimestamp int64

	// EnableProgramTrace makes every program evaluation write a step-by-step trace to the log at Debug level.
	EnableProgramTrace bool

	// DevMode advances the round by one after every committed group.
	DevMode bool

	// EnableMetrics registers the ledger's prometheus collectors.
	EnableMetrics bool
}

var defaultLocal = Local{
	Version:              1,
	BaseLoggerDebugLevel: 3,
	ConsensusVersion:     protocol.ConsensusCurrentVersion,
	InitialRound:         1,
	EnableMetrics:        true,
}

// GetDefaultLocal returns a copy of the current defaultLocal config
func GetDefaultLocal() Local {
	return defaultLocal
}

// ConsensusParams returns the consensus parameters selected by this config.
func (cfg Local) ConsensusParams() (ConsensusParams, bool) {
	proto, ok := Consensus[cfg.ConsensusVersion]
	return proto, ok
}

// LoadConfigFromDisk returns a Local config structure based on merging the defaults
// with settings loaded from the config file from the custom dir.  If the custom file
// cannot be loaded, the default config is returned (with the error from loading the
// custom file).
func LoadConfigFromDisk(custom string) (c Local, err error) {
	return mergeConfigFromFile(filepath.Join(custom, ConfigFilename), defaultLocal)
}

func mergeConfigFromFile(configpath string, source Local) (Local, error) {
	f, err := os.Open(configpath)
	if err != nil {
		return source, err
	}
	defer f.Close()

	err = loadConfig(f, &source)
	return source, err
}

func loadConfig(reader io.Reader, config *Local) error {
	dec := json.NewDecoder(reader)
	return dec.Decode(config)
}

// SaveToDisk writes the Local settings into a root/ConfigFilename file
func (cfg Local) SaveToDisk(root string) error {
	configpath := filepath.Join(root, ConfigFilename)
	filename := os.ExpandEnv(configpath)
	return cfg.SaveToFile(filename)
}

// SaveToFile saves the config to a specific filename, allowing overriding the default name
func (cfg Local) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(cfg, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
