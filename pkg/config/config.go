// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// MaxShardClk is the (exclusive) upper bound on the clock within a shard,
// since clocks are range checked as a 16bit and an 8bit limb.
const MaxShardClk = 1 << 24

// Options configures execution and trace generation.
type Options struct {
	// Maximum number of cycles in a single shard.
	ShardSize uint32 `toml:"shard_size" yaml:"shard_size"`
	// Maximum number of cycles overall (0 for unlimited).
	MaxCycles uint64 `toml:"max_cycles" yaml:"max_cycles"`
	// Minimum padded trace height (as a power of two).
	MinLog2Height uint `toml:"min_log2_height" yaml:"min_log2_height"`
	// Whether or not to record events (disabling is useful for quickly
	// checking a program runs to completion).
	Trace bool `toml:"trace" yaml:"trace"`
	// Number of chips whose traces are generated concurrently.
	Parallelism int `toml:"parallelism" yaml:"parallelism"`
}

// Default returns the default options.
func Default() Options {
	return Options{
		ShardSize:     1 << 21,
		MaxCycles:     0,
		MinLog2Height: 4,
		Trace:         true,
		Parallelism:   runtime.NumCPU(),
	}
}

// Load reads options from a TOML or YAML file (determined by its extension).
// Any option not given in the file retains its default value.
func Load(filename string) (Options, error) {
	var opts = Default()
	//
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return opts, err
	}
	//
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".toml":
		err = toml.Unmarshal(bytes, &opts)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(bytes, &opts)
	default:
		return opts, fmt.Errorf("unknown configuration format \"%s\"", ext)
	}
	//
	if err != nil {
		return opts, fmt.Errorf("%s: %w", filename, err)
	}
	//
	return opts, opts.Validate()
}

// Validate checks these options are consistent.
func (o Options) Validate() error {
	switch {
	case o.ShardSize == 0:
		return fmt.Errorf("shard size must be positive")
	case 4*uint64(o.ShardSize)+1024 > MaxShardClk:
		return fmt.Errorf("shard size %d too large (clock must remain below 2^24)", o.ShardSize)
	case o.MinLog2Height > 24:
		return fmt.Errorf("minimum log2 height %d too large", o.MinLog2Height)
	case o.Parallelism < 0:
		return fmt.Errorf("parallelism cannot be negative")
	}
	//
	return nil
}
