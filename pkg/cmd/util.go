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
package cmd

import (
	"fmt"
	"os"

	"github.com/consensys/go-zkvm/pkg/config"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// GetFlag gets an expected flag, or exits if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// GetUint gets an expected unsigned flag, or exits if an error arises.
func GetUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// GetString gets an expected string flag, or exits if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// GetStringArray gets an expected string array flag, or exits if an error
// arises.
func GetStringArray(cmd *cobra.Command, flag string) []string {
	r, err := cmd.Flags().GetStringArray(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// Configure the log level according to the verbose flag.
func configureLogging(cmd *cobra.Command) {
	if GetFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}
}

// Determine the options for this run.  These are the defaults, overridden by
// the configuration file (if given) and then by any flags given explicitly.
func readOptions(cmd *cobra.Command) config.Options {
	var (
		opts = config.Default()
		err  error
	)
	//
	if filename := GetString(cmd, "config"); filename != "" {
		if opts, err = config.Load(filename); err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	}
	//
	flags := cmd.Flags()
	//
	if flags.Changed("shard-size") {
		opts.ShardSize, err = flags.GetUint32("shard-size")
	}
	//
	if err == nil && flags.Changed("max-cycles") {
		opts.MaxCycles, err = flags.GetUint64("max-cycles")
	}
	//
	if err == nil && flags.Changed("min-log2-height") {
		opts.MinLog2Height, err = flags.GetUint("min-log2-height")
	}
	//
	if err == nil && flags.Changed("parallelism") {
		opts.Parallelism, err = flags.GetInt("parallelism")
	}
	//
	if err == nil {
		err = opts.Validate()
	}
	//
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	log.Debugf("options: %+v", opts)
	//
	return opts
}

// Read and assemble a program file, or exit if this fails.
func readProgram(filename string) *program.Program {
	p, err := program.ReadFile(filename)
	if err != nil {
		fmt.Printf("%s: %s\n", filename, err)
		os.Exit(2)
	}
	//
	log.Debugf("read program %s (%d instructions)", filename, p.Len())
	//
	return p
}

// Read the contents of each hint file in turn.
func readHints(filenames []string) [][]byte {
	var hints = make([][]byte, len(filenames))
	//
	for i, filename := range filenames {
		bytes, err := os.ReadFile(filename)
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		//
		hints[i] = bytes
	}
	//
	return hints
}
