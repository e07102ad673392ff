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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/consensys/go-zkvm/pkg/machine"
	"github.com/consensys/go-zkvm/pkg/util/termio"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] program_file",
	Short: "check the traces of a program are valid.",
	Long: `Execute a program, generate the traces of every chip in every
	shard and check that all constraints hold and all interactions
	balance.  When interactions do not balance, the offending tuples
	are reported.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		configureLogging(cmd)
		//
		var (
			opts  = readOptions(cmd)
			prog  = readProgram(args[0])
			hints = readHints(GetStringArray(cmd, "hint"))
		)
		//
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		//
		m, err := machine.Default(opts)
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		//
		records, err := m.Execute(prog, os.Stdout, hints...)
		if err != nil {
			fmt.Println(err)
			os.Exit(3)
		}
		//
		if GetFlag(cmd, "shape") {
			printShape(os.Stdout, m, records)
		}
		//
		witness, err := m.GenerateWitness(ctx, prog, records)
		//
		if errors.Is(err, machine.ErrImbalance) {
			fmt.Println(err)
			reportImbalances(ctx, m, prog, records, GetUint(cmd, "max-imbalances"))
			os.Exit(4)
		} else if err != nil {
			fmt.Println(err)
			os.Exit(2)
		} else if err := m.CheckConstraints(witness); err != nil {
			fmt.Println(err)
			os.Exit(4)
		}
		//
		log.Debugf("challenges: alpha %s, beta %s", witness.Challenges.Alpha.String(),
			witness.Challenges.Beta.String())
		reportExecution(records)
		fmt.Println(highlight(os.Stdout, "ok", termio.TERM_GREEN))
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringArray("hint", nil, "supply the contents of a file as a hint (repeatable)")
	checkCmd.Flags().Bool("shape", false, "print the padded height of every chip in every shard")
	checkCmd.Flags().Uint("max-imbalances", 10, "maximum number of unbalanced interactions to report")
}
