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

	"github.com/consensys/go-zkvm/pkg/machine"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formats counts with thousands separators.
var printer = message.NewPrinter(language.English)

var runCmd = &cobra.Command{
	Use:   "run [flags] program_file",
	Short: "execute a program to completion.",
	Long: `Execute a program to completion, reporting its exit code along with
	the number of shards and cycles required.  The finalized execution
	records can optionally be written to a file for later inspection.`,
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
		opts.Trace = !GetFlag(cmd, "no-trace")
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
		reportExecution(records)
		//
		if GetFlag(cmd, "stats") {
			printStats(os.Stdout, records)
		}
		//
		if filename := GetString(cmd, "output"); filename != "" {
			writeRecords(filename, records)
		}
	},
}

// Summarise the outcome of an execution.
func reportExecution(records []*record.ExecutionRecord) {
	var (
		last   = records[len(records)-1]
		cycles int
	)
	//
	for _, r := range records {
		cycles += len(r.CpuEvents)
	}
	//
	printer.Printf("exit code %d after %d cycles (%d shards)\n", last.PublicValues.ExitCode, cycles, len(records))
}

// Write records to a file using the record encoding.
func writeRecords(filename string, records []*record.ExecutionRecord) {
	bytes, err := record.Marshal(records)
	//
	if err == nil {
		err = os.WriteFile(filename, bytes, 0644)
	}
	//
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	log.Debugf("wrote %d records (%d bytes) to %s", len(records), len(bytes), filename)
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringArray("hint", nil, "supply the contents of a file as a hint (repeatable)")
	runCmd.Flags().StringP("output", "o", "", "write the execution records to a file")
	runCmd.Flags().Bool("stats", false, "print the number of events in each shard")
	runCmd.Flags().Bool("no-trace", false, "execute without recording events")
}
