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

	"github.com/consensys/go-zkvm/pkg/zkvm/record"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] records_file",
	Short: "summarise a file of execution records.",
	Long: `Summarise the execution records previously written by "run", giving
	the number of events of each kind in each shard.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		configureLogging(cmd)
		//
		var records []*record.ExecutionRecord
		//
		bytes, err := os.ReadFile(args[0])
		if err == nil {
			err = record.Unmarshal(bytes, &records)
		}
		//
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		} else if len(records) == 0 {
			fmt.Println("no records")
			os.Exit(2)
		}
		//
		for _, r := range records {
			pv := r.PublicValues
			fmt.Printf("shard %d: pc 0x%08x => 0x%08x (exit code %d)\n", pv.Shard, pv.StartPc, pv.NextPc, pv.ExitCode)
		}
		//
		printStats(os.Stdout, records)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
