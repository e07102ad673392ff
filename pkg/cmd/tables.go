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
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/consensys/go-zkvm/pkg/machine"
	"github.com/consensys/go-zkvm/pkg/util/termio"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
)

// Widest column permitted when printing tables.
const maxColumnWidth = 16

// Print the number of events of each kind (rows) in each shard (columns).
func printStats(w io.Writer, records []*record.ExecutionRecord) {
	var kinds []string
	//
	for kind := range records[0].Stats() {
		kinds = append(kinds, kind)
	}
	//
	slices.Sort(kinds)
	table := shardTable(w, records, uint(len(kinds)))
	//
	for i, r := range records {
		stats := r.Stats()
		//
		for j, kind := range kinds {
			table.Set(0, uint(j+1), kind)
			setCount(table, uint(i+1), uint(j+1), stats[kind])
		}
	}
	//
	printTable(w, table)
}

// Print the padded height (as a power of two) of every chip (rows) in each
// shard (columns).  Chips not included in a shard are left blank.
func printShape(w io.Writer, m *machine.Machine, records []*record.ExecutionRecord) {
	var table = shardTable(w, records, uint(len(m.Chips())))
	//
	for i, c := range m.Chips() {
		table.Set(0, uint(i+1), c.Name())
		//
		for j, r := range records {
			if h, ok := r.Shape.Height(c.Name()); ok {
				table.Set(uint(j+1), uint(i+1), "2^"+strconv.FormatUint(uint64(h), 10))
			}
		}
	}
	//
	printTable(w, table)
}

// Construct a table with one column per shard, and a given number of rows
// beneath the header row.
func shardTable(w io.Writer, records []*record.ExecutionRecord, rows uint) *termio.TablePrinter {
	var (
		table = termio.NewTablePrinter(uint(len(records)+1), rows+1)
		bold  = termio.BoldAnsiEscape()
	)
	//
	for i, r := range records {
		table.Set(uint(i+1), 0, fmt.Sprintf("#%d", r.Shard()))
		table.SetEscape(uint(i+1), 0, bold)
	}
	//
	table.AnsiEscapes(termio.IsTerminal(w))
	//
	return table
}

// Set a count, where zero counts are dimmed.
func setCount(table *termio.TablePrinter, col, row uint, n int) {
	table.Set(col, row, strconv.Itoa(n))
	//
	if n == 0 {
		table.SetEscape(col, row, termio.NewAnsiEscape().FgColour(termio.TERM_BLACK))
	}
}

func printTable(w io.Writer, table *termio.TablePrinter) {
	table.SetMaxWidths(maxColumnWidth)
	//
	if err := table.Print(w); err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
}

// Highlight some text in a given colour, provided the writer is a terminal.
func highlight(w io.Writer, text string, colour uint) string {
	if !termio.IsTerminal(w) {
		return text
	}
	//
	return termio.NewAnsiEscape().FgColour(colour).Build() + text + termio.ResetAnsiEscape().Build()
}

// Report the tuples responsible for a non-zero cumulative sum.
func reportImbalances(ctx context.Context, m *machine.Machine, prog *program.Program,
	records []*record.ExecutionRecord, limit uint) {
	//
	imbalances, err := m.Debug(ctx, prog, records)
	if err != nil {
		fmt.Println(err)
		return
	}
	//
	for i, imb := range imbalances {
		if uint(i) == limit {
			fmt.Printf("(%d more)\n", len(imbalances)-i)
			break
		}
		//
		fmt.Println(highlight(os.Stdout, imb.String(), termio.TERM_RED))
	}
}
