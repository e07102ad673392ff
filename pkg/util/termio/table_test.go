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
package termio

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Table_01(t *testing.T) {
	var (
		buf   bytes.Buffer
		table = NewTablePrinter(2, 2)
	)
	//
	table.SetRow(0, "chip", "rows")
	table.SetRow(1, "Cpu", "1024")
	require.NoError(t, table.Print(&buf))
	//
	assert.Equal(t, " chip | rows |\n  Cpu | 1024 |\n", buf.String())
}

// Long cells are truncated.
func Test_Table_02(t *testing.T) {
	var (
		buf   bytes.Buffer
		table = NewTablePrinter(1, 1)
	)
	//
	table.Set(0, 0, "MemoryFinalize")
	table.SetMaxWidths(8)
	require.NoError(t, table.Print(&buf))
	//
	assert.Equal(t, " Memory.. |\n", buf.String())
}

// Escapes are only emitted when enabled.
func Test_Table_03(t *testing.T) {
	var (
		buf   bytes.Buffer
		table = NewTablePrinter(1, 1)
		red   = NewAnsiEscape().FgColour(TERM_RED)
	)
	//
	table.Set(0, 0, "x")
	table.SetEscape(0, 0, red)
	require.NoError(t, table.Print(&buf))
	assert.Equal(t, "\033[31m x\033[0m |\n", buf.String())
	//
	buf.Reset()
	table.AnsiEscapes(false)
	require.NoError(t, table.Print(&buf))
	assert.Equal(t, " x |\n", buf.String())
	//
	assert.False(t, IsTerminal(&buf))
	assert.Equal(t, uint(80), TerminalWidth(&buf, 80))
}

// Layout of a typical table of counts.
func Test_Table_04(t *testing.T) {
	var (
		buf   bytes.Buffer
		table = NewTablePrinter(3, 3)
		g     = goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))
	)
	//
	table.SetRow(0, "", "#1", "#2")
	table.SetRow(1, "cpu", "1024", "7")
	table.SetRow(2, "memory_final", "0", "12345678901234567890")
	table.SetEscape(1, 0, BoldAnsiEscape())
	table.AnsiEscapes(false)
	table.SetMaxWidths(16)
	require.NoError(t, table.Print(&buf))
	//
	g.Assert(t, "shard_table", buf.Bytes())
}
