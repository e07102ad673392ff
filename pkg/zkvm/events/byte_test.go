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
package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ByteTable_01(t *testing.T) {
	table := GetByteTable()
	row := 0xF0<<8 | 0x0F
	//
	assert.Equal(t, uint16(0x00), table[ByteAnd][row].A1)
	assert.Equal(t, uint16(0xFF), table[ByteOr][row].A1)
	assert.Equal(t, uint16(0xFF), table[ByteXor][row].A1)
	assert.Equal(t, uint16(0), table[ByteLtu][row].A1)
	assert.Equal(t, uint16(1), table[ByteMsb][row].A1)
	assert.Equal(t, uint16(0xF00F), table[ByteU16Range][row].A1)
	// Built once
	require.Same(t, table, GetByteTable())
}

func Test_ByteTable_02(t *testing.T) {
	table := GetByteTable()
	//
	for b := range 256 {
		for c := range 256 {
			row := b<<8 | c
			check_Entry(t, table, ByteAnd, row, uint16(b&c), 0)
			check_Entry(t, table, ByteOr, row, uint16(b|c), 0)
			check_Entry(t, table, ByteXor, row, uint16(b^c), 0)
			check_Entry(t, table, ByteSll, row, uint16((b<<(c%8))%256), 0)
			check_Entry(t, table, ByteShrCarry, row, uint16(b>>(c%8)), uint8(b%(1<<(c%8))))
			check_Entry(t, table, ByteMsb, row, uint16(b/128), 0)
		}
	}
}

func Test_ByteTable_03(t *testing.T) {
	table := GetByteTable()
	//
	assert.True(t, table.Contains(NewByteLookup(ByteXor, 3, 5)))
	assert.True(t, table.Contains(U16RangeLookup(0xBEEF)))
	assert.True(t, table.Contains(MsbLookup(0x80)))
	assert.False(t, table.Contains(ByteLookupEvent{Opcode: ByteXor, A1: 7, B: 3, C: 5}))
	assert.False(t, table.Contains(ByteLookupEvent{Opcode: ByteU16Range, A1: 1, B: 1}))
	assert.Equal(t, 0xBEEF, U16RangeLookup(0xBEEF).Row())
	assert.Equal(t, 0x0305, NewByteLookup(ByteAnd, 3, 5).Row())
}

func check_Entry(t *testing.T, table *ByteTable, op ByteOpcode, row int, a1 uint16, a2 uint8) {
	if table[op][row].A1 != a1 || table[op][row].A2 != a2 {
		t.Fatalf("%s at row 0x%04x: expected (%d,%d), got (%d,%d)", op, row, a1, a2,
			table[op][row].A1, table[op][row].A2)
	}
}
