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
	"fmt"
	"sync"
)

// ByteOpcode identifies an operation of the byte lookup table.
type ByteOpcode uint8

const (
	// ByteAnd is bitwise and.
	ByteAnd ByteOpcode = iota
	// ByteOr is bitwise or.
	ByteOr
	// ByteXor is bitwise exclusive or.
	ByteXor
	// ByteSll is a left shift of b by (c mod 8), truncated to a byte.
	ByteSll
	// ByteU8Range checks that both b and c are bytes.
	ByteU8Range
	// ByteShrCarry is a right shift of b by (c mod 8), producing both the
	// shifted value and the bits shifted out.
	ByteShrCarry
	// ByteLtu compares b < c (unsigned).
	ByteLtu
	// ByteMsb extracts the most significant bit of b.
	ByteMsb
	// ByteU16Range checks a 16bit value.
	ByteU16Range
	// NumByteOps is the number of byte opcodes.
	NumByteOps
)

// ByteTableRows is the number of (b, c) pairs in the byte table.
const ByteTableRows = 1 << 16

var byteOpcodeNames = [NumByteOps]string{"AND", "OR", "XOR", "SLL", "U8Range", "ShrCarry", "LTU", "MSB", "U16Range"}

func (op ByteOpcode) String() string {
	if op < NumByteOps {
		return byteOpcodeNames[op]
	}
	//
	return fmt.Sprintf("ByteOp(%d)", uint8(op))
}

// ByteLookupEvent is a single use of the byte table, asserting that
// op(b, c) = (a1, a2).
type ByteLookupEvent struct {
	_      struct{} `cbor:",toarray"`
	Opcode ByteOpcode
	A1     uint16
	A2     uint8
	B      uint8
	C      uint8
}

// NewByteLookup constructs the (correct) lookup of op applied to b and c.
func NewByteLookup(op ByteOpcode, b, c uint8) ByteLookupEvent {
	a1, a2 := ComputeByteOp(op, b, c)
	//
	return ByteLookupEvent{Opcode: op, A1: a1, A2: a2, B: b, C: c}
}

// U8RangeLookup checks that both b and c are bytes.
func U8RangeLookup(b, c uint8) ByteLookupEvent {
	return NewByteLookup(ByteU8Range, b, c)
}

// U16RangeLookup checks that a given value is 16bits.
func U16RangeLookup(v uint16) ByteLookupEvent {
	return ByteLookupEvent{Opcode: ByteU16Range, A1: v}
}

// MsbLookup extracts the most significant bit of a byte.
func MsbLookup(b uint8) ByteLookupEvent {
	return NewByteLookup(ByteMsb, b, 0)
}

// Row returns the index of the table row which this lookup refers to.
func (e ByteLookupEvent) Row() int {
	if e.Opcode == ByteU16Range {
		return int(e.A1)
	}
	//
	return int(e.B)<<8 | int(e.C)
}

// ComputeByteOp computes the result of a byte operation.
func ComputeByteOp(op ByteOpcode, b, c uint8) (uint16, uint8) {
	switch op {
	case ByteAnd:
		return uint16(b & c), 0
	case ByteOr:
		return uint16(b | c), 0
	case ByteXor:
		return uint16(b ^ c), 0
	case ByteSll:
		return uint16(b<<(c&7)) & 0xff, 0
	case ByteU8Range:
		return 0, 0
	case ByteShrCarry:
		shift := c & 7
		return uint16(b >> shift), b & ((1 << shift) - 1)
	case ByteLtu:
		if b < c {
			return 1, 0
		}
		//
		return 0, 0
	case ByteMsb:
		return uint16(b >> 7), 0
	case ByteU16Range:
		return uint16(b)<<8 | uint16(c), 0
	default:
		panic(fmt.Sprintf("unknown byte opcode %d", op))
	}
}

// ByteTableEntry holds the outputs of a byte operation for one row.
type ByteTableEntry struct {
	A1 uint16
	A2 uint8
}

// ByteTable holds the outputs of every byte operation over all (b, c) pairs,
// where row r corresponds to b = r / 256 and c = r % 256.
type ByteTable [NumByteOps][ByteTableRows]ByteTableEntry

// GetByteTable returns the byte table, building it on first use.
var GetByteTable = sync.OnceValue(func() *ByteTable {
	var table ByteTable
	//
	for op := range NumByteOps {
		for row := range ByteTableRows {
			a1, a2 := ComputeByteOp(op, uint8(row>>8), uint8(row))
			table[op][row] = ByteTableEntry{a1, a2}
		}
	}
	//
	return &table
})

// Contains checks whether a given lookup is an entry of the table.
func (t *ByteTable) Contains(e ByteLookupEvent) bool {
	if e.Opcode >= NumByteOps {
		return false
	} else if e.Opcode == ByteU16Range {
		return e.A2 == 0 && e.B == 0 && e.C == 0
	}
	//
	entry := t[e.Opcode][e.Row()]
	//
	return entry.A1 == e.A1 && entry.A2 == e.A2
}
