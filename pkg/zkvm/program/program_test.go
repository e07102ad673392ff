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
package program

import (
	"testing"

	"github.com/consensys/go-zkvm/pkg/zkvm/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Program_01(t *testing.T) {
	p, err := Parse([]byte(`
pc_start: 0x1000
instructions:
  - ADD x5, x0, 5
  - SW x5, x0, 0x2000
  - JAL x1, -8
  - ECALL
memory:
  0x2000: 42
`))
	require.NoError(t, err)
	//
	assert.Equal(t, 4, p.Len())
	assert.Equal(t, uint32(0x1000), p.PcBase())
	assert.Equal(t, NewIType(ADD, 5, 0, 5), p.Instructions()[0])
	assert.Equal(t, Instruction{Opcode: SW, OpA: 5, OpB: 0, OpC: 0x2000, ImmC: true}, p.Instructions()[1])
	assert.Equal(t, NewUType(JAL, 1, 0xFFFFFFF8), p.Instructions()[2])
	assert.Equal(t, NewEcall(), p.Instructions()[3])
	//
	val, ok := p.Image(0x2000)
	assert.True(t, ok)
	assert.Equal(t, uint32(42), val)
}

func Test_Program_02(t *testing.T) {
	p := MustAssemble(0x100, nil, "ADD x1, x2, x3", "ECALL")
	//
	insn, err := p.Fetch(0x104)
	require.NoError(t, err)
	assert.Equal(t, ECALL, insn.Opcode)
	// Out of bounds fetches
	for _, pc := range []uint32{0x0, 0xfc, 0x108, 0x102} {
		_, err = p.Fetch(pc)
		assert.ErrorIs(t, err, fault.ErrFetchOutOfBounds, "pc=0x%x", pc)
	}
}

func Test_Program_03(t *testing.T) {
	checkMalformed(t, []Instruction{NewEcall()}, 0x1002, 0x1000, nil)
	checkMalformed(t, []Instruction{NewEcall()}, 0x1004, 0x1000, nil)
	checkMalformed(t, nil, 0x1000, 0x1000, nil)
	checkMalformed(t, []Instruction{NewRType(ADD, 40, 1, 2)}, 0x1000, 0x1000, nil)
	checkMalformed(t, []Instruction{NewRType(ADD, 1, 1, 33)}, 0x1000, 0x1000, nil)
	checkMalformed(t, []Instruction{{Opcode: NumOpcodes}}, 0x1000, 0x1000, nil)
	checkMalformed(t, []Instruction{NewEcall()}, 0x1000, 0x1000, map[uint32]uint32{0x2001: 1})
	checkMalformed(t, []Instruction{NewEcall()}, 0x1000, 0x1000, map[uint32]uint32{8: 1})
	// Operand kinds
	checkMalformed(t, []Instruction{NewRType(LW, 1, 2, 3)}, 0x1000, 0x1000, nil)
	checkMalformed(t, []Instruction{NewIType(JAL, 1, 2, 3)}, 0x1000, 0x1000, nil)
	checkMalformed(t, []Instruction{{Opcode: ECALL}}, 0x1000, 0x1000, nil)
}

func Test_Program_04(t *testing.T) {
	for _, line := range []string{"", "FOO x1", "ADD 1, x2, x3", "ADD x1, x99, 2", "ADD x1, x2, zz", "ADD x1, x2, x3, x4"} {
		_, err := ParseInstruction(line)
		assert.Error(t, err, "line \"%s\"", line)
	}
	//
	insn, err := ParseInstruction("bltu x1, x2, -4")
	require.NoError(t, err)
	assert.Equal(t, Instruction{Opcode: BLTU, OpA: 1, OpB: 2, OpC: 0xFFFFFFFC, ImmC: true}, insn)
	assert.Equal(t, "BLTU x1, x2, -4", insn.String())
}

func Test_Program_05(t *testing.T) {
	assert.Equal(t, ALU, REMU.Category())
	assert.Equal(t, Load, LHU.Category())
	assert.Equal(t, Store, SB.Category())
	assert.Equal(t, Branch, BGEU.Category())
	assert.Equal(t, Jump, JALR.Category())
	assert.Equal(t, Auipc, AUIPC.Category())
	assert.Equal(t, System, UNIMP.Category())
}

func checkMalformed(t *testing.T, insns []Instruction, pcStart, pcBase uint32, image map[uint32]uint32) {
	t.Helper()
	//
	_, err := New(insns, pcStart, pcBase, image)
	assert.ErrorIs(t, err, fault.ErrMalformedProgram)
}
