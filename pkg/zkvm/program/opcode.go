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

import "strings"

// Opcode identifies the operation performed by an instruction.
type Opcode uint8

// The closed set of RV32IM opcodes supported by the machine.
const (
	ADD Opcode = iota
	SUB
	XOR
	OR
	AND
	SLL
	SRL
	SRA
	SLT
	SLTU
	MUL
	MULH
	MULHU
	MULHSU
	DIV
	DIVU
	REM
	REMU
	LB
	LH
	LW
	LBU
	LHU
	SB
	SH
	SW
	BEQ
	BNE
	BLT
	BGE
	BLTU
	BGEU
	JAL
	JALR
	AUIPC
	ECALL
	EBREAK
	UNIMP
	// NumOpcodes is the number of opcodes
	NumOpcodes
)

var opcodeNames = [NumOpcodes]string{
	"ADD", "SUB", "XOR", "OR", "AND", "SLL", "SRL", "SRA", "SLT", "SLTU",
	"MUL", "MULH", "MULHU", "MULHSU", "DIV", "DIVU", "REM", "REMU",
	"LB", "LH", "LW", "LBU", "LHU", "SB", "SH", "SW",
	"BEQ", "BNE", "BLT", "BGE", "BLTU", "BGEU",
	"JAL", "JALR", "AUIPC", "ECALL", "EBREAK", "UNIMP",
}

// Category groups opcodes by the way in which they are executed.
type Category uint8

const (
	// ALU covers arithmetic, logical, shift, comparison, multiply and divide.
	ALU Category = iota
	// Load covers memory loads.
	Load
	// Store covers memory stores.
	Store
	// Branch covers conditional branches.
	Branch
	// Jump covers JAL and JALR.
	Jump
	// Auipc covers AUIPC.
	Auipc
	// System covers ECALL, EBREAK and UNIMP.
	System
)

func (op Opcode) String() string {
	if op < NumOpcodes {
		return opcodeNames[op]
	}
	//
	return "???"
}

// Valid determines whether this is a known opcode.
func (op Opcode) Valid() bool {
	return op < NumOpcodes
}

// Category returns the execution category of this opcode.
func (op Opcode) Category() Category {
	switch {
	case op <= REMU:
		return ALU
	case op <= LHU:
		return Load
	case op <= SW:
		return Store
	case op <= BGEU:
		return Branch
	case op <= JALR:
		return Jump
	case op == AUIPC:
		return Auipc
	default:
		return System
	}
}

// ParseOpcode returns the opcode with the given (case insensitive) name.
func ParseOpcode(name string) (Opcode, bool) {
	name = strings.ToUpper(name)
	//
	for i, n := range opcodeNames {
		if n == name {
			return Opcode(i), true
		}
	}
	//
	return 0, false
}
