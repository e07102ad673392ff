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
	"fmt"
	"strconv"
	"strings"
)

// NumRegisters is the number of general purpose registers.
const NumRegisters = 32

// MaxAddress is the (exclusive) upper bound on data addresses.  Every address
// below it is a field element whose upper halfword is at most 0x77ff.
const MaxAddress uint32 = 0x78000000

// Register identifiers used by the syscall ABI.
const (
	// T0 holds the syscall code, and receives its result.
	T0 = 5
	// A0 holds the first syscall argument.
	A0 = 10
	// A1 holds the second syscall argument.
	A1 = 11
	// A2 holds the third syscall argument (where applicable).
	A2 = 12
)

// Instruction is a single decoded instruction.  Operand a is always a
// register.  Operands b and c are either registers or immediates, as
// determined by ImmB and ImmC.  The operand conventions are:
//
//	ALU:    a=rd,  b=rs1|imm, c=rs2|imm
//	Load:   a=rd,  b=rs1,     c=imm
//	Store:  a=rs2, b=rs1,     c=imm
//	Branch: a=rs1, b=rs2,     c=imm
//	JAL:    a=rd,  b=imm
//	JALR:   a=rd,  b=rs1,     c=imm
//	AUIPC:  a=rd,  b=imm
//	ECALL:  a=x5,  b=x10,     c=x11
type Instruction struct {
	_      struct{} `cbor:",toarray"`
	Opcode Opcode
	OpA    uint8
	OpB    uint32
	OpC    uint32
	ImmB   bool
	ImmC   bool
}

// NewRType constructs a register-register instruction.
func NewRType(op Opcode, rd uint8, rs1, rs2 uint32) Instruction {
	return Instruction{Opcode: op, OpA: rd, OpB: rs1, OpC: rs2}
}

// NewIType constructs a register-immediate instruction.
func NewIType(op Opcode, rd uint8, rs1, imm uint32) Instruction {
	return Instruction{Opcode: op, OpA: rd, OpB: rs1, OpC: imm, ImmC: true}
}

// NewUType constructs an instruction with a single immediate operand (JAL, AUIPC).
func NewUType(op Opcode, rd uint8, imm uint32) Instruction {
	return Instruction{Opcode: op, OpA: rd, OpB: imm, ImmB: true, ImmC: true}
}

// NewEcall constructs a system call instruction.
func NewEcall() Instruction {
	return Instruction{Opcode: ECALL, OpA: T0, OpB: A0, OpC: A1}
}

// UsesRegisterB determines whether operand b is read from a register.
func (i Instruction) UsesRegisterB() bool {
	return !i.ImmB
}

// UsesRegisterC determines whether operand c is read from a register.
func (i Instruction) UsesRegisterC() bool {
	return !i.ImmC
}

func (i Instruction) String() string {
	var b strings.Builder
	//
	b.WriteString(i.Opcode.String())
	b.WriteString(fmt.Sprintf(" x%d, ", i.OpA))
	b.WriteString(operand(i.OpB, i.ImmB))
	b.WriteString(", ")
	b.WriteString(operand(i.OpC, i.ImmC))
	//
	return b.String()
}

func operand(val uint32, imm bool) string {
	if imm {
		return fmt.Sprintf("%d", int32(val))
	}
	//
	return fmt.Sprintf("x%d", val)
}

// ParseInstruction parses an instruction written in the form "OP a, b, c",
// where operands prefixed with "x" denote registers and all others denote
// (signed, decimal or hex) immediates.  Operand a must be a register, and
// missing trailing operands default to the immediate 0.
func ParseInstruction(text string) (Instruction, error) {
	var (
		insn   Instruction
		fields = strings.Fields(strings.ReplaceAll(text, ",", " "))
		ok     bool
	)
	//
	if len(fields) == 0 {
		return insn, fmt.Errorf("empty instruction")
	} else if insn.Opcode, ok = ParseOpcode(fields[0]); !ok {
		return insn, fmt.Errorf("unknown opcode \"%s\"", fields[0])
	} else if len(fields) > 4 {
		return insn, fmt.Errorf("too many operands in \"%s\"", text)
	}
	// Default operands
	insn.ImmB, insn.ImmC = true, true
	//
	if insn.Opcode == ECALL && len(fields) == 1 {
		return NewEcall(), nil
	}
	//
	for i, f := range fields[1:] {
		val, imm, err := parseOperand(f)
		//
		switch {
		case err != nil:
			return insn, err
		case i == 0 && imm:
			return insn, fmt.Errorf("operand a must be a register (\"%s\")", f)
		case i == 0:
			insn.OpA = uint8(val)
		case i == 1:
			insn.OpB, insn.ImmB = val, imm
		default:
			insn.OpC, insn.ImmC = val, imm
		}
	}
	//
	return insn, nil
}

func parseOperand(text string) (uint32, bool, error) {
	if strings.HasPrefix(text, "x") {
		reg, err := strconv.ParseUint(text[1:], 10, 8)
		if err != nil || reg >= NumRegisters {
			return 0, false, fmt.Errorf("invalid register \"%s\"", text)
		}
		//
		return uint32(reg), false, nil
	}
	//
	val, err := strconv.ParseInt(text, 0, 64)
	if err != nil || val < -(1<<31) || val >= (1<<32) {
		return 0, true, fmt.Errorf("invalid immediate \"%s\"", text)
	}
	//
	return uint32(val), true, nil
}
