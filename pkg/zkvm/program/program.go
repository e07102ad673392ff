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
	"maps"
	"slices"

	"github.com/consensys/go-zkvm/pkg/zkvm/fault"
)

// Program is an immutable, validated sequence of instructions together with
// its entry point and initial memory image.
type Program struct {
	instructions []Instruction
	pcStart      uint32
	pcBase       uint32
	image        map[uint32]uint32
}

// New constructs a program from its components, checking that it is well
// formed.  Specifically, both pc values must be word aligned, the entry point
// must identify an instruction, every instruction must have a valid opcode and
// register operands, and every image address must be a word aligned data
// address.
func New(instructions []Instruction, pcStart, pcBase uint32, image map[uint32]uint32) (*Program, error) {
	p := &Program{slices.Clone(instructions), pcStart, pcBase, maps.Clone(image)}
	//
	if p.image == nil {
		p.image = make(map[uint32]uint32)
	}
	//
	if err := p.validate(); err != nil {
		return nil, err
	}
	//
	return p, nil
}

func (p *Program) validate() error {
	switch {
	case len(p.instructions) == 0:
		return fault.NewProgramError("no instructions")
	case p.pcBase%4 != 0:
		return fault.NewProgramError("pc_base 0x%08x not word aligned", p.pcBase)
	case p.pcStart%4 != 0:
		return fault.NewProgramError("pc_start 0x%08x not word aligned", p.pcStart)
	case p.pcBase == 0:
		return fault.NewProgramError("pc_base cannot be zero")
	case !p.InBounds(p.pcStart):
		return fault.NewProgramError("pc_start 0x%08x outside program", p.pcStart)
	case uint64(p.pcBase)+4*uint64(len(p.instructions)) > 1<<32:
		return fault.NewProgramError("program exceeds address space")
	}
	//
	for i, insn := range p.instructions {
		if err := validateInstruction(insn); err != nil {
			return fault.NewProgramError("instruction %d (%s): %s", i, insn, err.Msg)
		}
	}
	//
	for addr := range p.image {
		if addr%4 != 0 || addr < NumRegisters || addr >= MaxAddress {
			return fault.NewProgramError("invalid image address 0x%08x", addr)
		}
	}
	//
	return nil
}

func validateInstruction(insn Instruction) *fault.ProgramError {
	switch {
	case !insn.Opcode.Valid():
		return fault.NewProgramError("unknown opcode %d", insn.Opcode)
	case insn.OpA >= NumRegisters:
		return fault.NewProgramError("invalid register x%d", insn.OpA)
	case !insn.ImmB && insn.OpB >= NumRegisters:
		return fault.NewProgramError("invalid register x%d", insn.OpB)
	case !insn.ImmC && insn.OpC >= NumRegisters:
		return fault.NewProgramError("invalid register x%d", insn.OpC)
	}
	// Operand kinds are fixed for all but ALU instructions
	switch insn.Opcode.Category() {
	case Load, Store, Branch:
		if insn.ImmB || !insn.ImmC {
			return fault.NewProgramError("%s requires a register and an immediate", insn.Opcode)
		}
	case Jump, Auipc:
		if insn.Opcode == JALR && (insn.ImmB || !insn.ImmC) {
			return fault.NewProgramError("%s requires a register and an immediate", insn.Opcode)
		} else if insn.Opcode != JALR && (!insn.ImmB || !insn.ImmC) {
			return fault.NewProgramError("%s requires an immediate", insn.Opcode)
		}
	case System:
		if insn.Opcode == ECALL && insn != NewEcall() {
			return fault.NewProgramError("malformed ECALL")
		}
	}
	//
	return nil
}

// Instructions returns the instructions making up this program.  The returned
// slice must not be modified.
func (p *Program) Instructions() []Instruction {
	return p.instructions
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.instructions)
}

// PcStart returns the entry point.
func (p *Program) PcStart() uint32 {
	return p.pcStart
}

// PcBase returns the address of the first instruction.
func (p *Program) PcBase() uint32 {
	return p.pcBase
}

// Image returns the initial value of a given address within the memory image,
// and whether or not it is present.
func (p *Program) Image(addr uint32) (uint32, bool) {
	val, ok := p.image[addr]
	return val, ok
}

// ImageAddresses returns the addresses in the memory image, in ascending order.
func (p *Program) ImageAddresses() []uint32 {
	return slices.Sorted(maps.Keys(p.image))
}

// InBounds determines whether a given pc identifies an instruction of this
// program.
func (p *Program) InBounds(pc uint32) bool {
	return pc%4 == 0 && pc >= p.pcBase && uint64(pc-p.pcBase)/4 < uint64(len(p.instructions))
}

// Fetch returns the instruction at a given pc.
func (p *Program) Fetch(pc uint32) (Instruction, error) {
	if !p.InBounds(pc) {
		return Instruction{}, &fault.ExecutionError{Kind: fault.FetchOutOfBounds, Pc: pc}
	}
	//
	return p.instructions[(pc-p.pcBase)/4], nil
}
