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
package chips

import (
	"fmt"

	"github.com/consensys/go-zkvm/pkg/air"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
)

// ProgramChip holds the instructions of the program as a preprocessed trace,
// along with the number of times each was executed in a given shard.
type ProgramChip struct {
	base
	prep air.Layout
	// preprocessed columns
	pc, opcode, opA, opB, opC, immB, immC uint
	// main columns
	mult uint
}

// NewProgramChip constructs a new program chip.
func NewProgramChip() *ProgramChip {
	p := &ProgramChip{base: base{name: "Program"}}
	//
	p.pc, p.opcode = p.prep.Col("pc"), p.prep.Col("opcode")
	p.opA, p.opB, p.opC = p.prep.Col("op_a"), p.prep.Col("op_b"), p.prep.Col("op_c")
	p.immB, p.immC = p.prep.Col("imm_b"), p.prep.Col("imm_c")
	p.mult = p.layout.Col("multiplicity")
	//
	return p
}

// PreprocessedWidth implementation for the air.Chip interface.
func (p *ProgramChip) PreprocessedWidth() uint {
	return p.prep.Width()
}

// GeneratePreprocessedTrace implementation for the air.Chip interface.
func (p *ProgramChip) GeneratePreprocessedTrace(prog *program.Program) *air.Matrix {
	var (
		insns = prog.Instructions()
		m     = air.NewMatrix(p.prep.Width(), uint(len(insns)))
	)
	//
	for i, insn := range insns {
		row := air.RowWriter(m.Row(uint(i)))
		row.Set(p.pc, uint64(prog.PcBase())+4*uint64(i))
		row.Set(p.opcode, uint64(insn.Opcode))
		row.Set(p.opA, uint64(insn.OpA))
		row.Set(p.opB, uint64(insn.OpB))
		row.Set(p.opC, uint64(insn.OpC))
		row.SetBool(p.immB, insn.ImmB)
		row.SetBool(p.immC, insn.ImmC)
	}
	//
	return m
}

// Included implementation for the air.Chip interface.  The program is
// included in every shard.
func (p *ProgramChip) Included(r *record.ExecutionRecord) bool {
	return true
}

// NumRows implementation for the air.Chip interface.
func (p *ProgramChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(r.Program().Len())
}

// GenerateTrace implementation for the air.Chip interface.
func (p *ProgramChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	var (
		prog = r.Program()
		m    = air.NewMatrix(p.Width(), uint(prog.Len()))
		// Executions of each instruction
		counts = make([]uint64, prog.Len())
	)
	//
	for _, ev := range r.CpuEvents {
		if !prog.InBounds(ev.Pc) {
			panic(fmt.Sprintf("cpu event for pc 0x%08x outside program", ev.Pc))
		}
		//
		counts[(ev.Pc-prog.PcBase())/4]++
	}
	//
	for i, n := range counts {
		air.RowWriter(m.Row(uint(i))).Set(p.mult, n)
	}
	//
	return m
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *ProgramChip) GenerateDependencies(*record.ExecutionRecord, *record.ExecutionRecord) {
	// none
}

// Eval implementation for the air.Chip interface.
func (p *ProgramChip) Eval(b *air.Builder) {
	b.Receive(air.ProgramBus, air.Local, b.Main(p.mult), b.Preprocessed(p.pc), b.Preprocessed(p.opcode),
		b.Preprocessed(p.opA), b.Preprocessed(p.opB), b.Preprocessed(p.opC), b.Preprocessed(p.immB),
		b.Preprocessed(p.immC))
}
