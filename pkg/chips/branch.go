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
	"github.com/consensys/go-zkvm/pkg/air"
	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
)

// branchOpcodes lists the opcodes of the branch chip, in the order of its
// opcode flags.
var branchOpcodes = []program.Opcode{program.BEQ, program.BNE, program.BLT, program.BGE, program.BLTU,
	program.BGEU}

type branchCols struct {
	shard, clk, nextPc  uint
	pc, target, a, b, c [4]uint
	aLtB, aGtB, taken   uint
	flags               [6]uint
}

// BranchChip proves conditional branches.  Operands are compared in both
// directions using the comparison chip, from which equality follows, and the
// branch target is computed using the addition chip.
type BranchChip struct {
	base
	cols branchCols
}

// NewBranchChip constructs a new branch chip.
func NewBranchChip() *BranchChip {
	var (
		p = &BranchChip{base: base{name: "Branch"}}
		l = &p.layout
		c = &p.cols
	)
	//
	c.shard, c.clk, c.nextPc = l.Col("shard"), l.Col("clk"), l.Col("next_pc")
	c.pc, c.target = l.Word("pc"), l.Word("target")
	c.a, c.b, c.c = l.Word("a"), l.Word("b"), l.Word("c")
	c.aLtB, c.aGtB, c.taken = l.Col("a_lt_b"), l.Col("a_gt_b"), l.Col("taken")
	//
	for i, op := range branchOpcodes {
		c.flags[i] = l.Col("is_" + op.String())
	}
	//
	return p
}

// Included implementation for the air.Chip interface.
func (p *BranchChip) Included(r *record.ExecutionRecord) bool {
	return len(r.BranchEvents) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *BranchChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(r.BranchEvents))
}

// GenerateTrace implementation for the air.Chip interface.
func (p *BranchChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), r.BranchEvents, p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *BranchChip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), r.BranchEvents, p.populate, output)
}

func (p *BranchChip) populate(row air.RowWriter, ev *events.BranchEvent, d *deps) {
	var (
		c      = &p.cols
		target = ev.Pc + ev.C
		cmp    = program.SLTU
	)
	//
	for i, op := range branchOpcodes {
		if op == ev.Opcode {
			row.Set(c.flags[i], 1)
		}
	}
	//
	if ev.Opcode == program.BLT || ev.Opcode == program.BGE {
		cmp = program.SLT
	}
	//
	row.Set(c.shard, uint64(ev.Shard))
	row.Set(c.clk, uint64(ev.Clk))
	row.Set(c.nextPc, uint64(ev.NextPc))
	row.SetWord(c.pc, ev.Pc)
	row.SetWord(c.target, target)
	row.SetWord(c.a, ev.A)
	row.SetWord(c.b, ev.B)
	row.SetWord(c.c, ev.C)
	row.SetBool(c.aLtB, ev.ALtB)
	row.SetBool(c.aGtB, ev.AGtB)
	row.SetBool(c.taken, ev.Taken())
	//
	d.word(ev.Pc)
	d.aluOp(events.UnusedPc, cmp, wordOfBool(ev.ALtB), ev.A, ev.B)
	d.aluOp(events.UnusedPc, cmp, wordOfBool(ev.AGtB), ev.B, ev.A)
	d.aluOp(events.UnusedPc, program.ADD, target, ev.Pc, ev.C)
}

func wordOfBool(b bool) uint32 {
	if b {
		return 1
	}
	//
	return 0
}

// Eval implementation for the air.Chip interface.
func (p *BranchChip) Eval(b *air.Builder) {
	var (
		c      = &p.cols
		pc     = b.Word(c.pc)
		target = b.Word(c.target)
		a      = b.Word(c.a)
		bw     = b.Word(c.b)
		cw     = b.Word(c.c)
		aLtB   = b.Main(c.aLtB)
		aGtB   = b.Main(c.aGtB)
		taken  = b.Main(c.taken)
		flags  = b.Cols(c.flags[:]...)
		isReal = air.Sum(flags...)
		// individual flags
		isBeq, isBne, isBlt, isBge, isBltu, isBgeu = flags[0], flags[1], flags[2], flags[3], flags[4], flags[5]
	)
	//
	flagsOf(b, "branch", flags, isReal)
	// Comparisons
	cmp := air.Const(uint64(program.SLTU)).Sub(isBlt.Add(isBge))
	zero := air.Const(0)
	sendAlu(b, isReal, cmp, []air.Expr{aLtB, zero, zero, zero}, a, bw)
	sendAlu(b, isReal, cmp, []air.Expr{aGtB, zero, zero, zero}, bw, a)
	//
	aEqB := air.Not(aLtB.Add(aGtB))
	b.AssertEqual("branch:taken", taken, air.Sum(isBeq.Mul(aEqB), isBne.Mul(air.Not(aEqB)),
		isBlt.Add(isBltu).Mul(aLtB), isBge.Add(isBgeu).Mul(air.Not(aLtB))))
	// Target
	sendWordU8(b, isReal, pc)
	sendAlu(b, isReal, air.Const(uint64(program.ADD)), target, pc, cw)
	//
	var (
		nextPc     = b.Main(c.nextPc)
		sequential = wordOf(pc).Add(air.Const(4))
	)
	//
	b.AssertWhen("branch:next_pc", isReal, nextPc.Sub(taken.Mul(wordOf(target))).Sub(air.Not(taken).Mul(sequential)))
	//
	b.Receive(air.InstructionBus, air.Local, isReal, instructionValues(b.Main(c.shard), b.Main(c.clk), wordOf(pc),
		nextPc, opcodeOf(flags, opcodesOf(branchOpcodes)...), a, bw, cw)...)
}
