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
	"github.com/consensys/go-zkvm/pkg/util/field/babybear"
	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
)

type cpuCols struct {
	shard, clk, clk16, clk8, pc, nextPc                        uint
	opcode, opA, opB, opC, immB, immC, opAInv                  uint
	a, b, c                                                    accessCols
	res                                                        [4]uint
	isAlu, isLoad, isStore, isBranch, isJump, isAuipc, isEcall uint
	isReal, isPrecompile                                       uint
}

// CpuChip has one row per executed instruction.  It fetches the instruction
// from the program, performs the register accesses and dispatches the
// instruction to the chip responsible for its semantics.
type CpuChip struct {
	base
	cols cpuCols
}

// NewCpuChip constructs a new CPU chip.
func NewCpuChip() *CpuChip {
	var (
		p = &CpuChip{base: base{name: "Cpu"}}
		l = &p.layout
		c = &p.cols
	)
	//
	c.shard, c.clk, c.clk16, c.clk8 = l.Col("shard"), l.Col("clk"), l.Col("clk_16"), l.Col("clk_8")
	c.pc, c.nextPc = l.Col("pc"), l.Col("next_pc")
	c.opcode, c.opA, c.opB, c.opC = l.Col("opcode"), l.Col("op_a"), l.Col("op_b"), l.Col("op_c")
	c.immB, c.immC, c.opAInv = l.Col("imm_b"), l.Col("imm_c"), l.Col("op_a_inv")
	c.a, c.b, c.c = newWriteCols(l, "a"), newReadCols(l, "b"), newReadCols(l, "c")
	c.res = l.Word("res")
	c.isAlu, c.isLoad, c.isStore = l.Col("is_alu"), l.Col("is_load"), l.Col("is_store")
	c.isBranch, c.isJump, c.isAuipc = l.Col("is_branch"), l.Col("is_jump"), l.Col("is_auipc")
	c.isEcall, c.isReal, c.isPrecompile = l.Col("is_ecall"), l.Col("is_real"), l.Col("is_precompile")
	//
	return p
}

// Included implementation for the air.Chip interface.
func (p *CpuChip) Included(r *record.ExecutionRecord) bool {
	return len(r.CpuEvents) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *CpuChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(r.CpuEvents))
}

// GenerateTrace implementation for the air.Chip interface.
func (p *CpuChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), r.CpuEvents, p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *CpuChip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), r.CpuEvents, p.populate, output)
}

func (p *CpuChip) populate(row air.RowWriter, ev *events.CpuEvent, d *deps) {
	var (
		c    = &p.cols
		insn = ev.Instruction
	)
	//
	row.Set(c.shard, uint64(ev.Shard))
	row.Set(c.clk, uint64(ev.Clk))
	row.Set(c.clk16, uint64(ev.Clk&0xffff))
	row.Set(c.clk8, uint64(ev.Clk>>16))
	d.u16(uint16(ev.Clk))
	d.u8(uint8(ev.Clk>>16), 0)
	row.Set(c.pc, uint64(ev.Pc))
	row.Set(c.nextPc, uint64(ev.NextPc))
	// Instruction
	row.Set(c.opcode, uint64(insn.Opcode))
	row.Set(c.opA, uint64(insn.OpA))
	row.Set(c.opB, uint64(insn.OpB))
	row.Set(c.opC, uint64(insn.OpC))
	row.SetBool(c.immB, insn.ImmB)
	row.SetBool(c.immC, insn.ImmC)
	row.SetElement(c.opAInv, air.PseudoInverse(babybear.New(uint32(insn.OpA))))
	// Register accesses
	c.a.populate(row, ev.ARecord, d)
	c.b.populate(row, ev.BRecord, d)
	c.c.populate(row, ev.CRecord, d)
	// Immediates are not accesses
	row.SetWord(c.b.value, ev.B)
	row.SetWord(c.c.value, ev.C)
	row.SetWord(c.res, ev.Res)
	d.word(ev.A)
	d.word(ev.B)
	d.word(ev.C)
	//
	switch insn.Opcode.Category() {
	case program.ALU:
		row.Set(c.isAlu, 1)
	case program.Load:
		row.Set(c.isLoad, 1)
	case program.Store:
		row.Set(c.isStore, 1)
	case program.Branch:
		row.Set(c.isBranch, 1)
	case program.Jump:
		row.Set(c.isJump, 1)
	case program.Auipc:
		row.Set(c.isAuipc, 1)
	default:
		row.Set(c.isEcall, 1)
		row.Set(c.isPrecompile, uint64(ev.ARecord.PrevValue>>8)&0xff)
	}
	//
	row.Set(c.isReal, 1)
}

// Eval implementation for the air.Chip interface.
func (p *CpuChip) Eval(b *air.Builder) {
	var (
		c       = &p.cols
		shard   = b.Main(c.shard)
		clk     = b.Main(c.clk)
		pc      = b.Main(c.pc)
		nextPc  = b.Main(c.nextPc)
		opcode  = b.Main(c.opcode)
		isReal  = b.Main(c.isReal)
		isEcall = b.Main(c.isEcall)
		a       = b.Word(c.a.value)
		aPrev   = b.Word(c.a.prev)
		bw      = b.Word(c.b.value)
		cw      = b.Word(c.c.value)
		res     = b.Word(c.res)
		flags   = b.Cols(c.isAlu, c.isLoad, c.isStore, c.isBranch, c.isJump, c.isAuipc, c.isEcall)
		isRead  = b.Main(c.isStore).Add(b.Main(c.isBranch))
	)
	//
	flagsOf(b, "cpu", flags, isReal)
	// Clock decomposition
	b.AssertEqual("cpu:clk", clk, b.Main(c.clk16).Add(air.Scale(b.Main(c.clk8), 1<<16)))
	sendU16(b, isReal, b.Main(c.clk16))
	sendU8(b, isReal, b.Main(c.clk8), air.Const(0))
	// Fetch
	b.Send(air.ProgramBus, air.Local, isReal, pc, opcode, b.Main(c.opA), b.Main(c.opB), b.Main(c.opC),
		b.Main(c.immB), b.Main(c.immC))
	// Register zero always reads as zero, and ignores writes.
	isZero := air.ApplyPseudoInverseGadget("cpu:op_a_0", b.Main(c.opA), b.Main(c.opAInv), b)
	//
	for i := range 4 {
		b.AssertWhen("cpu:a_zero", isZero, a[i])
		b.AssertWhen("cpu:a_res", air.Not(isZero), a[i].Sub(res[i]))
		b.AssertWhen("cpu:a_read", isRead, aPrev[i].Sub(a[i]))
	}
	// Immediates
	b.AssertWhen("cpu:imm_b", b.Main(c.immB), wordOf(bw).Sub(b.Main(c.opB)))
	b.AssertWhen("cpu:imm_c", b.Main(c.immC), wordOf(cw).Sub(b.Main(c.opC)))
	// Register accesses, in order c, b then a.
	c.c.eval(b, isReal.Sub(b.Main(c.immC)), shard, clk.Add(air.Const(1)), b.Main(c.opC))
	c.b.eval(b, isReal.Sub(b.Main(c.immB)), shard, clk.Add(air.Const(2)), b.Main(c.opB))
	c.a.eval(b, isReal, shard, clk.Add(air.Const(3)), b.Main(c.opA))
	sendWordU8(b, isReal, a)
	sendWordU8(b, isReal, bw)
	sendWordU8(b, isReal, cw)
	// Dispatch
	sendAlu(b, b.Main(c.isAlu), opcode, res, bw, cw)
	b.Send(air.InstructionBus, air.Local, air.Sum(b.Cols(c.isLoad, c.isStore, c.isBranch, c.isJump, c.isAuipc)...),
		instructionValues(shard, clk, pc, nextPc, opcode, res, bw, cw)...)
	b.AssertWhen("cpu:next_pc", air.Sum(b.Cols(c.isAlu, c.isLoad, c.isStore)...), nextPc.Sub(pc).Sub(air.Const(4)))
	// System calls, where the syscall code is the previous value of a.
	b.AssertWhen("cpu:ecall", isEcall, opcode.Sub(air.Const(uint64(program.ECALL))))
	b.AssertEqual("cpu:is_precompile", b.Main(c.isPrecompile), isEcall.Mul(aPrev[1]))
	b.Send(air.SyscallBus, air.Local, b.Main(c.isPrecompile), syscallValues(shard, clk, wordOf(aPrev), bw, cw)...)
	// Consecutive rows
	var (
		isNext = b.IsTransition().Mul(b.Next(c.isReal))
		cycles = air.Const(4).Add(isEcall.Mul(aPrev[2]))
	)
	//
	b.AssertZero("cpu:pc_transition", isNext.Mul(b.Next(c.pc).Sub(nextPc)))
	b.AssertZero("cpu:clk_transition", isNext.Mul(b.Next(c.clk).Sub(clk).Sub(cycles)))
	b.AssertZero("cpu:padding", b.IsTransition().Mul(air.Not(isReal)).Mul(b.Next(c.isReal)))
}

func syscallValues(shard, clk, code air.Expr, arg1, arg2 []air.Expr) []air.Expr {
	values := []air.Expr{shard, clk, code}
	values = append(values, arg1...)
	//
	return append(values, arg2...)
}
