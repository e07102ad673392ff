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
	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
)

type jumpCols struct {
	shard, clk, nextPc   uint
	pc, target, a, b, c  [4]uint
	target0Hi, targetLsb uint
	isJal, isJalr        uint
}

// JumpChip proves JAL and JALR, which write the return address pc+4 and
// continue at the (even) jump target.
type JumpChip struct {
	base
	cols jumpCols
}

// NewJumpChip constructs a new jump chip.
func NewJumpChip() *JumpChip {
	var (
		p = &JumpChip{base: base{name: "Jump"}}
		l = &p.layout
		c = &p.cols
	)
	//
	c.shard, c.clk, c.nextPc = l.Col("shard"), l.Col("clk"), l.Col("next_pc")
	c.pc, c.target = l.Word("pc"), l.Word("target")
	c.a, c.b, c.c = l.Word("a"), l.Word("b"), l.Word("c")
	c.target0Hi, c.targetLsb = l.Col("target0_hi"), l.Col("target_lsb")
	c.isJal, c.isJalr = l.Col("is_jal"), l.Col("is_jalr")
	//
	return p
}

// Included implementation for the air.Chip interface.
func (p *JumpChip) Included(r *record.ExecutionRecord) bool {
	return len(r.JumpEvents) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *JumpChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(r.JumpEvents))
}

// GenerateTrace implementation for the air.Chip interface.
func (p *JumpChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), r.JumpEvents, p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *JumpChip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), r.JumpEvents, p.populate, output)
}

func (p *JumpChip) populate(row air.RowWriter, ev *events.JumpEvent, d *deps) {
	var (
		c      = &p.cols
		target uint32
	)
	//
	switch ev.Opcode {
	case program.JAL:
		row.Set(c.isJal, 1)
		target = ev.Pc + ev.B
		d.aluOp(events.UnusedPc, program.ADD, target, ev.Pc, ev.B)
	case program.JALR:
		row.Set(c.isJalr, 1)
		target = ev.B + ev.C
		d.aluOp(events.UnusedPc, program.ADD, target, ev.B, ev.C)
	default:
		panic(fmt.Sprintf("invalid jump opcode %s", ev.Opcode))
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
	row.Set(c.target0Hi, uint64(target&0xff)>>1)
	row.Set(c.targetLsb, uint64(target&1))
	//
	d.word(ev.Pc)
	d.u8(uint8(target&0xff)>>1, 0)
	d.aluOp(events.UnusedPc, program.ADD, ev.A, ev.Pc, 4)
}

// Eval implementation for the air.Chip interface.
func (p *JumpChip) Eval(b *air.Builder) {
	var (
		c      = &p.cols
		pc     = b.Word(c.pc)
		target = b.Word(c.target)
		a      = b.Word(c.a)
		bw     = b.Word(c.b)
		cw     = b.Word(c.c)
		lsb    = b.Main(c.targetLsb)
		isJal  = b.Main(c.isJal)
		isJalr = b.Main(c.isJalr)
		flags  = []air.Expr{isJal, isJalr}
		isReal = isJal.Add(isJalr)
		add    = air.Const(uint64(program.ADD))
	)
	//
	flagsOf(b, "jump", flags, isReal)
	sendWordU8(b, isReal, pc)
	// Return address
	sendAlu(b, isReal, add, a, pc, constWord(4))
	// Target, with its least significant bit cleared
	sendAlu(b, isJal, add, target, pc, bw)
	sendAlu(b, isJalr, add, target, bw, cw)
	air.ApplyBinaryGadget("jump:lsb", lsb, b)
	b.AssertEqual("jump:target0", target[0], air.Scale(b.Main(c.target0Hi), 2).Add(lsb))
	sendU8(b, isReal, b.Main(c.target0Hi), air.Const(0))
	b.AssertWhen("jump:next_pc", isReal, b.Main(c.nextPc).Sub(wordOf(target)).Add(lsb))
	//
	b.Receive(air.InstructionBus, air.Local, isReal, instructionValues(b.Main(c.shard), b.Main(c.clk), wordOf(pc),
		b.Main(c.nextPc), opcodeOf(flags, uint64(program.JAL), uint64(program.JALR)), a, bw, cw)...)
}

// ============================================================================
// AUIPC
// ============================================================================

type auipcCols struct {
	shard, clk  uint
	pc, a, b, c [4]uint
	isReal      uint
}

// AuipcChip proves AUIPC, which adds an immediate to the pc.
type AuipcChip struct {
	base
	cols auipcCols
}

// NewAuipcChip constructs a new AUIPC chip.
func NewAuipcChip() *AuipcChip {
	var (
		p = &AuipcChip{base: base{name: "Auipc"}}
		l = &p.layout
		c = &p.cols
	)
	//
	c.shard, c.clk = l.Col("shard"), l.Col("clk")
	c.pc, c.a, c.b, c.c = l.Word("pc"), l.Word("a"), l.Word("b"), l.Word("c")
	c.isReal = l.Col("is_real")
	//
	return p
}

// Included implementation for the air.Chip interface.
func (p *AuipcChip) Included(r *record.ExecutionRecord) bool {
	return len(r.AuipcEvents) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *AuipcChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(r.AuipcEvents))
}

// GenerateTrace implementation for the air.Chip interface.
func (p *AuipcChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), r.AuipcEvents, p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *AuipcChip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), r.AuipcEvents, p.populate, output)
}

func (p *AuipcChip) populate(row air.RowWriter, ev *events.AuipcEvent, d *deps) {
	var c = &p.cols
	//
	row.Set(c.shard, uint64(ev.Shard))
	row.Set(c.clk, uint64(ev.Clk))
	row.SetWord(c.pc, ev.Pc)
	row.SetWord(c.a, ev.A)
	row.SetWord(c.b, ev.B)
	row.SetWord(c.c, ev.C)
	row.Set(c.isReal, 1)
	//
	d.word(ev.Pc)
	d.aluOp(events.UnusedPc, program.ADD, ev.A, ev.Pc, ev.B)
}

// Eval implementation for the air.Chip interface.
func (p *AuipcChip) Eval(b *air.Builder) {
	var (
		c      = &p.cols
		pc     = b.Word(c.pc)
		a      = b.Word(c.a)
		bw     = b.Word(c.b)
		cw     = b.Word(c.c)
		isReal = b.Main(c.isReal)
	)
	//
	air.ApplyBinaryGadget("auipc:is_real", isReal, b)
	sendWordU8(b, isReal, pc)
	sendAlu(b, isReal, air.Const(uint64(program.ADD)), a, pc, bw)
	//
	b.Receive(air.InstructionBus, air.Local, isReal, instructionValues(b.Main(c.shard), b.Main(c.clk), wordOf(pc),
		wordOf(pc).Add(air.Const(4)), air.Scale(isReal, uint64(program.AUIPC)), a, bw, cw)...)
}
