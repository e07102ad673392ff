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

// memoryOpcodes lists the opcodes of the memory instruction chip, in the order
// of its opcode flags.
var memoryOpcodes = []program.Opcode{program.LB, program.LH, program.LW, program.LBU, program.LHU, program.SB,
	program.SH, program.SW}

type memoryInstrsCols struct {
	shard, clk, pc         uint
	a, b, c, addr          [4]uint
	offset                 [4]uint
	addr0Hi                uint
	mem                    accessCols
	selByte, signByte, msb uint
	flags                  [8]uint
}

// MemoryInstrsChip proves loads and stores.  The effective address b + c is
// split into an aligned word address and a byte offset, after which the
// loaded value is extracted from (or the stored value merged into) the word
// accessed in memory.
type MemoryInstrsChip struct {
	base
	cols memoryInstrsCols
}

// NewMemoryInstrsChip constructs a new memory instruction chip.
func NewMemoryInstrsChip() *MemoryInstrsChip {
	var (
		p = &MemoryInstrsChip{base: base{name: "MemoryInstrs"}}
		l = &p.layout
		c = &p.cols
	)
	//
	c.shard, c.clk, c.pc = l.Col("shard"), l.Col("clk"), l.Col("pc")
	c.a, c.b, c.c, c.addr = l.Word("a"), l.Word("b"), l.Word("c"), l.Word("addr")
	c.offset = l.Word("offset")
	c.addr0Hi = l.Col("addr0_hi")
	c.mem = newWriteCols(l, "mem")
	c.selByte, c.signByte, c.msb = l.Col("sel_byte"), l.Col("sign_byte"), l.Col("msb")
	//
	for i, op := range memoryOpcodes {
		c.flags[i] = l.Col("is_" + op.String())
	}
	//
	return p
}

// Included implementation for the air.Chip interface.
func (p *MemoryInstrsChip) Included(r *record.ExecutionRecord) bool {
	return len(r.MemInstrEvents) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *MemoryInstrsChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(r.MemInstrEvents))
}

// GenerateTrace implementation for the air.Chip interface.
func (p *MemoryInstrsChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), r.MemInstrEvents, p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *MemoryInstrsChip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), r.MemInstrEvents, p.populate, output)
}

func (p *MemoryInstrsChip) populate(row air.RowWriter, ev *events.MemInstrEvent, d *deps) {
	var (
		c      = &p.cols
		addr   = ev.Addr()
		offset = addr % 4
		value  = ev.Mem.Value
		sel    = uint8(value >> (8 * offset))
	)
	//
	for i, op := range memoryOpcodes {
		if op == ev.Opcode {
			row.Set(c.flags[i], 1)
		}
	}
	//
	row.Set(c.shard, uint64(ev.Shard))
	row.Set(c.clk, uint64(ev.Clk))
	row.Set(c.pc, uint64(ev.Pc))
	row.SetWord(c.a, ev.A)
	row.SetWord(c.b, ev.B)
	row.SetWord(c.c, ev.C)
	row.SetWord(c.addr, addr)
	row.Set(c.offset[offset], 1)
	row.Set(c.addr0Hi, uint64(addr&0xff)>>2)
	d.u8(uint8(addr&0xff)>>2, 0)
	d.aluOp(events.UnusedPc, program.ADD, addr, ev.B, ev.C)
	c.mem.populate(row, ev.Mem, d)
	row.Set(c.selByte, uint64(sel))
	//
	switch ev.Opcode {
	case program.LB:
		row.Set(c.signByte, uint64(sel))
		row.Set(c.msb, uint64(d.msb(sel)))
	case program.LH:
		hi := uint8(ev.A >> 8)
		row.Set(c.signByte, uint64(hi))
		row.Set(c.msb, uint64(d.msb(hi)))
	case program.LW, program.LBU, program.LHU, program.SB, program.SH, program.SW:
		// no sign
	default:
		panic(fmt.Sprintf("invalid memory opcode %s", ev.Opcode))
	}
}

// Eval implementation for the air.Chip interface.
func (p *MemoryInstrsChip) Eval(b *air.Builder) {
	var (
		c      = &p.cols
		a      = b.Word(c.a)
		bw     = b.Word(c.b)
		cw     = b.Word(c.c)
		addr   = b.Word(c.addr)
		offset = b.Word(c.offset)
		value  = b.Word(c.mem.value)
		prev   = b.Word(c.mem.prev)
		flags  = b.Cols(c.flags[:]...)
		isReal = air.Sum(flags...)
		// individual flags
		isLb, isLh, isLw, isLbu, isLhu = flags[0], flags[1], flags[2], flags[3], flags[4]
		isSb, isSh, isSw               = flags[5], flags[6], flags[7]
		isLoad                         = air.Sum(flags[:5]...)
		fill                           = air.Scale(b.Main(c.msb), 0xff)
		zero                           = air.Const(0)
	)
	//
	flagsOf(b, "mem", flags, isReal)
	// Effective address and its alignment
	sendAlu(b, isReal, air.Const(uint64(program.ADD)), addr, bw, cw)
	air.ApplyOneHotGadget("mem:offset", offset, isReal, b)
	//
	offsetOf := opcodeOf(offset, 0, 1, 2, 3)
	b.AssertEqual("mem:addr0", addr[0], air.Scale(b.Main(c.addr0Hi), 4).Add(offsetOf))
	sendU8(b, isReal, b.Main(c.addr0Hi), zero)
	b.AssertWhen("mem:align_word", isLw.Add(isSw), air.Not(offset[0]))
	b.AssertWhen("mem:align_half", isLh.Add(isLhu).Add(isSh), offset[1].Add(offset[3]))
	// Access to the aligned word
	aligned := wordOf(addr).Sub(offsetOf)
	c.mem.eval(b, isReal, b.Main(c.shard), b.Main(c.clk), aligned)
	// Selected byte and sign
	var terms []air.Expr
	//
	for i := range 4 {
		terms = append(terms, offset[i].Mul(value[i]))
	}
	//
	selByte := b.Main(c.selByte)
	signByte := b.Main(c.signByte)
	b.AssertEqual("mem:sel_byte", selByte, air.Sum(terms...))
	b.AssertWhen("mem:sign_lb", isLb, signByte.Sub(selByte))
	b.AssertWhen("mem:sign_lh", isLh, signByte.Sub(a[1]))
	sendMsb(b, isLb.Add(isLh), b.Main(c.msb), signByte)
	// Loads
	for i := range 4 {
		b.AssertWhen(fmt.Sprintf("mem:load_read_%d", i), isLoad, prev[i].Sub(value[i]))
		b.AssertWhen(fmt.Sprintf("mem:lw_%d", i), isLw, a[i].Sub(value[i]))
	}
	//
	b.AssertWhen("mem:lb_0", isLb.Add(isLbu), a[0].Sub(selByte))
	//
	for i := 1; i < 4; i++ {
		b.AssertWhen(fmt.Sprintf("mem:lb_%d", i), isLb, a[i].Sub(fill))
		b.AssertWhen(fmt.Sprintf("mem:lbu_%d", i), isLbu, a[i])
	}
	//
	for i := range 2 {
		half := offset[0].Mul(value[i]).Add(offset[2].Mul(value[i+2]))
		b.AssertWhen(fmt.Sprintf("mem:lh_%d", i), isLh.Add(isLhu), a[i].Sub(half))
		b.AssertWhen(fmt.Sprintf("mem:lh_%d", i+2), isLh, a[i+2].Sub(fill))
		b.AssertWhen(fmt.Sprintf("mem:lhu_%d", i+2), isLhu, a[i+2])
	}
	// Stores
	for i := range 4 {
		b.AssertWhen(fmt.Sprintf("mem:sw_%d", i), isSw, value[i].Sub(a[i]))
		sb := offset[i].Mul(a[0]).Add(air.Not(offset[i]).Mul(prev[i]))
		b.AssertWhen(fmt.Sprintf("mem:sb_%d", i), isSb, value[i].Sub(sb))
		//
		var sh air.Expr
		//
		if i < 2 {
			sh = offset[0].Mul(a[i]).Add(offset[2].Mul(prev[i]))
		} else {
			sh = offset[2].Mul(a[i-2]).Add(offset[0].Mul(prev[i]))
		}
		//
		b.AssertWhen(fmt.Sprintf("mem:sh_%d", i), isSh, value[i].Sub(sh))
	}
	//
	pc := b.Main(c.pc)
	opcode := opcodeOf(flags, opcodesOf(memoryOpcodes)...)
	//
	b.Receive(air.InstructionBus, air.Local, isReal, instructionValues(b.Main(c.shard), b.Main(c.clk), pc,
		pc.Add(air.Const(4)), opcode, a, bw, cw)...)
}

func opcodesOf(ops []program.Opcode) []uint64 {
	var values = make([]uint64, len(ops))
	//
	for i, op := range ops {
		values[i] = uint64(op)
	}
	//
	return values
}
