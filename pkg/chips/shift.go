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

// shiftBits holds the decomposition of the low byte of a shift amount into
// its five low bits, and the remaining high bits.
type shiftBits struct {
	bits    [5]uint
	c0Hi    uint
	bitMult uint
	// one-hot flags for a shift by 0, 1, 2 or 3 bytes
	byteShift [4]uint
}

func newShiftBits(l *air.Layout) shiftBits {
	var s shiftBits
	//
	copy(s.bits[:], l.Cols("shift_bit", 5))
	s.c0Hi = l.Col("c0_hi")
	s.bitMult = l.Col("bit_mult")
	copy(s.byteShift[:], l.Cols("byte_shift", 4))
	//
	return s
}

func (p *shiftBits) populate(row air.RowWriter, c uint32, d *deps) {
	var shift = c & 31
	//
	for i := range 5 {
		row.Set(p.bits[i], uint64(shift>>i)&1)
	}
	//
	row.Set(p.c0Hi, uint64(c&0xff)>>5)
	d.u8(uint8(c&0xff)>>5, 0)
	row.Set(p.bitMult, 1<<(shift&7))
	row.Set(p.byteShift[shift>>3], 1)
}

// eval constrains the decomposition of c0, returning the (affine) bit shift
// amount in the range 0..7.
func (p *shiftBits) eval(b *air.Builder, handle string, isReal air.Expr, c0 air.Expr) air.Expr {
	var (
		bits  = b.Cols(p.bits[:]...)
		flags = b.Cols(p.byteShift[:]...)
	)
	//
	for i, bit := range bits {
		air.ApplyBinaryGadget(fmt.Sprintf("%s:bit_%d", handle, i), bit, b)
	}
	//
	b.AssertEqual(handle+":c0", c0, air.Word(bits, 1).Add(air.Scale(b.Main(p.c0Hi), 32)))
	sendU8(b, isReal, b.Main(p.c0Hi), air.Const(0))
	// 2^(bits 0..2)
	mult := air.Product(air.Const(1).Add(bits[0]), air.Const(1).Add(air.Scale(bits[1], 3)),
		air.Const(1).Add(air.Scale(bits[2], 15)))
	b.AssertWhen(handle+":bit_mult", isReal, b.Main(p.bitMult).Sub(mult))
	// Byte shift
	air.ApplyOneHotGadget(handle+":byte_shift", flags, isReal, b)
	b.AssertEqual(handle+":byte_shift_sum", air.Sum(flags...), isReal)
	b.AssertEqual(handle+":byte_shift_amount", opcodeOf(flags, 0, 1, 2, 3), bits[3].Add(air.Scale(bits[4], 2)))
	//
	return air.Word(bits[:3], 1)
}

type shiftLeftCols struct {
	a, b, c    [4]uint
	low, carry [4]uint
	shift      shiftBits
	isReal     uint
}

// ShiftLeftChip proves SLL.  Each byte of b is multiplied by 2^(shift mod 8),
// giving a low byte and a carry into the next byte, after which the bytes
// are shifted by (shift div 8) positions.
type ShiftLeftChip struct {
	base
	cols shiftLeftCols
}

// NewShiftLeftChip constructs a new left shift chip.
func NewShiftLeftChip() *ShiftLeftChip {
	var (
		p = &ShiftLeftChip{base: base{name: "ShiftLeft"}}
		l = &p.layout
		c = &p.cols
	)
	//
	c.a, c.b, c.c = l.Word("a"), l.Word("b"), l.Word("c")
	c.low, c.carry = l.Word("low"), l.Word("carry")
	c.shift = newShiftBits(l)
	c.isReal = l.Col("is_real")
	//
	return p
}

// Included implementation for the air.Chip interface.
func (p *ShiftLeftChip) Included(r *record.ExecutionRecord) bool {
	return len(r.ShiftLeftEvents) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *ShiftLeftChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(r.ShiftLeftEvents))
}

// GenerateTrace implementation for the air.Chip interface.
func (p *ShiftLeftChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), r.ShiftLeftEvents, p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *ShiftLeftChip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), r.ShiftLeftEvents, p.populate, output)
}

func (p *ShiftLeftChip) populate(row air.RowWriter, ev *events.AluEvent, d *deps) {
	var (
		c     = &p.cols
		shift = ev.C & 7
	)
	//
	if ev.Opcode != program.SLL {
		panic(fmt.Sprintf("invalid shift left opcode %s", ev.Opcode))
	}
	//
	row.SetWord(c.a, ev.A)
	row.SetWord(c.b, ev.B)
	row.SetWord(c.c, ev.C)
	c.shift.populate(row, ev.C, d)
	//
	for i := range 4 {
		v := ((ev.B >> (8 * i)) & 0xff) << shift
		row.Set(c.low[i], uint64(v&0xff))
		row.Set(c.carry[i], uint64(v>>8))
		d.u8(uint8(v), uint8(v>>8))
	}
	//
	row.Set(c.isReal, 1)
}

// Eval implementation for the air.Chip interface.
func (p *ShiftLeftChip) Eval(b *air.Builder) {
	var (
		c      = &p.cols
		a      = b.Word(c.a)
		bw     = b.Word(c.b)
		cw     = b.Word(c.c)
		low    = b.Word(c.low)
		carry  = b.Word(c.carry)
		flags  = b.Cols(c.shift.byteShift[:]...)
		isReal = b.Main(c.isReal)
	)
	//
	air.ApplyBinaryGadget("shl:is_real", isReal, b)
	c.shift.eval(b, "shl", isReal, cw[0])
	// Bit shift
	for i := range 4 {
		b.AssertEqual(fmt.Sprintf("shl:bit_shift_%d", i), bw[i].Mul(b.Main(c.shift.bitMult)),
			low[i].Add(air.Scale(carry[i], 256)))
		sendU8(b, isReal, low[i], carry[i])
	}
	// Byte shift
	for i := range 4 {
		var terms []air.Expr
		//
		for k := 0; k <= i; k++ {
			v := low[i-k]
			//
			if i-k > 0 {
				v = v.Add(carry[i-k-1])
			}
			//
			terms = append(terms, flags[k].Mul(v))
		}
		//
		b.AssertEqual(fmt.Sprintf("shl:result_%d", i), a[i], air.Sum(terms...))
	}
	//
	receiveAlu(b, isReal, air.Scale(isReal, uint64(program.SLL)), a, bw, cw)
}

type shiftRightCols struct {
	a, b, c      [4]uint
	shifted, shr [4]uint
	carry        [4]uint
	shift        shiftBits
	carryMult    uint
	bMsb, sign   uint
	isSrl, isSra uint
}

// ShiftRightChip proves SRL and SRA.  The bytes of b are first shifted by
// (shift div 8) positions, filling with the sign for SRA.  Each byte is then
// shifted by (shift mod 8) bits using the byte table, with the bits shifted
// out carried into the byte below.
type ShiftRightChip struct {
	base
	cols shiftRightCols
}

// NewShiftRightChip constructs a new right shift chip.
func NewShiftRightChip() *ShiftRightChip {
	var (
		p = &ShiftRightChip{base: base{name: "ShiftRight"}}
		l = &p.layout
		c = &p.cols
	)
	//
	c.a, c.b, c.c = l.Word("a"), l.Word("b"), l.Word("c")
	c.shifted, c.shr, c.carry = l.Word("byte_shifted"), l.Word("shr"), l.Word("shr_carry")
	c.shift = newShiftBits(l)
	c.carryMult = l.Col("carry_mult")
	c.bMsb, c.sign = l.Col("b_msb"), l.Col("sign")
	c.isSrl, c.isSra = l.Col("is_srl"), l.Col("is_sra")
	//
	return p
}

// Included implementation for the air.Chip interface.
func (p *ShiftRightChip) Included(r *record.ExecutionRecord) bool {
	return len(r.ShiftRightEvents) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *ShiftRightChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(r.ShiftRightEvents))
}

// GenerateTrace implementation for the air.Chip interface.
func (p *ShiftRightChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), r.ShiftRightEvents, p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *ShiftRightChip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), r.ShiftRightEvents, p.populate, output)
}

func (p *ShiftRightChip) populate(row air.RowWriter, ev *events.AluEvent, d *deps) {
	var (
		c       = &p.cols
		shift   = ev.C & 31
		bitOnly = uint8(shift & 7)
		msb     = d.msb(uint8(ev.B >> 24))
		fill    uint32
	)
	//
	switch ev.Opcode {
	case program.SRL:
		row.Set(c.isSrl, 1)
	case program.SRA:
		row.Set(c.isSra, 1)
		//
		if msb == 1 {
			row.Set(c.sign, 1)
			fill = 0xff
		}
	default:
		panic(fmt.Sprintf("invalid shift right opcode %s", ev.Opcode))
	}
	//
	row.SetWord(c.a, ev.A)
	row.SetWord(c.b, ev.B)
	row.SetWord(c.c, ev.C)
	row.Set(c.bMsb, uint64(msb))
	row.Set(c.carryMult, 1<<(8-bitOnly))
	c.shift.populate(row, ev.C, d)
	//
	for i := range 4 {
		var (
			j = i + int(shift>>3)
			v = fill
		)
		//
		if j < 4 {
			v = (ev.B >> (8 * j)) & 0xff
		}
		//
		row.Set(c.shifted[i], uint64(v))
		shr, carry := d.byteOp(events.ByteShrCarry, uint8(v), bitOnly)
		row.Set(c.shr[i], uint64(shr))
		row.Set(c.carry[i], uint64(carry))
	}
}

// Eval implementation for the air.Chip interface.
func (p *ShiftRightChip) Eval(b *air.Builder) {
	var (
		c         = &p.cols
		a         = b.Word(c.a)
		bw        = b.Word(c.b)
		cw        = b.Word(c.c)
		shifted   = b.Word(c.shifted)
		shr       = b.Word(c.shr)
		carry     = b.Word(c.carry)
		flags     = b.Cols(c.shift.byteShift[:]...)
		carryMult = b.Main(c.carryMult)
		sign      = b.Main(c.sign)
		isSrl     = b.Main(c.isSrl)
		isSra     = b.Main(c.isSra)
		opFlags   = []air.Expr{isSrl, isSra}
		isReal    = isSrl.Add(isSra)
		fill      = air.Scale(sign, 0xff)
	)
	//
	flagsOf(b, "shr", opFlags, isReal)
	bitShift := c.shift.eval(b, "shr", isReal, cw[0])
	// Sign
	sendMsb(b, isReal, b.Main(c.bMsb), bw[3])
	b.AssertEqual("shr:sign", sign, b.Main(c.bMsb).Mul(isSra))
	// Byte shift
	for i := range 4 {
		var terms []air.Expr
		//
		for k := range 4 {
			src := fill
			//
			if i+k < 4 {
				src = bw[i+k]
			}
			//
			terms = append(terms, flags[k].Mul(src))
		}
		//
		b.AssertEqual(fmt.Sprintf("shr:byte_shift_%d", i), shifted[i], air.Sum(terms...))
	}
	// Bit shift, where carry_mult = 2^(8 - bit shift)
	b.AssertWhen("shr:carry_mult", isReal, carryMult.Mul(b.Main(c.shift.bitMult)).Sub(air.Const(256)))
	//
	for i := range 4 {
		sendByte(b, isReal, events.ByteShrCarry, shr[i], carry[i], shifted[i], bitShift)
		//
		var in air.Expr
		//
		if i < 3 {
			in = carry[i+1].Mul(carryMult)
		} else {
			in = sign.Mul(air.Const(256).Sub(carryMult))
		}
		//
		b.AssertEqual(fmt.Sprintf("shr:result_%d", i), a[i], shr[i].Add(in))
	}
	//
	receiveAlu(b, isReal, opcodeOf(opFlags, uint64(program.SRL), uint64(program.SRA)), a, bw, cw)
}
