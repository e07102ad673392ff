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
	"github.com/consensys/go-zkvm/pkg/util/field/babybear"
	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/executor"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
)

type divRemCols struct {
	a, b, c, quotient, remainder     [4]uint
	lower, upper, absRem, absC       [4]uint
	cSumInv, rSumInv, ltuMult, carry uint
	bNeg, rNeg, cNeg, upperNeg       uint
	isOverflow                       uint
	isDiv, isDivu, isRem, isRemu     uint
}

// DivRemChip proves DIV, DIVU, REM and REMU.  The quotient q and remainder r
// are witnessed, such that b = q*c + r holds over 64 bits: the product is
// computed by the multiplication chip (both halves), the addition of r by the
// addition chip and its carry by the comparison chip.  The remainder takes the
// sign of b and is bounded by |c|.  Division by zero yields q = 0xFFFFFFFF and
// r = b, whilst the signed overflow -2^31 / -1 yields q = -2^31 and r = 0.
type DivRemChip struct {
	base
	cols divRemCols
}

// NewDivRemChip constructs a new division chip.
func NewDivRemChip() *DivRemChip {
	var (
		p = &DivRemChip{base: base{name: "DivRem"}}
		l = &p.layout
		c = &p.cols
	)
	//
	c.a, c.b, c.c = l.Word("a"), l.Word("b"), l.Word("c")
	c.quotient, c.remainder = l.Word("quotient"), l.Word("remainder")
	c.lower, c.upper = l.Word("qc_lower"), l.Word("qc_upper")
	c.absRem, c.absC = l.Word("abs_remainder"), l.Word("abs_c")
	c.cSumInv, c.rSumInv = l.Col("c_sum_inv"), l.Col("r_sum_inv")
	c.ltuMult, c.carry = l.Col("ltu_mult"), l.Col("carry")
	c.bNeg, c.rNeg, c.cNeg, c.upperNeg = l.Col("b_neg"), l.Col("r_neg"), l.Col("c_neg"), l.Col("upper_neg")
	c.isOverflow = l.Col("is_overflow")
	c.isDiv, c.isDivu, c.isRem, c.isRemu = l.Col("is_div"), l.Col("is_divu"), l.Col("is_rem"), l.Col("is_remu")
	//
	return p
}

// Included implementation for the air.Chip interface.
func (p *DivRemChip) Included(r *record.ExecutionRecord) bool {
	return len(r.DivRemEvents) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *DivRemChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(r.DivRemEvents))
}

// GenerateTrace implementation for the air.Chip interface.
func (p *DivRemChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), r.DivRemEvents, p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *DivRemChip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), r.DivRemEvents, p.populate, output)
}

func (p *DivRemChip) populate(row air.RowWriter, ev *events.AluEvent, d *deps) {
	var (
		c      = &p.cols
		signed bool
	)
	//
	switch ev.Opcode {
	case program.DIV:
		row.Set(c.isDiv, 1)
		signed = true
	case program.DIVU:
		row.Set(c.isDivu, 1)
	case program.REM:
		row.Set(c.isRem, 1)
		signed = true
	case program.REMU:
		row.Set(c.isRemu, 1)
	default:
		panic(fmt.Sprintf("invalid division opcode %s", ev.Opcode))
	}
	//
	var (
		q, r, upper      uint32
		bNeg, rNeg, cNeg uint8
	)
	//
	if signed {
		q, r = executor.Alu(program.DIV, ev.B, ev.C), executor.Alu(program.REM, ev.B, ev.C)
		upper = executor.Alu(program.MULH, q, ev.C)
		bNeg, rNeg, cNeg = d.msb(uint8(ev.B>>24)), d.msb(uint8(r>>24)), d.msb(uint8(ev.C>>24))
	} else {
		q, r = executor.Alu(program.DIVU, ev.B, ev.C), executor.Alu(program.REMU, ev.B, ev.C)
		upper = executor.Alu(program.MULHU, q, ev.C)
	}
	//
	var (
		lower      = q * ev.C
		carry      = ev.B < lower
		overflow   = signed && ev.B == 0x80000000 && ev.C == 0xFFFFFFFF
		absR, absC = r, ev.C
	)
	//
	if rNeg == 1 {
		absR = -r
		d.aluOp(events.UnusedPc, program.ADD, 0, r, absR)
	}
	//
	if cNeg == 1 {
		absC = -ev.C
		d.aluOp(events.UnusedPc, program.ADD, 0, ev.C, absC)
	}
	//
	row.SetWord(c.a, ev.A)
	row.SetWord(c.b, ev.B)
	row.SetWord(c.c, ev.C)
	row.SetWord(c.quotient, q)
	row.SetWord(c.remainder, r)
	row.SetWord(c.lower, lower)
	row.SetWord(c.upper, upper)
	row.SetWord(c.absRem, absR)
	row.SetWord(c.absC, absC)
	row.Set(c.bNeg, uint64(bNeg))
	row.Set(c.rNeg, uint64(rNeg))
	row.Set(c.cNeg, uint64(cNeg))
	row.SetBool(c.carry, carry)
	row.SetBool(c.isOverflow, overflow)
	// The upper word of q*c is the sign extension of b less that of r, less the
	// carry out of the lower word.
	row.SetBool(c.upperNeg, !overflow && int(rNeg)-int(bNeg)-boolToInt(carry) < 0)
	row.SetElement(c.cSumInv, air.PseudoInverse(babybear.New(byteSum(ev.C))))
	row.SetElement(c.rSumInv, air.PseudoInverse(babybear.New(byteSum(r))))
	//
	d.word(q)
	d.word(r)
	d.aluOp(events.UnusedPc, program.MUL, lower, q, ev.C)
	//
	if signed {
		d.aluOp(events.UnusedPc, program.MULH, upper, q, ev.C)
	} else {
		d.aluOp(events.UnusedPc, program.MULHU, upper, q, ev.C)
	}
	//
	d.aluOp(events.UnusedPc, program.ADD, ev.B, lower, r)
	d.aluOp(events.UnusedPc, program.SLTU, uint32(boolToInt(carry)), ev.B, lower)
	//
	if ev.C != 0 {
		row.Set(c.ltuMult, 1)
		d.aluOp(events.UnusedPc, program.SLTU, 1, absR, absC)
	}
}

// Eval implementation for the air.Chip interface.
func (p *DivRemChip) Eval(b *air.Builder) {
	var (
		c        = &p.cols
		a        = b.Word(c.a)
		bw       = b.Word(c.b)
		cw       = b.Word(c.c)
		q        = b.Word(c.quotient)
		r        = b.Word(c.remainder)
		lower    = b.Word(c.lower)
		upper    = b.Word(c.upper)
		absR     = b.Word(c.absRem)
		absC     = b.Word(c.absC)
		carry    = b.Main(c.carry)
		bNeg     = b.Main(c.bNeg)
		rNeg     = b.Main(c.rNeg)
		cNeg     = b.Main(c.cNeg)
		upperNeg = b.Main(c.upperNeg)
		overflow = b.Main(c.isOverflow)
		flags    = b.Cols(c.isDiv, c.isDivu, c.isRem, c.isRemu)
		isReal   = air.Sum(flags...)
		isQuot   = flags[0].Add(flags[1])
		isRem    = flags[2].Add(flags[3])
		isSigned = flags[0].Add(flags[2])
		isUnsig  = flags[1].Add(flags[3])
	)
	//
	flagsOf(b, "divrem", flags, isReal)
	sendWordU8(b, isReal, q)
	sendWordU8(b, isReal, r)
	// Signs, which are zero for unsigned operations.
	for _, f := range []struct {
		name   string
		neg, x air.Expr
	}{{"b", bNeg, bw[3]}, {"r", rNeg, r[3]}, {"c", cNeg, cw[3]}} {
		air.ApplyBinaryGadget("divrem:"+f.name+"_neg", f.neg, b)
		b.AssertZero("divrem:"+f.name+"_unsigned", isUnsig.Mul(f.neg))
		sendMsb(b, isSigned, f.neg, f.x)
	}
	// q * c over 64 bits
	sendAlu(b, isReal, air.Const(uint64(program.MUL)), lower, q, cw)
	sendAlu(b, isReal, air.Sum(air.Scale(isSigned, uint64(program.MULH)), air.Scale(isUnsig, uint64(program.MULHU))),
		upper, q, cw)
	// b = lower + r, with carry
	sendAlu(b, isReal, air.Const(uint64(program.ADD)), bw, lower, r)
	air.ApplyBinaryGadget("divrem:carry", carry, b)
	sendAlu(b, isReal, air.Const(uint64(program.SLTU)), []air.Expr{carry, air.Const(0), air.Const(0), air.Const(0)},
		bw, lower)
	// upper + sext(r) + carry = sext(b), hence upper = r_neg - b_neg - carry
	// (modulo 2^32).  This does not hold for the signed overflow, whose
	// product does not fit.
	var (
		exact = isReal.Mul(air.Not(overflow))
		v     = rNeg.Sub(bNeg).Sub(carry)
	)
	//
	air.ApplyBinaryGadget("divrem:upper_neg", upperNeg, b)
	b.AssertWhen("divrem:upper_0", exact, upper[0].Sub(v).Sub(air.Scale(upperNeg, 256)))
	//
	for i := 1; i < 4; i++ {
		b.AssertWhen(fmt.Sprintf("divrem:upper_%d", i), exact, upper[i].Sub(air.Scale(upperNeg, 0xff)))
	}
	// Signed overflow
	air.ApplyBinaryGadget("divrem:overflow", overflow, b)
	b.AssertZero("divrem:overflow_signed", overflow.Mul(air.Not(isSigned)))
	//
	for i, w := range constWord(0x80000000) {
		b.AssertWhen(fmt.Sprintf("divrem:overflow_b_%d", i), overflow, bw[i].Sub(w))
		b.AssertWhen(fmt.Sprintf("divrem:overflow_c_%d", i), overflow, cw[i].Sub(air.Const(0xff)))
	}
	// Division by zero
	cZero := air.ApplyPseudoInverseGadget("divrem:c_zero", air.Sum(cw...), b.Main(c.cSumInv), b)
	//
	for i := range 4 {
		b.AssertWhen(fmt.Sprintf("divrem:div_zero_q_%d", i), isReal.Mul(cZero), q[i].Sub(air.Const(0xff)))
		b.AssertWhen(fmt.Sprintf("divrem:div_zero_r_%d", i), isReal.Mul(cZero), r[i].Sub(bw[i]))
	}
	// The remainder takes the sign of b, unless zero.
	rZero := air.ApplyPseudoInverseGadget("divrem:r_zero", air.Sum(r...), b.Main(c.rSumInv), b)
	b.AssertWhen("divrem:r_sign", isReal.Mul(air.Not(rZero)), rNeg.Sub(bNeg))
	// |r| < |c|, where negative values are negated by addition to zero.
	sendAlu(b, rNeg, air.Const(uint64(program.ADD)), constWord(0), r, absR)
	sendAlu(b, cNeg, air.Const(uint64(program.ADD)), constWord(0), cw, absC)
	//
	for i := range 4 {
		b.AssertWhen(fmt.Sprintf("divrem:abs_r_%d", i), isReal.Mul(air.Not(rNeg)), absR[i].Sub(r[i]))
		b.AssertWhen(fmt.Sprintf("divrem:abs_c_%d", i), isReal.Mul(air.Not(cNeg)), absC[i].Sub(cw[i]))
	}
	//
	b.AssertEqual("divrem:ltu_mult", b.Main(c.ltuMult), isReal.Mul(air.Not(cZero)))
	sendAlu(b, b.Main(c.ltuMult), air.Const(uint64(program.SLTU)), constWord(1), absR, absC)
	// Result
	for i := range 4 {
		b.AssertWhen(fmt.Sprintf("divrem:quotient_%d", i), isQuot, a[i].Sub(q[i]))
		b.AssertWhen(fmt.Sprintf("divrem:remainder_%d", i), isRem, a[i].Sub(r[i]))
	}
	//
	receiveAlu(b, isReal, opcodeOf(flags, uint64(program.DIV), uint64(program.DIVU), uint64(program.REM),
		uint64(program.REMU)), a, bw, cw)
}

func byteSum(w uint32) uint32 {
	return (w & 0xff) + (w>>8)&0xff + (w>>16)&0xff + w>>24
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	//
	return 0
}
