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
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
)

type ltCols struct {
	a, b, c, diff [4]uint
	bSel, cSel    uint
	diffInv, ult  uint
	bMsb, cMsb    uint
	signsDiffer   uint
	isSlt, isSltu uint
}

// LtChip proves SLT and SLTU.  The comparison is decided by the most
// significant byte on which the operands differ (marked by a one-hot diff
// flag), which is compared using the byte table.  For signed comparisons
// where the signs differ, the result is the sign of b instead.
type LtChip struct {
	base
	cols ltCols
}

// NewLtChip constructs a new comparison chip.
func NewLtChip() *LtChip {
	var (
		p = &LtChip{base: base{name: "Lt"}}
		l = &p.layout
		c = &p.cols
	)
	//
	c.a, c.b, c.c, c.diff = l.Word("a"), l.Word("b"), l.Word("c"), l.Word("byte_diff")
	c.bSel, c.cSel, c.diffInv, c.ult = l.Col("b_sel"), l.Col("c_sel"), l.Col("diff_inv"), l.Col("ult")
	c.bMsb, c.cMsb, c.signsDiffer = l.Col("b_msb"), l.Col("c_msb"), l.Col("signs_differ")
	c.isSlt, c.isSltu = l.Col("is_slt"), l.Col("is_sltu")
	//
	return p
}

// Included implementation for the air.Chip interface.
func (p *LtChip) Included(r *record.ExecutionRecord) bool {
	return len(r.LtEvents) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *LtChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(r.LtEvents))
}

// GenerateTrace implementation for the air.Chip interface.
func (p *LtChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), r.LtEvents, p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *LtChip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), r.LtEvents, p.populate, output)
}

func (p *LtChip) populate(row air.RowWriter, ev *events.AluEvent, d *deps) {
	var c = &p.cols
	//
	switch ev.Opcode {
	case program.SLT:
		row.Set(c.isSlt, 1)
	case program.SLTU:
		row.Set(c.isSltu, 1)
	default:
		panic(fmt.Sprintf("invalid comparison opcode %s", ev.Opcode))
	}
	//
	row.SetWord(c.a, ev.A)
	row.SetWord(c.b, ev.B)
	row.SetWord(c.c, ev.C)
	// Most significant differing byte
	for i := 3; i >= 0; i-- {
		x, y := uint8(ev.B>>(8*i)), uint8(ev.C>>(8*i))
		//
		if x != y {
			row.Set(c.diff[i], 1)
			row.Set(c.bSel, uint64(x))
			row.Set(c.cSel, uint64(y))
			row.SetElement(c.diffInv, babybear.New(uint32(x)).Sub(babybear.New(uint32(y))).Inverse())
			ult, _ := d.byteOp(events.ByteLtu, x, y)
			row.Set(c.ult, uint64(ult))
			//
			break
		}
	}
	//
	bMsb := d.msb(uint8(ev.B >> 24))
	cMsb := d.msb(uint8(ev.C >> 24))
	row.Set(c.bMsb, uint64(bMsb))
	row.Set(c.cMsb, uint64(cMsb))
	row.SetBool(c.signsDiffer, bMsb != cMsb)
}

// Eval implementation for the air.Chip interface.
func (p *LtChip) Eval(b *air.Builder) {
	var (
		c      = &p.cols
		bw     = b.Word(c.b)
		cw     = b.Word(c.c)
		a      = b.Word(c.a)
		diff   = b.Word(c.diff)
		bSel   = b.Main(c.bSel)
		cSel   = b.Main(c.cSel)
		ult    = b.Main(c.ult)
		bMsb   = b.Main(c.bMsb)
		cMsb   = b.Main(c.cMsb)
		sd     = b.Main(c.signsDiffer)
		isSlt  = b.Main(c.isSlt)
		isSltu = b.Main(c.isSltu)
		flags  = []air.Expr{isSlt, isSltu}
		isReal = isSlt.Add(isSltu)
		// Set when the operands differ
		anyDiff = air.Sum(diff...)
	)
	//
	flagsOf(b, "lt", flags, isReal)
	//
	for i := range 4 {
		air.ApplyBinaryGadget(fmt.Sprintf("lt:diff_%d", i), diff[i], b)
	}
	//
	air.ApplyBinaryGadget("lt:any_diff", anyDiff, b)
	// Selected bytes
	var bTerms, cTerms []air.Expr
	//
	for i := range 4 {
		bTerms = append(bTerms, diff[i].Mul(bw[i]))
		cTerms = append(cTerms, diff[i].Mul(cw[i]))
	}
	//
	b.AssertEqual("lt:b_sel", bSel, air.Sum(bTerms...))
	b.AssertEqual("lt:c_sel", cSel, air.Sum(cTerms...))
	b.AssertEqual("lt:differ", bSel.Sub(cSel).Mul(b.Main(c.diffInv)), anyDiff)
	// All bytes above the selected byte are equal.
	for i := range 4 {
		above := air.Sum(diff[i:]...)
		b.AssertZero(fmt.Sprintf("lt:equal_%d", i), bw[i].Sub(cw[i]).Mul(air.Not(above)))
	}
	//
	b.AssertZero("lt:ult_equal", ult.Mul(air.Not(anyDiff)))
	sendByte(b, anyDiff, events.ByteLtu, ult, air.Const(0), bSel, cSel)
	// Signs
	sendMsb(b, isReal, bMsb, bw[3])
	sendMsb(b, isReal, cMsb, cw[3])
	b.AssertEqual("lt:signs_differ", sd, bMsb.Add(cMsb).Sub(air.Scale(bMsb.Mul(cMsb), 2)))
	// Result
	signed := sd.Mul(bMsb).Add(air.Not(sd).Mul(ult))
	b.AssertEqual("lt:result", a[0], isSltu.Mul(ult).Add(isSlt.Mul(signed)))
	//
	for i := 1; i < 4; i++ {
		b.AssertZero(fmt.Sprintf("lt:result_%d", i), a[i])
	}
	//
	receiveAlu(b, isReal, opcodeOf(flags, uint64(program.SLT), uint64(program.SLTU)), a, bw, cw)
}
