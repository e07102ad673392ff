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

type mulCols struct {
	a, b, c                          [4]uint
	product, carry                   [8]uint
	bMsb, cMsb, bSignExt, cSignExt   uint
	isMul, isMulh, isMulhu, isMulhsu uint
}

// MulChip proves MUL, MULH, MULHU and MULHSU by computing the full 64bit
// product of the (sign extended) operands, byte by byte with 16bit carries.
type MulChip struct {
	base
	cols mulCols
}

// NewMulChip constructs a new multiplication chip.
func NewMulChip() *MulChip {
	var (
		p = &MulChip{base: base{name: "Mul"}}
		l = &p.layout
		c = &p.cols
	)
	//
	c.a, c.b, c.c = l.Word("a"), l.Word("b"), l.Word("c")
	copy(c.product[:], l.Cols("product", 8))
	copy(c.carry[:], l.Cols("carry", 8))
	c.bMsb, c.cMsb = l.Col("b_msb"), l.Col("c_msb")
	c.bSignExt, c.cSignExt = l.Col("b_sign_extend"), l.Col("c_sign_extend")
	c.isMul, c.isMulh, c.isMulhu, c.isMulhsu = l.Col("is_mul"), l.Col("is_mulh"), l.Col("is_mulhu"), l.Col("is_mulhsu")
	//
	return p
}

// Included implementation for the air.Chip interface.
func (p *MulChip) Included(r *record.ExecutionRecord) bool {
	return len(r.MulEvents) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *MulChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(r.MulEvents))
}

// GenerateTrace implementation for the air.Chip interface.
func (p *MulChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), r.MulEvents, p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *MulChip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), r.MulEvents, p.populate, output)
}

func (p *MulChip) populate(row air.RowWriter, ev *events.AluEvent, d *deps) {
	var (
		c          = &p.cols
		bMsb       = d.msb(uint8(ev.B >> 24))
		cMsb       = d.msb(uint8(ev.C >> 24))
		bExt, cExt bool
	)
	//
	switch ev.Opcode {
	case program.MUL:
		row.Set(c.isMul, 1)
	case program.MULH:
		row.Set(c.isMulh, 1)
		bExt, cExt = bMsb == 1, cMsb == 1
	case program.MULHU:
		row.Set(c.isMulhu, 1)
	case program.MULHSU:
		row.Set(c.isMulhsu, 1)
		bExt = bMsb == 1
	default:
		panic(fmt.Sprintf("invalid multiplication opcode %s", ev.Opcode))
	}
	//
	row.SetWord(c.a, ev.A)
	row.SetWord(c.b, ev.B)
	row.SetWord(c.c, ev.C)
	row.Set(c.bMsb, uint64(bMsb))
	row.Set(c.cMsb, uint64(cMsb))
	row.SetBool(c.bSignExt, bExt)
	row.SetBool(c.cSignExt, cExt)
	//
	var (
		x     = extendBytes(ev.B, bExt)
		y     = extendBytes(ev.C, cExt)
		carry uint64
		prod  [8]uint8
	)
	//
	for k := range 8 {
		sum := carry
		//
		for i := 0; i <= k; i++ {
			sum += uint64(x[i]) * uint64(y[k-i])
		}
		//
		prod[k], carry = uint8(sum), sum>>8
		row.Set(c.product[k], uint64(prod[k]))
		row.Set(c.carry[k], carry)
		d.u16(uint16(carry))
	}
	//
	for k := 0; k < 8; k += 2 {
		d.u8(prod[k], prod[k+1])
	}
}

// extendBytes returns the bytes of a word extended to 64 bits, either with
// zeros or with ones.
func extendBytes(w uint32, ones bool) [8]uint8 {
	var bytes [8]uint8
	//
	for i := range 4 {
		bytes[i] = uint8(w >> (8 * i))
		//
		if ones {
			bytes[i+4] = 0xff
		}
	}
	//
	return bytes
}

// Eval implementation for the air.Chip interface.
func (p *MulChip) Eval(b *air.Builder) {
	var (
		c       = &p.cols
		a       = b.Word(c.a)
		bw      = b.Word(c.b)
		cw      = b.Word(c.c)
		product = b.Cols(c.product[:]...)
		carry   = b.Cols(c.carry[:]...)
		bExt    = b.Main(c.bSignExt)
		cExt    = b.Main(c.cSignExt)
		isMul   = b.Main(c.isMul)
		isMulh  = b.Main(c.isMulh)
		flags   = b.Cols(c.isMul, c.isMulh, c.isMulhu, c.isMulhsu)
		isReal  = air.Sum(flags...)
		isUpper = air.Sum(flags[1:]...)
	)
	//
	flagsOf(b, "mul", flags, isReal)
	// Sign extension
	sendMsb(b, isReal, b.Main(c.bMsb), bw[3])
	sendMsb(b, isReal, b.Main(c.cMsb), cw[3])
	b.AssertEqual("mul:b_sign_extend", bExt, b.Main(c.bMsb).Mul(isMulh.Add(b.Main(c.isMulhsu))))
	b.AssertEqual("mul:c_sign_extend", cExt, b.Main(c.cMsb).Mul(isMulh))
	//
	operand := func(w []air.Expr, ext air.Expr, i int) air.Expr {
		if i < 4 {
			return w[i]
		}
		//
		return air.Scale(ext, 0xff)
	}
	// Product
	for k := range 8 {
		var terms []air.Expr
		//
		for i := 0; i <= k; i++ {
			terms = append(terms, operand(bw, bExt, i).Mul(operand(cw, cExt, k-i)))
		}
		//
		if k > 0 {
			terms = append(terms, carry[k-1])
		}
		//
		b.AssertEqual(fmt.Sprintf("mul:product_%d", k), air.Sum(terms...),
			product[k].Add(air.Scale(carry[k], 256)))
		sendU16(b, isReal, carry[k])
	}
	//
	for k := 0; k < 8; k += 2 {
		sendU8(b, isReal, product[k], product[k+1])
	}
	// Result
	for i := range 4 {
		b.AssertWhen(fmt.Sprintf("mul:lower_%d", i), isMul, a[i].Sub(product[i]))
		b.AssertWhen(fmt.Sprintf("mul:upper_%d", i), isUpper, a[i].Sub(product[i+4]))
	}
	//
	receiveAlu(b, isReal, opcodeOf(flags, uint64(program.MUL), uint64(program.MULH), uint64(program.MULHU),
		uint64(program.MULHSU)), a, bw, cw)
}
