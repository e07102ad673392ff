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

type bitwiseCols struct {
	a, b, c             [4]uint
	isXor, isOr, isAnd uint
}

// BitwiseChip proves XOR, OR and AND by looking up each byte of the operands
// in the byte table.
type BitwiseChip struct {
	base
	cols bitwiseCols
}

// NewBitwiseChip constructs a new bitwise chip.
func NewBitwiseChip() *BitwiseChip {
	var (
		p = &BitwiseChip{base: base{name: "Bitwise"}}
		l = &p.layout
		c = &p.cols
	)
	//
	c.a, c.b, c.c = l.Word("a"), l.Word("b"), l.Word("c")
	c.isXor, c.isOr, c.isAnd = l.Col("is_xor"), l.Col("is_or"), l.Col("is_and")
	//
	return p
}

// Included implementation for the air.Chip interface.
func (p *BitwiseChip) Included(r *record.ExecutionRecord) bool {
	return len(r.BitwiseEvents) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *BitwiseChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(r.BitwiseEvents))
}

// GenerateTrace implementation for the air.Chip interface.
func (p *BitwiseChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), r.BitwiseEvents, p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *BitwiseChip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), r.BitwiseEvents, p.populate, output)
}

func (p *BitwiseChip) populate(row air.RowWriter, ev *events.AluEvent, d *deps) {
	var (
		c  = &p.cols
		op events.ByteOpcode
	)
	//
	switch ev.Opcode {
	case program.XOR:
		row.Set(c.isXor, 1)
		op = events.ByteXor
	case program.OR:
		row.Set(c.isOr, 1)
		op = events.ByteOr
	case program.AND:
		row.Set(c.isAnd, 1)
		op = events.ByteAnd
	default:
		panic(fmt.Sprintf("invalid bitwise opcode %s", ev.Opcode))
	}
	//
	row.SetWord(c.a, ev.A)
	row.SetWord(c.b, ev.B)
	row.SetWord(c.c, ev.C)
	//
	for i := range 4 {
		d.byteOp(op, uint8(ev.B>>(8*i)), uint8(ev.C>>(8*i)))
	}
}

// Eval implementation for the air.Chip interface.
func (p *BitwiseChip) Eval(b *air.Builder) {
	var (
		c      = &p.cols
		a      = b.Word(c.a)
		bw     = b.Word(c.b)
		cw     = b.Word(c.c)
		flags  = b.Cols(c.isXor, c.isOr, c.isAnd)
		isReal = air.Sum(flags...)
		byteOp = opcodeOf(flags, uint64(events.ByteXor), uint64(events.ByteOr), uint64(events.ByteAnd))
	)
	//
	flagsOf(b, "bitwise", flags, isReal)
	//
	for i := range 4 {
		b.Send(air.ByteBus, air.Local, isReal, byteOp, a[i], air.Const(0), bw[i], cw[i])
	}
	//
	receiveAlu(b, isReal, opcodeOf(flags, uint64(program.XOR), uint64(program.OR), uint64(program.AND)), a, bw, cw)
}
