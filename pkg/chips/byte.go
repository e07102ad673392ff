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
	"sync"

	"github.com/consensys/go-zkvm/pkg/air"
	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
)

// byteCols are the preprocessed columns of the byte chip.
type byteCols struct {
	b, c                                       uint
	and, or, xor, sll, shr, shrCarry, ltu, msb uint
}

// ByteChip is a fixed table covering every pair of bytes, against which all
// byte operations and 16bit range checks are looked up.  Its main trace
// holds the number of lookups of each operation on each row.
type ByteChip struct {
	base
	prep air.Layout
	cols byteCols
	// multiplicity of each byte opcode
	mult [events.NumByteOps]uint
}

// NewByteChip constructs a new byte chip.
func NewByteChip() *ByteChip {
	var (
		p = &ByteChip{base: base{name: "Byte"}}
		l = &p.prep
	)
	//
	p.cols.b, p.cols.c = l.Col("b"), l.Col("c")
	p.cols.and, p.cols.or, p.cols.xor, p.cols.sll = l.Col("and"), l.Col("or"), l.Col("xor"), l.Col("sll")
	p.cols.shr, p.cols.shrCarry = l.Col("shr"), l.Col("shr_carry")
	p.cols.ltu, p.cols.msb = l.Col("ltu"), l.Col("msb")
	//
	for op := range events.NumByteOps {
		p.mult[op] = p.layout.Col("mult_" + op.String())
	}
	//
	return p
}

// PreprocessedWidth implementation for the air.Chip interface.
func (p *ByteChip) PreprocessedWidth() uint {
	return p.prep.Width()
}

// GeneratePreprocessedTrace implementation for the air.Chip interface.  The
// table does not depend on the program.
func (p *ByteChip) GeneratePreprocessedTrace(*program.Program) *air.Matrix {
	return p.table()
}

func (p *ByteChip) table() *air.Matrix {
	byteTableOnce.Do(func() {
		var (
			table = events.GetByteTable()
			m     = air.NewMatrix(p.prep.Width(), events.ByteTableRows)
			c     = &p.cols
		)
		//
		for i := range uint(events.ByteTableRows) {
			row := air.RowWriter(m.Row(i))
			row.Set(c.b, uint64(i>>8))
			row.Set(c.c, uint64(i&0xff))
			row.Set(c.and, uint64(table[events.ByteAnd][i].A1))
			row.Set(c.or, uint64(table[events.ByteOr][i].A1))
			row.Set(c.xor, uint64(table[events.ByteXor][i].A1))
			row.Set(c.sll, uint64(table[events.ByteSll][i].A1))
			row.Set(c.shr, uint64(table[events.ByteShrCarry][i].A1))
			row.Set(c.shrCarry, uint64(table[events.ByteShrCarry][i].A2))
			row.Set(c.ltu, uint64(table[events.ByteLtu][i].A1))
			row.Set(c.msb, uint64(table[events.ByteMsb][i].A1))
		}
		//
		byteTable = m
	})
	//
	return byteTable
}

var (
	byteTableOnce sync.Once
	byteTable     *air.Matrix
)

// Included implementation for the air.Chip interface.  The byte table is
// included in every shard.
func (p *ByteChip) Included(*record.ExecutionRecord) bool {
	return true
}

// NumRows implementation for the air.Chip interface.
func (p *ByteChip) NumRows(*record.ExecutionRecord) uint {
	return events.ByteTableRows
}

// GenerateTrace implementation for the air.Chip interface.
func (p *ByteChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	var (
		m      = air.NewMatrix(p.Width(), events.ByteTableRows)
		counts = make([]uint64, events.ByteTableRows*int(events.NumByteOps))
	)
	//
	for _, ev := range r.ByteLookups {
		counts[ev.Row()*int(events.NumByteOps)+int(ev.Opcode)]++
	}
	//
	for i := range uint(events.ByteTableRows) {
		row := air.RowWriter(m.Row(i))
		//
		for op := range events.NumByteOps {
			if n := counts[int(i)*int(events.NumByteOps)+int(op)]; n != 0 {
				row.Set(p.mult[op], n)
			}
		}
	}
	//
	return m
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *ByteChip) GenerateDependencies(*record.ExecutionRecord, *record.ExecutionRecord) {
	// none
}

// Eval implementation for the air.Chip interface.
func (p *ByteChip) Eval(b *air.Builder) {
	var (
		c    = &p.cols
		x    = b.Preprocessed(c.b)
		y    = b.Preprocessed(c.c)
		zero = air.Const(0)
	)
	//
	receive := func(op events.ByteOpcode, a1, a2 air.Expr) {
		b.Receive(air.ByteBus, air.Local, b.Main(p.mult[op]), air.Const(uint64(op)), a1, a2, x, y)
	}
	//
	receive(events.ByteAnd, b.Preprocessed(c.and), zero)
	receive(events.ByteOr, b.Preprocessed(c.or), zero)
	receive(events.ByteXor, b.Preprocessed(c.xor), zero)
	receive(events.ByteSll, b.Preprocessed(c.sll), zero)
	receive(events.ByteU8Range, zero, zero)
	receive(events.ByteShrCarry, b.Preprocessed(c.shr), b.Preprocessed(c.shrCarry))
	receive(events.ByteLtu, b.Preprocessed(c.ltu), zero)
	receive(events.ByteMsb, b.Preprocessed(c.msb), zero)
	// 16bit range checks
	b.Receive(air.RangeBus, air.Local, b.Main(p.mult[events.ByteU16Range]), air.Scale(x, 256).Add(y))
}
