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

type addSubCols struct {
	a, b, c, carry [4]uint
	isAdd, isSub   uint
}

// AddSubChip proves ADD and SUB, where a subtraction b - c = a is checked as
// the addition a + c = b.
type AddSubChip struct {
	base
	cols addSubCols
}

// NewAddSubChip constructs a new add/sub chip.
func NewAddSubChip() *AddSubChip {
	var (
		p = &AddSubChip{base: base{name: "AddSub"}}
		l = &p.layout
		c = &p.cols
	)
	//
	c.a, c.b, c.c, c.carry = l.Word("a"), l.Word("b"), l.Word("c"), l.Word("carry")
	c.isAdd, c.isSub = l.Col("is_add"), l.Col("is_sub")
	//
	return p
}

// Included implementation for the air.Chip interface.
func (p *AddSubChip) Included(r *record.ExecutionRecord) bool {
	return len(r.AddSubEvents) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *AddSubChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(r.AddSubEvents))
}

// GenerateTrace implementation for the air.Chip interface.
func (p *AddSubChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), r.AddSubEvents, p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *AddSubChip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), r.AddSubEvents, p.populate, output)
}

func (p *AddSubChip) populate(row air.RowWriter, ev *events.AluEvent, d *deps) {
	var (
		c    = &p.cols
		x, y = ev.B, ev.C
	)
	//
	switch ev.Opcode {
	case program.ADD:
		row.Set(c.isAdd, 1)
	case program.SUB:
		row.Set(c.isSub, 1)
		x = ev.A
	default:
		panic(fmt.Sprintf("invalid add/sub opcode %s", ev.Opcode))
	}
	//
	row.SetWord(c.a, ev.A)
	row.SetWord(c.b, ev.B)
	row.SetWord(c.c, ev.C)
	// Carries of x + y
	var carry uint32
	//
	for i := range 4 {
		sum := (x>>(8*i))&0xff + (y>>(8*i))&0xff + carry
		carry = sum >> 8
		row.Set(c.carry[i], uint64(carry))
	}
	//
	d.word(ev.A)
	d.word(ev.B)
	d.word(ev.C)
}

// Eval implementation for the air.Chip interface.
func (p *AddSubChip) Eval(b *air.Builder) {
	var (
		c      = &p.cols
		a      = b.Word(c.a)
		bw     = b.Word(c.b)
		cw     = b.Word(c.c)
		carry  = b.Word(c.carry)
		isAdd  = b.Main(c.isAdd)
		isSub  = b.Main(c.isSub)
		isReal = isAdd.Add(isSub)
	)
	//
	flagsOf(b, "add_sub", []air.Expr{isAdd, isSub}, isReal)
	//
	for i := range 4 {
		var cin air.Expr = air.Const(0)
		//
		if i > 0 {
			cin = carry[i-1]
		}
		//
		air.ApplyBinaryGadget(fmt.Sprintf("add_sub:carry_%d", i), carry[i], b)
		// out = x + y + cin - 256*cout
		out := func(x, y air.Expr) air.Expr {
			return x.Add(y).Add(cin).Sub(air.Scale(carry[i], 256))
		}
		//
		b.AssertWhen(fmt.Sprintf("add_sub:add_%d", i), isAdd, a[i].Sub(out(bw[i], cw[i])))
		b.AssertWhen(fmt.Sprintf("add_sub:sub_%d", i), isSub, bw[i].Sub(out(a[i], cw[i])))
	}
	//
	sendWordU8(b, isReal, a)
	sendWordU8(b, isReal, bw)
	sendWordU8(b, isReal, cw)
	receiveAlu(b, isReal, opcodeOf([]air.Expr{isAdd, isSub}, uint64(program.ADD), uint64(program.SUB)), a, bw, cw)
}
