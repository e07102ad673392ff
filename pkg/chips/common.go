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

// base provides the parts of a chip common to all chips without a
// preprocessed trace.
type base struct {
	name   string
	layout air.Layout
}

// Name implementation for the air.Chip interface.
func (p *base) Name() string {
	return p.name
}

// Width implementation for the air.Chip interface.
func (p *base) Width() uint {
	return p.layout.Width()
}

// PreprocessedWidth implementation for the air.Chip interface.
func (p *base) PreprocessedWidth() uint {
	return 0
}

// GeneratePreprocessedTrace implementation for the air.Chip interface.
func (p *base) GeneratePreprocessedTrace(*program.Program) *air.Matrix {
	return nil
}

// Columns returns the names of the main trace columns.
func (p *base) Columns() []string {
	return p.layout.Names()
}

// deps collects the dependencies of rows as they are populated.  Populating a
// row and recording its dependencies are one and the same operation, which
// keeps the generated traces in agreement with the dependency pass.
type deps struct {
	bytes []events.ByteLookupEvent
	alu   []events.AluEvent
}

// Perform a byte operation, recording its lookup.
func (p *deps) byteOp(op events.ByteOpcode, b, c uint8) (uint16, uint8) {
	ev := events.NewByteLookup(op, b, c)
	p.bytes = append(p.bytes, ev)
	//
	return ev.A1, ev.A2
}

// Range check a pair of bytes.
func (p *deps) u8(b, c uint8) {
	p.byteOp(events.ByteU8Range, b, c)
}

// Range check the bytes of a word.
func (p *deps) word(w uint32) {
	p.u8(uint8(w), uint8(w>>8))
	p.u8(uint8(w>>16), uint8(w>>24))
}

// Range check a 16bit value.
func (p *deps) u16(v uint16) {
	p.bytes = append(p.bytes, events.U16RangeLookup(v))
}

// Extract the most significant bit of a byte.
func (p *deps) msb(b uint8) uint8 {
	a1, _ := p.byteOp(events.ByteMsb, b, 0)
	//
	return uint8(a1)
}

// Record an ALU operation which must be proven by an ALU chip.
func (p *deps) aluOp(pc uint32, op program.Opcode, a, b, c uint32) {
	p.alu = append(p.alu, events.NewAluEvent(pc, op, a, b, c, false))
}

// populator fills in a single row of a trace for a given event.
type populator[E any] func(row air.RowWriter, ev *E, d *deps)

// generate a trace with one row per event.
func generate[E any](width uint, evs []E, populate populator[E]) *air.Matrix {
	var (
		m = air.NewMatrix(width, uint(len(evs)))
		d deps
	)
	//
	for i := range evs {
		populate(air.RowWriter(m.Row(uint(i))), &evs[i], &d)
		// Discard dependencies
		d.bytes, d.alu = d.bytes[:0], d.alu[:0]
	}
	//
	return m
}

// collect the dependencies of one row per event into a given output record.
func collect[E any](width uint, evs []E, populate populator[E], output *record.ExecutionRecord) {
	var (
		row = make(air.RowWriter, width)
		d   deps
	)
	//
	for i := range evs {
		clear(row)
		populate(row, &evs[i], &d)
	}
	//
	output.AddByteLookup(d.bytes...)
	//
	for _, ev := range d.alu {
		output.AddAluEvent(ev)
	}
}

// ============================================================================
// Interaction helpers
// ============================================================================

func sendByte(b *air.Builder, mult air.Expr, op events.ByteOpcode, a1, a2, x, y air.Expr) {
	b.Send(air.ByteBus, air.Local, mult, air.Const(uint64(op)), a1, a2, x, y)
}

func sendU8(b *air.Builder, mult air.Expr, x, y air.Expr) {
	sendByte(b, mult, events.ByteU8Range, air.Const(0), air.Const(0), x, y)
}

func sendWordU8(b *air.Builder, mult air.Expr, w []air.Expr) {
	sendU8(b, mult, w[0], w[1])
	sendU8(b, mult, w[2], w[3])
}

func sendU16(b *air.Builder, mult air.Expr, x air.Expr) {
	b.Send(air.RangeBus, air.Local, mult, x)
}

func sendMsb(b *air.Builder, mult air.Expr, msb, x air.Expr) {
	sendByte(b, mult, events.ByteMsb, msb, air.Const(0), x, air.Const(0))
}

func aluValues(op air.Expr, a, x, y []air.Expr) []air.Expr {
	values := []air.Expr{op}
	values = append(values, a...)
	values = append(values, x...)
	//
	return append(values, y...)
}

func sendAlu(b *air.Builder, mult air.Expr, op air.Expr, a, x, y []air.Expr) {
	b.Send(air.AluBus, air.Local, mult, aluValues(op, a, x, y)...)
}

func receiveAlu(b *air.Builder, mult air.Expr, op air.Expr, a, x, y []air.Expr) {
	b.Receive(air.AluBus, air.Local, mult, aluValues(op, a, x, y)...)
}

func instructionValues(shard, clk, pc, nextPc, op air.Expr, a, x, y []air.Expr) []air.Expr {
	return append([]air.Expr{shard, clk, pc, nextPc}, aluValues(op, a, x, y)...)
}

// constWord returns the (constant) bytes of a word.
func constWord(w uint32) []air.Expr {
	return []air.Expr{air.Const(uint64(w & 0xff)), air.Const(uint64(w>>8) & 0xff),
		air.Const(uint64(w>>16) & 0xff), air.Const(uint64(w >> 24))}
}

// wordOf combines the bytes of a word into a single value.
func wordOf(w []air.Expr) air.Expr {
	return air.Word(w, 8)
}

// opcodeOf combines a set of flags with their opcodes, such that the result is
// the opcode of whichever flag is set.
func opcodeOf(flags []air.Expr, ops ...uint64) air.Expr {
	var terms = make([]air.Expr, len(flags))
	//
	for i, f := range flags {
		terms[i] = air.Scale(f, ops[i])
	}
	//
	return air.Sum(terms...)
}

// flagsOf constrains a set of flags to be boolean with their sum being the
// is_real column, which is then also boolean.
func flagsOf(b *air.Builder, handle string, flags []air.Expr, isReal air.Expr) {
	for i, f := range flags {
		air.ApplyBinaryGadget(flagName(handle, i), f, b)
	}
	//
	air.ApplyBinaryGadget(handle+":is_real", isReal, b)
	b.AssertEqual(handle+":flags", air.Sum(flags...), isReal)
}

func flagName(handle string, i int) string {
	return fmt.Sprintf("%s:flag_%d", handle, i)
}

// ============================================================================
// Memory access columns
// ============================================================================

// accessCols hold the previous (shard, timestamp) of an access, along with the
// previous and current values.  For reads, the previous value columns are the
// current value columns.  An access must happen strictly after the previous
// access: either in a later shard or, within the same shard, at a later
// timestamp.  The distance less one is split into a 16bit and an 8bit limb,
// which bounds it below 2^24.
type accessCols struct {
	name      string
	prevShard uint
	prevTs    uint
	prev      [4]uint
	value     [4]uint
	compareTs uint
	diffLo    uint
	diffHi    uint
}

func newReadCols(l *air.Layout, name string) accessCols {
	var c = accessCols{name: name}
	//
	c.prevShard = l.Col(name + "_prev_shard")
	c.prevTs = l.Col(name + "_prev_ts")
	c.value = l.Word(name)
	c.prev = c.value
	c.compareTs = l.Col(name + "_compare_ts")
	c.diffLo, c.diffHi = l.Col(name+"_diff_lo"), l.Col(name+"_diff_hi")
	//
	return c
}

func newWriteCols(l *air.Layout, name string) accessCols {
	c := newReadCols(l, name)
	c.prev = l.Word(name + "_prev")
	//
	return c
}

// eval declares an access to a given address at a given (shard, timestamp),
// which consumes the previous record and produces the current record.
func (p *accessCols) eval(b *air.Builder, mult air.Expr, shard, ts, addr air.Expr) {
	var (
		prevShard = b.Main(p.prevShard)
		prevTs    = b.Main(p.prevTs)
		compareTs = b.Main(p.compareTs)
		prev      = append([]air.Expr{prevShard, prevTs, addr}, b.Word(p.prev)...)
		cur       = append([]air.Expr{shard, ts, addr}, b.Word(p.value)...)
	)
	//
	b.Receive(air.MemoryBus, air.Local, mult, prev...)
	b.Send(air.MemoryBus, air.Local, mult, cur...)
	// (prev_shard, prev_ts) < (shard, ts)
	var (
		prevTime = compareTs.Mul(prevTs).Add(air.Not(compareTs).Mul(prevShard))
		curTime  = compareTs.Mul(ts).Add(air.Not(compareTs).Mul(shard))
		diff     = b.Main(p.diffLo).Add(air.Scale(b.Main(p.diffHi), 1<<16))
	)
	//
	air.ApplyBinaryGadget(p.name+":compare_ts", compareTs, b)
	b.AssertWhen(p.name+":same_shard", mult.Mul(compareTs), shard.Sub(prevShard))
	b.AssertWhen(p.name+":ordered", mult, curTime.Sub(prevTime).Sub(air.Const(1)).Sub(diff))
	sendU16(b, mult, b.Main(p.diffLo))
	sendU8(b, mult, b.Main(p.diffHi), air.Const(0))
}

func (p *accessCols) populate(row air.RowWriter, access events.MemoryAccess, d *deps) {
	row.Set(p.prevShard, uint64(access.PrevShard))
	row.Set(p.prevTs, uint64(access.PrevTimestamp))
	row.SetWord(p.prev, access.PrevValue)
	row.SetWord(p.value, access.Value)
	//
	if !access.Present() {
		return
	}
	//
	var (
		compareTs = access.PrevShard == access.Shard
		diff      = access.Shard - access.PrevShard - 1
	)
	//
	if compareTs {
		diff = access.Timestamp - access.PrevTimestamp - 1
	}
	//
	row.SetBool(p.compareTs, compareTs)
	row.Set(p.diffLo, uint64(diff&0xffff))
	row.Set(p.diffHi, uint64(diff>>16))
	d.u16(uint16(diff))
	d.u8(uint8(diff>>16), 0)
}
