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
	"github.com/consensys/go-zkvm/pkg/air"
	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
)

// recordCols hold the state of an address following some access.
type recordCols struct {
	shard, timestamp uint
	value            [4]uint
}

func newRecordCols(l *air.Layout, name string) recordCols {
	return recordCols{l.Col(name + "_shard"), l.Col(name + "_timestamp"), l.Word(name + "_value")}
}

func (p *recordCols) values(b *air.Builder, addr air.Expr) []air.Expr {
	return append([]air.Expr{b.Main(p.shard), b.Main(p.timestamp), addr}, b.Word(p.value)...)
}

func (p *recordCols) populate(row air.RowWriter, r events.MemoryRecord) {
	row.Set(p.shard, uint64(r.Shard))
	row.Set(p.timestamp, uint64(r.Timestamp))
	row.SetWord(p.value, r.Value)
}

// ============================================================================
// Local memory
// ============================================================================

type memoryLocalCols struct {
	addr, isReal   uint
	initial, final recordCols
}

// MemoryLocalChip bridges the accesses made within a shard with those of
// other shards.  For each address accessed in the shard, the state before its
// first access is produced locally and consumed globally, whilst the state
// after its last access is consumed locally and produced globally.
type MemoryLocalChip struct {
	base
	cols memoryLocalCols
}

// NewMemoryLocalChip constructs a new local memory chip.
func NewMemoryLocalChip() *MemoryLocalChip {
	var (
		p = &MemoryLocalChip{base: base{name: "MemoryLocal"}}
		l = &p.layout
		c = &p.cols
	)
	//
	c.addr, c.isReal = l.Col("addr"), l.Col("is_real")
	c.initial, c.final = newRecordCols(l, "initial"), newRecordCols(l, "final")
	//
	return p
}

// Included implementation for the air.Chip interface.
func (p *MemoryLocalChip) Included(r *record.ExecutionRecord) bool {
	return len(r.MemoryLocalEvents) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *MemoryLocalChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(r.MemoryLocalEvents))
}

// GenerateTrace implementation for the air.Chip interface.
func (p *MemoryLocalChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), r.MemoryLocalEvents, p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *MemoryLocalChip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), r.MemoryLocalEvents, p.populate, output)
}

func (p *MemoryLocalChip) populate(row air.RowWriter, ev *events.MemoryLocalEvent, _ *deps) {
	var c = &p.cols
	//
	row.Set(c.addr, uint64(ev.Addr))
	row.Set(c.isReal, 1)
	c.initial.populate(row, ev.Initial)
	c.final.populate(row, ev.Final)
}

// Eval implementation for the air.Chip interface.
func (p *MemoryLocalChip) Eval(b *air.Builder) {
	var (
		c       = &p.cols
		addr    = b.Main(c.addr)
		isReal  = b.Main(c.isReal)
		initial = c.initial.values(b, addr)
		final   = c.final.values(b, addr)
	)
	//
	air.ApplyBinaryGadget("memory_local:is_real", isReal, b)
	b.Send(air.MemoryBus, air.Local, isReal, initial...)
	b.Receive(air.MemoryBus, air.Local, isReal, final...)
	b.Receive(air.MemoryBus, air.Global, isReal, initial...)
	b.Send(air.MemoryBus, air.Global, isReal, final...)
}

// ============================================================================
// Global memory
// ============================================================================

// Largest upper half of a valid address.
const maxAddrHi = uint16(program.MaxAddress>>16) - 1

type memoryGlobalCols struct {
	addr, isReal   uint
	addrLo, addrHi uint
	sameHi, diff   uint
	state          recordCols
}

// MemoryGlobalChip either initializes or finalizes memory, and is present only
// in the last shard.  Initialization produces the initial value of every
// address accessed, at shard 0 and timestamp 0.  Finalization consumes the
// state of every address following its last access.  Real rows come first,
// with strictly increasing addresses, so no address is initialized or
// finalized twice.
type MemoryGlobalChip struct {
	base
	cols     memoryGlobalCols
	finalize bool
}

// NewMemoryInitChip constructs the chip which initializes memory.
func NewMemoryInitChip() *MemoryGlobalChip {
	return newMemoryGlobalChip("MemoryInit", false)
}

// NewMemoryFinalizeChip constructs the chip which finalizes memory.
func NewMemoryFinalizeChip() *MemoryGlobalChip {
	return newMemoryGlobalChip("MemoryFinalize", true)
}

func newMemoryGlobalChip(name string, finalize bool) *MemoryGlobalChip {
	var (
		p = &MemoryGlobalChip{base: base{name: name}, finalize: finalize}
		l = &p.layout
		c = &p.cols
	)
	//
	c.addr, c.isReal = l.Col("addr"), l.Col("is_real")
	c.addrLo, c.addrHi = l.Col("addr_lo"), l.Col("addr_hi")
	c.sameHi, c.diff = l.Col("same_hi"), l.Col("diff")
	c.state = newRecordCols(l, "state")
	//
	return p
}

func (p *MemoryGlobalChip) eventsOf(r *record.ExecutionRecord) []events.MemoryInitializeFinalizeEvent {
	if p.finalize {
		return r.MemoryFinalizeEvents
	}
	//
	return r.MemoryInitEvents
}

// globalRow pairs an event with its successor, if any.
type globalRow struct {
	ev   *events.MemoryInitializeFinalizeEvent
	next *events.MemoryInitializeFinalizeEvent
}

func (p *MemoryGlobalChip) rows(r *record.ExecutionRecord) []globalRow {
	var (
		evs  = p.eventsOf(r)
		rows = make([]globalRow, len(evs))
	)
	//
	for i := range evs {
		rows[i].ev = &evs[i]
		//
		if i+1 < len(evs) {
			rows[i].next = &evs[i+1]
		}
	}
	//
	return rows
}

// Included implementation for the air.Chip interface.
func (p *MemoryGlobalChip) Included(r *record.ExecutionRecord) bool {
	return len(p.eventsOf(r)) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *MemoryGlobalChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(p.eventsOf(r)))
}

// GenerateTrace implementation for the air.Chip interface.
func (p *MemoryGlobalChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), p.rows(r), p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *MemoryGlobalChip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), p.rows(r), p.populate, output)
}

func (p *MemoryGlobalChip) populate(row air.RowWriter, r *globalRow, d *deps) {
	var (
		c      = &p.cols
		ev     = r.ev
		lo, hi = uint16(ev.Addr), uint16(ev.Addr >> 16)
		diff   uint16
	)
	//
	row.Set(c.addr, uint64(ev.Addr))
	row.Set(c.isReal, 1)
	row.Set(c.addrLo, uint64(lo))
	row.Set(c.addrHi, uint64(hi))
	c.state.populate(row, events.NewMemoryRecord(ev.Value, ev.Shard, ev.Timestamp))
	d.u16(lo)
	d.u16(hi)
	d.u16(maxAddrHi - hi)
	//
	if r.next != nil {
		nextLo, nextHi := uint16(r.next.Addr), uint16(r.next.Addr>>16)
		//
		if nextHi == hi {
			row.Set(c.sameHi, 1)
			diff = nextLo - lo - 1
		} else {
			diff = nextHi - hi - 1
		}
	}
	//
	row.Set(c.diff, uint64(diff))
	d.u16(diff)
}

// Eval implementation for the air.Chip interface.
func (p *MemoryGlobalChip) Eval(b *air.Builder) {
	var (
		c      = &p.cols
		isReal = b.Main(c.isReal)
		state  = c.state.values(b, b.Main(c.addr))
		lo     = b.Main(c.addrLo)
		hi     = b.Main(c.addrHi)
		sameHi = b.Main(c.sameHi)
		next   = b.IsTransition().Mul(b.Next(c.isReal))
		loStep = b.Next(c.addrLo).Sub(lo).Sub(air.Const(1))
		hiStep = b.Next(c.addrHi).Sub(hi).Sub(air.Const(1))
		step   = sameHi.Mul(loStep).Add(air.Not(sameHi).Mul(hiStep))
	)
	//
	air.ApplyBinaryGadget(p.name+":is_real", isReal, b)
	b.AssertZero(p.name+":padding", b.IsTransition().Mul(air.Not(isReal)).Mul(b.Next(c.isReal)))
	// addr = lo + 2^16*hi < MaxAddress
	b.AssertEqual(p.name+":addr", b.Main(c.addr), lo.Add(air.Scale(hi, 1<<16)))
	sendU16(b, isReal, lo)
	sendU16(b, isReal, hi)
	sendU16(b, isReal, air.Const(uint64(maxAddrHi)).Sub(hi))
	// addr < addr'
	air.ApplyBinaryGadget(p.name+":same_hi", sameHi, b)
	b.AssertWhen(p.name+":same_hi_eq", next.Mul(sameHi), b.Next(c.addrHi).Sub(hi))
	b.AssertWhen(p.name+":sorted", next, step.Sub(b.Main(c.diff)))
	sendU16(b, isReal, b.Main(c.diff))
	//
	if p.finalize {
		b.Receive(air.MemoryBus, air.Global, isReal, state...)
	} else {
		// Memory starts at shard 0, timestamp 0.
		b.AssertZero(p.name+":shard", b.Main(c.state.shard))
		b.AssertZero(p.name+":timestamp", b.Main(c.state.timestamp))
		b.Send(air.MemoryBus, air.Global, isReal, state...)
	}
}
