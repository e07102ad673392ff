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
package memory

import (
	"maps"
	"slices"

	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/fault"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
)

// IsValidAddress determines whether a given address is a valid (word aligned)
// data address.  Addresses below 32 are reserved for registers, and addresses
// must be representable as field elements.
func IsValidAddress(addr uint32) bool {
	return addr%4 == 0 && addr >= program.NumRegisters && addr < program.MaxAddress
}

// Memory is a word granular store keyed by address, where addresses 0..31
// identify the registers.  Every address holds the record of its most recent
// access, and every access must happen strictly after the previous access to
// the same address.  Addresses are created lazily on first access, taking their
// initial value (from the program image, a hint or zero) at shard 0 and
// timestamp 0.
type Memory struct {
	records map[uint32]events.MemoryRecord
	// initial values for addresses not yet touched.
	initial map[uint32]uint32
	// stack of open forks, each recording the original state of every address
	// modified since the fork began (nil when the address was untouched).
	forks []map[uint32]*events.MemoryRecord
}

// New constructs a memory whose initial values are given by the memory image
// of a given program.
func New(p *program.Program) *Memory {
	mem := &Memory{
		records: make(map[uint32]events.MemoryRecord),
		initial: make(map[uint32]uint32),
	}
	//
	if p != nil {
		for _, addr := range p.ImageAddresses() {
			mem.initial[addr], _ = p.Image(addr)
		}
	}
	//
	return mem
}

// Read reads the value at a given address, returning the read record.  The
// ordering invariant is enforced, with a violation reported as an error.
func (m *Memory) Read(addr, shard, timestamp uint32) (events.MemoryReadRecord, error) {
	prev := m.entry(addr)
	//
	if !prev.Precedes(shard, timestamp) {
		return events.MemoryReadRecord{}, m.violation(addr, prev, shard, timestamp)
	}
	//
	m.update(addr, events.NewMemoryRecord(prev.Value, shard, timestamp))
	//
	return events.MemoryReadRecord{Value: prev.Value, Shard: shard, Timestamp: timestamp,
		PrevShard: prev.Shard, PrevTimestamp: prev.Timestamp}, nil
}

// Write writes a value to a given address, returning the write record.  The
// ordering invariant is enforced, with a violation reported as an error.
func (m *Memory) Write(addr, value, shard, timestamp uint32) (events.MemoryWriteRecord, error) {
	prev := m.entry(addr)
	//
	if !prev.Precedes(shard, timestamp) {
		return events.MemoryWriteRecord{}, m.violation(addr, prev, shard, timestamp)
	}
	//
	m.update(addr, events.NewMemoryRecord(value, shard, timestamp))
	//
	return events.MemoryWriteRecord{Value: value, Shard: shard, Timestamp: timestamp,
		PrevValue: prev.Value, PrevShard: prev.Shard, PrevTimestamp: prev.Timestamp}, nil
}

// Peek returns the current value at a given address without accessing it.
func (m *Memory) Peek(addr uint32) uint32 {
	if r, ok := m.records[addr]; ok {
		return r.Value
	}
	//
	return m.initial[addr]
}

// Record returns the record of the most recent access to a given address, or
// false if the address has not been accessed.
func (m *Memory) Record(addr uint32) (events.MemoryRecord, bool) {
	r, ok := m.records[addr]
	return r, ok
}

// Touched determines whether a given address has been accessed.
func (m *Memory) Touched(addr uint32) bool {
	_, ok := m.records[addr]
	return ok
}

// Addresses returns every accessed address, in ascending order.
func (m *Memory) Addresses() []uint32 {
	return slices.Sorted(maps.Keys(m.records))
}

// Initial returns the initial value of a given address.
func (m *Memory) Initial(addr uint32) uint32 {
	return m.initial[addr]
}

// SetInitial sets the initial value of an address which has not yet been
// accessed.  This is used to supply prover hints directly into memory.
func (m *Memory) SetInitial(addr, value uint32) error {
	if m.Touched(addr) {
		return fault.NewConsistencyViolation(addr, "cannot initialise address already accessed")
	}
	//
	m.initial[addr] = value
	//
	return nil
}

// Fork begins tracking modifications so they can later be undone by Join.
// Forks can be nested.
func (m *Memory) Fork() {
	m.forks = append(m.forks, make(map[uint32]*events.MemoryRecord))
}

// Join undoes all modifications made since the most recent Fork.
func (m *Memory) Join() {
	n := len(m.forks) - 1
	if n < 0 {
		panic("no fork to join")
	}
	//
	for addr, orig := range m.forks[n] {
		if orig == nil {
			delete(m.records, addr)
		} else {
			m.records[addr] = *orig
		}
	}
	//
	m.forks = m.forks[:n]
}

// Forks returns the number of currently open forks.
func (m *Memory) Forks() int {
	return len(m.forks)
}

// Snapshot captures the current contents of memory.  Snapshots cannot be taken
// whilst a fork is open.
func (m *Memory) Snapshot() Snapshot {
	if len(m.forks) != 0 {
		panic("cannot snapshot memory whilst forked")
	}
	//
	return Snapshot{maps.Clone(m.records), maps.Clone(m.initial)}
}

// Restore constructs a memory from a snapshot.
func Restore(s Snapshot) *Memory {
	mem := &Memory{maps.Clone(s.Records), maps.Clone(s.Initial), nil}
	//
	if mem.records == nil {
		mem.records = make(map[uint32]events.MemoryRecord)
	}
	//
	if mem.initial == nil {
		mem.initial = make(map[uint32]uint32)
	}
	//
	return mem
}

// Snapshot is a serialisable copy of memory.
type Snapshot struct {
	Records map[uint32]events.MemoryRecord
	Initial map[uint32]uint32
}

// Get the current record for an address, creating the initial entry if the
// address is untouched.
func (m *Memory) entry(addr uint32) events.MemoryRecord {
	if r, ok := m.records[addr]; ok {
		return r
	}
	//
	return events.NewMemoryRecord(m.initial[addr], 0, 0)
}

func (m *Memory) update(addr uint32, r events.MemoryRecord) {
	if n := len(m.forks); n > 0 {
		diff := m.forks[n-1]
		// Save original (once only)
		if _, ok := diff[addr]; !ok {
			if orig, ok := m.records[addr]; ok {
				diff[addr] = &orig
			} else {
				diff[addr] = nil
			}
		}
	}
	//
	m.records[addr] = r
}

func (m *Memory) violation(addr uint32, prev events.MemoryRecord, shard, timestamp uint32) error {
	return fault.NewConsistencyViolation(addr, "access at (%d,%d) does not follow previous access at (%d,%d)",
		shard, timestamp, prev.Shard, prev.Timestamp)
}
