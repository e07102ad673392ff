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
package events

// AccessKind discriminates the variants of a memory access.
type AccessKind uint8

const (
	// NoAccess indicates an absent access (e.g. an instruction without a
	// register operand in that position).
	NoAccess AccessKind = iota
	// ReadAccess is a read, which leaves the value unchanged.
	ReadAccess
	// WriteAccess is a write, which may change the value.
	WriteAccess
)

// MemoryRecord is the state of an address immediately following its most
// recent access.  A fresh address starts with its initial value at shard 0,
// timestamp 0.
type MemoryRecord struct {
	_         struct{} `cbor:",toarray"`
	Value     uint32
	Shard     uint32
	Timestamp uint32
}

// NewMemoryRecord constructs a memory record.
func NewMemoryRecord(value, shard, timestamp uint32) MemoryRecord {
	return MemoryRecord{Value: value, Shard: shard, Timestamp: timestamp}
}

// Precedes determines whether this record was made strictly before a given
// (shard, timestamp) position.
func (r MemoryRecord) Precedes(shard, timestamp uint32) bool {
	return r.Shard < shard || (r.Shard == shard && r.Timestamp < timestamp)
}

// MemoryReadRecord describes a read, linking it to the previous access.
type MemoryReadRecord struct {
	_             struct{} `cbor:",toarray"`
	Value         uint32
	Shard         uint32
	Timestamp     uint32
	PrevShard     uint32
	PrevTimestamp uint32
}

// MemoryWriteRecord describes a write, linking it to the previous access.
type MemoryWriteRecord struct {
	_             struct{} `cbor:",toarray"`
	Value         uint32
	Shard         uint32
	Timestamp     uint32
	PrevValue     uint32
	PrevShard     uint32
	PrevTimestamp uint32
}

// MemoryAccess is a tagged variant holding either a read or a write of a
// given address.  For reads the previous value always equals the value.
type MemoryAccess struct {
	_             struct{} `cbor:",toarray"`
	Kind          AccessKind
	Addr          uint32
	Value         uint32
	Shard         uint32
	Timestamp     uint32
	PrevValue     uint32
	PrevShard     uint32
	PrevTimestamp uint32
}

// NewReadAccess wraps a read record.
func NewReadAccess(addr uint32, r MemoryReadRecord) MemoryAccess {
	return MemoryAccess{Kind: ReadAccess, Addr: addr, Value: r.Value, Shard: r.Shard, Timestamp: r.Timestamp,
		PrevValue: r.Value, PrevShard: r.PrevShard, PrevTimestamp: r.PrevTimestamp}
}

// NewWriteAccess wraps a write record.
func NewWriteAccess(addr uint32, w MemoryWriteRecord) MemoryAccess {
	return MemoryAccess{Kind: WriteAccess, Addr: addr, Value: w.Value, Shard: w.Shard, Timestamp: w.Timestamp,
		PrevValue: w.PrevValue, PrevShard: w.PrevShard, PrevTimestamp: w.PrevTimestamp}
}

// Present indicates whether this access actually took place.
func (a MemoryAccess) Present() bool {
	return a.Kind != NoAccess
}

// Previous returns the state of the address before this access.
func (a MemoryAccess) Previous() MemoryRecord {
	return NewMemoryRecord(a.PrevValue, a.PrevShard, a.PrevTimestamp)
}

// Current returns the state of the address after this access.
func (a MemoryAccess) Current() MemoryRecord {
	return NewMemoryRecord(a.Value, a.Shard, a.Timestamp)
}

// Read returns the underlying read record.  This panics if the access is not a
// read.
func (a MemoryAccess) Read() MemoryReadRecord {
	if a.Kind != ReadAccess {
		panic("memory access is not a read")
	}
	//
	return MemoryReadRecord{Value: a.Value, Shard: a.Shard, Timestamp: a.Timestamp,
		PrevShard: a.PrevShard, PrevTimestamp: a.PrevTimestamp}
}

// Write returns the underlying write record.  This panics if the access is
// not a write.
func (a MemoryAccess) Write() MemoryWriteRecord {
	if a.Kind != WriteAccess {
		panic("memory access is not a write")
	}
	//
	return MemoryWriteRecord{Value: a.Value, Shard: a.Shard, Timestamp: a.Timestamp,
		PrevValue: a.PrevValue, PrevShard: a.PrevShard, PrevTimestamp: a.PrevTimestamp}
}

// MemoryLocalEvent records the first and last access of an address within a
// single shard.  The initial record is the state before the first access in
// that shard.
type MemoryLocalEvent struct {
	_       struct{} `cbor:",toarray"`
	Addr    uint32
	Initial MemoryRecord
	Final   MemoryRecord
}

// MemoryInitializeFinalizeEvent records either the initial value of an
// address (at shard 0, timestamp 0) or its final state once execution
// completes.
type MemoryInitializeFinalizeEvent struct {
	_         struct{} `cbor:",toarray"`
	Addr      uint32
	Value     uint32
	Shard     uint32
	Timestamp uint32
}

// NewInitializeEvent constructs an initialization event.
func NewInitializeEvent(addr, value uint32) MemoryInitializeFinalizeEvent {
	return MemoryInitializeFinalizeEvent{Addr: addr, Value: value}
}

// NewFinalizeEvent constructs a finalization event from the last record of
// an address.
func NewFinalizeEvent(addr uint32, r MemoryRecord) MemoryInitializeFinalizeEvent {
	return MemoryInitializeFinalizeEvent{Addr: addr, Value: r.Value, Shard: r.Shard, Timestamp: r.Timestamp}
}
