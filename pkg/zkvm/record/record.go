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
package record

import (
	"fmt"

	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/fault"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
)

// PublicValues are the values exposed by a shard.
type PublicValues struct {
	_        struct{} `cbor:",toarray"`
	Shard    uint32
	StartPc  uint32
	NextPc   uint32
	ExitCode uint32
	// Digest of the committed public values stream.
	CommittedValueDigest [8]uint32
}

// ChipHeight is the padded height of a single chip's trace.
type ChipHeight struct {
	_          struct{} `cbor:",toarray"`
	Chip       string
	Log2Height uint
}

// Shape gives the padded trace heights for every chip included in a shard.
type Shape []ChipHeight

// Height returns the log2 padded height of a given chip, or false if it is
// not included.
func (s Shape) Height(chip string) (uint, bool) {
	for _, h := range s {
		if h.Chip == chip {
			return h.Log2Height, true
		}
	}
	//
	return 0, false
}

// ExecutionRecord is the ordered collection of events generated during one
// shard.  Events are only ever appended, and the record is sealed once the
// shard is finalized, after which it is a read-only input to trace generation.
type ExecutionRecord struct {
	CpuEvents        []events.CpuEvent
	AddSubEvents     []events.AluEvent
	BitwiseEvents    []events.AluEvent
	ShiftLeftEvents  []events.AluEvent
	ShiftRightEvents []events.AluEvent
	LtEvents         []events.AluEvent
	MulEvents        []events.AluEvent
	DivRemEvents     []events.AluEvent
	MemInstrEvents   []events.MemInstrEvent
	BranchEvents     []events.BranchEvent
	JumpEvents       []events.JumpEvent
	AuipcEvents      []events.AuipcEvent
	SyscallEvents    []events.SyscallEvent
	PrecompileEvents []events.PrecompileEvent
	// Append-only ledger of byte table uses.
	ByteLookups []events.ByteLookupEvent
	// First and last access of each address within this shard, in ascending
	// address order.
	MemoryLocalEvents []events.MemoryLocalEvent
	// Global memory events, only present in the last shard.
	MemoryInitEvents     []events.MemoryInitializeFinalizeEvent
	MemoryFinalizeEvents []events.MemoryInitializeFinalizeEvent
	// Number of invocations of each syscall code.
	SyscallCounts map[uint32]uint64
	PublicValues  PublicValues
	Shape         Shape
	Sealed        bool
	// program being executed (not serialised)
	program *program.Program
}

// New constructs an empty record for a given program and shard.
func New(p *program.Program, shard uint32) *ExecutionRecord {
	return &ExecutionRecord{
		SyscallCounts: make(map[uint32]uint64),
		PublicValues:  PublicValues{Shard: shard},
		program:       p,
	}
}

// Program returns the program which generated this record, or nil if unknown
// (e.g. after deserialisation).
func (r *ExecutionRecord) Program() *program.Program {
	return r.program
}

// SetProgram associates a program with this record.
func (r *ExecutionRecord) SetProgram(p *program.Program) {
	r.program = p
}

// Shard returns the shard number of this record.
func (r *ExecutionRecord) Shard() uint32 {
	return r.PublicValues.Shard
}

// AddCpuEvent appends a cpu event.
func (r *ExecutionRecord) AddCpuEvent(e events.CpuEvent) {
	r.checkMutable()
	r.CpuEvents = append(r.CpuEvents, e)
}

// AddAluEvent appends an ALU event to the list of its chip family.
func (r *ExecutionRecord) AddAluEvent(e events.AluEvent) {
	r.checkMutable()
	//
	switch e.Opcode {
	case program.ADD, program.SUB:
		r.AddSubEvents = append(r.AddSubEvents, e)
	case program.XOR, program.OR, program.AND:
		r.BitwiseEvents = append(r.BitwiseEvents, e)
	case program.SLL:
		r.ShiftLeftEvents = append(r.ShiftLeftEvents, e)
	case program.SRL, program.SRA:
		r.ShiftRightEvents = append(r.ShiftRightEvents, e)
	case program.SLT, program.SLTU:
		r.LtEvents = append(r.LtEvents, e)
	case program.MUL, program.MULH, program.MULHU, program.MULHSU:
		r.MulEvents = append(r.MulEvents, e)
	case program.DIV, program.DIVU, program.REM, program.REMU:
		r.DivRemEvents = append(r.DivRemEvents, e)
	default:
		panic(fmt.Sprintf("%s is not an ALU operation", e.Opcode))
	}
}

// AddMemInstrEvent appends a load/store event.
func (r *ExecutionRecord) AddMemInstrEvent(e events.MemInstrEvent) {
	r.checkMutable()
	r.MemInstrEvents = append(r.MemInstrEvents, e)
}

// AddBranchEvent appends a branch event.
func (r *ExecutionRecord) AddBranchEvent(e events.BranchEvent) {
	r.checkMutable()
	r.BranchEvents = append(r.BranchEvents, e)
}

// AddJumpEvent appends a jump event.
func (r *ExecutionRecord) AddJumpEvent(e events.JumpEvent) {
	r.checkMutable()
	r.JumpEvents = append(r.JumpEvents, e)
}

// AddAuipcEvent appends an AUIPC event.
func (r *ExecutionRecord) AddAuipcEvent(e events.AuipcEvent) {
	r.checkMutable()
	r.AuipcEvents = append(r.AuipcEvents, e)
}

// AddSyscallEvent appends a syscall event, and updates the syscall counts.
func (r *ExecutionRecord) AddSyscallEvent(e events.SyscallEvent) {
	r.checkMutable()
	r.SyscallEvents = append(r.SyscallEvents, e)
	r.SyscallCounts[e.Code]++
}

// AddPrecompileEvent appends a precompile event.
func (r *ExecutionRecord) AddPrecompileEvent(e events.PrecompileEvent) {
	r.checkMutable()
	r.PrecompileEvents = append(r.PrecompileEvents, e)
}

// AddByteLookup appends one or more byte lookups.
func (r *ExecutionRecord) AddByteLookup(es ...events.ByteLookupEvent) {
	r.checkMutable()
	r.ByteLookups = append(r.ByteLookups, es...)
}

// AddMemoryLocalEvents appends local memory events.
func (r *ExecutionRecord) AddMemoryLocalEvents(es ...events.MemoryLocalEvent) {
	r.checkMutable()
	r.MemoryLocalEvents = append(r.MemoryLocalEvents, es...)
}

// AddMemoryGlobalEvents appends global memory initialization and finalization
// events.
func (r *ExecutionRecord) AddMemoryGlobalEvents(init, final []events.MemoryInitializeFinalizeEvent) {
	r.checkMutable()
	r.MemoryInitEvents = append(r.MemoryInitEvents, init...)
	r.MemoryFinalizeEvents = append(r.MemoryFinalizeEvents, final...)
}

// PrecompilesOf returns the precompile events of a given family.
func (r *ExecutionRecord) PrecompilesOf(kind events.PrecompileKind) []*events.PrecompileEvent {
	var evs []*events.PrecompileEvent
	//
	for i := range r.PrecompileEvents {
		if r.PrecompileEvents[i].Kind == kind {
			evs = append(evs, &r.PrecompileEvents[i])
		}
	}
	//
	return evs
}

// Append merges the events of another (dependency) record into this record.
// Only events which can arise as dependencies are merged.
func (r *ExecutionRecord) Append(other *ExecutionRecord) {
	r.checkMutable()
	r.ByteLookups = append(r.ByteLookups, other.ByteLookups...)
	//
	for _, es := range [][]events.AluEvent{other.AddSubEvents, other.BitwiseEvents, other.ShiftLeftEvents,
		other.ShiftRightEvents, other.LtEvents, other.MulEvents, other.DivRemEvents} {
		for _, e := range es {
			r.AddAluEvent(e)
		}
	}
}

// Seal marks this record as finalized with the given shape.  Any subsequent
// attempt to append to it is a consistency violation.
func (r *ExecutionRecord) Seal(shape Shape) {
	r.checkMutable()
	r.Shape = shape
	r.Sealed = true
}

// Stats returns the number of events of each kind.
func (r *ExecutionRecord) Stats() map[string]int {
	return map[string]int{
		"cpu":          len(r.CpuEvents),
		"add_sub":      len(r.AddSubEvents),
		"bitwise":      len(r.BitwiseEvents),
		"shift_left":   len(r.ShiftLeftEvents),
		"shift_right":  len(r.ShiftRightEvents),
		"lt":           len(r.LtEvents),
		"mul":          len(r.MulEvents),
		"divrem":       len(r.DivRemEvents),
		"mem_instr":    len(r.MemInstrEvents),
		"branch":       len(r.BranchEvents),
		"jump":         len(r.JumpEvents),
		"auipc":        len(r.AuipcEvents),
		"syscall":      len(r.SyscallEvents),
		"precompile":   len(r.PrecompileEvents),
		"byte_lookups": len(r.ByteLookups),
		"memory_local": len(r.MemoryLocalEvents),
		"memory_init":  len(r.MemoryInitEvents),
		"memory_final": len(r.MemoryFinalizeEvents),
	}
}

func (r *ExecutionRecord) checkMutable() {
	if r.Sealed {
		panic(fault.NewConsistencyViolation(0, "append to sealed record (shard %d)", r.Shard()))
	}
}
