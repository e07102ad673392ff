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
package executor

import (
	"io"
	"maps"
	"os"
	"slices"

	"github.com/consensys/go-zkvm/pkg/config"
	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/fault"
	"github.com/consensys/go-zkvm/pkg/zkvm/memory"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
	"github.com/consensys/go-zkvm/pkg/zkvm/syscall"
	log "github.com/sirupsen/logrus"
)

// Position of an access within the cycles of a single instruction.  Accesses
// are made at timestamp clk + position, such that all accesses of one
// instruction are strictly ordered.
type position uint32

const (
	memoryPosition position = iota
	cPosition
	bPosition
	aPosition
)

// Status of an executor.
type Status uint8

const (
	// Running indicates further instructions remain to be executed.
	Running Status = iota
	// Halted indicates the program terminated normally.
	Halted
	// Faulted indicates the program terminated with an error.
	Faulted
)

// State is the architectural state of an executor.
type State struct {
	_         struct{} `cbor:",toarray"`
	Pc        uint32
	Shard     uint32
	Clk       uint32
	GlobalClk uint64
	ExitCode  uint32
	// Pc of the first instruction in the current shard
	ShardStartPc uint32
	// Pending hints, in order of consumption.
	Hints [][]byte
	// Public values stream written by the guest.
	PublicValues []byte
	// Committed public values digest.
	Digest [8]uint32
}

// accessRecord holds the accesses made by the current instruction.
type accessRecord struct {
	a, b, c, memory events.MemoryAccess
}

// Executor executes a program, producing one execution record per shard.
// Executors are single threaded, and share no state with other executors.
type Executor struct {
	program  *program.Program
	opts     config.Options
	registry *syscall.Registry
	hooks    map[uint32]syscall.Hook
	stdout   io.Writer
	stderr   io.Writer
	// Architectural state
	state  State
	status Status
	mem    *memory.Memory
	// Current record, and all completed records
	record  *record.ExecutionRecord
	records []*record.ExecutionRecord
	// First and last access of each address within the current shard
	local map[uint32]*events.MemoryLocalEvent
	// Accesses of the current instruction
	accesses accessRecord
	// Open unconstrained blocks
	forks []fork
	// Largest number of extra cycles of any syscall
	maxExtraCycles uint32
	// cycle tracking
	tracker *cycleTracker
}

// New constructs an executor for a given program, positioned at its entry
// point, using the default syscall registry.
func New(p *program.Program, opts config.Options) *Executor {
	e := &Executor{
		program: p,
		opts:    opts,
		hooks:   make(map[uint32]syscall.Hook),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		state:   State{Pc: p.PcStart(), Shard: 1, ShardStartPc: p.PcStart()},
		mem:     memory.New(p),
		local:   make(map[uint32]*events.MemoryLocalEvent),
		tracker: newCycleTracker(),
	}
	//
	e.record = record.New(p, e.state.Shard)
	//
	return e.WithRegistry(syscall.Default())
}

// WithRegistry sets the syscall registry used by this executor.
func (e *Executor) WithRegistry(registry *syscall.Registry) *Executor {
	e.registry = registry
	e.maxExtraCycles = registry.MaxExtraCycles()
	//
	return e
}

// WithHints appends hints to the hint stream.
func (e *Executor) WithHints(hints ...[]byte) *Executor {
	for _, h := range hints {
		e.state.Hints = append(e.state.Hints, slices.Clone(h))
	}
	//
	return e
}

// WithHook registers a hook for a given file descriptor.
func (e *Executor) WithHook(fd uint32, hook syscall.Hook) *Executor {
	e.hooks[fd] = hook
	return e
}

// WithOutput sets the writers used for the guest's standard output and error.
func (e *Executor) WithOutput(stdout, stderr io.Writer) *Executor {
	e.stdout, e.stderr = stdout, stderr
	return e
}

// Program returns the program being executed.
func (e *Executor) Program() *program.Program {
	return e.program
}

// State returns the current architectural state.
func (e *Executor) State() State {
	return e.state
}

// Status returns the current status.
func (e *Executor) Status() Status {
	return e.status
}

// Memory returns the memory of this executor.
func (e *Executor) Memory() *memory.Memory {
	return e.mem
}

// Records returns the records of all completed shards.
func (e *Executor) Records() []*record.ExecutionRecord {
	return e.records
}

// TakeRecords returns the records of all completed shards, removing them from
// the executor.
func (e *Executor) TakeRecords() []*record.ExecutionRecord {
	records := e.records
	e.records = nil
	//
	return records
}

// Run executes the program to completion, returning the record of every
// shard.
func (e *Executor) Run() ([]*record.ExecutionRecord, error) {
	for e.status == Running {
		if err := e.step(); err != nil {
			return e.records, err
		}
	}
	//
	return e.records, nil
}

// Execute executes upto the given number of instructions, returning the number
// actually executed.  Fewer instructions are executed only if the program
// terminates.
func (e *Executor) Execute(steps uint) (uint, error) {
	var n uint
	//
	for ; n < steps && e.status == Running; n++ {
		if err := e.step(); err != nil {
			return n, err
		}
	}
	//
	return n, nil
}

// ExecuteAll executes a given executor to completion in chunks of n steps,
// returning the number of steps executed and/or any error arising.
func ExecuteAll(e *Executor, n uint) (uint, error) {
	var nsteps uint
	//
	for {
		// Execute upto n steps
		m, err := e.Execute(n)
		// update the tally
		nsteps += m
		// check for termination
		if err != nil || m < n || e.status != Running {
			return nsteps, err
		}
	}
}

// Determine whether an unconstrained block is active.
func (e *Executor) unconstrained() bool {
	return len(e.forks) > 0
}

// Determine whether events should be emitted.
func (e *Executor) tracing() bool {
	return e.opts.Trace && !e.unconstrained()
}

// Advance the clocks following the execution of an instruction, and check
// whether this shard is complete or the program has terminated.  Only HALT
// terminates; any other transfer to pc 0 faults when the next instruction is
// fetched.
func (e *Executor) advance(nextPc uint32, extraCycles uint32, halted bool) error {
	e.state.Pc = nextPc
	e.state.Clk += 4 + extraCycles
	e.state.GlobalClk++
	//
	if halted {
		return e.halt()
	} else if !e.unconstrained() && e.state.Clk+e.maxExtraCycles >= 4*e.opts.ShardSize {
		e.bumpRecord()
	}
	//
	return nil
}

// Complete the current shard and begin the next.
func (e *Executor) bumpRecord() {
	log.Debugf("shard %d complete after %d cycles (pc=0x%08x)", e.state.Shard, e.state.Clk/4, e.state.Pc)
	//
	e.flushRecord()
	e.state.Shard++
	e.state.Clk = 0
	e.state.ShardStartPc = e.state.Pc
	e.record = record.New(e.program, e.state.Shard)
}

// Complete the current record.
func (e *Executor) flushRecord() {
	if e.opts.Trace {
		for _, addr := range slices.Sorted(maps.Keys(e.local)) {
			e.record.AddMemoryLocalEvents(*e.local[addr])
		}
	}
	//
	e.local = make(map[uint32]*events.MemoryLocalEvent)
	e.record.PublicValues = record.PublicValues{
		Shard:                e.state.Shard,
		StartPc:              e.state.ShardStartPc,
		NextPc:               e.state.Pc,
		ExitCode:             e.state.ExitCode,
		CommittedValueDigest: e.state.Digest,
	}
	e.records = append(e.records, e.record)
	e.record = nil
}

// Terminate execution, generating the global memory events.
func (e *Executor) halt() error {
	if e.unconstrained() {
		e.status = Faulted
		return &fault.ExecutionError{Kind: fault.EndInUnconstrained, Pc: e.state.Pc}
	}
	//
	if e.opts.Trace {
		var init, final []events.MemoryInitializeFinalizeEvent
		//
		for _, addr := range e.mem.Addresses() {
			r, _ := e.mem.Record(addr)
			init = append(init, events.NewInitializeEvent(addr, e.mem.Initial(addr)))
			final = append(final, events.NewFinalizeEvent(addr, r))
		}
		//
		e.record.AddMemoryGlobalEvents(init, final)
	}
	//
	if len(e.state.Hints) > 0 {
		log.Warnf("%d hint(s) not read by program", len(e.state.Hints))
	}
	//
	e.tracker.flush(e.stdout)
	e.flushRecord()
	e.status = Halted
	//
	log.Debugf("program halted after %d cycles in %d shard(s)", e.state.GlobalClk, e.state.Shard)
	//
	return nil
}

// Read a register at a given position within the current instruction.
func (e *Executor) readRegister(reg uint8, pos position) (uint32, error) {
	r, err := e.mem.Read(uint32(reg), e.state.Shard, e.state.Clk+uint32(pos))
	if err != nil {
		return 0, err
	}
	//
	access := events.NewReadAccess(uint32(reg), r)
	e.track(access)
	//
	if pos == bPosition {
		e.accesses.b = access
	} else if pos == cPosition {
		e.accesses.c = access
	} else {
		e.accesses.a = access
	}
	//
	return r.Value, nil
}

// Write register a of the current instruction, returning the value actually
// written.  Writes to register 0 always write 0.
func (e *Executor) writeRegister(reg uint8, value uint32) (uint32, error) {
	if reg == 0 {
		value = 0
	}
	//
	w, err := e.mem.Write(uint32(reg), value, e.state.Shard, e.state.Clk+uint32(aPosition))
	if err != nil {
		return 0, err
	}
	//
	e.accesses.a = events.NewWriteAccess(uint32(reg), w)
	e.track(e.accesses.a)
	//
	return value, nil
}

// Read a (word aligned, valid) memory address at a given timestamp.
func (e *Executor) readMemory(addr uint32, clk uint32) (events.MemoryAccess, error) {
	r, err := e.mem.Read(addr, e.state.Shard, clk)
	if err != nil {
		return events.MemoryAccess{}, err
	}
	//
	access := events.NewReadAccess(addr, r)
	e.track(access)
	//
	return access, nil
}

// Write a (word aligned, valid) memory address at a given timestamp.
func (e *Executor) writeMemory(addr uint32, value uint32, clk uint32) (events.MemoryAccess, error) {
	w, err := e.mem.Write(addr, value, e.state.Shard, clk)
	if err != nil {
		return events.MemoryAccess{}, err
	}
	//
	access := events.NewWriteAccess(addr, w)
	e.track(access)
	//
	return access, nil
}

// Update the local memory event for an accessed address.
func (e *Executor) track(access events.MemoryAccess) {
	if !e.tracing() {
		return
	} else if ev, ok := e.local[access.Addr]; ok {
		ev.Final = access.Current()
	} else {
		e.local[access.Addr] = &events.MemoryLocalEvent{Addr: access.Addr, Initial: access.Previous(),
			Final: access.Current()}
	}
}
