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
	"encoding"
	"errors"
	"maps"
	"math"
	"slices"

	"github.com/consensys/go-zkvm/pkg/config"
	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/memory"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
)

// Checkpoint represents a captured state of an executor, such that execution
// can be continued later from this position (sometimes also known as a
// "continuation").  As such, the checkpoint includes all information necessary
// to allow execution to continue, including the partially completed record of
// the current shard.  Hooks, the syscall registry and output writers are not
// captured, and must be supplied again on recovery.
type Checkpoint struct {
	_      struct{} `cbor:",toarray"`
	State  State
	Memory memory.Snapshot
	// First and last access of each address in the current shard, in
	// ascending address order.
	Local  []events.MemoryLocalEvent
	Record *record.ExecutionRecord
}

// Checkpoint captures the state of this executor.  Checkpoints cannot be
// taken within an unconstrained block, or once execution has terminated.
func (e *Executor) Checkpoint() (*Checkpoint, error) {
	if e.unconstrained() {
		return nil, errors.New("cannot checkpoint within unconstrained block")
	} else if e.status != Running {
		return nil, errors.New("cannot checkpoint terminated execution")
	}
	//
	var local []events.MemoryLocalEvent
	//
	for _, addr := range slices.Sorted(maps.Keys(e.local)) {
		local = append(local, *e.local[addr])
	}
	// Deep copy of state and record via their encoding
	cp := &Checkpoint{State: e.state, Memory: e.mem.Snapshot(), Local: local, Record: e.record}
	//
	bytes, err := cp.MarshalBinary()
	if err != nil {
		return nil, err
	}
	//
	var clone Checkpoint
	//
	return &clone, clone.UnmarshalBinary(bytes)
}

// ValidFor returns the number of execution steps for which this checkpoint
// is valid.  Checkpoints capture the whole memory and, hence, are valid for
// all remaining steps.
func (cp *Checkpoint) ValidFor() uint64 {
	return math.MaxUint64
}

// MarshalBinary implementation for the encoding.BinaryMarshaler interface.
func (cp *Checkpoint) MarshalBinary() ([]byte, error) {
	type plain Checkpoint
	//
	return record.Marshal((*plain)(cp))
}

// UnmarshalBinary implementation for the encoding.BinaryUnmarshaler interface.
func (cp *Checkpoint) UnmarshalBinary(data []byte) error {
	type plain Checkpoint
	//
	return record.Unmarshal(data, (*plain)(cp))
}

// Recover constructs an executor which continues execution of a given program
// from a checkpoint, using the default syscall registry.
func Recover(p *program.Program, cp *Checkpoint, opts config.Options) *Executor {
	e := New(p, opts)
	e.state = cp.State
	e.state.Hints = slices.Clone(cp.State.Hints)
	e.state.PublicValues = slices.Clone(cp.State.PublicValues)
	e.mem = memory.Restore(cp.Memory)
	//
	for _, ev := range cp.Local {
		ev := ev
		e.local[ev.Addr] = &ev
	}
	//
	if cp.Record != nil {
		e.record = cp.Record
		e.record.SetProgram(p)
		//
		if e.record.SyscallCounts == nil {
			e.record.SyscallCounts = make(map[uint32]uint64)
		}
	} else {
		e.record = record.New(p, e.state.Shard)
	}
	//
	return e
}

// make sure the interfaces are adhered to.
var (
	_ encoding.BinaryMarshaler   = &Checkpoint{}
	_ encoding.BinaryUnmarshaler = &Checkpoint{}
)
