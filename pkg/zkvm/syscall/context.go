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
package syscall

import (
	"io"

	"github.com/consensys/go-zkvm/pkg/zkvm/events"
)

// Context is the restricted view of the execution engine available to a
// syscall handler.
type Context interface {
	// Shard returns the current shard.
	Shard() uint32
	// Clk returns the current clock, which starts at the clock of the ECALL
	// instruction and is advanced by Bump.
	Clk() uint32
	// Bump advances the clock by one, such that subsequent accesses happen
	// strictly after all previous accesses.
	Bump()
	// ReadWord performs a constrained read of a word aligned address.
	ReadWord(addr uint32) (events.MemoryAccess, error)
	// WriteWord performs a constrained write of a word aligned address.
	WriteWord(addr uint32, value uint32) (events.MemoryAccess, error)
	// Initialize sets the initial value of an address which has not yet been
	// accessed (used for supplying hints).
	Initialize(addr uint32, value uint32) error
	// Unconstrained requests the capability to read memory without creating
	// records.  This only succeeds for handlers implementing
	// UnconstrainedAccess.
	Unconstrained() (Peeker, error)
	// InUnconstrained determines whether an unconstrained block is active.
	InUnconstrained() bool
	// EnterUnconstrained opens a (possibly nested) unconstrained block.
	EnterUnconstrained()
	// ExitUnconstrained closes the innermost unconstrained block, restoring the
	// state as it was when the block was opened.  Returns false if no block
	// was open.
	ExitUnconstrained() bool
	// SyscallEvent returns the event describing the current syscall.
	SyscallEvent() events.SyscallEvent
	// AddPrecompile records a precompile event.
	AddPrecompile(ev events.PrecompileEvent)
	// SetNextPc overrides the pc of the next instruction.
	SetNextPc(pc uint32)
	// Halt terminates execution once the current instruction completes.
	Halt()
	// SetExitCode sets the exit code of the program.
	SetExitCode(code uint32)
	// Stdout returns the writer for the guest's standard output.
	Stdout() io.Writer
	// Stderr returns the writer for the guest's standard error.
	Stderr() io.Writer
	// WritePublicValues appends to the public values stream.
	WritePublicValues(bytes []byte)
	// Commit sets one word of the committed public values digest.
	Commit(index int, word uint32)
	// PeekHint returns the next hint, without consuming it.
	PeekHint() ([]byte, bool)
	// NextHint consumes the next hint.
	NextHint() ([]byte, bool)
	// PushHint appends a hint to the end of the hint stream.
	PushHint(hint []byte)
	// Hook returns the hook registered for a given file descriptor.
	Hook(fd uint32) (Hook, bool)
}

// Hook is invoked when the guest writes to the file descriptor it is
// registered for.  Each returned slice is appended to the hint stream.
type Hook func(data []byte) [][]byte

// Handler implements the behaviour of one or more syscalls.
type Handler interface {
	// Execute the syscall with the given arguments, returning the value to
	// write back to t0 (or false to write back the syscall code).
	Execute(ctx Context, code Code, arg1, arg2 uint32) (uint32, bool, error)
}

// UnconstrainedAccess is implemented by handlers which need to read memory
// without creating records.
type UnconstrainedAccess interface {
	// Rebinds reports whether every value read without a record must later be
	// bound by a constrained access to the same address, within the same
	// syscall.  Handlers whose outputs only flow into I/O streams need not do
	// so, but then cannot return a value for t0.
	Rebinds() bool
}

// Peeker reads memory without creating records.
type Peeker interface {
	// Register reads the current value of a register.
	Register(reg uint8) Unverified
	// Peek a single word.
	Peek(addr uint32) (Unverified, error)
	// PeekSlice reads n consecutive words.
	PeekSlice(addr uint32, n uint) ([]Unverified, error)
}

// Unverified is a word read from memory without creating a record.  Such
// values are untrusted until bound by a constrained access.
type Unverified struct {
	addr  uint32
	value uint32
}

// NewUnverified constructs an unverified value.
func NewUnverified(addr, value uint32) Unverified {
	return Unverified{addr, value}
}

// Addr returns the address that was read.
func (u Unverified) Addr() uint32 {
	return u.addr
}

// Value returns the (untrusted) value that was read.
func (u Unverified) Value() uint32 {
	return u.value
}

// Values returns the values of a slice of unverified words.
func Values(words []Unverified) []uint32 {
	vals := make([]uint32, len(words))
	//
	for i, w := range words {
		vals[i] = w.value
	}
	//
	return vals
}

// ReadSlice performs constrained reads of n consecutive words.
func ReadSlice(ctx Context, addr uint32, n uint) ([]events.MemoryAccess, []uint32, error) {
	var (
		accesses = make([]events.MemoryAccess, n)
		values   = make([]uint32, n)
		err      error
	)
	//
	for i := range n {
		if accesses[i], err = ctx.ReadWord(addr + 4*uint32(i)); err != nil {
			return nil, nil, err
		}
		//
		values[i] = accesses[i].Value
	}
	//
	return accesses, values, nil
}

// WriteSlice performs constrained writes of consecutive words.
func WriteSlice(ctx Context, addr uint32, values []uint32) ([]events.MemoryAccess, error) {
	var (
		accesses = make([]events.MemoryAccess, len(values))
		err      error
	)
	//
	for i, v := range values {
		if accesses[i], err = ctx.WriteWord(addr+4*uint32(i), v); err != nil {
			return nil, err
		}
	}
	//
	return accesses, nil
}
