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
	"crypto/sha256"
	"io"

	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/fault"
	"github.com/consensys/go-zkvm/pkg/zkvm/memory"
	"github.com/consensys/go-zkvm/pkg/zkvm/syscall"
)

// syscallContext is the view of an executor given to a syscall handler.
type syscallContext struct {
	e       *Executor
	code    syscall.Code
	handler syscall.Handler
	event   events.SyscallEvent
	clk     uint32
	nextPc  uint32
	halted  bool
	// words read without a record
	peeks []syscall.Unverified
	// value of each address prior to its first constrained access
	bound map[uint32]uint32
}

func newSyscallContext(e *Executor, code syscall.Code, handler syscall.Handler, arg1, arg2 uint32) *syscallContext {
	var (
		pc  = e.state.Pc
		clk = e.state.Clk
	)
	//
	return &syscallContext{
		e:       e,
		code:    code,
		handler: handler,
		event: events.SyscallEvent{Shard: e.state.Shard, Clk: clk, Pc: pc, NextPc: pc + 4,
			Code: uint32(code), Arg1: arg1, Arg2: arg2},
		clk:    clk,
		nextPc: pc + 4,
		bound:  make(map[uint32]uint32),
	}
}

func (c *syscallContext) Shard() uint32 {
	return c.e.state.Shard
}

func (c *syscallContext) Clk() uint32 {
	return c.clk
}

func (c *syscallContext) Bump() {
	c.clk++
}

func (c *syscallContext) ReadWord(addr uint32) (events.MemoryAccess, error) {
	if err := c.checkAddress(addr); err != nil {
		return events.MemoryAccess{}, err
	}
	//
	access, err := c.e.readMemory(addr, c.clk)
	c.bind(access)
	//
	return access, err
}

func (c *syscallContext) WriteWord(addr uint32, value uint32) (events.MemoryAccess, error) {
	if err := c.checkAddress(addr); err != nil {
		return events.MemoryAccess{}, err
	}
	//
	access, err := c.e.writeMemory(addr, value, c.clk)
	c.bind(access)
	//
	return access, err
}

func (c *syscallContext) Initialize(addr uint32, value uint32) error {
	if err := c.checkAddress(addr); err != nil {
		return err
	} else if c.e.mem.Touched(addr) {
		return &fault.ExecutionError{Kind: fault.InvalidSyscallUsage, Code: uint32(c.code), Addr: addr}
	}
	//
	return c.e.mem.SetInitial(addr, value)
}

func (c *syscallContext) Unconstrained() (syscall.Peeker, error) {
	if _, ok := c.handler.(syscall.UnconstrainedAccess); !ok {
		return nil, fault.NewConsistencyViolation(0, "%s has not requested unconstrained access", c.code)
	}
	//
	return c, nil
}

// Register implementation for the syscall.Peeker interface.
func (c *syscallContext) Register(reg uint8) syscall.Unverified {
	word := syscall.NewUnverified(uint32(reg), c.e.mem.Peek(uint32(reg)))
	c.peeks = append(c.peeks, word)
	//
	return word
}

// Peek implementation for the syscall.Peeker interface.
func (c *syscallContext) Peek(addr uint32) (syscall.Unverified, error) {
	if err := c.checkAddress(addr); err != nil {
		return syscall.Unverified{}, err
	}
	//
	word := syscall.NewUnverified(addr, c.e.mem.Peek(addr))
	c.peeks = append(c.peeks, word)
	//
	return word, nil
}

// PeekSlice implementation for the syscall.Peeker interface.
func (c *syscallContext) PeekSlice(addr uint32, n uint) ([]syscall.Unverified, error) {
	var words = make([]syscall.Unverified, n)
	//
	for i := range n {
		w, err := c.Peek(addr + 4*uint32(i))
		if err != nil {
			return nil, err
		}
		//
		words[i] = w
	}
	//
	return words, nil
}

func (c *syscallContext) InUnconstrained() bool {
	return c.e.unconstrained()
}

func (c *syscallContext) EnterUnconstrained() {
	c.e.enterUnconstrained()
}

func (c *syscallContext) ExitUnconstrained() bool {
	if !c.e.exitUnconstrained() {
		return false
	}
	//
	c.nextPc = c.e.state.Pc + 4
	//
	return true
}

func (c *syscallContext) SyscallEvent() events.SyscallEvent {
	return c.event
}

func (c *syscallContext) AddPrecompile(ev events.PrecompileEvent) {
	if c.e.tracing() {
		c.e.record.AddPrecompileEvent(ev)
	}
}

func (c *syscallContext) SetNextPc(pc uint32) {
	c.nextPc = pc
}

func (c *syscallContext) Halt() {
	c.nextPc, c.halted = 0, true
}

func (c *syscallContext) SetExitCode(code uint32) {
	c.e.state.ExitCode = code
}

func (c *syscallContext) Stdout() io.Writer {
	return c.e.tracker.writer(c.e, c.e.stdout)
}

func (c *syscallContext) Stderr() io.Writer {
	return c.e.stderr
}

func (c *syscallContext) WritePublicValues(bytes []byte) {
	c.e.state.PublicValues = append(c.e.state.PublicValues, bytes...)
}

func (c *syscallContext) Commit(index int, word uint32) {
	c.e.state.Digest[index] = word
}

func (c *syscallContext) PeekHint() ([]byte, bool) {
	if len(c.e.state.Hints) == 0 {
		return nil, false
	}
	//
	return c.e.state.Hints[0], true
}

func (c *syscallContext) NextHint() ([]byte, bool) {
	hint, ok := c.PeekHint()
	//
	if ok {
		c.e.state.Hints = c.e.state.Hints[1:]
	}
	//
	return hint, ok
}

func (c *syscallContext) PushHint(hint []byte) {
	c.e.state.Hints = append(c.e.state.Hints, hint)
}

func (c *syscallContext) Hook(fd uint32) (syscall.Hook, bool) {
	h, ok := c.e.hooks[fd]
	return h, ok
}

func (c *syscallContext) checkAddress(addr uint32) error {
	if !memory.IsValidAddress(addr) {
		return &fault.ExecutionError{Kind: fault.InvalidMemoryAccess, Pc: c.event.Pc, Opcode: c.code.String(),
			Addr: addr}
	}
	//
	return nil
}

// Record the value of an address prior to its first constrained access.
func (c *syscallContext) bind(access events.MemoryAccess) {
	if _, ok := c.bound[access.Addr]; !ok && access.Present() {
		c.bound[access.Addr] = access.PrevValue
	}
}

// Check that every value read without a record was subsequently bound by a
// constrained access (where the handler requires this).  Handlers which do not
// rebind their reads cannot return a value, since it might depend on them.
func (c *syscallContext) checkRebinds(returned bool) error {
	ua, ok := c.handler.(syscall.UnconstrainedAccess)
	//
	switch {
	case !ok:
		return nil
	case !ua.Rebinds() && returned:
		return fault.NewConsistencyViolation(0, "%s returned a value without binding its reads", c.code)
	case !ua.Rebinds():
		return nil
	}
	//
	for _, w := range c.peeks {
		if v, ok := c.bound[w.Addr()]; !ok || v != w.Value() {
			return fault.NewConsistencyViolation(w.Addr(), "%s read 0x%08x without binding it", c.code, w.Value())
		}
	}
	//
	return nil
}

// PublicValuesDigest returns the SHA-256 digest of a public values stream, as
// eight big endian words.  Guests commit to this digest via COMMIT.
func PublicValuesDigest(stream []byte) [8]uint32 {
	var (
		hash   = sha256.Sum256(stream)
		digest [8]uint32
	)
	//
	for i := range digest {
		digest[i] = uint32(hash[4*i])<<24 | uint32(hash[4*i+1])<<16 | uint32(hash[4*i+2])<<8 | uint32(hash[4*i+3])
	}
	//
	return digest
}

// make sure the interfaces are adhered to.
var (
	_ syscall.Context = &syscallContext{}
	_ syscall.Peeker  = &syscallContext{}
)
