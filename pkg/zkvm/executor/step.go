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
	"errors"

	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/fault"
	"github.com/consensys/go-zkvm/pkg/zkvm/memory"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/consensys/go-zkvm/pkg/zkvm/syscall"
)

// outcome of executing a single instruction.
type outcome struct {
	a, b, c uint32
	// value computed by the instruction, which differs from a only when
	// writing x0.
	res    uint32
	nextPc uint32
	// ecall specifics
	syscall     syscall.Code
	extraCycles uint32
	// set when an unconstrained block was exited, restoring the entering
	// instruction.
	restored bool
	halted   bool
}

// Execute a single instruction, marking the executor as faulted if this fails.
func (e *Executor) step() error {
	if err := e.tryStep(); err != nil {
		var xerr *fault.ExecutionError
		// Fill in pc where missing
		if errors.As(err, &xerr) && xerr.Pc == 0 {
			xerr.Pc = e.state.Pc
		}
		//
		e.status = Faulted
		//
		return err
	}
	//
	return nil
}

func (e *Executor) tryStep() error {
	var (
		limit = e.opts.MaxCycles
		out   outcome
	)
	//
	if limit != 0 && e.state.GlobalClk >= limit {
		return &fault.ExecutionError{Kind: fault.ExceededCycleLimit, Pc: e.state.Pc, Limit: limit}
	}
	//
	insn, err := e.program.Fetch(e.state.Pc)
	if err != nil {
		return err
	}
	//
	e.accesses = accessRecord{}
	//
	switch insn.Opcode.Category() {
	case program.ALU:
		out, err = e.executeAlu(insn)
	case program.Load:
		out, err = e.executeLoad(insn)
	case program.Store:
		out, err = e.executeStore(insn)
	case program.Branch:
		out, err = e.executeBranch(insn)
	case program.Jump:
		out, err = e.executeJump(insn)
	case program.Auipc:
		out, err = e.executeAuipc(insn)
	default:
		out, err = e.executeSystem(insn)
	}
	//
	if err != nil {
		return err
	}
	// NOTE: for ECALL the pc and clk may have been restored by the syscall, and
	// hence are read only now.
	if out.restored {
		insn, _ = e.program.Fetch(e.state.Pc)
	}
	//
	if e.tracing() {
		e.emit(insn, out)
	}
	//
	return e.advance(out.nextPc, out.extraCycles, out.halted)
}

// Read operand b, either from a register or as an immediate.
func (e *Executor) operandB(insn program.Instruction) (uint32, error) {
	if insn.ImmB {
		return insn.OpB, nil
	}
	//
	return e.readRegister(uint8(insn.OpB), bPosition)
}

// Read operand c, either from a register or as an immediate.
func (e *Executor) operandC(insn program.Instruction) (uint32, error) {
	if insn.ImmC {
		return insn.OpC, nil
	}
	//
	return e.readRegister(uint8(insn.OpC), cPosition)
}

func (e *Executor) executeAlu(insn program.Instruction) (outcome, error) {
	var out = outcome{nextPc: e.state.Pc + 4}
	// c is read before b
	c, err := e.operandC(insn)
	if err != nil {
		return out, err
	}
	//
	b, err := e.operandB(insn)
	if err != nil {
		return out, err
	}
	//
	out.res = Alu(insn.Opcode, b, c)
	a, err := e.writeRegister(insn.OpA, out.res)
	//
	out.a, out.b, out.c = a, b, c
	//
	return out, err
}

func (e *Executor) executeLoad(insn program.Instruction) (outcome, error) {
	var out = outcome{nextPc: e.state.Pc + 4, c: insn.OpC}
	//
	b, err := e.operandB(insn)
	if err != nil {
		return out, err
	}
	//
	addr := b + insn.OpC
	//
	if err = e.checkAlignment(insn.Opcode, addr); err != nil {
		return out, err
	}
	//
	access, err := e.readMemory(addr&^3, e.state.Clk+uint32(memoryPosition))
	if err != nil {
		return out, err
	}
	//
	e.accesses.memory = access
	//
	out.res = LoadValue(insn.Opcode, addr, access.Value)
	a, err := e.writeRegister(insn.OpA, out.res)
	out.a, out.b = a, b
	//
	return out, err
}

func (e *Executor) executeStore(insn program.Instruction) (outcome, error) {
	var out = outcome{nextPc: e.state.Pc + 4, c: insn.OpC}
	// base is read before value
	b, err := e.operandB(insn)
	if err != nil {
		return out, err
	}
	//
	a, err := e.readRegister(insn.OpA, aPosition)
	if err != nil {
		return out, err
	}
	//
	addr := b + insn.OpC
	//
	if err = e.checkAlignment(insn.Opcode, addr); err != nil {
		return out, err
	}
	//
	word := StoreValue(insn.Opcode, addr, e.mem.Peek(addr&^3), a)
	//
	access, err := e.writeMemory(addr&^3, word, e.state.Clk+uint32(memoryPosition))
	e.accesses.memory = access
	out.a, out.b, out.res = a, b, a
	//
	return out, err
}

func (e *Executor) executeBranch(insn program.Instruction) (outcome, error) {
	var out = outcome{c: insn.OpC}
	// rs2 is read before rs1
	b, err := e.operandB(insn)
	if err != nil {
		return out, err
	}
	//
	a, err := e.readRegister(insn.OpA, aPosition)
	if err != nil {
		return out, err
	}
	//
	out.a, out.b, out.res = a, b, a
	//
	if BranchTaken(insn.Opcode, a, b) {
		out.nextPc = e.state.Pc + insn.OpC
	} else {
		out.nextPc = e.state.Pc + 4
	}
	//
	return out, nil
}

func (e *Executor) executeJump(insn program.Instruction) (outcome, error) {
	var (
		out = outcome{b: insn.OpB, c: insn.OpC}
		err error
	)
	//
	if insn.Opcode == program.JAL {
		out.nextPc = e.state.Pc + insn.OpB
	} else {
		if out.b, err = e.operandB(insn); err != nil {
			return out, err
		}
		//
		out.nextPc = (out.b + insn.OpC) &^ 1
	}
	//
	out.res = e.state.Pc + 4
	out.a, err = e.writeRegister(insn.OpA, out.res)
	//
	return out, err
}

func (e *Executor) executeAuipc(insn program.Instruction) (outcome, error) {
	var (
		out = outcome{b: insn.OpB, c: insn.OpC, nextPc: e.state.Pc + 4}
		err error
	)
	//
	out.res = e.state.Pc + insn.OpB
	out.a, err = e.writeRegister(insn.OpA, out.res)
	//
	return out, err
}

func (e *Executor) executeSystem(insn program.Instruction) (outcome, error) {
	switch insn.Opcode {
	case program.ECALL:
		return e.executeEcall(insn)
	case program.EBREAK:
		return outcome{}, &fault.ExecutionError{Kind: fault.Breakpoint, Pc: e.state.Pc}
	default:
		return outcome{}, &fault.ExecutionError{Kind: fault.Unimplemented, Pc: e.state.Pc, Opcode: insn.Opcode.String()}
	}
}

func (e *Executor) executeEcall(insn program.Instruction) (outcome, error) {
	var (
		code = syscall.Code(e.mem.Peek(program.T0))
		out  = outcome{syscall: code, extraCycles: code.ExtraCycles()}
	)
	//
	c, err := e.readRegister(uint8(insn.OpC), cPosition)
	if err != nil {
		return out, err
	}
	//
	b, err := e.readRegister(uint8(insn.OpB), bPosition)
	if err != nil {
		return out, err
	}
	//
	handler, ok := e.registry.Lookup(code)
	//
	switch {
	case !ok:
		return out, &fault.ExecutionError{Kind: fault.UnsupportedSyscall, Pc: e.state.Pc, Code: uint32(code)}
	case e.unconstrained() && code != syscall.Write && code != syscall.EnterUnconstrained &&
		code != syscall.ExitUnconstrained && code != syscall.Halt:
		return out, &fault.ExecutionError{Kind: fault.InvalidSyscallUsage, Pc: e.state.Pc, Code: uint32(code)}
	}
	//
	ctx := newSyscallContext(e, code, handler, b, c)
	//
	res, ok, err := handler.Execute(ctx, code, b, c)
	if err != nil {
		return out, err
	} else if err = ctx.checkRebinds(ok); err != nil {
		return out, err
	} else if !ok {
		res = uint32(code)
	}
	// Exiting an unconstrained block restores the accesses of the entering
	// instruction, and hence its operands.
	if code == syscall.ExitUnconstrained {
		b, c = e.accesses.b.Value, e.accesses.c.Value
		out.syscall, out.restored = syscall.EnterUnconstrained, true
		out.extraCycles = syscall.EnterUnconstrained.ExtraCycles()
	}
	//
	out.a, err = e.writeRegister(insn.OpA, res)
	out.b, out.c, out.res, out.nextPc, out.halted = b, c, res, ctx.nextPc, ctx.halted
	//
	return out, err
}

// Check the alignment of a memory access, and that it refers to a valid data
// address.
func (e *Executor) checkAlignment(op program.Opcode, addr uint32) error {
	var aligned bool
	//
	switch op {
	case program.LH, program.LHU, program.SH:
		aligned = addr%2 == 0
	case program.LW, program.SW:
		aligned = addr%4 == 0
	default:
		aligned = true
	}
	//
	if !aligned || !memory.IsValidAddress(addr&^3) {
		return &fault.ExecutionError{Kind: fault.InvalidMemoryAccess, Pc: e.state.Pc, Opcode: op.String(), Addr: addr}
	}
	//
	return nil
}

// Emit the events of the instruction just executed.
func (e *Executor) emit(insn program.Instruction, out outcome) {
	var (
		pc    = e.state.Pc
		clk   = e.state.Clk
		shard = e.state.Shard
		opA0  = insn.OpA == 0
		op    = insn.Opcode
	)
	//
	cpu := events.CpuEvent{Shard: shard, Clk: clk, Pc: pc, NextPc: out.nextPc, Instruction: insn,
		A: out.a, B: out.b, C: out.c, Res: out.res, ARecord: e.accesses.a, BRecord: e.accesses.b, CRecord: e.accesses.c}
	//
	switch op.Category() {
	case program.ALU:
		e.record.AddAluEvent(events.NewAluEvent(pc, op, out.res, out.b, out.c, opA0))
	case program.Load, program.Store:
		e.record.AddMemInstrEvent(events.MemInstrEvent{Shard: shard, Clk: clk, Pc: pc, Opcode: op,
			A: out.res, B: out.b, C: out.c, OpA0: opA0, Mem: e.accesses.memory})
	case program.Branch:
		eq, lt, gt := Compare(op, out.a, out.b)
		e.record.AddBranchEvent(events.BranchEvent{Shard: shard, Clk: clk, Pc: pc, NextPc: out.nextPc, Opcode: op,
			A: out.a, B: out.b, C: out.c, OpA0: opA0, AEqB: eq, ALtB: lt, AGtB: gt})
	case program.Jump:
		e.record.AddJumpEvent(events.JumpEvent{Shard: shard, Clk: clk, Pc: pc, NextPc: out.nextPc, Opcode: op,
			A: out.res, B: out.b, C: out.c, OpA0: opA0})
	case program.Auipc:
		e.record.AddAuipcEvent(events.AuipcEvent{Shard: shard, Clk: clk, Pc: pc, Opcode: op,
			A: out.res, B: out.b, C: out.c, OpA0: opA0})
	default:
		cpu.Syscall = uint32(out.syscall)
		cpu.ExitCode = e.state.ExitCode
		e.record.AddSyscallEvent(events.SyscallEvent{Shard: shard, Clk: clk, Pc: pc, NextPc: out.nextPc,
			Code: uint32(out.syscall), Arg1: out.b, Arg2: out.c})
	}
	//
	e.record.AddCpuEvent(cpu)
}
