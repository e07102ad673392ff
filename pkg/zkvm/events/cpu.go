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

import "github.com/consensys/go-zkvm/pkg/zkvm/program"

// UnusedPc is the pc recorded for ALU events which do not originate from an
// instruction, but are emitted as dependencies of other events.
const UnusedPc = 1

// CpuEvent records the execution of a single instruction.  Operand values
// are those observed after execution, with A zeroed when the destination is
// register 0.
type CpuEvent struct {
	_           struct{} `cbor:",toarray"`
	Shard       uint32
	Clk         uint32
	Pc          uint32
	NextPc      uint32
	Instruction program.Instruction
	A           uint32
	B           uint32
	C           uint32
	// Value computed by the instruction, which differs from A only when the
	// destination is x0.
	Res     uint32
	ARecord MemoryAccess
	BRecord MemoryAccess
	CRecord MemoryAccess
	// Syscall code (for ECALL only)
	Syscall  uint32
	ExitCode uint32
}

// AluEvent records an arithmetic or logical operation.  When OpA0 holds, the
// destination was register 0 and A is zero regardless of the operation.
type AluEvent struct {
	_      struct{} `cbor:",toarray"`
	Pc     uint32
	Opcode program.Opcode
	A      uint32
	B      uint32
	C      uint32
	OpA0   bool
}

// NewAluEvent constructs an ALU event.
func NewAluEvent(pc uint32, op program.Opcode, a, b, c uint32, opA0 bool) AluEvent {
	return AluEvent{Pc: pc, Opcode: op, A: a, B: b, C: c, OpA0: opA0}
}

// MemInstrEvent records a load or store, together with the memory access
// performed.
type MemInstrEvent struct {
	_      struct{} `cbor:",toarray"`
	Shard  uint32
	Clk    uint32
	Pc     uint32
	Opcode program.Opcode
	A      uint32
	B      uint32
	C      uint32
	OpA0   bool
	Mem    MemoryAccess
}

// Addr returns the (unaligned) effective address.
func (e *MemInstrEvent) Addr() uint32 {
	return e.B + e.C
}

// BranchEvent records a conditional branch, along with the outcomes of the
// comparison between its operands (signed or unsigned, as determined by the
// opcode).
type BranchEvent struct {
	_      struct{} `cbor:",toarray"`
	Shard  uint32
	Clk    uint32
	Pc     uint32
	NextPc uint32
	Opcode program.Opcode
	A      uint32
	B      uint32
	C      uint32
	OpA0   bool
	AEqB   bool
	ALtB   bool
	AGtB   bool
}

// Taken determines whether the branch was taken.
func (e *BranchEvent) Taken() bool {
	switch e.Opcode {
	case program.BEQ:
		return e.AEqB
	case program.BNE:
		return !e.AEqB
	case program.BLT, program.BLTU:
		return e.ALtB
	case program.BGE, program.BGEU:
		return !e.ALtB
	default:
		panic("not a branch")
	}
}

// JumpEvent records a JAL or JALR.
type JumpEvent struct {
	_      struct{} `cbor:",toarray"`
	Shard  uint32
	Clk    uint32
	Pc     uint32
	NextPc uint32
	Opcode program.Opcode
	A      uint32
	B      uint32
	C      uint32
	OpA0   bool
}

// AuipcEvent records an AUIPC.
type AuipcEvent struct {
	_      struct{} `cbor:",toarray"`
	Shard  uint32
	Clk    uint32
	Pc     uint32
	Opcode program.Opcode
	A      uint32
	B      uint32
	C      uint32
	OpA0   bool
}

// SyscallEvent records a system call.
type SyscallEvent struct {
	_      struct{} `cbor:",toarray"`
	Shard  uint32
	Clk    uint32
	Pc     uint32
	NextPc uint32
	Code   uint32
	Arg1   uint32
	Arg2   uint32
}
