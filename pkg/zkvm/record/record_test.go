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
	"testing"

	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/fault"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Record_01(t *testing.T) {
	r := New(nil, 1)
	//
	for _, op := range []program.Opcode{program.ADD, program.SUB, program.XOR, program.SLL, program.SRA,
		program.SLTU, program.MULHSU, program.REMU} {
		r.AddAluEvent(events.NewAluEvent(0x1000, op, 1, 2, 3, false))
	}
	//
	stats := r.Stats()
	assert.Equal(t, 2, stats["add_sub"])
	assert.Equal(t, 1, stats["bitwise"])
	assert.Equal(t, 1, stats["shift_left"])
	assert.Equal(t, 1, stats["shift_right"])
	assert.Equal(t, 1, stats["lt"])
	assert.Equal(t, 1, stats["mul"])
	assert.Equal(t, 1, stats["divrem"])
	//
	assert.Panics(t, func() { r.AddAluEvent(events.NewAluEvent(0, program.LW, 0, 0, 0, false)) })
}

func Test_Record_02(t *testing.T) {
	r := New(nil, 3)
	r.AddSyscallEvent(events.SyscallEvent{Shard: 3, Code: 0x10})
	r.AddSyscallEvent(events.SyscallEvent{Shard: 3, Code: 0x10})
	r.Seal(Shape{{Chip: "Cpu", Log2Height: 4}})
	//
	assert.Equal(t, uint64(2), r.SyscallCounts[0x10])
	h, ok := r.Shape.Height("Cpu")
	assert.True(t, ok)
	assert.Equal(t, uint(4), h)
	// Sealed records are immutable
	defer func() {
		err, ok := recover().(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, fault.ErrConsistency)
	}()
	r.AddByteLookup(events.U8RangeLookup(1, 2))
}

func Test_Record_03(t *testing.T) {
	r := New(nil, 2)
	r.AddCpuEvent(events.CpuEvent{Shard: 2, Clk: 4, Pc: 0x1000, NextPc: 0x1004,
		Instruction: program.NewIType(program.ADD, 1, 0, 5), A: 5,
		ARecord: events.NewWriteAccess(1, events.MemoryWriteRecord{Value: 5, Shard: 2, Timestamp: 7})})
	r.AddMemoryLocalEvents(events.MemoryLocalEvent{Addr: 1, Final: events.NewMemoryRecord(5, 2, 7)})
	r.AddPrecompileEvent(events.PrecompileEvent{Kind: events.Uint256MulKind,
		Uint256Mul: &events.Uint256MulEvent{XPtr: 0x100, X: []uint32{1, 2}}})
	r.AddByteLookup(events.NewByteLookup(events.ByteXor, 1, 2))
	r.PublicValues.CommittedValueDigest[3] = 0xdeadbeef
	//
	bytes, err := r.MarshalBinary()
	require.NoError(t, err)
	//
	var decoded ExecutionRecord
	require.NoError(t, decoded.UnmarshalBinary(bytes))
	assert.Equal(t, r.CpuEvents, decoded.CpuEvents)
	assert.Equal(t, r.PrecompileEvents, decoded.PrecompileEvents)
	assert.Equal(t, r.PublicValues, decoded.PublicValues)
	// byte-for-byte
	again, err := decoded.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, bytes, again)
}
