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
	"bytes"
	"encoding/binary"
	"maps"
	"slices"
	"strconv"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/go-zkvm/pkg/config"
	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/fault"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
	"github.com/consensys/go-zkvm/pkg/zkvm/syscall"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Counts down from 50 in x1.
var countdown = []string{
	"ADD x1, x0, 50",
	"SUB x1, x1, 1",
	"BNE x1, x0, -4",
	"ECALL",
}

// ============================================================================
// Basic execution
// ============================================================================

// Store then load a single word.
func Test_Executor_01(t *testing.T) {
	p := program.MustAssemble(0x100, nil,
		"ADD x1, x0, 5",
		"ADD x2, x0, 7",
		"ADD x29, x1, x2",
		"ADD x30, x0, 0x1000",
		"SW x29, x30, 0",
		"LW x28, x30, 0",
		"ECALL")
	e, records := check_Run(t, testOptions(), p)
	//
	require.Len(t, records, 1)
	assert.Equal(t, uint32(12), e.Memory().Peek(28))
	//
	r := records[0]
	require.Len(t, r.MemInstrEvents, 2)
	// Exactly one write record
	store := r.MemInstrEvents[0].Mem
	assert.Equal(t, events.WriteAccess, store.Kind)
	assert.Equal(t, uint32(0x1000), store.Addr)
	assert.Equal(t, events.NewMemoryRecord(0, 0, 0), store.Previous())
	assert.Equal(t, events.NewMemoryRecord(12, 1, 16), store.Current())
	// Exactly one read record, linked to the write
	load := r.MemInstrEvents[1].Mem
	assert.Equal(t, events.ReadAccess, load.Kind)
	assert.Equal(t, events.NewMemoryRecord(12, 1, 16), load.Previous())
	assert.Equal(t, events.NewMemoryRecord(12, 1, 20), load.Current())
	// Local memory event for the data address
	var found bool
	//
	for _, ev := range r.MemoryLocalEvents {
		if ev.Addr == 0x1000 {
			found = true
			//
			assert.Equal(t, events.NewMemoryRecord(0, 0, 0), ev.Initial)
			assert.Equal(t, events.NewMemoryRecord(12, 1, 20), ev.Final)
		}
	}
	//
	assert.True(t, found)
	assert.Equal(t, Halted, e.Status())
}

// Signed versus unsigned comparison.
func Test_Executor_02(t *testing.T) {
	p := program.MustAssemble(0x100, nil,
		"ADD x1, x0, -1",
		"ADD x2, x0, 1",
		"BLT x1, x2, 8",
		"ADD x3, x0, 1",
		"BLTU x1, x2, 8",
		"ADD x4, x0, 1",
		"ECALL")
	e, records := check_Run(t, testOptions(), p)
	//
	assert.Equal(t, uint32(0), e.Memory().Peek(3))
	assert.Equal(t, uint32(1), e.Memory().Peek(4))
	//
	branches := records[0].BranchEvents
	require.Len(t, branches, 2)
	assert.True(t, branches[0].Taken())
	assert.Equal(t, uint32(0x110), branches[0].NextPc)
	assert.False(t, branches[1].Taken())
	assert.Equal(t, uint32(0x114), branches[1].NextPc)
}

// Infinite loop exhausts the cycle budget.
func Test_Executor_03(t *testing.T) {
	var opts = testOptions()
	//
	opts.MaxCycles = 100
	e := New(program.MustAssemble(0x100, nil, "JAL x0, 0"), opts)
	_, err := e.Run()
	//
	assert.ErrorIs(t, err, fault.ErrExceededCycleLimit)
	assert.Equal(t, uint64(100), e.State().GlobalClk)
	assert.Equal(t, Faulted, e.Status())
}

// Writes to register 0 are discarded, but still recorded.
func Test_Executor_04(t *testing.T) {
	p := program.MustAssemble(0x100, nil, "ADD x0, x0, 5", "ECALL")
	e, records := check_Run(t, testOptions(), p)
	//
	assert.Equal(t, uint32(0), e.Memory().Peek(0))
	//
	alu := records[0].AddSubEvents
	require.Len(t, alu, 1)
	assert.True(t, alu[0].OpA0)
	assert.Equal(t, uint32(5), alu[0].A)
	assert.Equal(t, uint32(5), alu[0].C)
	// The access itself is recorded as a write of 0
	cpu := records[0].CpuEvents[0]
	assert.Equal(t, events.WriteAccess, cpu.ARecord.Kind)
	assert.Equal(t, uint32(0), cpu.ARecord.Value)
	assert.Equal(t, uint32(0), cpu.A)
	assert.Equal(t, uint32(5), cpu.Res)
}

// Every access within an instruction is strictly ordered.
func Test_Executor_05(t *testing.T) {
	p := program.MustAssemble(0x100, nil,
		"ADD x1, x0, 4",
		"ADD x1, x1, x1",
		"SW x1, x1, 0x2000",
		"LW x1, x1, 0x2000",
		"ECALL")
	_, records := check_Run(t, testOptions(), p)
	//
	for i, cpu := range records[0].CpuEvents {
		assert.Equal(t, uint32(4*i), cpu.Clk)
		assert.Equal(t, uint32(1), cpu.Shard)
		// Positions within the instruction
		if cpu.CRecord.Present() {
			assert.Equal(t, cpu.Clk+1, cpu.CRecord.Timestamp)
		}
		//
		if cpu.BRecord.Present() {
			assert.Equal(t, cpu.Clk+2, cpu.BRecord.Timestamp)
		}
		//
		if cpu.ARecord.Present() {
			assert.Equal(t, cpu.Clk+3, cpu.ARecord.Timestamp)
		}
		// Every access follows its predecessor
		for _, acc := range []events.MemoryAccess{cpu.ARecord, cpu.BRecord, cpu.CRecord} {
			if acc.Present() {
				assert.True(t, acc.Previous().Precedes(acc.Shard, acc.Timestamp))
			}
		}
	}
	// Reading register x1 as both operands
	second := records[0].CpuEvents[1]
	assert.Equal(t, second.CRecord.Current(), second.BRecord.Previous())
	assert.Equal(t, second.BRecord.Current(), second.ARecord.Previous())
	assert.Equal(t, uint32(8), second.A)
}

// Execution is deterministic.
func Test_Executor_06(t *testing.T) {
	var opts = testOptions()
	//
	opts.ShardSize = 32
	_, r1 := check_Run(t, opts, program.MustAssemble(0x100, nil, countdown...))
	_, r2 := check_Run(t, opts, program.MustAssemble(0x100, nil, countdown...))
	//
	b1, err := record.Marshal(r1)
	require.NoError(t, err)
	b2, err := record.Marshal(r2)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(b1, b2))
}

// Tracing can be disabled without affecting the outcome.
func Test_Executor_07(t *testing.T) {
	var opts = testOptions()
	//
	opts.Trace = false
	e, records := check_Run(t, opts, program.MustAssemble(0x100, nil, countdown...))
	//
	require.Len(t, records, 1)
	assert.Empty(t, records[0].CpuEvents)
	assert.Empty(t, records[0].MemoryLocalEvents)
	assert.Equal(t, uint64(102), e.State().GlobalClk)
}

// ============================================================================
// Sharding
// ============================================================================

func Test_Shard_01(t *testing.T) {
	var opts = testOptions()
	// Shards split once the clock reaches 80 (since up to 48 extra cycles)
	opts.ShardSize = 32
	e, records := check_Run(t, opts, program.MustAssemble(0x100, nil, countdown...))
	//
	require.Len(t, records, 6)
	//
	for i, r := range records {
		assert.Equal(t, uint32(i+1), r.Shard())
		//
		for j, cpu := range r.CpuEvents {
			assert.Equal(t, uint32(4*j), cpu.Clk)
			assert.Equal(t, r.Shard(), cpu.Shard)
		}
		//
		if i+1 < len(records) {
			assert.Len(t, r.CpuEvents, 20)
			assert.Equal(t, r.PublicValues.NextPc, records[i+1].PublicValues.StartPc)
			assert.Empty(t, r.MemoryInitEvents)
		}
	}
	//
	assert.Equal(t, uint32(0x100), records[0].PublicValues.StartPc)
	assert.Equal(t, uint32(0), records[5].PublicValues.NextPc)
	assert.Len(t, records[5].CpuEvents, 2)
	check_MemoryChain(t, e, records)
}

// Shards split with accesses at each boundary remain linked.
func Test_Shard_02(t *testing.T) {
	var opts = testOptions()
	//
	opts.ShardSize = 16
	p := program.MustAssemble(0x100, nil,
		"ADD x1, x0, 20",
		"SW x1, x0, 0x2000",
		"LW x2, x0, 0x2000",
		"SUB x1, x1, 1",
		"BNE x1, x0, -12",
		"ECALL")
	e, records := check_Run(t, opts, p)
	//
	assert.Greater(t, len(records), 2)
	check_MemoryChain(t, e, records)
}

// ============================================================================
// Faults
// ============================================================================

func Test_Fault_01(t *testing.T) {
	check_Fault(t, fault.ErrInvalidMemoryAccess, "LW x1, x0, 0x2002", "ECALL")
	check_Fault(t, fault.ErrInvalidMemoryAccess, "LH x1, x0, 0x2001", "ECALL")
	check_Fault(t, fault.ErrInvalidMemoryAccess, "SW x1, x0, 8", "ECALL")
	check_Fault(t, fault.ErrInvalidMemoryAccess, "SB x1, x0, -4", "ECALL")
	check_Fault(t, fault.ErrUnsupportedSyscall, "ADD x5, x0, 0x99", "ECALL")
	check_Fault(t, fault.ErrBreakpoint, "EBREAK")
	check_Fault(t, fault.ErrUnimplemented, "UNIMP")
	check_Fault(t, fault.ErrFetchOutOfBounds, "ADD x1, x0, 1")
	check_Fault(t, fault.ErrFetchOutOfBounds, "JAL x0, 0x100")
}

func Test_Fault_02(t *testing.T) {
	e := New(program.MustAssemble(0x100, nil, "ADD x10, x0, 3", "ECALL"), testOptions())
	_, err := e.Run()
	//
	assert.ErrorIs(t, err, fault.ErrHaltWithNonZeroExitCode)
	assert.Equal(t, uint32(3), e.State().ExitCode)
	//
	var xerr *fault.ExecutionError
	//
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, uint32(0x104), xerr.Pc)
}

// Unaligned byte accesses are permitted.
func Test_Fault_03(t *testing.T) {
	p := program.MustAssemble(0x100, map[uint32]uint32{0x2000: 0x80402010},
		"LB x1, x0, 0x2003",
		"LBU x2, x0, 0x2003",
		"LHU x3, x0, 0x2002",
		"SB x2, x0, 0x2001",
		"LW x4, x0, 0x2000",
		"ECALL")
	e, _ := check_Run(t, testOptions(), p)
	//
	assert.Equal(t, uint32(0xFFFFFF80), e.Memory().Peek(1))
	assert.Equal(t, uint32(0x80), e.Memory().Peek(2))
	assert.Equal(t, uint32(0x8040), e.Memory().Peek(3))
	assert.Equal(t, uint32(0x80408010), e.Memory().Peek(4))
}

// Only HALT terminates, hence jumping to zero faults on the next fetch.
func Test_Fault_04(t *testing.T) {
	check_Fault(t, fault.ErrFetchOutOfBounds, "JALR x0, x0, 0")
	check_Fault(t, fault.ErrFetchOutOfBounds, "ADD x1, x0, 0", "JALR x0, x1, 0", "ECALL")
	//
	e := New(program.MustAssemble(0x100, nil, "JALR x0, x0, 0"), testOptions())
	_, err := e.Run()
	//
	var xerr *fault.ExecutionError
	//
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, uint32(0), xerr.Pc)
	assert.Equal(t, Faulted, e.Status())
}

// Writes whose range extends beyond the address space.
func Test_Fault_05(t *testing.T) {
	check_Fault(t, fault.ErrInvalidMemoryAccess, "ADD x10, x0, 1", "ADD x11, x0, 0x2000",
		"ADD x12, x0, 0xFFFFFFFF", "ADD x5, x0, 2", "ECALL")
	check_Fault(t, fault.ErrInvalidMemoryAccess, "ADD x10, x0, 1", "ADD x11, x0, 0x77FFFFFC",
		"ADD x12, x0, 5", "ADD x5, x0, 2", "ECALL")
}

// ============================================================================
// Unconstrained blocks
// ============================================================================

var unconstrainedBlock = []string{
	"ADD x5, x0, 3",
	"ECALL",
	"BEQ x5, x0, 16",
	"ADD x6, x0, 99",
	"ADD x5, x0, 4",
	"ECALL",
	"ADD x5, x0, 0",
	"ECALL",
}

func Test_Unconstrained_01(t *testing.T) {
	e, records := check_Run(t, testOptions(), program.MustAssemble(0x100, nil, unconstrainedBlock...))
	// Effects of the block are discarded
	assert.Equal(t, uint32(0), e.Memory().Peek(6))
	assert.Equal(t, uint64(5), e.State().GlobalClk)
	//
	cpus := records[0].CpuEvents
	require.Len(t, cpus, 5)
	// Entering instruction returns 0 on exit
	assert.Equal(t, uint32(0x104), cpus[1].Pc)
	assert.Equal(t, uint32(0x108), cpus[1].NextPc)
	assert.Equal(t, uint32(syscall.EnterUnconstrained), cpus[1].Syscall)
	assert.Equal(t, uint32(0), cpus[1].A)
	assert.Equal(t, uint32(3), cpus[1].ARecord.PrevValue)
	// Block skipped
	assert.Equal(t, uint32(0x118), cpus[2].NextPc)
	// No events from within the block
	for _, cpu := range cpus {
		assert.NotEqual(t, uint32(0x10c), cpu.Pc)
	}
	//
	check_MemoryChain(t, e, records)
}

func Test_Unconstrained_02(t *testing.T) {
	// Halting within block
	check_Fault(t, fault.ErrEndInUnconstrained, "ADD x5, x0, 3", "ECALL", "ADD x5, x0, 0", "ECALL")
	// Jumping to zero within block
	check_Fault(t, fault.ErrFetchOutOfBounds, "ADD x5, x0, 3", "ECALL", "JALR x0, x0, 0")
	// Other syscalls within block
	check_Fault(t, fault.ErrInvalidSyscallUsage, "ADD x5, x0, 3", "ECALL", "ADD x5, x0, 0x10", "ECALL")
	// Exiting without entering
	check_Fault(t, fault.ErrInvalidSyscallUsage, "ADD x5, x0, 4", "ECALL")
}

// Output written within a block is kept.
func Test_Unconstrained_03(t *testing.T) {
	var stdout bytes.Buffer
	//
	p := program.MustAssemble(0x100, imageOf(0x2000, []byte("hi\n")),
		"ADD x5, x0, 3",
		"ECALL",
		"BEQ x5, x0, 32",
		"ADD x10, x0, 1",
		"ADD x11, x0, 0x2000",
		"ADD x12, x0, 3",
		"ADD x5, x0, 2",
		"ECALL",
		"ADD x5, x0, 4",
		"ECALL",
		"ADD x5, x0, 0",
		"ADD x10, x0, 0",
		"ECALL")
	e := New(p, testOptions()).WithOutput(&stdout, &stdout)
	_, err := e.Run()
	//
	require.NoError(t, err)
	assert.Equal(t, "hi\n", stdout.String())
}

// ============================================================================
// Syscalls
// ============================================================================

// Hints are placed into memory as initial values.
func Test_Syscall_01(t *testing.T) {
	p := program.MustAssemble(0x100, nil,
		"ADD x5, x0, 0xF0",
		"ECALL",
		"ADD x7, x5, 0",
		"ADD x10, x0, 0x2000",
		"ADD x11, x0, 8",
		"ADD x5, x0, 0xF1",
		"ECALL",
		"LW x12, x0, 0x2000",
		"LW x13, x0, 0x2004",
		"ADD x5, x0, 0xF0",
		"ECALL",
		"ADD x8, x5, 0",
		"ADD x5, x0, 0",
		"ADD x10, x0, 0",
		"ECALL")
	e := New(p, testOptions()).WithHints([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	records, err := e.Run()
	//
	require.NoError(t, err)
	assert.Equal(t, uint32(8), e.Memory().Peek(7))
	assert.Equal(t, uint32(0x04030201), e.Memory().Peek(12))
	assert.Equal(t, uint32(0x08070605), e.Memory().Peek(13))
	assert.Equal(t, uint32(0xFFFFFFFF), e.Memory().Peek(8))
	// Initial value bound by global memory init
	var found bool
	//
	for _, ev := range records[len(records)-1].MemoryInitEvents {
		if ev.Addr == 0x2000 {
			found = true
			//
			assert.Equal(t, uint32(0x04030201), ev.Value)
			assert.Equal(t, uint32(0), ev.Timestamp)
		}
	}
	//
	assert.True(t, found)
	//
	check_MemoryChain(t, e, records)
}

// Public values and committed digest.
func Test_Syscall_02(t *testing.T) {
	var digest = PublicValuesDigest([]byte("abcd"))
	//
	lines := []string{
		"ADD x10, x0, 13",
		"ADD x11, x0, 0x2000",
		"ADD x12, x0, 4",
		"ADD x5, x0, 2",
		"ECALL",
	}
	//
	for i, w := range digest {
		lines = append(lines, "ADD x10, x0, "+itoa(uint32(i)), "ADD x11, x0, "+itoa(w), "ADD x5, x0, 0x10", "ECALL")
	}
	//
	lines = append(lines, "ADD x5, x0, 0", "ADD x10, x0, 0", "ECALL")
	//
	e, records := check_Run(t, testOptions(), program.MustAssemble(0x100, imageOf(0x2000, []byte("abcd")), lines...))
	//
	assert.Equal(t, []byte("abcd"), e.State().PublicValues)
	assert.Equal(t, digest, records[0].PublicValues.CommittedValueDigest)
	assert.Equal(t, uint64(8), records[0].SyscallCounts[uint32(syscall.Commit)])
}

// Hooks feed the hint stream.
func Test_Syscall_03(t *testing.T) {
	p := program.MustAssemble(0x100, imageOf(0x2000, []byte("ab")),
		"ADD x10, x0, 20",
		"ADD x11, x0, 0x2000",
		"ADD x12, x0, 2",
		"ADD x5, x0, 2",
		"ECALL",
		"ADD x5, x0, 0xF0",
		"ECALL",
		"ADD x7, x5, 0",
		"ADD x5, x0, 0",
		"ADD x10, x0, 0",
		"ECALL")
	//
	e := New(p, testOptions()).WithHook(20, func(data []byte) [][]byte {
		return [][]byte{append(slices.Repeat(data, 2), 'c')}
	})
	//
	_, err := e.Run()
	require.NoError(t, err)
	// Hint of length 5 pushed by hook, but never read
	assert.Equal(t, uint32(5), e.Memory().Peek(7))
	assert.Len(t, e.State().Hints, 1)
}

// SHA-256 message schedule extension.
func Test_Syscall_04(t *testing.T) {
	var (
		image = make(map[uint32]uint32)
		w     [64]uint32
	)
	//
	for i := range 16 {
		w[i] = uint32(0x01010101 * (i + 1))
		image[0x4000+4*uint32(i)] = w[i]
	}
	//
	for i := 16; i < 64; i++ {
		s0 := rotr(w[i-15], 7) ^ rotr(w[i-15], 18) ^ (w[i-15] >> 3)
		s1 := rotr(w[i-2], 17) ^ rotr(w[i-2], 19) ^ (w[i-2] >> 10)
		w[i] = w[i-16] + s0 + w[i-7] + s1
	}
	//
	p := program.MustAssemble(0x100, image,
		"ADD x10, x0, 0x4000",
		"ADD x11, x0, 0",
		"ADD x5, x0, 0x00300105",
		"ECALL",
		"ADD x5, x0, 0",
		"ADD x10, x0, 0",
		"ECALL")
	e, records := check_Run(t, testOptions(), p)
	//
	for i := range 64 {
		assert.Equal(t, w[i], e.Memory().Peek(0x4000+4*uint32(i)), "w[%d]", i)
	}
	//
	precompiles := records[0].PrecompilesOf(events.ShaExtendKind)
	require.Len(t, precompiles, 1)
	assert.Len(t, precompiles[0].Accesses(), 5*events.ShaExtendSteps)
	// Extra cycles consumed
	assert.Equal(t, uint32(4*4+48), records[0].CpuEvents[4].Clk)
	check_MemoryChain(t, e, records)
}

// 256bit modular multiplication.
func Test_Syscall_05(t *testing.T) {
	p := program.MustAssemble(0x100, map[uint32]uint32{0x3000: 2, 0x3020: 3, 0x3040: 5},
		"ADD x10, x0, 0x3000",
		"ADD x11, x0, 0x3020",
		"ADD x5, x0, 0x0001011D",
		"ECALL",
		"ADD x5, x0, 0",
		"ADD x10, x0, 0",
		"ECALL")
	e, records := check_Run(t, testOptions(), p)
	//
	assert.Equal(t, uint32(1), e.Memory().Peek(0x3000))
	//
	precompiles := records[0].PrecompilesOf(events.Uint256MulKind)
	require.Len(t, precompiles, 1)
	ev := precompiles[0].Uint256Mul
	assert.Equal(t, uint32(2), ev.XAccess[0].PrevValue)
	assert.Equal(t, uint32(1), ev.XAccess[0].Value)
	// Writes follow reads
	assert.Equal(t, ev.YAccess[0].Timestamp+1, ev.XAccess[0].Timestamp)
}

// Invalid arguments to precompiles.
func Test_Syscall_06(t *testing.T) {
	// Pointer into registers
	check_Fault(t, fault.ErrInvalidMemoryAccess, "ADD x10, x0, 4", "ADD x11, x0, 0x3000",
		"ADD x5, x0, 0x0001011D", "ECALL")
	// Hint length mismatch
	check_Fault(t, fault.ErrInvalidSyscallUsage, "ADD x10, x0, 0x2000", "ADD x11, x0, 4", "ADD x5, x0, 0xF1",
		"ECALL")
}

// BN254 point addition and doubling.
func Test_Syscall_07(t *testing.T) {
	var g, g2, g3 bn254.G1Affine
	//
	g.X.SetOne()
	g.Y.SetUint64(2)
	g2.Double(&g)
	g3.Add(&g2, &g)
	//
	image := bn254Image(0x3000, &g)
	maps.Copy(image, bn254Image(0x3100, &g))
	//
	p := program.MustAssemble(0x100, image,
		"ADD x10, x0, 0x3000",
		"ADD x5, x0, 0x0000010F",
		"ECALL",
		"ADD x10, x0, 0x3000",
		"ADD x11, x0, 0x3100",
		"ADD x5, x0, 0x0001010E",
		"ECALL",
		"ADD x5, x0, 0",
		"ADD x10, x0, 0",
		"ECALL")
	e, records := check_Run(t, testOptions(), p)
	//
	for addr, word := range bn254Image(0x3000, &g3) {
		assert.Equal(t, word, e.Memory().Peek(addr), "address 0x%x", addr)
	}
	//
	precompiles := records[0].PrecompilesOf(events.EllipticCurveKind)
	require.Len(t, precompiles, 2)
	assert.Empty(t, precompiles[0].Curve.QAccess)
	assert.Len(t, precompiles[1].Curve.QAccess, 16)
	assert.Len(t, precompiles[1].Curve.PAccess, 16)
}

// Point not on curve.
func Test_Syscall_08(t *testing.T) {
	p := program.MustAssemble(0x100, map[uint32]uint32{0x3000: 1, 0x3020: 1},
		"ADD x10, x0, 0x3000",
		"ADD x5, x0, 0x0000010F",
		"ECALL")
	_, err := New(p, testOptions()).Run()
	//
	assert.ErrorIs(t, err, fault.ErrInvalidSyscallUsage)
}

// ============================================================================
// Unconstrained access
// ============================================================================

// Syscall code of the test handlers.
const testCode = syscall.Code(0x99)

// peekHandler reads the word at its first argument without a record, possibly
// binding it through a constrained read, and returns it.
type peekHandler struct {
	rebinds, bind, returns bool
}

func (h *peekHandler) Rebinds() bool {
	return h.rebinds
}

func (h *peekHandler) Execute(ctx syscall.Context, _ syscall.Code, addr, _ uint32) (uint32, bool, error) {
	peeker, err := ctx.Unconstrained()
	if err != nil {
		return 0, false, err
	}
	//
	word, err := peeker.Peek(addr)
	if err != nil {
		return 0, false, err
	}
	//
	if h.bind {
		if _, err := ctx.ReadWord(addr); err != nil {
			return 0, false, err
		}
	}
	//
	return word.Value(), h.returns, nil
}

// registerHandler returns the value of a2, read without a record.
type registerHandler struct{}

func (h *registerHandler) Execute(ctx syscall.Context, _ syscall.Code, _, _ uint32) (uint32, bool, error) {
	peeker, err := ctx.Unconstrained()
	if err != nil {
		return 0, false, err
	}
	//
	return peeker.Register(program.A2).Value(), true, nil
}

// Handlers without the capability are refused.
func Test_Capability_01(t *testing.T) {
	check_Capability(t, &registerHandler{}, fault.ErrConsistency)
}

// Values read without a record must be bound when the handler rebinds.
func Test_Capability_02(t *testing.T) {
	check_Capability(t, &peekHandler{rebinds: true, returns: true}, fault.ErrConsistency)
	check_Capability(t, &peekHandler{rebinds: true}, fault.ErrConsistency)
	//
	e := check_Capability(t, &peekHandler{rebinds: true, bind: true, returns: true}, nil)
	assert.Equal(t, uint32(42), e.Memory().Peek(6))
}

// Handlers which do not rebind cannot return a value.
func Test_Capability_03(t *testing.T) {
	check_Capability(t, &peekHandler{returns: true}, fault.ErrConsistency)
	check_Capability(t, &peekHandler{bind: true, returns: true}, fault.ErrConsistency)
	//
	e := check_Capability(t, &peekHandler{}, nil)
	assert.Equal(t, uint32(testCode), e.Memory().Peek(6))
}

// ============================================================================
// Cycle tracking
// ============================================================================

func Test_CycleTracker_01(t *testing.T) {
	var (
		out bytes.Buffer
		e   = New(program.MustAssemble(0x100, nil, "ECALL"), testOptions())
		w   = e.tracker.writer(e, &out)
	)
	//
	_, err := w.Write([]byte("hello\ncycle-tracker-start: loop\npart"))
	require.NoError(t, err)
	//
	e.state.GlobalClk = 42
	_, err = w.Write([]byte("ial\ncycle-tracker-end: loop\n"))
	require.NoError(t, err)
	//
	e.tracker.flush(&out)
	assert.Equal(t, "hello\npartial\n", out.String())
	assert.Equal(t, uint64(42), e.tracker.Totals()["loop"])
}

// ============================================================================
// Checkpoints
// ============================================================================

func Test_Checkpoint_01(t *testing.T) {
	var opts = testOptions()
	//
	opts.ShardSize = 32
	p := program.MustAssemble(0x100, nil, countdown...)
	_, expected := check_Run(t, opts, p)
	// Execute part way, then checkpoint
	e := New(p, opts)
	_, err := e.Execute(37)
	require.NoError(t, err)
	//
	cp, err := e.Checkpoint()
	require.NoError(t, err)
	//
	data, err := cp.MarshalBinary()
	require.NoError(t, err)
	//
	var restored Checkpoint
	require.NoError(t, restored.UnmarshalBinary(data))
	// Continue from restored checkpoint
	e2 := Recover(p, &restored, opts)
	rest, err := e2.Run()
	require.NoError(t, err)
	//
	actual := append(e.TakeRecords(), rest...)
	require.Len(t, actual, len(expected))
	//
	for i := range expected {
		b1, err := expected[i].MarshalBinary()
		require.NoError(t, err)
		b2, err := actual[i].MarshalBinary()
		require.NoError(t, err)
		assert.Equal(t, b1, b2, "shard %d", i+1)
	}
}

func Test_Checkpoint_02(t *testing.T) {
	e := New(program.MustAssemble(0x100, nil, unconstrainedBlock...), testOptions())
	_, err := e.Execute(3)
	require.NoError(t, err)
	// Inside unconstrained block
	_, err = e.Checkpoint()
	assert.Error(t, err)
}

// ============================================================================
// Helpers
// ============================================================================

func testOptions() config.Options {
	opts := config.Default()
	opts.Parallelism = 1
	//
	return opts
}

func check_Run(t *testing.T, opts config.Options, p *program.Program) (*Executor, []*record.ExecutionRecord) {
	t.Helper()
	//
	e := New(p, opts)
	records, err := e.Run()
	require.NoError(t, err)
	require.Equal(t, Halted, e.Status())
	//
	return e, records
}

// Run a handler on the word at 0x2000 (holding 42), copying its result into
// x6.  The run either completes or fails with an expected error.
func check_Capability(t *testing.T, handler syscall.Handler, expected error) *Executor {
	t.Helper()
	//
	p := program.MustAssemble(0x100, map[uint32]uint32{0x2000: 42},
		"ADD x10, x0, 0x2000",
		"ADD x12, x0, 7",
		"ADD x5, x0, 0x99",
		"ECALL",
		"ADD x6, x5, 0",
		"ADD x5, x0, 0",
		"ADD x10, x0, 0",
		"ECALL")
	e := New(p, testOptions()).WithRegistry(syscall.Default().Register(handler, testCode))
	_, err := e.Run()
	//
	if expected != nil {
		assert.ErrorIs(t, err, expected)
		assert.Equal(t, Faulted, e.Status())
	} else {
		require.NoError(t, err)
		assert.Equal(t, Halted, e.Status())
	}
	//
	return e
}

func check_Fault(t *testing.T, expected error, lines ...string) {
	t.Helper()
	//
	e := New(program.MustAssemble(0x100, nil, lines...), testOptions())
	_, err := e.Run()
	//
	assert.ErrorIs(t, err, expected, "%v", lines)
	assert.Equal(t, Faulted, e.Status())
}

// Check every local memory event links to the previous access of that address
// (in an earlier shard, or the initial value), and that the global finalize
// events agree with the last access.
func check_MemoryChain(t *testing.T, e *Executor, records []*record.ExecutionRecord) {
	t.Helper()
	//
	var last = make(map[uint32]events.MemoryRecord)
	//
	for _, r := range records {
		for _, ev := range r.MemoryLocalEvents {
			prev, ok := last[ev.Addr]
			if !ok {
				prev = events.NewMemoryRecord(e.Memory().Initial(ev.Addr), 0, 0)
			}
			//
			assert.Equal(t, prev, ev.Initial, "address 0x%x in shard %d", ev.Addr, r.Shard())
			assert.True(t, ev.Initial.Precedes(ev.Final.Shard, ev.Final.Timestamp))
			assert.Equal(t, r.Shard(), ev.Final.Shard)
			//
			last[ev.Addr] = ev.Final
		}
	}
	//
	final := records[len(records)-1]
	assert.Len(t, final.MemoryFinalizeEvents, len(last))
	//
	for _, ev := range final.MemoryFinalizeEvents {
		assert.Equal(t, last[ev.Addr], events.NewMemoryRecord(ev.Value, ev.Shard, ev.Timestamp))
	}
}

func imageOf(addr uint32, data []byte) map[uint32]uint32 {
	var image = make(map[uint32]uint32)
	//
	for i := 0; i < len(data); i += 4 {
		var word [4]byte
		//
		copy(word[:], data[i:])
		image[addr+uint32(i)] = binary.LittleEndian.Uint32(word[:])
	}
	//
	return image
}

// Encode a point as 16 little endian words (x then y).
func bn254Image(addr uint32, p *bn254.G1Affine) map[uint32]uint32 {
	var (
		x, y  = p.X.Bytes(), p.Y.Bytes()
		image = make(map[uint32]uint32)
	)
	//
	for i, coord := range [][32]byte{x, y} {
		for j := range 8 {
			// words are little endian, most significant last
			word := binary.BigEndian.Uint32(coord[28-4*j:])
			image[addr+uint32(32*i+4*j)] = word
		}
	}
	//
	return image
}

func itoa(v uint32) string {
	return "0x" + strconv.FormatUint(uint64(v), 16)
}

func rotr(x uint32, n uint) uint32 {
	return x>>n | x<<(32-n)
}
