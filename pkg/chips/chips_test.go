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
package chips

import (
	"encoding/binary"
	"fmt"
	"io"
	"maps"
	"math/bits"
	"slices"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/go-zkvm/pkg/air"
	"github.com/consensys/go-zkvm/pkg/config"
	"github.com/consensys/go-zkvm/pkg/util/field/babybear"
	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/executor"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every arithmetic and logical operation, including signed edge cases.
var aluProgram = []string{
	"ADD x6, x0, -7",
	"ADD x7, x0, 3",
	"ADD x8, x0, 0x80000000",
	"ADD x9, x0, -1",
	"ADD x10, x6, x7",
	"SUB x11, x6, x7",
	"SUB x11, x7, x6",
	"XOR x12, x6, x7",
	"OR x12, x6, 0xF0",
	"AND x12, x6, x7",
	"SLL x13, x6, x7",
	"SLL x13, x6, 35",
	"SLL x13, x9, 31",
	"SRL x14, x6, x7",
	"SRL x14, x6, 12",
	"SRA x15, x6, x7",
	"SRA x15, x6, 20",
	"SRA x15, x8, 0",
	"SLT x16, x6, x7",
	"SLT x16, x7, x6",
	"SLT x16, x7, x7",
	"SLTU x17, x6, x7",
	"SLTU x17, x7, x6",
	"MUL x18, x6, x7",
	"MULH x19, x6, x7",
	"MULH x19, x8, x8",
	"MULHU x20, x6, x7",
	"MULHSU x21, x6, x7",
	"MULHSU x21, x7, x6",
	"DIV x22, x6, x7",
	"DIV x22, x8, x9",
	"DIV x22, x6, x0",
	"DIVU x23, x6, x7",
	"DIVU x23, x6, x0",
	"REM x24, x6, x7",
	"REM x24, x6, x0",
	"REMU x25, x6, x7",
	"REMU x25, x7, x0",
	"ADD x0, x6, x7",
	"MUL x0, x6, x7",
	"ADD x10, x0, 0",
	"ADD x5, x0, 0",
	"ECALL",
}

// Every load and store, at every offset permitted.
var memoryProgram = []string{
	"ADD x6, x0, 0x2000",
	"ADD x7, x0, -1234567",
	"SW x7, x6, 0",
	"SH x7, x6, 4",
	"SH x7, x6, 6",
	"SB x7, x6, 8",
	"SB x7, x6, 9",
	"SB x7, x6, 10",
	"SB x7, x6, 11",
	"LW x8, x6, 0",
	"LH x9, x6, 0",
	"LH x9, x6, 2",
	"LHU x11, x6, 2",
	"LB x12, x6, 1",
	"LB x12, x6, 3",
	"LBU x13, x6, 3",
	"LBU x13, x6, 8",
	"LW x0, x6, 4",
	"LW x14, x6, 0x1000",
	"ADD x5, x0, 0",
	"ECALL",
}

// Every branch (taken and not), both jumps and AUIPC.
var controlProgram = []string{
	"ADD x6, x0, -1",  // 0x100
	"ADD x7, x0, 1",   // 0x104
	"BLT x6, x7, 8",   // 0x108 (taken)
	"ADD x8, x0, 1",   // 0x10c
	"BLTU x6, x7, 8",  // 0x110 (not taken)
	"BEQ x6, x6, 8",   // 0x114 (taken)
	"ADD x8, x0, 2",   // 0x118
	"BNE x6, x6, 8",   // 0x11c (not taken)
	"BGE x7, x6, 8",   // 0x120 (taken)
	"ADD x8, x0, 3",   // 0x124
	"BGEU x7, x6, 8",  // 0x128 (not taken)
	"JAL x1, 8",       // 0x12c
	"ADD x8, x0, 4",   // 0x130
	"AUIPC x9, 12",    // 0x134
	"JALR x0, x9, 1",  // 0x138
	"ADD x8, x0, 5",   // 0x13c
	"ADD x7, x7, 1",   // 0x140
	"SLTU x10, x7, 3", // 0x144
	"BNE x10, x0, -8", // 0x148 (taken once)
	"ADD x10, x0, 0",  // 0x14c
	"ADD x5, x0, 0",   // 0x150
	"ECALL",           // 0x154
}

// Counts down from 50 in x1, storing the counter each time.
var countdownProgram = []string{
	"ADD x1, x0, 50",
	"SW x1, x0, 0x2000",
	"LW x2, x0, 0x2000",
	"SUB x1, x2, 1",
	"BNE x1, x0, -12",
	"ECALL",
}

// ============================================================================
// Construction
// ============================================================================

func Test_RiscvChips_01(t *testing.T) {
	var names = make(map[string]bool)
	//
	for _, c := range RiscvChips() {
		mc, err := air.NewMachineChip(c)
		require.NoError(t, err, c.Name())
		//
		assert.False(t, names[c.Name()], "duplicate chip %s", c.Name())
		assert.NotZero(t, mc.Width(), c.Name())
		assert.NotEmpty(t, mc.Constraints(), c.Name())
		//
		names[c.Name()] = true
	}
}

// Every chip either sends or receives something.
func Test_RiscvChips_02(t *testing.T) {
	for _, c := range RiscvChips() {
		mc, err := air.NewMachineChip(c)
		require.NoError(t, err)
		//
		interactions, _ := mc.Interactions()
		assert.NotEmpty(t, interactions, c.Name())
	}
}

// Every column has a distinct name.
func Test_RiscvChips_03(t *testing.T) {
	for _, c := range RiscvChips() {
		var columns = c.(interface{ Columns() []string }).Columns()
		//
		assert.Len(t, columns, int(c.Width()), c.Name())
		assert.Equal(t, len(columns), len(slices.Compact(slices.Sorted(slices.Values(columns)))), c.Name())
	}
}

// ============================================================================
// Byte table
// ============================================================================

// Spot check of the preprocessed byte table.
func Test_Byte_01(t *testing.T) {
	var (
		chip = NewByteChip()
		prep = chip.GeneratePreprocessedTrace(nil)
		row  = uint(0xF0<<8 | 0x0F)
	)
	//
	require.Equal(t, uint(events.ByteTableRows), prep.Height())
	assert.Equal(t, uint64(0xF0), prep.Get(row, chip.cols.b).Uint64())
	assert.Equal(t, uint64(0x0F), prep.Get(row, chip.cols.c).Uint64())
	assert.Equal(t, uint64(0x00), prep.Get(row, chip.cols.and).Uint64())
	assert.Equal(t, uint64(0xFF), prep.Get(row, chip.cols.or).Uint64())
	assert.Equal(t, uint64(0xFF), prep.Get(row, chip.cols.xor).Uint64())
	assert.Equal(t, uint64(1), prep.Get(row, chip.cols.msb).Uint64())
	assert.Equal(t, uint64(0), prep.Get(row, chip.cols.ltu).Uint64())
	// 0xF0 >> 7 leaves 1, carrying out 0x70
	assert.Equal(t, uint64(0x1E), prep.Get(0xF003, chip.cols.shr).Uint64())
	assert.Equal(t, uint64(0x00), prep.Get(0xF003, chip.cols.shrCarry).Uint64())
	assert.Equal(t, uint64(0x01), prep.Get(0xF007, chip.cols.shr).Uint64())
	assert.Equal(t, uint64(0x70), prep.Get(0xF007, chip.cols.shrCarry).Uint64())
}

// Multiplicities count lookups, with 16bit range checks indexed by value.
func Test_Byte_02(t *testing.T) {
	var (
		chip = NewByteChip()
		r    = record.New(program.MustAssemble(0x100, nil, "ECALL"), 1)
	)
	//
	r.AddByteLookup(events.NewByteLookup(events.ByteXor, 3, 5), events.NewByteLookup(events.ByteXor, 3, 5),
		events.U16RangeLookup(0x1234), events.U8RangeLookup(1, 2))
	//
	trace := chip.GenerateTrace(r)
	assert.Equal(t, uint64(2), trace.Get(3<<8|5, chip.mult[events.ByteXor]).Uint64())
	assert.Equal(t, uint64(0), trace.Get(3<<8|5, chip.mult[events.ByteAnd]).Uint64())
	assert.Equal(t, uint64(1), trace.Get(0x1234, chip.mult[events.ByteU16Range]).Uint64())
	assert.Equal(t, uint64(1), trace.Get(1<<8|2, chip.mult[events.ByteU8Range]).Uint64())
}

// ============================================================================
// Program
// ============================================================================

func Test_Program_01(t *testing.T) {
	var (
		p       = program.MustAssemble(0x100, nil, countdownProgram...)
		records = check_Execute(t, testOptions(), p)
		chip    = NewProgramChip()
		prep    = chip.GeneratePreprocessedTrace(p)
		trace   = chip.GenerateTrace(records[0])
	)
	//
	require.Equal(t, uint(len(countdownProgram)), prep.Height())
	assert.Equal(t, uint64(0x100), prep.Get(0, chip.pc).Uint64())
	assert.Equal(t, uint64(0x104), prep.Get(1, chip.pc).Uint64())
	assert.Equal(t, uint64(program.SW), prep.Get(1, chip.opcode).Uint64())
	// ADD once, the loop 50 times and then the ECALL once
	for i, n := range []uint64{1, 50, 50, 50, 50, 1} {
		assert.Equal(t, n, trace.Get(uint(i), chip.mult).Uint64(), "row %d", i)
	}
}

// ============================================================================
// End-to-end
// ============================================================================

func Test_Chips_01(t *testing.T) {
	check_Program(t, program.MustAssemble(0x100, nil, aluProgram...))
}

func Test_Chips_02(t *testing.T) {
	check_Program(t, program.MustAssemble(0x100, map[uint32]uint32{0x3000: 0xdeadbeef}, memoryProgram...))
}

func Test_Chips_03(t *testing.T) {
	check_Program(t, program.MustAssemble(0x100, nil, controlProgram...))
}

func Test_Chips_04(t *testing.T) {
	var opts = testOptions()
	// Several shards, where the stored counter crosses every boundary.
	opts.ShardSize = 32
	p := program.MustAssemble(0x100, nil, countdownProgram...)
	records := check_Execute(t, opts, p)
	//
	assert.Greater(t, len(records), 2)
	check_Records(t, p, records)
}

// SHA-256 message schedule extension.
func Test_Chips_05(t *testing.T) {
	var image = make(map[uint32]uint32)
	//
	for i := range 16 {
		image[0x4000+4*uint32(i)] = uint32(0x01010101 * (i + 1))
	}
	//
	check_Program(t, program.MustAssemble(0x100, image,
		"ADD x10, x0, 0x4000",
		"ADD x11, x0, 0",
		"ADD x5, x0, 0x00300105",
		"ECALL",
		"LW x6, x0, 0x40fc",
		"ADD x5, x0, 0",
		"ADD x10, x0, 0",
		"ECALL"))
}

// 256bit modular multiplication.
func Test_Chips_06(t *testing.T) {
	check_Program(t, program.MustAssemble(0x100, map[uint32]uint32{0x3000: 2, 0x3020: 3, 0x3040: 5},
		"ADD x10, x0, 0x3000",
		"ADD x11, x0, 0x3020",
		"ADD x5, x0, 0x0001011D",
		"ECALL",
		"LW x6, x0, 0x3000",
		"ADD x5, x0, 0",
		"ADD x10, x0, 0",
		"ECALL"))
}

// BN254 doubling followed by addition.
func Test_Chips_07(t *testing.T) {
	var g bn254.G1Affine
	//
	g.X.SetOne()
	g.Y.SetUint64(2)
	//
	image := bn254Image(0x3000, &g)
	maps.Copy(image, bn254Image(0x3100, &g))
	//
	check_Program(t, program.MustAssemble(0x100, image,
		"ADD x10, x0, 0x3000",
		"ADD x5, x0, 0x0000010F",
		"ECALL",
		"ADD x10, x0, 0x3000",
		"ADD x11, x0, 0x3100",
		"ADD x5, x0, 0x0001010E",
		"ECALL",
		"ADD x5, x0, 0",
		"ADD x10, x0, 0",
		"ECALL"))
}

// Hints, output and commitments.
func Test_Chips_08(t *testing.T) {
	p := program.MustAssemble(0x100, map[uint32]uint32{0x2000: 0x64636261},
		"ADD x5, x0, 0xF0",
		"ECALL",
		"ADD x11, x5, 0",
		"ADD x10, x0, 0x3000",
		"ADD x5, x0, 0xF1",
		"ECALL",
		"LW x6, x0, 0x3000",
		"ADD x10, x0, 1",
		"ADD x11, x0, 0x2000",
		"ADD x12, x0, 4",
		"ADD x5, x0, 2",
		"ECALL",
		"ADD x10, x0, 0",
		"ADD x11, x6, 0",
		"ADD x5, x0, 0x10",
		"ECALL",
		"ADD x5, x0, 0",
		"ADD x10, x0, 0",
		"ECALL")
	//
	e := executor.New(p, testOptions()).WithHints([]byte{1, 2, 3, 4}).WithOutput(io.Discard, io.Discard)
	records, err := e.Run()
	require.NoError(t, err)
	//
	check_Finalize(records)
	check_Records(t, p, records)
}

// ============================================================================
// Tampering
// ============================================================================

// A missing byte lookup leaves the byte bus unbalanced.
func Test_Tamper_01(t *testing.T) {
	var (
		p       = program.MustAssemble(0x100, nil, aluProgram...)
		records = check_Execute(t, testOptions(), p)
	)
	//
	lookups := records[0].ByteLookups
	i := slices.IndexFunc(lookups, func(e events.ByteLookupEvent) bool { return e.Opcode == events.ByteXor })
	require.NotEqual(t, -1, i)
	//
	records[0].ByteLookups = slices.Delete(slices.Clone(lookups), i, i+1)
	imbalances := check_Balance(t, p, records)
	//
	require.Len(t, imbalances, 1)
	assert.Equal(t, air.ByteBus, imbalances[0].Kind)
}

// An incorrect sum violates the constraints of the addition chip.
func Test_Tamper_02(t *testing.T) {
	var (
		p       = program.MustAssemble(0x100, nil, aluProgram...)
		records = check_Execute(t, testOptions(), p)
		chip    = NewAddSubChip()
	)
	//
	mc, err := air.NewMachineChip(chip)
	require.NoError(t, err)
	//
	trace := chip.GenerateTrace(records[0])
	require.NoError(t, mc.CheckConstraints(trace, nil))
	//
	trace.Set(0, chip.cols.a[0], trace.Get(0, chip.cols.a[0]).Add(babybear.New(1)))
	assert.Error(t, mc.CheckConstraints(trace, nil))
}

// An ALU event which no instruction requested leaves the ALU bus unbalanced.
func Test_Tamper_03(t *testing.T) {
	var (
		p       = program.MustAssemble(0x100, nil, aluProgram...)
		records = check_Execute(t, testOptions(), p)
	)
	//
	records[0].AddAluEvent(events.NewAluEvent(events.UnusedPc, program.XOR, 6, 3, 5, false))
	imbalances := check_Balance(t, p, records)
	//
	require.NotEmpty(t, imbalances)
	//
	for _, imb := range imbalances {
		assert.Contains(t, []air.InteractionKind{air.AluBus, air.ByteBus}, imb.Kind)
	}
}

// ============================================================================
// Division
// ============================================================================

// Every division row sends only true ALU operations, including for signed
// overflow and division by zero.
func Test_DivRem_01(t *testing.T) {
	var operands = [][2]uint32{{6, 2}, {7, 3}, {0xFFFFFFF9, 2}, {7, 0xFFFFFFFE}, {0xFFFFFFF9, 0xFFFFFFFE},
		{0x80000000, 0xFFFFFFFF}, {0x80000000, 0x80000000}, {5, 0}, {0xFFFFFFF9, 0}, {0, 7}, {0xFFFFFFFF, 1},
		{0xFFFFFFFF, 0xFFFFFFFF}, {0x7FFFFFFF, 0x80000000}}
	//
	for _, bc := range operands {
		for _, op := range []program.Opcode{program.DIV, program.DIVU, program.REM, program.REMU} {
			ev := events.NewAluEvent(events.UnusedPc, op, executor.Alu(op, bc[0], bc[1]), bc[0], bc[1], false)
			_, mc, trace := check_DivRemRow(t, ev)
			//
			require.NoError(t, mc.CheckConstraints(trace, nil), "%s 0x%x 0x%x", op, bc[0], bc[1])
			assert.Empty(t, check_AluSends(mc, trace), "%s 0x%x 0x%x", op, bc[0], bc[1])
		}
	}
}

// A quotient whose product with the divisor agrees only in its lower word.
func Test_DivRem_02(t *testing.T) {
	chip, mc, trace := check_DivRemRow(t, events.NewAluEvent(events.UnusedPc, program.DIVU, 3, 6, 2, false))
	// 0x80000003 * 2 = 6 (mod 2^32)
	setWord(trace, chip.cols.a, 0x80000003)
	setWord(trace, chip.cols.quotient, 0x80000003)
	require.NoError(t, mc.CheckConstraints(trace, nil))
	// Its upper word is not zero
	assert.Equal(t, []string{"MULHU(0x80000003, 0x2) != 0x0"}, check_AluSends(mc, trace))
	//
	setWord(trace, chip.cols.upper, 1)
	assert.ErrorContains(t, mc.CheckConstraints(trace, nil), "divrem:upper_0")
}

// A signed remainder whose sign differs from the dividend: 7 = 3*3 - 2.
func Test_DivRem_03(t *testing.T) {
	chip, mc, trace := check_DivRemRow(t, events.NewAluEvent(events.UnusedPc, program.DIV, 2, 7, 3, false))
	//
	setWord(trace, chip.cols.a, 3)
	setWord(trace, chip.cols.quotient, 3)
	setWord(trace, chip.cols.remainder, 0xFFFFFFFE)
	setWord(trace, chip.cols.lower, 9)
	setWord(trace, chip.cols.absRem, 2)
	trace.Set(0, chip.cols.rNeg, babybear.New(1))
	trace.Set(0, chip.cols.carry, babybear.New(1))
	trace.Set(0, chip.cols.rSumInv, babybear.New(byteSum(0xFFFFFFFE)).Inverse())
	//
	assert.ErrorContains(t, mc.CheckConstraints(trace, nil), "divrem:r_sign")
	assert.Empty(t, check_AluSends(mc, trace))
}

// A remainder exceeding the divisor: 7 = 1*3 + 4.
func Test_DivRem_04(t *testing.T) {
	for _, op := range []program.Opcode{program.DIV, program.DIVU} {
		chip, mc, trace := check_DivRemRow(t, events.NewAluEvent(events.UnusedPc, op, 2, 7, 3, false))
		//
		setWord(trace, chip.cols.a, 1)
		setWord(trace, chip.cols.quotient, 1)
		setWord(trace, chip.cols.remainder, 4)
		setWord(trace, chip.cols.absRem, 4)
		setWord(trace, chip.cols.lower, 3)
		trace.Set(0, chip.cols.rSumInv, babybear.New(4).Inverse())
		//
		require.NoError(t, mc.CheckConstraints(trace, nil), "%s", op)
		assert.Equal(t, []string{"SLTU(0x4, 0x3) != 0x1"}, check_AluSends(mc, trace), "%s", op)
	}
}

// ============================================================================
// Memory ordering
// ============================================================================

// A register access claiming its previous access happened at the same time,
// or later, within the same shard.
func Test_MemoryOrder_01(t *testing.T) {
	var (
		p       = program.MustAssemble(0x100, nil, aluProgram...)
		records = check_Execute(t, testOptions(), p)
		chip    = NewCpuChip()
		c       = &chip.cols
	)
	//
	mc, err := air.NewMachineChip(chip)
	require.NoError(t, err)
	//
	for _, delta := range []uint32{0, 1, 1000} {
		trace := chip.GenerateTrace(records[0])
		require.NoError(t, mc.CheckConstraints(trace, nil))
		// Write to a at clk+3
		ts := trace.Get(1, c.clk).Add(babybear.New(3))
		trace.Set(1, c.a.prevShard, trace.Get(1, c.shard))
		trace.Set(1, c.a.prevTs, ts.Add(babybear.New(delta)))
		trace.Set(1, c.a.compareTs, babybear.New(1))
		//
		assert.ErrorContains(t, mc.CheckConstraints(trace, nil), "a:ordered", "delta %d", delta)
	}
}

// Comparing shards rather than timestamps within the same shard.
func Test_MemoryOrder_02(t *testing.T) {
	var (
		p       = program.MustAssemble(0x100, nil, aluProgram...)
		records = check_Execute(t, testOptions(), p)
		chip    = NewCpuChip()
		c       = &chip.cols
	)
	//
	mc, err := air.NewMachineChip(chip)
	require.NoError(t, err)
	//
	trace := chip.GenerateTrace(records[0])
	trace.Set(1, c.a.prevShard, trace.Get(1, c.shard))
	trace.Set(1, c.a.compareTs, babybear.New(0))
	assert.ErrorContains(t, mc.CheckConstraints(trace, nil), "a:ordered")
	// Claiming a different shard is the same
	trace = chip.GenerateTrace(records[0])
	trace.Set(1, c.a.prevShard, trace.Get(1, c.shard).Add(babybear.New(1)))
	trace.Set(1, c.a.compareTs, babybear.New(1))
	assert.ErrorContains(t, mc.CheckConstraints(trace, nil), "a:same_shard")
}

// Initialized and finalized addresses strictly increase.
func Test_MemoryOrder_03(t *testing.T) {
	for _, chip := range []*MemoryGlobalChip{NewMemoryInitChip(), NewMemoryFinalizeChip()} {
		check_GlobalRows(t, chip, "", 0x1000)
		check_GlobalRows(t, chip, "", 0, 4, 0xfffc, 0x10000, 0x20004, 0x77fffffc)
		check_GlobalRows(t, chip, "sorted", 0x1000, 0x1000)
		check_GlobalRows(t, chip, "sorted", 0x2000, 0x1000)
		check_GlobalRows(t, chip, "sorted", 0x20000, 0x10004)
		check_GlobalRows(t, chip, "sorted", 0x10000, 0x10000, 0x10004)
	}
}

// Padding rows cannot precede real rows.
func Test_MemoryOrder_04(t *testing.T) {
	var (
		chip  = NewMemoryInitChip()
		trace = check_GlobalTrace(chip, 0x1000, 0x1004)
	)
	//
	mc, err := air.NewMachineChip(chip)
	require.NoError(t, err)
	require.NoError(t, mc.CheckConstraints(trace, nil))
	//
	trace.Set(0, chip.cols.isReal, babybear.New(0))
	assert.ErrorContains(t, mc.CheckConstraints(trace, nil), "MemoryInit:padding")
}

// Every address touched by the loop is initialized exactly once, in order.
func Test_MemoryOrder_05(t *testing.T) {
	var (
		p       = program.MustAssemble(0x100, nil, countdownProgram...)
		records = check_Execute(t, testOptions(), p)
		last    = records[len(records)-1]
	)
	//
	for i := 1; i < len(last.MemoryInitEvents); i++ {
		assert.Less(t, last.MemoryInitEvents[i-1].Addr, last.MemoryInitEvents[i].Addr)
		assert.Less(t, last.MemoryFinalizeEvents[i-1].Addr, last.MemoryFinalizeEvents[i].Addr)
	}
	//
	check_Records(t, p, records)
}

// ============================================================================
// Helpers
// ============================================================================

// Generate a single row of the division chip for a given event.
func check_DivRemRow(t *testing.T, ev events.AluEvent) (*DivRemChip, *air.MachineChip, *air.Matrix) {
	t.Helper()
	//
	chip := NewDivRemChip()
	mc, err := air.NewMachineChip(chip)
	require.NoError(t, err)
	//
	return chip, mc, generate(chip.Width(), []events.AluEvent{ev}, chip.populate)
}

// Determine which ALU operations sent by the rows of a trace do not hold.
func check_AluSends(mc *air.MachineChip, trace *air.Matrix) []string {
	var failures []string
	//
	for row := range trace.Height() {
		main := trace.Row(row)
		//
		for _, send := range mc.Sends() {
			if send.Kind != air.AluBus || send.Multiplicity.Apply(main, nil).IsZero() {
				continue
			}
			//
			var vals = make([]uint32, len(send.Values))
			//
			for i := range send.Values {
				vals[i] = send.Values[i].Apply(main, nil).Uint32()
			}
			//
			op := program.Opcode(vals[0])
			a, b, c := bytesToWord(vals[1:5]), bytesToWord(vals[5:9]), bytesToWord(vals[9:13])
			//
			if executor.Alu(op, b, c) != a {
				failures = append(failures, fmt.Sprintf("%s(0x%x, 0x%x) != 0x%x", op, b, c, a))
			}
		}
	}
	//
	return failures
}

func bytesToWord(bytes []uint32) uint32 {
	return bytes[0] | bytes[1]<<8 | bytes[2]<<16 | bytes[3]<<24
}

func setWord(trace *air.Matrix, cols [4]uint, w uint32) {
	for i, c := range cols {
		trace.Set(0, c, babybear.New(w>>(8*i)&0xff))
	}
}

func testOptions() config.Options {
	opts := config.Default()
	opts.Parallelism = 1
	//
	return opts
}

// Execute a program to completion and generate the dependencies of each
// record.
func check_Execute(t *testing.T, opts config.Options, p *program.Program) []*record.ExecutionRecord {
	t.Helper()
	//
	records, err := executor.New(p, opts).WithOutput(io.Discard, io.Discard).Run()
	require.NoError(t, err)
	//
	check_Finalize(records)
	//
	return records
}

// Run the dependency pass of every chip over a set of records.
func check_Finalize(records []*record.ExecutionRecord) {
	for _, r := range records {
		for _, c := range RiscvChips() {
			output := record.New(r.Program(), r.Shard())
			c.GenerateDependencies(r, output)
			r.Append(output)
		}
	}
}

func check_Program(t *testing.T, p *program.Program) {
	t.Helper()
	//
	check_Records(t, p, check_Execute(t, testOptions(), p))
}

// Generate the trace of a global memory chip for a given set of addresses.
func check_GlobalTrace(chip *MemoryGlobalChip, addrs ...uint32) *air.Matrix {
	var evs = make([]events.MemoryInitializeFinalizeEvent, len(addrs))
	//
	for i, addr := range addrs {
		evs[i] = events.NewInitializeEvent(addr, addr)
	}
	//
	r := record.New(nil, 1)
	r.AddMemoryGlobalEvents(evs, evs)
	//
	return chip.GenerateTrace(r)
}

// Check the constraints of a global memory chip for a given set of addresses,
// expecting either success or failure of the given constraint.
func check_GlobalRows(t *testing.T, chip *MemoryGlobalChip, failure string, addrs ...uint32) {
	t.Helper()
	//
	mc, err := air.NewMachineChip(chip)
	require.NoError(t, err)
	//
	err = mc.CheckConstraints(check_GlobalTrace(chip, addrs...), nil)
	//
	if failure == "" {
		assert.NoError(t, err, "%s %x", chip.Name(), addrs)
	} else {
		assert.ErrorContains(t, err, chip.Name()+":"+failure, "%s %x", chip.Name(), addrs)
	}
}

// Check every constraint holds on the traces of every chip, and that every
// interaction balances.
func check_Records(t *testing.T, p *program.Program, records []*record.ExecutionRecord) {
	t.Helper()
	//
	assert.Empty(t, check_Balance(t, p, records))
}

// Generate the (padded) traces of every chip for every record, checking all
// constraints hold, and returning any interactions which are unbalanced.
func check_Balance(t *testing.T, p *program.Program, records []*record.ExecutionRecord) []air.Imbalance {
	t.Helper()
	//
	var balance = air.NewBalance()
	//
	for _, c := range RiscvChips() {
		mc, err := air.NewMachineChip(c)
		require.NoError(t, err)
		//
		prep := c.GeneratePreprocessedTrace(p)
		//
		for _, r := range records {
			if !c.Included(r) {
				continue
			}
			//
			trace := c.GenerateTrace(r)
			require.Equal(t, c.NumRows(r), trace.Height(), c.Name())
			//
			height := uint(1) << bits.Len(trace.Height()-1)
			main := trace.Pad(height)
			//
			var padded *air.Matrix
			if prep != nil {
				padded = prep.Pad(height)
			}
			//
			require.NoError(t, mc.CheckConstraints(main, padded), "shard %d", r.Shard())
			balance.Tally(mc, r.Shard(), main, padded)
		}
	}
	//
	return balance.Imbalances()
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
			image[addr+uint32(32*i+4*j)] = binary.BigEndian.Uint32(coord[28-4*j:])
		}
	}
	//
	return image
}
