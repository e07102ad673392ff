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
	"fmt"

	"github.com/consensys/go-zkvm/pkg/air"
	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
	"github.com/consensys/go-zkvm/pkg/zkvm/syscall"
)

// Precompile chips receive the syscall which invoked them and perform its
// memory accesses.  The arithmetic of the precompile itself is not
// constrained here.

const (
	bn254PointWords = 16
	uint256Words    = 8
)

// newAccesses allocates the columns of n consecutive word accesses.
func newAccesses(l *air.Layout, name string, n int, write bool) []accessCols {
	var cols = make([]accessCols, n)
	//
	for i := range cols {
		if write {
			cols[i] = newWriteCols(l, fmt.Sprintf("%s_%d", name, i))
		} else {
			cols[i] = newReadCols(l, fmt.Sprintf("%s_%d", name, i))
		}
	}
	//
	return cols
}

// evalAccesses declares consecutive word accesses starting from a given
// address.
func evalAccesses(b *air.Builder, cols []accessCols, mult, shard, ts, addr air.Expr) {
	for i := range cols {
		cols[i].eval(b, mult, shard, ts, addr.Add(air.Const(4*uint64(i))))
	}
}

func populateAccesses(row air.RowWriter, cols []accessCols, accesses []events.MemoryAccess, d *deps) {
	for i := range accesses {
		cols[i].populate(row, accesses[i], d)
	}
}

func receiveSyscall(b *air.Builder, mult, shard, clk, code air.Expr, arg1, arg2 []air.Expr) {
	b.Receive(air.SyscallBus, air.Local, mult, syscallValues(shard, clk, code, arg1, arg2)...)
}

// ============================================================================
// SHA-256 extend
// ============================================================================

type shaExtendCols struct {
	shard, clk, step, isFirst, isReal uint
	wPtr                              [4]uint
	w15, w2, w16, w7, w               accessCols
}

// shaExtendStep identifies a single step of an extension.
type shaExtendStep struct {
	ev   *events.PrecompileEvent
	step int
}

// ShaExtendChip has one row for each step of a SHA-256 message schedule
// extension, where step i reads w[i-15], w[i-2], w[i-16] and w[i-7] and
// writes w[i].
type ShaExtendChip struct {
	base
	cols shaExtendCols
}

// NewShaExtendChip constructs a new SHA extend chip.
func NewShaExtendChip() *ShaExtendChip {
	var (
		p = &ShaExtendChip{base: base{name: "ShaExtend"}}
		l = &p.layout
		c = &p.cols
	)
	//
	c.shard, c.clk, c.step = l.Col("shard"), l.Col("clk"), l.Col("step")
	c.isFirst, c.isReal = l.Col("is_first"), l.Col("is_real")
	c.wPtr = l.Word("w_ptr")
	c.w15, c.w2 = newReadCols(l, "w_i_minus_15"), newReadCols(l, "w_i_minus_2")
	c.w16, c.w7 = newReadCols(l, "w_i_minus_16"), newReadCols(l, "w_i_minus_7")
	c.w = newWriteCols(l, "w_i")
	//
	return p
}

// Included implementation for the air.Chip interface.
func (p *ShaExtendChip) Included(r *record.ExecutionRecord) bool {
	return len(r.PrecompilesOf(events.ShaExtendKind)) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *ShaExtendChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(r.PrecompilesOf(events.ShaExtendKind)) * events.ShaExtendSteps)
}

func (p *ShaExtendChip) steps(r *record.ExecutionRecord) []shaExtendStep {
	var steps []shaExtendStep
	//
	for _, ev := range r.PrecompilesOf(events.ShaExtendKind) {
		for i := range events.ShaExtendSteps {
			steps = append(steps, shaExtendStep{ev, i})
		}
	}
	//
	return steps
}

// GenerateTrace implementation for the air.Chip interface.
func (p *ShaExtendChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), p.steps(r), p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *ShaExtendChip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), p.steps(r), p.populate, output)
}

func (p *ShaExtendChip) populate(row air.RowWriter, s *shaExtendStep, d *deps) {
	var (
		c  = &p.cols
		ev = s.ev.ShaExtend
		i  = s.step
	)
	//
	row.Set(c.shard, uint64(s.ev.Syscall.Shard))
	row.Set(c.clk, uint64(s.ev.Syscall.Clk))
	row.Set(c.step, uint64(i))
	row.SetBool(c.isFirst, i == 0)
	row.Set(c.isReal, 1)
	row.SetWord(c.wPtr, ev.WPtr)
	c.w15.populate(row, ev.W15[i], d)
	c.w2.populate(row, ev.W2[i], d)
	c.w16.populate(row, ev.W16[i], d)
	c.w7.populate(row, ev.W7[i], d)
	c.w.populate(row, ev.W[i], d)
}

// Eval implementation for the air.Chip interface.
func (p *ShaExtendChip) Eval(b *air.Builder) {
	var (
		c       = &p.cols
		shard   = b.Main(c.shard)
		clk     = b.Main(c.clk)
		step    = b.Main(c.step)
		isFirst = b.Main(c.isFirst)
		isReal  = b.Main(c.isReal)
		wPtr    = b.Word(c.wPtr)
		ts      = clk.Add(step)
		last    = step.Sub(air.Const(events.ShaExtendSteps - 1))
	)
	//
	air.ApplyBinaryGadget("sha_extend:is_real", isReal, b)
	air.ApplyBinaryGadget("sha_extend:is_first", isFirst, b)
	b.AssertWhen("sha_extend:first_real", isFirst, air.Not(isReal))
	b.AssertWhen("sha_extend:first_step", isFirst, step)
	b.AssertZero("sha_extend:starts", b.IsFirstRow().Mul(isReal).Mul(air.Not(isFirst)))
	// Address of w[i-offset], where i = step + 16
	addr := func(offset uint64) air.Expr {
		return wordOf(wPtr).Add(air.Scale(step, 4)).Add(air.Const(4 * (16 - offset)))
	}
	//
	c.w15.eval(b, isReal, shard, ts, addr(15))
	c.w2.eval(b, isReal, shard, ts, addr(2))
	c.w16.eval(b, isReal, shard, ts, addr(16))
	c.w7.eval(b, isReal, shard, ts, addr(7))
	c.w.eval(b, isReal, shard, ts, addr(0))
	receiveSyscall(b, isFirst, shard, clk, air.Const(uint64(syscall.ShaExtend)), wPtr, constWord(0))
	// Steps of the same extension are consecutive.
	var (
		cont = b.IsTransition().Mul(b.Next(c.isReal)).Mul(air.Not(b.Next(c.isFirst)))
		ends = air.Not(b.Next(c.isReal).Sub(b.Next(c.isFirst)))
	)
	//
	b.AssertZero("sha_extend:next_shard", cont.Mul(b.Next(c.shard).Sub(shard)))
	b.AssertZero("sha_extend:next_clk", cont.Mul(b.Next(c.clk).Sub(clk)))
	b.AssertZero("sha_extend:next_step", cont.Mul(b.Next(c.step).Sub(step).Sub(air.Const(1))))
	//
	for i := range 4 {
		b.AssertZero(fmt.Sprintf("sha_extend:next_w_ptr_%d", i), cont.Mul(b.Next(c.wPtr[i]).Sub(wPtr[i])))
	}
	//
	b.AssertZero("sha_extend:ends", b.IsTransition().Mul(isReal).Mul(ends).Mul(last))
	b.AssertZero("sha_extend:ends_last", b.IsLastRow().Mul(isReal).Mul(last))
}

// ============================================================================
// BN254 addition and doubling
// ============================================================================

type bn254Cols struct {
	shard, clk, isAdd, isDouble uint
	pPtr, qPtr                  [4]uint
	p, q                        []accessCols
}

// Bn254Chip has one row for each BN254 point addition or doubling.  Addition
// reads Q and then writes P in the following cycle, whilst doubling writes P
// immediately.
type Bn254Chip struct {
	base
	cols bn254Cols
}

// NewBn254Chip constructs a new BN254 chip.
func NewBn254Chip() *Bn254Chip {
	var (
		p = &Bn254Chip{base: base{name: "Bn254"}}
		l = &p.layout
		c = &p.cols
	)
	//
	c.shard, c.clk = l.Col("shard"), l.Col("clk")
	c.isAdd, c.isDouble = l.Col("is_add"), l.Col("is_double")
	c.pPtr, c.qPtr = l.Word("p_ptr"), l.Word("q_ptr")
	c.p = newAccesses(l, "p", bn254PointWords, true)
	c.q = newAccesses(l, "q", bn254PointWords, false)
	//
	return p
}

// Included implementation for the air.Chip interface.
func (p *Bn254Chip) Included(r *record.ExecutionRecord) bool {
	return len(r.PrecompilesOf(events.EllipticCurveKind)) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *Bn254Chip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(r.PrecompilesOf(events.EllipticCurveKind)))
}

// GenerateTrace implementation for the air.Chip interface.
func (p *Bn254Chip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), r.PrecompilesOf(events.EllipticCurveKind), p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *Bn254Chip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), r.PrecompilesOf(events.EllipticCurveKind), p.populate, output)
}

func (p *Bn254Chip) populate(row air.RowWriter, pe **events.PrecompileEvent, d *deps) {
	var (
		c  = &p.cols
		ev = *pe
	)
	//
	row.Set(c.shard, uint64(ev.Syscall.Shard))
	row.Set(c.clk, uint64(ev.Syscall.Clk))
	row.SetWord(c.pPtr, ev.Syscall.Arg1)
	row.SetWord(c.qPtr, ev.Syscall.Arg2)
	row.SetBool(c.isAdd, syscall.Code(ev.Syscall.Code) == syscall.Bn254Add)
	row.SetBool(c.isDouble, syscall.Code(ev.Syscall.Code) == syscall.Bn254Double)
	populateAccesses(row, c.p, ev.Curve.PAccess, d)
	populateAccesses(row, c.q, ev.Curve.QAccess, d)
}

// Eval implementation for the air.Chip interface.
func (p *Bn254Chip) Eval(b *air.Builder) {
	var (
		c      = &p.cols
		shard  = b.Main(c.shard)
		clk    = b.Main(c.clk)
		isAdd  = b.Main(c.isAdd)
		flags  = b.Cols(c.isAdd, c.isDouble)
		isReal = air.Sum(flags...)
		pPtr   = b.Word(c.pPtr)
		qPtr   = b.Word(c.qPtr)
	)
	//
	flagsOf(b, "bn254", flags, isReal)
	evalAccesses(b, c.q, isAdd, shard, clk, wordOf(qPtr))
	evalAccesses(b, c.p, isReal, shard, clk.Add(isAdd), wordOf(pPtr))
	receiveSyscall(b, isReal, shard, clk, opcodeOf(flags, uint64(syscall.Bn254Add), uint64(syscall.Bn254Double)),
		pPtr, qPtr)
}

// ============================================================================
// 256bit modular multiplication
// ============================================================================

type uint256MulCols struct {
	shard, clk, isReal uint
	xPtr, yPtr         [4]uint
	x, y               []accessCols
}

// Uint256MulChip has one row for each 256bit modular multiplication, which
// reads y and the modulus and then writes x in the following cycle.
type Uint256MulChip struct {
	base
	cols uint256MulCols
}

// NewUint256MulChip constructs a new 256bit multiplication chip.
func NewUint256MulChip() *Uint256MulChip {
	var (
		p = &Uint256MulChip{base: base{name: "Uint256Mul"}}
		l = &p.layout
		c = &p.cols
	)
	//
	c.shard, c.clk, c.isReal = l.Col("shard"), l.Col("clk"), l.Col("is_real")
	c.xPtr, c.yPtr = l.Word("x_ptr"), l.Word("y_ptr")
	c.x = newAccesses(l, "x", uint256Words, true)
	c.y = newAccesses(l, "y", 2*uint256Words, false)
	//
	return p
}

// Included implementation for the air.Chip interface.
func (p *Uint256MulChip) Included(r *record.ExecutionRecord) bool {
	return len(r.PrecompilesOf(events.Uint256MulKind)) > 0
}

// NumRows implementation for the air.Chip interface.
func (p *Uint256MulChip) NumRows(r *record.ExecutionRecord) uint {
	return uint(len(r.PrecompilesOf(events.Uint256MulKind)))
}

// GenerateTrace implementation for the air.Chip interface.
func (p *Uint256MulChip) GenerateTrace(r *record.ExecutionRecord) *air.Matrix {
	return generate(p.Width(), r.PrecompilesOf(events.Uint256MulKind), p.populate)
}

// GenerateDependencies implementation for the air.Chip interface.
func (p *Uint256MulChip) GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord) {
	collect(p.Width(), r.PrecompilesOf(events.Uint256MulKind), p.populate, output)
}

func (p *Uint256MulChip) populate(row air.RowWriter, pe **events.PrecompileEvent, d *deps) {
	var (
		c  = &p.cols
		ev = *pe
	)
	//
	row.Set(c.shard, uint64(ev.Syscall.Shard))
	row.Set(c.clk, uint64(ev.Syscall.Clk))
	row.Set(c.isReal, 1)
	row.SetWord(c.xPtr, ev.Syscall.Arg1)
	row.SetWord(c.yPtr, ev.Syscall.Arg2)
	populateAccesses(row, c.x, ev.Uint256Mul.XAccess, d)
	populateAccesses(row, c.y, ev.Uint256Mul.YAccess, d)
}

// Eval implementation for the air.Chip interface.
func (p *Uint256MulChip) Eval(b *air.Builder) {
	var (
		c      = &p.cols
		shard  = b.Main(c.shard)
		clk    = b.Main(c.clk)
		isReal = b.Main(c.isReal)
		xPtr   = b.Word(c.xPtr)
		yPtr   = b.Word(c.yPtr)
	)
	//
	air.ApplyBinaryGadget("uint256_mul:is_real", isReal, b)
	evalAccesses(b, c.y, isReal, shard, clk, wordOf(yPtr))
	evalAccesses(b, c.x, isReal, shard, clk.Add(air.Const(1)), wordOf(xPtr))
	receiveSyscall(b, isReal, shard, clk, air.Const(uint64(syscall.Uint256Mul)), xPtr, yPtr)
}
