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
package machine

import (
	"context"
	"fmt"
	"io"
	"math/bits"

	"github.com/consensys/go-zkvm/pkg/air"
	"github.com/consensys/go-zkvm/pkg/chips"
	"github.com/consensys/go-zkvm/pkg/config"
	"github.com/consensys/go-zkvm/pkg/util"
	"github.com/consensys/go-zkvm/pkg/zkvm/executor"
	"github.com/consensys/go-zkvm/pkg/zkvm/fault"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
	log "github.com/sirupsen/logrus"
)

// Machine is a fixed collection of chips, over which execution records are
// finalized and witnesses are generated.
type Machine struct {
	chips []*air.MachineChip
	// Chip index by name
	index map[string]int
	opts  config.Options
}

// New compiles a given set of chips into a machine.  This fails if any chip
// cannot be compiled, or if two chips share the same name.
func New(opts config.Options, cs ...air.Chip) (*Machine, error) {
	var m = &Machine{index: make(map[string]int), opts: opts}
	//
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	//
	for _, c := range cs {
		mc, err := air.NewMachineChip(c)
		//
		if err != nil {
			return nil, err
		} else if _, ok := m.index[c.Name()]; ok {
			return nil, &air.ChipConstructionError{Chip: c.Name(), Msg: "duplicate chip name"}
		}
		//
		m.index[c.Name()] = len(m.chips)
		m.chips = append(m.chips, mc)
	}
	//
	return m, nil
}

// Default constructs the machine comprising every RISC-V chip.
func Default(opts config.Options) (*Machine, error) {
	return New(opts, chips.RiscvChips()...)
}

// Chips returns the compiled chips of this machine, in order.
func (m *Machine) Chips() []*air.MachineChip {
	return m.chips
}

// Chip returns the chip with a given name, or nil if no such chip exists.
func (m *Machine) Chip(name string) *air.MachineChip {
	if i, ok := m.index[name]; ok {
		return m.chips[i]
	}
	//
	return nil
}

// Options returns the options of this machine.
func (m *Machine) Options() config.Options {
	return m.opts
}

// Execute a program to completion on a given set of hints, returning the
// finalized record of every shard.  Guest output is written to the given
// writer.
func (m *Machine) Execute(prog *program.Program, out io.Writer, hints ...[]byte) ([]*record.ExecutionRecord, error) {
	var (
		stats     = util.NewPerfStats()
		exec      = executor.New(prog, m.opts).WithHints(hints...).WithOutput(out, out)
		recs, err = exec.Run()
	)
	//
	if err != nil {
		return nil, err
	}
	//
	stats.Log(fmt.Sprintf("Executing program (%d shards)", len(recs)))
	//
	for _, r := range recs {
		if err := m.Finalize(r); err != nil {
			return nil, err
		}
	}
	//
	return recs, nil
}

// Finalize a record by running the dependency pass of every chip, and then
// sealing it with its shape.  The dependencies of each chip are appended before
// the next chip runs, since the events a chip generates (e.g. ALU operations
// for address computations) have dependencies of their own.  Finalizing a
// sealed record is a consistency violation.
func (m *Machine) Finalize(r *record.ExecutionRecord) error {
	if r.Sealed {
		return fault.NewConsistencyViolation(0, "record of shard %d already finalized", r.Shard())
	}
	//
	for _, c := range m.chips {
		output := record.New(r.Program(), r.Shard())
		c.GenerateDependencies(r, output)
		r.Append(output)
	}
	//
	r.Seal(m.Shape(r))
	log.Debugf("finalized shard %d (%d byte lookups)", r.Shard(), len(r.ByteLookups))
	//
	return nil
}

// Shape determines the padded height of every chip included in a given
// record.  Heights are powers of two, and never below the configured minimum.
func (m *Machine) Shape(r *record.ExecutionRecord) record.Shape {
	var shape record.Shape
	//
	for _, c := range m.chips {
		if c.Included(r) {
			log2 := log2Height(c.NumRows(r), m.opts.MinLog2Height)
			shape = append(shape, record.ChipHeight{Chip: c.Name(), Log2Height: log2})
		}
	}
	//
	return shape
}

// Determine the smallest power of two (no less than 2^min) which can hold n
// rows.
func log2Height(n uint, min uint) uint {
	if n <= 1 {
		return min
	}
	//
	return max(min, uint(bits.Len(n-1)))
}

// ============================================================================
// Witness Generation
// ============================================================================

// ChipWitness holds the traces of a single chip within a shard.
type ChipWitness struct {
	Chip *air.MachineChip
	// Padded main trace
	Main *air.Matrix
	// Padded preprocessed trace (or nil)
	Preprocessed *air.Matrix
	// Permutation trace
	Permutation *air.Matrix
	// Cumulative sums of the permutation trace
	Sums air.CumulativeSums
}

// ShardWitness holds the traces of every chip included in a shard.
type ShardWitness struct {
	Shard uint32
	Chips []ChipWitness
	// Cumulative sums over all chips
	Sums air.CumulativeSums
}

// Chip returns the witness of a named chip, or nil if it was not included in
// this shard.
func (p *ShardWitness) Chip(name string) *ChipWitness {
	for i := range p.Chips {
		if p.Chips[i].Chip.Name() == name {
			return &p.Chips[i]
		}
	}
	//
	return nil
}

// Witness holds everything a prover requires for a complete execution.
type Witness struct {
	Challenges air.Challenges
	Shards     []ShardWitness
}

// Identifies a single chip within a single shard.
type chipJob struct {
	shard uint
	chip  uint
}

// GenerateWitness generates the traces of every included chip of every shard,
// followed by their permutation traces.  Preprocessed traces are generated
// once for the program.  The challenges of the permutation argument are drawn
// only after all traces are observed.  This fails with an ImbalanceError if
// the local interactions of any shard, or the global interactions across all
// shards, do not balance.
func (m *Machine) GenerateWitness(ctx context.Context, prog *program.Program,
	records []*record.ExecutionRecord) (*Witness, error) {
	//
	var stats = util.NewPerfStats()
	//
	w, jobs, err := m.generateTraces(ctx, prog, records)
	if err != nil {
		return nil, err
	}
	//
	stats.Log("Generating main traces")
	w.Challenges = m.observe(w).SampleChallenges()
	stats = util.NewPerfStats()
	//
	err = util.ParExec(ctx, m.opts.Parallelism, uint(len(jobs)), func(_ context.Context, i uint) error {
		var (
			cw  = &w.Shards[jobs[i].shard].Chips[jobs[i].chip]
			err error
		)
		//
		cw.Permutation, cw.Sums, err = cw.Chip.GeneratePermutationTrace(cw.Main, cw.Preprocessed, w.Challenges)
		//
		return err
	})
	//
	if err != nil {
		return nil, err
	}
	//
	stats.Log("Generating permutation traces")
	//
	return w, checkSums(w)
}

// Generate the (padded) main and preprocessed traces for every included chip
// of every shard.
func (m *Machine) generateTraces(ctx context.Context, prog *program.Program,
	records []*record.ExecutionRecord) (*Witness, []chipJob, error) {
	//
	var (
		w    = &Witness{Shards: make([]ShardWitness, len(records))}
		prep = make([]*air.Matrix, len(m.chips))
		jobs []chipJob
	)
	//
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("no records")
	}
	// Allocate chip witnesses according to the shape of each shard
	for i, r := range records {
		if !r.Sealed {
			return nil, nil, fault.NewConsistencyViolation(0, "record of shard %d not finalized", r.Shard())
		}
		//
		w.Shards[i].Shard = r.Shard()
		//
		for _, h := range r.Shape {
			index, ok := m.index[h.Chip]
			if !ok {
				return nil, nil, fmt.Errorf("shard %d: unknown chip %s", r.Shard(), h.Chip)
			}
			//
			jobs = append(jobs, chipJob{uint(i), uint(len(w.Shards[i].Chips))})
			w.Shards[i].Chips = append(w.Shards[i].Chips, ChipWitness{Chip: m.chips[index]})
		}
	}
	// Preprocessed traces depend only upon the program.
	err := util.ParExec(ctx, m.opts.Parallelism, uint(len(m.chips)), func(_ context.Context, i uint) error {
		prep[i] = m.chips[i].GeneratePreprocessedTrace(prog)
		//
		return nil
	})
	//
	if err != nil {
		return nil, nil, err
	}
	//
	err = util.ParExec(ctx, m.opts.Parallelism, uint(len(jobs)), func(_ context.Context, i uint) error {
		var (
			r      = records[jobs[i].shard]
			cw     = &w.Shards[jobs[i].shard].Chips[jobs[i].chip]
			log2   = r.Shape[jobs[i].chip].Log2Height
			height = uint(1) << log2
			main   = cw.Chip.GenerateTrace(r)
			pre    = prep[m.index[cw.Chip.Name()]]
		)
		//
		if main.Width() != cw.Chip.Width() {
			return fmt.Errorf("chip %s: trace has width %d (expected %d)", cw.Chip.Name(), main.Width(), cw.Chip.Width())
		} else if main.Height() > height {
			return fmt.Errorf("chip %s: trace has height %d (exceeds 2^%d)", cw.Chip.Name(), main.Height(), log2)
		}
		//
		cw.Main = main.Pad(height)
		//
		if pre != nil {
			if pre.Height() > height {
				return fmt.Errorf("chip %s: preprocessed trace has height %d (exceeds 2^%d)", cw.Chip.Name(),
					pre.Height(), log2)
			}
			//
			cw.Preprocessed = pre.Pad(height)
		}
		//
		log.Debugf("shard %d: generated %s trace (%d rows, padded to %d)", r.Shard(), cw.Chip.Name(), main.Height(),
			height)
		//
		return nil
	})
	//
	if err != nil {
		return nil, nil, err
	}
	//
	return w, jobs, nil
}

// Construct a challenger which has observed every preprocessed and main trace
// of a witness, in a deterministic order.
func (m *Machine) observe(w *Witness) *air.Challenger {
	var (
		challenger = air.NewChallenger()
		seen       = make(map[string]bool)
	)
	//
	for _, s := range w.Shards {
		for _, cw := range s.Chips {
			if cw.Preprocessed != nil && !seen[cw.Chip.Name()] {
				challenger.ObserveMatrix(cw.Preprocessed)
				seen[cw.Chip.Name()] = true
			}
		}
	}
	//
	for _, s := range w.Shards {
		challenger.Observe([]byte{byte(s.Shard), byte(s.Shard >> 8), byte(s.Shard >> 16), byte(s.Shard >> 24)})
		//
		for _, cw := range s.Chips {
			challenger.ObserveMatrix(cw.Main)
		}
	}
	//
	return challenger
}

// Accumulate the sums of every shard, checking that local interactions balance
// within each shard and that global interactions balance across all shards.
func checkSums(w *Witness) error {
	var global air.CumulativeSums
	//
	for i := range w.Shards {
		s := &w.Shards[i]
		s.Sums = air.CumulativeSums{}
		//
		for _, cw := range s.Chips {
			s.Sums = s.Sums.Add(cw.Sums)
		}
		//
		if !s.Sums.Local.IsZero() {
			return &ImbalanceError{Scope: air.Local, Shard: s.Shard, Sum: s.Sums.Local}
		}
		//
		global = global.Add(s.Sums)
	}
	//
	if !global.Global.IsZero() {
		return &ImbalanceError{Scope: air.Global, Sum: global.Global}
	}
	//
	return nil
}

// ============================================================================
// Debugging
// ============================================================================

// Debug tallies the interactions of every chip of every shard directly from
// their traces, returning every tuple which does not balance.  This identifies
// the cause of an ImbalanceError, without involving any challenges.
func (m *Machine) Debug(ctx context.Context, prog *program.Program,
	records []*record.ExecutionRecord) ([]air.Imbalance, error) {
	//
	w, _, err := m.generateTraces(ctx, prog, records)
	if err != nil {
		return nil, err
	}
	//
	balance := air.NewBalance()
	//
	for _, s := range w.Shards {
		for _, cw := range s.Chips {
			balance.Tally(cw.Chip, s.Shard, cw.Main, cw.Preprocessed)
		}
	}
	//
	return balance.Imbalances(), nil
}

// CheckConstraints checks every constraint of every chip holds on every row of
// a given witness.
func (m *Machine) CheckConstraints(w *Witness) error {
	for _, s := range w.Shards {
		for _, cw := range s.Chips {
			if err := cw.Chip.CheckConstraints(cw.Main, cw.Preprocessed); err != nil {
				return fmt.Errorf("shard %d: %w", s.Shard, err)
			}
		}
	}
	//
	return nil
}
