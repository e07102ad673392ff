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
package air

import (
	"fmt"

	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
)

// Chip is a single table of the machine.  A chip turns the events of an
// execution record into a trace, and declares the constraints and
// interactions which every row of that trace must satisfy.
type Chip interface {
	// Name of this chip, which must be unique within a machine.
	Name() string
	// Width returns the number of columns in the main trace.
	Width() uint
	// PreprocessedWidth returns the number of columns in the preprocessed
	// trace, which is zero for most chips.
	PreprocessedWidth() uint
	// GeneratePreprocessedTrace generates the (program dependent) preprocessed
	// trace, or nil if this chip has none.
	GeneratePreprocessedTrace(p *program.Program) *Matrix
	// GenerateTrace generates the main trace for a given (finalized) record.
	// The trace is unpadded, and has NumRows rows.
	GenerateTrace(r *record.ExecutionRecord) *Matrix
	// GenerateDependencies appends to output the events which this chip's
	// trace depends upon in other chips (e.g. byte lookups).  This must agree
	// exactly with the interactions of the generated trace.
	GenerateDependencies(r *record.ExecutionRecord, output *record.ExecutionRecord)
	// Included determines whether this chip has any rows in a given record.
	Included(r *record.ExecutionRecord) bool
	// NumRows returns the (unpadded) number of rows this chip requires for a
	// given record.
	NumRows(r *record.ExecutionRecord) uint
	// Eval declares the constraints and interactions of this chip.
	Eval(b *Builder)
}

// MachineChip is a chip whose declarations have been compiled and checked.
type MachineChip struct {
	Chip
	sends       []Interaction
	receives    []Interaction
	constraints []Constraint
	degree      uint
}

// NewMachineChip compiles the declarations of a given chip, such that every
// interaction is reduced to virtual columns.  This fails with a
// ChipConstructionError if any interaction is not affine, or refers to a
// column outside the chip's declared widths.
func NewMachineChip(chip Chip) (*MachineChip, error) {
	var (
		builder Builder
		mc      = &MachineChip{Chip: chip}
	)
	//
	chip.Eval(&builder)
	//
	for i, decl := range builder.declarations {
		interaction, err := reduceDeclaration(decl)
		//
		if err != nil {
			return nil, &ChipConstructionError{chip.Name(), fmt.Sprintf("interaction %d: %s", i, err.Error())}
		} else if err := mc.checkBounds(&interaction); err != nil {
			return nil, &ChipConstructionError{chip.Name(), fmt.Sprintf("interaction %d: %s", i, err.Error())}
		}
		//
		if decl.send {
			mc.sends = append(mc.sends, interaction)
		} else {
			mc.receives = append(mc.receives, interaction)
		}
	}
	//
	for _, c := range builder.constraints {
		if err := mc.checkExprBounds(c.Expr); err != nil {
			return nil, &ChipConstructionError{chip.Name(), fmt.Sprintf("constraint %s: %s", c.Handle, err.Error())}
		}
		//
		mc.degree = max(mc.degree, c.Expr.Degree())
	}
	//
	mc.constraints = builder.constraints
	//
	return mc, nil
}

// Sends returns the compiled sends of this chip.
func (p *MachineChip) Sends() []Interaction {
	return p.sends
}

// Receives returns the compiled receives of this chip.
func (p *MachineChip) Receives() []Interaction {
	return p.receives
}

// Interactions returns all sends followed by all receives, along with a flag
// for each indicating whether it is a send.
func (p *MachineChip) Interactions() ([]Interaction, []bool) {
	var (
		all   = make([]Interaction, 0, len(p.sends)+len(p.receives))
		sends = make([]bool, 0, len(p.sends)+len(p.receives))
	)
	//
	for _, i := range p.sends {
		all = append(all, i)
		sends = append(sends, true)
	}
	//
	for _, i := range p.receives {
		all = append(all, i)
		sends = append(sends, false)
	}
	//
	return all, sends
}

// Constraints returns the vanishing constraints of this chip.
func (p *MachineChip) Constraints() []Constraint {
	return p.constraints
}

// Degree returns the maximum degree of any constraint of this chip.
func (p *MachineChip) Degree() uint {
	return p.degree
}

// CheckConstraints checks every constraint of this chip against a given
// (padded) trace, returning the first which fails.
func (p *MachineChip) CheckConstraints(main *Matrix, prep *Matrix) error {
	if main.Width() != p.Width() {
		return fmt.Errorf("chip %s: trace has width %d (expected %d)", p.Name(), main.Width(), p.Width())
	}
	//
	for i := range p.constraints {
		if err := p.constraints[i].Accepts(main, prep); err != nil {
			return fmt.Errorf("chip %s: %w", p.Name(), err)
		}
	}
	//
	return nil
}

func (p *MachineChip) checkBounds(interaction *Interaction) error {
	var cols = append([]VirtualColumn{interaction.Multiplicity}, interaction.Values...)
	//
	for _, vc := range cols {
		for _, w := range vc.Main {
			if w.Column >= p.Width() {
				return fmt.Errorf("main column %d out of bounds", w.Column)
			}
		}
		//
		for _, w := range vc.Preprocessed {
			if w.Column >= p.PreprocessedWidth() {
				return fmt.Errorf("preprocessed column %d out of bounds", w.Column)
			}
		}
	}
	//
	return nil
}

func (p *MachineChip) checkExprBounds(e Expr) error {
	switch e := e.(type) {
	case *Add:
		return p.checkAllBounds(e.Args)
	case *Sub:
		return p.checkAllBounds(e.Args)
	case *Mul:
		return p.checkAllBounds(e.Args)
	case *ColumnAccess:
		if e.Kind == MainColumn && e.Column >= p.Width() {
			return fmt.Errorf("main column %d out of bounds", e.Column)
		} else if e.Kind == PreprocessedColumn && e.Column >= p.PreprocessedWidth() {
			return fmt.Errorf("preprocessed column %d out of bounds", e.Column)
		}
	}
	//
	return nil
}

func (p *MachineChip) checkAllBounds(args []Expr) error {
	for _, arg := range args {
		if err := p.checkExprBounds(arg); err != nil {
			return err
		}
	}
	//
	return nil
}

func reduceDeclaration(decl declaration) (Interaction, error) {
	var (
		interaction = Interaction{Kind: decl.kind, Scope: decl.scope}
		err         error
	)
	//
	if interaction.Multiplicity, err = Reduce(decl.mult); err != nil {
		return interaction, fmt.Errorf("multiplicity: %w", err)
	}
	//
	interaction.Values = make([]VirtualColumn, len(decl.values))
	//
	for i, v := range decl.values {
		if interaction.Values[i], err = Reduce(v); err != nil {
			return interaction, fmt.Errorf("value %d: %w", i, err)
		}
	}
	//
	return interaction, nil
}
