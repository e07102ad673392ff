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
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/consensys/go-zkvm/pkg/util/field/babybear"
)

// ErrChipConstruction is the sentinel matched by every ChipConstructionError.
var ErrChipConstruction = errors.New("chip construction error")

// ChipConstructionError reports a chip whose declaration is malformed, such as
// an interaction which is not an affine function of the current row.
type ChipConstructionError struct {
	Chip string
	Msg  string
}

func (e *ChipConstructionError) Error() string {
	return fmt.Sprintf("chip %s: %s", e.Chip, e.Msg)
}

// Is allows errors.Is to match against ErrChipConstruction.
func (e *ChipConstructionError) Is(target error) bool {
	return target == ErrChipConstruction
}

// Weight associates a coefficient with a given column.
type Weight struct {
	Column uint
	Coeff  babybear.Element
}

// VirtualColumn is an affine combination of the main and preprocessed columns
// of a single row, plus a constant.  Interaction values and multiplicities are
// always virtual columns.
type VirtualColumn struct {
	Main         []Weight
	Preprocessed []Weight
	Constant     babybear.Element
}

// Apply evaluates this virtual column against a given row of the main and
// preprocessed traces.
func (v *VirtualColumn) Apply(main []babybear.Element, prep []babybear.Element) babybear.Element {
	acc := v.Constant
	//
	for _, w := range v.Main {
		acc = acc.Add(w.Coeff.Mul(main[w.Column]))
	}
	//
	for _, w := range v.Preprocessed {
		acc = acc.Add(w.Coeff.Mul(prep[w.Column]))
	}
	//
	return acc
}

// IsConstant returns true when this column refers to no trace columns.
func (v *VirtualColumn) IsConstant() bool {
	return len(v.Main) == 0 && len(v.Preprocessed) == 0
}

func (v *VirtualColumn) String() string {
	var parts []string
	//
	for _, w := range v.Main {
		parts = append(parts, fmt.Sprintf("%s*main[%d]", w.Coeff.String(), w.Column))
	}
	//
	for _, w := range v.Preprocessed {
		parts = append(parts, fmt.Sprintf("%s*prep[%d]", w.Coeff.String(), w.Column))
	}
	//
	if !v.Constant.IsZero() || len(parts) == 0 {
		parts = append(parts, v.Constant.String())
	}
	//
	return strings.Join(parts, " + ")
}

// Reduce an expression into a virtual column.  This fails when the expression
// is not an affine function of the current row; that is, when it multiplies
// two non-constant terms, accesses the next row or uses a row selector.
func Reduce(e Expr) (VirtualColumn, error) {
	var (
		main = make(map[uint]babybear.Element)
		prep = make(map[uint]babybear.Element)
		col  VirtualColumn
	)
	//
	if err := reduce(e, babybear.New(1), main, prep, &col.Constant); err != nil {
		return col, err
	}
	//
	col.Main = weightsOf(main)
	col.Preprocessed = weightsOf(prep)
	//
	return col, nil
}

func reduce(e Expr, scale babybear.Element, main, prep map[uint]babybear.Element,
	constant *babybear.Element) error {
	//
	switch e := e.(type) {
	case *Add:
		for _, arg := range e.Args {
			if err := reduce(arg, scale, main, prep, constant); err != nil {
				return err
			}
		}
	case *Sub:
		for i, arg := range e.Args {
			s := scale
			//
			if i > 0 {
				s = scale.Neg()
			}
			//
			if err := reduce(arg, s, main, prep, constant); err != nil {
				return err
			}
		}
	case *Mul:
		var term Expr
		// Fold constant factors into the scale, allowing at most one
		// non-constant factor.
		for _, arg := range e.Args {
			if c, ok := constantOf(arg); ok {
				scale = scale.Mul(c)
			} else if term != nil {
				return fmt.Errorf("non-affine term %s", e.String())
			} else {
				term = arg
			}
		}
		//
		if term == nil {
			*constant = constant.Add(scale)
			return nil
		}
		//
		return reduce(term, scale, main, prep, constant)
	case *Constant:
		*constant = constant.Add(scale.Mul(e.Value))
	case *ColumnAccess:
		if e.Shift != 0 {
			return fmt.Errorf("next row access %s", e.String())
		}
		//
		weights := main
		//
		if e.Kind == PreprocessedColumn {
			weights = prep
		}
		//
		weights[e.Column] = weights[e.Column].Add(scale)
	case *Selector:
		return fmt.Errorf("row selector %s", e.String())
	default:
		return fmt.Errorf("unknown expression %s", e.String())
	}
	//
	return nil
}

// constantOf attempts to fold an expression into a constant.  Unlike
// AsConstant, this looks through arithmetic over constants.
func constantOf(e Expr) (babybear.Element, bool) {
	switch e := e.(type) {
	case *Constant:
		return e.Value, true
	case *Add:
		var acc babybear.Element
		//
		for _, arg := range e.Args {
			c, ok := constantOf(arg)
			if !ok {
				return acc, false
			}
			//
			acc = acc.Add(c)
		}
		//
		return acc, true
	case *Sub:
		var acc babybear.Element
		//
		for i, arg := range e.Args {
			c, ok := constantOf(arg)
			if !ok {
				return acc, false
			} else if i == 0 {
				acc = c
			} else {
				acc = acc.Sub(c)
			}
		}
		//
		return acc, true
	case *Mul:
		acc := babybear.New(1)
		//
		for _, arg := range e.Args {
			c, ok := constantOf(arg)
			if !ok {
				return acc, false
			}
			//
			acc = acc.Mul(c)
		}
		//
		return acc, true
	default:
		return babybear.Element{}, false
	}
}

// weightsOf converts a map of coefficients into a list of weights sorted by
// column, dropping those which cancelled out.
func weightsOf(m map[uint]babybear.Element) []Weight {
	var weights []Weight
	//
	for col, coeff := range m {
		if !coeff.IsZero() {
			weights = append(weights, Weight{col, coeff})
		}
	}
	//
	slices.SortFunc(weights, func(l, r Weight) int { return cmp.Compare(l.Column, r.Column) })
	//
	return weights
}
