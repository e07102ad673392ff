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
	"strings"

	"github.com/consensys/go-zkvm/pkg/util/field/babybear"
)

// Expr represents an arithmetic expression over the columns of a chip's trace.
// Expressions are built symbolically when a chip is evaluated, and are then
// either reduced (for interactions) or checked row by row (for constraints).
type Expr interface {
	fmt.Stringer
	// Add two expressions together, producing a third.
	Add(Expr) Expr
	// Subtract one expression from another
	Sub(Expr) Expr
	// Multiply two expressions together, producing a third.
	Mul(Expr) Expr
	// Degree returns the polynomial degree of this expression in the trace
	// columns.
	Degree() uint
	// AsConstant determines whether or not this is a constant expression.  If
	// so, the constant is returned; otherwise, nil is returned.  NOTE: this
	// does not perform any form of simplification to determine this.
	AsConstant() *babybear.Element
}

// ============================================================================
// Addition
// ============================================================================

// Add represents the sum over zero or more expressions.
type Add struct{ Args []Expr }

// Add two expressions together, producing a third.
func (p *Add) Add(other Expr) Expr { return &Add{Args: []Expr{p, other}} }

// Sub (subtract) one expression from another.
func (p *Add) Sub(other Expr) Expr { return &Sub{Args: []Expr{p, other}} }

// Mul (multiply) two expressions together, producing a third.
func (p *Add) Mul(other Expr) Expr { return &Mul{Args: []Expr{p, other}} }

// Degree of a sum is the largest degree of any term.
func (p *Add) Degree() uint { return maxDegree(p.Args) }

// AsConstant determines whether or not this is a constant expression.
func (p *Add) AsConstant() *babybear.Element { return nil }

func (p *Add) String() string { return stringOf("+", p.Args) }

// ============================================================================
// Subtraction
// ============================================================================

// Sub represents the subtraction over zero or more expressions.
type Sub struct{ Args []Expr }

// Add two expressions together, producing a third.
func (p *Sub) Add(other Expr) Expr { return &Add{Args: []Expr{p, other}} }

// Sub (subtract) one expression from another.
func (p *Sub) Sub(other Expr) Expr { return &Sub{Args: []Expr{p, other}} }

// Mul (multiply) two expressions together, producing a third.
func (p *Sub) Mul(other Expr) Expr { return &Mul{Args: []Expr{p, other}} }

// Degree of a subtraction is the largest degree of any term.
func (p *Sub) Degree() uint { return maxDegree(p.Args) }

// AsConstant determines whether or not this is a constant expression.
func (p *Sub) AsConstant() *babybear.Element { return nil }

func (p *Sub) String() string { return stringOf("-", p.Args) }

// ============================================================================
// Multiplication
// ============================================================================

// Mul represents the product over zero or more expressions.
type Mul struct{ Args []Expr }

// Add two expressions together, producing a third.
func (p *Mul) Add(other Expr) Expr { return &Add{Args: []Expr{p, other}} }

// Sub (subtract) one expression from another.
func (p *Mul) Sub(other Expr) Expr { return &Sub{Args: []Expr{p, other}} }

// Mul (multiply) two expressions together, producing a third.
func (p *Mul) Mul(other Expr) Expr { return &Mul{Args: []Expr{p, other}} }

// Degree of a product is the sum of the degrees of its factors.
func (p *Mul) Degree() uint {
	var d uint
	//
	for _, arg := range p.Args {
		d += arg.Degree()
	}
	//
	return d
}

// AsConstant determines whether or not this is a constant expression.
func (p *Mul) AsConstant() *babybear.Element { return nil }

func (p *Mul) String() string { return stringOf("*", p.Args) }

// ============================================================================
// Constant
// ============================================================================

// Constant represents a constant value within an expression.
type Constant struct{ Value babybear.Element }

// Const constructs an expression representing a given constant.
func Const(val uint64) Expr {
	var c babybear.Element
	//
	return &Constant{c.SetUint64(val)}
}

// ConstElement constructs an expression representing a given field element.
func ConstElement(val babybear.Element) Expr {
	return &Constant{val}
}

// Add two expressions together, producing a third.
func (p *Constant) Add(other Expr) Expr { return &Add{Args: []Expr{p, other}} }

// Sub (subtract) one expression from another.
func (p *Constant) Sub(other Expr) Expr { return &Sub{Args: []Expr{p, other}} }

// Mul (multiply) two expressions together, producing a third.
func (p *Constant) Mul(other Expr) Expr { return &Mul{Args: []Expr{p, other}} }

// Degree of a constant is zero.
func (p *Constant) Degree() uint { return 0 }

// AsConstant returns the constant value.
func (p *Constant) AsConstant() *babybear.Element { return &p.Value }

func (p *Constant) String() string { return p.Value.String() }

// ============================================================================
// Column Access
// ============================================================================

// ColumnKind distinguishes the traces a column may belong to.
type ColumnKind uint8

const (
	// MainColumn is a column of the main (record dependent) trace.
	MainColumn ColumnKind = iota
	// PreprocessedColumn is a column of the preprocessed (program dependent)
	// trace.
	PreprocessedColumn
)

// ColumnAccess represents reading the value held at a given column on the
// current row or, when shifted, the next row.  Rows wrap around, such that the
// next row of the last row is the first.
type ColumnAccess struct {
	Kind   ColumnKind
	Column uint
	Shift  uint
}

// Add two expressions together, producing a third.
func (p *ColumnAccess) Add(other Expr) Expr { return &Add{Args: []Expr{p, other}} }

// Sub (subtract) one expression from another.
func (p *ColumnAccess) Sub(other Expr) Expr { return &Sub{Args: []Expr{p, other}} }

// Mul (multiply) two expressions together, producing a third.
func (p *ColumnAccess) Mul(other Expr) Expr { return &Mul{Args: []Expr{p, other}} }

// Degree of a column access is one.
func (p *ColumnAccess) Degree() uint { return 1 }

// AsConstant determines whether or not this is a constant expression.
func (p *ColumnAccess) AsConstant() *babybear.Element { return nil }

func (p *ColumnAccess) String() string {
	var prefix = "main"
	//
	if p.Kind == PreprocessedColumn {
		prefix = "prep"
	}
	//
	if p.Shift != 0 {
		return fmt.Sprintf("%s[%d]'", prefix, p.Column)
	}
	//
	return fmt.Sprintf("%s[%d]", prefix, p.Column)
}

// ============================================================================
// Row Selectors
// ============================================================================

// SelectorKind identifies a row selector.
type SelectorKind uint8

const (
	// FirstRow is one on the first row and zero elsewhere.
	FirstRow SelectorKind = iota
	// LastRow is one on the last row and zero elsewhere.
	LastRow
	// Transition is zero on the last row and one elsewhere.
	Transition
)

// Selector is a column like value determined only by the row index.
type Selector struct{ Kind SelectorKind }

// Add two expressions together, producing a third.
func (p *Selector) Add(other Expr) Expr { return &Add{Args: []Expr{p, other}} }

// Sub (subtract) one expression from another.
func (p *Selector) Sub(other Expr) Expr { return &Sub{Args: []Expr{p, other}} }

// Mul (multiply) two expressions together, producing a third.
func (p *Selector) Mul(other Expr) Expr { return &Mul{Args: []Expr{p, other}} }

// Degree of a selector is one.
func (p *Selector) Degree() uint { return 1 }

// AsConstant determines whether or not this is a constant expression.
func (p *Selector) AsConstant() *babybear.Element { return nil }

func (p *Selector) String() string {
	switch p.Kind {
	case FirstRow:
		return "first"
	case LastRow:
		return "last"
	default:
		return "transition"
	}
}

// ============================================================================
// Helpers
// ============================================================================

// Sum constructs the sum of zero or more expressions.
func Sum(args ...Expr) Expr {
	switch len(args) {
	case 0:
		return Const(0)
	case 1:
		return args[0]
	default:
		return &Add{Args: args}
	}
}

// Product constructs the product of zero or more expressions.
func Product(args ...Expr) Expr {
	switch len(args) {
	case 0:
		return Const(1)
	case 1:
		return args[0]
	default:
		return &Mul{Args: args}
	}
}

// Scale multiplies an expression by a constant.
func Scale(e Expr, c uint64) Expr {
	return &Mul{Args: []Expr{Const(c), e}}
}

// Neg negates an expression.
func Neg(e Expr) Expr {
	return &Sub{Args: []Expr{Const(0), e}}
}

// Not computes 1 - e, for a boolean expression e.
func Not(e Expr) Expr {
	return &Sub{Args: []Expr{Const(1), e}}
}

// Word combines the (little endian) limbs of a word into a single value, where
// each limb has a given bitwidth.
func Word(limbs []Expr, bitwidth uint) Expr {
	var terms = make([]Expr, len(limbs))
	//
	for i, l := range limbs {
		terms[i] = Scale(l, 1<<(bitwidth*uint(i)))
	}
	//
	return Sum(terms...)
}

func maxDegree(args []Expr) uint {
	var d uint
	//
	for _, arg := range args {
		d = max(d, arg.Degree())
	}
	//
	return d
}

func stringOf(op string, args []Expr) string {
	var builder strings.Builder
	//
	builder.WriteString("(")
	builder.WriteString(op)
	//
	for _, arg := range args {
		builder.WriteString(" ")
		builder.WriteString(arg.String())
	}
	//
	builder.WriteString(")")
	//
	return builder.String()
}
