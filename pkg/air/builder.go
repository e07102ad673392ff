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

// declaration of a single interaction, prior to its reduction.
type declaration struct {
	kind   InteractionKind
	scope  Scope
	send   bool
	mult   Expr
	values []Expr
}

// Builder collects the constraints and interactions declared by a chip when
// it is evaluated symbolically.
type Builder struct {
	constraints  []Constraint
	declarations []declaration
}

// Main accesses a main trace column on the current row.
func (p *Builder) Main(col uint) Expr {
	return &ColumnAccess{MainColumn, col, 0}
}

// Next accesses a main trace column on the next row.
func (p *Builder) Next(col uint) Expr {
	return &ColumnAccess{MainColumn, col, 1}
}

// Preprocessed accesses a preprocessed trace column on the current row.
func (p *Builder) Preprocessed(col uint) Expr {
	return &ColumnAccess{PreprocessedColumn, col, 0}
}

// Word accesses the four byte columns of a word on the current row.
func (p *Builder) Word(cols [4]uint) []Expr {
	return []Expr{p.Main(cols[0]), p.Main(cols[1]), p.Main(cols[2]), p.Main(cols[3])}
}

// Cols accesses a list of main trace columns on the current row.
func (p *Builder) Cols(cols ...uint) []Expr {
	var exprs = make([]Expr, len(cols))
	//
	for i, c := range cols {
		exprs[i] = p.Main(c)
	}
	//
	return exprs
}

// IsFirstRow is one on the first row only.
func (p *Builder) IsFirstRow() Expr {
	return &Selector{FirstRow}
}

// IsLastRow is one on the last row only.
func (p *Builder) IsLastRow() Expr {
	return &Selector{LastRow}
}

// IsTransition is one on every row but the last.
func (p *Builder) IsTransition() Expr {
	return &Selector{Transition}
}

// AssertZero declares that a given expression vanishes on every row.
func (p *Builder) AssertZero(handle string, e Expr) {
	p.constraints = append(p.constraints, Constraint{handle, e})
}

// AssertEqual declares that two expressions agree on every row.
func (p *Builder) AssertEqual(handle string, lhs Expr, rhs Expr) {
	p.AssertZero(handle, lhs.Sub(rhs))
}

// AssertWhen declares that a given expression vanishes whenever a condition
// holds.
func (p *Builder) AssertWhen(handle string, cond Expr, e Expr) {
	p.AssertZero(handle, cond.Mul(e))
}

// Send declares an interaction sent with a given multiplicity.
func (p *Builder) Send(kind InteractionKind, scope Scope, mult Expr, values ...Expr) {
	p.declarations = append(p.declarations, declaration{kind, scope, true, mult, values})
}

// Receive declares an interaction received with a given multiplicity.
func (p *Builder) Receive(kind InteractionKind, scope Scope, mult Expr, values ...Expr) {
	p.declarations = append(p.declarations, declaration{kind, scope, false, mult, values})
}

// Constraints returns the constraints declared so far.
func (p *Builder) Constraints() []Constraint {
	return p.constraints
}
