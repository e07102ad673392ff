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

	"github.com/consensys/go-zkvm/pkg/util/field/babybear"
)

// Constraint is a vanishing constraint which must evaluate to zero on every
// row of a chip's trace.
type Constraint struct {
	// A unique identifier for this constraint.  This is primarily useful for
	// debugging.
	Handle string
	// The expression which must vanish.
	Expr Expr
}

// Accepts checks whether a vanishing constraint evaluates to zero on every
// row of a given trace.  If not, the first failing row is reported.
func (p *Constraint) Accepts(main *Matrix, prep *Matrix) error {
	for row := range main.Height() {
		val := EvalAt(p.Expr, row, main, prep)
		//
		if !val.IsZero() {
			return &ConstraintFailure{p.Handle, row, val}
		}
	}
	//
	return nil
}

// ConstraintFailure reports a constraint which did not vanish on some row.
type ConstraintFailure struct {
	Handle string
	Row    uint
	Value  babybear.Element
}

func (p *ConstraintFailure) Error() string {
	return fmt.Sprintf("constraint \"%s\" does not hold (row %d evaluates to %s)", p.Handle, p.Row, p.Value.String())
}
