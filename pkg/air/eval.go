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

// EvalAt evaluates an expression at a given row of a chip's main and
// preprocessed traces.  Accesses to the next row wrap around to the first
// row.
func EvalAt(e Expr, row uint, main *Matrix, prep *Matrix) babybear.Element {
	switch e := e.(type) {
	case *Add:
		var acc babybear.Element
		//
		for _, arg := range e.Args {
			acc = acc.Add(EvalAt(arg, row, main, prep))
		}
		//
		return acc
	case *Sub:
		if len(e.Args) == 0 {
			return babybear.Element{}
		}
		//
		acc := EvalAt(e.Args[0], row, main, prep)
		//
		for _, arg := range e.Args[1:] {
			acc = acc.Sub(EvalAt(arg, row, main, prep))
		}
		//
		return acc
	case *Mul:
		acc := babybear.New(1)
		//
		for _, arg := range e.Args {
			acc = acc.Mul(EvalAt(arg, row, main, prep))
			// short circuit
			if acc.IsZero() {
				return acc
			}
		}
		//
		return acc
	case *Constant:
		return e.Value
	case *ColumnAccess:
		trace := main
		//
		if e.Kind == PreprocessedColumn {
			trace = prep
		}
		//
		r := (row + e.Shift) % trace.Height()
		//
		return trace.Get(r, e.Column)
	case *Selector:
		var (
			last = main.Height() - 1
			hit  bool
		)
		//
		switch e.Kind {
		case FirstRow:
			hit = row == 0
		case LastRow:
			hit = row == last
		default:
			hit = row != last
		}
		//
		if hit {
			return babybear.New(1)
		}
		//
		return babybear.Element{}
	default:
		panic(fmt.Sprintf("unknown expression encountered (%s)", e.String()))
	}
}
