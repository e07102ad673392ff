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

// ApplyBinaryGadget adds a binarity constraint for a given column which
// enforces that all values in the column are either 0 or 1. For a column X,
// this corresponds to the vanishing constraint X * (X-1) == 0.
func ApplyBinaryGadget(handle string, x Expr, b *Builder) {
	// Construct X-1
	x_m1 := &Sub{Args: []Expr{x, Const(1)}}
	// Construct X * (X-1)
	b.AssertZero(fmt.Sprintf("%s:bool", handle), &Mul{Args: []Expr{x, x_m1}})
}

// ApplyPseudoInverseGadget constrains a column inv to hold the multiplicative
// inverse of e whenever e is non-zero, and returns an expression which is one
// exactly when e is zero.  The column is populated with PseudoInverse.
func ApplyPseudoInverseGadget(handle string, e Expr, inv Expr, b *Builder) Expr {
	// Construct 1 - e/e
	is_zero := Not(e.Mul(inv))
	// Ensure (e != 0) ==> (1 == e/e)
	b.AssertZero(fmt.Sprintf("[%s <=]", handle), e.Mul(is_zero))
	// Ensure (1/e != 0) ==> (1 == e/e)
	b.AssertZero(fmt.Sprintf("[%s =>]", handle), inv.Mul(is_zero))
	// Done
	return is_zero
}

// PseudoInverse computes the value assigned to the inverse column of a
// pseudo-inverse gadget, which is zero for zero.
func PseudoInverse(val babybear.Element) babybear.Element {
	return val.Inverse()
}

// ApplyOneHotGadget constrains a set of flags such that each is boolean and,
// when enabled holds, exactly one is set.  The sum of the flags is returned.
func ApplyOneHotGadget(handle string, flags []Expr, enabled Expr, b *Builder) Expr {
	for i, f := range flags {
		ApplyBinaryGadget(fmt.Sprintf("%s_%d", handle, i), f, b)
	}
	//
	sum := Sum(flags...)
	b.AssertZero(fmt.Sprintf("%s:one_hot", handle), enabled.Mul(Not(sum)))
	//
	return sum
}
