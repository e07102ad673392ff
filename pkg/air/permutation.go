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

	"github.com/consensys/go-zkvm/pkg/util/field"
	"github.com/consensys/go-zkvm/pkg/util/field/babybear"
)

// CumulativeSums are the totals of a chip's permutation trace, split by
// scope.
type CumulativeSums struct {
	Local  babybear.Element
	Global babybear.Element
}

// Add two cumulative sums together.
func (p CumulativeSums) Add(other CumulativeSums) CumulativeSums {
	return CumulativeSums{p.Local.Add(other.Local), p.Global.Add(other.Global)}
}

// Fingerprint compresses the values of an interaction into a single field
// element, as kind + Σ βʲ⁺¹·vⱼ.
func Fingerprint(kind InteractionKind, values []babybear.Element, beta babybear.Element) babybear.Element {
	var (
		acc = babybear.New(uint32(kind))
		pow = beta
	)
	//
	for _, v := range values {
		acc = acc.Add(pow.Mul(v))
		pow = pow.Mul(beta)
	}
	//
	return acc
}

// GeneratePermutationTrace computes the permutation trace of this chip for a
// given (padded) main and preprocessed trace.  The trace has one column per
// interaction, holding ±m/(α - fp) on each row (positive for sends), followed
// by a running sum of the local and then the global terms.  The cumulative
// sums are those of the last row.
func (p *MachineChip) GeneratePermutationTrace(main *Matrix, prep *Matrix, ch Challenges) (*Matrix,
	CumulativeSums, error) {
	//
	var (
		interactions, sends = p.Interactions()
		n                   = uint(len(interactions))
		height              = main.Height()
		width               = n + 2
		perm                = NewMatrix(width, height)
		denominators        = make([]babybear.Element, n*height)
		multiplicities      = make([]babybear.Element, n*height)
		values              []babybear.Element
		sums                CumulativeSums
	)
	// Compute all denominators first, so they can be inverted together.
	for row := range height {
		mainRow, prepRow := main.Row(row), preprocessedRow(prep, row)
		//
		for i := range interactions {
			values = evalValues(values[:0], &interactions[i], mainRow, prepRow)
			denom := ch.Alpha.Sub(Fingerprint(interactions[i].Kind, values, ch.Beta))
			//
			if denom.IsZero() {
				return nil, sums, fmt.Errorf("chip %s: zero denominator for interaction %d (row %d)", p.Name(), i, row)
			}
			//
			denominators[row*n+uint(i)] = denom
			multiplicities[row*n+uint(i)] = interactions[i].Multiplicity.Apply(mainRow, prepRow)
		}
	}
	//
	field.BatchInvert(denominators)
	//
	for row := range height {
		var local, global babybear.Element
		//
		for i := range interactions {
			term := multiplicities[row*n+uint(i)].Mul(denominators[row*n+uint(i)])
			//
			if !sends[i] {
				term = term.Neg()
			}
			//
			perm.Set(row, uint(i), term)
			//
			if interactions[i].Scope == Local {
				local = local.Add(term)
			} else {
				global = global.Add(term)
			}
		}
		//
		sums.Local = sums.Local.Add(local)
		sums.Global = sums.Global.Add(global)
		perm.Set(row, n, sums.Local)
		perm.Set(row, n+1, sums.Global)
	}
	//
	return perm, sums, nil
}

func evalValues(buf []babybear.Element, i *Interaction, main, prep []babybear.Element) []babybear.Element {
	for j := range i.Values {
		buf = append(buf, i.Values[j].Apply(main, prep))
	}
	//
	return buf
}

func preprocessedRow(prep *Matrix, row uint) []babybear.Element {
	if prep == nil || prep.Width() == 0 {
		return nil
	}
	//
	return prep.Row(row)
}
