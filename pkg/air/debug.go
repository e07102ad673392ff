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
	"fmt"
	"slices"
	"strings"

	"github.com/consensys/go-zkvm/pkg/util/field/babybear"
)

// Imbalance identifies a tuple whose sends and receives do not cancel.
type Imbalance struct {
	Kind  InteractionKind
	Scope Scope
	// Shard of a local interaction (zero for global interactions)
	Shard  uint32
	Values []uint64
	// Net multiplicity (sends minus receives)
	Net babybear.Element
}

func (p *Imbalance) String() string {
	var values = make([]string, len(p.Values))
	//
	for i, v := range p.Values {
		values[i] = fmt.Sprintf("%d", v)
	}
	//
	return fmt.Sprintf("%s/%s shard %d (%s) net %s", p.Kind, p.Scope, p.Shard, strings.Join(values, ","), p.Net.String())
}

// Balance tallies the net multiplicity of every interaction tuple directly
// from traces.  This is a debugging aid, which identifies exactly those tuples
// responsible for a non-zero cumulative sum.
type Balance struct {
	entries map[string]*Imbalance
}

// NewBalance constructs an empty tally.
func NewBalance() *Balance {
	return &Balance{make(map[string]*Imbalance)}
}

// Tally the interactions of a chip over a given (padded) trace for a given
// shard.
func (p *Balance) Tally(mc *MachineChip, shard uint32, main *Matrix, prep *Matrix) {
	interactions, sends := mc.Interactions()
	//
	for row := range main.Height() {
		mainRow, prepRow := main.Row(row), preprocessedRow(prep, row)
		//
		for i := range interactions {
			mult := interactions[i].Multiplicity.Apply(mainRow, prepRow)
			//
			if mult.IsZero() {
				continue
			} else if !sends[i] {
				mult = mult.Neg()
			}
			//
			entry := &Imbalance{Kind: interactions[i].Kind, Scope: interactions[i].Scope}
			//
			if entry.Scope == Local {
				entry.Shard = shard
			}
			//
			for _, v := range evalValues(nil, &interactions[i], mainRow, prepRow) {
				entry.Values = append(entry.Values, v.Uint64())
			}
			//
			key := fmt.Sprintf("%d/%d/%d/%v", entry.Kind, entry.Scope, entry.Shard, entry.Values)
			//
			if prev, ok := p.entries[key]; ok {
				prev.Net = prev.Net.Add(mult)
			} else {
				entry.Net = mult
				p.entries[key] = entry
			}
		}
	}
}

// Imbalances returns every tuple whose net multiplicity is non-zero, in a
// deterministic order.
func (p *Balance) Imbalances() []Imbalance {
	var imbalances []Imbalance
	//
	for _, e := range p.entries {
		if !e.Net.IsZero() {
			imbalances = append(imbalances, *e)
		}
	}
	//
	slices.SortFunc(imbalances, func(l, r Imbalance) int {
		if c := cmp.Compare(l.Kind, r.Kind); c != 0 {
			return c
		} else if c := cmp.Compare(l.Scope, r.Scope); c != 0 {
			return c
		} else if c := cmp.Compare(l.Shard, r.Shard); c != 0 {
			return c
		}
		//
		return slices.Compare(l.Values, r.Values)
	})
	//
	return imbalances
}
