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
package babybear

import (
	"math/rand"
	"testing"

	"github.com/consensys/go-zkvm/pkg/util/field"
	"github.com/stretchr/testify/require"
)

func init() {
	// make sure the interface is adhered to.
	_ = field.Element[Element](Element{})
}

func Test_BabyBear_01(t *testing.T) {
	var (
		a = New(Modulus - 1)
		b = New(2)
	)
	//
	require.Equal(t, uint64(1), a.Add(b).Uint64())
	require.Equal(t, uint64(Modulus-3), b.Sub(New(5)).Uint64())
	require.Equal(t, uint64(Modulus-2), a.Mul(b).Uint64())
	require.True(t, a.Add(New(1)).IsZero())
	require.True(t, a.Neg().IsOne())
}

func Test_BabyBear_02(t *testing.T) {
	for range 1000 {
		x := New(rand.Uint32())
		if x.IsZero() {
			continue
		}
		//
		require.True(t, x.Mul(x.Inverse()).IsOne(), "inverse of %s", x)
	}
	// zero has no inverse
	require.True(t, New(0).Inverse().IsZero())
}

func Test_BabyBear_03(t *testing.T) {
	s := make([]Element, 400)
	sInv := make([]Element, len(s))
	scratch := make([]Element, len(s))

	for i := range s {
		s[i] = New(rand.Uint32())
		if i%7 == 0 {
			s[i] = New(0) // zeros must be preserved
		}

		sInv[i] = s[i].Inverse()

		copy(scratch[:i], s)
		field.BatchInvert(scratch[:i])

		for j := range i {
			require.True(t, sInv[j].Equals(scratch[j]), "on slice %v, at index %d", s[:i], j)
		}
	}
}

func Test_BabyBear_04(t *testing.T) {
	var (
		two    = New(2)
		powers = field.Powers(two, 10)
	)
	//
	for i, p := range powers {
		require.Equal(t, uint64(1)<<i, p.Uint64())
	}
	//
	require.Equal(t, uint64(1)<<30, field.TwoPowN[Element](30).Uint64())
	// Fermat
	require.True(t, field.Pow(New(7), Modulus-1).IsOne())
}
