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
	"hash/fnv"
	"math/big"

	bb "github.com/consensys/gnark-crypto/field/babybear"
)

// Modulus of the BabyBear field, 2^31 - 2^27 + 1.
const Modulus = 2013265921

// Element is a BabyBear field element with value semantics, backed by the
// Montgomery representation of gnark-crypto.
type Element struct {
	inner bb.Element
}

// New constructs an element from a given uint32 value (reduced modulo the
// field order).
func New(val uint32) Element {
	var x Element
	//
	x.inner.SetUint64(uint64(val))
	//
	return x
}

// Add x+y
func (x Element) Add(y Element) Element {
	var r Element
	//
	r.inner.Add(&x.inner, &y.inner)
	//
	return r
}

// Sub x-y
func (x Element) Sub(y Element) Element {
	var r Element
	//
	r.inner.Sub(&x.inner, &y.inner)
	//
	return r
}

// Mul x*y
func (x Element) Mul(y Element) Element {
	var r Element
	//
	r.inner.Mul(&x.inner, &y.inner)
	//
	return r
}

// Neg returns -x
func (x Element) Neg() Element {
	var r Element
	//
	r.inner.Neg(&x.inner)
	//
	return r
}

// Inverse returns x⁻¹, or 0 if x = 0.
func (x Element) Inverse() Element {
	var r Element
	//
	r.inner.Inverse(&x.inner)
	//
	return r
}

// Cmp returns 1 if x > y, 0 if x = y, and -1 if x < y (comparing canonical
// representatives).
func (x Element) Cmp(y Element) int {
	a, b := x.Uint64(), y.Uint64()
	//
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Equals returns true if x = y.
func (x Element) Equals(y Element) bool {
	return x.inner.Equal(&y.inner)
}

// IsZero checks whether x = 0.
func (x Element) IsZero() bool {
	return x.inner.IsZero()
}

// IsOne checks whether x = 1.
func (x Element) IsOne() bool {
	return x.inner.IsOne()
}

// Modulus returns the field modulus.
func (x Element) Modulus() *big.Int {
	return big.NewInt(Modulus)
}

// SetUint64 returns an element representing val mod p.
func (x Element) SetUint64(val uint64) Element {
	var r Element
	//
	r.inner.SetUint64(val)
	//
	return r
}

// Uint64 returns the canonical representative of x.
func (x Element) Uint64() uint64 {
	return x.inner.Uint64()
}

// Uint32 returns the canonical representative of x.
func (x Element) Uint32() uint32 {
	return uint32(x.inner.Uint64())
}

// Bytes returns the canonical big endian encoding of x.
func (x Element) Bytes() []byte {
	b := x.inner.Bytes()
	//
	return b[:]
}

// Hash returns a 64bit hash of x.
func (x Element) Hash() uint64 {
	hash := fnv.New64a()
	hash.Write(x.Bytes())
	//
	return hash.Sum64()
}

func (x Element) String() string {
	return x.inner.String()
}

// MarshalText encodes x as its decimal representative.
func (x Element) MarshalText() ([]byte, error) {
	return []byte(x.inner.String()), nil
}
