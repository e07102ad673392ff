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
package events

// PrecompileKind discriminates the families of precompile events.
type PrecompileKind uint8

const (
	// ShaExtendKind identifies the SHA-256 message schedule extension.
	ShaExtendKind PrecompileKind = iota + 1
	// EllipticCurveKind identifies short Weierstrass point addition and
	// doubling.
	EllipticCurveKind
	// Uint256MulKind identifies 256bit modular multiplication.
	Uint256MulKind
)

// ShaExtendSteps is the number of message schedule words computed by the
// SHA extend precompile.
const ShaExtendSteps = 48

// ShaExtendEvent records the SHA-256 message schedule extension of the 64
// word array at WPtr.  Access slices hold one entry per step.
type ShaExtendEvent struct {
	_    struct{} `cbor:",toarray"`
	WPtr uint32
	// Reads of w[i-15], w[i-2], w[i-16] and w[i-7]
	W15 []MemoryAccess
	W2  []MemoryAccess
	W16 []MemoryAccess
	W7  []MemoryAccess
	// Writes of w[i]
	W []MemoryAccess
}

// EllipticCurveEvent records a point addition (P := P+Q) or doubling
// (P := 2P).  Points are encoded as little endian words (x followed by y).
type EllipticCurveEvent struct {
	_    struct{} `cbor:",toarray"`
	PPtr uint32
	QPtr uint32
	P    []uint32
	Q    []uint32
	// Writes of the result into P
	PAccess []MemoryAccess
	// Reads of Q (empty for doubling)
	QAccess []MemoryAccess
}

// Uint256MulEvent records x := x*y mod m for little endian 256bit words,
// where m is stored immediately after y.  A zero modulus denotes 2^256.
type Uint256MulEvent struct {
	_       struct{} `cbor:",toarray"`
	XPtr    uint32
	YPtr    uint32
	X       []uint32
	Y       []uint32
	Modulus []uint32
	// Writes of the result into x
	XAccess []MemoryAccess
	// Reads of y and then the modulus
	YAccess []MemoryAccess
}

// PrecompileEvent is a tagged variant over the precompile event families,
// together with the syscall which produced it.  Exactly one of the family
// fields is set, as determined by Kind.
type PrecompileEvent struct {
	_          struct{} `cbor:",toarray"`
	Kind       PrecompileKind
	Syscall    SyscallEvent
	ShaExtend  *ShaExtendEvent
	Curve      *EllipticCurveEvent
	Uint256Mul *Uint256MulEvent
}

// Accesses returns all memory accesses made by this precompile, in the order
// they occurred.
func (e *PrecompileEvent) Accesses() []MemoryAccess {
	var accesses []MemoryAccess
	//
	switch e.Kind {
	case ShaExtendKind:
		ev := e.ShaExtend
		for i := range ev.W {
			accesses = append(accesses, ev.W15[i], ev.W2[i], ev.W16[i], ev.W7[i], ev.W[i])
		}
	case EllipticCurveKind:
		accesses = append(accesses, e.Curve.QAccess...)
		accesses = append(accesses, e.Curve.PAccess...)
	case Uint256MulKind:
		accesses = append(accesses, e.Uint256Mul.YAccess...)
		accesses = append(accesses, e.Uint256Mul.XAccess...)
	default:
		panic("unknown precompile kind")
	}
	//
	return accesses
}
