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
package syscall

import (
	"encoding/binary"
	"slices"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/fault"
)

// Number of words in an encoded BN254 G1 point (x then y, each 8 little endian
// words).
const bn254PointWords = 16

// Bn254Handler implements BN254 G1 point addition (P := P+Q) and doubling
// (P := 2P).  The point P is read without a record, and is subsequently bound
// by the write of the result.
type Bn254Handler struct{}

// Rebinds implementation for the UnconstrainedAccess interface.
func (h *Bn254Handler) Rebinds() bool {
	return true
}

// Execute implementation for the Handler interface.
func (h *Bn254Handler) Execute(ctx Context, code Code, pPtr, qPtr uint32) (uint32, bool, error) {
	var (
		ev     = &events.EllipticCurveEvent{PPtr: pPtr}
		result bn254.G1Affine
	)
	//
	peeker, err := ctx.Unconstrained()
	if err != nil {
		return 0, false, err
	}
	//
	pWords, err := peeker.PeekSlice(pPtr, bn254PointWords)
	if err != nil {
		return 0, false, err
	}
	//
	ev.P = Values(pWords)
	//
	p, ok := decodeBn254Point(ev.P)
	if !ok {
		return 0, false, &fault.ExecutionError{Kind: fault.InvalidSyscallUsage, Code: uint32(code), Addr: pPtr}
	}
	//
	switch code {
	case Bn254Add:
		ev.QPtr = qPtr
		//
		if ev.QAccess, ev.Q, err = ReadSlice(ctx, qPtr, bn254PointWords); err != nil {
			return 0, false, err
		}
		//
		q, ok := decodeBn254Point(ev.Q)
		if !ok {
			return 0, false, &fault.ExecutionError{Kind: fault.InvalidSyscallUsage, Code: uint32(code), Addr: qPtr}
		}
		// Writes must follow the reads of Q
		ctx.Bump()
		result.Add(&p, &q)
	case Bn254Double:
		result.Double(&p)
	default:
		return 0, false, &fault.ExecutionError{Kind: fault.UnsupportedSyscall, Code: uint32(code)}
	}
	//
	if ev.PAccess, err = WriteSlice(ctx, pPtr, encodeBn254Point(&result)); err != nil {
		return 0, false, err
	}
	//
	ctx.AddPrecompile(events.PrecompileEvent{Kind: events.EllipticCurveKind, Syscall: ctx.SyscallEvent(), Curve: ev})
	//
	return 0, false, nil
}

func decodeBn254Point(words []uint32) (bn254.G1Affine, bool) {
	var p bn254.G1Affine
	//
	if p.X.SetBytesCanonical(wordsToBigEndian(words[:8])) != nil {
		return p, false
	} else if p.Y.SetBytesCanonical(wordsToBigEndian(words[8:])) != nil {
		return p, false
	}
	//
	return p, p.IsOnCurve()
}

func encodeBn254Point(p *bn254.G1Affine) []uint32 {
	x, y := p.X.Bytes(), p.Y.Bytes()
	//
	return append(bigEndianToWords(x[:]), bigEndianToWords(y[:])...)
}

// Convert little endian words into a big endian byte string.
func wordsToBigEndian(words []uint32) []byte {
	bytes := make([]byte, 4*len(words))
	//
	for i, w := range words {
		binary.LittleEndian.PutUint32(bytes[4*i:], w)
	}
	//
	slices.Reverse(bytes)
	//
	return bytes
}

// Convert a big endian byte string into little endian words.
func bigEndianToWords(bytes []byte) []uint32 {
	var (
		le    = slices.Clone(bytes)
		words = make([]uint32, (len(bytes)+3)/4)
	)
	//
	slices.Reverse(le)
	//
	for len(le)%4 != 0 {
		le = append(le, 0)
	}
	//
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(le[4*i:])
	}
	//
	return words
}
