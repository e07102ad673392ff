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
	"math/big"

	"github.com/consensys/go-zkvm/pkg/zkvm/events"
)

// Number of words in a 256bit integer.
const uint256Words = 8

// Uint256MulHandler computes x := x * y mod m, where x is at the first
// argument, y is at the second argument and the modulus m immediately follows
// y.  A zero modulus denotes 2^256.  The value x is read without a record, and
// is subsequently bound by the write of the result.
type Uint256MulHandler struct{}

// Rebinds implementation for the UnconstrainedAccess interface.
func (h *Uint256MulHandler) Rebinds() bool {
	return true
}

// Execute implementation for the Handler interface.
func (h *Uint256MulHandler) Execute(ctx Context, code Code, xPtr, yPtr uint32) (uint32, bool, error) {
	var ev = &events.Uint256MulEvent{XPtr: xPtr, YPtr: yPtr}
	//
	peeker, err := ctx.Unconstrained()
	if err != nil {
		return 0, false, err
	}
	//
	xWords, err := peeker.PeekSlice(xPtr, uint256Words)
	if err != nil {
		return 0, false, err
	}
	//
	ev.X = Values(xWords)
	// Read y followed by the modulus
	yAccess, ym, err := ReadSlice(ctx, yPtr, 2*uint256Words)
	if err != nil {
		return 0, false, err
	}
	//
	ev.YAccess = yAccess
	ev.Y, ev.Modulus = ym[:uint256Words], ym[uint256Words:]
	//
	var (
		x       = new(big.Int).SetBytes(wordsToBigEndian(ev.X))
		y       = new(big.Int).SetBytes(wordsToBigEndian(ev.Y))
		modulus = new(big.Int).SetBytes(wordsToBigEndian(ev.Modulus))
		result  = new(big.Int).Mul(x, y)
	)
	//
	if modulus.Sign() == 0 {
		modulus.Lsh(big.NewInt(1), 256)
	}
	//
	result.Mod(result, modulus)
	// Writes must follow the reads
	ctx.Bump()
	//
	if ev.XAccess, err = WriteSlice(ctx, xPtr, toWords(result, uint256Words)); err != nil {
		return 0, false, err
	}
	//
	ctx.AddPrecompile(events.PrecompileEvent{Kind: events.Uint256MulKind, Syscall: ctx.SyscallEvent(), Uint256Mul: ev})
	//
	return 0, false, nil
}

// Convert an integer into exactly n little endian words.
func toWords(val *big.Int, n uint) []uint32 {
	var buf = make([]byte, 4*n)
	//
	val.FillBytes(buf)
	//
	return bigEndianToWords(buf)
}
