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
	"math/bits"

	"github.com/consensys/go-zkvm/pkg/zkvm/events"
	"github.com/consensys/go-zkvm/pkg/zkvm/fault"
)

// ShaExtendHandler computes the SHA-256 message schedule, extending the 16
// words at the start of a 64 word array to fill the remainder.  Each step is
// performed one cycle after the previous.
type ShaExtendHandler struct{}

// Execute implementation for the Handler interface.
func (h *ShaExtendHandler) Execute(ctx Context, code Code, wPtr, arg2 uint32) (uint32, bool, error) {
	var (
		ev  = &events.ShaExtendEvent{WPtr: wPtr}
		err error
		w   [4]events.MemoryAccess
	)
	//
	if arg2 != 0 {
		return 0, false, &fault.ExecutionError{Kind: fault.InvalidSyscallUsage, Code: uint32(code)}
	}
	//
	for i := uint32(16); i < 64; i++ {
		// Read w[i-15], w[i-2], w[i-16], w[i-7]
		for j, offset := range []uint32{15, 2, 16, 7} {
			if w[j], err = ctx.ReadWord(wPtr + (i-offset)*4); err != nil {
				return 0, false, err
			}
		}
		//
		s0 := bits.RotateLeft32(w[0].Value, -7) ^ bits.RotateLeft32(w[0].Value, -18) ^ (w[0].Value >> 3)
		s1 := bits.RotateLeft32(w[1].Value, -17) ^ bits.RotateLeft32(w[1].Value, -19) ^ (w[1].Value >> 10)
		wi := s1 + w[2].Value + s0 + w[3].Value
		//
		write, err := ctx.WriteWord(wPtr+i*4, wi)
		if err != nil {
			return 0, false, err
		}
		//
		ev.W15 = append(ev.W15, w[0])
		ev.W2 = append(ev.W2, w[1])
		ev.W16 = append(ev.W16, w[2])
		ev.W7 = append(ev.W7, w[3])
		ev.W = append(ev.W, write)
		//
		ctx.Bump()
	}
	//
	ctx.AddPrecompile(events.PrecompileEvent{Kind: events.ShaExtendKind, Syscall: ctx.SyscallEvent(), ShaExtend: ev})
	//
	return 0, false, nil
}
