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

import "fmt"

// Code identifies a syscall.  Its little endian bytes encode, in order, the
// syscall identifier, whether the syscall has its own chip, and the number of
// extra cycles it consumes.
type Code uint32

// The closed set of supported syscalls.
const (
	Halt               Code = 0x00_00_00_00
	Write              Code = 0x00_00_00_02
	EnterUnconstrained Code = 0x00_00_00_03
	ExitUnconstrained  Code = 0x00_00_00_04
	ShaExtend          Code = 0x00_30_01_05
	Bn254Add           Code = 0x00_01_01_0E
	Bn254Double        Code = 0x00_00_01_0F
	Commit             Code = 0x00_00_00_10
	Uint256Mul         Code = 0x00_01_01_1D
	HintLen            Code = 0x00_00_00_F0
	HintRead           Code = 0x00_00_00_F1
)

var codeNames = map[Code]string{
	Halt:               "HALT",
	Write:              "WRITE",
	EnterUnconstrained: "ENTER_UNCONSTRAINED",
	ExitUnconstrained:  "EXIT_UNCONSTRAINED",
	ShaExtend:          "SHA_EXTEND",
	Bn254Add:           "BN254_ADD",
	Bn254Double:        "BN254_DOUBLE",
	Commit:             "COMMIT",
	Uint256Mul:         "UINT256_MUL",
	HintLen:            "HINT_LEN",
	HintRead:           "HINT_READ",
}

// ID returns the syscall identifier (i.e. the lowest byte).
func (c Code) ID() uint32 {
	return uint32(c) & 0xff
}

// HasTable determines whether this syscall is proven by its own chip.
func (c Code) HasTable() bool {
	return (uint32(c)>>8)&0xff != 0
}

// ExtraCycles returns the number of cycles consumed by this syscall in
// addition to the instruction itself.
func (c Code) ExtraCycles() uint32 {
	return (uint32(c) >> 16) & 0xff
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	//
	return fmt.Sprintf("SYSCALL(0x%08x)", uint32(c))
}
