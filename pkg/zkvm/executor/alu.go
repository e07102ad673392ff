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
package executor

import (
	"fmt"
	"math"

	"github.com/consensys/go-zkvm/pkg/zkvm/program"
)

// Alu computes the result of an ALU operation on 32bit operands, following
// the RISC-V conventions for division by zero and signed overflow.
func Alu(op program.Opcode, b, c uint32) uint32 {
	var (
		sb    = int32(b)
		sc    = int32(c)
		shamt = c & 31
	)
	//
	switch op {
	case program.ADD:
		return b + c
	case program.SUB:
		return b - c
	case program.XOR:
		return b ^ c
	case program.OR:
		return b | c
	case program.AND:
		return b & c
	case program.SLL:
		return b << shamt
	case program.SRL:
		return b >> shamt
	case program.SRA:
		return uint32(sb >> shamt)
	case program.SLT:
		return boolToWord(sb < sc)
	case program.SLTU:
		return boolToWord(b < c)
	case program.MUL:
		return b * c
	case program.MULH:
		return uint32((int64(sb) * int64(sc)) >> 32)
	case program.MULHU:
		return uint32((uint64(b) * uint64(c)) >> 32)
	case program.MULHSU:
		return uint32((int64(sb) * int64(uint64(c))) >> 32)
	case program.DIV:
		switch {
		case c == 0:
			return math.MaxUint32
		case sb == math.MinInt32 && sc == -1:
			return b
		default:
			return uint32(sb / sc)
		}
	case program.DIVU:
		if c == 0 {
			return math.MaxUint32
		}
		//
		return b / c
	case program.REM:
		switch {
		case c == 0:
			return b
		case sb == math.MinInt32 && sc == -1:
			return 0
		default:
			return uint32(sb % sc)
		}
	case program.REMU:
		if c == 0 {
			return b
		}
		//
		return b % c
	default:
		panic(fmt.Sprintf("%s is not an ALU operation", op))
	}
}

// LoadValue extracts the value loaded from a given (aligned) memory word, for
// a given effective address.
func LoadValue(op program.Opcode, addr uint32, word uint32) uint32 {
	var (
		byteShift = (addr % 4) * 8
		halfShift = ((addr / 2) % 2) * 16
	)
	//
	switch op {
	case program.LB:
		return uint32(int32(int8(word >> byteShift)))
	case program.LBU:
		return (word >> byteShift) & 0xff
	case program.LH:
		return uint32(int32(int16(word >> halfShift)))
	case program.LHU:
		return (word >> halfShift) & 0xffff
	case program.LW:
		return word
	default:
		panic(fmt.Sprintf("%s is not a load", op))
	}
}

// StoreValue merges the stored value into the existing memory word, for a
// given effective address.
func StoreValue(op program.Opcode, addr uint32, word uint32, value uint32) uint32 {
	var (
		byteShift = (addr % 4) * 8
		halfShift = ((addr / 2) % 2) * 16
	)
	//
	switch op {
	case program.SB:
		return (word &^ (0xff << byteShift)) | ((value & 0xff) << byteShift)
	case program.SH:
		return (word &^ (0xffff << halfShift)) | ((value & 0xffff) << halfShift)
	case program.SW:
		return value
	default:
		panic(fmt.Sprintf("%s is not a store", op))
	}
}

// Compare the operands of a branch, returning whether a == b, a < b and a > b.
// Comparisons are signed for BLT and BGE, and unsigned otherwise.
func Compare(op program.Opcode, a, b uint32) (bool, bool, bool) {
	if op == program.BLT || op == program.BGE {
		return a == b, int32(a) < int32(b), int32(a) > int32(b)
	}
	//
	return a == b, a < b, a > b
}

// BranchTaken determines whether a branch is taken for given operands.
func BranchTaken(op program.Opcode, a, b uint32) bool {
	eq, lt, _ := Compare(op, a, b)
	//
	switch op {
	case program.BEQ:
		return eq
	case program.BNE:
		return !eq
	case program.BLT, program.BLTU:
		return lt
	case program.BGE, program.BGEU:
		return !lt
	default:
		panic(fmt.Sprintf("%s is not a branch", op))
	}
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	//
	return 0
}
