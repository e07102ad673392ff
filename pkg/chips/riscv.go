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
package chips

import "github.com/consensys/go-zkvm/pkg/air"

// RiscvChips returns the chips of the RISC-V machine, in the order in which
// their dependencies are generated.  Every chip appears after all chips which
// generate events it depends upon, such that a single pass in this order
// generates all dependencies.
func RiscvChips() []air.Chip {
	return []air.Chip{
		NewCpuChip(),
		NewMemoryInstrsChip(),
		NewBranchChip(),
		NewJumpChip(),
		NewAuipcChip(),
		NewDivRemChip(),
		NewMulChip(),
		NewLtChip(),
		NewShiftLeftChip(),
		NewShiftRightChip(),
		NewBitwiseChip(),
		NewAddSubChip(),
		NewShaExtendChip(),
		NewBn254Chip(),
		NewUint256MulChip(),
		NewMemoryLocalChip(),
		NewMemoryInitChip(),
		NewMemoryFinalizeChip(),
		NewProgramChip(),
		NewByteChip(),
	}
}
