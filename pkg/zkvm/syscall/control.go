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

import "github.com/consensys/go-zkvm/pkg/zkvm/fault"

// HaltHandler terminates execution with the exit code given in the first
// argument.  A non-zero exit code is a fault.
type HaltHandler struct{}

// Execute implementation for the Handler interface.
func (h *HaltHandler) Execute(ctx Context, code Code, exitCode, _ uint32) (uint32, bool, error) {
	ctx.Halt()
	ctx.SetExitCode(exitCode)
	//
	if exitCode != 0 {
		return 0, false, &fault.ExecutionError{Kind: fault.HaltWithNonZeroExitCode, Code: exitCode}
	}
	//
	return 0, false, nil
}

// UnconstrainedHandler opens and closes unconstrained blocks.  Entering
// returns 1, so the guest executes the block.  Exiting restores the state as it
// was on entry, except that 0 is returned, so the guest skips the block.
type UnconstrainedHandler struct{}

// Execute implementation for the Handler interface.
func (h *UnconstrainedHandler) Execute(ctx Context, code Code, _, _ uint32) (uint32, bool, error) {
	switch code {
	case EnterUnconstrained:
		ctx.EnterUnconstrained()
		return 1, true, nil
	case ExitUnconstrained:
		if !ctx.ExitUnconstrained() {
			return 0, false, &fault.ExecutionError{Kind: fault.InvalidSyscallUsage, Code: uint32(code)}
		}
		//
		return 0, true, nil
	default:
		return 0, false, &fault.ExecutionError{Kind: fault.UnsupportedSyscall, Code: uint32(code)}
	}
}
