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
package fault

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a runtime fault.
type Kind uint8

const (
	// FetchOutOfBounds indicates the pc does not identify an instruction of
	// the program.
	FetchOutOfBounds Kind = iota + 1
	// InvalidMemoryAccess indicates a misaligned access, or an access
	// outside of the addressable data range.
	InvalidMemoryAccess
	// UnsupportedSyscall indicates an unknown syscall code.
	UnsupportedSyscall
	// InvalidSyscallUsage indicates a known syscall used where it is not
	// permitted (e.g. within an unconstrained block).
	InvalidSyscallUsage
	// Breakpoint is raised by EBREAK.
	Breakpoint
	// Unimplemented is raised by UNIMP, or an opcode without semantics.
	Unimplemented
	// HaltWithNonZeroExitCode is raised when HALT is invoked with a non-zero
	// exit code.
	HaltWithNonZeroExitCode
	// ExceededCycleLimit is raised when the cycle budget is exhausted before
	// the program halts.
	ExceededCycleLimit
	// EndInUnconstrained is raised when the program ends whilst an
	// unconstrained block remains open.
	EndInUnconstrained
)

func (k Kind) String() string {
	switch k {
	case FetchOutOfBounds:
		return "fetch out of bounds"
	case InvalidMemoryAccess:
		return "invalid memory access"
	case UnsupportedSyscall:
		return "unsupported syscall"
	case InvalidSyscallUsage:
		return "invalid syscall usage"
	case Breakpoint:
		return "breakpoint"
	case Unimplemented:
		return "unimplemented"
	case HaltWithNonZeroExitCode:
		return "halt with non-zero exit code"
	case ExceededCycleLimit:
		return "exceeded cycle limit"
	case EndInUnconstrained:
		return "program ended in unconstrained mode"
	default:
		return fmt.Sprintf("fault(%d)", uint8(k))
	}
}

// Sentinel values for use with errors.Is.
var (
	ErrFetchOutOfBounds        error = &ExecutionError{Kind: FetchOutOfBounds}
	ErrInvalidMemoryAccess     error = &ExecutionError{Kind: InvalidMemoryAccess}
	ErrUnsupportedSyscall      error = &ExecutionError{Kind: UnsupportedSyscall}
	ErrInvalidSyscallUsage     error = &ExecutionError{Kind: InvalidSyscallUsage}
	ErrBreakpoint              error = &ExecutionError{Kind: Breakpoint}
	ErrUnimplemented           error = &ExecutionError{Kind: Unimplemented}
	ErrHaltWithNonZeroExitCode error = &ExecutionError{Kind: HaltWithNonZeroExitCode}
	ErrExceededCycleLimit      error = &ExecutionError{Kind: ExceededCycleLimit}
	ErrEndInUnconstrained      error = &ExecutionError{Kind: EndInUnconstrained}
	// ErrMalformedProgram matches any ProgramError.
	ErrMalformedProgram error = &ProgramError{}
	// ErrConsistency matches any ConsistencyViolation.
	ErrConsistency error = &ConsistencyViolation{}
)

// ExecutionError is a fatal fault raised whilst executing a program.  Faults
// are deterministic: re-executing the same program on the same input
// reproduces them exactly.
type ExecutionError struct {
	Kind Kind
	// Program counter of the faulting instruction.
	Pc uint32
	// Opcode of the faulting instruction (if applicable).
	Opcode string
	// Address involved in the fault (if applicable).
	Addr uint32
	// Syscall code or exit code (if applicable).
	Code uint32
	// Cycle limit which was exceeded (if applicable).
	Limit uint64
}

func (e *ExecutionError) Error() string {
	switch e.Kind {
	case FetchOutOfBounds:
		return fmt.Sprintf("%s (pc=0x%08x)", e.Kind, e.Pc)
	case InvalidMemoryAccess:
		return fmt.Sprintf("%s (%s at 0x%08x, pc=0x%08x)", e.Kind, e.Opcode, e.Addr, e.Pc)
	case UnsupportedSyscall, InvalidSyscallUsage:
		return fmt.Sprintf("%s (code=0x%08x, pc=0x%08x)", e.Kind, e.Code, e.Pc)
	case HaltWithNonZeroExitCode:
		return fmt.Sprintf("%s (%d)", e.Kind, e.Code)
	case ExceededCycleLimit:
		return fmt.Sprintf("%s (limit %d)", e.Kind, e.Limit)
	default:
		return fmt.Sprintf("%s (pc=0x%08x)", e.Kind, e.Pc)
	}
}

// Is matches any ExecutionError of the same kind.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	//
	return ok && t.Kind == e.Kind
}

// Retryable indicates whether re-running with a different configuration
// (e.g. a larger cycle budget) could succeed.
func (e *ExecutionError) Retryable() bool {
	return e.Kind == ExceededCycleLimit
}

// ProgramError reports a malformed program, detected before execution begins.
type ProgramError struct {
	Msg string
}

// NewProgramError constructs a ProgramError with a formatted message.
func NewProgramError(format string, args ...any) *ProgramError {
	return &ProgramError{fmt.Sprintf(format, args...)}
}

func (e *ProgramError) Error() string {
	return "malformed program: " + e.Msg
}

// Is matches any ProgramError.
func (e *ProgramError) Is(target error) bool {
	_, ok := target.(*ProgramError)
	return ok
}

// ConsistencyViolation reports a broken internal invariant, such as a memory
// access whose timestamp does not strictly follow the previous access at the
// same address.  These are bugs, never repaired at runtime.
type ConsistencyViolation struct {
	Addr uint32
	Msg  string
}

// NewConsistencyViolation constructs a violation for a given address.
func NewConsistencyViolation(addr uint32, format string, args ...any) *ConsistencyViolation {
	return &ConsistencyViolation{addr, fmt.Sprintf(format, args...)}
}

func (e *ConsistencyViolation) Error() string {
	return fmt.Sprintf("consistency violation at 0x%08x: %s", e.Addr, e.Msg)
}

// Is matches any ConsistencyViolation.
func (e *ConsistencyViolation) Is(target error) bool {
	_, ok := target.(*ConsistencyViolation)
	return ok
}

// IsRetryable reports whether a given error is a retryable execution fault.
func IsRetryable(err error) bool {
	var e *ExecutionError
	//
	return errors.As(err, &e) && e.Retryable()
}
