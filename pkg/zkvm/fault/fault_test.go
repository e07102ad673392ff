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
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Fault_01(t *testing.T) {
	var err error = &ExecutionError{Kind: ExceededCycleLimit, Limit: 100}
	// wrapped errors still match
	wrapped := fmt.Errorf("shard 3: %w", err)
	//
	assert.ErrorIs(t, wrapped, ErrExceededCycleLimit)
	assert.NotErrorIs(t, wrapped, ErrInvalidMemoryAccess)
	assert.NotErrorIs(t, wrapped, ErrMalformedProgram)
	assert.True(t, IsRetryable(wrapped))
}

func Test_Fault_02(t *testing.T) {
	var (
		perr error = NewProgramError("pc_start 0x%x not aligned", 3)
		cerr error = NewConsistencyViolation(0x1000, "timestamp went backwards")
		xerr error = &ExecutionError{Kind: InvalidMemoryAccess, Opcode: "LW", Addr: 0x1001}
	)
	// The three classes are distinguishable
	assert.ErrorIs(t, perr, ErrMalformedProgram)
	assert.ErrorIs(t, cerr, ErrConsistency)
	assert.ErrorIs(t, xerr, ErrInvalidMemoryAccess)
	assert.False(t, errors.Is(perr, ErrConsistency))
	assert.False(t, IsRetryable(perr))
	assert.False(t, IsRetryable(xerr))
	assert.Contains(t, xerr.Error(), "0x00001001")
}
