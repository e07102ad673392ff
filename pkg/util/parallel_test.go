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
package util

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ParExec_01(t *testing.T) {
	var results = make([]uint, 100)
	//
	err := ParExec(context.Background(), 4, 100, func(_ context.Context, i uint) error {
		results[i] = i * i
		//
		return nil
	})
	//
	assert.NoError(t, err)
	//
	for i, r := range results {
		assert.Equal(t, uint(i*i), r)
	}
}

// No more than the limit run at once.
func Test_ParExec_02(t *testing.T) {
	var running, peak atomic.Int32
	//
	err := ParExec(context.Background(), 3, 50, func(_ context.Context, i uint) error {
		n := running.Add(1)
		//
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		//
		running.Add(-1)
		//
		return nil
	})
	//
	assert.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

// The first failure is reported.
func Test_ParExec_03(t *testing.T) {
	var failure = errors.New("failure")
	//
	err := ParExec(context.Background(), 1, 10, func(_ context.Context, i uint) error {
		if i == 5 {
			return failure
		}
		//
		return nil
	})
	//
	assert.ErrorIs(t, err, failure)
}

// Jobs do not start once the context is cancelled.
func Test_ParExec_04(t *testing.T) {
	var (
		ctx, cancel = context.WithCancel(context.Background())
		started     atomic.Int32
	)
	//
	cancel()
	//
	err := ParExec(ctx, 2, 10, func(_ context.Context, i uint) error {
		started.Add(1)
		//
		return nil
	})
	//
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), started.Load())
}
