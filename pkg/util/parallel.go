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

	"golang.org/x/sync/errgroup"
)

// ParExec executes a given job for every index in [0,n) using go-routines,
// with at most limit jobs running at any one time (or no limit when limit is
// not positive).  The first job to fail cancels the context of those which
// remain, and its error is returned.
func ParExec(ctx context.Context, limit int, n uint, job func(ctx context.Context, i uint) error) error {
	group, ctx := errgroup.WithContext(ctx)
	//
	if limit > 0 {
		group.SetLimit(limit)
	}
	//
	for i := range n {
		group.Go(func() error {
			// Don't start jobs after a failure
			if err := ctx.Err(); err != nil {
				return err
			}
			//
			return job(ctx, i)
		})
	}
	//
	return group.Wait()
}
