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
package machine

import (
	"fmt"

	"github.com/consensys/go-zkvm/pkg/air"
	"github.com/consensys/go-zkvm/pkg/util/field/babybear"
)

// ErrImbalance matches any ImbalanceError.
var ErrImbalance error = &ImbalanceError{}

// ImbalanceError indicates the cumulative sums of a witness are not zero,
// meaning some interaction was sent without being received (or vice versa).
type ImbalanceError struct {
	Scope air.Scope
	// Shard whose local interactions do not balance (zero for global).
	Shard uint32
	// Offending cumulative sum
	Sum babybear.Element
}

func (e *ImbalanceError) Error() string {
	if e.Scope == air.Local {
		return fmt.Sprintf("local interactions of shard %d do not balance (sum %s)", e.Shard, e.Sum.String())
	}
	//
	return fmt.Sprintf("global interactions do not balance (sum %s)", e.Sum.String())
}

// Is matches any ImbalanceError.
func (e *ImbalanceError) Is(target error) bool {
	_, ok := target.(*ImbalanceError)
	//
	return ok
}
