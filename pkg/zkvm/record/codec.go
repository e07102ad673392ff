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
package record

import (
	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Deterministic encoding ensures byte identical output for equal records.
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	//
	if decMode, err = (cbor.DecOptions{MaxArrayElements: 1 << 30, MaxMapPairs: 1 << 30}).DecMode(); err != nil {
		panic(err)
	}
}

// Marshal encodes a value using the deterministic CBOR encoding used for all
// records and checkpoints.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes a value encoded with Marshal.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// MarshalBinary implementation for the encoding.BinaryMarshaler interface.
func (r *ExecutionRecord) MarshalBinary() ([]byte, error) {
	type plain ExecutionRecord
	//
	return Marshal((*plain)(r))
}

// UnmarshalBinary implementation for the encoding.BinaryUnmarshaler interface.
func (r *ExecutionRecord) UnmarshalBinary(data []byte) error {
	type plain ExecutionRecord
	//
	return Unmarshal(data, (*plain)(r))
}
