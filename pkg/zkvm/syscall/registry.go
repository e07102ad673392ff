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

// Registry maps syscall codes to their handlers.  Each executor is given its
// own registry, which is not modified during execution.
type Registry struct {
	handlers map[Code]Handler
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{make(map[Code]Handler)}
}

// Default constructs a registry containing handlers for every supported
// syscall.
func Default() *Registry {
	return NewRegistry().
		Register(&HaltHandler{}, Halt).
		Register(&WriteHandler{}, Write).
		Register(&UnconstrainedHandler{}, EnterUnconstrained, ExitUnconstrained).
		Register(&CommitHandler{}, Commit).
		Register(&HintHandler{}, HintLen, HintRead).
		Register(&ShaExtendHandler{}, ShaExtend).
		Register(&Bn254Handler{}, Bn254Add, Bn254Double).
		Register(&Uint256MulHandler{}, Uint256Mul)
}

// Register a handler for one or more syscall codes, replacing any existing
// handler.  Returns the registry to support chaining.
func (r *Registry) Register(handler Handler, codes ...Code) *Registry {
	for _, c := range codes {
		r.handlers[c] = handler
	}
	//
	return r
}

// Lookup the handler for a given code.
func (r *Registry) Lookup(code Code) (Handler, bool) {
	h, ok := r.handlers[code]
	return h, ok
}

// MaxExtraCycles returns the largest number of extra cycles consumed by any
// registered syscall.
func (r *Registry) MaxExtraCycles() uint32 {
	var m uint32
	//
	for c := range r.handlers {
		m = max(m, c.ExtraCycles())
	}
	//
	return m
}
