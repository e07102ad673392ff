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
package air

import (
	"fmt"
	"strings"
)

// InteractionKind identifies the bus over which an interaction takes place.
// The kind is folded into every fingerprint, such that tuples on different
// buses never cancel.
type InteractionKind uint8

const (
	// MemoryBus carries (shard, timestamp, address, value) records.
	MemoryBus InteractionKind = iota + 1
	// ProgramBus carries the instructions of the program.
	ProgramBus
	// InstructionBus carries non-ALU instructions to their chips.
	InstructionBus
	// AluBus carries (opcode, a, b, c) arithmetic operations.
	AluBus
	// ByteBus carries byte table lookups.
	ByteBus
	// RangeBus carries range checks.
	RangeBus
	// SyscallBus carries syscall invocations to precompile chips.
	SyscallBus
)

var kindNames = []string{"?", "Memory", "Program", "Instruction", "Alu", "Byte", "Range", "Syscall"}

func (k InteractionKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	//
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Scope determines where an interaction must balance.
type Scope uint8

const (
	// Local interactions balance within each shard.
	Local Scope = iota
	// Global interactions balance across all shards.
	Global
)

func (s Scope) String() string {
	if s == Local {
		return "local"
	}
	//
	return "global"
}

// Interaction is a single send or receive of a chip, with both its values and
// multiplicity given as virtual columns.
type Interaction struct {
	Values       []VirtualColumn
	Multiplicity VirtualColumn
	Kind         InteractionKind
	Scope        Scope
}

// Arity returns the number of values in this interaction.
func (p *Interaction) Arity() uint {
	return uint(len(p.Values))
}

func (p *Interaction) String() string {
	var values = make([]string, len(p.Values))
	//
	for i := range p.Values {
		values[i] = p.Values[i].String()
	}
	//
	return fmt.Sprintf("%s/%s(%s) x (%s)", p.Kind, p.Scope, strings.Join(values, ", "), p.Multiplicity.String())
}
