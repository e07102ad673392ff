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
package program

import (
	"fmt"
	"os"

	"github.com/consensys/go-zkvm/pkg/zkvm/fault"
	"gopkg.in/yaml.v3"
)

// Source is the textual description of a program, as read from a YAML (or
// JSON) file.  For example:
//
//	pc_start: 0x1000
//	instructions:
//	  - ADD x5, x0, 5
//	  - ECALL
//	memory:
//	  0x2000: 42
type Source struct {
	PcStart      uint32            `yaml:"pc_start"`
	PcBase       uint32            `yaml:"pc_base"`
	Instructions []string          `yaml:"instructions"`
	Memory       map[uint32]uint32 `yaml:"memory"`
}

// ReadFile reads and assembles a program from a given file.
func ReadFile(filename string) (*Program, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	//
	return Parse(bytes)
}

// Parse assembles a program from its textual description.  When pc_base is
// omitted it defaults to pc_start.
func Parse(bytes []byte) (*Program, error) {
	var src Source
	//
	if err := yaml.Unmarshal(bytes, &src); err != nil {
		return nil, fault.NewProgramError("%s", err)
	}
	//
	return src.Assemble()
}

// Assemble converts the textual description into a program.
func (s *Source) Assemble() (*Program, error) {
	var (
		insns  = make([]Instruction, len(s.Instructions))
		pcBase = s.PcBase
		err    error
	)
	//
	for i, line := range s.Instructions {
		if insns[i], err = ParseInstruction(line); err != nil {
			return nil, fault.NewProgramError("line %d: %s", i+1, err)
		}
	}
	//
	if pcBase == 0 {
		pcBase = s.PcStart
	}
	//
	return New(insns, s.PcStart, pcBase, s.Memory)
}

// MustAssemble assembles a sequence of instructions starting at a given
// address, panicking on failure.  This is intended for tests and examples.
func MustAssemble(pc uint32, image map[uint32]uint32, lines ...string) *Program {
	src := Source{PcStart: pc, PcBase: pc, Instructions: lines, Memory: image}
	//
	p, err := src.Assemble()
	if err != nil {
		panic(fmt.Sprintf("invalid program: %s", err))
	}
	//
	return p
}
