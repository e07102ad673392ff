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

import "fmt"

// Layout assigns column indices to named columns, in order of declaration.
// Chips use a layout to describe their trace once, and then refer to columns
// by index.
type Layout struct {
	names []string
}

// Col allocates a single column.
func (p *Layout) Col(name string) uint {
	p.names = append(p.names, name)
	//
	return uint(len(p.names) - 1)
}

// Word allocates four columns holding the little endian bytes of a word.
func (p *Layout) Word(name string) [4]uint {
	var cols [4]uint
	//
	for i := range cols {
		cols[i] = p.Col(fmt.Sprintf("%s_%d", name, i))
	}
	//
	return cols
}

// Cols allocates n consecutive columns.
func (p *Layout) Cols(name string, n uint) []uint {
	var cols = make([]uint, n)
	//
	for i := range cols {
		cols[i] = p.Col(fmt.Sprintf("%s_%d", name, i))
	}
	//
	return cols
}

// Width returns the number of columns allocated so far.
func (p *Layout) Width() uint {
	return uint(len(p.names))
}

// Name returns the name of a given column.
func (p *Layout) Name(col uint) string {
	return p.names[col]
}

// Names returns the names of all columns.
func (p *Layout) Names() []string {
	return p.names
}
