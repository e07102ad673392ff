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

	"github.com/consensys/go-zkvm/pkg/util/field/babybear"
)

// Matrix is a dense, row-major table of field elements.  Every chip trace is
// represented as a matrix whose height is a power of two once padded.
type Matrix struct {
	width  uint
	height uint
	values []babybear.Element
}

// NewMatrix constructs a zeroed matrix of the given dimensions.
func NewMatrix(width, height uint) *Matrix {
	return &Matrix{width, height, make([]babybear.Element, width*height)}
}

// Width returns the number of columns in this matrix.
func (p *Matrix) Width() uint {
	return p.width
}

// Height returns the number of rows in this matrix.
func (p *Matrix) Height() uint {
	return p.height
}

// Row returns the given row.  This aliases the underlying storage, hence
// writes to the returned slice update the matrix.
func (p *Matrix) Row(row uint) []babybear.Element {
	start := row * p.width
	//
	return p.values[start : start+p.width : start+p.width]
}

// Get the value at a given row and column.
func (p *Matrix) Get(row, col uint) babybear.Element {
	if col >= p.width || row >= p.height {
		panic(fmt.Sprintf("matrix access (%d,%d) out of bounds (%dx%d)", row, col, p.height, p.width))
	}
	//
	return p.values[row*p.width+col]
}

// Set the value at a given row and column.
func (p *Matrix) Set(row, col uint, val babybear.Element) {
	if col >= p.width || row >= p.height {
		panic(fmt.Sprintf("matrix access (%d,%d) out of bounds (%dx%d)", row, col, p.height, p.width))
	}
	//
	p.values[row*p.width+col] = val
}

// Pad this matrix with zero rows up to a given height, returning the padded
// matrix.  The original matrix is left untouched.
func (p *Matrix) Pad(height uint) *Matrix {
	if height < p.height {
		panic(fmt.Sprintf("cannot pad matrix of height %d to %d", p.height, height))
	}
	//
	values := make([]babybear.Element, p.width*height)
	copy(values, p.values)
	//
	return &Matrix{p.width, height, values}
}

// Bytes returns the canonical encoding of every value in row-major order.
func (p *Matrix) Bytes() []byte {
	var bytes = make([]byte, 0, 4*len(p.values))
	//
	for _, v := range p.values {
		bytes = append(bytes, v.Bytes()...)
	}
	//
	return bytes
}

// RowWriter simplifies populating a single row of a trace.
type RowWriter []babybear.Element

// Set a column to a given unsigned value.
func (p RowWriter) Set(col uint, val uint64) {
	p[col] = p[col].SetUint64(val)
}

// SetBool sets a column to one or zero.
func (p RowWriter) SetBool(col uint, val bool) {
	if val {
		p.Set(col, 1)
	} else {
		p.Set(col, 0)
	}
}

// SetElement sets a column to a given field element.
func (p RowWriter) SetElement(col uint, val babybear.Element) {
	p[col] = val
}

// SetWord writes the little endian bytes of a word into four columns.
func (p RowWriter) SetWord(cols [4]uint, word uint32) {
	for i, col := range cols {
		p.Set(col, uint64(word>>(8*i))&0xff)
	}
}
