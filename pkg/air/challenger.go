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
	"encoding/binary"
	"hash"

	"github.com/consensys/go-zkvm/pkg/util/field/babybear"
	"golang.org/x/crypto/sha3"
)

// Challenger is a Fiat-Shamir transcript, from which the random challenges
// of the permutation argument are drawn after all traces are observed.
// Challenges are base field elements, so a forged multiset escapes a single
// LogUp argument with probability around 2^-31.  This suffices for checking
// witnesses, but a prover would sample from an extension field instead.
type Challenger struct {
	hasher hash.Hash
}

// NewChallenger constructs an empty transcript.
func NewChallenger() *Challenger {
	return &Challenger{sha3.New256()}
}

// Observe absorbs raw bytes into the transcript.
func (p *Challenger) Observe(data []byte) {
	// NOTE: hash.Hash never returns an error on write.
	_, _ = p.hasher.Write(data)
}

// ObserveElement absorbs a single field element.
func (p *Challenger) ObserveElement(val babybear.Element) {
	p.Observe(val.Bytes())
}

// ObserveMatrix absorbs the dimensions and contents of a matrix.
func (p *Challenger) ObserveMatrix(m *Matrix) {
	var dims [16]byte
	//
	binary.LittleEndian.PutUint64(dims[0:], uint64(m.Width()))
	binary.LittleEndian.PutUint64(dims[8:], uint64(m.Height()))
	p.Observe(dims[:])
	p.Observe(m.Bytes())
}

// Sample draws a field element from the transcript.  The transcript is
// updated, such that successive samples differ.
func (p *Challenger) Sample() babybear.Element {
	for {
		digest := p.hasher.Sum(nil)
		// Chain the digest into the next state
		p.hasher.Reset()
		p.Observe(digest)
		// Rejection sampling avoids any bias
		if val := binary.LittleEndian.Uint32(digest) & 0x7fffffff; val < babybear.Modulus {
			return babybear.New(val)
		}
	}
}

// Challenges are the random values of the permutation argument.
type Challenges struct {
	Alpha babybear.Element
	Beta  babybear.Element
}

// SampleChallenges draws the challenges of the permutation argument.
func (p *Challenger) SampleChallenges() Challenges {
	return Challenges{Alpha: p.Sample(), Beta: p.Sample()}
}
