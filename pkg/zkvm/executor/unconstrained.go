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
package executor

import (
	"github.com/consensys/go-zkvm/pkg/zkvm/record"
	log "github.com/sirupsen/logrus"
)

// fork captures the state of an executor on entry to an unconstrained block,
// such that it can be restored on exit.
type fork struct {
	pc        uint32
	clk       uint32
	globalClk uint64
	record    *record.ExecutionRecord
	accesses  accessRecord
}

// Enter an unconstrained block.  Events generated within the block are
// collected in a scratch record which is discarded on exit.
func (e *Executor) enterUnconstrained() {
	e.forks = append(e.forks, fork{
		pc:        e.state.Pc,
		clk:       e.state.Clk,
		globalClk: e.state.GlobalClk,
		record:    e.record,
		accesses:  e.accesses,
	})
	//
	e.record = record.New(e.program, e.state.Shard)
	e.mem.Fork()
	//
	log.Debugf("entered unconstrained block %d at pc 0x%08x", len(e.forks), e.state.Pc)
}

// Exit the innermost unconstrained block, restoring the state as it was on
// entry.  Returns false if no block is open.
func (e *Executor) exitUnconstrained() bool {
	n := len(e.forks) - 1
	if n < 0 {
		return false
	}
	//
	f := e.forks[n]
	e.forks = e.forks[:n]
	//
	e.mem.Join()
	log.Debugf("exited unconstrained block %d after %d cycles", n+1, e.state.GlobalClk-f.globalClk)
	//
	e.state.Pc = f.pc
	e.state.Clk = f.clk
	e.state.GlobalClk = f.globalClk
	e.record = f.record
	e.accesses = f.accesses
	//
	return true
}
