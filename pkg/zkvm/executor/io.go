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
	"bytes"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	cycleTrackerStart = "cycle-tracker-start:"
	cycleTrackerEnd   = "cycle-tracker-end:"
)

// cycleTracker buffers the guest's standard output into lines, interpreting
// cycle tracking directives and forwarding everything else.
type cycleTracker struct {
	buffer bytes.Buffer
	// global clock at which each open region began
	open map[string]uint64
	// total cycles of each completed region
	totals map[string]uint64
}

func newCycleTracker() *cycleTracker {
	return &cycleTracker{open: make(map[string]uint64), totals: make(map[string]uint64)}
}

// Totals returns the number of cycles spent within each completed region.
func (t *cycleTracker) Totals() map[string]uint64 {
	return t.totals
}

// writer returns an io.Writer which feeds the tracker for a given executor.
func (t *cycleTracker) writer(e *Executor, out io.Writer) io.Writer {
	return &trackedWriter{t, e, out}
}

func (t *cycleTracker) write(e *Executor, out io.Writer, data []byte) error {
	t.buffer.Write(data)
	//
	for {
		line, err := t.buffer.ReadString('\n')
		if err != nil {
			// incomplete line, so put it back
			t.buffer.Reset()
			t.buffer.WriteString(line)
			//
			return nil
		}
		//
		if !t.directive(e, strings.TrimSuffix(line, "\n")) {
			if _, err := io.WriteString(out, line); err != nil {
				return err
			}
		}
	}
}

// Process a cycle tracking directive, returning false if the line is not one.
func (t *cycleTracker) directive(e *Executor, line string) bool {
	switch {
	case strings.HasPrefix(line, cycleTrackerStart):
		name := strings.TrimSpace(strings.TrimPrefix(line, cycleTrackerStart))
		t.open[name] = e.state.GlobalClk
	case strings.HasPrefix(line, cycleTrackerEnd):
		name := strings.TrimSpace(strings.TrimPrefix(line, cycleTrackerEnd))
		//
		if start, ok := t.open[name]; ok {
			cycles := e.state.GlobalClk - start
			t.totals[name] += cycles
			delete(t.open, name)
			log.Infof("%s: %d cycles", name, cycles)
		} else {
			log.Warnf("unmatched cycle tracker region \"%s\"", name)
		}
	default:
		return false
	}
	//
	return true
}

// flush any incomplete line.
func (t *cycleTracker) flush(out io.Writer) {
	if t.buffer.Len() > 0 {
		_, _ = out.Write(t.buffer.Bytes())
		t.buffer.Reset()
	}
}

type trackedWriter struct {
	tracker *cycleTracker
	e       *Executor
	out     io.Writer
}

func (w *trackedWriter) Write(data []byte) (int, error) {
	if err := w.tracker.write(w.e, w.out, data); err != nil {
		return 0, err
	}
	//
	return len(data), nil
}
