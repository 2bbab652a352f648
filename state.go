// Copyright 2024 The n2 Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package n2

// BuildState is where a Build sits in its fixed lifecycle. Done is
// terminal; a clean build jumps straight from Ready to Done, skipping
// Queued and Running.
type BuildState int

const (
	StateUnknown BuildState = iota
	StateWant
	StateReady
	StateQueued
	StateRunning
	StateDone
)

func (s BuildState) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateWant:
		return "want"
	case StateReady:
		return "ready"
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	}
	return "invalid"
}

// BuildStates is the dense build-id -> state array plus the bookkeeping
// the scheduler needs to avoid re-scanning every build on every tick: a
// ready-set to drain and per-state counters for progress reporting.
type BuildStates struct {
	rows  []BuildState
	ready map[BuildID]bool

	counts [6]int
}

func newBuildStates(n int) *BuildStates {
	return &BuildStates{rows: make([]BuildState, n), ready: map[BuildID]bool{}}
}

func (s *BuildStates) Get(id BuildID) BuildState { return s.rows[id] }

func (s *BuildStates) set(id BuildID, st BuildState) {
	s.counts[s.rows[id]]--
	s.rows[id] = st
	s.counts[st]++
	if st == StateReady {
		s.ready[id] = true
	} else {
		delete(s.ready, id)
	}
}

// Count returns how many builds currently sit in state st, for progress
// reporting.
func (s *BuildStates) Count(st BuildState) int { return s.counts[st] }

// drainReady removes and returns every build currently Ready, in
// ascending id order for determinism.
func (s *BuildStates) drainReady() []BuildID {
	if len(s.ready) == 0 {
		return nil
	}
	out := make([]BuildID, 0, len(s.ready))
	for id := range s.ready {
		out = append(out, id)
	}
	// Small, infrequent slices; a sort keeps scheduling order
	// deterministic across runs, which matters for reproducible tests.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
