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

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Explain is called with printf-style diagnostics as the scheduler
// works, without requiring every caller to wire a full logger. nil is
// fine and means "don't bother".
type Explain func(format string, args ...interface{})

// Scheduler drives the build graph through each build's fixed lifecycle:
// want-set construction, dirtiness checking, pool-gated dispatch, and
// completion propagation. It owns no process-launching logic itself;
// that's Runner's job.
type Scheduler struct {
	graph  *Graph
	fs     *FileState
	fplog  *FingerprintLog
	fpmap  *FingerprintMap
	states *BuildStates
	pools  map[string]*Pool
	runner Runner
	queues map[string][]BuildID

	// PhonyMissingIsError flips the dirtiness check's tolerance for a
	// phony build's missing dirtying input from a warning-level
	// tolerance (the default, matching a known upstream workaround) to a
	// fatal error.
	PhonyMissingIsError bool

	Explain Explain

	// Status receives build progress; nullStatus discards everything, so
	// wiring a real reporter in is optional.
	Status StatusReporter

	stack   []FileID
	onStack map[FileID]bool

	failed error
}

// NewScheduler wires a Scheduler over an already-loaded Graph. pools
// must contain every pool name referenced by any Build (the loader
// validates this at load time; the scheduler still surfaces an
// unknown-pool reference as a dispatch-time error).
func NewScheduler(g *Graph, disk DiskInterface, fplog *FingerprintLog, fpmap *FingerprintMap, pools map[string]*Pool, runner Runner) *Scheduler {
	return &Scheduler{
		graph:   g,
		fs:      NewFileState(disk, g),
		fplog:   fplog,
		fpmap:   fpmap,
		states:  newBuildStates(g.BuildCount()),
		pools:   pools,
		runner:  runner,
		queues:  map[string][]BuildID{},
		onStack: map[FileID]bool{},
		Status:  nullStatus{},
	}
}

func (s *Scheduler) explain(format string, args ...interface{}) {
	if s.Explain != nil {
		s.Explain(format, args...)
	}
}

// WantTargets runs want-set construction rooted at every id in targets,
// in order.
func (s *Scheduler) WantTargets(targets []FileID) error {
	for _, id := range targets {
		if err := s.wantFile(id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) wantFile(id FileID) error {
	if s.onStack[id] {
		return s.cycleError(id)
	}
	s.onStack[id] = true
	s.stack = append(s.stack, id)
	defer func() {
		s.stack = s.stack[:len(s.stack)-1]
		delete(s.onStack, id)
	}()

	f := s.graph.File(id)
	if f.Producer != noBuild {
		if err := s.wantBuild(f.Producer); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) cycleError(id FileID) error {
	idx := 0
	for i, x := range s.stack {
		if x == id {
			idx = i
			break
		}
	}
	names := make([]string, 0, len(s.stack)-idx+1)
	for _, x := range s.stack[idx:] {
		names = append(names, s.graph.File(x).Path)
	}
	names = append(names, s.graph.File(id).Path)
	return fmt.Errorf("dependency cycle: %s", strings.Join(names, " -> "))
}

func (s *Scheduler) wantBuild(id BuildID) error {
	if s.states.Get(id) != StateUnknown {
		return nil
	}
	s.states.set(id, StateWant)

	b := s.graph.Build(id)
	hasProducerInput := false
	for _, in := range b.OrderingInputs() {
		if s.graph.File(in).Producer != noBuild {
			hasProducerInput = true
		}
		if err := s.wantFile(in); err != nil {
			return err
		}
	}
	if !hasProducerInput {
		s.promoteReady(id)
	}
	return nil
}

// promoteReady moves a Want build to Ready, repopulating its
// discovered-inputs from the fingerprint log if this is the first time
// this process has seen it (Build carries no state across invocations).
func (s *Scheduler) promoteReady(id BuildID) {
	b := s.graph.Build(id)
	if len(b.DiscoveredIns) == 0 {
		for _, path := range s.fpmap.DiscoveredPaths(s.graph, b) {
			fid, err := s.graph.Intern(path)
			if err != nil {
				continue
			}
			b.addDiscovered([]FileID{fid})
		}
	}
	s.states.set(id, StateReady)
}

// statCached stats id through FileState, caching the result.
func (s *Scheduler) statCached(id FileID) (MTime, bool, error) {
	if mtime, present, known := s.fs.Get(id); known {
		return mtime, present, nil
	}
	return s.fs.Restat(id)
}

// checkDirty decides whether a non-phony Ready build must re-run:
// dirtying inputs must exist, order-only inputs must exist unless
// generated, any missing discovered input or output marks it dirty, and
// an otherwise-clean build re-runs iff its fingerprint changed.
func (s *Scheduler) checkDirty(b *Build) (bool, error) {
	if b.Phony() {
		return false, nil
	}

	dirty := false

	for _, in := range b.DirtyingInputs() {
		_, present, err := s.statCached(in)
		if err != nil {
			return false, err
		}
		if !present {
			return false, fmt.Errorf("input %s missing", s.graph.File(in).Path)
		}
	}

	for _, in := range b.OrderOnlyInputs() {
		f := s.graph.File(in)
		_, present, err := s.statCached(in)
		if err != nil {
			return false, err
		}
		if !present && f.Producer == noBuild {
			return false, fmt.Errorf("input %s missing", f.Path)
		}
	}

	for _, in := range b.DiscoveredIns {
		f := s.graph.File(in)
		if f.Producer != noBuild {
			// A generated discovered dependency must already carry a
			// cached stat from its own producer's finish bookkeeping; if
			// it doesn't, the manifest never declared a path to it.
			_, present, known := s.fs.Get(in)
			if !known {
				return false, fmt.Errorf("discovered dependency %s has a producer but no declared edge reaches it", f.Path)
			}
			if !present {
				dirty = true
			}
			continue
		}
		_, present, err := s.statCached(in)
		if err != nil {
			return false, err
		}
		if !present {
			dirty = true
		}
	}

	for _, out := range b.Outs {
		_, present, err := s.statCached(out)
		if err != nil {
			return false, err
		}
		if !present {
			dirty = true
		}
	}

	if dirty {
		return true, nil
	}

	hash, err := fingerprintOf(s.graph, s.fs, b)
	if err != nil {
		return false, err
	}
	return s.fpmap.Changed(s.graph, b, hash), nil
}

// checkPhonyDirty applies the phony-specific tolerance: a phony build is
// never itself dirty, but a missing dirtying input is either tolerated
// and reported only through Explain (default, matching a known upstream
// workaround) or fatal depending on PhonyMissingIsError.
func (s *Scheduler) checkPhonyDirty(b *Build) error {
	for _, in := range b.DirtyingInputs() {
		_, present, err := s.statCached(in)
		if err != nil {
			return err
		}
		if !present {
			if s.PhonyMissingIsError {
				return fmt.Errorf("input %s missing", s.graph.File(in).Path)
			}
			s.explain("phony build tolerates missing input %s", s.graph.File(in).Path)
		}
	}
	return nil
}

// Run executes the dispatch loop until every Want/Ready/Queued/Running
// build reaches Done, or a build fails.
func (s *Scheduler) Run(ctx context.Context) error {
	total := 0
	for id := 0; id < s.graph.BuildCount(); id++ {
		if s.states.Get(BuildID(id)) != StateUnknown && !s.graph.Build(BuildID(id)).Phony() {
			total++
		}
	}
	s.Status.PlanTotal(total)

	for {
		if s.failed != nil {
			return s.failed
		}
		if s.states.Count(StateWant)+s.states.Count(StateReady)+s.states.Count(StateQueued)+s.states.Count(StateRunning) == 0 {
			return nil
		}

		didWork := s.fillRunner(ctx)
		if s.drainReady() {
			didWork = true
		}
		if didWork {
			continue
		}
		if s.states.Count(StateQueued)+s.states.Count(StateRunning) == 0 {
			// Nothing ready, nothing queued, nothing running, but not
			// finished: every remaining Want build depends on something
			// that will never become Ready. Shouldn't happen given
			// want-set construction's cycle detection, but fail loudly
			// rather than spin.
			return fmt.Errorf("scheduler stalled with builds still wanted")
		}

		waitCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		res, ok, err := s.runner.Wait(waitCtx)
		cancel()
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := s.onFinished(res); err != nil {
			s.failed = err
		}
	}
}

// drainReady checks dirtiness for every Ready build: clean ones finish
// immediately, dirty ones move to their pool's queue.
func (s *Scheduler) drainReady() bool {
	ids := s.states.drainReady()
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		b := s.graph.Build(id)

		if b.Phony() {
			if err := s.checkPhonyDirty(b); err != nil {
				s.failed = err
				return true
			}
			s.finish(id)
			continue
		}

		dirty, err := s.checkDirty(b)
		if err != nil {
			s.failed = err
			return true
		}
		if !dirty {
			s.finish(id)
			continue
		}

		if _, ok := s.pools[b.PoolName]; !ok {
			s.failed = fmt.Errorf("build for %s references unknown pool %q", s.graph.File(b.Outs[0]).Path, b.PoolName)
			return true
		}
		s.states.set(id, StateQueued)
		s.queues[b.PoolName] = append(s.queues[b.PoolName], id)
	}
	return true
}

// fillRunner pops queued builds into the runner while both the runner
// and their pool have spare capacity.
func (s *Scheduler) fillRunner(ctx context.Context) bool {
	didWork := false
	for {
		if !s.runner.CanAcceptMore() {
			return didWork
		}
		id, ok := s.popQueued()
		if !ok {
			return didWork
		}
		b := s.graph.Build(id)
		dirs := map[string]bool{}
		for _, out := range b.Outs {
			dirs[filepath.Dir(s.graph.File(out).Path)] = true
		}
		task := &Task{BuildID: id, Cmdline: b.Cmdline, Rspfile: b.Rspfile, Depfile: b.Depfile}
		for d := range dirs {
			task.OutputDirs = append(task.OutputDirs, d)
		}
		s.pools[b.PoolName].acquire()
		s.states.set(id, StateRunning)
		s.Status.EdgeStarted(b.Description, b.Cmdline)
		if err := s.runner.Start(ctx, task); err != nil {
			s.pools[b.PoolName].release()
			s.failed = err
			return true
		}
		didWork = true
	}
}

// popQueued pops one build id from whichever pool has spare capacity,
// scanning pool names in sorted order (map iteration order isn't stable,
// so this keeps the choice deterministic): the first pool in that order
// with a queued build and spare capacity wins.
func (s *Scheduler) popQueued() (BuildID, bool) {
	names := make([]string, 0, len(s.queues))
	for name := range s.queues {
		names = append(names, name)
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	for _, name := range names {
		q := s.queues[name]
		if len(q) == 0 {
			continue
		}
		pool := s.pools[name]
		if !pool.HasCapacity() {
			continue
		}
		id := q[0]
		s.queues[name] = q[1:]
		return id, true
	}
	return 0, false
}

// finish marks a build Done and promotes any Want dependent whose
// producing inputs are now all Done.
func (s *Scheduler) finish(id BuildID) {
	s.states.set(id, StateDone)
	b := s.graph.Build(id)
	for _, out := range b.Outs {
		for _, dep := range s.graph.File(out).Consumers {
			if s.states.Get(dep) != StateWant {
				continue
			}
			allDone := true
			for _, in := range s.graph.Build(dep).OrderingInputs() {
				if p := s.graph.File(in).Producer; p != noBuild && s.states.Get(p) != StateDone {
					allDone = false
					break
				}
			}
			if allDone {
				s.promoteReady(dep)
			}
		}
	}
}

// onFinished handles the runner reporting a Task's outcome: finish
// bookkeeping (discovered deps, re-stat, fingerprint write-or-skip),
// pool release, and propagation.
func (s *Scheduler) onFinished(res *TaskResult) error {
	id := res.BuildID
	b := s.graph.Build(id)
	s.pools[b.PoolName].release()
	s.Status.EdgeFinished(b.Description, res.Success)

	if !res.Success {
		return fmt.Errorf("build for %s failed: %w\n%s", s.graph.File(b.Outs[0]).Path, res.Err, res.Output)
	}

	if len(res.DiscoveredDeps) > 0 {
		ids := make([]FileID, 0, len(res.DiscoveredDeps))
		for _, path := range res.DiscoveredDeps {
			fid, err := s.graph.Intern(path)
			if err != nil {
				return err
			}
			if f := s.graph.File(fid); f.Producer != noBuild {
				if _, _, known := s.fs.Get(fid); !known {
					return fmt.Errorf("discovered dependency %s has a producer but no declared edge reaches it", f.Path)
				}
			}
			ids = append(ids, fid)
		}
		if b.addDiscovered(ids) {
			for _, fid := range ids {
				if _, _, known := s.fs.Get(fid); !known {
					if _, _, err := s.fs.Restat(fid); err != nil {
						return err
					}
				}
			}
		}
	}

	outputsComplete := true
	for _, out := range b.Outs {
		_, present, err := s.fs.Restat(out)
		if err != nil {
			return err
		}
		if !present {
			outputsComplete = false
		}
	}

	if outputsComplete {
		hash, err := fingerprintOf(s.graph, s.fs, b)
		if err != nil {
			return err
		}
		s.fpmap.Set(s.graph, b, hash)
		if s.fplog != nil {
			if err := s.fplog.WriteBuild(s.graph, b, hash); err != nil {
				return err
			}
		}
	} else {
		s.explain("skipping fingerprint write for %s: an output is missing", s.graph.File(b.Outs[0]).Path)
	}

	s.finish(id)
	return nil
}
