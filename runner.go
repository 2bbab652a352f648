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
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Task is everything the scheduler hands to a Runner to execute one
// build action.
type Task struct {
	BuildID BuildID
	Cmdline string
	Rspfile *RspFile
	// Depfile is the path the command writes discovered dependencies to,
	// if the rule declared one. Empty means no discovered-deps step.
	Depfile string
	// OutputDirs lists parent directories of the build's outputs that
	// must exist before the command runs.
	OutputDirs []string
}

// TaskResult is what a Runner reports back once a Task finishes.
type TaskResult struct {
	BuildID BuildID
	Success bool
	Output  []byte
	Err     error
	// DiscoveredDeps holds dependency paths parsed from the build's
	// depfile, if it declared one. Empty when the build has none.
	DiscoveredDeps []string
}

// Runner launches build actions and reports their outcome. The scheduler
// never spawns processes itself, only through this contract; tests
// substitute a fake Runner that never touches the OS.
type Runner interface {
	// CanAcceptMore reports whether Start may be called again without
	// first Wait-ing. A Runner with global -j parallelism returns false
	// once that many tasks are in flight.
	CanAcceptMore() bool
	// Start launches t. It must not block waiting for completion.
	Start(ctx context.Context, t *Task) error
	// Wait blocks until at least one in-flight task finishes, or ctx is
	// done. ok is false only when ctx expired with nothing to report.
	Wait(ctx context.Context) (result *TaskResult, ok bool, err error)
	// ActiveCount is the number of tasks currently in flight.
	ActiveCount() int
}

// ProcessRunner launches build commands as real subprocesses through
// os/exec (shell -c, combined stdout+stderr buffer), bounding global
// concurrency. Pool-level depth is the scheduler's job; ProcessRunner
// only enforces the overall -j limit.
type ProcessRunner struct {
	sem     *semaphore.Weighted
	results chan *TaskResult
	active  int64

	// group supervises every in-flight task goroutine. A task's own exec
	// failure is reported through TaskResult, never through group.Go's
	// return value, so the group only ever surfaces a genuine runner bug.
	// Close reports the first such bug.
	group    *errgroup.Group
	groupCtx context.Context

	shell     string
	shellFlag string
}

// NewProcessRunner returns a Runner bounding concurrent subprocesses to
// parallelism. parallelism <= 0 means unbounded (limited only by
// per-pool depth).
func NewProcessRunner(ctx context.Context, parallelism int64) *ProcessRunner {
	if parallelism <= 0 {
		parallelism = 1 << 20 // effectively unbounded.
	}
	shell, flag := "bash", "-c"
	if runtime.GOOS == "windows" {
		shell, flag = "cmd.exe", "/c"
	}
	group, groupCtx := errgroup.WithContext(ctx)
	return &ProcessRunner{
		sem:       semaphore.NewWeighted(parallelism),
		results:   make(chan *TaskResult, 64),
		group:     group,
		groupCtx:  groupCtx,
		shell:     shell,
		shellFlag: flag,
	}
}

// Close waits for every task goroutine the runner has launched to
// return, and reports the first internal (non-task) error any of them
// hit. Callers should invoke it once after a Scheduler.Run completes.
func (r *ProcessRunner) Close() error { return r.group.Wait() }

func (r *ProcessRunner) ActiveCount() int { return int(atomic.LoadInt64(&r.active)) }

func (r *ProcessRunner) CanAcceptMore() bool {
	if r.sem.TryAcquire(1) {
		r.sem.Release(1)
		return true
	}
	return false
}

// Start writes the task's response file (if any) and launches its
// command line in a new goroutine, reporting the outcome on r.results.
func (r *ProcessRunner) Start(ctx context.Context, t *Task) error {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	for _, dir := range t.OutputDirs {
		if err := os.MkdirAll(dir, 0o777); err != nil {
			r.sem.Release(1)
			return err
		}
	}
	if t.Rspfile != nil {
		if err := writeRspFileAtomic(t.Rspfile); err != nil {
			r.sem.Release(1)
			return err
		}
	}

	atomic.AddInt64(&r.active, 1)
	r.group.Go(func() error {
		defer r.sem.Release(1)
		defer atomic.AddInt64(&r.active, -1)

		var buf bytes.Buffer
		cmd := exec.CommandContext(ctx, r.shell, r.shellFlag, t.Cmdline)
		cmd.Stdout = &buf
		cmd.Stderr = &buf
		err := cmd.Run()

		res := &TaskResult{BuildID: t.BuildID, Output: buf.Bytes(), Success: err == nil, Err: err}
		if err == nil && t.Depfile != "" {
			if content, readErr := os.ReadFile(t.Depfile); readErr == nil {
				res.DiscoveredDeps = ParseDepfile(content)
			}
			// A missing depfile after a successful command isn't fatal here:
			// some rules only emit one on certain inputs (e.g. no system
			// headers included). The scheduler treats an empty discovered
			// list as "nothing new" either way.
		}
		select {
		case r.results <- res:
		case <-r.groupCtx.Done():
		}
		return nil
	})
	return nil
}

func (r *ProcessRunner) Wait(ctx context.Context) (*TaskResult, bool, error) {
	select {
	case res := <-r.results:
		return res, true, nil
	case <-ctx.Done():
		return nil, false, nil
	}
}

// writeRspFileAtomic writes rsp.Content to a uuid-named temp file beside
// the destination and renames it into place, so a reader can never
// observe a partially-written response file.
func writeRspFileAtomic(rsp *RspFile) error {
	dir := filepath.Dir(rsp.Path)
	tmp := filepath.Join(dir, ".n2-rsp-"+uuid.NewString())
	if err := os.WriteFile(tmp, []byte(rsp.Content), 0o666); err != nil {
		return err
	}
	return os.Rename(tmp, rsp.Path)
}
