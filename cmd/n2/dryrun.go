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

package main

import (
	"context"

	n2 "github.com/nin2build/n2"
)

// dryRunner implements n2.Runner for -n/--dry-run: it never spawns a
// process, just reports every task as an immediate success.
type dryRunner struct {
	results chan *n2.TaskResult
}

func newDryRunner() *dryRunner {
	return &dryRunner{results: make(chan *n2.TaskResult, 64)}
}

func (d *dryRunner) CanAcceptMore() bool { return true }
func (d *dryRunner) ActiveCount() int    { return 0 }

func (d *dryRunner) Start(ctx context.Context, t *n2.Task) error {
	d.results <- &n2.TaskResult{BuildID: t.BuildID, Success: true}
	return nil
}

func (d *dryRunner) Wait(ctx context.Context) (*n2.TaskResult, bool, error) {
	select {
	case res := <-d.results:
		return res, true, nil
	case <-ctx.Done():
		return nil, false, nil
	}
}
