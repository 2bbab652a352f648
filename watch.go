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
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-invokes a full build whenever a watched path changes (the
// caller chooses the set; see InputPaths), debouncing bursts of events from editor
// saves. It never reparses incrementally: each trigger calls Rebuild,
// which reloads the manifest and runs the scheduler from scratch;
// Watcher only decides *when* to invoke the existing pipeline again.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration

	// Rebuild performs one full load-and-run pass. Its return error is
	// logged, not propagated, so a single bad edit doesn't kill watch mode.
	Rebuild func() error

	mu      sync.Mutex
	watched map[string]bool
}

// NewWatcher returns a Watcher with a 100ms debounce window.
func NewWatcher(rebuild func() error) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fw,
		debounce: 100 * time.Millisecond,
		Rebuild:  rebuild,
		watched:  map[string]bool{},
	}, nil
}

// Sync replaces the watch set with exactly paths, adding new watches and
// dropping ones no longer relevant. The CLI passes InputPaths of the most
// recently loaded graph (the manifest plus every non-generated file it
// knows), so renaming a dependency away (or adding a new one) is picked
// up on the next Rebuild.
func (w *Watcher) Sync(paths []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[filepath.Clean(p)] = true
	}
	for p := range w.watched {
		if !want[p] {
			w.watcher.Remove(p)
			delete(w.watched, p)
		}
	}
	for p := range want {
		if w.watched[p] {
			continue
		}
		if err := w.watcher.Add(p); err != nil {
			// A path that vanished between stat and Add isn't fatal: the
			// next Rebuild will notice it's missing on its own.
			continue
		}
		w.watched[p] = true
	}
	return nil
}

// Run blocks, triggering a debounced Rebuild+Sync on filesystem activity
// until ctx is done or the underlying fsnotify watcher errors out.
// pathsForRebuild is called after every Rebuild to recompute the watch
// set, since a changed manifest can add or drop inputs entirely.
func (w *Watcher) Run(ctx context.Context, pathsForRebuild func() []string) error {
	defer w.watcher.Close()

	if err := w.Sync(pathsForRebuild()); err != nil {
		return err
	}

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	schedule := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			select {
			case fire <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			Warnf("watch error: %v", err)
		case <-fire:
			Infof("change detected, rebuilding")
			if err := w.Rebuild(); err != nil {
				Warnf("rebuild failed: %v", err)
			}
			if err := w.Sync(pathsForRebuild()); err != nil {
				Warnf("watch resync failed: %v", err)
			}
		}
	}
}

// InputPaths collects the manifest path plus every non-generated file
// the graph knows about, the set Watcher.Sync should hold after a run:
// generated outputs are deliberately excluded since their own producer's
// inputs are what should trigger the next rebuild, not their own mtime.
func InputPaths(g *Graph, manifestPath string) []string {
	paths := []string{manifestPath}
	for i := 0; i < g.FileCount(); i++ {
		f := g.File(FileID(i))
		if f.Producer == noBuild {
			paths = append(paths, f.Path)
		}
	}
	return paths
}
