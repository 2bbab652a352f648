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

import "fmt"

// FileID identifies a File within a Graph. IDs are assigned on insertion
// and never reused or reordered, so they're stable indices into Graph's
// dense arrays.
type FileID int

// BuildID identifies a Build within a Graph, with the same stability
// guarantee as FileID.
type BuildID int

const noBuild BuildID = -1

// File is a path in the build universe: at most one Build may produce it,
// any number of Builds may consume it.
type File struct {
	Path     string
	Producer BuildID // noBuild if nothing declares this as an output.
	Consumers []BuildID
}

// RspFile is a build's response-file request: a path to materialize on
// disk before launching the command, and the content to write there.
type RspFile struct {
	Path    string
	Content string
}

// Build is one action: a command (or, if Cmdline == "", a phony grouping
// build) producing Outs from Ins.
//
// Ins is split into three contiguous regions in this order: explicit,
// implicit, order-only. ExplicitIns+ImplicitIns <= len(Ins); the
// remainder is order-only. Outs is split into explicit and implicit
// regions the same way.
type Build struct {
	ID BuildID

	// Source location, for error messages.
	SourcePath string
	SourceLine int

	Description string
	Cmdline     string // empty means phony.
	Depfile     string
	Rspfile     *RspFile
	PoolName    string

	Ins          []FileID
	ExplicitIns  int
	ImplicitIns  int
	// OrderOnlyIns = len(Ins) - ExplicitIns - ImplicitIns.

	Outs         []FileID
	ExplicitOuts int
	// ImplicitOuts = len(Outs) - ExplicitOuts.

	// DiscoveredIns holds dependencies reported by the task runner via a
	// depfile after this build has run at least once. Deduplicated
	// against Ins on update.
	DiscoveredIns []FileID
}

func (b *Build) Phony() bool { return b.Cmdline == "" }

// ExplicitInputs, ImplicitInputs, OrderOnlyInputs and ExplicitOutputs,
// ImplicitOutputs slice Ins/Outs into their declared regions.
func (b *Build) ExplicitInputs() []FileID { return b.Ins[:b.ExplicitIns] }
func (b *Build) ImplicitInputs() []FileID {
	return b.Ins[b.ExplicitIns : b.ExplicitIns+b.ImplicitIns]
}
func (b *Build) OrderOnlyInputs() []FileID {
	return b.Ins[b.ExplicitIns+b.ImplicitIns:]
}
func (b *Build) ExplicitOutputs() []FileID { return b.Outs[:b.ExplicitOuts] }
func (b *Build) ImplicitOutputs() []FileID { return b.Outs[b.ExplicitOuts:] }

// DirtyingInputs is explicit+implicit inputs, in declared order: the
// inputs whose staleness forces a rebuild.
func (b *Build) DirtyingInputs() []FileID { return b.Ins[:b.ExplicitIns+b.ImplicitIns] }

// OrderingInputs is every input that gates readiness: explicit, implicit
// and order-only alike.
func (b *Build) OrderingInputs() []FileID { return b.Ins }

// addDiscovered merges newly-reported dependency file IDs into
// DiscoveredIns, skipping any already present in Ins or DiscoveredIns.
// Reports whether the set actually changed.
func (b *Build) addDiscovered(ids []FileID) bool {
	changed := false
	for _, id := range ids {
		if b.hasInput(id) {
			continue
		}
		b.DiscoveredIns = append(b.DiscoveredIns, id)
		changed = true
	}
	return changed
}

func (b *Build) hasInput(id FileID) bool {
	for _, x := range b.Ins {
		if x == id {
			return true
		}
	}
	for _, x := range b.DiscoveredIns {
		if x == id {
			return true
		}
	}
	return false
}

// Graph owns every File and Build by id and the canonical-path -> FileID
// interning table. It's the sole owner of these entities; every other
// component refers to them only by id.
type Graph struct {
	files    []*File
	builds   []*Build
	pathToID map[string]FileID
}

func NewGraph() *Graph {
	return &Graph{pathToID: map[string]FileID{}}
}

// Intern canonicalizes path and returns its FileID, creating a new File
// if this is the first time the path has been seen.
func (g *Graph) Intern(path string) (FileID, error) {
	canon, err := CanonicalizePath(path)
	if err != nil {
		return 0, err
	}
	if id, ok := g.pathToID[canon]; ok {
		return id, nil
	}
	id := FileID(len(g.files))
	g.files = append(g.files, &File{Path: canon, Producer: noBuild})
	g.pathToID[canon] = id
	return id, nil
}

// File returns the File for id.
func (g *Graph) File(id FileID) *File { return g.files[id] }

// FileCount is the number of interned files.
func (g *Graph) FileCount() int { return len(g.files) }

// LookupPath returns the FileID for an already-canonical path, if any.
func (g *Graph) LookupPath(path string) (FileID, bool) {
	id, ok := g.pathToID[path]
	return id, ok
}

// AddBuild assigns the next BuildID to b, links it into every input
// File's consumer list, and sets every output File's producer. A second
// build declaring an already-produced output is a manifest error.
func (g *Graph) AddBuild(b *Build) error {
	id := BuildID(len(g.builds))
	b.ID = id
	for _, in := range b.Ins {
		f := g.files[in]
		f.Consumers = append(f.Consumers, id)
	}
	for _, out := range b.Outs {
		f := g.files[out]
		if f.Producer != noBuild {
			return fmt.Errorf("multiple rules generate %s", f.Path)
		}
		f.Producer = id
	}
	g.builds = append(g.builds, b)
	return nil
}

// Build returns the Build for id.
func (g *Graph) Build(id BuildID) *Build { return g.builds[id] }

// BuildCount is the number of builds in the graph.
func (g *Graph) BuildCount() int { return len(g.builds) }
