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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGraphInternDedup(t *testing.T) {
	g := NewGraph()
	id1, err := g.Intern("foo/../bar")
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}
	id2, err := g.Intern("bar")
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}
	if id1 != id2 {
		t.Errorf("Intern should canonicalize before deduping: %d != %d", id1, id2)
	}
	if g.FileCount() != 1 {
		t.Errorf("FileCount = %d, want 1", g.FileCount())
	}
}

func TestGraphLookupPath(t *testing.T) {
	g := NewGraph()
	id, _ := g.Intern("a/b")
	got, ok := g.LookupPath("a/b")
	if !ok || got != id {
		t.Errorf("LookupPath = %v, %v, want %v, true", got, ok, id)
	}
	if _, ok := g.LookupPath("a/c"); ok {
		t.Error("LookupPath should miss for an uninterned path")
	}
}

func TestGraphAddBuildLinksProducerAndConsumers(t *testing.T) {
	g := NewGraph()
	in, _ := g.Intern("in.c")
	out, _ := g.Intern("out.o")

	b := &Build{Cmdline: "cc", Ins: []FileID{in}, ExplicitIns: 1, Outs: []FileID{out}, ExplicitOuts: 1}
	if err := g.AddBuild(b); err != nil {
		t.Fatalf("AddBuild: %v", err)
	}

	if g.File(out).Producer != b.ID {
		t.Errorf("Producer = %v, want %v", g.File(out).Producer, b.ID)
	}
	consumers := g.File(in).Consumers
	if len(consumers) != 1 || consumers[0] != b.ID {
		t.Errorf("Consumers = %v, want [%v]", consumers, b.ID)
	}
	if g.BuildCount() != 1 {
		t.Errorf("BuildCount = %d, want 1", g.BuildCount())
	}
}

func TestGraphAddBuildDoubleProducerIsError(t *testing.T) {
	g := NewGraph()
	out, _ := g.Intern("out.o")

	first := &Build{Cmdline: "cc", Outs: []FileID{out}, ExplicitOuts: 1}
	if err := g.AddBuild(first); err != nil {
		t.Fatalf("AddBuild(first): %v", err)
	}

	second := &Build{Cmdline: "cc", Outs: []FileID{out}, ExplicitOuts: 1}
	if err := g.AddBuild(second); err == nil {
		t.Fatal("expected error for a second build producing the same output")
	}
}

func TestBuildInputOutputRegions(t *testing.T) {
	g := NewGraph()
	e, _ := g.Intern("e")
	i, _ := g.Intern("i")
	o, _ := g.Intern("o")
	eo, _ := g.Intern("eo")
	io, _ := g.Intern("io")

	b := &Build{
		Ins:         []FileID{e, i, o},
		ExplicitIns: 1,
		ImplicitIns: 1,
		Outs:        []FileID{eo, io},
		ExplicitOuts: 1,
	}

	if diff := cmp.Diff([]FileID{e}, b.ExplicitInputs()); diff != "" {
		t.Errorf("ExplicitInputs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]FileID{i}, b.ImplicitInputs()); diff != "" {
		t.Errorf("ImplicitInputs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]FileID{o}, b.OrderOnlyInputs()); diff != "" {
		t.Errorf("OrderOnlyInputs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]FileID{eo}, b.ExplicitOutputs()); diff != "" {
		t.Errorf("ExplicitOutputs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]FileID{io}, b.ImplicitOutputs()); diff != "" {
		t.Errorf("ImplicitOutputs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]FileID{e, i}, b.DirtyingInputs()); diff != "" {
		t.Errorf("DirtyingInputs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]FileID{e, i, o}, b.OrderingInputs()); diff != "" {
		t.Errorf("OrderingInputs mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildAddDiscoveredDedupes(t *testing.T) {
	g := NewGraph()
	in, _ := g.Intern("in.c")
	dep, _ := g.Intern("in.h")

	b := &Build{Ins: []FileID{in}, ExplicitIns: 1}
	if changed := b.addDiscovered([]FileID{dep}); !changed {
		t.Fatal("expected addDiscovered to report a change for a new dep")
	}
	if changed := b.addDiscovered([]FileID{dep}); changed {
		t.Error("addDiscovered should not report a change for an already-known dep")
	}
	if changed := b.addDiscovered([]FileID{in}); changed {
		t.Error("addDiscovered should not add a dep already present in Ins")
	}
	if len(b.DiscoveredIns) != 1 {
		t.Errorf("DiscoveredIns = %v, want 1 entry", b.DiscoveredIns)
	}
}

func TestBuildPhony(t *testing.T) {
	if (&Build{Cmdline: ""}).Phony() != true {
		t.Error("empty Cmdline should be phony")
	}
	if (&Build{Cmdline: "cc"}).Phony() != false {
		t.Error("non-empty Cmdline should not be phony")
	}
}
