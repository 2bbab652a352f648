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
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeFileReader serves include/subninja targets from an in-memory map.
type fakeFileReader map[string][]byte

func (f fakeFileReader) ReadFile(path string) ([]byte, error) {
	if b, ok := f[path]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("no such file %q", path)
}

func parseString(t *testing.T, fr FileReader, input string) (*Graph, *Loader) {
	t.Helper()
	g := NewGraph()
	l := NewLoader(g)
	if fr == nil {
		fr = fakeFileReader{}
	}
	if err := NewParser(fr, l).Parse("build.ninja", []byte(input), l.Env()); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return g, l
}

func TestParseSimpleBuild(t *testing.T) {
	g, _ := parseString(t, nil, "rule cc\n  command = cc -c $in -o $out\n\nbuild out.o: cc in.c\n")

	out, ok := g.LookupPath("out.o")
	if !ok {
		t.Fatal("out.o not interned")
	}
	f := g.File(out)
	if f.Producer < 0 {
		t.Fatal("out.o has no producer")
	}
	b := g.Build(f.Producer)
	if b.Cmdline != "cc -c in.c -o out.o" {
		t.Errorf("Cmdline = %q", b.Cmdline)
	}
}

func TestParseBuildWithImplicitAndOrderOnly(t *testing.T) {
	g, _ := parseString(t, nil,
		"rule cc\n  command = cc\n\nbuild out.o | out.d: cc in.c | in.h || ord.stamp\n")

	out, _ := g.LookupPath("out.o")
	b := g.Build(g.File(out).Producer)

	if got := len(b.ExplicitOutputs()); got != 1 {
		t.Errorf("ExplicitOutputs len = %d, want 1", got)
	}
	if got := len(b.ImplicitOutputs()); got != 1 {
		t.Errorf("ImplicitOutputs len = %d, want 1", got)
	}
	if got := len(b.ExplicitInputs()); got != 1 {
		t.Errorf("ExplicitInputs len = %d, want 1", got)
	}
	if got := len(b.ImplicitInputs()); got != 1 {
		t.Errorf("ImplicitInputs len = %d, want 1", got)
	}
	if got := len(b.OrderOnlyInputs()); got != 1 {
		t.Errorf("OrderOnlyInputs len = %d, want 1", got)
	}
}

// TestParseDefaultTargets: "var = 3" then "default a b$var c" should
// yield targets a, b3, c in that order.
func TestParseDefaultTargets(t *testing.T) {
	g, l := parseString(t, nil, "var = 3\ndefault a b$var c\n")

	want := []string{"a", "b3", "c"}
	got := make([]string, len(l.Defaults()))
	for i, id := range l.Defaults() {
		got[i] = g.File(id).Path
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Defaults() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDuplicateRuleIsError(t *testing.T) {
	g := NewGraph()
	l := NewLoader(g)
	fr := fakeFileReader{}
	input := "rule cc\n  command = cc\n\nrule cc\n  command = cc2\n"
	err := NewParser(fr, l).Parse("build.ninja", []byte(input), l.Env())
	if err == nil || !strings.Contains(err.Error(), "duplicate rule") {
		t.Fatalf("expected duplicate rule error, got %v", err)
	}
}

func TestParseDuplicatePoolIsError(t *testing.T) {
	g := NewGraph()
	l := NewLoader(g)
	fr := fakeFileReader{}
	input := "pool link_pool\n  depth = 4\n\npool link_pool\n  depth = 2\n"
	err := NewParser(fr, l).Parse("build.ninja", []byte(input), l.Env())
	if err == nil || !strings.Contains(err.Error(), "duplicate pool") {
		t.Fatalf("expected duplicate pool error, got %v", err)
	}
}

func TestParseUnknownRuleIsError(t *testing.T) {
	g := NewGraph()
	l := NewLoader(g)
	fr := fakeFileReader{}
	err := NewParser(fr, l).Parse("build.ninja", []byte("build out: missing in\n"), l.Env())
	if err == nil || !strings.Contains(err.Error(), "unknown build rule") {
		t.Fatalf("expected unknown build rule error, got %v", err)
	}
}

func TestParseUnknownPoolReferenceIsError(t *testing.T) {
	g := NewGraph()
	l := NewLoader(g)
	fr := fakeFileReader{}
	input := "rule cc\n  command = cc\n  pool = ghost\n\nbuild out: cc in\n"
	err := NewParser(fr, l).Parse("build.ninja", []byte(input), l.Env())
	if err == nil || !strings.Contains(err.Error(), "unknown pool") {
		t.Fatalf("expected unknown pool error, got %v", err)
	}
}

func TestParseRspfileRequiresBothFields(t *testing.T) {
	g := NewGraph()
	l := NewLoader(g)
	fr := fakeFileReader{}
	input := "rule link\n  command = link\n  rspfile = out.rsp\n"
	err := NewParser(fr, l).Parse("build.ninja", []byte(input), l.Env())
	if err == nil || !strings.Contains(err.Error(), "rspfile_content") {
		t.Fatalf("expected rspfile/rspfile_content pairing error, got %v", err)
	}
}

func TestParsePhonyRuleIsImplicit(t *testing.T) {
	g, _ := parseString(t, nil, "build all: phony out.o\n")
	all, ok := g.LookupPath("all")
	if !ok {
		t.Fatal("all not interned")
	}
	b := g.Build(g.File(all).Producer)
	if !b.Phony() {
		t.Error("build using the phony rule should be Phony()")
	}
}

func TestParseInclude(t *testing.T) {
	fr := fakeFileReader{
		"rules.ninja": []byte("rule cc\n  command = cc\n"),
	}
	g, _ := parseString(t, fr, "include rules.ninja\nbuild out.o: cc in.c\n")
	out, ok := g.LookupPath("out.o")
	if !ok || g.File(out).Producer < 0 {
		t.Fatal("build referencing an included rule should resolve")
	}
}

func TestParseMultipleOutputsDoubleProducerIsError(t *testing.T) {
	g := NewGraph()
	l := NewLoader(g)
	fr := fakeFileReader{}
	input := "rule cc\n  command = cc\n\nbuild out.o: cc a.c\nbuild out.o: cc b.c\n"
	err := NewParser(fr, l).Parse("build.ninja", []byte(input), l.Env())
	if err == nil || !strings.Contains(err.Error(), "multiple rules generate") {
		t.Fatalf("expected multiple-producer error, got %v", err)
	}
}
