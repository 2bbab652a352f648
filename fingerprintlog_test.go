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
	"path/filepath"
	"testing"
)

func TestFingerprintLogWriteAndReplay(t *testing.T) {
	g := NewGraph()
	out, _ := g.Intern("out.o")
	dep, _ := g.Intern("out.h")
	b := &Build{Cmdline: "cc", Outs: []FileID{out}, ExplicitOuts: 1, DiscoveredIns: []FileID{dep}}

	path := filepath.Join(t.TempDir(), "log")

	fplog, fpmap, err := OpenFingerprintLog(path, g)
	if err != nil {
		t.Fatalf("OpenFingerprintLog: %v", err)
	}
	if err := fplog.WriteBuild(g, b, Fingerprint(77)); err != nil {
		t.Fatalf("WriteBuild: %v", err)
	}
	if err := fplog.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if fpmap.Changed(g, b, Fingerprint(77)) {
		t.Error("in-memory map should already reflect the just-written record")
	}

	fplog2, fpmap2, err := OpenFingerprintLog(path, g)
	if err != nil {
		t.Fatalf("reopen OpenFingerprintLog: %v", err)
	}
	defer fplog2.Close()

	if fpmap2.Changed(g, b, Fingerprint(77)) {
		t.Error("replay should recover the previously written hash")
	}
	if got := fpmap2.DiscoveredPaths(g, b); len(got) != 1 || got[0] != "out.h" {
		t.Errorf("DiscoveredPaths after replay = %v, want [out.h]", got)
	}
}

func TestFingerprintLogLastWriteWins(t *testing.T) {
	g := NewGraph()
	out, _ := g.Intern("out.o")
	b := &Build{Cmdline: "cc", Outs: []FileID{out}, ExplicitOuts: 1}

	path := filepath.Join(t.TempDir(), "log")
	fplog, _, err := OpenFingerprintLog(path, g)
	if err != nil {
		t.Fatalf("OpenFingerprintLog: %v", err)
	}
	if err := fplog.WriteBuild(g, b, Fingerprint(1)); err != nil {
		t.Fatalf("WriteBuild: %v", err)
	}
	if err := fplog.WriteBuild(g, b, Fingerprint(2)); err != nil {
		t.Fatalf("WriteBuild: %v", err)
	}
	if err := fplog.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, fpmap, err := OpenFingerprintLog(path, g)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if fpmap.Changed(g, b, Fingerprint(2)) {
		t.Error("replay should keep the most recent record for a repeated output key")
	}
	if !fpmap.Changed(g, b, Fingerprint(1)) {
		t.Error("the superseded hash should no longer match")
	}
}

func TestFingerprintLogEmptyFileIsFine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	g := NewGraph()
	fplog, fpmap, err := OpenFingerprintLog(path, g)
	if err != nil {
		t.Fatalf("OpenFingerprintLog on fresh path: %v", err)
	}
	defer fplog.Close()
	if len(fpmap.byOutputKey) != 0 {
		t.Error("a fresh log should replay to an empty map")
	}
}
