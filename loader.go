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
	"os"
	"strings"
)

// osFileReader reads include/subninja targets straight off disk.
type osFileReader struct{}

func (osFileReader) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// Loader drives a Parser against a Graph, implementing Handler and
// materializing Rule/Pool/Default/Build statements as they complete. It
// is the parser's only caller-supplied "loader callback".
type Loader struct {
	graph    *Graph
	env      *BindingEnv
	pools    map[string]*Pool
	defaults []FileID
}

// NewLoader returns a Loader over an empty top-level scope, with the two
// builtin pools and the implicit "phony" rule already installed.
func NewLoader(g *Graph) *Loader {
	l := &Loader{graph: g, env: NewBindingEnv(nil), pools: newBuiltinPools()}
	l.env.AddRule(NewRule("phony"))
	return l
}

func (l *Loader) Pools() map[string]*Pool { return l.pools }
func (l *Loader) Defaults() []FileID      { return l.defaults }
func (l *Loader) Env() *BindingEnv        { return l.env }

// Load reads filename through fr and parses it into this Loader's scope.
// Calling Load more than once shares the same top-level env, the same
// way a subninja recursion does.
func (l *Loader) Load(fr FileReader, filename string) error {
	input, err := fr.ReadFile(filename)
	if err != nil {
		return err
	}
	return NewParser(fr, l).Parse(filename, input, l.env)
}

// LoadManifest opens and parses a manifest file straight off disk.
func LoadManifest(g *Graph, path string) (*Loader, error) {
	l := NewLoader(g)
	if err := l.Load(osFileReader{}, path); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) Intern(path string) (FileID, error) { return l.graph.Intern(path) }

func (l *Loader) OnPool(name string, depth int) error {
	if _, exists := l.pools[name]; exists {
		return fmt.Errorf("duplicate pool %q", name)
	}
	l.pools[name] = NewPool(name, depth)
	return nil
}

func (l *Loader) OnRule(name string, bindings map[string]*EvalString) error {
	// The implicit phony rule may always be redeclared; every other rule
	// name is one-shot.
	if name != "phony" && l.env.LookupRuleCurrentScope(name) != nil {
		return fmt.Errorf("duplicate rule %q", name)
	}
	r := NewRule(name)
	r.Bindings = bindings
	l.env.AddRule(r)
	return nil
}

func (l *Loader) OnDefault(paths []FileID) error {
	l.defaults = append(l.defaults, paths...)
	return nil
}

func (l *Loader) OnBuild(rb *RawBuild) error {
	rule := l.env.LookupRule(rb.RuleName)
	if rule == nil {
		return fmt.Errorf("%s:%d: unknown build rule %q", rb.SourcePath, rb.SourceLine, rb.RuleName)
	}

	b := &Build{
		SourcePath:   rb.SourcePath,
		SourceLine:   rb.SourceLine,
		Outs:         rb.Outs,
		ExplicitOuts: rb.ExplicitOuts,
		Ins:          rb.Ins,
		ExplicitIns:  rb.ExplicitIns,
		ImplicitIns:  rb.ImplicitIns,
	}

	implicit := map[string]string{
		"in":          joinPaths(l.graph, b.ExplicitInputs(), " "),
		"out":         joinPaths(l.graph, b.ExplicitOutputs(), " "),
		"in_newline":  joinPaths(l.graph, b.ExplicitInputs(), "\n"),
		"out_newline": joinPaths(l.graph, b.ExplicitOutputs(), "\n"),
	}

	// The build's own indented bindings see {implicit, rule, file} but
	// not each other or the "build vars" level they're building up — that
	// level only exists once the whole block has been evaluated, and is
	// what the rule's own command/description/etc. are expanded against
	// next. Evaluating into a throwaway empty build-map here keeps this
	// deterministic regardless of Go's randomized map iteration order.
	blockScope := &buildScope{implicit: implicit, build: map[string]string{}, rule: rule, file: l.env}
	buildVars := map[string]string{}
	for key, ev := range rb.Bindings {
		buildVars[key] = ev.Evaluate(blockScope)
	}

	scope := &buildScope{implicit: implicit, build: buildVars, rule: rule, file: l.env}
	b.Cmdline = ruleBindingOrEmpty(rule, "command", scope)
	b.Description = ruleBindingOrEmpty(rule, "description", scope)
	b.Depfile = ruleBindingOrEmpty(rule, "depfile", scope)
	b.PoolName = ruleBindingOrEmpty(rule, "pool", scope)

	rsp := ruleBindingOrEmpty(rule, "rspfile", scope)
	rspContent := ruleBindingOrEmpty(rule, "rspfile_content", scope)
	if (rsp == "") != (rspContent == "") {
		return fmt.Errorf("%s:%d: rspfile and rspfile_content must both be present or both absent", rb.SourcePath, rb.SourceLine)
	}
	if rsp != "" {
		b.Rspfile = &RspFile{Path: rsp, Content: rspContent}
	}

	if _, ok := l.pools[b.PoolName]; !ok {
		return fmt.Errorf("%s:%d: build references unknown pool %q", rb.SourcePath, rb.SourceLine, b.PoolName)
	}

	return l.graph.AddBuild(b)
}

func ruleBindingOrEmpty(r *Rule, key string, scope Env) string {
	ev := r.Binding(key)
	if ev == nil {
		return ""
	}
	return ev.Evaluate(scope)
}

func joinPaths(g *Graph, ids []FileID, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = g.File(id).Path
	}
	return strings.Join(parts, sep)
}
