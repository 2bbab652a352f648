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

import "testing"

func TestEvalStringLiteralAndVariable(t *testing.T) {
	var e EvalString
	e.AddText("plain text ")
	e.AddVariable("var")
	e.AddText(" and ")
	e.AddVariable("missing")
	e.AddText(" tail")

	env := immediateEnv{"var": "VALUE"}
	got := e.Evaluate(env)
	want := "plain text VALUE and  tail"
	if got != want {
		t.Errorf("Evaluate() = %q, want %q", got, want)
	}
}

func TestEvalStringEmpty(t *testing.T) {
	var e EvalString
	if !e.Empty() {
		t.Fatal("zero-value EvalString should be Empty")
	}
	e.AddText("x")
	if e.Empty() {
		t.Fatal("EvalString with a part should not be Empty")
	}
}

func TestBindingEnvParentChain(t *testing.T) {
	parent := NewBindingEnv(nil)
	parent.AddBinding("a", "from-parent")
	child := NewBindingEnv(parent)
	child.AddBinding("b", "from-child")

	if v, ok := child.LookupVariable("b"); !ok || v != "from-child" {
		t.Errorf("child lookup of b = %q, %v", v, ok)
	}
	if v, ok := child.LookupVariable("a"); !ok || v != "from-parent" {
		t.Errorf("child lookup of a (inherited) = %q, %v", v, ok)
	}
	if _, ok := child.LookupVariable("nope"); ok {
		t.Error("lookup of undefined variable should miss")
	}
}

func TestBindingEnvRuleLookupWalksParent(t *testing.T) {
	parent := NewBindingEnv(nil)
	parent.AddRule(NewRule("phony"))
	child := NewBindingEnv(parent)

	if r := child.LookupRule("phony"); r == nil {
		t.Fatal("expected to find phony rule via parent scope")
	}
	if r := child.LookupRuleCurrentScope("phony"); r != nil {
		t.Error("LookupRuleCurrentScope should not see the parent's rules")
	}
}

func TestBuildScopeShadowing(t *testing.T) {
	file := NewBindingEnv(nil)
	file.AddBinding("x", "file-level")

	rule := NewRule("cc")
	ruleX := &EvalString{}
	ruleX.AddText("rule-level")
	rule.Bindings["x"] = ruleX

	scope := &buildScope{
		implicit: map[string]string{},
		build:    map[string]string{"x": "build-level"},
		rule:     rule,
		file:     file,
	}
	if v, _ := scope.LookupVariable("x"); v != "build-level" {
		t.Errorf("build-level binding should shadow rule and file scope, got %q", v)
	}

	scope.build = map[string]string{}
	if v, _ := scope.LookupVariable("x"); v != "rule-level" {
		t.Errorf("rule-level binding should shadow file scope, got %q", v)
	}

	rule.Bindings = map[string]*EvalString{}
	if v, _ := scope.LookupVariable("x"); v != "file-level" {
		t.Errorf("should fall back to file scope, got %q", v)
	}
}
