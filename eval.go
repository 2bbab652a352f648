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

import "strings"

// Env is a capability: look up a variable by name and return its value.
// Misses return ("", false); callers treat that as empty.
type Env interface {
	LookupVariable(name string) (string, bool)
}

// evalPartKind tags an EvalString part as either literal text or a
// variable reference to resolve at evaluation time.
type evalPartKind int

const (
	partLiteral evalPartKind = iota
	partVariable
)

type evalPart struct {
	kind evalPartKind
	text string
}

// EvalString is a lazily-evaluated, $var-aware string: an ordered sequence
// of literal spans and variable references. Evaluating it walks an
// ordered list of environments, using the first hit for each reference.
type EvalString struct {
	parts []evalPart
}

// AddText appends literal text, coalescing with a trailing literal part.
func (e *EvalString) AddText(text string) {
	if n := len(e.parts); n > 0 && e.parts[n-1].kind == partLiteral {
		e.parts[n-1].text += text
		return
	}
	e.parts = append(e.parts, evalPart{kind: partLiteral, text: text})
}

// AddVariable appends a $name or ${name} reference.
func (e *EvalString) AddVariable(name string) {
	e.parts = append(e.parts, evalPart{kind: partVariable, text: name})
}

// Empty reports whether the string has no parts at all (used to detect
// "no more paths on this line" while reading a path list).
func (e *EvalString) Empty() bool { return len(e.parts) == 0 }

// Evaluate resolves every variable reference against env, in order,
// returning the first environment's value for each reference (or empty).
func (e *EvalString) Evaluate(env Env) string {
	if len(e.parts) == 1 && e.parts[0].kind == partLiteral {
		return e.parts[0].text
	}
	var b strings.Builder
	for _, p := range e.parts {
		switch p.kind {
		case partLiteral:
			b.WriteString(p.text)
		case partVariable:
			if v, ok := env.LookupVariable(p.text); ok {
				b.WriteString(v)
			}
		}
	}
	return b.String()
}

// Unparse renders the EvalString back to Ninja syntax (${name} for every
// reference), echoing the manifest's own text rather than its expansion.
func (e *EvalString) Unparse() string {
	var b strings.Builder
	for _, p := range e.parts {
		if p.kind == partVariable {
			b.WriteString("${")
			b.WriteString(p.text)
			b.WriteByte('}')
		} else {
			b.WriteString(p.text)
		}
	}
	return b.String()
}

// immediateEnv is an Env backed by a plain, already-expanded string map
// (file-scope bindings: eagerly evaluated as they're parsed).
type immediateEnv map[string]string

func (m immediateEnv) LookupVariable(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Rule is a reusable template of lazily-expanded variable bindings,
// referenced by name from a build statement. Rule bindings are retained
// as EvalStrings and only expanded once a build's environment chain is
// known, since they may reference $in/$out.
type Rule struct {
	Name     string
	Bindings map[string]*EvalString
}

func NewRule(name string) *Rule {
	return &Rule{Name: name, Bindings: map[string]*EvalString{}}
}

func (r *Rule) Binding(key string) *EvalString {
	return r.Bindings[key]
}

// reservedBindings are the rule-level keys the parser understands;
// anything else inside a "rule" block is a parse error.
var reservedBindings = map[string]bool{
	"command":          true,
	"depfile":          true,
	"dyndep":           true,
	"description":      true,
	"deps":             true,
	"generator":        true,
	"pool":             true,
	"restat":           true,
	"rspfile":          true,
	"rspfile_content":  true,
	"msvc_deps_prefix": true,
}

func IsReservedBinding(name string) bool { return reservedBindings[name] }

// BindingEnv is an Env over a chain of scopes: immediate bindings plus an
// optional parent scope, used for file-scope (top-level) variables. Rules
// are looked up the same way, walking up to the root scope.
type BindingEnv struct {
	Bindings map[string]string
	Rules    map[string]*Rule
	Parent   *BindingEnv
}

func NewBindingEnv(parent *BindingEnv) *BindingEnv {
	return &BindingEnv{
		Bindings: map[string]string{},
		Rules:    map[string]*Rule{},
		Parent:   parent,
	}
}

func (b *BindingEnv) LookupVariable(name string) (string, bool) {
	if v, ok := b.Bindings[name]; ok {
		return v, true
	}
	if b.Parent != nil {
		return b.Parent.LookupVariable(name)
	}
	return "", false
}

func (b *BindingEnv) AddBinding(key, val string) { b.Bindings[key] = val }

func (b *BindingEnv) AddRule(r *Rule) { b.Rules[r.Name] = r }

func (b *BindingEnv) LookupRuleCurrentScope(name string) *Rule { return b.Rules[name] }

func (b *BindingEnv) LookupRule(name string) *Rule {
	if r, ok := b.Rules[name]; ok {
		return r
	}
	if b.Parent != nil {
		return b.Parent.LookupRule(name)
	}
	return nil
}

// buildScope is the four-environment chain a build statement's rule
// bindings are expanded against: implicit vars ($in/$out and friends),
// the build's own indented bindings, the rule's bindings, and the
// enclosing file scope. Lookup tries each in order and stops at the
// first hit, which is also what lets a build-level binding shadow a
// rule-level one of the same name.
type buildScope struct {
	implicit map[string]string
	build    map[string]string
	rule     *Rule
	file     *BindingEnv
}

func (s *buildScope) LookupVariable(name string) (string, bool) {
	if v, ok := s.implicit[name]; ok {
		return v, true
	}
	if v, ok := s.build[name]; ok {
		return v, true
	}
	if s.rule != nil {
		if ev := s.rule.Binding(name); ev != nil {
			return ev.Evaluate(s), true
		}
	}
	return s.file.LookupVariable(name)
}
