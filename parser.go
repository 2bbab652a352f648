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
	"strconv"
)

// FileReader abstracts reading an include/subninja target off disk, so
// tests can substitute an in-memory filesystem.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// RawBuild is one parsed "build" statement, with every path already
// interned but every indented binding still unevaluated: build bindings
// are expanded later against the full four-environment chain, not at
// parse time.
type RawBuild struct {
	SourcePath string
	SourceLine int

	RuleName string

	Outs         []FileID
	ExplicitOuts int // len(Outs)-ExplicitOuts is implicit.

	Ins         []FileID
	ExplicitIns int
	ImplicitIns int // OrderOnlyIns = len(Ins)-ExplicitIns-ImplicitIns.

	Bindings map[string]*EvalString
}

// Handler receives completed statements as the parser produces them, and
// supplies the "intern a path" callback that turns each completed path
// into an opaque token. Loader is the only non-test implementation.
type Handler interface {
	Intern(path string) (FileID, error)
	OnPool(name string, depth int) error
	OnRule(name string, bindings map[string]*EvalString) error
	OnDefault(paths []FileID) error
	OnBuild(b *RawBuild) error
}

const maxIncludeDepth = 64

// Parser drives a lexer over one or more manifest files, including
// include/subninja recursion, against a single Handler. It holds no
// knowledge of the graph itself.
type Parser struct {
	fr    FileReader
	h     Handler
	depth int
}

func NewParser(fr FileReader, h Handler) *Parser {
	return &Parser{fr: fr, h: h}
}

// Parse consumes filename's contents, evaluating file-scope statements
// against env and notifying h as each statement completes. Callers
// recursing into an include/subninja pass the same env, which is how
// the shared top-level scope is implemented.
func (p *Parser) Parse(filename string, input []byte, env *BindingEnv) error {
	if p.depth >= maxIncludeDepth {
		return fmt.Errorf("%s: include/subninja nested too deeply", filename)
	}
	p.depth++
	defer func() { p.depth-- }()

	l := newLexer(filename, input)
	for {
		tok, err := l.ReadToken()
		if err != nil {
			return err
		}
		switch tok {
		case tokEOF:
			return nil
		case tokNewline:
			continue
		case tokPool:
			err = p.parsePool(l, env)
		case tokRule:
			err = p.parseRule(l, env)
		case tokDefault:
			err = p.parseDefault(l, env)
		case tokBuild:
			err = p.parseBuild(l, env, filename)
		case tokInclude:
			err = p.parseInclude(l, env)
		case tokSubninja:
			err = p.parseSubninja(l, env)
		case tokIdent:
			l.UnreadToken()
			err = p.parseTopLevelBinding(l, env)
		default:
			err = l.errorf("unexpected %s", tok)
		}
		if err != nil {
			return err
		}
	}
}

// parseLet reads a "KEY = VALUE" pair; VALUE is returned unevaluated.
func (p *Parser) parseLet(l *lexer) (string, EvalString, error) {
	key, err := l.ReadIdent()
	if err != nil {
		return "", EvalString{}, err
	}
	if key == "" {
		return "", EvalString{}, l.errorf("expected variable name")
	}
	if err := l.expectToken(tokEquals); err != nil {
		return "", EvalString{}, err
	}
	val, err := l.ReadEvalString(false)
	if err != nil {
		return "", EvalString{}, err
	}
	return key, val, nil
}

func (p *Parser) parsePool(l *lexer, env *BindingEnv) error {
	name, err := l.ReadIdent()
	if err != nil {
		return err
	}
	if name == "" {
		return l.errorf("expected pool name")
	}
	if err := l.expectToken(tokNewline); err != nil {
		return err
	}

	depth := -1
	for {
		isIndent, err := l.PeekToken(tokIndent)
		if err != nil {
			return err
		}
		if !isIndent {
			break
		}
		key, val, err := p.parseLet(l)
		if err != nil {
			return err
		}
		if key != "depth" {
			return l.errorf("unexpected variable %q", key)
		}
		n, err := strconv.Atoi(val.Evaluate(env))
		if err != nil || n < 0 {
			return l.errorf("invalid pool depth")
		}
		depth = n
	}
	if depth < 0 {
		return l.errorf("expected 'depth =' line")
	}
	return p.h.OnPool(name, depth)
}

func (p *Parser) parseRule(l *lexer, env *BindingEnv) error {
	name, err := l.ReadIdent()
	if err != nil {
		return err
	}
	if name == "" {
		return l.errorf("expected rule name")
	}
	if err := l.expectToken(tokNewline); err != nil {
		return err
	}

	bindings := map[string]*EvalString{}
	for {
		isIndent, err := l.PeekToken(tokIndent)
		if err != nil {
			return err
		}
		if !isIndent {
			break
		}
		key, val, err := p.parseLet(l)
		if err != nil {
			return err
		}
		if !IsReservedBinding(key) {
			return l.errorf("unexpected variable %q", key)
		}
		v := val
		bindings[key] = &v
	}

	if cmd, ok := bindings["command"]; !ok || cmd.Empty() {
		return l.errorf("expected 'command =' line")
	}
	_, hasRsp := bindings["rspfile"]
	_, hasRspContent := bindings["rspfile_content"]
	if hasRsp != hasRspContent {
		return l.errorf("rspfile and rspfile_content need to be both specified")
	}
	return p.h.OnRule(name, bindings)
}

func (p *Parser) parseDefault(l *lexer, env *BindingEnv) error {
	var paths []FileID
	for {
		ev, err := l.ReadEvalString(true)
		if err != nil {
			return err
		}
		if ev.Empty() {
			break
		}
		path := ev.Evaluate(env)
		if path == "" {
			return l.errorf("empty path")
		}
		id, err := p.h.Intern(path)
		if err != nil {
			return l.errorf("%s", err)
		}
		paths = append(paths, id)
	}
	if len(paths) == 0 {
		return l.errorf("expected target name")
	}
	if err := l.expectToken(tokNewline); err != nil {
		return err
	}
	return p.h.OnDefault(paths)
}

func (p *Parser) parseInclude(l *lexer, env *BindingEnv) error {
	ev, err := l.ReadEvalString(true)
	if err != nil {
		return err
	}
	if ev.Empty() {
		return l.errorf("expected path")
	}
	if err := l.expectToken(tokNewline); err != nil {
		return err
	}
	path := ev.Evaluate(env)
	input, err := p.fr.ReadFile(path)
	if err != nil {
		return fmt.Errorf("loading %q: %w", path, err)
	}
	return p.Parse(path, input, env)
}

// parseSubninja treats "subninja" identically to "include". A true
// scoped include is a known limitation.
func (p *Parser) parseSubninja(l *lexer, env *BindingEnv) error {
	return p.parseInclude(l, env)
}

func (p *Parser) parseTopLevelBinding(l *lexer, env *BindingEnv) error {
	key, val, err := p.parseLet(l)
	if err != nil {
		return err
	}
	value := val.Evaluate(env)
	if key == "ninja_required_version" {
		if err := checkNinjaVersion(value); err != nil {
			return err
		}
	}
	env.AddBinding(key, value)
	return nil
}

func (p *Parser) parseBuild(l *lexer, env *BindingEnv, filename string) error {
	line := l.line()

	var outs []EvalString
	for {
		ev, err := l.ReadEvalString(true)
		if err != nil {
			return err
		}
		if ev.Empty() {
			break
		}
		outs = append(outs, ev)
	}
	if len(outs) == 0 {
		return l.errorf("expected path")
	}

	implicitOuts := 0
	hasPipe, err := l.PeekToken(tokPipe)
	if err != nil {
		return err
	}
	if hasPipe {
		for {
			ev, err := l.ReadEvalString(true)
			if err != nil {
				return err
			}
			if ev.Empty() {
				break
			}
			outs = append(outs, ev)
			implicitOuts++
		}
	}

	if err := l.expectToken(tokColon); err != nil {
		return err
	}

	ruleName, err := l.ReadIdent()
	if err != nil {
		return err
	}
	if ruleName == "" {
		return l.errorf("expected build command name")
	}

	var ins []EvalString
	for {
		ev, err := l.ReadEvalString(true)
		if err != nil {
			return err
		}
		if ev.Empty() {
			break
		}
		ins = append(ins, ev)
	}

	implicitIns := 0
	hasPipe, err = l.PeekToken(tokPipe)
	if err != nil {
		return err
	}
	if hasPipe {
		for {
			ev, err := l.ReadEvalString(true)
			if err != nil {
				return err
			}
			if ev.Empty() {
				break
			}
			ins = append(ins, ev)
			implicitIns++
		}
	}

	orderOnly := 0
	hasPipe2, err := l.PeekToken(tokPipe2)
	if err != nil {
		return err
	}
	if hasPipe2 {
		for {
			ev, err := l.ReadEvalString(true)
			if err != nil {
				return err
			}
			if ev.Empty() {
				break
			}
			ins = append(ins, ev)
			orderOnly++
		}
	}

	if err := l.expectToken(tokNewline); err != nil {
		return err
	}

	bindings := map[string]*EvalString{}
	for {
		isIndent, err := l.PeekToken(tokIndent)
		if err != nil {
			return err
		}
		if !isIndent {
			break
		}
		key, val, err := p.parseLet(l)
		if err != nil {
			return err
		}
		v := val
		bindings[key] = &v
	}

	explicitOuts := len(outs) - implicitOuts
	outIDs := make([]FileID, 0, len(outs))
	for _, ev := range outs {
		path := ev.Evaluate(env)
		if path == "" {
			return l.errorf("empty path")
		}
		id, err := p.h.Intern(path)
		if err != nil {
			return l.errorf("%s", err)
		}
		outIDs = append(outIDs, id)
	}

	explicitIns := len(ins) - implicitIns - orderOnly
	inIDs := make([]FileID, 0, len(ins))
	for _, ev := range ins {
		path := ev.Evaluate(env)
		if path == "" {
			return l.errorf("empty path")
		}
		id, err := p.h.Intern(path)
		if err != nil {
			return l.errorf("%s", err)
		}
		inIDs = append(inIDs, id)
	}

	return p.h.OnBuild(&RawBuild{
		SourcePath:   filename,
		SourceLine:   line,
		RuleName:     ruleName,
		Outs:         outIDs,
		ExplicitOuts: explicitOuts,
		Ins:          inIDs,
		ExplicitIns:  explicitIns,
		ImplicitIns:  implicitIns,
		Bindings:     bindings,
	})
}
