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

func TestLexerReadVarValue(t *testing.T) {
	l := newLexer("test.ninja", []byte("plain text $var ${x}\n"))
	eval, err := l.ReadEvalString(false)
	if err != nil {
		t.Fatalf("ReadEvalString: %v", err)
	}
	env := immediateEnv{"var": "V", "x": "X"}
	if got, want := eval.Evaluate(env), "plain text V X"; got != want {
		t.Errorf("Evaluate() = %q, want %q", got, want)
	}
}

func TestLexerReadEvalStringEscapes(t *testing.T) {
	l := newLexer("test.ninja", []byte("$ $$ab c$: cde\n"))
	eval, err := l.ReadEvalString(false)
	if err != nil {
		t.Fatalf("ReadEvalString: %v", err)
	}
	if got, want := eval.Evaluate(immediateEnv{}), " $ab c: cde"; got != want {
		t.Errorf("Evaluate() = %q, want %q", got, want)
	}
}

func TestLexerReadEvalStringLineContinuation(t *testing.T) {
	l := newLexer("test.ninja", []byte("abc $\n   def\n"))
	eval, err := l.ReadEvalString(false)
	if err != nil {
		t.Fatalf("ReadEvalString: %v", err)
	}
	if got, want := eval.Evaluate(immediateEnv{}), "abc def"; got != want {
		t.Errorf("Evaluate() = %q, want %q", got, want)
	}
}

func TestLexerReadIdentSequence(t *testing.T) {
	l := newLexer("test.ninja", []byte("foo baR baz_123 foo-bar\n"))
	want := []string{"foo", "baR", "baz_123", "foo-bar"}
	for _, w := range want {
		got, err := l.ReadIdent()
		if err != nil {
			t.Fatalf("ReadIdent: %v", err)
		}
		if got != w {
			t.Errorf("ReadIdent() = %q, want %q", got, w)
		}
	}
}

func TestLexerReadTokenKeywords(t *testing.T) {
	l := newLexer("test.ninja", []byte("build\nrule\npool\ndefault\ninclude\nsubninja\n"))
	want := []Token{
		tokBuild, tokNewline,
		tokRule, tokNewline,
		tokPool, tokNewline,
		tokDefault, tokNewline,
		tokInclude, tokNewline,
		tokSubninja, tokNewline,
		tokEOF,
	}
	for i, w := range want {
		got, err := l.ReadToken()
		if err != nil {
			t.Fatalf("ReadToken #%d: %v", i, err)
		}
		if got != w {
			t.Errorf("ReadToken #%d = %s, want %s", i, got, w)
		}
	}
}

// TestLexerIdentThenColon mirrors parseBuild's call sequence after
// reading the rule name: ReadIdent (which trims its own trailing
// spaces) followed directly by a raw colon token read.
func TestLexerIdentThenColon(t *testing.T) {
	l := newLexer("test.ninja", []byte("cc :\n"))
	ident, err := l.ReadIdent()
	if err != nil || ident != "cc" {
		t.Fatalf("ReadIdent = %q, %v", ident, err)
	}
	if err := l.expectToken(tokColon); err != nil {
		t.Fatalf("expectToken(colon): %v", err)
	}
}

// TestLexerPathThenPipe mirrors parseBuild's actual pipe-detection
// pattern: repeated ReadEvalString(true) calls (each of which skips its
// own leading spaces) until one comes back Empty, at which point the
// cursor sits directly on the unconsumed '|' token.
func TestLexerPathThenPipe(t *testing.T) {
	l := newLexer("test.ninja", []byte("out | impl\n"))
	ev, err := l.ReadEvalString(true)
	if err != nil || ev.Evaluate(immediateEnv{}) != "out" {
		t.Fatalf("ReadEvalString = %v, %v", ev, err)
	}
	ev, err = l.ReadEvalString(true)
	if err != nil || !ev.Empty() {
		t.Fatalf("expected empty path at '|', got %v, %v", ev, err)
	}
	hasPipe, err := l.PeekToken(tokPipe)
	if err != nil || !hasPipe {
		t.Fatalf("PeekToken(pipe) = %v, %v", hasPipe, err)
	}
	ev, err = l.ReadEvalString(true)
	if err != nil || ev.Evaluate(immediateEnv{}) != "impl" {
		t.Fatalf("ReadEvalString = %v, %v", ev, err)
	}
}

func TestLexerUnreadToken(t *testing.T) {
	l := newLexer("test.ninja", []byte("rule\n"))
	tok, err := l.ReadToken()
	if err != nil || tok != tokRule {
		t.Fatalf("ReadToken = %v, %v", tok, err)
	}
	l.UnreadToken()
	tok, err = l.ReadToken()
	if err != nil || tok != tokRule {
		t.Fatalf("ReadToken after UnreadToken = %v, %v", tok, err)
	}
}

// TestLexerUnreadNewlineKeepsLineCount guards against the line counter
// drifting when a newline token is peeked at and pushed back, which
// parseBuild does twice per statement while probing for | and ||.
func TestLexerUnreadNewlineKeepsLineCount(t *testing.T) {
	l := newLexer("test.ninja", []byte("\nx\n"))
	tok, err := l.ReadToken()
	if err != nil || tok != tokNewline {
		t.Fatalf("ReadToken = %v, %v", tok, err)
	}
	l.UnreadToken()
	if l.s.line != 1 {
		t.Fatalf("line after unread = %d, want 1", l.s.line)
	}
	tok, err = l.ReadToken()
	if err != nil || tok != tokNewline {
		t.Fatalf("re-read ReadToken = %v, %v", tok, err)
	}
	if l.s.line != 2 {
		t.Errorf("line after re-read = %d, want 2", l.s.line)
	}
}

func TestLexerPathStopsAtSpaceColonPipe(t *testing.T) {
	l := newLexer("test.ninja", []byte("foo.c : bar\n"))
	eval, err := l.ReadEvalString(true)
	if err != nil {
		t.Fatalf("ReadEvalString(path): %v", err)
	}
	if got := eval.Evaluate(immediateEnv{}); got != "foo.c" {
		t.Errorf("path = %q, want %q", got, "foo.c")
	}
}
