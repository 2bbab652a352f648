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

// Token identifies a lexical category returned by the lexer's ReadToken.
type Token int

const (
	tokError Token = iota
	tokBuild
	tokColon
	tokDefault
	tokEquals
	tokIdent
	tokInclude
	tokIndent
	tokNewline
	tokPipe
	tokPipe2
	tokPool
	tokRule
	tokSubninja
	tokEOF
)

func (t Token) String() string {
	switch t {
	case tokError:
		return "lexing error"
	case tokBuild:
		return "'build'"
	case tokColon:
		return "':'"
	case tokDefault:
		return "'default'"
	case tokEquals:
		return "'='"
	case tokIdent:
		return "identifier"
	case tokInclude:
		return "'include'"
	case tokIndent:
		return "indent"
	case tokNewline:
		return "newline"
	case tokPipe2:
		return "'||'"
	case tokPipe:
		return "'|'"
	case tokPool:
		return "'pool'"
	case tokRule:
		return "'rule'"
	case tokSubninja:
		return "'subninja'"
	case tokEOF:
		return "eof"
	}
	return "unknown"
}

// keywords maps identifier text seen at the start of a line to its
// keyword token. Any other leading identifier at column 0 is a top-level
// variable binding (handled by the parser, not the lexer).
var keywords = map[string]Token{
	"build":    tokBuild,
	"default":  tokDefault,
	"include":  tokInclude,
	"pool":     tokPool,
	"rule":     tokRule,
	"subninja": tokSubninja,
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '_' || c == '-' || c == '.' || c == '/' || c == ',' || c == '+' || c == '@'
}

// lexer tokenizes Ninja-flavored syntax on top of a byte scanner. A
// statement line at column 0 starts with either a keyword, an identifier
// (a file-scope binding), or is blank/comment. Indented "  key = value"
// lines inside a rule/pool/build block come back as tokIndent, with the
// key/value read separately by ReadLet.
type lexer struct {
	s         *scanner
	atLineStart bool

	// State at the start of the last ReadToken, so UnreadToken can
	// restore the cursor exactly (including the line counter when the
	// unread token was a newline).
	lastStart       int
	lastLine        int
	lastAtLineStart bool
}

func newLexer(filename string, input []byte) *lexer {
	return &lexer{s: newScanner(filename, input), atLineStart: true}
}

func (l *lexer) errorf(format string, args ...interface{}) error {
	return l.s.errorAt(l.lastStart, format, args...)
}

// line is the scanner's current 1-based line. parseBuild calls it right
// after the 'build' keyword, so it is the line the statement starts on,
// remembered past the point where the lexer has moved on.
func (l *lexer) line() int { return l.s.line }

// ReadToken consumes and returns the next token.
func (l *lexer) ReadToken() (Token, error) {
	l.skipBlankLinesAndComments()
	l.lastStart = l.s.ofs
	l.lastLine = l.s.line
	l.lastAtLineStart = l.atLineStart

	if l.s.atEOF() {
		return tokEOF, nil
	}

	if l.atLineStart {
		l.atLineStart = false
		if l.s.peek() == ' ' {
			l.s.skipSpaces()
			if l.s.peek() == '\n' {
				l.s.read()
				l.atLineStart = true
				return tokNewline, nil
			}
			if l.s.peek() == '#' {
				l.skipComment()
				return l.ReadToken()
			}
			return tokIndent, nil
		}
	}

	c := l.s.peek()
	switch {
	case c == '\n':
		l.s.read()
		l.atLineStart = true
		return tokNewline, nil
	case c == ':':
		l.s.read()
		return tokColon, nil
	case c == '=':
		l.s.read()
		l.s.skipSpaces()
		return tokEquals, nil
	case c == '|':
		l.s.read()
		if l.s.peek() == '|' {
			l.s.read()
			return tokPipe2, nil
		}
		return tokPipe, nil
	case isIdentByte(c):
		start := l.s.ofs
		for isIdentByte(l.s.peek()) {
			l.s.read()
		}
		word := l.s.slice(start, l.s.ofs)
		l.s.skipSpaces()
		if kw, ok := keywords[word]; ok {
			return kw, nil
		}
		return tokIdent, nil
	default:
		l.s.read()
		return tokError, l.errorf("unexpected character")
	}
}

// UnreadToken rewinds the scanner to just before the last token.
func (l *lexer) UnreadToken() {
	l.s.ofs = l.lastStart
	l.s.line = l.lastLine
	l.atLineStart = l.lastAtLineStart
}

// PeekToken reads a token and, if it matches want, consumes it; otherwise
// it's pushed back.
func (l *lexer) PeekToken(want Token) (bool, error) {
	t, err := l.ReadToken()
	if err != nil {
		return false, err
	}
	if t == want {
		return true, nil
	}
	l.UnreadToken()
	return false, nil
}

// expectToken requires the next token to be want, producing a
// "expected X, got Y" error otherwise.
func (l *lexer) expectToken(want Token) error {
	t, err := l.ReadToken()
	if err != nil {
		return err
	}
	if t != want {
		hint := ""
		if want == tokColon {
			hint = " ($ also escapes ':')"
		}
		return l.errorf("expected %s, got %s%s", want, t, hint)
	}
	return nil
}

// ReadIdent reads a simple identifier (rule/pool/variable name).
func (l *lexer) ReadIdent() (string, error) {
	l.s.skipSpaces()
	l.lastStart = l.s.ofs
	start := l.s.ofs
	for isIdentByte(l.s.peek()) {
		l.s.read()
	}
	if l.s.ofs == start {
		return "", nil
	}
	name := l.s.slice(start, l.s.ofs)
	l.s.skipSpaces()
	return name, nil
}

// skipBlankLinesAndComments eats '#' comment lines that appear while
// positioned at the start of a line. Blank lines are not skipped here:
// ReadToken returns each one as a tokNewline.
func (l *lexer) skipBlankLinesAndComments() {
	for l.atLineStart {
		switch l.s.peek() {
		case '#':
			l.skipComment()
		default:
			return
		}
	}
}

func (l *lexer) skipComment() {
	for !l.s.atEOF() && l.s.peek() != '\n' {
		l.s.read()
	}
	if l.s.peek() == '\n' {
		l.s.read()
	}
}

// ReadEvalString reads a $-escaped string: a path (isPath=true) or the
// right-hand side of a "var = value" binding (isPath=false). Paths stop
// at an unescaped space, ':', '|' or newline without consuming it;
// non-path strings run to the end of the line.
func (l *lexer) ReadEvalString(isPath bool) (EvalString, error) {
	var eval EvalString
	if isPath {
		l.s.skipSpaces()
	}
	for {
		start := l.s.ofs
		c := l.s.peek()
		switch {
		case c == 0:
			return eval, l.errorf("unexpected EOF")
		case c == '\n':
			if isPath {
				return eval, nil
			}
			l.s.read()
			l.atLineStart = true
			return eval, nil
		case isPath && (c == ' ' || c == ':' || c == '|'):
			return eval, nil
		case c == '$':
			l.s.read()
			if err := l.readEscape(&eval); err != nil {
				return eval, err
			}
		default:
			for {
				c := l.s.peek()
				if c == 0 || c == '\n' || c == '$' {
					break
				}
				if isPath && (c == ' ' || c == ':' || c == '|') {
					break
				}
				l.s.read()
			}
			eval.AddText(l.s.slice(start, l.s.ofs))
		}
	}
}

// readEscape handles everything that can follow a '$': a bare '$', a
// line continuation, a literal space or colon, or a $name/${name}
// variable reference.
func (l *lexer) readEscape(eval *EvalString) error {
	c := l.s.peek()
	switch {
	case c == '\n':
		l.s.read()
		l.s.skipSpaces()
		return nil
	case c == '\r':
		l.s.read()
		if l.s.peek() != '\n' {
			return l.errorf("bad $-escape (literal $ must be written as $$)")
		}
		l.s.read()
		l.s.skipSpaces()
		return nil
	case c == ' ':
		l.s.read()
		eval.AddText(" ")
		return nil
	case c == '$':
		l.s.read()
		eval.AddText("$")
		return nil
	case c == ':':
		l.s.read()
		eval.AddText(":")
		return nil
	case c == '{':
		l.s.read()
		start := l.s.ofs
		for isIdentByte(l.s.peek()) {
			l.s.read()
		}
		name := l.s.slice(start, l.s.ofs)
		if name == "" || l.s.peek() != '}' {
			return l.errorf("bad $-escape (literal $ must be written as $$)")
		}
		l.s.read()
		eval.AddVariable(name)
		return nil
	case isIdentByte(c):
		start := l.s.ofs
		for isIdentByte(l.s.peek()) {
			l.s.read()
		}
		eval.AddVariable(l.s.slice(start, l.s.ofs))
		return nil
	default:
		return l.errorf("bad $-escape (literal $ must be written as $$)")
	}
}
