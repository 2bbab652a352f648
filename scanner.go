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
)

// scanner is a cursor over a manifest's byte buffer: peek/read/back move
// an offset, and slice copies a byte range of the buffer out as a string.
//
// A zero sentinel byte is appended to the input so peek at EOF is always
// safe without a bounds check.
type scanner struct {
	filename string
	input    []byte
	ofs      int
	line     int
}

func newScanner(filename string, input []byte) *scanner {
	buf := make([]byte, len(input)+1)
	copy(buf, input)
	// buf[len(input)] is already the zero sentinel.
	return &scanner{filename: filename, input: buf, line: 1}
}

// peek returns the byte at the current offset without advancing.
func (s *scanner) peek() byte {
	return s.input[s.ofs]
}

// read returns the current byte and advances past it.
func (s *scanner) read() byte {
	c := s.input[s.ofs]
	s.ofs++
	if c == '\n' {
		s.line++
	}
	return c
}

// back retreats one byte, undoing the matching read.
func (s *scanner) back() {
	s.ofs--
	if s.input[s.ofs] == '\n' {
		s.line--
	}
}

// skipSpaces consumes ASCII spaces (not tabs, not newlines).
func (s *scanner) skipSpaces() {
	for s.peek() == ' ' {
		s.read()
	}
}

// expect consumes c if it's next, otherwise returns a formatted error.
func (s *scanner) expect(c byte) error {
	if s.peek() != c {
		return s.errorf("expected '%c'", c)
	}
	s.read()
	return nil
}

// slice returns input[start:end] as a string; start/end are byte offsets
// previously obtained from this scanner.
func (s *scanner) slice(start, end int) string {
	return string(s.input[start:end])
}

func (s *scanner) atEOF() bool {
	return s.peek() == 0
}

// errorf builds a parse error with file/line/column context and a
// 40-column caret window.
func (s *scanner) errorf(format string, args ...interface{}) error {
	return s.errorAt(s.ofs, format, args...)
}

func (s *scanner) errorAt(ofs int, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)

	lineStart := 0
	line := 1
	for p := 0; p < ofs && p < len(s.input); p++ {
		if s.input[p] == '\n' {
			line++
			lineStart = p + 1
		}
	}
	col := ofs - lineStart

	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d: parse error: %s\n", s.filename, line, msg)

	const window = 40
	if col >= 0 && col < window {
		length := 0
		for length < window {
			c := byte(0)
			if lineStart+length < len(s.input) {
				c = s.input[lineStart+length]
			}
			if c == 0 || c == '\n' {
				break
			}
			length++
		}
		b.WriteString(s.slice(lineStart, lineStart+length))
		b.WriteByte('\n')
		b.WriteString(strings.Repeat(" ", col))
		b.WriteByte('^')
	}
	return &ParseError{msg: b.String()}
}

// ParseError is returned for manifest syntax violations; its Error()
// already carries file/line/column context and a caret window.
type ParseError struct {
	msg string
}

func (e *ParseError) Error() string { return e.msg }
