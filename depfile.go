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

// ParseDepfile parses Makefile-style dependency output such as a
// compiler's -M/-MMD flags emit: "target: dep dep dep\n", with '\'
// line-continuation and backslash-escaped spaces/hashes.
//
// Only the dependency paths are returned; the task runner already knows
// which build the depfile belongs to, so the target name(s) a depfile
// restates are discarded.
func ParseDepfile(content []byte) []string {
	var deps []string
	var cur []byte
	haveColon := false
	i, n := 0, len(content)

	// Tokens before the line's colon are targets and get discarded;
	// everything after it is a dependency.
	flushTok := func() {
		if len(cur) > 0 {
			if haveColon {
				deps = append(deps, string(cur))
			}
			cur = cur[:0]
		}
	}
	flushLine := func() {
		flushTok()
		haveColon = false
	}

	for i < n {
		c := content[i]
		switch {
		case c == 0:
			i++
		case c == '\\' && i+1 < n && content[i+1] == '\n':
			flushTok()
			i += 2
		case c == '\\' && i+2 < n && content[i+1] == '\r' && content[i+2] == '\n':
			flushTok()
			i += 3
		case c == '\\' && i+1 < n && (content[i+1] == ' ' || content[i+1] == '#'):
			cur = append(cur, content[i+1])
			i += 2
		case c == ':' && !haveColon:
			flushTok()
			haveColon = true
			i++
		case c == '\n':
			flushLine()
			i++
		case c == ' ' || c == '\t' || c == '\r':
			flushTok()
			i++
		default:
			cur = append(cur, c)
			i++
		}
	}
	flushLine()

	return deps
}
