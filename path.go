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

// Package n2 implements a Ninja-manifest-compatible build engine: parsing,
// graph construction, dirtiness checking and scheduling.
package n2

import "fmt"

// maxPathComponents bounds the component stack used by
// CanonicalizePath; deeper paths are rejected.
const maxPathComponents = 60

// CanonicalizePath simplifies a slash-separated path lexically: it removes
// "." components, collapses repeated slashes, and resolves ".." against
// components kept so far. It never touches the filesystem. A ".." that
// would ascend above what's been kept is preserved literally, since paths
// are allowed to walk above the build root.
//
// canon(canon(p)) == canon(p) for every input p.
func CanonicalizePath(path string) (string, error) {
	if len(path) == 0 {
		return path, nil
	}
	buf := make([]byte, 0, len(path))
	components := make([]int, 0, maxPathComponents)

	src := 0
	n := len(path)

	if isPathSeparator(path[src]) {
		// Two or more leading slashes keep exactly two, as a network path
		// ("//host/share") needs; a single leading slash stays single.
		if n > 1 && isPathSeparator(path[src+1]) {
			buf = append(buf, '/', '/')
			src += 2
		} else {
			buf = append(buf, '/')
			src++
		}
	}

	for src < n {
		if path[src] == '.' {
			if src+1 == n || isPathSeparator(path[src+1]) {
				// "." component: drop it (and the separator after it).
				src += 2
				continue
			}
			if path[src+1] == '.' && (src+2 == n || isPathSeparator(path[src+2])) {
				// ".." component: pop the last kept component if there is one,
				// otherwise keep the ".." literally (ascending above root).
				if len(components) > 0 {
					buf = buf[:components[len(components)-1]]
					components = components[:len(components)-1]
					src += 3
				} else {
					if src+2 == n {
						buf = append(buf, path[src], path[src+1])
					} else {
						buf = append(buf, path[src], path[src+1], '/')
					}
					src += 3
				}
				continue
			}
		}

		if isPathSeparator(path[src]) {
			src++
			continue
		}

		if len(components) == maxPathComponents {
			return "", fmt.Errorf("path has too many components: %s", path)
		}
		components = append(components, len(buf))
		for src < n && !isPathSeparator(path[src]) {
			buf = append(buf, path[src])
			src++
		}
		if src < n {
			buf = append(buf, '/')
			src++
		}
	}

	if len(buf) == 0 {
		return ".", nil
	}
	return string(buf), nil
}

func isPathSeparator(c byte) bool {
	return c == '/'
}
