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

// Pool is a named capacity bucket bounding how many builds may run
// concurrently within it. Depth 0 means unbounded.
type Pool struct {
	Name    string
	Depth   int
	running int
}

// NewPool constructs a named pool of the given depth.
func NewPool(name string, depth int) *Pool {
	return &Pool{Name: name, Depth: depth}
}

// HasCapacity reports whether another build may start in this pool.
func (p *Pool) HasCapacity() bool {
	return p.Depth == 0 || p.running < p.Depth
}

func (p *Pool) acquire() { p.running++ }
func (p *Pool) release() { p.running-- }

// DefaultPoolName/ConsolePoolName name the two pools that always exist,
// even with no "pool" statement in the manifest: the unbounded default
// pool, and a depth-1 "console" pool builds opt into via pool=console.
const (
	DefaultPoolName = ""
	ConsolePoolName = "console"
)

func newBuiltinPools() map[string]*Pool {
	return map[string]*Pool{
		DefaultPoolName: NewPool(DefaultPoolName, 0),
		ConsolePoolName: NewPool(ConsolePoolName, 1),
	}
}
