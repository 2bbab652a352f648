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

// statStatus distinguishes "haven't looked yet" from "looked, and it's
// gone" — both are meaningfully different from a real timestamp of 0.
type statStatus int

const (
	statUnknown statStatus = iota
	statMissing
	statStamped
)

type fileStatus struct {
	status statStatus
	mtime  MTime
}

// FileState is a dense file-id -> mtime-status cache. During dirtiness
// checking the scheduler calls Get before Restat and skips the syscall
// on a hit; a finished task's outputs are the exception and get
// restat'ed unconditionally.
type FileState struct {
	disk  DiskInterface
	graph *Graph
	rows  []fileStatus
}

func NewFileState(disk DiskInterface, graph *Graph) *FileState {
	return &FileState{disk: disk, graph: graph}
}

func (f *FileState) grow() {
	for len(f.rows) < f.graph.FileCount() {
		f.rows = append(f.rows, fileStatus{})
	}
}

// Get returns the cached status for id, if any has been recorded yet.
func (f *FileState) Get(id FileID) (MTime, bool, bool) {
	f.grow()
	r := f.rows[id]
	switch r.status {
	case statMissing:
		return 0, false, true
	case statStamped:
		return r.mtime, true, true
	default:
		return 0, false, false
	}
}

// Restat performs the filesystem lookup for id and records the result,
// overwriting any earlier entry. The scheduler stats a file at most once
// per build for dirtiness checking (it checks Get first and skips the
// syscall on a hit), with one deliberate exception: after a task runs,
// its outputs are restat'ed unconditionally, since the command just
// changed them and the pre-run entry is stale.
//
// A stat of 0 is treated as "missing" (DiskInterface.Stat's contract),
// which means a file that genuinely carries a Unix-epoch mtime reads as
// absent; real filesystems never hand back that stamp for content
// written by a build action, so this is an accepted, documented
// approximation rather than a distinct corner case to special-case.
func (f *FileState) Restat(id FileID) (MTime, bool, error) {
	f.grow()
	path := f.graph.File(id).Path
	mtime, err := f.disk.Stat(path)
	if err != nil {
		return 0, false, err
	}
	if mtime == 0 {
		f.rows[id] = fileStatus{status: statMissing}
		return 0, false, nil
	}
	f.rows[id] = fileStatus{status: statStamped, mtime: mtime}
	return mtime, true, nil
}
