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
	"os"
	"path/filepath"
)

// MTime is a filesystem modification time expressed as nanoseconds since
// the Unix epoch. Ninja-compatible comparisons only care about ordering,
// so the exact unit is an implementation detail.
type MTime int64

// DiskInterface is the filesystem boundary the scheduler stats through.
// It exists so tests can substitute an in-memory filesystem without
// touching a real disk.
type DiskInterface interface {
	// Stat returns (0, nil) if path doesn't exist, the mtime and nil on
	// success, or a non-nil error for any other failure.
	Stat(path string) (MTime, error)
	MakeDirs(path string) error
	WriteFile(path string, content []byte) error
	ReadFile(path string) ([]byte, error)
	RemoveFile(path string) error
}

// realDisk implements DiskInterface against the host filesystem.
type realDisk struct{}

func NewRealDisk() DiskInterface { return realDisk{} }

func (realDisk) Stat(path string) (MTime, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return MTime(fi.ModTime().UnixNano()), nil
}

// MakeDirs creates every missing parent directory of path (a file path,
// not a directory path itself).
func (realDisk) MakeDirs(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "/" {
		return nil
	}
	return os.MkdirAll(dir, 0o777)
}

func (realDisk) WriteFile(path string, content []byte) error {
	return os.WriteFile(path, content, 0o666)
}

func (realDisk) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (realDisk) RemoveFile(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
