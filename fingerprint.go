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
	"encoding/binary"
	"fmt"
	"hash/fnv"
)

// unitSeparator delimits each per-file record and each group within a
// Fingerprint's hash input.
const unitSeparator = 0x1F

// Fingerprint is the 64-bit summary of a build's dirtying inputs,
// discovered inputs, command line, response file and outputs at the time
// it last ran. Equality is the only operation defined on it; the value
// itself is an implementation detail of the FNV-64a hash.
type Fingerprint uint64

// fingerprintOf computes a Build's Fingerprint against the given
// FileState. Every referenced file must already carry a non-missing
// stamp; calling this with a missing file is a programming error, since
// the scheduler only fingerprints builds it has just finished stat-ing.
func fingerprintOf(g *Graph, fs *FileState, b *Build) (Fingerprint, error) {
	h := fnv.New64a()

	writeFile := func(id FileID) error {
		mtime, ok, _ := fs.Get(id)
		if !ok {
			return fmt.Errorf("fingerprint: file %q has no stamp", g.File(id).Path)
		}
		h.Write([]byte(g.File(id).Path))
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(mtime))
		h.Write(buf[:])
		h.Write([]byte{unitSeparator})
		return nil
	}

	for _, id := range b.DirtyingInputs() {
		if err := writeFile(id); err != nil {
			return 0, err
		}
	}
	h.Write([]byte{unitSeparator})

	for _, id := range b.DiscoveredIns {
		if err := writeFile(id); err != nil {
			return 0, err
		}
	}
	h.Write([]byte{unitSeparator})

	h.Write([]byte(b.Cmdline))
	h.Write([]byte{unitSeparator})

	if b.Rspfile != nil {
		h.Write([]byte(b.Rspfile.Path))
		h.Write([]byte(b.Rspfile.Content))
	} else {
		// Tombstone: a byte sequence no real rspfile path/content pair can
		// produce, since real paths never contain NUL.
		h.Write([]byte{0})
	}
	h.Write([]byte{unitSeparator})

	for _, id := range b.Outs {
		if err := writeFile(id); err != nil {
			return 0, err
		}
	}

	return Fingerprint(h.Sum64()), nil
}
