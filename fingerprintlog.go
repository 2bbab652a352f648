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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// fingerprintLogMagic/Version tag the on-disk format of the append-only
// fingerprint log.
const (
	fingerprintLogMagic   = "# n2fingerprintlog\n"
	fingerprintLogVersion = uint32(1)
)

// fingerprintRecord is what the log remembers per build: the hash it
// last matched, and the discovered-dep paths seen on that run. Carrying
// discovered paths alongside the hash is what lets a build with
// depfile-discovered headers skip a rerun instead of always recomputing
// against an empty discovered-ins list on every fresh process.
type fingerprintRecord struct {
	hash       Fingerprint
	discovered []string
}

// FingerprintMap is the in-memory replay of the persisted log: a
// build-id's "last known hash" keyed by its output paths (so it survives
// across builds where build ids are reassigned by a reordered manifest).
type FingerprintMap struct {
	byOutputKey map[string]fingerprintRecord
}

func newFingerprintMap() *FingerprintMap {
	return &FingerprintMap{byOutputKey: map[string]fingerprintRecord{}}
}

func outputKey(g *Graph, b *Build) string {
	key := ""
	for _, id := range b.Outs {
		key += g.File(id).Path + "\x00"
	}
	return key
}

// Set records the last-known hash and discovered-dep paths for a build.
func (m *FingerprintMap) Set(g *Graph, b *Build, hash Fingerprint) {
	discovered := make([]string, len(b.DiscoveredIns))
	for i, id := range b.DiscoveredIns {
		discovered[i] = g.File(id).Path
	}
	m.byOutputKey[outputKey(g, b)] = fingerprintRecord{hash: hash, discovered: discovered}
}

// Changed reports whether hash differs from the stored value. A build
// with no prior record counts as changed.
func (m *FingerprintMap) Changed(g *Graph, b *Build, hash Fingerprint) bool {
	prev, ok := m.byOutputKey[outputKey(g, b)]
	return !ok || prev.hash != hash
}

// DiscoveredPaths returns the discovered-dep paths recorded the last
// time this build's fingerprint was written, if any. The scheduler uses
// this to repopulate Build.DiscoveredIns before the first dirtiness
// check of a fresh process, since Build itself carries no state across
// invocations.
func (m *FingerprintMap) DiscoveredPaths(g *Graph, b *Build) []string {
	return m.byOutputKey[outputKey(g, b)].discovered
}

// FingerprintLog is the append-only persistent record mapping each
// build's outputs to the hash observed when it last ran. The on-disk
// format is a private implementation choice; only that replay
// reconstructs FingerprintMap is contractual.
type FingerprintLog struct {
	f *os.File
	w *bufio.Writer
	m *FingerprintMap
}

// OpenFingerprintLog opens (creating if absent) the log at path, replays
// it into a fresh FingerprintMap, and returns a writer appending further
// records. Replay keys every record by its output path strings and does
// not touch g: no path from the log is interned here. Discovered-dep
// paths come back as strings from FingerprintMap.DiscoveredPaths.
func OpenFingerprintLog(path string, g *Graph) (*FingerprintLog, *FingerprintMap, error) {
	m := newFingerprintMap()

	if existing, err := os.Open(path); err == nil {
		if err := replayFingerprintLog(existing, m); err != nil {
			existing.Close()
			return nil, nil, fmt.Errorf("fingerprint log %s: %w", path, err)
		}
		existing.Close()
	} else if !os.IsNotExist(err) {
		return nil, nil, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return nil, nil, err
	}
	if fi, err := f.Stat(); err == nil && fi.Size() == 0 {
		if _, err := f.WriteString(fingerprintLogMagic); err != nil {
			f.Close()
			return nil, nil, err
		}
		var verBuf [4]byte
		binary.LittleEndian.PutUint32(verBuf[:], fingerprintLogVersion)
		if _, err := f.Write(verBuf[:]); err != nil {
			f.Close()
			return nil, nil, err
		}
	}

	return &FingerprintLog{f: f, w: bufio.NewWriter(f), m: m}, m, nil
}

func writeLenPrefixed(w *bufio.Writer, s string) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readLenPrefixed(br *bufio.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
		return "", err
	}
	buf := make([]byte, binary.LittleEndian.Uint32(lenBuf[:]))
	if _, err := io.ReadFull(br, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// WriteBuild appends one record: the build's output paths, its hash, and
// the discovered-dep paths seen on this run. Once the record is flushed,
// the same entry is set in the FingerprintMap OpenFingerprintLog returned.
func (l *FingerprintLog) WriteBuild(g *Graph, b *Build, hash Fingerprint) error {
	if err := writeLenPrefixed(l.w, outputKey(g, b)); err != nil {
		return err
	}
	var hashBuf [8]byte
	binary.LittleEndian.PutUint64(hashBuf[:], uint64(hash))
	if _, err := l.w.Write(hashBuf[:]); err != nil {
		return err
	}
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(b.DiscoveredIns)))
	if _, err := l.w.Write(countBuf[:]); err != nil {
		return err
	}
	for _, id := range b.DiscoveredIns {
		if err := writeLenPrefixed(l.w, g.File(id).Path); err != nil {
			return err
		}
	}
	if err := l.w.Flush(); err != nil {
		return err
	}
	if l.m != nil {
		l.m.Set(g, b, hash)
	}
	return nil
}

func (l *FingerprintLog) Close() error {
	if err := l.w.Flush(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}

func replayFingerprintLog(r io.Reader, m *FingerprintMap) error {
	br := bufio.NewReader(r)
	header := make([]byte, len(fingerprintLogMagic))
	n, err := io.ReadFull(br, header)
	if err == io.EOF || (err == io.ErrUnexpectedEOF && n == 0) {
		return nil // empty file, nothing to replay.
	}
	if err != nil {
		return err
	}
	if string(header) != fingerprintLogMagic {
		return fmt.Errorf("bad fingerprint log header")
	}
	var verBuf [4]byte
	if _, err := io.ReadFull(br, verBuf[:]); err != nil {
		return err
	}
	if v := binary.LittleEndian.Uint32(verBuf[:]); v != fingerprintLogVersion {
		return fmt.Errorf("unsupported fingerprint log version %d", v)
	}

	for {
		key, err := readLenPrefixed(br)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		var hashBuf [8]byte
		if _, err := io.ReadFull(br, hashBuf[:]); err != nil {
			return err
		}
		hash := Fingerprint(binary.LittleEndian.Uint64(hashBuf[:]))
		var countBuf [4]byte
		if _, err := io.ReadFull(br, countBuf[:]); err != nil {
			return err
		}
		discovered := make([]string, binary.LittleEndian.Uint32(countBuf[:]))
		for i := range discovered {
			p, err := readLenPrefixed(br)
			if err != nil {
				return err
			}
			discovered[i] = p
		}
		// Last-writer-wins: a later record for the same outputs overwrites
		// the earlier one. A record appended just before an interrupted
		// run is never rolled back, so replay must tolerate duplicates.
		m.byOutputKey[key] = fingerprintRecord{hash: hash, discovered: discovered}
	}
}
