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
	"strconv"
	"strings"
)

// Version is this build engine's own version, compared against a
// manifest's ninja_required_version binding. Kept at Ninja's
// compatibility baseline; bump the minor component when new statement
// syntax lands.
const Version = "1.10.2"

// ParseVersion splits a "major.minor[.patch...]" string into its first
// two numeric components, tolerating trailing non-numeric suffixes
// such as ".git".
func ParseVersion(version string) (major, minor int) {
	end := strings.Index(version, ".")
	if end == -1 {
		end = len(version)
	}
	major, _ = strconv.Atoi(keepLeadingDigits(version[:end]))
	if end == len(version) {
		return major, 0
	}
	start := end + 1
	rest := version[start:]
	if i := strings.Index(rest, "."); i != -1 {
		rest = rest[:i]
	}
	minor, _ = strconv.Atoi(keepLeadingDigits(rest))
	return major, minor
}

func keepLeadingDigits(s string) string {
	i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if i != -1 {
		return s[:i]
	}
	return s
}

// checkNinjaVersion rejects a manifest whose ninja_required_version
// names a newer major version, or the same major and a newer minor, than
// this binary implements. A requirement with an older major version just
// produces a compatibility warning; an older minor within the same major
// is accepted silently.
func checkNinjaVersion(required string) error {
	binMajor, binMinor := ParseVersion(Version)
	reqMajor, reqMinor := ParseVersion(required)
	if binMajor > reqMajor {
		Warnf("n2 version (%s) is newer than build file ninja_required_version (%s); versions may be incompatible", Version, required)
		return nil
	}
	if binMajor < reqMajor || (binMajor == reqMajor && binMinor < reqMinor) {
		return fmt.Errorf("n2 version (%s) incompatible with build file ninja_required_version (%s)", Version, required)
	}
	return nil
}
