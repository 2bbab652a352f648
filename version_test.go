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
	"strconv"
	"testing"
)

func TestParseVersion(t *testing.T) {
	cases := []struct {
		in              string
		wantMaj, wantMin int
	}{
		{"1.10.2", 1, 10},
		{"1.10", 1, 10},
		{"1", 1, 0},
		{"2.0.git", 2, 0},
	}
	for _, c := range cases {
		maj, min := ParseVersion(c.in)
		if maj != c.wantMaj || min != c.wantMin {
			t.Errorf("ParseVersion(%q) = %d, %d, want %d, %d", c.in, maj, min, c.wantMaj, c.wantMin)
		}
	}
}

func TestCheckNinjaVersionOlderRequirementIsFine(t *testing.T) {
	if err := checkNinjaVersion("1.0"); err != nil {
		t.Errorf("older required version should not error: %v", err)
	}
}

func TestCheckNinjaVersionNewerRequirementIsError(t *testing.T) {
	if err := checkNinjaVersion("99.0"); err == nil {
		t.Error("a required version newer than this binary should error")
	}
}

func TestCheckNinjaVersionSameMajorNewerMinorIsError(t *testing.T) {
	major, minor := ParseVersion(Version)
	required := strconv.Itoa(major) + "." + strconv.Itoa(minor+1)
	if err := checkNinjaVersion(required); err == nil {
		t.Error("a required minor version newer than this binary's should error")
	}
}
