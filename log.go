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

	"github.com/sirupsen/logrus"
)

// std is the package-level logger every component logs through.
var std = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return l
}

// SetVerbose raises or lowers the package logger's level, wired to the
// CLI's -v flag.
func SetVerbose(verbose bool) {
	if verbose {
		std.SetLevel(logrus.DebugLevel)
	} else {
		std.SetLevel(logrus.InfoLevel)
	}
}

// explaining gates Explainf: off by default, flipped on by --explain.
var explaining = false

// SetExplaining wires the CLI's --explain flag.
func SetExplaining(v bool) { explaining = v }

// Explainf prints a diagnostic only when explaining is enabled. Pass
// this as a Scheduler's Explain field to surface dirtiness reasoning.
func Explainf(format string, args ...interface{}) {
	if explaining {
		std.Infof("explain: "+format, args...)
	}
}

func Warnf(format string, args ...interface{})  { std.Warnf(format, args...) }
func Infof(format string, args ...interface{})  { std.Infof(format, args...) }
func Fatalf(format string, args ...interface{}) { std.Fatalf(format, args...) }
