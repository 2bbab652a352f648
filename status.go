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
	"os"
	"strconv"
	"strings"
)

// StatusReporter is the scheduler's progress-output collaborator: told
// about plan size and edge start/finish, it formats a $NINJA_STATUS-style
// line through the logging façade instead of a raw terminal line printer,
// since logrus already owns stdio framing here.
type StatusReporter interface {
	PlanTotal(total int)
	EdgeStarted(description, command string)
	EdgeFinished(description string, success bool)
}

// nullStatus discards everything, so wiring a real reporter into a
// Scheduler stays optional.
type nullStatus struct{}

func (nullStatus) PlanTotal(int)              {}
func (nullStatus) EdgeStarted(string, string)  {}
func (nullStatus) EdgeFinished(string, bool)   {}

// StatusPrinter implements StatusReporter against the $NINJA_STATUS
// placeholder grammar (%s started, %t total, %r running, %u unstarted,
// %f finished, %p percent; the rate placeholders %o/%c/%e need
// wall-clock timing and are not supported), logging one line per edge
// through Infof.
type StatusPrinter struct {
	format string

	started, finished, running, total int
}

// NewStatusPrinter reads the format from $NINJA_STATUS, defaulting to
// "[%f/%t] " when unset.
func NewStatusPrinter() *StatusPrinter {
	format := os.Getenv("NINJA_STATUS")
	if format == "" {
		format = "[%f/%t] "
	}
	return &StatusPrinter{format: format}
}

func (s *StatusPrinter) PlanTotal(total int) { s.total = total }

func (s *StatusPrinter) EdgeStarted(description, command string) {
	s.started++
	s.running++
	text := description
	if text == "" {
		text = command
	}
	Infof("%s%s", s.formatPrefix(), text)
}

func (s *StatusPrinter) EdgeFinished(description string, success bool) {
	s.finished++
	s.running--
	if !success {
		Warnf("%sFAILED: %s", s.formatPrefix(), description)
	}
}

func (s *StatusPrinter) formatPrefix() string {
	var b strings.Builder
	for i := 0; i < len(s.format); i++ {
		c := s.format[i]
		if c != '%' || i+1 >= len(s.format) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s.format[i] {
		case '%':
			b.WriteByte('%')
		case 's':
			b.WriteString(strconv.Itoa(s.started))
		case 't':
			b.WriteString(strconv.Itoa(s.total))
		case 'r':
			b.WriteString(strconv.Itoa(s.running))
		case 'u':
			b.WriteString(strconv.Itoa(s.total - s.started))
		case 'f':
			b.WriteString(strconv.Itoa(s.finished))
		case 'p':
			pct := 0
			if s.total > 0 {
				pct = 100 * s.finished / s.total
			}
			b.WriteString(fmt.Sprintf("%3d%%", pct))
		default:
			b.WriteByte('%')
			b.WriteByte(s.format[i])
		}
	}
	return b.String()
}
