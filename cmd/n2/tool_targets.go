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

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	n2 "github.com/nin2build/n2"
)

// newTargetsCmd implements `n2 tool targets`: list every declared
// output and whether a command or a phony grouping produces it. It never
// touches the scheduler: this is a static listing over the loaded graph.
func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "list every build output and its producing rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			prepare()
			g, _, err := loadGraph()
			if err != nil {
				return err
			}
			for i := 0; i < g.BuildCount(); i++ {
				b := g.Build(n2.BuildID(i))
				rule := "phony"
				if !b.Phony() {
					rule = "build"
				}
				for _, out := range b.Outs {
					fmt.Printf("%s: %s\n", g.File(out).Path, rule)
				}
			}
			return nil
		},
	}
}
