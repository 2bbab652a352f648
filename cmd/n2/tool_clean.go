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

// newCleanCmd implements `n2 tool clean`: remove the outputs of every
// non-phony build, or, given target names, just those targets' outputs.
func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [targets...]",
		Short: "remove build outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			prepare()
			g, l, err := loadGraph()
			if err != nil {
				return err
			}

			var buildIDs []n2.BuildID
			if len(args) > 0 {
				targets, err := resolveTargets(g, l, args)
				if err != nil {
					return err
				}
				seen := map[n2.BuildID]bool{}
				for _, id := range targets {
					if p := g.File(id).Producer; p >= 0 && !seen[p] {
						seen[p] = true
						buildIDs = append(buildIDs, p)
					}
				}
			} else {
				for i := 0; i < g.BuildCount(); i++ {
					buildIDs = append(buildIDs, n2.BuildID(i))
				}
			}

			disk := n2.NewRealDisk()
			removed := 0
			for _, id := range buildIDs {
				b := g.Build(id)
				if b.Phony() {
					continue
				}
				for _, out := range b.Outs {
					path := g.File(out).Path
					if dryRun {
						fmt.Printf("would remove %s\n", path)
						continue
					}
					if err := disk.RemoveFile(path); err != nil {
						return fmt.Errorf("removing %s: %w", path, err)
					}
					removed++
				}
			}
			if !dryRun {
				fmt.Printf("cleaned %d files\n", removed)
			}
			return nil
		},
	}
	return cmd
}
