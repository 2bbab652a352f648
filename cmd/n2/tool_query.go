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

// newQueryCmd implements `n2 tool query <path>`: print a build's
// declared input/output regions and its discovered-deps list.
func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <path>",
		Short: "print a build's inputs, outputs and discovered deps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prepare()
			g, _, err := loadGraph()
			if err != nil {
				return err
			}
			canon, err := n2.CanonicalizePath(args[0])
			if err != nil {
				return err
			}
			id, ok := g.LookupPath(canon)
			if !ok {
				return fmt.Errorf("unknown path %q", args[0])
			}
			f := g.File(id)
			fmt.Printf("%s:\n", f.Path)
			if f.Producer < 0 {
				fmt.Println("  no producing build (source file)")
				return nil
			}
			b := g.Build(f.Producer)
			printPaths(g, "  explicit in", b.ExplicitInputs())
			printPaths(g, "  implicit in", b.ImplicitInputs())
			printPaths(g, "  order-only in", b.OrderOnlyInputs())
			printPaths(g, "  discovered in", b.DiscoveredIns)
			printPaths(g, "  explicit out", b.ExplicitOutputs())
			printPaths(g, "  implicit out", b.ImplicitOutputs())
			return nil
		},
	}
}

func printPaths(g *n2.Graph, label string, ids []n2.FileID) {
	if len(ids) == 0 {
		return
	}
	fmt.Printf("%s:\n", label)
	for _, id := range ids {
		fmt.Printf("    %s\n", g.File(id).Path)
	}
}
