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

// newGraphCmd implements `n2 tool graph [targets...]`: emit a Graphviz
// .dot rendering of the graph reachable from targets. With none given it
// starts from the manifest's default targets, or from every build output
// when the manifest declares no defaults.
func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph [targets...]",
		Short: "emit a Graphviz dot file of the build graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			prepare()
			g, l, err := loadGraph()
			if err != nil {
				return err
			}
			targets, err := resolveTargets(g, l, args)
			if err != nil {
				return err
			}
			writeDot(g, targets)
			return nil
		},
	}
}

func writeDot(g *n2.Graph, targets []n2.FileID) {
	fmt.Println("digraph n2 {")
	fmt.Println(`  rankdir="LR";`)
	fmt.Println(`  node [fontsize=10, shape=box, height=0.25];`)
	fmt.Println(`  edge [fontsize=10];`)

	visitedBuilds := map[n2.BuildID]bool{}
	visitedFiles := map[n2.FileID]bool{}

	var visitFile func(id n2.FileID)
	visitFile = func(id n2.FileID) {
		if visitedFiles[id] {
			return
		}
		visitedFiles[id] = true
		f := g.File(id)
		fmt.Printf("  %q [label=%q]\n", nodeName(id), f.Path)
		if f.Producer < 0 {
			return
		}
		if visitedBuilds[f.Producer] {
			return
		}
		visitedBuilds[f.Producer] = true
		b := g.Build(f.Producer)
		buildNode := fmt.Sprintf("build%d", f.Producer)
		label := b.Cmdline
		if b.Phony() {
			label = "phony"
		}
		fmt.Printf("  %q [label=%q, shape=ellipse]\n", buildNode, label)
		for _, in := range b.OrderingInputs() {
			visitFile(in)
			fmt.Printf("  %q -> %q\n", nodeName(in), buildNode)
		}
		for _, out := range b.Outs {
			visitFile(out)
			fmt.Printf("  %q -> %q\n", buildNode, nodeName(out))
		}
	}

	for _, id := range targets {
		visitFile(id)
	}
	fmt.Println("}")
}

func nodeName(id n2.FileID) string { return fmt.Sprintf("file%d", id) }
