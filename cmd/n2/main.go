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

// Package main is the n2 command-line entry point: a root command that
// performs a build (the bare-`ninja` equivalent) plus an `n2 tool ...`
// subtree replacing Ninja's `-t` flag.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	n2 "github.com/nin2build/n2"
)

var (
	inputFile   string
	workingDir  string
	parallelism int
	verboseFlag bool
	explainFlag bool
	dryRun      bool
	quiet       bool
	watchFlag   bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "n2: error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "n2 [targets...]",
		Short:         "a Ninja-manifest-compatible build engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), args)
		},
	}
	root.PersistentFlags().StringVarP(&inputFile, "file", "f", "build.ninja", "specify input build file")
	root.PersistentFlags().StringVarP(&workingDir, "directory", "C", "", "change to DIR before doing anything else")
	root.PersistentFlags().IntVarP(&parallelism, "parallel", "j", defaultParallelism(), "run N jobs in parallel (0 means infinity)")
	root.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "show all command lines while building")
	root.PersistentFlags().BoolVar(&explainFlag, "explain", false, "explain why a build is dirty")
	root.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "dry run (don't run commands but act like they succeeded)")
	root.PersistentFlags().BoolVar(&quiet, "quiet", false, "don't show progress status, just command output")
	root.Flags().BoolVar(&watchFlag, "watch", false, "after building, watch the manifest and its inputs and rebuild on change")

	root.AddCommand(newToolCmd())
	return root
}

func defaultParallelism() int {
	n := runtime.NumCPU()
	if n < 2 {
		return 1
	}
	return n + 2
}

// prepare wires the logging façade from the persistent flags. Every
// subcommand's RunE calls this before touching the graph.
func prepare() {
	n2.SetVerbose(verboseFlag)
	n2.SetExplaining(explainFlag)
	if workingDir != "" {
		if err := os.Chdir(workingDir); err != nil {
			n2.Fatalf("chdir %s: %v", workingDir, err)
		}
	}
}

// loadGraph parses the manifest at inputFile into a fresh Graph, the way
// every subcommand (build, tool targets, tool clean, ...) needs to start.
func loadGraph() (*n2.Graph, *n2.Loader, error) {
	g := n2.NewGraph()
	l, err := n2.LoadManifest(g, inputFile)
	if err != nil {
		return nil, nil, err
	}
	return g, l, nil
}

// resolveTargets maps user-supplied target names to FileIDs, falling
// back to a Loader's default target list, and finally to every known
// output when neither is present (no "default" statement means "build
// everything").
func resolveTargets(g *n2.Graph, l *n2.Loader, args []string) ([]n2.FileID, error) {
	if len(args) > 0 {
		ids := make([]n2.FileID, 0, len(args))
		for _, a := range args {
			canon, err := n2.CanonicalizePath(a)
			if err != nil {
				return nil, err
			}
			id, ok := g.LookupPath(canon)
			if !ok {
				return nil, fmt.Errorf("unknown target %q", a)
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	if defaults := l.Defaults(); len(defaults) > 0 {
		return defaults, nil
	}
	ids := make([]n2.FileID, 0, g.BuildCount())
	for i := 0; i < g.BuildCount(); i++ {
		ids = append(ids, g.Build(n2.BuildID(i)).Outs...)
	}
	return ids, nil
}

// withSelfRegeneration prepends the manifest's own FileID to targets when
// some build declares it as an output, so a regenerated build.ninja is
// always brought up to date before any user target.
func withSelfRegeneration(g *n2.Graph, targets []n2.FileID) []n2.FileID {
	canon, err := n2.CanonicalizePath(inputFile)
	if err != nil {
		return targets
	}
	id, ok := g.LookupPath(canon)
	if !ok || g.File(id).Producer < 0 {
		return targets
	}
	return append([]n2.FileID{id}, targets...)
}

func runBuild(ctx context.Context, args []string) error {
	prepare()

	if watchFlag {
		return runWatch(ctx, args)
	}

	g, l, err := loadGraph()
	if err != nil {
		return err
	}
	targets, err := resolveTargets(g, l, args)
	if err != nil {
		return err
	}
	targets = withSelfRegeneration(g, targets)

	return buildTargets(ctx, g, l, targets)
}

// buildTargets runs one full want/dirty/dispatch pass rooted at targets,
// the single pipeline every entry point (build, --watch) funnels through.
func buildTargets(ctx context.Context, g *n2.Graph, l *n2.Loader, targets []n2.FileID) error {
	disk := n2.NewRealDisk()
	fplog, fpmap, err := n2.OpenFingerprintLog(".n2_db", g)
	if err != nil {
		return fmt.Errorf("opening fingerprint log: %w", err)
	}
	defer fplog.Close()

	var runner n2.Runner
	var closer interface{ Close() error }
	if dryRun {
		runner = newDryRunner()
	} else {
		pr := n2.NewProcessRunner(ctx, int64(parallelism))
		runner = pr
		closer = pr
	}

	sched := n2.NewScheduler(g, disk, fplog, fpmap, l.Pools(), runner)
	sched.Explain = n2.Explainf
	sched.PhonyMissingIsError = false
	if !quiet {
		sched.Status = n2.NewStatusPrinter()
	}

	if err := sched.WantTargets(targets); err != nil {
		return err
	}
	runErr := sched.Run(ctx)
	if closer != nil {
		if cerr := closer.Close(); cerr != nil && runErr == nil {
			runErr = cerr
		}
	}
	return runErr
}

func runWatch(ctx context.Context, args []string) error {
	rebuild := func() (*n2.Graph, *n2.Loader, []n2.FileID, error) {
		g, l, err := loadGraph()
		if err != nil {
			return nil, nil, nil, err
		}
		targets, err := resolveTargets(g, l, args)
		if err != nil {
			return nil, nil, nil, err
		}
		targets = withSelfRegeneration(g, targets)
		return g, l, targets, nil
	}

	g, l, targets, err := rebuild()
	if err != nil {
		return err
	}
	if err := buildTargets(ctx, g, l, targets); err != nil {
		n2.Warnf("build failed: %v", err)
	}

	w, err := n2.NewWatcher(func() error {
		ng, nl, ntargets, err := rebuild()
		if err != nil {
			return err
		}
		g, l = ng, nl
		return buildTargets(ctx, ng, nl, ntargets)
	})
	if err != nil {
		return err
	}
	return w.Run(ctx, func() []string { return n2.InputPaths(g, inputFile) })
}
