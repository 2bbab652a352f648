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

import "github.com/spf13/cobra"

// newToolCmd groups the `n2 tool <name>` subtree that replaces Ninja's
// `-t <tool>` flag, one cobra.Command per tool.
func newToolCmd() *cobra.Command {
	tool := &cobra.Command{
		Use:   "tool",
		Short: "run a subtool",
	}
	tool.AddCommand(newTargetsCmd())
	tool.AddCommand(newCleanCmd())
	tool.AddCommand(newQueryCmd())
	tool.AddCommand(newGraphCmd())
	return tool
}
