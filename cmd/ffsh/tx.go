/*
Copyright 2025 The FFS Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// This file adds the "begin", "commit", and "rollback" modes, giving the
// shell explicit control over a transaction that would otherwise be opened
// and closed implicitly around each single operation.

package main

import (
	"flag"
	"fmt"

	"github.com/cyantree/ffs/pkg/cmdmain"
)

type beginCmd struct{}

func init() {
	cmdmain.RegisterCommand("begin", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return new(beginCmd)
	})
}

func (c *beginCmd) Usage()          { fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh begin\n") }
func (c *beginCmd) Describe() string { return "start an explicit transaction" }

func (c *beginCmd) RunCommand(args []string) error {
	if err := requireMounted(); err != nil {
		return err
	}
	return shell.Begin()
}

type commitCmd struct{}

func init() {
	cmdmain.RegisterCommand("commit", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return new(commitCmd)
	})
}

func (c *commitCmd) Usage()          { fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh commit\n") }
func (c *commitCmd) Describe() string { return "commit the current explicit transaction" }

func (c *commitCmd) RunCommand(args []string) error {
	if err := requireMounted(); err != nil {
		return err
	}
	return shell.Commit()
}

type rollbackCmd struct{}

func init() {
	cmdmain.RegisterCommand("rollback", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return new(rollbackCmd)
	})
}

func (c *rollbackCmd) Usage()          { fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh rollback\n") }
func (c *rollbackCmd) Describe() string { return "discard the current explicit transaction" }

func (c *rollbackCmd) RunCommand(args []string) error {
	if err := requireMounted(); err != nil {
		return err
	}
	return shell.Rollback()
}
