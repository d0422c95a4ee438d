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

// This file adds the "rename", "mv", and "cp" modes.

package main

import (
	"flag"
	"fmt"

	"github.com/cyantree/ffs/pkg/cmdmain"
)

type renameCmd struct{}

func init() {
	cmdmain.RegisterCommand("rename", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return new(renameCmd)
	})
}

func (c *renameCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh rename path new_name\n")
}
func (c *renameCmd) Describe() string { return "rename a file or directory in place" }

func (c *renameCmd) RunCommand(args []string) error {
	if err := requireMounted(); err != nil {
		return err
	}
	if len(args) != 2 {
		return cmdmain.UsageError("rename takes a path and a new name")
	}
	return shell.Rename(args[0], args[1])
}

type mvCmd struct{}

func init() {
	cmdmain.RegisterCommand("mv", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return new(mvCmd)
	})
}

func (c *mvCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh mv src_path dst_path\n")
}
func (c *mvCmd) Describe() string { return "move a file or directory to another directory" }

func (c *mvCmd) RunCommand(args []string) error {
	if err := requireMounted(); err != nil {
		return err
	}
	if len(args) != 2 {
		return cmdmain.UsageError("mv takes a source and a destination path")
	}
	return shell.Move(args[0], args[1])
}

type cpCmd struct{}

func init() {
	cmdmain.RegisterCommand("cp", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return new(cpCmd)
	})
}

func (c *cpCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh cp src_path dst_path\n")
}
func (c *cpCmd) Describe() string { return "copy a file to a new path" }

func (c *cpCmd) RunCommand(args []string) error {
	if err := requireMounted(); err != nil {
		return err
	}
	if len(args) != 2 {
		return cmdmain.UsageError("cp takes a source and a destination path")
	}
	return shell.Copy(args[0], args[1])
}
