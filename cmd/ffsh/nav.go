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

// This file adds the "pwd", "ls", "cd", "mkdir", and "rm" (rmdir) modes.

package main

import (
	"flag"
	"fmt"

	"github.com/cyantree/ffs/pkg/cmdmain"
	"github.com/cyantree/ffs/pkg/ffs"
)

func requireMounted() error {
	if !shell.IsMounted() {
		return fmt.Errorf("not mount data file")
	}
	return nil
}

type pwdCmd struct{}

func init() {
	cmdmain.RegisterCommand("pwd", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return new(pwdCmd)
	})
}

func (c *pwdCmd) Usage()          { fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh pwd\n") }
func (c *pwdCmd) Describe() string { return "print the current working directory" }

func (c *pwdCmd) RunCommand(args []string) error {
	if err := requireMounted(); err != nil {
		return err
	}
	cwd, err := shell.Getcwd()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmdmain.Stdout, cwd)
	return nil
}

type lsCmd struct{}

func init() {
	cmdmain.RegisterCommand("ls", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return new(lsCmd)
	})
}

func (c *lsCmd) Usage()          { fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh ls [path]\n") }
func (c *lsCmd) Describe() string { return "list a directory's entries" }

func (c *lsCmd) RunCommand(args []string) error {
	if err := requireMounted(); err != nil {
		return err
	}
	path := "."
	if len(args) == 1 {
		path = args[0]
	} else if len(args) > 1 {
		return cmdmain.UsageError("ls takes at most one path")
	}
	d, err := shell.Opendir(path)
	if err != nil {
		return err
	}
	defer d.Close()

	nDir, nFile := 0, 0
	fmt.Fprintf(cmdmain.Stdout, "  [dir]: %s\n", path)
	for {
		e, ok := d.Readdir()
		if !ok {
			break
		}
		switch e.Type {
		case ffs.DirEntryRoot:
			fmt.Fprintf(cmdmain.Stdout, "\t<DIR>\t%s\n", e.Name)
		case ffs.DirEntryDir:
			fmt.Fprintf(cmdmain.Stdout, "\t<DIR>\t%s\n", e.Name)
			nDir++
		default:
			fmt.Fprintf(cmdmain.Stdout, "\t\t%s\n", e.Name)
			nFile++
		}
	}
	fmt.Fprintf(cmdmain.Stdout, "  dir:%d, file:%d\n", nDir, nFile)
	return nil
}

type cdCmd struct{}

func init() {
	cmdmain.RegisterCommand("cd", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return new(cdCmd)
	})
}

func (c *cdCmd) Usage()          { fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh cd [path]\n") }
func (c *cdCmd) Describe() string { return "change the current working directory" }

func (c *cdCmd) RunCommand(args []string) error {
	if err := requireMounted(); err != nil {
		return err
	}
	path := "/"
	if len(args) == 1 {
		path = args[0]
	} else if len(args) > 1 {
		return cmdmain.UsageError("cd takes at most one path")
	}
	return shell.Chdir(path)
}

type mkdirCmd struct{}

func init() {
	cmdmain.RegisterCommand("mkdir", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return new(mkdirCmd)
	})
}

func (c *mkdirCmd) Usage()          { fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh mkdir path\n") }
func (c *mkdirCmd) Describe() string { return "create a directory" }

func (c *mkdirCmd) RunCommand(args []string) error {
	if err := requireMounted(); err != nil {
		return err
	}
	if len(args) != 1 {
		return cmdmain.UsageError("mkdir takes exactly one path")
	}
	return shell.Mkdir(args[0])
}

type rmCmd struct{}

func init() {
	cmdmain.RegisterCommand("rm", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return new(rmCmd)
	})
}

func (c *rmCmd) Usage()          { fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh rm path\n") }
func (c *rmCmd) Describe() string { return "remove an empty directory" }

func (c *rmCmd) RunCommand(args []string) error {
	if err := requireMounted(); err != nil {
		return err
	}
	if len(args) != 1 {
		return cmdmain.UsageError("rm takes exactly one path")
	}
	return shell.Rmdir(args[0])
}
