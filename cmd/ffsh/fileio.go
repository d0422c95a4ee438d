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

// This file adds the "echo", "add", "ow", "cat", "filesize", "seek", and
// "del" modes: the content-level operations on a single file.

package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/cyantree/ffs/pkg/cmdmain"
)

// writeCmd backs "echo" (w), "add" (a), and "ow" (r+): write args[1:] joined
// by a space into args[0] under the given fopen mode.
type writeCmd struct{ mode string }

func init() {
	cmdmain.RegisterCommand("echo", func(flags *flag.FlagSet) cmdmain.CommandRunner { return &writeCmd{"w"} })
	cmdmain.RegisterCommand("add", func(flags *flag.FlagSet) cmdmain.CommandRunner { return &writeCmd{"a"} })
	cmdmain.RegisterCommand("ow", func(flags *flag.FlagSet) cmdmain.CommandRunner { return &writeCmd{"r+"} })
}

func (c *writeCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh %s filename content...\n", c.modeVerb())
}

func (c *writeCmd) modeVerb() string {
	switch c.mode {
	case "w":
		return "echo"
	case "a":
		return "add"
	default:
		return "ow"
	}
}

func (c *writeCmd) Describe() string {
	switch c.mode {
	case "w":
		return "write content to a file, truncating it first"
	case "a":
		return "append content to a file"
	default:
		return "overwrite a file's content in place from its start"
	}
}

func (c *writeCmd) RunCommand(args []string) error {
	if err := requireMounted(); err != nil {
		return err
	}
	if len(args) < 2 {
		return cmdmain.UsageError(c.modeVerb() + " takes a filename and content")
	}
	filename := args[0]
	content := joinSpace(args[1:])

	fh, err := shell.Fopen(filename, c.mode)
	if err != nil {
		fmt.Fprintf(cmdmain.Stdout, "fopen %s err\n", filename)
		return err
	}
	n, err := fh.Write([]byte(content))
	if err != nil {
		fh.Close()
		return err
	}
	fmt.Fprintf(cmdmain.Stdout, "write %d to %s\n", n, filename)
	return fh.Close()
}

func joinSpace(words []string) string {
	out := words[0]
	for _, w := range words[1:] {
		out += " " + w
	}
	return out
}

type catCmd struct{}

func init() {
	cmdmain.RegisterCommand("cat", func(flags *flag.FlagSet) cmdmain.CommandRunner { return new(catCmd) })
}

func (c *catCmd) Usage()           { fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh cat filename\n") }
func (c *catCmd) Describe() string { return "print a file's content" }

func (c *catCmd) RunCommand(args []string) error {
	if err := requireMounted(); err != nil {
		return err
	}
	if len(args) != 1 {
		return cmdmain.UsageError("cat takes exactly one filename")
	}
	fh, err := shell.Fopen(args[0], "r")
	if err != nil {
		fmt.Fprintf(cmdmain.Stdout, "fopen %s err, not exist\n", args[0])
		return err
	}
	defer fh.Close()
	data, err := io.ReadAll(fh)
	if err != nil {
		return err
	}
	fmt.Fprint(cmdmain.Stdout, string(data))
	fmt.Fprintf(cmdmain.Stdout, "\nread %d from %s\n", len(data), args[0])
	return nil
}

type filesizeCmd struct{}

func init() {
	cmdmain.RegisterCommand("filesize", func(flags *flag.FlagSet) cmdmain.CommandRunner { return new(filesizeCmd) })
}

func (c *filesizeCmd) Usage()           { fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh filesize filename\n") }
func (c *filesizeCmd) Describe() string { return "print a file's size in bytes" }

func (c *filesizeCmd) RunCommand(args []string) error {
	if err := requireMounted(); err != nil {
		return err
	}
	if len(args) != 1 {
		return cmdmain.UsageError("filesize takes exactly one filename")
	}
	size, err := shell.Stat(args[0])
	if err != nil {
		fmt.Fprintf(cmdmain.Stdout, "stat %s err, not exist\n", args[0])
		return err
	}
	fmt.Fprintf(cmdmain.Stdout, "file (%s) size:%d\n", args[0], size)
	return nil
}

type seekCmd struct{}

func init() {
	cmdmain.RegisterCommand("seek", func(flags *flag.FlagSet) cmdmain.CommandRunner { return new(seekCmd) })
}

func (c *seekCmd) Usage() { fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh seek filename\n") }
func (c *seekCmd) Describe() string {
	return "demonstrate seek+in-place write: seeks to offset 15 and splices in a marker string"
}

func (c *seekCmd) RunCommand(args []string) error {
	if err := requireMounted(); err != nil {
		return err
	}
	if len(args) != 1 {
		return cmdmain.UsageError("seek takes exactly one filename")
	}
	fh, err := shell.Fopen(args[0], "r+")
	if err != nil {
		fmt.Fprintf(cmdmain.Stdout, "seek fopen %s err, not exist\n", args[0])
		return err
	}
	defer fh.Close()
	if _, err := fh.Seek(15, io.SeekStart); err != nil {
		fmt.Fprintln(cmdmain.Stdout, "seek err")
		return err
	}
	if _, err := fh.Write([]byte(".....insert.....")); err != nil {
		return err
	}
	fmt.Fprintf(cmdmain.Stdout, "pos:%d\n", fh.Tell())
	return nil
}

type delCmd struct{}

func init() {
	cmdmain.RegisterCommand("del", func(flags *flag.FlagSet) cmdmain.CommandRunner { return new(delCmd) })
}

func (c *delCmd) Usage()          { fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh del filename\n") }
func (c *delCmd) Describe() string { return "remove a file" }

func (c *delCmd) RunCommand(args []string) error {
	if err := requireMounted(); err != nil {
		return err
	}
	if len(args) != 1 {
		return cmdmain.UsageError("del takes exactly one filename")
	}
	return shell.Remove(args[0])
}
