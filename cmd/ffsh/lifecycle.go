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

// This file adds the "mkfs", "mount", and "umount" modes to ffsh.

package main

import (
	"flag"
	"fmt"

	"github.com/cyantree/ffs/pkg/cmdmain"
	"github.com/cyantree/ffs/pkg/ffs"
)

type mkfsCmd struct{}

func init() {
	cmdmain.RegisterCommand("mkfs", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return new(mkfsCmd)
	})
}

func (c *mkfsCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh mkfs fs_filename\n")
}

func (c *mkfsCmd) Describe() string { return "create a new, empty image file" }

func (c *mkfsCmd) RunCommand(args []string) error {
	if len(args) != 1 {
		return cmdmain.UsageError("mkfs takes exactly one filename")
	}
	if err := ffs.Mkfs(args[0]); err != nil {
		fmt.Fprintf(cmdmain.Stdout, "ERR, mkfs %s\n", args[0])
		return err
	}
	fmt.Fprintf(cmdmain.Stdout, "OK, mkfs %s\n", args[0])
	return nil
}

type mountCmd struct{}

func init() {
	cmdmain.RegisterCommand("mount", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return new(mountCmd)
	})
}

func (c *mountCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh mount fs_filename\n")
}

func (c *mountCmd) Describe() string { return "mount an existing image file" }

func (c *mountCmd) RunCommand(args []string) error {
	if len(args) != 1 {
		return cmdmain.UsageError("mount takes exactly one filename")
	}
	if shell.IsMounted() {
		shell.Umount()
	}
	if err := shell.Mount(args[0]); err != nil {
		fmt.Fprintf(cmdmain.Stdout, "ERR, mount %s\n", args[0])
		return err
	}
	fmt.Fprintf(cmdmain.Stdout, "OK, mount %s\n", args[0])
	return nil
}

type umountCmd struct{}

func init() {
	cmdmain.RegisterCommand("umount", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return new(umountCmd)
	})
}

func (c *umountCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: ffsh umount\n")
}

func (c *umountCmd) Describe() string { return "unmount the current image" }

func (c *umountCmd) RunCommand(args []string) error {
	if !shell.IsMounted() {
		return nil
	}
	return shell.Umount()
}
