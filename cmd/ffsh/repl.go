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

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/cyantree/ffs/pkg/cmdmain"
)

// runREPL is cmdmain.NoModeGiven's override for ffsh: with no arguments at
// all, the original C shell read commands from stdin one line at a time
// until "q"/"quit"; this is the Go port of that loop, dispatching every
// line through the same RunMode used for a one-shot `ffsh <mode> <args>`
// invocation.
func runREPL() {
	fmt.Fprintf(cmdmain.Stdout, "Welcome to FFS Browsing Shell v1.0\n")
	fmt.Fprintf(cmdmain.Stdout, "type 'help' for a list of commands, 'quit' to exit.\n")

	scanner := bufio.NewScanner(cmdmain.Stdin)
	for {
		fmt.Fprint(cmdmain.Stdout, prompt())
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "q", "quit":
			return
		case "h", "help", "?":
			printHelp()
			continue
		}
		if err := cmdmain.RunMode(fields[0], fields[1:]); err != nil {
			fmt.Fprintf(cmdmain.Stderr, "ERR: %v\n", err)
		}
	}
}

// prompt shows the mounted working directory, falling back to a bare
// marker when nothing is mounted yet.
func prompt() string {
	if !shell.IsMounted() {
		return "ffsh> "
	}
	cwd, err := shell.Getcwd()
	if err != nil {
		return "ffsh> "
	}
	return cwd + "> "
}

func printHelp() {
	fmt.Fprint(cmdmain.Stdout, `Commands:
  mkfs filename                 create a new image file
  mount filename                mount an existing image file
  umount                        unmount the current image
  pwd                           print the current working directory
  ls [path]                     list a directory's entries
  cd [path]                     change the current working directory
  mkdir path                    create a directory
  rm path                       remove an empty directory
  echo filename content...      write content to a file, truncating it
  add filename content...       append content to a file
  ow filename content...        overwrite a file's content in place
  cat filename                  print a file's content
  filesize filename             print a file's size
  seek filename                 seek/splice demonstration
  del filename                  remove a file
  rename path new_name          rename a file or directory in place
  mv src_path dst_path          move a file or directory
  cp src_path dst_path          copy a file
  begin / commit / rollback     explicit transaction control
  help, ?                       show this message
  quit, q                       exit the shell
`)
}
