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

// Command ffsh is an interactive browsing shell for an FFS image: mount,
// navigate, read, write, and manage a virtual filesystem one line at a
// time. Every shell verb (mkfs, mount, ls, cd, cat, ...) is registered
// with pkg/cmdmain as its own mode, so `ffsh mkfs img.ffs` also works as a
// single scripted invocation; each process starts unmounted, so one-shot
// modes that need a mounted image (ls, cd, cat, ...) report "not mount
// data file". With no arguments at all, ffsh drops into the REPL and
// dispatches each typed line the same way.
package main

import (
	"github.com/cyantree/ffs/pkg/cmdmain"
	"github.com/cyantree/ffs/pkg/ffs"
)

// shell holds the single mounted filesystem instance shared by every mode;
// unlike camput/camtool's stateless one-shot subcommands, ffsh's modes
// mutate shared mount/cwd/home state across an interactive session.
var shell = ffs.New()

func init() {
	cmdmain.NoModeGiven = runREPL
}

func main() {
	cmdmain.Main()
}
