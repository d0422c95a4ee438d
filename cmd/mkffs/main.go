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

// Command mkffs creates a new, empty FFS image file. It is the one-shot,
// non-interactive counterpart to ffsh's "mkfs" mode, suitable for scripting
// or as the first step of a container entrypoint.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cyantree/ffs/pkg/ffs"
	"github.com/cyantree/ffs/pkg/osutil"
)

func main() {
	path := flag.String("image", osutil.DefaultImagePath(), "path of the image file to create")
	flag.Parse()

	if args := flag.Args(); len(args) == 1 {
		*path = args[0]
	} else if len(args) > 1 {
		fmt.Fprintln(os.Stderr, "mkffs: at most one positional image path is accepted")
		os.Exit(2)
	}

	if err := ffs.Mkfs(*path); err != nil {
		fmt.Fprintf(os.Stderr, "mkffs: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK, mkfs %s\n", *path)
}
