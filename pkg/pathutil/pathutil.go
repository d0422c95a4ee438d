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

// Package pathutil splits an FFS path string into a list of components and
// the anchor it is relative to, per spec.md §4.4. It never touches the
// image or the host filesystem: resolving ".." and relative anchors
// against an actual directory chain is pkg/ffs's job, not this package's.
package pathutil

import "strings"

// Split decomposes path into its "/"-separated components.
//
//   - Rooted reports whether path began with "/" (resolve from the root
//     directory).
//   - HomeRooted reports whether path began with "~" or "~/" (resolve from
//     the current home directory). Rooted and HomeRooted are never both
//     true.
//   - DirOnly reports whether path ended with "/", meaning the caller
//     expects (or requires) the resolved entry to be a directory.
//
// Empty components produced by repeated slashes are dropped. "." components
// are dropped (they denote no movement). ".." components are kept as-is;
// walking them is the resolver's job since it alone knows the chain of
// parent directories.
func Split(path string) (comps []string, rooted, homeRooted, dirOnly bool) {
	if path == "" {
		return nil, false, false, false
	}

	rest := path
	switch {
	case rest == "~" || strings.HasPrefix(rest, "~/"):
		homeRooted = true
		rest = strings.TrimPrefix(rest, "~")
	case strings.HasPrefix(rest, "/"):
		rooted = true
	}

	dirOnly = strings.HasSuffix(rest, "/")

	for _, c := range strings.Split(rest, "/") {
		switch c {
		case "", ".":
			continue
		default:
			comps = append(comps, c)
		}
	}
	return comps, rooted, homeRooted, dirOnly
}

// Join renders components back into a "/"-separated path, for error
// messages and Getcwd().
func Join(comps []string) string {
	return "/" + strings.Join(comps, "/")
}
