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

// Package fsck checks the four quantified invariants of spec.md §8 against
// a mounted filesystem: free-list disjointness, backpointer symmetry,
// unique names within a directory, and mount idempotence. Each check reads
// the image independently of the others, so they run concurrently via
// errgroup and are joined into one Report.
package fsck

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/cyantree/ffs/pkg/block"
	"github.com/cyantree/ffs/pkg/dirent"
	"github.com/cyantree/ffs/pkg/ffs"
)

// Report collects the outcome of each invariant check. A false field means
// that invariant was violated; Detail carries a human-readable reason.
type Report struct {
	FreeListDisjoint     bool
	BackpointerSymmetric bool
	UniqueNames          bool
	MountIdempotent      bool
	Detail               []string
}

// OK reports whether every checked invariant held.
func (r Report) OK() bool {
	return r.FreeListDisjoint && r.BackpointerSymmetric && r.UniqueNames && r.MountIdempotent
}

// Check runs all four invariant checks concurrently against f, which must
// be mounted and outside of any active transaction (spec.md §8 "at rest").
func Check(ctx context.Context, f *ffs.FileFS) (Report, error) {
	eng := f.Engine()
	if eng == nil {
		return Report{}, fmt.Errorf("fsck: filesystem not mounted")
	}
	if eng.InTx() {
		return Report{}, fmt.Errorf("fsck: cannot check with an active transaction")
	}

	var rep Report
	var freeListDetail, uniqueNamesDetail, mountIdempotentDetail string
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		ok, detail, err := checkFreeListAndBackpointers(eng)
		rep.FreeListDisjoint = ok.disjoint
		rep.BackpointerSymmetric = ok.symmetric
		freeListDetail = detail
		return err
	})
	g.Go(func() error {
		ok, detail, err := checkUniqueNames(eng)
		rep.UniqueNames = ok
		uniqueNamesDetail = detail
		return err
	})
	g.Go(func() error {
		ok, detail, err := checkMountIdempotence(eng.ImagePath())
		rep.MountIdempotent = ok
		mountIdempotentDetail = detail
		return err
	})

	err := g.Wait()
	// Each goroutine above writes only its own Report fields and its own
	// local detail string, so no lock is needed for those; the Detail
	// slice itself is only ever appended to here, after every goroutine
	// has finished.
	for _, detail := range []string{freeListDetail, uniqueNamesDetail, mountIdempotentDetail} {
		if detail != "" {
			rep.Detail = append(rep.Detail, detail)
		}
	}
	if err != nil {
		return rep, err
	}
	return rep, nil
}

type listFlags struct {
	disjoint  bool
	symmetric bool
}

// checkFreeListAndBackpointers walks the free list and the root directory
// closure (directory chains plus every file's content chain), checking
// that the two block sets are disjoint and, across both, that every
// non-head block's prev points back correctly (spec.md §8 invariants 1, 2).
func checkFreeListAndBackpointers(eng *block.Engine) (listFlags, string, error) {
	free, freeLinks, err := walkSinglyLinked(eng, eng.FreeHead())
	if err != nil {
		return listFlags{}, "", fmt.Errorf("fsck: walk free list: %w", err)
	}
	used, usedLinks, err := walkNamespaceClosure(eng)
	if err != nil {
		return listFlags{}, "", fmt.Errorf("fsck: walk namespace closure: %w", err)
	}

	disjoint := true
	for idx := range free {
		if used[idx] {
			disjoint = false
			break
		}
	}

	symmetric := true
	for _, l := range append(freeLinks, usedLinks...) {
		if l.prev == 0 {
			continue
		}
		buf, err := eng.ReadBlock(l.prev)
		if err != nil {
			return listFlags{}, "", fmt.Errorf("fsck: read block %d: %w", l.prev, err)
		}
		if dirent.Next(buf) != l.block {
			symmetric = false
			break
		}
	}

	detail := ""
	if !disjoint {
		detail = "free list and in-use closure overlap"
	} else if !symmetric {
		detail = "a chain block's predecessor does not point back to it"
	}
	return listFlags{disjoint: disjoint, symmetric: symmetric}, detail, nil
}

type link struct{ block, prev uint32 }

// walkSinglyLinked follows next pointers from head (used for the free
// list, which only maintains next).
func walkSinglyLinked(eng *block.Engine, head uint32) (map[uint32]bool, []link, error) {
	seen := map[uint32]bool{}
	var links []link
	cur := head
	for cur != 0 {
		if seen[cur] {
			return nil, nil, fmt.Errorf("fsck: cycle detected in free list at block %d", cur)
		}
		seen[cur] = true
		buf, err := eng.ReadBlock(cur)
		if err != nil {
			return nil, nil, err
		}
		links = append(links, link{block: cur, prev: 0})
		cur = dirent.Next(buf)
	}
	return seen, links, nil
}

// walkNamespaceClosure visits every block reachable from the root
// directory: directory chain blocks (recursing into subdirectories) and
// every file's content chain.
func walkNamespaceClosure(eng *block.Engine) (map[uint32]bool, []link, error) {
	seen := map[uint32]bool{}
	var links []link
	var walkDir func(head uint32) error
	walkDir = func(head uint32) error {
		cur := head
		first := true
		for cur != 0 {
			if seen[cur] && !first {
				return fmt.Errorf("fsck: cycle detected in directory chain at block %d", cur)
			}
			seen[cur] = true
			buf, err := eng.ReadBlock(cur)
			if err != nil {
				return err
			}
			prev := uint32(0)
			if !first {
				prev = dirent.Prev(buf)
			}
			links = append(links, link{block: cur, prev: prev})
			next := dirent.Next(buf)
			first = false
			cur = next
		}
		entries, err := dirent.List(eng, head)
		if err != nil {
			return err
		}
		for _, e := range entries {
			name := e.NameString()
			if name == "." || name == ".." {
				continue
			}
			if e.IsDir() {
				if err := walkDir(e.Start); err != nil {
					return err
				}
				continue
			}
			if err := walkFileChain(eng, e.Start, seen, &links); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walkDir(block.RootBlock); err != nil {
		return nil, nil, err
	}
	return seen, links, nil
}

func walkFileChain(eng *block.Engine, start uint32, seen map[uint32]bool, links *[]link) error {
	cur := start
	first := true
	for cur != 0 {
		if seen[cur] {
			return fmt.Errorf("fsck: cycle or cross-link at block %d", cur)
		}
		seen[cur] = true
		buf, err := eng.ReadBlock(cur)
		if err != nil {
			return err
		}
		prev := uint32(0)
		if !first {
			prev = dirent.Prev(buf)
		}
		*links = append(*links, link{block: cur, prev: prev})
		cur = dirent.Next(buf)
		first = false
	}
	return nil
}

// checkUniqueNames recurses the namespace verifying no directory contains
// two entries with equal NUL-trimmed names (spec.md §8 invariant 3).
func checkUniqueNames(eng *block.Engine) (bool, string, error) {
	var walk func(head uint32) (bool, string, error)
	walk = func(head uint32) (bool, string, error) {
		entries, err := dirent.List(eng, head)
		if err != nil {
			return false, "", err
		}
		seen := map[string]bool{}
		for _, e := range entries {
			name := e.NameString()
			if seen[name] {
				return false, fmt.Sprintf("duplicate name %q in directory at block %d", name, head), nil
			}
			seen[name] = true
		}
		for _, e := range entries {
			name := e.NameString()
			if name == "." || name == ".." || !e.IsDir() {
				continue
			}
			ok, detail, err := walk(e.Start)
			if err != nil || !ok {
				return ok, detail, err
			}
		}
		return true, "", nil
	}
	return walk(block.RootBlock)
}

// checkMountIdempotence verifies mount(image) ∘ umount(image) is the
// identity on the image bytes (spec.md §8 invariant 4) by performing the
// cycle against a scratch copy and diffing before/after.
func checkMountIdempotence(imagePath string) (bool, string, error) {
	before, err := os.ReadFile(imagePath)
	if err != nil {
		return false, "", fmt.Errorf("fsck: read image: %w", err)
	}

	tmp, err := os.CreateTemp("", "ffs-fsck-*.img")
	if err != nil {
		return false, "", fmt.Errorf("fsck: create scratch image: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	defer os.Remove(block.CPPath(tmpPath))
	defer os.Remove(block.AddPath(tmpPath))
	defer os.Remove(block.JournalPath(tmpPath))
	if _, err := tmp.Write(before); err != nil {
		tmp.Close()
		return false, "", fmt.Errorf("fsck: write scratch image: %w", err)
	}
	tmp.Close()

	eng, err := block.Open(tmpPath)
	if err != nil {
		return false, "", fmt.Errorf("fsck: mount scratch image: %w", err)
	}
	if err := eng.Close(); err != nil {
		return false, "", fmt.Errorf("fsck: umount scratch image: %w", err)
	}

	after, err := os.ReadFile(tmpPath)
	if err != nil {
		return false, "", fmt.Errorf("fsck: reread scratch image: %w", err)
	}

	if !bytes.Equal(before, after) {
		return false, "mount+umount cycle altered image bytes", nil
	}
	return true, "", nil
}
