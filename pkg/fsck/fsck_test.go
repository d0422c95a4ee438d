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

package fsck_test

import (
	"context"
	"testing"

	"github.com/cyantree/ffs/pkg/dirent"
	"github.com/cyantree/ffs/pkg/ffs"
	"github.com/cyantree/ffs/pkg/fsck"
	"github.com/cyantree/ffs/pkg/fstest"
)

func TestCheckPassesOnHealthyImage(t *testing.T) {
	f := fstest.Mounted(t)
	if err := f.Mkdir("/docs"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	fh, err := f.Fopen("/docs/a.txt", "w")
	if err != nil {
		t.Fatalf("Fopen: %v", err)
	}
	if _, err := fh.Write([]byte("some content spanning a block or two")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	fh.Close()
	if err := f.Remove("/docs/a.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	rep, err := fsck.Check(context.Background(), f)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !rep.OK() {
		t.Fatalf("Report = %+v, want all invariants holding; detail=%v", rep, rep.Detail)
	}
}

func TestCheckDetectsDuplicateNames(t *testing.T) {
	f := fstest.Mounted(t)
	fh, err := f.Fopen("/dup.txt", "w")
	if err != nil {
		t.Fatalf("Fopen: %v", err)
	}
	fh.Close()

	nameBytes, err := dirent.EncodeName("dup.txt")
	if err != nil {
		t.Fatalf("EncodeName: %v", err)
	}
	if err := f.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := dirent.Append(f.Engine(), ffs.RootHead, dirent.Entry{State: dirent.TypeFile, Name: nameBytes}); err != nil {
		t.Fatalf("Append (direct, bypassing ffs's own duplicate check): %v", err)
	}
	if err := f.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	rep, err := fsck.Check(context.Background(), f)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.UniqueNames {
		t.Fatalf("Report.UniqueNames = true, want false after injecting a duplicate entry")
	}
	if rep.OK() {
		t.Fatalf("Report.OK() = true, want false")
	}
}

func TestCheckDetectsFreeListOverlap(t *testing.T) {
	f := fstest.Mounted(t)
	fh, err := f.Fopen("/x.txt", "w")
	if err != nil {
		t.Fatalf("Fopen: %v", err)
	}
	if _, err := fh.Write([]byte("a")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	fh.Close()

	res, err := dirent.Lookup(f.Engine(), ffs.RootHead, "x.txt")
	if err != nil || !res.Found {
		t.Fatalf("Lookup(x.txt) = %+v, %v", res, err)
	}

	if err := f.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	// Put a block on the free list, then claim it as the file's content
	// start without actually popping it off the free list: the block is
	// now reachable both as free and as in-use.
	freeBlock, err := f.Engine().Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := f.Engine().Free(freeBlock); err != nil {
		t.Fatalf("Free: %v", err)
	}
	ent := res.Entry
	ent.Start, ent.Stop, ent.EndOffset = freeBlock, freeBlock, dirent.HeaderSize+1
	if err := dirent.WriteEntry(f.Engine(), res.Block, res.Offset, ent); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	if err := f.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	rep, err := fsck.Check(context.Background(), f)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.FreeListDisjoint {
		t.Fatalf("Report.FreeListDisjoint = true, want false after overlapping a free block into the namespace")
	}
	if rep.OK() {
		t.Fatalf("Report.OK() = true, want false")
	}
}
