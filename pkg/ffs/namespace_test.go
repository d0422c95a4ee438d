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

package ffs_test

import (
	"fmt"
	"testing"

	"github.com/cyantree/ffs/pkg/ffs"
	"github.com/cyantree/ffs/pkg/fstest"
)

func TestMkdirRmdirRoundTrip(t *testing.T) {
	f := fstest.Mounted(t)
	if err := f.Mkdir("/sub"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if !f.DirExists("/sub") {
		t.Fatalf("DirExists(/sub) = false after Mkdir")
	}
	if err := f.Rmdir("/sub"); err != nil {
		t.Fatalf("Rmdir: %v", err)
	}
	if f.DirExists("/sub") {
		t.Fatalf("DirExists(/sub) = true after Rmdir")
	}
}

func TestRmdirRejectsNonEmpty(t *testing.T) {
	f := fstest.Mounted(t)
	if err := f.Mkdir("/sub"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	fh, err := f.Fopen("/sub/f.txt", "w")
	if err != nil {
		t.Fatalf("Fopen: %v", err)
	}
	fh.Close()
	if err := f.Rmdir("/sub"); err == nil {
		t.Fatalf("Rmdir(non-empty) = nil, want error")
	}
}

func TestRemoveDeletesFile(t *testing.T) {
	f := fstest.Mounted(t)
	fh, err := f.Fopen("/x.txt", "w")
	if err != nil {
		t.Fatalf("Fopen: %v", err)
	}
	fh.Write([]byte("bye"))
	fh.Close()
	if err := f.Remove("/x.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if f.FileExists("/x.txt") {
		t.Fatalf("FileExists(/x.txt) = true after Remove")
	}
}

func TestRenameKeepsParentChangesName(t *testing.T) {
	f := fstest.Mounted(t)
	fh, err := f.Fopen("/old.txt", "w")
	if err != nil {
		t.Fatalf("Fopen: %v", err)
	}
	fh.Close()
	if err := f.Rename("/old.txt", "new.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if f.FileExists("/old.txt") {
		t.Fatalf("FileExists(/old.txt) = true after rename")
	}
	if !f.FileExists("/new.txt") {
		t.Fatalf("FileExists(/new.txt) = false after rename")
	}
}

func TestMoveAcrossDirectoriesFixesBackpointer(t *testing.T) {
	f := fstest.Mounted(t)
	if err := f.Mkdir("/src"); err != nil {
		t.Fatalf("Mkdir /src: %v", err)
	}
	if err := f.Mkdir("/dst"); err != nil {
		t.Fatalf("Mkdir /dst: %v", err)
	}
	if err := f.Mkdir("/src/child"); err != nil {
		t.Fatalf("Mkdir /src/child: %v", err)
	}
	if err := f.Move("/src/child", "/dst/child"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if f.DirExists("/src/child") {
		t.Fatalf("DirExists(/src/child) = true after move")
	}
	if !f.DirExists("/dst/child") {
		t.Fatalf("DirExists(/dst/child) = false after move")
	}

	if err := f.Chdir("/dst/child"); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	got, err := f.Getcwd()
	if err != nil {
		t.Fatalf("Getcwd: %v", err)
	}
	if got != "/dst/child" {
		t.Fatalf("Getcwd() = %q after move, want /dst/child (backpointer must follow the move)", got)
	}
}

func TestCopyDuplicatesContentIndependently(t *testing.T) {
	f := fstest.Mounted(t)
	fh, err := f.Fopen("/src.txt", "w")
	if err != nil {
		t.Fatalf("Fopen: %v", err)
	}
	fh.Write([]byte("original"))
	fh.Close()

	if err := f.Copy("/src.txt", "/dup.txt"); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	fh, err = f.Fopen("/src.txt", "w")
	if err != nil {
		t.Fatalf("Fopen src for overwrite: %v", err)
	}
	fh.Write([]byte("changed"))
	fh.Close()

	fh, err = f.Fopen("/dup.txt", "r")
	if err != nil {
		t.Fatalf("Fopen dup: %v", err)
	}
	buf := make([]byte, 32)
	n, err := fh.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "original" {
		t.Fatalf("dup content = %q after src was overwritten, want %q (copy must be independent)", buf[:n], "original")
	}
	fh.Close()
}

func TestOpendirListsEntriesAcrossExtensionBlock(t *testing.T) {
	f := fstest.Mounted(t)
	const n = 25
	for i := 0; i < n; i++ {
		fh, err := f.Fopen(fmt.Sprintf("/f%02d.txt", i), "w")
		if err != nil {
			t.Fatalf("Fopen(f%02d): %v", i, err)
		}
		fh.Close()
	}
	d, err := f.Opendir("/")
	if err != nil {
		t.Fatalf("Opendir: %v", err)
	}
	count := 0
	dots := 0
	for {
		e, ok := d.Readdir()
		if !ok {
			break
		}
		count++
		if e.Type == ffs.DirEntryRoot {
			dots++
		}
	}
	if count != n+2 {
		t.Fatalf("Opendir entry count = %d, want %d (25 files + . + ..)", count, n+2)
	}
	if dots != 2 {
		t.Fatalf("Opendir root-marked entries = %d, want 2", dots)
	}
}

func TestOpendirTagsNonRootDotEntriesAsDir(t *testing.T) {
	f := fstest.Mounted(t)
	if err := f.Mkdir("/docs"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	d, err := f.Opendir("/docs")
	if err != nil {
		t.Fatalf("Opendir: %v", err)
	}
	dots := 0
	for {
		e, ok := d.Readdir()
		if !ok {
			break
		}
		if e.Name != "." && e.Name != ".." {
			continue
		}
		dots++
		if e.Type != ffs.DirEntryDir {
			t.Errorf("non-root %q entry Type = %v, want DirEntryDir", e.Name, e.Type)
		}
		if e.Type == ffs.DirEntryRoot {
			t.Errorf("non-root %q entry tagged DirEntryRoot", e.Name)
		}
	}
	if dots != 2 {
		t.Fatalf("Opendir(/docs) dot entries = %d, want 2", dots)
	}
}

func TestMoveRejectsExistingDestination(t *testing.T) {
	f := fstest.Mounted(t)
	fh, _ := f.Fopen("/a.txt", "w")
	fh.Close()
	fh, _ = f.Fopen("/b.txt", "w")
	fh.Close()
	if err := f.Move("/a.txt", "/b.txt"); err == nil {
		t.Fatalf("Move onto existing destination = nil, want error")
	}
}
