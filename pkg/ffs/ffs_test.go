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
	"errors"
	"testing"

	"github.com/cyantree/ffs/pkg/ffs"
	"github.com/cyantree/ffs/pkg/ffserr"
	"github.com/cyantree/ffs/pkg/fstest"
)

// TestMkfsMountRoundTripWithNestedWrite exercises the spec.md §8 scenario: mkfs, mount,
// nested mkdir, write a file, close, umount, remount, and read it back.
func TestMkfsMountRoundTripWithNestedWrite(t *testing.T) {
	path := fstest.NewImage(t)

	f := ffs.New()
	if err := f.Mount(path); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if err := f.Mkdir("/docs"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := f.Mkdir("/docs/notes"); err != nil {
		t.Fatalf("Mkdir nested: %v", err)
	}
	fh, err := f.Fopen("/docs/notes/a.txt", "w")
	if err != nil {
		t.Fatalf("Fopen: %v", err)
	}
	if _, err := fh.Write([]byte("hello world")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := fh.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := f.Umount(); err != nil {
		t.Fatalf("Umount: %v", err)
	}

	f2 := ffs.New()
	if err := f2.Mount(path); err != nil {
		t.Fatalf("remount: %v", err)
	}
	defer f2.Umount()
	fh2, err := f2.Fopen("/docs/notes/a.txt", "r")
	if err != nil {
		t.Fatalf("Fopen after remount: %v", err)
	}
	buf := make([]byte, 32)
	n, err := fh2.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "hello world" {
		t.Fatalf("Read() = %q, want %q", buf[:n], "hello world")
	}
}

func TestExplicitRollbackLeavesFileAbsent(t *testing.T) {
	f := fstest.Mounted(t)

	if err := f.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	fh, err := f.Fopen("/scratch.txt", "w")
	if err != nil {
		t.Fatalf("Fopen: %v", err)
	}
	if _, err := fh.Write([]byte("discard me")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if f.FileExists("/scratch.txt") {
		t.Fatalf("FileExists(/scratch.txt) = true after rollback, want false")
	}
}

func TestExplicitCommitPersistsAcrossRemount(t *testing.T) {
	path := fstest.NewImage(t)
	f := ffs.New()
	if err := f.Mount(path); err != nil {
		t.Fatalf("Mount: %v", err)
	}

	if err := f.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := f.Mkdir("/keep"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := f.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := f.Umount(); err != nil {
		t.Fatalf("Umount: %v", err)
	}

	f2 := ffs.New()
	if err := f2.Mount(path); err != nil {
		t.Fatalf("remount: %v", err)
	}
	defer f2.Umount()
	if !f2.DirExists("/keep") {
		t.Fatalf("DirExists(/keep) = false after commit+remount, want true")
	}
}

func TestBeginRejectsNesting(t *testing.T) {
	f := fstest.Mounted(t)
	if err := f.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer f.Rollback()
	if err := f.Begin(); err == nil {
		t.Fatalf("nested Begin() = nil, want error")
	}
}

func TestCommitWithoutBeginFails(t *testing.T) {
	f := fstest.Mounted(t)
	if err := f.Commit(); err == nil {
		t.Fatalf("Commit() without Begin = nil, want error")
	}
}

func TestMkdirOnExistingNameFails(t *testing.T) {
	f := fstest.Mounted(t)
	if err := f.Mkdir("/dup"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	err := f.Mkdir("/dup")
	var ferr *ffserr.Error
	if !errors.As(err, &ferr) || ferr.Kind != ffserr.Exists {
		t.Fatalf("Mkdir(dup) error = %v, want ffserr.Exists", err)
	}
}

func TestResolvePathNotFound(t *testing.T) {
	f := fstest.Mounted(t)
	_, err := f.Fopen("/missing/dir/file.txt", "r")
	var ferr *ffserr.Error
	if !errors.As(err, &ferr) || ferr.Kind != ffserr.PathNotFound {
		t.Fatalf("Fopen through missing dir error = %v, want ffserr.PathNotFound", err)
	}
}
