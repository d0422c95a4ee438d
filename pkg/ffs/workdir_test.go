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
	"testing"

	"github.com/cyantree/ffs/pkg/fstest"
)

func TestChdirAndGetcwd(t *testing.T) {
	f := fstest.Mounted(t)
	if err := f.Mkdir("/a"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := f.Mkdir("/a/b"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := f.Chdir("/a/b"); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	got, err := f.Getcwd()
	if err != nil {
		t.Fatalf("Getcwd: %v", err)
	}
	if got != "/a/b" {
		t.Fatalf("Getcwd() = %q, want /a/b", got)
	}

	// A relative path resolves against the new cwd.
	if err := f.Mkdir("c"); err != nil {
		t.Fatalf("Mkdir(relative): %v", err)
	}
	if !f.DirExists("/a/b/c") {
		t.Fatalf("DirExists(/a/b/c) = false after relative Mkdir from /a/b")
	}
}

func TestSetHomeAndTildeResolution(t *testing.T) {
	f := fstest.Mounted(t)
	if err := f.Mkdir("/home1"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := f.SetHome("/home1"); err != nil {
		t.Fatalf("SetHome: %v", err)
	}
	got, err := f.GetHome()
	if err != nil {
		t.Fatalf("GetHome: %v", err)
	}
	if got != "/home1" {
		t.Fatalf("GetHome() = %q, want /home1", got)
	}

	if err := f.Mkdir("~/docs"); err != nil {
		t.Fatalf("Mkdir(~/docs): %v", err)
	}
	if !f.DirExists("/home1/docs") {
		t.Fatalf("DirExists(/home1/docs) = false after Mkdir(~/docs)")
	}
}

func TestSaveAndRestoreWork(t *testing.T) {
	f := fstest.Mounted(t)
	if err := f.Mkdir("/one"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := f.Mkdir("/two"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := f.Chdir("/one"); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	mark := f.SaveWork()

	if err := f.Chdir("/two"); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	got, err := f.Getcwd()
	if err != nil || got != "/two" {
		t.Fatalf("Getcwd() = %q, %v, want /two", got, err)
	}

	f.RestoreWork(mark)
	got, err = f.Getcwd()
	if err != nil || got != "/one" {
		t.Fatalf("Getcwd() after RestoreWork = %q, %v, want /one", got, err)
	}
}

func TestRootGetcwdIsSlash(t *testing.T) {
	f := fstest.Mounted(t)
	got, err := f.Getcwd()
	if err != nil {
		t.Fatalf("Getcwd: %v", err)
	}
	if got != "/" {
		t.Fatalf("Getcwd() on fresh mount = %q, want /", got)
	}
}
