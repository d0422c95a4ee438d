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

// Package fstest provides test fixtures shared across the ffs test suite:
// scratch image creation/teardown and a log redirector.
package fstest

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cyantree/ffs/pkg/block"
	"github.com/cyantree/ffs/pkg/ffs"
)

// TLog redirects the log package's output to t for the duration of a test
// and returns a function that restores stderr.
func TLog(t testing.TB) func() {
	log.SetOutput(twriter{t: t})
	return func() {
		log.SetOutput(os.Stderr)
	}
}

type twriter struct{ t testing.TB }

func (w twriter) Write(p []byte) (int, error) {
	if w.t != nil {
		w.t.Log(strings.TrimSuffix(string(p), "\n"))
	}
	return len(p), nil
}

// NewImage creates a fresh image in a t.TempDir() and returns its path. The
// temp directory is removed automatically at test cleanup, taking the
// image plus its -cp/-add/-j side files with it.
func NewImage(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ffs")
	if err := ffs.Mkfs(path); err != nil {
		t.Fatalf("fstest: mkfs: %v", err)
	}
	return path
}

// Mounted creates a fresh image and returns it mounted, registering a
// cleanup that unmounts it.
func Mounted(t testing.TB) *ffs.FileFS {
	t.Helper()
	path := NewImage(t)
	f := ffs.New()
	if err := f.Mount(path); err != nil {
		t.Fatalf("fstest: mount: %v", err)
	}
	t.Cleanup(func() {
		if f.IsMounted() {
			f.Umount()
		}
	})
	return f
}

// SideFiles returns the -cp, -add, -j paths associated with imagePath, for
// tests that want to assert on their presence/size directly.
func SideFiles(imagePath string) (cp, add, journal string) {
	return block.CPPath(imagePath), block.AddPath(imagePath), block.JournalPath(imagePath)
}
