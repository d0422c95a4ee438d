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

package dirent_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyantree/ffs/pkg/block"
	"github.com/cyantree/ffs/pkg/dirent"
)

// openDirTest builds a minimal image (superblock + initialized root
// directory head) and returns it open with a transaction already active,
// so tests can exercise dirent's staged read/write path without involving
// pkg/journal.
func openDirTest(t *testing.T) *block.Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.img")

	var sb [block.Size]byte
	copy(sb[0:4], block.Magic[:])
	block.PutU32(sb[:], 4, 2)
	block.PutU32(sb[:], 8, 0)
	root := dirent.EncodeDirHead(block.RootBlock, 0)

	buf := append(append([]byte{}, sb[:]...), root[:]...)
	if err := os.WriteFile(path, buf, 0666); err != nil {
		t.Fatalf("write test image: %v", err)
	}

	eng, err := block.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	if err := eng.BeginTx(); err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	return eng
}

func fileEntry(t *testing.T, name string) dirent.Entry {
	t.Helper()
	nb, err := dirent.EncodeName(name)
	if err != nil {
		t.Fatalf("EncodeName(%q): %v", name, err)
	}
	return dirent.Entry{State: dirent.TypeFile, Name: nb}
}

func TestLookupFindsDotAndDotDot(t *testing.T) {
	eng := openDirTest(t)
	res, err := dirent.Lookup(eng, block.RootBlock, ".")
	if err != nil {
		t.Fatalf("Lookup(.): %v", err)
	}
	if !res.Found || res.Entry.Start != block.RootBlock {
		t.Fatalf("Lookup(.) = %+v, want Found with Start=%d", res, block.RootBlock)
	}
	res, err = dirent.Lookup(eng, block.RootBlock, "..")
	if err != nil {
		t.Fatalf("Lookup(..): %v", err)
	}
	if !res.Found || res.Entry.Start != 0 {
		t.Fatalf("Lookup(..) = %+v, want Found with Start=0 (root has no parent)", res)
	}
}

func TestAppendFillsHeadBlockThenExtends(t *testing.T) {
	eng := openDirTest(t)

	// The head block holds 20 slots; 2 are "." and "..", leaving room for
	// 18 more before an extension block is needed (spec.md §8 boundary).
	for i := 0; i < 18; i++ {
		if err := dirent.Append(eng, block.RootBlock, fileEntry(t, fmt.Sprintf("f%02d", i))); err != nil {
			t.Fatalf("Append(f%02d): %v", i, err)
		}
	}
	entries, err := dirent.List(eng, block.RootBlock)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 20 {
		t.Fatalf("len(List()) = %d, want 20 (head block exactly full)", len(entries))
	}
	self, err := dirent.ReadEntry(eng, block.RootBlock, dirent.FirstEntryOff)
	if err != nil {
		t.Fatalf("ReadEntry(self): %v", err)
	}
	if self.Stop != block.RootBlock || self.EndOffset != block.Size {
		t.Fatalf("self = %+v, want Stop=%d EndOffset=%d", self, block.RootBlock, block.Size)
	}

	if err := dirent.Append(eng, block.RootBlock, fileEntry(t, "overflow")); err != nil {
		t.Fatalf("Append(overflow): %v", err)
	}
	entries, err = dirent.List(eng, block.RootBlock)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 21 {
		t.Fatalf("len(List()) = %d, want 21 after extension", len(entries))
	}
	self, err = dirent.ReadEntry(eng, block.RootBlock, dirent.FirstEntryOff)
	if err != nil {
		t.Fatalf("ReadEntry(self): %v", err)
	}
	if self.Stop == block.RootBlock {
		t.Fatalf("self.Stop unchanged after overflow append, want a new extension block")
	}
	if self.EndOffset != dirent.HeaderSize+dirent.EntrySize {
		t.Fatalf("self.EndOffset = %d, want %d (one entry into the extension block)", self.EndOffset, dirent.HeaderSize+dirent.EntrySize)
	}
}

func TestRemoveCompactsAndFreesEmptyExtensionBlock(t *testing.T) {
	eng := openDirTest(t)
	for i := 0; i < 19; i++ {
		if err := dirent.Append(eng, block.RootBlock, fileEntry(t, fmt.Sprintf("f%02d", i))); err != nil {
			t.Fatalf("Append(f%02d): %v", i, err)
		}
	}
	// 2 + 19 = 21 entries: head is full (20), one entry lives in an
	// extension block.
	self, err := dirent.ReadEntry(eng, block.RootBlock, dirent.FirstEntryOff)
	if err != nil {
		t.Fatalf("ReadEntry(self): %v", err)
	}
	extBlock := self.Stop
	if extBlock == block.RootBlock {
		t.Fatalf("expected an extension block before removal")
	}

	res, err := dirent.Lookup(eng, block.RootBlock, "f18")
	if err != nil || !res.Found {
		t.Fatalf("Lookup(f18) = %+v, %v", res, err)
	}
	if res.Block != extBlock {
		t.Fatalf("f18 lives in block %d, want extension block %d", res.Block, extBlock)
	}
	if err := dirent.Remove(eng, block.RootBlock, res.Block, res.Offset); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	self, err = dirent.ReadEntry(eng, block.RootBlock, dirent.FirstEntryOff)
	if err != nil {
		t.Fatalf("ReadEntry(self): %v", err)
	}
	if self.Stop != block.RootBlock {
		t.Fatalf("self.Stop = %d after freeing sole extension entry, want head %d", self.Stop, block.RootBlock)
	}
	if self.EndOffset != block.Size {
		t.Fatalf("self.EndOffset = %d, want %d (predecessor was full)", self.EndOffset, block.Size)
	}

	entries, err := dirent.List(eng, block.RootBlock)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 20 {
		t.Fatalf("len(List()) = %d, want 20 after removal", len(entries))
	}

	// Removing one more compacts within the now-sole head block.
	res, err = dirent.Lookup(eng, block.RootBlock, "f05")
	if err != nil || !res.Found {
		t.Fatalf("Lookup(f05) = %+v, %v", res, err)
	}
	if err := dirent.Remove(eng, block.RootBlock, res.Block, res.Offset); err != nil {
		t.Fatalf("Remove(f05): %v", err)
	}
	if found, err := dirent.Lookup(eng, block.RootBlock, "f05"); err != nil || found.Found {
		t.Fatalf("Lookup(f05) after removal = %+v, %v, want not found", found, err)
	}
}

func TestRenameInPlace(t *testing.T) {
	eng := openDirTest(t)
	if err := dirent.Append(eng, block.RootBlock, fileEntry(t, "old")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	res, err := dirent.Lookup(eng, block.RootBlock, "old")
	if err != nil || !res.Found {
		t.Fatalf("Lookup(old) = %+v, %v", res, err)
	}
	if err := dirent.RenameInPlace(eng, res.Block, res.Offset, "new"); err != nil {
		t.Fatalf("RenameInPlace: %v", err)
	}
	if found, err := dirent.Lookup(eng, block.RootBlock, "old"); err != nil || found.Found {
		t.Fatalf("Lookup(old) after rename = %+v, %v, want not found", found, err)
	}
	found, err := dirent.Lookup(eng, block.RootBlock, "new")
	if err != nil || !found.Found {
		t.Fatalf("Lookup(new) after rename = %+v, %v, want found", found, err)
	}
}

func TestCopyChainDuplicatesPayloadAndFreeChainReleasesBlocks(t *testing.T) {
	eng := openDirTest(t)
	b1, err := eng.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	b2, err := eng.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	var buf1 [block.Size]byte
	copy(buf1[dirent.HeaderSize:], []byte("hello"))
	block.PutU32(buf1[:], 4, b2)
	if err := eng.WriteBlock(b1, buf1); err != nil {
		t.Fatalf("WriteBlock(b1): %v", err)
	}
	var buf2 [block.Size]byte
	copy(buf2[dirent.HeaderSize:], []byte("world"))
	block.PutU32(buf2[:], 8, b1)
	if err := eng.WriteBlock(b2, buf2); err != nil {
		t.Fatalf("WriteBlock(b2): %v", err)
	}

	newStart, newStop, err := dirent.CopyChain(eng, b1)
	if err != nil {
		t.Fatalf("CopyChain: %v", err)
	}
	if newStart == b1 || newStop == b2 {
		t.Fatalf("CopyChain reused source blocks: start=%d stop=%d", newStart, newStop)
	}
	got1, err := eng.ReadBlock(newStart)
	if err != nil {
		t.Fatalf("ReadBlock(newStart): %v", err)
	}
	if string(got1[dirent.HeaderSize:dirent.HeaderSize+5]) != "hello" {
		t.Fatalf("copied first block payload = %q, want %q", got1[dirent.HeaderSize:dirent.HeaderSize+5], "hello")
	}
	got2, err := eng.ReadBlock(newStop)
	if err != nil {
		t.Fatalf("ReadBlock(newStop): %v", err)
	}
	if string(got2[dirent.HeaderSize:dirent.HeaderSize+5]) != "world" {
		t.Fatalf("copied second block payload = %q, want %q", got2[dirent.HeaderSize:dirent.HeaderSize+5], "world")
	}

	totalBefore := eng.TotalBlocks()
	if err := dirent.FreeChain(eng, b1); err != nil {
		t.Fatalf("FreeChain: %v", err)
	}
	if _, err := eng.Allocate(); err != nil {
		t.Fatalf("Allocate after FreeChain: %v", err)
	}
	if eng.TotalBlocks() != totalBefore {
		t.Fatalf("TotalBlocks() grew after FreeChain+Allocate (want free-list reuse): %d -> %d", totalBefore, eng.TotalBlocks())
	}
}
