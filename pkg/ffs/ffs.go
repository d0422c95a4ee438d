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

// Package ffs implements the public library surface of the single-file
// virtual filesystem: lifecycle (mkfs/mount/umount), file I/O, namespace
// operations, working-directory state, and explicit transactions. It
// composes pkg/block (L1) and pkg/journal (L2) under pkg/dirent's (L3)
// directory and file-content chain primitives, resolving paths with
// pkg/pathutil (L4).
package ffs

import (
	"fmt"

	"github.com/google/renameio"

	"github.com/cyantree/ffs/pkg/block"
	"github.com/cyantree/ffs/pkg/dirent"
	"github.com/cyantree/ffs/pkg/ffserr"
	"github.com/cyantree/ffs/pkg/journal"
	"github.com/cyantree/ffs/pkg/pathutil"
)

// FileFS is one mounted instance of the virtual filesystem. The zero value
// via New is unmounted; Mount attaches it to an image file.
type FileFS struct {
	eng *block.Engine

	cwd uint32
	home uint32

	explicit  bool
	savedCwd  uint32
	savedHome uint32
}

// New creates an unmounted filesystem instance.
func New() *FileFS {
	return &FileFS{}
}

// Mkfs creates a brand-new, minimal image at path: a superblock (total
// blocks = 2, empty free list) followed by an empty root directory head at
// block 1. The image is written atomically via a temp-file-plus-rename so
// a concurrent reader never observes a partially written file.
func Mkfs(path string) error {
	var sb [block.Size]byte
	copy(sb[0:4], block.Magic[:])
	block.PutU32(sb[:], 4, 2)
	block.PutU32(sb[:], 8, 0)

	root := dirent.EncodeDirHead(block.RootBlock, 0)

	buf := make([]byte, 0, 2*block.Size)
	buf = append(buf, sb[:]...)
	buf = append(buf, root[:]...)

	if err := renameio.WriteFile(path, buf, 0666); err != nil {
		return ffserr.Wrap(ffserr.IoErr, "mkfs", path, err)
	}
	return nil
}

// Mount opens an existing image, replaying any pending journal (crash
// recovery) before the instance becomes usable. cwd and home both start at
// the root.
func (f *FileFS) Mount(path string) error {
	if f.eng != nil {
		return fmt.Errorf("ffs: already mounted")
	}
	eng, err := block.Open(path)
	if err != nil {
		return ffserr.Wrap(ffserr.IoErr, "mount", path, err)
	}
	if err := journal.Recover(eng); err != nil {
		eng.Close()
		return ffserr.Wrap(ffserr.IoErr, "mount", path, err)
	}
	f.eng = eng
	f.cwd = block.RootBlock
	f.home = block.RootBlock
	return nil
}

// Umount closes the underlying image, cp, and add handles. It does not
// implicitly commit or roll back a pending explicit transaction; callers
// must do so themselves.
func (f *FileFS) Umount() error {
	if f.eng == nil {
		return ffserr.New(ffserr.NotMounted, "umount", "")
	}
	err := f.eng.Close()
	f.eng = nil
	return err
}

// Close is an alias for Umount satisfying io.Closer; it is a no-op on an
// already-unmounted instance.
func (f *FileFS) Close() error {
	if f.eng == nil {
		return nil
	}
	return f.Umount()
}

func (f *FileFS) IsMounted() bool { return f.eng != nil }

// Engine exposes the underlying block engine for diagnostic tooling
// (pkg/fsck). Ordinary callers building on the namespace/file API above
// should not need it.
func (f *FileFS) Engine() *block.Engine { return f.eng }

// RootHead is the fixed block index of the root directory, exported for
// diagnostic tooling that needs to start its own walk.
const RootHead = block.RootBlock

// Begin opens an explicit transaction. Subsequent mutators layer their
// writes onto it instead of auto-committing; Commit or Rollback ends it.
func (f *FileFS) Begin() error {
	if f.eng == nil {
		return ffserr.New(ffserr.NotMounted, "begin", "")
	}
	if f.eng.InTx() {
		return fmt.Errorf("ffs: transaction already active")
	}
	if err := f.eng.BeginTx(); err != nil {
		return ffserr.Wrap(ffserr.IoErr, "begin", "", err)
	}
	f.explicit = true
	f.savedCwd, f.savedHome = f.cwd, f.home
	return nil
}

// Commit durably applies the active explicit transaction.
func (f *FileFS) Commit() error {
	if !f.explicit {
		return fmt.Errorf("ffs: no explicit transaction active")
	}
	if err := journal.Commit(f.eng); err != nil {
		return ffserr.Wrap(ffserr.IoErr, "commit", "", err)
	}
	f.explicit = false
	return nil
}

// Rollback discards the active explicit transaction's staged blocks and
// restores cwd/home to their values at Begin. The image was never mutated
// beyond recoverable journal_slot prefix bytes; the only journal work is
// journal.Discard, which marks any leftover journal file not-ready and
// truncates it.
func (f *FileFS) Rollback() error {
	if !f.explicit {
		return fmt.Errorf("ffs: no explicit transaction active")
	}
	if err := f.eng.Rollback(); err != nil {
		return ffserr.Wrap(ffserr.IoErr, "rollback", "", err)
	}
	if err := journal.Discard(f.eng); err != nil {
		return ffserr.Wrap(ffserr.IoErr, "rollback", "", err)
	}
	f.cwd, f.home = f.savedCwd, f.savedHome
	f.explicit = false
	return nil
}

// withTx runs fn as an auto-transaction when no explicit transaction is
// active (committing on success, discarding on failure), or layers fn onto
// the caller's already-open explicit transaction, leaving it open on
// failure so the caller may inspect the error and Rollback.
func (f *FileFS) withTx(fn func() error) error {
	if f.eng == nil {
		return ffserr.New(ffserr.NotMounted, "tx", "")
	}
	if f.eng.InTx() {
		return fn()
	}
	if err := f.eng.BeginTx(); err != nil {
		return ffserr.Wrap(ffserr.IoErr, "tx", "", err)
	}
	savedCwd, savedHome := f.cwd, f.home
	if err := fn(); err != nil {
		f.eng.Rollback()
		journal.Discard(f.eng)
		f.cwd, f.home = savedCwd, savedHome
		return err
	}
	if err := journal.Commit(f.eng); err != nil {
		return ffserr.Wrap(ffserr.IoErr, "tx", "", err)
	}
	return nil
}

// startDir picks the directory a path resolves relative to: root for a
// leading "/", home for a leading "~", otherwise the current working
// directory.
func (f *FileFS) startDir(rooted, homeRooted bool) uint32 {
	switch {
	case rooted:
		return block.RootBlock
	case homeRooted:
		return f.home
	default:
		return f.cwd
	}
}

// walk resolves a sequence of path components (including "..", which is
// honored via each directory's parent entry) starting
// from start, requiring every intermediate and final component to be a
// directory.
func (f *FileFS) walk(comps []string, start uint32) (uint32, error) {
	cur := start
	for _, c := range comps {
		if len(c) > 14 {
			return 0, ffserr.New(ffserr.NameTooLong, "resolve", c)
		}
		res, err := dirent.Lookup(f.eng, cur, c)
		if err != nil {
			return 0, ffserr.Wrap(ffserr.IoErr, "resolve", c, err)
		}
		if !res.Found {
			return 0, ffserr.New(ffserr.PathNotFound, "resolve", c)
		}
		if !res.Entry.IsDir() {
			return 0, ffserr.New(ffserr.TypeMismatch, "resolve", c)
		}
		cur = res.Entry.Start
	}
	return cur, nil
}

// resolveDirHead resolves path to a directory head block index.
func (f *FileFS) resolveDirHead(path string) (uint32, error) {
	if f.eng == nil {
		return 0, ffserr.New(ffserr.NotMounted, "resolve", path)
	}
	comps, rooted, homeRooted, _ := pathutil.Split(path)
	return f.walk(comps, f.startDir(rooted, homeRooted))
}

// resolveParent splits path into the directory holding its final
// component and that component's bare name, walking every component
// before it.
func (f *FileFS) resolveParent(path string) (parentHead uint32, name string, dirOnly bool, err error) {
	if f.eng == nil {
		return 0, "", false, ffserr.New(ffserr.NotMounted, "resolve", path)
	}
	comps, rooted, homeRooted, dirOnly := pathutil.Split(path)
	if len(comps) == 0 {
		return 0, "", dirOnly, ffserr.New(ffserr.NameFormatErr, "resolve", path)
	}
	name = comps[len(comps)-1]
	if name == "." || name == ".." {
		return 0, "", dirOnly, ffserr.New(ffserr.NameFormatErr, "resolve", path)
	}
	if len(name) > 14 {
		return 0, "", dirOnly, ffserr.New(ffserr.NameTooLong, "resolve", path)
	}
	parentHead, err = f.walk(comps[:len(comps)-1], f.startDir(rooted, homeRooted))
	return parentHead, name, dirOnly, err
}
