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

package ffs

import (
	"github.com/cyantree/ffs/pkg/dirent"
	"github.com/cyantree/ffs/pkg/ffserr"
)

// FileExists reports whether path names an existing regular file.
func (f *FileFS) FileExists(path string) bool {
	if f.eng == nil {
		return false
	}
	parentHead, name, dirOnly, err := f.resolveParent(path)
	if err != nil || dirOnly {
		return false
	}
	res, err := dirent.Lookup(f.eng, parentHead, name)
	return err == nil && res.Found && res.Entry.IsFile()
}

// DirExists reports whether path names an existing directory.
func (f *FileFS) DirExists(path string) bool {
	if f.eng == nil {
		return false
	}
	_, err := f.resolveDirHead(path)
	return err == nil
}

// Stat reports a regular file's content length in bytes, without the
// open/seek-to-end workaround the original shell's "filesize" command used.
func (f *FileFS) Stat(path string) (int64, error) {
	parentHead, name, dirOnly, err := f.resolveParent(path)
	if err != nil {
		return 0, err
	}
	if dirOnly {
		return 0, ffserr.New(ffserr.NameFormatErr, "stat", path)
	}
	res, err := dirent.Lookup(f.eng, parentHead, name)
	if err != nil {
		return 0, ffserr.Wrap(ffserr.IoErr, "stat", path, err)
	}
	if !res.Found {
		return 0, ffserr.New(ffserr.FileNotFound, "stat", path)
	}
	if res.Entry.IsDir() {
		return 0, ffserr.New(ffserr.TypeMismatch, "stat", path)
	}
	n, err := dirent.ChainLength(f.eng, res.Entry.Start, res.Entry.Stop, res.Entry.EndOffset)
	if err != nil {
		return 0, ffserr.Wrap(ffserr.IoErr, "stat", path, err)
	}
	return n, nil
}

// Remove deletes a regular file, freeing its content chain.
func (f *FileFS) Remove(path string) error {
	return f.withTx(func() error {
		parentHead, name, _, err := f.resolveParent(path)
		if err != nil {
			return err
		}
		res, err := dirent.Lookup(f.eng, parentHead, name)
		if err != nil {
			return ffserr.Wrap(ffserr.IoErr, "remove", path, err)
		}
		if !res.Found {
			return ffserr.New(ffserr.FileNotFound, "remove", path)
		}
		if res.Entry.IsDir() {
			return ffserr.New(ffserr.TypeMismatch, "remove", path)
		}
		if res.Entry.Start != 0 {
			if err := dirent.FreeChain(f.eng, res.Entry.Start); err != nil {
				return ffserr.Wrap(ffserr.IoErr, "remove", path, err)
			}
		}
		return dirent.Remove(f.eng, parentHead, res.Block, res.Offset)
	})
}

// Rename changes the name of the entry at oldPath to newName, keeping it
// in its current parent directory.
func (f *FileFS) Rename(oldPath, newName string) error {
	return f.withTx(func() error {
		parentHead, name, _, err := f.resolveParent(oldPath)
		if err != nil {
			return err
		}
		if newName == "" || newName == "." || newName == ".." {
			return ffserr.New(ffserr.NameFormatErr, "rename", newName)
		}
		if len(newName) > 14 {
			return ffserr.New(ffserr.NameTooLong, "rename", newName)
		}
		res, err := dirent.Lookup(f.eng, parentHead, name)
		if err != nil {
			return ffserr.Wrap(ffserr.IoErr, "rename", oldPath, err)
		}
		if !res.Found {
			return ffserr.New(ffserr.PathNotFound, "rename", oldPath)
		}
		dup, err := dirent.Lookup(f.eng, parentHead, newName)
		if err != nil {
			return ffserr.Wrap(ffserr.IoErr, "rename", newName, err)
		}
		if dup.Found {
			return ffserr.New(ffserr.Exists, "rename", newName)
		}
		return dirent.RenameInPlace(f.eng, res.Block, res.Offset, newName)
	})
}

// Move relocates the entry at oldPath to newPath, which may name a
// different parent directory and/or a different name. Moving a directory
// updates its ".." entry to point at the new parent.
func (f *FileFS) Move(oldPath, newPath string) error {
	return f.withTx(func() error {
		srcParent, srcName, _, err := f.resolveParent(oldPath)
		if err != nil {
			return err
		}
		dstParent, dstName, dstDirOnly, err := f.resolveParent(newPath)
		if err != nil {
			return err
		}

		res, err := dirent.Lookup(f.eng, srcParent, srcName)
		if err != nil {
			return ffserr.Wrap(ffserr.IoErr, "move", oldPath, err)
		}
		if !res.Found {
			return ffserr.New(ffserr.PathNotFound, "move", oldPath)
		}
		if dstDirOnly && !res.Entry.IsDir() {
			return ffserr.New(ffserr.TypeMismatch, "move", newPath)
		}
		dup, err := dirent.Lookup(f.eng, dstParent, dstName)
		if err != nil {
			return ffserr.Wrap(ffserr.IoErr, "move", newPath, err)
		}
		if dup.Found {
			return ffserr.New(ffserr.Exists, "move", newPath)
		}

		nameBytes, err := dirent.EncodeName(dstName)
		if err != nil {
			return ffserr.Wrap(ffserr.NameTooLong, "move", newPath, err)
		}
		moved := res.Entry
		moved.Name = nameBytes
		if err := dirent.Append(f.eng, dstParent, moved); err != nil {
			return ffserr.Wrap(ffserr.IoErr, "move", newPath, err)
		}
		if err := dirent.Remove(f.eng, srcParent, res.Block, res.Offset); err != nil {
			return ffserr.Wrap(ffserr.IoErr, "move", oldPath, err)
		}
		if res.Entry.IsDir() {
			if err := dirent.SetParentHead(f.eng, res.Entry.Start, dstParent); err != nil {
				return ffserr.Wrap(ffserr.IoErr, "move", newPath, err)
			}
		}
		return nil
	})
}

// Copy duplicates a regular file's content chain under a new directory
// entry at dstPath.
func (f *FileFS) Copy(srcPath, dstPath string) error {
	return f.withTx(func() error {
		srcParent, srcName, _, err := f.resolveParent(srcPath)
		if err != nil {
			return err
		}
		dstParent, dstName, _, err := f.resolveParent(dstPath)
		if err != nil {
			return err
		}

		res, err := dirent.Lookup(f.eng, srcParent, srcName)
		if err != nil {
			return ffserr.Wrap(ffserr.IoErr, "copy", srcPath, err)
		}
		if !res.Found {
			return ffserr.New(ffserr.FileNotFound, "copy", srcPath)
		}
		if res.Entry.IsDir() {
			return ffserr.New(ffserr.TypeMismatch, "copy", srcPath)
		}
		dup, err := dirent.Lookup(f.eng, dstParent, dstName)
		if err != nil {
			return ffserr.Wrap(ffserr.IoErr, "copy", dstPath, err)
		}
		if dup.Found {
			return ffserr.New(ffserr.Exists, "copy", dstPath)
		}

		newStart, newStop, err := dirent.CopyChain(f.eng, res.Entry.Start)
		if err != nil {
			return ffserr.Wrap(ffserr.IoErr, "copy", dstPath, err)
		}
		nameBytes, err := dirent.EncodeName(dstName)
		if err != nil {
			return ffserr.Wrap(ffserr.NameTooLong, "copy", dstPath, err)
		}
		newEnt := dirent.Entry{State: dirent.TypeFile, Name: nameBytes, Start: newStart, Stop: newStop, EndOffset: res.Entry.EndOffset}
		return dirent.Append(f.eng, dstParent, newEnt)
	})
}

// Mkdir creates an empty directory at path.
func (f *FileFS) Mkdir(path string) error {
	return f.withTx(func() error {
		parentHead, name, _, err := f.resolveParent(path)
		if err != nil {
			return err
		}
		res, err := dirent.Lookup(f.eng, parentHead, name)
		if err != nil {
			return ffserr.Wrap(ffserr.IoErr, "mkdir", path, err)
		}
		if res.Found {
			return ffserr.New(ffserr.Exists, "mkdir", path)
		}

		childHead, err := f.eng.Allocate()
		if err != nil {
			return ffserr.Wrap(ffserr.IoErr, "mkdir", path, err)
		}
		if err := dirent.InitDirHead(f.eng, childHead, parentHead); err != nil {
			return ffserr.Wrap(ffserr.IoErr, "mkdir", path, err)
		}
		nameBytes, err := dirent.EncodeName(name)
		if err != nil {
			return ffserr.Wrap(ffserr.NameTooLong, "mkdir", path, err)
		}
		ent := dirent.Entry{State: dirent.TypeDir, Name: nameBytes, Start: childHead}
		return dirent.Append(f.eng, parentHead, ent)
	})
}

// Rmdir removes an empty directory (containing only "." and "..") at path.
func (f *FileFS) Rmdir(path string) error {
	return f.withTx(func() error {
		parentHead, name, _, err := f.resolveParent(path)
		if err != nil {
			return err
		}
		res, err := dirent.Lookup(f.eng, parentHead, name)
		if err != nil {
			return ffserr.Wrap(ffserr.IoErr, "rmdir", path, err)
		}
		if !res.Found {
			return ffserr.New(ffserr.PathNotFound, "rmdir", path)
		}
		if !res.Entry.IsDir() {
			return ffserr.New(ffserr.TypeMismatch, "rmdir", path)
		}
		childHead := res.Entry.Start
		entries, err := dirent.List(f.eng, childHead)
		if err != nil {
			return ffserr.Wrap(ffserr.IoErr, "rmdir", path, err)
		}
		if len(entries) > 2 {
			return ffserr.New(ffserr.NotEmpty, "rmdir", path)
		}
		if err := f.eng.Free(childHead); err != nil {
			return ffserr.Wrap(ffserr.IoErr, "rmdir", path, err)
		}
		return dirent.Remove(f.eng, parentHead, res.Block, res.Offset)
	})
}

// DirEntryType classifies entries yielded by Readdir.
type DirEntryType int

const (
	DirEntryFile DirEntryType = iota
	DirEntryDir
	DirEntryRoot
)

// DirListing is one entry returned by Dir.Readdir.
type DirListing struct {
	Type DirEntryType
	Name string
}

// Dir is an open directory listing, captured in full at Opendir time.
type Dir struct {
	entries []DirListing
	pos     int
}

// Opendir lists the directory at path.
func (f *FileFS) Opendir(path string) (*Dir, error) {
	head, err := f.resolveDirHead(path)
	if err != nil {
		return nil, err
	}
	ents, err := dirent.List(f.eng, head)
	if err != nil {
		return nil, ffserr.Wrap(ffserr.IoErr, "opendir", path, err)
	}
	out := make([]DirListing, 0, len(ents))
	for _, e := range ents {
		name := e.NameString()
		t := DirEntryFile
		switch {
		case (name == "." || name == "..") && head == RootHead:
			t = DirEntryRoot
		case name == "." || name == "..", e.IsDir():
			t = DirEntryDir
		}
		out = append(out, DirListing{Type: t, Name: name})
	}
	return &Dir{entries: out}, nil
}

// Readdir returns the next entry, or ok=false once exhausted.
func (d *Dir) Readdir() (entry DirListing, ok bool) {
	if d.pos >= len(d.entries) {
		return DirListing{}, false
	}
	entry = d.entries[d.pos]
	d.pos++
	return entry, true
}

// Close releases the listing. It performs no block I/O.
func (d *Dir) Close() error { return nil }
