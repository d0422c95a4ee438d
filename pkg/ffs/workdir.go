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
	"github.com/cyantree/ffs/pkg/block"
	"github.com/cyantree/ffs/pkg/dirent"
	"github.com/cyantree/ffs/pkg/ffserr"
	"github.com/cyantree/ffs/pkg/pathutil"
)

// Chdir changes the current working directory.
func (f *FileFS) Chdir(path string) error {
	head, err := f.resolveDirHead(path)
	if err != nil {
		return err
	}
	f.cwd = head
	return nil
}

// SetHome changes the "~"-relative home directory.
func (f *FileFS) SetHome(path string) error {
	head, err := f.resolveDirHead(path)
	if err != nil {
		return err
	}
	f.home = head
	return nil
}

// GetHome returns the absolute path of the current home directory.
func (f *FileFS) GetHome() (string, error) { return f.pathOf(f.home) }

// Getcwd returns the absolute path of the current working directory.
func (f *FileFS) Getcwd() (string, error) { return f.pathOf(f.cwd) }

// pathOf reconstructs an absolute path by walking ".." entries up to the
// root, reading each ancestor's own listing to recover the child's name.
func (f *FileFS) pathOf(head uint32) (string, error) {
	if f.eng == nil {
		return "", ffserr.New(ffserr.NotMounted, "getcwd", "")
	}
	var comps []string
	cur := head
	for cur != block.RootBlock {
		dotdot, err := dirent.Lookup(f.eng, cur, "..")
		if err != nil {
			return "", ffserr.Wrap(ffserr.IoErr, "getcwd", "", err)
		}
		parent := dotdot.Entry.Start
		siblings, err := dirent.List(f.eng, parent)
		if err != nil {
			return "", ffserr.Wrap(ffserr.IoErr, "getcwd", "", err)
		}
		name := ""
		for _, e := range siblings {
			if e.IsDir() && e.Start == cur {
				name = e.NameString()
				break
			}
		}
		comps = append([]string{name}, comps...)
		cur = parent
	}
	return pathutil.Join(comps), nil
}

// WorkMark is a saved working directory, produced by SaveWork and consumed
// by RestoreWork (the setwork/chwork pair of spec.md §6).
type WorkMark uint32

// SaveWork captures the current working directory.
func (f *FileFS) SaveWork() WorkMark { return WorkMark(f.cwd) }

// RestoreWork restores a working directory captured by SaveWork.
func (f *FileFS) RestoreWork(m WorkMark) { f.cwd = uint32(m) }
