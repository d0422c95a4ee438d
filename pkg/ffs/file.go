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
	"fmt"
	"io"

	"github.com/cyantree/ffs/pkg/block"
	"github.com/cyantree/ffs/pkg/dirent"
	"github.com/cyantree/ffs/pkg/ffserr"
)

// OpenMode is one of the six fopen modes (spec.md §4.4): r, r+, w, w+, a, a+.
type OpenMode int

const (
	modeRead OpenMode = 1 << iota
	modeWrite
	modeMustExist
	modeTruncate
	modeAppend
)

// ParseMode translates a mode string into its OpenMode flags.
func ParseMode(s string) (OpenMode, error) {
	switch s {
	case "r":
		return modeRead | modeMustExist, nil
	case "r+":
		return modeRead | modeWrite | modeMustExist, nil
	case "w":
		return modeWrite | modeTruncate, nil
	case "w+":
		return modeRead | modeWrite | modeTruncate, nil
	case "a":
		return modeWrite | modeAppend, nil
	case "a+":
		return modeRead | modeWrite | modeAppend, nil
	default:
		return 0, ffserr.New(ffserr.NameFormatErr, "fopen", "mode "+s)
	}
}

func (m OpenMode) canRead() bool        { return m&modeRead != 0 }
func (m OpenMode) canWrite() bool       { return m&modeWrite != 0 }
func (m OpenMode) mustExist() bool      { return m&modeMustExist != 0 }
func (m OpenMode) truncateOnOpen() bool { return m&modeTruncate != 0 }
func (m OpenMode) appendPosition() bool { return m&modeAppend != 0 }

// File is an open file handle: a plain client-side value. Closing it does
// no block I/O; every Write call independently stages and (for
// auto-transactions) commits its own transaction, while Read only reads.
type File struct {
	fs *FileFS

	mode OpenMode

	dirHead     uint32
	entryBlock  uint32
	entryOffset uint16

	start, stop uint32
	endOffset   uint16

	posBlock  uint32
	posOffset uint16
	pos       int64

	closed bool
}

// Fopen opens path under mode, creating it if mode permits and it is
// absent, truncating it if mode demands, and positioning at end-of-file
// for append modes.
func (f *FileFS) Fopen(path, modeStr string) (*File, error) {
	mode, err := ParseMode(modeStr)
	if err != nil {
		return nil, err
	}

	var fh *File
	err = f.withTx(func() error {
		parentHead, name, dirOnly, err := f.resolveParent(path)
		if err != nil {
			return err
		}
		if dirOnly {
			return ffserr.New(ffserr.NameFormatErr, "fopen", path)
		}

		res, err := dirent.Lookup(f.eng, parentHead, name)
		if err != nil {
			return ffserr.Wrap(ffserr.IoErr, "fopen", path, err)
		}

		var ent dirent.Entry
		var entBlock uint32
		var entOffset uint16

		switch {
		case res.Found && res.Entry.IsDir():
			return ffserr.New(ffserr.TypeMismatch, "fopen", path)
		case res.Found:
			ent, entBlock, entOffset = res.Entry, res.Block, res.Offset
		case mode.mustExist():
			return ffserr.New(ffserr.FileNotFound, "fopen", path)
		default:
			nameBytes, err := dirent.EncodeName(name)
			if err != nil {
				return ffserr.Wrap(ffserr.NameTooLong, "fopen", path, err)
			}
			newEnt := dirent.Entry{State: dirent.TypeFile, Name: nameBytes}
			if err := dirent.Append(f.eng, parentHead, newEnt); err != nil {
				return ffserr.Wrap(ffserr.IoErr, "fopen", path, err)
			}
			created, err := dirent.Lookup(f.eng, parentHead, name)
			if err != nil || !created.Found {
				return ffserr.Wrap(ffserr.IoErr, "fopen", path, err)
			}
			ent, entBlock, entOffset = created.Entry, created.Block, created.Offset
		}

		if mode.truncateOnOpen() && ent.Start != 0 {
			if err := dirent.FreeChain(f.eng, ent.Start); err != nil {
				return ffserr.Wrap(ffserr.IoErr, "fopen", path, err)
			}
			ent.Start, ent.Stop, ent.EndOffset = 0, 0, 0
			if err := dirent.WriteEntry(f.eng, entBlock, entOffset, ent); err != nil {
				return ffserr.Wrap(ffserr.IoErr, "fopen", path, err)
			}
		}

		fh = &File{
			fs: f, mode: mode,
			dirHead: parentHead, entryBlock: entBlock, entryOffset: entOffset,
			start: ent.Start, stop: ent.Stop, endOffset: ent.EndOffset,
		}
		if mode.appendPosition() {
			return fh.seekToEnd()
		}
		fh.seekToStart()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fh, nil
}

func (fh *File) seekToStart() {
	fh.pos = 0
	fh.posBlock = fh.start
	fh.posOffset = dirent.HeaderSize
}

func (fh *File) seekToEnd() error {
	length, err := fh.chainLength()
	if err != nil {
		return err
	}
	fh.pos = length
	fh.posBlock = fh.stop
	fh.posOffset = fh.endOffset
	if fh.start == 0 {
		fh.posOffset = dirent.HeaderSize
	}
	return nil
}

// chainLength walks the content chain, summing each non-tail block's full
// payload plus the tail's used bytes.
func (fh *File) chainLength() (int64, error) {
	n, err := dirent.ChainLength(fh.fs.eng, fh.start, fh.stop, fh.endOffset)
	if err != nil {
		return 0, ffserr.Wrap(ffserr.IoErr, "fseek", "", err)
	}
	return n, nil
}

// Read implements io.Reader, stopping at the recorded end of the file.
func (fh *File) Read(p []byte) (int, error) {
	if fh.closed {
		return 0, fmt.Errorf("ffs: read on closed file")
	}
	if !fh.mode.canRead() {
		return 0, ffserr.New(ffserr.IoErr, "fread", "file not opened for reading")
	}
	if fh.start == 0 || len(p) == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	total := 0
	for total < len(p) {
		if fh.posBlock == fh.stop && fh.posOffset >= fh.endOffset {
			break
		}
		buf, err := fh.fs.eng.ReadBlock(fh.posBlock)
		if err != nil {
			return total, ffserr.Wrap(ffserr.IoErr, "fread", "", err)
		}
		limit := uint16(block.Size)
		if fh.posBlock == fh.stop {
			limit = fh.endOffset
		}
		avail := int(limit - fh.posOffset)
		n := len(p) - total
		if n > avail {
			n = avail
		}
		copy(p[total:total+n], buf[fh.posOffset:fh.posOffset+uint16(n)])
		fh.posOffset += uint16(n)
		fh.pos += int64(n)
		total += n
		if fh.posOffset >= block.Size && fh.posBlock != fh.stop {
			fh.posBlock = dirent.Next(buf)
			fh.posOffset = dirent.HeaderSize
		}
	}
	if total == 0 {
		return 0, io.EOF
	}
	return total, nil
}

// Write implements io.Writer, growing the content chain as needed and
// writing back the owning directory entry's start/stop/end_offset.
func (fh *File) Write(p []byte) (int, error) {
	if fh.closed {
		return 0, fmt.Errorf("ffs: write on closed file")
	}
	if !fh.mode.canWrite() {
		return 0, ffserr.New(ffserr.IoErr, "fwrite", "file not opened for writing")
	}

	written := 0
	err := fh.fs.withTx(func() error {
		if fh.start == 0 && len(p) > 0 {
			idx, err := fh.fs.eng.Allocate()
			if err != nil {
				return ffserr.Wrap(ffserr.IoErr, "fwrite", "", err)
			}
			var buf [block.Size]byte
			if err := fh.fs.eng.WriteBlock(idx, buf); err != nil {
				return ffserr.Wrap(ffserr.IoErr, "fwrite", "", err)
			}
			fh.start, fh.stop, fh.endOffset = idx, idx, dirent.HeaderSize
			fh.posBlock, fh.posOffset = idx, dirent.HeaderSize
		}

		remaining := p
		for len(remaining) > 0 {
			if fh.posOffset >= block.Size {
				buf, err := fh.fs.eng.ReadBlock(fh.posBlock)
				if err != nil {
					return ffserr.Wrap(ffserr.IoErr, "fwrite", "", err)
				}
				if fh.posBlock == fh.stop {
					next, err := fh.fs.eng.Allocate()
					if err != nil {
						return ffserr.Wrap(ffserr.IoErr, "fwrite", "", err)
					}
					var nbuf [block.Size]byte
					block.PutU32(nbuf[:], 8, fh.posBlock)
					if err := fh.fs.eng.WriteBlock(next, nbuf); err != nil {
						return ffserr.Wrap(ffserr.IoErr, "fwrite", "", err)
					}
					block.PutU32(buf[:], 4, next)
					if err := fh.fs.eng.WriteBlock(fh.posBlock, buf); err != nil {
						return ffserr.Wrap(ffserr.IoErr, "fwrite", "", err)
					}
					fh.stop = next
					fh.posBlock = next
					fh.posOffset = dirent.HeaderSize
				} else {
					fh.posBlock = dirent.Next(buf)
					fh.posOffset = dirent.HeaderSize
				}
			}

			buf, err := fh.fs.eng.ReadBlock(fh.posBlock)
			if err != nil {
				return ffserr.Wrap(ffserr.IoErr, "fwrite", "", err)
			}
			n := copy(buf[fh.posOffset:], remaining)
			if err := fh.fs.eng.WriteBlock(fh.posBlock, buf); err != nil {
				return ffserr.Wrap(ffserr.IoErr, "fwrite", "", err)
			}
			fh.posOffset += uint16(n)
			fh.pos += int64(n)
			remaining = remaining[n:]
			written += n
			if fh.posBlock == fh.stop && fh.posOffset > fh.endOffset {
				fh.endOffset = fh.posOffset
			}
		}
		return fh.writebackEntry()
	})
	return written, err
}

func (fh *File) writebackEntry() error {
	ent, err := dirent.ReadEntry(fh.fs.eng, fh.entryBlock, fh.entryOffset)
	if err != nil {
		return ffserr.Wrap(ffserr.IoErr, "fwrite", "", err)
	}
	ent.Start, ent.Stop, ent.EndOffset = fh.start, fh.stop, fh.endOffset
	if err := dirent.WriteEntry(fh.fs.eng, fh.entryBlock, fh.entryOffset, ent); err != nil {
		return ffserr.Wrap(ffserr.IoErr, "fwrite", "", err)
	}
	return nil
}

// Seek implements io.Seeker. Forward motion follows next pointers,
// backward motion follows prev pointers; both clamp to [0, length]. This
// is the corrected behavior called out in spec.md's Open Questions: the
// source reads the wrong header field for some SEEK_CUR cases, which this
// implementation does not reproduce.
func (fh *File) Seek(offset int64, whence int) (int64, error) {
	if fh.closed {
		return 0, fmt.Errorf("ffs: seek on closed file")
	}
	length, err := fh.chainLength()
	if err != nil {
		return 0, err
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = fh.pos + offset
	case io.SeekEnd:
		target = length + offset
	default:
		return 0, fmt.Errorf("ffs: invalid whence %d", whence)
	}
	if target < 0 {
		target = 0
	}
	if target > length {
		target = length
	}

	if fh.start == 0 {
		fh.pos = 0
		return 0, nil
	}

	for fh.pos < target {
		blockLimit := int64(block.Size)
		if fh.posBlock == fh.stop {
			blockLimit = int64(fh.endOffset)
		}
		step := target - fh.pos
		remainInBlock := blockLimit - int64(fh.posOffset)
		if step > remainInBlock {
			step = remainInBlock
		}
		fh.posOffset += uint16(step)
		fh.pos += step
		if fh.pos < target {
			buf, err := fh.fs.eng.ReadBlock(fh.posBlock)
			if err != nil {
				return fh.pos, ffserr.Wrap(ffserr.IoErr, "fseek", "", err)
			}
			fh.posBlock = dirent.Next(buf)
			fh.posOffset = dirent.HeaderSize
		}
	}
	for fh.pos > target {
		if fh.posOffset <= dirent.HeaderSize {
			buf, err := fh.fs.eng.ReadBlock(fh.posBlock)
			if err != nil {
				return fh.pos, ffserr.Wrap(ffserr.IoErr, "fseek", "", err)
			}
			fh.posBlock = dirent.Prev(buf)
			fh.posOffset = block.Size
		}
		step := fh.pos - target
		remainBack := int64(fh.posOffset) - dirent.HeaderSize
		if step > remainBack {
			step = remainBack
		}
		fh.posOffset -= uint16(step)
		fh.pos -= step
	}
	return fh.pos, nil
}

// Tell returns the current byte position, equivalent to Seek(0, io.SeekCurrent).
func (fh *File) Tell() int64 { return fh.pos }

// Rewind resets the position to the start of the file.
func (fh *File) Rewind() error {
	_, err := fh.Seek(0, io.SeekStart)
	return err
}

// Close marks the handle unusable. It performs no block I/O: per spec.md
// §5, client-held file handles are plain values with no I/O cost to
// deallocate.
func (fh *File) Close() error {
	fh.closed = true
	return nil
}
