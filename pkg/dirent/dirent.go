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

// Package dirent implements spec layer L3: interpreting blocks as
// directory-entry chains and file-content chains on top of pkg/block's
// logical block store. It owns the 25-byte entry encoding, the head
// block's self-tracking first entry, chain extension/compaction, and the
// generic doubly-linked chain primitives file content reuses.
//
// None of this package talks to the journal or to path strings; a Lookup
// here takes a head block index and a bare component name, matching the
// sequential-scan shape of a blob-store enumerator generalized to a fixed
// 20-slots-per-block directory page.
package dirent

import (
	"fmt"

	"github.com/cyantree/ffs/pkg/block"
)

const (
	EntrySize       = 25
	HeaderSize      = 12
	FirstEntryOff   = HeaderSize
	entriesPerBlock = (block.Size - HeaderSize) / EntrySize // 20

	nameLen = 14

	// Entry.State low bit.
	TypeDir  = 0
	TypeFile = 1
)

// Entry is the decoded form of a 25-byte directory entry.
type Entry struct {
	State     byte
	Name      [nameLen]byte
	Start     uint32
	Stop      uint32
	EndOffset uint16
}

func (e Entry) IsFile() bool { return e.State&1 == TypeFile }
func (e Entry) IsDir() bool  { return e.State&1 == TypeDir }

// NameString returns the entry's name trimmed at the first NUL byte.
func (e Entry) NameString() string {
	for i, b := range e.Name {
		if b == 0 {
			return string(e.Name[:i])
		}
	}
	return string(e.Name[:])
}

// EncodeName NUL-pads name into a fixed 14-byte field. It returns an error
// if name is empty or longer than 14 bytes; callers enforce the "." / ".."
// reservation themselves since only the two fixed directory slots may use
// them.
func EncodeName(name string) ([nameLen]byte, error) {
	var out [nameLen]byte
	if name == "" {
		return out, fmt.Errorf("dirent: empty name")
	}
	if len(name) > nameLen {
		return out, fmt.Errorf("dirent: name %q exceeds %d bytes", name, nameLen)
	}
	copy(out[:], name)
	return out, nil
}

func decodeEntry(b []byte) Entry {
	var e Entry
	e.State = b[0]
	copy(e.Name[:], b[1:1+nameLen])
	e.Start = block.ReadU32(b, 1+nameLen)
	e.Stop = block.ReadU32(b, 1+nameLen+4)
	e.EndOffset = block.ReadU16(b, 1+nameLen+8)
	return e
}

func encodeEntry(e Entry, b []byte) {
	b[0] = e.State
	copy(b[1:1+nameLen], e.Name[:])
	block.PutU32(b, 1+nameLen, e.Start)
	block.PutU32(b, 1+nameLen+4, e.Stop)
	block.PutU16(b, 1+nameLen+8, e.EndOffset)
}

// ReadEntry decodes the entry at byte offset off within block idx.
func ReadEntry(e *block.Engine, idx uint32, off uint16) (Entry, error) {
	buf, err := e.ReadBlock(idx)
	if err != nil {
		return Entry{}, fmt.Errorf("dirent: read entry at block %d/%d: %w", idx, off, err)
	}
	return decodeEntry(buf[off : off+EntrySize]), nil
}

// WriteEntry writes ent at byte offset off within block idx, preserving
// the rest of the block's bytes.
func WriteEntry(e *block.Engine, idx uint32, off uint16, ent Entry) error {
	buf, err := e.ReadBlock(idx)
	if err != nil {
		return fmt.Errorf("dirent: write entry at block %d/%d: %w", idx, off, err)
	}
	encodeEntry(ent, buf[off:off+EntrySize])
	if err := e.WriteBlock(idx, buf); err != nil {
		return fmt.Errorf("dirent: write entry at block %d/%d: %w", idx, off, err)
	}
	return nil
}

// Chain header helpers (next/prev), shared by directory chains and
// file-content chains: both are plain doubly-linked block lists.

func Next(buf [block.Size]byte) uint32 { return block.ReadU32(buf[:], 4) }
func Prev(buf [block.Size]byte) uint32 { return block.ReadU32(buf[:], 8) }

// SetLinks rewrites a block's next/prev header fields, preserving payload.
func SetLinks(e *block.Engine, idx uint32, next, prev uint32) error {
	buf, err := e.ReadBlock(idx)
	if err != nil {
		return fmt.Errorf("dirent: set links on block %d: %w", idx, err)
	}
	block.PutU32(buf[:], 4, next)
	block.PutU32(buf[:], 8, prev)
	if err := e.WriteBlock(idx, buf); err != nil {
		return fmt.Errorf("dirent: set links on block %d: %w", idx, err)
	}
	return nil
}

// --- Directory head / self-entry bookkeeping ---

// selfEntry returns the head block's own "." entry, which carries the
// directory's chain tail bookkeeping (Stop = tail block index, EndOffset =
// used bytes in the tail block).
func selfEntry(e *block.Engine, head uint32) (Entry, error) {
	return ReadEntry(e, head, FirstEntryOff)
}

func setSelfTail(e *block.Engine, head uint32, stop uint32, endOffset uint16) error {
	self, err := selfEntry(e, head)
	if err != nil {
		return err
	}
	self.Stop = stop
	self.EndOffset = endOffset
	return WriteEntry(e, head, FirstEntryOff, self)
}

// EncodeDirHead builds the raw bytes of a freshly initialized, empty
// directory head block: "." pointing at itself (headIdx) and ".." pointing
// at parentIdx (0 for the root). It touches no engine, so mkfs can use it
// to assemble the root directory block before any transaction exists.
func EncodeDirHead(headIdx, parentIdx uint32) [block.Size]byte {
	var buf [block.Size]byte
	dot, _ := EncodeName(".")
	dotdot, _ := EncodeName("..")
	self := Entry{State: TypeDir, Name: dot, Start: headIdx, Stop: headIdx, EndOffset: FirstEntryOff + 2*EntrySize}
	parent := Entry{State: TypeDir, Name: dotdot, Start: parentIdx}
	encodeEntry(self, buf[FirstEntryOff:FirstEntryOff+EntrySize])
	encodeEntry(parent, buf[FirstEntryOff+EntrySize:FirstEntryOff+2*EntrySize])
	return buf
}

// InitDirHead initializes a freshly allocated block headIdx as an empty
// directory head within an active transaction.
func InitDirHead(e *block.Engine, headIdx, parentIdx uint32) error {
	buf := EncodeDirHead(headIdx, parentIdx)
	if err := e.WriteBlock(headIdx, buf); err != nil {
		return fmt.Errorf("dirent: init dir head %d: %w", headIdx, err)
	}
	return nil
}

// ParentHead returns the directory's own ".." start field: the parent
// directory's head index (0 for the root).
func ParentHead(e *block.Engine, head uint32) (uint32, error) {
	parent, err := ReadEntry(e, head, FirstEntryOff+EntrySize)
	if err != nil {
		return 0, err
	}
	return parent.Start, nil
}

// SetParentHead rewrites a directory's ".." start field, used when the
// directory is moved to a new parent.
func SetParentHead(e *block.Engine, head uint32, newParent uint32) error {
	parent, err := ReadEntry(e, head, FirstEntryOff+EntrySize)
	if err != nil {
		return err
	}
	parent.Start = newParent
	return WriteEntry(e, head, FirstEntryOff+EntrySize, parent)
}

// LookupResult reports either a found entry, or (if not found) where to
// append a new one.
type LookupResult struct {
	Found     bool
	Entry     Entry
	Block     uint32 // block containing Entry (if Found)
	Offset    uint16 // byte offset of Entry within Block (if Found)
	TailBlock uint32
	TailEnd   uint16
}

// Lookup walks the directory chain rooted at head looking for name among
// entries 0 (".") and 1 ("..") included, so callers may look up "." and
// "..".
func Lookup(e *block.Engine, head uint32, name string) (LookupResult, error) {
	self, err := selfEntry(e, head)
	if err != nil {
		return LookupResult{}, err
	}
	tailBlock, tailEnd := self.Stop, self.EndOffset

	cur := head
	for {
		buf, err := e.ReadBlock(cur)
		if err != nil {
			return LookupResult{}, fmt.Errorf("dirent: lookup %q: read block %d: %w", name, cur, err)
		}
		limit := uint16(block.Size)
		if cur == tailBlock {
			limit = tailEnd
		}
		for off := uint16(HeaderSize); off+EntrySize <= limit; off += EntrySize {
			ent := decodeEntry(buf[off : off+EntrySize])
			if ent.NameString() == name {
				return LookupResult{Found: true, Entry: ent, Block: cur, Offset: off, TailBlock: tailBlock, TailEnd: tailEnd}, nil
			}
		}
		if cur == tailBlock {
			break
		}
		cur = Next(buf)
	}
	return LookupResult{Found: false, TailBlock: tailBlock, TailEnd: tailEnd}, nil
}

// List returns every entry in the directory chain rooted at head,
// including "." and "..".
func List(e *block.Engine, head uint32) ([]Entry, error) {
	self, err := selfEntry(e, head)
	if err != nil {
		return nil, err
	}
	tailBlock, tailEnd := self.Stop, self.EndOffset

	var out []Entry
	cur := head
	for {
		buf, err := e.ReadBlock(cur)
		if err != nil {
			return nil, fmt.Errorf("dirent: list: read block %d: %w", cur, err)
		}
		limit := uint16(block.Size)
		if cur == tailBlock {
			limit = tailEnd
		}
		for off := uint16(HeaderSize); off+EntrySize <= limit; off += EntrySize {
			out = append(out, decodeEntry(buf[off:off+EntrySize]))
		}
		if cur == tailBlock {
			break
		}
		cur = Next(buf)
	}
	return out, nil
}

// Append adds ent as a new entry at the tail of the directory chain rooted
// at head, allocating an extension block if the current tail is full.
func Append(e *block.Engine, head uint32, ent Entry) error {
	self, err := selfEntry(e, head)
	if err != nil {
		return err
	}
	tailBlock, tailEnd := self.Stop, self.EndOffset

	if tailEnd+EntrySize <= block.Size {
		if err := WriteEntry(e, tailBlock, tailEnd, ent); err != nil {
			return err
		}
		return setSelfTail(e, head, tailBlock, tailEnd+EntrySize)
	}

	// Tail is full (end_offset == 512): extend the chain.
	newBlock, err := e.Allocate()
	if err != nil {
		return fmt.Errorf("dirent: append: allocate extension block: %w", err)
	}
	var buf [block.Size]byte
	block.PutU32(buf[:], 8, tailBlock) // prev
	encodeEntry(ent, buf[HeaderSize:HeaderSize+EntrySize])
	if err := e.WriteBlock(newBlock, buf); err != nil {
		return fmt.Errorf("dirent: append: write extension block %d: %w", newBlock, err)
	}
	if err := SetLinks(e, tailBlock, newBlock, Prev(mustBlock(e, tailBlock))); err != nil {
		return fmt.Errorf("dirent: append: link old tail %d: %w", tailBlock, err)
	}
	return setSelfTail(e, head, newBlock, HeaderSize+EntrySize)
}

func mustBlock(e *block.Engine, idx uint32) [block.Size]byte {
	buf, _ := e.ReadBlock(idx)
	return buf
}

// Remove deletes the entry at (block, offset) from the directory chain
// rooted at head, compacting by moving the chain's last entry into the
// freed slot, and freeing the tail extension block if it becomes empty.
func Remove(e *block.Engine, head uint32, targetBlock uint32, targetOffset uint16) error {
	self, err := selfEntry(e, head)
	if err != nil {
		return err
	}
	tailBlock, tailEnd := self.Stop, self.EndOffset
	lastOff := tailEnd - EntrySize

	if !(targetBlock == tailBlock && targetOffset == lastOff) {
		last, err := ReadEntry(e, tailBlock, lastOff)
		if err != nil {
			return fmt.Errorf("dirent: remove: read last entry: %w", err)
		}
		if err := WriteEntry(e, targetBlock, targetOffset, last); err != nil {
			return fmt.Errorf("dirent: remove: compact into target: %w", err)
		}
	}

	newTailEnd := lastOff
	if newTailEnd < HeaderSize+EntrySize && tailBlock != head {
		tailBuf, err := e.ReadBlock(tailBlock)
		if err != nil {
			return fmt.Errorf("dirent: remove: read tail %d: %w", tailBlock, err)
		}
		pred := Prev(tailBuf)
		if err := e.Free(tailBlock); err != nil {
			return fmt.Errorf("dirent: remove: free tail %d: %w", tailBlock, err)
		}
		if err := SetLinks(e, pred, 0, Prev(mustBlock(e, pred))); err != nil {
			return fmt.Errorf("dirent: remove: clear predecessor next: %w", err)
		}
		return setSelfTail(e, head, pred, block.Size)
	}
	return setSelfTail(e, head, tailBlock, newTailEnd)
}

// RenameInPlace overwrites the name field of the entry at (block, offset)
// without touching chain pointers.
func RenameInPlace(e *block.Engine, blockIdx uint32, offset uint16, newName string) error {
	ent, err := ReadEntry(e, blockIdx, offset)
	if err != nil {
		return err
	}
	name, err := EncodeName(newName)
	if err != nil {
		return err
	}
	ent.Name = name
	return WriteEntry(e, blockIdx, offset, ent)
}

// --- Generic chain primitives (also used for file-content chains) ---

// FreeChain walks the doubly-linked block chain starting at start via
// next pointers, returning every block to the free list.
func FreeChain(e *block.Engine, start uint32) error {
	cur := start
	for cur != 0 {
		buf, err := e.ReadBlock(cur)
		if err != nil {
			return fmt.Errorf("dirent: free chain: read block %d: %w", cur, err)
		}
		next := Next(buf)
		if err := e.Free(cur); err != nil {
			return fmt.Errorf("dirent: free chain: free block %d: %w", cur, err)
		}
		cur = next
	}
	return nil
}

// CopyChain duplicates the payload bytes (block[12:512]) of every block in
// the chain starting at srcStart, linking the copies into a fresh chain.
// It returns the new chain's start and stop block indices.
func CopyChain(e *block.Engine, srcStart uint32) (newStart, newStop uint32, err error) {
	if srcStart == 0 {
		return 0, 0, nil
	}
	var prevDst uint32
	cur := srcStart
	for cur != 0 {
		srcBuf, err := e.ReadBlock(cur)
		if err != nil {
			return 0, 0, fmt.Errorf("dirent: copy chain: read src block %d: %w", cur, err)
		}
		dst, err := e.Allocate()
		if err != nil {
			return 0, 0, fmt.Errorf("dirent: copy chain: allocate: %w", err)
		}
		var dstBuf [block.Size]byte
		copy(dstBuf[HeaderSize:], srcBuf[HeaderSize:])
		block.PutU32(dstBuf[:], 8, prevDst)
		if err := e.WriteBlock(dst, dstBuf); err != nil {
			return 0, 0, fmt.Errorf("dirent: copy chain: write dst block %d: %w", dst, err)
		}
		if prevDst != 0 {
			if err := SetLinks(e, prevDst, dst, Prev(mustBlock(e, prevDst))); err != nil {
				return 0, 0, fmt.Errorf("dirent: copy chain: link %d -> %d: %w", prevDst, dst, err)
			}
		} else {
			newStart = dst
		}
		newStop = dst
		prevDst = dst
		cur = Next(srcBuf)
	}
	return newStart, newStop, nil
}

// ChainLength sums the payload bytes of a content chain running from start
// to stop, where endOffset is stop's used-bytes high-water mark. It returns
// 0 for an empty chain (start == 0).
func ChainLength(e *block.Engine, start, stop uint32, endOffset uint16) (int64, error) {
	if start == 0 {
		return 0, nil
	}
	var total int64
	cur := start
	for {
		if cur == stop {
			return total + int64(endOffset) - HeaderSize, nil
		}
		buf, err := e.ReadBlock(cur)
		if err != nil {
			return 0, fmt.Errorf("dirent: chain length: read block %d: %w", cur, err)
		}
		total += block.Size - HeaderSize
		cur = Next(buf)
	}
}
