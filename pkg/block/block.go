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

// Package block implements the fixed-size block store (spec layer L1): a
// single image file addressed in 512-byte blocks, mediated by a
// copy-on-write staging scheme so that every mutation is either fully
// visible after commit or entirely invisible after a crash or rollback.
//
// The staging design generalizes the handle-ownership and fsync discipline
// of a monolithic append-only blob log (one growing file plus a small
// index) to a fixed-size block array plus two transient side files: cp
// (copies of modified existing blocks) and add (newly allocated blocks).
package block

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// Size is the fixed size in bytes of every block in the image, including
// the superblock and the 12-byte common header of every other block.
const Size = 512

// HeaderSize is the size of the common header present on every
// non-superblock: journal_slot, next, prev, each a little-endian u32.
const HeaderSize = 12

// SlotRecordSize is the size of one cp/add/journal record: a 4-byte owner
// index followed by one full block.
const SlotRecordSize = 4 + Size

// Magic identifies a valid FFS image superblock.
var Magic = [4]byte{0x78, 0x11, 0x45, 0x14}

// RootBlock is the fixed index of the root directory's head block.
const RootBlock = 1

var (
	// ErrBadMagic is returned by Open when the image's superblock magic
	// does not match.
	ErrBadMagic = errors.New("block: bad superblock magic")
	// ErrNoTx is returned by operations that require an active
	// transaction when none is open.
	ErrNoTx = errors.New("block: no active transaction")
	// ErrTxActive is returned by BeginTx when a transaction is already
	// open on this engine.
	ErrTxActive = errors.New("block: transaction already active")
)

// txState holds the transaction-local free-list/growth counters and the
// staged cp/add record counts, per spec.md §4.1.
type txState struct {
	totalBlocksAtStart uint32
	newTotalBlocks     uint32
	newFreeHead        uint32
	cpSize             uint32
	addSize            uint32
}

// Engine mediates all access to the image's blocks through the image, cp,
// and add handles described in spec.md §4.1.
type Engine struct {
	imagePath string

	image *os.File
	cp    *os.File
	add   *os.File

	totalBlocks uint32
	freeHead    uint32

	tx *txState
}

// CPPath returns the path of the cp (copy-on-write) staging file.
func CPPath(imagePath string) string { return imagePath + "-cp" }

// AddPath returns the path of the add (new-block) staging file.
func AddPath(imagePath string) string { return imagePath + "-add" }

// JournalPath returns the path of the durable journal file.
func JournalPath(imagePath string) string { return imagePath + "-j" }

// Open opens an existing image file and its side files, loading the
// superblock. It does not perform journal recovery; callers (pkg/ffs, via
// pkg/journal) are responsible for replaying a pending journal first.
func Open(imagePath string) (*Engine, error) {
	img, err := os.OpenFile(imagePath, os.O_RDWR, 0666)
	if err != nil {
		return nil, fmt.Errorf("block: open image: %w", err)
	}
	e := &Engine{imagePath: imagePath, image: img}
	if err := e.loadSuperblock(); err != nil {
		img.Close()
		return nil, err
	}
	cp, err := os.OpenFile(CPPath(imagePath), os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		img.Close()
		return nil, fmt.Errorf("block: open cp: %w", err)
	}
	add, err := os.OpenFile(AddPath(imagePath), os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		img.Close()
		cp.Close()
		return nil, fmt.Errorf("block: open add: %w", err)
	}
	e.cp, e.add = cp, add
	if err := e.cp.Truncate(0); err != nil {
		e.Close()
		return nil, err
	}
	if err := e.add.Truncate(0); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) loadSuperblock() error {
	var buf [Size]byte
	if _, err := e.image.ReadAt(buf[:], 0); err != nil {
		return fmt.Errorf("block: read superblock: %w", err)
	}
	if buf[0] != Magic[0] || buf[1] != Magic[1] || buf[2] != Magic[2] || buf[3] != Magic[3] {
		return ErrBadMagic
	}
	e.totalBlocks = binary.LittleEndian.Uint32(buf[4:8])
	e.freeHead = binary.LittleEndian.Uint32(buf[8:12])
	return nil
}

// ReloadSuperblock re-reads the on-disk superblock, used after pkg/journal
// replays committed blocks into the image.
func (e *Engine) ReloadSuperblock() error { return e.loadSuperblock() }

// ImagePath returns the path the engine was opened with.
func (e *Engine) ImagePath() string { return e.imagePath }

// Close releases the image, cp, and add file handles. It does not commit
// or discard any open transaction; callers must Commit or Rollback first.
func (e *Engine) Close() error {
	var firstErr error
	for _, f := range []*os.File{e.image, e.cp, e.add} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// InTx reports whether a transaction is currently open.
func (e *Engine) InTx() bool { return e.tx != nil }

// BeginTx opens a new transaction, initializing the transaction-local
// growth/free-list counters from the persisted superblock.
func (e *Engine) BeginTx() error {
	if e.tx != nil {
		return ErrTxActive
	}
	if err := e.cp.Truncate(0); err != nil {
		return err
	}
	if err := e.add.Truncate(0); err != nil {
		return err
	}
	e.tx = &txState{
		totalBlocksAtStart: e.totalBlocks,
		newTotalBlocks:     e.totalBlocks,
		newFreeHead:        e.freeHead,
	}
	return nil
}

// endTx clears the active transaction and resets the side files.
func (e *Engine) endTx() error {
	e.tx = nil
	if err := e.cp.Truncate(0); err != nil {
		return err
	}
	return e.add.Truncate(0)
}

// Rollback discards the active transaction's staged writes without
// touching the image (beyond the harmless journal_slot prefix patches
// already applied; see spec.md §4.1 and §7).
func (e *Engine) Rollback() error {
	if e.tx == nil {
		return ErrNoTx
	}
	return e.endTx()
}

// TotalBlocks returns the current total-blocks count: the transaction-local
// value while a transaction is open, else the persisted value.
func (e *Engine) TotalBlocks() uint32 {
	if e.tx != nil {
		return e.tx.newTotalBlocks
	}
	return e.totalBlocks
}

// FreeHead returns the current free-list head: the transaction-local value
// while a transaction is open, else the persisted value.
func (e *Engine) FreeHead() uint32 {
	if e.tx != nil {
		return e.tx.newFreeHead
	}
	return e.freeHead
}

// TxSuperblockChanged reports whether the active transaction has changed
// total-blocks or free-head relative to the persisted superblock.
func (e *Engine) TxSuperblockChanged() bool {
	if e.tx == nil {
		return false
	}
	return e.tx.newTotalBlocks != e.totalBlocks || e.tx.newFreeHead != e.freeHead
}

// TxSuperblockBytes renders the pending superblock (block 0) bytes for the
// active transaction, for pkg/journal to stage as a commit record.
func (e *Engine) TxSuperblockBytes() [Size]byte {
	var buf [Size]byte
	copy(buf[0:4], Magic[:])
	total, free := e.totalBlocks, e.freeHead
	if e.tx != nil {
		total, free = e.tx.newTotalBlocks, e.tx.newFreeHead
	}
	binary.LittleEndian.PutUint32(buf[4:8], total)
	binary.LittleEndian.PutUint32(buf[8:12], free)
	return buf
}

// CommitApplied is called by pkg/journal once it has durably replayed the
// transaction's records into the image: it persists the new superblock
// values and clears the transaction.
func (e *Engine) CommitApplied(newTotalBlocks, newFreeHead uint32) error {
	e.totalBlocks = newTotalBlocks
	e.freeHead = newFreeHead
	return e.endTx()
}

// ReadBlock returns the current 512 bytes of block idx: the staged cp or
// add copy if one exists for this transaction, else the image's bytes.
func (e *Engine) ReadBlock(idx uint32) ([Size]byte, error) {
	if idx == 0 {
		return e.TxSuperblockBytes(), nil
	}
	if e.tx != nil && idx >= e.tx.totalBlocksAtStart {
		owner, buf, err := e.readSlot(e.add, idx-e.tx.totalBlocksAtStart)
		if err != nil {
			return buf, err
		}
		if owner != idx {
			return buf, fmt.Errorf("block: add-slot owner mismatch for %d", idx)
		}
		return buf, nil
	}
	var imgBuf [Size]byte
	if _, err := e.image.ReadAt(imgBuf[:], int64(idx)*Size); err != nil {
		return imgBuf, fmt.Errorf("block: read image block %d: %w", idx, err)
	}
	if e.tx != nil {
		journalSlot := binary.LittleEndian.Uint32(imgBuf[0:4])
		if journalSlot < e.tx.cpSize {
			owner, cpBuf, err := e.readSlot(e.cp, journalSlot)
			if err != nil {
				return imgBuf, err
			}
			if owner == idx {
				return cpBuf, nil
			}
		}
	}
	return imgBuf, nil
}

// WriteBlock stages a write to block idx; it must be called within a
// transaction.
func (e *Engine) WriteBlock(idx uint32, buf [Size]byte) error {
	if e.tx == nil {
		return ErrNoTx
	}
	if idx >= e.tx.totalBlocksAtStart {
		slot := idx - e.tx.totalBlocksAtStart
		if err := e.writeSlot(e.add, slot, idx, buf); err != nil {
			return err
		}
		if slot+1 > e.tx.addSize {
			e.tx.addSize = slot + 1
		}
		return nil
	}

	var imgHeader [4]byte
	if _, err := e.image.ReadAt(imgHeader[:], int64(idx)*Size); err != nil {
		return fmt.Errorf("block: read image header %d: %w", idx, err)
	}
	journalSlot := binary.LittleEndian.Uint32(imgHeader[:])
	if journalSlot < e.tx.cpSize {
		owner, _, err := e.readSlot(e.cp, journalSlot)
		if err != nil {
			return err
		}
		if owner == idx {
			return e.writeSlot(e.cp, journalSlot, idx, buf)
		}
	}

	k := e.tx.cpSize
	if err := e.writeSlot(e.cp, k, idx, buf); err != nil {
		return err
	}
	e.tx.cpSize++
	// Patch the image's journal_slot prefix so subsequent reads in this
	// transaction find the staged copy. Harmless outside a committed journal:
	// a discarded journal leaves no cp slots to find.
	var slotBuf [4]byte
	binary.LittleEndian.PutUint32(slotBuf[:], k)
	if _, err := e.image.WriteAt(slotBuf[:], int64(idx)*Size); err != nil {
		return fmt.Errorf("block: patch journal_slot for %d: %w", idx, err)
	}
	return nil
}

// Allocate pops the free list if non-empty, else grows the image by one
// block. Must be called within a transaction.
func (e *Engine) Allocate() (uint32, error) {
	if e.tx == nil {
		return 0, ErrNoTx
	}
	if e.tx.newFreeHead != 0 {
		idx := e.tx.newFreeHead
		buf, err := e.ReadBlock(idx)
		if err != nil {
			return 0, err
		}
		e.tx.newFreeHead = binary.LittleEndian.Uint32(buf[4:8])
		return idx, nil
	}
	idx := e.tx.newTotalBlocks
	var zero [Size]byte
	if err := e.writeSlot(e.add, idx-e.tx.totalBlocksAtStart, idx, zero); err != nil {
		return 0, err
	}
	e.tx.addSize = idx - e.tx.totalBlocksAtStart + 1
	e.tx.newTotalBlocks++
	return idx, nil
}

// Free pushes idx onto the transaction-local free list. Must be called
// within a transaction. The block's prior contents are discarded; only its
// next pointer is meaningful once freed.
func (e *Engine) Free(idx uint32) error {
	if e.tx == nil {
		return ErrNoTx
	}
	var buf [Size]byte
	binary.LittleEndian.PutUint32(buf[4:8], e.tx.newFreeHead)
	if err := e.WriteBlock(idx, buf); err != nil {
		return err
	}
	e.tx.newFreeHead = idx
	return nil
}

// CPCount returns the number of valid cp records staged this transaction.
func (e *Engine) CPCount() uint32 {
	if e.tx == nil {
		return 0
	}
	return e.tx.cpSize
}

// AddCount returns the number of valid add records staged this
// transaction.
func (e *Engine) AddCount() uint32 {
	if e.tx == nil {
		return 0
	}
	return e.tx.addSize
}

// CPRecord returns the i'th staged cp record (owner index and block bytes).
func (e *Engine) CPRecord(i uint32) (uint32, [Size]byte, error) {
	return e.readSlot(e.cp, i)
}

// AddRecord returns the i'th staged add record (owner index and block
// bytes).
func (e *Engine) AddRecord(i uint32) (uint32, [Size]byte, error) {
	return e.readSlot(e.add, i)
}

// ImageFile exposes the underlying image handle for pkg/journal's replay
// step, which writes committed records directly into the image and fsyncs
// it.
func (e *Engine) ImageFile() *os.File { return e.image }

func (e *Engine) readSlot(f *os.File, idx uint32) (owner uint32, buf [Size]byte, err error) {
	var rec [SlotRecordSize]byte
	if _, err = f.ReadAt(rec[:], int64(idx)*SlotRecordSize); err != nil {
		return 0, buf, fmt.Errorf("block: read slot %d: %w", idx, err)
	}
	owner = binary.LittleEndian.Uint32(rec[0:4])
	copy(buf[:], rec[4:])
	return owner, buf, nil
}

func (e *Engine) writeSlot(f *os.File, idx, owner uint32, block [Size]byte) error {
	var rec [SlotRecordSize]byte
	binary.LittleEndian.PutUint32(rec[0:4], owner)
	copy(rec[4:], block[:])
	if _, err := f.WriteAt(rec[:], int64(idx)*SlotRecordSize); err != nil {
		return fmt.Errorf("block: write slot %d: %w", idx, err)
	}
	return nil
}

// ReadU32 reads a little-endian u32 at the given offset within a block.
func ReadU32(b []byte, off int) uint32 { return binary.LittleEndian.Uint32(b[off : off+4]) }

// PutU32 writes a little-endian u32 at the given offset within a block.
func PutU32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:off+4], v) }

// ReadU16 reads a little-endian u16 at the given offset within a block.
func ReadU16(b []byte, off int) uint16 { return binary.LittleEndian.Uint16(b[off : off+2]) }

// PutU16 writes a little-endian u16 at the given offset within a block.
func PutU16(b []byte, off int, v uint16) { binary.LittleEndian.PutUint16(b[off:off+2], v) }
