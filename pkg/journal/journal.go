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

// Package journal implements spec layer L2: staging a transaction's cp/add
// records into the durable <image>-j journal file behind a single
// commit-marker byte, replaying that journal into the image, and
// recovering a pending journal at mount time.
//
// The fsync discipline mirrors a monolithic append-and-sync write path
// (append the payload, sync, then make the append visible) generalized
// into a two-phase commit: the journal's length is made durable before its
// readiness byte, so a crash can never observe a "ready" journal with a
// truncated body.
package journal

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cyantree/ffs/pkg/block"
)

const (
	headerSize  = 5 // block_count (u32 LE) + state (u8)
	stateNotRdy = 0x00
	stateReady  = 0xff
)

// Commit stages the engine's active transaction into the journal, makes it
// durable behind the commit marker, replays it into the image, and clears
// the transaction. On any I/O error before the commit marker is durable,
// the image is guaranteed unchanged (spec.md §4.2, §7 "tmpstop").
func Commit(e *block.Engine) error {
	if !e.InTx() {
		return fmt.Errorf("journal: commit without active transaction")
	}
	j, err := os.OpenFile(block.JournalPath(e.ImagePath()), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return fmt.Errorf("journal: open: %w", err)
	}
	defer j.Close()

	var header [headerSize]byte
	header[4] = stateNotRdy
	if _, err := j.WriteAt(header[:], 0); err != nil {
		return fmt.Errorf("journal: write placeholder header: %w", err)
	}

	off := int64(headerSize)
	count := uint32(0)

	writeRecord := func(owner uint32, blk [block.Size]byte) error {
		var rec [block.SlotRecordSize]byte
		binary.LittleEndian.PutUint32(rec[0:4], owner)
		copy(rec[4:], blk[:])
		if _, err := j.WriteAt(rec[:], off); err != nil {
			return err
		}
		off += block.SlotRecordSize
		count++
		return nil
	}

	if e.TxSuperblockChanged() {
		if err := writeRecord(0, e.TxSuperblockBytes()); err != nil {
			return fmt.Errorf("journal: stage superblock: %w", err)
		}
	}
	for i := uint32(0); i < e.CPCount(); i++ {
		owner, buf, err := e.CPRecord(i)
		if err != nil {
			return fmt.Errorf("journal: read cp record %d: %w", i, err)
		}
		if err := writeRecord(owner, buf); err != nil {
			return fmt.Errorf("journal: stage cp record %d: %w", i, err)
		}
	}
	for i := uint32(0); i < e.AddCount(); i++ {
		owner, buf, err := e.AddRecord(i)
		if err != nil {
			return fmt.Errorf("journal: read add record %d: %w", i, err)
		}
		if err := writeRecord(owner, buf); err != nil {
			return fmt.Errorf("journal: stage add record %d: %w", i, err)
		}
	}

	if err := j.Sync(); err != nil {
		return fmt.Errorf("journal: sync records: %w", err)
	}

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], count)
	if _, err := j.WriteAt(countBuf[:], 0); err != nil {
		return fmt.Errorf("journal: write block_count: %w", err)
	}
	if err := j.Sync(); err != nil {
		return fmt.Errorf("journal: sync block_count: %w", err)
	}

	// The commit marker. Its durable appearance is what promotes this
	// journal from discardable to must-replay.
	if _, err := j.WriteAt([]byte{stateReady}, 4); err != nil {
		return fmt.Errorf("journal: write commit marker: %w", err)
	}
	if err := j.Sync(); err != nil {
		return fmt.Errorf("journal: sync commit marker: %w", err)
	}

	newTotal, newFree := readSuperblockFields(e)
	if err := replay(j, count, e.ImageFile()); err != nil {
		return fmt.Errorf("journal: replay: %w", err)
	}

	if err := markEmpty(j); err != nil {
		return fmt.Errorf("journal: clear after replay: %w", err)
	}
	return e.CommitApplied(newTotal, newFree)
}

func readSuperblockFields(e *block.Engine) (uint32, uint32) {
	buf := e.TxSuperblockBytes()
	return block.ReadU32(buf[:], 4), block.ReadU32(buf[:], 8)
}

// replay applies count 516-byte records from j (positioned after the
// header) into img, then fsyncs img.
func replay(j *os.File, count uint32, img *os.File) error {
	var rec [block.SlotRecordSize]byte
	off := int64(headerSize)
	for i := uint32(0); i < count; i++ {
		if _, err := j.ReadAt(rec[:], off); err != nil {
			return fmt.Errorf("read record %d: %w", i, err)
		}
		owner := binary.LittleEndian.Uint32(rec[0:4])
		if _, err := img.WriteAt(rec[4:], int64(owner)*block.Size); err != nil {
			return fmt.Errorf("apply record %d (block %d): %w", i, owner, err)
		}
		off += block.SlotRecordSize
	}
	return img.Sync()
}

// markEmpty resets the journal's state byte to not-ready and truncates it,
// so a subsequent crash finds nothing to replay.
func markEmpty(j *os.File) error {
	if _, err := j.WriteAt([]byte{stateNotRdy}, 4); err != nil {
		return err
	}
	if err := j.Sync(); err != nil {
		return err
	}
	if err := j.Truncate(0); err != nil {
		return err
	}
	return j.Sync()
}

// Recover replays a pending (commit-marker-durable) journal into the image
// at mount time, per spec.md §4.2 "Mount-time recovery". If no journal
// exists, or it is not marked ready, it is discarded (truncated) and
// Recover returns nil without modifying the image.
func Recover(e *block.Engine) error {
	path := block.JournalPath(e.ImagePath())
	j, err := os.OpenFile(path, os.O_RDWR, 0666)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("journal: open for recovery: %w", err)
	}
	defer j.Close()

	var header [headerSize]byte
	n, err := j.ReadAt(header[:], 0)
	if err != nil && err != io.EOF {
		return fmt.Errorf("journal: read header: %w", err)
	}
	if n < headerSize || header[4] != stateReady {
		return markEmpty(j)
	}

	count := binary.LittleEndian.Uint32(header[0:4])
	if err := replay(j, count, e.ImageFile()); err != nil {
		return fmt.Errorf("journal: recovery replay: %w", err)
	}
	if err := markEmpty(j); err != nil {
		return err
	}
	return e.ReloadSuperblock()
}

// Discard clears a not-yet-committed journal artifact, used by explicit
// Rollback. The engine's own Rollback already discards cp/add; Discard
// additionally ensures no stale journal file lingers from an interrupted
// commit attempt that never reached the commit marker.
func Discard(e *block.Engine) error {
	path := block.JournalPath(e.ImagePath())
	j, err := os.OpenFile(path, os.O_RDWR, 0666)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("journal: open for discard: %w", err)
	}
	defer j.Close()
	return markEmpty(j)
}
