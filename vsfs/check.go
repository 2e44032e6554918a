package vsfs

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vsfs/vsfs/bitmap"
	"github.com/vsfs/vsfs/disk"
)

// CheckReport is the read-only result of Check: a list of human-readable
// violations. Len(Errors) == 0 means the file system is consistent.
type CheckReport struct {
	Errors []string
}

// Check verifies cross-references between the bitmaps, the inode table,
// and the root directory, without modifying any state.
func Check(dev *disk.Device) (CheckReport, error) {
	var report CheckReport
	log := logrus.WithField("component", "check")

	inodeBitmap := make([]byte, B)
	if err := dev.ReadBlock(InodeBitmapBlock, inodeBitmap); err != nil {
		return report, wrapErr(KindIO, err, "check: reading inode bitmap")
	}
	dataBitmap := make([]byte, B)
	if err := dev.ReadBlock(DataBitmapBlock, dataBitmap); err != nil {
		return report, wrapErr(KindIO, err, "check: reading data bitmap")
	}
	table0 := make([]byte, B)
	if err := dev.ReadBlock(InodeTableStart, table0); err != nil {
		return report, wrapErr(KindIO, err, "check: reading inode table block 0")
	}
	table1 := make([]byte, B)
	if err := dev.ReadBlock(InodeTableStart+1, table1); err != nil {
		return report, wrapErr(KindIO, err, "check: reading inode table block 1")
	}
	table, err := NewInodeTable([InodeTableBlocks][]byte{table0, table1})
	if err != nil {
		return report, wrapErr(KindIO, err, "check: building inode table view")
	}

	root, err := table.Get(0)
	if err != nil {
		return report, wrapErr(KindIO, err, "check: reading root inode")
	}

	if bitmap.Get(inodeBitmap, 0) == 0 {
		report.Errors = append(report.Errors, "root inode not allocated in bitmap")
	}
	if root.Blocks[0] == 0 {
		report.Errors = append(report.Errors, "root directory has no data block")
		log.WithField("errors", len(report.Errors)).Warn("aborting check: no root data block")
		return report, nil
	}

	rootDirBlock := make([]byte, B)
	if err := dev.ReadBlock(root.Blocks[0], rootDirBlock); err != nil {
		return report, wrapErr(KindIO, err, "check: reading root directory block")
	}
	dir, err := NewDirectory(rootDirBlock)
	if err != nil {
		return report, wrapErr(KindIO, err, "check: building root directory view")
	}

	referenced := make(map[uint32]bool)
	for i := 0; i < DirentsPerBlock; i++ {
		entry, err := dir.Get(i)
		if err != nil {
			return report, wrapErr(KindIO, err, "check: reading directory slot %d", i)
		}
		if entry.Inum == 0 {
			continue
		}
		inum := entry.Inum

		if inum >= MaxInodes {
			report.Errors = append(report.Errors, errf("file %q has invalid inode %d", entry.Name, inum))
			continue
		}
		if referenced[inum] {
			report.Errors = append(report.Errors, errf("inode %d referenced by more than one directory entry", inum))
		}
		referenced[inum] = true

		if bitmap.Get(inodeBitmap, inum) == 0 {
			report.Errors = append(report.Errors, errf("file %q inode %d not marked in bitmap (dangling pointer)", entry.Name, inum))
		}

		in, err := table.Get(inum)
		if err != nil {
			return report, wrapErr(KindIO, err, "check: reading inode %d", inum)
		}
		for j, blk := range in.Blocks {
			if blk == 0 {
				continue
			}
			if blk < DataBlocksStart || blk >= DataBlocksStart+DataBlocksCount {
				report.Errors = append(report.Errors, errf("file %q has invalid block pointer %d at index %d", entry.Name, blk, j))
				continue
			}
			dataIdx := blk - DataBlocksStart
			if bitmap.Get(dataBitmap, dataIdx) == 0 {
				report.Errors = append(report.Errors, errf("file %q block %d not marked in data bitmap", entry.Name, blk))
			}
		}
	}

	// Leaked inodes: allocated but not referenced by any directory entry.
	for i := uint32(1); i < MaxInodes; i++ {
		if bitmap.Get(inodeBitmap, i) == 0 {
			continue
		}
		if !referenced[i] {
			report.Errors = append(report.Errors, errf("inode %d is allocated but not referenced (leak)", i))
		}
	}

	log.WithField("errors", len(report.Errors)).Info("check complete")
	return report, nil
}

func errf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
