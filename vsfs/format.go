package vsfs

import (
	"os"

	"github.com/pkg/xattr"
	"github.com/sirupsen/logrus"

	"github.com/vsfs/vsfs/bitmap"
	"github.com/vsfs/vsfs/disk"
)

// magicXattr tags a formatted container so tooling can recognize it
// without opening it. Purely informational: set best-effort, never part
// of the correctness contract.
const magicXattr = "user.vsfs.magic"

// CreateContainer truncates/creates the file at path to exactly
// TotalBlocks*B zero bytes, ready for Format.
func CreateContainer(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return wrapErr(KindIO, err, "creating container %s", path)
	}
	defer f.Close()
	if err := f.Truncate(TotalBlocks * B); err != nil {
		return wrapErr(KindIO, err, "truncating container %s to %d bytes", path, TotalBlocks*B)
	}
	return nil
}

// Format initializes an already-created, zeroed container into a valid,
// empty VSFS: superblock, cleared journal, inode/data bitmaps with the
// root allocated, a root directory inode, and zeroed data blocks.
func Format(path string) error {
	log := logrus.WithFields(logrus.Fields{"component": "format", "path": path})

	dev, err := disk.Open(path)
	if err != nil {
		return wrapErr(KindIO, err, "format: opening container %s", path)
	}
	defer dev.Close()

	// 1. Superblock.
	sb := Superblock{
		Magic:            Magic,
		NumBlocks:        TotalBlocks,
		NumInodes:        MaxInodes,
		InodeBitmapBlock: InodeBitmapBlock,
		DataBitmapBlock:  DataBitmapBlock,
		InodeTableStart:  InodeTableStart,
		DataBlocksStart:  DataBlocksStart,
	}
	sbBlock := make([]byte, B)
	if err := sb.MarshalVSFS(sbBlock); err != nil {
		return wrapErr(KindIO, err, "format: encoding superblock")
	}
	if err := dev.WriteBlock(SuperblockBlock, sbBlock); err != nil {
		return wrapErr(KindIO, err, "format: writing superblock")
	}
	log.Debug("wrote superblock")

	// 2. Clear journal (defensive: the container is already zero, but
	// this must succeed against a reused container).
	zero := make([]byte, B)
	for i := 0; i < JournalBlocks; i++ {
		if err := dev.WriteBlock(uint32(JournalStart+i), zero); err != nil {
			return wrapErr(KindIO, err, "format: clearing journal block %d", i)
		}
	}
	log.Debug("cleared journal")

	// 3. Inode bitmap, root allocated.
	inodeBitmap := make([]byte, B)
	bitmap.Set(inodeBitmap, 0)
	if err := dev.WriteBlock(InodeBitmapBlock, inodeBitmap); err != nil {
		return wrapErr(KindIO, err, "format: writing inode bitmap")
	}

	// 4. Data bitmap, root directory block allocated.
	dataBitmap := make([]byte, B)
	bitmap.Set(dataBitmap, 0)
	if err := dev.WriteBlock(DataBitmapBlock, dataBitmap); err != nil {
		return wrapErr(KindIO, err, "format: writing data bitmap")
	}
	log.Debug("initialized bitmaps")

	// 5. Inode-table block 0: root inode.
	root := Inode{
		Size:  0,
		Type:  TypeDirectory,
		Nlink: 1,
	}
	root.Blocks[0] = DataBlocksStart

	table0 := make([]byte, B)
	table1 := make([]byte, B)
	table, err := NewInodeTable([InodeTableBlocks][]byte{table0, table1})
	if err != nil {
		return wrapErr(KindIO, err, "format: building inode table view")
	}
	if err := table.Set(0, root); err != nil {
		return wrapErr(KindIO, err, "format: writing root inode")
	}
	if err := dev.WriteBlock(InodeTableStart, table0); err != nil {
		return wrapErr(KindIO, err, "format: writing inode table block 0")
	}
	// 6. Inode-table block 1: zero.
	if err := dev.WriteBlock(InodeTableStart+1, table1); err != nil {
		return wrapErr(KindIO, err, "format: writing inode table block 1")
	}
	log.Debug("initialized inode table")

	// 7. Root directory data block: empty.
	rootDir := make([]byte, B)
	if err := dev.WriteBlock(DataBlocksStart, rootDir); err != nil {
		return wrapErr(KindIO, err, "format: writing root directory block")
	}

	// 8. Remaining data blocks: zero.
	for i := 1; i < DataBlocksCount; i++ {
		if err := dev.WriteBlock(uint32(DataBlocksStart+i), zero); err != nil {
			return wrapErr(KindIO, err, "format: clearing data block %d", i)
		}
	}
	log.Info("formatted VSFS container")

	tagContainer(path, log)
	return nil
}

// tagContainer sets a best-effort extended attribute marking path as a
// formatted VSFS container. Any failure (unsupported filesystem, e.g.
// tmpfs without xattr support, or a non-Linux OS) is logged at debug
// level and otherwise ignored — it never affects formatting correctness.
func tagContainer(path string, log *logrus.Entry) {
	magicBytes := make([]byte, 4)
	magic := Magic
	magicBytes[0] = byte(magic)
	magicBytes[1] = byte(magic >> 8)
	magicBytes[2] = byte(magic >> 16)
	magicBytes[3] = byte(magic >> 24)
	if err := xattr.Set(path, magicXattr, magicBytes); err != nil {
		log.WithError(err).Debug("could not tag container with magic xattr, continuing without it")
	}
}
