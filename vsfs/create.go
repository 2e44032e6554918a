package vsfs

import (
	"strings"

	"github.com/elliotwutingfeng/asciiset"
	"github.com/sirupsen/logrus"

	"github.com/vsfs/vsfs/bitmap"
	"github.com/vsfs/vsfs/disk"
)

// printableASCII is the allowed filename charset: space through tilde.
var printableASCII, _ = asciiset.MakeASCIISet(printableASCIIChars())

func printableASCIIChars() string {
	var b strings.Builder
	for c := byte(0x20); c <= 0x7e; c++ {
		b.WriteByte(c)
	}
	return b.String()
}

// Create builds exactly one transaction that, when installed, adds one
// file named filename to the root directory, and appends it to the
// journal. It does not touch the live FS regions — only Install does.
func Create(dev *disk.Device, filename string) error {
	log := logrus.WithFields(logrus.Fields{"component": "create", "filename": filename})

	if err := validateFilename(filename); err != nil {
		return err
	}

	// 2. Load current state.
	inodeBitmap := make([]byte, B)
	if err := dev.ReadBlock(InodeBitmapBlock, inodeBitmap); err != nil {
		return wrapErr(KindIO, err, "create: reading inode bitmap")
	}
	dataBitmap := make([]byte, B)
	if err := dev.ReadBlock(DataBitmapBlock, dataBitmap); err != nil {
		return wrapErr(KindIO, err, "create: reading data bitmap")
	}
	table0 := make([]byte, B)
	if err := dev.ReadBlock(InodeTableStart, table0); err != nil {
		return wrapErr(KindIO, err, "create: reading inode table block 0")
	}
	table1 := make([]byte, B)
	if err := dev.ReadBlock(InodeTableStart+1, table1); err != nil {
		return wrapErr(KindIO, err, "create: reading inode table block 1")
	}
	table, err := NewInodeTable([InodeTableBlocks][]byte{table0, table1})
	if err != nil {
		return wrapErr(KindIO, err, "create: building inode table view")
	}
	root, err := table.Get(0)
	if err != nil {
		return wrapErr(KindIO, err, "create: reading root inode")
	}
	if root.Blocks[0] == 0 {
		return newErr(KindIO, "root directory has no data block")
	}
	rootDirBlock := make([]byte, B)
	if err := dev.ReadBlock(root.Blocks[0], rootDirBlock); err != nil {
		return wrapErr(KindIO, err, "create: reading root directory block")
	}
	dir, err := NewDirectory(rootDirBlock)
	if err != nil {
		return wrapErr(KindIO, err, "create: building root directory view")
	}

	// 3. Duplicate check.
	for i := 0; i < DirentsPerBlock; i++ {
		entry, err := dir.Get(i)
		if err != nil {
			return wrapErr(KindIO, err, "create: reading directory slot %d", i)
		}
		if entry.Inum != 0 && entry.Name == filename {
			return newErr(KindExists, "file %q already exists", filename)
		}
	}

	// 4. Allocate.
	freeInum, ok := bitmap.FindFree(inodeBitmap, MaxInodes)
	if !ok {
		return newErr(KindNoInodes, "no free inodes")
	}
	freeData, ok := bitmap.FindFree(dataBitmap, DataBlocksCount)
	if !ok {
		return newErr(KindNoDataBlocks, "no free data blocks")
	}
	freeDirent := -1
	for i := 0; i < DirentsPerBlock; i++ {
		entry, err := dir.Get(i)
		if err != nil {
			return wrapErr(KindIO, err, "create: reading directory slot %d", i)
		}
		if entry.Inum == 0 {
			freeDirent = i
			break
		}
	}
	if freeDirent < 0 {
		return newErr(KindDirFull, "root directory has no free entry slot")
	}

	// 5. Compute updated blocks in memory. Journal capacity (5 DATA
	// records + 1 COMMIT = 11 blocks) is checked once, inside Append.
	journal := NewJournal(dev)
	bitmap.Set(inodeBitmap, freeInum)
	bitmap.Set(dataBitmap, freeData)

	newInode := Inode{
		Type:  TypeFile,
		Size:  0,
		Nlink: 1,
	}
	newInode.Blocks[0] = DataBlocksStart + freeData
	if err := table.Set(freeInum, newInode); err != nil {
		return wrapErr(KindIO, err, "create: writing new inode %d", freeInum)
	}

	if err := dir.Set(freeDirent, DirEntry{Name: filename, Inum: freeInum}); err != nil {
		return wrapErr(KindIO, err, "create: writing directory slot %d", freeDirent)
	}
	root.Size += direntSize
	if err := table.Set(0, root); err != nil {
		return wrapErr(KindIO, err, "create: updating root inode size")
	}

	updatedTable0, err := table.Block(0)
	if err != nil {
		return err
	}
	updatedTable1, err := table.Block(1)
	if err != nil {
		return err
	}

	// 6. Append five DATA records in fixed order, then one COMMIT.
	txn := Transaction{Writes: []BlockWrite{
		{Block: InodeBitmapBlock, Payload: inodeBitmap},
		{Block: DataBitmapBlock, Payload: dataBitmap},
		{Block: InodeTableStart, Payload: updatedTable0},
		{Block: InodeTableStart + 1, Payload: updatedTable1},
		{Block: root.Blocks[0], Payload: dir.Block()},
	}}
	if err := journal.Append(txn); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"inum":       freeInum,
		"data_block": DataBlocksStart + freeData,
		"dir_slot":   freeDirent,
	}).Info("logged file-creation transaction")
	return nil
}

// validateFilename requires a non-empty name, no NUL byte, length <
// MaxFilename, and printable-ASCII characters only.
func validateFilename(filename string) error {
	if len(filename) == 0 {
		return newErr(KindInvalidName, "filename must not be empty")
	}
	if len(filename) >= MaxFilename {
		return newErr(KindInvalidName, "filename %q is %d bytes, must be < %d", filename, len(filename), MaxFilename)
	}
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if c == 0 {
			return newErr(KindInvalidName, "filename must not contain a NUL byte")
		}
		if !printableASCII.Contains(c) {
			return newErr(KindInvalidName, "filename %q contains a non-printable-ASCII byte %#x", filename, c)
		}
	}
	return nil
}
