package vsfs

import (
	"fmt"
	"io"
	"time"

	"github.com/djherbis/times"

	"github.com/vsfs/vsfs/bitmap"
	"github.com/vsfs/vsfs/disk"
)

// FileEntry is one occupied root-directory slot, as reported by List.
type FileEntry struct {
	Name string
	Inum uint32
	Size uint32
}

// List walks the root directory and returns its occupied entries in
// directory-slot order.
func List(dev *disk.Device) ([]FileEntry, error) {
	table0 := make([]byte, B)
	if err := dev.ReadBlock(InodeTableStart, table0); err != nil {
		return nil, wrapErr(KindIO, err, "list: reading inode table block 0")
	}
	table1 := make([]byte, B)
	if err := dev.ReadBlock(InodeTableStart+1, table1); err != nil {
		return nil, wrapErr(KindIO, err, "list: reading inode table block 1")
	}
	table, err := NewInodeTable([InodeTableBlocks][]byte{table0, table1})
	if err != nil {
		return nil, wrapErr(KindIO, err, "list: building inode table view")
	}
	root, err := table.Get(0)
	if err != nil {
		return nil, wrapErr(KindIO, err, "list: reading root inode")
	}
	if root.Blocks[0] == 0 {
		return nil, newErr(KindIO, "root directory has no data block")
	}

	rootDirBlock := make([]byte, B)
	if err := dev.ReadBlock(root.Blocks[0], rootDirBlock); err != nil {
		return nil, wrapErr(KindIO, err, "list: reading root directory block")
	}
	dir, err := NewDirectory(rootDirBlock)
	if err != nil {
		return nil, wrapErr(KindIO, err, "list: building root directory view")
	}

	var entries []FileEntry
	for i := 0; i < DirentsPerBlock; i++ {
		de, err := dir.Get(i)
		if err != nil {
			return nil, wrapErr(KindIO, err, "list: reading directory slot %d", i)
		}
		if de.Inum == 0 {
			continue
		}
		fileInode, err := table.Get(de.Inum)
		if err != nil {
			return nil, wrapErr(KindIO, err, "list: reading inode %d", de.Inum)
		}
		entries = append(entries, FileEntry{Name: de.Name, Inum: de.Inum, Size: fileInode.Size})
	}
	return entries, nil
}

// WriteLS prints a header line, one line per file (name, inode, size,
// whitespace separated), and a trailing total line.
func WriteLS(w io.Writer, entries []FileEntry) {
	fmt.Fprintln(w, "Files in root directory:")
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %d  %d\n", e.Name, e.Inum, e.Size)
	}
	fmt.Fprintf(w, "Total: %d files\n", len(entries))
}

// Stats summarizes the superblock and allocation state, read-only.
type Stats struct {
	Superblock       Superblock
	UsedInodes       int
	UsedDataBlocks   int
	FreeInodes       int
	FreeDataBlocks   int
	ContainerModTime time.Time // host file mtime, best-effort
}

// Stat reports superblock fields and used/free inode and data-block
// counts.
func Stat(dev *disk.Device, path string) (Stats, error) {
	var stats Stats

	sbBlock := make([]byte, B)
	if err := dev.ReadBlock(SuperblockBlock, sbBlock); err != nil {
		return stats, wrapErr(KindIO, err, "stat: reading superblock")
	}
	if err := stats.Superblock.UnmarshalVSFS(sbBlock); err != nil {
		return stats, wrapErr(KindIO, err, "stat: decoding superblock")
	}

	inodeBitmap := make([]byte, B)
	if err := dev.ReadBlock(InodeBitmapBlock, inodeBitmap); err != nil {
		return stats, wrapErr(KindIO, err, "stat: reading inode bitmap")
	}
	dataBitmap := make([]byte, B)
	if err := dev.ReadBlock(DataBitmapBlock, dataBitmap); err != nil {
		return stats, wrapErr(KindIO, err, "stat: reading data bitmap")
	}

	for i := uint32(0); i < MaxInodes; i++ {
		if bitmap.Get(inodeBitmap, i) == 1 {
			stats.UsedInodes++
		}
	}
	for i := uint32(0); i < DataBlocksCount; i++ {
		if bitmap.Get(dataBitmap, i) == 1 {
			stats.UsedDataBlocks++
		}
	}
	stats.FreeInodes = MaxInodes - stats.UsedInodes
	stats.FreeDataBlocks = DataBlocksCount - stats.UsedDataBlocks

	// Host container mtime, best-effort, purely cosmetic.
	if ts, err := times.Stat(path); err == nil {
		stats.ContainerModTime = ts.ModTime()
	}

	return stats, nil
}

// WriteStat prints a human-readable stats report.
func WriteStat(w io.Writer, stats Stats) {
	fmt.Fprintln(w, "File System Statistics:")
	fmt.Fprintf(w, "  Magic:        0x%08x\n", stats.Superblock.Magic)
	fmt.Fprintf(w, "  Total blocks: %d\n", stats.Superblock.NumBlocks)
	fmt.Fprintf(w, "  Total inodes: %d\n", stats.Superblock.NumInodes)
	fmt.Fprintf(w, "  Used inodes:  %d / %d\n", stats.UsedInodes, MaxInodes)
	fmt.Fprintf(w, "  Used blocks:  %d / %d\n", stats.UsedDataBlocks, DataBlocksCount)
	fmt.Fprintf(w, "  Free inodes:  %d\n", stats.FreeInodes)
	fmt.Fprintf(w, "  Free blocks:  %d\n", stats.FreeDataBlocks)
	if !stats.ContainerModTime.IsZero() {
		fmt.Fprintf(w, "  Container modified: %s\n", stats.ContainerModTime.Format(time.RFC3339))
	}
}
