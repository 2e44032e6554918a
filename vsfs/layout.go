// Package vsfs implements the on-disk data model, journal engine,
// formatter, file-creation transaction builder, consistency checker, and
// read-only reporting of the VSFS write-ahead-journaled file system.
//
// Every typed record here implements an explicit little-endian codec over
// a raw block buffer, decoding fixed on-disk records with encoding/binary
// rather than by punning memory to a struct pointer.
package vsfs

import (
	"encoding/binary"
	"fmt"

	"github.com/vsfs/vsfs/disk"
)

// B is the fixed block size in bytes. All transfers to/from the
// underlying disk.Device are exactly B bytes.
const B = disk.BlockSize

// Container layout: block-indexed, fixed offsets.
const (
	SuperblockBlock  = 0
	JournalStart     = 1
	JournalBlocks    = 16
	InodeBitmapBlock = 17
	DataBitmapBlock  = 18
	InodeTableStart  = 19
	InodeTableBlocks = 2
	DataBlocksStart  = 21
	DataBlocksCount  = 64
	TotalBlocks      = 85
)

// File system limits.
const (
	MaxInodes      = 64
	MaxFilename    = 28
	DirectPointers = 12
)

// Magic identifies a formatted VSFS container: the ASCII bytes of "VSFS"
// read most-significant byte first. Stored little-endian, so the bytes on
// disk are "SFSV".
const Magic uint32 = 0x56534653

// Inode types.
const (
	TypeUnused    uint16 = 0
	TypeDirectory uint16 = 1
	TypeFile      uint16 = 2
)

// Journal record types. An unrecognized type value during replay is
// reported and stops the scan rather than being silently misinterpreted.
const (
	RecordEmpty  uint32 = 0
	RecordData   uint32 = 1
	RecordCommit uint32 = 2
)

// inodeSize is the fixed on-disk size of one inode record: 4 (size) + 2
// (type) + 2 (nlink) + 12*4 (blocks) = 56 bytes of payload, padded to 64
// so it divides BlockSize evenly.
const inodeSize = 64

// InodesPerBlock is how many inode slots fit in one inode-table block.
const InodesPerBlock = B / inodeSize

// direntSize is the fixed on-disk size of one directory entry: MaxFilename
// (28) + 4 (inum) = 32 bytes, which divides BlockSize evenly.
const direntSize = MaxFilename + 4

// DirentsPerBlock is how many directory-entry slots fit in one data
// block — the root directory's entire capacity, since the root occupies
// exactly one data block.
const DirentsPerBlock = B / direntSize

// journalHeaderSize is the encoded length of a journalHeader; the
// remaining bytes of its block are zero padding. Each header occupies
// its own journal block.
const journalHeaderSize = 12

// Superblock carries layout constants and the magic identifier. Written
// once at format time and read-only thereafter.
type Superblock struct {
	Magic            uint32
	NumBlocks        uint32
	NumInodes        uint32
	InodeBitmapBlock uint32
	DataBitmapBlock  uint32
	InodeTableStart  uint32
	DataBlocksStart  uint32
}

// MarshalVSFS encodes the superblock into a zeroed B-byte block.
func (sb *Superblock) MarshalVSFS(b []byte) error {
	if len(b) != B {
		return fmt.Errorf("vsfs: superblock block must be %d bytes, got %d", B, len(b))
	}
	for i := range b {
		b[i] = 0
	}
	binary.LittleEndian.PutUint32(b[0:4], sb.Magic)
	binary.LittleEndian.PutUint32(b[4:8], sb.NumBlocks)
	binary.LittleEndian.PutUint32(b[8:12], sb.NumInodes)
	binary.LittleEndian.PutUint32(b[12:16], sb.InodeBitmapBlock)
	binary.LittleEndian.PutUint32(b[16:20], sb.DataBitmapBlock)
	binary.LittleEndian.PutUint32(b[20:24], sb.InodeTableStart)
	binary.LittleEndian.PutUint32(b[24:28], sb.DataBlocksStart)
	return nil
}

// UnmarshalVSFS decodes a superblock from a B-byte block.
func (sb *Superblock) UnmarshalVSFS(b []byte) error {
	if len(b) != B {
		return fmt.Errorf("vsfs: superblock block must be %d bytes, got %d", B, len(b))
	}
	sb.Magic = binary.LittleEndian.Uint32(b[0:4])
	sb.NumBlocks = binary.LittleEndian.Uint32(b[4:8])
	sb.NumInodes = binary.LittleEndian.Uint32(b[8:12])
	sb.InodeBitmapBlock = binary.LittleEndian.Uint32(b[12:16])
	sb.DataBitmapBlock = binary.LittleEndian.Uint32(b[16:20])
	sb.InodeTableStart = binary.LittleEndian.Uint32(b[20:24])
	sb.DataBlocksStart = binary.LittleEndian.Uint32(b[24:28])
	return nil
}

// Inode describes one file or the directory.
type Inode struct {
	Size   uint32
	Type   uint16
	Nlink  uint16
	Blocks [DirectPointers]uint32
}

// MarshalVSFS encodes the inode into an inodeSize-byte slot.
func (in *Inode) MarshalVSFS(b []byte) error {
	if len(b) != inodeSize {
		return fmt.Errorf("vsfs: inode slot must be %d bytes, got %d", inodeSize, len(b))
	}
	for i := range b {
		b[i] = 0
	}
	binary.LittleEndian.PutUint32(b[0:4], in.Size)
	binary.LittleEndian.PutUint16(b[4:6], in.Type)
	binary.LittleEndian.PutUint16(b[6:8], in.Nlink)
	for j, blk := range in.Blocks {
		off := 8 + j*4
		binary.LittleEndian.PutUint32(b[off:off+4], blk)
	}
	return nil
}

// UnmarshalVSFS decodes an inode from an inodeSize-byte slot.
func (in *Inode) UnmarshalVSFS(b []byte) error {
	if len(b) != inodeSize {
		return fmt.Errorf("vsfs: inode slot must be %d bytes, got %d", inodeSize, len(b))
	}
	in.Size = binary.LittleEndian.Uint32(b[0:4])
	in.Type = binary.LittleEndian.Uint16(b[4:6])
	in.Nlink = binary.LittleEndian.Uint16(b[6:8])
	for j := range in.Blocks {
		off := 8 + j*4
		in.Blocks[j] = binary.LittleEndian.Uint32(b[off : off+4])
	}
	return nil
}

// InodeTable is an indexed view over InodeTableBlocks blocks of inode
// slots. It keeps the caller's per-block buffers rather than copying them
// into one contiguous buffer, so Set also modifies those buffers.
type InodeTable struct {
	blocks [InodeTableBlocks][]byte
}

// NewInodeTable wraps InodeTableBlocks already-read block buffers (each
// exactly B bytes) as an indexable inode table.
func NewInodeTable(blocks [InodeTableBlocks][]byte) (*InodeTable, error) {
	for i, blk := range blocks {
		if len(blk) != B {
			return nil, fmt.Errorf("vsfs: inode table block %d must be %d bytes, got %d", i, B, len(blk))
		}
	}
	return &InodeTable{blocks: blocks}, nil
}

// Get decodes the inode at index idx (0 <= idx < MaxInodes).
func (t *InodeTable) Get(idx uint32) (Inode, error) {
	blockIdx, off, err := t.slot(idx)
	if err != nil {
		return Inode{}, err
	}
	var in Inode
	if err := in.UnmarshalVSFS(t.blocks[blockIdx][off : off+inodeSize]); err != nil {
		return Inode{}, err
	}
	return in, nil
}

// Set encodes in into the slot for index idx.
func (t *InodeTable) Set(idx uint32, in Inode) error {
	blockIdx, off, err := t.slot(idx)
	if err != nil {
		return err
	}
	return in.MarshalVSFS(t.blocks[blockIdx][off : off+inodeSize])
}

// Block returns the raw B-byte buffer for inode-table block i (0 or 1),
// reflecting any prior Set calls — this is the buffer that gets journaled.
func (t *InodeTable) Block(i int) ([]byte, error) {
	if i < 0 || i >= InodeTableBlocks {
		return nil, fmt.Errorf("vsfs: inode table block index %d out of range", i)
	}
	return t.blocks[i], nil
}

func (t *InodeTable) slot(idx uint32) (blockIdx int, offset int, err error) {
	if idx >= MaxInodes {
		return 0, 0, fmt.Errorf("vsfs: inode index %d out of range [0,%d)", idx, MaxInodes)
	}
	perBlock := uint32(InodesPerBlock)
	blockIdx = int(idx / perBlock)
	offset = int(idx%perBlock) * inodeSize
	return blockIdx, offset, nil
}

// DirEntry is a name/inode-number pair stored in a directory's data block.
type DirEntry struct {
	Name string
	Inum uint32
}

// MarshalVSFS encodes the entry into a direntSize-byte slot: Name
// null-terminated and zero-padded, remainder Inum.
func (de *DirEntry) MarshalVSFS(b []byte) error {
	if len(b) != direntSize {
		return fmt.Errorf("vsfs: dirent slot must be %d bytes, got %d", direntSize, len(b))
	}
	if len(de.Name) >= MaxFilename {
		return fmt.Errorf("vsfs: dirent name %q too long for %d-byte field", de.Name, MaxFilename)
	}
	for i := 0; i < MaxFilename; i++ {
		b[i] = 0
	}
	copy(b[:MaxFilename], de.Name)
	binary.LittleEndian.PutUint32(b[MaxFilename:MaxFilename+4], de.Inum)
	return nil
}

// UnmarshalVSFS decodes a directory entry from a direntSize-byte slot.
func (de *DirEntry) UnmarshalVSFS(b []byte) error {
	if len(b) != direntSize {
		return fmt.Errorf("vsfs: dirent slot must be %d bytes, got %d", direntSize, len(b))
	}
	nul := MaxFilename
	for i, c := range b[:MaxFilename] {
		if c == 0 {
			nul = i
			break
		}
	}
	de.Name = string(b[:nul])
	de.Inum = binary.LittleEndian.Uint32(b[MaxFilename : MaxFilename+4])
	return nil
}

// Directory is an indexable view over one data block's worth of
// directory entries.
type Directory struct {
	block []byte
}

// NewDirectory wraps an already-read B-byte data block as an indexable
// directory.
func NewDirectory(block []byte) (*Directory, error) {
	if len(block) != B {
		return nil, fmt.Errorf("vsfs: directory block must be %d bytes, got %d", B, len(block))
	}
	return &Directory{block: block}, nil
}

// Get decodes the directory entry at slot idx (0 <= idx < DirentsPerBlock).
func (d *Directory) Get(idx int) (DirEntry, error) {
	off, err := d.slot(idx)
	if err != nil {
		return DirEntry{}, err
	}
	var de DirEntry
	if err := de.UnmarshalVSFS(d.block[off : off+direntSize]); err != nil {
		return DirEntry{}, err
	}
	return de, nil
}

// Set encodes de into slot idx.
func (d *Directory) Set(idx int, de DirEntry) error {
	off, err := d.slot(idx)
	if err != nil {
		return err
	}
	return de.MarshalVSFS(d.block[off : off+direntSize])
}

// Block returns the raw B-byte buffer, reflecting any prior Set calls.
func (d *Directory) Block() []byte { return d.block }

func (d *Directory) slot(idx int) (int, error) {
	if idx < 0 || idx >= DirentsPerBlock {
		return 0, fmt.Errorf("vsfs: directory slot %d out of range [0,%d)", idx, DirentsPerBlock)
	}
	return idx * direntSize, nil
}

// journalHeader is the header of one journal record.
type journalHeader struct {
	Type     uint32
	BlockNum uint32
	Size     uint32
}

// marshalVSFS encodes the header into a zeroed B-byte journal block.
func (h *journalHeader) marshalVSFS(b []byte) error {
	if len(b) != B {
		return fmt.Errorf("vsfs: journal header block must be %d bytes, got %d", B, len(b))
	}
	for i := range b {
		b[i] = 0
	}
	binary.LittleEndian.PutUint32(b[0:4], h.Type)
	binary.LittleEndian.PutUint32(b[4:8], h.BlockNum)
	binary.LittleEndian.PutUint32(b[8:12], h.Size)
	return nil
}

// unmarshalVSFS decodes a journal header from a B-byte journal block.
func (h *journalHeader) unmarshalVSFS(b []byte) error {
	if len(b) != B {
		return fmt.Errorf("vsfs: journal header block must be %d bytes, got %d", B, len(b))
	}
	h.Type = binary.LittleEndian.Uint32(b[0:4])
	h.BlockNum = binary.LittleEndian.Uint32(b[4:8])
	h.Size = binary.LittleEndian.Uint32(b[8:12])
	return nil
}

// isZero reports whether b is entirely zero bytes — used by FindEnd to
// detect the end of the journal log.
func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
