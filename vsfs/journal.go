package vsfs

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vsfs/vsfs/disk"
)

// Journal drives the write-ahead log occupying JournalStart..JournalStart+
// JournalBlocks-1. It is the centerpiece of VSFS: record framing,
// transactional grouping, replay semantics, and the crash-recovery
// guarantee that a committed transaction is always fully applied.
type Journal struct {
	dev *disk.Device
}

// NewJournal wraps an open device for journal operations.
func NewJournal(dev *disk.Device) *Journal {
	return &Journal{dev: dev}
}

// FindEnd scans journal blocks from offset 0 upward and returns the
// offset of the first all-zero block, or JournalBlocks if none is found
// (the log is full).
func (j *Journal) FindEnd() (int, error) {
	block := make([]byte, B)
	for i := 0; i < JournalBlocks; i++ {
		if err := j.dev.ReadBlock(uint32(JournalStart+i), block); err != nil {
			return 0, wrapErr(KindIO, err, "journal: scanning for end at offset %d", i)
		}
		if isZero(block) {
			return i, nil
		}
	}
	return JournalBlocks, nil
}

// appendData writes one DATA record (header block + payload block) at
// journal offset pos. Caller guarantees pos+1 is in range.
func (j *Journal) appendData(pos int, destBlock uint32, payload []byte) error {
	header := journalHeader{Type: RecordData, BlockNum: destBlock, Size: B}
	headerBlock := make([]byte, B)
	if err := header.marshalVSFS(headerBlock); err != nil {
		return wrapErr(KindIO, err, "journal: encoding DATA header at offset %d", pos)
	}
	if err := j.dev.WriteBlock(uint32(JournalStart+pos), headerBlock); err != nil {
		return wrapErr(KindIO, err, "journal: writing DATA header at offset %d", pos)
	}
	if err := j.dev.WriteBlock(uint32(JournalStart+pos+1), payload); err != nil {
		return wrapErr(KindIO, err, "journal: writing DATA payload at offset %d", pos+1)
	}
	return nil
}

// appendCommit writes a COMMIT record at journal offset pos. It must be
// the last write of a transaction: every DATA record's header+payload
// must already be durable (disk.Device.WriteBlock flushes synchronously,
// so sequential calls in append order already satisfy this).
func (j *Journal) appendCommit(pos int) error {
	header := journalHeader{Type: RecordCommit, BlockNum: 0, Size: 0}
	block := make([]byte, B)
	if err := header.marshalVSFS(block); err != nil {
		return wrapErr(KindIO, err, "journal: encoding COMMIT at offset %d", pos)
	}
	if err := j.dev.WriteBlock(uint32(JournalStart+pos), block); err != nil {
		return wrapErr(KindIO, err, "journal: writing COMMIT at offset %d", pos)
	}
	return nil
}

// Transaction is a sequence of DATA records (one per destination block,
// in the given order) terminated by exactly one COMMIT.
type Transaction struct {
	// Writes are applied as DATA records in order.
	Writes []BlockWrite
}

// BlockWrite pairs a destination container block with its new, complete
// content.
type BlockWrite struct {
	Block   uint32
	Payload []byte
}

// Append writes txn to the journal as DATA records followed by one
// COMMIT. It first verifies there is room for the whole transaction
// (FindEnd() + 2*len(txn.Writes) + 1 <= JournalBlocks); if not, it fails
// with JournalFull and writes nothing.
func (j *Journal) Append(txn Transaction) error {
	id := uuid.New()
	log := logrus.WithFields(logrus.Fields{"component": "journal", "txn": id})

	pos, err := j.FindEnd()
	if err != nil {
		return err
	}
	needed := 2*len(txn.Writes) + 1
	if pos+needed > JournalBlocks {
		return newErr(KindJournalFull, "need %d journal blocks, have %d available", needed, JournalBlocks-pos)
	}

	for _, w := range txn.Writes {
		if err := j.appendData(pos, w.Block, w.Payload); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"offset": pos, "dest_block": w.Block}).Debug("appended DATA record")
		pos += 2
	}
	if err := j.appendCommit(pos); err != nil {
		return err
	}
	log.WithField("offset", pos).Info("appended COMMIT record")
	return nil
}

// InstallResult summarizes one Install call.
type InstallResult struct {
	Transactions   int
	RecordsApplied int
}

// Install replays the journal from offset 0, applying every DATA record
// as soon as it's seen, whether or not a COMMIT follows, until an empty
// block or an unrecognized record type is found, then zeroes the entire
// journal.
func (j *Journal) Install() (InstallResult, error) {
	id := uuid.New()
	log := logrus.WithFields(logrus.Fields{"component": "journal", "txn": id})

	var result InstallResult
	var corrupt *Error
	header := make([]byte, B)
	payload := make([]byte, B)
	offset := 0

	for offset < JournalBlocks {
		if err := j.dev.ReadBlock(uint32(JournalStart+offset), header); err != nil {
			return result, wrapErr(KindIO, err, "journal: reading header at offset %d", offset)
		}
		var h journalHeader
		if err := h.unmarshalVSFS(header); err != nil {
			return result, wrapErr(KindIO, err, "journal: decoding header at offset %d", offset)
		}

		switch h.Type {
		case RecordEmpty:
			log.WithField("offset", offset).Debug("reached end of journal log")
			goto clear

		case RecordData:
			if offset+1 >= JournalBlocks {
				log.WithField("offset", offset).Warn("incomplete DATA record at end of journal, stopping replay")
				goto clear
			}
			if err := j.dev.ReadBlock(uint32(JournalStart+offset+1), payload); err != nil {
				return result, wrapErr(KindIO, err, "journal: reading DATA payload at offset %d", offset+1)
			}
			if err := j.dev.WriteBlock(h.BlockNum, payload); err != nil {
				return result, wrapErr(KindIO, err, "journal: applying DATA record to block %d", h.BlockNum)
			}
			log.WithFields(logrus.Fields{"offset": offset, "dest_block": h.BlockNum}).Debug("applied DATA record")
			result.RecordsApplied++
			offset += 2

		case RecordCommit:
			result.Transactions++
			log.WithFields(logrus.Fields{"offset": offset, "transaction": result.Transactions}).Info("found COMMIT record")
			offset++

		default:
			log.WithFields(logrus.Fields{"offset": offset, "type": h.Type}).Warn("unknown journal record type, stopping replay")
			corrupt = newErr(KindCorruptJournal, "unrecognized journal record type %d at offset %d", h.Type, offset)
			goto clear
		}
	}

clear:
	zero := make([]byte, B)
	for i := 0; i < JournalBlocks; i++ {
		if err := j.dev.WriteBlock(uint32(JournalStart+i), zero); err != nil {
			return result, wrapErr(KindIO, err, "journal: clearing block %d", i)
		}
	}
	log.WithFields(logrus.Fields{
		"transactions":    result.Transactions,
		"records_applied": result.RecordsApplied,
	}).Info("install complete, journal cleared")
	if corrupt != nil {
		return result, corrupt
	}
	return result, nil
}
