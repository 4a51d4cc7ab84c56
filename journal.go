package kvlite

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/yeqown/kvlite/avl"
)

// The journal is an append-only sequence of the mutations applied since the
// last snapshot. All integers are big-endian:
//
// |  op='+'  |  key_sz  |  key  |  value_sz  |  value  |
// |  op='-'  |  key_sz  |  key  |
const (
	opInsert = byte('+')
	opRemove = byte('-')

	journal_opOff      = 0
	journal_keySizeOff = journal_opOff + 1
	journal_keyOff     = journal_keySizeOff + 4

	journalBufferSize = 64 * 1024
)

// journalRecord is a single mutation in the journal.
type journalRecord struct {
	op    byte
	key   []byte
	value []byte // only for opInsert
}

func (rec *journalRecord) size() int {
	n := journal_keyOff + len(rec.key)
	if rec.op == opInsert {
		n += 4 + len(rec.value)
	}
	return n
}

func (rec *journalRecord) bytes() []byte {
	data := make([]byte, journal_keyOff, rec.size())
	data[journal_opOff] = rec.op
	binary.BigEndian.PutUint32(data[journal_keySizeOff:], uint32(len(rec.key)))
	data = append(data, rec.key...)
	if rec.op == opInsert {
		data = binary.BigEndian.AppendUint32(data, uint32(len(rec.value)))
		data = append(data, rec.value...)
	}

	return data
}

// apply performs rec on tree exactly as the live operation did.
func (rec *journalRecord) apply(tree *avl.Tree) {
	switch rec.op {
	case opInsert:
		tree.Insert(rec.key, rec.value)
	case opRemove:
		tree.Remove(rec.key)
	}
}

// readJournalRecord decodes the next record of r. io.EOF means r ended right
// at a record boundary, ErrUnexpectedEOF means the record is incomplete.
func readJournalRecord(r *bufio.Reader, opt *options) (*journalRecord, error) {
	op, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if op != opInsert && op != opRemove {
		return nil, errors.Wrapf(ErrInvalidOpcode, "opcode %#02x", op)
	}

	rec := &journalRecord{op: op}
	if rec.key, err = readJournalField(r, opt.maxKeyBytes); err != nil {
		return nil, err
	}
	if len(rec.key) == 0 {
		return nil, ErrKeyEmpty
	}

	if op == opInsert {
		if rec.value, err = readJournalField(r, opt.maxValueBytes); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

func readJournalField(r *bufio.Reader, limit uint32) ([]byte, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, unexpectedEOF(err)
	}

	size := binary.BigEndian.Uint32(head[:])
	if size > limit {
		return nil, errors.Wrapf(ErrKeyOrValueTooLong, "field of %d bytes", size)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, unexpectedEOF(err)
	}
	return data, nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrUnexpectedEOF
	}
	return err
}

// journal is the open journal file of a DB. It holds an exclusive lock on
// the file while open.
type journal struct {
	filename string
	file     afero.File
	size     int64 // end of the last complete record
	sync     bool

	unlock func() error
}

func openJournal(fs FileSystem, filename string, sync bool) (*journal, error) {
	f, err := fs.OpenFile(filename, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, openFileError(filename, err)
	}

	unlock, err := lockFile(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &journal{
		filename: filename,
		file:     f,
		sync:     sync,
		unlock:   unlock,
	}, nil
}

// replay applies every complete record to tree in file order. A trailing
// record cut short by a crash is dropped from the file and replay ends
// there, it never counts as corruption.
func (j *journal) replay(tree *avl.Tree, opt *options) (records int, dropped int64, err error) {
	if _, err = j.file.Seek(0, io.SeekStart); err != nil {
		return 0, 0, errors.Wrap(err, "journal replay seek")
	}

	var (
		r   = bufio.NewReaderSize(j.file, journalBufferSize)
		off int64
		rec *journalRecord
	)
	for {
		rec, err = readJournalRecord(r, opt)
		if err != nil {
			break
		}

		rec.apply(tree)
		off += int64(rec.size())
		records++
	}

	switch {
	case err == io.EOF:
	case errors.Is(err, ErrUnexpectedEOF):
		st, statErr := j.file.Stat()
		if statErr != nil {
			return records, 0, errors.Wrap(statErr, "journal replay stat")
		}
		dropped = st.Size() - off
		if err = j.file.Truncate(off); err != nil {
			return records, 0, errors.Wrap(err, "journal drop partial record")
		}
	case errors.Is(err, ErrInvalidOpcode), errors.Is(err, ErrKeyEmpty), errors.Is(err, ErrKeyOrValueTooLong):
		return records, 0, corrupted(j.filename, off, err)
	default:
		return records, 0, errors.Wrap(err, "journal replay read")
	}

	j.size = off
	if _, err = j.file.Seek(off, io.SeekStart); err != nil {
		return records, dropped, errors.Wrap(err, "journal replay seek")
	}

	return records, dropped, nil
}

// append writes rec with a single write call. A failed write or sync is cut
// off the file again, so the journal always ends at a record boundary.
func (j *journal) append(rec *journalRecord) (err error) {
	n, err := j.file.Write(rec.bytes())
	if err == nil && j.sync {
		err = j.file.Sync()
	}
	if err != nil {
		if n > 0 {
			_ = j.resize(j.size)
		}
		return errors.Wrap(err, "journal append")
	}

	j.size += int64(n)
	return nil
}

// truncate empties the journal, once a snapshot holds all of its records.
func (j *journal) truncate() error {
	if err := j.resize(0); err != nil {
		return errors.Wrap(err, "journal truncate")
	}
	return errors.Wrap(j.file.Sync(), "journal truncate sync")
}

func (j *journal) resize(size int64) error {
	if err := j.file.Truncate(size); err != nil {
		return err
	}
	if _, err := j.file.Seek(size, io.SeekStart); err != nil {
		return err
	}

	j.size = size
	return nil
}

func (j *journal) close() error {
	unlockErr := j.unlock()
	if err := j.file.Close(); err != nil {
		return errors.Wrap(err, "journal close")
	}
	return errors.Wrap(unlockErr, "journal unlock")
}
