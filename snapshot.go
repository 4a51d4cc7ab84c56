package kvlite

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/yeqown/kvlite/avl"
)

// A snapshot is the whole tree written in pre-order. Every subtree position
// starts with a 4 bytes tag, all integers are big-endian:
//
// |  tag=magic  |  key_sz  |  key  |  value_sz  |  value  |  crc  |  diff  |  left  |  right  |
// |  tag=0  |                                                     (empty subtree)
//
// crc is the CRC32 (IEEE) of key followed by value, diff is the balance
// factor as a two's complement int32.
const (
	snapshotMagic       = uint32(0x4B564E44) // "KVND"
	snapshotEmptyMarker = uint32(0)

	// tag, key_sz, value_sz, crc and diff.
	snapshot_fixedBytes = 20
	snapshot_emptyBytes = 4

	snapshotBufferSize = 64 * 1024
)

// crcTable is built once for the whole process.
var crcTable = crc32.MakeTable(crc32.IEEE)

// checksum is the CRC32 of key followed by value.
func checksum(key, value []byte) uint32 {
	return crc32.Update(crc32.Checksum(key, crcTable), crcTable, value)
}

// appendSnapshotRecord appends the encoded rec to data, a nil rec encodes
// the empty subtree marker.
func appendSnapshotRecord(data []byte, rec *avl.Record) []byte {
	if rec == nil {
		return binary.BigEndian.AppendUint32(data, snapshotEmptyMarker)
	}

	data = binary.BigEndian.AppendUint32(data, snapshotMagic)
	data = binary.BigEndian.AppendUint32(data, uint32(len(rec.Key)))
	data = append(data, rec.Key...)
	data = binary.BigEndian.AppendUint32(data, uint32(len(rec.Value)))
	data = append(data, rec.Value...)
	data = binary.BigEndian.AppendUint32(data, checksum(rec.Key, rec.Value))
	data = binary.BigEndian.AppendUint32(data, uint32(int32(rec.Diff)))

	return data
}

// writeSnapshot encodes tree into w and returns the number of bytes written.
func writeSnapshot(w io.Writer, tree *avl.Tree) (int64, error) {
	var (
		written int64
		buf     = make([]byte, 0, 256)
	)

	err := tree.PreOrder(func(rec *avl.Record) error {
		buf = appendSnapshotRecord(buf[:0], rec)
		n, err := w.Write(buf)
		written += int64(n)
		return err
	})
	if err != nil {
		return written, errors.Wrap(err, "writeSnapshot")
	}

	return written, nil
}

type snapshotReader struct {
	r        io.Reader
	filename string
	opt      *options

	off int64
	buf [4]byte
}

func (sr *snapshotReader) full(p []byte) error {
	n, err := io.ReadFull(sr.r, p)
	sr.off += int64(n)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrUnexpectedEOF
	}

	return err
}

func (sr *snapshotReader) uint32() (uint32, error) {
	if err := sr.full(sr.buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(sr.buf[:]), nil
}

// bytes reads a length prefixed field no longer than limit.
func (sr *snapshotReader) bytes(limit uint32) ([]byte, error) {
	size, err := sr.uint32()
	if err != nil {
		return nil, err
	}
	if size > limit {
		return nil, errors.Wrapf(ErrKeyOrValueTooLong, "field of %d bytes", size)
	}

	data := make([]byte, size)
	if err = sr.full(data); err != nil {
		return nil, err
	}
	return data, nil
}

// next decodes the record at the current position, a nil record stands for
// an empty subtree.
func (sr *snapshotReader) next() (*avl.Record, error) {
	start := sr.off
	rec, err := sr.decode()
	if err == nil {
		return rec, nil
	}

	switch {
	case errors.Is(err, ErrUnexpectedEOF),
		errors.Is(err, ErrInvalidMagic),
		errors.Is(err, ErrChecksumMismatch),
		errors.Is(err, ErrKeyEmpty),
		errors.Is(err, ErrKeyOrValueTooLong),
		errors.Is(err, avl.ErrLopsided):
		return nil, corrupted(sr.filename, start, err)
	}
	return nil, errors.Wrap(err, "read snapshot")
}

func (sr *snapshotReader) decode() (*avl.Record, error) {
	tag, err := sr.uint32()
	if err != nil {
		return nil, err
	}
	switch tag {
	case snapshotEmptyMarker:
		return nil, nil
	case snapshotMagic:
	default:
		return nil, errors.Wrapf(ErrInvalidMagic, "tag %#08x", tag)
	}

	rec := &avl.Record{}
	if rec.Key, err = sr.bytes(sr.opt.maxKeyBytes); err != nil {
		return nil, err
	}
	if len(rec.Key) == 0 {
		return nil, ErrKeyEmpty
	}
	if rec.Value, err = sr.bytes(sr.opt.maxValueBytes); err != nil {
		return nil, err
	}

	crc, err := sr.uint32()
	if err != nil {
		return nil, err
	}
	if want := checksum(rec.Key, rec.Value); crc != want {
		return nil, errors.Wrapf(ErrChecksumMismatch, "key %q: stored %#08x, computed %#08x", rec.Key, crc, want)
	}

	diff, err := sr.uint32()
	if err != nil {
		return nil, err
	}
	rec.Diff = int(int32(diff))
	if rec.Diff < -1 || rec.Diff > 1 {
		return nil, errors.Wrapf(avl.ErrLopsided, "key %q: stored diff %d", rec.Key, rec.Diff)
	}

	return rec, nil
}

// readSnapshot decodes a whole snapshot. Nothing but a complete, intact
// tree is returned.
func readSnapshot(r io.Reader, filename string, opt *options) (*avl.Tree, int64, error) {
	sr := &snapshotReader{r: r, filename: filename, opt: opt}

	tree, err := avl.Build(sr.next)
	if err != nil {
		// a stale diff is reported where its subtree ends.
		if errors.Is(err, avl.ErrTooDeep) || errors.Is(err, avl.ErrInternalBalance) {
			return nil, sr.off, corrupted(filename, sr.off, err)
		}
		return nil, sr.off, err
	}

	end := sr.off
	var extra [1]byte
	n, err := io.ReadFull(r, extra[:])
	if n > 0 {
		return nil, end, corrupted(filename, end, ErrTrailingData)
	}
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, end, errors.Wrap(err, "read snapshot")
	}

	return tree, end, nil
}

// loadSnapshotFile reads the snapshot stored in filename. A missing file is
// an empty tree, while an empty file is corrupted: Save always writes at
// least the 4 bytes empty marker.
func loadSnapshotFile(fs FileSystem, filename string, opt *options) (*avl.Tree, int64, error) {
	exists, err := afero.Exists(fs, filename)
	if err != nil {
		return nil, 0, errors.Wrap(err, "loadSnapshotFile stat")
	}
	if !exists {
		return avl.New(), 0, nil
	}

	f, err := fs.Open(filename)
	if err != nil {
		return nil, 0, openFileError(filename, err)
	}
	defer func() { _ = f.Close() }()

	return readSnapshot(bufio.NewReaderSize(f, snapshotBufferSize), filename, opt)
}

// saveSnapshotFile writes tree to filename. The previous snapshot is kept as
// a backup until the new one is synced, and put back if writing fails.
func saveSnapshotFile(fs FileSystem, filename string, tree *avl.Tree) (written int64, err error) {
	exists, err := afero.Exists(fs, filename)
	if err != nil {
		return 0, errors.Wrap(err, "saveSnapshotFile stat")
	}

	var restoreFn, cleanFn func() error
	if exists {
		if restoreFn, cleanFn, err = backupFile(fs, filename); err != nil {
			return 0, err
		}
	}

	defer func() {
		if err == nil {
			if cleanFn != nil {
				err = errors.Wrap(cleanFn(), "saveSnapshotFile remove backup")
			}
			return
		}

		_ = fs.Remove(filename)
		if restoreFn != nil {
			_ = restoreFn()
		}
	}()

	f, err := fs.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, openFileError(filename, err)
	}

	w := bufio.NewWriterSize(f, snapshotBufferSize)
	if written, err = writeSnapshot(w, tree); err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return written, errors.Wrap(err, "saveSnapshotFile write")
	}

	return written, nil
}
