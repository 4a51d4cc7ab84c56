package kvlite

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeqown/kvlite/avl"
)

func Test_checksum(t *testing.T) {
	// CRC32 check value of "123456789".
	assert.Equal(t, uint32(0xCBF43926), checksum([]byte("1234"), []byte("56789")))
	assert.Equal(t, crc32.ChecksumIEEE([]byte("kv")), checksum([]byte("k"), []byte("v")))
	assert.Equal(t, uint32(0), checksum(nil, nil))
}

func Test_writeSnapshot_empty(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	n, err := writeSnapshot(buf, avl.New())
	require.NoError(t, err)

	assert.EqualValues(t, snapshot_emptyBytes, n)
	assert.Equal(t, []byte{0, 0, 0, 0}, buf.Bytes())
}

func Test_writeSnapshot_single(t *testing.T) {
	tree := avl.New()
	tree.Insert([]byte("k"), []byte("vv"))

	buf := bytes.NewBuffer(nil)
	n, err := writeSnapshot(buf, tree)
	require.NoError(t, err)

	want := []byte{'K', 'V', 'N', 'D', 0, 0, 0, 1, 'k', 0, 0, 0, 2, 'v', 'v'}
	want = binary.BigEndian.AppendUint32(want, crc32.ChecksumIEEE([]byte("kvv")))
	want = append(want, 0, 0, 0, 0) // diff
	want = append(want, 0, 0, 0, 0) // left
	want = append(want, 0, 0, 0, 0) // right

	assert.Equal(t, want, buf.Bytes())
	assert.EqualValues(t, len(want), n)
	assert.Equal(t, snapshot_fixedBytes+3+2*snapshot_emptyBytes, len(want))
}

func Test_writeSnapshot_negativeDiff(t *testing.T) {
	tree := avl.New()
	tree.Insert([]byte("b"), []byte("2"))
	tree.Insert([]byte("a"), []byte("1"))

	buf := bytes.NewBuffer(nil)
	_, err := writeSnapshot(buf, tree)
	require.NoError(t, err)

	// root "b" leans left.
	diff := buf.Bytes()[snapshot_fixedBytes-4+2 : snapshot_fixedBytes+2]
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, diff)
}

func Test_readSnapshot_roundTrip(t *testing.T) {
	tree := avl.New()
	for i := 0; i < 1000; i++ {
		k := []byte{byte(i >> 8), byte(i)}
		tree.Insert(k, bytes.Repeat(k, i%7))
	}
	tree.Remove([]byte{0, 7})

	buf := bytes.NewBuffer(nil)
	written, err := writeSnapshot(buf, tree)
	require.NoError(t, err)

	got, read, err := readSnapshot(buf, "mem", defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, written, read)
	assert.Equal(t, tree.Len(), got.Len())
	assert.Equal(t, tree.Height(), got.Height())
	assert.NoError(t, got.Check())

	tree.Ascend(func(key, value []byte) bool {
		v, ok := got.Search(key)
		assert.True(t, ok)
		assert.Equal(t, value, v)
		return true
	})
}

func encodeRecord(key, value string, diff int) []byte {
	return appendSnapshotRecord(nil, &avl.Record{Key: []byte(key), Value: []byte(value), Diff: diff})
}

func Test_readSnapshot_corrupted(t *testing.T) {
	empty := []byte{0, 0, 0, 0}
	leaf := func(key, value string, diff int) []byte {
		data := encodeRecord(key, value, diff)
		return append(append(data, empty...), empty...)
	}

	badCrc := leaf("k", "v", 0)
	badCrc[snapshot_fixedBytes-8+2] ^= 0x01

	// "a" claims to lean left but only has a right child.
	staleDiff := append(append(encodeRecord("a", "1", -1), empty...), leaf("b", "2", 0)...)

	tests := []struct {
		name   string
		data   []byte
		cause  error
		offset int64
	}{
		{name: "zero bytes", data: nil, cause: ErrUnexpectedEOF},
		{name: "bad tag", data: []byte{'K', 'V', 'N', 'X'}, cause: ErrInvalidMagic},
		{name: "bad checksum", data: badCrc, cause: ErrChecksumMismatch},
		{name: "short record", data: leaf("k", "v", 0)[:10], cause: ErrUnexpectedEOF},
		{name: "missing right", data: leaf("k", "v", 0)[:snapshot_fixedBytes+2+4], cause: ErrUnexpectedEOF, offset: snapshot_fixedBytes + 2 + 4},
		{name: "lopsided diff", data: leaf("k", "v", 2), cause: avl.ErrLopsided},
		{name: "empty key", data: leaf("", "v", 0), cause: ErrKeyEmpty},
		{name: "stale diff", data: staleDiff, cause: avl.ErrInternalBalance, offset: int64(len(staleDiff))},
		{name: "trailing data", data: append(leaf("k", "v", 0), 0), cause: ErrTrailingData, offset: snapshot_fixedBytes + 2 + 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, _, err := readSnapshot(bytes.NewReader(tt.data), "mem", defaultOptions())
			assert.Nil(t, tree)
			assert.ErrorIs(t, err, ErrCorrupted)
			assert.ErrorIs(t, err, tt.cause)

			var ce *CorruptionError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.offset, ce.Offset)
		})
	}
}

func Test_readSnapshot_tooLong(t *testing.T) {
	data := encodeRecord("12345", "v", 0)
	data = append(data, make([]byte, 8)...)

	opt := defaultOptions()
	WithMaxKeyBytes(4).apply(opt)

	_, _, err := readSnapshot(bytes.NewReader(data), "mem", opt)
	assert.ErrorIs(t, err, ErrCorrupted)
	assert.ErrorIs(t, err, ErrKeyOrValueTooLong)
}

func Test_readSnapshot_tooDeep(t *testing.T) {
	// a chain of left children, every record claims to be balanced.
	var data []byte
	for i := 0; i <= avl.MaxHeight; i++ {
		data = append(data, encodeRecord(string(rune('A'+i)), "", 0)...)
	}

	_, _, err := readSnapshot(bytes.NewReader(data), "mem", defaultOptions())
	assert.ErrorIs(t, err, ErrCorrupted)
	assert.ErrorIs(t, err, avl.ErrTooDeep)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, afero.ErrFileClosed }

func Test_readSnapshot_readErrorAfterTree(t *testing.T) {
	r := io.MultiReader(bytes.NewReader([]byte{0, 0, 0, 0}), failingReader{})

	tree, _, err := readSnapshot(r, "mem", defaultOptions())
	assert.Nil(t, tree)
	assert.ErrorIs(t, err, afero.ErrFileClosed)
	assert.NotErrorIs(t, err, ErrCorrupted)
}

func Test_loadSnapshotFile_empty(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/empty.kvdb", nil, 0644))

	_, _, err := loadSnapshotFile(fs, "/empty.kvdb", defaultOptions())
	assert.ErrorIs(t, err, ErrCorrupted)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func Test_loadSnapshotFile_missing(t *testing.T) {
	tree, n, err := loadSnapshotFile(afero.NewMemMapFs(), "/absent.kvdb", defaultOptions())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, tree.Len())
}

func Test_saveSnapshotFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	filename := "/data/test.kvdb"
	require.NoError(t, fs.MkdirAll("/data", 0755))

	tree := avl.New()
	tree.Insert([]byte("a"), []byte("1"))
	_, err := saveSnapshotFile(fs, filename, tree)
	require.NoError(t, err)

	tree.Insert([]byte("b"), []byte("2"))
	written, err := saveSnapshotFile(fs, filename, tree)
	require.NoError(t, err)

	st, err := fs.Stat(filename)
	require.NoError(t, err)
	assert.Equal(t, written, st.Size())

	exist, err := afero.Exists(fs, backupFilename(filename))
	require.NoError(t, err)
	assert.False(t, exist)

	got, _, err := loadSnapshotFile(fs, filename, defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
}

func Test_saveSnapshotFile_failureKeepsSnapshot(t *testing.T) {
	base := afero.NewMemMapFs()
	filename := "/data/test.kvdb"
	require.NoError(t, afero.WriteFile(base, filename, []byte{0, 0, 0, 0}, 0644))

	// a read-only layer refuses to move the snapshot away.
	fs := afero.NewReadOnlyFs(base)
	_, err := saveSnapshotFile(fs, filename, avl.New())
	require.Error(t, err)

	data, err := afero.ReadFile(base, filename)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, data)
}
