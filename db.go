package kvlite

import (
	"bytes"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/yeqown/kvlite/avl"
)

// DB is an embedded key-value store. All pairs live in a balanced tree in
// memory, durability comes from two files:
//
//   - the snapshot, the whole tree as of the last Save;
//   - the journal, every Insert and Remove since that Save, appended before
//     the tree is touched.
//
// Open loads the snapshot and replays the journal on top of it. Save writes a
// new snapshot and empties the journal.
//
// A DB opened with an empty path never touches any file.
//
// All methods are safe for concurrent use, they are serialized by the
// handle's mutex.
type DB struct {
	mu sync.Mutex

	opt  *options
	path string // snapshot file, empty in memory mode

	tree    *avl.Tree
	journal *journal // nil in memory mode

	closed bool
}

// Open creates or restores the database whose snapshot is stored in path.
// An empty path opens a database that only lives in memory.
func Open(path string, options ...Option) (*DB, error) {
	opt := defaultOptions()
	for _, o := range options {
		o.apply(opt)
	}

	db := &DB{
		opt:  opt,
		path: path,
		tree: avl.New(),
	}
	if path == "" {
		return db, nil
	}

	if err := db.restore(); err != nil {
		return nil, err
	}

	return db, nil
}

// restore loads snapshot and journal from the file system into db.
func (db *DB) restore() (err error) {
	fs, logger := db.opt.fs, db.opt.logger

	if err = ensurePath(fs, filepath.Dir(db.path)); err != nil {
		return errors.Wrap(err, "ensure database directory")
	}

	// lock first, nobody else may touch the files from now on.
	if db.journal, err = openJournal(fs, journalFilename(db.path), db.opt.syncJournal); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = db.journal.close()
			db.journal = nil
		}
	}()

	restored, err := restoreBackup(fs, db.path)
	if err != nil {
		return err
	}
	if restored {
		logger.Warn("interrupted save, previous snapshot restored", "path", db.path)
	}

	tree, n, err := loadSnapshotFile(fs, db.path, db.opt)
	if err != nil {
		return err
	}
	logger.Info("snapshot loaded", "path", db.path, "nodes", tree.Len(), "bytes", n)

	records, dropped, err := db.journal.replay(tree, db.opt)
	if err != nil {
		return err
	}
	if dropped > 0 {
		logger.Warn("partial journal record discarded",
			"path", db.journal.filename, "offset", db.journal.size, "bytes", dropped)
	}
	logger.Info("journal replayed", "path", db.journal.filename, "records", records, "nodes", tree.Len())

	if db.opt.verifyOnOpen {
		if err = tree.Check(); err != nil {
			return errors.Wrap(err, "verify on open")
		}
	}

	db.tree = tree
	return nil
}

func (db *DB) checkKeyValue(key, value []byte) error {
	if len(key) == 0 {
		return ErrKeyEmpty
	}
	if uint32(len(key)) > db.opt.maxKeyBytes || uint64(len(value)) > uint64(db.opt.maxValueBytes) {
		return ErrKeyOrValueTooLong
	}

	return nil
}

// Insert stores value under key, replacing any previous value. Both slices
// are copied.
func (db *DB) Insert(key, value []byte) error {
	if err := db.checkKeyValue(key, value); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrDatabaseClosed
	}

	key, value = bytes.Clone(key), bytes.Clone(value)
	if value == nil {
		value = []byte{}
	}

	if db.journal != nil {
		rec := &journalRecord{op: opInsert, key: key, value: value}
		if err := db.journal.append(rec); err != nil {
			return errors.Wrap(err, "db.Insert")
		}
	}

	db.tree.Insert(key, value)
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (db *DB) Remove(key []byte) error {
	if err := db.checkKeyValue(key, nil); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrDatabaseClosed
	}

	if db.journal != nil {
		rec := &journalRecord{op: opRemove, key: key}
		if err := db.journal.append(rec); err != nil {
			return errors.Wrap(err, "db.Remove")
		}
	}

	db.tree.Remove(key)
	return nil
}

// Lookup returns a copy of the value stored under key, or ErrKeyNotFound.
func (db *DB) Lookup(key []byte) ([]byte, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrDatabaseClosed
	}

	value, ok := db.tree.Search(key)
	if !ok {
		return nil, ErrKeyNotFound
	}

	return append([]byte{}, value...), nil
}

// Size returns the number of keys, 0 once the DB is closed.
func (db *DB) Size() int {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.tree.Len()
}

// CheckValidity walks the whole tree and verifies its balance and order.
func (db *DB) CheckValidity() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrDatabaseClosed
	}

	return db.tree.Check()
}

// ListKeys returns all keys in ascending order.
func (db *DB) ListKeys() [][]byte {
	db.mu.Lock()
	defer db.mu.Unlock()

	keys := make([][]byte, 0, db.tree.Len())
	db.tree.Ascend(func(key, _ []byte) bool {
		keys = append(keys, bytes.Clone(key))
		return true
	})

	return keys
}

// Save writes the whole tree to the snapshot file and empties the journal.
func (db *DB) Save() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrDatabaseClosed
	}
	if db.path == "" {
		return ErrNoSnapshotPath
	}

	n, err := saveSnapshotFile(db.opt.fs, db.path, db.tree)
	if err != nil {
		db.opt.logger.Error("save snapshot failed", "path", db.path, "error", err)
		return err
	}

	// a crash right here replays the old journal against the new snapshot,
	// which ends in the same tree.
	if err = db.journal.truncate(); err != nil {
		return err
	}

	db.opt.logger.Info("snapshot saved", "path", db.path, "nodes", db.tree.Len(), "bytes", n)
	return nil
}

// Path returns the snapshot file, empty for an in-memory DB.
func (db *DB) Path() string { return db.path }

// JournalPath returns the journal file, empty for an in-memory DB.
func (db *DB) JournalPath() string {
	if db.path == "" {
		return ""
	}
	return journalFilename(db.path)
}

// Close releases the tree and the journal. Unsaved mutations stay in the
// journal. Closing twice is a no-op.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}

	db.closed = true
	db.tree.Reset()
	if db.journal == nil {
		return nil
	}

	err := db.journal.close()
	db.journal = nil
	return err
}
