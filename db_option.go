package kvlite

import (
	"github.com/spf13/afero"
)

const (
	maxKeySize   = uint32(1) << 16 // 64KB
	maxValueSize = uint32(1) << 26 // 64MB

	journalFileExt = ".jnl"
	backupFileExt  = ".bak"
)

type options struct {
	// The maximum number of bytes for a single key. The default value is 64KB.
	// Snapshot and journal records claiming a longer key are corrupted.
	maxKeyBytes uint32
	// The maximum number of bytes for a single value. The default value is 64MB.
	maxValueBytes uint32

	// Fsync the journal after every appended record. Off by default, so a
	// record is only as durable as the platform's buffered write.
	syncJournal bool

	// Run a full validity check of the tree after snapshot and journal are
	// loaded, Open fails if it does not pass.
	verifyOnOpen bool

	// The file system to access. The default file system is implemented by os package.
	fs FileSystem

	logger Logger
}

func defaultOptions() *options {
	return &options{
		maxKeyBytes:   maxKeySize,
		maxValueBytes: maxValueSize,
		syncJournal:   false,
		verifyOnOpen:  false,
		fs:            afero.NewOsFs(),
		logger:        nopLogger{},
	}
}

type Option interface {
	apply(*options)
}

type funcOption struct {
	fn func(*options)
}

func (funcOpt funcOption) apply(o *options) {
	funcOpt.fn(o)
}

func newFuncOption(fn func(*options)) *funcOption {
	return &funcOption{
		fn: fn,
	}
}

// WithMaxKeyBytes set the maximum number of bytes for a single key.
func WithMaxKeyBytes(maxKeyBytes uint32) Option {
	return newFuncOption(func(o *options) {
		o.maxKeyBytes = maxKeyBytes
	})
}

// WithMaxValueBytes set the maximum number of bytes for a single value.
func WithMaxValueBytes(maxValueBytes uint32) Option {
	return newFuncOption(func(o *options) {
		o.maxValueBytes = maxValueBytes
	})
}

// WithSyncJournal makes every Insert and Remove fsync the journal before
// returning.
func WithSyncJournal(sync bool) Option {
	return newFuncOption(func(o *options) {
		o.syncJournal = sync
	})
}

// WithVerifyOnOpen checks the balance and order of the whole tree once it is
// loaded.
func WithVerifyOnOpen(verify bool) Option {
	return newFuncOption(func(o *options) {
		o.verifyOnOpen = verify
	})
}

// WithFileSystem set the file system to access.
func WithFileSystem(fs FileSystem) Option {
	return newFuncOption(func(o *options) {
		o.fs = fs
	})
}

// WithLogger set the logger, nil restores the silent default.
func WithLogger(logger Logger) Option {
	return newFuncOption(func(o *options) {
		if logger == nil {
			logger = nopLogger{}
		}
		o.logger = logger
	})
}
