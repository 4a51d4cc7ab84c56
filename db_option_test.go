package kvlite

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func Test_defaultOptions(t *testing.T) {
	defaultOpt := defaultOptions()

	assert.NotNil(t, defaultOpt)
	assert.Equal(t, defaultOpt.maxKeyBytes, maxKeySize)
	assert.Equal(t, defaultOpt.maxValueBytes, maxValueSize)
	assert.False(t, defaultOpt.syncJournal)
	assert.False(t, defaultOpt.verifyOnOpen)
	assert.IsType(t, &afero.OsFs{}, defaultOpt.fs)
	assert.Equal(t, nopLogger{}, defaultOpt.logger)
}

func Test_WithMaxKeyBytes(t *testing.T) {
	opt := defaultOptions()
	WithMaxKeyBytes(100).apply(opt)

	assert.Equal(t, opt.maxKeyBytes, uint32(100))
}

func Test_WithMaxValueBytes(t *testing.T) {
	opt := defaultOptions()
	WithMaxValueBytes(100).apply(opt)

	assert.Equal(t, opt.maxValueBytes, uint32(100))
}

func Test_WithSyncJournal(t *testing.T) {
	opt := defaultOptions()
	WithSyncJournal(true).apply(opt)

	assert.True(t, opt.syncJournal)
}

func Test_WithVerifyOnOpen(t *testing.T) {
	opt := defaultOptions()
	WithVerifyOnOpen(true).apply(opt)

	assert.True(t, opt.verifyOnOpen)
}

func Test_newFuncOption(t *testing.T) {
	opt := newFuncOption(func(o *options) {
		o.maxKeyBytes = 100
	})

	assert.NotNil(t, opt)
	assert.NotNil(t, opt.fn)
}

func Test_WithFileSystem(t *testing.T) {
	opt := defaultOptions()
	WithFileSystem(nil).apply(opt)

	assert.Nil(t, opt.fs)

	WithFileSystem(afero.NewMemMapFs()).apply(opt)
	assert.NotNil(t, opt.fs)
}

func Test_WithLogger(t *testing.T) {
	opt := defaultOptions()
	WithLogger(NewStdLogger()).apply(opt)
	assert.Equal(t, stdLogger{}, opt.logger)

	WithLogger(nil).apply(opt)
	assert.Equal(t, nopLogger{}, opt.logger)
}
