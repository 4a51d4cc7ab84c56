package kvlite

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/yeqown/kvlite/avl"
)

var (
	ErrKeyNotFound       = errors.New("key not found")
	ErrKeyEmpty          = errors.New("key is empty")
	ErrKeyOrValueTooLong = errors.New("key or value is oversize")
	ErrDatabaseClosed    = errors.New("database is closed")
	ErrDatabaseLocked    = errors.New("database is locked by another process")
	ErrNoSnapshotPath    = errors.New("database has no snapshot path")
	ErrOpenFile          = errors.New("failed to open file")

	// ErrCorrupted is matched by every *CorruptionError.
	ErrCorrupted        = errors.New("data corruption detected")
	ErrInvalidMagic     = errors.New("invalid record magic")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrUnexpectedEOF    = errors.New("unexpected end of file")
	ErrInvalidOpcode    = errors.New("invalid journal opcode")
	ErrTrailingData     = errors.New("trailing data after snapshot")

	ErrInternalBalance = avl.ErrInternalBalance
	ErrLopsided        = avl.ErrLopsided
	ErrOutOfOrder      = avl.ErrOutOfOrder
)

// CorruptionError reports a snapshot or journal that could not be trusted.
// errors.Is(err, ErrCorrupted) holds for it, and it unwraps to the precise
// cause such as ErrChecksumMismatch or ErrUnexpectedEOF.
type CorruptionError struct {
	Filename string
	Offset   int64 // offset of the record that failed, or where an unbalanced subtree ends
	Cause    error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("%s: %s at offset %d: %v", ErrCorrupted, e.Filename, e.Offset, e.Cause)
}

func (e *CorruptionError) Unwrap() error { return e.Cause }

func (e *CorruptionError) Is(target error) bool { return target == ErrCorrupted }

func corrupted(filename string, offset int64, cause error) error {
	return &CorruptionError{Filename: filename, Offset: offset, Cause: cause}
}

// OpenFileError reports a snapshot or journal file that could not be
// opened. errors.Is(err, ErrOpenFile) holds for it, and it unwraps to the
// file system error.
type OpenFileError struct {
	Filename string
	Err      error
}

func (e *OpenFileError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrOpenFile, e.Filename, e.Err)
}

func (e *OpenFileError) Unwrap() error { return e.Err }

func (e *OpenFileError) Is(target error) bool { return target == ErrOpenFile }
