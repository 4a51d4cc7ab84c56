//go:build unix

package kvlite

import (
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// lockFile takes an exclusive, non-blocking flock on f. Files without a
// descriptor, e.g. from afero.MemMapFs, are not locked.
func lockFile(f afero.File) (unlock func() error, err error) {
	fd, ok := f.(interface{ Fd() uintptr })
	if !ok {
		return func() error { return nil }, nil
	}

	if err = unix.Flock(int(fd.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, errors.Wrap(ErrDatabaseLocked, f.Name())
		}
		return nil, errors.Wrap(err, "lockFile flock")
	}

	return func() error {
		return unix.Flock(int(fd.Fd()), unix.LOCK_UN)
	}, nil
}
