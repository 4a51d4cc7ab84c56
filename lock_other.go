//go:build !unix

package kvlite

import (
	"github.com/spf13/afero"
)

// lockFile is a no-op where flock is not available.
func lockFile(afero.File) (unlock func() error, err error) {
	return func() error { return nil }, nil
}
