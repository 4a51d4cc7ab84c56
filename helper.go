package kvlite

import (
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// journalFilename derives the journal file of a snapshot file.
// e.g.
// - data/users.kvdb -> data/users.kvdb.jnl
func journalFilename(snapshot string) string {
	return snapshot + journalFileExt
}

func backupFilename(filename string) string {
	return filename + backupFileExt
}

func openFileError(filename string, err error) error {
	return &OpenFileError{Filename: filename, Err: err}
}

func ensurePath(fs FileSystem, path string) error {
	exists, err := afero.DirExists(fs, path)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return fs.MkdirAll(path, 0755)
}

// backupFile rename filename to filename.bak, it will return a restore function
// and a clean function. The restore function will rename filename.bak to filename,
// and the clean function will remove filename.bak.
func backupFile(fs FileSystem, filename string) (restoreFn func() error, cleanFn func() error, err error) {
	oldName := filename
	backupName := backupFilename(filename)

	if err = fs.Rename(filename, backupName); err != nil {
		return nil, nil, errors.Wrap(err, "backupFile rename failed")
	}

	restoreFn = func() error {
		return fs.Rename(backupName, oldName)
	}

	cleanFn = func() error {
		return fs.Remove(backupName)
	}

	return restoreFn, cleanFn, nil
}

// restoreBackup puts filename.bak back in place of filename. A backup only
// survives a save that did not finish, and until the journal is truncated it
// is the snapshot the journal was written against, so it always wins over a
// (possibly partial) filename.
func restoreBackup(fs FileSystem, filename string) (restored bool, err error) {
	backupName := backupFilename(filename)
	exists, err := afero.Exists(fs, backupName)
	if err != nil || !exists {
		return false, err
	}

	if exists, err = afero.Exists(fs, filename); err != nil {
		return false, err
	}
	if exists {
		if err = fs.Remove(filename); err != nil {
			return false, errors.Wrap(err, "restoreBackup remove partial snapshot")
		}
	}

	if err = fs.Rename(backupName, filename); err != nil {
		return false, errors.Wrap(err, "restoreBackup rename failed")
	}

	return true, nil
}
