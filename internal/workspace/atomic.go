package workspace

import (
	"os"
	"path/filepath"

	"github.com/myrjola/turnabout/internal/errors"
)

// writeAtomic replaces the file at path with data. The data is written to a temporary file in
// the same directory, synced and renamed over path, so readers see either the old or the new
// content and never a truncated file.
func writeAtomic(path string, data []byte) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temporary file")
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		return errors.Wrap(err, "write temporary file")
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "sync temporary file")
	}
	if err = tmp.Chmod(0o644); err != nil { //nolint:mnd // rw-r--r--
		return errors.Wrap(err, "chmod temporary file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temporary file")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "rename temporary file")
	}
	return nil
}
