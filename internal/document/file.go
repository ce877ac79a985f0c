package document

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ReadFile loads and parses path. A missing file yields a FileError that
// matches ErrNotFound.
func ReadFile(path string) (*Document, error) {
	data, err := ReadRaw(path, 0)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

// ErrTooLarge matches a FileError for an input over the size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// ReadRaw returns the bytes of path. A positive limit rejects larger files
// before they are read.
func ReadRaw(path string, limit int64) ([]byte, error) {
	if limit > 0 {
		if info, err := os.Stat(path); err == nil && info.Size() > limit {
			return nil, &FileError{Op: "read", Path: path, Err: fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, info.Size(), limit)}
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FileError{Op: "read", Path: path, Err: ErrNotFound}
		}
		return nil, &FileError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

// WriteFile encodes doc and writes it to path, creating parent directories.
// The file is written to a temporary sibling and renamed into place so a
// failed run never leaves a partial output.
func WriteFile(path string, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &FileError{Op: "create directory", Path: dir, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &FileError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &FileError{Op: "write", Path: path, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &FileError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &FileError{Op: "write", Path: path, Err: err}
	}
	return nil
}
