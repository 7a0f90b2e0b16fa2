// Package file stores vector nodes as files in a directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Persist implements the pvec.Persist interface for storing and loading
// nodes from files.
type Persist struct {
	basepath string
}

// Load loads the bytes persisted in the named file.
func (p Persist) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(p.basepath, name))
}

// Store persists the given bytes in a file of the given name, if it
// doesn't exist already. Files are written under a temporary name and
// renamed, so a reader never sees a partial node.
func (p Persist) Store(ctx context.Context, name string, bytes []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(p.basepath, name)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	f, err := os.CreateTemp(p.basepath, "."+name+".*")
	if err != nil {
		return err
	}
	_, err = f.Write(bytes)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(f.Name(), path)
	}
	if err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("store %s: %w", name, err)
	}
	return nil
}

// NewPersistForPath returns a Persist that loads and stores nodes as
// files in the directory at the given path.
//
//	p := NewPersistForPath("/var/db/log")
//	blob, err := p.Load(ctx, "mZ8l1nJ3c0W8yV2GdP0t2kQx6H4r9aB7sLwEoUuYf5I")
func NewPersistForPath(path string) Persist {
	return Persist{path}
}
