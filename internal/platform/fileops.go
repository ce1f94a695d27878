package platform

import (
	"fmt"
	"os"
)

// osFileOps implements FileOps with the os package.
type osFileOps struct{}

// NewFileOps returns the host FileOps implementation.
func NewFileOps() FileOps {
	return &osFileOps{}
}

type osFile struct {
	*os.File
}

// Flush is a no-op: os files are unbuffered.
func (osFile) Flush() error {
	return nil
}

func (*osFileOps) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return osFile{f}, nil
}

func (*osFileOps) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (*osFileOps) Lstat(name string) (os.FileInfo, error) {
	return os.Lstat(name)
}

func (*osFileOps) ReadDir(name string) ([]DirEntry, error) {
	entries, err := os.ReadDir(name)
	if err != nil {
		return nil, err
	}

	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			// Entry disappeared between listing and lstat.
			continue
		}
		out = append(out, DirEntry{Name: e.Name(), Info: info})
	}
	return out, nil
}

func (*osFileOps) Mkdir(name string, perm os.FileMode) error {
	return os.Mkdir(name, perm)
}

func (*osFileOps) Chmod(name string, mode os.FileMode) error {
	return os.Chmod(name, mode)
}

func (*osFileOps) Truncate(name string, size int64) error {
	if size < 0 {
		return fmt.Errorf("truncate %s: negative size %d", name, size)
	}
	return os.Truncate(name, size)
}

func (*osFileOps) Remove(name string) error {
	return os.Remove(name)
}

func (*osFileOps) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (*osFileOps) Readlink(name string) (string, error) {
	return os.Readlink(name)
}
