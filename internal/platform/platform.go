// Package platform isolates the host primitives the SFTP server depends on.
//
// Two capability interfaces are defined: Platform for the ownership, link and
// timestamp syscalls, and FileOps for file and directory I/O. Production code
// uses the os / golang.org/x/sys implementations; tests inject fakes.
package platform

import (
	"os"
	"time"
)

// SymlinkInfo is an lstat-style view of a symbolic link itself.
type SymlinkInfo struct {
	Size  int64
	UID   int
	GID   int
	Atime time.Time
	Mtime time.Time
}

// Platform provides the ownership and link syscalls.
type Platform interface {
	// Chown changes ownership of path without following a trailing symlink.
	Chown(path string, uid, gid int) error

	// Utime sets access and modification times, in seconds since the epoch.
	Utime(path string, atime, mtime int64) error

	// Symlink creates a symlink at link pointing to target. targetIsDir is
	// meaningful on platforms that distinguish file and directory links.
	Symlink(target, link string, targetIsDir bool) error

	// Link creates a hard link.
	Link(oldname, newname string) error

	// SymlinkAttr reads the attributes of the link itself, not its target.
	SymlinkAttr(path string) (SymlinkInfo, error)

	// OwnerIDs extracts the owner and group of a FileInfo.
	OwnerIDs(info os.FileInfo) (uid, gid int)

	// Times extracts the access and modification times of a FileInfo.
	Times(info os.FileInfo) (atime, mtime time.Time)
}

// File is an open file as seen by the server.
type File interface {
	Name() string
	Seek(offset int64, whence int) (int64, error)
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Flush() error
	Close() error
}

// DirEntry pairs an entry name with its lstat-style info.
type DirEntry struct {
	Name string
	Info os.FileInfo
}

// FileOps provides file and directory I/O.
//
// ReadDir must return lstat-style infos: a symlink entry reports itself, not
// its target.
type FileOps interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	Stat(name string) (os.FileInfo, error)
	Lstat(name string) (os.FileInfo, error)
	ReadDir(name string) ([]DirEntry, error)
	Mkdir(name string, perm os.FileMode) error
	Chmod(name string, mode os.FileMode) error
	Truncate(name string, size int64) error
	Remove(name string) error
	Rename(oldpath, newpath string) error
	Readlink(name string) (string, error)
}
