//go:build linux

package platform

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// unixPlatform implements Platform with the native syscalls.
type unixPlatform struct{}

// New returns the host Platform implementation.
func New() Platform {
	return &unixPlatform{}
}

func (*unixPlatform) Chown(path string, uid, gid int) error {
	if err := unix.Lchown(path, uid, gid); err != nil {
		return fmt.Errorf("lchown %s: %w", path, err)
	}
	return nil
}

func (*unixPlatform) Utime(path string, atime, mtime int64) error {
	times := []unix.Timeval{
		unix.NsecToTimeval(atime * int64(time.Second)),
		unix.NsecToTimeval(mtime * int64(time.Second)),
	}
	if err := unix.Utimes(path, times); err != nil {
		return fmt.Errorf("utimes %s: %w", path, err)
	}
	return nil
}

func (*unixPlatform) Symlink(target, link string, targetIsDir bool) error {
	// Unix does not distinguish file and directory symlinks.
	_ = targetIsDir
	return os.Symlink(target, link)
}

func (*unixPlatform) Link(oldname, newname string) error {
	return os.Link(oldname, newname)
}

func (*unixPlatform) SymlinkAttr(path string) (SymlinkInfo, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return SymlinkInfo{}, fmt.Errorf("lstat %s: %w", path, err)
	}

	return SymlinkInfo{
		Size:  st.Size,
		UID:   int(st.Uid),
		GID:   int(st.Gid),
		Atime: time.Unix(st.Atim.Sec, st.Atim.Nsec),
		Mtime: time.Unix(st.Mtim.Sec, st.Mtim.Nsec),
	}, nil
}

func (*unixPlatform) OwnerIDs(info os.FileInfo) (int, int) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return int(st.Uid), int(st.Gid)
	}
	return 0, 0
}

func (*unixPlatform) Times(info os.FileInfo) (time.Time, time.Time) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Atim.Sec, st.Atim.Nsec), time.Unix(st.Mtim.Sec, st.Mtim.Nsec)
	}
	return info.ModTime(), info.ModTime()
}
