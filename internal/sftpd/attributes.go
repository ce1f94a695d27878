package sftpd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/calvera/sshfsd/internal/idmap"
	"github.com/calvera/sshfsd/internal/platform"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

// Permission bits of the wire attribute record.
const (
	readUser   = 0400
	writeUser  = 0200
	execUser   = 0100
	readGroup  = 040
	writeGroup = 020
	execGroup  = 010
	readOther  = 04
	writeOther = 02
	execOther  = 01
)

// attrFromInfo converts local file metadata to the wire attribute record,
// mapping ownership for the instance and adding the file-type bits.
func (s *Server) attrFromInfo(info os.FileInfo) sftp.Attr {
	uid, gid := s.plat.OwnerIDs(info)
	atime, mtime := s.plat.Times(info)

	attr := sftp.Attr{
		Flags:       sftp.AttrSize | sftp.AttrUIDGID | sftp.AttrPermissions | sftp.AttrAcModTime,
		Size:        uint64(info.Size()),
		UID:         uint32(s.mappedUID(uid)),
		GID:         uint32(s.mappedGID(gid)),
		Permissions: toWirePermissions(info.Mode()),
		Atime:       uint32(atime.UTC().Unix()),
		Mtime:       uint32(mtime.UTC().Unix()),
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		attr.Permissions |= sftp.ModeIFLNK | 0777
	case info.IsDir():
		attr.Permissions |= sftp.ModeIFDIR
	case info.Mode().IsRegular():
		attr.Permissions |= sftp.ModeIFREG
	}

	return attr
}

// attrFromSymlink converts an lstat-style view of a link itself, with mapped
// ownership. Links always report IFLNK with mode 0777.
func (s *Server) attrFromSymlink(link platform.SymlinkInfo) sftp.Attr {
	return sftp.Attr{
		Flags:       sftp.AttrSize | sftp.AttrUIDGID | sftp.AttrPermissions | sftp.AttrAcModTime,
		Size:        uint64(link.Size),
		UID:         uint32(s.mappedUID(link.UID)),
		GID:         uint32(s.mappedGID(link.GID)),
		Permissions: sftp.ModeIFLNK | 0777,
		Atime:       uint32(link.Atime.UTC().Unix()),
		Mtime:       uint32(link.Mtime.UTC().Unix()),
	}
}

// toWirePermissions extracts the nine rwx bits of a file mode.
func toWirePermissions(mode os.FileMode) uint32 {
	var out uint32

	perm := mode.Perm()
	if perm&0400 != 0 {
		out |= readUser
	}
	if perm&0200 != 0 {
		out |= writeUser
	}
	if perm&0100 != 0 {
		out |= execUser
	}
	if perm&0040 != 0 {
		out |= readGroup
	}
	if perm&0020 != 0 {
		out |= writeGroup
	}
	if perm&0010 != 0 {
		out |= execGroup
	}
	if perm&0004 != 0 {
		out |= readOther
	}
	if perm&0002 != 0 {
		out |= writeOther
	}
	if perm&0001 != 0 {
		out |= execOther
	}

	return out
}

// fromWirePermissions builds a file mode from the nine rwx bits.
func fromWirePermissions(perms uint32) os.FileMode {
	var out os.FileMode

	if perms&readUser != 0 {
		out |= 0400
	}
	if perms&writeUser != 0 {
		out |= 0200
	}
	if perms&execUser != 0 {
		out |= 0100
	}
	if perms&readGroup != 0 {
		out |= 0040
	}
	if perms&writeGroup != 0 {
		out |= 0020
	}
	if perms&execGroup != 0 {
		out |= 0010
	}
	if perms&readOther != 0 {
		out |= 0004
	}
	if perms&writeOther != 0 {
		out |= 0002
	}
	if perms&execOther != 0 {
		out |= 0001
	}

	return out
}

// longnameFrom builds the ls -l style line included with each READDIR entry.
// Ownership is reported pre-mapping, as the local ids.
func (s *Server) longnameFrom(info os.FileInfo, displayName string) string {
	var out bytes.Buffer

	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		out.WriteByte('l')
	case info.IsDir():
		out.WriteByte('d')
	default:
		out.WriteByte('-')
	}

	perms := []struct {
		bit os.FileMode
		c   byte
	}{
		{0400, 'r'}, {0200, 'w'}, {0100, 'x'},
		{0040, 'r'}, {0020, 'w'}, {0010, 'x'},
		{0004, 'r'}, {0002, 'w'}, {0001, 'x'},
	}
	for _, p := range perms {
		if mode.Perm()&p.bit != 0 {
			out.WriteByte(p.c)
		} else {
			out.WriteByte('-')
		}
	}

	uid, gid := s.plat.OwnerIDs(info)
	_, mtime := s.plat.Times(info)

	fmt.Fprintf(&out, " 1 %d %d %d", uid, gid, info.Size())
	fmt.Fprintf(&out, " %s %s", mtime.Format("Jan 2 15:04:05 2006"), displayName)

	return out.String()
}

// id map helpers

func (s *Server) mappedUID(uid int) int {
	return s.config.UIDMap.MapForward(uid, s.config.DefaultUID)
}

func (s *Server) mappedGID(gid int) int {
	return s.config.GIDMap.MapForward(gid, s.config.DefaultGID)
}

func (s *Server) reverseUID(uid, revUIDIfNotFound int) int {
	return s.config.UIDMap.MapReverse(uid, revUIDIfNotFound)
}

func (s *Server) reverseGID(gid, revGIDIfNotFound int) int {
	return s.config.GIDMap.MapReverse(gid, revGIDIfNotFound)
}

// attrUID returns the uid the client asked for, or NoIDInfo when the message
// carried no ownership information.
func attrUID(attr sftp.Attr) int {
	if !attr.HasUIDGID() {
		return idmap.NoIDInfo
	}
	return int(int32(attr.UID))
}

// attrGID is the gid counterpart of attrUID.
func attrGID(attr sftp.Attr) int {
	if !attr.HasUIDGID() {
		return idmap.NoIDInfo
	}
	return int(int32(attr.GID))
}
