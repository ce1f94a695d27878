package sftpd

import (
	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

// handleSetstat serves SETSTAT and FSETSTAT. Only the attribute fields whose
// presence flag is set are applied, in a fixed order; the first failure wins.
func (s *Server) handleSetstat(msg *sftp.ClientMessage) error {
	var filename string

	if msg.Type == sftp.PacketFsetstat {
		file, ok := s.handles.lookupFile(msg.Handle)
		if !ok {
			logger.Trace("setstat: bad handle requested")
			return replyBadHandle(msg, "setstat")
		}
		filename = file.Name()
	} else {
		filename = msg.Filename
		if !isInside(s.config.Source, filename) {
			logger.Trace("setstat: cannot validate path '%s' against source '%s'", filename, s.config.Source)
			return replyPermDenied(msg)
		}

		if _, err := s.fops.Lstat(filename); err != nil {
			logger.Trace("setstat: cannot setstat '%s': no such file", filename)
			return msg.ReplyStatus(sftp.StatusNoSuchFile, "no such file")
		}
	}

	attr := msg.Attr

	if attr.Flags&sftp.AttrSize != 0 {
		if err := s.fops.Truncate(filename, int64(attr.Size)); err != nil {
			logger.Trace("setstat: cannot resize '%s'", filename)
			return replyFailure(msg)
		}
	}

	if attr.Flags&sftp.AttrPermissions != 0 {
		if err := s.fops.Chmod(filename, fromWirePermissions(attr.Permissions)); err != nil {
			logger.Trace("setstat: set permissions failed for '%s'", filename)
			return replyFailure(msg)
		}
	}

	if attr.Flags&sftp.AttrAcModTime != 0 {
		if err := s.plat.Utime(filename, int64(attr.Atime), int64(attr.Mtime)); err != nil {
			logger.Trace("setstat: cannot set modification date for '%s'", filename)
			return replyFailure(msg)
		}
	}

	if attr.Flags&sftp.AttrUIDGID != 0 {
		// The message's own ids are the reverse fallback: an unmapped
		// instance id is applied as-is.
		uid := s.reverseUID(int(int32(attr.UID)), int(int32(attr.UID)))
		gid := s.reverseGID(int(int32(attr.GID)), int(int32(attr.GID)))

		if err := s.plat.Chown(filename, uid, gid); err != nil {
			logger.Trace("setstat: cannot set ownership for '%s'", filename)
			return replyFailure(msg)
		}
	}

	return replyOK(msg)
}
