package sftpd

import (
	"os"
	"path/filepath"

	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

func (s *Server) handleOpen(msg *sftp.ClientMessage) error {
	filename := msg.Filename
	if !isInside(s.config.Source, filename) {
		logger.Trace("open: cannot validate path '%s' against source '%s'", filename, s.config.Source)
		return replyPermDenied(msg)
	}

	flags := msg.Flags
	read := flags&sftp.FlagRead != 0
	write := flags&sftp.FlagWrite != 0
	appendMode := flags&sftp.FlagAppend != 0
	truncate := flags&sftp.FlagTrunc != 0

	// sshfs before 3.2 drops O_APPEND, leaving a bare WRITE mask on opens
	// that were meant to append. Force append for that exact mask.
	if s.config.AppendWorkaround && flags == sftp.FlagWrite {
		appendMode = true
		logger.Info("adding sshfs O_APPEND workaround")
	}

	var osFlags int
	switch {
	case read && write:
		osFlags = os.O_RDWR | os.O_CREATE
	case write:
		osFlags = os.O_WRONLY | os.O_CREATE
		if !appendMode {
			// Write-only without append truncates, as the sshfs client
			// expects.
			truncate = true
		}
	default:
		osFlags = os.O_RDONLY
	}
	if appendMode {
		osFlags |= os.O_APPEND
	}
	if truncate {
		osFlags |= os.O_TRUNC
	}

	// A symlink counts as existing even when its target does not.
	_, lstatErr := s.fops.Lstat(filename)
	exists := lstatErr == nil

	file, err := s.fops.OpenFile(filename, osFlags, 0644)
	if err != nil {
		logger.Trace("cannot open '%s': %v", filename, err)
		return replyFailure(msg)
	}

	if !exists {
		if err := s.fops.Chmod(filename, fromWirePermissions(msg.Attr.Permissions)); err != nil {
			logger.Trace("cannot set permissions for '%s': %v", filename, err)
			file.Close()
			return replyFailure(msg)
		}

		parentInfo, err := s.fops.Stat(filepath.Dir(filename))
		if err != nil {
			logger.Trace("cannot stat parent of '%s': %v", filename, err)
			file.Close()
			return replyFailure(msg)
		}
		parentUID, parentGID := s.plat.OwnerIDs(parentInfo)

		newUID := s.reverseUID(attrUID(msg.Attr), parentUID)
		newGID := s.reverseGID(attrGID(msg.Attr), parentGID)

		if err := s.plat.Chown(filename, newUID, newGID); err != nil {
			logger.Trace("failed to chown '%s' to owner:%d and group:%d", filename, newUID, newGID)
			file.Close()
			return replyFailure(msg)
		}
	}

	handle := s.handles.insertFile(file)
	return msg.ReplyHandle(handle)
}
