package sftpd

import (
	"path/filepath"

	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

func (s *Server) handleMkdir(msg *sftp.ClientMessage) error {
	filename := msg.Filename
	if !isInside(s.config.Source, filename) {
		logger.Trace("mkdir: cannot validate path '%s' against source '%s'", filename, s.config.Source)
		return replyPermDenied(msg)
	}

	if err := s.fops.Mkdir(filename, 0777); err != nil {
		logger.Trace("mkdir: mkdir failed for '%s'", filename)
		return replyFailure(msg)
	}

	// Chmod applies the requested bits exactly, without umask interference.
	if err := s.fops.Chmod(filename, fromWirePermissions(msg.Attr.Permissions)); err != nil {
		logger.Trace("mkdir: set permissions failed for '%s'", filename)
		return replyFailure(msg)
	}

	parentInfo, err := s.fops.Stat(filepath.Dir(filename))
	if err != nil {
		logger.Trace("mkdir: cannot stat parent of '%s': %v", filename, err)
		return replyFailure(msg)
	}
	parentUID, parentGID := s.plat.OwnerIDs(parentInfo)

	revUID := s.reverseUID(attrUID(msg.Attr), parentUID)
	revGID := s.reverseGID(attrGID(msg.Attr), parentGID)

	if err := s.plat.Chown(filename, revUID, revGID); err != nil {
		logger.Trace("failed to chown '%s' to owner:%d and group:%d", filename, revUID, revGID)
		return replyFailure(msg)
	}

	return replyOK(msg)
}
