package sftpd

import (
	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

func (s *Server) handleSymlink(msg *sftp.ClientMessage) error {
	oldName := msg.Filename

	// Only the link being created must live inside the export; the target
	// may point anywhere.
	newName := string(msg.Data)
	if !isInside(s.config.Source, newName) {
		logger.Trace("symlink: cannot validate path '%s' against source '%s'", newName, s.config.Source)
		return replyPermDenied(msg)
	}

	targetIsDir := false
	if info, err := s.fops.Stat(oldName); err == nil {
		targetIsDir = info.IsDir()
	}

	if err := s.plat.Symlink(oldName, newName, targetIsDir); err != nil {
		logger.Trace("symlink: failure creating symlink from '%s' to '%s'", oldName, newName)
		return replyFailure(msg)
	}

	return replyOK(msg)
}
