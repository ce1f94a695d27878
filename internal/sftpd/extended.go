package sftpd

import (
	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

func (s *Server) handleExtended(msg *sftp.ClientMessage) error {
	switch msg.Submessage {
	case sftp.ExtensionHardlink:
		oldName := msg.Filename

		newName := string(msg.Data)
		if !isInside(s.config.Source, newName) {
			logger.Trace("hardlink: cannot validate path '%s' against source '%s'", newName, s.config.Source)
			return replyPermDenied(msg)
		}

		if err := s.plat.Link(oldName, newName); err != nil {
			logger.Trace("hardlink: failed creating link from '%s' to '%s'", oldName, newName)
			return replyFailure(msg)
		}

		return replyOK(msg)

	case sftp.ExtensionPosixRename:
		return s.handleRename(msg)

	default:
		logger.Trace("unhandled extended method requested: %s", msg.Submessage)
		return replyUnsupported(msg)
	}
}
