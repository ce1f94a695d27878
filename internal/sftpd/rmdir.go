package sftpd

import (
	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

func (s *Server) handleRmdir(msg *sftp.ClientMessage) error {
	filename := msg.Filename
	if !isInside(s.config.Source, filename) {
		logger.Trace("rmdir: cannot validate path '%s' against source '%s'", filename, s.config.Source)
		return replyPermDenied(msg)
	}

	if err := s.fops.Remove(filename); err != nil {
		logger.Trace("rmdir: rmdir failed for '%s'", filename)
		return replyFailure(msg)
	}

	return replyOK(msg)
}
