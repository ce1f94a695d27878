package sftpd

import (
	"path/filepath"

	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

func (s *Server) handleRealpath(msg *sftp.ClientMessage) error {
	filename := msg.Filename
	if !isInside(s.config.Source, filename) {
		logger.Trace("realpath: cannot validate path '%s' against source '%s'", filename, s.config.Source)
		return replyPermDenied(msg)
	}

	// Absolute and cleaned, without resolving symlinks.
	realpath, err := filepath.Abs(filename)
	if err != nil {
		logger.Trace("realpath: cannot resolve '%s': %v", filename, err)
		return replyFailure(msg)
	}

	return msg.ReplyName(realpath)
}
