package sftpd

import (
	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

func (s *Server) handleClose(msg *sftp.ClientMessage) error {
	if !s.handles.close(msg.Handle) {
		logger.Trace("close: bad handle requested")
		return replyBadHandle(msg, "close")
	}

	return replyOK(msg)
}
