package sftpd

import (
	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

// handleRename serves RENAME and the posix-rename@openssh.com extension; the
// two share their semantics. An existing target is unlinked first.
func (s *Server) handleRename(msg *sftp.ClientMessage) error {
	source := msg.Filename
	if !isInside(s.config.Source, source) {
		logger.Trace("rename: cannot validate path '%s' against source '%s'", source, s.config.Source)
		return replyPermDenied(msg)
	}

	if _, err := s.fops.Lstat(source); err != nil {
		logger.Trace("rename: cannot rename '%s': no such file", source)
		return msg.ReplyStatus(sftp.StatusNoSuchFile, "no such file")
	}

	target := string(msg.Data)
	if !isInside(s.config.Source, target) {
		logger.Trace("rename: cannot validate target path '%s' against source '%s'", target, s.config.Source)
		return replyPermDenied(msg)
	}

	if _, err := s.fops.Lstat(target); err == nil {
		if err := s.fops.Remove(target); err != nil {
			logger.Trace("rename: cannot remove '%s' for renaming", target)
			return replyFailure(msg)
		}
	}

	if err := s.fops.Rename(source, target); err != nil {
		logger.Trace("rename: failed renaming '%s' to '%s'", source, target)
		return replyFailure(msg)
	}

	return replyOK(msg)
}
