package sftpd

import (
	"os"

	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

// handleStat serves both STAT and LSTAT. follow selects whether symlinks are
// resolved before their attributes are read.
func (s *Server) handleStat(msg *sftp.ClientMessage, follow bool) error {
	filename := msg.Filename
	if !isInside(s.config.Source, filename) {
		logger.Trace("stat: cannot validate path '%s' against source '%s'", filename, s.config.Source)
		return replyPermDenied(msg)
	}

	info, err := s.fops.Lstat(filename)
	if err != nil {
		logger.Trace("stat: cannot stat '%s': no such file", filename)
		return msg.ReplyStatus(sftp.StatusNoSuchFile, "no such file")
	}

	if !follow && info.Mode()&os.ModeSymlink != 0 {
		link, err := s.plat.SymlinkAttr(filename)
		if err != nil {
			logger.Trace("stat: cannot read link attributes for '%s': %v", filename, err)
			return replyFailure(msg)
		}
		return msg.ReplyAttrs(s.attrFromSymlink(link))
	}

	if info.Mode()&os.ModeSymlink != 0 {
		// Follow the link; a dangling target is reported as missing.
		if info, err = s.fops.Stat(filename); err != nil {
			logger.Trace("stat: cannot stat '%s': no such file", filename)
			return msg.ReplyStatus(sftp.StatusNoSuchFile, "no such file")
		}
	}

	return msg.ReplyAttrs(s.attrFromInfo(info))
}

func (s *Server) handleFstat(msg *sftp.ClientMessage) error {
	file, ok := s.handles.lookupFile(msg.Handle)
	if !ok {
		logger.Trace("fstat: bad handle requested")
		return replyBadHandle(msg, "fstat")
	}

	// Stat follows a symlink to its target, matching what the client
	// expects of an open handle.
	info, err := s.fops.Stat(file.Name())
	if err != nil {
		logger.Trace("fstat: cannot stat '%s': %v", file.Name(), err)
		return replyFailure(msg)
	}

	return msg.ReplyAttrs(s.attrFromInfo(info))
}
