package sftpd

import (
	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

func (s *Server) handleReadlink(msg *sftp.ClientMessage) error {
	filename := msg.Filename
	if !isInside(s.config.Source, filename) {
		logger.Trace("readlink: cannot validate path '%s' against source '%s'", filename, s.config.Source)
		return replyPermDenied(msg)
	}

	link, err := s.fops.Readlink(filename)
	if err != nil || link == "" {
		logger.Trace("readlink: invalid link for '%s'", filename)
		return msg.ReplyStatus(sftp.StatusNoSuchFile, "invalid link")
	}

	// A one-entry names reply, for wire compatibility with the sshfs
	// client.
	return msg.ReplyNames([]sftp.NameEntry{{Filename: link, Longname: link}})
}
