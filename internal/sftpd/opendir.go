package sftpd

import (
	"path/filepath"

	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/platform"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

func (s *Server) handleOpendir(msg *sftp.ClientMessage) error {
	filename := msg.Filename
	if !isInside(s.config.Source, filename) {
		logger.Trace("opendir: cannot validate path '%s' against source '%s'", filename, s.config.Source)
		return replyPermDenied(msg)
	}

	dirInfo, err := s.fops.Stat(filename)
	if err != nil || !dirInfo.IsDir() {
		logger.Trace("cannot open directory '%s': no such directory", filename)
		return msg.ReplyStatus(sftp.StatusNoSuchFile, "no such directory")
	}

	children, err := s.fops.ReadDir(filename)
	if err != nil {
		logger.Trace("cannot read directory '%s': permission denied", filename)
		return replyPermDenied(msg)
	}

	// The snapshot includes the dot entries; the FUSE side expects them.
	entries := make([]platform.DirEntry, 0, len(children)+2)
	entries = append(entries, platform.DirEntry{Name: ".", Info: dirInfo})

	parentInfo, err := s.fops.Stat(filepath.Dir(filename))
	if err != nil {
		parentInfo = dirInfo
	}
	entries = append(entries, platform.DirEntry{Name: "..", Info: parentInfo})
	entries = append(entries, children...)

	handle := s.handles.insertDir(&dirCursor{path: filename, entries: entries})
	return msg.ReplyHandle(handle)
}
