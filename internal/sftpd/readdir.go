package sftpd

import (
	"os"
	"path/filepath"

	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

// maxEntriesPerPacket bounds a single READDIR reply.
const maxEntriesPerPacket = 50

func (s *Server) handleReaddir(msg *sftp.ClientMessage) error {
	cursor, ok := s.handles.lookupDir(msg.Handle)
	if !ok {
		logger.Trace("readdir: bad handle requested")
		return replyBadHandle(msg, "readdir")
	}

	if len(cursor.entries) == 0 {
		return msg.ReplyStatus(sftp.StatusEOF, "")
	}

	count := len(cursor.entries)
	if count > maxEntriesPerPacket {
		count = maxEntriesPerPacket
	}

	names := make([]sftp.NameEntry, 0, count)
	for _, entry := range cursor.entries[:count] {
		var attr sftp.Attr
		if entry.Info.Mode()&os.ModeSymlink != 0 {
			link, err := s.plat.SymlinkAttr(filepath.Join(cursor.path, entry.Name))
			if err == nil {
				attr = s.attrFromSymlink(link)
			} else {
				attr = s.attrFromInfo(entry.Info)
			}
		} else {
			attr = s.attrFromInfo(entry.Info)
		}

		names = append(names, sftp.NameEntry{
			Filename: entry.Name,
			Longname: s.longnameFrom(entry.Info, entry.Name),
			Attr:     attr,
		})
	}

	cursor.entries = cursor.entries[count:]
	return msg.ReplyNames(names)
}
