package sftpd

import (
	"io"

	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

func (s *Server) handleWrite(msg *sftp.ClientMessage) error {
	file, ok := s.handles.lookupFile(msg.Handle)
	if !ok {
		logger.Trace("write: bad handle requested")
		return replyBadHandle(msg, "write")
	}

	if _, err := file.Seek(int64(msg.Offset), io.SeekStart); err != nil {
		logger.Trace("write: cannot seek to position %d in '%s'", msg.Offset, file.Name())
		return replyFailure(msg)
	}

	data := msg.Data
	for len(data) > 0 {
		n, err := file.Write(data)
		if err != nil {
			logger.Trace("write: write failed for '%s': %v", file.Name(), err)
			return replyFailure(msg)
		}

		file.Flush()
		data = data[n:]
	}

	s.mtr.RecordBytesTransferred("write", int64(len(msg.Data)))
	return replyOK(msg)
}
