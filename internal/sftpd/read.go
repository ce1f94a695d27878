package sftpd

import (
	"io"

	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

// maxReadSize bounds a single READ reply payload.
const maxReadSize = 65536

func (s *Server) handleRead(msg *sftp.ClientMessage) error {
	file, ok := s.handles.lookupFile(msg.Handle)
	if !ok {
		logger.Trace("read: bad handle requested")
		return replyBadHandle(msg, "read")
	}

	length := msg.Length
	if length > maxReadSize {
		length = maxReadSize
	}

	if _, err := file.Seek(int64(msg.Offset), io.SeekStart); err != nil {
		logger.Trace("read: cannot seek to position %d in '%s'", msg.Offset, file.Name())
		return replyFailure(msg)
	}

	data := make([]byte, length)
	n, err := file.Read(data)
	if err != nil && err != io.EOF {
		logger.Trace("read: read failed for '%s': %v", file.Name(), err)
		return msg.ReplyStatus(sftp.StatusFailure, err.Error())
	}
	if n == 0 {
		return msg.ReplyStatus(sftp.StatusEOF, "End of file")
	}

	s.mtr.RecordBytesTransferred("read", int64(n))
	return msg.ReplyData(data[:n])
}
