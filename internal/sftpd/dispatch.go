package sftpd

import (
	"fmt"
	"time"

	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

// processMessage routes one client message to its handler. A handler
// converts every local failure into a wire status; the only error that can
// come back is the framing layer refusing the reply, which is logged and
// otherwise ignored so the loop survives.
func (s *Server) processMessage(msg *sftp.ClientMessage) {
	op := msg.TypeName()
	start := time.Now()

	var err error
	switch msg.Type {
	case sftp.PacketRealpath:
		err = s.handleRealpath(msg)
	case sftp.PacketOpendir:
		err = s.handleOpendir(msg)
	case sftp.PacketMkdir:
		err = s.handleMkdir(msg)
	case sftp.PacketRmdir:
		err = s.handleRmdir(msg)
	case sftp.PacketLstat:
		err = s.handleStat(msg, false)
	case sftp.PacketStat:
		err = s.handleStat(msg, true)
	case sftp.PacketFstat:
		err = s.handleFstat(msg)
	case sftp.PacketReaddir:
		err = s.handleReaddir(msg)
	case sftp.PacketClose:
		err = s.handleClose(msg)
	case sftp.PacketOpen:
		err = s.handleOpen(msg)
	case sftp.PacketRead:
		err = s.handleRead(msg)
	case sftp.PacketWrite:
		err = s.handleWrite(msg)
	case sftp.PacketRename:
		err = s.handleRename(msg)
	case sftp.PacketRemove:
		err = s.handleRemove(msg)
	case sftp.PacketSetstat, sftp.PacketFsetstat:
		err = s.handleSetstat(msg)
	case sftp.PacketReadlink:
		err = s.handleReadlink(msg)
	case sftp.PacketSymlink:
		err = s.handleSymlink(msg)
	case sftp.PacketExtended:
		err = s.handleExtended(msg)
	default:
		logger.Trace("unknown message: %d", msg.Type)
		err = replyUnsupported(msg)
	}

	s.mtr.RecordRequest(op, time.Since(start), err)

	if err != nil {
		logger.Error("error occurred when replying to client: %v", err)
	}
}

// Shared reply shorthands.

func replyOK(msg *sftp.ClientMessage) error {
	return msg.ReplyStatus(sftp.StatusOK, "")
}

func replyFailure(msg *sftp.ClientMessage) error {
	return msg.ReplyStatus(sftp.StatusFailure, "")
}

func replyPermDenied(msg *sftp.ClientMessage) error {
	return msg.ReplyStatus(sftp.StatusPermissionDenied, "permission denied")
}

func replyBadHandle(msg *sftp.ClientMessage, op string) error {
	return msg.ReplyStatus(sftp.StatusBadMessage, fmt.Sprintf("%s: invalid handle", op))
}

func replyUnsupported(msg *sftp.ClientMessage) error {
	return msg.ReplyStatus(sftp.StatusOpUnsupported, "Unsupported message")
}
