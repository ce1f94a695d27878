// Package sftpd serves the host side of an instance shared-folder mount.
//
// A Server owns one sshfs process in the instance, spawned over the secure
// transport, and answers the SFTP requests that process issues against a
// single exported host directory. Requests outside the export are refused,
// and uid/gid values are translated between host and instance on the way
// through.
//
// The server is single-threaded: Run processes one message at a time and
// replies in request order. Stop is the only method safe to call from
// another goroutine.
package sftpd

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/calvera/sshfsd/internal/idmap"
	"github.com/calvera/sshfsd/internal/logger"
	"github.com/calvera/sshfsd/internal/platform"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
	"github.com/calvera/sshfsd/pkg/metrics"
	"github.com/calvera/sshfsd/pkg/transport"
)

// exitPollTimeout bounds each liveness poll of the sshfs process.
const exitPollTimeout = 250 * time.Millisecond

// Config is the immutable per-mount configuration.
type Config struct {
	// Source is the exported host directory. No request is accepted when
	// empty.
	Source string

	// Target is the mount point inside the instance.
	Target string

	// SSHFSExecLine is the command used to start sshfs in the instance,
	// without the sudo prefix or the path arguments.
	SSHFSExecLine string

	UIDMap idmap.Table
	GIDMap idmap.Table

	// DefaultUID and DefaultGID are reported for ids the maps resolve to
	// the server default.
	DefaultUID int
	DefaultGID int

	// AppendWorkaround forces O_APPEND on opens whose flag mask is exactly
	// WRITE, compensating for sshfs versions before 3.2 dropping O_APPEND.
	AppendWorkaround bool
}

// Server bridges one instance mount to the local filesystem.
type Server struct {
	session transport.Session
	config  Config

	fops platform.FileOps
	plat platform.Platform
	mtr  metrics.SFTPMetrics

	sshfs   transport.Process
	sftp    *sftp.Session
	handles *handleTable

	stopRequested atomic.Bool
}

// New spawns the sshfs process in the instance, verifies it started, and
// opens the SFTP session on its channel.
//
// A nil metrics instance disables metrics collection.
func New(session transport.Session, config Config, fops platform.FileOps, plat platform.Platform, mtr metrics.SFTPMetrics) (*Server, error) {
	if mtr == nil {
		mtr = metrics.NewNoopSFTPMetrics()
	}

	s := &Server{
		session: session,
		config:  config,
		fops:    fops,
		plat:    plat,
		mtr:     mtr,
		handles: newHandleTable(),
	}

	if err := s.startSSHFS(); err != nil {
		return nil, err
	}

	return s, nil
}

// Run serves client messages until an explicit stop, a clean sshfs exit, or
// an unrecoverable failure. All open handles are released before it returns.
func (s *Server) Run() error {
	defer s.handles.closeAll()

	for {
		msg, err := s.sftp.ReadMessage()
		if err != nil {
			if s.stopRequested.Load() {
				return nil
			}

			status, exitErr := s.sshfs.ExitCode(exitPollTimeout)
			if exitErr != nil {
				status = 1
			}

			if status != 0 {
				logger.Error("sshfs in the instance appears to have exited unexpectedly. Trying to recover.")
				if err := s.recoverMount(); err != nil {
					return fmt.Errorf("recover mount: %w", err)
				}
				s.mtr.RecordHelperRestart()
				continue
			}

			return nil
		}

		s.processMessage(msg)
	}
}

// Stop requests loop exit and force-shuts the transport so the in-flight
// framing read returns promptly. Safe to call from another goroutine.
func (s *Server) Stop() {
	s.stopRequested.Store(true)
	s.session.ForceShutdown()
}

// startSSHFS spawns the sshfs process and opens the SFTP session on it.
func (s *Server) startSSHFS() error {
	command := fmt.Sprintf(`sudo %s :"%s" "%s"`,
		s.config.SSHFSExecLine, escapeQuotes(s.config.Source), escapeQuotes(s.config.Target))

	proc, err := s.session.Exec(command)
	if err != nil {
		return fmt.Errorf("spawn sshfs: %w", err)
	}

	if err := checkSSHFSStatus(proc); err != nil {
		return err
	}

	session, err := sftp.NewSession(proc.Channel())
	if err != nil {
		return fmt.Errorf("sftp session init: %w", err)
	}

	s.sshfs = proc
	s.sftp = session
	return nil
}

// recoverMount unmounts a stale target, respawns sshfs, and rebuilds the
// SFTP session on the new channel.
func (s *Server) recoverMount() error {
	proc, err := s.session.Exec(fmt.Sprintf("findmnt --source :%s -o TARGET -n", s.config.Source))
	if err != nil {
		return fmt.Errorf("findmnt: %w", err)
	}

	mountPath := strings.TrimSpace(proc.ReadStdOutput())
	if mountPath != "" {
		if _, err := s.session.Exec(fmt.Sprintf("sudo umount %s", mountPath)); err != nil {
			return fmt.Errorf("umount %s: %w", mountPath, err)
		}
	}

	return s.startSSHFS()
}

// checkSSHFSStatus polls the freshly spawned process. A poll timeout means
// sshfs is running in the instance.
func checkSSHFSStatus(proc transport.Process) error {
	code, err := proc.ExitCode(exitPollTimeout)
	if err != nil {
		return nil
	}

	if code != 0 {
		return fmt.Errorf("sshfs exited with status %d: %s", code, proc.ReadStdError())
	}
	return nil
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
