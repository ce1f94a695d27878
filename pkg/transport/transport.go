// Package transport defines the secure-channel contract the SFTP bridge
// consumes: an authenticated session on which remote processes can be
// spawned, their exit observed, and their stdio used as a byte channel.
//
// The sshconn subpackage provides the SSH implementation. Tests provide
// in-memory fakes.
package transport

import (
	"errors"
	"io"
	"time"
)

// ErrExitless is returned by Process.ExitCode when the process has not
// exited within the given timeout.
var ErrExitless = errors.New("process has not exited")

// Process is a remote process started over the secure channel.
type Process interface {
	// ExitCode waits up to timeout for the process to exit and returns its
	// exit code. ErrExitless means the process is still running; repeated
	// calls after exit return the cached code.
	ExitCode(timeout time.Duration) (int, error)

	// ReadStdOutput drains the process standard output. It must not be
	// combined with Channel on the same process.
	ReadStdOutput() string

	// ReadStdError drains the process standard error.
	ReadStdError() string

	// Channel exposes the process stdio as a byte channel. Used for the
	// sshfs process, whose stdio carries the SFTP stream.
	Channel() io.ReadWriteCloser
}

// Session is an authenticated, encrypted channel to the instance.
type Session interface {
	// Exec starts command on the remote side.
	Exec(command string) (Process, error)

	// ForceShutdown tears the underlying connection down so that blocked
	// reads on any channel return promptly. Safe to call from another
	// goroutine; this is the only cross-thread entry point.
	ForceShutdown()
}
