// Package sshconn implements the transport contract over SSH using
// golang.org/x/crypto/ssh.
package sshconn

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/calvera/sshfsd/pkg/transport"
)

// Config describes how to reach the instance.
type Config struct {
	Host         string
	Port         int
	User         string
	IdentityFile string
	Timeout      time.Duration
}

// Session is an SSH-backed transport.Session.
type Session struct {
	client *ssh.Client
}

// Dial connects and authenticates with the configured identity file.
func Dial(cfg Config) (*Session, error) {
	key, err := os.ReadFile(cfg.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	clientConfig := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         cfg.Timeout,
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	client, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", addr, err)
	}

	return &Session{client: client}, nil
}

// Exec starts command on the instance.
func (s *Session) Exec(command string) (transport.Process, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("new ssh session: %w", err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	p := &process{
		session: sess,
		stdin:   stdin,
		stdout:  stdout,
		exitCh:  make(chan int, 1),
	}
	sess.Stderr = &p.stderr

	if err := sess.Start(command); err != nil {
		sess.Close()
		return nil, fmt.Errorf("start %q: %w", command, err)
	}

	go func() {
		code := 0
		if err := sess.Wait(); err != nil {
			code = 1
			if exitErr, ok := err.(*ssh.ExitError); ok {
				code = exitErr.ExitStatus()
			}
		}
		p.exitCh <- code
	}()

	return p, nil
}

// ForceShutdown closes the SSH connection, unblocking any channel reads.
func (s *Session) ForceShutdown() {
	s.client.Close()
}

type process struct {
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
	stderr  lockedBuffer

	exitCh   chan int
	exited   bool
	exitCode int
}

func (p *process) ExitCode(timeout time.Duration) (int, error) {
	if p.exited {
		return p.exitCode, nil
	}

	select {
	case code := <-p.exitCh:
		p.exited = true
		p.exitCode = code
		return code, nil
	case <-time.After(timeout):
		return 0, transport.ErrExitless
	}
}

func (p *process) ReadStdOutput() string {
	out, _ := io.ReadAll(p.stdout)
	return string(out)
}

func (p *process) ReadStdError() string {
	return p.stderr.String()
}

func (p *process) Channel() io.ReadWriteCloser {
	return &processChannel{p: p}
}

type processChannel struct {
	p *process
}

func (c *processChannel) Read(b []byte) (int, error) {
	return c.p.stdout.Read(b)
}

func (c *processChannel) Write(b []byte) (int, error) {
	return c.p.stdin.Write(b)
}

func (c *processChannel) Close() error {
	c.p.stdin.Close()
	return c.p.session.Close()
}

// lockedBuffer collects stderr from the ssh goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
