package sftpd

import (
	"io"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/calvera/sshfsd/internal/platform"
	"github.com/calvera/sshfsd/pkg/transport"
)

// ============================================================================
// Fake file (handle table tests)
// ============================================================================

type fakeFile struct {
	name   string
	closed bool
}

func (f *fakeFile) Name() string                                 { return f.name }
func (f *fakeFile) Seek(offset int64, whence int) (int64, error) { return offset, nil }
func (f *fakeFile) Read(p []byte) (int, error)                   { return 0, io.EOF }
func (f *fakeFile) Write(p []byte) (int, error)                  { return len(p), nil }
func (f *fakeFile) Flush() error                                 { return nil }
func (f *fakeFile) Close() error                                 { f.closed = true; return nil }

// ============================================================================
// Fake platform
//
// File I/O goes to the real filesystem under the test's temp dir; ownership
// and timestamp syscalls are recorded instead of executed, and reported
// ownership can be scripted per entry name.
// ============================================================================

type chownCall struct {
	path string
	uid  int
	gid  int
}

type utimeCall struct {
	path  string
	atime int64
	mtime int64
}

type fakePlatform struct {
	mu sync.Mutex

	// owners maps an entry base name to its reported (uid, gid)
	owners     map[string][2]int
	defaultUID int
	defaultGID int

	chowns   []chownCall
	utimes   []utimeCall
	chownErr error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{owners: make(map[string][2]int)}
}

func (p *fakePlatform) setOwner(name string, uid, gid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.owners[name] = [2]int{uid, gid}
}

func (p *fakePlatform) lastChown() (chownCall, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.chowns) == 0 {
		return chownCall{}, false
	}
	return p.chowns[len(p.chowns)-1], true
}

func (p *fakePlatform) Chown(path string, uid, gid int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.chownErr != nil {
		return p.chownErr
	}
	p.chowns = append(p.chowns, chownCall{path: path, uid: uid, gid: gid})
	return nil
}

func (p *fakePlatform) Utime(path string, atime, mtime int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.utimes = append(p.utimes, utimeCall{path: path, atime: atime, mtime: mtime})
	return nil
}

func (p *fakePlatform) Symlink(target, link string, targetIsDir bool) error {
	return os.Symlink(target, link)
}

func (p *fakePlatform) Link(oldname, newname string) error {
	return os.Link(oldname, newname)
}

func (p *fakePlatform) SymlinkAttr(path string) (platform.SymlinkInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return platform.SymlinkInfo{}, err
	}

	uid, gid := p.OwnerIDs(info)
	return platform.SymlinkInfo{
		Size:  info.Size(),
		UID:   uid,
		GID:   gid,
		Atime: info.ModTime(),
		Mtime: info.ModTime(),
	}, nil
}

func (p *fakePlatform) OwnerIDs(info os.FileInfo) (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if owner, ok := p.owners[info.Name()]; ok {
		return owner[0], owner[1]
	}
	return p.defaultUID, p.defaultGID
}

func (p *fakePlatform) Times(info os.FileInfo) (time.Time, time.Time) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Atim.Sec, st.Atim.Nsec), time.Unix(st.Mtim.Sec, st.Mtim.Nsec)
	}
	return info.ModTime(), info.ModTime()
}

// ============================================================================
// Fake transport
// ============================================================================

// fakeProcess is a scripted remote process.
type fakeProcess struct {
	mu      sync.Mutex
	code    *int
	channel io.ReadWriteCloser
	stdout  string
	stderr  string
}

func newAliveProcess(channel io.ReadWriteCloser) *fakeProcess {
	return &fakeProcess{channel: channel}
}

func newExitedProcess(code int, stdout, stderr string) *fakeProcess {
	return &fakeProcess{code: &code, stdout: stdout, stderr: stderr}
}

// exit marks the process as exited with code.
func (p *fakeProcess) exit(code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.code = &code
}

func (p *fakeProcess) exitCode() *int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code
}

func (p *fakeProcess) ExitCode(timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for {
		if code := p.exitCode(); code != nil {
			return *code, nil
		}
		if time.Now().After(deadline) {
			return 0, transport.ErrExitless
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (p *fakeProcess) ReadStdOutput() string { return p.stdout }
func (p *fakeProcess) ReadStdError() string  { return p.stderr }

func (p *fakeProcess) Channel() io.ReadWriteCloser { return p.channel }

// fakeSession dispatches exec commands to scripted processes.
type fakeSession struct {
	mu sync.Mutex

	// sshfsProcs is consumed one per sshfs spawn
	sshfsProcs []*fakeProcess
	active     *fakeProcess

	findmntOut string

	execLog []string
	umounts []string
}

func (s *fakeSession) Exec(command string) (transport.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.execLog = append(s.execLog, command)

	switch {
	case strings.HasPrefix(command, "findmnt"):
		return newExitedProcess(0, s.findmntOut, ""), nil

	case strings.HasPrefix(command, "sudo umount"):
		s.umounts = append(s.umounts, command)
		return newExitedProcess(0, "", ""), nil

	default:
		if len(s.sshfsProcs) == 0 {
			return nil, io.ErrClosedPipe
		}
		proc := s.sshfsProcs[0]
		s.sshfsProcs = s.sshfsProcs[1:]
		s.active = proc
		return proc, nil
	}
}

func (s *fakeSession) ForceShutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active.channel != nil {
		s.active.channel.Close()
	}
}

func (s *fakeSession) activeProc() *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *fakeSession) sshfsSpawns() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, cmd := range s.execLog {
		if strings.HasPrefix(cmd, "sudo sshfs") {
			count++
		}
	}
	return count
}
