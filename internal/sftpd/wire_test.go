package sftpd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvera/sshfsd/internal/idmap"
	"github.com/calvera/sshfsd/internal/platform"
	"github.com/calvera/sshfsd/internal/protocol/sftp"
)

// ============================================================================
// Raw wire driver
//
// These tests speak the SFTP wire format directly, where the pkg/sftp client
// is too high-level to observe paging, handle reuse, or recovery.
// ============================================================================

type rawClient struct {
	t    *testing.T
	conn net.Conn
	next uint32
}

func (c *rawClient) writePacket(packetType uint8, payload []byte) {
	c.t.Helper()

	var header [5]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(payload)+1))
	header[4] = packetType

	_, err := c.conn.Write(header[:])
	require.NoError(c.t, err)
	if len(payload) > 0 {
		_, err = c.conn.Write(payload)
		require.NoError(c.t, err)
	}
}

func (c *rawClient) readPacket() (uint8, *bytes.Reader) {
	c.t.Helper()

	var header [5]byte
	_, err := io.ReadFull(c.conn, header[:])
	require.NoError(c.t, err)

	length := binary.BigEndian.Uint32(header[:4])
	payload := make([]byte, length-1)
	_, err = io.ReadFull(c.conn, payload)
	require.NoError(c.t, err)

	return header[4], bytes.NewReader(payload)
}

func (c *rawClient) handshake() {
	c.t.Helper()

	var init bytes.Buffer
	bin(&init, uint32(sftp.ProtocolVersion))
	c.writePacket(sftp.PacketInit, init.Bytes())

	packetType, _ := c.readPacket()
	require.Equal(c.t, uint8(sftp.PacketVersion), packetType)
}

func (c *rawClient) id() uint32 {
	c.next++
	return c.next
}

func bin(buf *bytes.Buffer, v any) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func binString(buf *bytes.Buffer, s string) {
	bin(buf, uint32(len(s)))
	buf.WriteString(s)
}

func (c *rawClient) readStatus() (uint32, uint32) {
	c.t.Helper()

	packetType, r := c.readPacket()
	require.Equal(c.t, uint8(sftp.PacketStatus), packetType)

	var id, code uint32
	require.NoError(c.t, binary.Read(r, binary.BigEndian, &id))
	require.NoError(c.t, binary.Read(r, binary.BigEndian, &code))
	return id, code
}

func (c *rawClient) readHandle() string {
	c.t.Helper()

	packetType, r := c.readPacket()
	require.Equal(c.t, uint8(sftp.PacketHandle), packetType)

	var id, length uint32
	require.NoError(c.t, binary.Read(r, binary.BigEndian, &id))
	require.NoError(c.t, binary.Read(r, binary.BigEndian, &length))

	handle := make([]byte, length)
	_, err := io.ReadFull(r, handle)
	require.NoError(c.t, err)
	return string(handle)
}

// readNamesCount reads a NAME reply, returning the entry count, or -1 with
// the status code when a STATUS arrived instead.
func (c *rawClient) readNamesCount() (int, uint32) {
	c.t.Helper()

	packetType, r := c.readPacket()

	var id uint32
	require.NoError(c.t, binary.Read(r, binary.BigEndian, &id))

	if packetType == sftp.PacketStatus {
		var code uint32
		require.NoError(c.t, binary.Read(r, binary.BigEndian, &code))
		return -1, code
	}

	require.Equal(c.t, uint8(sftp.PacketName), packetType)
	var count uint32
	require.NoError(c.t, binary.Read(r, binary.BigEndian, &count))
	return int(count), sftp.StatusOK
}

func (c *rawClient) opendir(path string) string {
	c.t.Helper()

	var b bytes.Buffer
	bin(&b, c.id())
	binString(&b, path)
	c.writePacket(sftp.PacketOpendir, b.Bytes())
	return c.readHandle()
}

// ============================================================================
// Environment
// ============================================================================

type rawEnv struct {
	source string
	plat   *fakePlatform
	sess   *fakeSession
	server *Server
	client *rawClient

	runDone chan error
}

func newRawEnv(t *testing.T, adjust func(*Config)) *rawEnv {
	t.Helper()

	source := t.TempDir()
	serverConn, clientConn := net.Pipe()

	env := &rawEnv{
		source:  source,
		plat:    newFakePlatform(),
		sess:    &fakeSession{sshfsProcs: []*fakeProcess{newAliveProcess(serverConn)}},
		client:  &rawClient{t: t, conn: clientConn},
		runDone: make(chan error, 1),
	}

	cfg := Config{
		Source:           source,
		Target:           "/home/ubuntu/share",
		SSHFSExecLine:    "sshfs -o slave -o transform_symlinks -o allow_other",
		UIDMap:           idmap.Table{{Host: 1000, Instance: 0}},
		GIDMap:           idmap.Table{{Host: 1000, Instance: 0}},
		DefaultUID:       1000,
		DefaultGID:       1000,
		AppendWorkaround: true,
	}
	if adjust != nil {
		adjust(&cfg)
	}

	ready := make(chan error, 1)
	go func() {
		server, err := New(env.sess, cfg, platform.NewFileOps(), env.plat, nil)
		if err != nil {
			ready <- err
			return
		}
		env.server = server
		ready <- nil
		env.runDone <- server.Run()
	}()

	env.client.handshake()
	require.NoError(t, <-ready)

	t.Cleanup(func() {
		env.server.Stop()
		clientConn.Close()
		select {
		case err := <-env.runDone:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	return env
}

// ============================================================================
// Tests
// ============================================================================

func TestReaddirPaging(t *testing.T) {
	env := newRawEnv(t, nil)

	// 118 files plus the two dot entries: pages of 50, 50, 20, then EOF.
	for i := 0; i < 118; i++ {
		require.NoError(t,
			os.WriteFile(filepath.Join(env.source, fmt.Sprintf("f%03d", i)), []byte("x"), 0644))
	}

	handle := env.client.opendir(env.source)

	readdir := func() (int, uint32) {
		var b bytes.Buffer
		bin(&b, env.client.id())
		binString(&b, handle)
		env.client.writePacket(sftp.PacketReaddir, b.Bytes())
		return env.client.readNamesCount()
	}

	for _, want := range []int{50, 50, 20} {
		count, _ := readdir()
		assert.Equal(t, want, count)
	}

	count, code := readdir()
	assert.Equal(t, -1, count)
	assert.Equal(t, uint32(sftp.StatusEOF), code)
}

func TestCloseIsExactlyOnce(t *testing.T) {
	env := newRawEnv(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(env.source, "f"), []byte("x"), 0644))

	var open bytes.Buffer
	bin(&open, env.client.id())
	binString(&open, filepath.Join(env.source, "f"))
	bin(&open, uint32(sftp.FlagRead))
	bin(&open, uint32(0)) // attr flags
	env.client.writePacket(sftp.PacketOpen, open.Bytes())

	handle := env.client.readHandle()

	closeHandle := func() uint32 {
		var b bytes.Buffer
		bin(&b, env.client.id())
		binString(&b, handle)
		env.client.writePacket(sftp.PacketClose, b.Bytes())
		_, code := env.client.readStatus()
		return code
	}

	assert.Equal(t, uint32(sftp.StatusOK), closeHandle())
	assert.Equal(t, uint32(sftp.StatusBadMessage), closeHandle())
}

func TestDirHandleRefusedForFileRequest(t *testing.T) {
	env := newRawEnv(t, nil)

	handle := env.client.opendir(env.source)

	// READ with a directory handle is a type mismatch.
	var b bytes.Buffer
	bin(&b, env.client.id())
	binString(&b, handle)
	bin(&b, uint64(0))
	bin(&b, uint32(100))
	env.client.writePacket(sftp.PacketRead, b.Bytes())

	_, code := env.client.readStatus()
	assert.Equal(t, uint32(sftp.StatusBadMessage), code)
}

func TestUnknownOpcode(t *testing.T) {
	env := newRawEnv(t, nil)

	var b bytes.Buffer
	bin(&b, env.client.id())
	env.client.writePacket(99, b.Bytes())

	_, code := env.client.readStatus()
	assert.Equal(t, uint32(sftp.StatusOpUnsupported), code)
}

func TestUnknownExtension(t *testing.T) {
	env := newRawEnv(t, nil)

	var b bytes.Buffer
	bin(&b, env.client.id())
	binString(&b, "statvfs@openssh.com")
	binString(&b, env.source)
	env.client.writePacket(sftp.PacketExtended, b.Bytes())

	_, code := env.client.readStatus()
	assert.Equal(t, uint32(sftp.StatusOpUnsupported), code)
}

func TestMkdirRemapsRequestedOwnership(t *testing.T) {
	env := newRawEnv(t, nil)
	env.plat.setOwner(filepath.Base(env.source), 500, 500)

	// Instance uid 0 with no gid opinion: uid reverse-maps to host 1000,
	// gid falls back to the parent's 500.
	var b bytes.Buffer
	bin(&b, env.client.id())
	binString(&b, filepath.Join(env.source, "newdir"))
	bin(&b, uint32(sftp.AttrUIDGID|sftp.AttrPermissions))
	bin(&b, uint32(0))          // uid
	bin(&b, uint32(0xFFFFFFFF)) // gid: no opinion
	bin(&b, uint32(0755))
	env.client.writePacket(sftp.PacketMkdir, b.Bytes())

	_, code := env.client.readStatus()
	require.Equal(t, uint32(sftp.StatusOK), code)

	chown, ok := env.plat.lastChown()
	require.True(t, ok)
	assert.Equal(t, 1000, chown.uid)
	assert.Equal(t, 500, chown.gid)

	info, err := os.Stat(filepath.Join(env.source, "newdir"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestJailViolationTouchesNothing(t *testing.T) {
	env := newRawEnv(t, nil)

	outside := filepath.Join(t.TempDir(), "outside")

	var b bytes.Buffer
	bin(&b, env.client.id())
	binString(&b, outside)
	bin(&b, uint32(sftp.AttrPermissions))
	bin(&b, uint32(0755))
	env.client.writePacket(sftp.PacketMkdir, b.Bytes())

	_, code := env.client.readStatus()
	assert.Equal(t, uint32(sftp.StatusPermissionDenied), code)

	_, err := os.Stat(outside)
	assert.True(t, os.IsNotExist(err))
}

func TestReadNeverExceedsMaxPacket(t *testing.T) {
	env := newRawEnv(t, nil)

	path := filepath.Join(env.source, "big")
	require.NoError(t, os.WriteFile(path, make([]byte, 100_000), 0644))

	var open bytes.Buffer
	bin(&open, env.client.id())
	binString(&open, path)
	bin(&open, uint32(sftp.FlagRead))
	bin(&open, uint32(0))
	env.client.writePacket(sftp.PacketOpen, open.Bytes())
	handle := env.client.readHandle()

	var read bytes.Buffer
	bin(&read, env.client.id())
	binString(&read, handle)
	bin(&read, uint64(0))
	bin(&read, uint32(100_000))
	env.client.writePacket(sftp.PacketRead, read.Bytes())

	packetType, r := env.client.readPacket()
	require.Equal(t, uint8(sftp.PacketData), packetType)

	var id, length uint32
	require.NoError(t, binary.Read(r, binary.BigEndian, &id))
	require.NoError(t, binary.Read(r, binary.BigEndian, &length))
	assert.Equal(t, uint32(65536), length)
}

func TestHelperRecovery(t *testing.T) {
	source := t.TempDir()
	serverConn1, clientConn1 := net.Pipe()
	serverConn2, clientConn2 := net.Pipe()

	proc1 := newAliveProcess(serverConn1)
	proc2 := newAliveProcess(serverConn2)

	sess := &fakeSession{
		sshfsProcs: []*fakeProcess{proc1, proc2},
		findmntOut: "/home/ubuntu/share\n",
	}

	cfg := Config{
		Source:        source,
		Target:        "/home/ubuntu/share",
		SSHFSExecLine: "sshfs -o slave -o transform_symlinks -o allow_other",
		DefaultUID:    1000,
		DefaultGID:    1000,
	}

	runDone := make(chan error, 1)
	ready := make(chan error, 1)
	var server *Server
	go func() {
		var err error
		server, err = New(sess, cfg, platform.NewFileOps(), newFakePlatform(), nil)
		if err != nil {
			ready <- err
			return
		}
		ready <- nil
		runDone <- server.Run()
	}()

	client1 := &rawClient{t: t, conn: clientConn1}
	client1.handshake()
	require.NoError(t, <-ready)

	// sshfs dies; the dead channel ends the framing stream.
	proc1.exit(1)
	clientConn1.Close()

	// The server recovers: findmnt, umount, respawn, new handshake.
	client2 := &rawClient{t: t, conn: clientConn2}
	client2.handshake()

	assert.Equal(t, 2, sess.sshfsSpawns())
	require.Len(t, sess.umounts, 1)
	assert.Equal(t, "sudo umount /home/ubuntu/share", sess.umounts[0])

	// The next client message is served normally.
	var b bytes.Buffer
	bin(&b, client2.id())
	binString(&b, source)
	client2.writePacket(sftp.PacketStat, b.Bytes())

	packetType, _ := client2.readPacket()
	assert.Equal(t, uint8(sftp.PacketAttrs), packetType)

	server.Stop()
	clientConn2.Close()
	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Error("server did not stop after recovery")
	}
}

func TestStopUnblocksRun(t *testing.T) {
	env := newRawEnv(t, nil)

	env.server.Stop()

	select {
	case err := <-env.runDone:
		assert.NoError(t, err)
		// Re-arm for the cleanup hook.
		env.runDone <- err
	case <-time.After(5 * time.Second):
		t.Error("Stop did not unblock Run")
	}
}

func TestCleanHelperExitEndsRun(t *testing.T) {
	env := newRawEnv(t, nil)

	// sshfs finished cleanly; the loop must end without recovery.
	env.sess.activeProc().exit(0)
	env.sess.ForceShutdown()

	select {
	case err := <-env.runDone:
		assert.NoError(t, err)
		env.runDone <- err
	case <-time.After(5 * time.Second):
		t.Error("clean helper exit did not end Run")
	}

	assert.Equal(t, 1, env.sess.sshfsSpawns())
}
