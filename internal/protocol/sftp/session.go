// Package sftp implements the server side of the SFTP version 3 wire
// protocol: packet framing, client-message decoding and reply encoding.
//
// The package only frames messages; deciding what a message means is the
// caller's job. A Session is bound to a single byte channel (in production
// the channel of the sshfs process spawned in the instance) and is not safe
// for concurrent use.
package sftp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// maxPacketSize bounds a single client packet. sshfs never sends more than
// 64 KiB of payload plus headers.
const maxPacketSize = 256 * 1024

// Session frames SFTP packets over a byte channel.
type Session struct {
	channel io.ReadWriteCloser
}

// NewSession performs the INIT/VERSION handshake on channel and returns a
// session ready to read client messages.
//
// The server advertises the hardlink@openssh.com and posix-rename@openssh.com
// extensions so that clients gate their use correctly.
func NewSession(channel io.ReadWriteCloser) (*Session, error) {
	s := &Session{channel: channel}

	packetType, payload, err := s.readPacket()
	if err != nil {
		return nil, fmt.Errorf("read init packet: %w", err)
	}
	if packetType != PacketInit {
		return nil, fmt.Errorf("expected INIT packet, got %s", PacketTypeName(packetType))
	}

	r := bytes.NewReader(payload)
	version, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read client version: %w", err)
	}
	if version < ProtocolVersion {
		return nil, fmt.Errorf("unsupported client protocol version %d", version)
	}

	var buf bytes.Buffer
	writeUint32(&buf, ProtocolVersion)
	writeString(&buf, []byte(ExtensionPosixRename))
	writeString(&buf, []byte("1"))
	writeString(&buf, []byte(ExtensionHardlink))
	writeString(&buf, []byte("1"))

	if err := s.writePacket(PacketVersion, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("write version packet: %w", err)
	}

	return s, nil
}

// ReadMessage reads and decodes the next client message. It returns an error
// when the channel is closed or yields garbage; the caller treats any error
// as end-of-stream.
func (s *Session) ReadMessage() (*ClientMessage, error) {
	packetType, payload, err := s.readPacket()
	if err != nil {
		return nil, err
	}

	msg, err := decodeClientMessage(packetType, payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", PacketTypeName(packetType), err)
	}

	msg.session = s
	return msg, nil
}

// Close closes the underlying channel.
func (s *Session) Close() error {
	return s.channel.Close()
}

func (s *Session) readPacket() (uint8, []byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(s.channel, header[:]); err != nil {
		return 0, nil, err
	}

	length := binary.BigEndian.Uint32(header[:4])
	if length == 0 || length > maxPacketSize {
		return 0, nil, fmt.Errorf("invalid packet length %d", length)
	}

	packetType := header[4]
	payload := make([]byte, length-1)
	if _, err := io.ReadFull(s.channel, payload); err != nil {
		return 0, nil, fmt.Errorf("read packet payload: %w", err)
	}

	return packetType, payload, nil
}

func (s *Session) writePacket(packetType uint8, payload []byte) error {
	var header [5]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(payload)+1))
	header[4] = packetType

	if _, err := s.channel.Write(header[:]); err != nil {
		return fmt.Errorf("write packet header: %w", err)
	}
	if _, err := s.channel.Write(payload); err != nil {
		return fmt.Errorf("write packet payload: %w", err)
	}
	return nil
}
