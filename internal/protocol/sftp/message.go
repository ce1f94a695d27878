package sftp

import (
	"bytes"
	"fmt"
)

// ClientMessage is a decoded client request.
//
// Filename carries the primary path of path-directed requests. Data carries
// the secondary operand: the payload of WRITE, or the second path of RENAME,
// SYMLINK and the extended submethods. Submessage names the extended method
// of an EXTENDED request.
type ClientMessage struct {
	Type       uint8
	ID         uint32
	Filename   string
	Data       []byte
	Handle     string
	Flags      uint32
	Offset     uint64
	Length     uint32
	Attr       Attr
	Submessage string

	session *Session
}

// TypeName returns the printable packet name of the message.
func (m *ClientMessage) TypeName() string {
	return PacketTypeName(m.Type)
}

func decodeClientMessage(packetType uint8, payload []byte) (*ClientMessage, error) {
	r := bytes.NewReader(payload)

	id, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("request id: %w", err)
	}

	msg := &ClientMessage{Type: packetType, ID: id}

	switch packetType {
	case PacketOpen:
		if err := msg.decodeFilename(r); err != nil {
			return nil, err
		}
		if msg.Flags, err = readUint32(r); err != nil {
			return nil, fmt.Errorf("pflags: %w", err)
		}
		if msg.Attr, err = decodeAttr(r); err != nil {
			return nil, err
		}

	case PacketClose, PacketFstat, PacketReaddir:
		if err := msg.decodeHandle(r); err != nil {
			return nil, err
		}

	case PacketRead:
		if err := msg.decodeHandle(r); err != nil {
			return nil, err
		}
		if msg.Offset, err = readUint64(r); err != nil {
			return nil, fmt.Errorf("offset: %w", err)
		}
		if msg.Length, err = readUint32(r); err != nil {
			return nil, fmt.Errorf("length: %w", err)
		}

	case PacketWrite:
		if err := msg.decodeHandle(r); err != nil {
			return nil, err
		}
		if msg.Offset, err = readUint64(r); err != nil {
			return nil, fmt.Errorf("offset: %w", err)
		}
		if msg.Data, err = readString(r); err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}

	case PacketOpendir, PacketRealpath, PacketStat, PacketLstat,
		PacketRmdir, PacketRemove, PacketReadlink:
		if err := msg.decodeFilename(r); err != nil {
			return nil, err
		}

	case PacketMkdir, PacketSetstat:
		if err := msg.decodeFilename(r); err != nil {
			return nil, err
		}
		if msg.Attr, err = decodeAttr(r); err != nil {
			return nil, err
		}

	case PacketFsetstat:
		if err := msg.decodeHandle(r); err != nil {
			return nil, err
		}
		if msg.Attr, err = decodeAttr(r); err != nil {
			return nil, err
		}

	case PacketRename, PacketSymlink:
		// Both paths arrive in OpenSSH order: the existing name first, the
		// new name second.
		if err := msg.decodeFilename(r); err != nil {
			return nil, err
		}
		if msg.Data, err = readString(r); err != nil {
			return nil, fmt.Errorf("second path: %w", err)
		}

	case PacketExtended:
		method, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("extended method: %w", err)
		}
		msg.Submessage = string(method)

		switch msg.Submessage {
		case ExtensionHardlink, ExtensionPosixRename:
			if err := msg.decodeFilename(r); err != nil {
				return nil, err
			}
			if msg.Data, err = readString(r); err != nil {
				return nil, fmt.Errorf("second path: %w", err)
			}
		default:
			// Unknown submethods keep their operands unread; the caller
			// replies OP_UNSUPPORTED from the method name alone.
		}

	default:
		// Unknown packet type. The id is enough to reply OP_UNSUPPORTED.
	}

	return msg, nil
}

func (m *ClientMessage) decodeFilename(r *bytes.Reader) error {
	name, err := readString(r)
	if err != nil {
		return fmt.Errorf("filename: %w", err)
	}
	m.Filename = string(name)
	return nil
}

func (m *ClientMessage) decodeHandle(r *bytes.Reader) error {
	handle, err := readString(r)
	if err != nil {
		return fmt.Errorf("handle: %w", err)
	}
	m.Handle = string(handle)
	return nil
}
