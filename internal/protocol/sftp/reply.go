package sftp

import (
	"bytes"
)

// NameEntry is a single entry of a NAME reply.
type NameEntry struct {
	Filename string
	Longname string
	Attr     Attr
}

var statusMessages = map[uint32]string{
	StatusOK:               "Success",
	StatusEOF:              "End of file",
	StatusNoSuchFile:       "No such file",
	StatusPermissionDenied: "Permission denied",
	StatusFailure:          "Failure",
	StatusBadMessage:       "Bad message",
	StatusOpUnsupported:    "Operation unsupported",
}

// ReplyStatus sends a STATUS reply. An empty message falls back to the
// canonical text for the code.
func (m *ClientMessage) ReplyStatus(code uint32, message string) error {
	if message == "" {
		message = statusMessages[code]
	}

	var buf bytes.Buffer
	writeUint32(&buf, m.ID)
	writeUint32(&buf, code)
	writeString(&buf, []byte(message))
	writeString(&buf, []byte("")) // language tag

	return m.session.writePacket(PacketStatus, buf.Bytes())
}

// ReplyHandle sends a HANDLE reply carrying an opaque server handle.
func (m *ClientMessage) ReplyHandle(handle string) error {
	var buf bytes.Buffer
	writeUint32(&buf, m.ID)
	writeString(&buf, []byte(handle))

	return m.session.writePacket(PacketHandle, buf.Bytes())
}

// ReplyData sends a DATA reply.
func (m *ClientMessage) ReplyData(data []byte) error {
	var buf bytes.Buffer
	writeUint32(&buf, m.ID)
	writeString(&buf, data)

	return m.session.writePacket(PacketData, buf.Bytes())
}

// ReplyAttrs sends an ATTRS reply.
func (m *ClientMessage) ReplyAttrs(attr Attr) error {
	var buf bytes.Buffer
	writeUint32(&buf, m.ID)
	encodeAttr(&buf, &attr)

	return m.session.writePacket(PacketAttrs, buf.Bytes())
}

// ReplyName sends a NAME reply with a single entry whose longname equals the
// filename and whose attributes are empty. REALPATH and READLINK use this
// form.
func (m *ClientMessage) ReplyName(name string) error {
	return m.ReplyNames([]NameEntry{{Filename: name, Longname: name}})
}

// ReplyNames sends a NAME reply with the given entries.
func (m *ClientMessage) ReplyNames(entries []NameEntry) error {
	var buf bytes.Buffer
	writeUint32(&buf, m.ID)
	writeUint32(&buf, uint32(len(entries)))

	for i := range entries {
		writeString(&buf, []byte(entries[i].Filename))
		writeString(&buf, []byte(entries[i].Longname))
		encodeAttr(&buf, &entries[i].Attr)
	}

	return m.session.writePacket(PacketName, buf.Bytes())
}
