package sftp

import (
	"bytes"
	"fmt"
)

// Attr is the SFTP v3 attribute record. Flags says which fields were present
// on the wire (or should be written to it).
type Attr struct {
	Flags       uint32
	Size        uint64
	UID         uint32
	GID         uint32
	Permissions uint32
	Atime       uint32
	Mtime       uint32
}

// HasUIDGID reports whether the client supplied ownership information.
func (a *Attr) HasUIDGID() bool {
	return a.Flags&AttrUIDGID != 0
}

func decodeAttr(r *bytes.Reader) (Attr, error) {
	var attr Attr

	flags, err := readUint32(r)
	if err != nil {
		return attr, fmt.Errorf("attr flags: %w", err)
	}
	attr.Flags = flags

	if flags&AttrSize != 0 {
		if attr.Size, err = readUint64(r); err != nil {
			return attr, fmt.Errorf("attr size: %w", err)
		}
	}

	if flags&AttrUIDGID != 0 {
		if attr.UID, err = readUint32(r); err != nil {
			return attr, fmt.Errorf("attr uid: %w", err)
		}
		if attr.GID, err = readUint32(r); err != nil {
			return attr, fmt.Errorf("attr gid: %w", err)
		}
	}

	if flags&AttrPermissions != 0 {
		if attr.Permissions, err = readUint32(r); err != nil {
			return attr, fmt.Errorf("attr permissions: %w", err)
		}
	}

	if flags&AttrAcModTime != 0 {
		if attr.Atime, err = readUint32(r); err != nil {
			return attr, fmt.Errorf("attr atime: %w", err)
		}
		if attr.Mtime, err = readUint32(r); err != nil {
			return attr, fmt.Errorf("attr mtime: %w", err)
		}
	}

	// Extended attribute pairs are not used by any supported client.
	if flags&AttrExtended != 0 {
		count, err := readUint32(r)
		if err != nil {
			return attr, fmt.Errorf("attr extended count: %w", err)
		}
		for i := uint32(0); i < count; i++ {
			if _, err := readString(r); err != nil {
				return attr, fmt.Errorf("attr extended type: %w", err)
			}
			if _, err := readString(r); err != nil {
				return attr, fmt.Errorf("attr extended data: %w", err)
			}
		}
	}

	return attr, nil
}

func encodeAttr(buf *bytes.Buffer, attr *Attr) {
	flags := attr.Flags &^ AttrExtended
	writeUint32(buf, flags)

	if flags&AttrSize != 0 {
		writeUint64(buf, attr.Size)
	}
	if flags&AttrUIDGID != 0 {
		writeUint32(buf, attr.UID)
		writeUint32(buf, attr.GID)
	}
	if flags&AttrPermissions != 0 {
		writeUint32(buf, attr.Permissions)
	}
	if flags&AttrAcModTime != 0 {
		writeUint32(buf, attr.Atime)
		writeUint32(buf, attr.Mtime)
	}
}
