package sftp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Low-level field readers and writers. All SFTP integers are big-endian;
// strings are a uint32 length followed by the bytes.

func readUint8(r *bytes.Reader) (uint8, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("read byte: %w", err)
	}
	return b, nil
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read uint32: %w", err)
	}
	return v, nil
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var v uint64
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read uint64: %w", err)
	}
	return v, nil
}

func readString(r *bytes.Reader) ([]byte, error) {
	length, err := readUint32(r)
	if err != nil {
		return nil, err
	}

	if uint32(r.Len()) < length {
		return nil, fmt.Errorf("string length %d exceeds remaining %d bytes", length, r.Len())
	}

	data := make([]byte, length)
	if _, err := r.Read(data); err != nil {
		return nil, fmt.Errorf("read string body: %w", err)
	}
	return data, nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func writeString(buf *bytes.Buffer, s []byte) {
	writeUint32(buf, uint32(len(s)))
	buf.Write(s)
}
