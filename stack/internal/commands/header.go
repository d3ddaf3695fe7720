package commands

import (
	"bytes"
	"encoding/binary"
)

// Frames from the stack carry a fixed binary header followed by a JSON
// payload of ContentSize bytes. Kind zero marks a command reply; non-zero
// values identify unsolicited server events.
const HeaderSize = 14

// HeaderBuffer is a raw header read off the socket.
type HeaderBuffer = [HeaderSize]byte

const ApiVersion byte = 1

type Header struct {
	Version     byte
	Kind        byte
	RequestId   int64
	ContentSize uint32
}

// Pack encodes the header in its wire form.
func (h Header) Pack() (HeaderBuffer, error) {
	var buf HeaderBuffer
	if err := binary.Write(bytes.NewBuffer(buf[:0]), binary.BigEndian, &h); err != nil {
		return buf, err
	}

	return buf, nil
}

// UnpackHeader decodes a raw header.
func UnpackHeader(raw HeaderBuffer) (Header, error) {
	var header Header
	if err := binary.Read(bytes.NewReader(raw[:]), binary.BigEndian, &header); err != nil {
		return header, err
	}

	return header, nil
}
