package protocol

import (
	"errors"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 6

	// MaxPayloadSize bounds a frame payload. A full snapshot of a large
	// document fits comfortably.
	MaxPayloadSize = 16 * 1024 * 1024
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FramePatches FrameType = 0x01 // Server → Client DOM mutations
	FrameEvent   FrameType = 0x02 // Client → Server events
	FrameControl FrameType = 0x03 // Ping, pong, close
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FramePatches:
		return "Patches"
	case FrameEvent:
		return "Event"
	case FrameControl:
		return "Control"
	default:
		return "Unknown"
	}
}

// FrameFlags modify how a frame is applied.
type FrameFlags uint8

const (
	// FlagSnapshot marks a patches frame that rebuilds the document from
	// nothing. The client drops every node it knows before applying it.
	FlagSnapshot FrameFlags = 0x01
)

// Has reports whether ff contains flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is a typed payload.
//
// Wire format (6 bytes header + payload):
//
//	┌────────────┬───────────┬───────────────────────────────┐
//	│ Frame Type │ Flags     │ Payload Length                │
//	│ (1 byte)   │ (1 byte)  │ (4 bytes, big-endian)         │
//	└────────────┴───────────┴───────────────────────────────┘
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// NewFrame creates a frame without flags.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode returns the header and payload as one slice.
func (f *Frame) Encode() []byte {
	e := &Encoder{buf: make([]byte, 0, FrameHeaderSize+len(f.Payload))}
	e.WriteByte(byte(f.Type))
	e.WriteByte(byte(f.Flags))
	e.WriteUint32(uint32(len(f.Payload)))
	e.buf = append(e.buf, f.Payload...)
	return e.buf
}

// DecodeFrame decodes one complete frame. Bytes after the payload are an
// error; websocket messages carry exactly one frame.
func DecodeFrame(data []byte) (*Frame, error) {
	d := NewDecoder(data)
	f, length, err := decodeHeader(d)
	if err != nil {
		return nil, err
	}
	if d.Remaining() < length {
		return nil, io.ErrUnexpectedEOF
	}
	if d.Remaining() > length {
		return nil, ErrTrailingBytes
	}
	f.Payload = append([]byte(nil), data[FrameHeaderSize:]...)
	return f, nil
}

func decodeHeader(d *Decoder) (*Frame, int, error) {
	ft, err := d.ReadByte()
	if err != nil {
		return nil, 0, err
	}
	flags, err := d.ReadByte()
	if err != nil {
		return nil, 0, err
	}
	length, err := d.ReadUint32()
	if err != nil {
		return nil, 0, err
	}
	switch FrameType(ft) {
	case FramePatches, FrameEvent, FrameControl:
	default:
		return nil, 0, ErrInvalidFrameType
	}
	if length > MaxPayloadSize {
		return nil, 0, ErrFrameTooLarge
	}
	return &Frame{Type: FrameType(ft), Flags: FrameFlags(flags)}, int(length), nil
}

// ReadFrame reads one frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	f, length, err := decodeHeader(NewDecoder(header))
	if err != nil {
		return nil, err
	}
	f.Payload = make([]byte, length)
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteFrame writes f to w.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}
