package protocol

import "fmt"

// ControlType identifies the type of control message.
type ControlType uint8

const (
	ControlPing  ControlType = 0x01
	ControlPong  ControlType = 0x02
	ControlClose ControlType = 0x03
)

// String returns the string representation of the control type.
func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// CloseReason indicates why a connection is being closed.
type CloseReason uint8

const (
	CloseNormal         CloseReason = 0x00
	CloseServerShutdown CloseReason = 0x01
	CloseProtocolError  CloseReason = 0x02
	CloseSlowConsumer   CloseReason = 0x03
)

// String returns the string representation of the close reason.
func (cr CloseReason) String() string {
	switch cr {
	case CloseNormal:
		return "Normal"
	case CloseServerShutdown:
		return "ServerShutdown"
	case CloseProtocolError:
		return "ProtocolError"
	case CloseSlowConsumer:
		return "SlowConsumer"
	default:
		return "Unknown"
	}
}

// Control is a control frame payload. Ping and Pong carry Timestamp (unix
// milliseconds, echoed back by Pong); Close carries Reason and Message.
type Control struct {
	Type      ControlType
	Timestamp uint64
	Reason    CloseReason
	Message   string
}

// EncodeControl encodes a control frame payload.
func EncodeControl(c *Control) []byte {
	e := NewEncoder()
	e.WriteByte(byte(c.Type))
	switch c.Type {
	case ControlPing, ControlPong:
		e.WriteUint64(c.Timestamp)
	case ControlClose:
		e.WriteByte(byte(c.Reason))
		e.WriteString(c.Message)
	}
	return e.Bytes()
}

// DecodeControl decodes a control frame payload.
func DecodeControl(data []byte) (*Control, error) {
	d := NewDecoder(data)
	t, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	c := &Control{Type: ControlType(t)}
	switch c.Type {
	case ControlPing, ControlPong:
		if c.Timestamp, err = d.ReadUint64(); err != nil {
			return nil, err
		}
	case ControlClose:
		r, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		c.Reason = CloseReason(r)
		if c.Message, err = d.ReadString(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("protocol: unknown control type 0x%02x", t)
	}
	return c, d.done()
}

// PatchesMessage wraps a patches payload in a frame and encodes it.
func PatchesMessage(pf *PatchesFrame, flags FrameFlags) []byte {
	return (&Frame{Type: FramePatches, Flags: flags, Payload: EncodePatches(pf)}).Encode()
}

// EventMessage wraps an event payload in a frame and encodes it.
func EventMessage(ev *Event) []byte {
	return NewFrame(FrameEvent, EncodeEvent(ev)).Encode()
}

// ControlMessage wraps a control payload in a frame and encodes it.
func ControlMessage(c *Control) []byte {
	return NewFrame(FrameControl, EncodeControl(c)).Encode()
}
