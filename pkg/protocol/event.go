package protocol

// Event is a client interaction addressed to a node.
//
// Wire format:
//
//	[Seq: varint][Node: varint][Type: len-prefixed][Value: len-prefixed]
type Event struct {
	Seq   uint64
	Node  NodeID
	Type  string // DOM event type without the "on" prefix: "click", "input"
	Value string // current value of form controls, "" otherwise
}

// EncodeEvent encodes an event frame payload.
func EncodeEvent(ev *Event) []byte {
	e := NewEncoder()
	e.WriteUvarint(ev.Seq)
	e.WriteUvarint(uint64(ev.Node))
	e.WriteString(ev.Type)
	e.WriteString(ev.Value)
	return e.Bytes()
}

// DecodeEvent decodes an event frame payload.
func DecodeEvent(data []byte) (*Event, error) {
	d := NewDecoder(data)
	ev := &Event{}
	var err error
	if ev.Seq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if ev.Node, err = readID(d); err != nil {
		return nil, err
	}
	if ev.Type, err = d.ReadString(); err != nil {
		return nil, err
	}
	if ev.Value, err = d.ReadString(); err != nil {
		return nil, err
	}
	return ev, d.done()
}
