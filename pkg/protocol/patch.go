package protocol

import "fmt"

// NodeID addresses a node on both ends of a connection. Zero means "none":
// an Insert with Ref 0 appends.
type NodeID uint64

// PatchOp is the type of patch operation. Each op mirrors one mutating
// call of dom.Provider.
type PatchOp uint8

const (
	PatchCreateElement PatchOp = 0x01 // Node, NS, Tag, Value=is
	PatchCreateText    PatchOp = 0x02 // Node, Value=text
	PatchFragment      PatchOp = 0x03 // Node=context, Value=markup, Nodes=parsed top-level nodes
	PatchSetAttr       PatchOp = 0x04 // Node, Key, Value
	PatchRemoveAttr    PatchOp = 0x05 // Node, Key
	PatchSetProp       PatchOp = 0x06 // Node, Key, Value=JSON
	PatchRemoveProp    PatchOp = 0x07 // Node, Key
	PatchSetHandler    PatchOp = 0x08 // Node, Key=event type
	PatchRemoveHandler PatchOp = 0x09 // Node, Key=event type
	PatchSetStyle      PatchOp = 0x0A // Node, Key, Value
	PatchRemoveStyle   PatchOp = 0x0B // Node, Key
	PatchInsert        PatchOp = 0x0C // Node, Parent, Ref
	PatchRemove        PatchOp = 0x0D // Node, Parent
)

// String returns the string representation of the patch operation.
func (op PatchOp) String() string {
	switch op {
	case PatchCreateElement:
		return "CreateElement"
	case PatchCreateText:
		return "CreateText"
	case PatchFragment:
		return "Fragment"
	case PatchSetAttr:
		return "SetAttr"
	case PatchRemoveAttr:
		return "RemoveAttr"
	case PatchSetProp:
		return "SetProp"
	case PatchRemoveProp:
		return "RemoveProp"
	case PatchSetHandler:
		return "SetHandler"
	case PatchRemoveHandler:
		return "RemoveHandler"
	case PatchSetStyle:
		return "SetStyle"
	case PatchRemoveStyle:
		return "RemoveStyle"
	case PatchInsert:
		return "Insert"
	case PatchRemove:
		return "Remove"
	default:
		return "Unknown"
	}
}

// Patch is one DOM operation. Fields unused by Op are zero.
type Patch struct {
	Op     PatchOp
	Node   NodeID
	Parent NodeID
	Ref    NodeID
	NS     string // namespace URI, "" for HTML
	Tag    string
	Key    string
	Value  string
	Nodes  []NodeID
}

// String renders the patch for logs.
func (p Patch) String() string {
	switch p.Op {
	case PatchCreateElement:
		return fmt.Sprintf("%s #%d <%s>", p.Op, p.Node, p.Tag)
	case PatchInsert:
		return fmt.Sprintf("%s #%d into #%d before #%d", p.Op, p.Node, p.Parent, p.Ref)
	case PatchRemove:
		return fmt.Sprintf("%s #%d from #%d", p.Op, p.Node, p.Parent)
	case PatchFragment:
		return fmt.Sprintf("%s in #%d -> %v", p.Op, p.Node, p.Nodes)
	case PatchCreateText:
		return fmt.Sprintf("%s #%d %q", p.Op, p.Node, p.Value)
	default:
		if p.Value != "" {
			return fmt.Sprintf("%s #%d %s=%q", p.Op, p.Node, p.Key, p.Value)
		}
		return fmt.Sprintf("%s #%d %s", p.Op, p.Node, p.Key)
	}
}

// PatchesFrame is a batch of patches applied atomically by the client.
type PatchesFrame struct {
	Seq     uint64
	Patches []Patch
}

// EncodePatches encodes a patches frame payload.
func EncodePatches(pf *PatchesFrame) []byte {
	e := NewEncoder()
	EncodePatchesTo(e, pf)
	return e.Bytes()
}

// EncodePatchesTo encodes a patches frame payload using e.
func EncodePatchesTo(e *Encoder, pf *PatchesFrame) {
	e.WriteUvarint(pf.Seq)
	e.WriteUvarint(uint64(len(pf.Patches)))
	for i := range pf.Patches {
		encodePatch(e, &pf.Patches[i])
	}
}

func encodePatch(e *Encoder, p *Patch) {
	e.WriteByte(byte(p.Op))
	e.WriteUvarint(uint64(p.Node))

	switch p.Op {
	case PatchCreateElement:
		e.WriteString(p.NS)
		e.WriteString(p.Tag)
		e.WriteString(p.Value)

	case PatchCreateText:
		e.WriteString(p.Value)

	case PatchFragment:
		e.WriteString(p.Value)
		e.WriteUvarint(uint64(len(p.Nodes)))
		for _, id := range p.Nodes {
			e.WriteUvarint(uint64(id))
		}

	case PatchSetAttr, PatchSetProp, PatchSetStyle:
		e.WriteString(p.Key)
		e.WriteString(p.Value)

	case PatchRemoveAttr, PatchRemoveProp, PatchSetHandler, PatchRemoveHandler, PatchRemoveStyle:
		e.WriteString(p.Key)

	case PatchInsert:
		e.WriteUvarint(uint64(p.Parent))
		e.WriteUvarint(uint64(p.Ref))

	case PatchRemove:
		e.WriteUvarint(uint64(p.Parent))
	}
}

// DecodePatches decodes a patches frame payload.
func DecodePatches(data []byte) (*PatchesFrame, error) {
	d := NewDecoder(data)
	pf, err := DecodePatchesFrom(d)
	if err != nil {
		return nil, err
	}
	return pf, d.done()
}

// DecodePatchesFrom decodes a patches frame payload from d.
func DecodePatchesFrom(d *Decoder) (*PatchesFrame, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCount()
	if err != nil {
		return nil, err
	}
	patches := make([]Patch, count)
	for i := range patches {
		if err := decodePatch(d, &patches[i]); err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}
	}
	return &PatchesFrame{Seq: seq, Patches: patches}, nil
}

func decodePatch(d *Decoder, p *Patch) error {
	op, err := d.ReadByte()
	if err != nil {
		return err
	}
	p.Op = PatchOp(op)
	if p.Node, err = readID(d); err != nil {
		return err
	}

	switch p.Op {
	case PatchCreateElement:
		if p.NS, err = d.ReadString(); err != nil {
			return err
		}
		if p.Tag, err = d.ReadString(); err != nil {
			return err
		}
		p.Value, err = d.ReadString()

	case PatchCreateText:
		p.Value, err = d.ReadString()

	case PatchFragment:
		if p.Value, err = d.ReadString(); err != nil {
			return err
		}
		var n int
		if n, err = d.ReadCount(); err != nil {
			return err
		}
		p.Nodes = make([]NodeID, n)
		for i := range p.Nodes {
			if p.Nodes[i], err = readID(d); err != nil {
				return err
			}
		}

	case PatchSetAttr, PatchSetProp, PatchSetStyle:
		if p.Key, err = d.ReadString(); err != nil {
			return err
		}
		p.Value, err = d.ReadString()

	case PatchRemoveAttr, PatchRemoveProp, PatchSetHandler, PatchRemoveHandler, PatchRemoveStyle:
		p.Key, err = d.ReadString()

	case PatchInsert:
		if p.Parent, err = readID(d); err != nil {
			return err
		}
		p.Ref, err = readID(d)

	case PatchRemove:
		p.Parent, err = readID(d)

	default:
		return fmt.Errorf("protocol: unknown patch op 0x%02x", op)
	}
	return err
}

func readID(d *Decoder) (NodeID, error) {
	v, err := d.ReadUvarint()
	return NodeID(v), err
}
