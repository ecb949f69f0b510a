package memdom

import (
	"fmt"
	"strconv"

	"golang.org/x/net/html"
)

// MutationOp identifies a document mutation.
type MutationOp uint8

const (
	OpCreateElement MutationOp = iota + 1
	OpCreateText
	OpParse
	OpSetAttr
	OpRemoveAttr
	OpSetProp
	OpRemoveProp
	OpSetStyle
	OpRemoveStyle
	OpInsert
	OpRemove
)

// String returns the string representation of the MutationOp.
func (op MutationOp) String() string {
	switch op {
	case OpCreateElement:
		return "CreateElement"
	case OpCreateText:
		return "CreateText"
	case OpParse:
		return "Parse"
	case OpSetAttr:
		return "SetAttr"
	case OpRemoveAttr:
		return "RemoveAttr"
	case OpSetProp:
		return "SetProp"
	case OpRemoveProp:
		return "RemoveProp"
	case OpSetStyle:
		return "SetStyle"
	case OpRemoveStyle:
		return "RemoveStyle"
	case OpInsert:
		return "Insert"
	case OpRemove:
		return "Remove"
	default:
		return "Unknown"
	}
}

// Mutation is one recorded call into the document.
type Mutation struct {
	Op     MutationOp
	Target *html.Node // element (or created node) the op applies to
	Node   *html.Node // child for Insert/Remove
	Ref    *html.Node // reference sibling for Insert, nil means append
	Name   string     // attribute, property or style name; tag for CreateElement
	Value  string     // string payload
	Data   any        // property value for SetProp
}

// String renders the mutation for logs and the CLI diff view.
func (m Mutation) String() string {
	switch m.Op {
	case OpCreateElement:
		return fmt.Sprintf("create %s", Describe(m.Target))
	case OpCreateText:
		return fmt.Sprintf("create %s", Describe(m.Target))
	case OpParse:
		return fmt.Sprintf("parse %s in %s", strconv.Quote(m.Value), Describe(m.Target))
	case OpSetAttr:
		return fmt.Sprintf("set %s[%s=%s]", Describe(m.Target), m.Name, strconv.Quote(m.Value))
	case OpRemoveAttr:
		return fmt.Sprintf("remove %s[%s]", Describe(m.Target), m.Name)
	case OpSetProp:
		return fmt.Sprintf("set %s.%s = %s", Describe(m.Target), m.Name, describeValue(m.Data))
	case OpRemoveProp:
		return fmt.Sprintf("delete %s.%s", Describe(m.Target), m.Name)
	case OpSetStyle:
		return fmt.Sprintf("set %s.style.%s = %s", Describe(m.Target), m.Name, strconv.Quote(m.Value))
	case OpRemoveStyle:
		return fmt.Sprintf("delete %s.style.%s", Describe(m.Target), m.Name)
	case OpInsert:
		if m.Ref == nil {
			return fmt.Sprintf("append %s to %s", Describe(m.Node), Describe(m.Target))
		}
		return fmt.Sprintf("insert %s into %s before %s", Describe(m.Node), Describe(m.Target), Describe(m.Ref))
	case OpRemove:
		return fmt.Sprintf("remove %s from %s", Describe(m.Node), Describe(m.Target))
	default:
		return m.Op.String()
	}
}

func describeValue(v any) string {
	switch val := v.(type) {
	case string:
		return strconv.Quote(val)
	case bool, int, int64, float64:
		return fmt.Sprint(val)
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Describe returns a short human label for a node: <tag#id>, #text "..", etc.
func Describe(n *html.Node) string {
	if n == nil {
		return "<nil>"
	}
	switch n.Type {
	case html.ElementNode:
		label := n.Data
		if n.Namespace != "" {
			label = n.Namespace + ":" + label
		}
		for _, a := range n.Attr {
			if a.Key == "id" {
				label += "#" + a.Val
			}
		}
		return "<" + label + ">"
	case html.TextNode:
		text := n.Data
		if len(text) > 24 {
			text = text[:21] + "..."
		}
		return "#text " + strconv.Quote(text)
	case html.CommentNode:
		return "#comment"
	case html.DocumentNode:
		return "#document"
	default:
		return "#node"
	}
}

// record appends to the log and notifies observers.
func (d *Document) record(m Mutation) {
	if !d.nolog {
		d.log = append(d.log, m)
	}
	for _, id := range d.observerIDs() {
		if fn := d.observers[id]; fn != nil {
			fn(m)
		}
	}
}

func (d *Document) observerIDs() []int {
	if len(d.observers) == 0 {
		return nil
	}
	ids := make([]int, 0, len(d.observers))
	for i := 0; i < d.nextObs; i++ {
		if _, ok := d.observers[i]; ok {
			ids = append(ids, i)
		}
	}
	return ids
}

// Observe registers fn to be called for every mutation, in registration
// order. The returned func deregisters it.
func (d *Document) Observe(fn func(Mutation)) (cancel func()) {
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	return func() { delete(d.observers, id) }
}

// Mutations returns the mutations recorded since the last reset.
func (d *Document) Mutations() []Mutation {
	out := make([]Mutation, len(d.log))
	copy(out, d.log)
	return out
}

// SetLogging turns the mutation log on or off. It is on for a new
// document; long-lived documents turn it off. Observers are notified
// either way.
func (d *Document) SetLogging(on bool) {
	d.nolog = !on
	if !on {
		d.log = nil
	}
}

// ResetMutations clears the mutation log.
func (d *Document) ResetMutations() {
	d.log = d.log[:0]
}

// CountMutations returns how many recorded mutations have one of ops, or all
// mutations when ops is empty.
func (d *Document) CountMutations(ops ...MutationOp) int {
	if len(ops) == 0 {
		return len(d.log)
	}
	n := 0
	for _, m := range d.log {
		for _, op := range ops {
			if m.Op == op {
				n++
				break
			}
		}
	}
	return n
}
