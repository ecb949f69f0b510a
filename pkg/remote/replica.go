package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/net/html"

	"github.com/vango-dev/livedom/pkg/dom"
	"github.com/vango-dev/livedom/pkg/dom/memdom"
	"github.com/vango-dev/livedom/pkg/protocol"
)

// ErrUnknownNode is returned when a patch addresses an id the replica has
// never seen.
var ErrUnknownNode = errors.New("remote: unknown node")

// ErrOutOfOrder is returned when a batch does not follow the last one.
var ErrOutOfOrder = errors.New("remote: batch out of order")

// Replica applies patch batches to a local document, reproducing the body
// of the document a Provider wraps. It is the reference client.
type Replica struct {
	doc   *memdom.Document
	nodes map[protocol.NodeID]*html.Node
	seq   uint64
}

// NewReplica returns a replica rendering into doc's body.
func NewReplica(doc *memdom.Document) *Replica {
	r := &Replica{doc: doc}
	r.reset()
	return r
}

// Document returns the local document.
func (r *Replica) Document() *memdom.Document { return r.doc }

// Seq returns the sequence number of the last applied batch.
func (r *Replica) Seq() uint64 { return r.seq }

// Node returns the local node for id, or nil.
func (r *Replica) Node(id protocol.NodeID) *html.Node { return r.nodes[id] }

// ID returns the id of a local node, or 0.
func (r *Replica) ID(n *html.Node) protocol.NodeID {
	for id, m := range r.nodes {
		if m == n {
			return id
		}
	}
	return 0
}

func (r *Replica) reset() {
	body := r.doc.Body()
	for c := body.FirstChild; c != nil; c = body.FirstChild {
		r.doc.RemoveChild(body, c)
		r.doc.Forget(c)
	}
	r.nodes = map[protocol.NodeID]*html.Node{RootID: body}
}

// Apply applies one batch. A snapshot replaces the body content and
// resynchronizes the sequence; any other batch must directly follow the
// last one.
func (r *Replica) Apply(pf *protocol.PatchesFrame, flags protocol.FrameFlags) error {
	if flags.Has(protocol.FlagSnapshot) {
		r.reset()
	} else if pf.Seq != r.seq+1 {
		return fmt.Errorf("%w: got %d after %d", ErrOutOfOrder, pf.Seq, r.seq)
	}
	for i := range pf.Patches {
		if err := r.apply(&pf.Patches[i]); err != nil {
			return fmt.Errorf("patch %d (%s): %w", i, pf.Patches[i].String(), err)
		}
	}
	r.seq = pf.Seq
	return nil
}

func (r *Replica) lookup(id protocol.NodeID) (*html.Node, error) {
	n := r.nodes[id]
	if n == nil {
		return nil, fmt.Errorf("%w: #%d", ErrUnknownNode, id)
	}
	return n, nil
}

func (r *Replica) apply(p *protocol.Patch) error {
	switch p.Op {
	case protocol.PatchCreateElement:
		ns := dom.NamespaceHTML
		if p.NS != "" {
			var ok bool
			if ns, ok = dom.ParseNamespace(p.NS); !ok {
				return fmt.Errorf("unknown namespace %q", p.NS)
			}
		}
		el, err := r.doc.CreateElement(ns, p.Tag, p.Value)
		if err != nil {
			return err
		}
		r.nodes[p.Node] = asNode(el)
		return nil

	case protocol.PatchCreateText:
		r.nodes[p.Node] = asNode(r.doc.CreateTextNode(p.Value))
		return nil

	case protocol.PatchFragment:
		ctx, err := r.lookup(p.Node)
		if err != nil {
			return err
		}
		nodes, err := r.doc.ParseFragment(ctx, p.Value)
		if err != nil {
			return err
		}
		if len(nodes) != len(p.Nodes) {
			return fmt.Errorf("fragment parsed to %d nodes, want %d", len(nodes), len(p.Nodes))
		}
		for i, n := range nodes {
			r.nodes[p.Nodes[i]] = asNode(n)
		}
		return nil
	}

	n, err := r.lookup(p.Node)
	if err != nil {
		return err
	}
	switch p.Op {
	case protocol.PatchSetAttr:
		return r.doc.SetAttribute(n, p.Key, p.Value)
	case protocol.PatchRemoveAttr:
		r.doc.RemoveAttribute(n, p.Key)
	case protocol.PatchSetProp:
		var v any
		if err := json.Unmarshal([]byte(p.Value), &v); err != nil {
			return err
		}
		r.doc.SetProperty(n, p.Key, v)
	case protocol.PatchRemoveProp:
		r.doc.RemoveProperty(n, p.Key)
	case protocol.PatchSetHandler:
		// The handler lives on the server; the replica only records that
		// the event is wanted.
		r.doc.SetProperty(n, "on"+p.Key, true)
	case protocol.PatchRemoveHandler:
		r.doc.RemoveProperty(n, "on"+p.Key)
	case protocol.PatchSetStyle:
		r.doc.SetStyle(n, p.Key, p.Value)
	case protocol.PatchRemoveStyle:
		r.doc.RemoveStyle(n, p.Key)
	case protocol.PatchInsert:
		parent, err := r.lookup(p.Parent)
		if err != nil {
			return err
		}
		var ref *html.Node
		if p.Ref != 0 {
			if ref, err = r.lookup(p.Ref); err != nil {
				return err
			}
		}
		if ref == nil {
			return r.doc.InsertBefore(parent, n, nil)
		}
		return r.doc.InsertBefore(parent, n, ref)
	case protocol.PatchRemove:
		parent, err := r.lookup(p.Parent)
		if err != nil {
			return err
		}
		r.doc.RemoveChild(parent, n)
		r.drop(n)
	default:
		return fmt.Errorf("unexpected op %s", p.Op)
	}
	return nil
}

func (r *Replica) drop(n *html.Node) {
	r.doc.Forget(n)
	gone := make(map[*html.Node]bool)
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		gone[c] = true
		for k := c.FirstChild; k != nil; k = k.NextSibling {
			walk(k)
		}
	}
	walk(n)
	for id, m := range r.nodes {
		if gone[m] {
			delete(r.nodes, id)
		}
	}
}

// Wants reports whether the server asked for events of type on node id.
func (r *Replica) Wants(id protocol.NodeID, event string) bool {
	n := r.nodes[id]
	return n != nil && r.doc.Property(n, "on"+event) != nil
}

// Client is a websocket connection to a Hub that keeps a Replica current.
type Client struct {
	conn    *websocket.Conn
	replica *Replica
	logger  *slog.Logger

	mu      sync.Mutex
	writeMu sync.Mutex
	seq     uint64
	updates chan uint64
	closed  chan struct{}
	reason  protocol.CloseReason
	err     error
}

// Dial connects to a Hub at url (ws:// or wss://) and mirrors it into doc.
func Dial(ctx context.Context, url string, doc *memdom.Document, header http.Header) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", url, err)
	}
	c := &Client{
		conn:    conn,
		replica: NewReplica(doc),
		logger:  slog.Default(),
		updates: make(chan uint64, 16),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Updates delivers the sequence number of every applied batch. Slow
// readers miss intermediate values, never the latest one's effect.
func (c *Client) Updates() <-chan uint64 { return c.updates }

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.closed }

// Err returns why the connection ended, once Done is closed.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Reason returns the close reason the server sent, if any.
func (c *Client) Reason() protocol.CloseReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// View runs fn with the replica while no batch is being applied.
func (c *Client) View(fn func(r *Replica)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.replica)
}

// Send delivers an event on the node with the given id.
func (c *Client) Send(node protocol.NodeID, event, value string) error {
	c.mu.Lock()
	c.seq++
	ev := &protocol.Event{Seq: c.seq, Node: node, Type: event, Value: value}
	c.mu.Unlock()
	return c.write(protocol.EventMessage(ev))
}

// Close sends a close control frame and closes the connection.
func (c *Client) Close() error {
	_ = c.write(protocol.ControlMessage(&protocol.Control{Type: protocol.ControlClose, Reason: protocol.CloseNormal}))
	return c.conn.Close()
}

func (c *Client) write(msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, msg)
}

func (c *Client) readLoop() {
	defer close(c.closed)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.finish(err)
			return
		}
		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			c.finish(err)
			return
		}
		switch frame.Type {
		case protocol.FramePatches:
			pf, err := protocol.DecodePatches(frame.Payload)
			if err != nil {
				c.finish(err)
				return
			}
			c.mu.Lock()
			err = c.replica.Apply(pf, frame.Flags)
			c.mu.Unlock()
			if err != nil {
				c.finish(err)
				return
			}
			c.notify(pf.Seq)
		case protocol.FrameControl:
			ctl, err := protocol.DecodeControl(frame.Payload)
			if err != nil {
				c.finish(err)
				return
			}
			switch ctl.Type {
			case protocol.ControlPing:
				_ = c.write(protocol.ControlMessage(&protocol.Control{Type: protocol.ControlPong, Timestamp: ctl.Timestamp}))
			case protocol.ControlClose:
				c.mu.Lock()
				c.reason = ctl.Reason
				c.mu.Unlock()
			}
		default:
			c.logger.Warn("unexpected frame type", "type", frame.Type)
		}
	}
}

func (c *Client) notify(seq uint64) {
	for {
		select {
		case c.updates <- seq:
			return
		default:
		}
		select {
		case <-c.updates:
		default:
		}
	}
}

func (c *Client) finish(err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		err = nil
	}
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	c.conn.Close()
}
