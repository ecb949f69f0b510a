package remote

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/livedom/pkg/dom/memdom"
	"github.com/vango-dev/livedom/pkg/mount"
	"github.com/vango-dev/livedom/pkg/protocol"
	. "github.com/vango-dev/livedom/pkg/vdom"
)

type hubFixture struct {
	ticker *mount.Ticker
	hub    *Hub
	r      *mount.Renderer
	doc    *memdom.Document
	srv    *httptest.Server
	url    string
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	doc := memdom.New()
	p := NewProvider(doc)
	ticker := mount.NewTicker(2 * time.Millisecond)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(p, WithRunner(ticker.Call), WithLogger(logger), WithPingInterval(time.Second))
	r := mount.New(p,
		mount.WithScheduler(ticker),
		mount.WithRegistry(mount.NewRegistry()),
		mount.WithMiddleware(hub),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ticker.Run(ctx)
	}()
	srv := httptest.NewServer(hub)

	t.Cleanup(func() {
		_ = hub.Close()
		srv.Close()
		_ = ticker.Call(context.Background(), func() error { return r.Close(context.Background()) })
		cancel()
		<-done
	})
	return &hubFixture{
		ticker: ticker,
		hub:    hub,
		r:      r,
		doc:    doc,
		srv:    srv,
		url:    "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

// mount mounts view on the body from the render goroutine.
func (f *hubFixture) mount(t *testing.T, view func() any) *mount.Root {
	t.Helper()
	var root *mount.Root
	err := f.ticker.Call(context.Background(), func() error {
		var err error
		root, err = f.r.Mount(context.Background(), f.doc.Body(), view)
		return err
	})
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	return root
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, memdom.New(), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// waitFor blocks until cond holds on the client's replica.
func waitFor(t *testing.T, c *Client, what string, cond func(r *Replica) bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		ok := false
		c.View(func(r *Replica) { ok = cond(r) })
		if ok {
			return
		}
		select {
		case <-c.Updates():
		case <-c.Done():
			t.Fatalf("connection closed waiting for %s: %v", what, c.Err())
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func buttonText(r *Replica) string {
	b := memdom.Find(r.Document().Body(), memdom.ByID("inc"))
	if b == nil {
		return ""
	}
	return memdom.TextContent(b)
}

func counter(t *testing.T, f *hubFixture) *int {
	count := 0
	var root *mount.Root
	root = f.mount(t, func() any {
		return Div(
			H1("counter"),
			Button(ID("inc"), OnClick(func() {
				count++
				_ = root.Redraw(context.Background())
			}), Textf("%d", count)),
		)
	})
	return &count
}

func TestHubSnapshotOnJoin(t *testing.T) {
	f := newHubFixture(t)
	counter(t, f)

	c := dial(t, f.url)
	waitFor(t, c, "snapshot", func(r *Replica) bool { return buttonText(r) == "0" })

	var got, want string
	c.View(func(r *Replica) { got = memdom.InnerHTML(r.Document().Body()) })
	_ = f.ticker.Call(context.Background(), func() error {
		want = memdom.InnerHTML(f.doc.Body())
		return nil
	})
	if got != want {
		t.Errorf("client body =\n%s\nwant\n%s", got, want)
	}
	if n := f.hub.Clients(); n != 1 {
		t.Errorf("Clients() = %d, want 1", n)
	}
}

func TestHubEventRoundTrip(t *testing.T) {
	f := newHubFixture(t)
	count := counter(t, f)

	c := dial(t, f.url)
	waitFor(t, c, "snapshot", func(r *Replica) bool { return buttonText(r) == "0" })

	var id protocol.NodeID
	c.View(func(r *Replica) {
		id = r.ID(memdom.Find(r.Document().Body(), memdom.ByID("inc")))
		if !r.Wants(id, "click") {
			t.Error("button does not want clicks")
		}
	})
	for i := 0; i < 3; i++ {
		if err := c.Send(id, "click", ""); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	waitFor(t, c, "three clicks", func(r *Replica) bool { return buttonText(r) == "3" })

	_ = f.ticker.Call(context.Background(), func() error {
		if *count != 3 {
			t.Errorf("count = %d, want 3", *count)
		}
		return nil
	})
}

func TestHubBroadcastsAndLateJoin(t *testing.T) {
	f := newHubFixture(t)
	label := "one"
	root := f.mount(t, func() any { return P(ID("label"), label) })

	first := dial(t, f.url)
	text := func(r *Replica) string {
		if n := memdom.Find(r.Document().Body(), memdom.ByID("label")); n != nil {
			return memdom.TextContent(n)
		}
		return ""
	}
	waitFor(t, first, "snapshot", func(r *Replica) bool { return text(r) == "one" })

	_ = f.ticker.Call(context.Background(), func() error {
		label = "two"
		return root.Redraw(context.Background())
	})
	waitFor(t, first, "broadcast", func(r *Replica) bool { return text(r) == "two" })

	second := dial(t, f.url)
	waitFor(t, second, "late snapshot", func(r *Replica) bool { return text(r) == "two" })

	_ = f.ticker.Call(context.Background(), func() error {
		label = "three"
		root.Invalidate()
		return nil
	})
	waitFor(t, first, "frame redraw", func(r *Replica) bool { return text(r) == "three" })
	waitFor(t, second, "frame redraw", func(r *Replica) bool { return text(r) == "three" })

	var s1, s2 uint64
	first.View(func(r *Replica) { s1 = r.Seq() })
	second.View(func(r *Replica) { s2 = r.Seq() })
	if s1 != s2 {
		t.Errorf("clients at seq %d and %d", s1, s2)
	}
}

func TestHubClose(t *testing.T) {
	f := newHubFixture(t)
	f.mount(t, func() any { return P("x") })

	c := dial(t, f.url)
	waitFor(t, c, "snapshot", func(r *Replica) bool { return memdom.TextContent(r.Document().Body()) == "x" })

	if err := f.hub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("client not disconnected")
	}
	if c.Reason() != protocol.CloseServerShutdown {
		t.Errorf("Reason() = %v, want ServerShutdown", c.Reason())
	}
	if n := f.hub.Clients(); n != 0 {
		t.Errorf("Clients() = %d after Close", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := Dial(ctx, f.url, memdom.New(), nil); err == nil {
		t.Error("Dial() after Close succeeded")
	}
}

func TestHubPingPong(t *testing.T) {
	f := newHubFixture(t)
	f.mount(t, func() any { return P("x") })
	c := dial(t, f.url)
	waitFor(t, c, "snapshot", func(r *Replica) bool { return memdom.TextContent(r.Document().Body()) == "x" })

	if err := c.write(protocol.ControlMessage(&protocol.Control{Type: protocol.ControlPing, Timestamp: 1})); err != nil {
		t.Fatal(err)
	}
	// The pong is consumed by the client's read loop; the connection must
	// survive it.
	if err := c.Send(RootID, "noop", ""); err != nil {
		t.Fatal(err)
	}
	select {
	case <-c.Done():
		t.Fatalf("connection closed: %v", c.Err())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	doc := memdom.New()
	p := NewProvider(doc)
	hub := NewHub(p, WithSendBuffer(1), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	c := &client{id: "slow", send: make(chan []byte, 1), done: make(chan struct{})}
	hub.clients[c.id] = c

	el, _ := p.CreateElement(0, "div", "")
	_ = p.InsertBefore(doc.Body(), el, nil)
	hub.Publish()
	if hub.Clients() != 1 {
		t.Fatal("client dropped after one batch")
	}

	_ = p.SetAttribute(el, "id", "x")
	hub.Publish()
	if hub.Clients() != 0 {
		t.Error("client with a full queue was not dropped")
	}
	if c.reason != protocol.CloseSlowConsumer {
		t.Errorf("reason = %v, want SlowConsumer", c.reason)
	}
}
