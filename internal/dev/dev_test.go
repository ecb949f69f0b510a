package dev

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/livedom/internal/config"
	"github.com/vango-dev/livedom/internal/publish"
	"github.com/vango-dev/livedom/pkg/dom/memdom"
	"github.com/vango-dev/livedom/pkg/remote"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeEntry(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

type liveServer struct {
	srv     *Server
	base    string
	entry   string
	reloads chan error
}

func startServer(t *testing.T, entry string, watch bool) *liveServer {
	t.Helper()
	return startServerWith(t, entry, watch, nil)
}

func startServerWith(t *testing.T, entry string, watch bool, store publish.Store) *liveServer {
	t.Helper()
	dir := t.TempDir()
	cfg := config.New()
	if err := cfg.SaveTo(filepath.Join(dir, config.ConfigFileName)); err != nil {
		t.Fatal(err)
	}
	cfg.Watch.Enabled = watch
	cfg.Watch.Debounce = "20ms"
	cfg.Serve.FrameInterval = "2ms"
	path := cfg.EntryPath()
	writeEntry(t, path, entry)

	reloads := make(chan error, 16)
	srv := NewServer(ServerOptions{
		Config:   cfg,
		Logger:   quietLogger(),
		Store:    store,
		OnReload: func(err error) { reloads <- err },
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	})

	select {
	case err := <-reloads:
		if err != nil {
			t.Fatalf("initial reload error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("initial reload never ran")
	}
	return &liveServer{srv: srv, base: "http://" + ln.Addr().String(), entry: path, reloads: reloads}
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestServerRoutes(t *testing.T) {
	ls := startServer(t, `{"tag": "h1", "attrs": {"id": "title"}, "children": ["hello"]}`, false)

	code, body := get(t, ls.base+"/")
	if code != http.StatusOK || !strings.Contains(body, `<h1 id="title">hello</h1>`) {
		t.Errorf("GET / = %d\n%s", code, body)
	}
	if !strings.Contains(body, `content="/ws"`) {
		t.Errorf("page does not name the socket path:\n%s", body)
	}

	code, body = get(t, ls.base+"/healthz")
	if code != http.StatusOK || !strings.HasPrefix(body, "ok") {
		t.Errorf("GET /healthz = %d %q", code, body)
	}

	code, body = get(t, ls.base+"/metrics")
	if code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", code)
	}
	for _, name := range []string{"livedom_passes_total", "livedom_nodes_total", "livedom_remote_clients"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics missing %s", name)
		}
	}
}

func TestServerReloadKeepsViewOnError(t *testing.T) {
	ls := startServer(t, `{"tag": "p", "children": ["v1"]}`, false)

	writeEntry(t, ls.entry, `{"tag": "p", "children": [`)
	if err := ls.srv.Reload(context.Background()); err == nil {
		t.Fatal("Reload() of broken JSON succeeded")
	}
	<-ls.reloads

	body, err := ls.srv.Body(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if body != "<p>v1</p>" {
		t.Errorf("body = %q, want the previous view", body)
	}
	code, page := get(t, ls.base+"/")
	if code != http.StatusOK || !strings.Contains(page, "livedom-error") {
		t.Errorf("page does not show the reload error:\n%s", page)
	}
	if code, _ := get(t, ls.base+"/healthz"); code != http.StatusServiceUnavailable {
		t.Errorf("GET /healthz = %d, want 503", code)
	}

	writeEntry(t, ls.entry, `{"tag": "p", "children": ["v2"]}`)
	if err := ls.srv.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if body, _ := ls.srv.Body(context.Background()); body != "<p>v2</p>" {
		t.Errorf("body = %q after fix", body)
	}
}

func TestServerPublishesPage(t *testing.T) {
	out := t.TempDir()
	store, err := publish.NewDirStore(out)
	if err != nil {
		t.Fatal(err)
	}
	ls := startServerWith(t, `{"tag": "p", "children": ["v1"]}`, false, store)
	page := filepath.Join(out, PageKey)

	read := func() string {
		data, err := os.ReadFile(page)
		if err != nil {
			t.Fatalf("published page: %v", err)
		}
		return string(data)
	}
	if got := read(); !strings.Contains(got, "<p>v1</p>") || !strings.HasPrefix(got, "<!DOCTYPE html>") {
		t.Errorf("published page =\n%s", got)
	}

	writeEntry(t, ls.entry, `{"tag": "p", "children": [`)
	_ = ls.srv.Reload(context.Background())
	if got := read(); !strings.Contains(got, "<p>v1</p>") {
		t.Errorf("failed reload replaced the published page:\n%s", got)
	}

	writeEntry(t, ls.entry, `{"tag": "p", "children": ["v2"]}`)
	_ = ls.srv.Reload(context.Background())
	if got := read(); !strings.Contains(got, "<p>v2</p>") {
		t.Errorf("published page after reload =\n%s", got)
	}
}

func TestServerMirrorsToClients(t *testing.T) {
	ls := startServer(t, `{"tag": "ul", "children": [
		{"tag": "li", "attrs": {"key": "a"}, "children": ["a"]},
		{"tag": "li", "attrs": {"key": "b"}, "children": ["b"]}
	]}`, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(ls.base, "http") + "/ws"
	c, err := remote.Dial(ctx, wsURL, memdom.New(), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	waitBody := func(want string) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			var got string
			c.View(func(r *remote.Replica) { got = memdom.InnerHTML(r.Document().Body()) })
			if got == want {
				return
			}
			select {
			case <-c.Updates():
			case <-c.Done():
				t.Fatalf("connection closed: %v", c.Err())
			case <-deadline:
				t.Fatalf("client body = %q, want %q", got, want)
			}
		}
	}
	waitBody("<ul><li>a</li><li>b</li></ul>")

	// The watcher picks up the edit and the reorder reaches the client.
	writeEntry(t, ls.entry, `{"tag": "ul", "children": [
		{"tag": "li", "attrs": {"key": "b"}, "children": ["b"]},
		{"tag": "li", "attrs": {"key": "a"}, "children": ["a"]}
	]}`)
	waitBody("<ul><li>b</li><li>a</li></ul>")
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.json")
	other := filepath.Join(dir, "other.json")
	writeEntry(t, path, "{}")

	w := NewWatcher(WatcherConfig{Files: []string{path}, Debounce: 50 * time.Millisecond, Logger: quietLogger()})
	changes := make(chan Change, 8)
	w.OnChange(func(c Change) { changes <- c })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !w.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	// Give the fsnotify watch a moment to be installed.
	time.Sleep(50 * time.Millisecond)

	writeEntry(t, other, "{}")
	for i := 0; i < 3; i++ {
		writeEntry(t, path, `{"n": 1}`)
	}

	select {
	case c := <-changes:
		abs, _ := filepath.Abs(path)
		if c.Path != abs || c.Removed {
			t.Errorf("change = %+v, want a write to %s", c, abs)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	select {
	case c := <-changes:
		t.Errorf("extra change reported: %+v", c)
	case <-time.After(200 * time.Millisecond):
	}

	w.Stop()
	if err := <-done; err != nil {
		t.Errorf("Start() = %v after Stop", err)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://example.com", "localhost:3000"})
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://example.com", true},
		{"http://localhost:3000", true},
		{"https://evil.test", false},
		{"::bad", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := check(r); got != tt.want {
			t.Errorf("origin %q allowed = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
