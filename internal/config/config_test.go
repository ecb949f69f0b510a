package config

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/livedom/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Serve.Port != DefaultPort {
		t.Errorf("Serve.Port = %d, want %d", cfg.Serve.Port, DefaultPort)
	}
	if cfg.Serve.Host != DefaultHost {
		t.Errorf("Serve.Host = %q, want %q", cfg.Serve.Host, DefaultHost)
	}
	if cfg.Entry != DefaultEntry {
		t.Errorf("Entry = %q, want %q", cfg.Entry, DefaultEntry)
	}
	if !cfg.Watch.Enabled || !cfg.Metrics.Enabled || cfg.Tracing.Enabled {
		t.Errorf("unexpected feature defaults: %+v %+v %+v", cfg.Watch, cfg.Metrics, cfg.Tracing)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E102" {
		t.Fatalf("Load(missing) error = %v, want E102", err)
	}

	configJSON := `{
  "entry": "views/main.json",
  "serve": {
    "port": 8080,
    "host": "0.0.0.0",
    "frameInterval": "8ms"
  },
  "watch": {"enabled": false},
  "log": {"level": "debug", "format": "json"},
  "tracing": {"enabled": true}
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Serve.Port != 8080 {
		t.Errorf("Serve.Port = %d, want 8080", cfg.Serve.Port)
	}
	if cfg.Address() != "0.0.0.0:8080" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	if cfg.FrameInterval() != 8*time.Millisecond {
		t.Errorf("FrameInterval() = %v", cfg.FrameInterval())
	}
	if cfg.PingInterval() != 30*time.Second {
		t.Errorf("PingInterval() = %v, want default", cfg.PingInterval())
	}
	if cfg.Watch.Enabled {
		t.Error("Watch.Enabled should be false")
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics = %+v, want defaults", cfg.Metrics)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.TracerName != DefaultNamespace {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.Serve.SocketPath != DefaultSocketPath {
		t.Errorf("Serve.SocketPath = %q", cfg.Serve.SocketPath)
	}
	if want := filepath.Join(tmpDir, "views", "main.json"); cfg.EntryPath() != want {
		t.Errorf("EntryPath() = %q, want %q", cfg.EntryPath(), want)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		json string
		code string
	}{
		{"invalid json", `{"serve": `, "E100"},
		{"unknown field", `{"serv": {}}`, "E100"},
		{"bad port", `{"serve": {"port": 70000}}`, "E101"},
		{"bad duration", `{"serve": {"pingInterval": "soon"}}`, "E101"},
		{"negative duration", `{"watch": {"debounce": "-1s"}}`, "E101"},
		{"relative socket path", `{"serve": {"socketPath": "ws"}}`, "E101"},
		{"bad level", `{"log": {"level": "loud"}}`, "E101"},
		{"bad format", `{"log": {"format": "xml"}}`, "E101"},
		{"publish without bucket", `{"publish": {"target": "s3:///prefix"}}`, "E101"},
		{"publish scheme", `{"publish": {"target": "ftp://host/dir"}}`, "E101"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ConfigFileName)
			if err := os.WriteFile(path, []byte(tt.json), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFile(path)
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("LoadFile() error = %v, want *errors.Error", err)
			}
			if e.Code != tt.code {
				t.Errorf("code = %s, want %s (%v)", e.Code, tt.code, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	if err := cfg.Save(); err == nil {
		t.Error("Save() without a path succeeded")
	}
	cfg.Serve.Port = 9000
	cfg.Serve.AllowedOrigins = []string{"https://example.com"}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("saved file does not end with a newline")
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if loaded.Serve.Port != 9000 || len(loaded.Serve.AllowedOrigins) != 1 {
		t.Errorf("loaded Serve = %+v", loaded.Serve)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := FindProjectRoot(nested); err == nil {
		t.Error("FindProjectRoot() without a config succeeded")
	}

	if err := New().SaveTo(filepath.Join(root, ConfigFileName)); err != nil {
		t.Fatal(err)
	}
	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	want, _ := filepath.EvalSymlinks(root)
	if g, _ := filepath.EvalSymlinks(got); g != want {
		t.Errorf("FindProjectRoot() = %q, want %q", got, root)
	}
	if !Exists(root) || Exists(nested) {
		t.Error("Exists() disagrees with the file system")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.name, got, err, tt.want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("ParseLevel(verbose) succeeded")
	}
}

func TestLogger(t *testing.T) {
	var b strings.Builder
	cfg := New()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"
	logger := cfg.Logger(&b)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	out := b.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":1`) {
		t.Errorf("json output = %s", out)
	}
}
