package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/livedom/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "livedom.json"

	// DefaultPort is the default serve port.
	DefaultPort = 3000

	// DefaultHost is the default serve host.
	DefaultHost = "localhost"

	// DefaultEntry is the default description file.
	DefaultEntry = "app.json"

	// DefaultSocketPath is where the websocket endpoint is mounted.
	DefaultSocketPath = "/ws"

	// DefaultMetricsPath is where Prometheus metrics are exposed.
	DefaultMetricsPath = "/metrics"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "livedom"
)

// Default durations, in the string form livedom.json uses.
const (
	DefaultFrameInterval = "16ms"
	DefaultPingInterval  = "30s"
	DefaultDebounce      = "100ms"
)

// Config represents the complete livedom.json configuration.
type Config struct {
	// Entry is the description file served and rendered by default.
	Entry string `json:"entry,omitempty"`

	// Serve contains live server configuration.
	Serve ServeConfig `json:"serve,omitempty"`

	// Watch contains file watching configuration.
	Watch WatchConfig `json:"watch,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `json:"tracing,omitempty"`

	// Publish contains snapshot publishing configuration.
	Publish PublishConfig `json:"publish,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServeConfig contains live server settings.
type ServeConfig struct {
	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// SocketPath is the websocket endpoint path.
	SocketPath string `json:"socketPath,omitempty"`

	// FrameInterval is the render frame interval (e.g. "16ms").
	FrameInterval string `json:"frameInterval,omitempty"`

	// PingInterval is the websocket heartbeat interval (e.g. "30s").
	PingInterval string `json:"pingInterval,omitempty"`

	// SendBuffer is the number of frames queued per client before it is
	// dropped as too slow.
	SendBuffer int `json:"sendBuffer,omitempty"`

	// AllowedOrigins lists origins allowed to open the websocket. Empty
	// means same-origin only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// WatchConfig contains file watching settings.
type WatchConfig struct {
	// Enabled remounts the entry when it changes on disk.
	Enabled bool `json:"enabled,omitempty"`

	// Debounce is how long to wait for writes to settle (e.g. "100ms").
	Debounce string `json:"debounce,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled installs the metrics middleware and endpoint.
	Enabled bool `json:"enabled,omitempty"`

	// Path is the metrics endpoint path.
	Path string `json:"path,omitempty"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled installs the tracing middleware.
	Enabled bool `json:"enabled,omitempty"`

	// TracerName names the tracer.
	TracerName string `json:"tracerName,omitempty"`
}

// PublishConfig contains snapshot publishing settings. Every successful
// render writes the page to Target.
type PublishConfig struct {
	// Target is "s3://bucket/prefix", "file:///dir" or a directory path.
	// Empty disables publishing.
	Target string `json:"target,omitempty"`

	// Region is the S3 region. The default is AWS_REGION.
	Region string `json:"region,omitempty"`

	// Endpoint overrides the S3 endpoint, for S3-compatible stores.
	Endpoint string `json:"endpoint,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Entry: DefaultEntry,
		Serve: ServeConfig{
			Port:          DefaultPort,
			Host:          DefaultHost,
			SocketPath:    DefaultSocketPath,
			FrameInterval: DefaultFrameInterval,
			PingInterval:  DefaultPingInterval,
			SendBuffer:    64,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: DefaultDebounce,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      DefaultMetricsPath,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: DefaultNamespace,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for livedom.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E102").
				WithDetail("No livedom.json found in " + filepath.Dir(path)).
				WithSuggestion("Run 'livedom init' to write a default configuration").
				Wrap(err)
		}
		return nil, errors.New("E100").Wrap(err)
	}

	cfg := New()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.New("E100").
			WithDetail("Failed to parse livedom.json: " + err.Error()).
			WithSuggestion("Check that livedom.json is valid JSON and uses known fields").
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E100").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E100").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Entry == "" {
		c.Entry = DefaultEntry
	}

	if c.Serve.Port == 0 {
		c.Serve.Port = DefaultPort
	}
	if c.Serve.Host == "" {
		c.Serve.Host = DefaultHost
	}
	if c.Serve.SocketPath == "" {
		c.Serve.SocketPath = DefaultSocketPath
	}
	if c.Serve.FrameInterval == "" {
		c.Serve.FrameInterval = DefaultFrameInterval
	}
	if c.Serve.PingInterval == "" {
		c.Serve.PingInterval = DefaultPingInterval
	}
	if c.Serve.SendBuffer == 0 {
		c.Serve.SendBuffer = 64
	}

	if c.Watch.Debounce == "" {
		c.Watch.Debounce = DefaultDebounce
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultNamespace
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New("E101").WithDetail(fmt.Sprintf(format, args...))
	}

	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return invalid("serve.port must be between 0 and 65535, got %d", c.Serve.Port)
	}
	if c.Serve.SendBuffer < 0 {
		return invalid("serve.sendBuffer must not be negative, got %d", c.Serve.SendBuffer)
	}
	for field, path := range map[string]string{
		"serve.socketPath": c.Serve.SocketPath,
		"metrics.path":     c.Metrics.Path,
	} {
		if path != "" && !strings.HasPrefix(path, "/") {
			return invalid("%s must start with /, got %q", field, path)
		}
	}
	for field, value := range map[string]string{
		"serve.frameInterval": c.Serve.FrameInterval,
		"serve.pingInterval":  c.Serve.PingInterval,
		"watch.debounce":      c.Watch.Debounce,
	} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return invalid("%s must be a positive duration, got %q", field, value)
		}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return invalid("log.format must be text or json, got %q", c.Log.Format)
	}
	if t := c.Publish.Target; strings.Contains(t, "://") {
		scheme, rest, _ := strings.Cut(t, "://")
		switch {
		case scheme == "s3" && (rest == "" || rest[0] == '/'):
			return invalid("publish.target needs a bucket, got %q", t)
		case scheme != "s3" && scheme != "file":
			return invalid("publish.target scheme must be s3 or file, got %q", scheme)
		}
	}
	return nil
}

// Address returns the address string for the live server.
func (c *Config) Address() string {
	return c.Serve.Host + ":" + strconv.Itoa(c.Serve.Port)
}

// URL returns the full URL for the live server.
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// EntryPath returns the absolute path to the entry description file.
func (c *Config) EntryPath() string {
	if filepath.IsAbs(c.Entry) {
		return c.Entry
	}
	return filepath.Join(c.Dir(), c.Entry)
}

// FrameInterval returns the parsed frame interval.
func (c *Config) FrameInterval() time.Duration {
	return duration(c.Serve.FrameInterval, DefaultFrameInterval)
}

// PingInterval returns the parsed heartbeat interval.
func (c *Config) PingInterval() time.Duration {
	return duration(c.Serve.PingInterval, DefaultPingInterval)
}

// Debounce returns the parsed watch debounce.
func (c *Config) Debounce() time.Duration {
	return duration(c.Watch.Debounce, DefaultDebounce)
}

func duration(value, fallback string) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("unknown level %q", name)
	}
	return level, nil
}

// Logger builds the logger described by the log section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing livedom.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E102").
				WithDetail("No livedom.json found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'livedom init' to write a default configuration")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or its nearest parent holding a livedom.json. Without one it returns the
// defaults rooted at the working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		cfg := New()
		cfg.configPath = filepath.Join(wd, ConfigFileName)
		return cfg, nil
	}
	return Load(root)
}
