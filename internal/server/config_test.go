package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xwebd/pkg/config/xconf"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "127.0.0.1:7878", cfg.Addr)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 1024, cfg.ReadBufferSize)
	assert.Zero(t, cfg.QueueSize)
	require.Len(t, cfg.Routes, 2)
	assert.Equal(t, "GET / HTTP/1.1\r\n", cfg.Routes[0].RequestLine())
	assert.Equal(t, "hello.html", cfg.Routes[0].Page)
	assert.Equal(t, "GET /other HTTP/1.1\r\n", cfg.Routes[1].RequestLine())
	assert.Equal(t, "other.html", cfg.Routes[1].Page)
	assert.Equal(t, 404, cfg.NotFound.Status)
	assert.Equal(t, "error.html", cfg.NotFound.Page)

	cfg.Root = t.TempDir()
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"bad addr", func(c *Config) { c.Addr = "nope" }, "addr"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"too many workers", func(c *Config) { c.Workers = maxWorkers + 1 }, "workers"},
		{"negative queue", func(c *Config) { c.QueueSize = -1 }, "queue_size"},
		{"missing root", func(c *Config) { c.Root = filepath.Join(root, "missing") }, "root"},
		{"root is file", func(c *Config) { c.Root = file }, "not a directory"},
		{"negative timeout", func(c *Config) { c.ReadTimeout = -time.Second }, "negative"},
		{"negative retries", func(c *Config) { c.AcceptRetries = -1 }, "accept_retries"},
		{"negative cache", func(c *Config) { c.Cache.Size = -1 }, "cache"},
		{"negative breaker interval", func(c *Config) { c.Breaker.Interval = -time.Second }, "breaker"},
		{"bad allow", func(c *Config) { c.Allow = []string{"10.0.0.0/40"} }, "allow"},
		{"tiny buffer", func(c *Config) { c.ReadBufferSize = 8 }, "read_buffer_size"},
		{"zero buffer", func(c *Config) { c.ReadBufferSize = 0 }, "read_buffer_size must be positive"},
		{"negative buffer without routes", func(c *Config) {
			c.Routes = nil
			c.ReadBufferSize = -1
		}, "read_buffer_size must be positive"},
		{"zero buffer empty routes", func(c *Config) {
			c.Routes = []Route{}
			c.ReadBufferSize = 0
		}, "read_buffer_size must be positive"},
		{"relative path", func(c *Config) { c.Routes[0].Path = "index" }, "absolute path"},
		{"duplicate route", func(c *Config) { c.Routes[1] = c.Routes[0] }, "duplicate"},
		{"bad status", func(c *Config) { c.Routes[0].Status = 42 }, "status"},
		{"absolute page", func(c *Config) { c.NotFound.Page = "/etc/passwd" }, "not_found"},
		{"empty page", func(c *Config) { c.Routes[1].Page = "" }, "page"},
		{"rate limit without window", func(c *Config) { c.RateLimit.Limit = 10 }, "rate_limit"},
		{"sample rate", func(c *Config) { c.Log.SampleRate = 1.5 }, "sample_rate"},
		{"negative drop every", func(c *Config) { c.Log.DropEvery = -1 }, "drop_every"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Root = root
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_ValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = t.TempDir()
	cfg.Workers = 0
	cfg.QueueSize = -1

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "queue_size")
}

func TestConfig_FromYAML(t *testing.T) {
	root := t.TempDir()
	data := []byte(`
addr: 0.0.0.0:8080
workers: 8
queue_size: 100
root: ` + root + `
read_timeout: 2s
allow:
  - 10.0.0.0/8
  - 127.0.0.1
cache:
  size: 16
  ttl: 1m
breaker:
  failures: 3
  timeout: 10s
  interval: 1m
  max_requests: 2
routes:
  - name: index
    method: GET
    path: /
    status: 200
    page: index.html
log:
  level: debug
  file: /var/log/xwebd.log
  rotation:
    max_size_mb: 50
    compress: true
  drop_every: 100
  add_source: true
rate_limit:
  limit: 20
  window: 1s
max_open_files: 65536
`)
	c, err := xconf.NewFromBytes(data, xconf.FormatYAML)
	require.NoError(t, err)

	cfg := DefaultConfig()
	require.NoError(t, c.Unmarshal("", &cfg))

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 100, cfg.QueueSize)
	assert.Equal(t, 2*time.Second, cfg.ReadTimeout)
	assert.Equal(t, DefaultWriteTimeout, cfg.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.Allow)
	assert.Equal(t, 16, cfg.Cache.Size)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, uint32(3), cfg.Breaker.Failures)
	assert.Equal(t, time.Minute, cfg.Breaker.Interval)
	assert.Equal(t, uint32(2), cfg.Breaker.MaxRequests)
	require.Len(t, cfg.Routes, 1)
	assert.Equal(t, "index.html", cfg.Routes[0].Page)
	assert.Equal(t, "error.html", cfg.NotFound.Page)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Log.Rotation.MaxSizeMB)
	assert.True(t, cfg.Log.Rotation.Compress)
	assert.Equal(t, 1.0, cfg.Log.SampleRate, "unset keys keep defaults")
	assert.Equal(t, 100, cfg.Log.DropEvery)
	assert.True(t, cfg.Log.AddSource)
	assert.Equal(t, 20, cfg.RateLimit.Limit)
	assert.Equal(t, time.Second, cfg.RateLimit.Window)
	assert.Equal(t, uint64(65536), cfg.MaxOpenFiles)
	assert.NoError(t, cfg.Validate())
}
