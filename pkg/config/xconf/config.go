package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 配置文件格式
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 配置实例，所有方法并发安全。
type Config interface {
	// Client 返回当前生效的 koanf 实例。Reload 会替换实例，不要长期持有。
	Client() *koanf.Koanf

	// Unmarshal 把 path 下的配置解码到 target，path 为空时解码整个配置。
	Unmarshal(path string, target any) error

	// Reload 重新读取配置文件，解析失败时保留旧配置。
	Reload() error

	// Path 配置文件路径，内存数据创建时为空。
	Path() string

	Format() Format

	// Version 每次成功 Reload 后递增，初始为 1。
	Version() uint64
}

// Option 配置选项
type Option func(*options)

type options struct {
	delim string
	tag   string
}

// WithDelim 设置键分隔符，默认 "."。
func WithDelim(delim string) Option {
	return func(o *options) {
		if delim != "" {
			o.delim = delim
		}
	}
}

// WithTag 设置 Unmarshal 使用的结构体标签，默认 "koanf"。
func WithTag(tag string) Option {
	return func(o *options) {
		if tag != "" {
			o.tag = tag
		}
	}
}

type koanfConfig struct {
	mu      sync.RWMutex
	k       *koanf.Koanf
	path    string
	format  Format
	opts    options
	version atomic.Uint64
}

func newOptions(opts []Option) options {
	o := options{delim: ".", tag: "koanf"}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// New 从文件创建配置，格式由扩展名决定。
func New(path string, opts ...Option) (Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	c := &koanfConfig{path: path, format: format, opts: newOptions(opts)}
	k, err := c.read()
	if err != nil {
		return nil, err
	}
	c.k = k
	c.version.Store(1)
	return c, nil
}

// NewFromBytes 从内存数据创建配置。空数据得到空配置。
func NewFromBytes(data []byte, format Format, opts ...Option) (Config, error) {
	if format != FormatYAML && format != FormatJSON {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	c := &koanfConfig{format: format, opts: newOptions(opts)}
	k := koanf.New(c.opts.delim)
	if len(data) > 0 {
		if err := load(k, data, format); err != nil {
			return nil, err
		}
	}
	c.k = k
	c.version.Store(1)
	return c, nil
}

func (c *koanfConfig) read() (*koanf.Koanf, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	k := koanf.New(c.opts.delim)
	if err := load(k, data, c.format); err != nil {
		return nil, err
	}
	return k, nil
}

func (c *koanfConfig) Client() *koanf.Koanf {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k
}

func (c *koanfConfig) Unmarshal(path string, target any) error {
	k := c.Client()
	if err := k.UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: c.opts.tag}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

func (c *koanfConfig) Reload() error {
	if c.path == "" {
		return ErrNotReloadable
	}
	k, err := c.read()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.k = k
	c.mu.Unlock()
	c.version.Add(1)
	return nil
}

func (c *koanfConfig) Path() string {
	return c.path
}

func (c *koanfConfig) Format() Format {
	return c.format
}

func (c *koanfConfig) Version() uint64 {
	return c.version.Load()
}

func detectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, ext)
	}
}

func load(k *koanf.Koanf, data []byte, format Format) error {
	var parser koanf.Parser
	if format == FormatJSON {
		parser = json.Parser()
	} else {
		parser = yaml.Parser()
	}
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return nil
}
