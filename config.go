package vcr

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/akupila/vcr/internal/logging"
)

// EnvPrefix is the prefix of environment variables read by LoadConfig.
// A double underscore separates nested keys: VCR_LOG__LEVEL sets log.level.
const EnvPrefix = "VCR_"

// Config is the configuration surface of an Engine or Recorder.
type Config struct {
	// MatchRequestsOn lists match attribute names. Entries may themselves
	// be comma separated.
	MatchRequestsOn []string `koanf:"match_requests_on"`
	// HTTPConnectionsAllowed is left nil when unset, which disallows
	// connections.
	HTTPConnectionsAllowed *bool     `koanf:"http_connections_allowed"`
	IgnoreLocalhost        bool      `koanf:"ignore_localhost"`
	Mode                   string    `koanf:"mode"`
	Fixture                string    `koanf:"fixture"`
	Log                    LogConfig `koanf:"log"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// LoadConfig reads configuration from the YAML file at path, if it exists,
// and then from VCR_ environment variables, which take precedence.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	if !k.Exists("mode") {
		_ = k.Set("mode", Auto.String())
	}
	if !k.Exists("log.level") {
		_ = k.Set("log.level", "info")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Attributes returns the configured match attributes, or DefaultAttributes
// when none are configured.
func (c *Config) Attributes() (AttributeSet, error) {
	var names []string
	for _, n := range c.MatchRequestsOn {
		names = append(names, strings.Split(n, ",")...)
	}
	if len(names) == 0 {
		return DefaultAttributes, nil
	}
	set, err := ParseAttributes(names...)
	if err != nil {
		return 0, err
	}
	return set, set.Validate()
}

// Validate reports configuration errors without building anything.
func (c *Config) Validate() error {
	if _, err := c.Attributes(); err != nil {
		return err
	}
	_, err := ParseMode(c.Mode)
	return err
}

// Logger returns a logger for the log section.
func (c *Config) Logger() *slog.Logger {
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(c.Log.Level),
		Format: logging.ParseFormat(c.Log.Format),
	})
}

// Engine builds an engine with the configured attributes and admission
// policy. opts are applied after the configured ones.
func (c *Config) Engine(opts ...Option) (*Engine, error) {
	set, err := c.Attributes()
	if err != nil {
		return nil, err
	}
	e, err := NewEngine(append([]Option{WithAttributes(set), WithLogger(c.Logger())}, opts...)...)
	if err != nil {
		return nil, err
	}
	if c.HTTPConnectionsAllowed != nil {
		e.Admission().SetHTTPConnectionsAllowed(*c.HTTPConnectionsAllowed)
	}
	e.Admission().SetIgnoreLocalhost(c.IgnoreLocalhost)
	return e, nil
}

// Recorder builds a recorder for the configured fixture and mode.
func (c *Config) Recorder(filters ...Filter) (*Recorder, error) {
	mode, err := ParseMode(c.Mode)
	if err != nil {
		return nil, err
	}
	set, err := c.Attributes()
	if err != nil {
		return nil, err
	}
	r := New(c.Fixture, filters...)
	r.Mode = mode
	r.MatchOn = set.Attributes()
	r.IgnoreLocalhost = c.IgnoreLocalhost
	r.Logger = c.Logger()
	return r, nil
}
