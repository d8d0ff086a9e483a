package session

import (
	"os"
	"strings"
	"time"

	"github.com/donseba/selq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	DefaultStatementCache = 128
	DefaultLogLevel       = "info"
)

// Config describes the database a session connects to.
type Config struct {
	// Driver is one of sqlite, postgres (or pgx) and mysql.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`

	// Dialect overrides the dialect derived from Driver.
	Dialect string `yaml:"dialect"`

	// StatementCache is the number of prepared statements kept open.
	StatementCache int `yaml:"statement_cache"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// LoadConfig reads a YAML config file and fills in defaults.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	return ParseConfig(b)
}

// ParseConfig decodes a YAML config and fills in defaults.
func ParseConfig(b []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	c.setDefaults()

	if _, err := c.SelqDialect(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) setDefaults() {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.DSN == "" && c.Driver == "sqlite" {
		c.DSN = ":memory:"
	}
	if c.StatementCache <= 0 {
		c.StatementCache = DefaultStatementCache
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// SelqDialect returns the dialect statements for this database are
// compiled with.
func (c *Config) SelqDialect() (selq.Dialect, error) {
	name := c.Dialect
	if name == "" {
		name = c.Driver
	}

	d, ok := selq.DialectByName(name)
	if !ok {
		return nil, errors.Errorf("unsupported dialect %q", name)
	}

	return d, nil
}

// NewLogger builds the logger described by LogLevel and LogFormat.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}

	return NewLogger(level, c.LogFormat == "json", os.Stderr), nil
}

// NewLogger returns a console or JSON logger writing to output.
func NewLogger(level zapcore.LevelEnabler, json bool, output zapcore.WriteSyncer) *zap.Logger {
	econf := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		TimeKey:        "ts",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var core zapcore.Core
	if json {
		core = zapcore.NewCore(zapcore.NewJSONEncoder(econf), output, level)
	} else {
		econf.EncodeLevel = zapcore.CapitalLevelEncoder
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(econf), output, level)
	}

	return zap.New(core)
}
