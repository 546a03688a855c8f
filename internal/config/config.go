// Package config loads graphledger settings from an optional YAML file and
// GRAPHLEDGER_* environment variables. Environment values win over the file,
// and the file wins over defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Sequence backends.
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
)

// Config is the full runtime configuration.
type Config struct {
	Neo4j    Neo4j    `yaml:"neo4j"`
	Sequence Sequence `yaml:"sequence"`
	Journal  Journal  `yaml:"journal"`
	// Timeout bounds one request. Zero disables it.
	Timeout time.Duration `yaml:"timeout"`
}

// Neo4j holds the graph store connection.
type Neo4j struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Sequence selects the change log number provider.
type Sequence struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Journal locates the sqlite request journal. An empty path disables it.
type Journal struct {
	Path string `yaml:"path"`
}

// Default returns the settings used when nothing else is given.
func Default() *Config {
	return &Config{
		Neo4j: Neo4j{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Database: "neo4j",
		},
		Sequence: Sequence{
			Backend: BackendMemory,
			Path:    "./data/sequence.db",
		},
		Journal: Journal{
			Path: "./data/journal.db",
		},
		Timeout: 30 * time.Second,
	}
}

// Load reads the file at path over the defaults, then applies the
// environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from GRAPHLEDGER_* variables. Unset or empty
// variables leave the field alone; a timeout that does not parse is an
// error rather than a silent fallback.
func (c *Config) ApplyEnv() error {
	c.Neo4j.URI = getEnv("GRAPHLEDGER_NEO4J_URI", c.Neo4j.URI)
	c.Neo4j.Username = getEnv("GRAPHLEDGER_NEO4J_USERNAME", c.Neo4j.Username)
	c.Neo4j.Password = getEnv("GRAPHLEDGER_NEO4J_PASSWORD", c.Neo4j.Password)
	c.Neo4j.Database = getEnv("GRAPHLEDGER_NEO4J_DATABASE", c.Neo4j.Database)
	c.Sequence.Backend = getEnv("GRAPHLEDGER_SEQUENCE_BACKEND", c.Sequence.Backend)
	c.Sequence.Path = getEnv("GRAPHLEDGER_SEQUENCE_PATH", c.Sequence.Path)
	c.Journal.Path = getEnv("GRAPHLEDGER_JOURNAL_PATH", c.Journal.Path)

	timeout, err := getEnvDuration("GRAPHLEDGER_TIMEOUT", c.Timeout)
	if err != nil {
		return err
	}
	c.Timeout = timeout
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j uri is required")
	}
	switch c.Sequence.Backend {
	case BackendMemory:
	case BackendBolt:
		if c.Sequence.Path == "" {
			return fmt.Errorf("sequence backend %q needs a path", BackendBolt)
		}
	default:
		return fmt.Errorf("unknown sequence backend %q (want %s or %s)", c.Sequence.Backend, BackendMemory, BackendBolt)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}
	return nil
}

// String omits the password so the result is safe to log.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Neo4j: %s (db %s, user %s), Sequence: %s %s, Journal: %s, Timeout: %s}",
		c.Neo4j.URI, c.Neo4j.Database, c.Neo4j.Username,
		c.Sequence.Backend, c.Sequence.Path,
		c.Journal.Path, c.Timeout,
	)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvDuration accepts a Go duration or a whole number of seconds.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d, nil
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, fmt.Errorf("%s: invalid duration %q", key, val)
}
