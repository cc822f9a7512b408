// Package config resolves monfs settings from defaults, an optional config
// file, MONFS_* environment variables and command-line flags, in that order
// of increasing precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// EnvPrefix is the prefix of environment overrides, e.g. MONFS_HOST or
// MONFS_HTTP_ADDR.
const EnvPrefix = "MONFS"

// Config holds every setting used by the commands.
type Config struct {
	Backend    string `split_words:"true"`
	Host       string `split_words:"true"`
	DB         string `split_words:"true"`
	Collection string `split_words:"true"`
	// Path is the SQLite database file. Empty means <DB>.db.
	Path string `split_words:"true"`

	// Dir is the tree scanned by migrate; Include selects files in it.
	Dir     string `split_words:"true"`
	Include string `split_words:"true"`

	HTTPAddr string `split_words:"true"`

	LogLevel       string `split_words:"true"`
	LogDevelopment bool   `split_words:"true"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Backend:    BackendMongo,
		Host:       "localhost",
		DB:         "monfs",
		Collection: "objects",
		Dir:        "./",
		Include:    "**/*.cfg",
		HTTPAddr:   ":8080",
		LogLevel:   "info",
	}
}

// SQLitePath returns the database file used by the sqlite backend.
func (c Config) SQLitePath() string {
	if c.Path != "" {
		return c.Path
	}
	return c.DB + ".db"
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate rejects settings no backend can work with.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMongo, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)", c.Backend, BackendMongo, BackendSQLite, BackendMemory)
	}
	if c.DB == "" {
		return fmt.Errorf("db name is empty")
	}
	if c.Collection == "" {
		return fmt.Errorf("collection name is empty")
	}
	if c.Backend == BackendSQLite && !identRe.MatchString(c.Collection) {
		return fmt.Errorf("collection %q is not a valid sqlite table name", c.Collection)
	}
	if c.Backend == BackendMongo && c.Host == "" {
		return fmt.Errorf("host is empty")
	}
	return nil
}

// Load builds the effective configuration. path may be empty; flags may be
// nil. Only flags the user changed override earlier layers.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("read environment: %w", err)
	}
	if flags != nil {
		if err := ApplyFlags(flags, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

// fileConfig is the on-disk shape. Unset keys leave the current value.
type fileConfig struct {
	Backend        *string `hcl:"backend,optional" yaml:"backend" json:"backend"`
	Host           *string `hcl:"host,optional" yaml:"host" json:"host"`
	DB             *string `hcl:"db,optional" yaml:"db" json:"db"`
	Collection     *string `hcl:"collection,optional" yaml:"collection" json:"collection"`
	Path           *string `hcl:"path,optional" yaml:"path" json:"path"`
	Dir            *string `hcl:"dir,optional" yaml:"dir" json:"dir"`
	Include        *string `hcl:"include,optional" yaml:"include" json:"include"`
	HTTPAddr       *string `hcl:"http_addr,optional" yaml:"http_addr" json:"http_addr"`
	LogLevel       *string `hcl:"log_level,optional" yaml:"log_level" json:"log_level"`
	LogDevelopment *bool   `hcl:"log_development,optional" yaml:"log_development" json:"log_development"`
}

// LoadFile merges a config file into cfg. The format follows the
// extension: .hcl, .yaml/.yml, or .json/.jsonc (comments allowed).
func LoadFile(path string, cfg *Config) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hcl":
		err = hclsimple.Decode(filepath.Base(path), src, nil, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(src, &fc)
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(src), &fc)
	default:
		return fmt.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.Backend, fc.Backend)
	setString(&cfg.Host, fc.Host)
	setString(&cfg.DB, fc.DB)
	setString(&cfg.Collection, fc.Collection)
	setString(&cfg.Path, fc.Path)
	setString(&cfg.Dir, fc.Dir)
	setString(&cfg.Include, fc.Include)
	setString(&cfg.HTTPAddr, fc.HTTPAddr)
	setString(&cfg.LogLevel, fc.LogLevel)
	if fc.LogDevelopment != nil {
		cfg.LogDevelopment = *fc.LogDevelopment
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// RegisterFlags adds the shared flags to fs with the built-in defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("backend", d.Backend, "Record store backend: mongo, sqlite or memory")
	fs.String("host", d.Host, "MongoDB host or connection URI")
	fs.String("db", d.DB, "Database name")
	fs.String("collection", d.Collection, "Collection (table) holding the objects")
	fs.String("sqlite-path", "", "SQLite database file (default <db>.db)")
	fs.String("log-level", d.LogLevel, "Log level: debug, info, warn or error")
	fs.Bool("log-dev", false, "Human-readable development logging")
}

// ApplyFlags copies every flag the user set onto cfg.
func ApplyFlags(fs *pflag.FlagSet, cfg *Config) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "backend":
			cfg.Backend = v
		case "host":
			cfg.Host = v
		case "db":
			cfg.DB = v
		case "collection":
			cfg.Collection = v
		case "sqlite-path":
			cfg.Path = v
		case "dir":
			cfg.Dir = v
		case "include":
			cfg.Include = v
		case "addr":
			cfg.HTTPAddr = v
		case "log-level":
			cfg.LogLevel = v
		case "log-dev":
			b, perr := strconv.ParseBool(v)
			if perr != nil && err == nil {
				err = fmt.Errorf("flag --log-dev: %w", perr)
			}
			cfg.LogDevelopment = b
		}
	})
	return err
}
