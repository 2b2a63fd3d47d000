// Package config handles configuration for blobvault: the database engine
// selector, its connection parameters and the ambient settings (logging,
// export destinations).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// ErrConfiguration is returned when the settings source is missing,
// malformed, or describes an unusable engine.
var ErrConfiguration = errors.New("configuration error")

// DefaultFileName is the settings file looked up when no path is given.
const DefaultFileName = "db_param.json"

// EnvConfigPath names the environment variable that may point at the
// settings file.
const EnvConfigPath = "BLOBVAULT_CONFIG"

// Engine selects the database backend.
type Engine string

const (
	EngineSQLite   Engine = "sqlite"
	EngineMySQL    Engine = "mysql"
	EnginePostgres Engine = "postgres"
)

// Engines lists every supported engine.
var Engines = []Engine{EngineSQLite, EngineMySQL, EnginePostgres}

// ParseEngine maps a case-insensitive engine name to an Engine.
func ParseEngine(s string) (Engine, error) {
	e := Engine(strings.ToLower(strings.TrimSpace(s)))
	switch e {
	case EngineSQLite, EngineMySQL, EnginePostgres:
		return e, nil
	case "":
		return "", fmt.Errorf("%w: engine is required", ErrConfiguration)
	}
	return "", fmt.Errorf("%w: unsupported engine %q (valid options: sqlite, mysql, postgres)", ErrConfiguration, s)
}

// Embedded reports whether the engine runs in-process on a single file.
func (e Engine) Embedded() bool {
	return e == EngineSQLite
}

// Config holds runtime settings.
//
// Fields:
//   - Engine: selected backend.
//   - Database: file path for sqlite, database name for mysql/postgres.
//   - Host / Port / User / Password: client/server connection parameters.
//   - LogLevel / LogFile: logging output; an empty LogFile logs to stderr.
//   - ExportDir: default directory for exported files.
//   - S3*: object storage used by `export --s3`.
type Config struct {
	Engine   Engine
	Database string
	Host     string
	Port     int
	User     string
	Password string

	LogLevel string
	LogFile  string

	ExportDir string

	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
}

// LoadDefaults populates the ambient fields with sensible defaults.
// Connection parameters have no defaults apart from the engine ports,
// which are filled in by Validate.
func (c *Config) LoadDefaults() {
	c.LogLevel = "info"
	c.ExportDir = "."
	c.S3Region = "us-east-1"
}

// Load builds a Config by applying defaults and overlaying the JSON file
// at path, then validates the result. Relative sqlite paths resolve
// against the directory holding the file.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

func load(path string, f *Flags) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, path); err != nil {
		return nil, err
	}
	if f != nil {
		f.apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Validate checks that every field required by the selected engine is set
// and fills in default ports.
func (c *Config) Validate() error {
	e, err := ParseEngine(string(c.Engine))
	if err != nil {
		return err
	}
	c.Engine = e

	if c.Database == "" {
		if e.Embedded() {
			return fmt.Errorf("%w: sqlite requires 'database' (file name/path)", ErrConfiguration)
		}
		return fmt.Errorf("%w: %s requires 'database'", ErrConfiguration, e)
	}
	if e.Embedded() {
		return nil
	}

	var missing []string
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.User == "" {
		missing = append(missing, "user")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required %s fields: %s", ErrConfiguration, e, strings.Join(missing, ", "))
	}

	if c.Port == 0 {
		c.Port = defaultPort(e)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrConfiguration, c.Port)
	}
	return nil
}

func defaultPort(e Engine) int {
	if e == EnginePostgres {
		return 5432
	}
	return 3306
}

func (c *Config) resolvePaths(base string) {
	if !c.Engine.Embedded() || c.Database == ":memory:" || filepath.IsAbs(c.Database) {
		return
	}
	c.Database = filepath.Join(base, c.Database)
}

// String renders the config without credentials.
func (c Config) String() string {
	if c.Engine.Embedded() {
		return fmt.Sprintf("%s:%s", c.Engine, c.Database)
	}
	return fmt.Sprintf("%s://%s:%s@%s:%d/%s", c.Engine, c.User, redacted(c.Password), c.Host, c.Port, c.Database)
}

// LogValue implements slog.LogValuer; credentials never reach log output.
func (c Config) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("engine", string(c.Engine)),
		slog.String("database", c.Database),
	}
	if !c.Engine.Embedded() {
		attrs = append(attrs,
			slog.String("host", c.Host),
			slog.Int("port", c.Port),
			slog.String("user", c.User),
		)
	}
	return slog.GroupValue(attrs...)
}

func redacted(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
