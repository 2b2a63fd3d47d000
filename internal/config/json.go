package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// JsonConfig is the on-disk shape of the settings file. Unknown keys are
// ignored so the same file can carry settings for other tools.
type JsonConfig struct {
	Engine   string `json:"engine"`
	Database string `json:"database"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`

	LogLevel  string `json:"log_level"`
	LogFile   string `json:"log_file"`
	ExportDir string `json:"export_dir"`

	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`
}

// parseJson overlays cfg with the values found in the JSON file at path.
// Empty ambient values keep their defaults.
func parseJson(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: config file not found: %s", ErrConfiguration, path)
		}
		return fmt.Errorf("%w: read %s: %w", ErrConfiguration, path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("%w: malformed %s: %w", ErrConfiguration, path, err)
	}

	cfg.Engine = Engine(jc.Engine)
	cfg.Database = jc.Database
	cfg.Host = jc.Host
	cfg.Port = jc.Port
	cfg.User = jc.User
	cfg.Password = jc.Password

	setIfNotEmpty(&cfg.LogLevel, jc.LogLevel)
	setIfNotEmpty(&cfg.LogFile, jc.LogFile)
	setIfNotEmpty(&cfg.ExportDir, jc.ExportDir)
	setIfNotEmpty(&cfg.S3Bucket, jc.S3Bucket)
	setIfNotEmpty(&cfg.S3Region, jc.S3Region)
	setIfNotEmpty(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	setIfNotEmpty(&cfg.S3AccessKey, jc.S3AccessKey)
	setIfNotEmpty(&cfg.S3SecretKey, jc.S3SecretKey)
	return nil
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// SetEngine rewrites the engine key of the settings file at path, keeping
// every other key as it was.
func SetEngine(path string, engine string) error {
	e, err := ParseEngine(engine)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", ErrConfiguration, path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrConfiguration, path, err)
	}

	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: malformed %s: %w", ErrConfiguration, path, err)
	}
	raw["engine"] = string(e)

	out, err := json.MarshalIndent(raw, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrConfiguration, path, err)
	}
	out = append(out, '\n')

	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrConfiguration, path, err)
	}
	return nil
}
