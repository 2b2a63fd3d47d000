package config

import (
	"os"

	"github.com/spf13/pflag"
)

// Flags carries the command-line overrides shared by every command.
// Empty values leave the file settings untouched.
type Flags struct {
	ConfigPath  string
	LogLevel    string
	AskPassword bool

	// Password is filled in by the caller after prompting, before loading.
	Password string
}

// Register binds the flags to fs.
//
//	-c, --config string    settings file (default $BLOBVAULT_CONFIG or db_param.json)
//	    --log-level string debug, info, warn or error
//	    --ask-password     read the database password from the terminal
func (f *Flags) Register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "path to the settings file")
	fs.StringVar(&f.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.BoolVar(&f.AskPassword, "ask-password", false, "prompt for the database password")
}

// Path returns the settings file to read: the flag value, then the
// environment, then DefaultFileName.
func (f *Flags) Path() string {
	if f.ConfigPath != "" {
		return f.ConfigPath
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultFileName
}

// LoadWithFlags loads the settings file selected by f and applies the
// overrides before validation.
func LoadWithFlags(f *Flags) (*Config, error) {
	return load(f.Path(), f)
}

func (f *Flags) apply(cfg *Config) {
	setIfNotEmpty(&cfg.LogLevel, f.LogLevel)
	setIfNotEmpty(&cfg.Password, f.Password)
}
