// pgsource: PostgreSQL bulk-read source for heterogeneous data federation
// SPDX-License-Identifier: MIT
//
// CLI configuration loading and validation.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// OutputFormat selects how extracted rows are rendered to stdout.
type OutputFormat string

const (
	OutputCSV  OutputFormat = "csv"
	OutputJSON OutputFormat = "json"
)

// Config carries everything the pgxtract CLI needs to build a Source, run
// it, and render its output.
type Config struct {
	DSN                   string       `mapstructure:"dsn"`
	Query                 string       `mapstructure:"query"`
	Partitions            []string     `mapstructure:"partitions"`
	Protocol              string       `mapstructure:"protocol"`
	NConn                 int          `mapstructure:"nconn"`
	ConnectTimeoutSeconds int          `mapstructure:"connect_timeout_seconds"`
	StatementTimeoutMs    int          `mapstructure:"statement_timeout_ms"`
	AppName               string       `mapstructure:"app_name"`
	BufferSize            int          `mapstructure:"buffer_size"`
	LogLevel              string       `mapstructure:"log_level"`
	Output                OutputFormat `mapstructure:"output"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("dsn", "")
	v.SetDefault("query", "")
	v.SetDefault("partitions", []string{})
	v.SetDefault("protocol", "binary")
	v.SetDefault("nconn", 4)
	v.SetDefault("connect_timeout_seconds", 5)
	v.SetDefault("statement_timeout_ms", 30000)
	v.SetDefault("app_name", "pgxtract")
	v.SetDefault("buffer_size", 4096)
	v.SetDefault("log_level", "info")
	v.SetDefault("output", string(OutputCSV))
}

// Load resolves configuration from (in ascending priority) a config file,
// environment variables prefixed PGXTRACT_, and command-line flags, then
// validates the result.
func Load() (Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("PGXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fs := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	var cfgPathFlag string
	fs.StringVarP(&cfgPathFlag, "config", "c", "", "Config file path (yaml|json|toml)")
	fs.String("dsn", "", "PostgreSQL DSN (postgres://…)")
	fs.String("query", "", "SQL query to read")
	fs.StringSlice("partitions", []string{}, "Per-partition SQL overrides (repeatable); defaults to one partition running --query")
	fs.String("protocol", "binary", "Wire protocol: binary|csv|cursor")
	fs.Int("nconn", 4, "Pool size / number of concurrent partitions")
	fs.Int("connect_timeout_seconds", 5, "Connection timeout in seconds")
	fs.Int("statement_timeout_ms", 30000, "Statement timeout in milliseconds")
	fs.String("app_name", "pgxtract", "Application name reported to the server")
	fs.Int("buffer_size", 4096, "Rows buffered per fetch batch")
	fs.String("log_level", "info", "Log level")
	fs.String("output", string(OutputCSV), "Output format: csv|json")
	_ = fs.Parse(os.Args[1:])

	cfgPath := cfgPathFlag
	if cfgPath == "" {
		cfgPath = os.Getenv("PGXTRACT_CONFIG")
	}
	if cfgPath != "" {
		if err := readConfigFile(v, cfgPath); err != nil {
			return Config{}, err
		}
	} else {
		_ = readDefaultConfig(v)
	}

	_ = v.BindPFlags(fs)

	if v.GetString("dsn") == "" {
		if args := fs.Args(); len(args) > 0 && args[0] != "" {
			v.Set("dsn", args[0])
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.DSN == "" {
		return errors.New("config: dsn is required")
	}
	if cfg.Query == "" && len(cfg.Partitions) == 0 {
		return errors.New("config: query or partitions is required")
	}
	switch cfg.Protocol {
	case "binary", "csv", "cursor":
	default:
		return fmt.Errorf("config: protocol must be one of [binary, csv, cursor], got %q", cfg.Protocol)
	}
	switch cfg.Output {
	case OutputCSV, OutputJSON:
	default:
		return fmt.Errorf("config: output must be one of [csv, json], got %q", cfg.Output)
	}
	if cfg.NConn <= 0 {
		return errors.New("config: nconn must be > 0")
	}
	if cfg.ConnectTimeoutSeconds <= 0 {
		return errors.New("config: connect_timeout_seconds must be > 0")
	}
	if cfg.StatementTimeoutMs <= 0 {
		return errors.New("config: statement_timeout_ms must be > 0")
	}
	if cfg.BufferSize <= 0 {
		return errors.New("config: buffer_size must be > 0")
	}
	return nil
}

func readConfigFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	return nil
}

func readDefaultConfig(v *viper.Viper) error {
	paths := defaultConfigCandidates()
	exts := []string{"yaml", "yml", "json", "toml"}
	for _, base := range paths {
		for _, ext := range exts {
			candidate := base + "." + ext
			if _, err := os.Stat(candidate); err == nil {
				v.SetConfigFile(candidate)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read default config %s: %w", candidate, err)
				}
				return nil
			}
		}
	}
	return nil
}

func defaultConfigCandidates() []string {
	var out []string
	cwd, _ := os.Getwd()
	if cwd != "" {
		out = append(out,
			filepath.Join(cwd, "pgxtract"),
			filepath.Join(cwd, "config", "pgxtract"),
		)
	}
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			xdg = filepath.Join(home, ".config")
		}
	}
	if xdg != "" {
		out = append(out, filepath.Join(xdg, "pgxtract", "config"))
	}
	return out
}
