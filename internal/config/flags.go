package config

import (
	"flag"
	"fmt"
	"io"
)

// CLIFlags holds command-line overrides. A nil field means the flag was not
// passed and the value from the YAML/ENV hierarchy stands.
type CLIFlags struct {
	ConfigPath *string
	Port       *string
	LogLevel   *string
	DSN        *string
	NatsURL    *string
}

// ParseFlags parses command-line arguments into CLIFlags.
// Flags not present in args stay nil.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := flag.NewFlagSet("levelboard", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var configPath, port, logLevel, dsn, natsURL string
	fs.StringVar(&configPath, "config", "", "path to YAML config file")
	fs.StringVar(&configPath, "c", "", "path to YAML config file (shorthand)")
	fs.StringVar(&port, "port", "", "HTTP listen port")
	fs.StringVar(&port, "p", "", "HTTP listen port (shorthand)")
	fs.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&dsn, "dsn", "", "PostgreSQL connection string")
	fs.StringVar(&natsURL, "nats-url", "", "NATS server URL")

	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, fmt.Errorf("parse flags: %w", err)
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var flags CLIFlags
	if set["config"] || set["c"] {
		flags.ConfigPath = &configPath
	}
	if set["port"] || set["p"] {
		flags.Port = &port
	}
	if set["log-level"] {
		flags.LogLevel = &logLevel
	}
	if set["dsn"] {
		flags.DSN = &dsn
	}
	if set["nats-url"] {
		flags.NatsURL = &natsURL
	}
	return flags, nil
}

// LoadWithCLI returns a Config using the hierarchy:
// defaults < YAML < ENV < CLI flags. It also returns the resolved YAML path.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	path := DefaultConfigFile
	if flags.ConfigPath != nil {
		path = *flags.ConfigPath
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, path); err != nil {
		return nil, "", fmt.Errorf("config yaml: %w", err)
	}
	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, "", fmt.Errorf("config validate: %w", err)
	}
	return &cfg, path, nil
}

// applyCLI overlays non-nil CLI flags onto cfg. CLI wins over ENV and YAML.
func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.DSN != nil {
		cfg.Postgres.DSN = *flags.DSN
	}
	if flags.NatsURL != nil {
		cfg.NATS.URL = *flags.NatsURL
	}
}
