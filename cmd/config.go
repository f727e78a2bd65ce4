package cmd

import (
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/zalepa/crimedash/dashboard"
	"github.com/zalepa/crimedash/logging"
	"github.com/zalepa/crimedash/store"
)

// loggerConfig holds logger configuration.
type loggerConfig struct {
	Level  string
	Format string
}

func (l *loggerConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Category:    "Logging",
			Value:       "info",
			Sources:     cli.EnvVars("CRIMEDASH_LOG_LEVEL"),
			Destination: &l.Level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json, auto)",
			Category:    "Logging",
			Value:       "auto",
			Sources:     cli.EnvVars("CRIMEDASH_LOG_FORMAT"),
			Destination: &l.Format,
		},
	}
}

// Configure builds the logger. Logs go to stderr so that command output on
// stdout stays clean.
func (l *loggerConfig) Configure() (*slog.Logger, error) {
	var format logging.Format
	switch l.Format {
	case "console":
		format = logging.FormatConsole
	case "json":
		format = logging.FormatJSON
	case "auto", "":
		format = logging.FormatAuto
	default:
		return nil, goerr.New("invalid log format", goerr.V("format", l.Format))
	}
	return logging.New(logging.ParseLevel(l.Level), os.Stderr, format), nil
}

func (l loggerConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", l.Level),
		slog.String("format", l.Format),
	)
}

// datasetConfig locates the dataset and the optional dashboard settings.
type datasetConfig struct {
	Source     string
	ConfigPath string
}

func (d *datasetConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "data",
			Usage:       "Dataset JSON file path or http(s) URL",
			Value:       "final_format.json",
			Sources:     cli.EnvVars("CRIMEDASH_DATA"),
			Destination: &d.Source,
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Dashboard settings YAML file",
			Sources:     cli.EnvVars("CRIMEDASH_CONFIG"),
			Destination: &d.ConfigPath,
		},
	}
}

// Configure reads the dashboard settings, falling back to the defaults.
func (d *datasetConfig) Configure() (dashboard.Config, error) {
	return dashboard.LoadConfig(d.ConfigPath)
}

func (d datasetConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("source", d.Source),
		slog.String("config", d.ConfigPath),
	)
}

// serverConfig holds HTTP server configuration.
type serverConfig struct {
	Addr        string
	MaxSessions int
}

func (s *serverConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Sources:     cli.EnvVars("CRIMEDASH_ADDR"),
			Destination: &s.Addr,
		},
		&cli.IntFlag{
			Name:        "max-sessions",
			Usage:       "Number of clients whose dashboards are kept in memory",
			Value:       1024,
			Sources:     cli.EnvVars("CRIMEDASH_MAX_SESSIONS"),
			Destination: &s.MaxSessions,
		},
	}
}

func (s serverConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", s.Addr),
		slog.Int("max_sessions", s.MaxSessions),
	)
}

// storeConfig selects the key-value backend for notes and view counters.
type storeConfig struct {
	Backend string
	Path    string
}

func (s *storeConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store",
			Usage:       "Store backend (memory, sqlite)",
			Category:    "Store",
			Value:       store.BackendMemory,
			Sources:     cli.EnvVars("CRIMEDASH_STORE"),
			Destination: &s.Backend,
		},
		&cli.StringFlag{
			Name:        "store-path",
			Usage:       "SQLite database file",
			Category:    "Store",
			Value:       "crimedash.db",
			Sources:     cli.EnvVars("CRIMEDASH_STORE_PATH"),
			Destination: &s.Path,
		},
	}
}

func (s *storeConfig) Configure() (store.KV, error) {
	return store.Open(s.Backend, s.Path)
}

func (s storeConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", s.Backend),
		slog.String("path", s.Path),
	)
}
