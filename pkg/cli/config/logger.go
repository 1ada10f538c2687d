package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/masq"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// Logger holds logger configuration
type Logger struct {
	Level  string
	Format string
}

// Flags returns CLI flags for logger configuration
func (c *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &c.Level,
			Sources:     cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, text, json)",
			Value:       "console",
			Destination: &c.Format,
			Sources:     cli.EnvVars("LOG_FORMAT"),
		},
	}
}

// Configure returns a logger writing to stderr, which git relays to the pusher
func (c *Logger) Configure() (*slog.Logger, error) {
	return c.configure(os.Stderr)
}

func (c *Logger) configure(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, goerr.New("invalid log level",
			goerr.V("level", c.Level),
			goerr.T(types.ErrTagInvalidArgument))
	}

	filter := masq.New(
		masq.WithTag("secret"),
		masq.WithFieldName("WebhookSecret"),
		masq.WithFieldName("DSN"),
		masq.WithContain("hooks.slack.com/services/"),
	)

	var handler slog.Handler
	switch strings.ToLower(c.Format) {
	case "console", "":
		handler = clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithColor(isTerminal(w)),
			clog.WithReplaceAttr(filter),
		)
	case "text":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: filter})
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: filter})
	default:
		return nil, goerr.New("invalid log format",
			goerr.V("format", c.Format),
			goerr.T(types.ErrTagInvalidArgument))
	}

	return slog.New(handler), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
