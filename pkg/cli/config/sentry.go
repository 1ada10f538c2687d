package config

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Sentry holds error reporting configuration
type Sentry struct {
	DSN string
	Env string
}

// Flags returns CLI flags for Sentry configuration
func (c *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN; fatal errors are reported when set",
			Destination: &c.DSN,
			Sources:     cli.EnvVars("SENTRY_DSN"),
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Usage:       "Sentry environment",
			Value:       "production",
			Destination: &c.Env,
			Sources:     cli.EnvVars("SENTRY_ENV"),
		},
	}
}

// Enabled reports whether a DSN is configured
func (c *Sentry) Enabled() bool {
	return c.DSN != ""
}

// Configure initializes the Sentry client. It does nothing without a DSN.
func (c *Sentry) Configure() error {
	if !c.Enabled() {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         c.DSN,
		Environment: c.Env,
		Release:     "pushdeploy@" + types.Version,
	}); err != nil {
		return goerr.Wrap(err, "failed to initialize Sentry")
	}
	return nil
}

// Report sends err to Sentry and waits for delivery
func (c *Sentry) Report(err error) {
	if !c.Enabled() || err == nil {
		return
	}
	sentry.CaptureException(err)
	sentry.Flush(2 * time.Second)
}
