package config

import (
	"time"

	controller "github.com/m-mizutani/pushdeploy/pkg/controller/http"
	"github.com/urfave/cli/v3"
)

// Server holds serve mode configuration
type Server struct {
	Addr          string
	WebhookSecret string
	DrainTimeout  time.Duration
}

// Flags returns the flags of the serve command
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address of the webhook server",
			Value:       controller.DefaultAddr,
			Destination: &c.Addr,
			Sources:     cli.EnvVars("ADDR"),
		},
		&cli.StringFlag{
			Name:        "webhook-secret",
			Usage:       "Shared secret push deliveries are signed with (X-Hub-Signature-256)",
			Required:    true,
			Destination: &c.WebhookSecret,
			Sources:     cli.EnvVars("WEBHOOK_SECRET"),
		},
		&cli.DurationFlag{
			Name:        "drain-timeout",
			Usage:       "How long shutdown waits for accepted pipelines to finish",
			Value:       10 * time.Minute,
			Destination: &c.DrainTimeout,
			Sources:     cli.EnvVars("DRAIN_TIMEOUT"),
		},
	}
}
