package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/pushdeploy/pkg/cli/config"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Run runs the CLI application
func Run(ctx context.Context, args []string) error {
	var (
		loggerCfg   config.Logger
		sentryCfg   config.Sentry
		pipelineCfg config.Pipeline
		slackCfg    config.Slack
		logger      *slog.Logger
	)

	var flags []cli.Flag
	flags = append(flags, loggerCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)
	flags = append(flags, pipelineCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	app := &cli.Command{
		Name:      "pushdeploy",
		Usage:     "Build, push and deploy a repository on every push",
		ArgsUsage: "<ref-name> <old-object> <new-object>",
		Version:   types.Version,
		Flags:     flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			var err error
			logger, err = loggerCfg.Configure()
			if err != nil {
				return nil, err
			}
			if err := sentryCfg.Configure(); err != nil {
				return nil, err
			}

			slog.SetDefault(logger)
			ctx = ctxlog.With(ctx, logger)
			return ctx, nil
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runHook(ctx, c, &pipelineCfg, &slackCfg)
		},
		Commands: []*cli.Command{
			cmdServe(&pipelineCfg, &slackCfg),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("CLI execution failed", slog.Any("error", err))
		sentryCfg.Report(err)
		return err
	}

	return nil
}
