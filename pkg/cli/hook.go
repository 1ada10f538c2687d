package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/cli/config"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// runHook handles one update hook invocation: pushdeploy <ref-name> <old-object> <new-object>
func runHook(ctx context.Context, c *cli.Command, pipelineCfg *config.Pipeline, slackCfg *config.Slack) error {
	if c.Args().Len() != 3 {
		return goerr.New("expected <ref-name> <old-object> <new-object>",
			goerr.V("args", c.Args().Slice()),
			goerr.T(types.ErrTagInvalidArgument))
	}

	event, err := model.NewPushEvent(c.Args().Get(0), c.Args().Get(1), c.Args().Get(2))
	if err != nil {
		return err
	}

	cfg, err := pipelineCfg.Build()
	if err != nil {
		return err
	}
	cfg.SlackWebhook = slackCfg.WebhookURL

	ctxlog.From(ctx).Debug("Pipeline configured", "config", cfg)

	pipeline, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	result, err := pipeline.Run(ctx, event)
	printSummary(os.Stderr, result, err)
	return err
}
