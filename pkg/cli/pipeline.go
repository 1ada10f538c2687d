package cli

import (
	"os"

	"github.com/m-mizutani/pushdeploy/pkg/domain/interfaces"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/infra/builder"
	"github.com/m-mizutani/pushdeploy/pkg/infra/git"
	"github.com/m-mizutani/pushdeploy/pkg/infra/manifest"
	"github.com/m-mizutani/pushdeploy/pkg/infra/process"
	"github.com/m-mizutani/pushdeploy/pkg/infra/registry"
	"github.com/m-mizutani/pushdeploy/pkg/infra/slack"
	"github.com/m-mizutani/pushdeploy/pkg/infra/webhook"
	"github.com/m-mizutani/pushdeploy/pkg/usecase"
)

// newPipeline wires the pipeline of cfg.Repository to the real tools
func newPipeline(cfg model.DeployConfig) (interfaces.PipelineUseCase, error) {
	// Tool output goes to stderr next to the logs
	runner := process.New(process.WithOutput(os.Stderr, os.Stderr))

	repo, err := git.New(runner, cfg.RepoDir, git.WithQuarantine())
	if err != nil {
		return nil, err
	}
	openGitOps := func(path string) (interfaces.GitRepository, error) {
		return git.New(runner, path)
	}

	stages := usecase.Stages{
		Workspace: usecase.NewWorkspace(repo, cfg.Repository),
		CI:        builder.NewCI(runner, cfg.CIPolicy),
		Detector:  builder.NewDetector(runner),
		Builder:   builder.New(runner),
		Pusher:    registry.New(runner, cfg.PushMethod),
		GitOps:    usecase.NewGitOps(openGitOps, manifest.NewPatcher(), cfg.ReposDir, cfg.DefaultBranch, cfg.Author),
		Notifier:  webhook.NewNotifier(webhook.WithPublicURL(cfg.PublicGitURL)),
	}
	if cfg.SlackWebhook != "" {
		stages.Announcer = slack.New(cfg.SlackWebhook)
	}

	return usecase.NewPipeline(cfg, stages), nil
}
