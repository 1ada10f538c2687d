package usecase

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/interfaces"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
)

// Stages are the collaborators a pipeline run sequences. Announcer may be nil.
type Stages struct {
	Workspace interfaces.WorkspaceManager
	CI        interfaces.CIRunner
	Detector  interfaces.BuildDetector
	Builder   interfaces.ImageBuilder
	Pusher    interfaces.RegistryPusher
	GitOps    interfaces.GitOpsUpdater
	Notifier  interfaces.SyncNotifier
	Announcer interfaces.DeployAnnouncer
}

type pipelineUseCase struct {
	cfg    model.DeployConfig
	stages Stages
}

var _ interfaces.PipelineUseCase = (*pipelineUseCase)(nil)

// NewPipeline creates the deploy pipeline for cfg.Repository
func NewPipeline(cfg model.DeployConfig, stages Stages) *pipelineUseCase {
	return &pipelineUseCase{
		cfg:    cfg,
		stages: stages,
	}
}

// Run builds, pushes and deploys the pushed commit. Stages whose configuration is absent end
// the run early without error; the workspace is released on every path.
func (uc *pipelineUseCase) Run(ctx context.Context, event *model.PushEvent) (*model.PipelineResult, error) {
	logger := ctxlog.From(ctx).With(
		"repository", uc.cfg.Repository,
		"ref", event.RefName,
		"branch", event.Branch(),
		"commit", event.NewObject,
	)
	ctx = ctxlog.With(ctx, logger)
	if event.IsNewRef() {
		logger.Info("New ref pushed")
	}

	result, err := uc.run(ctx, event)
	if err != nil {
		return result, err
	}

	if result.SkippedAt != "" {
		logger.Info("Pipeline finished early", "stage", result.SkippedAt, "reason", result.SkipReason)
	} else {
		logger.Info("Pipeline completed", "image", result.RemoteImage, "committed", result.Committed)
	}
	uc.announce(ctx, result)
	return result, nil
}

func (uc *pipelineUseCase) run(ctx context.Context, event *model.PushEvent) (_ *model.PipelineResult, err error) {
	logger := ctxlog.From(ctx)
	result := &model.PipelineResult{
		Repository: uc.cfg.Repository,
		Commit:     event.NewObject,
	}

	if event.IsDelete() {
		logger.Warn("Ref deleted, nothing to build")
		result.Skip(model.StageWorkspace, "ref deleted")
		return result, nil
	}

	ws, err := uc.stages.Workspace.Prepare(ctx, event.NewObject)
	if err != nil {
		return result, err
	}
	defer func() {
		if relErr := uc.stages.Workspace.Release(ctx, ws); relErr != nil {
			if err == nil {
				err = relErr
				return
			}
			logger.Error("failed to release workspace", "dir", ws.Dir, "error", relErr)
		}
	}()

	if err := uc.stages.CI.Run(ctx, ws.Dir); err != nil {
		return result, err
	}

	variant, err := uc.stages.Detector.Detect(ctx, ws.Dir)
	if err != nil {
		return result, err
	}
	result.Variant = variant
	logger.Info("Build variant detected", "variant", variant)

	if !variant.Buildable() {
		logger.Warn("No build method detected, skipping build")
		result.Skip(model.StageBuild, "no build method detected")
		return result, nil
	}

	local, err := uc.stages.Builder.Build(ctx, variant, ws.Dir, uc.cfg.Repository, event.NewObject)
	if err != nil {
		return result, err
	}
	if local == nil {
		result.Skip(model.StageBuild, "builder produced no image")
		return result, nil
	}
	result.LocalImage = local

	if uc.cfg.RegistryHost == "" {
		uc.skip(ctx, result, model.StagePush, "REGISTRY_HOST")
		return result, nil
	}
	remote, err := uc.stages.Pusher.Push(ctx, uc.cfg.RegistryHost, *local)
	if err != nil {
		return result, err
	}
	result.RemoteImage = &remote

	if uc.cfg.GitOpsRepo == "" {
		uc.skip(ctx, result, model.StageDeploy, "GITOPS_REPO")
		return result, nil
	}
	deployment, err := uc.stages.GitOps.Deploy(ctx, remote, uc.cfg.GitOpsRepo, uc.cfg.Repository)
	if err != nil {
		return result, err
	}
	result.Committed = deployment.Committed

	if uc.cfg.SyncEndpoint == "" {
		uc.skip(ctx, result, model.StageNotify, "ARGOCD_WEBHOOK_ENDPOINT")
		return result, nil
	}
	if err := uc.stages.Notifier.Notify(ctx, uc.cfg.SyncEndpoint, deployment.Repository); err != nil {
		return result, err
	}
	result.Notified = true

	return result, nil
}

// skip ends the run before stage because the setting it needs is absent
func (uc *pipelineUseCase) skip(ctx context.Context, result *model.PipelineResult, stage model.Stage, setting string) {
	err := goerr.New(setting+" is not set",
		goerr.V("stage", stage),
		goerr.T(types.ErrTagConfigMissing))
	ctxlog.From(ctx).Warn("Skipping remaining stages", "stage", stage, "reason", err.Error())
	result.Skip(stage, err.Error())
}

// announce reports runs that got through the build stage
func (uc *pipelineUseCase) announce(ctx context.Context, result *model.PipelineResult) {
	if uc.stages.Announcer == nil || uc.cfg.SlackWebhook == "" || result.LocalImage == nil {
		return
	}
	if err := uc.stages.Announcer.Announce(ctx, result); err != nil {
		ctxlog.From(ctx).Warn("failed to announce deploy", "error", err)
	}
}
