package usecase

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/interfaces"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
	"github.com/m-mizutani/pushdeploy/pkg/utils/async"
)

// PipelineFactory builds the pipeline for one pushed repository
type PipelineFactory func(cfg model.DeployConfig) (interfaces.PipelineUseCase, error)

// Dispatcher runs handler outside the request that triggered it
type Dispatcher func(ctx context.Context, handler func(ctx context.Context) error)

type webhookUseCase struct {
	base     model.DeployConfig
	factory  PipelineFactory
	dispatch Dispatcher
}

var _ interfaces.WebhookUseCase = (*webhookUseCase)(nil)

// WebhookOption is a functional option for the webhook use case
type WebhookOption func(*webhookUseCase)

// WithDispatcher replaces the default queue, which runs one pipeline at a time
func WithDispatcher(d Dispatcher) WebhookOption {
	return func(uc *webhookUseCase) {
		uc.dispatch = d
	}
}

// NewWebhook creates a WebhookUseCase that starts a pipeline per pushed repository.
// base supplies every setting except the repository, which comes from the event.
func NewWebhook(base model.DeployConfig, factory PipelineFactory, opts ...WebhookOption) *webhookUseCase {
	uc := &webhookUseCase{
		base:     base,
		factory:  factory,
		dispatch: async.NewQueue().Dispatch,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ProcessEvent validates a push event and dispatches its pipeline
func (uc *webhookUseCase) ProcessEvent(ctx context.Context, event *model.WebhookEvent) error {
	logger := ctxlog.From(ctx)

	logger.Info("Processing webhook event",
		"id", event.ID,
		"type", event.Type,
		"repository", event.Repository,
		"ref", event.Ref,
		"after", event.After,
		"sender", event.Sender,
		"supported", event.IsSupportedEvent(),
	)

	if !event.IsSupportedEvent() {
		logger.Warn("Unsupported event received", "type", event.Type)
		return nil
	}

	push, err := event.PushEvent()
	if err != nil {
		return err
	}

	name := event.Repository
	if name != filepath.Base(name) || name == "." || name == ".." || strings.HasPrefix(name, "-") {
		return goerr.New("invalid repository name",
			goerr.V("repository", name),
			goerr.T(types.ErrTagInvalidArgument))
	}
	repoDir, err := ResolveBareRepo(uc.base.ReposDir, name)
	if err != nil {
		return goerr.Wrap(err, "unknown repository", goerr.T(types.ErrTagInvalidArgument))
	}

	cfg := uc.base.WithRepository(name, repoDir)
	if err := cfg.Validate(); err != nil {
		return err
	}
	pipeline, err := uc.factory(cfg)
	if err != nil {
		return goerr.Wrap(err, "failed to build pipeline", goerr.V("repository", name))
	}

	runLogger := logger.With("delivery", event.ID)
	uc.dispatch(ctxlog.With(ctx, runLogger), func(ctx context.Context) error {
		_, err := pipeline.Run(ctx, push)
		return err
	})
	return nil
}
