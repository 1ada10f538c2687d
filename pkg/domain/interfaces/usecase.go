package interfaces

import (
	"context"

	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
)

// WebhookUseCase defines the interface for webhook event processing
type WebhookUseCase interface {
	// ProcessEvent processes a webhook event
	ProcessEvent(ctx context.Context, event *model.WebhookEvent) error
}

// PipelineUseCase runs the build and deploy pipeline for one push
type PipelineUseCase interface {
	Run(ctx context.Context, event *model.PushEvent) (*model.PipelineResult, error)
}
