package interfaces

import (
	"context"

	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
)

// WorkspaceManager materializes a pushed commit into a disposable directory
type WorkspaceManager interface {
	Prepare(ctx context.Context, commit string) (*model.Workspace, error)
	Release(ctx context.Context, ws *model.Workspace) error
}

// CIRunner runs the repository's own checks inside a workspace
type CIRunner interface {
	Run(ctx context.Context, dir string) error
}

// BuildDetector classifies a source tree
type BuildDetector interface {
	Detect(ctx context.Context, dir string) (model.BuildVariant, error)
}

// ImageBuilder builds a local image for a detected variant. It returns nil without error
// when the variant is not buildable.
type ImageBuilder interface {
	Build(ctx context.Context, variant model.BuildVariant, dir, repository, tag string) (*model.Image, error)
}

// RegistryPusher publishes a local image under a remote registry
type RegistryPusher interface {
	Push(ctx context.Context, registry string, local model.Image) (model.Image, error)
}

// GitOpsUpdater points an application's manifest in the GitOps repository at an image.
// The returned Deployment carries the application identifier to use for the sync notification.
type GitOpsUpdater interface {
	Deploy(ctx context.Context, remote model.Image, gitopsRepo, repository string) (*model.Deployment, error)
}

// ManifestPatcher points the values manifest at path to an image tag and writes it back
type ManifestPatcher interface {
	SetImageTag(ctx context.Context, path, tag string) (*model.TagChange, error)
}

// SyncNotifier asks the cluster reconciler to refresh
type SyncNotifier interface {
	Notify(ctx context.Context, endpoint, repository string) error
}

// DeployAnnouncer publishes a human readable summary of a finished run
type DeployAnnouncer interface {
	Announce(ctx context.Context, result *model.PipelineResult) error
}
