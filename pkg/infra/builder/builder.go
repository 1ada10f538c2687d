package builder

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/interfaces"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
	"github.com/m-mizutani/pushdeploy/pkg/infra/process"
)

// Recipe builds a local image for one build variant
type Recipe interface {
	Variant() model.BuildVariant
	Build(ctx context.Context, runner interfaces.ProcessRunner, dir string, image model.Image) error
}

// Dockerfile builds with `docker build` from the tree root
type Dockerfile struct{}

func (Dockerfile) Variant() model.BuildVariant { return model.BuildVariantDockerfile }

func (Dockerfile) Build(ctx context.Context, runner interfaces.ProcessRunner, dir string, image model.Image) error {
	_, err := runner.Run(ctx, model.Command{
		Name:   "docker",
		Args:   []string{"build", "--tag", image.Reference(), "."},
		Dir:    dir,
		Env:    process.HookEnv(true),
		Stream: true,
	})
	return err
}

// Nixpacks builds with `nixpacks build`, caching layers per repository
type Nixpacks struct{}

func (Nixpacks) Variant() model.BuildVariant { return model.BuildVariantNixpacks }

func (Nixpacks) Build(ctx context.Context, runner interfaces.ProcessRunner, dir string, image model.Image) error {
	_, err := runner.Run(ctx, model.Command{
		Name: "nixpacks",
		Args: []string{
			"build", ".",
			"--name", image.Repository,
			"--tag", image.Reference(),
			"--cache-key", image.Repository,
		},
		Dir:    dir,
		Env:    process.HookEnv(true),
		Stream: true,
	})
	return err
}

// Builder dispatches a build to the recipe registered for the variant
type Builder struct {
	runner  interfaces.ProcessRunner
	recipes map[model.BuildVariant]Recipe
}

var _ interfaces.ImageBuilder = (*Builder)(nil)

// New creates a Builder with the Dockerfile and Nixpacks recipes
func New(runner interfaces.ProcessRunner) *Builder {
	b := &Builder{
		runner:  runner,
		recipes: map[model.BuildVariant]Recipe{},
	}
	for _, r := range []Recipe{Dockerfile{}, Nixpacks{}} {
		b.recipes[r.Variant()] = r
	}
	return b
}

// Build produces repository:tag from the tree at dir. It returns nil when no recipe exists for
// the variant.
func (b *Builder) Build(ctx context.Context, variant model.BuildVariant, dir, repository, tag string) (*model.Image, error) {
	recipe, ok := b.recipes[variant]
	if !ok {
		return nil, nil
	}

	image := model.NewLocalImage(repository, tag)
	ctxlog.From(ctx).Info("Building image", "variant", variant, "image", image.Reference())

	if err := recipe.Build(ctx, b.runner, dir, image); err != nil {
		return nil, goerr.Wrap(err, "image build failed",
			goerr.V("variant", variant),
			goerr.V("image", image.Reference()),
			goerr.T(types.ErrTagExternalTool))
	}
	return &image, nil
}
