package registry

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/interfaces"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
	"github.com/m-mizutani/pushdeploy/pkg/infra/process"
)

type transfer func(ctx context.Context, runner interfaces.ProcessRunner, local, remote model.Image) error

// Pusher publishes local images to a remote registry
type Pusher struct {
	runner   interfaces.ProcessRunner
	method   model.PushMethod
	transfer transfer
}

var _ interfaces.RegistryPusher = (*Pusher)(nil)

// New creates a Pusher. An unknown method falls back to docker.
func New(runner interfaces.ProcessRunner, method model.PushMethod) *Pusher {
	p := &Pusher{runner: runner, method: method}
	switch method {
	case model.PushMethodCrane:
		p.transfer = craneTransfer
	default:
		p.method = model.PushMethodDocker
		p.transfer = dockerTransfer
	}
	return p
}

// Push retags local under registry and uploads it. The returned image differs from local only
// by its registry.
func (p *Pusher) Push(ctx context.Context, registry string, local model.Image) (model.Image, error) {
	remote := local.WithRegistry(registry)

	if registry == model.LocalRegistry {
		return model.Image{}, goerr.New("remote registry is empty",
			goerr.V("image", local.Reference()),
			goerr.T(types.ErrTagPush))
	}
	if _, err := name.ParseReference(remote.Reference()); err != nil {
		return model.Image{}, goerr.Wrap(err, "invalid remote image reference",
			goerr.V("image", local.Reference()),
			goerr.V("remote", remote.Reference()),
			goerr.T(types.ErrTagPush))
	}

	ctxlog.From(ctx).Info("Pushing image",
		"image", local.Reference(),
		"remote", remote.Reference(),
		"method", p.method)

	if err := p.transfer(ctx, p.runner, local, remote); err != nil {
		return model.Image{}, goerr.Wrap(err, "failed to push image",
			goerr.V("image", local.Reference()),
			goerr.V("remote", remote.Reference()),
			goerr.T(types.ErrTagPush))
	}
	return remote, nil
}

func dockerTransfer(ctx context.Context, runner interfaces.ProcessRunner, local, remote model.Image) error {
	env := process.HookEnv(false)
	if _, err := runner.Run(ctx, model.Command{
		Name: "docker",
		Args: []string{"tag", local.Reference(), remote.Reference()},
		Env:  env,
	}); err != nil {
		return goerr.Wrap(err, "docker tag failed")
	}
	if _, err := runner.Run(ctx, model.Command{
		Name:   "docker",
		Args:   []string{"push", remote.Reference()},
		Env:    env,
		Stream: true,
	}); err != nil {
		return goerr.Wrap(err, "docker push failed")
	}
	return nil
}

// craneTransfer exports the image from the local engine and uploads it with
// go-containerregistry, using credentials from the docker config.
func craneTransfer(ctx context.Context, runner interfaces.ProcessRunner, local, remote model.Image) error {
	tmpDir, err := os.MkdirTemp("", "pushdeploy-image-*")
	if err != nil {
		return goerr.Wrap(err, "failed to create image export directory")
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			ctxlog.From(ctx).Warn("failed to remove image export directory", "dir", tmpDir, "error", err)
		}
	}()

	tarball := filepath.Join(tmpDir, "image.tar")
	if _, err := runner.Run(ctx, model.Command{
		Name: "docker",
		Args: []string{"save", "--output", tarball, local.Reference()},
		Env:  process.HookEnv(false),
	}); err != nil {
		return goerr.Wrap(err, "docker save failed")
	}

	img, err := crane.Load(tarball)
	if err != nil {
		return goerr.Wrap(err, "failed to load exported image", goerr.V("tarball", tarball))
	}

	if err := crane.Push(img, remote.Reference(),
		crane.WithContext(ctx),
		crane.WithAuthFromKeychain(authn.DefaultKeychain),
	); err != nil {
		return goerr.Wrap(err, "crane push failed")
	}
	return nil
}
