package builder

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/interfaces"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
	"github.com/m-mizutani/pushdeploy/pkg/infra/process"
)

const dockerfileName = "Dockerfile"

// Detector classifies a source tree into a build variant
type Detector struct {
	runner interfaces.ProcessRunner
}

var _ interfaces.BuildDetector = (*Detector)(nil)

// NewDetector creates a Detector
func NewDetector(runner interfaces.ProcessRunner) *Detector {
	return &Detector{runner: runner}
}

// Detect returns the variant of the tree at dir. A Dockerfile wins over anything nixpacks
// would recognize; a tree neither of them understands is BuildVariantUndetected.
func (d *Detector) Detect(ctx context.Context, dir string) (model.BuildVariant, error) {
	logger := ctxlog.From(ctx)

	info, err := os.Stat(filepath.Join(dir, dockerfileName))
	switch {
	case err == nil && !info.IsDir():
		return model.BuildVariantDockerfile, nil
	case err != nil && !os.IsNotExist(err):
		return "", goerr.Wrap(err, "failed to inspect source tree", goerr.V("dir", dir))
	}

	result, err := d.runner.Run(ctx, model.Command{
		Name: "nixpacks",
		Args: []string{"detect", dir},
		Dir:  dir,
		Env:  process.HookEnv(true),
	})
	if err != nil {
		if result == nil {
			// nixpacks is optional on the host
			logger.Warn("nixpacks is not available, treating tree as undetected", "error", err)
			return model.BuildVariantUndetected, nil
		}
		return "", goerr.Wrap(err, "nixpacks detection failed",
			goerr.V("dir", dir),
			goerr.T(types.ErrTagExternalTool))
	}

	if providers := strings.TrimSpace(result.Stdout); providers != "" {
		logger.Debug("nixpacks providers detected", "providers", providers)
		return model.BuildVariantNixpacks, nil
	}
	return model.BuildVariantUndetected, nil
}
