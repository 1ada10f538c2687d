package builder

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/interfaces"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
	"github.com/m-mizutani/pushdeploy/pkg/infra/process"
)

// ciProbe maps a marker file at the tree root to the command that runs its checks.
// The first existing marker wins.
var ciProbe = []struct {
	marker string
	name   string
	args   []string
}{
	{marker: "flake.nix", name: "nix", args: []string{"flake", "check"}},
	{marker: "Makefile", name: "make", args: []string{"ci"}},
}

// CI runs the repository's own checks according to a CIPolicy
type CI struct {
	runner interfaces.ProcessRunner
	policy model.CIPolicy
}

var _ interfaces.CIRunner = (*CI)(nil)

// NewCI creates a CI runner
func NewCI(runner interfaces.ProcessRunner, policy model.CIPolicy) *CI {
	return &CI{runner: runner, policy: policy}
}

// Command returns the CI command for the tree at dir, or nil when the tree has none
func (c *CI) Command(dir string) *model.Command {
	for _, p := range ciProbe {
		if _, err := os.Stat(filepath.Join(dir, p.marker)); err == nil {
			return &model.Command{
				Name:   p.name,
				Args:   p.args,
				Dir:    dir,
				Env:    process.HookEnv(true),
				Stream: true,
			}
		}
	}
	return nil
}

// Run executes the CI command. Under CIPolicyBestEffort a failure is only logged.
func (c *CI) Run(ctx context.Context, dir string) error {
	logger := ctxlog.From(ctx)

	if c.policy == model.CIPolicySkip {
		logger.Debug("CI disabled by policy")
		return nil
	}

	cmd := c.Command(dir)
	if cmd == nil {
		logger.Info("No CI configuration found, skipping CI")
		return nil
	}

	logger.Info("Running CI", "command", cmd.String(), "policy", c.policy)
	if _, err := c.runner.Run(ctx, *cmd); err != nil {
		if c.policy == model.CIPolicyRequired {
			return goerr.Wrap(err, "CI failed",
				goerr.V("command", cmd.String()),
				goerr.T(types.ErrTagExternalTool))
		}
		logger.Warn("CI failed, continuing", "command", cmd.String(), "error", err)
	}
	return nil
}
