package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/interfaces"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
)

type runner struct {
	stdout io.Writer
	stderr io.Writer
}

// Option is a functional option for the runner
type Option func(*runner)

// WithOutput sets where streamed command output is copied to
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// New creates a ProcessRunner backed by os/exec
func New(opts ...Option) interfaces.ProcessRunner {
	r := &runner{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run runs cmd to completion. Output is always captured; with cmd.Stream it is also copied
// to the operator as it is produced.
func (r *runner) Run(ctx context.Context, cmd model.Command) (*model.CommandResult, error) {
	logger := ctxlog.From(ctx)

	path, err := exec.LookPath(cmd.Name)
	if err != nil {
		return nil, goerr.Wrap(err, "command not found on PATH",
			goerr.V("command", cmd.Name),
			goerr.T(types.ErrTagExternalTool))
	}

	c := exec.CommandContext(ctx, path, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	if c.Env == nil {
		c.Env = os.Environ()
	}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	if cmd.Stream {
		c.Stdout = io.MultiWriter(stdout, r.stdout)
		c.Stderr = io.MultiWriter(stderr, r.stderr)
	} else {
		c.Stdout = stdout
		c.Stderr = stderr
	}

	logger.Debug("Running command", "command", cmd.String(), "dir", cmd.Dir)

	runErr := c.Run()
	result := &model.CommandResult{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	if c.ProcessState != nil {
		result.ExitCode = c.ProcessState.ExitCode()
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		msg := "failed to start command"
		if errors.As(runErr, &exitErr) {
			msg = "command exited with non-zero status"
		}
		return result, goerr.Wrap(runErr, msg,
			goerr.V("command", cmd.String()),
			goerr.V("dir", cmd.Dir),
			goerr.V("exit_code", result.ExitCode),
			goerr.V("stderr", result.Stderr),
			goerr.T(types.ErrTagExternalTool))
	}

	return result, nil
}
