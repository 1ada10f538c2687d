// Package processtest provides a recording ProcessRunner for tests
package processtest

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
)

// Runner records every command and answers with RunFunc, or an empty success when RunFunc is nil
type Runner struct {
	RunFunc func(ctx context.Context, cmd model.Command) (*model.CommandResult, error)

	mu       sync.Mutex
	commands []model.Command
}

// Run implements interfaces.ProcessRunner
func (r *Runner) Run(ctx context.Context, cmd model.Command) (*model.CommandResult, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()

	if r.RunFunc != nil {
		return r.RunFunc(ctx, cmd)
	}
	return &model.CommandResult{}, nil
}

// Commands returns the recorded commands in call order
func (r *Runner) Commands() []model.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Command{}, r.commands...)
}

// Lines returns the recorded commands rendered as command lines
func (r *Runner) Lines() []string {
	var lines []string
	for _, c := range r.Commands() {
		lines = append(lines, c.String())
	}
	return lines
}

// Fail returns the result and error the real runner produces for a non-zero exit
func Fail(cmd model.Command, exitCode int, stderr string) (*model.CommandResult, error) {
	return &model.CommandResult{ExitCode: exitCode, Stderr: stderr},
		goerr.New("command exited with non-zero status",
			goerr.V("command", cmd.String()),
			goerr.V("exit_code", exitCode),
			goerr.T(types.ErrTagExternalTool))
}

// NotFound returns what the real runner produces when the binary is not on PATH
func NotFound(cmd model.Command) (*model.CommandResult, error) {
	return nil, goerr.New("command not found on PATH",
		goerr.V("command", cmd.Name),
		goerr.T(types.ErrTagExternalTool))
}
