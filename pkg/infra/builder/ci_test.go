package builder_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
	"github.com/m-mizutani/pushdeploy/pkg/infra/builder"
	"github.com/m-mizutani/pushdeploy/pkg/utils/processtest"
)

func failingRunner() *processtest.Runner {
	return &processtest.Runner{RunFunc: func(ctx context.Context, cmd model.Command) (*model.CommandResult, error) {
		return processtest.Fail(cmd, 2, "check failed")
	}}
}

func TestCI_Command(t *testing.T) {
	testCases := []struct {
		name     string
		files    []string
		expected string
	}{
		{name: "flake takes priority", files: []string{"flake.nix", "Makefile"}, expected: "nix flake check"},
		{name: "makefile", files: []string{"Makefile"}, expected: "make ci"},
		{name: "none", files: []string{"README.md"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeFiles(t, tc.files...)
			cmd := builder.NewCI(&processtest.Runner{}, model.CIPolicyBestEffort).Command(dir)
			if tc.expected == "" {
				gt.V(t, cmd).Nil()
				return
			}
			gt.V(t, cmd).NotNil()
			gt.Equal(t, cmd.String(), tc.expected)
			gt.Equal(t, cmd.Dir, dir)
		})
	}
}

func TestCI_Policy(t *testing.T) {
	ctx := context.Background()

	t.Run("skip never runs", func(t *testing.T) {
		runner := failingRunner()
		err := builder.NewCI(runner, model.CIPolicySkip).Run(ctx, writeFiles(t, "Makefile"))
		gt.NoError(t, err)
		gt.Equal(t, len(runner.Commands()), 0)
	})

	t.Run("best-effort tolerates failure", func(t *testing.T) {
		runner := failingRunner()
		err := builder.NewCI(runner, model.CIPolicyBestEffort).Run(ctx, writeFiles(t, "Makefile"))
		gt.NoError(t, err)
		gt.Equal(t, runner.Lines(), []string{"make ci"})
	})

	t.Run("required aborts on failure", func(t *testing.T) {
		runner := failingRunner()
		err := builder.NewCI(runner, model.CIPolicyRequired).Run(ctx, writeFiles(t, "flake.nix"))
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagExternalTool))
	})

	t.Run("required passes without CI configuration", func(t *testing.T) {
		runner := failingRunner()
		err := builder.NewCI(runner, model.CIPolicyRequired).Run(ctx, writeFiles(t, "main.go"))
		gt.NoError(t, err)
		gt.Equal(t, len(runner.Commands()), 0)
	})
}
