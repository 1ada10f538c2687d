package interfaces

import (
	"context"

	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
)

// ProcessRunner invokes external commands. A non-zero exit status is returned as an error
// tagged types.ErrTagExternalTool that still carries the captured output.
type ProcessRunner interface {
	Run(ctx context.Context, cmd model.Command) (*model.CommandResult, error)
}
