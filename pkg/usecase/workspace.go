package usecase

import (
	"context"
	"os"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/interfaces"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
)

type workspaceUseCase struct {
	repo       interfaces.GitRepository
	repository string
}

var _ interfaces.WorkspaceManager = (*workspaceUseCase)(nil)

// NewWorkspace creates a WorkspaceManager that checks out commits of repo into temporary
// directories named after repository
func NewWorkspace(repo interfaces.GitRepository, repository string) *workspaceUseCase {
	return &workspaceUseCase{
		repo:       repo,
		repository: repository,
	}
}

// Prepare attaches a detached worktree of commit to a new temporary directory
func (uc *workspaceUseCase) Prepare(ctx context.Context, commit string) (*model.Workspace, error) {
	logger := ctxlog.From(ctx)

	dir, err := os.MkdirTemp("", uc.repository+"-*")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create workspace directory", goerr.T(types.ErrTagWorkspace))
	}

	resolved, err := uc.repo.ResolveCommit(ctx, commit)
	if err != nil {
		uc.discard(ctx, dir)
		return nil, goerr.Wrap(err, "pushed commit cannot be resolved",
			goerr.V("commit", commit),
			goerr.V("repo", uc.repo.Path()),
			goerr.T(types.ErrTagWorkspace))
	}

	if err := uc.repo.AddWorktree(ctx, dir, resolved, true); err != nil {
		uc.discard(ctx, dir)
		return nil, goerr.Wrap(err, "failed to attach workspace worktree",
			goerr.V("commit", resolved),
			goerr.V("dir", dir),
			goerr.T(types.ErrTagWorkspace))
	}

	logger.Info("Workspace prepared", "dir", dir, "commit", resolved)
	return &model.Workspace{Dir: dir, Commit: resolved}, nil
}

// Release removes the worktree registration and the directory
func (uc *workspaceUseCase) Release(ctx context.Context, ws *model.Workspace) error {
	if ws == nil {
		return nil
	}
	if err := uc.repo.RemoveWorktree(ctx, ws.Dir); err != nil {
		uc.discard(ctx, ws.Dir)
		return goerr.Wrap(err, "failed to release workspace",
			goerr.V("dir", ws.Dir),
			goerr.T(types.ErrTagWorkspace))
	}
	uc.discard(ctx, ws.Dir)
	ctxlog.From(ctx).Debug("Workspace released", "dir", ws.Dir)
	return nil
}

func (uc *workspaceUseCase) discard(ctx context.Context, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		ctxlog.From(ctx).Warn("failed to remove workspace directory", "dir", dir, "error", err)
	}
}
