package interfaces

import (
	"context"

	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
)

// GitRepository is the subset of git operations the pipeline performs against a bare
// repository and the worktrees attached to it.
type GitRepository interface {
	// Path returns the repository (git dir) path
	Path() string
	ResolveCommit(ctx context.Context, rev string) (string, error)
	AddWorktree(ctx context.Context, dir, commitish string, detach bool) error
	RemoveWorktree(ctx context.Context, dir string) error
	ListWorktrees(ctx context.Context) ([]model.Worktree, error)

	// Worktree operations, run inside dir
	HasChanges(ctx context.Context, dir string) (bool, error)
	StageAll(ctx context.Context, dir string) error
	Commit(ctx context.Context, dir string, author model.GitAuthor, message string) error
}
