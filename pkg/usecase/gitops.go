package usecase

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/interfaces"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
)

// OpenRepository returns a git client for the bare repository at path
type OpenRepository func(path string) (interfaces.GitRepository, error)

type gitOpsUseCase struct {
	open     OpenRepository
	patcher  interfaces.ManifestPatcher
	reposDir string
	branch   string
	author   model.GitAuthor
}

var _ interfaces.GitOpsUpdater = (*gitOpsUseCase)(nil)

// NewGitOps creates a GitOpsUpdater for GitOps repositories stored under reposDir
func NewGitOps(open OpenRepository, patcher interfaces.ManifestPatcher, reposDir, branch string, author model.GitAuthor) *gitOpsUseCase {
	return &gitOpsUseCase{
		open:     open,
		patcher:  patcher,
		reposDir: reposDir,
		branch:   branch,
		author:   author,
	}
}

// ResolveBareRepo locates the bare repository called name under reposDir, preferring the
// "<name>.git" layout. An absolute name is used as is.
func ResolveBareRepo(reposDir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	for _, candidate := range []string{
		filepath.Join(reposDir, name+".git"),
		filepath.Join(reposDir, name),
	} {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return "", goerr.New("bare repository not found",
		goerr.V("repos_dir", reposDir),
		goerr.V("name", name))
}

// Deploy rewrites the image tag of repository in the GitOps repository's default branch and
// commits when the tag changed. The branch worktree exists only for the duration of the call;
// a worktree left at the same location makes the call fail with ErrTagWorktreeConflict.
// An empty gitopsRepo means model.DefaultGitOpsRepo.
func (uc *gitOpsUseCase) Deploy(ctx context.Context, remote model.Image, gitopsRepo, repository string) (_ *model.Deployment, err error) {
	if gitopsRepo == "" {
		gitopsRepo = model.DefaultGitOpsRepo
	}
	bare, err := ResolveBareRepo(uc.reposDir, gitopsRepo)
	if err != nil {
		return nil, goerr.Wrap(err, "GitOps repository not found", goerr.T(types.ErrTagGitOperation))
	}
	target := model.NewGitOpsTarget(bare, uc.branch, repository)

	logger := ctxlog.From(ctx).With("gitops_repo", bare, "branch", target.DefaultBranch)
	ctx = ctxlog.With(ctx, logger)

	repo, err := uc.open(bare)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open GitOps repository", goerr.T(types.ErrTagGitOperation))
	}

	worktree := target.WorktreePath()
	if err := repo.AddWorktree(ctx, worktree, target.DefaultBranch, false); err != nil {
		if goerr.HasTag(err, types.ErrTagWorktreeConflict) {
			logHolder(ctx, repo, worktree)
		}
		return nil, err
	}
	defer func() {
		if rmErr := repo.RemoveWorktree(ctx, worktree); rmErr != nil {
			if err == nil {
				err = rmErr
				return
			}
			logger.Error("failed to remove GitOps worktree", "dir", worktree, "error", rmErr)
		}
	}()

	values := filepath.Join(worktree, filepath.FromSlash(target.ValuesFilePath))
	change, err := uc.patcher.SetImageTag(ctx, values, remote.Tag)
	if err != nil {
		return nil, err
	}

	deployment := &model.Deployment{
		Repository:  repository,
		PreviousTag: change.Previous,
		Tag:         change.Current,
	}

	changed, err := repo.HasChanges(ctx, worktree)
	if err != nil {
		return nil, err
	}
	if !changed {
		logger.Info("Nothing to commit, manifest already references the image",
			"manifest", target.ValuesFilePath,
			"tag", remote.Tag,
			"tag_changed", change.Changed())
		return deployment, nil
	}

	if err := repo.StageAll(ctx, worktree); err != nil {
		return nil, err
	}
	if err := repo.Commit(ctx, worktree, uc.author, model.CommitMessage(repository, remote.Tag)); err != nil {
		return nil, err
	}
	deployment.Committed = true

	logger.Info("GitOps manifest updated",
		"manifest", target.ValuesFilePath,
		"previous", change.Previous,
		"tag", remote.Tag)
	return deployment, nil
}

// logHolder reports who holds the worktree a deploy could not attach
func logHolder(ctx context.Context, repo interfaces.GitRepository, dir string) {
	logger := ctxlog.From(ctx)
	worktrees, err := repo.ListWorktrees(ctx)
	if err != nil {
		logger.Warn("failed to list worktrees", "error", err)
		return
	}
	for _, wt := range worktrees {
		if filepath.Clean(wt.Path) == filepath.Clean(dir) {
			logger.Warn("GitOps worktree is held by another deploy",
				"dir", wt.Path,
				"branch", wt.Branch,
				"head", wt.Head)
			return
		}
	}
	logger.Warn("GitOps worktree location is occupied but not registered", "dir", dir)
}
