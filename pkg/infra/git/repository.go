package git

import (
	"bufio"
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

// Repository runs git against one bare repository and the worktrees attached to it
type Repository struct {
	runner interfaces.ProcessRunner
	gitDir string
	env    []string
}

// Option is a functional option for Repository
type Option func(*Repository)

// WithQuarantine keeps the push quarantine variables git exports to hooks, so objects that
// arrived with the push being processed are visible. Use it only for the pushed repository.
func WithQuarantine() Option {
	return func(r *Repository) {
		r.env = process.HookEnv(true)
	}
}

// New creates a Repository for the git dir at path
func New(runner interfaces.ProcessRunner, path string, opts ...Option) (*Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve repository path", goerr.V("path", path))
	}

	r := &Repository{
		runner: runner,
		gitDir: abs,
		env:    process.HookEnv(false),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

var _ interfaces.GitRepository = (*Repository)(nil)

// Path returns the absolute git dir
func (r *Repository) Path() string {
	return r.gitDir
}

// run runs a repository level command
func (r *Repository) run(ctx context.Context, args ...string) (*model.CommandResult, error) {
	return r.runner.Run(ctx, model.Command{
		Name: "git",
		Args: append([]string{"--git-dir", r.gitDir}, args...),
		Env:  r.env,
	})
}

// runIn runs a command inside a linked worktree, which finds its own git dir
func (r *Repository) runIn(ctx context.Context, dir string, args ...string) (*model.CommandResult, error) {
	return r.runner.Run(ctx, model.Command{
		Name: "git",
		Args: args,
		Dir:  dir,
		Env:  r.env,
	})
}

// ResolveCommit returns the full id of the commit rev points to
func (r *Repository) ResolveCommit(ctx context.Context, rev string) (string, error) {
	result, err := r.run(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve commit",
			goerr.V("repo", r.gitDir),
			goerr.V("rev", rev),
			goerr.T(types.ErrTagGitOperation))
	}
	return strings.TrimSpace(result.Stdout), nil
}

// AddWorktree attaches a worktree at dir. With detach the worktree has no branch checked out.
func (r *Repository) AddWorktree(ctx context.Context, dir, commitish string, detach bool) error {
	args := []string{"worktree", "add"}
	if detach {
		args = append(args, "--detach")
	}
	args = append(args, dir, commitish)

	result, err := r.run(ctx, args...)
	if err != nil {
		opts := []goerr.Option{
			goerr.V("repo", r.gitDir),
			goerr.V("dir", dir),
			goerr.V("commitish", commitish),
		}
		if result != nil && isWorktreeConflict(result.Stderr) {
			return goerr.Wrap(err, "worktree already exists", append(opts, goerr.T(types.ErrTagWorktreeConflict))...)
		}
		return goerr.Wrap(err, "failed to add worktree", append(opts, goerr.T(types.ErrTagGitOperation))...)
	}

	ctxlog.From(ctx).Debug("Added worktree", "repo", r.gitDir, "dir", dir, "commitish", commitish)
	return nil
}

func isWorktreeConflict(stderr string) bool {
	for _, s := range []string{"already exists", "is already checked out", "is already used by worktree", "already registered"} {
		if strings.Contains(stderr, s) {
			return true
		}
	}
	return false
}

// RemoveWorktree detaches the worktree at dir and deletes it, discarding local changes. When
// git refuses, the directory is removed and stale registrations are pruned.
func (r *Repository) RemoveWorktree(ctx context.Context, dir string) error {
	logger := ctxlog.From(ctx)

	_, err := r.run(ctx, "worktree", "remove", "--force", "--force", dir)
	if err == nil {
		logger.Debug("Removed worktree", "repo", r.gitDir, "dir", dir)
		return nil
	}
	logger.Warn("git worktree remove failed, pruning instead", "dir", dir, "error", err)

	if err := os.RemoveAll(dir); err != nil {
		return goerr.Wrap(err, "failed to delete worktree directory",
			goerr.V("dir", dir),
			goerr.T(types.ErrTagGitOperation))
	}
	if _, err := r.run(ctx, "worktree", "prune"); err != nil {
		return goerr.Wrap(err, "failed to prune worktrees",
			goerr.V("repo", r.gitDir),
			goerr.T(types.ErrTagGitOperation))
	}
	return nil
}

// ListWorktrees returns every worktree of the repository, including the bare main entry
func (r *Repository) ListWorktrees(ctx context.Context) ([]model.Worktree, error) {
	result, err := r.run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list worktrees",
			goerr.V("repo", r.gitDir),
			goerr.T(types.ErrTagGitOperation))
	}
	return parseWorktreeList(result.Stdout), nil
}

func parseWorktreeList(out string) []model.Worktree {
	var worktrees []model.Worktree
	var cur *model.Worktree

	flush := func() {
		if cur != nil {
			worktrees = append(worktrees, *cur)
			cur = nil
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		key, value, _ := strings.Cut(line, " ")
		switch key {
		case "":
			flush()
		case "worktree":
			flush()
			cur = &model.Worktree{Path: value}
		case "HEAD":
			if cur != nil {
				cur.Head = value
			}
		case "branch":
			if cur != nil {
				cur.Branch = strings.TrimPrefix(value, "refs/heads/")
			}
		case "bare":
			if cur != nil {
				cur.Bare = true
			}
		case "detached":
			if cur != nil {
				cur.Detached = true
			}
		}
	}
	flush()

	return worktrees
}

// HasChanges reports whether the worktree at dir differs from its HEAD commit
func (r *Repository) HasChanges(ctx context.Context, dir string) (bool, error) {
	result, err := r.runIn(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, goerr.Wrap(err, "failed to get worktree status",
			goerr.V("dir", dir),
			goerr.T(types.ErrTagGitOperation))
	}
	return strings.TrimSpace(result.Stdout) != "", nil
}

// StageAll stages every change in the worktree at dir
func (r *Repository) StageAll(ctx context.Context, dir string) error {
	if _, err := r.runIn(ctx, dir, "add", "--all"); err != nil {
		return goerr.Wrap(err, "failed to stage changes",
			goerr.V("dir", dir),
			goerr.T(types.ErrTagGitOperation))
	}
	return nil
}

// Commit records the staged changes of the worktree at dir
func (r *Repository) Commit(ctx context.Context, dir string, author model.GitAuthor, message string) error {
	_, err := r.runIn(ctx, dir,
		"-c", "user.name="+author.Name,
		"-c", "user.email="+author.Email,
		"commit", "--message", message,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to commit",
			goerr.V("dir", dir),
			goerr.V("author", author.String()),
			goerr.T(types.ErrTagGitOperation))
	}
	return nil
}
