package config

import (
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
	"github.com/m-mizutani/pushdeploy/pkg/infra/webhook"
	"github.com/urfave/cli/v3"
)

// Default identity of GitOps commits
const (
	DefaultGitUserName  = "pushdeploy[bot]"
	DefaultGitUserEmail = "pushdeploy@localhost"
)

// Pipeline holds the settings of the build and deploy pipeline. The variable names follow
// what soft-serve exports to its hooks.
type Pipeline struct {
	Repository    string
	RepoDir       string
	ReposDir      string
	RegistryHost  string
	PushMethod    string
	GitOpsRepo    string
	DefaultBranch string
	GitUserName   string
	GitUserEmail  string
	SyncEndpoint  string
	PublicGitURL  string
	CIPolicy      string
}

// Flags returns CLI flags for pipeline configuration
func (c *Pipeline) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository",
			Usage:       "Name of the pushed repository",
			Destination: &c.Repository,
			Sources:     cli.EnvVars("SOFT_SERVE_REPO_NAME"),
		},
		&cli.StringFlag{
			Name:        "repo-dir",
			Usage:       "Bare repository that received the push",
			Value:       ".",
			Destination: &c.RepoDir,
			Sources:     cli.EnvVars("REPO_DIR"),
		},
		&cli.StringFlag{
			Name:        "repos-dir",
			Usage:       "Directory holding all bare repositories (default: parent of --repo-dir)",
			Destination: &c.ReposDir,
			Sources:     cli.EnvVars("REPOS_DIR"),
		},
		&cli.StringFlag{
			Name:        "registry-host",
			Usage:       "Remote registry to push images to; pipeline stops after build when empty",
			Destination: &c.RegistryHost,
			Sources:     cli.EnvVars("REGISTRY_HOST"),
		},
		&cli.StringFlag{
			Name:        "registry-push-method",
			Usage:       "How images are pushed (docker, crane)",
			Value:       string(model.PushMethodDocker),
			Destination: &c.PushMethod,
			Sources:     cli.EnvVars("REGISTRY_PUSH_METHOD"),
		},
		&cli.StringFlag{
			Name:        "gitops-repo",
			Usage:       "GitOps repository name; pipeline stops after push when empty",
			Destination: &c.GitOpsRepo,
			Sources:     cli.EnvVars("GITOPS_REPO"),
		},
		&cli.StringFlag{
			Name:        "default-branch",
			Usage:       "Branch of the GitOps repository to update",
			Value:       model.DefaultBranch,
			Destination: &c.DefaultBranch,
			Sources:     cli.EnvVars("DEFAULT_BRANCH"),
		},
		&cli.StringFlag{
			Name:        "git-user-name",
			Usage:       "Author name of GitOps commits",
			Value:       DefaultGitUserName,
			Destination: &c.GitUserName,
			Sources:     cli.EnvVars("GIT_USER_NAME"),
		},
		&cli.StringFlag{
			Name:        "git-user-email",
			Usage:       "Author email of GitOps commits",
			Value:       DefaultGitUserEmail,
			Destination: &c.GitUserEmail,
			Sources:     cli.EnvVars("GIT_USER_EMAIL"),
		},
		&cli.StringFlag{
			Name:        "argocd-webhook-endpoint",
			Usage:       "Endpoint receiving the sync webhook; no notification when empty",
			Destination: &c.SyncEndpoint,
			Sources:     cli.EnvVars("ARGOCD_WEBHOOK_ENDPOINT"),
		},
		&cli.StringFlag{
			Name:        "git-http-public-url",
			Usage:       "Base URL repositories are served at, used in the sync webhook",
			Value:       webhook.DefaultPublicURL,
			Destination: &c.PublicGitURL,
			Sources:     cli.EnvVars("GIT_HTTP_PUBLIC_URL"),
		},
		&cli.StringFlag{
			Name:        "ci-policy",
			Usage:       "What a failing CI run does (skip, best-effort, required)",
			Value:       string(model.CIPolicyBestEffort),
			Destination: &c.CIPolicy,
			Sources:     cli.EnvVars("CI_POLICY"),
		},
	}
}

// Build returns the configuration of a hook invocation. The repository name is required.
func (c *Pipeline) Build() (model.DeployConfig, error) {
	if c.Repository == "" {
		return model.DeployConfig{}, goerr.New("SOFT_SERVE_REPO_NAME is required",
			goerr.T(types.ErrTagInvalidArgument))
	}

	cfg, err := c.Base()
	if err != nil {
		return model.DeployConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return model.DeployConfig{}, err
	}
	return cfg, nil
}

// Base returns the configuration shared by every repository in serve mode. The repository
// name may be empty.
func (c *Pipeline) Base() (model.DeployConfig, error) {
	repoDir := c.RepoDir
	if repoDir == "" {
		repoDir = "."
	}
	repoDir, err := filepath.Abs(repoDir)
	if err != nil {
		return model.DeployConfig{}, goerr.Wrap(err, "failed to resolve repository directory",
			goerr.V("repo_dir", c.RepoDir))
	}

	reposDir := c.ReposDir
	if reposDir == "" {
		reposDir = filepath.Dir(repoDir)
	}
	if reposDir, err = filepath.Abs(reposDir); err != nil {
		return model.DeployConfig{}, goerr.Wrap(err, "failed to resolve repositories directory",
			goerr.V("repos_dir", c.ReposDir))
	}

	cfg := model.DeployConfig{
		Repository:    c.Repository,
		RepoDir:       repoDir,
		ReposDir:      reposDir,
		RegistryHost:  c.RegistryHost,
		PushMethod:    model.PushMethod(c.PushMethod),
		GitOpsRepo:    c.GitOpsRepo,
		DefaultBranch: c.DefaultBranch,
		Author: model.GitAuthor{
			Name:  c.GitUserName,
			Email: c.GitUserEmail,
		},
		SyncEndpoint: c.SyncEndpoint,
		PublicGitURL: c.PublicGitURL,
		CIPolicy:     model.CIPolicy(c.CIPolicy),
	}
	if err := cfg.ValidateSettings(); err != nil {
		return model.DeployConfig{}, err
	}
	return cfg, nil
}
