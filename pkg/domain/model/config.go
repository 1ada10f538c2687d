package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
)

// PushMethod selects how a local image reaches the remote registry
type PushMethod string

const (
	PushMethodDocker PushMethod = "docker"
	PushMethodCrane  PushMethod = "crane"
)

// DeployConfig is the complete, immutable pipeline configuration. It is built once at
// startup and passed by value; an empty optional field disables the stage that needs it.
type DeployConfig struct {
	Repository string // required
	RepoDir    string // bare repository that received the push
	ReposDir   string // directory holding all bare repositories

	RegistryHost string
	PushMethod   PushMethod

	GitOpsRepo    string
	DefaultBranch string
	Author        GitAuthor

	SyncEndpoint string
	PublicGitURL string
	SlackWebhook string `masq:"secret"`
	CIPolicy     CIPolicy
}

// Validate checks the invariants every pipeline run relies on
func (c DeployConfig) Validate() error {
	if c.Repository == "" {
		return goerr.New("repository name is required", goerr.T(types.ErrTagInvalidArgument))
	}
	if c.RepoDir == "" {
		return goerr.New("repository directory is required", goerr.T(types.ErrTagInvalidArgument))
	}
	return c.ValidateSettings()
}

// ValidateSettings checks the settings that do not depend on the pushed repository
func (c DeployConfig) ValidateSettings() error {
	if !c.CIPolicy.Valid() {
		return goerr.New("unknown CI policy",
			goerr.V("policy", c.CIPolicy),
			goerr.T(types.ErrTagInvalidArgument))
	}
	switch c.PushMethod {
	case PushMethodDocker, PushMethodCrane:
	default:
		return goerr.New("unknown registry push method",
			goerr.V("method", c.PushMethod),
			goerr.T(types.ErrTagInvalidArgument))
	}
	return nil
}

// WithRepository returns a copy of c for another pushed repository
func (c DeployConfig) WithRepository(repository, repoDir string) DeployConfig {
	c.Repository = repository
	c.RepoDir = repoDir
	return c
}
