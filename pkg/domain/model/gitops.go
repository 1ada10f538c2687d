package model

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// DefaultBranch is used when the GitOps repository's branch is not configured
const DefaultBranch = "master"

// DefaultGitOpsRepo is the GitOps repository an updater called without a name works on.
// The pipeline never applies it: an unset GITOPS_REPO ends the run after the push.
const DefaultGitOpsRepo = "gitops"

// ImageTagPath is the field path of the image tag inside an application's values manifest
var ImageTagPath = []string{"app-template", "controllers", "main", "containers", "main", "image", "tag"}

// GitOpsTarget locates the manifest of one application inside the GitOps repository
type GitOpsTarget struct {
	BareRepoPath   string
	DefaultBranch  string
	ValuesFilePath string // relative to the repository root, slash separated
}

// NewGitOpsTarget builds the target for repository. An empty branch falls back to DefaultBranch.
func NewGitOpsTarget(bareRepoPath, branch, repository string) GitOpsTarget {
	if branch == "" {
		branch = DefaultBranch
	}
	return GitOpsTarget{
		BareRepoPath:   bareRepoPath,
		DefaultBranch:  branch,
		ValuesFilePath: ValuesFilePath(repository),
	}
}

// ValuesFilePath returns the manifest path of repository inside the GitOps tree
func ValuesFilePath(repository string) string {
	return path.Join("apps", repository, "values.yaml")
}

// WorktreePath is the fixed location of the default branch worktree. Its existence is the
// lock that serializes deploys against the same GitOps repository.
func (t GitOpsTarget) WorktreePath() string {
	return filepath.Join(t.BareRepoPath, t.DefaultBranch)
}

// CommitMessage returns the message of the commit that moves repository to tag
func CommitMessage(repository, tag string) string {
	return fmt.Sprintf("chore(%s): update image tag to %s", repository, tag)
}

// GitAuthor is the identity used for GitOps commits
type GitAuthor struct {
	Name  string
	Email string
}

// String formats the author the way git prints it
func (a GitAuthor) String() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// TagPathString renders ImageTagPath for messages
func TagPathString() string {
	return strings.Join(ImageTagPath, ".")
}

// Deployment is the outcome of pointing one application at a new image
type Deployment struct {
	// Repository identifies the application for the sync notification
	Repository  string
	PreviousTag string
	Tag         string
	// Committed is false when the manifest already referenced the image
	Committed bool
}

// TagChange is one rewrite of the image tag in a values manifest
type TagChange struct {
	Previous string
	Current  string
}

// Changed reports whether the manifest referenced another tag before
func (c TagChange) Changed() bool {
	return c.Previous != c.Current
}
