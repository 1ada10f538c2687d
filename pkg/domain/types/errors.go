package types

import "github.com/m-mizutani/goerr/v2"

// Error tags classify pipeline failures. Only ErrTagConfigMissing is recovered by the
// pipeline (the stage is skipped); every other tag aborts the run.
var (
	ErrTagConfigMissing    = goerr.NewTag("config_missing")
	ErrTagInvalidArgument  = goerr.NewTag("invalid_argument")
	ErrTagExternalTool     = goerr.NewTag("external_tool")
	ErrTagWorkspace        = goerr.NewTag("workspace")
	ErrTagPush             = goerr.NewTag("push")
	ErrTagWorktreeConflict = goerr.NewTag("worktree_conflict")
	ErrTagManifestNotFound = goerr.NewTag("manifest_not_found")
	ErrTagManifestParse    = goerr.NewTag("manifest_parse")
	ErrTagManifestPath     = goerr.NewTag("manifest_path")
	ErrTagGitOperation     = goerr.NewTag("git_operation")
	ErrTagNotify           = goerr.NewTag("notify")
)
