package model

// Workspace is a disposable detached checkout of a pushed commit
type Workspace struct {
	Dir    string
	Commit string
}

// Worktree is one entry of `git worktree list`
type Worktree struct {
	Path     string
	Head     string
	Branch   string
	Bare     bool
	Detached bool
}
