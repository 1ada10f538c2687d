package process

import (
	"os"
	"strings"
)

// Variables git exports to hooks that bind a child git process to the repository that runs
// the hook. They must not leak into commands that operate on another repository or inside a
// worktree.
var gitRepoVars = []string{
	"GIT_DIR",
	"GIT_WORK_TREE",
	"GIT_INDEX_FILE",
	"GIT_PREFIX",
	"GIT_COMMON_DIR",
}

// Variables that point at the push quarantine. Commands against the pushed repository need
// them to see objects that are not yet migrated.
var gitObjectVars = []string{
	"GIT_OBJECT_DIRECTORY",
	"GIT_ALTERNATE_OBJECT_DIRECTORIES",
	"GIT_QUARANTINE_PATH",
}

// HookEnv returns the process environment without repository binding variables. When
// keepObjects is false the quarantine variables are dropped as well.
func HookEnv(keepObjects bool) []string {
	drop := append([]string{}, gitRepoVars...)
	if !keepObjects {
		drop = append(drop, gitObjectVars...)
	}
	return filterEnv(os.Environ(), drop)
}

func filterEnv(environ []string, drop []string) []string {
	out := make([]string, 0, len(environ))
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		keep := true
		for _, d := range drop {
			if name == d {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, kv)
		}
	}
	return out
}
