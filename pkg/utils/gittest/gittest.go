// Package gittest builds throwaway git repositories for tests that exercise real git.
package gittest

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// RequireGit skips the test when the git binary is not available
func RequireGit(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not available")
	}
}

// Run runs git in dir and returns its trimmed stdout. The test fails on a non-zero exit.
func Run(t testing.TB, dir string, args ...string) string {
	t.Helper()
	args = append([]string{"-c", "user.name=test", "-c", "user.email=test@example.com"}, args...)
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = env()

	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

func env() []string {
	var out []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "GIT_") {
			continue
		}
		out = append(out, kv)
	}
	return append(out, "GIT_CONFIG_NOSYSTEM=1")
}

// NewBareRepo creates <dir>/<name>.git whose master branch has one commit with files.
// It returns the bare repository path and the commit id.
func NewBareRepo(t testing.TB, dir, name string, files map[string]string) (string, string) {
	t.Helper()

	src := t.TempDir()
	Run(t, src, "init", "--initial-branch=master")
	WriteFiles(t, src, files)
	Run(t, src, "add", "--all")
	Run(t, src, "commit", "--allow-empty", "--message", "initial")

	bare := filepath.Join(dir, name+".git")
	Run(t, dir, "clone", "--bare", src, bare)
	return bare, Run(t, bare, "rev-parse", "HEAD")
}

// AddCommit commits files on top of branch of the bare repository and returns the new commit id
func AddCommit(t testing.TB, bare, branch string, files map[string]string) string {
	t.Helper()

	src := t.TempDir()
	Run(t, src, "clone", "--branch", branch, bare, ".")
	WriteFiles(t, src, files)
	Run(t, src, "add", "--all")
	Run(t, src, "commit", "--allow-empty", "--message", "update")
	Run(t, src, "push", "origin", branch)
	return Run(t, src, "rev-parse", "HEAD")
}

// WriteFiles writes files relative to dir, creating parent directories
func WriteFiles(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// CommitCount returns the number of commits reachable from rev
func CommitCount(t testing.TB, bare, rev string) int {
	t.Helper()
	n, err := strconv.Atoi(Run(t, bare, "rev-list", "--count", rev))
	if err != nil {
		t.Fatal(err)
	}
	return n
}

// Show returns the content of path at rev
func Show(t testing.TB, bare, rev, path string) string {
	t.Helper()
	cmd := exec.Command("git", "show", rev+":"+path)
	cmd.Dir = bare
	cmd.Env = env()
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("git show %s:%s: %v", rev, path, err)
	}
	return string(out)
}

// WorktreePaths returns the linked worktrees of the bare repository, excluding the main entry
func WorktreePaths(t testing.TB, bare string) []string {
	t.Helper()
	var paths []string
	for _, line := range strings.Split(Run(t, bare, "worktree", "list", "--porcelain"), "\n") {
		p, ok := strings.CutPrefix(line, "worktree ")
		if !ok {
			continue
		}
		if sameDir(p, bare) {
			continue
		}
		paths = append(paths, p)
	}
	return paths
}

func sameDir(a, b string) bool {
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return ra == rb
}
