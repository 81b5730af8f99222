package testsupport

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// Commit describes one commit created by InitGitRepository.
type Commit struct {
	Author    string
	Email     string
	Timestamp int64
	// Files maps repository-relative paths to contents. An empty content
	// deletes the file.
	Files map[string]string
}

// InitGitRepository creates a repository under dir with the given commits.
// The test is skipped when git is not on PATH.
func InitGitRepository(t testing.TB, dir string, commits ...Commit) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	run := func(env []string, args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		cmd.Env = append(os.Environ(), env...)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	run(nil, "init", "--quiet")
	for _, c := range commits {
		for name, content := range c.Files {
			target := filepath.Join(dir, name)
			if content == "" {
				run(nil, "rm", "--quiet", name)
				continue
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				t.Fatalf("mkdir for %s: %v", target, err)
			}
			if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
				t.Fatalf("write %s: %v", target, err)
			}
			run(nil, "add", name)
		}
		date := fmt.Sprintf("@%d +0000", c.Timestamp)
		env := []string{
			"GIT_AUTHOR_NAME=" + c.Author,
			"GIT_AUTHOR_EMAIL=" + c.Email,
			"GIT_COMMITTER_NAME=" + c.Author,
			"GIT_COMMITTER_EMAIL=" + c.Email,
			"GIT_AUTHOR_DATE=" + date,
			"GIT_COMMITTER_DATE=" + date,
		}
		run(env, "commit", "--quiet", "-m", fmt.Sprintf("commit at %d", c.Timestamp))
	}
}
