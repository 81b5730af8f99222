package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gitreel/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

// setupCLITestEnv writes a config whose directories live under a temp dir and
// whose API address refuses connections, so daemon-backed commands fall back
// to the local store.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("GITREEL_API_TOKEN", "")
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %[1]q
output_dir = %[2]q
temp_dir = %[3]q
audio_dir = %[4]q
log_dir = %[5]q

[api]
bind = "127.0.0.1:1"

[notifications]
ntfy_topic = ""
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "renders"),
		filepath.Join(base, "tmp"),
		filepath.Join(base, "audio"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, text, want string) {
	t.Helper()
	if !strings.Contains(text, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, text)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestReposAndProjects(t *testing.T) {
	env := setupCLITestEnv(t)
	apiDir := filepath.Join(env.baseDir, "src", "api")
	webDir := filepath.Join(env.baseDir, "src", "web")

	out, _, err := runCLI(t, env, "repos", "add", "--no-validate", apiDir)
	if err != nil {
		t.Fatalf("repos add: %v", err)
	}
	requireContains(t, out, "Registered "+apiDir+" as api")

	out, _, err = runCLI(t, env, "--json", "repos", "add", "--no-validate", "--name", "Web", webDir)
	if err != nil {
		t.Fatalf("repos add web: %v", err)
	}
	var web repoView
	if err := json.Unmarshal([]byte(out), &web); err != nil {
		t.Fatalf("decode repo: %v\n%s", err, out)
	}
	if web.Name != "Web" || web.Path != webDir || web.ID == "" {
		t.Fatalf("unexpected repo %+v", web)
	}

	if _, _, err := runCLI(t, env, "repos", "add", "--no-validate", apiDir); err == nil {
		t.Fatal("expected duplicate path to be rejected")
	}

	out, _, err = runCLI(t, env, "--json", "repos", "list")
	if err != nil {
		t.Fatalf("repos list: %v", err)
	}
	var repos []repoView
	if err := json.Unmarshal([]byte(out), &repos); err != nil {
		t.Fatalf("decode repos: %v", err)
	}
	if len(repos) != 2 {
		t.Fatalf("expected 2 repos, got %d", len(repos))
	}

	ids := []string{}
	for _, r := range repos {
		ids = append(ids, r.ID)
	}
	out, _, err = runCLI(t, env, append([]string{"projects", "add", "Platform"}, ids...)...)
	if err != nil {
		t.Fatalf("projects add: %v", err)
	}
	requireContains(t, out, "Created project Platform")

	out, _, err = runCLI(t, env, "projects", "list")
	if err != nil {
		t.Fatalf("projects list: %v", err)
	}
	requireContains(t, out, "Platform")
	requireContains(t, out, "Web")

	if _, _, err := runCLI(t, env, "repos", "remove", web.ID); err != nil {
		t.Fatalf("repos remove: %v", err)
	}
	out, _, err = runCLI(t, env, "repos", "list")
	if err != nil {
		t.Fatalf("repos list: %v", err)
	}
	if strings.Contains(out, webDir) {
		t.Fatalf("removed repo still listed:\n%s", out)
	}
}

func TestProfilesImportShowExportDelete(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "profiles", "list")
	if err != nil {
		t.Fatalf("profiles list: %v", err)
	}
	requireContains(t, out, "everything_1m")

	file := filepath.Join(env.baseDir, "team.yaml")
	yamlDoc := `id: team_recap
name: Team Recap
settings:
  secondsPerDay: 0.5
  cameraMode: track
`
	if err := os.WriteFile(file, []byte(yamlDoc), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	out, _, err = runCLI(t, env, "profiles", "import", file)
	if err != nil {
		t.Fatalf("profiles import: %v", err)
	}
	requireContains(t, out, "Imported profile team_recap")

	out, _, err = runCLI(t, env, "profiles", "show", "team_recap")
	if err != nil {
		t.Fatalf("profiles show: %v", err)
	}
	requireContains(t, out, "cameraMode")
	requireContains(t, out, "track")

	out, _, err = runCLI(t, env, "profiles", "export")
	if err != nil {
		t.Fatalf("profiles export: %v", err)
	}
	requireContains(t, out, "id: team_recap")
	if strings.Contains(out, "everything_1m") {
		t.Fatalf("export without ids should skip system profiles:\n%s", out)
	}

	if _, _, err := runCLI(t, env, "profiles", "delete", "everything_1m"); err == nil {
		t.Fatal("expected system profile delete to fail")
	}
	if _, _, err := runCLI(t, env, "profiles", "delete", "team_recap"); err != nil {
		t.Fatalf("profiles delete: %v", err)
	}
	if _, _, err := runCLI(t, env, "profiles", "show", "team_recap"); err == nil {
		t.Fatal("expected deleted profile to be gone")
	}
}

func TestJobsListFallsBackToHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "jobs", "list")
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, "No render jobs")

	if _, _, err := runCLI(t, env, "jobs", "cancel", "abc"); err == nil || !strings.Contains(err.Error(), "gitreel daemon") {
		t.Fatalf("expected daemon unreachable error, got %v", err)
	}
}

func TestRenderRequiresSource(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "render")
	if err == nil || !strings.Contains(err.Error(), "--project") {
		t.Fatalf("expected missing source error, got %v", err)
	}
}

func TestLogWritesFusedHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	apiDir := filepath.Join(env.baseDir, "src", "api")
	webDir := filepath.Join(env.baseDir, "src", "web")
	testsupport.InitGitRepository(t, apiDir,
		testsupport.Commit{Author: "Ann", Email: "ann@example.com", Timestamp: 1_700_000_000, Files: map[string]string{"main.go": "package main\n"}},
		testsupport.Commit{Author: "Bob", Email: "bob@example.com", Timestamp: 1_700_000_200, Files: map[string]string{"main.go": "package main\n\nfunc main() {}\n"}},
	)
	testsupport.InitGitRepository(t, webDir,
		testsupport.Commit{Author: "Cy", Email: "cy@example.com", Timestamp: 1_700_000_100, Files: map[string]string{"index.html": "<html></html>\n"}},
	)

	if _, _, err := runCLI(t, env, "repos", "add", apiDir); err != nil {
		t.Fatalf("repos add: %v", err)
	}

	out, stderr, err := runCLI(t, env, "log", "api", webDir)
	if err != nil {
		t.Fatalf("log: %v (%s)", err, stderr)
	}
	want := []string{
		"1700000000|Ann|A|/api/main.go",
		"1700000100|Cy|A|/web/index.html",
		"1700000200|Bob|M|/api/main.go",
	}
	got := strings.Split(strings.TrimSpace(out), "\n")
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected log:\n%s", out)
	}
	requireContains(t, stderr, "3 records from 2 repositories")
}

func TestLogRejectsRepeatedRepository(t *testing.T) {
	env := setupCLITestEnv(t)
	apiDir := filepath.Join(env.baseDir, "src", "api")
	testsupport.InitGitRepository(t, apiDir,
		testsupport.Commit{Author: "Ann", Email: "ann@example.com", Timestamp: 1_700_000_000, Files: map[string]string{"main.go": "package main\n"}},
	)
	if _, _, err := runCLI(t, env, "repos", "add", apiDir); err != nil {
		t.Fatalf("repos add: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := runCLI(t, env, "log", "api", apiDir+string(filepath.Separator))
		done <- err
	}()
	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "same repository") {
			t.Fatalf("expected duplicate repository error, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("log with a repeated repository did not return")
	}
}

func TestDepsReportsMissingTools(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("PATH", t.TempDir())

	out, _, err := runCLI(t, env, "deps")
	if err == nil {
		t.Fatal("expected missing dependencies to fail the command")
	}
	requireContains(t, out, "missing")
	requireContains(t, out, "read/write ok")
}
