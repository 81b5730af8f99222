package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"gitreel/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITREEL_API_TOKEN", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "gitreel", "renders")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.Render.MaxConcurrent != 1 {
		t.Fatalf("expected default concurrency 1, got %d", cfg.Render.MaxConcurrent)
	}
	if cfg.Render.DefaultProfile != "everything_1m" {
		t.Fatalf("unexpected default profile %q", cfg.Render.DefaultProfile)
	}
	if cfg.Tools.Gource != "gource" || cfg.Tools.FFmpeg != "ffmpeg" || cfg.Tools.Git != "git" {
		t.Fatalf("unexpected tool defaults: %+v", cfg.Tools)
	}
	if cfg.API.Bind != "127.0.0.1:7488" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if cfg.Identity.Enabled {
		t.Fatal("expected identity resolution disabled by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.OutputDir, cfg.Paths.TempDir, cfg.Paths.AudioDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "gitreel.toml")
	t.Setenv("GITHUB_TOKEN", "")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Render struct {
			MaxConcurrent int `toml:"max_concurrent"`
		} `toml:"render"`
		Identity struct {
			Enabled     bool   `toml:"enabled"`
			GitHubToken string `toml:"github_token"`
		} `toml:"identity"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "videos")
	custom.Render.MaxConcurrent = 3
	custom.Identity.Enabled = true
	custom.Identity.GitHubToken = " file-token "
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempDir, "videos") {
		t.Fatalf("expected output dir override, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Render.MaxConcurrent != 3 {
		t.Fatalf("expected max_concurrent 3, got %d", cfg.Render.MaxConcurrent)
	}
	if cfg.Identity.GitHubToken != "file-token" {
		t.Fatalf("expected trimmed token, got %q", cfg.Identity.GitHubToken)
	}
}

func TestEnvVarOverridesGitHubToken(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "gitreel.toml")
	if err := os.WriteFile(configPath, []byte("[identity]\ngithub_token = \"file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GITHUB_TOKEN", "env")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Identity.GitHubToken != "env" {
		t.Fatalf("expected env token, got %q", cfg.Identity.GitHubToken)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "zero concurrency",
			mutate: func(c *config.Config) { c.Render.MaxConcurrent = 0 },
			want:   "render.max_concurrent",
		},
		{
			name:   "audio dir equals output dir",
			mutate: func(c *config.Config) { c.Paths.AudioDir = c.Paths.OutputDir },
			want:   "paths.audio_dir",
		},
		{
			name: "identity base url",
			mutate: func(c *config.Config) {
				c.Identity.Enabled = true
				c.Identity.BaseURL = "ftp://example"
			},
			want: "identity.base_url",
		},
		{
			name:   "notification timeout",
			mutate: func(c *config.Config) { c.Notifications.RequestTimeout = 0 },
			want:   "notifications.request_timeout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLogFormatFallsBackToConsole(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "gitreel.toml")
	if err := os.WriteFile(configPath, []byte("[logging]\nformat = \"XML\"\nlevel = \" DEBUG \"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected console fallback, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized level, got %q", cfg.Logging.Level)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config should load: exists=%v err=%v", exists, err)
	}
}

func TestAPIURL(t *testing.T) {
	cfg := config.Default()
	cfg.API.Bind = ":9000"
	if got := cfg.APIURL(); got != "http://127.0.0.1:9000" {
		t.Fatalf("unexpected api url %q", got)
	}
}
