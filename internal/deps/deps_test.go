package deps

import (
	"os"
	"path/filepath"
	"testing"

	"gitreel/internal/config"
	"gitreel/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank command result %#v", results[2])
	}
}

func TestCheckSystemUsesConfiguredTools(t *testing.T) {
	binDir := t.TempDir()
	script := []byte("#!/bin/sh\nexit 0\n")
	for _, name := range []string{"git", "gource"} {
		if err := os.WriteFile(filepath.Join(binDir, name), script, 0o755); err != nil {
			t.Fatalf("write stub: %v", err)
		}
	}
	t.Setenv("PATH", binDir)

	cfg := config.Default()
	cfg.Tools.FFmpeg = "ffmpeg-not-installed"
	statuses := CheckSystem(&cfg)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if !statuses[0].Available || !statuses[1].Available {
		t.Fatalf("git and gource should resolve from PATH: %#v", statuses)
	}
	if statuses[0].Detail != filepath.Join(binDir, "git") {
		t.Fatalf("expected resolved path detail, got %q", statuses[0].Detail)
	}
	if statuses[2].Available {
		t.Fatal("ffmpeg should be missing")
	}
	if missing := Missing(statuses); len(missing) != 0 {
		t.Fatalf("optional encoder should not count as missing, got %v", missing)
	}

	cfg.Tools.Gource = "gource-not-installed"
	if missing := Missing(CheckSystem(&cfg)); len(missing) != 1 || missing[0] != "Gource" {
		t.Fatalf("expected Gource missing, got %v", missing)
	}
}

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if res := CheckDirectoryAccess("Output", dir); !res.Passed {
		t.Fatalf("expected writable temp dir to pass, got %q", res.Detail)
	}

	missing := filepath.Join(dir, "absent")
	if res := CheckDirectoryAccess("Output", missing); res.Passed {
		t.Fatal("missing directory should fail")
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if res := CheckDirectoryAccess("Output", file); res.Passed {
		t.Fatal("regular file should fail the directory check")
	}
}

func TestCheckDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.TempDir = filepath.Join(base, "tmp")
	cfg.Paths.AudioDir = filepath.Join(base, "audio")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, res := range CheckDirectories(&cfg) {
		if !res.Passed {
			t.Fatalf("%s should pass: %s", res.Name, res.Detail)
		}
	}
}

func TestCheckSystemFindsStubbedTools(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	binDir := filepath.Join(testsupport.BaseDir(cfg), "bin")

	statuses := CheckSystem(cfg)
	for _, status := range statuses {
		if !status.Available {
			t.Fatalf("%s should resolve from the stub dir: %s", status.Name, status.Detail)
		}
		if status.Detail != filepath.Join(binDir, status.Command) {
			t.Fatalf("%s resolved to %q, want stub in %s", status.Name, status.Detail, binDir)
		}
	}
	if missing := Missing(statuses); len(missing) != 0 {
		t.Fatalf("expected nothing missing, got %v", missing)
	}
}
