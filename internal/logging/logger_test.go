package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gitreel/internal/config"
	"gitreel/internal/logging"
	"gitreel/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello file")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "gitreel.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello file") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func newFileLogger(t *testing.T, format, level string) (func(), string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "out.log")
	noColor := false
	logger, err := logging.New(logging.Options{
		Format:           format,
		Level:            level,
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
		Color:            &noColor,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	component := logging.NewComponentLogger(logger, "render")
	return func() {
		component.Info("job finished", logging.String("status", "completed"), logging.Int("progress", 100))
		component.Debug("debug detail")
	}, logPath
}

func TestConsoleLoggerFormat(t *testing.T) {
	emit, logPath := newFileLogger(t, "console", "info")
	emit()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(content))
	if !strings.Contains(line, "INFO render: job finished") {
		t.Fatalf("unexpected console line %q", line)
	}
	if !strings.Contains(line, "status=completed") || !strings.Contains(line, "progress=100") {
		t.Fatalf("expected attributes in %q", line)
	}
	if strings.Contains(line, "debug detail") {
		t.Fatalf("debug line should be filtered at info level: %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("expected no colour codes: %q", line)
	}
}

func TestJSONLoggerKeys(t *testing.T) {
	emit, logPath := newFileLogger(t, "json", "info")
	emit()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, key := range []string{`"ts":`, `"level":"info"`, `"msg":"job finished"`, `"component":"render"`} {
		if !strings.Contains(string(content), key) {
			t.Fatalf("expected %s in %q", key, content)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsJobID(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithJobID(context.Background(), "job-123")
	logging.WithContext(ctx, logger).Info("tagged")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"job_id":"job-123"`) {
		t.Fatalf("expected job_id in %q", content)
	}
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := logging.NewProgressSampler(10)
	if !s.ShouldLog(0, "running") {
		t.Fatal("first observation should log")
	}
	if s.ShouldLog(5, "running") {
		t.Fatal("same bucket should not log")
	}
	if !s.ShouldLog(12, "running") {
		t.Fatal("new bucket should log")
	}
	if !s.ShouldLog(12, "encoding") {
		t.Fatal("status change should log")
	}
	s.Reset()
	if !s.ShouldLog(12, "encoding") {
		t.Fatal("reset should allow logging again")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "camera mode coerced", "compile_warning")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, key := range []string{`"event_type":"compile_warning"`, `"error_hint":`, `"impact":`} {
		if !strings.Contains(string(content), key) {
			t.Fatalf("expected %s in %q", key, content)
		}
	}
}

func TestConsoleLoggerLiftsJobID(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "job.log")
	noColor := false
	logger, err := logging.New(logging.Options{Level: "info", OutputPaths: []string{logPath}, Color: &noColor})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithJobID(context.Background(), "1a2b3c4d-5e6f-4711-8899-aabbccddeeff")
	component := logging.NewComponentLogger(logger, "render")
	logging.WithContext(ctx, component).Info("encoder started", logging.Group("tool", logging.String("name", "ffmpeg")))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(content))
	if !strings.Contains(line, "INFO render [job 1a2b3c4d]: encoder started") {
		t.Fatalf("expected job prefix in %q", line)
	}
	if !strings.Contains(line, "tool.name=ffmpeg") {
		t.Fatalf("expected flattened group in %q", line)
	}
	if strings.Contains(line, "job_id=") {
		t.Fatalf("job_id should move into the prefix: %q", line)
	}
}
