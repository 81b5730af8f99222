package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeRender()
	c.normalizeIdentity()
	c.normalizeAPI()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.data_dir", &c.Paths.DataDir, defaultDataDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.temp_dir", &c.Paths.TempDir, defaultTempDir},
		{"paths.audio_dir", &c.Paths.AudioDir, defaultAudioDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.Gource = fallbackString(c.Tools.Gource, defaultGourceBinary)
	c.Tools.FFmpeg = fallbackString(c.Tools.FFmpeg, defaultFFmpegBinary)
	c.Tools.Git = fallbackString(c.Tools.Git, defaultGitBinary)
}

func (c *Config) normalizeRender() {
	c.Render.DefaultProfile = fallbackString(c.Render.DefaultProfile, defaultProfile)
	if c.Render.DiagnosticLimitBytes <= 0 {
		c.Render.DiagnosticLimitBytes = defaultDiagnosticLimitBytes
	}
}

func (c *Config) normalizeIdentity() {
	c.Identity.GitHubToken = strings.TrimSpace(c.Identity.GitHubToken)
	if value, ok := os.LookupEnv("GITHUB_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Identity.GitHubToken = strings.TrimSpace(value)
	}
	c.Identity.BaseURL = strings.TrimRight(fallbackString(c.Identity.BaseURL, defaultIdentityBaseURL), "/")
}

func (c *Config) normalizeAPI() {
	c.API.Bind = fallbackString(c.API.Bind, defaultAPIBind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("GITREEL_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func fallbackString(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
