package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateIdentity(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"identity.timeout_seconds":      c.Identity.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.TempDir == "" {
		return errors.New("paths.temp_dir must be set")
	}
	if c.Paths.AudioDir == "" {
		return errors.New("paths.audio_dir must be set")
	}
	if filepath.Clean(c.Paths.AudioDir) == filepath.Clean(c.Paths.OutputDir) {
		return errors.New("paths.audio_dir must differ from paths.output_dir")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.MaxConcurrent < 1 {
		return errors.New("render.max_concurrent must be at least 1")
	}
	return nil
}

func (c *Config) validateIdentity() error {
	if !c.Identity.Enabled {
		return nil
	}
	if !strings.HasPrefix(c.Identity.BaseURL, "http://") && !strings.HasPrefix(c.Identity.BaseURL, "https://") {
		return fmt.Errorf("identity.base_url must be an http(s) URL, got %q", c.Identity.BaseURL)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
