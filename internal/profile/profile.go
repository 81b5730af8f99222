package profile

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed system_profiles.yaml
var systemProfilesYAML []byte

// Profile is a named, reusable visualization configuration.
type Profile struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	System      bool     `json:"isSystemProfile" yaml:"-"`
	Settings    Settings `json:"settings" yaml:"settings"`
}

// ErrSystemProfile is returned when a caller attempts to modify a system profile.
var ErrSystemProfile = errors.New("system profiles cannot be modified or deleted")

type profileFile struct {
	Defaults Settings  `yaml:"defaults"`
	Profiles []Profile `yaml:"profiles"`
}

// SystemProfiles returns the built-in profiles. Each profile's settings are
// the shared defaults overlaid with the profile's own settings.
func SystemProfiles() ([]Profile, error) {
	var file profileFile
	if err := yaml.Unmarshal(systemProfilesYAML, &file); err != nil {
		return nil, fmt.Errorf("parse system profiles: %w", err)
	}
	out := make([]Profile, 0, len(file.Profiles))
	for _, p := range file.Profiles {
		p.System = true
		p.Settings = file.Defaults.Merge(p.Settings)
		out = append(out, p)
	}
	return out, nil
}

// Defaults returns the settings shared by all system profiles; new custom
// profiles start from these.
func Defaults() (Settings, error) {
	var file profileFile
	if err := yaml.Unmarshal(systemProfilesYAML, &file); err != nil {
		return nil, fmt.Errorf("parse system profiles: %w", err)
	}
	return file.Defaults, nil
}

// Validate checks the fields a stored profile must carry.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("profile id must be set")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("profile name must be set")
	}
	seen := make(map[string]struct{}, len(p.Settings))
	for _, setting := range p.Settings {
		if strings.TrimSpace(setting.Name) == "" {
			return fmt.Errorf("profile %s: setting names must not be empty", p.ID)
		}
		if _, dup := seen[setting.Name]; dup {
			return fmt.Errorf("profile %s: duplicate setting %q", p.ID, setting.Name)
		}
		seen[setting.Name] = struct{}{}
	}
	return nil
}

// Decode reads profiles from a YAML document holding either a single profile
// or a list of profiles.
func Decode(r io.Reader) ([]Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	var list []Profile
	if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return list, nil
	}
	var single Profile
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return []Profile{single}, nil
}

// Encode writes profiles as a YAML list.
func Encode(w io.Writer, profiles []Profile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(profiles); err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}
	return enc.Close()
}
