package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profiles maps a profile name to an endpoint definition. The file lives
// at ~/.config/ideafeed/profiles.yaml unless overridden:
//
//	default:
//	  url: https://api.ideafeed.app
//	staging:
//	  url: https://staging.api.ideafeed.app
type Profiles map[string]Endpoint

type Endpoint struct {
	URL string `yaml:"url"`
}

// resolveProfile replaces BaseURL with the selected profile's endpoint.
// When no profile is requested the environment-supplied BaseURL stands.
func (c *APIConfig) resolveProfile() error {
	if c.Profile == "" {
		return nil
	}

	path := c.ProfilesFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot locate profiles file: %w", err)
		}
		path = filepath.Join(home, ".config", "ideafeed", "profiles.yaml")
	}

	profiles, err := LoadProfiles(path)
	if err != nil {
		return err
	}

	ep, ok := profiles[c.Profile]
	if !ok {
		return fmt.Errorf("profile %q not defined in %s", c.Profile, path)
	}
	if ep.URL == "" {
		return fmt.Errorf("profile %q has no url", c.Profile)
	}

	c.BaseURL = ep.URL
	return nil
}

// LoadProfiles reads and parses a profiles file.
func LoadProfiles(path string) (Profiles, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("profiles file %s does not exist", path)
		}
		return nil, fmt.Errorf("reading profiles file: %w", err)
	}

	var profiles Profiles
	if err := yaml.Unmarshal(contents, &profiles); err != nil {
		return nil, fmt.Errorf("parsing profiles file %s: %w", path, err)
	}

	return profiles, nil
}
