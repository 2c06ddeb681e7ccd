// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerTarget describes one remote gateway instance a batch may fan out to.
// The core only reads targets; ownership stays with the operator's file.
type ServerTarget struct {
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"url"`
	Login    string `yaml:"login"`
	Password string `yaml:"password"`
	Insecure bool   `yaml:"insecure,omitempty"` // disable TLS verification
}

type targetsFile struct {
	Servers []ServerTarget `yaml:"servers"`
}

// LoadTargets reads and validates the server-targets YAML file.
func LoadTargets(path string) ([]ServerTarget, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	var f targetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse targets file %s: %w", path, err)
	}
	seen := make(map[string]struct{}, len(f.Servers))
	for i, t := range f.Servers {
		if err := validateTarget(t); err != nil {
			return nil, fmt.Errorf("target %d (%q): %w", i, t.Name, err)
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("duplicate target name %q", t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return f.Servers, nil
}

func validateTarget(t ServerTarget) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if t.BaseURL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(t.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", t.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q is missing host", t.BaseURL)
	}
	if t.Login == "" {
		return fmt.Errorf("login is required")
	}
	return nil
}
