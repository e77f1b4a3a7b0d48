// Package manifest defines the plugin manifest: the YAML document that
// names a plugin and declares the extensions it depends on. The host
// parses a manifest when registering a plugin and serves its fields
// through the metadata entry points.
package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Dependency declares one extension the plugin requires.
type Dependency struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	// Constraint is a version requirement in the host's constraint
	// syntax. Empty accepts any version.
	Constraint string `yaml:"constraint,omitempty" json:"constraint,omitempty"`
	// Optional dependencies do not block loading when absent.
	Optional bool `yaml:"optional,omitempty" json:"optional,omitempty"`
}

// Manifest is a plugin's identity document.
type Manifest struct {
	Name         string       `yaml:"name" json:"name" validate:"required"`
	Version      string       `yaml:"version" json:"version" validate:"required,semver"`
	Description  string       `yaml:"description,omitempty" json:"description,omitempty"`
	Author       string       `yaml:"author,omitempty" json:"author,omitempty"`
	Website      string       `yaml:"website,omitempty" json:"website,omitempty" validate:"omitempty,url"`
	License      string       `yaml:"license,omitempty" json:"license,omitempty"`
	Entry        string       `yaml:"entry,omitempty" json:"entry,omitempty"`
	Dependencies []Dependency `yaml:"dependencies,omitempty" json:"dependencies,omitempty" validate:"dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes and validates a YAML manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest against its field constraints.
func (m *Manifest) Validate() error {
	err := validate.Struct(m)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("manifest validation failed:\n- %s", strings.Join(msgs, "\n- "))
	}
	return fmt.Errorf("manifest validation failed: %w", err)
}

// DependencyNames returns the names of all declared dependencies, in
// declaration order. This is the list the host serves through the
// dependencies entry point.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, len(m.Dependencies))
	for i, d := range m.Dependencies {
		names[i] = d.Name
	}
	return names
}
