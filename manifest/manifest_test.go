package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `
name: sample
version: 1.2.3
description: does sample things
author: someone
website: https://example.com
license: MIT
entry: bin/sample.wasm
dependencies:
  - name: render-ext
    constraint: ">=1.0.0"
  - name: audio-ext
    optional: true
`

func TestParseValidManifest(t *testing.T) {
	m, err := Parse([]byte(validManifest))
	require.NoError(t, err)

	assert.Equal(t, "sample", m.Name)
	assert.Equal(t, "1.2.3", m.Version)
	assert.Equal(t, "bin/sample.wasm", m.Entry)
	require.Len(t, m.Dependencies, 2)
	assert.Equal(t, ">=1.0.0", m.Dependencies[0].Constraint)
	assert.True(t, m.Dependencies[1].Optional)
	assert.Equal(t, []string{"render-ext", "audio-ext"}, m.DependencyNames())
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("name: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse manifest")
}

func TestValidateFieldConstraints(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Manifest)
	}{
		{"missing name", func(m *Manifest) { m.Name = "" }},
		{"missing version", func(m *Manifest) { m.Version = "" }},
		{"non-semver version", func(m *Manifest) { m.Version = "latest" }},
		{"bad website", func(m *Manifest) { m.Website = "not a url" }},
		{"unnamed dependency", func(m *Manifest) { m.Dependencies[0].Name = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(validManifest))
			require.NoError(t, err)

			tt.mutate(m)
			err = m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "manifest validation failed")
		})
	}
}

func TestValidateAcceptsMinimalManifest(t *testing.T) {
	m := &Manifest{Name: "tiny", Version: "0.1.0"}
	assert.NoError(t, m.Validate())
	assert.Empty(t, m.DependencyNames())
}
