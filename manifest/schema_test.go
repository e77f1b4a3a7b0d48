package manifest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaDescribesManifest(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "schema has no properties")
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "version")
	assert.Contains(t, props, "dependencies")
}

func TestValidateDocument(t *testing.T) {
	assert.NoError(t, ValidateDocument([]byte(validManifest)))
}

func TestValidateDocumentRejectsWrongShape(t *testing.T) {
	err := ValidateDocument([]byte(`
name: sample
version: 1.0.0
dependencies: "should be a list"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest does not match schema")
}

func TestValidateDocumentRejectsMissingRequired(t *testing.T) {
	err := ValidateDocument([]byte(`description: no name or version`))
	require.Error(t, err)
}
