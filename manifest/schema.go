package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	jsv "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Schema generates the JSON Schema (Draft 2020-12) describing the
// manifest document, reflected from the Manifest struct.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&Manifest{})

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonBytes, nil
}

// ValidateDocument checks a raw YAML manifest against the generated
// schema without decoding it into a Manifest. Useful for tooling that
// wants structural diagnostics before the host attempts registration.
func ValidateDocument(doc []byte) error {
	schemaJSON, err := Schema()
	if err != nil {
		return err
	}

	compiler := jsv.NewCompiler()
	if err := compiler.AddResource("manifest.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("failed to add schema resource: %w", err)
	}
	sch, err := compiler.Compile("manifest.schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	var raw any
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}
	// Round-trip through JSON so the value shapes match what the
	// schema validator expects.
	buf, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to normalize manifest: %w", err)
	}
	var v any
	if err := json.Unmarshal(buf, &v); err != nil {
		return fmt.Errorf("failed to normalize manifest: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("manifest does not match schema: %w", err)
	}
	return nil
}
