package env

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/volleyhq/volley/pkg/jsonschema"
)

// fileSchema validates the shape of an environments override file before
// any value is merged into the registry. Structural mistakes (a string
// maxVUs, an object where a URL belongs) surface here with a path instead
// of as a silent zero value later.
const fileSchema = `{
	"type": "object",
	"required": ["environments"],
	"additionalProperties": false,
	"properties": {
		"environments": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {
				"type": "object",
				"additionalProperties": false,
				"properties": {
					"name":        {"type": "string"},
					"baseUrl":     {"type": "string"},
					"apiKey":      {"type": "string"},
					"maxVUs":      {"type": "integer", "minimum": 1},
					"description": {"type": "string"}
				}
			}
		},
		"thresholds": {
			"type": "object",
			"additionalProperties": {
				"type": "array",
				"items": {"type": "string"}
			}
		}
	}
}`

var compiledFileSchema = jsonschema.MustCompile(fileSchema)

// validateFileData checks raw YAML override data against the file schema.
func validateFileData(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse environment config: %w", err)
	}

	// The schema validator speaks JSON; YAML v3 decodes mappings with
	// string keys so the round trip is lossless for this format.
	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to convert environment config: %w", err)
	}

	if err := compiledFileSchema.Validate(jsonDoc); err != nil {
		return fmt.Errorf("invalid environment config: %w", err)
	}
	return nil
}
