// Package schema emits JSON schemas for host configuration files.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/Tsuguri/embedded-js-tests/application/config"
)

// ConfigSchemaID is the $id of the configuration schema.
const ConfigSchemaID = "https://github.com/Tsuguri/embedded-js-tests/embjs.schema.json"

var durationType = reflect.TypeOf(time.Duration(0))

// GenerateSchema reflects v into an indented JSON schema. Nested structs are
// inlined, and time.Duration fields are described as Go duration strings
// ("16ms", "1s") the way the YAML parser accepts them.
func GenerateSchema(v any) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
		Mapper:         mapType,
	}
	return marshal(reflector.Reflect(v))
}

// ConfigSchema returns the schema of config.Config, as printed by
// `embjs -schema`.
func ConfigSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
		Mapper:         mapType,
	}
	s := reflector.Reflect(&config.Config{})
	s.ID = jsonschema.ID(ConfigSchemaID)
	s.Title = "embjs host configuration"
	s.Description = "Script tree, loading policy and frame loop of the embjs host. Values are rendered as a Go template with {{ .env.NAME }} before parsing."
	return marshal(s)
}

func mapType(t reflect.Type) *jsonschema.Schema {
	if t == durationType {
		return &jsonschema.Schema{
			Type:        "string",
			Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
			Description: "Go duration, e.g. 16ms",
		}
	}
	return nil
}

func marshal(s *jsonschema.Schema) ([]byte, error) {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}
