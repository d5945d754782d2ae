package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tsuguri/embedded-js-tests/application/config"
	"github.com/Tsuguri/embedded-js-tests/application/schema"
)

func TestConfigSchema(t *testing.T) {
	out, err := schema.ConfigSchema()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))

	props, ok := decoded["properties"].(map[string]any)
	require.True(t, ok, "expanded struct has top-level properties")
	for _, key := range []string{"script_root", "export_strategy", "failure_mode", "require", "wasm", "instantiate"} {
		assert.Contains(t, props, key)
	}

	strategy, ok := props["export_strategy"].(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"construct", "direct"}, strategy["enum"])

	assert.Contains(t, decoded["required"], "script_root")
	assert.Equal(t, schema.ConfigSchemaID, decoded["$id"])

	interval, ok := props["frame_interval"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", interval["type"])
}

func TestGenerateSchema_NoConfigMetadata(t *testing.T) {
	generic, err := schema.GenerateSchema(&config.Config{})
	require.NoError(t, err)
	assert.Contains(t, string(generic), `"output_limit"`)
	assert.NotContains(t, string(generic), schema.ConfigSchemaID)
}

func TestGenerateSchema_NestedStruct(t *testing.T) {
	type Inner struct {
		Host string `json:"host"`
	}
	type Outer struct {
		Inner   Inner `json:"inner"`
		Timeout int   `json:"timeout"`
	}

	out, err := schema.GenerateSchema(Outer{})
	require.NoError(t, err)
	assert.Contains(t, string(out), "inner")
	assert.Contains(t, string(out), "host")
	assert.Contains(t, string(out), "timeout")
}
