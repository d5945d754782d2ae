package template_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tsuguri/embedded-js-tests/application/template"
)

func TestGoTemplateEngine_Render(t *testing.T) {
	engine := template.NewGoTemplateEngine()
	data := map[string]any{
		"env": map[string]string{"SCRIPTS": "/srv/scripts"},
	}

	t.Run("Successful Resolution", func(t *testing.T) {
		out, err := engine.Render([]byte(`script_root: "{{ .env.SCRIPTS }}"`), data)
		require.NoError(t, err)
		assert.Equal(t, `script_root: "/srv/scripts"`, string(out))
	})

	t.Run("Missing Key Fails", func(t *testing.T) {
		_, err := engine.Render([]byte(`script_root: "{{ .env.MISSING }}"`), data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "map has no entry for key")
	})

	t.Run("Invalid Template Syntax", func(t *testing.T) {
		_, err := engine.Render([]byte(`script_root: "{{ .env.SCRIPTS"`), data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config template")
	})

	t.Run("Plain Text Passes Through", func(t *testing.T) {
		out, err := engine.Render([]byte("frames: 3\n"), nil)
		require.NoError(t, err)
		assert.Equal(t, "frames: 3\n", string(out))
	})
}

func TestGoTemplateEngine_Lenient(t *testing.T) {
	engine := template.NewGoTemplateEngine(template.WithStrict(false))
	data := map[string]any{"env": map[string]string{}}

	out, err := engine.Render([]byte(`x: "{{ .env.MISSING }}"`), data)
	require.NoError(t, err)
	assert.Equal(t, `x: "<no value>"`, string(out))
}

func TestGoTemplateEngine_Funcs(t *testing.T) {
	engine := template.NewGoTemplateEngine()
	data := map[string]any{
		"env": map[string]string{"SCRIPTS": "/srv/scripts", "NAME": `a "b"`},
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"env set", `{{ env "SCRIPTS" }}`, "/srv/scripts"},
		{"env unset is empty in strict mode", `[{{ env "NOPE" }}]`, "[]"},
		{"default on unset", `{{ env "NOPE" | default "scripts" }}`, "scripts"},
		{"default keeps value", `{{ env "SCRIPTS" | default "scripts" }}`, "/srv/scripts"},
		{"quote", `{{ env "NAME" | quote }}`, `"a \"b\""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := engine.Render([]byte(tt.in), data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestGoTemplateEngine_Delims(t *testing.T) {
	engine := template.NewGoTemplateEngine(template.WithDelims("<%", "%>"))
	out, err := engine.Render([]byte(`root: <% .env.SCRIPTS %> # {{ literal }}`), map[string]any{
		"env": map[string]string{"SCRIPTS": "s"},
	})
	require.NoError(t, err)
	assert.Equal(t, "root: s # {{ literal }}", string(out))
}
