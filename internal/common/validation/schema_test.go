package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inputSchema = `{
  "type": "object",
  "required": ["reportData"],
  "properties": {
    "reportData": {"type": "object"},
    "sections": {"type": "array", "items": {"type": "string"}},
    "progressStart": {"type": "integer", "minimum": 0, "maximum": 100}
  }
}`

func TestSchema_Validate(t *testing.T) {
	s, err := CompileJSON(inputSchema)
	require.NoError(t, err)

	tests := []struct {
		name  string
		doc   map[string]interface{}
		valid bool
		field string
	}{
		{"valid", map[string]interface{}{"reportData": map[string]interface{}{}}, true, ""},
		{"missing report", map[string]interface{}{}, false, "reportData"},
		{"bad sections", map[string]interface{}{"reportData": map[string]interface{}{}, "sections": []interface{}{1}}, false, "sections"},
		{"progress out of range", map[string]interface{}{"reportData": map[string]interface{}{}, "progressStart": 150}, false, "progressStart"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Validate(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid)
			if tt.field != "" {
				assert.True(t, res.HasErrors(tt.field), res.GetErrorMessages())
			}
		})
	}
}

func TestSchema_ValidateBytesMalformed(t *testing.T) {
	s, err := CompileJSON(inputSchema)
	require.NoError(t, err)

	_, err = s.ValidateBytes([]byte(`{"reportData":`))
	assert.Error(t, err)
}

func TestValidateInput_SchemaFromJSON(t *testing.T) {
	schema, err := GetSchemaFromJSON(inputSchema)
	require.NoError(t, err)

	res, err := ValidateInput(map[string]interface{}{"reportData": "nope"}, schema)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.GetErrorsForField("reportData"))
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := CompileJSON(`{"type": 12}`)
	assert.Error(t, err)
}
