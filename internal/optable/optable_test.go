package optable

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	tables := Default()

	for _, name := range []string{"abs", "sin", "sqrt", "relu", "leaky_relu", "sigmoid", "inversesqrt"} {
		assert.Contains(t, tables.Unary, name)
	}
	for _, name := range []string{"add", "sub", "mul", "div", "pow", "min", "max", "eq", "ne", "lt", "le", "gt", "ge"} {
		assert.Contains(t, tables.Binary, name)
	}

	assert.Len(t, tables.Unary, 21)
	assert.Len(t, tables.Binary, 13)
	assert.Equal(t, "output[idx] = data1[idx] + data2[idx];", tables.Binary["add"])
	assert.Contains(t, tables.Unary["leaky_relu"], "select(0.01 * x, x, x > 0.0);")
}

func TestLoad(t *testing.T) {
	src := `
unary:
  neg: output[idx] = -data[idx];
binary:
  hypot: output[idx] = sqrt(data1[idx] * data1[idx] + data2[idx] * data2[idx]);
`
	tables, err := Load(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "output[idx] = -data[idx];", tables.Unary["neg"])
	assert.Contains(t, tables.Binary, "hypot")
}

func TestLoad_MissingSection(t *testing.T) {
	tables, err := Load(strings.NewReader("unary:\n  neg: output[idx] = -data[idx];\n"))
	require.NoError(t, err)

	assert.NotNil(t, tables.Binary)
	assert.Empty(t, tables.Binary)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bad name", "unary:\n  Neg: output[idx] = -data[idx];\n"},
		{"name with dash", "binary:\n  add-2: output[idx] = data1[idx];\n"},
		{"empty body", "unary:\n  neg: \"  \"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.src))
			require.ErrorIs(t, err, ErrInvalidTable)
		})
	}
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load(strings.NewReader("unary: [1, 2"))
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.yaml")
	require.NoError(t, os.WriteFile(path, []byte("unary:\n  neg: output[idx] = -data[idx];\n"), 0o600))

	tables, err := LoadFile(path)
	require.NoError(t, err)
	assert.Contains(t, tables.Unary, "neg")

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := Tables{
		Unary:  map[string]string{"abs": "a", "sin": "b"},
		Binary: map[string]string{"add": "c"},
	}
	overlay := Tables{
		Unary: map[string]string{"sin": "override", "neg": "d"},
	}

	merged := Merge(base, overlay)

	assert.Equal(t, map[string]string{"abs": "a", "sin": "override", "neg": "d"}, merged.Unary)
	assert.Equal(t, map[string]string{"add": "c"}, merged.Binary)
	assert.Equal(t, "b", base.Unary["sin"], "base must not be modified")
}
