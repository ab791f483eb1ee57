package webgpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/torchic/internal/optable"
)

func TestUnaryKernel(t *testing.T) {
	k, err := UnaryKernel("relu", "output[idx] = max(data[idx], 0.0);")
	require.NoError(t, err)

	assert.Equal(t, FamilyUnary, k.Family)
	assert.Equal(t, "relu", k.Name)
	assert.Equal(t, [3]uint32{64, 1, 1}, k.WorkgroupSize)
	require.Len(t, k.Bindings, 2)
	assert.Equal(t, BindingReadOnlyStorage, k.Bindings[0].Kind)
	assert.Equal(t, BindingStorage, k.Bindings[1].Kind)

	assert.Contains(t, k.Source, "@group(0) @binding(0) var<storage, read> data: array<f32>;")
	assert.Contains(t, k.Source, "@group(0) @binding(1) var<storage, read_write> output: array<f32>;")
	assert.Contains(t, k.Source, "@compute @workgroup_size(64)")

	guard := strings.Index(k.Source, "if (idx >= arrayLength(&data))")
	body := strings.Index(k.Source, "output[idx] = max(data[idx], 0.0);")
	require.NotEqual(t, -1, guard)
	require.NotEqual(t, -1, body)
	assert.Less(t, guard, body, "bounds guard must precede the body")
}

func TestBinaryKernel(t *testing.T) {
	k, err := BinaryKernel("add", "output[idx] = data1[idx] + data2[idx];")
	require.NoError(t, err)

	assert.Equal(t, FamilyBinary, k.Family)
	require.Len(t, k.Bindings, 3)
	for i, b := range k.Bindings {
		assert.Equal(t, uint32(i), b.Slot)
	}
	assert.Equal(t, BindingStorage, k.Bindings[2].Kind)
	assert.Contains(t, k.Source, "var<storage, read> data1: array<f32>;")
	assert.Contains(t, k.Source, "var<storage, read> data2: array<f32>;")
	assert.Contains(t, k.Source, "if (idx >= arrayLength(&data1))")
}

func TestMatMulKernel(t *testing.T) {
	k := MatMulKernel()

	assert.Equal(t, FamilyMatMul, k.Family)
	assert.Equal(t, [3]uint32{16, 16, 1}, k.WorkgroupSize)
	require.Len(t, k.Bindings, 4)
	assert.Equal(t, BindingUniform, k.Bindings[3].Kind)
	assert.Contains(t, k.Source, "@group(0) @binding(3) var<uniform> params: MatMulParams;")
	assert.Contains(t, k.Source, "@compute @workgroup_size(16, 16)")

	// Field order is the wire order of the uniform block.
	rows := strings.Index(k.Source, "a_rows: u32")
	cols := strings.Index(k.Source, "a_cols: u32")
	bcols := strings.Index(k.Source, "b_cols: u32")
	assert.True(t, rows < cols && cols < bcols)
}

func TestKernelBodyValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", "   "},
		{"no idx", "output[0] = data[0];"},
		{"no output", "let x = data[idx];"},
		{"idx as substring only", "output[index] = data[index];"},
		{"closes main", "output[idx] = 0.0; } fn evil() {"},
		{"unclosed", "if (true) { output[idx] = 0.0;"},
		{"attribute", "@group(0) @binding(5) output[idx] = 0.0;"},
		{"only in comments", "// output[idx] = data[idx];"},
		{"brace outside comment", "output[idx] = data[idx]; /* { */ }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnaryKernel("bad", tt.body)
			require.ErrorIs(t, err, ErrInvalidKernelBody)

			_, err = BinaryKernel("bad", tt.body)
			require.ErrorIs(t, err, ErrInvalidKernelBody)
		})
	}
}

func TestKernelBodyValidation_Blocks(t *testing.T) {
	_, err := UnaryKernel("clamp01", "if (data[idx] > 1.0) { output[idx] = 1.0; } else { output[idx] = max(data[idx], 0.0); }")
	require.NoError(t, err)
}

func TestKernelBodyValidation_Comments(t *testing.T) {
	bodies := []string{
		"output[idx] = data[idx]; // }",
		"// copy {\noutput[idx] = data[idx];",
		"/* { */ output[idx] = data[idx];",
		"/* outer /* inner } */ still comment { */ output[idx] = data[idx];",
	}
	for _, body := range bodies {
		k, err := UnaryKernel("copy", body)
		require.NoError(t, err, body)
		assert.Contains(t, k.Source, strings.TrimSpace(body))
	}
}

func TestStripComments(t *testing.T) {
	assert.Equal(t, "a \nb", stripComments("a // x }\nb"))
	assert.Equal(t, "a   b", stripComments("a /* { */ b"))
	assert.Equal(t, "a ", stripComments("a /* never closed"))
	assert.Equal(t, "a ", stripComments("a // trailing"))
}

func TestDefaultTableGenerates(t *testing.T) {
	tables := optable.Default()

	for name, body := range tables.Unary {
		_, err := UnaryKernel(name, body)
		assert.NoError(t, err, name)
	}
	for name, body := range tables.Binary {
		_, err := BinaryKernel(name, body)
		assert.NoError(t, err, name)
	}
}

func TestElementwiseGroups(t *testing.T) {
	tests := []struct {
		n    int
		want uint32
	}{
		{0, 0},
		{1, 1},
		{63, 1},
		{64, 1},
		{65, 2},
		{4_000_000, 62500},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, elementwiseGroups(tt.n), "n=%d", tt.n)
	}
}

func TestMatmulGroups(t *testing.T) {
	x, y := matmulGroups(4, 3)
	assert.Equal(t, uint32(1), x)
	assert.Equal(t, uint32(1), y)

	x, y = matmulGroups(33, 16)
	assert.Equal(t, uint32(3), x)
	assert.Equal(t, uint32(1), y)

	x, y = matmulGroups(512, 17)
	assert.Equal(t, uint32(32), x)
	assert.Equal(t, uint32(2), y)
}

func TestFamilyString(t *testing.T) {
	assert.Equal(t, "unary", FamilyUnary.String())
	assert.Equal(t, "binary", FamilyBinary.String())
	assert.Equal(t, "matmul", FamilyMatMul.String())
	assert.Equal(t, "Family(9)", Family(9).String())
}
