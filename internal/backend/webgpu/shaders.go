package webgpu

import (
	"fmt"
	"regexp"
	"strings"
)

// Kernel generators. Each operation family has one generator that takes a
// validated body and emits a complete WGSL module together with the binding
// layout the module declares. Bounds guards, binding order and workgroup
// sizes live here and nowhere else.

const (
	// elementwiseWorkgroupSize is the 1-D workgroup size of unary and binary kernels.
	elementwiseWorkgroupSize = 64
	// matmulTileSize is the edge of the 2-D matmul workgroup.
	matmulTileSize = 16
	// matmulParamsSize is the uniform block {a_rows, a_cols, b_cols} padded to 16 bytes.
	matmulParamsSize = 16
	// kernelEntryPoint is the compute entry point of every generated module.
	kernelEntryPoint = "main"
)

// Family identifies an operation family.
type Family int

const (
	// FamilyUnary: one input, one output, 1-D dispatch.
	FamilyUnary Family = iota
	// FamilyBinary: two same-shaped inputs, one output, 1-D dispatch.
	FamilyBinary
	// FamilyMatMul: A, B, output and a uniform block, 2-D dispatch.
	FamilyMatMul
)

func (f Family) String() string {
	switch f {
	case FamilyUnary:
		return "unary"
	case FamilyBinary:
		return "binary"
	case FamilyMatMul:
		return "matmul"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// BindingKind is the buffer binding type of one layout slot.
type BindingKind int

const (
	// BindingReadOnlyStorage is a `var<storage, read>` f32 array.
	BindingReadOnlyStorage BindingKind = iota
	// BindingStorage is a `var<storage, read_write>` f32 array.
	BindingStorage
	// BindingUniform is a `var<uniform>` parameter block.
	BindingUniform
)

// Binding is one slot of a kernel's bind group 0.
type Binding struct {
	Slot uint32
	Name string
	Kind BindingKind
	// Type is the WGSL type of the binding.
	Type string
}

// Kernel is a generated WGSL module and the layout it expects.
type Kernel struct {
	Family        Family
	Name          string
	Source        string
	Bindings      []Binding
	WorkgroupSize [3]uint32
}

var (
	unaryBindings = []Binding{
		{Slot: 0, Name: "data", Kind: BindingReadOnlyStorage, Type: "array<f32>"},
		{Slot: 1, Name: "output", Kind: BindingStorage, Type: "array<f32>"},
	}
	binaryBindings = []Binding{
		{Slot: 0, Name: "data1", Kind: BindingReadOnlyStorage, Type: "array<f32>"},
		{Slot: 1, Name: "data2", Kind: BindingReadOnlyStorage, Type: "array<f32>"},
		{Slot: 2, Name: "output", Kind: BindingStorage, Type: "array<f32>"},
	}
	matmulBindings = []Binding{
		{Slot: 0, Name: "a", Kind: BindingReadOnlyStorage, Type: "array<f32>"},
		{Slot: 1, Name: "b", Kind: BindingReadOnlyStorage, Type: "array<f32>"},
		{Slot: 2, Name: "output", Kind: BindingStorage, Type: "array<f32>"},
		{Slot: 3, Name: "params", Kind: BindingUniform, Type: "MatMulParams"},
	}
)

// elementwiseTemplate: bindings, workgroup size, guarded array, body.
const elementwiseTemplate = `%s
@compute @workgroup_size(%d)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;

    if (idx >= arrayLength(&%s)) {
        return;
    }

    %s
}
`

// matmulBody computes one output element per invocation: x is the row of A,
// y the column of B.
const matmulBody = `
@compute @workgroup_size(%d, %d)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.x;
    let col = global_id.y;

    if (row >= params.a_rows || col >= params.b_cols) {
        return;
    }

    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.a_cols; k = k + 1u) {
        sum = sum + a[row * params.a_cols + k] * b[k * params.b_cols + col];
    }

    output[row * params.b_cols + col] = sum;
}
`

const matmulParamsStruct = `struct MatMulParams {
    a_rows: u32,
    a_cols: u32,
    b_cols: u32,
}
`

var (
	idxRef    = regexp.MustCompile(`\bidx\b`)
	outputRef = regexp.MustCompile(`\boutput\b`)
)

// UnaryKernel builds the two-buffer unary kernel around body.
func UnaryKernel(name, body string) (Kernel, error) {
	if err := validateBody(name, body); err != nil {
		return Kernel{}, err
	}
	return Kernel{
		Family:        FamilyUnary,
		Name:          name,
		Source:        fmt.Sprintf(elementwiseTemplate, declareBindings(unaryBindings), elementwiseWorkgroupSize, "data", strings.TrimSpace(body)),
		Bindings:      unaryBindings,
		WorkgroupSize: [3]uint32{elementwiseWorkgroupSize, 1, 1},
	}, nil
}

// BinaryKernel builds the binary elementwise kernel around body.
func BinaryKernel(name, body string) (Kernel, error) {
	if err := validateBody(name, body); err != nil {
		return Kernel{}, err
	}
	return Kernel{
		Family:        FamilyBinary,
		Name:          name,
		Source:        fmt.Sprintf(elementwiseTemplate, declareBindings(binaryBindings), elementwiseWorkgroupSize, "data1", strings.TrimSpace(body)),
		Bindings:      binaryBindings,
		WorkgroupSize: [3]uint32{elementwiseWorkgroupSize, 1, 1},
	}, nil
}

// MatMulKernel returns the fixed matrix multiplication kernel.
func MatMulKernel() Kernel {
	return Kernel{
		Family:        FamilyMatMul,
		Name:          "matmul",
		Source:        matmulParamsStruct + declareBindings(matmulBindings) + fmt.Sprintf(matmulBody, matmulTileSize, matmulTileSize),
		Bindings:      matmulBindings,
		WorkgroupSize: [3]uint32{matmulTileSize, matmulTileSize, 1},
	}
}

func declareBindings(bindings []Binding) string {
	var sb strings.Builder
	for _, b := range bindings {
		var space string
		switch b.Kind {
		case BindingReadOnlyStorage:
			space = "storage, read"
		case BindingStorage:
			space = "storage, read_write"
		case BindingUniform:
			space = "uniform"
		}
		fmt.Fprintf(&sb, "@group(0) @binding(%d) var<%s> %s: %s;\n", b.Slot, space, b.Name, b.Type)
	}
	return sb.String()
}

// validateBody rejects bodies that cannot be a statement list inside the
// guarded kernel: empty text, text that never touches idx or output,
// unbalanced braces (which would close main early) and attributes.
// Comments are ignored.
func validateBody(name, body string) error {
	code := strings.TrimSpace(stripComments(body))
	switch {
	case code == "":
		return fmt.Errorf("webgpu: %w: %q: empty body", ErrInvalidKernelBody, name)
	case !idxRef.MatchString(code):
		return fmt.Errorf("webgpu: %w: %q: body does not reference idx", ErrInvalidKernelBody, name)
	case !outputRef.MatchString(code):
		return fmt.Errorf("webgpu: %w: %q: body does not write output", ErrInvalidKernelBody, name)
	case strings.Contains(code, "@"):
		return fmt.Errorf("webgpu: %w: %q: attributes are not allowed in a body", ErrInvalidKernelBody, name)
	}

	depth := 0
	for _, r := range code {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("webgpu: %w: %q: unbalanced braces", ErrInvalidKernelBody, name)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("webgpu: %w: %q: unbalanced braces", ErrInvalidKernelBody, name)
	}
	return nil
}

// stripComments removes WGSL line comments and nested block comments.
// An unterminated block comment swallows the rest of the text.
func stripComments(src string) string {
	var sb strings.Builder
	depth := 0
	for i := 0; i < len(src); i++ {
		switch {
		case depth == 0 && strings.HasPrefix(src[i:], "//"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				return sb.String()
			}
			i += end - 1
		case strings.HasPrefix(src[i:], "/*"):
			depth++
			i++
		case depth > 0 && strings.HasPrefix(src[i:], "*/"):
			depth--
			i++
			if depth == 0 {
				sb.WriteByte(' ')
			}
		case depth == 0:
			sb.WriteByte(src[i])
		}
	}
	return sb.String()
}

// elementwiseGroups returns ceil(n / 64).
func elementwiseGroups(n int) uint32 {
	//nolint:gosec // G115: element counts are non-negative.
	return uint32((n + elementwiseWorkgroupSize - 1) / elementwiseWorkgroupSize)
}

// matmulGroups returns (ceil(rows/16), ceil(cols/16)).
func matmulGroups(rows, cols int) (x, y uint32) {
	//nolint:gosec // G115: matrix dimensions are non-negative.
	return uint32((rows + matmulTileSize - 1) / matmulTileSize), uint32((cols + matmulTileSize - 1) / matmulTileSize)
}
