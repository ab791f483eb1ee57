package webgpu

import (
	"fmt"
	"maps"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/born-ml/torchic/internal/optable"
)

// Operation is a compiled kernel together with its bind group layout.
// Operations are owned by the Registry that compiled them.
type Operation struct {
	name     string
	family   Family
	kernel   Kernel
	layout   *wgpu.BindGroupLayout
	pipeline *wgpu.ComputePipeline
}

// Name returns the operation name.
func (op *Operation) Name() string { return op.name }

// Family returns the operation family.
func (op *Operation) Family() Family { return op.family }

// Kernel returns the generated kernel the pipeline was compiled from.
func (op *Operation) Kernel() Kernel { return op.kernel }

func (op *Operation) release() {
	if op.pipeline != nil {
		op.pipeline.Release()
		op.pipeline = nil
	}
	if op.layout != nil {
		op.layout.Release()
		op.layout = nil
	}
}

// CompileUnary generates and compiles a unary operation.
func CompileUnary(b *Backend, name, body string) (*Operation, error) {
	kernel, err := UnaryKernel(name, body)
	if err != nil {
		return nil, err
	}
	return b.compile(kernel)
}

// CompileBinary generates and compiles a binary elementwise operation.
func CompileBinary(b *Backend, name, body string) (*Operation, error) {
	kernel, err := BinaryKernel(name, body)
	if err != nil {
		return nil, err
	}
	return b.compile(kernel)
}

// CompileMatMul compiles the fixed matrix multiplication kernel.
func CompileMatMul(b *Backend) (*Operation, error) {
	return b.compile(MatMulKernel())
}

// compile builds the shader module, the explicit bind group layout, the
// pipeline layout and the compute pipeline for kernel.
func (b *Backend) compile(kernel Kernel) (*Operation, error) {
	label := kernel.Family.String() + " " + kernel.Name

	shader, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label + " shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: kernel.Source},
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: compile %s: shader module: %w", label, err)
	}
	// The pipeline keeps what it needs from the module.
	defer shader.Release()

	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label + " bind group layout",
		Entries: layoutEntries(kernel.Bindings),
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: compile %s: bind group layout: %w", label, err)
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + " pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		layout.Release()
		return nil, fmt.Errorf("webgpu: compile %s: pipeline layout: %w", label, err)
	}
	defer pipelineLayout.Release()

	pipeline, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label + " pipeline",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     shader,
			EntryPoint: kernelEntryPoint,
		},
	})
	if err != nil {
		layout.Release()
		return nil, fmt.Errorf("webgpu: compile %s: pipeline: %w", label, err)
	}

	b.logger.Debug().
		Str("op", kernel.Name).
		Stringer("family", kernel.Family).
		Int("bindings", len(kernel.Bindings)).
		Msg("compiled operation")

	return &Operation{
		name:     kernel.Name,
		family:   kernel.Family,
		kernel:   kernel,
		layout:   layout,
		pipeline: pipeline,
	}, nil
}

func layoutEntries(bindings []Binding) []wgpu.BindGroupLayoutEntry {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(bindings))
	for _, binding := range bindings {
		layout := wgpu.BufferBindingLayout{MinBindingSize: 4}
		switch binding.Kind {
		case BindingReadOnlyStorage:
			layout.Type = wgpu.BufferBindingTypeReadOnlyStorage
		case BindingStorage:
			layout.Type = wgpu.BufferBindingTypeStorage
		case BindingUniform:
			layout.Type = wgpu.BufferBindingTypeUniform
			layout.MinBindingSize = matmulParamsSize
		}
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    binding.Slot,
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     layout,
		})
	}
	return entries
}

// Registry maps operation names to compiled operations, partitioned by
// family. It is built once by NewRegistry and is read-only afterwards, so a
// single Registry may serve any number of concurrent dispatches.
type Registry struct {
	unary  map[string]*Operation
	binary map[string]*Operation
	matmul *Operation
}

// NewRegistry compiles every table entry plus the matmul kernel.
// Each name is compiled exactly once. On error, everything compiled so far
// is released.
func NewRegistry(b *Backend, tables optable.Tables) (reg *Registry, err error) {
	reg = &Registry{
		unary:  make(map[string]*Operation, len(tables.Unary)),
		binary: make(map[string]*Operation, len(tables.Binary)),
	}
	defer func() {
		if err != nil {
			reg.Release()
			reg = nil
		}
	}()

	// Sorted so that compile errors and logs are deterministic.
	for _, name := range slices.Sorted(maps.Keys(tables.Unary)) {
		op, compileErr := CompileUnary(b, name, tables.Unary[name])
		if compileErr != nil {
			return reg, compileErr
		}
		reg.unary[name] = op
	}
	for _, name := range slices.Sorted(maps.Keys(tables.Binary)) {
		op, compileErr := CompileBinary(b, name, tables.Binary[name])
		if compileErr != nil {
			return reg, compileErr
		}
		reg.binary[name] = op
	}

	reg.matmul, err = CompileMatMul(b)
	if err != nil {
		return reg, err
	}

	b.logger.Info().
		Int("unary", len(reg.unary)).
		Int("binary", len(reg.binary)).
		Msg("operation registry ready")

	return reg, nil
}

// Unary returns the unary operation registered under name.
func (r *Registry) Unary(name string) (*Operation, error) {
	op, ok := r.unary[name]
	if !ok {
		return nil, fmt.Errorf("webgpu: %w: unary %q", ErrOperationNotFound, name)
	}
	return op, nil
}

// Binary returns the binary elementwise operation registered under name.
func (r *Registry) Binary(name string) (*Operation, error) {
	op, ok := r.binary[name]
	if !ok {
		return nil, fmt.Errorf("webgpu: %w: binary %q", ErrOperationNotFound, name)
	}
	return op, nil
}

// MatMul returns the matrix multiplication operation.
func (r *Registry) MatMul() (*Operation, error) {
	if r.matmul == nil {
		return nil, fmt.Errorf("webgpu: %w: matmul", ErrOperationNotFound)
	}
	return r.matmul, nil
}

// Lookup resolves name within family.
func (r *Registry) Lookup(family Family, name string) (*Operation, error) {
	switch family {
	case FamilyUnary:
		return r.Unary(name)
	case FamilyBinary:
		return r.Binary(name)
	case FamilyMatMul:
		return r.MatMul()
	default:
		return nil, fmt.Errorf("webgpu: %w: %s %q", ErrOperationNotFound, family, name)
	}
}

// Names returns the sorted operation names of family.
func (r *Registry) Names(family Family) []string {
	switch family {
	case FamilyUnary:
		return slices.Sorted(maps.Keys(r.unary))
	case FamilyBinary:
		return slices.Sorted(maps.Keys(r.binary))
	case FamilyMatMul:
		if r.matmul != nil {
			return []string{r.matmul.name}
		}
	}
	return nil
}

// Release releases every compiled pipeline. The registry must not be used afterwards.
func (r *Registry) Release() {
	for _, op := range r.unary {
		op.release()
	}
	for _, op := range r.binary {
		op.release()
	}
	if r.matmul != nil {
		r.matmul.release()
	}
	r.unary = nil
	r.binary = nil
	r.matmul = nil
}
