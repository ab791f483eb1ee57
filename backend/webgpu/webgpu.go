// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides GPU-resident float32 tensors and compute
// dispatch on WebGPU.
//
// WebGPU is a cross-platform graphics and compute API that works on:
//   - Windows (D3D12 or Vulkan)
//   - macOS (Metal)
//   - Linux (Vulkan)
//
// Example:
//
//	import (
//	    "github.com/born-ml/torchic/backend/webgpu"
//	    "github.com/born-ml/torchic/tensor"
//	)
//
//	func main() {
//	    gpu, err := webgpu.New()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer gpu.Release()
//
//	    ops, err := webgpu.NewRegistry(gpu, webgpu.DefaultTables())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer ops.Release()
//
//	    x, _ := gpu.Rand(tensor.Shape{1024, 1024})
//	    y, _ := webgpu.MatMul(gpu, ops, x, x)
//	    data, _ := gpu.Read(y)
//	}
package webgpu

import (
	internalwebgpu "github.com/born-ml/torchic/internal/backend/webgpu"
	"github.com/born-ml/torchic/internal/optable"
)

// Backend owns the WebGPU adapter, device and queue.
type Backend = internalwebgpu.Backend

// Registry holds the compiled compute pipelines.
type Registry = internalwebgpu.Registry

// Tensor is a GPU-resident float32 tensor.
type Tensor = internalwebgpu.Tensor

// Option configures a Backend.
type Option = internalwebgpu.Option

// Tables maps operation names to kernel bodies, per family.
type Tables = optable.Tables

// Family identifies an operation family.
type Family = internalwebgpu.Family

// Operation families.
const (
	FamilyUnary  = internalwebgpu.FamilyUnary
	FamilyBinary = internalwebgpu.FamilyBinary
	FamilyMatMul = internalwebgpu.FamilyMatMul
)

// DefaultReadbackTimeout bounds Backend.Read when WithReadbackTimeout is not given.
const DefaultReadbackTimeout = internalwebgpu.DefaultReadbackTimeout

// Errors returned by the backend, for use with errors.Is.
var (
	ErrShapeMismatch      = internalwebgpu.ErrShapeMismatch
	ErrDimension          = internalwebgpu.ErrDimension
	ErrOperationNotFound  = internalwebgpu.ErrOperationNotFound
	ErrDataLengthMismatch = internalwebgpu.ErrDataLengthMismatch
	ErrDispatchTooLarge   = internalwebgpu.ErrDispatchTooLarge
	ErrTensorReleased     = internalwebgpu.ErrTensorReleased
	ErrInvalidShape       = internalwebgpu.ErrInvalidShape
	ErrInvalidKernelBody  = internalwebgpu.ErrInvalidKernelBody
	ErrDeviceAcquisition  = internalwebgpu.ErrDeviceAcquisition
	ErrReadbackTimeout    = internalwebgpu.ErrReadbackTimeout
	ErrReadbackFailed     = internalwebgpu.ErrReadbackFailed
)

// Backend options.
var (
	WithLogger          = internalwebgpu.WithLogger
	WithRegisterer      = internalwebgpu.WithRegisterer
	WithPowerPreference = internalwebgpu.WithPowerPreference
	WithReadbackTimeout = internalwebgpu.WithReadbackTimeout
	WithStagingPoolSize = internalwebgpu.WithStagingPoolSize
)

// New creates a new WebGPU backend.
//
// Call Release() when done to free GPU resources. Returns an error wrapping
// ErrDeviceAcquisition if no compatible adapter or device is found.
func New(opts ...Option) (*Backend, error) {
	return internalwebgpu.New(opts...)
}

// IsAvailable checks if WebGPU is available on the current system.
//
// Example:
//
//	if !webgpu.IsAvailable() {
//	    log.Println("no GPU, using the CPU path")
//	}
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}

// DefaultTables returns the built-in unary and binary operation tables.
func DefaultTables() Tables {
	return optable.Default()
}

// LoadTables reads operation tables from a YAML file and layers them over
// the built-in ones.
func LoadTables(path string) (Tables, error) {
	overlay, err := optable.LoadFile(path)
	if err != nil {
		return Tables{}, err
	}
	return optable.Merge(optable.Default(), overlay), nil
}

// NewRegistry compiles every operation in tables plus matrix multiplication.
func NewRegistry(b *Backend, tables Tables) (*Registry, error) {
	return internalwebgpu.NewRegistry(b, tables)
}

// Unary applies the named unary operation to x.
func Unary(b *Backend, reg *Registry, name string, x *Tensor) (*Tensor, error) {
	return internalwebgpu.Unary(b, reg, name, x)
}

// Binary applies the named elementwise operation to x and y, which must
// have identical shapes.
func Binary(b *Backend, reg *Registry, name string, x, y *Tensor) (*Tensor, error) {
	return internalwebgpu.Binary(b, reg, name, x, y)
}

// MatMul multiplies two 2D tensors.
func MatMul(b *Backend, reg *Registry, x, y *Tensor) (*Tensor, error) {
	return internalwebgpu.MatMul(b, reg, x, y)
}
