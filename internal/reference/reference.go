// Package reference computes CPU results that GPU kernels are checked and
// benchmarked against.
package reference

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/torchic/internal/parallel"
	"github.com/born-ml/torchic/internal/tensor"
)

// MatMul returns a @ b for row-major float32 matrices.
// The product is computed in float64 and rounded back to float32.
func MatMul(a []float32, aShape tensor.Shape, b []float32, bShape tensor.Shape) ([]float32, error) {
	if !aShape.Is2D() || !bShape.Is2D() {
		return nil, fmt.Errorf("reference: matmul requires 2D operands, got %v and %v", aShape, bShape)
	}
	if aShape[1] != bShape[0] {
		return nil, fmt.Errorf("reference: matmul shape mismatch: %v @ %v", aShape, bShape)
	}
	if len(a) != aShape.NumElements() || len(b) != bShape.NumElements() {
		return nil, fmt.Errorf("reference: data length does not match shapes %v and %v", aShape, bShape)
	}

	rows, cols := aShape[0], bShape[1]
	if rows == 0 || cols == 0 {
		return []float32{}, nil
	}
	if aShape[1] == 0 {
		return make([]float32, rows*cols), nil
	}

	var c mat.Dense
	c.Mul(dense(aShape, a), dense(bShape, b))

	out := make([]float32, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out = append(out, float32(c.At(i, j)))
		}
	}
	return out, nil
}

func dense(shape tensor.Shape, data []float32) *mat.Dense {
	values := make([]float64, len(data))
	for i, v := range data {
		values[i] = float64(v)
	}
	return mat.NewDense(shape[0], shape[1], values)
}

// Map applies fn to every element of data and returns the results.
// Large inputs are split across CPU cores; fn must be safe for concurrent use.
func Map(data []float32, fn func(float32) float32) []float32 {
	out := make([]float32, len(data))
	parallel.Chunks(len(data), parallel.DefaultConfig(), func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = fn(data[i])
		}
	})
	return out
}
