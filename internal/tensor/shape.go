// Package tensor holds the host-side description of tensors: shapes and element sizes.
package tensor

import "fmt"

// Float32Size is the byte size of a single tensor element.
const Float32Size = 4

// Shape represents the dimensions of a tensor.
// There are no symbolic axes and no broadcasting: two shapes are compatible
// for elementwise work only when they are Equal.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// ByteSize returns the byte size of a float32 buffer holding this shape.
func (s Shape) ByteSize() uint64 {
	//nolint:gosec // G115: Validate rejects negative dimensions before this is used for allocation.
	return uint64(s.NumElements()) * Float32Size
}

// Validate checks that every dimension is non-negative.
// Zero-sized dimensions are allowed and describe empty tensors.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be >= 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Is2D reports whether the shape describes a matrix.
func (s Shape) Is2D() bool {
	return len(s) == 2
}

func (s Shape) String() string {
	return fmt.Sprint([]int(s))
}
