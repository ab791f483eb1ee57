// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the shape type shared by every tensor API.
//
// # Overview
//
// A Shape lists the extent of each dimension, outermost first. Data is laid
// out row-major: for shape [R, C] element (r, c) sits at index r*C + c.
//
//	s := tensor.Shape{2, 3}
//	s.NumElements() // 6
//	s.ByteSize()    // 24, all tensors hold float32
//
// # Special Shapes
//
//   - Shape{} is a scalar with one element.
//   - Any zero dimension gives an empty tensor with no elements.
//   - Negative dimensions are invalid and rejected by every constructor.
package tensor
