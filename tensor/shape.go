// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/torchic/internal/tensor"

// Shape represents tensor dimensions.
type Shape = tensor.Shape

// Float32Size is the size in bytes of one tensor element.
const Float32Size = tensor.Float32Size
