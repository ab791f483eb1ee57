package webgpu

// Names of the operations in the default tables.
const (
	OpAbs         = "abs"
	OpAcos        = "acos"
	OpAsin        = "asin"
	OpAtan        = "atan"
	OpSin         = "sin"
	OpSinh        = "sinh"
	OpCos         = "cos"
	OpCosh        = "cosh"
	OpTan         = "tan"
	OpTanh        = "tanh"
	OpCeil        = "ceil"
	OpFloor       = "floor"
	OpRound       = "round"
	OpTrunc       = "trunc"
	OpExp         = "exp"
	OpLog         = "log"
	OpSqrt        = "sqrt"
	OpInverseSqrt = "inversesqrt"
	OpReLU        = "relu"
	OpLeakyReLU   = "leaky_relu"
	OpSigmoid     = "sigmoid"

	OpAdd = "add"
	OpSub = "sub"
	OpMul = "mul"
	OpDiv = "div"
	OpPow = "pow"
	OpMin = "min"
	OpMax = "max"
	OpEq  = "eq"
	OpNe  = "ne"
	OpLt  = "lt"
	OpLe  = "le"
	OpGt  = "gt"
	OpGe  = "ge"
)

// Abs computes |x| element-wise.
func Abs(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpAbs, x) }

// Acos computes arccos(x) element-wise.
func Acos(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpAcos, x) }

// Asin computes arcsin(x) element-wise.
func Asin(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpAsin, x) }

// Atan computes arctan(x) element-wise.
func Atan(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpAtan, x) }

// Sin computes sin(x) element-wise.
func Sin(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpSin, x) }

// Sinh computes sinh(x) element-wise.
func Sinh(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpSinh, x) }

// Cos computes cos(x) element-wise.
func Cos(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpCos, x) }

// Cosh computes cosh(x) element-wise.
func Cosh(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpCosh, x) }

// Tan computes tan(x) element-wise.
func Tan(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpTan, x) }

// Tanh computes tanh(x) element-wise.
func Tanh(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpTanh, x) }

// Ceil rounds up element-wise.
func Ceil(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpCeil, x) }

// Floor rounds down element-wise.
func Floor(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpFloor, x) }

// Round rounds to nearest, ties to even.
func Round(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpRound, x) }

// Trunc rounds toward zero element-wise.
func Trunc(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpTrunc, x) }

// Exp computes e^x element-wise.
func Exp(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpExp, x) }

// Log computes the natural logarithm element-wise.
func Log(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpLog, x) }

// Sqrt computes the square root element-wise.
func Sqrt(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpSqrt, x) }

// InverseSqrt computes 1/sqrt(x) element-wise.
func InverseSqrt(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) {
	return Unary(b, reg, OpInverseSqrt, x)
}

// ReLU computes max(x, 0) element-wise.
func ReLU(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) { return Unary(b, reg, OpReLU, x) }

// LeakyReLU computes x for x > 0 and 0.01*x otherwise.
func LeakyReLU(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) {
	return Unary(b, reg, OpLeakyReLU, x)
}

// Sigmoid computes 1/(1+e^-x) element-wise.
func Sigmoid(b *Backend, reg *Registry, x *Tensor) (*Tensor, error) {
	return Unary(b, reg, OpSigmoid, x)
}

// Add computes x + y element-wise.
func Add(b *Backend, reg *Registry, x, y *Tensor) (*Tensor, error) { return Binary(b, reg, OpAdd, x, y) }

// Sub computes x - y element-wise.
func Sub(b *Backend, reg *Registry, x, y *Tensor) (*Tensor, error) { return Binary(b, reg, OpSub, x, y) }

// Mul computes x * y element-wise.
func Mul(b *Backend, reg *Registry, x, y *Tensor) (*Tensor, error) { return Binary(b, reg, OpMul, x, y) }

// Div computes x / y element-wise.
func Div(b *Backend, reg *Registry, x, y *Tensor) (*Tensor, error) { return Binary(b, reg, OpDiv, x, y) }

// Pow computes x^y element-wise.
func Pow(b *Backend, reg *Registry, x, y *Tensor) (*Tensor, error) { return Binary(b, reg, OpPow, x, y) }

// Min computes min(x, y) element-wise.
func Min(b *Backend, reg *Registry, x, y *Tensor) (*Tensor, error) { return Binary(b, reg, OpMin, x, y) }

// Max computes max(x, y) element-wise.
func Max(b *Backend, reg *Registry, x, y *Tensor) (*Tensor, error) { return Binary(b, reg, OpMax, x, y) }

// Comparisons produce 1.0 where the predicate holds and 0.0 elsewhere.

// Eq compares x == y element-wise.
func Eq(b *Backend, reg *Registry, x, y *Tensor) (*Tensor, error) { return Binary(b, reg, OpEq, x, y) }

// Ne compares x != y element-wise.
func Ne(b *Backend, reg *Registry, x, y *Tensor) (*Tensor, error) { return Binary(b, reg, OpNe, x, y) }

// Lt compares x < y element-wise.
func Lt(b *Backend, reg *Registry, x, y *Tensor) (*Tensor, error) { return Binary(b, reg, OpLt, x, y) }

// Le compares x <= y element-wise.
func Le(b *Backend, reg *Registry, x, y *Tensor) (*Tensor, error) { return Binary(b, reg, OpLe, x, y) }

// Gt compares x > y element-wise.
func Gt(b *Backend, reg *Registry, x, y *Tensor) (*Tensor, error) { return Binary(b, reg, OpGt, x, y) }

// Ge compares x >= y element-wise.
func Ge(b *Backend, reg *Registry, x, y *Tensor) (*Tensor, error) { return Binary(b, reg, OpGe, x, y) }
