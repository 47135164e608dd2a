package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Implementations:
//   - CPU: Pure Go kernels with goroutine-parallel matmul
//   - WebGPU: WGSL compute kernels via go-webgpu
type Backend interface {
	// Element-wise binary operations (NumPy-style broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Matrix operations (2D)
	MatMul(a, b *RawTensor) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Scalar operations
	MulScalar(x *RawTensor, scalar any) *RawTensor

	// Reduction operations
	Sum(x *RawTensor) *RawTensor                            // total sum (scalar result)
	Mean(x *RawTensor) *RawTensor                           // total mean (scalar result)
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor  // sum along dimension
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor // mean along dimension

	// Manipulation operations
	Cat(tensors []*RawTensor, dim int) *RawTensor          // concatenate along dimension
	Narrow(x *RawTensor, dim, start, length int) *RawTensor // contiguous slice along dimension

	// Metadata
	Name() string
	Device() Device
}
