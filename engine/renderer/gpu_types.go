package renderer

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// GPUTransformPushConstant is the push constant block read by the vertex stage of the built in transform
// shaders. Size: 64 bytes (one column-major mat4).
type GPUTransformPushConstant struct {
	Transform mgl32.Mat4 // offset 0: model-view-projection matrix, column major (64 bytes)
}

// Size returns the size of the GPUTransformPushConstant struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUTransformPushConstant) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUTransformPushConstant struct into a byte buffer suitable for PushConstants.
//
// Returns:
//   - []byte: 64-byte buffer in column-major order.
func (g *GPUTransformPushConstant) Marshal() []byte {
	buf := make([]byte, 64)
	for i, v := range g.Transform {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf
}

// GPUTintPushConstant is the push constant block read by the fragment stage to tint a draw.
// Size: 16 bytes (one vec4).
type GPUTintPushConstant struct {
	Tint mgl32.Vec4 // offset 0: RGBA tint (16 bytes)
}

// Size returns the size of the GPUTintPushConstant struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUTintPushConstant) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUTintPushConstant struct into a byte buffer suitable for PushConstants.
//
// Returns:
//   - []byte: 16-byte buffer.
func (g *GPUTintPushConstant) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Tint[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Tint[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Tint[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Tint[3]))
	return buf
}

// TransformPushConstant builds the transform block for a model placed in a camera.
//
// Parameters:
//   - projection: the projection matrix
//   - view: the view matrix
//   - model: the model matrix
//
// Returns:
//   - []byte: the marshaled projection * view * model matrix
func TransformPushConstant(projection, view, model mgl32.Mat4) []byte {
	g := GPUTransformPushConstant{Transform: projection.Mul4(view).Mul4(model)}
	return g.Marshal()
}

// PackVertices serializes float32 vertex attributes into a little endian vertex buffer payload.
//
// Parameters:
//   - values: the attributes, in the order of the vertex layout
//
// Returns:
//   - []byte: 4 bytes per value
func PackVertices(values ...float32) []byte {
	buf := make([]byte, 0, len(values)*4)
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

// PackIndices16 serializes uint16 indices into an index buffer payload.
//
// Parameters:
//   - indices: the indices
//
// Returns:
//   - []byte: 2 bytes per index
func PackIndices16(indices ...uint16) []byte {
	buf := make([]byte, 0, len(indices)*2)
	for _, i := range indices {
		buf = binary.LittleEndian.AppendUint16(buf, i)
	}
	return buf
}
