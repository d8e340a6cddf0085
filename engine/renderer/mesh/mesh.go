package mesh

import (
	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
)

// mesh is the unexported implementation of Mesh.
type mesh struct {
	// label is a debug label added for convenience.
	label string

	// The following fields are GPU allocated resources populated by the Renderer during initialization, not by user-creation.

	// vertexBuffer is the GPU vertex buffer created for this mesh, or nil if not initialized with the Renderer.
	vertexBuffer *gpu.Buffer
	// indexBuffer is the GPU index buffer created for this mesh, or nil for a non-indexed mesh.
	indexBuffer *gpu.Buffer
	indexFormat gpu.IndexFormat

	vertexCount uint32
	indexCount  uint32
}

// Mesh defines the interface for vertex and index data living in GPU buffers.
//
// Usage pattern:
//  1. Create a Mesh with a label
//  2. Call Renderer.InitMeshBuffers(mesh, ...) to upload the data
//  3. Pass the mesh to Renderer.DrawCall inside an open frame
//  4. Release the mesh after Canvas.Synchronize
type Mesh interface {
	// Release releases the GPU buffers held by this mesh.
	// No submitted frame may still read the buffers; call Canvas.Synchronize first.
	Release()

	// Label returns the debug label for this mesh.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// VertexBuffer returns the GPU vertex buffer, or nil if not initialized.
	//
	// Returns:
	//   - *gpu.Buffer: the vertex buffer or nil
	VertexBuffer() *gpu.Buffer

	// IndexBuffer returns the GPU index buffer, or nil for a non-indexed mesh.
	//
	// Returns:
	//   - *gpu.Buffer: the index buffer or nil
	IndexBuffer() *gpu.Buffer

	// IndexFormat returns the element type of the index buffer.
	//
	// Returns:
	//   - gpu.IndexFormat: the index format
	IndexFormat() gpu.IndexFormat

	// Indexed reports whether the mesh draws through an index buffer.
	//
	// Returns:
	//   - bool: true when an index buffer is set
	Indexed() bool

	// Count returns the number of elements a full draw covers: indices for an indexed mesh, vertices otherwise.
	//
	// Returns:
	//   - uint32: the element count
	Count() uint32

	// FullRange returns the range covering the whole mesh.
	//
	// Returns:
	//   - common.Range: [0, Count())
	FullRange() common.Range

	// SetVertexBuffer stores the vertex buffer and its vertex count on this mesh, releasing any previous buffer.
	//
	// Parameters:
	//   - b: the vertex buffer
	//   - vertexCount: the number of vertices in b
	SetVertexBuffer(b *gpu.Buffer, vertexCount uint32)

	// SetIndexBuffer stores the index buffer and its index count on this mesh, releasing any previous buffer.
	//
	// Parameters:
	//   - b: the index buffer
	//   - format: the index element type
	//   - indexCount: the number of indices in b
	SetIndexBuffer(b *gpu.Buffer, format gpu.IndexFormat, indexCount uint32)
}

var _ Mesh = &mesh{}

// NewMesh creates an empty Mesh. Buffers are attached by the Renderer.
//
// Parameters:
//   - label: a debug label used for the GPU buffers
//
// Returns:
//   - Mesh: the new mesh
func NewMesh(label string) Mesh {
	return &mesh{label: label}
}

func (m *mesh) Release() {
	m.vertexBuffer.Release()
	m.indexBuffer.Release()
	m.vertexBuffer = nil
	m.indexBuffer = nil
	m.vertexCount = 0
	m.indexCount = 0
}

func (m *mesh) Label() string {
	return m.label
}

func (m *mesh) VertexBuffer() *gpu.Buffer {
	return m.vertexBuffer
}

func (m *mesh) IndexBuffer() *gpu.Buffer {
	return m.indexBuffer
}

func (m *mesh) IndexFormat() gpu.IndexFormat {
	return m.indexFormat
}

func (m *mesh) Indexed() bool {
	return m.indexBuffer != nil
}

func (m *mesh) Count() uint32 {
	if m.Indexed() {
		return m.indexCount
	}
	return m.vertexCount
}

func (m *mesh) FullRange() common.Range {
	return common.Range{Start: 0, End: m.Count()}
}

func (m *mesh) SetVertexBuffer(b *gpu.Buffer, vertexCount uint32) {
	if m.vertexBuffer != b {
		m.vertexBuffer.Release()
	}
	m.vertexBuffer = b
	m.vertexCount = vertexCount
}

func (m *mesh) SetIndexBuffer(b *gpu.Buffer, format gpu.IndexFormat, indexCount uint32) {
	if m.indexBuffer != b {
		m.indexBuffer.Release()
	}
	m.indexBuffer = b
	m.indexFormat = format
	m.indexCount = indexCount
}
