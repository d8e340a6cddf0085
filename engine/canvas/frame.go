package canvas

import (
	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
	"github.com/pkg/errors"
)

// Frame is the recording handle of one open frame. The render pass is already begun with
// viewport and scissor covering the whole extent. A Frame is valid from BeginFrame until
// EndFrame; every method returns ErrNotProcessingFrame afterwards.
type Frame struct {
	c            *canvas
	slot         int
	imageIndex   uint32
	extent       common.Extent2D
	requirements gpu.RenderPassRequirements
	limits       gpu.Limits

	acquired    bool
	acquireErr  error
	framebuffer *gpu.Handle[gpu.NativeFramebuffer]
	cb          gpu.CommandBuffer
	closed      bool

	pipeline    *gpu.Pipeline
	indexBuffer *gpu.Buffer
	indexOffset uint64
	indexFormat gpu.IndexFormat
}

// CommandBuffer returns the command buffer being recorded, for commands Frame does not wrap.
func (f *Frame) CommandBuffer() gpu.CommandBuffer { return f.cb }

// Extent returns the framebuffer extent.
func (f *Frame) Extent() common.Extent2D { return f.extent }

// ImageIndex returns the index of the acquired swapchain image.
func (f *Frame) ImageIndex() uint32 { return f.imageIndex }

// Slot returns the frame ring slot recording this frame.
func (f *Frame) Slot() int { return f.slot }

// RenderPassRequirements returns what a pipeline must match to be bound in this frame.
func (f *Frame) RenderPassRequirements() gpu.RenderPassRequirements { return f.requirements }

func (f *Frame) recording() error {
	if f.closed {
		return ErrNotProcessingFrame
	}
	return nil
}

// BindPipeline binds a graphics pipeline for the following draws.
//
// Parameters:
//   - p: the pipeline; its render pass requirements must equal the frame's
//
// Returns:
//   - error: gpu.ErrCapacityMismatch when the pipeline was built for different attachments
func (f *Frame) BindPipeline(p *gpu.Pipeline) error {
	if err := f.recording(); err != nil {
		return err
	}
	if err := p.Requirements().Check(f.requirements); err != nil {
		return err
	}
	f.cb.BindPipeline(p.Native())
	f.pipeline = p
	return nil
}

// BindVertexBuffer binds b to vertex input slot.
//
// Parameters:
//   - slot: the vertex input binding
//   - b: a buffer created with gpu.BufferUsageVertex
//   - offset: the byte offset of the first vertex
//
// Returns:
//   - error: gpu.ErrInvalidParameters for a non-vertex buffer, ErrInvalidRange for an offset past the end
func (f *Frame) BindVertexBuffer(slot uint32, b *gpu.Buffer, offset uint64) error {
	if err := f.recording(); err != nil {
		return err
	}
	if b.Usage()&gpu.BufferUsageVertex == 0 {
		return errors.Wrap(gpu.ErrInvalidParameters, "buffer is not a vertex buffer")
	}
	if offset >= b.Size() {
		return errors.Wrapf(ErrInvalidRange, "offset %d, buffer size %d", offset, b.Size())
	}
	f.cb.BindVertexBuffer(slot, b.Native(), offset)
	return nil
}

// BindIndexBuffer binds b as the index buffer for DrawIndexed.
//
// Parameters:
//   - b: a buffer created with gpu.BufferUsageIndex
//   - offset: the byte offset of index 0
//   - format: the index width
//
// Returns:
//   - error: gpu.ErrInvalidParameters for a non-index buffer, ErrInvalidRange for an offset past the end
func (f *Frame) BindIndexBuffer(b *gpu.Buffer, offset uint64, format gpu.IndexFormat) error {
	if err := f.recording(); err != nil {
		return err
	}
	if b.Usage()&gpu.BufferUsageIndex == 0 {
		return errors.Wrap(gpu.ErrInvalidParameters, "buffer is not an index buffer")
	}
	if offset >= b.Size() {
		return errors.Wrapf(ErrInvalidRange, "offset %d, buffer size %d", offset, b.Size())
	}
	f.cb.BindIndexBuffer(b.Native(), offset, format)
	f.indexBuffer = b
	f.indexOffset = offset
	f.indexFormat = format
	return nil
}

// PushConstants writes data into the push constant range of the bound pipeline.
//
// Parameters:
//   - stages: the shader stages that read the data
//   - offset: the byte offset, a multiple of 4
//   - data: the bytes to push, a multiple of 4 long
//
// Returns:
//   - error: ErrNoPipelineBound, ErrInvalidRange for misaligned data, or ErrPushConstantsTooLarge
//     when the data does not fit the pipeline layout or the device limit
func (f *Frame) PushConstants(stages gpu.ShaderStage, offset uint32, data []byte) error {
	if err := f.recording(); err != nil {
		return err
	}
	if f.pipeline == nil {
		return ErrNoPipelineBound
	}
	if len(data) == 0 {
		return nil
	}
	if offset%4 != 0 || len(data)%4 != 0 {
		return errors.Wrapf(ErrInvalidRange, "push constants at %d, %d bytes: must be 4 byte aligned", offset, len(data))
	}
	end := uint64(offset) + uint64(len(data))
	if end > uint64(f.limits.MaxPushConstantsSize) {
		return errors.Wrapf(ErrPushConstantsTooLarge, "%d bytes, device limit %d", end, f.limits.MaxPushConstantsSize)
	}
	if layoutEnd := f.pipeline.Layout().PushConstantRange(stages); end > uint64(layoutEnd) {
		return errors.Wrapf(ErrPushConstantsTooLarge, "%d bytes, layout declares %d for these stages", end, layoutEnd)
	}
	f.cb.PushConstants(f.pipeline.LayoutNative(), stages, offset, data)
	return nil
}

// Draw draws the vertices in the given range.
//
// Parameters:
//   - vertices: the vertex range, non-empty
//   - instances: the instance count, at least 1
//
// Returns:
//   - error: ErrNoPipelineBound or ErrInvalidRange
func (f *Frame) Draw(vertices common.Range, instances uint32) error {
	if err := f.recording(); err != nil {
		return err
	}
	if f.pipeline == nil {
		return ErrNoPipelineBound
	}
	if vertices.Len() == 0 || instances == 0 {
		return errors.Wrapf(ErrInvalidRange, "vertices [%d, %d), %d instances", vertices.Start, vertices.End, instances)
	}
	f.cb.Draw(vertices.Len(), instances, vertices.Start, 0)
	return nil
}

// DrawIndexed draws the indices in the given range from the bound index buffer.
//
// Parameters:
//   - indices: the index range, non-empty and inside the bound index buffer
//   - baseVertex: added to every index before fetching the vertex
//   - instances: the instance count, at least 1
//
// Returns:
//   - error: ErrNoPipelineBound or ErrInvalidRange
func (f *Frame) DrawIndexed(indices common.Range, baseVertex int32, instances uint32) error {
	if err := f.recording(); err != nil {
		return err
	}
	if f.pipeline == nil {
		return ErrNoPipelineBound
	}
	if f.indexBuffer == nil {
		return errors.Wrap(ErrInvalidRange, "no index buffer bound")
	}
	if indices.Len() == 0 || instances == 0 {
		return errors.Wrapf(ErrInvalidRange, "indices [%d, %d), %d instances", indices.Start, indices.End, instances)
	}
	if end := f.indexOffset + uint64(indices.End)*f.indexFormat.Size(); end > f.indexBuffer.Size() {
		return errors.Wrapf(ErrInvalidRange, "indices [%d, %d) end at byte %d of %d", indices.Start, indices.End, end, f.indexBuffer.Size())
	}
	f.cb.DrawIndexed(indices.Len(), instances, indices.Start, baseVertex, 0)
	return nil
}

// SetViewport overrides the viewport set by BeginFrame.
func (f *Frame) SetViewport(v common.Viewport) error {
	if err := f.recording(); err != nil {
		return err
	}
	if v.Width <= 0 || v.Height <= 0 {
		return errors.Wrapf(ErrInvalidRange, "viewport %vx%v", v.Width, v.Height)
	}
	f.cb.SetViewport(v)
	return nil
}

// SetScissor overrides the scissor rectangle set by BeginFrame.
func (f *Frame) SetScissor(r common.Rect) error {
	if err := f.recording(); err != nil {
		return err
	}
	if r.X < 0 || r.Y < 0 {
		return errors.Wrapf(ErrInvalidRange, "scissor offset %d,%d", r.X, r.Y)
	}
	f.cb.SetScissor(r)
	return nil
}
