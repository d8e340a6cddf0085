package canvas

import (
	"errors"
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
)

func newTestPipeline(t *testing.T, ctx *gpu.Context, req gpu.RenderPassRequirements) *gpu.Pipeline {
	t.Helper()
	layout, err := ctx.CreatePipelineLayout(gpu.PipelineLayoutDescriptor{
		PushConstants: []gpu.PushConstantRange{{Stages: gpu.ShaderStageVertex, Size: 64}},
	})
	if err != nil {
		t.Fatalf("CreatePipelineLayout() error = %v", err)
	}
	vs, err := ctx.CreateShaderModule(gpu.ShaderModuleDescriptor{Stage: gpu.ShaderStageVertex, WGSL: "@vertex fn vs_main() {}"})
	if err != nil {
		t.Fatalf("CreateShaderModule() error = %v", err)
	}
	p, err := ctx.CreateGraphicsPipeline(gpu.PipelineDescriptor{Layout: layout, Vertex: vs, Requirements: req})
	if err != nil {
		t.Fatalf("CreateGraphicsPipeline() error = %v", err)
	}
	vs.Release()
	layout.Release()
	t.Cleanup(p.Release)
	return p
}

func newTestBuffer(t *testing.T, ctx *gpu.Context, usage gpu.BufferUsage, data []byte) *gpu.Buffer {
	t.Helper()
	b, err := ctx.CreateBuffer(gpu.BufferDescriptor{Usage: usage}, data)
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	t.Cleanup(b.Release)
	return b
}

func TestFrameRecording(t *testing.T) {
	r := newTestRig(t, nil, WithDepthFormat(gpu.FormatDepth32Float))
	pipeline := newTestPipeline(t, r.ctx, r.canvas.RenderPassRequirements())
	vertices := newTestBuffer(t, r.ctx, gpu.BufferUsageVertex, make([]byte, 3*12))
	indices6 := newTestBuffer(t, r.ctx, gpu.BufferUsageIndex, make([]byte, 6*2))

	f, err := r.canvas.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if err := f.Draw(common.Range{End: 3}, 1); !errors.Is(err, ErrNoPipelineBound) {
		t.Errorf("Draw() before BindPipeline error = %v, want %v", err, ErrNoPipelineBound)
	}
	if err := f.BindPipeline(pipeline); err != nil {
		t.Fatalf("BindPipeline() error = %v", err)
	}
	if err := f.PushConstants(gpu.ShaderStageVertex, 0, make([]byte, 64)); err != nil {
		t.Errorf("PushConstants() error = %v", err)
	}
	if err := f.BindVertexBuffer(0, vertices, 0); err != nil {
		t.Errorf("BindVertexBuffer() error = %v", err)
	}
	if err := f.BindIndexBuffer(indices6, 0, gpu.IndexFormatUint16); err != nil {
		t.Errorf("BindIndexBuffer() error = %v", err)
	}
	if err := f.DrawIndexed(common.Range{Start: 0, End: 6}, 0, 1); err != nil {
		t.Errorf("DrawIndexed() error = %v", err)
	}
	if err := f.Draw(common.Range{Start: 0, End: 3}, 2); err != nil {
		t.Errorf("Draw() error = %v", err)
	}
	cb := f.CommandBuffer().(*gpu.HeadlessCommandBuffer)
	if err := r.canvas.EndFrame(); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}
	r.assertClean(t)

	want := []string{
		"BeginRenderPass", "SetViewport", "SetScissor",
		"BindPipeline", "PushConstants", "BindVertexBuffer", "BindIndexBuffer",
		"DrawIndexed", "Draw", "EndRenderPass",
	}
	if got := cb.Ops(); !slices.Equal(got, want) {
		t.Errorf("recorded ops = %v, want %v", got, want)
	}
}

func TestFrameRejectsInvalidCommands(t *testing.T) {
	r := newTestRig(t, nil)
	pipeline := newTestPipeline(t, r.ctx, r.canvas.RenderPassRequirements())
	mismatched := newTestPipeline(t, r.ctx, gpu.RenderPassRequirements{
		ColorFormats:       r.canvas.RenderPassRequirements().ColorFormats,
		DepthStencilFormat: gpu.FormatDepth32Float,
	})
	vertices := newTestBuffer(t, r.ctx, gpu.BufferUsageVertex, make([]byte, 36))
	indices := newTestBuffer(t, r.ctx, gpu.BufferUsageIndex, make([]byte, 12))

	f, err := r.canvas.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	defer func() {
		if err := r.canvas.EndFrame(); err != nil {
			t.Errorf("EndFrame() error = %v", err)
		}
	}()

	if err := f.BindPipeline(mismatched); !errors.Is(err, gpu.ErrCapacityMismatch) {
		t.Errorf("BindPipeline(mismatched) error = %v, want %v", err, gpu.ErrCapacityMismatch)
	}
	if err := f.PushConstants(gpu.ShaderStageVertex, 0, make([]byte, 4)); !errors.Is(err, ErrNoPipelineBound) {
		t.Errorf("PushConstants() before BindPipeline error = %v, want %v", err, ErrNoPipelineBound)
	}
	if err := f.BindPipeline(pipeline); err != nil {
		t.Fatalf("BindPipeline() error = %v", err)
	}

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{name: "push past layout", call: func() error { return f.PushConstants(gpu.ShaderStageVertex, 32, make([]byte, 64)) }, want: ErrPushConstantsTooLarge},
		{name: "push past device limit", call: func() error { return f.PushConstants(gpu.ShaderStageVertex, 0, make([]byte, 256)) }, want: ErrPushConstantsTooLarge},
		{name: "push for uncovered stage", call: func() error { return f.PushConstants(gpu.ShaderStageFragment, 0, make([]byte, 16)) }, want: ErrPushConstantsTooLarge},
		{name: "misaligned push", call: func() error { return f.PushConstants(gpu.ShaderStageVertex, 2, make([]byte, 4)) }, want: ErrInvalidRange},
		{name: "empty draw", call: func() error { return f.Draw(common.Range{Start: 3, End: 3}, 1) }, want: ErrInvalidRange},
		{name: "inverted draw", call: func() error { return f.Draw(common.Range{Start: 3, End: 1}, 1) }, want: ErrInvalidRange},
		{name: "zero instances", call: func() error { return f.Draw(common.Range{End: 3}, 0) }, want: ErrInvalidRange},
		{name: "indexed without index buffer", call: func() error { return f.DrawIndexed(common.Range{End: 3}, 0, 1) }, want: ErrInvalidRange},
		{name: "index buffer as vertex buffer", call: func() error { return f.BindVertexBuffer(0, indices, 0) }, want: gpu.ErrInvalidParameters},
		{name: "vertex buffer as index buffer", call: func() error { return f.BindIndexBuffer(vertices, 0, gpu.IndexFormatUint16) }, want: gpu.ErrInvalidParameters},
		{name: "vertex offset past end", call: func() error { return f.BindVertexBuffer(0, vertices, 36) }, want: ErrInvalidRange},
		{name: "indices past buffer", call: func() error {
			if err := f.BindIndexBuffer(indices, 0, gpu.IndexFormatUint16); err != nil {
				return err
			}
			return f.DrawIndexed(common.Range{End: 7}, 0, 1)
		}, want: ErrInvalidRange},
		{name: "negative scissor", call: func() error { return f.SetScissor(common.Rect{X: -1, Width: 4, Height: 4}) }, want: ErrInvalidRange},
		{name: "empty viewport", call: func() error { return f.SetViewport(common.Viewport{MaxDepth: 1}) }, want: ErrInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if err := f.PushConstants(gpu.ShaderStageVertex, 0, nil); err != nil {
		t.Errorf("PushConstants(nil) error = %v", err)
	}
}
