package renderer

import (
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/Carmen-Shannon/oxy-canvas/engine/canvas"
	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
	"github.com/Carmen-Shannon/oxy-canvas/engine/renderer/mesh"
	"github.com/Carmen-Shannon/oxy-canvas/engine/renderer/pipeline"
	"github.com/go-gl/mathgl/mgl32"
)

func newTestCanvas(t *testing.T) (*gpu.Context, canvas.Canvas) {
	t.Helper()
	ctx, err := gpu.NewContext(gpu.BackendTypeHeadless, gpu.WithValidation(false))
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	c, err := canvas.NewCanvas(ctx, gpu.NewHeadlessTarget(64, 64))
	if err != nil {
		ctx.Close()
		t.Fatalf("NewCanvas() error = %v", err)
	}
	t.Cleanup(func() {
		_ = c.Destroy()
		ctx.Close()
	})
	return ctx, c
}

func newTransformPipeline(key string) pipeline.Pipeline {
	return pipeline.NewPipeline(key,
		pipeline.WithVertexShader(gpu.ShaderModuleDescriptor{WGSL: "@vertex fn main() {}"}),
		pipeline.WithFragmentShader(gpu.ShaderModuleDescriptor{WGSL: "@fragment fn main() {}"}),
		pipeline.WithVertexLayout(gpu.VertexBufferLayout{
			Stride:     12,
			Attributes: []gpu.VertexAttribute{{Location: 0, Format: gpu.VertexFormatFloat32x3}},
		}),
		pipeline.WithPushConstants(gpu.ShaderStageVertex, 0, 64),
	)
}

func TestRegisterPipelines(t *testing.T) {
	ctx, c := newTestCanvas(t)
	r, err := NewRenderer(c, WithPipeline(newTransformPipeline("transform")))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	defer r.Destroy()

	tests := []struct {
		name    string
		p       pipeline.Pipeline
		wantErr error
	}{
		{name: "duplicate key is skipped", p: newTransformPipeline("transform")},
		{name: "second pipeline", p: newTransformPipeline("other")},
		{name: "missing vertex shader", p: pipeline.NewPipeline("empty"), wantErr: gpu.ErrInvalidParameters},
		{
			name:    "push constants over device limit",
			p:       pipeline.NewPipeline("big", pipeline.WithVertexShader(gpu.ShaderModuleDescriptor{WGSL: "@vertex fn main() {}"}), pipeline.WithPushConstants(gpu.ShaderStageVertex, 0, 256)),
			wantErr: gpu.ErrInvalidParameters,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.RegisterPipelines(tt.p)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RegisterPipelines() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	keys := make([]string, 0)
	for k := range r.Pipelines() {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if want := []string{"other", "transform"}; !slices.Equal(keys, want) {
		t.Errorf("Pipelines() keys = %v, want %v", keys, want)
	}
	if got := ctx.LiveResourcesByKind()[gpu.ResourceKindPipeline]; got != 2 {
		t.Errorf("live pipelines = %d, want 2", got)
	}
	if got := ctx.LiveResourcesByKind()[gpu.ResourceKindShaderModule]; got != 0 {
		t.Errorf("live shader modules = %d, want 0", got)
	}

	r.Destroy()
	if got := ctx.LiveResourcesByKind()[gpu.ResourceKindPipeline]; got != 0 {
		t.Errorf("live pipelines after Destroy() = %d, want 0", got)
	}
	if r.Pipeline("transform") != nil {
		t.Errorf("Pipeline() after Destroy() is not nil")
	}
}

func TestNewRendererFailsOnBadPipeline(t *testing.T) {
	ctx, c := newTestCanvas(t)
	_, err := NewRenderer(c, WithPipelines(newTransformPipeline("ok"), pipeline.NewPipeline("broken")))
	if !errors.Is(err, gpu.ErrInvalidParameters) {
		t.Fatalf("NewRenderer() error = %v, want %v", err, gpu.ErrInvalidParameters)
	}
	if got := ctx.LiveResourcesByKind()[gpu.ResourceKindPipeline]; got != 0 {
		t.Errorf("live pipelines = %d, want 0", got)
	}
}

func TestDrawCall(t *testing.T) {
	ctx, c := newTestCanvas(t)
	r, err := NewRenderer(c, WithPipeline(newTransformPipeline("transform")))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	defer r.Destroy()

	triangle := mesh.NewMesh("triangle")
	if err := r.InitMeshBuffers(triangle, PackVertices(0, 1, 0, -1, -1, 0, 1, -1, 0), 3, nil, gpu.IndexFormatUint16); err != nil {
		t.Fatalf("InitMeshBuffers() error = %v", err)
	}
	defer triangle.Release()
	quad := mesh.NewMesh("quad")
	if err := r.InitMeshBuffers(quad, PackVertices(make([]float32, 12)...), 4, PackIndices16(0, 1, 2, 2, 3, 0), gpu.IndexFormatUint16); err != nil {
		t.Fatalf("InitMeshBuffers() error = %v", err)
	}
	defer quad.Release()
	if !quad.Indexed() || quad.Count() != 6 {
		t.Errorf("quad Indexed() = %v, Count() = %d, want true, 6", quad.Indexed(), quad.Count())
	}

	push := TransformPushConstant(mgl32.Ident4(), mgl32.Ident4(), mgl32.Ident4())
	f, err := c.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if err := r.DrawCall(f, "transform", triangle, DrawParams{PushConstants: push, PushStages: gpu.ShaderStageVertex}); err != nil {
		t.Errorf("DrawCall(triangle) error = %v", err)
	}
	if err := r.DrawCall(f, "transform", quad, DrawParams{Range: common.Range{Start: 3, End: 6}, Instances: 2}); err != nil {
		t.Errorf("DrawCall(quad) error = %v", err)
	}
	if err := r.DrawCall(f, "transform", quad, DrawParams{Range: common.Range{Start: 0, End: 7}}); !errors.Is(err, canvas.ErrInvalidRange) {
		t.Errorf("DrawCall() past the index buffer error = %v, want %v", err, canvas.ErrInvalidRange)
	}
	if err := r.DrawCall(f, "missing", quad, DrawParams{}); !errors.Is(err, ErrPipelineNotFound) {
		t.Errorf("DrawCall() unknown pipeline error = %v, want %v", err, ErrPipelineNotFound)
	}
	if err := r.DrawCall(f, "transform", mesh.NewMesh("empty"), DrawParams{}); !errors.Is(err, ErrMeshNotInitialized) {
		t.Errorf("DrawCall() empty mesh error = %v, want %v", err, ErrMeshNotInitialized)
	}
	cb := f.CommandBuffer().(*gpu.HeadlessCommandBuffer)
	if err := c.EndFrame(); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}
	if err := c.Synchronize(); err != nil {
		t.Fatalf("Synchronize() error = %v", err)
	}

	var draws []gpu.Command
	for _, cmd := range cb.Commands() {
		if cmd.Op == "Draw" || cmd.Op == "DrawIndexed" {
			draws = append(draws, cmd)
		}
	}
	if len(draws) != 2 {
		t.Fatalf("recorded %d draws, want 2", len(draws))
	}
	if draws[0].Op != "Draw" || draws[0].Args[0] != uint32(3) {
		t.Errorf("first draw = %v %v, want Draw of 3 vertices", draws[0].Op, draws[0].Args)
	}
	if draws[1].Op != "DrawIndexed" || draws[1].Args[0] != uint32(3) || draws[1].Args[1] != uint32(2) || draws[1].Args[2] != uint32(3) {
		t.Errorf("second draw = %v %v, want DrawIndexed of 3 indices from 3, 2 instances", draws[1].Op, draws[1].Args)
	}
	if v := ctx.Backend().(*gpu.HeadlessBackend).Violations(); len(v) != 0 {
		t.Errorf("Violations() = %v, want none", v)
	}
}

func TestDestroyWaitsForFramesInFlight(t *testing.T) {
	ctx, err := gpu.NewContext(gpu.BackendTypeHeadless, gpu.WithValidation(false), gpu.WithHeadlessLatency(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	defer ctx.Close()
	c, err := canvas.NewCanvas(ctx, gpu.NewHeadlessTarget(64, 64))
	if err != nil {
		t.Fatalf("NewCanvas() error = %v", err)
	}
	defer c.Destroy()
	r, err := NewRenderer(c, WithPipeline(newTransformPipeline("transform")))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	triangle := mesh.NewMesh("triangle")
	if err := r.InitMeshBuffers(triangle, PackVertices(0, 1, 0, -1, -1, 0, 1, -1, 0), 3, nil, gpu.IndexFormatUint16); err != nil {
		t.Fatalf("InitMeshBuffers() error = %v", err)
	}

	f, err := c.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if err := r.DrawCall(f, "transform", triangle, DrawParams{}); err != nil {
		t.Fatalf("DrawCall() error = %v", err)
	}
	if err := c.EndFrame(); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}

	r.Destroy()
	triangle.Release()
	backend := ctx.Backend().(*gpu.HeadlessBackend)
	if err := backend.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle() error = %v", err)
	}
	if v := backend.Violations(); len(v) != 0 {
		t.Errorf("Violations() = %v, want none", v)
	}
	if got := ctx.LiveResourcesByKind()[gpu.ResourceKindPipeline]; got != 0 {
		t.Errorf("live pipelines = %d, want 0", got)
	}
}

func TestTransformPushConstant(t *testing.T) {
	model := mgl32.Translate3D(1, 2, 3)
	data := TransformPushConstant(mgl32.Ident4(), mgl32.Ident4(), model)
	if len(data) != (&GPUTransformPushConstant{}).Size() {
		t.Fatalf("len = %d, want %d", len(data), (&GPUTransformPushConstant{}).Size())
	}
	floatAt := func(i int) float32 {
		b := data[i*4 : i*4+4]
		return math.Float32frombits(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
	}
	tests := []struct {
		index int
		want  float32
	}{
		{0, 1}, {5, 1}, {10, 1}, {15, 1},
		{12, 1}, {13, 2}, {14, 3},
		{3, 0},
	}
	for _, tt := range tests {
		if got := floatAt(tt.index); got != tt.want {
			t.Errorf("element %d = %v, want %v", tt.index, got, tt.want)
		}
	}

	tint := GPUTintPushConstant{Tint: mgl32.Vec4{0.5, 0, 0, 1}}
	if got := tint.Marshal(); len(got) != tint.Size() || math.Float32frombits(uint32(got[0])|uint32(got[1])<<8|uint32(got[2])<<16|uint32(got[3])<<24) != 0.5 {
		t.Errorf("GPUTintPushConstant.Marshal() = %v", got)
	}
}
