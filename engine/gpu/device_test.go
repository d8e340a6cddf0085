package gpu

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-canvas/common"
)

func TestNewContextOptions(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		options     []ContextBuilderOption
		wantTimeout time.Duration
		wantValid   bool
	}{
		{name: "defaults", wantTimeout: DefaultFenceTimeout},
		{name: "env enables validation", env: "true", wantTimeout: DefaultFenceTimeout, wantValid: true},
		{name: "option overrides env", env: "1", options: []ContextBuilderOption{WithValidation(false)}, wantTimeout: DefaultFenceTimeout},
		{name: "garbage env ignored", env: "maybe", wantTimeout: DefaultFenceTimeout},
		{name: "fence timeout", options: []ContextBuilderOption{WithFenceTimeout(50 * time.Millisecond)}, wantTimeout: 50 * time.Millisecond},
		{name: "non-positive timeout ignored", options: []ContextBuilderOption{WithFenceTimeout(-time.Second)}, wantTimeout: DefaultFenceTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ValidationEnv, tt.env)
			ctx, err := NewContext(BackendTypeHeadless, tt.options...)
			if err != nil {
				t.Fatalf("NewContext() error = %v", err)
			}
			defer ctx.Close()

			if got := ctx.FenceTimeout(); got != tt.wantTimeout {
				t.Errorf("FenceTimeout() = %v, want %v", got, tt.wantTimeout)
			}
			if got := ctx.Validation(); got != tt.wantValid {
				t.Errorf("Validation() = %v, want %v", got, tt.wantValid)
			}
			if got := ctx.Type(); got != BackendTypeHeadless {
				t.Errorf("Type() = %v, want %v", got, BackendTypeHeadless)
			}
		})
	}
}

func TestNewContextUnknownBackend(t *testing.T) {
	if _, err := NewContext(BackendType(99)); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("NewContext() error = %v, want %v", err, ErrInvalidParameters)
	}
}

func TestNewVulkanContextNeedsVulkanTarget(t *testing.T) {
	if _, err := NewContext(BackendTypeVulkan, WithTarget(NewHeadlessTarget(4, 4))); !errors.Is(err, ErrUnsupportedTarget) {
		t.Errorf("NewContext() error = %v, want %v", err, ErrUnsupportedTarget)
	}
}

func TestRenderPassRequirementsCheck(t *testing.T) {
	frame := RenderPassRequirements{ColorFormats: []Format{FormatBGRA8UnormSRGB}, DepthStencilFormat: FormatDepth32Float}

	tests := []struct {
		name    string
		req     RenderPassRequirements
		wantErr bool
	}{
		{name: "identical", req: frame},
		{name: "zero samples means one", req: RenderPassRequirements{ColorFormats: []Format{FormatBGRA8UnormSRGB}, DepthStencilFormat: FormatDepth32Float, SampleCount: SampleCount1}},
		{name: "color count", req: RenderPassRequirements{ColorFormats: []Format{FormatBGRA8UnormSRGB, FormatBGRA8UnormSRGB}, DepthStencilFormat: FormatDepth32Float}, wantErr: true},
		{name: "color format", req: RenderPassRequirements{ColorFormats: []Format{FormatRGBA8Unorm}, DepthStencilFormat: FormatDepth32Float}, wantErr: true},
		{name: "no depth", req: RenderPassRequirements{ColorFormats: []Format{FormatBGRA8UnormSRGB}}, wantErr: true},
		{name: "multisampled", req: RenderPassRequirements{ColorFormats: []Format{FormatBGRA8UnormSRGB}, DepthStencilFormat: FormatDepth32Float, SampleCount: SampleCount4}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Check(frame)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrCapacityMismatch) {
				t.Errorf("Check() error = %v, want %v", err, ErrCapacityMismatch)
			}
			if got := tt.req.Equal(frame); got == tt.wantErr {
				t.Errorf("Equal() = %v, want %v", got, !tt.wantErr)
			}
		})
	}
}

func TestCreateFramebufferMissingAttachmentPanics(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Close()

	req := RenderPassRequirements{ColorFormats: []Format{FormatBGRA8Unorm}, DepthStencilFormat: FormatDepth32Float}
	desc := req.Descriptor("test", LoadOpClear)
	rp, err := ctx.CreateRenderPass(desc)
	if err != nil {
		t.Fatalf("CreateRenderPass() error = %v", err)
	}
	defer rp.Release()

	color, err := ctx.CreateAttachment(AttachmentDescriptor{Format: FormatBGRA8Unorm, Extent: common.Extent2D{Width: 8, Height: 8}})
	if err != nil {
		t.Fatalf("CreateAttachment() error = %v", err)
	}
	defer color.Release()

	defer func() {
		if recover() == nil {
			t.Errorf("CreateFramebuffer() without depth attachment did not panic")
		}
	}()
	_, _ = ctx.CreateFramebuffer(rp, desc, FramebufferDescriptor{
		Attachments: []NativeImageView{color.Get()},
		Extent:      common.Extent2D{Width: 8, Height: 8},
	}, color)
}

func TestCreateResourceValidation(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Close()

	tests := []struct {
		name   string
		create func() error
	}{
		{name: "empty render pass", create: func() error {
			_, err := ctx.CreateRenderPass(RenderPassDescriptor{})
			return err
		}},
		{name: "zero extent attachment", create: func() error {
			_, err := ctx.CreateAttachment(AttachmentDescriptor{Format: FormatDepth32Float})
			return err
		}},
		{name: "empty buffer", create: func() error {
			_, err := ctx.CreateBuffer(BufferDescriptor{Usage: BufferUsageVertex}, nil)
			return err
		}},
		{name: "data larger than buffer", create: func() error {
			_, err := ctx.CreateBuffer(BufferDescriptor{Size: 2, Usage: BufferUsageVertex}, []byte{1, 2, 3})
			return err
		}},
		{name: "shader without code", create: func() error {
			_, err := ctx.CreateShaderModule(ShaderModuleDescriptor{Stage: ShaderStageVertex})
			return err
		}},
		{name: "push constants over limit", create: func() error {
			_, err := ctx.CreatePipelineLayout(PipelineLayoutDescriptor{
				PushConstants: []PushConstantRange{{Stages: ShaderStageVertex, Offset: 64, Size: ctx.Limits().MaxPushConstantsSize}},
			})
			return err
		}},
		{name: "pipeline without layout", create: func() error {
			_, err := ctx.CreateGraphicsPipeline(PipelineDescriptor{})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.create()
			if !errors.Is(err, ErrInvalidParameters) {
				t.Errorf("error = %v, want %v", err, ErrInvalidParameters)
			}
			var ce *CreationError
			if !errors.As(err, &ce) {
				t.Errorf("error = %T, want *CreationError", err)
			}
		})
	}
	if n := ctx.LiveResources(); n != 0 {
		t.Errorf("LiveResources() = %d, want 0", n)
	}
}

func TestPipelineKeepsLayoutAlive(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Close()

	layout, err := ctx.CreatePipelineLayout(PipelineLayoutDescriptor{
		PushConstants: []PushConstantRange{
			{Stages: ShaderStageVertex | ShaderStageFragment, Offset: 0, Size: 64},
			{Stages: ShaderStageVertex, Offset: 64, Size: 16},
		},
	})
	if err != nil {
		t.Fatalf("CreatePipelineLayout() error = %v", err)
	}
	if got := layout.PushConstantRange(ShaderStageVertex); got != 80 {
		t.Errorf("PushConstantRange(vertex) = %d, want 80", got)
	}
	if got := layout.PushConstantRange(ShaderStageVertex | ShaderStageFragment); got != 64 {
		t.Errorf("PushConstantRange(vertex|fragment) = %d, want 64", got)
	}

	vs, err := ctx.CreateShaderModule(ShaderModuleDescriptor{Stage: ShaderStageVertex, WGSL: "@vertex fn vs_main() {}"})
	if err != nil {
		t.Fatalf("CreateShaderModule() error = %v", err)
	}
	p, err := ctx.CreateGraphicsPipeline(PipelineDescriptor{
		Layout:       layout,
		Vertex:       vs,
		Requirements: RenderPassRequirements{ColorFormats: []Format{FormatBGRA8Unorm}},
	})
	if err != nil {
		t.Fatalf("CreateGraphicsPipeline() error = %v", err)
	}
	vs.Release()
	layout.Release()

	if got := ctx.LiveResourcesByKind()[ResourceKindPipelineLayout]; got != 1 {
		t.Errorf("live pipeline layouts = %d, want 1", got)
	}
	if p.LayoutNative() == nil {
		t.Errorf("LayoutNative() = nil")
	}
	p.Release()
	if n := ctx.LiveResources(); n != 0 {
		t.Errorf("LiveResources() = %d, want 0", n)
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil},
		{name: "out of date", err: ErrOutOfDate},
		{name: "device lost", err: ErrDeviceLost, want: true},
		{name: "sync timeout", err: &SyncError{Op: "wait", Slot: 1, Err: ErrTimeout}, want: true},
		{name: "creation", err: &CreationError{Kind: ResourceKindFence, Err: ErrOutOfMemory}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
