package canvas

import (
	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
)

// renderTarget is the render pass every frame of a canvas begins, plus the depth attachment
// shared by all frames. The depth attachment follows the surface extent.
type renderTarget struct {
	requirements gpu.RenderPassRequirements
	desc         gpu.RenderPassDescriptor
	pass         *gpu.Handle[gpu.NativeRenderPass]

	depth       *gpu.Handle[gpu.NativeImageView]
	depthExtent common.Extent2D
}

func newRenderTarget(ctx *gpu.Context, color, depth gpu.Format) (*renderTarget, error) {
	t := &renderTarget{
		requirements: gpu.RenderPassRequirements{
			ColorFormats:       []gpu.Format{color},
			DepthStencilFormat: depth,
			SampleCount:        gpu.SampleCount1,
		},
	}
	t.desc = t.requirements.Descriptor("canvas", gpu.LoadOpClear)
	pass, err := ctx.CreateRenderPass(t.desc)
	if err != nil {
		return nil, err
	}
	t.pass = pass
	return t, nil
}

// resize recreates the depth attachment for extent. The previous attachment lives on until the
// framebuffers using it are released.
func (t *renderTarget) resize(ctx *gpu.Context, extent common.Extent2D) error {
	if t.requirements.DepthStencilFormat == gpu.FormatUndefined || t.depthExtent == extent {
		return nil
	}
	depth, err := ctx.CreateAttachment(gpu.AttachmentDescriptor{
		Label:       "canvas depth",
		Format:      t.requirements.DepthStencilFormat,
		Extent:      extent,
		SampleCount: gpu.SampleCount1,
	})
	if err != nil {
		return err
	}
	t.depth.Release()
	t.depth = depth
	t.depthExtent = extent
	return nil
}

// framebuffer builds the transient framebuffer for one acquired swapchain image. It keeps the
// render pass, the swapchain and the depth attachment alive.
func (t *renderTarget) framebuffer(ctx *gpu.Context, s *Surface, image gpu.NativeImageView) (*gpu.Handle[gpu.NativeFramebuffer], error) {
	attachments := []gpu.NativeImageView{image}
	deps := []gpu.Dependency{s.Swapchain()}
	if t.depth != nil {
		attachments = append(attachments, t.depth.Get())
		deps = append(deps, t.depth)
	}
	return ctx.CreateFramebuffer(t.pass, t.desc, gpu.FramebufferDescriptor{
		Label:       "canvas frame",
		Attachments: attachments,
		Extent:      s.Extent(),
	}, deps...)
}

func (t *renderTarget) destroy() {
	t.depth.Release()
	t.depth = nil
	t.pass.Release()
}
