package gpu

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
)

// RenderPassRequirements is what a pipeline expects from the render pass it draws into.
// A pipeline can only be bound inside a frame whose requirements are identical.
type RenderPassRequirements struct {
	ColorFormats       []Format
	DepthStencilFormat Format
	SampleCount        SampleCount
}

// ColorAttachmentCount returns the number of color attachments.
func (r RenderPassRequirements) ColorAttachmentCount() int {
	return len(r.ColorFormats)
}

// Equal reports whether r and o describe the same attachments.
func (r RenderPassRequirements) Equal(o RenderPassRequirements) bool {
	return slices.Equal(r.ColorFormats, o.ColorFormats) &&
		r.DepthStencilFormat == o.DepthStencilFormat &&
		r.normalizedSamples() == o.normalizedSamples()
}

// Check compares the requirements of a pipeline (r) against what a frame provides (frame).
//
// Returns:
//   - error: nil when compatible, otherwise ErrCapacityMismatch wrapped with the first difference
func (r RenderPassRequirements) Check(frame RenderPassRequirements) error {
	switch {
	case len(r.ColorFormats) != len(frame.ColorFormats):
		return errors.Wrapf(ErrCapacityMismatch, "pipeline writes %d color attachments, frame provides %d",
			len(r.ColorFormats), len(frame.ColorFormats))
	case !slices.Equal(r.ColorFormats, frame.ColorFormats):
		return errors.Wrapf(ErrCapacityMismatch, "color formats %v, frame has %v", r.ColorFormats, frame.ColorFormats)
	case r.DepthStencilFormat != frame.DepthStencilFormat:
		return errors.Wrapf(ErrCapacityMismatch, "depth format %s, frame has %s", r.DepthStencilFormat, frame.DepthStencilFormat)
	case r.normalizedSamples() != frame.normalizedSamples():
		return errors.Wrapf(ErrCapacityMismatch, "sample count %d, frame has %d", r.normalizedSamples(), frame.normalizedSamples())
	}
	return nil
}

func (r RenderPassRequirements) normalizedSamples() SampleCount {
	if r.SampleCount == 0 {
		return SampleCount1
	}
	return r.SampleCount
}

func (r RenderPassRequirements) String() string {
	return fmt.Sprintf("color=%v depth=%s samples=%d", r.ColorFormats, r.DepthStencilFormat, r.normalizedSamples())
}

// Descriptor builds the render pass descriptor that satisfies r.
func (r RenderPassRequirements) Descriptor(label string, load LoadOp) RenderPassDescriptor {
	return RenderPassDescriptor{
		Label:              label,
		ColorFormats:       slices.Clone(r.ColorFormats),
		DepthStencilFormat: r.DepthStencilFormat,
		SampleCount:        r.normalizedSamples(),
		ColorLoadOp:        load,
	}
}

// CheckAttachments panics if a framebuffer with the given attachment views cannot satisfy
// the render pass. Recording into such a framebuffer is a programming error.
func CheckAttachments(desc RenderPassDescriptor, attachments []NativeImageView) {
	want := len(desc.ColorFormats)
	if desc.DepthStencilFormat != FormatUndefined {
		want++
	}
	if len(attachments) < want {
		panic(fmt.Sprintf("gpu: render pass %q needs %d attachments, framebuffer provides %d",
			desc.Label, want, len(attachments)))
	}
}
