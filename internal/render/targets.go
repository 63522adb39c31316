package render

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/voxelsprout/renderer/internal/gpu"
	"github.com/voxelsprout/renderer/internal/post"
)

// MSAASampleCount is the main pass's multisample count; the HDR target
// resolves into a single-sample image whose mip chain feeds bloom and
// auto-exposure.
const MSAASampleCount = 4

// AORes divides the swapchain extent for the prepass/SSAO targets.
const AORes = 2

// HDRFormat is the main pass's color format.
const HDRFormat = wgpu.TextureFormatRGBA16Float

// DepthFormat is the reverse-Z depth format shared by the main pass,
// the prepass, and the shadow atlas.
const DepthFormat = wgpu.TextureFormatDepth32Float

// Targets owns every resolution-dependent render target plus the GI
// volume's fixed-size images. Swapchain-sized targets are rebuilt on
// resize; the GI images survive it.
type Targets struct {
	alloc *gpu.Allocator

	Width, Height uint32
	MipCount      uint32

	HDRMSAA    gpu.ImageHandle
	HDRResolve gpu.ImageHandle
	DepthMSAA  gpu.ImageHandle

	NormalDepth gpu.ImageHandle
	AODepth     gpu.ImageHandle
	SSAORaw     gpu.ImageHandle
	SSAOBlur    gpu.ImageHandle

	ShadowAtlas gpu.ImageHandle

	Shafts gpu.ImageHandle

	Noise gpu.ImageHandle

	GIOccupancy gpu.ImageHandle
	GIFaces     [6]gpu.ImageHandle
	GIPingA     gpu.ImageHandle
	GIPingB     gpu.ImageHandle

	// Per-mip views of the HDR resolve image for the bloom downsample
	// chain; index is the mip level.
	hdrMipViews []*wgpu.TextureView
}

// NewTargets creates every render target for the given swapchain
// extent, shadow atlas resolution, and GI grid side.
func NewTargets(alloc *gpu.Allocator, width, height, shadowResolution uint32, giSide uint32) (*Targets, error) {
	t := &Targets{alloc: alloc}

	if err := t.createShadow(shadowResolution); err != nil {
		return nil, err
	}
	if err := t.createGI(giSide); err != nil {
		return nil, err
	}
	if err := t.createNoise(); err != nil {
		return nil, err
	}
	if err := t.Resize(width, height); err != nil {
		return nil, err
	}
	return t, nil
}

// Resize rebuilds the swapchain-sized targets. Shadow atlas, GI volume,
// and the noise tile keep their allocations.
func (t *Targets) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	t.releaseSized()
	t.Width, t.Height = width, height
	t.MipCount = post.MipCount(width, height)

	var err error
	create := func(h *gpu.ImageHandle, desc gpu.ImageDesc) {
		if err != nil {
			return
		}
		*h, err = t.alloc.CreateImage(desc)
	}

	create(&t.HDRMSAA, gpu.ImageDesc{
		Label: "hdr-msaa", Format: HDRFormat, Width: width, Height: height,
		SampleCount: MSAASampleCount, Usage: wgpu.TextureUsageRenderAttachment,
		Dimension: wgpu.TextureDimension2D,
	})
	create(&t.HDRResolve, gpu.ImageDesc{
		Label: "hdr-resolve", Format: HDRFormat, Width: width, Height: height,
		MipLevels: t.MipCount,
		Usage:     wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageStorageBinding,
		Dimension: wgpu.TextureDimension2D,
	})
	create(&t.DepthMSAA, gpu.ImageDesc{
		Label: "depth-msaa", Format: DepthFormat, Width: width, Height: height,
		SampleCount: MSAASampleCount, Usage: wgpu.TextureUsageRenderAttachment,
		Dimension: wgpu.TextureDimension2D,
	})

	aoW, aoH := width/AORes, height/AORes
	if aoW == 0 {
		aoW = 1
	}
	if aoH == 0 {
		aoH = 1
	}
	create(&t.NormalDepth, gpu.ImageDesc{
		Label: "prepass-normal-depth", Format: HDRFormat, Width: aoW, Height: aoH,
		Usage:     wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
		Dimension: wgpu.TextureDimension2D,
	})
	create(&t.AODepth, gpu.ImageDesc{
		Label: "prepass-depth", Format: DepthFormat, Width: aoW, Height: aoH,
		Usage: wgpu.TextureUsageRenderAttachment, Dimension: wgpu.TextureDimension2D,
	})
	create(&t.SSAORaw, gpu.ImageDesc{
		Label: "ssao-raw", Format: wgpu.TextureFormatR8Unorm, Width: aoW, Height: aoH,
		Usage:     wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
		Dimension: wgpu.TextureDimension2D,
	})
	create(&t.SSAOBlur, gpu.ImageDesc{
		Label: "ssao-blur", Format: wgpu.TextureFormatR8Unorm, Width: aoW, Height: aoH,
		Usage:     wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
		Dimension: wgpu.TextureDimension2D,
	})

	create(&t.Shafts, gpu.ImageDesc{
		Label: "sun-shafts", Format: wgpu.TextureFormatR32Float, Width: width / 2, Height: height / 2,
		Usage:     wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
		Dimension: wgpu.TextureDimension2D,
	})
	if err != nil {
		return err
	}

	return t.buildHDRMipViews()
}

func (t *Targets) createShadow(resolution uint32) error {
	var err error
	t.ShadowAtlas, err = t.alloc.CreateImage(gpu.ImageDesc{
		Label: "shadow-atlas", Format: DepthFormat, Width: resolution, Height: resolution,
		Usage:     wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
		Dimension: wgpu.TextureDimension2D,
	})
	return err
}

func (t *Targets) createGI(side uint32) error {
	var err error
	create := func(h *gpu.ImageHandle, label string, usage wgpu.TextureUsage) {
		if err != nil {
			return
		}
		*h, err = t.alloc.CreateImage(gpu.ImageDesc{
			Label: label, Format: wgpu.TextureFormatRGBA8Unorm,
			Width: side, Height: side, Depth: side,
			Usage: usage, Dimension: wgpu.TextureDimension3D,
		})
	}

	create(&t.GIOccupancy, "gi-occupancy", wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
	for i := range t.GIFaces {
		create(&t.GIFaces[i], fmt.Sprintf("gi-face-%d", i), wgpu.TextureUsageStorageBinding|wgpu.TextureUsageTextureBinding)
	}
	create(&t.GIPingA, "gi-radiance-a", wgpu.TextureUsageStorageBinding|wgpu.TextureUsageTextureBinding)
	create(&t.GIPingB, "gi-radiance-b", wgpu.TextureUsageStorageBinding|wgpu.TextureUsageTextureBinding)
	return err
}

func (t *Targets) createNoise() error {
	var err error
	t.Noise, err = t.alloc.CreateImage(gpu.ImageDesc{
		Label: "ssao-noise", Format: wgpu.TextureFormatRGBA8Unorm,
		Width: 4, Height: 4,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
	})
	return err
}

func (t *Targets) buildHDRMipViews() error {
	t.releaseMipViews()
	tex, _, ok := t.alloc.GetImage(t.HDRResolve)
	if !ok {
		return fmt.Errorf("render: hdr resolve image missing")
	}
	t.hdrMipViews = make([]*wgpu.TextureView, t.MipCount)
	for mip := uint32(0); mip < t.MipCount; mip++ {
		view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("hdr-mip-%d", mip),
			Format:          HDRFormat,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    mip,
			MipLevelCount:   1,
			BaseArrayLayer:  0,
			ArrayLayerCount: 1,
		})
		if err != nil {
			return err
		}
		t.hdrMipViews[mip] = view
	}
	return nil
}

// HDRMipView returns the single-mip view of the HDR resolve image at
// the given level.
func (t *Targets) HDRMipView(mip uint32) *wgpu.TextureView {
	return t.hdrMipViews[mip]
}

// View resolves an image handle's default (all-mips) view.
func (t *Targets) View(h gpu.ImageHandle) *wgpu.TextureView {
	_, view, _ := t.alloc.GetImage(h)
	return view
}

func (t *Targets) releaseMipViews() {
	for _, v := range t.hdrMipViews {
		if v != nil {
			v.Release()
		}
	}
	t.hdrMipViews = nil
}

func (t *Targets) releaseSized() {
	t.releaseMipViews()
	for _, h := range []gpu.ImageHandle{
		t.HDRMSAA, t.HDRResolve, t.DepthMSAA,
		t.NormalDepth, t.AODepth, t.SSAORaw, t.SSAOBlur, t.Shafts,
	} {
		if h.Valid() {
			t.alloc.DestroyImage(h)
		}
	}
}

// Release frees everything, sized and fixed.
func (t *Targets) Release() {
	t.releaseSized()
	for _, h := range []gpu.ImageHandle{t.ShadowAtlas, t.GIOccupancy, t.GIPingA, t.GIPingB, t.Noise} {
		if h.Valid() {
			t.alloc.DestroyImage(h)
		}
	}
	for _, h := range t.GIFaces {
		if h.Valid() {
			t.alloc.DestroyImage(h)
		}
	}
}
