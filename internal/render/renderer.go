// Package render owns the GPU-side half of the frame: pipelines
// compiled from the embedded WGSL set, the render-target pool, and the
// per-pass command recording the orchestrator's pass order drives.
package render

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/voxelsprout/renderer/internal/gpu"
	"github.com/voxelsprout/renderer/internal/post"
	"github.com/voxelsprout/renderer/internal/rerr"
	"github.com/voxelsprout/renderer/internal/shadow"
	"github.com/voxelsprout/renderer/internal/ssao"
)

// InstanceStream is one instanced draw's frame-arena slice and count.
type InstanceStream struct {
	Slice gpu.Slice
	Count uint32
}

// GiStepKind identifies one dispatch of the GI chain.
type GiStepKind int

const (
	GiStepSky GiStepKind = iota
	GiStepSurface
	GiStepInject
	GiStepPropagate
)

// GiStep is one recorded GI dispatch; SrcIsA tells the recorder which
// ping-pong radiance image the step reads (the other is written).
type GiStep struct {
	Kind   GiStepKind
	SrcIsA bool
}

// FrameInputs carries everything one frame's recording needs: arena
// slices staged by the orchestrator, chunk buffers, instance streams,
// and the per-frame skip flags.
type FrameInputs struct {
	Camera       gpu.Slice
	ChunkParams  gpu.Slice
	ShadowParams gpu.Slice

	Indirect       gpu.Slice
	ShadowIndirect [shadow.CascadeCount]gpu.Slice
	Commands       []DrawIndexedIndirectArgs
	DrawCount      uint32
	RangeCount     uint32

	VertexBuf *wgpu.Buffer
	IndexBuf  *wgpu.Buffer

	Streams       []InstanceStream
	ShadowCasters [shadow.CascadeCount]InstanceStream
	Grass         InstanceStream
	GrassShadow   []InstanceStream

	GISteps []GiStep
	GISide  uint32

	SSAOEnabled       bool
	IndirectSupported bool

	SurfaceView *wgpu.TextureView
}

// FrameCtx bundles what the per-pass recording helpers need; they are
// free functions over this context rather than methods closing over a
// renderer instance.
type FrameCtx struct {
	R       *Renderer
	Encoder *wgpu.CommandEncoder
	In      *FrameInputs

	arenaBuf *wgpu.Buffer

	transient []*wgpu.BindGroup
}

// Renderer owns pipelines, targets, the shared cube mesh, and the
// persistent GPU-side parameter buffers, plus every bind group whose
// resources outlive a single frame.
type Renderer struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	alloc  *gpu.Allocator

	Pipelines *Pipelines
	Targets   *Targets

	shadowResolution uint32

	cubeVB, cubeIB *wgpu.Buffer
	cubeIndexCount uint32

	histogramBuf gpu.BufferHandle
	exposureBuf  gpu.BufferHandle
	giParamsBuf  gpu.BufferHandle
	ssaoParamsBuf gpu.BufferHandle
	shaftParamsBuf gpu.BufferHandle

	// GI bind groups; [0] reads ping A, [1] reads ping B.
	giSkyBind       [2]*wgpu.BindGroup
	giSurfaceBind0  *wgpu.BindGroup
	giSurfaceBind1  *wgpu.BindGroup
	giInjectBind0   [2]*wgpu.BindGroup
	giInjectBind1   *wgpu.BindGroup
	giPropagateBind [2]*wgpu.BindGroup

	exposureReduceBind *wgpu.BindGroup

	// Resize-dependent bind groups.
	ssaoBind          *wgpu.BindGroup
	ssaoBlurBind      *wgpu.BindGroup
	bloomBinds        []*wgpu.BindGroup
	histogramBind     *wgpu.BindGroup
	shaftsBind        *wgpu.BindGroup
	mainTexturesBind  [2]*wgpu.BindGroup // indexed by "current radiance is A"
}

// NewRenderer compiles pipelines, allocates targets and the static
// buffers, and wires every persistent bind group.
func NewRenderer(device *wgpu.Device, alloc *gpu.Allocator, surfaceFormat wgpu.TextureFormat, width, height, shadowResolution, giSide uint32) (*Renderer, error) {
	pipes, err := NewPipelines(device, surfaceFormat)
	if err != nil {
		return nil, err
	}
	targets, err := NewTargets(alloc, width, height, shadowResolution, giSide)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		device:           device,
		queue:            device.GetQueue(),
		alloc:            alloc,
		Pipelines:        pipes,
		Targets:          targets,
		shadowResolution: shadowResolution,
	}

	if r.cubeVB, r.cubeIB, r.cubeIndexCount, err = createCubeMesh(device); err != nil {
		return nil, rerr.Wrap(rerr.AllocationFailed, "render.Renderer", "cube mesh", err)
	}

	if err := r.createStaticBuffers(); err != nil {
		return nil, err
	}
	if err := r.createGIBindGroups(); err != nil {
		return nil, err
	}
	if err := r.createResizeBindGroups(); err != nil {
		return nil, err
	}

	noise := ssao.BuildNoise(1)
	r.queue.WriteTexture(
		r.imageCopy(targets.Noise),
		NoiseTextureBytes(noise),
		&wgpu.TextureDataLayout{BytesPerRow: 4 * ssao.NoiseTileSize, RowsPerImage: ssao.NoiseTileSize},
		&wgpu.Extent3D{Width: ssao.NoiseTileSize, Height: ssao.NoiseTileSize, DepthOrArrayLayers: 1},
	)
	return r, nil
}

func (r *Renderer) imageCopy(h gpu.ImageHandle) *wgpu.ImageCopyTexture {
	tex, _, _ := r.alloc.GetImage(h)
	return &wgpu.ImageCopyTexture{Texture: tex, MipLevel: 0, Origin: wgpu.Origin3D{}, Aspect: wgpu.TextureAspectAll}
}

func (r *Renderer) createStaticBuffers() error {
	var err error
	create := func(h *gpu.BufferHandle, label string, size uint64, usage wgpu.BufferUsage, initial []byte) {
		if err != nil {
			return
		}
		*h, err = r.alloc.CreateBuffer(gpu.BufferDesc{
			Label: label, Size: size, Usage: usage, InitialData: initial,
		})
	}

	create(&r.histogramBuf, "exposure-histogram", post.HistogramBins*4,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, nil)
	create(&r.exposureBuf, "exposure-state", ExposureStateSize,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst,
		PackExposureState(0.18, 0.18, 0, 1.5))
	create(&r.giParamsBuf, "gi-params", GiParamsSize,
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, nil)
	create(&r.shaftParamsBuf, "shaft-params", ShaftParamsSize,
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, nil)

	kernel := ssao.BuildKernel(1)
	create(&r.ssaoParamsBuf, "ssao-params", SsaoParamsSize,
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst,
		PackSsaoParams(kernel, mgl32Ident()))
	return err
}

func (r *Renderer) buffer(h gpu.BufferHandle) *wgpu.Buffer {
	buf, _ := r.alloc.GetBuffer(h)
	return buf
}

func (r *Renderer) bindGroup(layout *wgpu.BindGroupLayout, label string, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error) {
	bg, err := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, rerr.Wrap(rerr.PipelineCreateFailed, "render.Renderer", label, err)
	}
	return bg, nil
}

func (r *Renderer) createGIBindGroups() error {
	t := r.Targets
	ping := [2]gpu.ImageHandle{t.GIPingA, t.GIPingB}

	for i := 0; i < 2; i++ {
		src := t.View(ping[i])
		dst := t.View(ping[1-i])

		// The sky seed writes the image inject will read as its source.
		bg, err := r.bindGroup(r.Pipelines.GISkyExposure.GetBindGroupLayout(0), "gi-sky", []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.buffer(r.giParamsBuf), Size: wgpu.WholeSize},
			{Binding: 1, TextureView: t.View(t.GIOccupancy)},
			{Binding: 2, TextureView: src},
		})
		if err != nil {
			return err
		}
		r.giSkyBind[i] = bg

		if r.giInjectBind0[i], err = r.bindGroup(r.Pipelines.GIInject.GetBindGroupLayout(0), "gi-inject", []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.buffer(r.giParamsBuf), Size: wgpu.WholeSize},
			{Binding: 1, TextureView: src},
			{Binding: 2, TextureView: dst},
		}); err != nil {
			return err
		}

		if r.giPropagateBind[i], err = r.bindGroup(r.Pipelines.GIPropagate.GetBindGroupLayout(0), "gi-propagate", []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.buffer(r.giParamsBuf), Size: wgpu.WholeSize},
			{Binding: 1, TextureView: src},
			{Binding: 2, TextureView: dst},
			{Binding: 3, TextureView: t.View(t.GIOccupancy)},
		}); err != nil {
			return err
		}
	}

	var err error
	if r.giSurfaceBind0, err = r.bindGroup(r.Pipelines.GISurface.GetBindGroupLayout(0), "gi-surface", []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: r.buffer(r.giParamsBuf), Size: wgpu.WholeSize},
		{Binding: 1, TextureView: t.View(t.GIOccupancy)},
	}); err != nil {
		return err
	}

	faceEntries := make([]wgpu.BindGroupEntry, 6)
	for i, h := range t.GIFaces {
		faceEntries[i] = wgpu.BindGroupEntry{Binding: uint32(i), TextureView: t.View(h)}
	}
	if r.giSurfaceBind1, err = r.bindGroup(r.Pipelines.GISurface.GetBindGroupLayout(1), "gi-surface-faces", faceEntries); err != nil {
		return err
	}
	if r.giInjectBind1, err = r.bindGroup(r.Pipelines.GIInject.GetBindGroupLayout(1), "gi-inject-faces", faceEntries); err != nil {
		return err
	}

	r.exposureReduceBind, err = r.bindGroup(r.Pipelines.ExposureReduce.GetBindGroupLayout(0), "exposure-reduce", []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: r.buffer(r.histogramBuf), Size: wgpu.WholeSize},
		{Binding: 1, Buffer: r.buffer(r.exposureBuf), Size: wgpu.WholeSize},
	})
	return err
}

func (r *Renderer) releaseResizeBindGroups() {
	release := func(bg **wgpu.BindGroup) {
		if *bg != nil {
			(*bg).Release()
			*bg = nil
		}
	}
	release(&r.ssaoBind)
	release(&r.ssaoBlurBind)
	release(&r.histogramBind)
	release(&r.shaftsBind)
	release(&r.mainTexturesBind[0])
	release(&r.mainTexturesBind[1])
	for _, bg := range r.bloomBinds {
		bg.Release()
	}
	r.bloomBinds = nil
}

// createResizeBindGroups wires every bind group that references a
// swapchain-sized target; called at init and after every Resize.
func (r *Renderer) createResizeBindGroups() error {
	r.releaseResizeBindGroups()
	t := r.Targets
	var err error

	if r.ssaoBind, err = r.bindGroup(r.Pipelines.SSAO.GetBindGroupLayout(0), "ssao", []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: r.buffer(r.ssaoParamsBuf), Size: wgpu.WholeSize},
		{Binding: 1, TextureView: t.View(t.NormalDepth)},
		{Binding: 2, TextureView: t.View(t.Noise)},
		{Binding: 3, Sampler: r.Pipelines.LinearSampler},
	}); err != nil {
		return err
	}

	if r.ssaoBlurBind, err = r.bindGroup(r.Pipelines.SSAOBlur.GetBindGroupLayout(0), "ssao-blur", []wgpu.BindGroupEntry{
		{Binding: 0, TextureView: t.View(t.SSAORaw)},
		{Binding: 1, Sampler: r.Pipelines.LinearSampler},
	}); err != nil {
		return err
	}

	r.bloomBinds = make([]*wgpu.BindGroup, 0, t.MipCount)
	for _, step := range post.BuildMipChainPlan(t.Width, t.Height, t.MipCount) {
		bg, berr := r.bindGroup(r.Pipelines.BloomDownsample.GetBindGroupLayout(0), "bloom-mip", []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: t.HDRMipView(step.SrcMip)},
			{Binding: 1, TextureView: t.HDRMipView(step.DstMip)},
		})
		if berr != nil {
			return berr
		}
		r.bloomBinds = append(r.bloomBinds, bg)
	}

	if r.histogramBind, err = r.bindGroup(r.Pipelines.ExposureHistogram.GetBindGroupLayout(0), "exposure-histogram", []wgpu.BindGroupEntry{
		{Binding: 0, TextureView: t.HDRMipView(post.SourceMip(t.MipCount))},
		{Binding: 1, Buffer: r.buffer(r.histogramBuf), Size: wgpu.WholeSize},
	}); err != nil {
		return err
	}

	if r.shaftsBind, err = r.bindGroup(r.Pipelines.SunShafts.GetBindGroupLayout(0), "sun-shafts", []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: r.buffer(r.shaftParamsBuf), Size: wgpu.WholeSize},
		{Binding: 1, TextureView: t.View(t.ShadowAtlas)},
		{Binding: 2, Sampler: r.Pipelines.ShadowSampler},
		{Binding: 3, TextureView: t.View(t.Shafts)},
	}); err != nil {
		return err
	}

	ping := [2]gpu.ImageHandle{t.GIPingA, t.GIPingB}
	for i := 0; i < 2; i++ {
		if r.mainTexturesBind[i], err = r.bindGroup(r.Pipelines.VoxelMain.GetBindGroupLayout(1), "main-textures", []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: t.View(t.ShadowAtlas)},
			{Binding: 1, Sampler: r.Pipelines.ShadowSampler},
			{Binding: 2, TextureView: t.View(ping[i])},
			{Binding: 3, Sampler: r.Pipelines.LinearSampler},
			{Binding: 4, TextureView: t.View(t.SSAOBlur)},
		}); err != nil {
			return err
		}
	}
	return nil
}

// Resize rebuilds the sized targets and their dependent bind groups.
func (r *Renderer) Resize(width, height uint32) error {
	if err := r.Targets.Resize(width, height); err != nil {
		return err
	}
	return r.createResizeBindGroups()
}

// UploadOccupancy copies the packed occupancy volume into the GI
// occupancy image.
func (r *Renderer) UploadOccupancy(data []byte, side uint32) {
	r.queue.WriteTexture(
		r.imageCopy(r.Targets.GIOccupancy),
		data,
		&wgpu.TextureDataLayout{BytesPerRow: side * 4, RowsPerImage: side},
		&wgpu.Extent3D{Width: side, Height: side, DepthOrArrayLayers: side},
	)
}

// UpdateGiParams refreshes the GI uniform before the compute chain runs.
func (r *Renderer) UpdateGiParams(data []byte) {
	r.queue.WriteBuffer(r.buffer(r.giParamsBuf), 0, data)
}

// UpdateShaftParams refreshes the sun-shaft uniform.
func (r *Renderer) UpdateShaftParams(data []byte) {
	r.queue.WriteBuffer(r.buffer(r.shaftParamsBuf), 0, data)
}

// ResetHistogram zeroes the histogram counts; ordered before this
// frame's command buffer since queued writes precede later submissions.
func (r *Renderer) ResetHistogram() {
	r.queue.WriteBuffer(r.buffer(r.histogramBuf), 0, make([]byte, post.HistogramBins*4))
}

// UpdateExposureDt writes the frame delta into the exposure state's dt
// field; average/ema stay GPU-owned.
func (r *Renderer) UpdateExposureDt(dt float32) {
	r.queue.WriteBuffer(r.buffer(r.exposureBuf), ExposureDtOffset, PackExposureState(0, 0, dt, 0)[ExposureDtOffset:ExposureDtOffset+4])
}

// NewFrameCtx prepares one frame's recording context. arenaBuf is the
// frame slot's upload buffer all FrameInputs slices live in.
func (r *Renderer) NewFrameCtx(encoder *wgpu.CommandEncoder, in *FrameInputs, arenaBuf *wgpu.Buffer) *FrameCtx {
	return &FrameCtx{R: r, Encoder: encoder, In: in, arenaBuf: arenaBuf}
}

// ReleaseTransients drops the bind groups created for this frame; call
// after the command buffer is submitted.
func (ctx *FrameCtx) ReleaseTransients() {
	for _, bg := range ctx.transient {
		bg.Release()
	}
	ctx.transient = nil
}

// sliceBind creates a frame-transient bind group over arena slices.
func (ctx *FrameCtx) sliceBind(layout *wgpu.BindGroupLayout, label string, slices ...gpu.Slice) *wgpu.BindGroup {
	entries := make([]wgpu.BindGroupEntry, len(slices))
	for i, s := range slices {
		entries[i] = wgpu.BindGroupEntry{
			Binding: uint32(i),
			Buffer:  ctx.arenaBuf,
			Offset:  s.Offset,
			Size:    s.Size,
		}
	}
	bg, err := ctx.R.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil
	}
	ctx.transient = append(ctx.transient, bg)
	return bg
}
