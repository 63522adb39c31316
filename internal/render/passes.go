package render

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/voxelsprout/renderer/internal/gpu"
	"github.com/voxelsprout/renderer/internal/post"
	"github.com/voxelsprout/renderer/internal/shadow"
)

// RecordShadowPass renders every cascade's casters into the shared
// depth atlas: chunk geometry through per-cascade biased pipelines,
// then instanced cube casters, then grass billboards for the cascades
// close enough to want them.
func RecordShadowPass(ctx *FrameCtx) {
	r := ctx.R
	in := ctx.In

	rp := ctx.Encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "shadow",
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.Targets.View(r.Targets.ShadowAtlas),
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 0, // reverse-Z far
		},
	})

	rects := shadow.AtlasRects(r.shadowResolution)
	for cascade := 0; cascade < shadow.CascadeCount; cascade++ {
		rect := rects[cascade]
		rp.SetViewport(float32(rect.X), float32(rect.Y), float32(rect.W), float32(rect.H), 0, 1)
		rp.SetScissorRect(rect.X, rect.Y, rect.W, rect.H)

		if in.DrawCount > 0 && in.VertexBuf != nil {
			pipe := r.Pipelines.ShadowCascades[cascade]
			rp.SetPipeline(pipe)
			bg := ctx.sliceBind(pipe.GetBindGroupLayout(0), "shadow-frame", in.Camera, in.ShadowParams)
			rp.SetBindGroup(0, bg, nil)
			rp.SetVertexBuffer(0, in.VertexBuf, 0, wgpu.WholeSize)
			rp.SetIndexBuffer(in.IndexBuf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
			drawChunks(ctx, rp, in.ShadowIndirect[cascade], uint32(cascade)*in.RangeCount)
		}

		if casters := in.ShadowCasters[cascade]; casters.Count > 0 {
			pipe := r.Pipelines.ShadowInstanced
			rp.SetPipeline(pipe)
			bg := ctx.sliceBind(pipe.GetBindGroupLayout(0), "shadow-casters", in.Camera, casters.Slice)
			rp.SetBindGroup(0, bg, nil)
			rp.SetVertexBuffer(0, r.cubeVB, 0, wgpu.WholeSize)
			rp.SetIndexBuffer(r.cubeIB, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
			rp.DrawIndexed(r.cubeIndexCount, casters.Count, 0, 0, 0)
		}

		if cascade < len(in.GrassShadow) {
			if grass := in.GrassShadow[cascade]; grass.Count > 0 {
				pipe := r.Pipelines.ShadowGrass
				rp.SetPipeline(pipe)
				bg := ctx.sliceBind(pipe.GetBindGroupLayout(0), "shadow-grass", in.Camera, grass.Slice)
				rp.SetBindGroup(0, bg, nil)
				rp.Draw(6, grass.Count, 0, 0)
			}
		}
	}
	rp.End()
}

// drawChunks issues the chunk draws from an indirect slice, or falls
// back to direct per-range draws when indirect draws with a non-zero
// first instance are unavailable on this device.
func drawChunks(ctx *FrameCtx, rp *wgpu.RenderPassEncoder, indirect gpu.Slice, firstInstanceBase uint32) {
	in := ctx.In
	if in.IndirectSupported {
		for i := uint32(0); i < in.DrawCount; i++ {
			rp.DrawIndexedIndirect(ctx.arenaBuf, indirect.Offset+uint64(i)*DrawIndexedIndirectSize)
		}
		return
	}
	for _, cmd := range in.Commands {
		rp.DrawIndexed(cmd.IndexCount, 1, cmd.FirstIndex, cmd.BaseVertex, firstInstanceBase+cmd.FirstInstance)
	}
}

// RecordGIPasses dispatches the GI compute chain the orchestrator's
// skip policy decided on: sky seed, per-face surface radiance, inject,
// then the decayed propagation iterations ping-ponging A and B.
func RecordGIPasses(ctx *FrameCtx) {
	r := ctx.R
	in := ctx.In
	if len(in.GISteps) == 0 {
		return
	}

	groups := (in.GISide + 3) / 4

	cp := ctx.Encoder.BeginComputePass(nil)
	for _, step := range in.GISteps {
		src := 0
		if !step.SrcIsA {
			src = 1
		}
		switch step.Kind {
		case GiStepSky:
			cp.SetPipeline(r.Pipelines.GISkyExposure)
			cp.SetBindGroup(0, r.giSkyBind[src], nil)
		case GiStepSurface:
			cp.SetPipeline(r.Pipelines.GISurface)
			cp.SetBindGroup(0, r.giSurfaceBind0, nil)
			cp.SetBindGroup(1, r.giSurfaceBind1, nil)
		case GiStepInject:
			cp.SetPipeline(r.Pipelines.GIInject)
			cp.SetBindGroup(0, r.giInjectBind0[src], nil)
			cp.SetBindGroup(1, r.giInjectBind1, nil)
		case GiStepPropagate:
			cp.SetPipeline(r.Pipelines.GIPropagate)
			cp.SetBindGroup(0, r.giPropagateBind[src], nil)
		}
		cp.DispatchWorkgroups(groups, groups, groups)
	}
	cp.End()
}

// RecordPrepass draws the lit geometry's normals and linear depth at AO
// resolution.
func RecordPrepass(ctx *FrameCtx) {
	r := ctx.R
	in := ctx.In

	rp := ctx.Encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "prepass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       r.Targets.View(r.Targets.NormalDepth),
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.Targets.View(r.Targets.AODepth),
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 0,
		},
	})

	if in.DrawCount > 0 && in.VertexBuf != nil {
		pipe := r.Pipelines.Prepass
		rp.SetPipeline(pipe)
		bg := ctx.sliceBind(pipe.GetBindGroupLayout(0), "prepass-frame", in.Camera, in.ChunkParams)
		rp.SetBindGroup(0, bg, nil)
		rp.SetVertexBuffer(0, in.VertexBuf, 0, wgpu.WholeSize)
		rp.SetIndexBuffer(in.IndexBuf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		drawChunks(ctx, rp, in.Indirect, 0)
	}
	rp.End()
}

// RecordSSAOPasses runs the raw SSAO and blur fullscreen passes;
// skipped entirely when AO is disabled, leaving the blur target's
// contents ignored by the main pass.
func RecordSSAOPasses(ctx *FrameCtx) {
	if !ctx.In.SSAOEnabled {
		return
	}
	r := ctx.R

	raw := ctx.Encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "ssao",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       r.Targets.View(r.Targets.SSAORaw),
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 1, G: 1, B: 1, A: 1},
		}},
	})
	raw.SetPipeline(r.Pipelines.SSAO)
	raw.SetBindGroup(0, r.ssaoBind, nil)
	raw.Draw(3, 1, 0, 0)
	raw.End()

	blur := ctx.Encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "ssao_blur",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       r.Targets.View(r.Targets.SSAOBlur),
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 1, G: 1, B: 1, A: 1},
		}},
	})
	blur.SetPipeline(r.Pipelines.SSAOBlur)
	blur.SetBindGroup(0, r.ssaoBlurBind, nil)
	blur.Draw(3, 1, 0, 0)
	blur.End()
}

// RecordMainPass draws the forward scene into the multisampled HDR
// target with an automatic resolve, then builds the resolve image's
// mip chain for bloom and auto-exposure.
func RecordMainPass(ctx *FrameCtx, radianceIsA bool) {
	r := ctx.R
	in := ctx.In

	rp := ctx.Encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "main",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:          r.Targets.View(r.Targets.HDRMSAA),
			ResolveTarget: r.Targets.HDRMipView(0),
			LoadOp:        wgpu.LoadOpClear,
			StoreOp:       wgpu.StoreOpStore,
			ClearValue:    wgpu.Color{},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.Targets.View(r.Targets.DepthMSAA),
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 0,
		},
	})

	texBind := r.mainTexturesBind[0]
	if !radianceIsA {
		texBind = r.mainTexturesBind[1]
	}

	if in.DrawCount > 0 && in.VertexBuf != nil {
		pipe := r.Pipelines.VoxelMain
		rp.SetPipeline(pipe)
		bg := ctx.sliceBind(pipe.GetBindGroupLayout(0), "main-frame", in.Camera, in.ChunkParams)
		rp.SetBindGroup(0, bg, nil)
		rp.SetBindGroup(1, texBind, nil)
		rp.SetVertexBuffer(0, in.VertexBuf, 0, wgpu.WholeSize)
		rp.SetIndexBuffer(in.IndexBuf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		drawChunks(ctx, rp, in.Indirect, 0)
	}

	for _, stream := range in.Streams {
		if stream.Count == 0 {
			continue
		}
		pipe := r.Pipelines.Instanced
		rp.SetPipeline(pipe)
		bg := ctx.sliceBind(pipe.GetBindGroupLayout(0), "instanced-frame", in.Camera, stream.Slice)
		rp.SetBindGroup(0, bg, nil)
		rp.SetVertexBuffer(0, r.cubeVB, 0, wgpu.WholeSize)
		rp.SetIndexBuffer(r.cubeIB, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
		rp.DrawIndexed(r.cubeIndexCount, stream.Count, 0, 0, 0)
	}

	if in.Grass.Count > 0 {
		pipe := r.Pipelines.Grass
		rp.SetPipeline(pipe)
		bg := ctx.sliceBind(pipe.GetBindGroupLayout(0), "grass-frame", in.Camera, in.Grass.Slice)
		rp.SetBindGroup(0, bg, nil)
		rp.Draw(6, in.Grass.Count, 0, 0)
	}

	// Sky last: depth-equal against the reverse-Z clear shades only the
	// uncovered pixels.
	skyPipe := r.Pipelines.Sky
	rp.SetPipeline(skyPipe)
	skyBg := ctx.sliceBind(skyPipe.GetBindGroupLayout(0), "sky-frame", in.Camera)
	rp.SetBindGroup(0, skyBg, nil)
	rp.Draw(3, 1, 0, 0)

	rp.End()

	recordBloomChain(ctx)
}

// recordBloomChain box-filters the HDR resolve image down its mip
// chain, one compute dispatch per destination mip.
func recordBloomChain(ctx *FrameCtx) {
	r := ctx.R
	plan := post.BuildMipChainPlan(r.Targets.Width, r.Targets.Height, r.Targets.MipCount)
	if len(plan) == 0 {
		return
	}

	cp := ctx.Encoder.BeginComputePass(nil)
	cp.SetPipeline(r.Pipelines.BloomDownsample)
	for i, step := range plan {
		cp.SetBindGroup(0, r.bloomBinds[i], nil)
		cp.DispatchWorkgroups((step.DstWidth+7)/8, (step.DstHeight+7)/8, 1)
	}
	cp.End()
}

// RecordAutoExposure builds the luminance histogram from a low HDR mip
// and folds it into the exposure state.
func RecordAutoExposure(ctx *FrameCtx) {
	r := ctx.R
	mip := post.SourceMip(r.Targets.MipCount)
	w, h := post.MipExtent(r.Targets.Width, r.Targets.Height, mip)

	cp := ctx.Encoder.BeginComputePass(nil)
	cp.SetPipeline(r.Pipelines.ExposureHistogram)
	cp.SetBindGroup(0, r.histogramBind, nil)
	cp.DispatchWorkgroups((w+7)/8, (h+7)/8, 1)

	cp.SetPipeline(r.Pipelines.ExposureReduce)
	cp.SetBindGroup(0, r.exposureReduceBind, nil)
	cp.DispatchWorkgroups(1, 1, 1)
	cp.End()
}

// RecordSunShafts ray-marches the shadow atlas toward the sun's screen
// position into the shaft intensity image.
func RecordSunShafts(ctx *FrameCtx) {
	r := ctx.R
	w := r.Targets.Width / 2
	h := r.Targets.Height / 2
	if w == 0 || h == 0 {
		return
	}

	cp := ctx.Encoder.BeginComputePass(nil)
	cp.SetPipeline(r.Pipelines.SunShafts)
	cp.SetBindGroup(0, r.shaftsBind, nil)
	cp.DispatchWorkgroups((w+7)/8, (h+7)/8, 1)
	cp.End()
}

// RecordTonemap composites HDR, bloom mips, and sun shafts onto the
// swapchain image. No UI is drawn in this pass.
func RecordTonemap(ctx *FrameCtx) {
	r := ctx.R
	in := ctx.In

	rp := ctx.Encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "post",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       in.SurfaceView,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}},
	})

	pipe := r.Pipelines.Tonemap
	rp.SetPipeline(pipe)
	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: ctx.arenaBuf, Offset: in.Camera.Offset, Size: in.Camera.Size},
		{Binding: 1, TextureView: r.Targets.View(r.Targets.HDRResolve)},
		{Binding: 2, TextureView: r.Targets.View(r.Targets.Shafts)},
		{Binding: 3, Sampler: r.Pipelines.LinearSampler},
		{Binding: 4, Buffer: r.buffer(r.exposureBuf), Size: wgpu.WholeSize},
	}
	bg, err := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "tonemap-frame",
		Layout:  pipe.GetBindGroupLayout(0),
		Entries: entries,
	})
	if err == nil {
		ctx.transient = append(ctx.transient, bg)
		rp.SetBindGroup(0, bg, nil)
		rp.Draw(3, 1, 0, 0)
	}
	rp.End()
}
